// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package fetch runs the batched two-phase download: each batch of
// accessions is registered with the history server, then paged through and
// written to the output as FASTA text. Remote failures are retried with
// backoff and, once exhausted, skipped so the run always moves forward.
package fetch

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"github.com/pdiddy/seqfetch/internal/accession"
	"github.com/pdiddy/seqfetch/internal/entrez"
	"github.com/pdiddy/seqfetch/internal/metrics"
	"github.com/pdiddy/seqfetch/internal/retry"
	"github.com/pdiddy/seqfetch/pkg/types"
)

const (
	opRegister = "epost"
	opFetch    = "efetch"
)

// Remote is the history-server collaborator. *entrez.Client implements it.
type Remote interface {
	Register(ctx context.Context, ids []string) (entrez.Session, error)
	FetchPage(ctx context.Context, s entrez.Session, p accession.Page) (string, error)
}

// Fetcher downloads accession lists one batch and one page at a time.
type Fetcher struct {
	remote  Remote
	cfg     types.FetchConfig
	log     zerolog.Logger
	sleeper retry.Sleeper
	metrics *metrics.Recorder
	now     func() time.Time
	runID   string
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithLogger sets the progress logger (default: disabled).
func WithLogger(l zerolog.Logger) Option { return func(f *Fetcher) { f.log = l } }

// WithSleeper replaces the timer-based sleeper used for backoff and pacing.
func WithSleeper(s retry.Sleeper) Option { return func(f *Fetcher) { f.sleeper = s } }

// WithMetrics records run counters in m.
func WithMetrics(m *metrics.Recorder) Option { return func(f *Fetcher) { f.metrics = m } }

// WithClock overrides time.Now for summary timestamps.
func WithClock(now func() time.Time) Option { return func(f *Fetcher) { f.now = now } }

// WithRunID fixes the run identifier instead of generating a ULID.
func WithRunID(id string) Option { return func(f *Fetcher) { f.runID = id } }

// New returns a Fetcher for remote. Zero fields in cfg take their defaults
// and negative delays or backoffs disable the corresponding wait.
func New(remote Remote, cfg types.FetchConfig, opts ...Option) *Fetcher {
	f := &Fetcher{
		remote:  remote,
		cfg:     cfg.WithDefaults(),
		log:     zerolog.Nop(),
		sleeper: retry.RealSleeper{},
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.runID == "" {
		f.runID = ulid.Make().String()
	}
	return f
}

// RunID returns the identifier attached to this fetcher's logs and summary.
func (f *Fetcher) RunID() string { return f.runID }

// Run downloads ids in batches and writes every retrieved page to w in
// batch then page order. Registration and page failures are logged and
// skipped. Only a write error on w or cancellation of ctx stops the run
// early; the summary reflects the work done up to that point.
func (f *Fetcher) Run(ctx context.Context, ids []string, w io.Writer) (Summary, error) {
	log := f.log.With().Str("run_id", f.runID).Logger()
	sum := Summary{
		RunID:       f.runID,
		Started:     f.now(),
		Identifiers: len(ids),
	}
	f.metrics.Identifiers(len(ids))
	log.Info().Int("ids", len(ids)).Msg("found accessions to download")

	batches := accession.Partition(ids, f.cfg.BatchSize)
	sum.Batches = len(batches)

	for i, b := range batches {
		if err := f.runBatch(ctx, log, b, w, &sum); err != nil {
			sum.Finished = f.now()
			return sum, err
		}
		if i < len(batches)-1 {
			if err := f.sleeper.Sleep(ctx, types.Pause(f.cfg.BatchDelay)); err != nil {
				sum.Finished = f.now()
				return sum, err
			}
		}
	}

	sum.Finished = f.now()
	ev := log.Info()
	if !sum.Complete() {
		ev = log.Warn()
	}
	ev.Int("pages_written", sum.PagesWritten).
		Int("pages_skipped", sum.PagesSkipped).
		Int("batches_skipped", sum.BatchesSkipped).
		Int64("bytes", sum.BytesWritten).
		Dur("elapsed", sum.Finished.Sub(sum.Started)).
		Msg("all batches processed")
	return sum, nil
}

// runBatch registers b and fetches its pages. It returns an error only for
// cancellation or a failed write.
func (f *Fetcher) runBatch(ctx context.Context, log zerolog.Logger, b accession.Batch, w io.Writer, sum *Summary) error {
	blog := log.With().Int("batch", b.Number).Int("batches", b.Total).Logger()
	blog.Info().Int("ids", b.Len()).Msg("processing batch")

	var sess entrez.Session
	_, err := retry.Do(ctx, f.registerPolicy(), f.sleeper, func(int) error {
		s, err := f.remote.Register(ctx, b.IDs)
		f.metrics.Request(opRegister, err)
		sum.Requests++
		if err != nil {
			return err
		}
		sess = s
		return nil
	}, f.onRetry(blog, opRegister, sum))
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		blog.Error().Err(err).Msg("failed to register batch, skipping")
		sum.BatchesSkipped++
		sum.Skips = append(sum.Skips, Skip{Batch: b.Number, Reason: err.Error()})
		f.metrics.Skipped(metrics.UnitBatch)
		return nil
	}
	sum.BatchesRegistered++
	if len(sess.InvalidIDs) > 0 {
		blog.Warn().Strs("invalid_ids", sess.InvalidIDs).Msg("service rejected some identifiers")
		sum.InvalidIDs = append(sum.InvalidIDs, sess.InvalidIDs...)
	}

	for _, p := range accession.Pages(b.Len(), f.cfg.PageSize) {
		plog := blog.With().Str("page", p.String()).Logger()
		sum.Pages++

		var text string
		_, err := retry.Do(ctx, f.fetchPolicy(), f.sleeper, func(int) error {
			t, err := f.remote.FetchPage(ctx, sess, p)
			f.metrics.Request(opFetch, err)
			sum.Requests++
			if err != nil {
				return err
			}
			text = t
			return nil
		}, f.onRetry(plog, opFetch, sum))
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			plog.Error().Err(err).Msg("failed to fetch page, some sequences may be missing")
			sum.PagesSkipped++
			sum.Skips = append(sum.Skips, Skip{Batch: b.Number, Page: p.String(), Reason: err.Error()})
			f.metrics.Skipped(metrics.UnitPage)
			continue
		}

		if err := write(w, text); err != nil {
			return fmt.Errorf("writing batch %d page %s: %w", b.Number, p, err)
		}
		sum.PagesWritten++
		sum.BytesWritten += int64(len(text))
		f.metrics.Written(len(text))
		if strings.TrimSpace(text) == "" {
			plog.Warn().Msg("service returned an empty page")
			sum.PagesEmpty++
		} else {
			plog.Debug().Int("bytes", len(text)).Msg("page written")
		}

		if err := f.sleeper.Sleep(ctx, types.Pause(f.cfg.PageDelay)); err != nil {
			return err
		}
	}
	return nil
}

func (f *Fetcher) registerPolicy() retry.Policy {
	return retry.Policy{Attempts: f.cfg.MaxAttempts, Backoff: retry.Linear(f.cfg.RegisterBackoffStep)}
}

func (f *Fetcher) fetchPolicy() retry.Policy {
	return retry.Policy{Attempts: f.cfg.MaxAttempts, Backoff: retry.Exponential(f.cfg.FetchBackoffBase)}
}

// onRetry logs a failed attempt and counts it before the backoff wait.
func (f *Fetcher) onRetry(log zerolog.Logger, op string, sum *Summary) retry.Notify {
	return func(attempt int, wait time.Duration, err error) {
		kind := entrez.KindOf(err)
		class := "unexpected"
		if kind.Transient() {
			class = "transient"
		}
		sum.Retries++
		f.metrics.Retry(op, kind.String(), wait.Seconds())
		log.Warn().
			Err(err).
			Str("op", op).
			Str("kind", kind.String()).
			Str("class", class).
			Int("attempt", attempt).
			Int("max_attempts", f.cfg.MaxAttempts).
			Dur("wait", wait).
			Msg("request failed, retrying")
	}
}

// write sends text to w and flushes it when w buffers.
func write(w io.Writer, text string) error {
	if _, err := io.WriteString(w, text); err != nil {
		return err
	}
	if fl, ok := w.(interface{ Flush() error }); ok {
		return fl.Flush()
	}
	return nil
}
