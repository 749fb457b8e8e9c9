// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package metrics records download-run counters in a Prometheus registry
// and writes them in the node_exporter textfile format at the end of a run.
//
// Metrics:
//   - seqfetch_identifiers_total (Counter): identifiers read from the input
//   - seqfetch_requests_total{op, outcome} (Counter): epost/efetch attempts by outcome
//   - seqfetch_retries_total{op, kind} (Counter): retried attempts by error kind
//   - seqfetch_retry_backoff_seconds{op} (Histogram): waits taken before retries
//   - seqfetch_skipped_total{unit} (Counter): batches or pages given up on
//   - seqfetch_output_bytes_total (Counter): bytes written to the output file
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome labels for seqfetch_requests_total.
const (
	OutcomeOK    = "ok"
	OutcomeError = "error"
)

// Unit labels for seqfetch_skipped_total.
const (
	UnitBatch = "batch"
	UnitPage  = "page"
)

// Recorder holds the run's metrics. A nil *Recorder discards everything.
type Recorder struct {
	reg *prometheus.Registry

	identifiers prometheus.Counter
	requests    *prometheus.CounterVec
	retries     *prometheus.CounterVec
	backoff     *prometheus.HistogramVec
	skipped     *prometheus.CounterVec
	bytes       prometheus.Counter
}

// New creates a Recorder backed by its own registry.
func New() *Recorder {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)
	return &Recorder{
		reg: reg,
		identifiers: f.NewCounter(prometheus.CounterOpts{
			Name: "seqfetch_identifiers_total",
			Help: "Identifiers read from the input list",
		}),
		requests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "seqfetch_requests_total",
			Help: "E-utilities requests by operation and outcome",
		}, []string{"op", "outcome"}),
		retries: f.NewCounterVec(prometheus.CounterOpts{
			Name: "seqfetch_retries_total",
			Help: "Retried requests by operation and error kind",
		}, []string{"op", "kind"}),
		backoff: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "seqfetch_retry_backoff_seconds",
			Help:    "Backoff waits before retries by operation",
			Buckets: []float64{1, 2, 4, 8, 16, 32},
		}, []string{"op"}),
		skipped: f.NewCounterVec(prometheus.CounterOpts{
			Name: "seqfetch_skipped_total",
			Help: "Batches or pages skipped after exhausting retries",
		}, []string{"unit"}),
		bytes: f.NewCounter(prometheus.CounterOpts{
			Name: "seqfetch_output_bytes_total",
			Help: "Bytes written to the output file",
		}),
	}
}

// Registry exposes the underlying registry as a Gatherer.
func (r *Recorder) Registry() prometheus.Gatherer {
	if r == nil {
		return prometheus.NewRegistry()
	}
	return r.reg
}

// Identifiers counts n accessions read from the input.
func (r *Recorder) Identifiers(n int) {
	if r == nil {
		return
	}
	r.identifiers.Add(float64(n))
}

// Request counts one call to op, labelled ok or error by err.
func (r *Recorder) Request(op string, err error) {
	if r == nil {
		return
	}
	outcome := OutcomeOK
	if err != nil {
		outcome = OutcomeError
	}
	r.requests.WithLabelValues(op, outcome).Inc()
}

// Retry counts a retried op failure of the given kind and observes its backoff wait.
func (r *Recorder) Retry(op, kind string, waitSeconds float64) {
	if r == nil {
		return
	}
	r.retries.WithLabelValues(op, kind).Inc()
	r.backoff.WithLabelValues(op).Observe(waitSeconds)
}

// Skipped counts a batch or page given up on.
func (r *Recorder) Skipped(unit string) {
	if r == nil {
		return
	}
	r.skipped.WithLabelValues(unit).Inc()
}

// Written adds n bytes of page text written to the output.
func (r *Recorder) Written(n int) {
	if r == nil {
		return
	}
	r.bytes.Add(float64(n))
}

// WriteTextfile writes all metrics to path in the text exposition format.
func (r *Recorder) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, r.Registry()); err != nil {
		return fmt.Errorf("writing metrics textfile: %w", err)
	}
	return nil
}
