// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package retry runs an operation a bounded number of times with a backoff
// between failed attempts.
package retry

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"
)

// ErrExhausted is returned by Do when every attempt failed.
var ErrExhausted = errors.New("retry attempts exhausted")

// Backoff returns the wait after the given failed attempt (1-based).
type Backoff func(attempt int) time.Duration

// Linear waits step × attempt: with a 2s step, 2s, 4s, 6s, 8s. A
// negative step gives no wait.
func Linear(step time.Duration) Backoff {
	return func(attempt int) time.Duration {
		return max(time.Duration(attempt)*step, 0)
	}
}

// Exponential waits base × 2^(attempt-1): with a 2s base, 2s, 4s, 8s, 16s.
// Do takes no wait after the last attempt, so with five attempts the
// schedule stops at 16s and the 32s that would follow attempt 5 is never
// slept. A negative base gives no wait.
func Exponential(base time.Duration) Backoff {
	return func(attempt int) time.Duration {
		return max(time.Duration(math.Pow(2, float64(attempt-1)))*base, 0)
	}
}

// Policy bounds an operation to Attempts calls separated by Backoff waits.
type Policy struct {
	Attempts int
	Backoff  Backoff
}

// Sleeper pauses between attempts.
type Sleeper interface {
	// Sleep blocks for d or until ctx is done, returning ctx.Err() in the latter case.
	Sleep(ctx context.Context, d time.Duration) error
}

// RealSleeper sleeps on a timer.
type RealSleeper struct{}

// Sleep implements Sleeper.
func (RealSleeper) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Notify is called after a failed attempt that will be retried, with the
// wait about to be taken.
type Notify func(attempt int, wait time.Duration, err error)

// Do calls op until it succeeds or p.Attempts calls have failed. Between
// failed attempts it waits p.Backoff(attempt); there is no wait after the
// last attempt. It returns the number of attempts made. When every attempt
// fails the error wraps both ErrExhausted and the last error from op. If ctx
// is cancelled during a wait, ctx.Err() is returned.
func Do(ctx context.Context, p Policy, s Sleeper, op func(attempt int) error, notify Notify) (int, error) {
	if p.Attempts <= 0 {
		p.Attempts = 1
	}
	if s == nil {
		s = RealSleeper{}
	}

	var lastErr error
	for attempt := 1; attempt <= p.Attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return attempt - 1, err
		}
		lastErr = op(attempt)
		if lastErr == nil {
			return attempt, nil
		}
		if attempt == p.Attempts {
			break
		}

		var wait time.Duration
		if p.Backoff != nil {
			wait = p.Backoff(attempt)
		}
		if notify != nil {
			notify(attempt, wait, lastErr)
		}
		if err := s.Sleep(ctx, wait); err != nil {
			return attempt, err
		}
	}
	return p.Attempts, fmt.Errorf("%w after %d attempts: %w", ErrExhausted, p.Attempts, lastErr)
}
