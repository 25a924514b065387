// Copyright (c) 2025 BVK Chaitanya

package ctxutil

import (
	"context"
	"time"
)

// Sleep blocks the caller for given timeout duration. Returns early with the
// context's cancellation cause if the input context is canceled.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return context.Cause(ctx)
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return context.Cause(ctx)
	case <-timer.C:
		return nil
	}
}

// Backoff returns the delay before the n-th consecutive retry, starting at
// one.
type Backoff func(n int) time.Duration

// Fixed returns a backoff that always waits for the same duration.
func Fixed(d time.Duration) Backoff {
	return func(int) time.Duration { return d }
}

// Exponential returns a backoff that doubles the delay on every retry, up to
// the max duration.
func Exponential(base, max time.Duration) Backoff {
	return func(n int) time.Duration {
		d := base
		for i := 1; i < n && d < max; i++ {
			d *= 2
		}
		return min(d, max)
	}
}

// Retry runs the input function till it succeeds or till the input context is
// canceled. Returns nil if the input function is successful or last non-nil
// error from the function after the context has expired.
func Retry(ctx context.Context, backoff Backoff, f func() error) (err error) {
	for n := 1; ; n++ {
		if err = f(); err == nil || context.Cause(ctx) != nil {
			return err
		}
		if Sleep(ctx, backoff(n)) != nil {
			return err
		}
	}
}
