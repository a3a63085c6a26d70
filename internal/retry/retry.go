// Package retry runs provider calls with a bounded number of attempts.
package retry

import (
	"context"
	"time"
)

// Defaults used by the provider adapters.
const (
	DefaultAttempts = 5
	DefaultStep     = 10 * time.Second
)

// Policy describes how a call is retried.
type Policy struct {
	// MaxAttempts is the total number of calls, including the first one.
	MaxAttempts int
	// Backoff returns the wait after the given zero-based failed attempt.
	Backoff func(attempt int) time.Duration
	// Retryable reports whether an error is worth another attempt.
	// A nil Retryable retries nothing.
	Retryable func(error) bool
}

// Linear returns a backoff that waits step, 2*step, 3*step, ...
func Linear(step time.Duration) func(int) time.Duration {
	return func(attempt int) time.Duration {
		return step * time.Duration(attempt+1)
	}
}

// Default returns the provider policy: five attempts with a linear 10s step.
func Default(retryable func(error) bool) Policy {
	return Policy{
		MaxAttempts: DefaultAttempts,
		Backoff:     Linear(DefaultStep),
		Retryable:   retryable,
	}
}

// Do calls fn until it succeeds, fails with a non-retryable error,
// runs out of attempts, or ctx is done. The last error is returned.
func Do[T any](ctx context.Context, p Policy, fn func(context.Context) (T, error)) (T, error) {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var (
		zero T
		err  error
	)
	for attempt := range attempts {
		var v T
		v, err = fn(ctx)
		if err == nil {
			return v, nil
		}
		if attempt == attempts-1 || p.Retryable == nil || !p.Retryable(err) {
			return zero, err
		}

		var wait time.Duration
		if p.Backoff != nil {
			wait = p.Backoff(attempt)
		}
		if err := sleep(ctx, wait); err != nil {
			return zero, err
		}
	}
	return zero, err
}

func sleep(ctx context.Context, d time.Duration) error {
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
