package retry

import (
	"context"
	"errors"
	"testing"
	"time"
)

var errTransient = errors.New("transient")

func always(error) bool { return true }

func TestDo_SucceedsAfterRetries(t *testing.T) {
	calls := 0
	p := Policy{MaxAttempts: 5, Retryable: always}

	got, err := Do(context.Background(), p, func(context.Context) (int, error) {
		calls++
		if calls < 3 {
			return 0, errTransient
		}
		return 42, nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 42 {
		t.Errorf("expected 42, got %d", got)
	}
	if calls != 3 {
		t.Errorf("expected 3 calls, got %d", calls)
	}
}

func TestDo_GivesUpAfterMaxAttempts(t *testing.T) {
	calls := 0
	p := Policy{MaxAttempts: 4, Retryable: always}

	_, err := Do(context.Background(), p, func(context.Context) (string, error) {
		calls++
		return "", errTransient
	})
	if !errors.Is(err, errTransient) {
		t.Fatalf("expected errTransient, got %v", err)
	}
	if calls != 4 {
		t.Errorf("expected 4 calls, got %d", calls)
	}
}

func TestDo_NonRetryableStopsImmediately(t *testing.T) {
	permanent := errors.New("bad request")
	calls := 0
	p := Policy{MaxAttempts: 5, Retryable: func(err error) bool { return errors.Is(err, errTransient) }}

	_, err := Do(context.Background(), p, func(context.Context) (int, error) {
		calls++
		return 0, permanent
	})
	if !errors.Is(err, permanent) {
		t.Fatalf("expected permanent error, got %v", err)
	}
	if calls != 1 {
		t.Errorf("expected 1 call, got %d", calls)
	}
}

func TestDo_NilRetryable(t *testing.T) {
	calls := 0
	_, err := Do(context.Background(), Policy{MaxAttempts: 3}, func(context.Context) (int, error) {
		calls++
		return 0, errTransient
	})
	if err == nil || calls != 1 {
		t.Fatalf("expected single failed call, got calls=%d err=%v", calls, err)
	}
}

func TestDo_ZeroAttemptsRunsOnce(t *testing.T) {
	calls := 0
	_, _ = Do(context.Background(), Policy{}, func(context.Context) (int, error) {
		calls++
		return 0, errTransient
	})
	if calls != 1 {
		t.Errorf("expected 1 call, got %d", calls)
	}
}

func TestDo_ContextCanceledDuringBackoff(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	p := Policy{
		MaxAttempts: 5,
		Backoff:     func(int) time.Duration { return time.Hour },
		Retryable:   always,
	}

	calls := 0
	done := make(chan error, 1)
	go func() {
		_, err := Do(ctx, p, func(context.Context) (int, error) {
			calls++
			return 0, errTransient
		})
		done <- err
	}()
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Do did not return after cancel")
	}
	if calls != 1 {
		t.Errorf("expected 1 call, got %d", calls)
	}
}

func TestLinear(t *testing.T) {
	b := Linear(10 * time.Second)
	for attempt, want := range []time.Duration{10 * time.Second, 20 * time.Second, 30 * time.Second} {
		if got := b(attempt); got != want {
			t.Errorf("attempt %d: expected %v, got %v", attempt, want, got)
		}
	}
}

func TestDefault(t *testing.T) {
	p := Default(always)
	if p.MaxAttempts != DefaultAttempts {
		t.Errorf("expected %d attempts, got %d", DefaultAttempts, p.MaxAttempts)
	}
	if p.Backoff(1) != 2*DefaultStep {
		t.Errorf("unexpected backoff %v", p.Backoff(1))
	}
}
