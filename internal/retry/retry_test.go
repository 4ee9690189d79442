package retry_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jonesrussell/north-cloud/suggester/internal/retry"
)

func fastConfig() retry.Config {
	return retry.Config{
		MaxAttempts:  3,
		InitialDelay: time.Millisecond,
		MaxDelay:     5 * time.Millisecond,
		IsRetryable:  retry.Always,
	}
}

func TestDo_SucceedsAfterTransientFailures(t *testing.T) {
	t.Parallel()

	calls := 0
	err := retry.Do(t.Context(), fastConfig(), func(context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("connection refused")
		}
		return nil
	})

	if err != nil {
		t.Fatalf("Do() error = %v", err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}

func TestDo_StopsOnNonRetryable(t *testing.T) {
	t.Parallel()

	cfg := fastConfig()
	cfg.IsRetryable = retry.DefaultIsRetryable

	calls := 0
	permanent := errors.New("index not found")
	err := retry.Do(t.Context(), cfg, func(context.Context) error {
		calls++
		return permanent
	})

	if !errors.Is(err, permanent) {
		t.Fatalf("Do() error = %v, want %v", err, permanent)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestDo_ExhaustsAttempts(t *testing.T) {
	t.Parallel()

	err := retry.Do(t.Context(), fastConfig(), func(context.Context) error {
		return errors.New("i/o timeout")
	})

	if !errors.Is(err, retry.ErrMaxAttemptsExceeded) {
		t.Errorf("Do() error = %v, want %v", err, retry.ErrMaxAttemptsExceeded)
	}
}

func TestDo_CancelledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	err := retry.Do(ctx, fastConfig(), func(context.Context) error { return nil })
	if !errors.Is(err, retry.ErrContextCancelled) {
		t.Errorf("Do() error = %v, want %v", err, retry.ErrContextCancelled)
	}
}

func TestConfig_BackoffIsCapped(t *testing.T) {
	t.Parallel()

	cfg := retry.Config{InitialDelay: 10 * time.Millisecond, MaxDelay: 30 * time.Millisecond, Multiplier: 2}

	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{attempt: 1, want: 10 * time.Millisecond},
		{attempt: 2, want: 20 * time.Millisecond},
		{attempt: 3, want: 30 * time.Millisecond},
		{attempt: 10, want: 30 * time.Millisecond},
	}

	for _, tt := range tests {
		if got := cfg.Backoff(tt.attempt); got != tt.want {
			t.Errorf("Backoff(%d) = %v, want %v", tt.attempt, got, tt.want)
		}
	}
}
