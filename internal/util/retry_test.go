package util

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestRetryWithContextSucceedsAfterFailure(t *testing.T) {
	attempts := 0
	got, err := RetryWithContext(context.Background(), 3, func(ctx context.Context) (string, error) {
		attempts++
		if attempts < 2 {
			return "", errors.New("transient")
		}
		return "ok", nil
	})
	if err != nil {
		t.Fatalf("RetryWithContext() error = %v", err)
	}
	if got != "ok" {
		t.Errorf("RetryWithContext() = %q, want %q", got, "ok")
	}
	if attempts != 2 {
		t.Errorf("attempts = %d, want 2", attempts)
	}
}

func TestRetryWithContextExhaustsAttempts(t *testing.T) {
	wantErr := errors.New("permanent")
	attempts := 0
	_, err := RetryWithContext(context.Background(), 2, func(ctx context.Context) (int, error) {
		attempts++
		return 0, wantErr
	})
	if !errors.Is(err, wantErr) {
		t.Fatalf("RetryWithContext() error = %v, want %v", err, wantErr)
	}
	if attempts != 2 {
		t.Errorf("attempts = %d, want 2", attempts)
	}
}

func TestRetryWithContextStopsOnContextError(t *testing.T) {
	attempts := 0
	_, err := RetryWithContext(context.Background(), 5, func(ctx context.Context) (int, error) {
		attempts++
		return 0, context.Canceled
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("RetryWithContext() error = %v, want context.Canceled", err)
	}
	if attempts != 1 {
		t.Errorf("attempts = %d, want 1 (context errors are terminal)", attempts)
	}
}

func TestRetryWithContextCancelledBeforeFirstAttempt(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	attempts := 0
	_, err := RetryWithContext(ctx, 3, func(ctx context.Context) (int, error) {
		attempts++
		return 0, errors.New("should not run")
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("RetryWithContext() error = %v, want context.Canceled", err)
	}
	if attempts != 0 {
		t.Errorf("attempts = %d, want 0", attempts)
	}
}

func TestRetryErrWithContext(t *testing.T) {
	attempts := 0
	err := RetryErrWithContext(context.Background(), 2, func(ctx context.Context) error {
		attempts++
		if attempts == 1 {
			return errors.New("transient")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("RetryErrWithContext() error = %v", err)
	}
	if attempts != 2 {
		t.Errorf("attempts = %d, want 2", attempts)
	}
}

func TestBackoffDelay(t *testing.T) {
	base := 500 * time.Millisecond
	for attempt := 0; attempt < 12; attempt++ {
		delay := backoffDelay(attempt, base)
		expected := base << uint(attempt)
		if expected > maxDelay || expected <= 0 {
			expected = maxDelay
		}
		if delay < expected {
			t.Errorf("attempt %d: delay %v below base %v", attempt, delay, expected)
		}
		if delay > expected+expected/4 {
			t.Errorf("attempt %d: delay %v exceeds jitter ceiling %v", attempt, delay, expected+expected/4)
		}
	}
}
