package util

import (
	"context"
	"errors"
	"math/rand"
	"time"
)

const (
	defaultBaseDelay = 500 * time.Millisecond
	maxDelay         = 30 * time.Second
)

// backoffDelay returns the delay before the given retry attempt
// (0-based): exponential growth from the base delay with up to 25%
// jitter, capped at maxDelay.
func backoffDelay(attempt int, base time.Duration) time.Duration {
	if base <= 0 {
		base = defaultBaseDelay
	}
	delay := base << uint(attempt)
	if delay > maxDelay || delay <= 0 {
		delay = maxDelay
	}
	jitter := time.Duration(rand.Int63n(int64(delay)/4 + 1))
	return delay + jitter
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func isTerminal(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

// RetryErrWithContext calls fn up to maxTries times until it returns nil
// error, backing off exponentially between attempts, or until ctx is done.
// If maxTries <= 0, it defaults to 1. Context errors are terminal and
// returned immediately; otherwise the last error is returned.
func RetryErrWithContext(ctx context.Context, maxTries int, fn func(context.Context) error) error {
	if maxTries <= 0 {
		maxTries = 1
	}
	var lastErr error
	for i := 0; i < maxTries; i++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if i > 0 {
			if err := sleepCtx(ctx, backoffDelay(i-1, defaultBaseDelay)); err != nil {
				return err
			}
		}
		err := fn(ctx)
		if err == nil {
			return nil
		}
		if isTerminal(err) {
			return err
		}
		lastErr = err
	}
	return lastErr
}

// RetryWithContext calls fn up to maxTries times until it returns a result
// and nil error, backing off exponentially between attempts, or until ctx
// is done. If maxTries <= 0, it defaults to 1.
// Returns ctx.Err() if the context is canceled, otherwise the last error.
func RetryWithContext[T any](ctx context.Context, maxTries int, fn func(context.Context) (T, error)) (T, error) {
	if maxTries <= 0 {
		maxTries = 1
	}
	var lastErr error
	var zero T
	for i := 0; i < maxTries; i++ {
		if ctx.Err() != nil {
			return zero, ctx.Err()
		}
		if i > 0 {
			if err := sleepCtx(ctx, backoffDelay(i-1, defaultBaseDelay)); err != nil {
				return zero, err
			}
		}
		result, err := fn(ctx)
		if err == nil {
			return result, nil
		}
		if isTerminal(err) {
			return zero, err
		}
		lastErr = err
	}
	return zero, lastErr
}

// Retry2WithContext is RetryWithContext for functions returning two results.
func Retry2WithContext[A, B any](ctx context.Context, maxTries int, fn func(context.Context) (A, B, error)) (A, B, error) {
	if maxTries <= 0 {
		maxTries = 1
	}
	var lastErr error
	var zeroA A
	var zeroB B
	for i := 0; i < maxTries; i++ {
		if ctx.Err() != nil {
			return zeroA, zeroB, ctx.Err()
		}
		if i > 0 {
			if err := sleepCtx(ctx, backoffDelay(i-1, defaultBaseDelay)); err != nil {
				return zeroA, zeroB, err
			}
		}
		a, b, err := fn(ctx)
		if err == nil {
			return a, b, nil
		}
		if isTerminal(err) {
			return zeroA, zeroB, err
		}
		lastErr = err
	}
	return zeroA, zeroB, lastErr
}
