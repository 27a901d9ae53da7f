// Package retry provides a reusable retry policy applied uniformly to
// provider calls: a bounded attempt budget, a pluggable backoff function, and
// a retryable-error predicate.
package retry

import (
	"context"
	"time"
)

// BackoffFunc computes the delay after attempt n (1-indexed) fails.
type BackoffFunc func(attempt int) time.Duration

// None performs retries without delay.
func None() BackoffFunc {
	return func(int) time.Duration { return 0 }
}

// Constant always waits the same interval between attempts.
func Constant(interval time.Duration) BackoffFunc {
	return func(int) time.Duration { return interval }
}

// Linear waits base * attempt, so delays grow linearly with the attempt
// number.
func Linear(base time.Duration) BackoffFunc {
	return func(attempt int) time.Duration { return base * time.Duration(attempt) }
}

// Policy describes how a call site retries a fallible operation.
type Policy struct {
	// MaxAttempts is the total attempt budget, including the first call.
	// Values below 1 behave as 1.
	MaxAttempts int
	// Backoff computes the wait between attempts. Nil means no delay.
	Backoff BackoffFunc
	// Retryable decides whether an error is worth another attempt. Nil
	// retries every error until the budget is exhausted.
	Retryable func(error) bool
	// Sleep waits for the backoff delay. Nil uses a context-aware timer;
	// tests inject a no-op.
	Sleep func(ctx context.Context, d time.Duration) error
}

// Do runs fn under the policy and returns the last error once the budget is
// exhausted or a non-retryable error occurs.
func (p Policy) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	sleep := p.Sleep
	if sleep == nil {
		sleep = sleepContext
	}

	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err = ctx.Err(); err != nil {
			return err
		}
		if err = fn(ctx); err == nil {
			return nil
		}
		if p.Retryable != nil && !p.Retryable(err) {
			return err
		}
		if attempt == attempts {
			break
		}
		if p.Backoff != nil {
			if sleepErr := sleep(ctx, p.Backoff(attempt)); sleepErr != nil {
				return sleepErr
			}
		}
	}
	return err
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
