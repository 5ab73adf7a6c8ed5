package llm

import (
	"context"
	"math"
	"math/rand"
	"time"
)

// RetryPolicy configures bounded retry with exponential backoff and jitter.
type RetryPolicy struct {
	MaxAttempts  int     // total attempts, including the first
	BaseDelay    float64 // initial delay in seconds
	MaxDelay     float64 // delay cap in seconds
	Multiplier   float64 // exponential backoff factor
	JitterFactor float64 // 0.5 means each delay varies by up to +/-50%
	OnRetry      func(err error, attempt int, delay time.Duration)
}

// DefaultRetryPolicy returns the default per-step retry policy.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:  3,
		BaseDelay:    0.3,
		MaxDelay:     5.0,
		Multiplier:   2.0,
		JitterFactor: 0.5,
	}
}

// Delay calculates the backoff delay after attempt n (0-indexed).
func (p RetryPolicy) Delay(attempt int) time.Duration {
	delay := math.Min(p.BaseDelay*math.Pow(p.Multiplier, float64(attempt)), p.MaxDelay)
	if p.JitterFactor > 0 {
		delay *= 1 + p.JitterFactor*(2*rand.Float64()-1)
	}
	return time.Duration(delay * float64(time.Second))
}

// Retry executes fn up to MaxAttempts times. Only errors classified as
// transient by IsRetryable are retried; anything else propagates immediately.
// The last transient error is returned once attempts are exhausted.
func Retry[T any](ctx context.Context, policy RetryPolicy, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	var err error

	attempts := policy.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	for attempt := 0; attempt < attempts; attempt++ {
		var result T
		result, err = fn(ctx)
		if err == nil {
			return result, nil
		}
		if !IsRetryable(err) {
			return zero, err
		}
		if attempt == attempts-1 {
			break
		}

		delay := policy.Delay(attempt)
		if policy.OnRetry != nil {
			policy.OnRetry(err, attempt+1, delay)
		}

		select {
		case <-ctx.Done():
			return zero, &AbortError{ClientError: ClientError{Message: "request cancelled during retry", Cause: ctx.Err()}}
		case <-time.After(delay):
		}
	}

	return zero, err
}
