package llm

import (
	"context"
	"time"
)

// DefaultMaxRetries bounds provider request retries.
const DefaultMaxRetries = 3

// DefaultRetryBaseDelay is the first backoff step for provider requests.
const DefaultRetryBaseDelay = 200 * time.Millisecond

// Backoff returns the delay before retry number attempt (0-based),
// doubling each step.
func Backoff(base time.Duration, attempt int) time.Duration {
	return base << attempt
}

// WithRetry runs op up to maxRetries+1 times, sleeping Backoff(base, attempt)
// between attempts. Only retriable errors (transport, 5xx, 429) are retried;
// anything else surfaces immediately. When every attempt fails the result is
// a retry-exhausted error wrapping the last failure.
func WithRetry[T any](ctx context.Context, maxRetries int, base time.Duration, op func() (T, error)) (T, error) {
	var zero T
	var lastErr error

	for attempt := 0; attempt <= maxRetries; attempt++ {
		result, err := op()
		if err == nil {
			return result, nil
		}
		if !IsRetriable(err) {
			return zero, err
		}
		lastErr = err

		if attempt < maxRetries {
			select {
			case <-time.After(Backoff(base, attempt)):
			case <-ctx.Done():
				return zero, NewTransportError(ctx.Err())
			}
		}
	}

	return zero, NewRetryExhaustedError(maxRetries+1, lastErr)
}
