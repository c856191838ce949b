package indexing

import (
	"context"
	"time"
)

// RetryPolicy computes exponential backoff delays for indexing attempts.
// DelayFor returns nil once the attempt budget is spent.
type RetryPolicy struct {
	MaxRetries   int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}

// DefaultRetryPolicy matches the pipeline defaults: three retries starting
// at 100ms and doubling, capped at one second.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries:   3,
		InitialDelay: 100 * time.Millisecond,
		MaxDelay:     time.Second,
		Multiplier:   2.0,
	}
}

// DelayFor returns the delay before the given retry attempt, zero-based.
// Attempts at or past MaxRetries yield nil.
func (p RetryPolicy) DelayFor(attempt int) *time.Duration {
	if attempt < 0 || attempt >= p.MaxRetries {
		return nil
	}
	delay := p.InitialDelay
	for i := 0; i < attempt; i++ {
		delay = time.Duration(float64(delay) * p.Multiplier)
		if delay >= p.MaxDelay {
			delay = p.MaxDelay
			break
		}
	}
	if delay > p.MaxDelay {
		delay = p.MaxDelay
	}
	return &delay
}

// WithRetry runs op until success or the policy is exhausted, sleeping the
// policy delay between attempts. The last error is returned verbatim.
func (p RetryPolicy) WithRetry(ctx context.Context, op func() error) error {
	var lastErr error
	for attempt := 0; ; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		delay := p.DelayFor(attempt)
		if delay == nil {
			return lastErr
		}
		select {
		case <-time.After(*delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
