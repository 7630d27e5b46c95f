package reasoning

import (
	"context"
	"log"
	"time"
)

// RetryPolicy bounds retries around reasoning calls with exponential backoff.
// The zero value disables retries entirely.
type RetryPolicy struct {
	// MaxAttempts is the total number of attempts, including the first.
	MaxAttempts int
	// BaseDelay is the delay after the first failure, doubled per attempt.
	BaseDelay time.Duration
}

// DefaultRetryPolicy matches the service's historical behavior: three
// attempts with one-second initial backoff.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 3, BaseDelay: time.Second}
}

// Do runs fn until it succeeds, the attempts are exhausted, or the context
// is cancelled. The last error is returned when all attempts fail.
func (p RetryPolicy) Do(ctx context.Context, op string, fn func() error) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	delay := p.BaseDelay
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		lastErr = fn()
		if lastErr == nil {
			return nil
		}

		if attempt == attempts {
			break
		}

		log.Printf("[reasoning] %s attempt %d/%d failed: %v, retrying in %v", op, attempt, attempts, lastErr, delay)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
	}

	return lastErr
}
