// Package retry implements the bounded fixed-backoff policy used by the
// external data fetchers. The attempt count and interval come from
// configuration; exhaustion returns the last error so callers can degrade to
// "data unavailable" instead of raising.
package retry

import (
	"context"
	"fmt"
	"time"
)

// Policy bounds a retried operation.
type Policy struct {
	// MaxAttempts is the total number of tries, including the first.
	MaxAttempts int
	// Interval is the fixed wait between attempts.
	Interval time.Duration
}

// DefaultPolicy matches the historical fetch behavior: a handful of attempts
// 100ms apart.
func DefaultPolicy() Policy {
	return Policy{MaxAttempts: 3, Interval: 100 * time.Millisecond}
}

// Do runs fn until it succeeds, the policy is exhausted, or ctx is done.
func Do(ctx context.Context, p Policy, fn func(ctx context.Context) error) error {
	if p.MaxAttempts < 1 {
		p.MaxAttempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}
		if attempt == p.MaxAttempts {
			break
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(p.Interval):
		}
	}

	return fmt.Errorf("after %d attempts: %w", p.MaxAttempts, lastErr)
}
