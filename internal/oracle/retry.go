package oracle

import (
	"context"
	"time"
)

// RetryPolicy is a declarative retry: at most MaxAttempts calls with a fixed
// Delay between them. It replaces the nested try/catch retry of earlier
// engine generations and is testable on its own.
type RetryPolicy struct {
	MaxAttempts int
	Delay       time.Duration
}

// DefaultRetryPolicy is one retry after a fixed delay: the oracle is rate
// limited, so hammering it on failure only makes things worse.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 2, Delay: 2 * time.Second}
}

// Do runs fn up to MaxAttempts times, sleeping Delay between attempts.
// It returns nil on the first success, the last error on exhaustion, and the
// context error immediately if the context is cancelled while waiting.
func (p RetryPolicy) Do(ctx context.Context, fn func() error) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for i := 0; i < attempts; i++ {
		if i > 0 && p.Delay > 0 {
			timer := time.NewTimer(p.Delay)
			select {
			case <-timer.C:
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			}
		}

		lastErr = fn()
		if lastErr == nil {
			return nil
		}
	}
	return lastErr
}
