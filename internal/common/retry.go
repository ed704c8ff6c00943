package common

import (
	"context"
	"fmt"
	"time"
)

// RetryConfig bounds a retried operation.
type RetryConfig struct {
	MaxAttempts int
	Backoff     time.Duration
}

// RetryError is returned when all attempts of a retried operation failed.
// It carries the attempt count and wraps the last failure.
type RetryError struct {
	Attempts int
	Last     error
}

func (e *RetryError) Error() string {
	return fmt.Sprintf("failed after %d attempts: %v", e.Attempts, e.Last)
}

func (e *RetryError) Unwrap() error {
	return e.Last
}

// Retry runs op until it succeeds or MaxAttempts is exhausted, pausing Backoff
// between attempts. op receives the 1-based attempt number so callers can
// reset state (e.g. reload a page) before a re-attempt. Context cancellation
// aborts the wait between attempts.
func Retry(ctx context.Context, cfg RetryConfig, op func(ctx context.Context, attempt int) error) error {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return &RetryError{Attempts: attempt - 1, Last: err}
		}

		lastErr = op(ctx, attempt)
		if lastErr == nil {
			return nil
		}

		if attempt < cfg.MaxAttempts && cfg.Backoff > 0 {
			timer := time.NewTimer(cfg.Backoff)
			select {
			case <-ctx.Done():
				timer.Stop()
				return &RetryError{Attempts: attempt, Last: lastErr}
			case <-timer.C:
			}
		}
	}

	return &RetryError{Attempts: cfg.MaxAttempts, Last: lastErr}
}
