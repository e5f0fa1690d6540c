package source

import (
	"context"
	"errors"
	"time"
)

// transientError marks a fetch failure worth retrying (network timeout,
// 5xx response). Anything not wrapped in it aborts the retry loop.
type transientError struct{ err error }

func (e *transientError) Error() string { return e.err.Error() }
func (e *transientError) Unwrap() error { return e.err }

// Transient wraps err so retryFetch will attempt the operation again.
func Transient(err error) error { return &transientError{err: err} }

// retryFetch runs fn until it succeeds, a non-transient error occurs, the
// attempt budget is spent, or ctx ends. The delay between attempts
// doubles each time.
func retryFetch(ctx context.Context, attempts int, delay time.Duration, fn func() error) error {
	var lastErr error
	for attempt := 0; attempt < max(attempts, 1); attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
			delay *= 2
		}

		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		if !errors.As(lastErr, new(*transientError)) {
			return lastErr
		}
	}
	return lastErr
}
