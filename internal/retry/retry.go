// Package retry reruns an operation after transient failures, waiting
// exponentially longer between attempts.
//
// The CIMC management CLI fails transiently right after a controller
// boots, so configuration sequences against it run under this helper.
// Errors wrapped with [Fatal] abort the loop immediately.
package retry

import (
	"context"
	"errors"
	"fmt"
	"time"
)

type settings struct {
	maxRetries   int
	initialDelay time.Duration
	maxDelay     time.Duration
}

// Option adjusts one retry loop.
type Option func(*settings)

// WithMaxRetries sets how many times the operation reruns after the
// first attempt.
func WithMaxRetries(n int) Option {
	return func(s *settings) { s.maxRetries = n }
}

// WithInitialDelay sets the wait before the first rerun.
func WithInitialDelay(d time.Duration) Option {
	return func(s *settings) { s.initialDelay = d }
}

// WithMaxDelay caps the growing wait between reruns.
func WithMaxDelay(d time.Duration) Option {
	return func(s *settings) { s.maxDelay = d }
}

// WithExponentialBackoff runs operation until it succeeds, the retry
// budget is spent, the context ends, or the operation reports a fatal
// error. The wait doubles after every attempt, up to the cap.
func WithExponentialBackoff(ctx context.Context, operation func() error, opts ...Option) error {
	s := settings{
		maxRetries:   5,
		initialDelay: time.Second,
		maxDelay:     30 * time.Second,
	}
	for _, opt := range opts {
		opt(&s)
	}

	delay := s.initialDelay
	var lastErr error
	for attempt := 0; attempt <= s.maxRetries; attempt++ {
		lastErr = operation()
		if lastErr == nil {
			return nil
		}
		if IsFatal(lastErr) {
			return lastErr
		}
		if attempt == s.maxRetries {
			break
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("canceled after %d attempts: %w", attempt+1, ctx.Err())
		case <-time.After(delay):
			delay *= 2
			if delay > s.maxDelay {
				delay = s.maxDelay
			}
		}
	}
	return fmt.Errorf("gave up after %d attempts: %w", s.maxRetries+1, lastErr)
}

// FatalError marks a failure the retry loop cannot fix, such as a
// closed stream or a rejected credential.
type FatalError struct {
	Err error
}

func (e *FatalError) Error() string { return e.Err.Error() }

func (e *FatalError) Unwrap() error { return e.Err }

// Fatal wraps err so the retry loop stops on it. A nil err stays nil.
func Fatal(err error) error {
	if err == nil {
		return nil
	}
	return &FatalError{Err: err}
}

// IsFatal reports whether err carries a FatalError anywhere in its
// chain.
func IsFatal(err error) bool {
	var fatalErr *FatalError
	return errors.As(err, &fatalErr)
}
