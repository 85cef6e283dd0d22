package smbsession

import (
	"context"
	"time"
)

// RetryPolicy defines retry behavior for ReadDir.
type RetryPolicy struct {
	MaxAttempts  int           // Maximum number of attempts (default: 3)
	InitialDelay time.Duration // Initial delay between retries (default: 100ms)
	MaxDelay     time.Duration // Maximum delay between retries (default: 5s)
	Multiplier   float64       // Backoff multiplier (default: 2.0)
}

// defaultRetryPolicy is the default retry policy.
var defaultRetryPolicy = &RetryPolicy{
	MaxAttempts:  3,
	InitialDelay: 100 * time.Millisecond,
	MaxDelay:     5 * time.Second,
	Multiplier:   2.0,
}

// ReadDir lists dir within share and returns all entries at once.
//
// Unlike Ls, a transient failure is retried: the session is rebuilt and the
// listing restarts from scratch, so no partial listing is ever returned.
// Permanent failures such as STATUS_ACCESS_DENIED are returned immediately.
func (s *Session) ReadDir(ctx context.Context, share, dir string) ([]Entry, error) {
	var entries []Entry
	err := s.withRetry(ctx, func() error {
		entries = entries[:0]
		for entry, err := range s.Ls(ctx, share, dir) {
			if err != nil {
				return err
			}
			entries = append(entries, entry)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// withRetry executes an operation, rebuilding the session between attempts
// with exponential backoff.
func (s *Session) withRetry(ctx context.Context, operation func() error) error {
	policy := s.retry
	if policy == nil {
		policy = defaultRetryPolicy
	}

	// If MaxAttempts is 0 or 1, don't retry
	if policy.MaxAttempts <= 1 {
		return operation()
	}

	var lastErr error
	delay := policy.InitialDelay

	for attempt := 1; attempt <= policy.MaxAttempts; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		err := operation()
		if err == nil {
			return nil
		}

		lastErr = err

		if !isRetryable(err) {
			return err
		}

		if attempt == policy.MaxAttempts {
			break
		}

		s.log.Debugf("Operation failed (attempt %d/%d), retrying in %v: %v",
			attempt, policy.MaxAttempts, delay, err)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}

		s.Rebuild(ctx, err.Error())

		delay = time.Duration(float64(delay) * policy.Multiplier)
		if delay > policy.MaxDelay {
			delay = policy.MaxDelay
		}
	}

	return lastErr
}
