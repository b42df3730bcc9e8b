package engine

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// RetryConfig controls exponential backoff for transient retrieval failures.
type RetryConfig struct {
	MaxRetries      uint64
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// DefaultRetryConfig returns the retry policy used when none is configured.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:      2,
		InitialInterval: 250 * time.Millisecond,
		MaxInterval:     2 * time.Second,
	}
}

// withRetry runs op until it succeeds, returns an error that shouldRetry
// rejects, exhausts cfg.MaxRetries or ctx is done. The last error from op
// is returned unwrapped.
func withRetry(ctx context.Context, cfg RetryConfig, op func() error, shouldRetry func(error) bool) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = cfg.InitialInterval
	b.MaxInterval = cfg.MaxInterval
	b.MaxElapsedTime = 0

	bo := backoff.WithContext(backoff.WithMaxRetries(b, cfg.MaxRetries), ctx)

	var lastErr error
	err := backoff.Retry(func() error {
		err := op()
		if err == nil {
			return nil
		}
		lastErr = err
		if !shouldRetry(err) {
			return backoff.Permanent(err)
		}
		return err
	}, bo)
	if err == nil {
		return nil
	}

	var perm *backoff.PermanentError
	if errors.As(err, &perm) {
		return perm.Err
	}
	if lastErr == nil {
		return err
	}
	if ctxErr := ctx.Err(); ctxErr != nil && !errors.Is(lastErr, ctxErr) {
		return errors.Join(ctxErr, lastErr)
	}
	return lastErr
}

// isRetryable treats transport failures and 5xx/429 responses as transient.
// Context expiry, oversized bodies and other typed responses are permanent.
func isRetryable(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) ||
		errors.Is(err, ErrBodyTooLarge) {
		return false
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se.Retryable()
	}
	return true
}
