// Package retry provides exponential backoff with jitter for transient failures.
package retry

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	tethererr "github.com/mrz1836/tether/pkg/errors"
)

// Sentinel errors for retry logic.
var (
	ErrRetryable = &tethererr.TetherError{
		Code:     "RETRYABLE_ERROR",
		Message:  "retryable error",
		ExitCode: tethererr.ExitGeneral,
	}

	ErrTimeout = &tethererr.TetherError{
		Code:     "TIMEOUT",
		Message:  "operation timed out",
		ExitCode: tethererr.ExitGeneral,
	}
)

// Config configures retry behavior.
type Config struct {
	MaxAttempts int           // Maximum number of attempts (including initial)
	BaseDelay   time.Duration // Initial delay between retries
	MaxDelay    time.Duration // Maximum delay between retries
}

// DefaultConfig returns the default retry configuration.
// 4 attempts total (1 initial + 3 retries) with delays: 500ms, 1s, 2s.
func DefaultConfig() Config {
	return Config{
		MaxAttempts: 4,
		BaseDelay:   500 * time.Millisecond,
		MaxDelay:    2 * time.Second,
	}
}

// Do executes the operation with the default backoff configuration.
func Do[T any](ctx context.Context, operation func() (T, error)) (T, error) {
	return WithConfig(ctx, DefaultConfig(), operation)
}

// WithConfig executes the operation with the specified retry configuration.
func WithConfig[T any](ctx context.Context, cfg Config, operation func() (T, error)) (T, error) {
	var result T
	var err error

	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}

	for attempt := 0; attempt < cfg.MaxAttempts; attempt++ {
		result, err = operation()
		if err == nil {
			return result, nil
		}

		if !IsRetryable(err) {
			return result, err
		}

		// Don't delay after the last attempt
		if attempt < cfg.MaxAttempts-1 {
			timer := time.NewTimer(calculateDelay(attempt, cfg.BaseDelay, cfg.MaxDelay))
			select {
			case <-ctx.Done():
				timer.Stop()
				return result, ctx.Err()
			case <-timer.C:
			}
		}
	}

	return result, fmt.Errorf("operation failed after %d attempts: %w", cfg.MaxAttempts, err)
}

// calculateDelay returns 2^attempt * baseDelay capped at maxDelay, jittered into [delay/2, delay).
func calculateDelay(attempt int, baseDelay, maxDelay time.Duration) time.Duration {
	delay := baseDelay * (1 << attempt)
	if delay > maxDelay || delay <= 0 {
		delay = maxDelay
	}
	half := delay / 2
	if half <= 0 {
		return delay
	}
	return half + rand.N(half) //nolint:gosec // G404: Jitter does not require cryptographic randomness
}

// IsRetryable returns true if the error should trigger a retry.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, ErrRetryable) ||
		errors.Is(err, ErrTimeout) ||
		errors.Is(err, context.DeadlineExceeded)
}

// Retryable wraps an error to mark it as retryable.
func Retryable(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrRetryable, err)
}
