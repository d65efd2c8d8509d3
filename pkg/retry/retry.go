// Package retry runs an operation with bounded exponential backoff.
//
// Classification lives with the caller: an operation is retried only while
// RetryIf reports its error as transient. The repository layer feeds this
// with the error taxonomy's retryable flag.
package retry

import (
	"context"
	"errors"
	"math/rand"
	"time"
)

// Config defines the retry policy.
type Config struct {
	// MaxAttempts includes the first attempt.
	MaxAttempts int
	// InitialDelay is the delay before the second attempt.
	InitialDelay time.Duration
	// MaxDelay caps the backoff.
	MaxDelay time.Duration
	// Multiplier grows the delay between attempts.
	Multiplier float64
	// Jitter randomizes each delay uniformly in (0, delay] to avoid
	// synchronized retries.
	Jitter bool
	// RetryIf decides whether an error is worth another attempt.
	// A nil RetryIf retries every error.
	RetryIf func(error) bool
	// OnRetry is invoked before each sleep, for logging.
	OnRetry func(attempt int, err error, nextDelay time.Duration)

	rand *rand.Rand
}

// DefaultConfig returns a conservative three-attempt policy.
func DefaultConfig() Config {
	return Config{
		MaxAttempts:  3,
		InitialDelay: 100 * time.Millisecond,
		MaxDelay:     5 * time.Second,
		Multiplier:   2.0,
		Jitter:       true,
	}
}

func (c *Config) normalize() error {
	if c.MaxAttempts <= 0 {
		return errors.New("retry: MaxAttempts must be positive")
	}
	if c.InitialDelay <= 0 {
		return errors.New("retry: InitialDelay must be positive")
	}
	if c.MaxDelay <= 0 {
		c.MaxDelay = 5 * time.Second
	}
	if c.Multiplier < 1.0 {
		return errors.New("retry: Multiplier must be >= 1.0")
	}
	if c.rand == nil {
		c.rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return nil
}

// Do runs op until it succeeds, the policy is exhausted, RetryIf rejects the
// error, or ctx is done. The last error is returned.
func Do(ctx context.Context, cfg Config, op func(ctx context.Context) error) error {
	if err := cfg.normalize(); err != nil {
		return err
	}

	delay := cfg.InitialDelay
	var lastErr error
	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		lastErr = op(ctx)
		if lastErr == nil {
			return nil
		}
		if cfg.RetryIf != nil && !cfg.RetryIf(lastErr) {
			return lastErr
		}
		if attempt == cfg.MaxAttempts {
			break
		}

		next := delay
		if cfg.Jitter {
			next = time.Duration(1 + cfg.rand.Int63n(int64(delay)))
		}
		if cfg.OnRetry != nil {
			cfg.OnRetry(attempt, lastErr, next)
		}
		select {
		case <-time.After(next):
		case <-ctx.Done():
			return ctx.Err()
		}

		delay = time.Duration(float64(delay) * cfg.Multiplier)
		if delay > cfg.MaxDelay {
			delay = cfg.MaxDelay
		}
	}
	return lastErr
}

// DoValue is Do for operations that produce a value.
func DoValue[T any](ctx context.Context, cfg Config, op func(ctx context.Context) (T, error)) (T, error) {
	var out T
	err := Do(ctx, cfg, func(ctx context.Context) error {
		v, err := op(ctx)
		if err != nil {
			return err
		}
		out = v
		return nil
	})
	return out, err
}
