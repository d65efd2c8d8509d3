package retry_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shotlist/pkg/retry"
)

func fastConfig() retry.Config {
	cfg := retry.DefaultConfig()
	cfg.InitialDelay = time.Millisecond
	cfg.MaxDelay = 5 * time.Millisecond
	cfg.Jitter = false
	return cfg
}

func TestDoSucceedsFirstAttempt(t *testing.T) {
	calls := 0
	err := retry.Do(context.Background(), fastConfig(), func(ctx context.Context) error {
		calls++
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestDoRetriesUntilSuccess(t *testing.T) {
	calls := 0
	err := retry.Do(context.Background(), fastConfig(), func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestDoExhaustsAttempts(t *testing.T) {
	boom := errors.New("always")
	calls := 0
	err := retry.Do(context.Background(), fastConfig(), func(ctx context.Context) error {
		calls++
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 3, calls)
}

func TestDoStopsOnPermanentError(t *testing.T) {
	cfg := fastConfig()
	cfg.RetryIf = func(err error) bool { return err.Error() == "transient" }

	permanent := errors.New("permanent")
	calls := 0
	err := retry.Do(context.Background(), cfg, func(ctx context.Context) error {
		calls++
		return permanent
	})
	assert.ErrorIs(t, err, permanent)
	assert.Equal(t, 1, calls, "a non-retryable error must not be retried")
}

func TestDoHonorsContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	err := retry.Do(ctx, fastConfig(), func(ctx context.Context) error {
		calls++
		return errors.New("transient")
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, calls)
}

func TestDoCancellationDuringBackoff(t *testing.T) {
	cfg := fastConfig()
	cfg.InitialDelay = time.Minute

	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	done := make(chan error, 1)
	go func() {
		done <- retry.Do(ctx, cfg, func(ctx context.Context) error {
			calls++
			return errors.New("transient")
		})
	}()

	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, 1, calls)
	case <-time.After(time.Second):
		t.Fatal("retry did not stop on cancellation")
	}
}

func TestDoRejectsInvalidConfig(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*retry.Config)
	}{
		{name: "zero attempts", mutate: func(c *retry.Config) { c.MaxAttempts = 0 }},
		{name: "zero delay", mutate: func(c *retry.Config) { c.InitialDelay = 0 }},
		{name: "shrinking multiplier", mutate: func(c *retry.Config) { c.Multiplier = 0.5 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := fastConfig()
			tt.mutate(&cfg)
			err := retry.Do(context.Background(), cfg, func(ctx context.Context) error { return nil })
			assert.Error(t, err)
		})
	}
}

func TestDoOnRetryObservesAttempts(t *testing.T) {
	cfg := fastConfig()
	var attempts []int
	cfg.OnRetry = func(attempt int, err error, nextDelay time.Duration) {
		attempts = append(attempts, attempt)
		assert.Positive(t, nextDelay)
	}

	_ = retry.Do(context.Background(), cfg, func(ctx context.Context) error {
		return errors.New("transient")
	})
	// Three attempts, two sleeps between them.
	assert.Equal(t, []int{1, 2}, attempts)
}

func TestDoValue(t *testing.T) {
	calls := 0
	v, err := retry.DoValue(context.Background(), fastConfig(), func(ctx context.Context) (string, error) {
		calls++
		if calls < 2 {
			return "", errors.New("transient")
		}
		return "ok", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", v)

	_, err = retry.DoValue(context.Background(), fastConfig(), func(ctx context.Context) (string, error) {
		return "", errors.New("always")
	})
	assert.Error(t, err)
}
