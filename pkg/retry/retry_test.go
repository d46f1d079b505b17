package retry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	errs "tokenrotor/pkg/errors"
	"tokenrotor/pkg/logger"
)

func testConfig(maxAttempts int) *Config {
	return &Config{
		MaxAttempts: maxAttempts,
		Backoff:     &ConstantBackoff{Delay: 0},
		RetryIf:     DefaultRetryIf,
		Context:     context.Background(),
		Logger:      logger.NewNopLogger(),
	}
}

func TestDoSucceedsFirstTry(t *testing.T) {
	calls := 0
	err := Do(func() error {
		calls++
		return nil
	}, testConfig(3))

	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestDoRetriesUntilSuccess(t *testing.T) {
	calls := 0
	err := Do(func() error {
		calls++
		if calls < 3 {
			return errs.New(errs.ErrorTypeCommit, "transient")
		}
		return nil
	}, testConfig(5))

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestDoStopsAfterMaxAttempts(t *testing.T) {
	calls := 0
	err := Do(func() error {
		calls++
		return errs.New(errs.ErrorTypeCommit, "persistent")
	}, testConfig(3))

	require.Error(t, err)
	assert.Equal(t, 3, calls)
}

func TestDoDoesNotRetryNonRetryableErrors(t *testing.T) {
	calls := 0
	err := Do(func() error {
		calls++
		return errs.New(errs.ErrorTypeConfig, "bad config")
	}, testConfig(3))

	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestDoRespectsContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	cfg := testConfig(3)
	cfg.Context = ctx
	cfg.Backoff = &ConstantBackoff{Delay: time.Second}

	err := Do(func() error {
		return errs.New(errs.ErrorTypeCommit, "transient")
	}, cfg)

	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDoCallsOnRetry(t *testing.T) {
	var attempts []int
	cfg := testConfig(3)
	cfg.OnRetry = func(attempt int, err error, delay time.Duration) {
		attempts = append(attempts, attempt)
	}

	Do(func() error {
		return errs.New(errs.ErrorTypeCommit, "transient")
	}, cfg)

	assert.Equal(t, []int{1, 2, 3}, attempts)
}

func TestExponentialBackoffGrows(t *testing.T) {
	eb := &ExponentialBackoff{
		BaseDelay:  time.Second,
		MaxDelay:   time.Minute,
		Multiplier: 2.0,
	}

	assert.Equal(t, time.Duration(0), eb.NextDelay(0))
	assert.Equal(t, time.Second, eb.NextDelay(1))
	assert.Equal(t, 2*time.Second, eb.NextDelay(2))
	assert.Equal(t, 4*time.Second, eb.NextDelay(3))
	assert.Equal(t, time.Minute, eb.NextDelay(20), "delay must cap at MaxDelay")
}

func TestWaitReturnsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := Wait(ctx, time.Minute)
	assert.ErrorIs(t, err, context.Canceled)
}
