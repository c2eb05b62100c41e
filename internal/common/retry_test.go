package common

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/faceless-truth/mcs-platform/internal/service"
)

func fastRetryOpts(attempts int) service.RetryOptions {
	return service.RetryOptions{
		MaxAttempts:  attempts,
		InitialDelay: time.Millisecond,
		MaxDelay:     5 * time.Millisecond,
		Multiplier:   2.0,
	}
}

func TestWithRetrySucceedsFirstAttempt(t *testing.T) {
	calls := 0
	err := WithRetry(context.Background(), func() error {
		calls++
		return nil
	}, fastRetryOpts(3))

	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestWithRetryEventualSuccess(t *testing.T) {
	calls := 0
	err := WithRetry(context.Background(), func() error {
		calls++
		if calls < 3 {
			return &RetryableError{Err: errors.New("transient"), Retryable: true}
		}
		return nil
	}, fastRetryOpts(5))

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestWithRetryExhaustsAttempts(t *testing.T) {
	calls := 0
	err := WithRetry(context.Background(), func() error {
		calls++
		return &RetryableError{Err: errors.New("still down"), Retryable: true}
	}, fastRetryOpts(3))

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMaxRetries)
	assert.Equal(t, 3, calls)
}

func TestWithRetryStopsOnNonRetryable(t *testing.T) {
	calls := 0
	cause := &RetryableError{Err: errors.New("bad request"), Retryable: false}
	err := WithRetry(context.Background(), func() error {
		calls++
		return cause
	}, fastRetryOpts(5))

	require.Error(t, err)
	assert.Equal(t, 1, calls, "non-retryable errors must not be retried")

	var retryable *RetryableError
	assert.ErrorAs(t, err, &retryable)
}

func TestWithRetryRespectsContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	calls := 0
	err := WithRetry(ctx, func() error {
		calls++
		cancel()
		return &RetryableError{Err: errors.New("transient"), Retryable: true}
	}, service.RetryOptions{
		MaxAttempts:  5,
		InitialDelay: time.Hour, // never reached once the context is gone
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}
