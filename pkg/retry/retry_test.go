package retry

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExponentialSucceedsAfterRetries(t *testing.T) {
	calls := 0
	err := Exponential(func() error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	}, ExponentialConfig{
		InitialInterval: time.Millisecond,
		MaxElapsedTime:  time.Second,
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestExponentialRequiresInterval(t *testing.T) {
	err := Exponential(func() error { return nil }, ExponentialConfig{})
	assert.Error(t, err)
}

func TestExponentialPermanentStops(t *testing.T) {
	calls := 0
	sentinel := errors.New("bad request")
	err := Exponential(func() error {
		calls++
		return Permanent(sentinel)
	}, ExponentialConfig{
		InitialInterval: time.Millisecond,
		MaxElapsedTime:  time.Second,
	})

	require.ErrorIs(t, err, sentinel)
	assert.Equal(t, 1, calls)
}

func TestConstantExhaustsAttempts(t *testing.T) {
	calls := 0
	err := Constant(func() error {
		calls++
		return errors.New("always fails")
	}, time.Millisecond, 3)

	require.Error(t, err)
	assert.Equal(t, 3, calls)
	assert.Contains(t, err.Error(), "failed after 3 attempts")
}

func TestExponentialOnRetryCallback(t *testing.T) {
	retries := 0
	err := Exponential(func() error {
		if retries < 2 {
			return errors.New("transient")
		}
		return nil
	}, ExponentialConfig{
		InitialInterval: time.Millisecond,
		OnRetry: func(err error, next time.Duration) {
			retries++
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, retries)
}
