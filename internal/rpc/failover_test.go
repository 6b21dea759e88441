package rpc

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func brokenServer(t *testing.T, hits *atomic.Int64) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		http.Error(w, "boom", http.StatusBadGateway)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestFailoverRotatesToHealthyProvider(t *testing.T) {
	var brokenHits atomic.Int64
	broken := brokenServer(t, &brokenHits)
	healthy := rpcServer(t, func(req RPCRequest) (any, *RPCError) {
		return "0x64", nil
	})

	f, err := NewFailover([]*EVMClient{
		NewEVMClient(broken.URL, time.Second, nil),
		NewEVMClient(healthy.URL, time.Second, nil),
	}, DefaultFailoverConfig())
	require.NoError(t, err)

	var latest uint64
	err = f.Execute(context.Background(), func(c *EVMClient) error {
		n, err := c.BlockNumber(context.Background())
		latest = n
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, uint64(100), latest)
	assert.Equal(t, int64(1), brokenHits.Load())
}

func TestFailoverAllProvidersFail(t *testing.T) {
	var hits atomic.Int64
	broken := brokenServer(t, &hits)

	f, err := NewFailover([]*EVMClient{
		NewEVMClient(broken.URL, time.Second, nil),
	}, DefaultFailoverConfig())
	require.NoError(t, err)

	err = f.Execute(context.Background(), func(c *EVMClient) error {
		_, err := c.BlockNumber(context.Background())
		return err
	})
	assert.ErrorContains(t, err, "all providers failed")
}

func TestFailoverBlacklistsAfterThreshold(t *testing.T) {
	var hits atomic.Int64
	broken := brokenServer(t, &hits)
	healthy := rpcServer(t, func(req RPCRequest) (any, *RPCError) {
		return "0x1", nil
	})

	cfg := DefaultFailoverConfig()
	cfg.ErrorThreshold = 2

	f, err := NewFailover([]*EVMClient{
		NewEVMClient(broken.URL, time.Second, nil),
		NewEVMClient(healthy.URL, time.Second, nil),
	}, cfg)
	require.NoError(t, err)

	call := func() error {
		return f.Execute(context.Background(), func(c *EVMClient) error {
			_, err := c.BlockNumber(context.Background())
			return err
		})
	}

	// first call fails over from broken; broken error count = 1
	require.NoError(t, call())
	// pick now prefers healthy (current rotated), broken stays at 1 error
	require.NoError(t, call())

	states := f.States()
	assert.Equal(t, StateHealthy, states[healthy.URL])

	// force the broken provider to accumulate errors up to the threshold
	f.mu.Lock()
	var brokenProvider *provider
	for _, p := range f.providers {
		if p.client.URL() == broken.URL {
			brokenProvider = p
		}
	}
	f.mu.Unlock()
	f.reportFailure(brokenProvider)

	states = f.States()
	assert.Equal(t, StateBlacklisted, states[broken.URL])
}

func TestFailoverRequiresProviders(t *testing.T) {
	_, err := NewFailover(nil, DefaultFailoverConfig())
	assert.ErrorIs(t, err, ErrNoProviders)
}

func TestExecuteWithRetryStopsOnContextCancel(t *testing.T) {
	var hits atomic.Int64
	broken := brokenServer(t, &hits)

	f, err := NewFailover([]*EVMClient{
		NewEVMClient(broken.URL, time.Second, nil),
	}, FailoverConfig{RetryInterval: 10 * time.Millisecond, MaxElapsedTime: 5 * time.Second})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err = f.ExecuteWithRetry(ctx, func(c *EVMClient) error {
		_, err := c.BlockNumber(ctx)
		return err
	})
	assert.ErrorIs(t, err, context.Canceled)
}
