package querycache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"liquidityTx/internal/model"
)

type fakeSource struct {
	mu       sync.Mutex
	pools    []model.PoolSnapshot
	balances map[string]string
	err      error

	poolCalls    atomic.Int32
	balanceCalls atomic.Int32
	release      chan struct{}
	entered      chan struct{}

	poolRelease     chan struct{}
	poolEntered     chan struct{}
	cancelledFetches atomic.Int32
}

func (f *fakeSource) FetchPools(ctx context.Context) ([]model.PoolSnapshot, error) {
	f.poolCalls.Add(1)
	if f.entered != nil {
		f.entered <- struct{}{}
	}
	if f.release != nil {
		<-f.release
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return append([]model.PoolSnapshot(nil), f.pools...), nil
}

func (f *fakeSource) FetchPool(ctx context.Context, id uint64) (model.PoolSnapshot, bool, error) {
	if f.poolEntered != nil {
		f.poolEntered <- struct{}{}
	}
	if f.poolRelease != nil {
		<-f.poolRelease
	}
	if ctx.Err() != nil {
		f.cancelledFetches.Add(1)
		return model.PoolSnapshot{}, false, ctx.Err()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, pool := range f.pools {
		if pool.ID == id {
			return pool, true, nil
		}
	}
	return model.PoolSnapshot{}, false, nil
}

func (f *fakeSource) FetchBalance(ctx context.Context, address, denom string) (model.Balance, error) {
	f.balanceCalls.Add(1)
	f.mu.Lock()
	defer f.mu.Unlock()
	return model.Balance{Address: address, Denom: denom, Amount: f.balances[denom]}, nil
}

func (f *fakeSource) setPools(pools ...model.PoolSnapshot) {
	f.mu.Lock()
	f.pools = pools
	f.mu.Unlock()
}

func TestWaitFreshResponseReplacesSnapshot(t *testing.T) {
	source := &fakeSource{}
	source.setPools(model.PoolSnapshot{ID: 1}, model.PoolSnapshot{ID: 2})
	cache := New(source, nil)

	require.NoError(t, cache.WaitFreshResponse(context.Background()))
	_, ok := cache.Pool(2)
	require.True(t, ok)

	source.setPools(model.PoolSnapshot{ID: 3})
	require.NoError(t, cache.WaitFreshResponse(context.Background()))
	_, ok = cache.Pool(2)
	require.False(t, ok, "pool 2 should be gone after a full fetch")
	_, ok = cache.Pool(3)
	require.True(t, ok)
	require.False(t, cache.FetchedAt().IsZero())
}

func TestFailedFetchKeepsSnapshot(t *testing.T) {
	source := &fakeSource{}
	source.setPools(model.PoolSnapshot{ID: 1, TotalShares: "10"})
	cache := New(source, nil)
	require.NoError(t, cache.WaitFreshResponse(context.Background()))

	source.err = errors.New("node unavailable")
	require.Error(t, cache.WaitFreshResponse(context.Background()))

	pool, ok := cache.Pool(1)
	require.True(t, ok)
	require.Equal(t, "10", pool.TotalShares)
}

func TestConcurrentFetchesShareOneCall(t *testing.T) {
	source := &fakeSource{release: make(chan struct{}), entered: make(chan struct{}, 1)}
	source.setPools(model.PoolSnapshot{ID: 1})
	cache := New(source, nil)

	first := make(chan error, 1)
	go func() { first <- cache.WaitFreshResponse(context.Background()) }()
	<-source.entered

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	// A caller that gives up does not disturb the in-flight fetch.
	require.ErrorIs(t, cache.WaitFreshResponse(ctx), context.Canceled)

	close(source.release)
	require.NoError(t, <-first)
	require.Equal(t, int32(1), source.poolCalls.Load())
}

func TestRefreshPool(t *testing.T) {
	source := &fakeSource{}
	source.setPools(model.PoolSnapshot{ID: 1, TotalShares: "10"})
	cache := New(source, nil)
	require.NoError(t, cache.WaitFreshResponse(context.Background()))

	source.setPools(model.PoolSnapshot{ID: 1, TotalShares: "20"})
	require.NoError(t, cache.RefreshPool(context.Background(), 1))
	pool, _ := cache.Pool(1)
	require.Equal(t, "20", pool.TotalShares)

	source.setPools()
	require.NoError(t, cache.RefreshPool(context.Background(), 1))
	_, ok := cache.Pool(1)
	require.False(t, ok)
}

func TestRefreshPoolOutlivesCancelledCaller(t *testing.T) {
	source := &fakeSource{poolRelease: make(chan struct{}), poolEntered: make(chan struct{}, 2)}
	source.setPools(model.PoolSnapshot{ID: 1, TotalShares: "10"})
	cache := New(source, nil)

	ctx, cancel := context.WithCancel(context.Background())
	first := make(chan error, 1)
	go func() { first <- cache.RefreshPool(ctx, 1) }()
	<-source.poolEntered

	cancel()
	require.ErrorIs(t, <-first, context.Canceled)

	close(source.poolRelease)
	require.NoError(t, cache.RefreshPool(context.Background(), 1))
	require.Equal(t, int32(0), source.cancelledFetches.Load())
	pool, ok := cache.Pool(1)
	require.True(t, ok)
	require.Equal(t, "10", pool.TotalShares)
}

func TestRefreshBalances(t *testing.T) {
	source := &fakeSource{balances: map[string]string{"uatom": "5", "uosmo": "7"}}
	cache := New(source, nil)

	balance, ok := cache.Balance("osmo1", "uatom")
	require.False(t, ok)
	require.Equal(t, "0", balance.Amount)

	require.NoError(t, cache.RefreshBalances(context.Background(), "osmo1", []string{"uatom", "uosmo"}))
	require.Equal(t, int32(2), source.balanceCalls.Load())

	balance, ok = cache.Balance("osmo1", "uosmo")
	require.True(t, ok)
	require.Equal(t, "7", balance.Amount)
}
