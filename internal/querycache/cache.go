// Package querycache keeps the latest pool and balance snapshots fetched
// from a Source. Snapshots are replaced, never edited in place.
package querycache

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"liquidityTx/internal/model"
)

const balanceFetchLimit = 4

// Source loads chain state.
type Source interface {
	FetchPools(ctx context.Context) ([]model.PoolSnapshot, error)
	FetchPool(ctx context.Context, id uint64) (model.PoolSnapshot, bool, error)
	FetchBalance(ctx context.Context, address, denom string) (model.Balance, error)
}

type balanceKey struct {
	address string
	denom   string
}

// Cache is safe for concurrent use.
type Cache struct {
	source Source
	logger *zap.Logger
	group  singleflight.Group

	mu        sync.RWMutex
	pools     map[uint64]model.PoolSnapshot
	balances  map[balanceKey]model.Balance
	fetchedAt time.Time
}

func New(source Source, logger *zap.Logger) *Cache {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Cache{
		source:   source,
		logger:   logger,
		pools:    make(map[uint64]model.PoolSnapshot),
		balances: make(map[balanceKey]model.Balance),
	}
}

// Pool returns the cached snapshot of a pool.
func (c *Cache) Pool(id uint64) (model.PoolSnapshot, bool) {
	c.mu.RLock()
	pool, ok := c.pools[id]
	c.mu.RUnlock()
	return pool, ok
}

// FetchedAt is the time of the last successful full fetch.
func (c *Cache) FetchedAt() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.fetchedAt
}

// WaitFreshResponse fetches the pool list and returns once it is installed.
// Concurrent callers share one fetch. A failed fetch keeps the previous
// snapshot.
func (c *Cache) WaitFreshResponse(ctx context.Context) error {
	ch := c.group.DoChan("pools", func() (interface{}, error) {
		pools, err := c.source.FetchPools(context.WithoutCancel(ctx))
		if err != nil {
			return nil, fmt.Errorf("fetch pools: %w", err)
		}
		next := make(map[uint64]model.PoolSnapshot, len(pools))
		for _, pool := range pools {
			next[pool.ID] = pool
		}
		c.mu.Lock()
		c.pools = next
		c.fetchedAt = time.Now()
		c.mu.Unlock()
		c.logger.Debug("pools refreshed", zap.Int("pools", len(next)))
		return nil, nil
	})

	select {
	case <-ctx.Done():
		return ctx.Err()
	case res := <-ch:
		return res.Err
	}
}

// RefreshPool refetches one pool. A pool that no longer exists is dropped.
// Like WaitFreshResponse, the shared fetch outlives a cancelled caller.
func (c *Cache) RefreshPool(ctx context.Context, id uint64) error {
	ch := c.group.DoChan("pool/"+strconv.FormatUint(id, 10), func() (interface{}, error) {
		pool, ok, err := c.source.FetchPool(context.WithoutCancel(ctx), id)
		if err != nil {
			return nil, fmt.Errorf("fetch pool %d: %w", id, err)
		}
		c.mu.Lock()
		if ok {
			c.pools[id] = pool
		} else {
			delete(c.pools, id)
		}
		c.mu.Unlock()
		return nil, nil
	})

	select {
	case <-ctx.Done():
		return ctx.Err()
	case res := <-ch:
		return res.Err
	}
}

// Balance returns the cached balance, or a zero balance when none was
// fetched yet.
func (c *Cache) Balance(address, denom string) (model.Balance, bool) {
	c.mu.RLock()
	balance, ok := c.balances[balanceKey{address: address, denom: denom}]
	c.mu.RUnlock()
	if !ok {
		return model.Balance{Address: address, Denom: denom, Amount: "0"}, false
	}
	return balance, true
}

// FetchBalance forces a refetch of one balance.
func (c *Cache) FetchBalance(ctx context.Context, address, denom string) (model.Balance, error) {
	balance, err := c.source.FetchBalance(ctx, address, denom)
	if err != nil {
		return model.Balance{}, fmt.Errorf("fetch balance %s/%s: %w", address, denom, err)
	}
	c.mu.Lock()
	c.balances[balanceKey{address: address, denom: denom}] = balance
	c.mu.Unlock()
	return balance, nil
}

// RefreshBalances refetches the listed balances of address in parallel.
func (c *Cache) RefreshBalances(ctx context.Context, address string, denoms []string) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(balanceFetchLimit)
	for _, denom := range denoms {
		denom := denom
		g.Go(func() error {
			_, err := c.FetchBalance(gctx, address, denom)
			return err
		})
	}
	return g.Wait()
}
