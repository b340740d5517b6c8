package storage

import (
	"context"
	"encoding/json"
	"fmt"

	"liquidityTx/internal/model"
)

// JsonlSource serves pool and balance snapshots from JSONL files, one pool
// or balance per line. Files are reread on every fetch.
type JsonlSource struct {
	poolsPath    string
	balancesPath string
}

func NewJsonlSource(poolsPath, balancesPath string) *JsonlSource {
	return &JsonlSource{poolsPath: poolsPath, balancesPath: balancesPath}
}

func (s *JsonlSource) FetchPools(ctx context.Context) ([]model.PoolSnapshot, error) {
	if s.poolsPath == "" {
		return nil, fmt.Errorf("pools file is required")
	}
	var pools []model.PoolSnapshot
	err := readLines(s.poolsPath, func(line []byte) error {
		var pool model.PoolSnapshot
		if err := json.Unmarshal(line, &pool); err != nil {
			return fmt.Errorf("parse pool: %w", err)
		}
		pools = append(pools, pool)
		return nil
	})
	return pools, err
}

func (s *JsonlSource) FetchPool(ctx context.Context, id uint64) (model.PoolSnapshot, bool, error) {
	pools, err := s.FetchPools(ctx)
	if err != nil {
		return model.PoolSnapshot{}, false, err
	}
	for _, pool := range pools {
		if pool.ID == id {
			return pool, true, nil
		}
	}
	return model.PoolSnapshot{}, false, nil
}

// FetchBalance returns a zero balance for pairs absent from the file.
func (s *JsonlSource) FetchBalance(ctx context.Context, address, denom string) (model.Balance, error) {
	balance := model.Balance{Address: address, Denom: denom, Amount: "0"}
	if s.balancesPath == "" {
		return balance, nil
	}
	err := readLines(s.balancesPath, func(line []byte) error {
		var b model.Balance
		if err := json.Unmarshal(line, &b); err != nil {
			return fmt.Errorf("parse balance: %w", err)
		}
		if b.Address == address && b.Denom == denom {
			balance = b
		}
		return nil
	})
	return balance, err
}

// Balances loads every balance in the balances file.
func (s *JsonlSource) Balances(ctx context.Context) ([]model.Balance, error) {
	if s.balancesPath == "" {
		return nil, nil
	}
	var balances []model.Balance
	err := readLines(s.balancesPath, func(line []byte) error {
		var b model.Balance
		if err := json.Unmarshal(line, &b); err != nil {
			return fmt.Errorf("parse balance: %w", err)
		}
		balances = append(balances, b)
		return nil
	})
	return balances, err
}
