package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"liquidityTx/internal/model"
)

const schema = `
CREATE TABLE IF NOT EXISTS pools (
	pool_id      BIGINT PRIMARY KEY,
	total_shares TEXT NOT NULL,
	swap_fee     TEXT NOT NULL,
	exit_fee     TEXT NOT NULL,
	updated_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE TABLE IF NOT EXISTS pool_assets (
	pool_id  BIGINT NOT NULL REFERENCES pools (pool_id) ON DELETE CASCADE,
	position INT NOT NULL,
	denom    TEXT NOT NULL,
	balance  TEXT NOT NULL,
	weight   TEXT NOT NULL,
	PRIMARY KEY (pool_id, position)
);
CREATE TABLE IF NOT EXISTS balances (
	address    TEXT NOT NULL,
	denom      TEXT NOT NULL,
	amount     TEXT NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (address, denom)
);
CREATE TABLE IF NOT EXISTS tx_journal (
	id           BIGSERIAL PRIMARY KEY,
	operation_id TEXT NOT NULL,
	operation    TEXT NOT NULL,
	phase        TEXT NOT NULL,
	sender       TEXT NOT NULL,
	type_urls    TEXT[] NOT NULL DEFAULT '{}',
	gas          BIGINT NOT NULL DEFAULT 0,
	tx_hash      TEXT NOT NULL DEFAULT '',
	code         BIGINT NOT NULL DEFAULT 0,
	height       BIGINT NOT NULL DEFAULT 0,
	error        TEXT NOT NULL DEFAULT '',
	recorded_at  TIMESTAMPTZ NOT NULL
);
`

// Store serves pool and balance snapshots from Postgres and keeps the tx
// journal there.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("pg dsn is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// EnsureSchema creates the tables the store reads and writes.
func (s *Store) EnsureSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, schema)
	return err
}

// FetchPools loads every pool with its assets in position order.
func (s *Store) FetchPools(ctx context.Context) ([]model.PoolSnapshot, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT p.pool_id, p.total_shares, p.swap_fee, p.exit_fee,
		       a.denom, a.balance, a.weight
		FROM pools p
		LEFT JOIN pool_assets a ON a.pool_id = p.pool_id
		ORDER BY p.pool_id, a.position
	`)
	if err != nil {
		return nil, fmt.Errorf("query pools: %w", err)
	}
	defer rows.Close()
	return scanPools(rows)
}

// poolRows is the part of pgx.Rows that scanPools reads.
type poolRows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}

// scanPools folds the pools LEFT JOIN pool_assets rows, ordered by pool id,
// into one snapshot per pool. A pool without assets yields one row of NULLs.
func scanPools(rows poolRows) ([]model.PoolSnapshot, error) {
	var pools []model.PoolSnapshot
	for rows.Next() {
		var (
			id                     int64
			totalShares, fee, exit string
			denom, balance, weight *string
		)
		if err := rows.Scan(&id, &totalShares, &fee, &exit, &denom, &balance, &weight); err != nil {
			return nil, fmt.Errorf("scan pool: %w", err)
		}
		if len(pools) == 0 || pools[len(pools)-1].ID != uint64(id) {
			pools = append(pools, model.PoolSnapshot{
				ID:          uint64(id),
				TotalShares: totalShares,
				SwapFee:     fee,
				ExitFee:     exit,
			})
		}
		if denom != nil {
			last := &pools[len(pools)-1]
			last.Assets = append(last.Assets, model.PoolAsset{Denom: *denom, Balance: deref(balance), Weight: deref(weight)})
		}
	}
	return pools, rows.Err()
}

func (s *Store) FetchPool(ctx context.Context, id uint64) (model.PoolSnapshot, bool, error) {
	pool := model.PoolSnapshot{ID: id}
	row := s.pool.QueryRow(ctx, `SELECT total_shares, swap_fee, exit_fee FROM pools WHERE pool_id=$1`, int64(id))
	if err := row.Scan(&pool.TotalShares, &pool.SwapFee, &pool.ExitFee); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.PoolSnapshot{}, false, nil
		}
		return model.PoolSnapshot{}, false, fmt.Errorf("query pool %d: %w", id, err)
	}

	rows, err := s.pool.Query(ctx, `
		SELECT denom, balance, weight FROM pool_assets WHERE pool_id=$1 ORDER BY position
	`, int64(id))
	if err != nil {
		return model.PoolSnapshot{}, false, fmt.Errorf("query pool assets %d: %w", id, err)
	}
	assets, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.PoolAsset, error) {
		var asset model.PoolAsset
		err := row.Scan(&asset.Denom, &asset.Balance, &asset.Weight)
		return asset, err
	})
	if err != nil {
		return model.PoolSnapshot{}, false, fmt.Errorf("scan pool assets %d: %w", id, err)
	}
	pool.Assets = assets
	return pool, true, nil
}

// FetchBalance returns a zero balance when none is stored.
func (s *Store) FetchBalance(ctx context.Context, address, denom string) (model.Balance, error) {
	balance := model.Balance{Address: address, Denom: denom, Amount: "0"}
	row := s.pool.QueryRow(ctx, `SELECT amount FROM balances WHERE address=$1 AND denom=$2`, address, denom)
	if err := row.Scan(&balance.Amount); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return balance, nil
		}
		return model.Balance{}, fmt.Errorf("query balance: %w", err)
	}
	return balance, nil
}

// UpsertPools replaces the stored snapshot of each pool.
func (s *Store) UpsertPools(ctx context.Context, pools []model.PoolSnapshot) error {
	if len(pools) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	queuePoolUpserts(batch, pools)

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for i := 0; i < batch.Len(); i++ {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}

// queuePoolUpserts queues, per pool, the pool upsert, the removal of its old
// assets and one insert per asset, keeping asset order as position.
func queuePoolUpserts(batch *pgx.Batch, pools []model.PoolSnapshot) {
	for _, pool := range pools {
		batch.Queue(`
			INSERT INTO pools (pool_id, total_shares, swap_fee, exit_fee, updated_at)
			VALUES ($1, $2, $3, $4, now())
			ON CONFLICT (pool_id)
			DO UPDATE SET
				total_shares = EXCLUDED.total_shares,
				swap_fee = EXCLUDED.swap_fee,
				exit_fee = EXCLUDED.exit_fee,
				updated_at = now()
		`, int64(pool.ID), pool.TotalShares, pool.SwapFee, pool.ExitFee)
		batch.Queue(`DELETE FROM pool_assets WHERE pool_id=$1`, int64(pool.ID))
		for i, asset := range pool.Assets {
			batch.Queue(`
				INSERT INTO pool_assets (pool_id, position, denom, balance, weight)
				VALUES ($1, $2, $3, $4, $5)
			`, int64(pool.ID), i, asset.Denom, asset.Balance, asset.Weight)
		}
	}
}

// UpsertBalances inserts or updates account balances.
func (s *Store) UpsertBalances(ctx context.Context, balances []model.Balance) error {
	if len(balances) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, b := range balances {
		batch.Queue(`
			INSERT INTO balances (address, denom, amount, updated_at)
			VALUES ($1, $2, $3, now())
			ON CONFLICT (address, denom)
			DO UPDATE SET amount = EXCLUDED.amount, updated_at = now()
		`, b.Address, b.Denom, b.Amount)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range balances {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}

// Record appends a journal entry.
func (s *Store) Record(ctx context.Context, entry model.JournalEntry) error {
	typeURLs := entry.TypeURLs
	if typeURLs == nil {
		typeURLs = []string{}
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO tx_journal (
			operation_id, operation, phase, sender, type_urls, gas, tx_hash, code, height, error, recorded_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
	`,
		entry.OperationID,
		entry.Operation,
		entry.Phase,
		entry.Sender,
		typeURLs,
		int64(entry.Gas),
		entry.TxHash,
		int64(entry.Code),
		entry.Height,
		entry.Error,
		entry.RecordedAt,
	)
	return err
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
