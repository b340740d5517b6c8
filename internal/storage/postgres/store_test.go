package postgres

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5"

	"liquidityTx/internal/model"
)

type joinRow struct {
	id                     int64
	totalShares, fee, exit string
	denom, balance, weight *string
}

type fakeRows struct {
	rows    []joinRow
	next    int
	err     error
	scanErr error
}

func (r *fakeRows) Next() bool {
	if r.next >= len(r.rows) {
		return false
	}
	r.next++
	return true
}

func (r *fakeRows) Scan(dest ...any) error {
	if r.scanErr != nil {
		return r.scanErr
	}
	if len(dest) != 7 {
		return fmt.Errorf("want 7 columns, got %d", len(dest))
	}
	row := r.rows[r.next-1]
	*dest[0].(*int64) = row.id
	*dest[1].(*string) = row.totalShares
	*dest[2].(*string) = row.fee
	*dest[3].(*string) = row.exit
	*dest[4].(**string) = row.denom
	*dest[5].(**string) = row.balance
	*dest[6].(**string) = row.weight
	return nil
}

func (r *fakeRows) Err() error {
	return r.err
}

func str(s string) *string {
	return &s
}

func assetRow(id int64, denom, balance, weight string) joinRow {
	return joinRow{
		id: id, totalShares: "100", fee: "0.002", exit: "0",
		denom: str(denom), balance: str(balance), weight: str(weight),
	}
}

func TestScanPoolsGroupsJoinRows(t *testing.T) {
	rows := &fakeRows{rows: []joinRow{
		assetRow(1, "uatom", "1000", "100"),
		assetRow(1, "uosmo", "2000", "100"),
		{id: 2, totalShares: "0", fee: "0.003", exit: "0"},
		assetRow(7, "uion", "5", "1"),
	}}

	pools, err := scanPools(rows)
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if len(pools) != 3 {
		t.Fatalf("expected 3 pools, got %d", len(pools))
	}

	first := pools[0]
	if first.ID != 1 || first.TotalShares != "100" || first.SwapFee != "0.002" || first.ExitFee != "0" {
		t.Fatalf("unexpected pool 1: %+v", first)
	}
	if len(first.Assets) != 2 || first.Assets[0].Denom != "uatom" || first.Assets[1].Denom != "uosmo" {
		t.Fatalf("unexpected pool 1 assets: %+v", first.Assets)
	}
	if first.Assets[1].Balance != "2000" || first.Assets[1].Weight != "100" {
		t.Fatalf("unexpected uosmo asset: %+v", first.Assets[1])
	}

	if pools[1].ID != 2 || len(pools[1].Assets) != 0 {
		t.Fatalf("pool without assets should be kept empty: %+v", pools[1])
	}
	if pools[2].ID != 7 || len(pools[2].Assets) != 1 || pools[2].Assets[0].Denom != "uion" {
		t.Fatalf("unexpected pool 7: %+v", pools[2])
	}
}

func TestScanPoolsErrors(t *testing.T) {
	scanErr := errors.New("bad column")
	if _, err := scanPools(&fakeRows{rows: []joinRow{assetRow(1, "uatom", "1", "1")}, scanErr: scanErr}); !errors.Is(err, scanErr) {
		t.Fatalf("expected scan error, got %v", err)
	}

	iterErr := errors.New("connection reset")
	if _, err := scanPools(&fakeRows{err: iterErr}); !errors.Is(err, iterErr) {
		t.Fatalf("expected iteration error, got %v", err)
	}
}

func TestQueuePoolUpserts(t *testing.T) {
	pools := []model.PoolSnapshot{
		{
			ID: 1,
			Assets: []model.PoolAsset{
				{Denom: "uatom", Balance: "1000", Weight: "100"},
				{Denom: "uosmo", Balance: "2000", Weight: "100"},
			},
			TotalShares: "3000",
			SwapFee:     "0.002",
			ExitFee:     "0",
		},
		{ID: 2, TotalShares: "0", SwapFee: "0", ExitFee: "0"},
	}

	batch := &pgx.Batch{}
	queuePoolUpserts(batch, pools)

	// pool 1: upsert, delete, two assets; pool 2: upsert, delete.
	if batch.Len() != 6 {
		t.Fatalf("expected 6 queued statements, got %d", batch.Len())
	}

	queries := batch.QueuedQueries
	if !strings.Contains(queries[0].SQL, "INSERT INTO pools") || queries[0].Arguments[0] != int64(1) {
		t.Fatalf("unexpected first statement: %s %v", queries[0].SQL, queries[0].Arguments)
	}
	if !strings.Contains(queries[1].SQL, "DELETE FROM pool_assets") {
		t.Fatalf("assets must be cleared before reinsert: %s", queries[1].SQL)
	}
	for i, want := range []string{"uatom", "uosmo"} {
		q := queries[2+i]
		if !strings.Contains(q.SQL, "INSERT INTO pool_assets") {
			t.Fatalf("statement %d: %s", 2+i, q.SQL)
		}
		if q.Arguments[1] != i || q.Arguments[2] != want {
			t.Fatalf("statement %d: unexpected args %v", 2+i, q.Arguments)
		}
	}
	if queries[4].Arguments[0] != int64(2) || !strings.Contains(queries[5].SQL, "DELETE FROM pool_assets") {
		t.Fatalf("unexpected pool 2 statements: %v / %s", queries[4].Arguments, queries[5].SQL)
	}
}
