package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"liquidityTx/internal/model"
)

func TestJsonlJournalAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "journal.jsonl")
	journal := NewJsonlJournal(path)

	first := model.JournalEntry{OperationID: "a", Operation: "joinPool", Phase: model.JournalSubmitted, Gas: 240000, RecordedAt: time.Unix(1, 0).UTC()}
	second := model.JournalEntry{OperationID: "a", Operation: "joinPool", Phase: model.JournalSettled, TxHash: "AB", RecordedAt: time.Unix(2, 0).UTC()}
	if err := journal.Record(context.Background(), first); err != nil {
		t.Fatalf("record: %v", err)
	}
	if err := journal.Record(context.Background(), second); err != nil {
		t.Fatalf("record: %v", err)
	}

	entries, err := ReadJournal(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].Phase != model.JournalSubmitted || entries[1].TxHash != "AB" {
		t.Fatalf("unexpected entries: %+v", entries)
	}
	if pending := PendingEntries(entries); len(pending) != 0 {
		t.Fatalf("settled operation reported pending: %+v", pending)
	}
	if pending := PendingEntries(entries[:1]); len(pending) != 1 {
		t.Fatalf("expected one pending entry, got %+v", pending)
	}
}

func TestJsonlSource(t *testing.T) {
	dir := t.TempDir()
	poolsPath := filepath.Join(dir, "pools.jsonl")
	balancesPath := filepath.Join(dir, "balances.jsonl")
	pools := `{"id":1,"assets":[{"denom":"uatom","balance":"1000","weight":"1"},{"denom":"uosmo","balance":"2000","weight":"1"}],"total_shares":"100","swap_fee":"0.002","exit_fee":"0"}

{"id":2,"assets":[],"total_shares":"0"}
`
	balances := `{"address":"osmo1","denom":"uatom","amount":"42"}
`
	if err := os.WriteFile(poolsPath, []byte(pools), 0o644); err != nil {
		t.Fatalf("write pools: %v", err)
	}
	if err := os.WriteFile(balancesPath, []byte(balances), 0o644); err != nil {
		t.Fatalf("write balances: %v", err)
	}

	source := NewJsonlSource(poolsPath, balancesPath)
	all, err := source.FetchPools(context.Background())
	if err != nil {
		t.Fatalf("fetch pools: %v", err)
	}
	if len(all) != 2 || all[0].Assets[1].Balance != "2000" || all[0].SwapFee != "0.002" {
		t.Fatalf("unexpected pools: %+v", all)
	}

	if _, ok, err := source.FetchPool(context.Background(), 3); err != nil || ok {
		t.Fatalf("pool 3 should be absent: ok=%v err=%v", ok, err)
	}

	balance, err := source.FetchBalance(context.Background(), "osmo1", "uatom")
	if err != nil || balance.Amount != "42" {
		t.Fatalf("balance mismatch: %+v %v", balance, err)
	}
	loaded, err := source.Balances(context.Background())
	if err != nil || len(loaded) != 1 {
		t.Fatalf("balances mismatch: %+v %v", loaded, err)
	}
	balance, err = source.FetchBalance(context.Background(), "osmo1", "uosmo")
	if err != nil || balance.Amount != "0" {
		t.Fatalf("missing balance should be zero: %+v %v", balance, err)
	}
}

func TestJsonlSourceMalformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pools.jsonl")
	if err := os.WriteFile(path, []byte("{not json}\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := NewJsonlSource(path, "").FetchPools(context.Background()); err == nil {
		t.Fatalf("expected parse error")
	}
}
