package bolt

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"

	"liquidityTx/internal/model"
)

const journalBucket = "journal"

// Journal keeps one record per operation phase, keyed "<operation id>/<phase>".
type Journal struct {
	db *bolt.DB
}

func OpenJournal(path string) (*Journal, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("mkdir journal path: %w", err)
	}
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(journalBucket))
		return err
	}); err != nil {
		db.Close()
		return nil, fmt.Errorf("create bucket: %w", err)
	}
	return &Journal{db: db}, nil
}

func (j *Journal) Close() error {
	if j == nil || j.db == nil {
		return nil
	}
	return j.db.Close()
}

func (j *Journal) Record(ctx context.Context, entry model.JournalEntry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	return j.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(journalBucket)).Put(entryKey(entry.OperationID, entry.Phase), data)
	})
}

// Operation returns the recorded phases of one operation in key order.
func (j *Journal) Operation(operationID string) ([]model.JournalEntry, error) {
	var entries []model.JournalEntry
	prefix := []byte(operationID + "/")
	err := j.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket([]byte(journalBucket)).Cursor()
		for k, v := c.Seek(prefix); k != nil && hasPrefix(k, prefix); k, v = c.Next() {
			var entry model.JournalEntry
			if err := json.Unmarshal(v, &entry); err != nil {
				return err
			}
			entries = append(entries, entry)
		}
		return nil
	})
	return entries, err
}

// Pending lists submitted operations that never settled.
func (j *Journal) Pending() ([]model.JournalEntry, error) {
	var submitted []model.JournalEntry
	settled := make(map[string]struct{})
	err := j.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(journalBucket)).ForEach(func(k, v []byte) error {
			var entry model.JournalEntry
			if err := json.Unmarshal(v, &entry); err != nil {
				return err
			}
			switch entry.Phase {
			case model.JournalSubmitted:
				submitted = append(submitted, entry)
			case model.JournalSettled:
				settled[entry.OperationID] = struct{}{}
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	out := make([]model.JournalEntry, 0, len(submitted))
	for _, entry := range submitted {
		if _, ok := settled[entry.OperationID]; !ok {
			out = append(out, entry)
		}
	}
	return out, nil
}

func entryKey(operationID, phase string) []byte {
	return []byte(operationID + "/" + phase)
}

func hasPrefix(k, prefix []byte) bool {
	return len(k) >= len(prefix) && string(k[:len(prefix)]) == string(prefix)
}
