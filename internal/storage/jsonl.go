package storage

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"liquidityTx/internal/model"
)

// JsonlJournal appends journal entries to a JSONL file.
type JsonlJournal struct {
	path string
	mu   sync.Mutex
}

func NewJsonlJournal(path string) *JsonlJournal {
	return &JsonlJournal{path: path}
}

// Record appends one entry as a JSON line.
func (s *JsonlJournal) Record(ctx context.Context, entry model.JournalEntry) error {
	dir := filepath.Dir(s.path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create journal dir: %w", err)
		}
	}

	line, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal journal entry: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	file, err := os.OpenFile(s.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open journal file: %w", err)
	}
	defer file.Close()

	writer := bufio.NewWriter(file)
	if _, err := writer.Write(line); err != nil {
		return fmt.Errorf("write journal entry: %w", err)
	}
	if err := writer.WriteByte('\n'); err != nil {
		return fmt.Errorf("write newline: %w", err)
	}
	if err := writer.Flush(); err != nil {
		return fmt.Errorf("flush journal: %w", err)
	}
	return nil
}

// ReadJournal loads every entry of a JSONL journal in file order.
func ReadJournal(path string) ([]model.JournalEntry, error) {
	var entries []model.JournalEntry
	err := readLines(path, func(line []byte) error {
		var entry model.JournalEntry
		if err := json.Unmarshal(line, &entry); err != nil {
			return fmt.Errorf("parse journal entry: %w", err)
		}
		entries = append(entries, entry)
		return nil
	})
	return entries, err
}

func readLines(path string, fn func(line []byte) error) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		if err := fn(line); err != nil {
			return err
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	return nil
}

// PendingEntries returns submitted entries with no settled entry, in order.
func PendingEntries(entries []model.JournalEntry) []model.JournalEntry {
	settled := make(map[string]struct{})
	for _, entry := range entries {
		if entry.Phase == model.JournalSettled {
			settled[entry.OperationID] = struct{}{}
		}
	}
	var out []model.JournalEntry
	for _, entry := range entries {
		if entry.Phase != model.JournalSubmitted {
			continue
		}
		if _, ok := settled[entry.OperationID]; !ok {
			out = append(out, entry)
		}
	}
	return out
}
