package model

import "time"

// Journal phases.
const (
	JournalSubmitted = "submitted"
	JournalSettled   = "settled"
)

// JournalEntry records one phase of a submitted operation.
type JournalEntry struct {
	OperationID string    `json:"operation_id"`
	Operation   string    `json:"operation"`
	Phase       string    `json:"phase"`
	Sender      string    `json:"sender"`
	TypeURLs    []string  `json:"type_urls,omitempty"`
	Gas         uint64    `json:"gas,omitempty"`
	TxHash      string    `json:"tx_hash,omitempty"`
	Code        uint32    `json:"code"`
	Height      int64     `json:"height,omitempty"`
	Error       string    `json:"error,omitempty"`
	RecordedAt  time.Time `json:"recorded_at"`
}
