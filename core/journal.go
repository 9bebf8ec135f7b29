package core

import "time"

// EntryKind classifies a lifecycle record.
type EntryKind string

const (
	// EntryStarted is written when a task is created.
	EntryStarted EntryKind = "started"
	// EntryInterim is written for every progress update of a running task.
	EntryInterim EntryKind = "interim"
	// EntryFinal is written exactly once when a task produced its result.
	EntryFinal EntryKind = "final"
)

// JournalEntry is one append-only lifecycle record keyed by task id.
type JournalEntry struct {
	TaskID    string    `json:"task_id"`
	Timestamp time.Time `json:"timestamp"`
	Kind      EntryKind `json:"kind"`
	Prompt    string    `json:"prompt,omitempty"`
	Message   string    `json:"message"`
}

// Journal durably records lifecycle entries. Implementations must be safe
// for concurrent use by many tasks.
type Journal interface {
	Append(entry JournalEntry) error
	Entries(taskID string) ([]JournalEntry, error)
	Close() error
}
