package journal

import (
	"sync"

	"github.com/hupe1980/agenttask/core"
)

// Memory is an in-process journal.
type Memory struct {
	mu      sync.RWMutex
	entries map[string][]core.JournalEntry
}

var _ core.Journal = (*Memory)(nil)

// NewMemory creates an empty in-process journal.
func NewMemory() *Memory {
	return &Memory{entries: make(map[string][]core.JournalEntry)}
}

// Append implements core.Journal.
func (m *Memory) Append(e core.JournalEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[e.TaskID] = append(m.entries[e.TaskID], e)
	return nil
}

// Entries implements core.Journal.
func (m *Memory) Entries(taskID string) ([]core.JournalEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]core.JournalEntry(nil), m.entries[taskID]...), nil
}

// Close implements core.Journal.
func (m *Memory) Close() error { return nil }
