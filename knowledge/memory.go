package knowledge

import (
	"context"

	"github.com/hupe1980/agenttask/core"
	"github.com/hupe1980/agenttask/memory"
)

// MemoryProvider searches the agent's long-term memory.
type MemoryProvider struct {
	open      core.MemoryStoreFunc
	count     int
	threshold float32
}

// NewMemoryProvider searches with the default count and threshold.
func NewMemoryProvider(open core.MemoryStoreFunc) *MemoryProvider {
	return &MemoryProvider{open: open, count: memory.DefaultCount, threshold: memory.DefaultThreshold}
}

// Name implements Provider.
func (m *MemoryProvider) Name() string { return "Memory" }

// Enabled implements Provider.
func (m *MemoryProvider) Enabled() bool { return m.open != nil }

// Query implements Provider.
func (m *MemoryProvider) Query(ctx context.Context, q string) (string, error) {
	store, err := m.open(ctx)
	if err != nil {
		return "", err
	}
	docs, err := store.SearchByThreshold(ctx, q, m.count, m.threshold)
	if err != nil {
		return "", err
	}
	return memory.FormatSearchResult(q, docs), nil
}
