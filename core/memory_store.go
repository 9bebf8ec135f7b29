package core

import "context"

// MemoryDocument is a stored memory snippet. ID is assigned at insert time and
// never changes. Score is only populated on documents returned from a query.
type MemoryDocument struct {
	ID       string            `json:"id"`
	Content  string            `json:"content"`
	Score    float32           `json:"score,omitempty"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// MemoryStore is the long-term memory contract used by tools and the
// knowledge aggregator. Implementations compose an external similarity index;
// they do not compute similarity themselves.
type MemoryStore interface {
	// Insert stores text under a freshly generated id and returns the id.
	Insert(ctx context.Context, text string) (string, error)
	// SearchByThreshold returns up to limit documents scoring at least
	// threshold. An empty result is not an error.
	SearchByThreshold(ctx context.Context, query string, limit int, threshold float32) ([]MemoryDocument, error)
	// DeleteByIDs removes the given ids; absent ids are ignored.
	DeleteByIDs(ctx context.Context, ids []string) (int, error)
	// DeleteByQuery removes every document matching query above threshold.
	DeleteByQuery(ctx context.Context, query string, threshold float32) (int, error)
}

// MemoryStoreFunc resolves the memory store of the calling agent lazily, so
// the backing namespace is only opened on first use.
type MemoryStoreFunc func(ctx context.Context) (MemoryStore, error)
