package memory

import "context"

// Hit is a single similarity search result.
type Hit struct {
	ID       string
	Content  string
	Score    float32
	Metadata map[string]string
}

// Index is the vector similarity primitive a Store is layered on.
type Index interface {
	// Add stores text under id.
	Add(ctx context.Context, id, text string, metadata map[string]string) error
	// Query returns up to k hits whose score is at least threshold, best first.
	Query(ctx context.Context, query string, k int, threshold float32) ([]Hit, error)
	// Delete removes the given ids. Absent ids are ignored.
	Delete(ctx context.Context, ids ...string) error
	// Count returns the number of stored documents.
	Count() int
}
