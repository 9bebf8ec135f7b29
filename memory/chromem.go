package memory

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/philippgille/chromem-go"
)

const defaultCollection = "memories"

// ChromemIndexOptions configures NewChromemIndex.
type ChromemIndexOptions struct {
	// Dir is the persistence directory. Empty keeps the index in memory.
	Dir string
	// Collection is the chromem collection name.
	Collection string
	// Compress enables gzip for persisted documents.
	Compress bool
}

// ChromemIndex is an Index backed by a chromem-go collection. Embeddings are
// computed through the supplied Embedder.
type ChromemIndex struct {
	db         *chromem.DB
	collection *chromem.Collection
}

// NewChromemIndex opens (or creates) a chromem collection.
func NewChromemIndex(embedder Embedder, optFns ...func(o *ChromemIndexOptions)) (*ChromemIndex, error) {
	opts := ChromemIndexOptions{Collection: defaultCollection}
	for _, fn := range optFns {
		fn(&opts)
	}

	var (
		db  *chromem.DB
		err error
	)
	if opts.Dir != "" {
		db, err = chromem.NewPersistentDB(filepath.Join(opts.Dir, "chromem"), opts.Compress)
		if err != nil {
			return nil, fmt.Errorf("create persistent DB: %w", err)
		}
	} else {
		db = chromem.NewDB()
	}

	embed := func(ctx context.Context, text string) ([]float32, error) {
		return embedder.Embed(ctx, text)
	}

	collection, err := db.GetOrCreateCollection(opts.Collection, nil, embed)
	if err != nil {
		return nil, fmt.Errorf("create collection: %w", err)
	}

	return &ChromemIndex{db: db, collection: collection}, nil
}

// Add implements Index.
func (c *ChromemIndex) Add(ctx context.Context, id, text string, metadata map[string]string) error {
	md := make(map[string]string, len(metadata)+1)
	for k, v := range metadata {
		md[k] = v
	}
	md["id"] = id

	if err := c.collection.AddDocument(ctx, chromem.Document{ID: id, Content: text, Metadata: md}); err != nil {
		return wrapChromemErr(fmt.Errorf("add document %s: %w", id, err))
	}
	return nil
}

// Query implements Index. chromem rejects nResults above the collection
// size, so k is clamped to Count.
func (c *ChromemIndex) Query(ctx context.Context, query string, k int, threshold float32) ([]Hit, error) {
	if k > c.collection.Count() {
		k = c.collection.Count()
	}
	if k <= 0 {
		return []Hit{}, nil
	}

	results, err := c.collection.Query(ctx, query, k, nil, nil)
	if err != nil {
		return nil, wrapChromemErr(fmt.Errorf("query collection: %w", err))
	}

	hits := make([]Hit, 0, len(results))
	for _, r := range results {
		if r.Similarity < threshold {
			continue
		}
		hits = append(hits, Hit{ID: r.ID, Content: r.Content, Score: r.Similarity, Metadata: r.Metadata})
	}
	return hits, nil
}

// Delete implements Index. All ids go to chromem in one call.
func (c *ChromemIndex) Delete(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	if err := c.collection.Delete(ctx, nil, nil, ids...); err != nil {
		return fmt.Errorf("delete %d documents: %w", len(ids), err)
	}
	return nil
}

// Count implements Index.
func (c *ChromemIndex) Count() int {
	return c.collection.Count()
}

// chromem reports mixed vector sizes as a plain error from its dot product.
func wrapChromemErr(err error) error {
	if strings.Contains(err.Error(), "same length") {
		return fmt.Errorf("%w: %v", ErrDimensionMismatch, err)
	}
	return err
}
