package memory

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/hupe1980/agenttask/core"
	"github.com/hupe1980/agenttask/logging"
)

// Default search parameters shared by the memory tool and the knowledge
// provider.
const (
	DefaultCount     = 5
	DefaultThreshold = float32(0.1)
	// DefaultPageSize bounds each delete-by-query sweep page.
	DefaultPageSize = 100
)

// StoreOptions configures NewStore.
type StoreOptions struct {
	PageSize int
	Logger   logging.Logger
	// Now is the clock used for the created_at metadata.
	Now func() time.Time
}

// Store is a namespace's memory store. It satisfies core.MemoryStore.
type Store struct {
	index    Index
	pageSize int
	logger   logging.Logger
	now      func() time.Time
}

var _ core.MemoryStore = (*Store)(nil)

// NewStore layers a Store over index.
func NewStore(index Index, optFns ...func(o *StoreOptions)) *Store {
	opts := StoreOptions{PageSize: DefaultPageSize, Now: time.Now}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.PageSize <= 0 {
		opts.PageSize = DefaultPageSize
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Store{
		index:    index,
		pageSize: opts.PageSize,
		logger:   logging.OrNoOp(opts.Logger),
		now:      opts.Now,
	}
}

// Insert stores text under a freshly generated id and returns it.
func (s *Store) Insert(ctx context.Context, text string) (string, error) {
	id := uuid.NewString()
	md := map[string]string{
		"id":         id,
		"created_at": s.now().UTC().Format(time.RFC3339),
	}
	if err := s.index.Add(ctx, id, text, md); err != nil {
		return "", fmt.Errorf("insert memory: %w", err)
	}
	s.logger.Debug("Memory inserted", "id", id)
	return id, nil
}

// SearchByThreshold returns up to limit documents scoring at least
// threshold, best first.
func (s *Store) SearchByThreshold(ctx context.Context, query string, limit int, threshold float32) ([]core.MemoryDocument, error) {
	hits, err := s.index.Query(ctx, query, limit, threshold)
	if err != nil {
		return nil, fmt.Errorf("search memory: %w", err)
	}
	docs := make([]core.MemoryDocument, 0, len(hits))
	for _, h := range hits {
		docs = append(docs, core.MemoryDocument{ID: h.ID, Content: h.Content, Score: h.Score, Metadata: h.Metadata})
	}
	return docs, nil
}

// DeleteByIDs removes the given ids. The returned count is the number of ids
// requested, not the number that existed; absent ids are not an error.
func (s *Store) DeleteByIDs(ctx context.Context, ids []string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	if err := s.index.Delete(ctx, ids...); err != nil {
		return 0, fmt.Errorf("delete memories: %w", err)
	}
	return len(ids), nil
}

// DeleteByQuery repeatedly searches for pageSize matches and deletes them
// until a page comes back short. It returns the total number deleted.
func (s *Store) DeleteByQuery(ctx context.Context, query string, threshold float32) (int, error) {
	total := 0
	for {
		if err := ctx.Err(); err != nil {
			return total, err
		}

		hits, err := s.index.Query(ctx, query, s.pageSize, threshold)
		if err != nil {
			return total, fmt.Errorf("delete by query: %w", err)
		}
		if len(hits) > 0 {
			ids := make([]string, len(hits))
			for i, h := range hits {
				ids[i] = h.ID
			}
			if err := s.index.Delete(ctx, ids...); err != nil {
				return total, fmt.Errorf("delete by query: %w", err)
			}
			total += len(ids)
		}
		if len(hits) < s.pageSize {
			break
		}
	}
	s.logger.Debug("Memories deleted by query", "count", total)
	return total, nil
}

// Count returns the number of stored memories.
func (s *Store) Count() int { return s.index.Count() }
