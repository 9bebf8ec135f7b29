package memory

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/agenttask/core"
)

// countingIndex records how often the store touches the index.
type countingIndex struct {
	Index
	queries int
	deletes int
}

func (c *countingIndex) Query(ctx context.Context, q string, k int, threshold float32) ([]Hit, error) {
	c.queries++
	return c.Index.Query(ctx, q, k, threshold)
}

func (c *countingIndex) Delete(ctx context.Context, ids ...string) error {
	c.deletes++
	return c.Index.Delete(ctx, ids...)
}

func fill(t *testing.T, s *Store, n int, format string) {
	t.Helper()
	for i := 0; i < n; i++ {
		_, err := s.Insert(context.Background(), fmt.Sprintf(format, i))
		require.NoError(t, err)
	}
}

func TestStore_InsertAssignsDistinctIDs(t *testing.T) {
	s := NewStore(NewKeywordIndex())
	a, err := s.Insert(context.Background(), "one")
	require.NoError(t, err)
	b, err := s.Insert(context.Background(), "two")
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
	assert.Equal(t, []string{a}, ExtractIDs(a))
}

func TestStore_SearchByThreshold(t *testing.T) {
	ctx := context.Background()
	s := NewStore(NewKeywordIndex())
	id, err := s.Insert(ctx, "the staging password rotates weekly")
	require.NoError(t, err)
	_, err = s.Insert(ctx, "coffee machine is broken")
	require.NoError(t, err)

	docs, err := s.SearchByThreshold(ctx, "staging password", DefaultCount, DefaultThreshold)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, id, docs[0].ID)
	assert.Equal(t, id, docs[0].Metadata["id"])
	assert.NotEmpty(t, docs[0].Metadata["created_at"])

	docs, err = s.SearchByThreshold(ctx, "quantum chromodynamics", DefaultCount, DefaultThreshold)
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestStore_DeleteByIDsIsIdempotent(t *testing.T) {
	ctx := context.Background()
	s := NewStore(NewKeywordIndex())
	id, err := s.Insert(ctx, "remember me")
	require.NoError(t, err)

	n, err := s.DeleteByIDs(ctx, []string{id})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = s.DeleteByIDs(ctx, []string{id})
	require.NoError(t, err)
	assert.Equal(t, 1, n, "count reports ids requested")
	assert.Equal(t, 0, s.Count())

	n, err = s.DeleteByIDs(ctx, nil)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestStore_DeleteByQueryPagination(t *testing.T) {
	const page = 4
	for _, k := range []int{0, 1, page - 1, page, page + 1, 3 * page} {
		t.Run(fmt.Sprintf("k=%d", k), func(t *testing.T) {
			ctx := context.Background()
			idx := &countingIndex{Index: NewKeywordIndex()}
			s := NewStore(idx, func(o *StoreOptions) { o.PageSize = page })
			fill(t, s, k, "alpha note %d")
			fill(t, s, 3, "unrelated entry %d")

			deleted, err := s.DeleteByQuery(ctx, "alpha note", DefaultThreshold)
			require.NoError(t, err)
			assert.Equal(t, k, deleted)

			// one delete per non-empty page, one extra query for the short page
			assert.Equal(t, (k+page-1)/page, idx.deletes)
			assert.Equal(t, k/page+1, idx.queries)
			assert.Equal(t, 3, s.Count())
		})
	}
}

func TestStore_DeleteByQueryAcrossDefaultPages(t *testing.T) {
	ctx := context.Background()
	s := NewStore(NewKeywordIndex())
	fill(t, s, 150, "project alpha milestone %d")

	deleted, err := s.DeleteByQuery(ctx, "project alpha", DefaultThreshold)
	require.NoError(t, err)
	assert.Equal(t, 150, deleted)

	docs, err := s.SearchByThreshold(ctx, "project alpha", DefaultCount, DefaultThreshold)
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestStore_DeleteByQueryStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	s := NewStore(NewKeywordIndex())
	fill(t, s, 5, "alpha %d")
	cancel()

	n, err := s.DeleteByQuery(ctx, "alpha", DefaultThreshold)
	require.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, n)
}

func TestFormatSearchResult(t *testing.T) {
	assert.Equal(t, "No memories found for specified query: lunch", FormatSearchResult("lunch", nil))

	out := FormatSearchResult("x", []core.MemoryDocument{{ID: "1", Content: "alpha", Score: 0.5}})
	assert.Contains(t, out, `"id": "1"`)
	assert.Contains(t, out, `"content": "alpha"`)
}
