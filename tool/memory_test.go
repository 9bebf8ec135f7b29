package tool

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/agenttask/core"
	"github.com/hupe1980/agenttask/memory"
)

func TestParseMemoryRequest_Precedence(t *testing.T) {
	id := "0b6f3a52-8c43-4d49-9a43-2b1c1e0b9f11"

	tests := []struct {
		name string
		args map[string]any
		want MemoryRequest
	}{
		{
			name: "query wins over everything",
			args: map[string]any{"query": "q", "memorize": "m", "forget": "f", "delete": id},
			want: SearchRequest{Query: "q", Count: memory.DefaultCount, Threshold: memory.DefaultThreshold},
		},
		{
			name: "memorize wins over forget and delete",
			args: map[string]any{"memorize": "m", "forget": "f", "delete": id},
			want: MemorizeRequest{Text: "m"},
		},
		{
			name: "forget wins over delete",
			args: map[string]any{"forget": "f", "delete": id},
			want: ForgetRequest{Query: "f"},
		},
		{
			name: "delete extracts ids",
			args: map[string]any{"delete": "please remove " + strings.ToUpper(id) + ", thanks"},
			want: DeleteRequest{IDs: []string{id}},
		},
		{
			name: "search options",
			args: map[string]any{"query": "q", "count": float64(2), "threshold": "0.5"},
			want: SearchRequest{Query: "q", Count: 2, Threshold: 0.5},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseMemoryRequest(tt.args)
			require.True(t, ok)
			assert.Equal(t, tt.want, got)
		})
	}

	_, ok := ParseMemoryRequest(map[string]any{"count": 3})
	assert.False(t, ok)
}

func TestDispatchMemory_RoundTrip(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore(memory.NewKeywordIndex())

	msg, err := DispatchMemory(ctx, store, MemorizeRequest{Text: "the deploy key lives in vault"})
	require.NoError(t, err)
	ids := memory.ExtractIDs(msg)
	require.Len(t, ids, 1)
	assert.Equal(t, fmt.Sprintf("Memory has been saved with id %s.", ids[0]), msg)

	msg, err = DispatchMemory(ctx, store, SearchRequest{Query: "deploy key", Count: 5, Threshold: 0.1})
	require.NoError(t, err)
	assert.Contains(t, msg, ids[0])
	assert.Contains(t, msg, "the deploy key lives in vault")

	msg, err = DispatchMemory(ctx, store, SearchRequest{Query: "unrelated", Count: 5, Threshold: 0.1})
	require.NoError(t, err)
	assert.Equal(t, "No memories found for specified query: unrelated", msg)

	msg, err = DispatchMemory(ctx, store, DeleteRequest{IDs: ids})
	require.NoError(t, err)
	assert.Equal(t, "1 memories have been deleted.", msg)
	assert.Equal(t, 0, store.Count())
}

func TestDispatchMemory_Forget(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore(memory.NewKeywordIndex())
	for i := 0; i < 3; i++ {
		_, err := store.Insert(ctx, fmt.Sprintf("old password %d", i))
		require.NoError(t, err)
	}
	_, err := store.Insert(ctx, "favourite colour is green")
	require.NoError(t, err)

	msg, err := DispatchMemory(ctx, store, ForgetRequest{Query: "old password"})
	require.NoError(t, err)
	assert.Equal(t, "3 memories have been deleted.", msg)
	assert.Equal(t, 1, store.Count())
}

type failingStore struct {
	err error
}

func (f failingStore) Insert(context.Context, string) (string, error) { return "", f.err }
func (f failingStore) SearchByThreshold(context.Context, string, int, float32) ([]core.MemoryDocument, error) {
	return nil, f.err
}
func (f failingStore) DeleteByIDs(context.Context, []string) (int, error)          { return 0, f.err }
func (f failingStore) DeleteByQuery(context.Context, string, float32) (int, error) { return 0, f.err }

func storeFunc(s core.MemoryStore) core.MemoryStoreFunc {
	return func(context.Context) (core.MemoryStore, error) { return s, nil }
}

func TestMemoryTool_NoRecognizedOperation(t *testing.T) {
	m := NewMemory(storeFunc(memory.NewStore(memory.NewKeywordIndex())))

	resp, err := m.Call(newToolContext(t), map[string]any{"unknown": "x"})
	require.NoError(t, err)
	assert.Equal(t, "No recognized operation", resp.Message)
	assert.False(t, resp.BreakLoop)
}

func TestMemoryTool_DimensionMismatchIsFatal(t *testing.T) {
	mismatch := &memory.DimensionMismatchError{Namespace: "default", Stored: 1536, Current: 3072}
	m := NewMemory(storeFunc(failingStore{err: mismatch}))

	_, err := m.Call(newToolContext(t), map[string]any{"query": "anything"})
	require.Error(t, err)
	assert.ErrorIs(t, err, memory.ErrDimensionMismatch)
}

func TestMemoryTool_DimensionMismatchOnOpen(t *testing.T) {
	open := func(context.Context) (core.MemoryStore, error) {
		return nil, fmt.Errorf("open memory namespace: %w", memory.ErrDimensionMismatch)
	}
	m := NewMemory(open)

	_, err := m.Call(newToolContext(t), map[string]any{"memorize": "x"})
	assert.ErrorIs(t, err, memory.ErrDimensionMismatch)
}

func TestMemoryTool_OtherErrorsBecomeMessages(t *testing.T) {
	m := NewMemory(storeFunc(failingStore{err: errors.New("disk full")}))

	resp, err := m.Call(newToolContext(t), map[string]any{"memorize": "x"})
	require.NoError(t, err)
	assert.Equal(t, "An error occurred: disk full", resp.Message)
}

func TestMemoryTool_Unconfigured(t *testing.T) {
	m := NewMemory(nil)

	resp, err := m.Call(newToolContext(t), map[string]any{"query": "x"})
	require.NoError(t, err)
	assert.Equal(t, "An error occurred: memory is not configured", resp.Message)
}
