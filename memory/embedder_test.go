package memory

import (
	"context"
	"hash/fnv"
	"strings"
	"sync/atomic"
	"testing"
	"unicode"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// hashEmbedder is a deterministic bag-of-words embedder for tests.
type hashEmbedder struct {
	model string
	dims  int
	calls atomic.Int32
}

func newHashEmbedder(dims int) *hashEmbedder {
	return &hashEmbedder{model: "hash", dims: dims}
}

func (h *hashEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	h.calls.Add(1)
	vec := make([]float32, h.dims)
	for _, tok := range strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	}) {
		f := fnv.New32a()
		_, _ = f.Write([]byte(tok))
		vec[int(f.Sum32())%h.dims]++
	}
	return vec, nil
}

func (h *hashEmbedder) Model() string   { return h.model }
func (h *hashEmbedder) Dimensions() int { return h.dims }

func TestCachedEmbedder(t *testing.T) {
	ctx := context.Background()
	inner := newHashEmbedder(16)
	c, err := NewCachedEmbedder(inner, 2)
	require.NoError(t, err)

	v1, err := c.Embed(ctx, "hello world")
	require.NoError(t, err)
	v1[0] = 42 // callers may mutate

	v2, err := c.Embed(ctx, "hello world")
	require.NoError(t, err)
	assert.Equal(t, int32(1), inner.calls.Load())
	assert.NotEqual(t, float32(42), v2[0])

	_, _ = c.Embed(ctx, "a")
	_, _ = c.Embed(ctx, "b")
	_, _ = c.Embed(ctx, "hello world")
	assert.Equal(t, int32(4), inner.calls.Load(), "evicted entry is recomputed")

	assert.Equal(t, "hash", c.Model())
	assert.Equal(t, 16, c.Dimensions())
}

func TestOpenAIEmbedder_KnownDimensions(t *testing.T) {
	e := NewOpenAIEmbedder(func(o *OpenAIEmbedderOptions) {
		o.APIKey = "test"
		o.Model = "text-embedding-3-large"
	})
	assert.Equal(t, "text-embedding-3-large", e.Model())
	assert.Equal(t, 3072, e.Dimensions())

	custom := NewOpenAIEmbedder(func(o *OpenAIEmbedderOptions) {
		o.APIKey = "test"
		o.Model = "custom-embedder"
	})
	assert.Zero(t, custom.Dimensions())
}
