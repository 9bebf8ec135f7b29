package memory

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// Embedder turns text into a vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	// Model names the embedding model; persisted per namespace.
	Model() string
	// Dimensions is the vector size, or 0 while unknown.
	Dimensions() int
}

// DefaultEmbeddingModel is used when none is configured.
const DefaultEmbeddingModel = "text-embedding-3-small"

var knownDimensions = map[string]int{
	"text-embedding-3-small": 1536,
	"text-embedding-3-large": 3072,
	"text-embedding-ada-002": 1536,
}

// OpenAIEmbedderOptions configures NewOpenAIEmbedder.
type OpenAIEmbedderOptions struct {
	Model   string
	APIKey  string
	BaseURL string
}

// OpenAIEmbedder calls the OpenAI embeddings endpoint.
type OpenAIEmbedder struct {
	client *openai.Client
	model  string
	dims   atomic.Int64
}

// NewOpenAIEmbedder creates an embedder. Without an explicit API key the SDK
// falls back to OPENAI_API_KEY.
func NewOpenAIEmbedder(optFns ...func(o *OpenAIEmbedderOptions)) *OpenAIEmbedder {
	opts := OpenAIEmbedderOptions{Model: DefaultEmbeddingModel}
	for _, fn := range optFns {
		fn(&opts)
	}

	var reqOpts []option.RequestOption
	if opts.APIKey != "" {
		reqOpts = append(reqOpts, option.WithAPIKey(opts.APIKey))
	}
	if opts.BaseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(opts.BaseURL))
	}
	client := openai.NewClient(reqOpts...)

	e := &OpenAIEmbedder{client: &client, model: opts.Model}
	e.dims.Store(int64(knownDimensions[opts.Model]))
	return e
}

// Embed implements Embedder.
func (e *OpenAIEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	resp, err := e.client.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Input: openai.EmbeddingNewParamsInputUnion{OfString: openai.String(text)},
		Model: openai.EmbeddingModel(e.model),
	})
	if err != nil {
		return nil, fmt.Errorf("openai embeddings: %w", err)
	}
	if len(resp.Data) == 0 {
		return nil, errors.New("openai embeddings: empty response")
	}

	vec := make([]float32, len(resp.Data[0].Embedding))
	for i, v := range resp.Data[0].Embedding {
		vec[i] = float32(v)
	}
	e.dims.CompareAndSwap(0, int64(len(vec)))
	return vec, nil
}

// Model implements Embedder.
func (e *OpenAIEmbedder) Model() string { return e.model }

// Dimensions implements Embedder.
func (e *OpenAIEmbedder) Dimensions() int { return int(e.dims.Load()) }

// CachedEmbedder memoizes another Embedder in a bounded LRU keyed by text.
// Repeated recalls of the same query skip the remote call.
type CachedEmbedder struct {
	next  Embedder
	cache *lru.Cache[string, []float32]
}

// NewCachedEmbedder wraps next with an LRU of the given size.
func NewCachedEmbedder(next Embedder, size int) (*CachedEmbedder, error) {
	if size <= 0 {
		size = 1024
	}
	cache, err := lru.New[string, []float32](size)
	if err != nil {
		return nil, err
	}
	return &CachedEmbedder{next: next, cache: cache}, nil
}

// Embed implements Embedder.
func (c *CachedEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if v, ok := c.cache.Get(text); ok {
		return append([]float32(nil), v...), nil
	}
	v, err := c.next.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	c.cache.Add(text, append([]float32(nil), v...))
	return v, nil
}

// Model implements Embedder.
func (c *CachedEmbedder) Model() string { return c.next.Model() }

// Dimensions implements Embedder.
func (c *CachedEmbedder) Dimensions() int { return c.next.Dimensions() }
