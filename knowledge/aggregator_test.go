package knowledge

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/agenttask/core"
	"github.com/hupe1980/agenttask/memory"
	"github.com/hupe1980/agenttask/metrics"
)

type stubProvider struct {
	name    string
	enabled bool
	delay   time.Duration
	answer  string
	err     error
	panics  bool
	calls   atomic.Int32
}

func (s *stubProvider) Name() string  { return s.name }
func (s *stubProvider) Enabled() bool { return s.enabled }

func (s *stubProvider) Query(ctx context.Context, q string) (string, error) {
	s.calls.Add(1)
	if s.panics {
		panic("provider exploded")
	}
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if s.err != nil {
		return "", s.err
	}
	return s.answer + " " + q, nil
}

func TestAggregate_FailureIsolation(t *testing.T) {
	failing := &stubProvider{name: "Perplexity", enabled: true, err: errors.New("rate limited")}
	slow := &stubProvider{name: "DuckDuckGo", enabled: true, delay: 50 * time.Millisecond, answer: "ddg"}
	mem := &stubProvider{name: "Memory", enabled: true, answer: "mem"}

	agg := New([]Provider{failing, slow}, mem)
	res, err := agg.Aggregate(context.Background(), "go generics")
	require.NoError(t, err)

	require.Len(t, res.Online, 2)
	assert.Equal(t, "Perplexity", res.Online[0].Name)
	assert.False(t, res.Online[0].OK)
	assert.EqualError(t, res.Online[0].Err, "rate limited")
	assert.True(t, res.Online[1].OK)
	assert.Equal(t, "ddg go generics", res.Online[1].Content)
	require.NotNil(t, res.Memory)
	assert.Equal(t, "mem go generics", res.Memory.Content)

	assert.Equal(t, "Perplexity: [error: rate limited]\n\nDuckDuckGo: ddg go generics", res.OnlineSources())
	report := res.Render()
	assert.Contains(t, report, "DuckDuckGo: ddg go generics")
	assert.Contains(t, report, "mem go generics")
	assert.Less(t, strings.Index(report, "DuckDuckGo"), strings.Index(report, "mem go generics"), "memory section comes last")
}

func TestAggregate_PanicBecomesSection(t *testing.T) {
	boom := &stubProvider{name: "Boom", enabled: true, panics: true}
	ok := &stubProvider{name: "Fine", enabled: true, answer: "fine"}

	res, err := New([]Provider{boom, ok}, nil).Aggregate(context.Background(), "q")
	require.NoError(t, err)
	assert.False(t, res.Online[0].OK)
	assert.Contains(t, res.Online[0].Err.Error(), "provider exploded")
	assert.True(t, res.Online[1].OK)
	assert.Nil(t, res.Memory)
	assert.Empty(t, res.MemoryContent())
}

func TestAggregate_DisabledProvidersAreSkipped(t *testing.T) {
	disabled := &stubProvider{name: "Perplexity", enabled: false}
	ok := &stubProvider{name: "DuckDuckGo", enabled: true, answer: "ddg"}
	reg := prometheus.NewRegistry()
	m := metrics.MustNew(reg)

	res, err := New([]Provider{disabled, ok}, nil, func(o *Options) { o.Metrics = m }).Aggregate(context.Background(), "q")
	require.NoError(t, err)

	assert.Zero(t, disabled.calls.Load(), "disabled provider is not attempted")
	assert.True(t, res.Online[0].Skipped)
	assert.Nil(t, res.Online[0].Err)
	assert.NotContains(t, res.OnlineSources(), "Perplexity")
	assert.Equal(t, "DuckDuckGo: ddg q", res.OnlineSources())

	n, err := testutil.GatherAndCount(reg, "agenttask_provider_calls_total")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestAggregate_RunsConcurrently(t *testing.T) {
	a := &stubProvider{name: "A", enabled: true, delay: 100 * time.Millisecond, answer: "a"}
	b := &stubProvider{name: "B", enabled: true, delay: 100 * time.Millisecond, answer: "b"}
	c := &stubProvider{name: "C", enabled: true, delay: 100 * time.Millisecond, answer: "c"}

	start := time.Now()
	_, err := New([]Provider{a, b}, c).Aggregate(context.Background(), "q")
	require.NoError(t, err)
	assert.Less(t, time.Since(start), 250*time.Millisecond)
}

func TestAggregate_ProviderTimeout(t *testing.T) {
	slow := &stubProvider{name: "Slow", enabled: true, delay: time.Second, answer: "late"}
	fast := &stubProvider{name: "Fast", enabled: true, answer: "fast"}

	res, err := New([]Provider{slow, fast}, nil, func(o *Options) {
		o.ProviderTimeout = 20 * time.Millisecond
	}).Aggregate(context.Background(), "q")
	require.NoError(t, err)
	assert.ErrorIs(t, res.Online[0].Err, context.DeadlineExceeded)
	assert.True(t, res.Online[1].OK)
}

func TestAggregate_EmptyQuery(t *testing.T) {
	_, err := New(nil, nil).Aggregate(context.Background(), "  ")
	require.ErrorIs(t, err, ErrEmptyQuery)
}

func TestMemoryProvider(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore(memory.NewKeywordIndex())
	_, err := store.Insert(ctx, "the wifi password is hunter2")
	require.NoError(t, err)

	p := NewMemoryProvider(func(context.Context) (core.MemoryStore, error) { return store, nil })
	require.True(t, p.Enabled())

	out, err := p.Query(ctx, "wifi password")
	require.NoError(t, err)
	assert.Contains(t, out, "hunter2")

	out, err = p.Query(ctx, "volcano")
	require.NoError(t, err)
	assert.Equal(t, "No memories found for specified query: volcano", out)

	broken := NewMemoryProvider(func(context.Context) (core.MemoryStore, error) {
		return nil, memory.ErrDimensionMismatch
	})
	_, err = broken.Query(ctx, "x")
	assert.ErrorIs(t, err, memory.ErrDimensionMismatch)
}
