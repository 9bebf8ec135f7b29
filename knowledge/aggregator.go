package knowledge

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/agenttask/internal/prompts"
	"github.com/hupe1980/agenttask/logging"
	"github.com/hupe1980/agenttask/metrics"
)

// ErrEmptyQuery is returned by Aggregate for a blank query.
var ErrEmptyQuery = errors.New("knowledge query must not be empty")

// Section is the contribution of a single provider.
type Section struct {
	Name    string
	OK      bool
	Skipped bool
	Content string
	Err     error
}

func (s Section) render() string {
	if s.OK {
		return s.Content
	}
	return fmt.Sprintf("[error: %v]", s.Err)
}

// Result is the outcome of one aggregation. Online keeps the provider order
// given to New regardless of completion order.
type Result struct {
	Query  string
	Online []Section
	Memory *Section
}

// OnlineSources renders the online sections as "Name: content" blocks
// separated by blank lines. Skipped providers are omitted.
func (r *Result) OnlineSources() string {
	blocks := make([]string, 0, len(r.Online))
	for _, s := range r.Online {
		if s.Skipped {
			continue
		}
		blocks = append(blocks, s.Name+": "+s.render())
	}
	return strings.Join(blocks, "\n\n")
}

// MemoryContent renders the memory section, or "" without one.
func (r *Result) MemoryContent() string {
	if r.Memory == nil || r.Memory.Skipped {
		return ""
	}
	return r.Memory.render()
}

// Render produces the final report through the knowledge_response template.
func (r *Result) Render() string {
	return prompts.MustRender(prompts.KnowledgeResponse, map[string]any{
		"OnlineSources": r.OnlineSources(),
		"Memory":        r.MemoryContent(),
	})
}

// Options configures an Aggregator.
type Options struct {
	// ProviderTimeout bounds every single provider call. Zero leaves only
	// the caller's context in charge.
	ProviderTimeout time.Duration
	Logger          logging.Logger
	Metrics         *metrics.Metrics
}

// Aggregator runs providers concurrently and merges their answers.
type Aggregator struct {
	providers []Provider
	memory    Provider
	opts      Options
	logger    logging.Logger
}

// New creates an Aggregator. memory may be nil.
func New(providers []Provider, memory Provider, optFns ...func(o *Options)) *Aggregator {
	opts := Options{}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Aggregator{
		providers: providers,
		memory:    memory,
		opts:      opts,
		logger:    logging.OrNoOp(opts.Logger),
	}
}

// Aggregate queries every enabled provider and the memory provider
// concurrently and waits for all of them. Provider failures are reported in
// their Section; the returned error is reserved for invalid input.
func (a *Aggregator) Aggregate(ctx context.Context, q string) (*Result, error) {
	if strings.TrimSpace(q) == "" {
		return nil, ErrEmptyQuery
	}

	res := &Result{Query: q, Online: make([]Section, len(a.providers))}
	var memSection Section

	// Plain Group: a failing sibling must not cancel the others.
	var g errgroup.Group
	for i, p := range a.providers {
		g.Go(func() error {
			res.Online[i] = a.query(ctx, p, q)
			return nil
		})
	}
	if a.memory != nil {
		g.Go(func() error {
			memSection = a.query(ctx, a.memory, q)
			return nil
		})
	}
	_ = g.Wait()

	if a.memory != nil {
		res.Memory = &memSection
	}
	return res, nil
}

func (a *Aggregator) query(ctx context.Context, p Provider, q string) (sec Section) {
	sec.Name = p.Name()
	if !p.Enabled() {
		sec.Skipped = true
		a.opts.Metrics.ObserveProvider(sec.Name, metrics.OutcomeSkipped, 0)
		return sec
	}

	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			sec = Section{Name: sec.Name, Err: fmt.Errorf("provider panicked: %v", r)}
		}
		outcome := metrics.OutcomeSuccess
		if !sec.OK {
			outcome = metrics.OutcomeError
			a.logger.Warn("Provider query failed", "provider", sec.Name, "duration", time.Since(start), "error", sec.Err)
		} else {
			a.logger.Debug("Provider query completed", "provider", sec.Name, "duration", time.Since(start))
		}
		a.opts.Metrics.ObserveProvider(sec.Name, outcome, time.Since(start))
	}()

	if a.opts.ProviderTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.opts.ProviderTimeout)
		defer cancel()
	}

	content, err := p.Query(ctx, q)
	if err != nil {
		sec.Err = err
		return sec
	}
	sec.OK = true
	sec.Content = content
	return sec
}
