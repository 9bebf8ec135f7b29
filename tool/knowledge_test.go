package tool

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/agenttask/core"
	"github.com/hupe1980/agenttask/knowledge"
)

type researcherFunc func(ctx context.Context, q string) (*knowledge.Result, error)

func (f researcherFunc) Aggregate(ctx context.Context, q string) (*knowledge.Result, error) {
	return f(ctx, q)
}

func TestKnowledgeTool_RendersAggregation(t *testing.T) {
	agg := knowledge.New(
		[]knowledge.Provider{knowledge.ProviderFunc{ProviderName: "Search", Fn: func(context.Context, string) (string, error) {
			return "Go 1.24 was released in February 2025.", nil
		}}},
		knowledge.ProviderFunc{ProviderName: "Memory", Fn: func(context.Context, string) (string, error) {
			return "nothing stored", nil
		}},
	)
	kt := NewKnowledge(agg, nil)

	resp, err := kt.Call(newToolContext(t), map[string]any{"question": "When was Go 1.24 released?"})
	require.NoError(t, err)
	assert.False(t, resp.BreakLoop)
	assert.Contains(t, resp.Message, "# Online sources")
	assert.Contains(t, resp.Message, "Search: Go 1.24 was released in February 2025.")
	assert.Contains(t, resp.Message, "nothing stored")
}

func TestKnowledgeTool_ErrorBreaksLoop(t *testing.T) {
	kt := NewKnowledge(researcherFunc(func(context.Context, string) (*knowledge.Result, error) {
		return nil, knowledge.ErrEmptyQuery
	}), nil)

	resp, err := kt.Call(newToolContext(t), map[string]any{"question": " "})
	require.NoError(t, err)
	assert.True(t, resp.BreakLoop)
	assert.Contains(t, resp.Message, "An error occurred")
}

func TestKnowledgeTool_InterventionAfterAggregation(t *testing.T) {
	intervention := core.NewIntervention()
	kt := NewKnowledge(researcherFunc(func(context.Context, string) (*knowledge.Result, error) {
		intervention.Intervene("never mind")
		return &knowledge.Result{Query: "q"}, nil
	}), nil)
	tc := core.NewToolContext(t.Context(), func(o *core.ToolContextOptions) { o.Intervention = intervention })

	resp, err := kt.Call(tc, map[string]any{"question": "q"})
	require.NoError(t, err)
	assert.Empty(t, resp.Message)
	assert.True(t, intervention.Triggered())
}

func TestOnlineKnowledgeTool(t *testing.T) {
	disabled := NewOnlineKnowledge(knowledge.ProviderFunc{ProviderName: "Perplexity"})
	resp, err := disabled.Call(newToolContext(t), map[string]any{"question": "q"})
	require.NoError(t, err)
	assert.Equal(t, "Online knowledge is not configured.", resp.Message)

	failing := NewOnlineKnowledge(knowledge.ProviderFunc{ProviderName: "Perplexity", Fn: func(context.Context, string) (string, error) {
		return "", errors.New("rate limited")
	}})
	resp, err = failing.Call(newToolContext(t), map[string]any{"question": "q"})
	require.NoError(t, err)
	assert.Equal(t, "Perplexity: [error: rate limited]", resp.Message)

	ok := NewOnlineKnowledge(knowledge.ProviderFunc{ProviderName: "Perplexity", Fn: func(_ context.Context, q string) (string, error) {
		return "answer to " + q, nil
	}})
	resp, err = ok.Call(newToolContext(t), map[string]any{"question": "q"})
	require.NoError(t, err)
	assert.Equal(t, "answer to q", resp.Message)

	_, err = ok.Call(newToolContext(t), map[string]any{"question": ""})
	var toolErr *ToolError
	assert.ErrorAs(t, err, &toolErr)
}
