package tool

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/hupe1980/agenttask/core"
	"github.com/hupe1980/agenttask/knowledge"
	"github.com/hupe1980/agenttask/logging"
)

// Researcher aggregates knowledge for a question. *knowledge.Aggregator
// implements it.
type Researcher interface {
	Aggregate(ctx context.Context, q string) (*knowledge.Result, error)
}

// Knowledge asks every enabled knowledge provider and the agent's memory
// in parallel.
type Knowledge struct {
	researcher Researcher
	logger     logging.Logger
}

// NewKnowledge creates the knowledge tool.
func NewKnowledge(researcher Researcher, logger logging.Logger) *Knowledge {
	return &Knowledge{researcher: researcher, logger: logging.OrNoOp(logger)}
}

// Name implements Tool.
func (k *Knowledge) Name() string { return "knowledge" }

// Description implements Tool.
func (k *Knowledge) Description() string {
	return "Search online sources and long-term memory for an answer to a question."
}

// Parameters implements Tool.
func (k *Knowledge) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"question": map[string]any{"type": "string", "description": "Question to research"},
		},
		"required": []string{"question"},
	}
}

// Call implements Tool. A failed aggregation ends the message loop with the
// error text.
func (k *Knowledge) Call(tc *core.ToolContext, args map[string]any) (Response, error) {
	if tc.Intervened() {
		return Response{}, nil
	}

	question, _ := stringArg(args, "question")
	res, err := k.researcher.Aggregate(tc.Context(), strings.TrimSpace(question))
	if err != nil {
		k.logger.Error("Knowledge aggregation failed", "agent", tc.AgentName(), "error", err)
		return Response{Message: fmt.Sprintf("An error occurred: %v", err), BreakLoop: true}, nil
	}

	if tc.Intervened() {
		return Response{}, nil
	}
	return Response{Message: res.Render()}, nil
}

// OnlineKnowledge queries a single online provider, normally Perplexity.
type OnlineKnowledge struct {
	provider knowledge.Provider
}

// NewOnlineKnowledge creates the online_knowledge tool.
func NewOnlineKnowledge(provider knowledge.Provider) *OnlineKnowledge {
	return &OnlineKnowledge{provider: provider}
}

// Name implements Tool.
func (o *OnlineKnowledge) Name() string { return "online_knowledge" }

// Description implements Tool.
func (o *OnlineKnowledge) Description() string {
	return "Ask an online search engine a question and get a summarized answer with sources."
}

// Parameters implements Tool.
func (o *OnlineKnowledge) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"question": map[string]any{"type": "string"},
		},
		"required": []string{"question"},
	}
}

// Call implements Tool.
func (o *OnlineKnowledge) Call(tc *core.ToolContext, args map[string]any) (Response, error) {
	if o.provider == nil || !o.provider.Enabled() {
		return Response{Message: "Online knowledge is not configured."}, nil
	}
	question, _ := stringArg(args, "question")
	if strings.TrimSpace(question) == "" {
		return Response{}, NewToolError(o.Name(), "question must not be empty", CodeValidation)
	}
	answer, err := o.provider.Query(tc.Context(), question)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return Response{}, err
		}
		return Response{Message: fmt.Sprintf("%s: [error: %v]", o.provider.Name(), err)}, nil
	}
	return Response{Message: answer}, nil
}
