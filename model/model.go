package model

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/hupe1980/agenttask/core"
)

// ToolDefinition declaratively exposes a callable function to the model.
type ToolDefinition struct {
	Type     string             `json:"type"` // "function"
	Function FunctionDefinition `json:"function"`
}

// FunctionDefinition describes an individual function (tool) exposed to the model.
// Parameters is a JSON Schema object (draft agnostic, minimal subset expected).
type FunctionDefinition struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"` // JSON Schema
}

// Request captures the normalized model input produced by an agent.
type Request struct {
	Instructions string           `json:"instructions"` // System prompt
	Messages     []core.Message   `json:"messages"`
	Tools        []ToolDefinition `json:"tools,omitempty"`
	Stream       bool             `json:"stream,omitempty"`
}

// TokenUsage captures token usage statistics for a response.
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Response is a (partial or final) chunk emitted by a model. Partial chunks
// carry text deltas only; the final chunk carries the complete message.
type Response struct {
	ID           string       `json:"id"`
	Partial      bool         `json:"partial"`
	Message      core.Message `json:"message"`
	FinishReason string       `json:"finish_reason"` // "stop", "length", "tool_calls", etc.
	Usage        *TokenUsage  `json:"usage,omitempty"`
}

// Info contains metadata about a model implementation.
type Info struct {
	Name          string `json:"name"`
	Provider      string `json:"provider"` // "openai", "anthropic", "scripted"
	SupportsTools bool   `json:"supports_tools"`
}

// Model is the minimal interface required by agents to drive generation.
// Both channels are closed when generation ends; at most one error is sent.
type Model interface {
	Generate(ctx context.Context, req Request) (<-chan Response, <-chan error)

	// Info returns information about the model implementation.
	Info() Info
}

// ErrNoFinalResponse is returned by Collect when a model closes its stream
// without a final chunk.
var ErrNoFinalResponse = errors.New("model returned no final response")

// Collect drains a Generate call and returns the final message. onPartial,
// if set, receives streamed text deltas.
func Collect(ctx context.Context, m Model, req Request, onPartial func(delta string)) (Response, error) {
	respCh, errCh := m.Generate(ctx, req)

	var (
		final    *Response
		genErr   error
		respOpen = true
		errOpen  = true
	)
	for respOpen || errOpen {
		select {
		case r, ok := <-respCh:
			if !ok {
				respOpen = false
				respCh = nil
				continue
			}
			if r.Partial {
				if onPartial != nil && r.Message.Content != "" {
					onPartial(r.Message.Content)
				}
				continue
			}
			final = &r
		case err, ok := <-errCh:
			if !ok {
				errOpen = false
				errCh = nil
				continue
			}
			if err != nil && genErr == nil {
				genErr = err
			}
		case <-ctx.Done():
			return Response{}, ctx.Err()
		}
	}

	if genErr != nil {
		return Response{}, genErr
	}
	if final == nil {
		return Response{}, ErrNoFinalResponse
	}
	if final.Message.Role == "" {
		final.Message.Role = core.RoleAssistant
	}
	return *final, nil
}

// Turn is one scripted model reply.
type Turn struct {
	Message core.Message
	// Delay postpones the reply; a done context wins over it.
	Delay time.Duration
	// Err makes Generate fail instead of replying.
	Err error
	// Panic makes Generate panic on the calling goroutine.
	Panic any
}

// ScriptedModel is a deterministic in‑memory Model for tests and dry runs.
// Each Generate call consumes the next Turn; once the script is exhausted
// it answers with a plain "Mock response to: <last message>".
type ScriptedModel struct {
	mu       sync.Mutex
	info     Info
	turns    []Turn
	requests []Request
}

// NewScriptedModel creates a model replaying turns in order.
func NewScriptedModel(turns ...Turn) *ScriptedModel {
	return &ScriptedModel{
		info:  Info{Name: "scripted", Provider: "scripted", SupportsTools: true},
		turns: turns,
	}
}

// Generate implements Model.
func (m *ScriptedModel) Generate(ctx context.Context, req Request) (<-chan Response, <-chan error) {
	m.mu.Lock()
	m.requests = append(m.requests, req)
	var (
		turn Turn
		ok   bool
	)
	if len(m.turns) > 0 {
		turn, m.turns, ok = m.turns[0], m.turns[1:], true
	}
	m.mu.Unlock()

	if ok && turn.Panic != nil {
		panic(turn.Panic)
	}

	respCh := make(chan Response, 16)
	errCh := make(chan error, 1)

	go func() {
		defer close(respCh)
		defer close(errCh)

		if !ok {
			turn.Message = core.NewAssistantMessage(fmt.Sprintf("Mock response to: %s", lastContent(req.Messages)))
		}
		if turn.Delay > 0 {
			timer := time.NewTimer(turn.Delay)
			defer timer.Stop()
			select {
			case <-ctx.Done():
				errCh <- ctx.Err()
				return
			case <-timer.C:
			}
		}
		if turn.Err != nil {
			errCh <- turn.Err
			return
		}

		msg := turn.Message
		if msg.Role == "" {
			msg.Role = core.RoleAssistant
		}
		if req.Stream && msg.Content != "" {
			for _, w := range strings.SplitAfter(msg.Content, " ") {
				respCh <- Response{Partial: true, Message: core.Message{Role: core.RoleAssistant, Content: w}}
			}
		}
		finish := "stop"
		if msg.HasToolCalls() {
			finish = "tool_calls"
		}
		respCh <- Response{ID: core.NewID(), Message: msg, FinishReason: finish}
	}()
	return respCh, errCh
}

// Requests returns a copy of every request received so far.
func (m *ScriptedModel) Requests() []Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Request, len(m.requests))
	copy(out, m.requests)
	return out
}

// Info implements Model interface.
func (m *ScriptedModel) Info() Info { return m.info }

func lastContent(msgs []core.Message) string {
	if len(msgs) == 0 {
		return ""
	}
	return msgs[len(msgs)-1].Content
}
