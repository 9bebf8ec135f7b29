package model

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/agenttask/core"
)

func TestScriptedModel_ReplaysTurns(t *testing.T) {
	call := core.ToolCall{ID: "c1", Name: "response", Arguments: `{"text":"done"}`}
	m := NewScriptedModel(
		Turn{Message: core.NewAssistantMessage("thinking", call)},
		Turn{Message: core.NewAssistantMessage("second")},
	)

	r1, err := Collect(context.Background(), m, Request{Messages: []core.Message{core.NewUserMessage("hi")}}, nil)
	require.NoError(t, err)
	assert.Equal(t, "tool_calls", r1.FinishReason)
	assert.Equal(t, []core.ToolCall{call}, r1.Message.ToolCalls)

	r2, err := Collect(context.Background(), m, Request{}, nil)
	require.NoError(t, err)
	assert.Equal(t, "second", r2.Message.Content)

	r3, err := Collect(context.Background(), m, Request{Messages: []core.Message{core.NewUserMessage("again")}}, nil)
	require.NoError(t, err)
	assert.Equal(t, "Mock response to: again", r3.Message.Content)
	assert.Len(t, m.Requests(), 3)
}

func TestCollect_StreamsPartials(t *testing.T) {
	m := NewScriptedModel(Turn{Message: core.NewAssistantMessage("one two three")})

	var deltas []string
	resp, err := Collect(context.Background(), m, Request{Stream: true}, func(d string) { deltas = append(deltas, d) })
	require.NoError(t, err)
	assert.Equal(t, "one two three", resp.Message.Content)
	assert.Equal(t, "one two three", strings.Join(deltas, ""))
	assert.Len(t, deltas, 3)
}

func TestCollect_Error(t *testing.T) {
	boom := errors.New("boom")
	m := NewScriptedModel(Turn{Err: boom})

	_, err := Collect(context.Background(), m, Request{}, nil)
	require.ErrorIs(t, err, boom)
}

func TestCollect_ContextCancelled(t *testing.T) {
	m := NewScriptedModel(Turn{Delay: time.Minute, Message: core.NewAssistantMessage("late")})
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := Collect(ctx, m, Request{}, nil)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

type silentModel struct{}

func (silentModel) Generate(context.Context, Request) (<-chan Response, <-chan error) {
	r := make(chan Response)
	e := make(chan error)
	close(r)
	close(e)
	return r, e
}

func (silentModel) Info() Info { return Info{Name: "silent"} }

func TestCollect_NoFinal(t *testing.T) {
	_, err := Collect(context.Background(), silentModel{}, Request{}, nil)
	require.ErrorIs(t, err, ErrNoFinalResponse)
}
