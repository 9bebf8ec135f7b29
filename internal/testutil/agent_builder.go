package testutil

import (
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/hupe1980/agenttask/agent"
	"github.com/hupe1980/agenttask/core"
	"github.com/hupe1980/agenttask/model"
	"github.com/hupe1980/agenttask/tool"
)

// AgentBuilder builds agents driven by a scripted model.
// Example:
//
//	factory := NewAgentBuilder().Say("thinking").Respond("done").Factory()
//	r := runner.New(factory)
//
// Every built agent replays its own copy of the script.
type AgentBuilder struct {
	turns []model.Turn
	tools []tool.Tool
	opts  []func(o *agent.Options)
	built atomic.Int64

	mu     sync.Mutex
	models []*model.ScriptedModel
}

// NewAgentBuilder creates a builder whose agents carry the response tool.
func NewAgentBuilder() *AgentBuilder {
	return &AgentBuilder{tools: []tool.Tool{tool.NewResponse()}}
}

// Turn appends raw scripted turns (chainable).
func (b *AgentBuilder) Turn(turns ...model.Turn) *AgentBuilder {
	b.turns = append(b.turns, turns...)
	return b
}

// Say appends a turn in which the model thinks aloud and calls no tool (chainable).
func (b *AgentBuilder) Say(text string) *AgentBuilder {
	return b.Turn(model.Turn{Message: core.NewAssistantMessage(text)})
}

// Call appends a turn in which the model thinks aloud and calls a tool (chainable).
func (b *AgentBuilder) Call(text, toolName string, args map[string]any) *AgentBuilder {
	return b.Turn(model.Turn{Message: core.NewAssistantMessage(text, ToolCall(toolName, args))})
}

// Respond appends a turn calling the response tool with text (chainable).
func (b *AgentBuilder) Respond(text string) *AgentBuilder {
	return b.Call("", "response", map[string]any{"text": text})
}

// Tools registers extra tools on every built agent (chainable).
func (b *AgentBuilder) Tools(tools ...tool.Tool) *AgentBuilder {
	b.tools = append(b.tools, tools...)
	return b
}

// Options adds agent options (chainable).
func (b *AgentBuilder) Options(optFns ...func(o *agent.Options)) *AgentBuilder {
	b.opts = append(b.opts, optFns...)
	return b
}

// Build creates one agent with the given number.
func (b *AgentBuilder) Build(number int) *agent.Agent {
	turns := append([]model.Turn(nil), b.turns...)
	llm := model.NewScriptedModel(turns...)

	b.mu.Lock()
	b.models = append(b.models, llm)
	b.mu.Unlock()
	b.built.Add(1)

	opts := append([]func(o *agent.Options){func(o *agent.Options) {
		o.Number = number
		o.Tools = append([]tool.Tool(nil), b.tools...)
	}}, b.opts...)
	return agent.New(llm, opts...)
}

// Factory adapts Build to the runner's agent factory signature.
func (b *AgentBuilder) Factory() func(number int) *agent.Agent { return b.Build }

// Built returns how many agents were created.
func (b *AgentBuilder) Built() int { return int(b.built.Load()) }

// Models returns the scripted models of all built agents in creation order.
func (b *AgentBuilder) Models() []*model.ScriptedModel {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]*model.ScriptedModel(nil), b.models...)
}

var callSeq atomic.Int64

// ToolCall builds a tool call with a unique id and JSON encoded args.
func ToolCall(name string, args map[string]any) core.ToolCall {
	raw, err := json.Marshal(args)
	if err != nil {
		panic(err)
	}
	return core.ToolCall{ID: fmt.Sprintf("call-%d", callSeq.Add(1)), Name: name, Arguments: string(raw)}
}
