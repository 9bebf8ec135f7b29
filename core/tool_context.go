package core

import (
	"context"

	"github.com/hupe1980/agenttask/logging"
)

// ToolContext provides a constrained surface for tool implementations invoked
// by an agent: the call's context, the agent's private scratch data and
// intervention signal, and a logger.
type ToolContext struct {
	ctx          context.Context
	agentName    string
	callID       string
	scratch      *Scratch
	intervention *Intervention
	logger       logging.Logger
}

// ToolContextOptions configures NewToolContext.
type ToolContextOptions struct {
	AgentName    string
	CallID       string
	Scratch      *Scratch
	Intervention *Intervention
	Logger       logging.Logger
}

// NewToolContext constructs a tool context bound to ctx.
func NewToolContext(ctx context.Context, optFns ...func(o *ToolContextOptions)) *ToolContext {
	opts := ToolContextOptions{}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Scratch == nil {
		opts.Scratch = NewScratch()
	}
	if opts.Intervention == nil {
		opts.Intervention = NewIntervention()
	}
	return &ToolContext{
		ctx:          ctx,
		agentName:    opts.AgentName,
		callID:       opts.CallID,
		scratch:      opts.Scratch,
		intervention: opts.Intervention,
		logger:       logging.OrNoOp(opts.Logger),
	}
}

// Context returns the context associated with the tool invocation.
func (tc *ToolContext) Context() context.Context { return tc.ctx }

// AgentName returns the name of the agent invoking the tool.
func (tc *ToolContext) AgentName() string { return tc.agentName }

// CallID returns the model-assigned id of the tool call.
func (tc *ToolContext) CallID() string { return tc.callID }

// Scratch returns the agent's private data.
func (tc *ToolContext) Scratch() *Scratch { return tc.scratch }

// Intervention returns the agent's intervention signal.
func (tc *ToolContext) Intervention() *Intervention { return tc.intervention }

// Logger returns the logger associated with the tool invocation.
func (tc *ToolContext) Logger() logging.Logger { return tc.logger }

// Intervened runs the intervention checkpoint for this call.
func (tc *ToolContext) Intervened() bool { return tc.intervention.Check(tc.ctx) }
