package agent

import (
	"fmt"
	"sort"
	"sync"

	"github.com/hupe1980/agenttask/core"
	"github.com/hupe1980/agenttask/logging"
	"github.com/hupe1980/agenttask/metrics"
	"github.com/hupe1980/agenttask/model"
	"github.com/hupe1980/agenttask/tool"
)

// Defaults applied by New.
const (
	DefaultMaxToolResponseLength = 3000
	DefaultMaxModelCalls         = 100
)

// Info identifies an agent.
type Info struct {
	Number int
	Name   string
}

// Options configures an Agent.
type Options struct {
	// Number is the agent's ordinal; the name is derived from it.
	Number int
	// Instruction is the system prompt. Defaults to DefaultInstruction.
	Instruction Instruction
	Tools       []tool.Tool
	// MaxToolResponseLength truncates tool results fed back to the model.
	// Zero or less disables truncation.
	MaxToolResponseLength int
	// MaxModelCalls bounds the model calls of one agent. Zero means unlimited.
	MaxModelCalls int
	// Stream requests streamed model output.
	Stream  bool
	Logger  logging.Logger
	Metrics *metrics.Metrics
}

// Agent is a conversational agent bound to a model and a tool set.
type Agent struct {
	info        Info
	llm         model.Model
	instruction Instruction
	tools       map[string]tool.Tool

	maxToolResponseLength int
	stream                bool

	mu      sync.Mutex
	history []core.Message

	scratch      *core.Scratch
	intervention *core.Intervention
	budget       *core.CallBudget
	logger       logging.Logger
	metrics      *metrics.Metrics
}

// New creates an agent named "Agent <Number>".
func New(llm model.Model, optFns ...func(o *Options)) *Agent {
	opts := Options{
		MaxToolResponseLength: DefaultMaxToolResponseLength,
		MaxModelCalls:         DefaultMaxModelCalls,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Instruction == nil {
		opts.Instruction = DefaultInstruction()
	}

	a := &Agent{
		info:                  Info{Number: opts.Number, Name: fmt.Sprintf("Agent %d", opts.Number)},
		llm:                   llm,
		instruction:           opts.Instruction,
		tools:                 make(map[string]tool.Tool, len(opts.Tools)),
		maxToolResponseLength: opts.MaxToolResponseLength,
		stream:                opts.Stream,
		scratch:               core.NewScratch(),
		intervention:          core.NewIntervention(),
		budget:                core.NewCallBudget(opts.MaxModelCalls),
		logger:                logging.OrNoOp(opts.Logger),
		metrics:               opts.Metrics,
	}
	for _, t := range opts.Tools {
		a.tools[t.Name()] = t
	}
	return a
}

// Name returns the agent's display name.
func (a *Agent) Name() string { return a.info.Name }

// Number returns the agent's ordinal.
func (a *Agent) Number() int { return a.info.Number }

// Info returns the agent's identity.
func (a *Agent) Info() Info { return a.info }

// Scratch returns the agent's private data.
func (a *Agent) Scratch() *core.Scratch { return a.scratch }

// Intervention returns the agent's intervention signal.
func (a *Agent) Intervention() *core.Intervention { return a.intervention }

// Tool returns the registered tool called name.
func (a *Agent) Tool(name string) (tool.Tool, bool) {
	t, ok := a.tools[name]
	return t, ok
}

// ToolNames returns the registered tool names in sorted order.
func (a *Agent) ToolNames() []string {
	names := make([]string, 0, len(a.tools))
	for n := range a.tools {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// AppendMessage adds a turn to the history. Human turns are sent with the
// user role, everything else as the assistant.
func (a *Agent) AppendMessage(text string, human bool) {
	if human {
		a.appendHistory(core.NewUserMessage(text))
		return
	}
	a.appendHistory(core.NewAssistantMessage(text))
}

// History returns a copy of the conversation so far.
func (a *Agent) History() []core.Message {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]core.Message, len(a.history))
	copy(out, a.history)
	return out
}

// Close releases every resource cached in the agent's scratch data.
func (a *Agent) Close() error {
	return a.scratch.Close()
}

func (a *Agent) appendHistory(msgs ...core.Message) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.history = append(a.history, msgs...)
}

func (a *Agent) toolDefinitions() []model.ToolDefinition {
	defs := make([]model.ToolDefinition, 0, len(a.tools))
	for _, name := range a.ToolNames() {
		t := a.tools[name]
		defs = append(defs, model.ToolDefinition{
			Type: "function",
			Function: model.FunctionDefinition{
				Name:        t.Name(),
				Description: t.Description(),
				Parameters:  t.Parameters(),
			},
		})
	}
	return defs
}
