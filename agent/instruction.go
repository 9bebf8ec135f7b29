package agent

import "github.com/hupe1980/agenttask/internal/prompts"

// Instruction produces the system prompt for an agent. It is resolved before
// every model call, so it may depend on the agent's identity.
type Instruction func(Info) (string, error)

// StaticInstruction always returns text.
func StaticInstruction(text string) Instruction {
	return func(Info) (string, error) { return text, nil }
}

// DefaultInstruction renders the agent_system prompt with the agent name.
func DefaultInstruction() Instruction {
	return func(info Info) (string, error) {
		return prompts.Render(prompts.AgentSystem, map[string]any{"AgentName": info.Name})
	}
}
