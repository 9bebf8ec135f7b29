package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/hupe1980/agenttask/core"
	"github.com/hupe1980/agenttask/model"
	"github.com/hupe1980/agenttask/tool"
)

// Messages fed back to the model by the loop itself.
const (
	msgNoToolCall   = "You must answer by calling one of your tools. Call the response tool to deliver the final answer."
	msgSkipped      = "Skipped due to user intervention."
	interventionFmt = "Intervention from the user: %s"
)

// UpdateFunc receives interim progress of a message loop.
type UpdateFunc func(message string)

// MessageLoop runs the agent until a tool ends the loop and returns that
// tool's message. Between model calls the agent's intervention signal is
// consulted: a pause blocks the loop and a pending message is appended as a
// human turn. update, if set, receives the model's interim text.
//
// The loop stops with ctx.Err() once ctx is done, with core.ErrModelCallLimit
// once the model call budget is spent, and with any error a tool reports as
// fatal.
func (a *Agent) MessageLoop(ctx context.Context, update UpdateFunc) (string, error) {
	system, err := a.instruction(a.info)
	if err != nil {
		return "", fmt.Errorf("resolve instruction: %w", err)
	}

	for {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		if err := a.handleIntervention(ctx); err != nil {
			return "", err
		}
		if err := a.budget.Spend(); err != nil {
			return "", err
		}

		req := model.Request{
			Instructions: system,
			Messages:     a.History(),
			Tools:        a.toolDefinitions(),
			Stream:       a.stream,
		}

		a.logger.Debug("agent.model.call", "agent", a.info.Name, "messages", len(req.Messages), "call", a.budget.Used(), "calls_left", a.budget.Left())

		resp, err := model.Collect(ctx, a.llm, req, nil)
		if err != nil {
			return "", fmt.Errorf("model call: %w", err)
		}

		msg := resp.Message
		a.appendHistory(msg)

		if text := strings.TrimSpace(msg.Content); text != "" && update != nil {
			update(text)
		}

		if !msg.HasToolCalls() {
			a.logger.Warn("agent.model.no_tool_call", "agent", a.info.Name)
			a.AppendMessage(msgNoToolCall, true)
			continue
		}

		result, done, err := a.processToolCalls(ctx, msg.ToolCalls)
		if err != nil {
			return "", err
		}
		if done {
			return result, nil
		}
	}
}

// processToolCalls executes calls in order. It reports done when a tool
// breaks the loop. Every call gets a tool message so the history stays
// well formed even when an intervention skips the remaining calls.
func (a *Agent) processToolCalls(ctx context.Context, calls []core.ToolCall) (string, bool, error) {
	for i, call := range calls {
		if a.intervention.Triggered() {
			for _, skipped := range calls[i:] {
				a.appendHistory(core.NewToolMessage(skipped.ID, msgSkipped))
			}
			return "", false, nil
		}

		resp, err := a.callTool(ctx, call)
		if err != nil {
			for _, rest := range calls[i:] {
				a.appendHistory(core.NewToolMessage(rest.ID, msgSkipped))
			}
			return "", false, err
		}

		a.appendHistory(core.NewToolMessage(call.ID, tool.WrapResponse(call.Name, resp.Message, a.maxToolResponseLength)))

		if resp.BreakLoop {
			for _, rest := range calls[i+1:] {
				a.appendHistory(core.NewToolMessage(rest.ID, msgSkipped))
			}
			return resp.Message, true, nil
		}
	}
	return "", false, nil
}

// callTool runs one tool call. Unknown tools, malformed arguments and
// validation failures are reported to the model; other errors are fatal.
func (a *Agent) callTool(ctx context.Context, call core.ToolCall) (tool.Response, error) {
	t, ok := a.tools[call.Name]
	if !ok {
		a.logger.Warn("agent.tool.not_found", "agent", a.info.Name, "tool", call.Name)
		return tool.Response{Message: fmt.Sprintf("Tool %q not found. Available tools: %s.", call.Name, strings.Join(a.ToolNames(), ", "))}, nil
	}

	args := map[string]any{}
	if raw := strings.TrimSpace(call.Arguments); raw != "" {
		if err := json.Unmarshal([]byte(raw), &args); err != nil {
			return tool.Response{Message: fmt.Sprintf("Invalid arguments for tool %q: %v", call.Name, err)}, nil
		}
	}

	tc := core.NewToolContext(ctx, func(o *core.ToolContextOptions) {
		o.AgentName = a.info.Name
		o.CallID = call.ID
		o.Scratch = a.scratch
		o.Intervention = a.intervention
		o.Logger = a.logger
	})

	a.logger.Info("agent.tool.call", "agent", a.info.Name, "tool", call.Name, "call_id", call.ID)

	resp, err := t.Call(tc, args)
	a.metrics.IncToolCall(call.Name, err)
	if err != nil {
		var toolErr *tool.ToolError
		if errors.As(err, &toolErr) && toolErr.Code == tool.CodeValidation {
			return tool.Response{Message: toolErr.Error()}, nil
		}
		a.logger.Error("agent.tool.error", "agent", a.info.Name, "tool", call.Name, "error", err)
		return tool.Response{}, fmt.Errorf("tool %s: %w", call.Name, err)
	}
	return resp, nil
}

// handleIntervention waits out a pause and appends a pending intervention
// message as a human turn.
func (a *Agent) handleIntervention(ctx context.Context) error {
	if err := a.intervention.Wait(ctx); err != nil {
		return err
	}
	if msg, ok := a.intervention.Take(); ok {
		a.logger.Info("agent.intervention", "agent", a.info.Name)
		a.AppendMessage(fmt.Sprintf(interventionFmt, msg), true)
	}
	return nil
}
