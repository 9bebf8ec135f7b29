// Package tool implements the capabilities an agent can invoke from its
// message loop: shell and code execution, knowledge research, long-term
// memory and the final response. Tools receive schema validated arguments
// and a core.ToolContext carrying the agent's scratch data and intervention
// signal.
package tool

import (
	"fmt"

	"github.com/hupe1980/agenttask/core"
	"github.com/hupe1980/agenttask/internal/util"
)

// Response is what a tool hands back to the agent loop.
type Response struct {
	// Message is fed back to the model as the tool result.
	Message string
	// BreakLoop ends the agent's message loop with Message as its result.
	BreakLoop bool
}

// Tool is a capability the model can call by name. Recoverable problems
// belong in Response.Message. A CodeValidation ToolError is shown to the
// model, any other error aborts the agent's task.
type Tool interface {
	Name() string
	Description() string
	// Parameters is the JSON schema of the call arguments.
	Parameters() map[string]any
	Call(tc *core.ToolContext, args map[string]any) (Response, error)
}

// ValidationError is the cause of a CodeValidation ToolError.
type ValidationError = util.ValidationError

const (
	CodeValidation      = "VALIDATION_ERROR"
	CodeExecutionFailed = "EXECUTION_ERROR"
	CodeNotFound        = "NOT_FOUND"
)

// ToolError is returned by tools for failures attributable to one call.
type ToolError struct {
	Tool    string `json:"tool"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
	cause   error
}

func (e *ToolError) Error() string {
	code := ""
	if e.Code != "" {
		code = " [" + e.Code + "]"
	}
	return fmt.Sprintf("tool error%s in %s: %s", code, e.Tool, e.Message)
}

func (e *ToolError) Unwrap() error { return e.cause }

// NewToolError returns a ToolError without an underlying cause.
func NewToolError(tool, message, code string) *ToolError {
	return &ToolError{Tool: tool, Code: code, Message: message}
}
