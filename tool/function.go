package tool

import (
	"errors"
	"time"

	"github.com/hupe1980/agenttask/core"
	"github.com/hupe1980/agenttask/internal/util"
)

// HandlerFunc implements a FunctionTool. args have already passed schema
// validation.
type HandlerFunc func(tc *core.ToolContext, args map[string]any) (Response, error)

// FunctionTool exposes a HandlerFunc as a Tool. Errors come back as
// *ToolError: CodeValidation for arguments that do not match the schema,
// CodeExecutionFailed for plain handler errors, and unchanged when the handler
// already returns a *ToolError.
type FunctionTool struct {
	name, description string
	schema            map[string]any
	handler           HandlerFunc
}

// NewFunctionTool builds a FunctionTool from an explicit JSON schema.
func NewFunctionTool(name, description string, schema map[string]any, handler HandlerFunc) *FunctionTool {
	return &FunctionTool{name: name, description: description, schema: schema, handler: handler}
}

// NewFunctionToolFromStruct derives the schema from the fields of args, see
// util.CreateSchema for the supported tags.
func NewFunctionToolFromStruct(name, description string, args any, handler HandlerFunc) *FunctionTool {
	return NewFunctionTool(name, description, util.CreateSchema(args), handler)
}

func (t *FunctionTool) Name() string               { return t.name }
func (t *FunctionTool) Description() string        { return t.description }
func (t *FunctionTool) Parameters() map[string]any { return t.schema }

// Call implements Tool.
func (t *FunctionTool) Call(tc *core.ToolContext, args map[string]any) (Response, error) {
	logger := tc.Logger()

	if err := util.ValidateParameters(args, t.schema); err != nil {
		logger.Warn("tool.call.invalid_arguments", "tool", t.name, "call_id", tc.CallID(), "error", err)
		return Response{}, &ToolError{Tool: t.name, Code: CodeValidation, Message: "parameter validation failed: " + err.Error(), cause: err}
	}

	start := time.Now()
	resp, err := t.handler(tc, args)
	if err == nil {
		logger.Debug("tool.call.done", "tool", t.name, "call_id", tc.CallID(), "duration", time.Since(start))
		return resp, nil
	}

	logger.Error("tool.call.failed", "tool", t.name, "call_id", tc.CallID(), "error", err)
	var te *ToolError
	if errors.As(err, &te) {
		return Response{}, te
	}
	return Response{}, &ToolError{Tool: t.name, Code: CodeExecutionFailed, Message: err.Error(), cause: err}
}
