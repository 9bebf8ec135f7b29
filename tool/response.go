package tool

import "github.com/hupe1980/agenttask/core"

// ResponseArgs is the argument struct of the response tool.
type ResponseArgs struct {
	Text string `json:"text" description:"Final answer for the user"`
}

// NewResponse returns the tool the model calls to finish its task. Its text
// becomes the task result.
func NewResponse() *FunctionTool {
	return NewFunctionToolFromStruct("response", "Deliver the final answer and end the task.", ResponseArgs{},
		func(_ *core.ToolContext, args map[string]any) (Response, error) {
			text, _ := stringArg(args, "text")
			return Response{Message: text, BreakLoop: true}, nil
		},
	)
}
