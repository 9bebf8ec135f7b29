package tool

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/hupe1980/agenttask/internal/prompts"
	"github.com/hupe1980/agenttask/internal/util"
)

// WrapResponse renders a tool result for the model through the
// tool_response template, truncating the message to maxLen runes.
func WrapResponse(toolName, message string, maxLen int) string {
	return prompts.MustRender(prompts.ToolResponse, map[string]any{
		"ToolName":     toolName,
		"ToolResponse": util.TruncateText(strings.TrimSpace(message), maxLen),
	})
}

// stringArg returns args[key] as a string; non-string scalars are formatted.
func stringArg(args map[string]any, key string) (string, bool) {
	v, ok := args[key]
	if !ok || v == nil {
		return "", false
	}
	switch t := v.(type) {
	case string:
		return t, true
	default:
		return fmt.Sprint(t), true
	}
}

// intArg parses args[key] as an int, accepting JSON numbers and numeric strings.
func intArg(args map[string]any, key string, def int) int {
	switch v := args[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	case string:
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			return n
		}
	}
	return def
}

// floatArg parses args[key] as a float32, accepting JSON numbers and numeric strings.
func floatArg(args map[string]any, key string, def float32) float32 {
	switch v := args[key].(type) {
	case float64:
		return float32(v)
	case int:
		return float32(v)
	case string:
		if f, err := strconv.ParseFloat(strings.TrimSpace(v), 32); err == nil {
			return float32(f)
		}
	}
	return def
}
