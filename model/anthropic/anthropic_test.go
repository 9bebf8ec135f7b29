package anthropic

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/hupe1980/agenttask/core"
	"github.com/hupe1980/agenttask/model"
)

func TestBuildMessages_GroupsToolResults(t *testing.T) {
	msgs := []core.Message{
		{Role: core.RoleSystem, Content: "ignored here"},
		core.NewUserMessage("list files"),
		core.NewAssistantMessage("", core.ToolCall{ID: "a", Name: "code_execution", Arguments: `{"runtime":"terminal","code":"ls"}`},
			core.ToolCall{ID: "b", Name: "memory", Arguments: `{"query":"x"}`}),
		core.NewToolMessage("a", "file.txt"),
		core.NewToolMessage("b", "nothing"),
		core.NewUserMessage("thanks"),
	}

	out := buildMessages(msgs)
	assert.Len(t, out, 4)
	assert.Equal(t, "user", string(out[0].Role))
	assert.Equal(t, "assistant", string(out[1].Role))
	assert.Len(t, out[1].Content, 2)
	assert.Equal(t, "user", string(out[2].Role))
	assert.Len(t, out[2].Content, 2)
}

func TestSystemBlocks(t *testing.T) {
	blocks := systemBlocks(model.Request{
		Instructions: "be brief",
		Messages:     []core.Message{{Role: core.RoleSystem, Content: "extra"}},
	})
	assert.Len(t, blocks, 2)
	assert.Equal(t, "be brief", blocks[0].Text)
}

func TestBuildTools(t *testing.T) {
	tools := buildTools([]model.ToolDefinition{{
		Type: "function",
		Function: model.FunctionDefinition{
			Name:        "memory",
			Description: "long-term memory",
			Parameters: map[string]any{
				"type":       "object",
				"properties": map[string]any{"query": map[string]any{"type": "string"}},
				"required":   []any{"query"},
			},
		},
	}})
	assert.Len(t, tools, 1)
	if assert.NotNil(t, tools[0].OfTool) {
		assert.Equal(t, "memory", tools[0].OfTool.Name)
		assert.Equal(t, []string{"query"}, tools[0].OfTool.InputSchema.Required)
	}
}

func TestRequiredNames(t *testing.T) {
	assert.Equal(t, []string{"a"}, requiredNames([]string{"a"}))
	assert.Equal(t, []string{"a", "b"}, requiredNames([]any{"a", 1, "b"}))
	assert.Nil(t, requiredNames(nil))
}

func TestInfo(t *testing.T) {
	m := NewModel(func(o *Options) { o.APIKey = "test" })
	assert.Equal(t, "anthropic", m.Info().Provider)
}
