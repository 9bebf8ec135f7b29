package core

import (
	"strings"

	"github.com/google/uuid"
)

// Role identifies the author of a conversation message.
type Role string

const (
	// RoleSystem marks instructions given to the model.
	RoleSystem Role = "system"
	// RoleUser marks human turns and tool results fed back to the model.
	RoleUser Role = "user"
	// RoleAssistant marks model output.
	RoleAssistant Role = "assistant"
	// RoleTool marks the result of a single tool call.
	RoleTool Role = "tool"
)

// ToolCall is a function call request surfaced by a model. Arguments holds
// the raw JSON object produced by the model.
type ToolCall struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// Message is one entry of an agent conversation.
type Message struct {
	Role       Role       `json:"role"`
	Content    string     `json:"content"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
}

// NewUserMessage builds a human turn.
func NewUserMessage(text string) Message { return Message{Role: RoleUser, Content: text} }

// NewAssistantMessage builds a model turn, optionally carrying tool calls.
func NewAssistantMessage(text string, calls ...ToolCall) Message {
	return Message{Role: RoleAssistant, Content: text, ToolCalls: calls}
}

// NewToolMessage builds the response to the tool call identified by callID.
func NewToolMessage(callID, text string) Message {
	return Message{Role: RoleTool, Content: text, ToolCallID: callID}
}

// HasToolCalls reports whether the message requests any tool invocation.
func (m Message) HasToolCalls() bool { return len(m.ToolCalls) > 0 }

// IsEmpty reports whether the message carries neither text nor tool calls.
func (m Message) IsEmpty() bool {
	return strings.TrimSpace(m.Content) == "" && len(m.ToolCalls) == 0
}

// NewID generates a new unique identifier (UUID v4).
func NewID() string { return uuid.NewString() }
