// Package models provides the domain types shared by the inference engine,
// the agent coordinator, and the tool registry.
package models

import (
	"time"

	"github.com/google/uuid"
)

// Role identifies the author of a Message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// Message is a single, immutable turn in a conversation. Once appended to a
// conversation it is never mutated; corrections happen by appending a new
// message, not editing an old one.
type Message struct {
	ID         string      `json:"id"`
	Role       Role        `json:"role"`
	Content    string      `json:"content"`
	Timestamp  time.Time   `json:"timestamp"`
	ToolCalls  []ToolCall  `json:"tool_calls,omitempty"`
	ToolResult *ToolResult `json:"tool_result,omitempty"`
}

// NewMessage constructs a Message with a generated ID and the current time.
func NewMessage(role Role, content string) Message {
	return Message{
		ID:        uuid.NewString(),
		Role:      role,
		Content:   content,
		Timestamp: time.Now(),
	}
}

// ToolCall is a model-emitted request to invoke a registered tool.
// Arguments is a JSON object serialized as a string so it survives transport
// through a plain-text token stream.
type ToolCall struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// NewToolCall generates a fresh ID for a parsed tool call.
func NewToolCall(name, arguments string) ToolCall {
	return ToolCall{
		ID:        uuid.NewString(),
		Name:      name,
		Arguments: arguments,
	}
}

// ToolResult is the outcome of dispatching a ToolCall against the registry.
type ToolResult struct {
	ToolCallID string `json:"tool_call_id"`
	Content    string `json:"content"`
	IsError    bool   `json:"is_error"`
}
