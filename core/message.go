package core

import (
	"time"
)

// Role identifies the author of a conversation message.
type Role string

const (
	// RoleUser marks a message originating from the end user.
	RoleUser Role = "user"
	// RoleAssistant marks a message produced by an agent's model.
	RoleAssistant Role = "assistant"
	// RoleSystem marks instruction messages.
	RoleSystem Role = "system"
	// RoleTool marks tool execution results fed back to the model.
	RoleTool Role = "tool"
)

// Well-known metadata keys carried by Message.Metadata.
const (
	MetaKeyType       = "type"
	MetaKeyToolCallID = "tool_call_id"
	MetaKeyRunID      = "run_id"
	MetaKeyAgent      = "agent"
)

// Well-known values for the MetaKeyType metadata key.
const (
	MessageTypeUser           = "user_message"
	MessageTypeAssistant      = "assistant_response"
	MessageTypeToolCallIntent = "tool_call_intent"
	MessageTypeToolResult     = "tool_result"
	MessageTypeError          = "error"
)

// Message is one turn of conversation history. After creation it should be
// treated as immutable: the memory store only ever appends or evicts whole
// messages, never mutates them.
type Message struct {
	Role      Role           `json:"role"`
	Content   string         `json:"content"`
	Timestamp time.Time      `json:"timestamp"`
	ThreadID  string         `json:"thread_id,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// NewMessage creates a message timestamped with the current time. Prefer the
// semantic constructors below for the common message categories.
func NewMessage(role Role, content, threadID string) Message {
	return Message{
		Role:      role,
		Content:   content,
		Timestamp: time.Now(),
		ThreadID:  threadID,
		Metadata:  map[string]any{},
	}
}

// NewUserMessage creates a user-authored message bound to a thread and run.
func NewUserMessage(content, threadID, runID string) Message {
	m := NewMessage(RoleUser, content, threadID)
	m.Metadata[MetaKeyType] = MessageTypeUser
	m.Metadata[MetaKeyRunID] = runID
	return m
}

// NewAssistantMessage creates a final assistant response message.
func NewAssistantMessage(content, threadID, runID, agentName string) Message {
	m := NewMessage(RoleAssistant, content, threadID)
	m.Metadata[MetaKeyType] = MessageTypeAssistant
	m.Metadata[MetaKeyRunID] = runID
	m.Metadata[MetaKeyAgent] = agentName
	return m
}

// NewToolCallIntentMessage records the model requesting one or more tool
// invocations. Content holds the JSON-serialized tool call list so provider
// adapters can reconstruct native tool-use blocks from history.
func NewToolCallIntentMessage(content, threadID, runID, agentName string) Message {
	m := NewMessage(RoleAssistant, content, threadID)
	m.Metadata[MetaKeyType] = MessageTypeToolCallIntent
	m.Metadata[MetaKeyRunID] = runID
	m.Metadata[MetaKeyAgent] = agentName
	return m
}

// NewToolResultMessage records the outcome of a single tool call, correlated
// by the call id the model assigned.
func NewToolResultMessage(output, threadID, runID, toolCallID string) Message {
	m := NewMessage(RoleTool, output, threadID)
	m.Metadata[MetaKeyType] = MessageTypeToolResult
	m.Metadata[MetaKeyRunID] = runID
	m.Metadata[MetaKeyToolCallID] = toolCallID
	return m
}

// NewErrorMessage records a failure as conversation data so partial progress
// stays inspectable after a run fails.
func NewErrorMessage(text, threadID, runID string) Message {
	m := NewMessage(RoleAssistant, text, threadID)
	m.Metadata[MetaKeyType] = MessageTypeError
	m.Metadata[MetaKeyRunID] = runID
	return m
}

// MessageType returns the MetaKeyType metadata value, or "" if unset.
func (m Message) MessageType() string {
	if m.Metadata == nil {
		return ""
	}
	t, _ := m.Metadata[MetaKeyType].(string)
	return t
}

// ToolCallID returns the correlated tool call id, or "" if unset.
func (m Message) ToolCallID() string {
	if m.Metadata == nil {
		return ""
	}
	id, _ := m.Metadata[MetaKeyToolCallID].(string)
	return id
}

// Clone returns a deep copy safe for hand-out from shared stores.
func (m Message) Clone() Message {
	out := m
	if m.Metadata != nil {
		out.Metadata = make(map[string]any, len(m.Metadata))
		for k, v := range m.Metadata {
			out.Metadata[k] = v
		}
	}
	return out
}
