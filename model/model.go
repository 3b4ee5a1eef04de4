package model

import (
	"context"

	"github.com/hupe1980/agentswarm/core"
)

// ResponseType discriminates the two legal response shapes.
type ResponseType string

const (
	// ResponseTypeMessage is a final textual answer.
	ResponseTypeMessage ResponseType = "message"
	// ResponseTypeToolCall requests one or more tool invocations.
	ResponseTypeToolCall ResponseType = "tool_call"
)

// ToolDefinition declaratively exposes a callable function to the model.
// Unified across vendors so downstream logic does not need per-provider
// branching.
type ToolDefinition struct {
	Type     string             `json:"type"` // "function"
	Function FunctionDefinition `json:"function"`
}

// FunctionDefinition describes an individual function (tool) exposed to the
// model. Parameters is a JSON Schema object (minimal subset expected).
type FunctionDefinition struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

// Request captures the normalized model input. Messages arrive already
// windowed by the agent; adapters must not truncate further.
type Request struct {
	Instructions string           `json:"instructions"`
	Messages     []core.Message   `json:"messages"`
	Tools        []ToolDefinition `json:"tools,omitempty"`
}

// Response is the tagged union a provider reply is normalized into. Exactly
// one variant is populated: Content for ResponseTypeMessage, ToolCalls for
// ResponseTypeToolCall.
type Response struct {
	Type      ResponseType    `json:"type"`
	Content   string          `json:"content,omitempty"`
	ToolCalls []core.ToolCall `json:"tool_calls,omitempty"`
}

// Validate checks the tagged-union shape and returns a ResponseParsingError
// describing the first violation found.
func (r *Response) Validate() error {
	switch r.Type {
	case ResponseTypeMessage:
		if len(r.ToolCalls) > 0 {
			return &core.ResponseParsingError{Reason: "message response carries tool calls"}
		}
	case ResponseTypeToolCall:
		if len(r.ToolCalls) == 0 {
			return &core.ResponseParsingError{Reason: "tool_call response without tool calls"}
		}
		for _, tc := range r.ToolCalls {
			if tc.ID == "" || tc.Name == "" {
				return &core.ResponseParsingError{Reason: "tool call missing id or name"}
			}
		}
	default:
		return &core.ResponseParsingError{Reason: "unknown response type " + string(r.Type)}
	}
	return nil
}

// Info contains metadata about a model implementation.
type Info struct {
	Name          string `json:"name"`
	Provider      string `json:"provider"` // "openai", "anthropic", "mock", etc.
	SupportsTools bool   `json:"supports_tools"`
}

// Model is the minimal interface agents use to drive generation. Invoke
// blocks until the provider produced a complete reply; timeout and retry
// policy belong to the adapter, not the caller.
type Model interface {
	Invoke(ctx context.Context, req Request) (*Response, error)

	// Info returns information about the model implementation.
	Info() Info
}
