package model

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/hupe1980/agentswarm/core"
)

// MockModel is a lightweight in-memory Model useful for tests and examples.
// Queued responses are consumed FIFO, one per Invoke; when the queue runs dry
// it echoes the last user message.
type MockModel struct {
	mu    sync.Mutex
	info  Info
	queue []func() (*Response, error)
	calls int
}

// NewMockModel constructs a MockModel with tool support enabled.
func NewMockModel(name string) *MockModel {
	return &MockModel{
		info: Info{
			Name:          name,
			Provider:      "mock",
			SupportsTools: true,
		},
	}
}

// QueueMessage enqueues a final textual answer.
func (m *MockModel) QueueMessage(content string) *MockModel {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queue = append(m.queue, func() (*Response, error) {
		return &Response{Type: ResponseTypeMessage, Content: content}, nil
	})
	return m
}

// QueueToolCall enqueues a tool_call response. Arguments are JSON-marshaled.
func (m *MockModel) QueueToolCall(callID, name string, args map[string]any) *MockModel {
	raw, _ := json.Marshal(args)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queue = append(m.queue, func() (*Response, error) {
		return &Response{
			Type:      ResponseTypeToolCall,
			ToolCalls: []core.ToolCall{{ID: callID, Name: name, Arguments: raw}},
		}, nil
	})
	return m
}

// QueueToolCalls enqueues a single tool_call response carrying several calls.
func (m *MockModel) QueueToolCalls(calls ...core.ToolCall) *MockModel {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queue = append(m.queue, func() (*Response, error) {
		return &Response{Type: ResponseTypeToolCall, ToolCalls: calls}, nil
	})
	return m
}

// QueueError enqueues an Invoke failure.
func (m *MockModel) QueueError(err error) *MockModel {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queue = append(m.queue, func() (*Response, error) {
		return nil, err
	})
	return m
}

// QueueResponse enqueues a raw response, useful for shape-violation tests.
func (m *MockModel) QueueResponse(resp *Response) *MockModel {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queue = append(m.queue, func() (*Response, error) {
		return resp, nil
	})
	return m
}

// Calls returns how many times Invoke was called.
func (m *MockModel) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Invoke implements Model.
func (m *MockModel) Invoke(ctx context.Context, req Request) (*Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++

	if len(m.queue) > 0 {
		next := m.queue[0]
		m.queue = m.queue[1:]
		return next()
	}

	echo := ""
	for i := len(req.Messages) - 1; i >= 0; i-- {
		if req.Messages[i].Role == core.RoleUser {
			echo = req.Messages[i].Content
			break
		}
	}
	return &Response{Type: ResponseTypeMessage, Content: "echo: " + echo}, nil
}

// Info implements Model.
func (m *MockModel) Info() Info { return m.info }

var _ Model = (*MockModel)(nil)
