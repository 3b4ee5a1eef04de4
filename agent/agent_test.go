package agent

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/agentswarm/core"
	"github.com/hupe1980/agentswarm/model"
	"github.com/hupe1980/agentswarm/tool"
)

// capturingModel records the last request it served.
type capturingModel struct {
	*model.MockModel
	lastRequest model.Request
}

func newCapturingModel() *capturingModel {
	return &capturingModel{MockModel: model.NewMockModel("capturing")}
}

func (m *capturingModel) Invoke(ctx context.Context, req model.Request) (*model.Response, error) {
	m.lastRequest = req
	return m.MockModel.Invoke(ctx, req)
}

func echoTool() tool.Tool {
	return tool.NewFunctionTool(
		"echo",
		"Echo the input back",
		map[string]any{
			"type": "object",
			"properties": map[string]any{
				"text": map[string]any{"type": "string"},
			},
			"required": []string{"text"},
		},
		func(ctx context.Context, args map[string]any) (string, error) {
			return args["text"].(string), nil
		},
	)
}

func TestNewDefaults(t *testing.T) {
	a := New("helper", model.NewMockModel("m"))
	assert.Equal(t, "helper", a.Name())
	assert.Equal(t, DefaultMaxIterations, a.MaxIterations())
	assert.Equal(t, DefaultContextWindow, a.ContextWindow())
	assert.Contains(t, a.SystemPrompt(), "helper")
	assert.Empty(t, a.ListTools())
}

func TestRegisterToolRejectsDuplicate(t *testing.T) {
	a := New("helper", model.NewMockModel("m"))
	require.NoError(t, a.RegisterTool(echoTool()))
	assert.Error(t, a.RegisterTool(echoTool()))

	assert.True(t, a.HasTool("echo"))
	_, ok := a.Tool("echo")
	assert.True(t, ok)
	_, ok = a.Tool("missing")
	assert.False(t, ok)
}

func TestToolDefinitionsSorted(t *testing.T) {
	a := New("helper", model.NewMockModel("m"), func(o *Options) {
		o.Tools = []tool.Tool{tool.NewCurrentTimeTool(), tool.NewCalculatorTool()}
	})

	defs := a.ToolDefinitions()
	require.Len(t, defs, 2)
	assert.Equal(t, "calculator", defs[0].Function.Name)
	assert.Equal(t, "current_time", defs[1].Function.Name)
	assert.Equal(t, "function", defs[0].Type)
	assert.NotNil(t, defs[0].Function.Parameters)
}

func TestDecideWindowsHistory(t *testing.T) {
	m := newCapturingModel()
	a := New("helper", m, func(o *Options) {
		o.ContextWindow = 3
	})

	var history []core.Message
	for i := 0; i < 10; i++ {
		history = append(history, core.NewUserMessage(fmt.Sprintf("msg-%d", i), "t1", "r1"))
	}

	_, err := a.Decide(context.Background(), history)
	require.NoError(t, err)

	require.Len(t, m.lastRequest.Messages, 3)
	assert.Equal(t, "msg-7", m.lastRequest.Messages[0].Content)
	assert.Equal(t, "msg-9", m.lastRequest.Messages[2].Content)
	assert.Equal(t, a.SystemPrompt(), m.lastRequest.Instructions)
}

func TestDecideWrapsTransportErrors(t *testing.T) {
	m := model.NewMockModel("m")
	m.QueueError(errors.New("connection refused"))
	a := New("helper", m)

	_, err := a.Decide(context.Background(), nil)
	require.Error(t, err)

	var invocationErr *core.ModelInvocationError
	assert.True(t, errors.As(err, &invocationErr))
}

func TestDecideRejectsMalformedResponse(t *testing.T) {
	m := model.NewMockModel("m")
	m.QueueResponse(&model.Response{Type: model.ResponseTypeToolCall})
	a := New("helper", m)

	_, err := a.Decide(context.Background(), nil)
	require.Error(t, err)

	var parseErr *core.ResponseParsingError
	assert.True(t, errors.As(err, &parseErr))
}
