package agentswarm

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/agentswarm/agent"
	"github.com/hupe1980/agentswarm/core"
	"github.com/hupe1980/agentswarm/event"
	"github.com/hupe1980/agentswarm/model"
	"github.com/hupe1980/agentswarm/tool"
)

func TestRegisterAgentRejectsDuplicate(t *testing.T) {
	agency := New()
	require.NoError(t, agency.RegisterAgent(agent.New("helper", model.NewMockModel("m"))))
	assert.Error(t, agency.RegisterAgent(agent.New("helper", model.NewMockModel("m"))))

	_, ok := agency.Agent("helper")
	assert.True(t, ok)
	assert.Equal(t, []string{"helper"}, agency.AgentNames())
}

func TestProcessRequestCreatesThread(t *testing.T) {
	m := model.NewMockModel("m")
	m.QueueMessage("hello")
	agency := New()
	require.NoError(t, agency.RegisterAgent(agent.New("helper", m)))

	response, err := agency.ProcessRequest(context.Background(), "hi", "helper", "")
	require.NoError(t, err)
	assert.Equal(t, "hello", response)

	ids := agency.ThreadIDs()
	require.Len(t, ids, 1)

	th, ok := agency.Thread(ids[0])
	require.True(t, ok)
	assert.Len(t, th.History(0), 2)
}

func TestProcessRequestContinuesThread(t *testing.T) {
	m := model.NewMockModel("m")
	m.QueueMessage("first").QueueMessage("second")
	agency := New()
	require.NoError(t, agency.RegisterAgent(agent.New("helper", m)))

	th, err := agency.CreateThread("helper")
	require.NoError(t, err)

	_, err = agency.ProcessRequest(context.Background(), "one", "helper", th.ID())
	require.NoError(t, err)
	_, err = agency.ProcessRequest(context.Background(), "two", "helper", th.ID())
	require.NoError(t, err)

	assert.Len(t, th.History(0), 4)
	assert.Len(t, th.Runs(), 2)
}

func TestProcessRequestUnknownAgentAndThread(t *testing.T) {
	agency := New()

	_, err := agency.ProcessRequest(context.Background(), "hi", "nobody", "")
	assert.ErrorIs(t, err, ErrAgentNotFound)

	require.NoError(t, agency.RegisterAgent(agent.New("helper", model.NewMockModel("m"))))
	_, err = agency.ProcessRequest(context.Background(), "hi", "helper", "missing-thread")
	assert.ErrorIs(t, err, ErrThreadNotFound)
}

func TestProcessRequestRejectsForeignThread(t *testing.T) {
	agency := New()
	require.NoError(t, agency.RegisterAgent(agent.New("alice", model.NewMockModel("m"))))
	require.NoError(t, agency.RegisterAgent(agent.New("bob", model.NewMockModel("m"))))

	th, err := agency.CreateThread("alice")
	require.NoError(t, err)

	_, err = agency.ProcessRequest(context.Background(), "hi", "bob", th.ID())
	assert.Error(t, err)
}

func TestProcessAll(t *testing.T) {
	agency := New()
	for i := 0; i < 3; i++ {
		m := model.NewMockModel("m")
		m.QueueMessage(fmt.Sprintf("answer-%d", i))
		require.NoError(t, agency.RegisterAgent(agent.New(fmt.Sprintf("agent-%d", i), m)))
	}

	requests := []Request{
		{Message: "q0", AgentName: "agent-0"},
		{Message: "q1", AgentName: "agent-1"},
		{Message: "q2", AgentName: "agent-2"},
	}

	results, err := agency.ProcessAll(context.Background(), requests)
	require.NoError(t, err)
	require.Len(t, results, 3)
	for i, res := range results {
		assert.Equal(t, fmt.Sprintf("answer-%d", i), res.Response)
		assert.NotEmpty(t, res.ThreadID)
	}
	assert.Len(t, agency.ThreadIDs(), 3)
}

func TestProcessAllPropagatesFailure(t *testing.T) {
	agency := New()

	ok := model.NewMockModel("m")
	ok.QueueMessage("fine")
	require.NoError(t, agency.RegisterAgent(agent.New("ok", ok)))

	bad := model.NewMockModel("m")
	bad.QueueError(errors.New("provider down"))
	require.NoError(t, agency.RegisterAgent(agent.New("bad", bad)))

	_, err := agency.ProcessAll(context.Background(), []Request{
		{Message: "q", AgentName: "ok"},
		{Message: "q", AgentName: "bad"},
	})
	require.Error(t, err)

	var invocationErr *core.ModelInvocationError
	assert.True(t, errors.As(err, &invocationErr))
}

func TestEventTraceAfterFailure(t *testing.T) {
	m := model.NewMockModel("m")
	m.QueueToolCall("c1", "missing_tool", map[string]any{})
	agency := New()
	require.NoError(t, agency.RegisterAgent(agent.New("helper", m)))

	th, err := agency.CreateThread("helper")
	require.NoError(t, err)

	_, err = agency.ProcessRequest(context.Background(), "go", "helper", th.ID())
	require.Error(t, err)

	run := th.CurrentRun()
	require.NotNil(t, run)
	assert.Equal(t, core.RunStatusFailed, run.Status())

	trace := agency.EventTrace(run.ID, th.ID())
	assert.Contains(t, trace, "RUN_START")
	assert.Contains(t, trace, "ERROR")
	assert.NotContains(t, trace, "RUN_COMPLETE")
}

func TestCancelRun(t *testing.T) {
	agency := New()
	require.NoError(t, agency.RegisterAgent(agent.New("helper", model.NewMockModel("m"))))

	assert.False(t, agency.CancelRun("missing", "run"))

	m := model.NewMockModel("m2")
	m.QueueMessage("done")
	require.NoError(t, agency.RegisterAgent(agent.New("other", m)))
	th, err := agency.CreateThread("other")
	require.NoError(t, err)

	_, err = agency.ProcessRequest(context.Background(), "hi", "other", th.ID())
	require.NoError(t, err)
	assert.False(t, agency.CancelRun(th.ID(), th.CurrentRun().ID), "terminal run")
}

func TestSharedMemoryAcrossAgents(t *testing.T) {
	agency := New()

	writer := model.NewMockModel("m")
	writer.QueueToolCall("c1", "remember", map[string]any{})
	writer.QueueMessage("noted")
	wa := agent.New("writer", writer)
	require.NoError(t, wa.RegisterTool(tool.NewFunctionTool(
		"remember",
		"Store a note for other agents",
		map[string]any{"type": "object"},
		func(ctx context.Context, args map[string]any) (string, error) {
			agency.Memory().Shared().Set("note", "42")
			return "stored", nil
		},
	)))
	require.NoError(t, agency.RegisterAgent(wa))

	_, err := agency.ProcessRequest(context.Background(), "remember 42", "writer", "")
	require.NoError(t, err)

	v, ok := agency.Memory().Shared().Get("note")
	require.True(t, ok)
	assert.Equal(t, "42", v)
}

func TestRequestFramingEvents(t *testing.T) {
	agency := New()
	m := model.NewMockModel("m")
	m.QueueMessage("hello")
	m.QueueError(errors.New("provider down"))
	require.NoError(t, agency.RegisterAgent(agent.New("helper", m)))

	_, err := agency.ProcessRequest(context.Background(), "hi", "helper", "")
	require.NoError(t, err)

	sent := agency.Events().Events(event.Filter{Type: event.TypeMessageSent})
	require.Len(t, sent, 1)
	assert.Equal(t, "helper", sent[0].AgentName)
	assert.Equal(t, 2, sent[0].Details["content_length"])

	received := agency.Events().Events(event.Filter{Type: event.TypeMessageReceived})
	require.Len(t, received, 1)
	assert.Equal(t, "helper", received[0].AgentName)
	assert.Equal(t, 5, received[0].Details["content_length"])

	_, err = agency.ProcessRequest(context.Background(), "again", "helper", "")
	require.Error(t, err)

	sent = agency.Events().Events(event.Filter{Type: event.TypeMessageSent})
	assert.Len(t, sent, 2)
	received = agency.Events().Events(event.Filter{Type: event.TypeMessageReceived})
	assert.Len(t, received, 1, "no response event for a failed run")
}

func TestEventsAccessor(t *testing.T) {
	agency := New()
	m := model.NewMockModel("m")
	m.QueueMessage("hello")
	require.NoError(t, agency.RegisterAgent(agent.New("helper", m)))

	_, err := agency.ProcessRequest(context.Background(), "hi", "helper", "")
	require.NoError(t, err)

	starts := agency.Events().Events(event.Filter{Type: event.TypeRunStart})
	assert.Len(t, starts, 1)
}
