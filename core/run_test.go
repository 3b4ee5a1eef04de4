package core

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunInitialState(t *testing.T) {
	r := NewRun()
	assert.NotEmpty(t, r.ID)
	assert.Equal(t, RunStatusQueued, r.Status())
	assert.Nil(t, r.CompletedAt())
	assert.False(t, r.Terminal())
}

func TestRunLegalPath(t *testing.T) {
	r := NewRun()
	require.NoError(t, r.Transition(RunStatusInProgress))
	require.NoError(t, r.Transition(RunStatusRequiresAction))
	require.NoError(t, r.Transition(RunStatusInProgress))
	require.NoError(t, r.Complete())
	assert.Equal(t, RunStatusCompleted, r.Status())
	assert.NotNil(t, r.CompletedAt())
}

func TestRunIllegalTransitionsLeaveStatusUnchanged(t *testing.T) {
	cases := []struct {
		name string
		path []RunStatus // legal setup path
		to   RunStatus
	}{
		{"queued to completed", nil, RunStatusCompleted},
		{"queued to requires_action", nil, RunStatusRequiresAction},
		{"queued to cancelled", nil, RunStatusCancelled},
		{"in_progress to queued", []RunStatus{RunStatusInProgress}, RunStatusQueued},
		{"requires_action to completed", []RunStatus{RunStatusInProgress, RunStatusRequiresAction}, RunStatusCompleted},
		{"completed to in_progress", []RunStatus{RunStatusInProgress, RunStatusCompleted}, RunStatusInProgress},
		{"failed to in_progress", []RunStatus{RunStatusInProgress, RunStatusFailed}, RunStatusInProgress},
		{"cancelled to in_progress", []RunStatus{RunStatusInProgress, RunStatusCancelled}, RunStatusInProgress},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := NewRun()
			for _, s := range tc.path {
				require.NoError(t, r.Transition(s))
			}
			before := r.Status()

			err := r.Transition(tc.to)
			require.Error(t, err)

			var stateErr *InvalidStateTransitionError
			require.True(t, errors.As(err, &stateErr))
			assert.Equal(t, before, stateErr.From)
			assert.Equal(t, tc.to, stateErr.To)
			assert.Equal(t, before, r.Status(), "status must be unchanged after rejected transition")
		})
	}
}

func TestRunCompletedAtSetOnce(t *testing.T) {
	r := NewRun()
	require.NoError(t, r.Transition(RunStatusInProgress))
	require.NoError(t, r.Fail(errors.New("boom")))

	first := r.CompletedAt()
	require.NotNil(t, first)
	assert.Equal(t, "boom", r.LastError())

	// Further transition attempts are rejected and must not touch the timestamp.
	assert.Error(t, r.Transition(RunStatusInProgress))
	assert.Equal(t, first, r.CompletedAt())
}

func TestRunCancel(t *testing.T) {
	r := NewRun()
	assert.False(t, r.Cancel(), "queued run has no loop to observe cancellation")

	require.NoError(t, r.Transition(RunStatusInProgress))
	assert.True(t, r.Cancel())
	assert.Equal(t, RunStatusCancelled, r.Status())

	assert.False(t, r.Cancel(), "terminal run cannot be cancelled again")
}

func TestRunRequiredAction(t *testing.T) {
	r := NewRun()
	calls := []ToolCall{{ID: "c1", Name: "add", Arguments: []byte(`{"x":2,"y":3}`)}}
	r.SetRequiredAction(calls)

	ra := r.RequiredAction()
	require.NotNil(t, ra)
	require.Len(t, ra.ToolCalls, 1)
	assert.Equal(t, "add", ra.ToolCalls[0].Name)
}
