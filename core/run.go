package core

import (
	"encoding/json"
	"sync"
	"time"
)

// RunStatus captures the coarse execution state of a run.
type RunStatus string

const (
	// RunStatusQueued is the initial state before processing starts.
	RunStatusQueued RunStatus = "queued"
	// RunStatusInProgress is set while the driving loop invokes the model.
	RunStatusInProgress RunStatus = "in_progress"
	// RunStatusRequiresAction is set when the model requested tool calls
	// that must execute before a final answer can be produced.
	RunStatusRequiresAction RunStatus = "requires_action"
	// RunStatusCompleted is terminal: the model produced a final response.
	RunStatusCompleted RunStatus = "completed"
	// RunStatusFailed is terminal: an unrecoverable error occurred.
	RunStatusFailed RunStatus = "failed"
	// RunStatusCancelled is terminal: the run was cancelled externally.
	RunStatusCancelled RunStatus = "cancelled"
)

// Terminal reports whether the status admits no further transitions.
func (s RunStatus) Terminal() bool {
	switch s {
	case RunStatusCompleted, RunStatusFailed, RunStatusCancelled:
		return true
	default:
		return false
	}
}

// legalTransitions enumerates the only permitted state machine edges.
var legalTransitions = map[RunStatus][]RunStatus{
	RunStatusQueued:         {RunStatusInProgress},
	RunStatusInProgress:     {RunStatusRequiresAction, RunStatusCompleted, RunStatusFailed, RunStatusCancelled},
	RunStatusRequiresAction: {RunStatusInProgress, RunStatusFailed, RunStatusCancelled},
}

// ToolCall is one tool invocation requested by the model.
type ToolCall struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

// RequiredAction describes the pending tool calls blocking a run, in the
// exact order the model emitted them.
type RequiredAction struct {
	ToolCalls []ToolCall `json:"tool_calls"`
}

// Run is one execution of "take a new user message and drive it to a finished
// response". A Run is owned by exactly one Thread; the mutex only exists so an
// external CancelRun can race safely with the owning loop's status checks.
type Run struct {
	ID        string    `json:"id"`
	StartedAt time.Time `json:"started_at"`

	mu             sync.Mutex
	status         RunStatus
	completedAt    *time.Time
	requiredAction *RequiredAction
	lastError      string
}

// NewRun creates a run in the queued state.
func NewRun() *Run {
	return &Run{
		ID:        NewID(),
		StartedAt: time.Now(),
		status:    RunStatusQueued,
	}
}

// Status returns the current state.
func (r *Run) Status() RunStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.status
}

// CompletedAt returns the terminal timestamp, or nil while non-terminal.
func (r *Run) CompletedAt() *time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.completedAt
}

// RequiredAction returns the pending tool calls recorded on entering
// requires_action, or nil.
func (r *Run) RequiredAction() *RequiredAction {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.requiredAction
}

// LastError returns the human-readable failure description, or "".
func (r *Run) LastError() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastError
}

// Terminal reports whether the run reached a terminal state.
func (r *Run) Terminal() bool { return r.Status().Terminal() }

// Transition moves the run along a legal state machine edge. Any other edge
// is a programming error: it returns *InvalidStateTransitionError and leaves
// the status unchanged. CompletedAt is set exactly once, on the first entry
// into a terminal state.
func (r *Run) Transition(to RunStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.transitionLocked(to)
}

func (r *Run) transitionLocked(to RunStatus) error {
	for _, allowed := range legalTransitions[r.status] {
		if allowed == to {
			r.status = to
			if to.Terminal() && r.completedAt == nil {
				now := time.Now()
				r.completedAt = &now
			}
			return nil
		}
	}
	return &InvalidStateTransitionError{RunID: r.ID, From: r.status, To: to}
}

// SetRequiredAction records the pending tool calls. Called by the owning
// thread when entering requires_action.
func (r *Run) SetRequiredAction(calls []ToolCall) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.requiredAction = &RequiredAction{ToolCalls: calls}
}

// Complete transitions to completed.
func (r *Run) Complete() error { return r.Transition(RunStatusCompleted) }

// Fail transitions to failed and records the error description.
func (r *Run) Fail(err error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if tErr := r.transitionLocked(RunStatusFailed); tErr != nil {
		return tErr
	}
	if err != nil {
		r.lastError = err.Error()
	}
	return nil
}

// Cancel transitions a non-terminal run to cancelled. Cancelling a terminal
// run is a no-op returning false; cancelling from queued is rejected the same
// way since a queued run has no driving loop to observe the cancellation.
func (r *Run) Cancel() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.status != RunStatusInProgress && r.status != RunStatusRequiresAction {
		return false
	}
	return r.transitionLocked(RunStatusCancelled) == nil
}
