package core

import (
	"errors"
	"fmt"
)

// ErrMaxIterationsExceeded is returned when the tool-call loop reaches its
// configured iteration budget without producing a final response.
var ErrMaxIterationsExceeded = errors.New("run exceeded maximum tool-call iterations")

// ErrRunCancelled is returned when a run was cancelled externally and the
// driving loop observed the cancellation.
var ErrRunCancelled = errors.New("run cancelled")

// InvalidStateTransitionError reports an attempt to move a run along an edge
// that is not part of the state machine. Always a programming error, never
// silently corrected.
type InvalidStateTransitionError struct {
	RunID string
	From  RunStatus
	To    RunStatus
}

func (e *InvalidStateTransitionError) Error() string {
	return fmt.Sprintf("invalid run state transition %s -> %s (run %s)", e.From, e.To, e.RunID)
}

// ModelInvocationError wraps a failure of the model collaborator (network,
// auth, rate limit, malformed request). Not retried by the core.
type ModelInvocationError struct {
	Cause error
}

func (e *ModelInvocationError) Error() string {
	return fmt.Sprintf("model invocation failed: %v", e.Cause)
}

func (e *ModelInvocationError) Unwrap() error { return e.Cause }

// ResponseParsingError reports a model response that does not match the
// expected message / tool_call tagged-union shape.
type ResponseParsingError struct {
	Reason string
}

func (e *ResponseParsingError) Error() string {
	return fmt.Sprintf("unable to parse model response: %s", e.Reason)
}
