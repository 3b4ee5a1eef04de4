package thread

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/hupe1980/agentswarm/agent"
	"github.com/hupe1980/agentswarm/core"
	"github.com/hupe1980/agentswarm/event"
	"github.com/hupe1980/agentswarm/internal/util"
	"github.com/hupe1980/agentswarm/logging"
	"github.com/hupe1980/agentswarm/memory"
	"github.com/hupe1980/agentswarm/model"
	"github.com/hupe1980/agentswarm/tool"
)

// Options configures a Thread.
type Options struct {
	Logger logging.Logger
}

// Thread is one persistent conversation bound to a single agent. The
// processing mutex serializes ProcessMessage, so a thread holds at most one
// non-terminal run at any time; runs from other threads proceed concurrently.
type Thread struct {
	id     string
	agent  *agent.Agent
	memory *memory.Store
	events *event.System
	logger logging.Logger

	// mu serializes message processing.
	mu sync.Mutex

	// stateMu guards the run list and timestamps against concurrent readers.
	stateMu       sync.Mutex
	runs          []*core.Run
	createdAt     time.Time
	lastMessageAt time.Time
}

// New creates a thread bound to the given agent, backed by the shared memory
// store and event log.
func New(a *agent.Agent, mem *memory.Store, events *event.System, optFns ...func(o *Options)) *Thread {
	opts := Options{
		Logger: logging.NewNoOpLogger(),
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Thread{
		id:        core.NewID(),
		agent:     a,
		memory:    mem,
		events:    events,
		logger:    opts.Logger,
		createdAt: time.Now(),
	}
}

// ID returns the thread's unique id.
func (t *Thread) ID() string { return t.id }

// Agent returns the bound agent.
func (t *Thread) Agent() *agent.Agent { return t.agent }

// CreatedAt returns the creation time.
func (t *Thread) CreatedAt() time.Time { return t.createdAt }

// LastMessageAt returns the time of the most recent message activity.
func (t *Thread) LastMessageAt() time.Time {
	t.stateMu.Lock()
	defer t.stateMu.Unlock()
	return t.lastMessageAt
}

// ProcessMessage appends the user message and drives a new run to a terminal
// state: it repeatedly asks the agent to decide, executes requested tool
// calls and feeds their results back, until the model produces a final
// answer, the iteration budget is exhausted, an unrecoverable error occurs or
// the run is cancelled. Calls on the same thread are processed strictly one
// at a time.
func (t *Thread) ProcessMessage(ctx context.Context, content string) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	run := core.NewRun()
	t.appendRun(run)

	t.memory.AddMessage(core.NewUserMessage(content, t.id, run.ID))
	t.touch()

	if err := run.Transition(core.RunStatusInProgress); err != nil {
		return "", err
	}

	rootID := t.events.Create(event.TypeRunStart, t.agent.Name(), run.ID, t.id,
		map[string]any{"message": content}, nil)
	t.events.StartScope(rootID)
	defer t.events.EndScope(run.ID)

	t.logger.Info("run started", "runID", run.ID, "threadID", t.id, "agent", t.agent.Name())

	for iteration := 0; iteration < t.agent.MaxIterations(); iteration++ {
		if err := ctx.Err(); err != nil {
			run.Cancel()
			t.logger.Info("run cancelled via context", "runID", run.ID)
			return "", core.ErrRunCancelled
		}
		if run.Status() == core.RunStatusCancelled {
			t.logger.Info("run cancelled", "runID", run.ID)
			return "", core.ErrRunCancelled
		}

		resp, err := t.decide(ctx, run, iteration)
		if err != nil {
			return "", t.fail(run, err)
		}

		switch resp.Type {
		case model.ResponseTypeMessage:
			t.memory.AddMessage(core.NewAssistantMessage(resp.Content, t.id, run.ID, t.agent.Name()))
			t.touch()
			if err := run.Complete(); err != nil {
				return "", err
			}
			t.events.Create(event.TypeRunComplete, t.agent.Name(), run.ID, t.id,
				map[string]any{"iterations": iteration + 1}, nil)
			t.logger.Info("run completed", "runID", run.ID, "iterations", iteration+1)
			return resp.Content, nil

		case model.ResponseTypeToolCall:
			if err := t.handleToolCalls(ctx, run, resp.ToolCalls); err != nil {
				if errors.Is(err, core.ErrRunCancelled) {
					t.logger.Info("run cancelled", "runID", run.ID)
					return "", err
				}
				return "", t.fail(run, err)
			}
		}
	}

	return "", t.fail(run, core.ErrMaxIterationsExceeded)
}

// decide runs one agent_start/agent_complete cycle around Agent.Decide.
func (t *Thread) decide(ctx context.Context, run *core.Run, iteration int) (*model.Response, error) {
	startID := t.events.Create(event.TypeAgentStart, t.agent.Name(), run.ID, t.id,
		map[string]any{"iteration": iteration}, nil)
	t.events.StartScope(startID)
	defer t.events.EndScope(run.ID)

	resp, err := t.agent.Decide(ctx, t.memory.Messages(memory.Filter{ThreadID: t.id}))
	if err != nil {
		return nil, err
	}

	t.events.Create(event.TypeAgentComplete, t.agent.Name(), run.ID, t.id,
		map[string]any{"response_type": string(resp.Type)}, nil)
	return resp, nil
}

// handleToolCalls executes the requested calls in model order and records
// their results. Returned errors are fatal for the run.
func (t *Thread) handleToolCalls(ctx context.Context, run *core.Run, calls []core.ToolCall) error {
	if err := run.Transition(core.RunStatusRequiresAction); err != nil {
		return err
	}
	run.SetRequiredAction(calls)

	raw, err := json.Marshal(calls)
	if err != nil {
		return err
	}
	t.memory.AddMessage(core.NewToolCallIntentMessage(string(raw), t.id, run.ID, t.agent.Name()))
	t.touch()

	for _, call := range calls {
		output, err := t.executeCall(ctx, run, call)
		if err != nil {
			return err
		}
		t.memory.AddMessage(core.NewToolResultMessage(output, t.id, run.ID, call.ID))
		t.touch()
	}

	// Cancellation during tool execution lands here, before resuming.
	if run.Status() == core.RunStatusCancelled {
		return core.ErrRunCancelled
	}
	return run.Transition(core.RunStatusInProgress)
}

// executeCall runs a single tool call inside its own event scope. Recoverable
// failures are converted into an error-text result for the model; a non-nil
// error return means the run must fail.
func (t *Thread) executeCall(ctx context.Context, run *core.Run, call core.ToolCall) (string, error) {
	startID := t.events.Create(event.TypeToolStart, t.agent.Name(), run.ID, t.id,
		map[string]any{"tool": call.Name, "call_id": call.ID}, nil)
	t.events.StartScope(startID)
	defer t.events.EndScope(run.ID)

	tl, ok := t.agent.Tool(call.Name)
	if !ok {
		return "", &tool.NotFoundError{Name: call.Name}
	}

	args := map[string]any{}
	if len(call.Arguments) > 0 {
		if err := json.Unmarshal(call.Arguments, &args); err != nil {
			return "", tool.NewToolError(call.Name, "arguments are not a JSON object: "+err.Error(), tool.CodeValidationError)
		}
	}
	if err := util.ValidateParameters(args, tl.Parameters()); err != nil {
		return "", tool.NewToolError(call.Name, "parameter validation failed: "+err.Error(), tool.CodeValidationError)
	}

	output, err := tl.Execute(ctx, args)
	if err != nil {
		var toolErr *tool.ToolError
		if errors.As(err, &toolErr) && toolErr.Fatal {
			return "", toolErr
		}
		// Recoverable failure: let the model see the error text and react.
		message := err.Error()
		if toolErr != nil {
			message = toolErr.Message
		}
		t.events.Create(event.TypeToolError, t.agent.Name(), run.ID, t.id,
			map[string]any{"tool": call.Name, "call_id": call.ID, "error": message}, nil)
		t.logger.Warn("tool failed, feeding error back", "tool", call.Name, "runID", run.ID, "error", message)
		return "Error: " + message, nil
	}

	t.events.Create(event.TypeToolComplete, t.agent.Name(), run.ID, t.id,
		map[string]any{"tool": call.Name, "call_id": call.ID}, nil)
	return output, nil
}

// fail marks the run failed and records the error both as an event and as
// conversation data, keeping partial progress inspectable.
func (t *Thread) fail(run *core.Run, err error) error {
	t.events.Create(event.TypeError, t.agent.Name(), run.ID, t.id,
		map[string]any{"error": err.Error()}, nil)
	t.memory.AddMessage(core.NewErrorMessage("Error: "+err.Error(), t.id, run.ID))
	t.touch()

	if fErr := run.Fail(err); fErr != nil {
		t.logger.Warn("unable to mark run failed", "runID", run.ID, "error", fErr.Error())
	}
	t.logger.Error("run failed", "runID", run.ID, "error", err.Error())
	return err
}

// CancelRun requests cancellation of a non-terminal run owned by this
// thread. The driving loop observes the cancellation at its next iteration.
// Returns false for unknown or already terminal runs.
func (t *Thread) CancelRun(runID string) bool {
	run, ok := t.Run(runID)
	if !ok {
		return false
	}
	return run.Cancel()
}

// Run returns the run with the given id, if owned by this thread.
func (t *Thread) Run(runID string) (*core.Run, bool) {
	t.stateMu.Lock()
	defer t.stateMu.Unlock()
	for _, r := range t.runs {
		if r.ID == runID {
			return r, true
		}
	}
	return nil, false
}

// Runs returns all runs in creation order.
func (t *Thread) Runs() []*core.Run {
	t.stateMu.Lock()
	defer t.stateMu.Unlock()
	out := make([]*core.Run, len(t.runs))
	copy(out, t.runs)
	return out
}

// CurrentRun returns the most recent run, or nil before the first message.
func (t *Thread) CurrentRun() *core.Run {
	t.stateMu.Lock()
	defer t.stateMu.Unlock()
	if len(t.runs) == 0 {
		return nil
	}
	return t.runs[len(t.runs)-1]
}

// History returns the thread's most recent messages, capped at limit when
// limit > 0, in chronological order.
func (t *Thread) History(limit int) []core.Message {
	return t.memory.Messages(memory.Filter{ThreadID: t.id, Limit: limit})
}

// ContextWindow returns the trailing n messages the agent would see.
func (t *Thread) ContextWindow(n int) []core.Message {
	if n < 1 {
		n = t.agent.ContextWindow()
	}
	return t.memory.Messages(memory.Filter{ThreadID: t.id, Limit: n})
}

func (t *Thread) appendRun(run *core.Run) {
	t.stateMu.Lock()
	defer t.stateMu.Unlock()
	t.runs = append(t.runs, run)
}

func (t *Thread) touch() {
	t.stateMu.Lock()
	defer t.stateMu.Unlock()
	t.lastMessageAt = time.Now()
}
