package event

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/hupe1980/agentswarm/core"
	"github.com/hupe1980/agentswarm/logging"
)

// Type classifies an event in the execution trace.
type Type string

const (
	// TypeRunStart marks the beginning of a run.
	TypeRunStart Type = "run_start"
	// TypeRunComplete marks successful completion of a run.
	TypeRunComplete Type = "run_complete"
	// TypeAgentStart marks the beginning of a model invocation cycle.
	TypeAgentStart Type = "agent_start"
	// TypeAgentComplete marks the end of a model invocation cycle.
	TypeAgentComplete Type = "agent_complete"
	// TypeToolStart marks the beginning of a single tool execution.
	TypeToolStart Type = "tool_start"
	// TypeToolComplete marks a successful tool execution.
	TypeToolComplete Type = "tool_complete"
	// TypeToolError marks a recoverable tool failure fed back to the model.
	TypeToolError Type = "tool_error"
	// TypeMessageSent marks a message handed to a model or agent.
	TypeMessageSent Type = "message_sent"
	// TypeMessageReceived marks a message produced by a model or agent.
	TypeMessageReceived Type = "message_received"
	// TypeError marks an unrecoverable failure, or an event whose requested
	// type was not recognized.
	TypeError Type = "error"
)

var validTypes = map[Type]struct{}{
	TypeRunStart:        {},
	TypeRunComplete:     {},
	TypeAgentStart:      {},
	TypeAgentComplete:   {},
	TypeToolStart:       {},
	TypeToolComplete:    {},
	TypeToolError:       {},
	TypeMessageSent:     {},
	TypeMessageReceived: {},
	TypeError:           {},
}

// Event is one immutable entry in the execution trace. ParentEventID is empty
// for root events.
type Event struct {
	ID            string         `json:"id"`
	Type          Type           `json:"type"`
	Timestamp     time.Time      `json:"timestamp"`
	AgentName     string         `json:"agent_name,omitempty"`
	RunID         string         `json:"run_id,omitempty"`
	ThreadID      string         `json:"thread_id,omitempty"`
	ParentEventID string         `json:"parent_event_id,omitempty"`
	Details       map[string]any `json:"details,omitempty"`
	Metadata      map[string]any `json:"metadata,omitempty"`
}

// Clone returns a deep copy safe to hand out.
func (e Event) Clone() Event {
	out := e
	if e.Details != nil {
		out.Details = make(map[string]any, len(e.Details))
		for k, v := range e.Details {
			out.Details[k] = v
		}
	}
	if e.Metadata != nil {
		out.Metadata = make(map[string]any, len(e.Metadata))
		for k, v := range e.Metadata {
			out.Metadata[k] = v
		}
	}
	return out
}

// Filter selects events by exact-match criteria. Zero-value fields match
// everything; set fields are combined with AND.
type Filter struct {
	RunID     string
	ThreadID  string
	AgentName string
	Type      Type
}

func (f Filter) matches(e Event) bool {
	if f.RunID != "" && e.RunID != f.RunID {
		return false
	}
	if f.ThreadID != "" && e.ThreadID != f.ThreadID {
		return false
	}
	if f.AgentName != "" && e.AgentName != f.AgentName {
		return false
	}
	if f.Type != "" && e.Type != f.Type {
		return false
	}
	return true
}

// Options configures the event system.
type Options struct {
	Logger logging.Logger
}

// System is the append-only event log. Scope stacks are kept per run so
// concurrent threads cannot mis-parent each other's events.
type System struct {
	mu     sync.Mutex
	events []Event
	index  map[string]int
	scopes map[string][]string
	logger logging.Logger
}

// New creates an empty event system.
func New(optFns ...func(o *Options)) *System {
	opts := Options{
		Logger: logging.NewNoOpLogger(),
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &System{
		index:  make(map[string]int),
		scopes: make(map[string][]string),
		logger: opts.Logger,
	}
}

// Create appends an event and returns its id. Creation never fails: an
// unrecognized type is recorded as TypeError with the requested type preserved
// in Details under "original_type". If a scope is open for the run, the new
// event becomes a child of the scope's event.
func (s *System) Create(typ Type, agentName, runID, threadID string, details, metadata map[string]any) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := validTypes[typ]; !ok {
		s.logger.Warn("unknown event type recorded as error", "type", string(typ))
		if details == nil {
			details = map[string]any{}
		} else {
			copied := make(map[string]any, len(details)+1)
			for k, v := range details {
				copied[k] = v
			}
			details = copied
		}
		details["original_type"] = string(typ)
		typ = TypeError
	}

	e := Event{
		ID:        core.NewID(),
		Type:      typ,
		Timestamp: time.Now(),
		AgentName: agentName,
		RunID:     runID,
		ThreadID:  threadID,
		Details:   details,
		Metadata:  metadata,
	}
	if stack := s.scopes[runID]; len(stack) > 0 {
		e.ParentEventID = stack[len(stack)-1]
	}

	s.index[e.ID] = len(s.events)
	s.events = append(s.events, e.Clone())

	return e.ID
}

// StartScope pushes the event onto its run's scope stack. Subsequent events
// for the same run become children of it until EndScope. Unknown event ids
// are a logged no-op.
func (s *System) StartScope(eventID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx, ok := s.index[eventID]
	if !ok {
		s.logger.Warn("start scope for unknown event", "eventID", eventID)
		return
	}
	runID := s.events[idx].RunID
	s.scopes[runID] = append(s.scopes[runID], eventID)
}

// EndScope pops the run's scope stack. Popping an empty stack is a logged
// no-op. The run's entry is dropped once its last scope closes so the map
// does not grow with run count.
func (s *System) EndScope(runID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stack := s.scopes[runID]
	if len(stack) == 0 {
		s.logger.Warn("end scope on empty scope stack", "runID", runID)
		return
	}
	if len(stack) == 1 {
		delete(s.scopes, runID)
		return
	}
	s.scopes[runID] = stack[:len(stack)-1]
}

// Event returns the event with the given id, if recorded.
func (s *System) Event(eventID string) (Event, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx, ok := s.index[eventID]
	if !ok {
		return Event{}, false
	}
	return s.events[idx].Clone(), true
}

// Events returns all matching events in creation order. The returned events
// are copies; querying does not mutate the log.
func (s *System) Events(f Filter) []Event {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Event, 0, len(s.events))
	for _, e := range s.events {
		if f.matches(e) {
			out = append(out, e.Clone())
		}
	}
	return out
}

// Chain returns the causality chain for an event, ordered root first. An
// unknown id yields an empty chain.
func (s *System) Chain(eventID string) []Event {
	s.mu.Lock()
	defer s.mu.Unlock()

	var chain []Event
	id := eventID
	for id != "" {
		idx, ok := s.index[id]
		if !ok {
			break
		}
		e := s.events[idx]
		chain = append(chain, e.Clone())
		id = e.ParentEventID
	}

	// Reverse from leaf-first to root-first.
	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}
	return chain
}

// Clear discards all events and scope state.
func (s *System) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.events = nil
	s.index = make(map[string]int)
	s.scopes = make(map[string][]string)
}

// Format renders a single event as a human-readable trace line.
func Format(e Event) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s", e.Timestamp.Format("15:04:05.000"), strings.ToUpper(string(e.Type)))
	if e.AgentName != "" {
		fmt.Fprintf(&b, " - Agent: %s", e.AgentName)
	}
	if len(e.Details) > 0 {
		keys := make([]string, 0, len(e.Details))
		for k := range e.Details {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, 0, len(keys))
		for _, k := range keys {
			parts = append(parts, fmt.Sprintf("%s=%v", k, e.Details[k]))
		}
		fmt.Fprintf(&b, " (%s)", strings.Join(parts, ", "))
	}
	return b.String()
}

// FormatChain renders the causality chain of an event, one line per event,
// indented by depth from the root.
func (s *System) FormatChain(eventID string) string {
	chain := s.Chain(eventID)
	lines := make([]string, 0, len(chain))
	for depth, e := range chain {
		lines = append(lines, strings.Repeat("  ", depth)+Format(e))
	}
	return strings.Join(lines, "\n")
}
