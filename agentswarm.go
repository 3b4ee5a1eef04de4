// Package agentswarm provides a high-level façade for building multi-agent
// LLM systems with shared memory and full execution tracing. Most
// applications interact with this package by:
//  1. Creating an Agency via New() (optionally overriding the in-memory services)
//  2. Registering one or more agents (model binding, system prompt, tools)
//  3. Sending user messages with ProcessRequest and inspecting results via
//     EventTrace, Events and Memory
//
// The façade delegates run orchestration to thread.Thread while keeping setup
// and usage ergonomics concise. All defaults are safe for local development
// and testing; production deployments typically supply a structured logger.
package agentswarm

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/agentswarm/agent"
	"github.com/hupe1980/agentswarm/event"
	"github.com/hupe1980/agentswarm/logging"
	"github.com/hupe1980/agentswarm/memory"
	"github.com/hupe1980/agentswarm/thread"
)

// ErrAgentNotFound is returned when a request names an unregistered agent.
var ErrAgentNotFound = errors.New("agent not found")

// ErrThreadNotFound is returned when a request names an unknown thread.
var ErrThreadNotFound = errors.New("thread not found")

// Options configures the Agency instance.
type Options struct {
	// Memory is the conversation store shared by all threads. Defaults to an
	// in-memory store bounded by MaxMessages.
	Memory *memory.Store

	// Events is the shared execution trace. Defaults to a fresh in-memory
	// event system.
	Events *event.System

	// MaxMessages bounds each thread's history when the default store is
	// used. Ignored when Memory is supplied.
	MaxMessages int

	// Logger (defaults to NoOp logger if nil)
	Logger logging.Logger
}

// Request describes one unit of work for ProcessAll.
type Request struct {
	Message   string
	AgentName string
	ThreadID  string
}

// Result carries the outcome of one ProcessAll request, in input order.
type Result struct {
	ThreadID string
	Response string
}

// Agency is the top-level container coordinating agents, threads, shared
// memory and the event trace.
type Agency struct {
	mu      sync.RWMutex
	agents  map[string]*agent.Agent
	threads map[string]*thread.Thread

	events *event.System
	memory *memory.Store
	logger logging.Logger
}

// New creates an Agency. Any unset service is initialized with an in-memory
// implementation.
func New(optFns ...func(o *Options)) *Agency {
	opts := Options{
		MaxMessages: memory.DefaultMaxSize,
		Logger:      logging.NewNoOpLogger(),
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.Memory == nil {
		opts.Memory = memory.New(func(o *memory.Options) {
			o.MaxSize = opts.MaxMessages
			o.Logger = opts.Logger
		})
	}
	if opts.Events == nil {
		opts.Events = event.New(func(o *event.Options) {
			o.Logger = opts.Logger
		})
	}

	return &Agency{
		agents:  make(map[string]*agent.Agent),
		threads: make(map[string]*thread.Thread),
		events:  opts.Events,
		memory:  opts.Memory,
		logger:  opts.Logger,
	}
}

// RegisterAgent adds an agent under its unique name. Registering a second
// agent under an existing name is rejected.
func (a *Agency) RegisterAgent(ag *agent.Agent) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, exists := a.agents[ag.Name()]; exists {
		return fmt.Errorf("agent %q already registered", ag.Name())
	}
	a.agents[ag.Name()] = ag
	a.logger.Info("agent registered", "agent", ag.Name(), "tools", len(ag.ListTools()))
	return nil
}

// Agent returns the registered agent under name.
func (a *Agency) Agent(name string) (*agent.Agent, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	ag, exists := a.agents[name]
	return ag, exists
}

// AgentNames returns all registered agent names, sorted.
func (a *Agency) AgentNames() []string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	names := make([]string, 0, len(a.agents))
	for name := range a.agents {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// CreateThread creates a new thread bound to the named agent.
func (a *Agency) CreateThread(agentName string) (*thread.Thread, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	ag, exists := a.agents[agentName]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrAgentNotFound, agentName)
	}

	th := thread.New(ag, a.memory, a.events, func(o *thread.Options) {
		o.Logger = a.logger
	})
	a.threads[th.ID()] = th
	a.logger.Debug("thread created", "threadID", th.ID(), "agent", agentName)
	return th, nil
}

// Thread returns the thread with the given id.
func (a *Agency) Thread(threadID string) (*thread.Thread, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	th, exists := a.threads[threadID]
	return th, exists
}

// ThreadIDs returns the ids of all threads, sorted.
func (a *Agency) ThreadIDs() []string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	ids := make([]string, 0, len(a.threads))
	for id := range a.threads {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// ProcessRequest routes a user message to the named agent. An empty threadID
// creates a fresh thread; otherwise the message continues the existing
// conversation, which must belong to the named agent. Returns the final
// response text.
func (a *Agency) ProcessRequest(ctx context.Context, message, agentName, threadID string) (string, error) {
	th, err := a.resolveThread(agentName, threadID)
	if err != nil {
		return "", err
	}
	return a.process(ctx, th, message)
}

// process hands a message to the thread, framing the handoff with
// message_sent and message_received events. The framing events carry no run
// id; the run does not exist until the thread starts it.
func (a *Agency) process(ctx context.Context, th *thread.Thread, message string) (string, error) {
	a.events.Create(event.TypeMessageSent, th.Agent().Name(), "", th.ID(), map[string]any{
		"content_length": len(message),
	}, nil)

	response, err := th.ProcessMessage(ctx, message)
	if err != nil {
		return "", err
	}

	a.events.Create(event.TypeMessageReceived, th.Agent().Name(), "", th.ID(), map[string]any{
		"content_length": len(response),
	}, nil)
	return response, nil
}

// ProcessAll fans requests out across their threads with errgroup and waits
// for every run to finish. Results arrive in input order; the first error
// cancels the remaining context but each thread still serializes its own
// messages.
func (a *Agency) ProcessAll(ctx context.Context, requests []Request) ([]Result, error) {
	results := make([]Result, len(requests))

	g, ctx := errgroup.WithContext(ctx)
	for i, req := range requests {
		i, req := i, req
		th, err := a.resolveThread(req.AgentName, req.ThreadID)
		if err != nil {
			return nil, err
		}
		g.Go(func() error {
			response, err := a.process(ctx, th, req.Message)
			if err != nil {
				return err
			}
			results[i] = Result{ThreadID: th.ID(), Response: response}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func (a *Agency) resolveThread(agentName, threadID string) (*thread.Thread, error) {
	if threadID == "" {
		return a.CreateThread(agentName)
	}

	a.mu.RLock()
	th, exists := a.threads[threadID]
	a.mu.RUnlock()
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrThreadNotFound, threadID)
	}
	if agentName != "" && th.Agent().Name() != agentName {
		return nil, fmt.Errorf("thread %s belongs to agent %q, not %q", threadID, th.Agent().Name(), agentName)
	}
	return th, nil
}

// CancelRun requests cancellation of a run on the given thread. Returns false
// for unknown threads, unknown runs and already terminal runs.
func (a *Agency) CancelRun(threadID, runID string) bool {
	th, exists := a.Thread(threadID)
	if !exists {
		return false
	}
	return th.CancelRun(runID)
}

// EventTrace renders the recorded events matching the given run and/or
// thread as a readable multi-line trace. Empty selectors match everything.
// Available after failures too, so partial progress stays inspectable.
func (a *Agency) EventTrace(runID, threadID string) string {
	events := a.events.Events(event.Filter{RunID: runID, ThreadID: threadID})
	lines := make([]string, 0, len(events))
	for _, e := range events {
		lines = append(lines, event.Format(e))
	}
	return strings.Join(lines, "\n")
}

// Events returns the shared event system.
func (a *Agency) Events() *event.System { return a.events }

// Memory returns the shared conversation store.
func (a *Agency) Memory() *memory.Store { return a.memory }
