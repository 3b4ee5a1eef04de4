package agent

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/hupe1980/agentswarm/core"
	"github.com/hupe1980/agentswarm/logging"
	"github.com/hupe1980/agentswarm/model"
	"github.com/hupe1980/agentswarm/tool"
)

const (
	// DefaultMaxIterations bounds the tool-call loop per run.
	DefaultMaxIterations = 10
	// DefaultContextWindow is the number of trailing history messages sent to
	// the model.
	DefaultContextWindow = 20
)

// Options configures an Agent instance.
//
// Use functional options with New to override defaults.
type Options struct {
	SystemPrompt  string
	MaxIterations int
	ContextWindow int
	Tools         []tool.Tool
	Logger        logging.Logger
}

// Agent binds a model to a system prompt and a tool registry. It is the
// stateless "how to respond" template: conversation state lives in threads
// and memory, so one agent may serve many threads concurrently.
type Agent struct {
	name          string
	model         model.Model
	systemPrompt  string
	maxIterations int
	contextWindow int
	logger        logging.Logger

	mu    sync.RWMutex
	tools map[string]tool.Tool
}

// New creates an agent with sensible defaults: a generic assistant prompt,
// ten loop iterations and a twenty-message context window.
func New(name string, m model.Model, optFns ...func(o *Options)) *Agent {
	opts := Options{
		SystemPrompt:  fmt.Sprintf("You are %s, a helpful AI assistant.", name),
		MaxIterations: DefaultMaxIterations,
		ContextWindow: DefaultContextWindow,
		Logger:        logging.NewNoOpLogger(),
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.MaxIterations < 1 {
		opts.MaxIterations = DefaultMaxIterations
	}
	if opts.ContextWindow < 1 {
		opts.ContextWindow = DefaultContextWindow
	}

	a := &Agent{
		name:          name,
		model:         m,
		systemPrompt:  opts.SystemPrompt,
		maxIterations: opts.MaxIterations,
		contextWindow: opts.ContextWindow,
		logger:        opts.Logger,
		tools:         make(map[string]tool.Tool),
	}
	for _, t := range opts.Tools {
		a.tools[t.Name()] = t
	}
	return a
}

// Name returns the agent's unique name.
func (a *Agent) Name() string { return a.name }

// Model returns the bound model.
func (a *Agent) Model() model.Model { return a.model }

// SystemPrompt returns the instructions sent with every model request.
func (a *Agent) SystemPrompt() string { return a.systemPrompt }

// MaxIterations returns the per-run tool-call loop bound.
func (a *Agent) MaxIterations() int { return a.maxIterations }

// ContextWindow returns the history truncation bound in messages.
func (a *Agent) ContextWindow() int { return a.contextWindow }

// RegisterTool adds a tool to the agent's capability set. Registering a
// second tool under an existing name is rejected.
func (a *Agent) RegisterTool(t tool.Tool) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, exists := a.tools[t.Name()]; exists {
		return fmt.Errorf("tool %q already registered", t.Name())
	}
	a.tools[t.Name()] = t
	return nil
}

// RegisterTools adds multiple tools, stopping at the first duplicate.
func (a *Agent) RegisterTools(tools ...tool.Tool) error {
	for _, t := range tools {
		if err := a.RegisterTool(t); err != nil {
			return err
		}
	}
	return nil
}

// HasTool reports whether a tool is registered under name.
func (a *Agent) HasTool(name string) bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	_, exists := a.tools[name]
	return exists
}

// Tool returns the registered tool under name.
func (a *Agent) Tool(name string) (tool.Tool, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	t, exists := a.tools[name]
	return t, exists
}

// ListTools returns all registered tool names, sorted.
func (a *Agent) ListTools() []string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	names := make([]string, 0, len(a.tools))
	for name := range a.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ToolDefinitions builds the unified function declarations announced to the
// model, in sorted name order for deterministic requests.
func (a *Agent) ToolDefinitions() []model.ToolDefinition {
	a.mu.RLock()
	defer a.mu.RUnlock()

	names := make([]string, 0, len(a.tools))
	for name := range a.tools {
		names = append(names, name)
	}
	sort.Strings(names)

	defs := make([]model.ToolDefinition, 0, len(names))
	for _, name := range names {
		t := a.tools[name]
		defs = append(defs, model.ToolDefinition{
			Type: "function",
			Function: model.FunctionDefinition{
				Name:        t.Name(),
				Description: t.Description(),
				Parameters:  t.Parameters(),
			},
		})
	}
	return defs
}

// Decide asks the model for the next step given the conversation so far.
// History is truncated to the trailing ContextWindow messages; transport
// failures are wrapped in *core.ModelInvocationError and malformed replies
// surface as *core.ResponseParsingError.
func (a *Agent) Decide(ctx context.Context, history []core.Message) (*model.Response, error) {
	window := history
	if len(window) > a.contextWindow {
		window = window[len(window)-a.contextWindow:]
	}

	req := model.Request{
		Instructions: a.systemPrompt,
		Messages:     window,
		Tools:        a.ToolDefinitions(),
	}

	a.logger.Debug("agent.decide", "agent", a.name, "messages", len(window), "tools", len(req.Tools))

	resp, err := a.model.Invoke(ctx, req)
	if err != nil {
		var invocationErr *core.ModelInvocationError
		var parseErr *core.ResponseParsingError
		if errors.As(err, &invocationErr) || errors.As(err, &parseErr) {
			return nil, err
		}
		return nil, &core.ModelInvocationError{Cause: err}
	}
	if resp == nil {
		return nil, &core.ResponseParsingError{Reason: "model returned no response"}
	}
	if err := resp.Validate(); err != nil {
		return nil, err
	}
	return resp, nil
}
