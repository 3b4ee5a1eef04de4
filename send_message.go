package agentswarm

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/hupe1980/agentswarm/tool"
)

// SendMessageToolName is the name under which inter-agent messaging is
// exposed to the model.
const SendMessageToolName = "send_message"

// sendMessageTool routes a message to another registered agent and returns
// that agent's final response. Each recipient gets its own conversation
// thread, reused across sends so follow-up messages keep their context.
type sendMessageTool struct {
	agency     *Agency
	recipients []string

	mu      sync.Mutex
	threads map[string]string
}

var _ tool.Tool = (*sendMessageTool)(nil)

// NewSendMessageTool creates a tool that lets the agent it is registered on
// delegate work to the given recipient agents. The recipient names become the
// tool's valid enum values. Register it on individual agents for asymmetric
// topologies, or call Agency.EnableMessaging to wire every agent at once.
func NewSendMessageTool(a *Agency, recipients ...string) tool.Tool {
	return &sendMessageTool{
		agency:     a,
		recipients: recipients,
		threads:    make(map[string]string),
	}
}

func (t *sendMessageTool) Name() string { return SendMessageToolName }

func (t *sendMessageTool) Description() string {
	return fmt.Sprintf(
		"Send a message to another agent and wait for its response. Valid recipients: %s.",
		strings.Join(t.recipients, ", "),
	)
}

func (t *sendMessageTool) Parameters() map[string]any {
	enum := make([]any, 0, len(t.recipients))
	for _, r := range t.recipients {
		enum = append(enum, r)
	}
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"recipient": map[string]any{
				"type":        "string",
				"description": "Name of the agent to send the message to",
				"enum":        enum,
			},
			"message": map[string]any{
				"type":        "string",
				"description": "The message to deliver",
			},
		},
		"required": []string{"recipient", "message"},
	}
}

// Execute delivers the message on the recipient's thread and blocks until the
// recipient's run finishes. A failing recipient surfaces as a recoverable
// tool error, so the sender's model sees the failure and can react.
func (t *sendMessageTool) Execute(ctx context.Context, args map[string]any) (string, error) {
	recipient, _ := args["recipient"].(string)
	message, _ := args["message"].(string)

	t.mu.Lock()
	threadID := t.threads[recipient]
	t.mu.Unlock()

	th, err := t.agency.resolveThread(recipient, threadID)
	if err != nil {
		return "", tool.NewToolError(SendMessageToolName, err.Error(), tool.CodeExecutionError)
	}

	t.mu.Lock()
	t.threads[recipient] = th.ID()
	t.mu.Unlock()

	response, err := t.agency.process(ctx, th, message)
	if err != nil {
		msg := fmt.Sprintf("agent %q failed: %v", recipient, err)
		return "", tool.NewToolError(SendMessageToolName, msg, tool.CodeExecutionError)
	}
	return response, nil
}

// EnableMessaging registers a send_message tool on every registered agent,
// with all other registered agents as valid recipients. Call it after agent
// registration. Agents that already carry a send_message tool and agents
// without peers are left untouched.
func (a *Agency) EnableMessaging() error {
	names := a.AgentNames()
	for _, name := range names {
		peers := make([]string, 0, len(names)-1)
		for _, other := range names {
			if other != name {
				peers = append(peers, other)
			}
		}
		if len(peers) == 0 {
			continue
		}

		ag, _ := a.Agent(name)
		if ag.HasTool(SendMessageToolName) {
			continue
		}
		if err := ag.RegisterTool(NewSendMessageTool(a, peers...)); err != nil {
			return err
		}
		a.logger.Debug("messaging enabled", "agent", name, "recipients", len(peers))
	}
	return nil
}
