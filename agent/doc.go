// Package agent defines the reusable "how to respond" template: a model
// binding, a system prompt, a tool registry and the loop limits. Agents hold
// no conversation state and may serve any number of threads concurrently.
package agent
