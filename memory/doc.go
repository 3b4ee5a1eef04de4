// Package memory provides the conversation store shared across agents. Each
// thread owns an append-only, bounded message history with oldest-first
// eviction; a SharedState scratchpad carries key/value data between agents
// independently of message retention.
package memory
