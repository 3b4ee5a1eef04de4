// Package core defines the shared value types of the AgentSwarm orchestration
// layer: conversation messages, the run state machine, tool call records and
// the typed errors produced while driving a run. Higher level packages
// (memory, event, agent, thread) build on these records; core itself depends
// on nothing but the standard library and the id generator.
package core
