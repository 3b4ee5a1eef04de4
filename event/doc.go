// Package event records the execution trace of runs as an append-only event
// log with parent/child causality. Scopes link events hierarchically: while a
// scope is open for a run, every event created for that run becomes a child of
// the scope's event. The log is process local and safe for concurrent use.
package event
