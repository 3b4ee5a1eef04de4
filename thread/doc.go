// Package thread implements the conversation container that drives runs: one
// thread owns one agent binding, an ordered history in shared memory and the
// run records produced by processing messages. A thread processes at most one
// message at a time, so it never has more than one non-terminal run.
package thread
