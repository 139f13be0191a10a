// Package supervisor owns exactly one running child process for one
// lane at a time: it builds the child's argument vector, starts it
// with stdout/stderr piped through a caller-supplied Parser, persists
// the well-known intervention side channel, and reports exit. It holds
// no scheduling policy — readiness, stall thresholds and dependency
// resolution all live above it.
package supervisor
