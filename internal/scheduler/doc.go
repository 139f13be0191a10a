// Package scheduler decides, on each tick, which lanes are ready to
// start, hands ready lanes to a Spawner, and reconciles lane exits into
// the run's {running, completed, failed, blocked} bookkeeping. It owns
// no process I/O itself — internal/supervisor does that — and no
// stall/recovery timing — that is the recovery controller's job,
// consulted here only through the narrow StallController port.
package scheduler
