// Package recovery implements the stall & recovery controller (§4.3):
// a per-running-lane state machine, polled by the scheduler every tick,
// that nudges an idle lane via its intervention side channel, restarts
// it if the nudge goes unanswered, and gives up once a lane has been
// restarted more times than its configured bound.
package recovery
