package scheduler

import (
	"context"
	"time"

	"github.com/hugo-lorenzo-mato/cursorflow/internal/core"
	"github.com/hugo-lorenzo-mato/cursorflow/internal/supervisor"
)

// Spawner is the narrow slice of internal/supervisor.Supervisor the
// scheduler depends on. Defined locally so tests can substitute a fake
// without starting real child processes.
type Spawner interface {
	Spawn(ctx context.Context, runRoot string, lane *core.Lane, startIndex int, opts supervisor.SpawnOptions) (*supervisor.Handle, error)
	Wait(ctx context.Context, h *supervisor.Handle) int
	Signal(h *supervisor.Handle, kind supervisor.SignalKind) error
	ActivityTimestamp(h *supervisor.Handle) time.Time
}

// StallController is the narrow slice of a recovery controller the
// scheduler depends on. A running lane is registered when it starts and
// unregistered once its exit has been reconciled; Tick lets the
// controller act on idle lanes between exits. ConsumedRestart tells the
// scheduler whether a given lane's most recent exit was the
// controller's own kill-for-restart rather than an organic failure, so
// exit handling does not mark it failed (§4.3).
type StallController interface {
	Track(laneName string, handle *supervisor.Handle)
	Untrack(laneName string)
	Tick(now time.Time)
	ConsumedRestart(laneName string) bool
}

// nopStallController is used when the scheduler is built without a
// recovery controller wired in (e.g. unit tests exercising readiness
// and exit handling in isolation).
type nopStallController struct{}

func (nopStallController) Track(string, *supervisor.Handle) {}
func (nopStallController) Untrack(string)                  {}
func (nopStallController) Tick(time.Time)                  {}
func (nopStallController) ConsumedRestart(string) bool     { return false }

// ResolutionLane pairs a lane's static configuration with its current
// run state for every lane still in play when a resolution runs (not
// completed or failed) — the resolver unions change/command lists over
// the Blocked subset but syncs the pipeline branch into every lane's
// task branch, per step 6 of §4.4.
type ResolutionLane struct {
	Lane    *core.Lane
	State   *core.LaneRunState
	Blocked bool
}

// Resolver is the narrow slice of a dependency resolver the scheduler
// triggers once running is empty, blocked is non-empty, and
// auto-resolve is enabled (§4.4). Resolve returns the set of lane names
// it successfully unblocked; any lane not in that set is left blocked.
type Resolver interface {
	Resolve(ctx context.Context, lanes []ResolutionLane) (resolved []string, err error)
}
