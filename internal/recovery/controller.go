package recovery

import (
	"sync"
	"time"

	"github.com/hugo-lorenzo-mato/cursorflow/internal/config"
	"github.com/hugo-lorenzo-mato/cursorflow/internal/events"
	"github.com/hugo-lorenzo-mato/cursorflow/internal/logging"
	"github.com/hugo-lorenzo-mato/cursorflow/internal/supervisor"
)

// InterventionContinue is the text written to a stalled lane's
// intervention.txt on the first threshold breach.
const InterventionContinue = "continue"

// stallPhase mirrors the states named in §4.3.
type stallPhase int

const (
	phaseNormal stallPhase = iota
	phaseNudged
	phaseRestarting
	phaseAborting
)

type laneStall struct {
	handle   *supervisor.Handle
	phase    stallPhase
	nudgedAt time.Time
}

// Controller tracks every currently running lane's idle time and drives
// it through the nudge → restart → abort state machine. It implements
// internal/scheduler.StallController by structural match (Track/
// Untrack/Tick/ConsumedRestart) without importing that package.
type Controller struct {
	sup    Signaler
	cfg    config.RecoveryConfig
	bus    *events.EventBus
	logger *logging.Logger
	runID  string

	mu             sync.Mutex
	lanes          map[string]*laneStall
	restartCounts  map[string]int  // persists across restarts within one run
	pendingRestart map[string]bool // set when a kill-for-restart was just issued
}

// New builds a Controller for one run. Zero-valued threshold/bound
// fields in cfg fall back to the spec's documented defaults.
func New(runID string, cfg config.RecoveryConfig, sup Signaler, bus *events.EventBus, logger *logging.Logger) *Controller {
	if cfg.ContinueThreshold <= 0 {
		cfg.ContinueThreshold = 3 * time.Minute
	}
	if cfg.RestartThreshold <= 0 {
		cfg.RestartThreshold = 5 * time.Minute
	}
	if cfg.RestartBound <= 0 {
		cfg.RestartBound = 2
	}
	if bus == nil {
		bus = events.New(0)
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Controller{
		sup:            sup,
		cfg:            cfg,
		bus:            bus,
		logger:         logger.WithRun(runID),
		runID:          runID,
		lanes:          make(map[string]*laneStall),
		restartCounts:  make(map[string]int),
		pendingRestart: make(map[string]bool),
	}
}

// Track begins stall tracking for a freshly started lane, a new process
// epoch that always starts at phase 0 regardless of any prior epoch's
// phase — only restartCount carries across epochs.
func (c *Controller) Track(laneName string, handle *supervisor.Handle) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lanes[laneName] = &laneStall{handle: handle, phase: phaseNormal}
}

// Untrack stops stall tracking for a lane whose exit the scheduler has
// just reconciled. Any pending-restart flag survives Untrack — the
// scheduler reads it via ConsumedRestart independently.
func (c *Controller) Untrack(laneName string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.lanes, laneName)
}

// ConsumedRestart reports and clears whether laneName's most recent
// kill was this controller's own restart-kill (phase 1 → 2), as opposed
// to an abort-kill (phase 1 → 3, restart bound exceeded) or an organic
// exit the controller never touched.
func (c *Controller) ConsumedRestart(laneName string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pendingRestart[laneName] {
		delete(c.pendingRestart, laneName)
		return true
	}
	return false
}

// Tick evaluates every tracked lane's idle time against the
// CONTINUE_THRESHOLD / RESTART_THRESHOLD transitions.
func (c *Controller) Tick(now time.Time) {
	c.mu.Lock()
	names := make([]string, 0, len(c.lanes))
	for name := range c.lanes {
		names = append(names, name)
	}
	c.mu.Unlock()

	for _, name := range names {
		c.tickLane(name, now)
	}
}

func (c *Controller) tickLane(name string, now time.Time) {
	c.mu.Lock()
	ls, ok := c.lanes[name]
	if !ok {
		c.mu.Unlock()
		return
	}
	handle, phase, nudgedAt := ls.handle, ls.phase, ls.nudgedAt
	c.mu.Unlock()

	switch phase {
	case phaseNormal:
		idle := now.Sub(c.sup.ActivityTimestamp(handle))
		if idle <= c.cfg.ContinueThreshold {
			return
		}
		if err := c.sup.WriteIntervention(handle, InterventionContinue); err != nil {
			c.logger.Warn("writing stall intervention", "lane", name, "error", err)
		}
		c.mu.Lock()
		if cur, ok := c.lanes[name]; ok && cur.phase == phaseNormal {
			cur.phase = phaseNudged
			cur.nudgedAt = now
		}
		c.mu.Unlock()
		c.bus.Publish(events.NewStallNudgedEvent(c.runID, name, idle))
		c.logger.Warn("lane stalled, sent continue intervention", "lane", name, "idleFor", idle)

	case phaseNudged:
		if now.Sub(nudgedAt) <= c.cfg.RestartThreshold {
			return
		}
		c.mu.Lock()
		count := c.restartCounts[name]
		aborting := count >= c.cfg.RestartBound
		if aborting {
			if cur, ok := c.lanes[name]; ok {
				cur.phase = phaseAborting
			}
		} else {
			c.restartCounts[name] = count + 1
			c.pendingRestart[name] = true
			if cur, ok := c.lanes[name]; ok {
				cur.phase = phaseRestarting
			}
		}
		c.mu.Unlock()

		if err := c.sup.Signal(handle, supervisor.SignalKill); err != nil {
			c.logger.Warn("signaling stalled lane", "lane", name, "error", err)
		}
		if aborting {
			c.bus.Publish(events.NewStallAbortedEvent(c.runID, name, count))
			c.logger.Error("lane exceeded restart bound, aborting", "lane", name, "restartCount", count)
		} else {
			c.bus.Publish(events.NewStallRestartedEvent(c.runID, name, count+1))
			c.logger.Warn("lane stalled past restart threshold, restarting", "lane", name, "restartCount", count+1)
		}

	case phaseRestarting, phaseAborting:
		// Kill already sent this epoch; waiting for the scheduler to
		// observe the exit and call Untrack.
	}
}
