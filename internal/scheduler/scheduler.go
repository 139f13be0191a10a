package scheduler

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/hugo-lorenzo-mato/cursorflow/internal/core"
	"github.com/hugo-lorenzo-mato/cursorflow/internal/events"
	"github.com/hugo-lorenzo-mato/cursorflow/internal/logging"
	"github.com/hugo-lorenzo-mato/cursorflow/internal/supervisor"
)

// Options configures a Scheduler for one run.
type Options struct {
	RunID        string
	RunDir       string
	Concurrency  int
	AutoResolve  bool
	SpawnOptions func(lane *core.Lane) supervisor.SpawnOptions
}

// exitResult is what a lane's background wait goroutine reports back
// to the single tick loop once its child has exited.
type exitResult struct {
	laneName string
	code     int
}

// Scheduler decides which lanes to start each tick and reconciles exits
// into the run's membership sets (§4.2). All mutation of scheduler
// state happens on the goroutine that calls Run/Tick — exit results
// arrive over exitCh so a background wait never races the tick loop.
type Scheduler struct {
	opts     Options
	lanes    core.Lanes
	spawner  Spawner
	stall    StallController
	resolver Resolver
	bus      *events.EventBus
	clock    core.Clock
	logger   *logging.Logger

	metrics schedulerMetrics

	mu         sync.Mutex
	sets       laneSets
	states     map[string]*core.LaneRunState
	handles    map[string]*supervisor.Handle
	startIndex map[string]int

	exitCh chan exitResult
	done   chan struct{}
}

// New builds a Scheduler for one run over the given lane set. stall and
// resolver may be nil; a nil stall controller disables stall tracking,
// a nil resolver disables auto-resolution regardless of opts.AutoResolve.
func New(opts Options, lanes core.Lanes, spawner Spawner, stall StallController, resolver Resolver, bus *events.EventBus, clock core.Clock, logger *logging.Logger) *Scheduler {
	if opts.Concurrency <= 0 {
		opts.Concurrency = 1
	}
	if stall == nil {
		stall = nopStallController{}
	}
	if clock == nil {
		clock = core.SystemClock{}
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	if bus == nil {
		bus = events.New(0)
	}
	states := make(map[string]*core.LaneRunState, len(lanes))
	for name, lane := range lanes {
		states[name] = core.NewLaneRunState(lane)
	}
	return &Scheduler{
		opts:       opts,
		lanes:      lanes,
		spawner:    spawner,
		stall:      stall,
		resolver:   resolver,
		bus:        bus,
		clock:      clock,
		logger:     logger.WithRun(opts.RunID),
		metrics:    newSchedulerMetrics(),
		sets:       newLaneSets(),
		states:     states,
		handles:    make(map[string]*supervisor.Handle),
		startIndex: make(map[string]int),
		exitCh:     make(chan exitResult, len(lanes)),
		done:       make(chan struct{}),
	}
}

// Snapshot returns a point-in-time copy of every lane's run state,
// suitable for internal/core.StatusPublisher.
func (s *Scheduler) Snapshot() []core.LaneRunState {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.LaneRunState, 0, len(s.states))
	for _, st := range s.states {
		out = append(out, *st)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LaneName < out[j].LaneName })
	return out
}

// ReportTaskProgress is called by whatever observes task boundaries
// within a still-running lane's output (the log parser, via the
// coordinator) so task-level dependency edges can become satisfied
// before the lane's child exits (§8 scenario 3). taskIndex is the
// 0-based index of the task that just completed.
func (s *Scheduler) ReportTaskProgress(laneName, completedTaskName string, nextTaskIndex int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.states[laneName]
	if !ok {
		return
	}
	if !st.HasCompletedTask(completedTaskName) {
		st.CompletedTaskNames = append(st.CompletedTaskNames, completedTaskName)
	}
	if nextTaskIndex > st.CurrentTaskIndex {
		st.CurrentTaskIndex = nextTaskIndex
	}
	s.saveLocked(laneName)
}

// Tick runs one scheduling pass: reconcile any pending exits, advance
// stall tracking, evaluate readiness for every unstarted lane, start as
// many ready lanes as the concurrency cap allows, and check for
// deadlock or termination. It returns (terminated, error).
func (s *Scheduler) Tick(ctx context.Context) (bool, error) {
	tickStart := s.clock.Now()
	s.drainExits()
	s.stall.Tick(s.clock.Now())

	s.mu.Lock()
	readyNames, waiting := s.computeReady()
	for len(s.sets.running) < s.opts.Concurrency && len(readyNames) > 0 {
		name := readyNames[0]
		readyNames = readyNames[1:]
		s.startLocked(ctx, name)
	}
	s.deadlockCheckLocked()
	runningEmpty := len(s.sets.running) == 0
	blockedNonEmpty := len(s.sets.blocked) != 0
	s.recordTickMetricsLocked(s.clock.Now().Sub(tickStart))
	s.mu.Unlock()

	s.publishWaiting(waiting)

	if s.resolver != nil && s.opts.AutoResolve && runningEmpty && blockedNonEmpty {
		if err := s.resolveBlocked(ctx); err != nil {
			return false, err
		}
	}

	s.mu.Lock()
	terminated := s.sets.terminalCount() == len(s.lanes) && (len(s.sets.blocked) == 0 || !s.opts.AutoResolve)
	s.mu.Unlock()
	return terminated, nil
}

// publishWaiting emits one lane_waiting event per lane named in
// waiting, where waiting maps lane name to the dependency it is
// blocked on.
func (s *Scheduler) publishWaiting(waiting map[string]string) {
	for name, dep := range waiting {
		s.bus.Publish(events.NewLaneWaitingEvent(s.opts.RunID, name, dep))
	}
}

// computeReady evaluates every lane not yet in a terminal/running/
// blocked set, applying fail-fast propagation immediately, and returns
// the ready set ordered ascending by name plus a waiting-on map for
// lanes whose gate is simply unsatisfied so far.
func (s *Scheduler) computeReady() ([]string, map[string]string) {
	var ready []string
	waiting := make(map[string]string)
	names := make([]string, 0, len(s.lanes))
	for name := range s.lanes {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		lane := s.lanes[name]
		r := evaluateReadiness(lane, s.startIndex[name], s.sets, s.states)
		switch {
		case r.failLane:
			s.failLocked(name, r.failReason, -1)
		case r.ready:
			ready = append(ready, name)
		case r.waitingOn != "":
			waiting[name] = r.waitingOn
		}
	}
	return ready, waiting
}

// startLocked hands lane name to the spawner and begins background
// waiting for its exit. Caller holds s.mu.
func (s *Scheduler) startLocked(ctx context.Context, name string) {
	lane := s.lanes[name]
	startIdx := s.startIndex[name]

	var opts supervisor.SpawnOptions
	if s.opts.SpawnOptions != nil {
		opts = s.opts.SpawnOptions(lane)
	}

	handle, err := s.spawner.Spawn(ctx, s.opts.RunDir, lane, startIdx, opts)
	if err != nil {
		s.logger.Error("spawn failed", "lane", name, "error", err)
		s.failLocked(name, fmt.Sprintf("spawn failed: %v", err), 1)
		return
	}

	s.sets.running[name] = true
	s.handles[name] = handle
	st := s.states[name]
	st.Status = core.LaneStatusRunning
	st.WorktreeDir = opts.WorktreeDir
	st.PipelineBranch = lane.PipelineBranch
	now := s.clock.Now()
	st.StartTime = &now
	s.saveLocked(name)

	s.stall.Track(name, handle)
	s.bus.Publish(events.NewLaneStartedEvent(s.opts.RunID, name, startIdx))

	go func() {
		code := s.spawner.Wait(ctx, handle)
		s.exitCh <- exitResult{laneName: name, code: code}
	}()
}

// drainExits processes every exit result currently buffered, without
// blocking when none are ready.
func (s *Scheduler) drainExits() {
	for {
		select {
		case res := <-s.exitCh:
			s.handleExit(res)
		default:
			return
		}
	}
}

func (s *Scheduler) handleExit(res exitResult) {
	s.mu.Lock()
	defer s.mu.Unlock()

	lane := s.lanes[res.laneName]
	st := s.states[res.laneName]
	delete(s.sets.running, res.laneName)
	delete(s.handles, res.laneName)
	s.stall.Untrack(res.laneName)
	now := s.clock.Now()
	st.EndTime = &now

	controllerRestart := s.stall.ConsumedRestart(res.laneName)

	switch {
	case res.code == 0:
		st.Status = core.LaneStatusCompleted
		st.CompletedTaskNames = taskNames(lane)
		st.CurrentTaskIndex = len(lane.Tasks)
		s.sets.completed[res.laneName] = true
		s.saveLocked(res.laneName)
		s.bus.Publish(events.NewLaneCompletedEvent(s.opts.RunID, res.laneName, st.CompletedTaskNames))

	case res.code == 2:
		plan, ok := s.loadRequestLocked(st.WorktreeDir)
		if ok {
			st.Status = core.LaneStatusBlocked
			st.DependencyRequest = plan
			s.sets.blocked[res.laneName] = true
			if st.CurrentTaskIndex > 0 {
				s.startIndex[res.laneName] = st.CurrentTaskIndex - 1
			} else {
				s.startIndex[res.laneName] = 0
			}
			s.saveLocked(res.laneName)
			s.bus.Publish(events.NewLaneBlockedEvent(s.opts.RunID, res.laneName, plan.Reason, plan.Changes, plan.Commands))
		} else {
			s.failLocked(res.laneName, "exit code 2 without a valid dependency request", res.code)
		}

	case controllerRestart:
		// Recovery controller killed this lane for a restart; it stays
		// out of every set so the next tick's readiness pass picks it
		// back up with startIndex == currentTaskIndex.
		s.startIndex[res.laneName] = st.CurrentTaskIndex
		st.Status = core.LaneStatusWaiting
		s.saveLocked(res.laneName)

	default:
		s.failLocked(res.laneName, fmt.Sprintf("child exited with code %d", res.code), res.code)
	}
}

// loadRequestLocked reads and validates the lane's DependencyRequestPlan
// from its worktree. A missing or invalid file is reported as !ok, per
// the "absence of a request file on code 2 is itself a failure" rule.
func (s *Scheduler) loadRequestLocked(worktreeDir string) (*core.DependencyRequestPlan, bool) {
	if worktreeDir == "" {
		return nil, false
	}
	plan, err := loadDependencyRequest(worktreeDir)
	if err != nil || plan.Validate() != nil {
		return nil, false
	}
	return plan, true
}

// failLocked marks a lane failed, emitting lane_failed. exitCode of -1
// means "no child exit code" (e.g. fail-fast propagation or deadlock).
func (s *Scheduler) failLocked(name, reason string, exitCode int) {
	st := s.states[name]
	st.Status = core.LaneStatusFailed
	delete(s.sets.running, name)
	delete(s.sets.blocked, name)
	delete(s.sets.completed, name)
	s.sets.failed[name] = true
	code := exitCode
	if code < 0 {
		code = 0
	}
	s.saveLocked(name)
	s.bus.Publish(events.NewLaneFailedEvent(s.opts.RunID, name, reason, code))
}

// deadlockCheckLocked implements the §4.2 deadlock rule: if nothing is
// running, nothing is ready, and lanes remain outside every terminal
// set, the run cannot make further progress — fail the rest with a
// deadlock reason. Caller holds s.mu.
func (s *Scheduler) deadlockCheckLocked() {
	total := len(s.lanes)
	if len(s.sets.running) != 0 || s.sets.terminalCount() >= total {
		return
	}
	ready, _ := s.computeReady()
	if len(ready) != 0 {
		return
	}
	for name := range s.lanes {
		if !s.sets.inAnySet(name) {
			s.failLocked(name, "deadlock: no ready lane and none running", -1)
		}
	}
}

// resolveBlocked invokes the resolver over every lane still in play —
// the Blocked subset supplies the union of change/command lists, but
// every non-terminal lane is included so the resolver can sync the
// pipeline branch into each one's task branch (§4.4 step 6). A resolver
// error fails every blocked lane; otherwise each lane the resolver
// reports as resolved is moved back to waiting so the next readiness
// pass retries its last task.
func (s *Scheduler) resolveBlocked(ctx context.Context) error {
	s.mu.Lock()
	if len(s.sets.blocked) == 0 {
		s.mu.Unlock()
		return nil
	}
	lanes := make([]ResolutionLane, 0, len(s.lanes))
	for name, lane := range s.lanes {
		if s.sets.completed[name] || s.sets.failed[name] {
			continue
		}
		lanes = append(lanes, ResolutionLane{Lane: lane, State: s.states[name], Blocked: s.sets.blocked[name]})
	}
	s.mu.Unlock()

	resolved, err := s.resolver.Resolve(ctx, lanes)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		for name := range s.sets.blocked {
			s.failLocked(name, fmt.Sprintf("dependency resolution failed: %v", err), -1)
		}
		return nil
	}
	for _, name := range resolved {
		delete(s.sets.blocked, name)
		st := s.states[name]
		st.Status = core.LaneStatusWaiting
		st.DependencyRequest = nil
		s.saveLocked(name)
	}
	return nil
}

func (s *Scheduler) saveLocked(name string) {
	path := core.StatePath(s.opts.RunDir, name)
	if err := core.SaveLaneRunState(path, s.states[name]); err != nil {
		s.logger.Warn("saving lane run state", "lane", name, "error", err)
	}
}

func taskNames(lane *core.Lane) []string {
	names := make([]string, len(lane.Tasks))
	for i, t := range lane.Tasks {
		names[i] = t.Name
	}
	return names
}

// Run drives Tick on opts interval (or every 10s if unset) until the
// run terminates or ctx is canceled.
func (s *Scheduler) Run(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	if _, err := s.Tick(ctx); err != nil {
		return err
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			terminated, err := s.Tick(ctx)
			if err != nil {
				return err
			}
			if terminated {
				close(s.done)
				return nil
			}
		}
	}
}

// Done is closed once Run observes termination.
func (s *Scheduler) Done() <-chan struct{} {
	return s.done
}
