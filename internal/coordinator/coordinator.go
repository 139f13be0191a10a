package coordinator

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/hugo-lorenzo-mato/cursorflow/internal/adapters/git"
	"github.com/hugo-lorenzo-mato/cursorflow/internal/config"
	"github.com/hugo-lorenzo-mato/cursorflow/internal/core"
	"github.com/hugo-lorenzo-mato/cursorflow/internal/events"
	"github.com/hugo-lorenzo-mato/cursorflow/internal/logging"
	"github.com/hugo-lorenzo-mato/cursorflow/internal/logparser"
	"github.com/hugo-lorenzo-mato/cursorflow/internal/recovery"
	"github.com/hugo-lorenzo-mato/cursorflow/internal/resolver"
	"github.com/hugo-lorenzo-mato/cursorflow/internal/scheduler"
	"github.com/hugo-lorenzo-mato/cursorflow/internal/supervisor"
)

// ShutdownGrace is how long Run waits for a lane's child to exit on its
// own after a term signal before Scheduler.Shutdown escalates to kill
// (§5).
const ShutdownGrace = 15 * time.Second

// Coordinator wires the Lane Supervisor, Dependency Scheduler, Stall &
// Recovery Controller, Dependency Resolver and Log Parser & Multiplexer
// into one run. It owns the top-level tick loop and the term-then-kill
// shutdown sequence but holds no scheduling logic of its own — every
// decision about what runs next lives in the Scheduler it builds.
type Coordinator struct {
	runID  string
	runDir string
	lanes  core.Lanes
	cfg    config.RunConfig

	bus    *events.EventBus
	logger *logging.Logger
	sched  *scheduler.Scheduler
}

// New validates cfg into a concrete lane set, writes each lane's tasks
// file, ensures every lane has a worktree, and assembles the
// supervisor/recovery/resolver/log-parser chain feeding a fresh
// Scheduler. bus and logger may be nil.
func New(cfg config.RunConfig, runID, runDir string, bus *events.EventBus, logger *logging.Logger) (*Coordinator, error) {
	if logger == nil {
		logger = logging.NewNop()
	}
	if bus == nil {
		bus = events.New(0)
	}
	logger = logger.WithRun(runID)

	lanes, err := config.BuildLanes(&cfg)
	if err != nil {
		return nil, fmt.Errorf("building lanes: %w", err)
	}
	if err := lanes.Validate(); err != nil {
		return nil, fmt.Errorf("validating lanes: %w", err)
	}

	for _, lane := range lanes {
		if err := writeTasksFile(runDir, lane); err != nil {
			return nil, err
		}
	}

	if err := ensureWorktrees(cfg, lanes, logger); err != nil {
		return nil, err
	}

	// sched is declared before the parser factory closure captures it:
	// the factory is built before the scheduler exists (the supervisor
	// needs the factory at construction time, and the scheduler needs
	// the supervisor), but the closure only calls through sched once
	// Run/Resume actually starts feeding child output, by which point
	// the assignment below has already landed.
	var sched *scheduler.Scheduler
	onTask := func(laneName, taskName string, nextIndex int) {
		if sched != nil {
			sched.ReportTaskProgress(laneName, taskName, nextIndex)
		}
	}

	parserFactory := logparser.NewFactory(cfg.LogParser, onTask)
	sup := supervisor.New(logger, parserFactory, nil)
	stallCtl := recovery.New(runID, cfg.Recovery, sup, bus, logger)
	resolv := resolver.New(runID, runDir, cfg.Resolver, cfg.Git, git.NewClientFactory(), resolver.ShellRunner{}, bus, logger)

	opts := scheduler.Options{
		RunID:       runID,
		RunDir:      runDir,
		Concurrency: cfg.Scheduler.Concurrency,
		AutoResolve: cfg.Resolver.AutoResolve,
		SpawnOptions: func(lane *core.Lane) supervisor.SpawnOptions {
			return supervisor.SpawnOptions{
				TasksFile:      tasksFilePath(runDir, lane.Name),
				ExecutorName:   lane.Executor,
				ExecutorPath:   cfg.Executor.Path,
				PipelineBranch: lane.PipelineBranch,
				WorktreeDir:    lane.WorktreeRoot,
			}
		},
	}
	sched = scheduler.New(opts, lanes, sup, stallCtl, resolv, bus, core.SystemClock{}, logger)

	return &Coordinator{
		runID:  runID,
		runDir: runDir,
		lanes:  lanes,
		cfg:    cfg,
		bus:    bus,
		logger: logger,
		sched:  sched,
	}, nil
}

// ensureWorktrees creates the worktree for every lane that doesn't
// already have one on disk — a resumed run finds its lanes' worktrees
// already in place and leaves them alone.
func ensureWorktrees(cfg config.RunConfig, lanes core.Lanes, logger *logging.Logger) error {
	repoDir, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("resolving repository root: %w", err)
	}
	repoClient, err := git.NewClient(repoDir)
	if err != nil {
		return fmt.Errorf("opening repository git client: %w", err)
	}
	worktrees := git.NewLaneWorktreeManager(repoClient, cfg.Git.WorktreeDir).WithLogger(logger)

	ctx := context.Background()
	for _, lane := range lanes {
		if lane.WorktreeRoot == "" {
			continue
		}
		if _, err := os.Stat(lane.WorktreeRoot); err == nil {
			continue
		}
		if err := worktrees.Create(ctx, lane); err != nil {
			return fmt.Errorf("creating worktree for lane %s: %w", lane.Name, err)
		}
	}
	return nil
}

// Run starts every lane from scratch and drives the tick loop to
// termination. It returns the process exit code named in §7 alongside
// any error that aborted the run outright (as opposed to a run that
// terminated normally with failed or blocked lanes).
func (c *Coordinator) Run(ctx context.Context) (int, error) {
	return c.run(ctx)
}

// Resume reloads each lane's persisted state (§9.1 best-effort resume)
// before continuing the tick loop — no child process is assumed to
// have survived a coordinator restart, so every non-terminal lane
// retries from its last recorded task index.
func (c *Coordinator) Resume(ctx context.Context) (int, error) {
	c.sched.ResumeState(c.runDir)
	return c.run(ctx)
}

// RunSnapshot implements internal/core.StatusPublisher by delegating to
// the scheduler's own point-in-time view.
func (c *Coordinator) RunSnapshot(_ context.Context, runID string) ([]core.LaneRunState, error) {
	if runID != c.runID {
		return nil, core.ErrNotFound("run", runID)
	}
	return c.sched.Snapshot(), nil
}

func (c *Coordinator) run(ctx context.Context) (int, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case <-sigCh:
			c.logger.Warn("interrupt received, terminating lanes")
			cancel()
		case <-ctx.Done():
		}
	}()

	if rec, err := events.NewRecorder(filepath.Join(c.runDir, "events.ndjson")); err != nil {
		c.logger.Warn("opening event log", "error", err)
	} else {
		go rec.Run(ctx, c.bus)
		defer rec.Close()
	}

	c.bus.Publish(events.NewRunStartedEvent(c.runID, len(c.lanes), c.cfg.Scheduler.Concurrency))

	runErr := c.sched.Run(ctx, c.cfg.Scheduler.TickInterval)
	interrupted := errors.Is(runErr, context.Canceled)
	if interrupted {
		c.sched.Shutdown(ShutdownGrace)
		c.bus.Publish(events.NewRunFailedEvent(c.runID, "interrupted: terminated all running lanes"))
		return 1, nil
	}

	if runErr != nil {
		c.bus.Publish(events.NewRunFailedEvent(c.runID, runErr.Error()))
		return 1, runErr
	}

	snap := c.sched.Snapshot()
	completed, failed, blocked := tallyStatuses(snap)
	exitCode := runExitCode(failed, blocked, c.cfg.Resolver.AutoResolve)
	c.bus.Publish(events.NewRunCompletedEvent(c.runID, completed, failed, blocked, exitCode))
	return exitCode, nil
}

// runExitCode implements the §7 rule for a run that reached shutdown
// on its own: 1 if any lane failed, 2 if none failed but any remained
// blocked with auto-resolve disabled, 0 otherwise. A run cut short by
// a user interrupt never reaches this function — §7 scores that case
// unconditionally as 1, handled directly in run().
func runExitCode(failed, blocked int, autoResolve bool) int {
	if failed > 0 {
		return 1
	}
	if blocked > 0 && !autoResolve {
		return 2
	}
	return 0
}

func tallyStatuses(states []core.LaneRunState) (completed, failed, blocked int) {
	for _, st := range states {
		switch st.Status {
		case core.LaneStatusCompleted:
			completed++
		case core.LaneStatusFailed:
			failed++
		case core.LaneStatusBlocked:
			blocked++
		}
	}
	return completed, failed, blocked
}
