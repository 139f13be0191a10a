package supervisor

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hugo-lorenzo-mato/cursorflow/internal/core"
	"github.com/hugo-lorenzo-mato/cursorflow/internal/diagnostics"
	"github.com/hugo-lorenzo-mato/cursorflow/internal/logging"
)

// InterventionFile is the well-known side-channel file a running
// child polls for out-of-band instructions from the controller.
const InterventionFile = "intervention.txt"

// SignalKind identifies the kind of signal delivered to a running
// lane's child process group.
type SignalKind int

const (
	SignalTerm SignalKind = iota
	SignalKill
)

// SpawnOptions carries the conditional pieces of the child argument
// vector and environment that vary per lane/run.
type SpawnOptions struct {
	TasksFile            string
	ExecutorName         string
	ExecutorPath         string
	PipelineBranch       string
	WorktreeDir          string
	NoGit                bool
	InterventionViaStdin bool
}

// Handle is the supervisor's view of one spawned lane child. It is
// opaque to callers beyond the operations below.
type Handle struct {
	LaneName string
	RunDir   string

	cmd    *exec.Cmd
	parser Parser
	stdin  *os.File // set only when InterventionViaStdin

	lastActivity atomic.Value // time.Time
	exitCode     atomic.Int64
	done         chan struct{}
	logger       *logging.Logger
}

// Supervisor spawns and supervises lane child processes. It holds no
// per-lane scheduling state: a fresh Handle is the unit of ownership,
// and the caller (the coordinator) keeps as many Handles alive as it
// has concurrently running lanes.
type Supervisor struct {
	logger        *logging.Logger
	parserFactory ParserFactory
	safeExec      *diagnostics.SafeExecutor
}

// New creates a Supervisor. parserFactory may be nil, in which case
// spawned children are piped through a discarding parser — useful in
// tests that only assert on exit codes and signals.
func New(logger *logging.Logger, parserFactory ParserFactory, safeExec *diagnostics.SafeExecutor) *Supervisor {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Supervisor{logger: logger, parserFactory: parserFactory, safeExec: safeExec}
}

// Spawn creates the lane run directory if absent, builds the child's
// argument vector, opens the parser's output files, and starts the
// child with stdout/stderr piped through the parser. startIndex is
// forwarded to the child as --start-index so a restarted lane resumes
// where the supervisor last observed it.
func (s *Supervisor) Spawn(ctx context.Context, runRoot string, lane *core.Lane, startIndex int, opts SpawnOptions) (*Handle, error) {
	if lane == nil {
		return nil, core.ErrValidation("SUPERVISOR_LANE_REQUIRED", "lane required to spawn")
	}
	if opts.TasksFile == "" {
		return nil, core.ErrValidation("SUPERVISOR_TASKS_FILE_REQUIRED", "tasks file path required to spawn "+lane.Name)
	}
	runDir := filepath.Join(runRoot, "lanes", lane.Name)
	if err := os.MkdirAll(runDir, 0o750); err != nil {
		return nil, fmt.Errorf("creating lane run directory: %w", err)
	}

	logger := s.logger.WithLane(lane.Name)

	if s.safeExec != nil {
		preflight := s.safeExec.RunPreflight()
		if !preflight.OK {
			return nil, core.ErrExecution("SUPERVISOR_PREFLIGHT_FAILED",
				fmt.Sprintf("preflight check failed before spawning lane %s: %v", lane.Name, preflight.Errors))
		}
		for _, w := range preflight.Warnings {
			logger.Warn("preflight warning before spawning lane", "warning", w)
		}
	}

	executor := opts.ExecutorPath
	if executor == "" {
		executor = lane.Executor
	}
	if executor == "" {
		return nil, core.ErrValidation("SUPERVISOR_EXECUTOR_REQUIRED", "lane "+lane.Name+" has no executor configured")
	}

	args := buildArgs(opts.TasksFile, runDir, opts.ExecutorName, startIndex, opts)

	// #nosec G204 -- executor path and args are resolved from validated run configuration.
	cmd := exec.CommandContext(ctx, executor, args...)
	configureProcAttr(cmd)
	if opts.WorktreeDir != "" {
		cmd.Dir = opts.WorktreeDir
	}

	cmd.Env = append(os.Environ(), "PYTHONUNBUFFERED=1")

	handle := &Handle{
		LaneName: lane.Name,
		RunDir:   runDir,
		cmd:      cmd,
		done:     make(chan struct{}),
		logger:   logger,
	}
	handle.lastActivity.Store(time.Now())

	var parser Parser = nopParser{}
	if s.parserFactory != nil {
		p, err := s.parserFactory(lane.Name, runDir, func() { handle.lastActivity.Store(time.Now()) })
		if err != nil {
			return nil, fmt.Errorf("opening log parser for lane %s: %w", lane.Name, err)
		}
		parser = p
	}
	handle.parser = parser

	if opts.InterventionViaStdin {
		stdinPipe, err := cmd.StdinPipe()
		if err != nil {
			return nil, fmt.Errorf("creating stdin pipe for lane %s: %w", lane.Name, err)
		}
		if f, ok := stdinPipe.(*os.File); ok {
			handle.stdin = f
		}
	}

	stdoutPipe, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("creating stdout pipe for lane %s: %w", lane.Name, err)
	}
	stderrPipe, err := cmd.StderrPipe()
	if err != nil {
		_ = stdoutPipe.Close()
		return nil, fmt.Errorf("creating stderr pipe for lane %s: %w", lane.Name, err)
	}

	if err := cmd.Start(); err != nil {
		_ = stdoutPipe.Close()
		_ = stderrPipe.Close()
		return nil, core.ErrExecution("SUPERVISOR_SPAWN_FAILED",
			fmt.Sprintf("starting lane %s child: %v", lane.Name, err))
	}
	logger.Info("lane child started", "pid", cmd.Process.Pid, "args", args)

	var streamWG sync.WaitGroup
	streamWG.Add(2)
	go func() {
		defer streamWG.Done()
		handle.drain(Stdout, stdoutPipe)
	}()
	go func() {
		defer streamWG.Done()
		handle.drain(Stderr, stderrPipe)
	}()

	go func() {
		streamWG.Wait()
		err := cmd.Wait()
		code := exitCodeOf(err)
		handle.exitCode.Store(int64(code))
		if handle.stdin != nil {
			_ = handle.stdin.Close()
		}
		if ferr := handle.parser.Flush(); ferr != nil {
			logger.Warn("flushing lane log parser", "error", ferr)
		}
		if cerr := handle.parser.Close(); cerr != nil {
			logger.Warn("closing lane log parser", "error", cerr)
		}
		close(handle.done)
	}()

	return handle, nil
}

// drain reads one stream to completion, feeding every chunk to the
// parser. A read or feed error is logged once and the affected sink
// skipped for the rest of the run — log I/O errors are never fatal.
func (h *Handle) drain(stream Stream, r io.Reader) {
	reader := bufio.NewReaderSize(r, 64*1024)
	buf := make([]byte, 32*1024)
	loggedErr := false
	for {
		n, err := reader.Read(buf)
		if n > 0 {
			if ferr := h.parser.Feed(stream, buf[:n]); ferr != nil && !loggedErr {
				h.logger.Warn("lane log parser feed error", "stream", stream.String(), "error", ferr)
				loggedErr = true
			}
		}
		if err != nil {
			return
		}
	}
}

// exitCodeOf converts a cmd.Wait() error into the observed exit code.
// Context cancellation and an already-successful exit are mapped to 0
// and the wrapped exit code respectively.
func exitCodeOf(err error) int {
	if err == nil {
		return 0
	}
	if exitErr, ok := err.(*exec.ExitError); ok {
		return exitErr.ExitCode()
	}
	return 1
}

// Wait resolves when the child exits with its exit code. It never
// rejects: a spawn-time or process-management failure is surfaced as
// exit code 1, matching the "any other code = failure" contract.
func (s *Supervisor) Wait(ctx context.Context, h *Handle) int {
	select {
	case <-h.done:
		return int(h.exitCode.Load())
	case <-ctx.Done():
		return 1
	}
}

// Signal delivers term/kill to the lane's child process group, or
// atomically writes an intervention to the lane's side-channel file.
func (s *Supervisor) Signal(h *Handle, kind SignalKind) error {
	if h == nil || h.cmd == nil || h.cmd.Process == nil {
		return nil
	}
	pid := h.cmd.Process.Pid
	if err := sendSignal(pid, kind); err != nil {
		return fmt.Errorf("signaling lane %s (pid %d): %w", h.LaneName, pid, err)
	}
	if kind == SignalKill {
		// Best effort: guarantees the direct child dies even on
		// platforms (or process-group edge cases) where the group
		// signal above could not reach it.
		_ = h.cmd.Process.Kill()
	}
	return nil
}

// WriteIntervention atomically writes text to the lane's
// intervention.txt — the side-channel the running child polls for
// out-of-band instructions like a stall-recovery "continue" nudge.
func (s *Supervisor) WriteIntervention(h *Handle, text string) error {
	path := filepath.Join(h.RunDir, InterventionFile)
	tmp, err := os.CreateTemp(h.RunDir, "."+InterventionFile+".")
	if err != nil {
		return fmt.Errorf("creating intervention temp file: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.WriteString(text); err != nil {
		tmp.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("writing intervention: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("syncing intervention: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("closing intervention: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("installing intervention: %w", err)
	}
	return nil
}

// ActivityTimestamp returns the last wall-clock time at which the
// parser emitted a non-noise line for this lane.
func (s *Supervisor) ActivityTimestamp(h *Handle) time.Time {
	t, _ := h.lastActivity.Load().(time.Time)
	return t
}
