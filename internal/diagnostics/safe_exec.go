package diagnostics

import (
	"fmt"
	"io"
	"os/exec"
)

// PreflightResult contains the result of pre-execution checks. The
// supervisor logs Warnings and aborts the spawn on a non-empty Errors.
type PreflightResult struct {
	OK       bool
	Warnings []string
	Errors   []string
}

// SafeExecutor wraps agent process spawning with guaranteed pipe
// cleanup: PrepareCommand's pipes must be released even when Start()
// fails partway through, and the lane supervisor doesn't have to get
// that bookkeeping right itself for every executor it spawns.
type SafeExecutor struct {
	preflight func() PreflightResult
}

// NewSafeExecutor creates a safe executor. preflight may be nil, in
// which case RunPreflight always reports OK; callers that want real
// health checks (disk space, fd headroom) supply their own.
func NewSafeExecutor(preflight func() PreflightResult) *SafeExecutor {
	return &SafeExecutor{preflight: preflight}
}

// RunPreflight performs pre-execution health checks.
func (e *SafeExecutor) RunPreflight() PreflightResult {
	if e.preflight == nil {
		return PreflightResult{OK: true}
	}
	return e.preflight()
}

// PipeSet holds stdout and stderr pipes with their cleanup function.
type PipeSet struct {
	Stdout  io.ReadCloser
	Stderr  io.ReadCloser
	cleanup func()
	cleaned bool
}

// Cleanup closes the pipes. Safe to call multiple times.
func (p *PipeSet) Cleanup() {
	if p.cleaned {
		return
	}
	p.cleaned = true
	if p.cleanup != nil {
		p.cleanup()
	}
}

// PrepareCommand sets up a command with safe pipe handling.
// Returns a PipeSet whose Cleanup MUST be called even if Start() fails.
func (e *SafeExecutor) PrepareCommand(cmd *exec.Cmd) (*PipeSet, error) {
	stdoutPipe, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("creating stdout pipe: %w", err)
	}
	stderrPipe, err := cmd.StderrPipe()
	if err != nil {
		_ = stdoutPipe.Close()
		return nil, fmt.Errorf("creating stderr pipe: %w", err)
	}

	pipes := &PipeSet{Stdout: stdoutPipe, Stderr: stderrPipe}
	pipes.cleanup = func() {
		_ = stdoutPipe.Close()
		_ = stderrPipe.Close()
	}
	return pipes, nil
}
