package diagnostics

import (
	"os/exec"
	"testing"
)

func TestSafeExecutor_RunPreflight_NoHook(t *testing.T) {
	executor := NewSafeExecutor(nil)

	result := executor.RunPreflight()
	if !result.OK {
		t.Error("expected OK when no preflight hook is configured")
	}
}

func TestSafeExecutor_RunPreflight_HookRuns(t *testing.T) {
	executor := NewSafeExecutor(func() PreflightResult {
		return PreflightResult{OK: false, Errors: []string{"disk full"}}
	})

	result := executor.RunPreflight()
	if result.OK {
		t.Error("expected preflight failure from hook")
	}
	if len(result.Errors) != 1 || result.Errors[0] != "disk full" {
		t.Errorf("got errors %v, want [\"disk full\"]", result.Errors)
	}
}

func TestSafeExecutor_PrepareCommand(t *testing.T) {
	executor := NewSafeExecutor(nil)

	cmd := exec.Command("echo", "hello")
	pipes, err := executor.PrepareCommand(cmd)
	if err != nil {
		t.Fatalf("failed to prepare command: %v", err)
	}
	if pipes == nil {
		t.Fatal("expected non-nil pipes")
	}
	if pipes.Stdout == nil || pipes.Stderr == nil {
		t.Error("expected non-nil stdout and stderr pipes")
	}
	pipes.Cleanup()
}

func TestPipeSet_Cleanup(t *testing.T) {
	pipeSet := &PipeSet{}

	pipeSet.Cleanup()
	if !pipeSet.cleaned {
		t.Error("expected cleaned to be true after Cleanup()")
	}

	// Second cleanup should be a no-op, not a double-close panic.
	pipeSet.Cleanup()
}

func TestPipeSet_CleanupCallsCleanupFunc(t *testing.T) {
	var called int
	pipeSet := &PipeSet{cleanup: func() { called++ }}

	pipeSet.Cleanup()
	pipeSet.Cleanup()

	if called != 1 {
		t.Errorf("cleanup func called %d times, want 1", called)
	}
}
