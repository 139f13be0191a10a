package supervisor_test

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/hugo-lorenzo-mato/cursorflow/internal/core"
	"github.com/hugo-lorenzo-mato/cursorflow/internal/supervisor"
)

func testLane(t *testing.T) *core.Lane {
	t.Helper()
	return &core.Lane{
		Name:           "backend",
		Tasks:          []core.Task{{Name: "setup", Prompt: "scaffold"}},
		BaseBranch:     "main",
		PipelineBranch: "release",
		Executor:       "bash",
	}
}

// spawnOpts writes script as the "tasks file" bash is told to run —
// buildArgs always puts the tasks file path first in argv, so handing
// bash a real script there lets these tests drive an arbitrary child
// without a fake executor binary.
func spawnOpts(t *testing.T, script string) supervisor.SpawnOptions {
	t.Helper()
	if script == "" {
		script = "exit 0"
	}
	tasksFile := filepath.Join(t.TempDir(), "tasks.sh")
	if err := os.WriteFile(tasksFile, []byte(script+"\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	return supervisor.SpawnOptions{
		TasksFile:    tasksFile,
		ExecutorName: "claude",
		ExecutorPath: "bash",
	}
}

// fakeParser records every chunk it is fed and every activity tick.
type fakeParser struct {
	mu     sync.Mutex
	chunks map[supervisor.Stream][]byte
	closed bool
}

func newFakeParser() *fakeParser {
	return &fakeParser{chunks: make(map[supervisor.Stream][]byte)}
}

func (p *fakeParser) Feed(stream supervisor.Stream, chunk []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.chunks[stream] = append(p.chunks[stream], chunk...)
	return nil
}
func (p *fakeParser) Flush() error { return nil }
func (p *fakeParser) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

func TestSupervisor_SpawnAndWait_Success(t *testing.T) {
	t.Parallel()
	s := supervisor.New(nil, nil, nil)
	lane := testLane(t)
	opts := spawnOpts(t, "")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	runDir := t.TempDir()
	h, err := s.Spawn(ctx, runDir, lane, 0, supervisor.SpawnOptions{
		TasksFile:    opts.TasksFile,
		ExecutorName: "claude",
		ExecutorPath: "bash",
	})
	if err != nil {
		t.Fatalf("Spawn() error = %v", err)
	}

	code := s.Wait(ctx, h)
	if code != 0 {
		t.Fatalf("exit code = %d, want 0", code)
	}
}

func TestSupervisor_Spawn_NonZeroExit(t *testing.T) {
	t.Parallel()
	s := supervisor.New(nil, nil, nil)
	lane := testLane(t)
	lane.Executor = "false"
	opts := spawnOpts(t, "")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	h, err := s.Spawn(ctx, t.TempDir(), lane, 0, supervisor.SpawnOptions{
		TasksFile:    opts.TasksFile,
		ExecutorName: "claude",
		ExecutorPath: "false",
	})
	if err != nil {
		t.Fatalf("Spawn() error = %v", err)
	}

	code := s.Wait(ctx, h)
	if code == 0 {
		t.Fatal("expected non-zero exit code")
	}
}

func TestSupervisor_Spawn_MissingExecutor(t *testing.T) {
	t.Parallel()
	s := supervisor.New(nil, nil, nil)
	lane := testLane(t)
	lane.Executor = ""
	opts := spawnOpts(t, "")

	_, err := s.Spawn(context.Background(), t.TempDir(), lane, 0, supervisor.SpawnOptions{
		TasksFile:    opts.TasksFile,
		ExecutorName: "claude",
	})
	if err == nil {
		t.Fatal("expected error for missing executor")
	}
}

func TestSupervisor_WriteIntervention(t *testing.T) {
	t.Parallel()
	s := supervisor.New(nil, nil, nil)
	lane := testLane(t)
	opts := spawnOpts(t, "")

	runDir := t.TempDir()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	h, err := s.Spawn(ctx, runDir, lane, 0, supervisor.SpawnOptions{
		TasksFile:    opts.TasksFile,
		ExecutorName: "claude",
		ExecutorPath: "bash",
	})
	if err != nil {
		t.Fatalf("Spawn() error = %v", err)
	}
	s.Wait(ctx, h)

	if err := s.WriteIntervention(h, "continue"); err != nil {
		t.Fatalf("WriteIntervention() error = %v", err)
	}

	path := filepath.Join(h.RunDir, supervisor.InterventionFile)
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading intervention file: %v", err)
	}
	if string(data) != "continue" {
		t.Fatalf("intervention contents = %q, want %q", data, "continue")
	}
}

func TestSupervisor_Signal_Kill(t *testing.T) {
	t.Parallel()
	s := supervisor.New(nil, nil, nil)
	lane := testLane(t)
	opts := spawnOpts(t, "sleep 30")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	h, err := s.Spawn(ctx, t.TempDir(), lane, 0, supervisor.SpawnOptions{
		TasksFile:    opts.TasksFile,
		ExecutorName: "claude",
		ExecutorPath: "bash",
	})
	if err != nil {
		t.Fatalf("Spawn() error = %v", err)
	}

	if err := s.Signal(h, supervisor.SignalKill); err != nil {
		t.Fatalf("Signal() error = %v", err)
	}

	code := s.Wait(ctx, h)
	if code == 0 {
		t.Fatalf("expected non-zero exit code after kill, got %d", code)
	}
}

func TestSupervisor_ActivityTimestamp_AdvancesOnFeed(t *testing.T) {
	t.Parallel()
	parser := newFakeParser()
	factory := func(_, _ string, activity func()) (supervisor.Parser, error) {
		activity()
		return parser, nil
	}
	s := supervisor.New(nil, factory, nil)
	lane := testLane(t)
	opts := spawnOpts(t, "")

	before := time.Now()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	h, err := s.Spawn(ctx, t.TempDir(), lane, 0, supervisor.SpawnOptions{
		TasksFile:    opts.TasksFile,
		ExecutorName: "claude",
		ExecutorPath: "bash",
	})
	if err != nil {
		t.Fatalf("Spawn() error = %v", err)
	}
	s.Wait(ctx, h)

	ts := s.ActivityTimestamp(h)
	if ts.Before(before) {
		t.Fatalf("ActivityTimestamp() = %v, want at or after %v", ts, before)
	}
}
