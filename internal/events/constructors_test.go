package events_test

import (
	"testing"
	"time"

	"github.com/hugo-lorenzo-mato/cursorflow/internal/events"
)

func TestNewBaseEvent(t *testing.T) {
	e := events.NewBaseEvent("test_type", events.CategorySystem, "run-1")
	if e.EventType() != "test_type" {
		t.Errorf("got type %q, want %q", e.EventType(), "test_type")
	}
	if e.RunID() != "run-1" {
		t.Errorf("got run %q, want %q", e.RunID(), "run-1")
	}
	if e.Timestamp().IsZero() {
		t.Error("timestamp should not be zero")
	}
}

func TestNewLaneEvent(t *testing.T) {
	e := events.NewLaneEvent("test_type", events.CategoryLane, "run-1", "lane-a")
	if e.LaneName() != "lane-a" {
		t.Errorf("got lane %q, want %q", e.LaneName(), "lane-a")
	}
}

// --- Orchestration events ---

func TestNewRunStartedEvent(t *testing.T) {
	e := events.NewRunStartedEvent("run-1", 4, 2)
	if e.EventType() != events.TypeRunStarted {
		t.Errorf("got type %q", e.EventType())
	}
	if e.LaneCount != 4 || e.Concurrency != 2 {
		t.Errorf("laneCount=%d concurrency=%d", e.LaneCount, e.Concurrency)
	}
}

func TestNewRunCompletedEvent(t *testing.T) {
	e := events.NewRunCompletedEvent("run-1", 3, 1, 0, 1)
	if e.Completed != 3 || e.Failed != 1 || e.ExitCode != 1 {
		t.Errorf("completed=%d failed=%d exitCode=%d", e.Completed, e.Failed, e.ExitCode)
	}
}

func TestNewRunFailedEvent(t *testing.T) {
	e := events.NewRunFailedEvent("run-1", "tick loop panicked")
	if e.Reason != "tick loop panicked" {
		t.Errorf("got reason %q", e.Reason)
	}
}

func TestNewRunDeadlockEvent(t *testing.T) {
	e := events.NewRunDeadlockEvent("run-1", []string{"lane-b", "lane-c"})
	if len(e.UnreachableLanes) != 2 {
		t.Errorf("got %d unreachable lanes, want 2", len(e.UnreachableLanes))
	}
}

// --- Lane events ---

func TestNewLaneStartedEvent(t *testing.T) {
	e := events.NewLaneStartedEvent("run-1", "lane-a", 2)
	if e.EventType() != events.TypeLaneStarted {
		t.Errorf("got type %q", e.EventType())
	}
	if e.StartIndex != 2 {
		t.Errorf("got start index %d, want 2", e.StartIndex)
	}
}

func TestNewLaneCompletedEvent(t *testing.T) {
	e := events.NewLaneCompletedEvent("run-1", "lane-a", []string{"setup", "build"})
	if len(e.CompletedTasks) != 2 {
		t.Errorf("got %d completed tasks, want 2", len(e.CompletedTasks))
	}
}

func TestNewLaneFailedEvent(t *testing.T) {
	e := events.NewLaneFailedEvent("run-1", "lane-a", "exit code 3", 3)
	if e.Reason != "exit code 3" || e.ExitCode != 3 {
		t.Errorf("reason=%q exitCode=%d", e.Reason, e.ExitCode)
	}
}

func TestNewLaneBlockedEvent(t *testing.T) {
	e := events.NewLaneBlockedEvent("run-1", "lane-a", "needs shared util", []string{"pkg/util"}, []string{"go build ./..."})
	if e.Reason != "needs shared util" {
		t.Errorf("got reason %q", e.Reason)
	}
	if len(e.Changes) != 1 || len(e.Commands) != 1 {
		t.Errorf("changes=%d commands=%d", len(e.Changes), len(e.Commands))
	}
}

func TestNewLaneWaitingEvent(t *testing.T) {
	e := events.NewLaneWaitingEvent("run-1", "lane-b", "lane-a:build")
	if e.PendingDependency != "lane-a:build" {
		t.Errorf("got pending dependency %q", e.PendingDependency)
	}
}

// --- Task events ---

func TestNewTaskCompletedEvent(t *testing.T) {
	e := events.NewTaskCompletedEvent("run-1", "lane-a", "build", 1)
	if e.EventType() != events.TypeTaskCompleted {
		t.Errorf("got type %q", e.EventType())
	}
	if e.TaskName != "build" || e.TaskIndex != 1 {
		t.Errorf("taskName=%q taskIndex=%d", e.TaskName, e.TaskIndex)
	}
}

// --- Recovery events ---

func TestNewStallNudgedEvent(t *testing.T) {
	e := events.NewStallNudgedEvent("run-1", "lane-a", 3*time.Minute)
	if e.IdleFor != 3*time.Minute {
		t.Errorf("got idleFor %v", e.IdleFor)
	}
}

func TestNewStallRestartedEvent(t *testing.T) {
	e := events.NewStallRestartedEvent("run-1", "lane-a", 1)
	if e.RestartCount != 1 {
		t.Errorf("got restartCount %d, want 1", e.RestartCount)
	}
}

func TestNewStallAbortedEvent(t *testing.T) {
	e := events.NewStallAbortedEvent("run-1", "lane-a", 2)
	if e.RestartCount != 2 {
		t.Errorf("got restartCount %d, want 2", e.RestartCount)
	}
}

// --- Git/resolver events ---

func TestNewResolutionStartedEvent(t *testing.T) {
	e := events.NewResolutionStartedEvent("run-1", []string{"lane-a", "lane-b"}, []string{"go mod tidy"})
	if len(e.BlockedLanes) != 2 {
		t.Errorf("got %d blocked lanes, want 2", len(e.BlockedLanes))
	}
}

func TestNewResolutionAppliedEvent(t *testing.T) {
	e := events.NewResolutionAppliedEvent("run-1", "resolve: add shared util")
	if e.CommitMessage != "resolve: add shared util" {
		t.Errorf("got commit message %q", e.CommitMessage)
	}
}

func TestNewResolutionFailedEvent(t *testing.T) {
	e := events.NewResolutionFailedEvent("run-1", "go build ./...", "undefined: Foo")
	if e.Command != "go build ./..." || e.Stderr != "undefined: Foo" {
		t.Errorf("command=%q stderr=%q", e.Command, e.Stderr)
	}
}

func TestNewLaneSyncFailedEvent(t *testing.T) {
	e := events.NewLaneSyncFailedEvent("run-1", "lane-a", "release/lane-a--01-setup", "merge conflict")
	if e.TaskBranch != "release/lane-a--01-setup" || e.Reason != "merge conflict" {
		t.Errorf("taskBranch=%q reason=%q", e.TaskBranch, e.Reason)
	}
}

// --- Agent events ---

func TestNewAgentMessageEvent(t *testing.T) {
	e := events.NewAgentMessageEvent("run-1", "lane-a", "assistant", "running the test suite")
	if e.EventType() != events.TypeAgentMessage {
		t.Errorf("got type %q", e.EventType())
	}
	if e.Kind != "assistant" || e.Content != "running the test suite" {
		t.Errorf("kind=%q content=%q", e.Kind, e.Content)
	}
}

func TestNewAgentToolCallStartedEvent(t *testing.T) {
	e := events.NewAgentToolCallStartedEvent("run-1", "lane-a", "bash")
	if e.EventType() != events.TypeAgentToolCallStarted {
		t.Errorf("got type %q", e.EventType())
	}
	if e.ToolName != "bash" {
		t.Errorf("got tool name %q", e.ToolName)
	}
}

func TestNewAgentToolCallDoneEvent(t *testing.T) {
	e := events.NewAgentToolCallDoneEvent("run-1", "lane-a", "bash", true)
	if !e.IsError {
		t.Error("expected IsError true")
	}
}

// --- State events ---

func TestNewStatePersistedEvent(t *testing.T) {
	e := events.NewStatePersistedEvent("run-1", "lane-a", "running", 2)
	if e.Status != "running" || e.CurrentTaskIndex != 2 {
		t.Errorf("status=%q currentTaskIndex=%d", e.Status, e.CurrentTaskIndex)
	}
}

func TestNewStateCorruptedEvent(t *testing.T) {
	e := events.NewStateCorruptedEvent("run-1", "lane-a", "/run/lane-a/state.json", "unexpected end of JSON input")
	if e.Path != "/run/lane-a/state.json" {
		t.Errorf("got path %q", e.Path)
	}
}

// --- Log events ---

func TestNewLogEvent(t *testing.T) {
	e := events.NewLogEvent("run-1", "warn", "idle for 3m", map[string]interface{}{"lane": "lane-a"})
	if e.EventType() != events.TypeLog {
		t.Errorf("got type %q", e.EventType())
	}
	if e.Level != "warn" || e.Message != "idle for 3m" {
		t.Errorf("level=%q message=%q", e.Level, e.Message)
	}
	if e.Fields["lane"] != "lane-a" {
		t.Errorf("expected fields to carry lane=lane-a")
	}
}
