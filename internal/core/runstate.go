package core

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"
)

// LaneRunState is the per-lane, per-run persisted record: everything
// the coordinator needs to resume scheduling decisions about a lane
// without re-deriving them from its child process. It is exclusively
// written by the Lane Supervisor that owns the lane's child; the
// Scheduler and Resolver only read it, except the Scheduler may mark
// a lane failed when it concludes the lane is unreachable.
type LaneRunState struct {
	LaneName string `json:"laneName"`
	// Status is one of the LaneStatus* constants. Transitions are
	// monotonic within the terminal set {completed, failed}.
	Status string `json:"status"`
	// CurrentTaskIndex never decreases during a given child process's
	// lifetime.
	CurrentTaskIndex int `json:"currentTaskIndex"`
	TotalTasks       int `json:"totalTasks"`
	// CompletedTaskNames is append-only within a run.
	CompletedTaskNames []string `json:"completedTaskNames"`

	WorktreeDir    string `json:"worktreeDir"`
	PipelineBranch string `json:"pipelineBranch"`

	StartTime *time.Time `json:"startTime,omitempty"`
	EndTime   *time.Time `json:"endTime,omitempty"`

	// ChildPID is the last recorded child process id, kept for
	// diagnostics across a best-effort resume.
	ChildPID int `json:"childPid,omitempty"`

	// DependencyRequest is set when Status == blocked.
	DependencyRequest *DependencyRequestPlan `json:"dependencyRequest,omitempty"`

	// RestartCount tracks how many times the recovery controller has
	// force-restarted this lane's child in the current run.
	RestartCount int `json:"restartCount"`
}

// NewLaneRunState returns the initial state for a lane about to be
// scheduled for the first time.
func NewLaneRunState(lane *Lane) *LaneRunState {
	return &LaneRunState{
		LaneName:           lane.Name,
		Status:             LaneStatusPending,
		CurrentTaskIndex:   0,
		TotalTasks:         len(lane.Tasks),
		CompletedTaskNames: []string{},
		PipelineBranch:     lane.PipelineBranch,
	}
}

// HasCompletedTask reports whether taskName is in CompletedTaskNames.
func (s *LaneRunState) HasCompletedTask(taskName string) bool {
	for _, name := range s.CompletedTaskNames {
		if name == taskName {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the lane has reached a terminal status.
func (s *LaneRunState) IsTerminal() bool {
	return s.Status == LaneStatusCompleted || s.Status == LaneStatusFailed
}

// Validate checks the state's own invariants (not run-wide ones).
func (s *LaneRunState) Validate() error {
	if s.LaneName == "" {
		return ErrValidation(CodeEmptyLaneName, "lane run state missing lane name")
	}
	if !IsValidLaneStatus(s.Status) {
		return ErrState(CodeInvalidState, "unrecognized lane status: "+s.Status)
	}
	if s.CurrentTaskIndex < 0 {
		return ErrState(CodeStateCorrupted, "negative currentTaskIndex for lane "+s.LaneName)
	}
	return nil
}

// StatePath returns the canonical on-disk path for a lane's state
// file under a run directory: "<runDir>/lanes/<laneName>/state.json".
func StatePath(runDir, laneName string) string {
	return filepath.Join(runDir, "lanes", laneName, "state.json")
}

// SaveLaneRunState atomically persists state to path: write to a temp
// file in the same directory, fsync, then rename over the target.
// Adapted from the configuration loader's atomic-write technique so
// a crash between steps never leaves a half-written state.json.
func SaveLaneRunState(path string, state *LaneRunState) error {
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return ErrState(CodeStateCorrupted, "encode lane run state: "+err.Error()).WithCause(err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return ErrState(CodeStateCorrupted, "create state directory: "+err.Error()).WithCause(err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".")
	if err != nil {
		return ErrState(CodeStateCorrupted, "create temp state file: "+err.Error()).WithCause(err)
	}
	tmpPath := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpPath) }

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		cleanup()
		return ErrState(CodeStateCorrupted, "write temp state file: "+err.Error()).WithCause(err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		cleanup()
		return ErrState(CodeStateCorrupted, "sync temp state file: "+err.Error()).WithCause(err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return ErrState(CodeStateCorrupted, "close temp state file: "+err.Error()).WithCause(err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		cleanup()
		return ErrState(CodeStateCorrupted, "rename temp state file: "+err.Error()).WithCause(err)
	}
	return nil
}

// LoadLaneRunState reads and validates a lane's persisted state.
func LoadLaneRunState(path string) (*LaneRunState, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, ErrState(CodeStateCorrupted, "read lane run state: "+err.Error()).WithCause(err)
	}
	var state LaneRunState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, ErrState(CodeStateCorrupted, "decode lane run state: "+err.Error()).WithCause(err)
	}
	if err := state.Validate(); err != nil {
		return nil, err
	}
	return &state, nil
}
