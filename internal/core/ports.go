package core

import (
	"context"
	"time"
)

// =============================================================================
// GitClient Port
// =============================================================================

// GitClient defines the source-control capability the engine depends on:
// enough to isolate each lane in its own worktree/branch, and for the
// Dependency Resolver to fold resolved changes back onto a lane's task
// branch. It intentionally excludes PR/review/CI operations — those
// belong to an external dashboard, not the orchestration core.
type GitClient interface {
	// Repository information.
	RepoRoot(ctx context.Context) (string, error)
	CurrentBranch(ctx context.Context) (string, error)
	DefaultBranch(ctx context.Context) (string, error)
	RemoteURL(ctx context.Context) (string, error)

	// Branch operations.
	BranchExists(ctx context.Context, name string) (bool, error)
	CreateBranch(ctx context.Context, name, base string) error
	DeleteBranch(ctx context.Context, name string) error
	CheckoutBranch(ctx context.Context, name string) error

	// Worktree operations.
	CreateWorktree(ctx context.Context, path, branch string) error
	RemoveWorktree(ctx context.Context, path string) error
	ListWorktrees(ctx context.Context) ([]Worktree, error)

	// Commit operations.
	Status(ctx context.Context) (*GitStatus, error)
	Add(ctx context.Context, paths ...string) error
	Commit(ctx context.Context, message string) (string, error)
	Push(ctx context.Context, remote, branch string) error
	// PushForce re-pushes after rewriting history or after a
	// non-fast-forward rejection the resolver has decided to retry past
	// (see Dependency Resolver push-retry rule).
	PushForce(ctx context.Context, remote, branch string) error

	// Merge folds head into the currently checked-out branch. Used by
	// the resolver to apply the pipeline branch onto a lane's task
	// branch after resolution.
	Merge(ctx context.Context, head string) error

	// Diff operations.
	Diff(ctx context.Context, base, head string) (string, error)
	DiffFiles(ctx context.Context, base, head string) ([]string, error)

	// Utility.
	IsClean(ctx context.Context) (bool, error)
	Fetch(ctx context.Context, remote string) error
}

// Worktree represents a git worktree.
type Worktree struct {
	Path     string
	Branch   string
	Commit   string
	IsMain   bool
	IsLocked bool
}

// GitStatus represents the status of a git repository.
type GitStatus struct {
	Branch       string
	Ahead        int
	Behind       int
	Staged       []FileStatus
	Unstaged     []FileStatus
	Untracked    []string
	HasConflicts bool
}

// FileStatus represents a file's git status.
type FileStatus struct {
	Path   string
	Status string // M, A, D, R, C, U
}

// =============================================================================
// StatusPublisher Port
// =============================================================================

// StatusPublisher is implemented by the coordinator and consumed by the
// read-only status surface (internal/api). It never mutates run state —
// the surface is a consumer of the event bus and lane state files, not
// a new authority.
type StatusPublisher interface {
	// RunSnapshot returns a point-in-time view of every lane's run state
	// for the given run.
	RunSnapshot(ctx context.Context, runID string) ([]LaneRunState, error)
}

// =============================================================================
// Clock Port
// =============================================================================

// Clock abstracts time.Now so the scheduler's tick loop and the
// recovery controller's stall thresholds are deterministically
// testable.
type Clock interface {
	Now() time.Time
}

// SystemClock is the production Clock backed by time.Now.
type SystemClock struct{}

// Now returns the current wall-clock time.
func (SystemClock) Now() time.Time { return time.Now() }
