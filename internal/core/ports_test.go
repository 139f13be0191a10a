package core

import (
	"testing"
	"time"
)

func TestGitStatus_Fields(t *testing.T) {
	status := &GitStatus{
		Branch:    "lane-a/01-build",
		Ahead:     2,
		Behind:    0,
		Staged:    []FileStatus{{Path: "main.go", Status: "M"}},
		Unstaged:  []FileStatus{{Path: "README.md", Status: "M"}},
		Untracked: []string{"scratch.txt"},
	}

	if status.Branch != "lane-a/01-build" {
		t.Errorf("Branch = %s, want lane-a/01-build", status.Branch)
	}
	if len(status.Staged) != 1 || status.Staged[0].Status != "M" {
		t.Errorf("unexpected Staged: %+v", status.Staged)
	}
	if status.HasConflicts {
		t.Errorf("expected HasConflicts false by default")
	}
}

func TestWorktree_Fields(t *testing.T) {
	wt := Worktree{Path: "/run/lane-a", Branch: "lane-a/01-build", IsMain: false}
	if wt.IsMain {
		t.Errorf("expected non-main worktree")
	}
	if wt.Path == "" || wt.Branch == "" {
		t.Errorf("expected path and branch to be set")
	}
}

func TestSystemClock_Now(t *testing.T) {
	var clock Clock = SystemClock{}
	before := time.Now()
	now := clock.Now()
	after := time.Now()

	if now.Before(before) || now.After(after) {
		t.Errorf("SystemClock.Now() = %v, expected between %v and %v", now, before, after)
	}
}
