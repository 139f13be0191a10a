package resolver_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/hugo-lorenzo-mato/cursorflow/internal/config"
	"github.com/hugo-lorenzo-mato/cursorflow/internal/core"
	"github.com/hugo-lorenzo-mato/cursorflow/internal/events"
	"github.com/hugo-lorenzo-mato/cursorflow/internal/resolver"
	"github.com/hugo-lorenzo-mato/cursorflow/internal/scheduler"
)

// fakeGitClient is a minimal core.GitClient recording every call the
// resolver makes against one repository path.
type fakeGitClient struct {
	mu sync.Mutex

	path string

	branches map[string]bool
	checked  []string
	created  []string
	merged   []string
	pushed   []string
	added    []string
	commits  []string

	mergeErr error
	pushErr  error
}

func newFakeGitClient(path string, branches map[string]bool) *fakeGitClient {
	if branches == nil {
		branches = make(map[string]bool)
	}
	return &fakeGitClient{path: path, branches: branches}
}

func (f *fakeGitClient) RepoRoot(context.Context) (string, error)      { return f.path, nil }
func (f *fakeGitClient) CurrentBranch(context.Context) (string, error) { return "", nil }
func (f *fakeGitClient) DefaultBranch(context.Context) (string, error) { return "main", nil }
func (f *fakeGitClient) RemoteURL(context.Context) (string, error)     { return "", nil }

func (f *fakeGitClient) BranchExists(_ context.Context, name string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.branches[name], nil
}

func (f *fakeGitClient) CreateBranch(_ context.Context, name, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.created = append(f.created, name)
	f.branches[name] = true
	return nil
}

func (f *fakeGitClient) DeleteBranch(context.Context, string) error { return nil }

func (f *fakeGitClient) CheckoutBranch(_ context.Context, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.checked = append(f.checked, name)
	return nil
}

func (f *fakeGitClient) CreateWorktree(_ context.Context, _, branch string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.branches[branch] = true
	return nil
}
func (f *fakeGitClient) RemoveWorktree(context.Context, string) error { return nil }
func (f *fakeGitClient) ListWorktrees(context.Context) ([]core.Worktree, error) {
	return nil, nil
}

func (f *fakeGitClient) Status(context.Context) (*core.GitStatus, error) { return &core.GitStatus{}, nil }

func (f *fakeGitClient) Add(_ context.Context, paths ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.added = append(f.added, paths...)
	return nil
}

func (f *fakeGitClient) Commit(_ context.Context, message string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.commits = append(f.commits, message)
	return "deadbeef", nil
}

func (f *fakeGitClient) Push(_ context.Context, _, branch string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.pushErr != nil {
		return f.pushErr
	}
	f.pushed = append(f.pushed, branch)
	return nil
}

func (f *fakeGitClient) PushForce(_ context.Context, _, branch string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pushed = append(f.pushed, branch)
	return nil
}

func (f *fakeGitClient) Merge(_ context.Context, head string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.mergeErr != nil {
		return f.mergeErr
	}
	f.merged = append(f.merged, head)
	return nil
}

func (f *fakeGitClient) Diff(context.Context, string, string) (string, error) { return "", nil }
func (f *fakeGitClient) DiffFiles(context.Context, string, string) ([]string, error) {
	return nil, nil
}
func (f *fakeGitClient) IsClean(context.Context) (bool, error)  { return true, nil }
func (f *fakeGitClient) Fetch(context.Context, string) error    { return nil }

// fakeFactory hands out one shared fakeGitClient per repo path so tests
// can inspect what happened at each path the resolver touched.
type fakeFactory struct {
	mu      sync.Mutex
	clients map[string]*fakeGitClient
	branches map[string]bool
}

func newFakeFactory(branches map[string]bool) *fakeFactory {
	return &fakeFactory{clients: make(map[string]*fakeGitClient), branches: branches}
}

func (f *fakeFactory) NewClient(repoPath string) (core.GitClient, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if c, ok := f.clients[repoPath]; ok {
		return c, nil
	}
	c := newFakeGitClient(repoPath, f.branches)
	f.clients[repoPath] = c
	return c, nil
}

type fakeRunner struct {
	mu  sync.Mutex
	ran []string
	err error
}

func (r *fakeRunner) Run(_ context.Context, _ string, command string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ran = append(r.ran, command)
	if r.err != nil {
		return "boom", r.err
	}
	return "", nil
}

func testLanes() ([]scheduler.ResolutionLane, *core.LaneRunState, *core.LaneRunState) {
	laneA := &core.Lane{Name: "a", Tasks: []core.Task{{Name: "build"}}, PipelineBranch: "pipeline", BaseBranch: "main"}
	laneB := &core.Lane{Name: "b", Tasks: []core.Task{{Name: "build"}}, PipelineBranch: "pipeline", BaseBranch: "main"}

	stateA := &core.LaneRunState{
		LaneName:         "a",
		Status:           core.LaneStatusBlocked,
		WorktreeDir:      "/worktrees/a",
		CurrentTaskIndex: 0,
		DependencyRequest: &core.DependencyRequestPlan{
			Reason:   "need shared util",
			Changes:  []string{"add util package"},
			Commands: []string{"echo build-util"},
		},
	}
	stateB := &core.LaneRunState{
		LaneName:         "b",
		Status:           core.LaneStatusWaiting,
		WorktreeDir:      "/worktrees/b",
		CurrentTaskIndex: 0,
	}
	lanes := []scheduler.ResolutionLane{
		{Lane: laneA, State: stateA, Blocked: true},
		{Lane: laneB, State: stateB, Blocked: false},
	}
	return lanes, stateA, stateB
}

func TestResolver_AppliesCommandsAndSyncsLanes(t *testing.T) {
	lanes, _, stateB := testLanes()
	taskBranchB := lanes[1].Lane.TaskBranch(stateB.CurrentTaskIndex)

	factory := newFakeFactory(map[string]bool{"pipeline": true, taskBranchB: true})
	runner := &fakeRunner{}

	r := resolver.New("run1", "/run", config.ResolverConfig{}, config.GitConfig{WorktreeDir: "/repo", Remote: "origin"}, factory, runner, events.New(10), nil)

	resolved, err := r.Resolve(context.Background(), lanes)
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if len(resolved) != 1 || resolved[0] != "a" {
		t.Fatalf("resolved = %v, want [a]", resolved)
	}
	if len(runner.ran) != 1 || runner.ran[0] != "echo build-util" {
		t.Fatalf("ran = %v, want [echo build-util]", runner.ran)
	}

	resolutionClient := factory.clients["/worktrees/a"]
	if resolutionClient == nil {
		t.Fatal("expected resolver to reuse lane a's existing worktree")
	}
	if len(resolutionClient.commits) != 1 {
		t.Fatalf("expected one commit on the resolution worktree, got %v", resolutionClient.commits)
	}
	if len(resolutionClient.pushed) != 1 || resolutionClient.pushed[0] != "pipeline" {
		t.Fatalf("pushed = %v, want [pipeline]", resolutionClient.pushed)
	}

	bClient := factory.clients["/worktrees/b"]
	if bClient == nil || len(bClient.merged) != 1 || bClient.merged[0] != "pipeline" {
		t.Fatalf("expected lane b's task branch to merge pipeline, got %+v", bClient)
	}
}

func TestResolver_CommandFailureAbortsResolution(t *testing.T) {
	lanes, _, _ := testLanes()
	factory := newFakeFactory(map[string]bool{"pipeline": true})
	runner := &fakeRunner{err: errors.New("exit status 1")}

	r := resolver.New("run1", "/run", config.ResolverConfig{}, config.GitConfig{WorktreeDir: "/repo", Remote: "origin"}, factory, runner, events.New(10), nil)

	resolved, err := r.Resolve(context.Background(), lanes)
	if err == nil {
		t.Fatal("expected an error from a failing resolution command")
	}
	if resolved != nil {
		t.Fatalf("expected no resolved lanes on failure, got %v", resolved)
	}
	resolutionClient := factory.clients["/worktrees/a"]
	if resolutionClient != nil && len(resolutionClient.commits) != 0 {
		t.Fatalf("expected no commit after a failing command, got %v", resolutionClient.commits)
	}
}
