package resolver

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/hugo-lorenzo-mato/cursorflow/internal/config"
	"github.com/hugo-lorenzo-mato/cursorflow/internal/core"
	"github.com/hugo-lorenzo-mato/cursorflow/internal/events"
	"github.com/hugo-lorenzo-mato/cursorflow/internal/logging"
	"github.com/hugo-lorenzo-mato/cursorflow/internal/scheduler"
)

// Resolver implements internal/scheduler.Resolver (§4.4): it applies a
// blocked lane's requested changes in a shared worktree and folds the
// result back onto every active lane's task branch.
type Resolver struct {
	runID   string
	runRoot string
	cfg     config.ResolverConfig
	gitCfg  config.GitConfig

	factory ClientFactory
	runner  CommandRunner
	bus     *events.EventBus
	logger  *logging.Logger
}

// New builds a Resolver for one run.
func New(runID, runRoot string, cfg config.ResolverConfig, gitCfg config.GitConfig, factory ClientFactory, runner CommandRunner, bus *events.EventBus, logger *logging.Logger) *Resolver {
	if gitCfg.Remote == "" {
		gitCfg.Remote = "origin"
	}
	if runner == nil {
		runner = ShellRunner{}
	}
	if bus == nil {
		bus = events.New(0)
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Resolver{
		runID:   runID,
		runRoot: runRoot,
		cfg:     cfg,
		gitCfg:  gitCfg,
		factory: factory,
		runner:  runner,
		bus:     bus,
		logger:  logger.WithRun(runID),
	}
}

// Resolve implements scheduler.Resolver.
func (r *Resolver) Resolve(ctx context.Context, lanes []scheduler.ResolutionLane) ([]string, error) {
	blocked := make([]scheduler.ResolutionLane, 0, len(lanes))
	for _, l := range lanes {
		if l.Blocked {
			blocked = append(blocked, l)
		}
	}
	if len(blocked) == 0 {
		return nil, nil
	}

	var changeLists, commandLists [][]string
	blockedNames := make([]string, 0, len(blocked))
	for _, l := range blocked {
		blockedNames = append(blockedNames, l.Lane.Name)
		if req := l.State.DependencyRequest; req != nil {
			changeLists = append(changeLists, req.Changes)
			commandLists = append(commandLists, req.Commands)
		}
	}
	changes := unionPreserveOrder(changeLists...)
	commands := unionPreserveOrder(commandLists...)

	pipelineBranch := blocked[0].Lane.PipelineBranch
	baseBranch := blocked[0].Lane.BaseBranch

	r.bus.Publish(events.NewResolutionStartedEvent(r.runID, blockedNames, commands))
	r.logger.Info("dependency resolution starting", "blockedLanes", blockedNames, "commands", len(commands))

	resolutionDir, err := r.prepareResolutionWorktree(ctx, blocked, pipelineBranch, baseBranch)
	if err != nil {
		return nil, fmt.Errorf("prepare resolution worktree: %w", err)
	}

	resolutionClient, err := r.factory.NewClient(resolutionDir)
	if err != nil {
		return nil, fmt.Errorf("open resolution worktree client: %w", err)
	}
	if err := resolutionClient.CheckoutBranch(ctx, pipelineBranch); err != nil {
		return nil, fmt.Errorf("checkout pipeline branch %s: %w", pipelineBranch, err)
	}

	for _, cmd := range commands {
		stderr, err := r.runner.Run(ctx, resolutionDir, cmd)
		if err != nil {
			r.bus.Publish(events.NewResolutionFailedEvent(r.runID, cmd, stderr))
			r.logger.Error("resolution command failed", "command", cmd, "stderr", stderr, "error", err)
			return nil, fmt.Errorf("command %q: %w: %s", cmd, err, stderr)
		}
	}

	commitMessage := "Resolve dependencies:\n\n" + strings.Join(changes, "\n")
	if err := resolutionClient.Add(ctx, "."); err != nil {
		return nil, fmt.Errorf("stage resolution changes: %w", err)
	}
	if _, err := resolutionClient.Commit(ctx, commitMessage); err != nil {
		return nil, fmt.Errorf("commit resolution: %w", err)
	}
	if err := resolutionClient.Push(ctx, r.gitCfg.Remote, pipelineBranch); err != nil {
		if pushErr := resolutionClient.PushForce(ctx, r.gitCfg.Remote, pipelineBranch); pushErr != nil {
			return nil, fmt.Errorf("push pipeline branch %s: %w (force retry: %v)", pipelineBranch, err, pushErr)
		}
	}
	r.bus.Publish(events.NewResolutionAppliedEvent(r.runID, commitMessage))
	r.logger.Info("dependency resolution applied", "pipelineBranch", pipelineBranch)

	r.syncLanes(ctx, lanes, resolutionClient, pipelineBranch)

	resolved := make([]string, 0, len(blockedNames))
	for _, l := range blocked {
		if err := clearDependencyRequest(l.State.WorktreeDir); err != nil {
			r.logger.Warn("removing dependency request file", "lane", l.Lane.Name, "error", err)
		}
		resolved = append(resolved, l.Lane.Name)
	}
	return resolved, nil
}

// prepareResolutionWorktree locates an existing blocked lane's worktree
// to reuse, or creates one at <runRoot>/resolution-worktree cut from
// baseBranch (§4.4 step 2).
func (r *Resolver) prepareResolutionWorktree(ctx context.Context, blocked []scheduler.ResolutionLane, pipelineBranch, baseBranch string) (string, error) {
	existingDir := ""
	for _, l := range blocked {
		if l.State.WorktreeDir != "" {
			existingDir = l.State.WorktreeDir
			break
		}
	}

	anchorDir := existingDir
	if anchorDir == "" {
		anchorDir = r.gitCfg.WorktreeDir
	}
	anchorClient, err := r.factory.NewClient(anchorDir)
	if err != nil {
		return "", fmt.Errorf("open git client at %s: %w", anchorDir, err)
	}
	exists, err := anchorClient.BranchExists(ctx, pipelineBranch)
	if err != nil {
		return "", fmt.Errorf("check pipeline branch: %w", err)
	}
	if !exists {
		if err := anchorClient.CreateBranch(ctx, pipelineBranch, baseBranch); err != nil {
			return "", fmt.Errorf("create pipeline branch: %w", err)
		}
	}

	if existingDir != "" {
		return existingDir, nil
	}

	dir := r.cfg.ResolutionWorktreeDir
	if dir == "" {
		dir = filepath.Join(r.runRoot, "resolution-worktree")
	}
	if err := anchorClient.CreateWorktree(ctx, dir, pipelineBranch); err != nil {
		return "", fmt.Errorf("create resolution worktree: %w", err)
	}
	return dir, nil
}

// syncLanes folds the pipeline branch into every non-terminal lane's
// task branch (§4.4 step 6). Failures here are logged as
// lane_sync_failed and are non-fatal for that lane.
func (r *Resolver) syncLanes(ctx context.Context, lanes []scheduler.ResolutionLane, resolutionClient core.GitClient, pipelineBranch string) {
	for _, l := range lanes {
		taskBranch := l.Lane.TaskBranch(l.State.CurrentTaskIndex)
		exists, err := resolutionClient.BranchExists(ctx, taskBranch)
		if err != nil || !exists {
			continue
		}
		taskClient, err := r.factory.NewClient(l.State.WorktreeDir)
		if err != nil {
			r.emitSyncFailure(l.Lane.Name, taskBranch, err)
			continue
		}
		if err := taskClient.Merge(ctx, pipelineBranch); err != nil {
			r.emitSyncFailure(l.Lane.Name, taskBranch, err)
			continue
		}
		if err := taskClient.Push(ctx, r.gitCfg.Remote, taskBranch); err != nil {
			r.emitSyncFailure(l.Lane.Name, taskBranch, err)
		}
	}
}

func (r *Resolver) emitSyncFailure(laneName, taskBranch string, err error) {
	r.bus.Publish(events.NewLaneSyncFailedEvent(r.runID, laneName, taskBranch, err.Error()))
	r.logger.Warn("syncing pipeline branch into lane task branch", "lane", laneName, "taskBranch", taskBranch, "error", err)
}
