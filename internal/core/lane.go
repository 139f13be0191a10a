package core

import "fmt"

// Lane is the static unit of work: an ordered Task list run by one
// long-lived child process in its own worktree on a dedicated branch.
// A Lane is loaded once from configuration at run start and is
// immutable for the lifetime of the run — all mutable, per-run state
// lives in LaneRunState.
type Lane struct {
	Name string
	// Tasks is the ordered task list this lane steps through. Index
	// within the slice is stable for the run.
	Tasks []Task
	// Dependencies are lane-level gates (see ParseDependencyEdge),
	// evaluated by the scheduler before the lane's first task starts.
	Dependencies []string
	// WorktreeRoot is the filesystem path the lane's worktree is
	// created under.
	WorktreeRoot string
	// BaseBranch is the branch the lane's task branch and, if newly
	// created, the pipeline branch are cut from.
	BaseBranch string
	// PipelineBranch is the shared branch the Dependency Resolver
	// commits resolved changes to and merges from.
	PipelineBranch string

	// Policy flags.
	AutoResolve  bool
	ReviewMode   bool
	OutputFormat string
	// Executor is the agent CLI identifier passed as "--executor" to
	// the child process.
	Executor string
}

// Validate checks lane invariants that do not require knowledge of
// sibling lanes (cross-lane dependency existence is validated by
// Lanes.Validate once every lane in a run is known).
func (l *Lane) Validate() error {
	if l.Name == "" {
		return ErrValidation(CodeEmptyLaneName, "lane name cannot be empty")
	}
	if len(l.Tasks) == 0 {
		return ErrValidation(CodeNoTasks, "lane "+l.Name+" has no tasks")
	}

	seen := make(map[string]bool, len(l.Tasks))
	for i := range l.Tasks {
		task := &l.Tasks[i]
		if err := task.Validate(); err != nil {
			return err
		}
		if seen[task.Name] {
			return ErrValidation(CodeDuplicateTask, "duplicate task name "+task.Name+" in lane "+l.Name)
		}
		seen[task.Name] = true
	}

	for _, edge := range l.Dependencies {
		if _, _, err := ParseDependencyEdge(edge); err != nil {
			return err
		}
	}
	return nil
}

// TaskBranch returns the name of the branch the child process working
// on the task at the given 0-based index works on: e.g.
// "release/lane-a--02-build" for pipeline branch "release",
// lane "lane-a", 0-based index 1.
func (l *Lane) TaskBranch(taskIndex int) string {
	task := l.Tasks[taskIndex]
	return fmt.Sprintf("%s/%s--%02d-%s", l.PipelineBranch, l.Name, taskIndex+1, task.Name)
}

// Lanes is a loaded set of lanes for one run, keyed by name.
type Lanes map[string]*Lane

// Validate checks every lane individually and then that every
// dependency edge (lane-level, and task-level for each lane's first
// task) references a lane that actually exists in the set — the one
// check that requires knowledge of siblings.
func (ls Lanes) Validate() error {
	for name, lane := range ls {
		if lane.Name != name {
			return ErrValidation(CodeInvalidConfig, "lane map key "+name+" does not match lane name "+lane.Name)
		}
		if err := lane.Validate(); err != nil {
			return err
		}
		for _, edge := range lane.Dependencies {
			if err := ls.checkEdgeTarget(edge); err != nil {
				return err
			}
		}
		if len(lane.Tasks) > 0 {
			for _, edge := range lane.Tasks[0].Dependencies {
				if err := ls.checkEdgeTarget(edge); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

func (ls Lanes) checkEdgeTarget(edge string) error {
	target, _, err := ParseDependencyEdge(edge)
	if err != nil {
		return err
	}
	if _, ok := ls[target]; !ok {
		return ErrValidation(CodeUnknownDependency, "dependency references unknown lane "+target)
	}
	return nil
}
