package core

import "time"

// Task is an ordered element of a Lane's task list.
//
// Task is a static configuration entity loaded once at run start: the
// child process tracks its own progress through a lane's tasks, and the
// coordinator only ever observes that progress via LaneRunState
// (CurrentTaskIndex, CompletedTaskNames). A task's index within its
// lane is stable for the lifetime of a run.
type Task struct {
	Name string
	// Prompt is the instruction handed to the lane's agent for this task.
	Prompt string
	// Dependencies are task-granularity gates, evaluated only for the
	// very first task of a lane (see scheduler readiness rule 3).
	// Edges take the form "L" (lane-level) or "L:T" (task-level); see
	// ParseDependencyEdge.
	Dependencies []string
	// Model overrides the lane's default model for this task, if set.
	Model string
	// Timeout overrides the lane's default per-task timeout, if set.
	Timeout time.Duration
}

// Validate checks task invariants.
func (t *Task) Validate() error {
	if t.Name == "" {
		return ErrValidation(CodeEmptyLaneName, "task name cannot be empty")
	}
	if t.Prompt == "" {
		return ErrValidation("TASK_PROMPT_REQUIRED", "task prompt cannot be empty")
	}
	for _, edge := range t.Dependencies {
		if _, _, err := ParseDependencyEdge(edge); err != nil {
			return err
		}
	}
	return nil
}
