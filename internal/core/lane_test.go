package core

import "testing"

func validLane(name string) *Lane {
	return &Lane{
		Name:           name,
		Tasks:          []Task{{Name: "setup", Prompt: "do setup"}},
		PipelineBranch: "release",
		BaseBranch:     "main",
	}
}

func TestLane_Validate(t *testing.T) {
	lane := validLane("lane-a")
	if err := lane.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	empty := &Lane{Name: "lane-a"}
	if err := empty.Validate(); err == nil {
		t.Fatalf("expected error for lane with no tasks")
	}

	noName := validLane("")
	if err := noName.Validate(); err == nil {
		t.Fatalf("expected error for lane with no name")
	}
}

func TestLane_Validate_DuplicateTask(t *testing.T) {
	lane := validLane("lane-a")
	lane.Tasks = append(lane.Tasks, Task{Name: "setup", Prompt: "again"})
	if err := lane.Validate(); err == nil {
		t.Fatalf("expected error for duplicate task name")
	}
}

func TestLane_TaskBranch(t *testing.T) {
	lane := validLane("lane-a")
	lane.Tasks = []Task{{Name: "setup"}, {Name: "build"}}
	if got := lane.TaskBranch(1); got != "release/lane-a--02-build" {
		t.Fatalf("TaskBranch(1) = %q, want release/lane-a--02-build", got)
	}
}

func TestLanes_Validate(t *testing.T) {
	a := validLane("A")
	b := validLane("B")
	b.Dependencies = []string{"A"}

	lanes := Lanes{"A": a, "B": b}
	if err := lanes.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	b.Dependencies = []string{"nonexistent"}
	if err := lanes.Validate(); err == nil {
		t.Fatalf("expected error for unknown lane dependency")
	}
}

func TestLanes_Validate_TaskLevelPreGate(t *testing.T) {
	a := validLane("A")
	b := validLane("B")
	b.Tasks[0].Dependencies = []string{"nonexistent:setup"}

	lanes := Lanes{"A": a, "B": b}
	if err := lanes.Validate(); err == nil {
		t.Fatalf("expected error for unknown lane in first task's dependencies")
	}
}
