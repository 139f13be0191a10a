package coordinator

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/hugo-lorenzo-mato/cursorflow/internal/core"
)

// taskRecord is the on-disk shape of one task within a lane's tasks
// file — the child process contract's "path to tasks configuration
// file" argument (§3, child process contract).
type taskRecord struct {
	Name         string   `json:"name"`
	Prompt       string   `json:"prompt"`
	Dependencies []string `json:"dependencies,omitempty"`
	Model        string   `json:"model,omitempty"`
	TimeoutSec   float64  `json:"timeoutSeconds,omitempty"`
}

// tasksFilePath returns the canonical path of a lane's tasks file:
// "<runDir>/lanes/<laneName>/tasks.json".
func tasksFilePath(runDir, laneName string) string {
	return filepath.Join(runDir, "lanes", laneName, "tasks.json")
}

// writeTasksFile marshals lane.Tasks to its canonical tasks.json so the
// supervisor can pass the path straight through to the spawned child.
func writeTasksFile(runDir string, lane *core.Lane) error {
	path := tasksFilePath(runDir, lane.Name)
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("creating tasks directory for lane %s: %w", lane.Name, err)
	}

	records := make([]taskRecord, len(lane.Tasks))
	for i, t := range lane.Tasks {
		records[i] = taskRecord{
			Name:         t.Name,
			Prompt:       t.Prompt,
			Dependencies: t.Dependencies,
			Model:        t.Model,
			TimeoutSec:   t.Timeout.Seconds(),
		}
	}

	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding tasks file for lane %s: %w", lane.Name, err)
	}
	if err := os.WriteFile(path, data, 0o640); err != nil {
		return fmt.Errorf("writing tasks file for lane %s: %w", lane.Name, err)
	}
	return nil
}
