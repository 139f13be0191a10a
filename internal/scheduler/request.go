package scheduler

import (
	"encoding/json"
	"os"

	"github.com/hugo-lorenzo-mato/cursorflow/internal/core"
)

// loadDependencyRequest reads and decodes the DependencyRequestPlan a
// lane's child wrote before exiting with the blocked code. Decode
// errors and a missing file both surface as an error — the caller
// treats either as "no valid request", per the exit-code contract.
func loadDependencyRequest(worktreeDir string) (*core.DependencyRequestPlan, error) {
	data, err := os.ReadFile(core.RequestPath(worktreeDir))
	if err != nil {
		return nil, err
	}
	var plan core.DependencyRequestPlan
	if err := json.Unmarshal(data, &plan); err != nil {
		return nil, err
	}
	return &plan, nil
}
