package resolver

import (
	"os"

	"github.com/hugo-lorenzo-mato/cursorflow/internal/core"
)

// clearDependencyRequest removes a resolved lane's dependency-request
// file so a subsequent block on the same lane starts from a clean
// slate (§4.4 step 7). A missing file is not an error.
func clearDependencyRequest(worktreeDir string) error {
	if worktreeDir == "" {
		return nil
	}
	err := os.Remove(core.RequestPath(worktreeDir))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}
