package git

import (
	"github.com/hugo-lorenzo-mato/cursorflow/internal/core"
)

// ClientFactory satisfies internal/resolver.ClientFactory. It creates
// git clients for specific repository paths, enabling the dependency
// resolver to open the resolution worktree without touching the
// lane worktrees directly.
type ClientFactory struct{}

// NewClientFactory creates a new git client factory.
func NewClientFactory() *ClientFactory {
	return &ClientFactory{}
}

// NewClient creates a git client for the given repository path.
func (f *ClientFactory) NewClient(repoPath string) (core.GitClient, error) {
	return NewClient(repoPath)
}
