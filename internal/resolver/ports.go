package resolver

import (
	"context"

	"github.com/hugo-lorenzo-mato/cursorflow/internal/core"
)

// ClientFactory builds a core.GitClient rooted at an arbitrary
// repository path. Defined locally so tests can substitute a fake
// without touching a real git binary; internal/adapters/git.ClientFactory
// satisfies it structurally.
type ClientFactory interface {
	NewClient(repoPath string) (core.GitClient, error)
}

// CommandRunner executes one shell command string inside dir. Defined
// locally, mirroring internal/scheduler.Spawner and
// internal/recovery.Signaler, so the resolution-command step is
// substitutable in tests without spawning a real shell.
type CommandRunner interface {
	Run(ctx context.Context, dir, command string) (stderr string, err error)
}
