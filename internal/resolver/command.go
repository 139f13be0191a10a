package resolver

import (
	"bytes"
	"context"
	"os/exec"
)

// ShellRunner runs commands through "sh -c" in a given working
// directory, the same exec.CommandContext idiom
// internal/adapters/cli/base.go uses to invoke the agent executor.
type ShellRunner struct{}

// Run implements CommandRunner.
func (ShellRunner) Run(ctx context.Context, dir, command string) (string, error) {
	cmd := exec.CommandContext(ctx, "sh", "-c", command)
	cmd.Dir = dir
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	err := cmd.Run()
	return stderr.String(), err
}
