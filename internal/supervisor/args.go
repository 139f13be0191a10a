package supervisor

import "strconv"

// buildArgs assembles the child process argument vector per the
// documented child process contract: path to the tasks configuration
// file, then --run-dir, --executor, --start-index, and conditionally
// --pipeline-branch, --worktree-dir, --no-git.
func buildArgs(tasksFile, runDir, executor string, startIndex int, opts SpawnOptions) []string {
	args := []string{
		tasksFile,
		"--run-dir", runDir,
		"--executor", executor,
		"--start-index", strconv.Itoa(startIndex),
	}
	if opts.PipelineBranch != "" {
		args = append(args, "--pipeline-branch", opts.PipelineBranch)
	}
	if opts.WorktreeDir != "" {
		args = append(args, "--worktree-dir", opts.WorktreeDir)
	}
	if opts.NoGit {
		args = append(args, "--no-git")
	}
	return args
}
