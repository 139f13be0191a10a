// Package diagnostics provides safe command execution for the lane
// supervisor: guaranteed pipe cleanup when a child process's Start()
// fails partway through, plus an optional preflight hook the
// supervisor runs before spawning each lane's agent process.
package diagnostics
