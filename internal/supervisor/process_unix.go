//go:build !windows

package supervisor

import (
	"os/exec"
	"syscall"
)

// configureProcAttr sets up process group isolation so a lane's child
// — and anything it forks (MCP servers, language servers, build
// tools) — can be signaled together.
func configureProcAttr(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}

// sendSignal delivers kind to the process group led by pid. ESRCH
// (no such process) is swallowed — the group may have already exited
// by the time the controller reacts.
func sendSignal(pid int, kind SignalKind) error {
	pgid, err := syscall.Getpgid(pid)
	if err != nil {
		return nil // already gone
	}
	var sig syscall.Signal
	switch kind {
	case SignalKill:
		sig = syscall.SIGKILL
	default:
		sig = syscall.SIGTERM
	}
	if err := syscall.Kill(-pgid, sig); err != nil && err != syscall.ESRCH {
		return err
	}
	return nil
}
