//go:build windows

package supervisor

import "os/exec"

// configureProcAttr is a no-op on Windows; Setpgid has no equivalent,
// so a term/kill signal only reaches the direct child.
func configureProcAttr(_ *exec.Cmd) {}

// sendSignal on Windows has no graceful-term primitive for an
// arbitrary process group; both term and kill terminate the process
// immediately via the handle tracked by the caller.
func sendSignal(_ int, _ SignalKind) error { return nil }
