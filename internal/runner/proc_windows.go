//go:build windows

package runner

import (
	"os/exec"
)

// setProcAttr is a no-op on Windows; there is no POSIX process group to
// join, and escalation collapses to a single best-effort terminate
// (spec.md §4.5).
func setProcAttr(cmd *exec.Cmd) {}

func sendSIGINT(cmd *exec.Cmd) error { return cmd.Process.Kill() }

func sendSIGTERM(cmd *exec.Cmd) error { return cmd.Process.Kill() }

func sendSIGKILL(cmd *exec.Cmd) error { return cmd.Process.Kill() }
