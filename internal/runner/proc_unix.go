//go:build !windows

package runner

import (
	"os/exec"
	"syscall"
)

// setProcAttr puts the child in its own process group so escalation
// signals reach the whole tree it spawns, not just the direct child.
func setProcAttr(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}

func sendSignal(cmd *exec.Cmd, sig syscall.Signal) error {
	pgid := cmd.Process.Pid
	return syscall.Kill(-pgid, sig)
}

func sendSIGINT(cmd *exec.Cmd) error  { return sendSignal(cmd, syscall.SIGINT) }
func sendSIGTERM(cmd *exec.Cmd) error { return sendSignal(cmd, syscall.SIGTERM) }
func sendSIGKILL(cmd *exec.Cmd) error { return sendSignal(cmd, syscall.SIGKILL) }
