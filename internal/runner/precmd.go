package runner

import (
	"context"
	"os/exec"
)

// RunPreCmd runs a process's pre_cmd to completion (spec.md §4.5: "from the
// loop's perspective, emits a PreDone event"). It is synchronous by
// contract, cancellable via ctx, and its output is discarded: pre_cmd is a
// setup step, not a logged process.
func RunPreCmd(ctx context.Context, spec Spec) ExitStatus {
	if len(spec.Argv) == 0 {
		return ExitStatus{Code: 0}
	}
	cmd := exec.CommandContext(ctx, spec.Argv[0], spec.Argv[1:]...)
	cmd.Dir = spec.Cwd
	cmd.Env = mergeEnv(spec.Env)
	setProcAttr(cmd)

	err := cmd.Run()
	return statusFromError(cmd, err)
}
