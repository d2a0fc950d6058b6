package supervisor

import (
	"time"

	"piperack/internal/config"
	"piperack/internal/readiness"
	"piperack/internal/runner"
	"piperack/internal/watch"
)

// Phase is the closed tagged-union discriminator for ProcessState
// (spec.md §3), dispatched at the manager boundary rather than through a
// polymorphic interface (spec.md §9).
type Phase int

const (
	Pending Phase = iota
	WaitingForDeps
	PreCmdRunning
	Starting
	Running
	Ready
	Exiting
	Exited
	Failed
	Restarting
	Dead
)

func (p Phase) String() string {
	switch p {
	case Pending:
		return "pending"
	case WaitingForDeps:
		return "waiting_for_deps"
	case PreCmdRunning:
		return "pre_cmd_running"
	case Starting:
		return "starting"
	case Running:
		return "running"
	case Ready:
		return "ready"
	case Exiting:
		return "exiting"
	case Exited:
		return "exited"
	case Failed:
		return "failed"
	case Restarting:
		return "restarting"
	case Dead:
		return "dead"
	default:
		return "unknown"
	}
}

// Terminal reports whether a process in this phase will not transition
// again without external intervention (restart, watch-fire).
func (p Phase) Terminal() bool {
	return p == Exited || p == Failed || p == Dead
}

// SignalStage names the stages of shutdown escalation. The engine resets
// ProcessRuntime.SignalStage to StageNone on every start and does not
// advance it: runner.Shutdown does not report which signal it has sent.
type SignalStage int

const (
	StageNone SignalStage = iota
	StageSIGINT
	StageSIGTERM
	StageSIGKILL
)

func (s SignalStage) String() string {
	switch s {
	case StageSIGINT:
		return "sent SIGINT"
	case StageSIGTERM:
		return "sent SIGTERM"
	case StageSIGKILL:
		return "killed"
	default:
		return ""
	}
}

// ProcessRuntime is the mutable state for one configured process. It is
// exclusively owned and mutated by the Engine's single loop goroutine
// (spec.md §3 "Ownership", §9 "single-owner loop with message-passing").
type ProcessRuntime struct {
	ID   int
	Spec config.ProcessSpec

	Phase       Phase
	PID         int
	StartedAt   time.Time
	ExitCode    int
	ExitedAt    time.Time
	SignalStage SignalStage

	Attempt       int
	NextRestartAt time.Time

	// WatchRestart marks a restart in progress as watch- or user-triggered
	// rather than failure-triggered, so it is exempt from the restart_tries
	// budget (spec.md §4.6, §8 testable property).
	WatchRestart bool

	IntentionalShutdown bool

	Runner     *runner.Runner
	ReadyProbe *readiness.Probe
	Watcher    *watch.Watcher

	mirror *mirrorWriter
}

func newRuntime(id int, spec config.ProcessSpec) *ProcessRuntime {
	phase := Pending
	if len(spec.Depends) > 0 {
		phase = WaitingForDeps
	}
	return &ProcessRuntime{ID: id, Spec: spec, Phase: phase}
}
