package supervisor

import (
	"time"

	"piperack/internal/readiness"
)

// restartBudgetAvailable reports whether p has retries left. A nil
// RestartTries means infinite retries (spec.md §3).
func (e *Engine) restartBudgetAvailable(p *ProcessRuntime) bool {
	if p.Spec.RestartTries == nil {
		return true
	}
	return p.Attempt < *p.Spec.RestartTries
}

// scheduleRestart arms a re-spawn for p. watchTriggered restarts
// (file-watch or manual) never consume the restart_tries budget and
// fire immediately; failure-triggered restarts increment Attempt and
// wait restart_delay_ms (spec.md §4.6, §8 testable property).
func (e *Engine) scheduleRestart(p *ProcessRuntime, watchTriggered bool) {
	p.WatchRestart = watchTriggered
	p.Phase = Restarting
	if watchTriggered {
		p.NextRestartAt = time.Now()
		return
	}
	p.Attempt++
	p.NextRestartAt = time.Now().Add(time.Duration(p.Spec.RestartDelayMS) * time.Millisecond)
}

// checkRestartsDue fires any Restarting process whose delay has elapsed.
// Called every tick, piggybacking restart scheduling on the loop's
// natural cadence (spec.md §4.6).
func (e *Engine) checkRestartsDue() {
	now := time.Now()
	for _, p := range e.procs {
		if p.Phase == Restarting && !p.NextRestartAt.After(now) {
			e.spawn(p)
		}
	}
}

// handleExit applies spec.md §4.6's restart policy once a process (or
// its pre_cmd) has terminated.
func (e *Engine) handleExit(p *ProcessRuntime, code int) {
	p.PID = 0
	p.ExitCode = code
	p.ExitedAt = time.Now()
	if p.ReadyProbe != nil {
		p.ReadyProbe.Cancel()
		p.ReadyProbe = nil
	}
	p.Runner = nil

	wasIntentionalRestart := p.IntentionalShutdown && p.WatchRestart
	wasIntentionalKill := p.IntentionalShutdown && !p.WatchRestart
	p.IntentionalShutdown = false

	switch {
	case wasIntentionalKill:
		// Killed via requestShutdown (k, kill_others/kill_others_on_fail,
		// or the q/EvShutdown drain) — a deliberate stop never consults
		// the restart policy, or it would never actually terminate
		// (spec.md §8: Exiting always reaches a terminal state).
		p.WatchRestart = false
		p.Phase = Dead
	case wasIntentionalRestart:
		e.scheduleRestart(p, true)
	case code == 0:
		p.Phase = Exited
		p.WatchRestart = false
	default:
		p.WatchRestart = false
		if p.Spec.RestartOnFail && e.restartBudgetAvailable(p) {
			e.scheduleRestart(p, false)
		} else {
			p.Phase = Failed
		}
	}

	if p.Phase.Terminal() {
		e.onTerminal(p)
	}
}

// resetAttemptsOnReady clears the restart attempt counter once a process
// becomes Ready through its ready_check. A process without a ready_check
// is Ready as soon as it runs; that implicit readiness leaves the counter
// alone, so a command that keeps failing still exhausts restart_tries.
func (e *Engine) resetAttemptsOnReady(p *ProcessRuntime) {
	if p.Spec.ReadyCheck.Kind == readiness.None {
		return
	}
	p.Attempt = 0
}
