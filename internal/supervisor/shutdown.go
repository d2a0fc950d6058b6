package supervisor

import (
	"context"
	"time"

	"piperack/internal/runner"
)

func (e *Engine) shutdownTimings() runner.ShutdownTimings {
	return runner.ShutdownTimings{
		SIGINTGrace:  time.Duration(e.cfg.Global.ShutdownSIGINTMS) * time.Millisecond,
		SIGTERMGrace: time.Duration(e.cfg.Global.ShutdownSIGTERMMS) * time.Millisecond,
	}
}

// requestShutdown begins the SIGINT escalation ladder for p. If p has no
// live runner (still Pending/WaitingForDeps/Restarting), it transitions
// straight to Dead since there is nothing to signal.
func (e *Engine) requestShutdown(p *ProcessRuntime) {
	if p.Runner == nil {
		p.Phase = Dead
		if p.Watcher != nil {
			p.Watcher.Close()
			p.Watcher = nil
		}
		e.onTerminal(p)
		return
	}
	p.Phase = Exiting
	p.IntentionalShutdown = true
	// A prior watch/manual restart may have left WatchRestart set from
	// before this process was (re)started; a kill is never a restart, so
	// clear it here or handleExit would misread this exit as one.
	p.WatchRestart = false
	r := p.Runner
	timings := e.shutdownTimings()
	go func() {
		r.Shutdown(context.Background(), timings)
	}()
}

// requestRestart begins the same SIGINT escalation, but marks the exit as
// watch/manual-triggered so handleExit respawns instead of finalizing
// (spec.md §4.6: "treat as an intentional restart").
func (e *Engine) requestRestart(p *ProcessRuntime) {
	if p.Runner == nil {
		// Nothing running to signal: cancel any pending scheduled restart
		// and re-evaluate eligibility immediately.
		p.Attempt = 0
		p.WatchRestart = false
		if p.Phase == Exited || p.Phase == Failed || p.Phase == Restarting {
			p.Phase = Pending
		}
		e.startEligible()
		return
	}
	p.WatchRestart = true
	p.IntentionalShutdown = true
	p.Phase = Exiting
	r := p.Runner
	timings := e.shutdownTimings()
	go func() {
		r.Shutdown(context.Background(), timings)
	}()
}

// requestShutdownAll requests shutdown of every non-terminal process
// except exceptID (pass -1 to exempt none), for kill_others policies and
// the global drain phase.
func (e *Engine) requestShutdownAll(exceptID int) {
	for _, p := range e.procs {
		if p.ID == exceptID || p.Phase.Terminal() {
			continue
		}
		e.requestShutdown(p)
	}
}

// beginShutdown enters the drain phase (spec.md §4.8): SIGINT every live
// process, then arm a global deadline (sum of escalation windows plus
// margin) after which stragglers are force-killed.
func (e *Engine) beginShutdown() {
	if e.shuttingDown {
		return
	}
	e.shuttingDown = true
	e.requestShutdownAll(-1)

	margin := 2 * time.Second
	deadline := time.Duration(e.cfg.Global.ShutdownSIGINTMS+e.cfg.Global.ShutdownSIGTERMMS)*time.Millisecond + margin
	go func() {
		select {
		case <-time.After(deadline):
			e.Enqueue(Event{Kind: EvForceKill})
		case <-e.done:
		}
	}()
}

// forceKillStragglers SIGKILLs every process still holding a live runner.
// Only reached once the global shutdown deadline has elapsed.
func (e *Engine) forceKillStragglers() {
	for _, p := range e.procs {
		if p.Runner != nil {
			_ = p.Runner.Kill()
		}
	}
}
