package supervisor

import (
	"context"
	"time"

	"github.com/charmbracelet/log"

	"piperack/internal/logstore"
	"piperack/internal/readiness"
	"piperack/internal/runner"
	"piperack/internal/watch"
)

// spawn begins (or resumes) the startup sequence for p, which
// startEligible and checkRestartsDue have already confirmed is eligible
// to run. A configured pre_cmd runs to completion first; only once it
// succeeds (or there isn't one) does the long-running command start
// (spec.md §4.5).
func (e *Engine) spawn(p *ProcessRuntime) {
	if len(p.Spec.PreCmdArgv) > 0 {
		p.Phase = PreCmdRunning
		go e.runPreCmd(p)
		return
	}
	e.startMain(p)
}

func (e *Engine) runPreCmd(p *ProcessRuntime) {
	status := runner.RunPreCmd(context.Background(), runner.Spec{
		Name: p.Spec.Name + " (pre_cmd)",
		Argv: p.Spec.PreCmdArgv,
		Cwd:  p.Spec.Cwd,
		Env:  p.Spec.Env,
	})
	e.Enqueue(Event{Kind: EvPreDone, ProcessID: p.ID, Status: status})
}

// startMain spawns the long-running command, wiring its output, exit
// status, readiness probe, and file watcher back into the loop's single
// event channel (spec.md §9: producers only ever enqueue, never mutate).
func (e *Engine) startMain(p *ProcessRuntime) {
	p.Phase = Starting
	p.SignalStage = StageNone
	p.IntentionalShutdown = false

	id := p.ID
	onOutput := func(stream logstore.Stream, data []byte) {
		e.Enqueue(Event{Kind: EvOutput, ProcessID: id, Stream: stream, Data: data})
	}

	r, err := runner.Start(runner.Spec{
		Name:  p.Spec.Name,
		Argv:  p.Spec.Argv,
		Cwd:   p.Spec.Cwd,
		Env:   p.Spec.Env,
		Stdin: p.Spec.Stdin,
	}, onOutput)
	if err != nil {
		p.Phase = Failed
		p.ExitCode = -1
		e.onTerminal(p)
		return
	}

	p.Runner = r
	p.PID = r.Pid()
	p.StartedAt = time.Now()
	p.Phase = Running

	if p.mirror == nil && p.Spec.LogFileTemplate != "" {
		p.mirror = newMirrorWriter(p.Spec.LogFileTemplate, p.Spec.Name)
	}

	probe := readiness.Start(context.Background(), p.Spec.ReadyCheck)
	p.ReadyProbe = probe
	go e.waitReady(p, probe, r)

	go e.waitExit(p, r)

	if len(p.Spec.Watch) > 0 {
		w, err := watch.New(watch.Spec{
			BaseDir:         p.Spec.Cwd,
			Patterns:        p.Spec.Watch,
			Ignore:          p.Spec.WatchIgnore,
			IgnoreGitignore: p.Spec.WatchIgnoreGitignore,
			Debounce:        time.Duration(p.Spec.WatchDebounceMS) * time.Millisecond,
		})
		if err == nil {
			p.Watcher = w
			go e.waitWatch(p, w)
		} else {
			log.Warn("file watcher unavailable", "process", p.Spec.Name, "err", err)
		}
	}
}

// waitReady forwards a probe's single Ready signal as an event, unless
// the process exits first — Cancel stops further polling but does not
// close Ready, so this must also select on the process's own exit. r is
// passed in rather than read from p.Runner, which handleExit clears.
func (e *Engine) waitReady(p *ProcessRuntime, probe *readiness.Probe, r *runner.Runner) {
	select {
	case <-probe.Ready():
		e.Enqueue(Event{Kind: EvReady, ProcessID: p.ID})
	case <-r.Done():
		probe.Cancel()
	}
}

func (e *Engine) waitExit(p *ProcessRuntime, r *runner.Runner) {
	status := <-r.Done()
	if p.ReadyProbe != nil {
		p.ReadyProbe.Cancel()
	}
	e.Enqueue(Event{Kind: EvExited, ProcessID: p.ID, Status: status})
}

func (e *Engine) waitWatch(p *ProcessRuntime, w *watch.Watcher) {
	id := p.ID
	for range w.Fired() {
		e.Enqueue(Event{Kind: EvWatchFired, ProcessID: id})
	}
}
