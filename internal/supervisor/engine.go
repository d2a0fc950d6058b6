// Package supervisor implements the Process Manager and the Event Loop /
// Scheduler (spec.md §4.6, §4.8 — components C6 and C8): dependency-
// ordered startup, restart policy, global exit policies, and the single
// cooperative loop that every other component feeds through one bounded
// channel.
package supervisor

import (
	"context"
	"time"

	"piperack/internal/config"
	"piperack/internal/logstore"
	"piperack/internal/search"
)

const eventChannelCapacity = 4096

// Engine owns every piece of mutable state the spec requires to live
// behind a single writer: ProcessRuntimes, the output store, the search
// index, and the selection model (spec.md §9). Nothing outside Dispatch
// and the goroutines that merely enqueue events ever touches them.
type Engine struct {
	cfg *config.Config

	Store     *logstore.Store
	Search    *search.Index
	Selection *search.Selection

	procs  []*ProcessRuntime
	byName map[string]int

	events chan Event

	shuttingDown bool
	finished     bool
	exitCode     int
	exitOrder    []int
	done         chan struct{}

	inputTarget int // process ID currently receiving forwarded stdin
}

// New builds an Engine from a validated Config. It does not start any
// process; call Start for that.
func New(cfg *config.Config) *Engine {
	store := logstore.New(cfg.Global.MaxLines, len(cfg.Processes))

	e := &Engine{
		cfg:       cfg,
		Store:     store,
		Search:    search.NewIndex(),
		events:    make(chan Event, eventChannelCapacity),
		done:      make(chan struct{}),
		byName:    make(map[string]int, len(cfg.Processes)),
		exitCode:  1,
		inputTarget: -1,
	}

	for i, spec := range cfg.Processes {
		e.procs = append(e.procs, newRuntime(i, spec))
		e.byName[spec.Name] = i
		store.Register(i)
	}
	if len(e.procs) > 0 {
		e.Selection = search.NewSelection(0)
		e.inputTarget = 0
	} else {
		e.Selection = search.NewSelection(-1)
	}

	return e
}

// Start begins startup: it performs one eligibility pass (so processes
// with no dependencies launch immediately) and starts the periodic
// ticker that drives restart scheduling and redraw timing.
func (e *Engine) Start(ctx context.Context) {
	e.startEligible()
	go e.tickLoop(ctx)
}

func (e *Engine) tickLoop(ctx context.Context) {
	ticker := time.NewTicker(33 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			select {
			case e.events <- Event{Kind: EvTick, Tick: now}:
			default:
				// Channel saturated with real work; a dropped tick only
				// delays the next restart/redraw check by one tick.
			}
		}
	}
}

// Events exposes the single multiplexed channel for frontends that want
// to drive their own loop (e.g. the --no-ui line emitter, or a
// bubbletea Cmd that receives once and resubmits itself).
func (e *Engine) Events() <-chan Event { return e.events }

// Enqueue sends an event into the loop's channel. It blocks if the
// channel is full — backpressure, not drop (spec.md §4.8).
func (e *Engine) Enqueue(ev Event) { e.events <- ev }

// Done is closed once the engine has decided to exit (success policy
// satisfied, or the shutdown drain has completed).
func (e *Engine) Done() <-chan struct{} { return e.done }

// ExitCode returns the process's final exit code. Only meaningful after
// Done is closed.
func (e *Engine) ExitCode() int { return e.exitCode }

// Process returns the runtime state for a given ID, or nil if out of
// range.
func (e *Engine) Process(id int) *ProcessRuntime {
	if id < 0 || id >= len(e.procs) {
		return nil
	}
	return e.procs[id]
}

// Processes returns every tracked process's runtime state.
func (e *Engine) Processes() []*ProcessRuntime { return e.procs }

// RequestShutdown begins the drain phase (q, Ctrl-C, SIGINT/SIGTERM to
// the supervisor, or a fatal internal error).
func (e *Engine) RequestShutdown() { e.beginShutdown() }

// Dispatch applies one event to engine state and reports whether a
// redraw is warranted. It must only ever be called from one goroutine at
// a time — the single-writer discipline the whole design rests on
// (spec.md §9).
func (e *Engine) Dispatch(ev Event) bool {
	switch ev.Kind {
	case EvOutput:
		return e.handleOutput(ev)
	case EvExited:
		p := e.Process(ev.ProcessID)
		if p == nil {
			return false
		}
		e.handleExit(p, ev.Status.Code)
		return true
	case EvPreDone:
		p := e.Process(ev.ProcessID)
		if p == nil || p.Phase != PreCmdRunning {
			// Killed or restarted while pre_cmd was running.
			return false
		}
		if ev.Status.Code == 0 {
			e.startMain(p)
		} else {
			e.handleExit(p, ev.Status.Code)
		}
		return true
	case EvReady:
		p := e.Process(ev.ProcessID)
		if p == nil || (p.Phase != Starting && p.Phase != Running) {
			// A ready signal that lost the race with the process's exit.
			return false
		}
		p.Phase = Ready
		e.resetAttemptsOnReady(p)
		e.startEligible()
		return true
	case EvWatchFired:
		p := e.Process(ev.ProcessID)
		if p == nil {
			return false
		}
		e.requestRestart(p)
		return true
	case EvUserRestart:
		p := e.Process(ev.ProcessID)
		if p == nil {
			return false
		}
		e.requestRestart(p)
		return true
	case EvUserRestartAll:
		for _, id := range e.topoOrder() {
			e.requestRestart(e.procs[id])
		}
		return true
	case EvUserKill:
		p := e.Process(ev.ProcessID)
		if p == nil {
			return false
		}
		e.requestShutdown(p)
		return true
	case EvGroupRestart:
		e.GroupRestart(ev.GroupTag)
		return true
	case EvInput:
		e.handleInput(ev)
		return false
	case EvShutdown:
		e.beginShutdown()
		return true
	case EvForceKill:
		e.forceKillStragglers()
		return true
	case EvTick:
		e.startEligible()
		e.checkRestartsDue()
		e.evaluateSuccess()
		return true
	default:
		return false
	}
}

func (e *Engine) handleOutput(ev Event) bool {
	p := e.Process(ev.ProcessID)
	if p == nil {
		return false
	}
	lines := e.Store.Append(ev.ProcessID, ev.Stream, ev.Data)
	for _, line := range lines {
		e.Search.Feed(line)
		if p.mirror != nil {
			p.mirror.write(line.Raw)
		}
		if p.ReadyProbe != nil {
			if p.ReadyProbe.Feed(line.Raw) {
				e.Enqueue(Event{Kind: EvReady, ProcessID: p.ID})
			}
		}
	}
	if oldest, ok := e.Store.OldestSeq(ev.ProcessID); ok {
		e.Search.Evict(ev.ProcessID, oldest)
		e.Selection.ClampToOldest(ev.ProcessID, oldest)
	}
	return len(lines) > 0
}

func (e *Engine) handleInput(ev Event) {
	if !e.cfg.Global.HandleInput {
		return
	}
	e.inputTarget = ev.ProcessID
	p := e.Process(e.inputTarget)
	if p == nil || p.Runner == nil || !p.Spec.Stdin {
		return
	}
	p.Runner.WriteStdin(ev.Input)
}

// onTerminal runs the global exit policies once a process reaches a
// terminal phase (spec.md §4.6).
func (e *Engine) onTerminal(p *ProcessRuntime) {
	e.exitOrder = append(e.exitOrder, p.ID)

	if p.Phase == Dead && p.mirror != nil {
		p.mirror.close()
	}

	killAll := e.cfg.Global.KillOthers && (p.Phase == Exited || p.Phase == Failed)
	killOnFail := e.cfg.Global.KillOthersOnFail && p.Phase == Failed
	if killAll || killOnFail {
		e.requestShutdownAll(p.ID)
	}

	e.evaluateSuccess()
}

func (e *Engine) allTerminal() bool {
	for _, p := range e.procs {
		if !p.Phase.Terminal() {
			return false
		}
	}
	return true
}

func exitCodeOrOne(p *ProcessRuntime) int {
	if p.ExitCode != 0 {
		return p.ExitCode
	}
	return 1
}

// evaluateSuccess checks whether the configured success policy is now
// satisfied, or (during a drain) whether every process has finished, and
// if so finalizes the engine's exit code (spec.md §4.6, §4.8).
func (e *Engine) evaluateSuccess() {
	if e.finished || len(e.procs) == 0 {
		return
	}

	switch e.cfg.Global.Success {
	case config.SuccessFirst:
		for _, p := range e.procs {
			if p.Phase == Exited && p.ExitCode == 0 {
				e.finish(0)
				return
			}
		}
	case config.SuccessLast:
		if e.allTerminal() {
			last := e.procs[e.exitOrder[len(e.exitOrder)-1]]
			if last.Phase == Failed || last.ExitCode != 0 {
				e.finish(exitCodeOrOne(last))
			} else {
				e.finish(0)
			}
			return
		}
	case config.SuccessAll:
		if e.allTerminal() {
			for _, p := range e.procs {
				if p.Phase == Failed || (p.Phase == Exited && p.ExitCode != 0) {
					e.finish(exitCodeOrOne(p))
					return
				}
			}
			e.finish(0)
			return
		}
	}

	if e.shuttingDown && e.allTerminal() {
		e.finish(e.exitCode)
	}
}

func (e *Engine) finish(code int) {
	if e.finished {
		return
	}
	e.finished = true
	e.exitCode = code
	close(e.done)
}

// Run drives the loop itself until the engine finishes or ctx is done.
// Neither frontend uses it: the TUI dispatches from bubbletea's Update,
// and internal/app's --no-ui path runs its own loop so it can render each
// event.
func (e *Engine) Run(ctx context.Context) int {
	for {
		select {
		case <-ctx.Done():
			return e.exitCode
		case ev := <-e.events:
			e.Dispatch(ev)
			if e.finished {
				return e.exitCode
			}
		}
	}
}
