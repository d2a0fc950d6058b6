package supervisor

import (
	"time"

	"piperack/internal/logstore"
	"piperack/internal/runner"
)

// EventKind is the tagged union discriminator for the loop's single event
// channel (spec.md §4.8).
type EventKind int

const (
	EvOutput EventKind = iota
	EvExited
	EvPreDone
	EvReady
	EvWatchFired
	EvInput
	EvTick
	EvShutdown
	EvUserRestart
	EvUserRestartAll
	EvUserKill
	EvGroupRestart
	EvForceKill
)

// Event is the single message type flowing through the Engine's event
// channel. Every producer (runners, watchers, probes, the ticker, the
// input reader) sends one of these; the Engine is the sole consumer and
// mutator of state in response (spec.md §9).
type Event struct {
	Kind      EventKind
	ProcessID int

	Stream logstore.Stream
	Data   []byte

	Status runner.ExitStatus

	Input []byte

	Tick time.Time

	GroupTag string
}
