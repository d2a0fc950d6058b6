// Package lineemit implements the non-interactive --no-ui renderer: it
// drains the engine's event stream the same way the TUI's tea.Cmd loop
// does, but writes plain lines to stdout instead of driving a bubbletea
// program (spec.md §6).
package lineemit

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/briandowns/spinner"

	"piperack/internal/config"
	"piperack/internal/logstore"
	"piperack/internal/render"
	"piperack/internal/supervisor"
)

// palette assigns a stable ANSI color per process slot, cycling if there
// are more processes than colors — mirrors what the TUI's process list
// uses for its own per-row accents.
var palette = []string{"32", "36", "35", "33", "34", "31", "92", "96"}

// Emitter renders Engine events as plain lines to an io.Writer, honouring
// combined/grouped/raw output_mode, prefix templating, and NO_COLOR.
type Emitter struct {
	out    io.Writer
	global config.GlobalPolicy
	names  map[int]string
	colors map[int]string
	useTTY bool

	spin *spinner.Spinner

	// groups accumulates rendered lines per process for output_mode =
	// grouped, flushed as one block when the process exits (spec.md §6).
	groups map[int][]string

	// lastEmitted tracks the highest Seq already written per process, so
	// a single EvOutput carrying several newline-delimited lines from one
	// pipe read emits all of them, not just the newest.
	lastEmitted map[int]uint64
}

// New builds an Emitter for cfg, writing to out (normally os.Stdout).
func New(cfg *config.Config, out io.Writer) *Emitter {
	e := &Emitter{
		out:         out,
		global:      cfg.Global,
		names:       make(map[int]string, len(cfg.Processes)),
		colors:      make(map[int]string, len(cfg.Processes)),
		useTTY:      !cfg.Global.NoColor && os.Getenv("NO_COLOR") == "" && isTerminal(out),
		groups:      make(map[int][]string),
		lastEmitted: make(map[int]uint64),
	}
	for i, p := range cfg.Processes {
		e.names[i] = p.Name
		e.colors[i] = palette[i%len(palette)]
	}
	return e
}

// StartBanner shows a spinner on stderr while the first processes start,
// the way the teacher's cmd/goproc/daemon.go waits on the daemon socket
// before returning control to the shell.
func (e *Emitter) StartBanner(label string) {
	if !e.useTTY {
		fmt.Fprintln(os.Stderr, label)
		return
	}
	e.spin = spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	e.spin.Suffix = " " + label
	e.spin.Writer = os.Stderr
	e.spin.Start()
}

// StopBanner stops the startup spinner, if one is running.
func (e *Emitter) StopBanner() {
	if e.spin != nil {
		e.spin.Stop()
		e.spin = nil
	}
}

// Process renders one event, writing to out immediately for combined/raw
// modes, or buffering per-process for grouped mode until the process
// exits (spec.md §6: "per-process blocks flushed when a process exits").
func (e *Emitter) Process(ev supervisor.Event, eng *supervisor.Engine) {
	switch ev.Kind {
	case supervisor.EvOutput:
		e.processOutput(ev, eng)
	case supervisor.EvExited, supervisor.EvPreDone:
		if e.global.OutputMode == config.OutputGrouped {
			e.flushGroup(ev.ProcessID)
		}
	}
}

func (e *Emitter) processOutput(ev supervisor.Event, eng *supervisor.Engine) {
	p := eng.Process(ev.ProcessID)
	if p == nil {
		return
	}
	buf, ok := eng.Store.Buffer(ev.ProcessID)
	if !ok {
		return
	}

	// A single pipe read (and so a single EvOutput) commonly carries more
	// than one newline-delimited line; emit everything accepted since the
	// last event for this process, not just the newest.
	from, seen := e.lastEmitted[ev.ProcessID]
	if seen {
		from++
	}
	lines := buf.Lines(from)
	if len(lines) == 0 {
		return
	}
	for _, line := range lines {
		e.emitLine(ev.ProcessID, line)
	}
	e.lastEmitted[ev.ProcessID] = lines[len(lines)-1].Seq
}

func (e *Emitter) emitLine(processID int, line logstore.LogLine) {
	text := render.Line(line.Raw, render.Options{})
	rendered := text
	switch e.global.OutputMode {
	case config.OutputRaw:
		// no prefix, no timestamp
	default:
		prefix := e.prefix(processID)
		if e.global.Timestamp {
			rendered = fmt.Sprintf("%s %s%s", line.WallTS.Format(time.RFC3339), prefix, text)
		} else {
			rendered = prefix + text
		}
	}

	if e.global.OutputMode == config.OutputGrouped {
		e.groups[processID] = append(e.groups[processID], rendered)
		return
	}
	fmt.Fprintln(e.out, rendered)
}

func (e *Emitter) flushGroup(processID int) {
	lines, ok := e.groups[processID]
	if !ok {
		return
	}
	delete(e.groups, processID)
	fmt.Fprintf(e.out, "==== %s ====\n", e.names[processID])
	for _, line := range lines {
		fmt.Fprintln(e.out, line)
	}
}

func (e *Emitter) prefix(processID int) string {
	tmpl := e.global.Prefix
	if tmpl == "" {
		tmpl = "[{name}] "
	}
	name := e.names[processID]
	rendered := strings.ReplaceAll(tmpl, "{name}", name)

	if e.global.PrefixLength > 0 {
		rendered = padOrTruncate(rendered, e.global.PrefixLength)
	}
	if e.global.PrefixColors && e.useTTY {
		color := e.colors[processID]
		rendered = "\x1b[" + color + "m" + rendered + "\x1b[0m"
	}
	return rendered
}

func padOrTruncate(s string, width int) string {
	runes := []rune(s)
	if len(runes) == width {
		return s
	}
	if len(runes) > width {
		if width <= 1 {
			return string(runes[:width])
		}
		return string(runes[:width-1]) + "…"
	}
	return s + strings.Repeat(" ", width-len(runes))
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return (info.Mode() & os.ModeCharDevice) != 0
}
