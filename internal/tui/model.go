// Package tui implements the full-screen interactive frontend (spec.md
// §6), built the way the teacher's internal/tui/model.go wires
// bubbletea/bubbles/lipgloss — but adapted so the program's own Update
// loop is the single cooperative consumer the rest of the system
// requires (spec.md §9): every user key and every background event
// (output, exit, ready, watch-fire) funnels through one Engine.Dispatch
// call, never concurrently.
package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"piperack/internal/logstore"
	"piperack/internal/render"
	"piperack/internal/supervisor"
)

// mode is which overlay/input surface currently owns the keyboard.
type mode int

const (
	modeNormal mode = iota
	modeSearch
	modeGroupPrompt
	modeHelp
)

// Model is the bubbletea program state. The Engine is the single source
// of truth; Model only caches what's needed to render a frame.
type Model struct {
	engine *supervisor.Engine

	list     list.Model
	viewport viewport.Model
	input    textinput.Model

	mode mode

	jsonPretty bool
	stripANSI  bool
	timeline   bool

	width, height int

	statusMsg string
	quitting  bool
}

// New builds a Model around an already-constructed, not-yet-started
// Engine.
func New(e *supervisor.Engine) *Model {
	delegate := list.NewDefaultDelegate()
	lst := list.New(itemsFor(e), delegate, 0, 0)
	lst.Title = "Processes"
	lst.SetShowHelp(false)
	lst.SetFilteringEnabled(false)
	lst.DisableQuitKeybindings()

	vp := viewport.New(80, 20)

	ti := textinput.New()
	ti.Placeholder = "search"
	ti.CharLimit = 256

	return &Model{
		engine:   e,
		list:     lst,
		viewport: vp,
		input:    ti,
	}
}

// Run starts the Engine and drives it for the lifetime of the TUI
// program, with mouse capture (supplemented from
// original_source/src/tui.rs's crossterm mouse capture): mouse events go
// to the log viewport, so the wheel scrolls it; clicks do not select a
// process.
func Run(e *supervisor.Engine) error {
	m := New(e)
	prog := tea.NewProgram(m, tea.WithAltScreen(), tea.WithMouseCellMotion())
	_, err := prog.Run()
	return err
}

type engineEventMsg struct{ ev supervisor.Event }

type doneMsg struct{}

func waitForEvent(e *supervisor.Engine) tea.Cmd {
	return func() tea.Msg {
		return engineEventMsg{ev: <-e.Events()}
	}
}

func waitForDone(e *supervisor.Engine) tea.Cmd {
	return func() tea.Msg {
		<-e.Done()
		return doneMsg{}
	}
}

// Init implements tea.Model: it kicks off the engine and starts the one
// event-pump command that resubmits itself on every message.
func (m *Model) Init() tea.Cmd {
	ctx := noopContext{}
	m.engine.Start(ctx)
	return tea.Batch(waitForEvent(m.engine), waitForDone(m.engine))
}

// noopContext is a context.Context that never cancels on its own; the
// engine's tick loop runs for the TUI's entire lifetime, stopped only by
// process exit (bubbletea itself owns the program's lifetime).
type noopContext struct{}

func (noopContext) Deadline() (time.Time, bool) { return time.Time{}, false }
func (noopContext) Done() <-chan struct{}       { return nil }
func (noopContext) Err() error                  { return nil }
func (noopContext) Value(any) any               { return nil }

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.resize()
		return m, nil

	case doneMsg:
		m.quitting = true
		return m, tea.Quit

	case engineEventMsg:
		m.engine.Dispatch(msg.ev)
		m.refreshList()
		m.refreshViewport()
		return m, waitForEvent(m.engine)

	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.MouseMsg:
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m *Model) resize() {
	listWidth := 28
	if m.width > 0 && m.width < listWidth*2 {
		listWidth = m.width / 2
	}
	if m.height > 4 {
		m.list.SetSize(listWidth, m.height-2)
		m.viewport.Width = m.width - listWidth - 1
		m.viewport.Height = m.height - 2
	}
	m.input.Width = m.width - 4
}

func (m *Model) selectedProcessID() int {
	idx := m.list.Index()
	procs := m.engine.Processes()
	if idx < 0 || idx >= len(procs) {
		if m.engine.Selection != nil {
			return m.engine.Selection.SelectedProcess
		}
		return -1
	}
	return procs[idx].ID
}

func (m *Model) refreshList() {
	m.list.SetItems(itemsFor(m.engine))
}

func (m *Model) refreshViewport() {
	pid := m.selectedProcessID()
	if pid < 0 {
		m.viewport.SetContent("")
		return
	}

	var lines []logstore.LogLine
	if m.timeline {
		lines = m.engine.Store.Timeline()
	} else {
		buf, ok := m.engine.Store.Buffer(pid)
		if !ok {
			m.viewport.SetContent("")
			return
		}
		lines = buf.All()
	}

	opts := render.Options{StripANSI: m.stripANSI, PrettyJSON: m.jsonPretty}
	var b strings.Builder
	for _, l := range lines {
		if m.timeline {
			b.WriteString(fmt.Sprintf("[%d] ", l.ProcessID))
		}
		b.WriteString(render.Line(l.Raw, opts))
		b.WriteByte('\n')
	}

	atBottom := m.engine.Selection == nil || m.engine.Selection.Following()
	m.viewport.SetContent(b.String())
	if atBottom {
		m.viewport.GotoBottom()
	}
}
