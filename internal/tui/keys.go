package tui

import (
	tea "github.com/charmbracelet/bubbletea"

	"piperack/internal/supervisor"
)

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch m.mode {
	case modeSearch:
		return m.handleSearchKey(msg)
	case modeGroupPrompt:
		return m.handleGroupPromptKey(msg)
	case modeHelp:
		m.mode = modeNormal
		return m, nil
	}

	switch msg.String() {
	case "ctrl+c", "q":
		m.engine.Dispatch(supervisor.Event{Kind: supervisor.EvShutdown})
		return m, nil

	case "up", "down", "tab", "shift+tab":
		var cmd tea.Cmd
		m.list, cmd = m.list.Update(msg)
		if m.engine.Selection != nil {
			m.engine.Selection.SelectProcess(m.selectedProcessID())
		}
		m.refreshViewport()
		return m, cmd

	case "pgup":
		m.viewport.LineUp(m.viewport.Height / 2)
		m.pinAnchorToTop()
		return m, nil
	case "pgdown":
		m.viewport.LineDown(m.viewport.Height / 2)
		return m, nil
	case "home":
		if m.engine.Selection != nil {
			m.engine.Selection.Follow()
		}
		m.viewport.GotoBottom()
		return m, nil
	case "end":
		if m.engine.Selection != nil {
			m.engine.Selection.Follow()
		}
		m.viewport.GotoBottom()
		return m, nil

	case "f":
		if m.engine.Selection != nil {
			m.engine.Selection.Follow()
		}
		m.refreshViewport()
		return m, nil

	case "t":
		m.timeline = !m.timeline
		m.refreshViewport()
		return m, nil

	case "j":
		m.jsonPretty = !m.jsonPretty
		m.refreshViewport()
		return m, nil

	case "a":
		m.stripANSI = !m.stripANSI
		m.refreshViewport()
		return m, nil

	case "r":
		pid := m.selectedProcessID()
		if pid >= 0 {
			m.engine.Dispatch(supervisor.Event{Kind: supervisor.EvUserRestart, ProcessID: pid})
		}
		return m, nil

	case "R":
		m.engine.Dispatch(supervisor.Event{Kind: supervisor.EvUserRestartAll})
		return m, nil

	case "k":
		pid := m.selectedProcessID()
		if pid >= 0 {
			m.engine.Dispatch(supervisor.Event{Kind: supervisor.EvUserKill, ProcessID: pid})
		}
		return m, nil

	case "e":
		pid := m.selectedProcessID()
		if pid >= 0 {
			m.statusMsg = m.exportProcess(pid)
		}
		return m, nil

	case "/":
		m.mode = modeSearch
		m.input.Placeholder = "search"
		m.input.SetValue("")
		m.input.Focus()
		return m, nil

	case "n":
		m.jumpMatch(true)
		return m, nil
	case "N":
		m.jumpMatch(false)
		return m, nil

	case "g":
		m.mode = modeGroupPrompt
		m.input.Placeholder = "tag to restart"
		m.input.SetValue("")
		m.input.Focus()
		return m, nil

	case "enter":
		pid := m.selectedProcessID()
		p := m.engine.Process(pid)
		if p != nil && p.Spec.Stdin {
			m.engine.Dispatch(supervisor.Event{Kind: supervisor.EvInput, ProcessID: pid, Input: []byte("\n")})
		}
		return m, nil

	case "?":
		m.mode = modeHelp
		return m, nil
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m *Model) handleSearchKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.engine.Search.Clear()
		m.input.Blur()
		m.mode = modeNormal
		m.refreshViewport()
		return m, nil
	case "enter":
		query := m.input.Value()
		m.engine.Search.SetQuery(query, false)
		for _, p := range m.engine.Processes() {
			if buf, ok := m.engine.Store.Buffer(p.ID); ok {
				m.engine.Search.Rebuild(p.ID, buf.All())
			}
		}
		m.input.Blur()
		m.mode = modeNormal
		m.refreshViewport()
		return m, nil
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) handleGroupPromptKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.input.Blur()
		m.mode = modeNormal
		return m, nil
	case "enter":
		tag := m.input.Value()
		if tag != "" {
			m.engine.Dispatch(supervisor.Event{Kind: supervisor.EvGroupRestart, GroupTag: tag})
		}
		m.input.Blur()
		m.mode = modeNormal
		return m, nil
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// jumpMatch moves the selection anchor to the next/previous search match
// for the currently selected process (spec.md §4.7, §6 n/N bindings).
func (m *Model) jumpMatch(forward bool) {
	if m.engine.Selection == nil || !m.engine.Search.Active() {
		return
	}
	pid := m.selectedProcessID()
	if pid < 0 {
		return
	}
	anchor := m.engine.Selection.Anchor
	var from uint64
	if !anchor.Bottom && anchor.ProcessID == pid {
		from = anchor.Seq
	} else if buf, ok := m.engine.Store.Buffer(pid); ok {
		if seq, ok := buf.NewestSeq(); ok {
			from = seq
		}
	}

	var seq uint64
	var ok bool
	if forward {
		seq, ok = m.engine.Search.Next(pid, from)
	} else {
		seq, ok = m.engine.Search.Prev(pid, from)
	}
	if !ok {
		return
	}
	m.engine.Selection.SetAnchor(pid, seq)
	m.refreshViewport()
}

func (m *Model) pinAnchorToTop() {
	if m.engine.Selection == nil {
		return
	}
	pid := m.selectedProcessID()
	if buf, ok := m.engine.Store.Buffer(pid); ok {
		if seq, ok := buf.OldestSeq(); ok {
			m.engine.Selection.SetAnchor(pid, seq)
		}
	}
}
