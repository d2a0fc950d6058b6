package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/lipgloss"

	"piperack/internal/supervisor"
)

// processItem adapts a ProcessRuntime snapshot to bubbles/list's Item
// interface.
type processItem struct {
	id    int
	name  string
	phase string
	pid   int
}

func (p processItem) Title() string {
	return fmt.Sprintf("%-16s %s", p.name, p.phase)
}

func (p processItem) Description() string {
	if p.pid == 0 {
		return "-"
	}
	return fmt.Sprintf("pid=%d", p.pid)
}

func (p processItem) FilterValue() string { return p.name }

func itemsFor(e *supervisor.Engine) []list.Item {
	procs := e.Processes()
	items := make([]list.Item, 0, len(procs))
	for _, p := range procs {
		items = append(items, processItem{
			id:    p.ID,
			name:  p.Spec.Name,
			phase: p.Phase.String(),
			pid:   p.PID,
		})
	}
	return items
}

var (
	helpStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	statusStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("42"))
	borderStyle = lipgloss.NewStyle().Border(lipgloss.NormalBorder())
)

// View implements tea.Model.
func (m *Model) View() string {
	if m.quitting {
		return "piperack: shutting down…\n"
	}

	left := m.list.View()
	right := borderStyle.Render(m.viewport.View())
	body := lipgloss.JoinHorizontal(lipgloss.Top, left, right)

	var b strings.Builder
	b.WriteString(body)
	b.WriteByte('\n')

	switch m.mode {
	case modeSearch:
		b.WriteString("search: " + m.input.View())
	case modeGroupPrompt:
		b.WriteString("restart group: " + m.input.View())
	case modeHelp:
		b.WriteString(helpText())
	default:
		status := "timeline=" + onOff(m.timeline) + " json=" + onOff(m.jsonPretty) + " ansi-strip=" + onOff(m.stripANSI)
		if m.statusMsg != "" {
			status += " | " + m.statusMsg
		}
		b.WriteString(statusStyle.Render(status))
		b.WriteByte('\n')
		b.WriteString(helpStyle.Render("arrows/Tab select · PgUp/PgDn/Home/End scroll · f follow · t timeline · r/R restart · k kill · e export · / search · n/N match · j json · a ansi · g group · Enter input · ? help · q quit"))
	}

	return b.String()
}

func onOff(v bool) string {
	if v {
		return "on"
	}
	return "off"
}

func helpText() string {
	return strings.Join([]string{
		"arrows / Tab    select process",
		"PgUp/PgDn       scroll half a page",
		"Home / End      resume follow",
		"f               resume follow mode",
		"t               toggle merged timeline view",
		"r / R           restart selected / restart all",
		"k               kill selected",
		"e               export selected process's buffer to a file",
		"/               search (Enter to apply, Esc to cancel)",
		"n / N           next / previous search match",
		"j               toggle JSON pretty-printing",
		"a               toggle ANSI stripping",
		"g               restart every process tagged <name>",
		"Enter           send a newline to the selected process's stdin",
		"q / Ctrl-C      quit (press any key to close this help)",
	}, "\n")
}
