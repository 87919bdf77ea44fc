package display

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/lipgloss"
	"github.com/rileyhilliard/drbdmon/internal/taskqueue"
)

// renderDashboard renders the complete dashboard view.
func (m Model) renderDashboard() string {
	var b strings.Builder

	b.WriteString(m.renderHeader())
	b.WriteString("\n")
	b.WriteString(m.renderTabs())
	b.WriteString("\n")

	height := m.bodyHeight()
	var body string
	switch m.page {
	case PageResources:
		body = m.renderResources(height)
	case PageTasks:
		body = m.renderTasks(height)
	default:
		body = m.logView.View()
	}
	b.WriteString(lipgloss.NewStyle().Height(height).MaxHeight(height).Render(body))
	b.WriteString("\n\n")
	b.WriteString(m.renderFooter())

	return b.String()
}

// renderHeader renders the title with summary stats.
func (m Model) renderHeader() string {
	snap := m.frame.Model
	where := m.host
	if where == "" {
		where = "local"
	}

	title := lipgloss.NewStyle().
		Foreground(ColorAccent).
		Bold(true).
		Render("drbdmon")

	active := 0
	for _, t := range m.frame.Tasks {
		if t.State == taskqueue.Active || t.State == taskqueue.Pending {
			active++
		}
	}
	stats := lipgloss.NewStyle().
		Foreground(ColorTextSecondary).
		Render(fmt.Sprintf(" | %s | %d resources | %d problems | %d tasks queued",
			where, len(snap.Resources), snap.Problems, active))

	return HeaderStyle.Render(title + stats)
}

func (m Model) renderTabs() string {
	tabs := make([]string, 0, pageCount)
	for p := PageID(0); p < pageCount; p++ {
		label := fmt.Sprintf("%d %s", int(p)+1, p)
		if p == m.page {
			tabs = append(tabs, TabActiveStyle.Render(label))
		} else {
			tabs = append(tabs, TabStyle.Render(label))
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, tabs...)
}

// renderFooter renders the action line, a pending confirmation, the status
// line or the key hints, in that order of precedence.
func (m Model) renderFooter() string {
	switch {
	case m.inputOn:
		return m.input.View()
	case m.confirm != nil:
		return PromptStyle.Render(fmt.Sprintf("%s? (y/n)", m.confirmOf))
	case m.status != "":
		return FooterStyle.Render(m.status)
	}
	bindings := keys.shortHelp(m.page)
	if m.detail {
		bindings = append([]key.Binding{keys.Back}, bindings...)
	}
	return FooterStyle.Render(m.help.ShortHelpView(bindings))
}
