package display

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/lipgloss"
	"github.com/rileyhilliard/drbdmon/internal/drbdcmd"
	"github.com/rileyhilliard/drbdmon/internal/severity"
)

// Section titles, in the order keyMap.fullHelp returns its groups.
var helpSections = []string{"General", "Pages", "Navigation", "Resources page", "Tasks page"}

var (
	helpFrame = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorAccentDim).
			Background(ColorSurfaceBg).
			Padding(1, 3)

	helpHeading = lipgloss.NewStyle().Foreground(ColorAccent).Bold(true)
	helpKey     = lipgloss.NewStyle().Foreground(ColorTextPrimary).Bold(true).Width(9)
	helpText    = lipgloss.NewStyle().Foreground(ColorTextSecondary)
)

// helpColumn lays out some binding groups under their section titles.
func helpColumn(titles []string, groups [][]key.Binding) string {
	var b strings.Builder
	for i, g := range groups {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(helpHeading.Render(titles[i]) + "\n")
		for _, kb := range g {
			h := kb.Help()
			b.WriteString(helpKey.Render(h.Key) + helpText.Render(h.Desc) + "\n")
		}
	}
	return b.String()
}

// actionSummary lists the action-line verbs, marking the ones that ask first.
func actionSummary() string {
	var b strings.Builder
	b.WriteString(helpHeading.Render("Actions") + "\n")
	for _, name := range drbdcmd.Names() {
		a, _ := drbdcmd.Lookup(name)
		line := helpKey.Width(13).Render(name) + helpText.Render(a.Summary)
		if a.Destructive {
			line += " " + SeverityStyle(severity.Warn).Render("!")
		}
		b.WriteString(line + "\n")
	}
	return b.String()
}

func (m Model) renderHelpOverlay() string {
	groups := keys.fullHelp()
	split := 3
	left := helpColumn(helpSections[:split], groups[:split])
	right := helpColumn(helpSections[split:], groups[split:]) + "\n" + actionSummary()

	body := lipgloss.JoinVertical(lipgloss.Left,
		helpHeading.MarginBottom(1).Render("Keyboard Shortcuts"),
		lipgloss.JoinHorizontal(lipgloss.Top, lipgloss.NewStyle().MarginRight(4).Render(left), right),
		MutedStyle.Render("? or esc closes this"),
	)
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center,
		helpFrame.Render(body),
		lipgloss.WithWhitespaceForeground(ColorDarkBg))
}
