package display

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/rileyhilliard/drbdmon/internal/msglog"
	"github.com/rileyhilliard/drbdmon/internal/severity"
	"github.com/rileyhilliard/drbdmon/internal/taskqueue"
)

// Dashboard color palette
const (
	ColorDarkBg    = lipgloss.Color("#0A0A0F")
	ColorSurfaceBg = lipgloss.Color("#12121A")
	ColorBorder    = lipgloss.Color("#2A2A4A")

	// Severity colors
	ColorHealthy  = lipgloss.Color("#39FF14") // Neon green
	ColorMarked   = lipgloss.Color("#00FFFF") // Neon cyan
	ColorWarning  = lipgloss.Color("#FFAA00") // Electric amber
	ColorCritical = lipgloss.Color("#FF0055") // Hot red-pink

	ColorTextPrimary   = lipgloss.Color("#FFFFFF")
	ColorTextSecondary = lipgloss.Color("#B4B4D0")
	ColorTextMuted     = lipgloss.Color("#6B6B8D")

	ColorAccent    = lipgloss.Color("#FF2E97") // Neon pink
	ColorAccentDim = lipgloss.Color("#BF40FF") // Neon purple
)

var (
	HeaderStyle = lipgloss.NewStyle().
			Foreground(ColorTextPrimary).
			Background(ColorSurfaceBg).
			Bold(true).
			Padding(0, 1)

	FooterStyle = lipgloss.NewStyle().
			Foreground(ColorTextMuted).
			Padding(0, 1)

	TabStyle = lipgloss.NewStyle().
			Foreground(ColorTextMuted).
			Padding(0, 1)

	TabActiveStyle = lipgloss.NewStyle().
			Foreground(ColorAccent).
			Bold(true).
			Underline(true).
			Padding(0, 1)

	NameStyle = lipgloss.NewStyle().
			Foreground(ColorTextPrimary).
			Bold(true)

	SelectedStyle = lipgloss.NewStyle().
			Foreground(ColorTextPrimary).
			Background(ColorBorder).
			Bold(true)

	LabelStyle = lipgloss.NewStyle().
			Foreground(ColorTextSecondary)

	MutedStyle = lipgloss.NewStyle().
			Foreground(ColorTextMuted)

	PromptStyle = lipgloss.NewStyle().
			Foreground(ColorAccent).
			Bold(true)
)

// Severity glyphs, one per level.
const (
	GlyphNorm  = "●"
	GlyphMark  = "◉"
	GlyphWarn  = "▲"
	GlyphAlert = "✗"
)

// SeverityColor returns the color for a severity level.
func SeverityColor(l severity.Level) lipgloss.Color {
	switch l {
	case severity.Norm:
		return ColorHealthy
	case severity.Mark:
		return ColorMarked
	case severity.Warn:
		return ColorWarning
	default:
		return ColorCritical
	}
}

// SeverityStyle returns a style with the level's foreground color.
func SeverityStyle(l severity.Level) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(SeverityColor(l))
}

// SeverityGlyph returns the colored indicator for a level.
func SeverityGlyph(l severity.Level) string {
	var g string
	switch l {
	case severity.Norm:
		g = GlyphNorm
	case severity.Mark:
		g = GlyphMark
	case severity.Warn:
		g = GlyphWarn
	default:
		g = GlyphAlert
	}
	return SeverityStyle(l).Render(g)
}

// TaskStateStyle colors a task state column.
func TaskStateStyle(t taskqueue.Snapshot) lipgloss.Style {
	switch t.State {
	case taskqueue.Active:
		return lipgloss.NewStyle().Foreground(ColorWarning)
	case taskqueue.Suspended:
		return lipgloss.NewStyle().Foreground(ColorTextMuted)
	case taskqueue.Finished:
		if t.Success() {
			return lipgloss.NewStyle().Foreground(ColorHealthy)
		}
		if t.Cancelled {
			return lipgloss.NewStyle().Foreground(ColorTextMuted)
		}
		return lipgloss.NewStyle().Foreground(ColorCritical)
	default:
		return lipgloss.NewStyle().Foreground(ColorTextSecondary)
	}
}

// LogLevelStyle colors a message log level.
func LogLevelStyle(l msglog.Level) lipgloss.Style {
	switch l {
	case msglog.Alert:
		return lipgloss.NewStyle().Foreground(ColorCritical).Bold(true)
	case msglog.Warn:
		return lipgloss.NewStyle().Foreground(ColorWarning)
	default:
		return lipgloss.NewStyle().Foreground(ColorTextSecondary)
	}
}

// SyncBar renders resync progress as a thin bar.
func SyncBar(width int, percent float64) string {
	if width < 1 {
		width = 1
	}
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}

	filled := int(percent / 100.0 * float64(width))
	if filled > width {
		filled = width
	}
	bar := strings.Repeat("━", filled) + strings.Repeat("─", width-filled)
	return lipgloss.NewStyle().Foreground(ColorMarked).Render(bar)
}

// SectionHeader renders a section header with the title on the left and value on the right.
// Format: ╭─ Title ────────────────────────────────────── Value ╮
func SectionHeader(title, value string, width int) string {
	if width < 10 {
		width = 10
	}

	leftWidth := 3 + lipgloss.Width(title) + 1
	rightWidth := 1 + lipgloss.Width(value) + 2
	fillWidth := width - leftWidth - rightWidth
	if fillWidth < 1 {
		fillWidth = 1
	}

	borderStyle := lipgloss.NewStyle().Foreground(ColorBorder)
	titleStyle := lipgloss.NewStyle().Foreground(ColorAccent).Bold(true)
	valueStyle := lipgloss.NewStyle().Foreground(ColorMarked).Bold(true)

	return borderStyle.Render("╭─ ") +
		titleStyle.Render(title) +
		borderStyle.Render(" "+strings.Repeat("─", fillWidth)+" ") +
		valueStyle.Render(value) +
		borderStyle.Render(" ╮")
}
