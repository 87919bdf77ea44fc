package ui

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/rileyhilliard/drbdmon/internal/severity"
)

// Semantic colors for status indication
const (
	ColorSuccess lipgloss.Color = "2" // Green
	ColorError   lipgloss.Color = "1" // Red
	ColorWarning lipgloss.Color = "3" // Yellow
	ColorInfo    lipgloss.Color = "6" // Cyan
)

// Text colors for content hierarchy
const (
	ColorPrimary   lipgloss.Color = "7" // White/default
	ColorSecondary lipgloss.Color = "4" // Blue
	ColorMuted     lipgloss.Color = "8" // Gray (bright black)
)

// SpinnerColors cycle while a spinner runs.
var SpinnerColors = []lipgloss.Color{ColorSecondary, ColorInfo}

// SuccessStyle renders successful results.
func SuccessStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(ColorSuccess)
}

// ErrorStyle renders failures.
func ErrorStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(ColorError)
}

// WarningStyle renders warnings.
func WarningStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(ColorWarning)
}

// MutedStyle renders secondary text.
func MutedStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(ColorMuted)
}

// BoldStyle renders headings.
func BoldStyle() lipgloss.Style {
	return lipgloss.NewStyle().Bold(true).Foreground(ColorPrimary)
}

// SeverityColor maps a severity level to its ANSI color.
func SeverityColor(l severity.Level) lipgloss.Color {
	switch l {
	case severity.Norm:
		return ColorSuccess
	case severity.Mark:
		return ColorInfo
	case severity.Warn:
		return ColorWarning
	default:
		return ColorError
	}
}

// SeverityStyle renders text in the level's color. ALERT is also bold.
func SeverityStyle(l severity.Level) lipgloss.Style {
	s := lipgloss.NewStyle().Foreground(SeverityColor(l))
	if l == severity.Alert {
		s = s.Bold(true)
	}
	return s
}
