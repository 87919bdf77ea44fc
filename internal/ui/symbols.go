package ui

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/rileyhilliard/drbdmon/internal/severity"
	"github.com/rileyhilliard/drbdmon/internal/taskqueue"
)

// Unicode symbols for status indicators.
const (
	SymbolSuccess  = "✓" // Task exited 0
	SymbolFail     = "✗" // Task failed, or ALERT
	SymbolPending  = "○" // Task waiting
	SymbolProgress = "◐" // Task running
	SymbolComplete = "●" // NORM
	SymbolMarked   = "◉" // MARK
	SymbolWarning  = "▲" // WARN
	SymbolSkipped  = "⊘" // Task suspended or cancelled
)

// SeveritySymbol returns the colored symbol for a level.
func SeveritySymbol(l severity.Level) string {
	var sym string
	switch l {
	case severity.Norm:
		sym = SymbolComplete
	case severity.Mark:
		sym = SymbolMarked
	case severity.Warn:
		sym = SymbolWarning
	default:
		sym = SymbolFail
	}
	return SeverityStyle(l).Render(sym)
}

// TaskSymbol returns the colored symbol for a task's state.
func TaskSymbol(t taskqueue.Snapshot) string {
	switch t.State {
	case taskqueue.Pending:
		return MutedStyle().Render(SymbolPending)
	case taskqueue.Active:
		return lipgloss.NewStyle().Foreground(ColorSecondary).Render(SymbolProgress)
	case taskqueue.Suspended:
		return MutedStyle().Render(SymbolSkipped)
	}
	switch {
	case t.Cancelled:
		return MutedStyle().Render(SymbolSkipped)
	case t.Success():
		return SuccessStyle().Render(SymbolSuccess)
	default:
		return ErrorStyle().Render(SymbolFail)
	}
}
