package display

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/rileyhilliard/drbdmon/internal/monitor"
)

// Screen is where the restart loop shows sessions: frames from the running
// session, and a status line between sessions.
type Screen interface {
	monitor.Display
	Status(text string)
}

// Bridge forwards session frames to the Bubble Tea program via
// program.Send(). This is goroutine-safe.
type Bridge struct {
	program *tea.Program
}

// NewBridge creates a new bridge that forwards frames to the given program.
func NewBridge(program *tea.Program) *Bridge {
	return &Bridge{program: program}
}

// Show forwards a frame to the TUI.
func (b *Bridge) Show(fr monitor.Frame) {
	b.program.Send(FrameMsg{Frame: fr})
}

// Status replaces the TUI status line.
func (b *Bridge) Status(text string) {
	b.program.Send(StatusMsg{Text: text})
}

// Done ends the program.
func (b *Bridge) Done() {
	b.program.Send(doneMsg{})
}
