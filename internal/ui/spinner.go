package ui

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
)

// SpinnerState is where a spinner is in its life.
type SpinnerState int

const (
	SpinnerPending SpinnerState = iota
	SpinnerInProgress
	SpinnerSuccess
	SpinnerFailed
)

const spinnerInterval = 100 * time.Millisecond

var spinnerFrames = []string{"◐", "◓", "◑", "◒"}

// Spinner animates a one-line "label..." indicator on a terminal while a
// task runs, and leaves a ✓ or ✗ line with the elapsed time behind.
type Spinner struct {
	label string
	w     io.Writer

	mu      sync.Mutex
	state   SpinnerState
	tick    int
	began   time.Time
	width   int // visible width of the line on screen
	quit    chan struct{}
	stopped chan struct{}
}

// NewSpinner creates a spinner that draws on w.
func NewSpinner(label string, w io.Writer) *Spinner {
	return &Spinner{label: label, w: w}
}

// Start draws the first frame and begins animating. It does nothing when the
// spinner is already running.
func (s *Spinner) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.quit != nil {
		return
	}
	s.state = SpinnerInProgress
	s.began = time.Now()
	s.quit = make(chan struct{})
	s.stopped = make(chan struct{})
	s.draw()
	go s.loop(s.quit, s.stopped)
}

func (s *Spinner) loop(quit <-chan struct{}, stopped chan<- struct{}) {
	defer close(stopped)
	t := time.NewTicker(spinnerInterval)
	defer t.Stop()
	for {
		select {
		case <-quit:
			return
		case <-t.C:
			s.mu.Lock()
			s.tick++
			s.draw()
			s.mu.Unlock()
		}
	}
}

// Stop ends the animation and erases the line, leaving the state as is.
func (s *Spinner) Stop() {
	s.mu.Lock()
	quit, stopped := s.quit, s.stopped
	s.quit = nil
	s.mu.Unlock()
	if quit == nil {
		return
	}
	close(quit)
	<-stopped

	s.mu.Lock()
	s.erase()
	s.mu.Unlock()
}

// Success stops the spinner with a ✓ line.
func (s *Spinner) Success() { s.end(SpinnerSuccess, "") }

// Fail stops the spinner with a ✗ line; reason, if any, follows the label.
func (s *Spinner) Fail(reason string) { s.end(SpinnerFailed, reason) }

// State reports the spinner's state.
func (s *Spinner) State() SpinnerState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Spinner) end(state SpinnerState, reason string) {
	s.Stop()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = state
	mark := SuccessStyle().Render(SymbolSuccess)
	if state == SpinnerFailed {
		mark = ErrorStyle().Render(SymbolFail)
	}
	text := s.label
	if reason != "" {
		text = s.label + ": " + reason
	}
	took := time.Duration(0)
	if !s.began.IsZero() {
		took = time.Since(s.began)
	}
	fmt.Fprintf(s.w, "%s %s %s\n", mark, text, MutedStyle().Render(FormatDuration(took)))
}

// draw repaints the current frame. Callers hold s.mu.
func (s *Spinner) draw() {
	i := s.tick % len(spinnerFrames)
	glyph := lipgloss.NewStyle().
		Foreground(SpinnerColors[(s.tick/2)%len(SpinnerColors)]).
		Render(spinnerFrames[i])
	line := glyph + " " + s.label + "..."
	s.erase()
	fmt.Fprint(s.w, line)
	s.width = lipgloss.Width(line)
}

// erase blanks the drawn line. Callers hold s.mu.
func (s *Spinner) erase() {
	if s.width == 0 {
		return
	}
	fmt.Fprint(s.w, "\r"+strings.Repeat(" ", s.width)+"\r")
	s.width = 0
}

// FormatDuration renders an elapsed time in seconds: two decimals below
// 0.1s, one above.
func FormatDuration(d time.Duration) string {
	if d < spinnerInterval {
		return fmt.Sprintf("%.2fs", d.Seconds())
	}
	return fmt.Sprintf("%.1fs", d.Seconds())
}
