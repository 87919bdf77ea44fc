package display

import (
	"context"
	stderrors "errors"
	"io"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"golang.org/x/term"
)

// IsTerminal reports whether f is attached to a terminal.
func IsTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// SetColor enables or disables colored output for everything rendered with
// lipgloss.
func SetColor(enabled bool) {
	if enabled {
		lipgloss.SetColorProfile(termenv.EnvColorProfile())
		return
	}
	lipgloss.SetColorProfile(termenv.Ascii)
}

// Options configures Run.
type Options struct {
	Host   string           // Header label; empty for the local node
	Inbox  chan interface{} // Where operator input goes
	Tasks  TaskLookup       // Output for the task detail view
	Input  io.Reader        // Defaults to stdin
	Output io.Writer        // Defaults to stdout
	Extra  []tea.ProgramOption
}

// Run shows the dashboard while loop runs in a background goroutine. The
// program ends when loop returns; Run then returns loop's error.
func Run(ctx context.Context, opts Options, loop func(ctx context.Context, screen Screen) error) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	progOpts := []tea.ProgramOption{tea.WithAltScreen(), tea.WithContext(ctx)}
	if opts.Input != nil {
		progOpts = append(progOpts, tea.WithInput(opts.Input))
	}
	if opts.Output != nil {
		progOpts = append(progOpts, tea.WithOutput(opts.Output))
	}
	progOpts = append(progOpts, opts.Extra...)

	m := NewModel(opts.Host, opts.Inbox)
	m.tasks = opts.Tasks
	program := tea.NewProgram(m, progOpts...)
	bridge := NewBridge(program)

	loopErr := make(chan error, 1)
	go func() {
		err := loop(ctx, bridge)
		loopErr <- err
		bridge.Done()
	}()

	if _, err := program.Run(); err != nil && !stderrors.Is(err, tea.ErrProgramKilled) {
		cancel()
		<-loopErr
		return err
	}
	cancel()
	return <-loopErr
}
