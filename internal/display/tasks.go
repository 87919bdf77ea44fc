package display

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/rileyhilliard/drbdmon/internal/exec"
	"github.com/rileyhilliard/drbdmon/internal/msglog"
	"github.com/rileyhilliard/drbdmon/internal/taskqueue"
)

var taskColumns = []table.Column{
	{Title: "ID", Width: 5},
	{Title: "State", Width: 10},
	{Title: "Result", Width: 12},
	{Title: "Queued", Width: 16},
	{Title: "Output", Width: 9},
	{Title: "Description", Width: 40},
}

// TaskResult summarizes how a task ended, or is empty while it has not.
func TaskResult(t taskqueue.Snapshot) string {
	if t.State != taskqueue.Finished {
		return ""
	}
	switch {
	case t.Cancelled:
		return "cancelled"
	case t.ExitStatus == exec.ExitStatusFailed:
		return "spawn failed"
	case t.ExitStatus > 128:
		return fmt.Sprintf("signal %d", t.ExitStatus-128)
	default:
		return fmt.Sprintf("exit %d", t.ExitStatus)
	}
}

// OutputSize is the size of a task's captured output including what was
// discarded.
func OutputSize(t taskqueue.Snapshot) string {
	n := uint64(t.StdoutSize+t.StderrSize) + uint64(t.StdoutDiscarded+t.StderrDiscarded)
	return humanize.Bytes(n)
}

func (m Model) taskTable(height int) table.Model {
	rows := make([]table.Row, 0, len(m.frame.Tasks))
	for _, t := range m.frame.Tasks {
		rows = append(rows, table.Row{
			fmt.Sprintf("%d", t.ID),
			t.State.String(),
			TaskResult(t),
			humanize.RelTime(t.Enqueued, m.now(), "ago", "from now"),
			OutputSize(t),
			t.Description,
		})
	}

	cols := append([]table.Column(nil), taskColumns...)
	if m.width > 0 {
		used := 0
		for _, c := range cols[:len(cols)-1] {
			used += c.Width + 2
		}
		if w := m.width - used - 2; w > 20 {
			cols[len(cols)-1].Width = w
		}
	}

	t := table.New(
		table.WithColumns(cols),
		table.WithRows(rows),
		table.WithFocused(true),
		table.WithHeight(height),
	)
	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(ColorBorder).
		BorderBottom(true).
		Bold(true).
		Foreground(ColorAccent)
	s.Cell = s.Cell.Foreground(ColorTextPrimary)
	s.Selected = s.Selected.
		Foreground(ColorTextPrimary).
		Background(ColorBorder).
		Bold(true)
	t.SetStyles(s)
	t.SetCursor(m.selected[PageTasks])
	return t
}

// renderTasks renders the task page.
func (m Model) renderTasks(height int) string {
	if m.detail {
		return m.detailView.View()
	}
	if len(m.frame.Tasks) == 0 {
		return LabelStyle.Render("No tasks. Press 1, select a resource and press a to queue one.")
	}
	return m.taskTable(height).View()
}

// TaskLookup fetches one task with its captured output. *taskqueue.Queue
// implements it.
type TaskLookup interface {
	Get(id uint64) (taskqueue.Snapshot, bool)
}

// detailTask returns the task shown in the detail view, with output when a
// lookup is wired.
func (m Model) detailTask() (taskqueue.Snapshot, bool) {
	if _, listed := m.task(m.detailID); !listed {
		return taskqueue.Snapshot{}, false
	}
	if m.tasks != nil {
		if t, ok := m.tasks.Get(m.detailID); ok {
			return t, true
		}
	}
	return m.task(m.detailID)
}

func (m Model) task(id uint64) (taskqueue.Snapshot, bool) {
	for _, t := range m.frame.Tasks {
		if t.ID == id {
			return t, true
		}
	}
	return taskqueue.Snapshot{}, false
}

// renderTaskDetail renders one task with its captured output.
func renderTaskDetail(t taskqueue.Snapshot, width int) string {
	var b strings.Builder
	b.WriteString(SectionHeader(fmt.Sprintf("Task %d", t.ID), t.State.String(), width))
	b.WriteString("\n")

	field := func(label, value string) {
		b.WriteString(LabelStyle.Render(fmt.Sprintf("%-12s", label)))
		b.WriteString(value)
		b.WriteString("\n")
	}
	field("Description", t.Description)
	field("Command", strings.Join(t.Argv, " "))
	field("State", TaskStateStyle(t).Render(t.State.String()))
	if r := TaskResult(t); r != "" {
		field("Result", TaskStateStyle(t).Render(r))
	}
	if t.Error != "" {
		field("Error", LogLevelStyle(msglog.Alert).Render(t.Error))
	}
	field("Queued", t.Enqueued.Format(time.DateTime))
	if !t.Started.IsZero() {
		field("Started", t.Started.Format(time.DateTime))
	}
	if !t.Ended.IsZero() {
		field("Ended", t.Ended.Format(time.DateTime))
		if !t.Started.IsZero() {
			field("Runtime", t.Ended.Sub(t.Started).Round(time.Millisecond).String())
		}
	}

	output := func(title string, data []byte, size int, discarded int64) {
		b.WriteString("\n")
		value := humanize.Bytes(uint64(size))
		if discarded > 0 {
			value += ", " + humanize.Bytes(uint64(discarded)) + " discarded"
		}
		b.WriteString(SectionHeader(title, value, width))
		b.WriteString("\n")
		if len(data) == 0 {
			note := "(empty)"
			if size > 0 {
				note = "(output not loaded)"
			}
			b.WriteString(MutedStyle.Render(note))
			b.WriteString("\n")
			return
		}
		b.WriteString(strings.TrimRight(string(data), "\n"))
		b.WriteString("\n")
	}
	output("stdout", t.Stdout, t.StdoutSize, t.StdoutDiscarded)
	output("stderr", t.Stderr, t.StderrSize, t.StderrDiscarded)
	return b.String()
}
