package display

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/rileyhilliard/drbdmon/internal/drbdcmd"
	"github.com/rileyhilliard/drbdmon/internal/errors"
	"github.com/rileyhilliard/drbdmon/internal/monitor"
)

// FrameMsg carries a new frame from the session.
type FrameMsg struct {
	Frame monitor.Frame
}

// StatusMsg replaces the status line, e.g. while waiting to restart.
type StatusMsg struct {
	Text string
}

// doneMsg tells the program the session loop is over.
type doneMsg struct{}

// Reserved rows: header, tabs, blank line above the footer, footer.
const chromeHeight = 4

// SpinnerFrames match the CLI spinner.
var SpinnerFrames = spinner.Spinner{
	Frames: []string{"◐", "◓", "◑", "◒"},
	FPS:    time.Second / 10,
}

// Model is the Bubble Tea model for the dashboard.
type Model struct {
	inbox  chan<- interface{}
	tasks  TaskLookup
	host   string
	frame  monitor.Frame
	status string

	page     PageID
	selected [pageCount]int
	width    int
	height   int
	showHelp bool
	quitting bool

	// Task detail view
	detail     bool
	detailID   uint64
	detailView viewport.Model

	logView   viewport.Model
	logFollow bool

	// Action line and confirmation of destructive actions
	input     textinput.Model
	inputOn   bool
	confirm   *monitor.RunAction
	confirmOf string

	spinner spinner.Model
	help    help.Model
	now     func() time.Time
}

// NewModel creates a dashboard that sends operator input to inbox. host
// labels the header; empty means the local node.
func NewModel(host string, inbox chan<- interface{}) Model {
	sp := spinner.New()
	sp.Spinner = SpinnerFrames
	sp.Style = lipgloss.NewStyle().Foreground(ColorAccent)

	ti := textinput.New()
	ti.Prompt = "action> "
	ti.Placeholder = "connect r0:nodeB"
	ti.PromptStyle = PromptStyle
	ti.CharLimit = 256

	h := help.New()
	h.ShortSeparator = " | "

	return Model{
		inbox:      inbox,
		host:       host,
		logFollow:  true,
		input:      ti,
		spinner:    sp,
		help:       h,
		detailView: viewport.New(80, 20),
		logView:    viewport.New(80, 20),
		now:        time.Now,
	}
}

// Init starts the spinner.
func (m Model) Init() tea.Cmd {
	return m.spinner.Tick
}

// Update handles messages and updates the model state.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		cmd := m.handleKey(msg)
		return m, cmd

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		h := m.bodyHeight()
		m.detailView.Width, m.detailView.Height = msg.Width, h
		m.logView.Width, m.logView.Height = msg.Width, h
		m.syncViews()

	case FrameMsg:
		m.frame = msg.Frame
		m.clampSelection()
		m.syncViews()
		if msg.Frame.Repaint {
			return m, tea.ClearScreen
		}

	case StatusMsg:
		m.status = msg.Text

	case doneMsg:
		m.quitting = true
		return m, tea.Quit

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

// View renders the dashboard.
func (m Model) View() string {
	if m.quitting {
		return ""
	}
	if m.showHelp {
		return m.renderHelpOverlay()
	}
	return m.renderDashboard()
}

// send returns a command delivering item to the session.
func (m Model) send(item interface{}) tea.Cmd {
	inbox := m.inbox
	return func() tea.Msg {
		if inbox != nil {
			inbox <- item
		}
		return nil
	}
}

func (m *Model) handleKey(msg tea.KeyMsg) tea.Cmd {
	if m.inputOn {
		return m.handleInputKey(msg)
	}
	if m.confirm != nil {
		return m.handleConfirmKey(msg)
	}
	m.status = ""

	if key.Matches(msg, keys.Help) {
		m.showHelp = !m.showHelp
		return nil
	}
	if m.showHelp {
		if key.Matches(msg, keys.Back) {
			m.showHelp = false
		}
		return nil
	}

	switch {
	case key.Matches(msg, keys.Quit):
		return m.send(monitor.Quit{})
	case key.Matches(msg, keys.Repaint):
		return m.send(monitor.Repaint{})
	case key.Matches(msg, keys.Reinit):
		return m.send(monitor.Reinitialize{})
	case key.Matches(msg, keys.NextPage):
		m.setPage(m.page.Next())
		return nil
	case key.Matches(msg, keys.Resources):
		m.setPage(PageResources)
		return nil
	case key.Matches(msg, keys.Tasks):
		m.setPage(PageTasks)
		return nil
	case key.Matches(msg, keys.Log):
		m.setPage(PageLog)
		return nil
	}

	if m.detail {
		if key.Matches(msg, keys.Back) {
			m.detail = false
			return nil
		}
		if cmd, ok := m.handleTaskKey(msg); ok {
			return cmd
		}
		var cmd tea.Cmd
		m.detailView, cmd = m.detailView.Update(msg)
		return cmd
	}

	switch m.page {
	case PageResources:
		return m.handleResourceKey(msg)
	case PageTasks:
		cmd, _ := m.handleTaskKey(msg)
		return cmd
	default:
		return m.handleLogKey(msg)
	}
}

func (m *Model) setPage(p PageID) {
	m.page = p
	m.detail = false
}

// moveSelection applies the navigation keys to the current page.
func (m *Model) moveSelection(msg tea.KeyMsg, rows int) bool {
	sel := &m.selected[m.page]
	switch {
	case key.Matches(msg, keys.Up):
		if *sel > 0 {
			*sel--
		}
	case key.Matches(msg, keys.Down):
		if *sel < rows-1 {
			*sel++
		}
	case key.Matches(msg, keys.Top):
		*sel = 0
	case key.Matches(msg, keys.Bottom):
		if rows > 0 {
			*sel = rows - 1
		}
	default:
		return false
	}
	return true
}

func (m *Model) clampSelection() {
	rows := [pageCount]int{len(m.frame.Model.Resources), len(m.frame.Tasks), len(m.frame.Log)}
	for i, n := range rows {
		if m.selected[i] >= n {
			m.selected[i] = n - 1
		}
		if m.selected[i] < 0 {
			m.selected[i] = 0
		}
	}
	if m.detail {
		if _, ok := m.task(m.detailID); !ok {
			m.detail = false
		}
	}
}

func (m *Model) handleResourceKey(msg tea.KeyMsg) tea.Cmd {
	if m.moveSelection(msg, len(m.frame.Model.Resources)) {
		return nil
	}
	if key.Matches(msg, keys.Action) {
		m.inputOn = true
		m.input.Reset()
		return m.input.Focus()
	}
	return nil
}

func (m *Model) handleInputKey(msg tea.KeyMsg) tea.Cmd {
	switch msg.Type {
	case tea.KeyEsc:
		m.closeInput()
		return nil
	case tea.KeyEnter:
		line := m.input.Value()
		m.closeInput()
		action, err := ParseActionLine(line, m.selectedResource())
		if err != nil {
			m.status = errors.Summary(err)
			return nil
		}
		if a, _ := drbdcmd.Lookup(action.Action); a.Destructive {
			m.confirm = &action
			m.confirmOf = fmt.Sprintf("%s %s", a.Summary, action.Target)
			return nil
		}
		m.status = ""
		return m.send(action)
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return cmd
}

func (m *Model) closeInput() {
	m.inputOn = false
	m.input.Blur()
}

func (m *Model) handleConfirmKey(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, keys.Confirm):
		action := *m.confirm
		m.confirm = nil
		m.status = ""
		return m.send(action)
	case key.Matches(msg, keys.Cancel):
		m.confirm = nil
		m.status = "Cancelled"
	}
	return nil
}

func (m Model) selectedResource() string {
	res := m.frame.Model.Resources
	i := m.selected[PageResources]
	if i >= 0 && i < len(res) {
		return res[i].Name
	}
	return ""
}

// handleTaskKey handles the task operation keys, on the task page and in
// the detail view. It reports whether the key was one of them.
func (m *Model) handleTaskKey(msg tea.KeyMsg) (tea.Cmd, bool) {
	if !m.detail && m.moveSelection(msg, len(m.frame.Tasks)) {
		return nil, true
	}

	id, ok := m.currentTaskID()
	if !ok {
		return nil, false
	}
	var op monitor.TaskOp
	switch {
	case key.Matches(msg, keys.Open):
		if !m.detail {
			m.detail = true
			m.detailID = id
			m.detailView.GotoTop()
			m.syncViews()
		}
		return nil, true
	case key.Matches(msg, keys.Suspend):
		op = monitor.OpSuspend
	case key.Matches(msg, keys.MakePending):
		op = monitor.OpMakePending
	case key.Matches(msg, keys.Terminate):
		op = monitor.OpTerminate
	case key.Matches(msg, keys.Kill):
		op = monitor.OpKill
	case key.Matches(msg, keys.Remove):
		op = monitor.OpRemove
	default:
		return nil, false
	}
	return m.send(monitor.TaskCommand{Op: op, ID: id}), true
}

func (m Model) currentTaskID() (uint64, bool) {
	if m.detail {
		return m.detailID, true
	}
	i := m.selected[PageTasks]
	if i >= 0 && i < len(m.frame.Tasks) {
		return m.frame.Tasks[i].ID, true
	}
	return 0, false
}

func (m *Model) handleLogKey(msg tea.KeyMsg) tea.Cmd {
	var cmd tea.Cmd
	m.logView, cmd = m.logView.Update(msg)
	m.logFollow = m.logView.AtBottom()
	return cmd
}

// syncViews refreshes viewport content from the current frame.
func (m *Model) syncViews() {
	if m.detail {
		if t, ok := m.detailTask(); ok {
			m.detailView.SetContent(renderTaskDetail(t, m.width))
		}
	}
	m.logView.SetContent(renderLog(m.frame.Log))
	if m.logFollow {
		m.logView.GotoBottom()
	}
}

func (m Model) bodyHeight() int {
	h := m.height - chromeHeight
	if h < 1 {
		h = 1
	}
	return h
}

// Status returns the current status line text.
func (m Model) Status() string {
	return strings.TrimSpace(m.status)
}

// Page returns the page on screen.
func (m Model) Page() PageID {
	return m.page
}
