package display

import (
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rileyhilliard/drbdmon/internal/drbdcmd"
	"github.com/rileyhilliard/drbdmon/internal/events"
	"github.com/rileyhilliard/drbdmon/internal/model"
	"github.com/rileyhilliard/drbdmon/internal/monitor"
	"github.com/rileyhilliard/drbdmon/internal/msglog"
	"github.com/rileyhilliard/drbdmon/internal/taskqueue"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// snapshotOf builds a model snapshot from status-stream lines.
func snapshotOf(t *testing.T, lines ...string) model.Snapshot {
	t.Helper()
	m := model.New(0)
	for _, line := range lines {
		ev, err := events.Parse(line)
		require.NoError(t, err, line)
		require.NoError(t, m.Apply(ev), line)
	}
	return m.Snapshot()
}

func twoResources(t *testing.T) model.Snapshot {
	return snapshotOf(t,
		"exists resource name:r0 role:Primary",
		"exists device name:r0 volume:0 minor:0 disk:UpToDate client:no quorum:yes",
		"exists connection name:r0 peer-node-id:1 conn-name:nodeB connection:Connecting role:Unknown",
		"exists resource name:r1 role:Secondary",
		"exists -",
	)
}

func testTasks() []taskqueue.Snapshot {
	now := time.Now()
	return []taskqueue.Snapshot{
		{ID: 1, Description: "Start, resource r0", Argv: []string{"drbdadm", "up", "r0"}, State: taskqueue.Finished, Enqueued: now},
		{ID: 2, Description: "Connect, resource r1", Argv: []string{"drbdadm", "connect", "r1"}, State: taskqueue.Suspended, Enqueued: now},
	}
}

func newTestModel(t *testing.T) (Model, chan interface{}) {
	t.Helper()
	inbox := make(chan interface{}, 8)
	m := NewModel("", inbox)
	m = update(t, m, tea.WindowSizeMsg{Width: 120, Height: 40})
	m = update(t, m, FrameMsg{Frame: monitor.Frame{
		Model: twoResources(t),
		Tasks: testTasks(),
		Log:   []msglog.Entry{{Level: msglog.Warn, Time: time.Now(), Text: "Unknown event verb \"explode\""}},
	}})
	return m, inbox
}

func update(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	next, _ := m.Update(msg)
	return next.(Model)
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

// press sends msg and runs the returned command, returning the item it
// delivered to the inbox, if any.
func press(t *testing.T, m Model, inbox chan interface{}, msg tea.KeyMsg) (Model, interface{}) {
	t.Helper()
	next, cmd := m.Update(msg)
	if cmd != nil {
		cmd()
	}
	select {
	case item := <-inbox:
		return next.(Model), item
	default:
		return next.(Model), nil
	}
}

func TestGlobalKeysReachTheSession(t *testing.T) {
	tests := []struct {
		name string
		msg  tea.KeyMsg
		want interface{}
	}{
		{"q", runes("q"), monitor.Quit{}},
		{"ctrl+c", tea.KeyMsg{Type: tea.KeyCtrlC}, monitor.Quit{}},
		{"r", runes("r"), monitor.Repaint{}},
		{"ctrl+l", tea.KeyMsg{Type: tea.KeyCtrlL}, monitor.Repaint{}},
		{"ctrl+r", tea.KeyMsg{Type: tea.KeyCtrlR}, monitor.Reinitialize{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, inbox := newTestModel(t)
			_, item := press(t, m, inbox, tt.msg)
			assert.Equal(t, tt.want, item)
		})
	}
}

func TestPageSwitching(t *testing.T) {
	m, _ := newTestModel(t)
	assert.Equal(t, PageResources, m.Page())

	m = update(t, m, tea.KeyMsg{Type: tea.KeyTab})
	assert.Equal(t, PageTasks, m.Page())
	m = update(t, m, tea.KeyMsg{Type: tea.KeyTab})
	assert.Equal(t, PageLog, m.Page())
	m = update(t, m, tea.KeyMsg{Type: tea.KeyTab})
	assert.Equal(t, PageResources, m.Page())

	m = update(t, m, runes("3"))
	assert.Equal(t, PageLog, m.Page())
	m = update(t, m, runes("2"))
	assert.Equal(t, PageTasks, m.Page())
	m = update(t, m, runes("1"))
	assert.Equal(t, PageResources, m.Page())
}

func TestSelectionIsClampedToFrame(t *testing.T) {
	m, _ := newTestModel(t)
	for i := 0; i < 5; i++ {
		m = update(t, m, runes("j"))
	}
	assert.Equal(t, "r1", m.selectedResource())

	m = update(t, m, FrameMsg{Frame: monitor.Frame{Model: snapshotOf(t, "exists resource name:r0 role:Primary", "exists -")}})
	assert.Equal(t, "r0", m.selectedResource())

	m = update(t, m, FrameMsg{Frame: monitor.Frame{Model: snapshotOf(t, "exists -")}})
	assert.Equal(t, "", m.selectedResource())
}

func TestActionLineQueuesForSelectedResource(t *testing.T) {
	m, inbox := newTestModel(t)
	m = update(t, m, runes("j"))
	m = update(t, m, runes("a"))
	require.True(t, m.inputOn)
	assert.Contains(t, m.View(), "action>")

	m = update(t, m, runes("connect"))
	m, item := press(t, m, inbox, tea.KeyMsg{Type: tea.KeyEnter})
	assert.False(t, m.inputOn)
	assert.Equal(t, monitor.RunAction{
		Action:   "connect",
		Target:   drbdcmd.NewTarget("r1"),
		Activate: true,
	}, item)
}

func TestDestructiveActionNeedsConfirmation(t *testing.T) {
	m, inbox := newTestModel(t)
	m = update(t, m, runes("a"))
	m = update(t, m, runes("stop"))
	m, item := press(t, m, inbox, tea.KeyMsg{Type: tea.KeyEnter})
	assert.Nil(t, item)
	assert.Contains(t, m.View(), "Stop r0? (y/n)")

	m, item = press(t, m, inbox, runes("y"))
	assert.Equal(t, monitor.RunAction{
		Action:   "stop",
		Target:   drbdcmd.NewTarget("r0"),
		Activate: true,
	}, item)
	assert.Nil(t, m.confirm)
}

func TestDestructiveActionCanBeCancelled(t *testing.T) {
	m, inbox := newTestModel(t)
	m = update(t, m, runes("a"))
	m = update(t, m, runes("invalidate r0/0"))
	m = update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, m.confirm)

	m, item := press(t, m, inbox, runes("n"))
	assert.Nil(t, item)
	assert.Nil(t, m.confirm)
	assert.Equal(t, "Cancelled", m.Status())
}

func TestActionLineErrorShowsInStatus(t *testing.T) {
	m, inbox := newTestModel(t)
	m = update(t, m, runes("a"))
	m = update(t, m, runes("explode"))
	m, item := press(t, m, inbox, tea.KeyMsg{Type: tea.KeyEnter})
	assert.Nil(t, item)
	assert.Contains(t, m.Status(), "Unknown action 'explode'")

	// Any key clears it.
	m = update(t, m, runes("j"))
	assert.Empty(t, m.Status())
}

func TestEscapeClosesActionLine(t *testing.T) {
	m, inbox := newTestModel(t)
	m = update(t, m, runes("a"))
	m = update(t, m, runes("q"))
	m, item := press(t, m, inbox, tea.KeyMsg{Type: tea.KeyEsc})
	assert.Nil(t, item, "q typed into the action line does not quit")
	assert.False(t, m.inputOn)
}

func TestTaskKeys(t *testing.T) {
	m, inbox := newTestModel(t)
	m = update(t, m, runes("2"))
	m = update(t, m, runes("j"))

	tests := []struct {
		key string
		op  monitor.TaskOp
	}{
		{"s", monitor.OpSuspend},
		{"p", monitor.OpMakePending},
		{"t", monitor.OpTerminate},
		{"K", monitor.OpKill},
		{"x", monitor.OpRemove},
	}
	for _, tt := range tests {
		var item interface{}
		m, item = press(t, m, inbox, runes(tt.key))
		assert.Equal(t, monitor.TaskCommand{Op: tt.op, ID: 2}, item, tt.key)
	}
}

func TestTaskDetail(t *testing.T) {
	m, inbox := newTestModel(t)
	m = update(t, m, runes("2"))
	m = update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	require.True(t, m.detail)
	assert.Equal(t, uint64(1), m.detailID)
	assert.Contains(t, m.View(), "drbdadm up r0")

	m, item := press(t, m, inbox, runes("x"))
	assert.Equal(t, monitor.TaskCommand{Op: monitor.OpRemove, ID: 1}, item)

	// The task disappears from the next frame, closing the detail view.
	m = update(t, m, FrameMsg{Frame: monitor.Frame{Tasks: testTasks()[1:]}})
	assert.False(t, m.detail)

	m = update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	require.True(t, m.detail)
	m = update(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	assert.False(t, m.detail)
}

func TestHelpOverlay(t *testing.T) {
	m, inbox := newTestModel(t)
	m = update(t, m, runes("?"))
	assert.Contains(t, m.View(), "Keyboard Shortcuts")

	_, item := press(t, m, inbox, runes("q"))
	assert.Nil(t, item, "keys are swallowed while help is shown")

	m = update(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	assert.NotContains(t, m.View(), "Keyboard Shortcuts")
}

func TestFrameRepaintClearsScreen(t *testing.T) {
	m, _ := newTestModel(t)
	_, cmd := m.Update(FrameMsg{Frame: monitor.Frame{Repaint: true}})
	assert.NotNil(t, cmd)
	_, cmd = m.Update(FrameMsg{})
	assert.Nil(t, cmd)
}

func TestDoneQuits(t *testing.T) {
	m, _ := newTestModel(t)
	next, cmd := m.Update(doneMsg{})
	require.NotNil(t, cmd)
	assert.Equal(t, tea.QuitMsg{}, cmd())
	assert.Empty(t, next.View())
}

func TestStatusMessage(t *testing.T) {
	m, _ := newTestModel(t)
	m = update(t, m, StatusMsg{Text: "Restarting in 3s"})
	assert.Contains(t, m.View(), "Restarting in 3s")
}

func TestViewRendersPages(t *testing.T) {
	m, _ := newTestModel(t)

	view := m.View()
	assert.Contains(t, view, "drbdmon")
	assert.Contains(t, view, "local")
	assert.Contains(t, view, "2 resources")
	assert.Contains(t, view, "r0")
	assert.Contains(t, view, "nodeB")
	assert.Contains(t, view, "Connecting")
	assert.Contains(t, view, "UpToDate")

	m = update(t, m, runes("2"))
	view = m.View()
	assert.Contains(t, view, "Connect, resource r1")
	assert.Contains(t, view, "suspended")

	m = update(t, m, runes("3"))
	assert.Contains(t, m.View(), "explode")
}

func TestLoadingState(t *testing.T) {
	m := NewModel("nodeA", nil)
	m = update(t, m, tea.WindowSizeMsg{Width: 100, Height: 30})
	view := m.View()
	assert.Contains(t, view, "Loading initial state")
	assert.Contains(t, view, "nodeA")
}

type lookupFunc func(id uint64) (taskqueue.Snapshot, bool)

func (f lookupFunc) Get(id uint64) (taskqueue.Snapshot, bool) { return f(id) }

func TestTaskDetailFetchesOutput(t *testing.T) {
	m, _ := newTestModel(t)
	var asked []uint64
	m.tasks = lookupFunc(func(id uint64) (taskqueue.Snapshot, bool) {
		asked = append(asked, id)
		snap := testTasks()[0]
		snap.Stdout = []byte("r0: up and running\n")
		snap.StdoutSize = len(snap.Stdout)
		return snap, true
	})

	m = update(t, m, runes("2"))
	m = update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	require.True(t, m.detail)
	assert.Contains(t, m.View(), "r0: up and running")
	assert.Contains(t, asked, uint64(1))

	// Frames list tasks without output; the detail view keeps fetching it.
	m = update(t, m, FrameMsg{Frame: monitor.Frame{Tasks: testTasks()}})
	assert.Contains(t, m.View(), "r0: up and running")
}
