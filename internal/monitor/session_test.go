package monitor

import (
	"context"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rileyhilliard/drbdmon/internal/drbdcmd"
	"github.com/rileyhilliard/drbdmon/internal/errors"
	"github.com/rileyhilliard/drbdmon/internal/logger"
	"github.com/rileyhilliard/drbdmon/internal/msglog"
	"github.com/rileyhilliard/drbdmon/internal/notify"
	"github.com/rileyhilliard/drbdmon/internal/severity"
	"github.com/rileyhilliard/drbdmon/internal/taskqueue"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	ch     chan string
	err    error
	mu     sync.Mutex
	closed bool
}

func newFakeSource(lines ...string) *fakeSource {
	f := &fakeSource{ch: make(chan string, len(lines)+16)}
	for _, l := range lines {
		f.ch <- l
	}
	return f
}

func (f *fakeSource) Lines() <-chan string { return f.ch }
func (f *fakeSource) Err() error           { return f.err }

func (f *fakeSource) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeSource) isClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

// fail ends the stream with err.
func (f *fakeSource) fail(err error) {
	f.err = err
	close(f.ch)
}

type recorder struct {
	mu     sync.Mutex
	frames []Frame
}

func (r *recorder) Show(fr Frame) {
	r.mu.Lock()
	r.frames = append(r.frames, fr)
	r.mu.Unlock()
}

func (r *recorder) last() (Frame, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.frames) == 0 {
		return Frame{}, false
	}
	return r.frames[len(r.frames)-1], true
}

type harness struct {
	cfg     Config
	src     *fakeSource
	display *recorder
	log     *msglog.Log
	queue   *taskqueue.Queue
}

func newHarness(src *fakeSource) *harness {
	bridge := notify.NewBridge()
	h := &harness{
		src:     src,
		display: &recorder{},
		log:     msglog.New(50, bridge),
	}
	h.queue = taskqueue.New(taskqueue.DefaultConfig(), bridge, logger.NewBufferLogger())
	h.cfg = Config{
		Source:  src,
		Queue:   h.queue,
		Bridge:  bridge,
		Log:     h.log,
		Catalog: drbdcmd.New("/bin/false", "/bin/true"),
		Display: h.display,
		Logger:  logger.NewBufferLogger(),
		Inbox:   make(chan interface{}, 8),
		Signals: []os.Signal{},
	}
	return h
}

// start runs the session in the background and returns its result channel.
func (h *harness) start(t *testing.T) (*Session, <-chan Result) {
	t.Helper()
	s := New(h.cfg)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	out := make(chan Result, 1)
	go func() { out <- s.Run(ctx) }()
	return s, out
}

func (h *harness) run(t *testing.T) Result {
	t.Helper()
	_, out := h.start(t)
	return await(t, out)
}

func await(t *testing.T, out <-chan Result) Result {
	t.Helper()
	select {
	case res := <-out:
		return res
	case <-time.After(10 * time.Second):
		t.Fatal("session did not finish")
		return Result{}
	}
}

func (h *harness) logged(level msglog.Level, substr string) bool {
	for _, e := range h.log.Entries() {
		if e.Level == level && strings.Contains(e.Text, substr) {
			return true
		}
	}
	return false
}

func TestEndToEndSeverity(t *testing.T) {
	h := newHarness(newFakeSource(
		"exists -",
		"create resource name:r0",
		"create volume name:r0 volume:0 disk:UpToDate",
		"create connection name:r0 peer:nodeB connection:Connecting",
	))
	s, out := h.start(t)

	require.Eventually(t, func() bool {
		fr, ok := h.display.last()
		if !ok {
			return false
		}
		r, ok := fr.Model.Resource("r0")
		return ok && len(r.Connections) == 1
	}, 5*time.Second, 5*time.Millisecond)

	require.NoError(t, s.Send(context.Background(), Quit{}))
	res := await(t, out)
	assert.Equal(t, Terminate, res.Action)
	assert.Equal(t, FailNone, res.Fail)

	r, ok := res.Model.Resource("r0")
	require.True(t, ok)
	assert.Equal(t, severity.Mark, r.Level)
	assert.Equal(t, severity.Warn, r.Connections[0].Level)
	require.Len(t, r.Volumes, 1)
	assert.Equal(t, severity.Norm, r.Volumes[0].Level)
	assert.True(t, h.src.isClosed())
}

func TestOnceStopsAfterInitialState(t *testing.T) {
	h := newHarness(newFakeSource(
		"exists resource name:r0 role:Primary",
		"exists device name:r0 volume:0 minor:0 disk:UpToDate client:no quorum:yes",
		"exists -",
		"destroy resource name:r0",
	))
	h.cfg.Once = true

	res := h.run(t)
	assert.Equal(t, Terminate, res.Action)
	assert.True(t, res.Model.Initialized)
	_, ok := res.Model.Resource("r0")
	assert.True(t, ok, "lines after the initial state are not applied")
}

func TestProtocolErrorsAreLoggedAndSkipped(t *testing.T) {
	h := newHarness(newFakeSource(
		"explode resource name:r0",
		"create resource name:r0",
		"create resource name:r0",
		"change volume name:r9 volume:0 disk:Failed",
		"create path name:r0 peer-node-id:1",
		"exists -",
	))
	h.cfg.Once = true

	res := h.run(t)
	assert.Equal(t, Terminate, res.Action)
	assert.Len(t, res.Model.Resources, 1)
	assert.True(t, h.logged(msglog.Warn, "explode"))
	assert.True(t, h.logged(msglog.Warn, "r0"))
	assert.True(t, h.logged(msglog.Warn, "r9"))
	assert.Equal(t, 3, h.log.Len())
}

func TestSourceFailureRestartsDelayed(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want FailInfo
	}{
		{"source exited", errors.New(errors.ErrSource, "Events source exited with status 20", ""), FailEventsSource},
		{"read failed", errors.New(errors.ErrStreamIO, "Reading events failed", ""), FailEventsIO},
		{"anything else", errors.New(errors.ErrSSH, "Lost remote command", ""), FailGeneric},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := newFakeSource("exists -")
			src.fail(tt.err)
			h := newHarness(src)

			res := h.run(t)
			assert.Equal(t, RestartDelayed, res.Action)
			assert.Equal(t, tt.want, res.Fail)
			assert.Equal(t, tt.err, res.Err)
			assert.True(t, res.Model.Initialized)
			assert.True(t, h.logged(msglog.Alert, tt.err.(*errors.Error).Message))
		})
	}
}

func TestObjectLimitRestartsDelayed(t *testing.T) {
	h := newHarness(newFakeSource(
		"create resource name:r0",
		"create volume name:r0 volume:0 disk:UpToDate",
	))
	h.cfg.MaxObjects = 1

	res := h.run(t)
	assert.Equal(t, RestartDelayed, res.Action)
	assert.Equal(t, FailOutOfMemory, res.Fail)
	assert.True(t, errors.IsCode(res.Err, errors.ErrOutOfMemory))
}

func TestOutOfMemoryWakeup(t *testing.T) {
	h := newHarness(newFakeSource())
	h.cfg.Bridge.Post(notify.OutOfMemory)

	res := h.run(t)
	assert.Equal(t, RestartDelayed, res.Action)
	assert.Equal(t, FailOutOfMemory, res.Fail)
}

func TestRecoveredSessionLogsRespawn(t *testing.T) {
	h := newHarness(newFakeSource("exists -"))
	h.cfg.Recovered = true
	h.cfg.Once = true

	h.run(t)
	assert.True(t, h.logged(msglog.Info, RespawnMessage))
}

func TestInputFinishesSession(t *testing.T) {
	tests := []struct {
		name string
		item interface{}
		want FinishAction
	}{
		{"quit", Quit{}, Terminate},
		{"reinitialize", Reinitialize{}, RestartImmediate},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(newFakeSource())
			h.cfg.Inbox <- tt.item
			res := h.run(t)
			assert.Equal(t, tt.want, res.Action)
			assert.Equal(t, FailNone, res.Fail)
		})
	}
}

func TestContextCancelTerminates(t *testing.T) {
	h := newHarness(newFakeSource())
	s := New(h.cfg)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res := s.Run(ctx)
	assert.Equal(t, Terminate, res.Action)
	assert.NoError(t, res.Err)
	assert.True(t, h.src.isClosed())
}

func TestRepaintReachesDisplay(t *testing.T) {
	h := newHarness(newFakeSource())
	h.cfg.Inbox <- Repaint{}
	h.cfg.Inbox <- Quit{}
	// Inbox order is preserved, so the repaint frame precedes the finish.
	h.run(t)

	fr, ok := h.display.last()
	require.True(t, ok)
	assert.True(t, fr.Repaint)
}

func TestRunActionQueuesTask(t *testing.T) {
	h := newHarness(newFakeSource())
	h.cfg.Inbox <- RunAction{Action: "connect", Target: drbdcmd.Target{Resource: "r0", Peer: "nodeB", Volume: drbdcmd.NoVolume}}
	h.cfg.Inbox <- RunAction{Action: "attach", Target: drbdcmd.NewTarget("r0")}
	h.cfg.Inbox <- Quit{}
	h.run(t)

	tasks := h.queue.List()
	require.Len(t, tasks, 1)
	assert.Equal(t, taskqueue.Suspended, tasks[0].State)
	assert.Equal(t, []string{"/bin/false", "connect", "r0:nodeB"}, tasks[0].Argv)
	assert.True(t, h.logged(msglog.Info, "Queued task 1: Connect, resource r0, connection nodeB"))
	assert.True(t, h.logged(msglog.Warn, "needs a volume"))
}

func TestTaskCommands(t *testing.T) {
	h := newHarness(newFakeSource())
	id, err := h.queue.Enqueue(taskqueue.Command{Description: "noop", Argv: []string{"/bin/true"}}, false)
	require.NoError(t, err)

	h.cfg.Inbox <- TaskCommand{Op: OpMakePending, ID: id}
	h.cfg.Inbox <- TaskCommand{Op: OpSuspend, ID: id}
	h.cfg.Inbox <- TaskCommand{Op: OpKill, ID: id}
	h.cfg.Inbox <- TaskCommand{Op: OpRemove, ID: 99}
	h.cfg.Inbox <- TaskCommand{Op: OpRemove, ID: id}
	h.cfg.Inbox <- Quit{}
	h.run(t)

	assert.Equal(t, 0, h.queue.Len())
	assert.True(t, h.logged(msglog.Warn, "terminate task 1 while it is suspended"))
	assert.True(t, h.logged(msglog.Warn, "No task 99"))
}

func TestFinishedTasksAreReported(t *testing.T) {
	h := newHarness(newFakeSource())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go h.queue.Run(ctx)

	s, out := h.start(t)
	require.NoError(t, s.Send(ctx, RunAction{Action: "start", Target: drbdcmd.NewTarget("r0"), Activate: true}))
	require.NoError(t, s.Send(ctx, RunAction{Action: "stop", Target: drbdcmd.NewTarget("r0"), Activate: true}))

	require.Eventually(t, func() bool {
		return h.logged(msglog.Warn, "Task 1 failed: Start, resource r0: '/bin/false up r0' failed with exit code 1") &&
			h.logged(msglog.Info, "Task 2 finished: Stop, resource r0")
	}, 10*time.Second, 10*time.Millisecond)

	require.NoError(t, s.Send(ctx, Quit{}))
	await(t, out)

	// A new session does not report the same tasks again.
	before := h.log.Len()
	h.src = newFakeSource()
	h.cfg.Source = h.src
	h.cfg.Bridge.Post(notify.QueueChanged)
	h.cfg.Inbox <- Quit{}
	h.run(t)
	assert.Equal(t, before, h.log.Len())
}

func TestDebugSignalDumpsState(t *testing.T) {
	h := newHarness(newFakeSource("create resource name:r0", "exists -"))
	s := New(h.cfg)
	// Drive the handlers directly; the reactor would deliver SIGUSR1 the same way.
	_, done := s.handleLine("create resource name:r0")
	require.False(t, done)
	s.dump()
	assert.True(t, h.logged(msglog.Info, "1 resources, 0 with problems"))
	s.reactor.Close()
}

func TestStrings(t *testing.T) {
	assert.Equal(t, "delayed restart", RestartDelayed.String())
	assert.Equal(t, "unknown", FinishAction(9).String())
	assert.Equal(t, "events I/O", FailEventsIO.String())
	assert.Equal(t, "unknown", FailInfo(9).String())
	assert.Equal(t, "make pending", OpMakePending.String())
	assert.Equal(t, "unknown", TaskOp(9).String())
}
