// Package monitor runs one monitoring session: it owns the reactor loop,
// feeds status-stream lines into the resource model, carries operator input
// to the task queue, hands snapshots to the display and decides how the
// session ends.
package monitor

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/rileyhilliard/drbdmon/internal/drbdcmd"
	"github.com/rileyhilliard/drbdmon/internal/errors"
	"github.com/rileyhilliard/drbdmon/internal/events"
	"github.com/rileyhilliard/drbdmon/internal/exec"
	"github.com/rileyhilliard/drbdmon/internal/logger"
	"github.com/rileyhilliard/drbdmon/internal/model"
	"github.com/rileyhilliard/drbdmon/internal/msglog"
	"github.com/rileyhilliard/drbdmon/internal/notify"
	"github.com/rileyhilliard/drbdmon/internal/reactor"
	"github.com/rileyhilliard/drbdmon/internal/source"
	"github.com/rileyhilliard/drbdmon/internal/taskqueue"
)

// FinishAction says what the caller should do after Run returns.
type FinishAction int

const (
	Terminate FinishAction = iota
	RestartImmediate
	RestartDelayed
)

// String returns the string representation of the finish action.
func (a FinishAction) String() string {
	switch a {
	case Terminate:
		return "terminate"
	case RestartImmediate:
		return "restart"
	case RestartDelayed:
		return "delayed restart"
	default:
		return "unknown"
	}
}

// FailInfo is the reason a session failed.
type FailInfo int

const (
	FailNone FailInfo = iota
	FailOutOfMemory
	FailEventsIO
	FailEventsSource
	FailGeneric
)

// String returns the string representation of the failure reason.
func (f FailInfo) String() string {
	switch f {
	case FailNone:
		return "none"
	case FailOutOfMemory:
		return "out of memory"
	case FailEventsIO:
		return "events I/O"
	case FailEventsSource:
		return "events source"
	case FailGeneric:
		return "generic"
	default:
		return "unknown"
	}
}

// RespawnMessage is logged once a restarted session has loaded the
// initial state.
const RespawnMessage = "Events source process respawned"

// Result is how a session ended.
type Result struct {
	Action FinishAction
	Fail   FailInfo
	Err    error
	Model  model.Snapshot // Final state of the hierarchy
}

// Frame is everything the display needs for one redraw. It is a copy and
// may be kept.
type Frame struct {
	Model   model.Snapshot
	Tasks   []taskqueue.Snapshot
	Log     []msglog.Entry
	Repaint bool
}

// Display receives frames on the session goroutine. Show must not block.
type Display interface {
	Show(Frame)
}

// DisplayFunc adapts a function to Display.
type DisplayFunc func(Frame)

// Show calls f.
func (f DisplayFunc) Show(fr Frame) { f(fr) }

// Config wires a session to its collaborators. Queue, Bridge, Log and
// Inbox outlive the session; Source is closed when Run returns.
type Config struct {
	Source     source.Source
	Queue      *taskqueue.Queue
	Bridge     *notify.Bridge
	Log        *msglog.Log
	Catalog    *drbdcmd.Catalog
	Display    Display
	Logger     logger.Logger
	Inbox      chan interface{}
	Tick       time.Duration
	Signals    []os.Signal // nil subscribes to reactor.DefaultSignals
	MaxObjects int
	Recovered  bool // A previous session failed
	Once       bool // Finish as soon as the initial state is loaded
}

// Session is one pass of the monitor loop. Run it once.
type Session struct {
	cfg      Config
	model    *model.Model
	reactor  *reactor.Reactor
	snap     model.Snapshot
	reported map[uint64]bool
	log      logger.Logger
}

// New creates a session. Signal delivery starts here.
func New(cfg Config) *Session {
	if cfg.Log == nil {
		cfg.Log = msglog.New(msglog.DefaultCapacity, cfg.Bridge)
	}
	if cfg.Queue == nil {
		cfg.Queue = taskqueue.New(taskqueue.DefaultConfig(), cfg.Bridge, cfg.Logger)
	}
	if cfg.Catalog == nil {
		cfg.Catalog = drbdcmd.New("", "")
	}
	if cfg.Display == nil {
		cfg.Display = DisplayFunc(func(Frame) {})
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.Noop()
	}

	s := &Session{
		cfg:      cfg,
		model:    model.New(cfg.MaxObjects),
		reported: make(map[uint64]bool),
		log:      cfg.Logger,
	}
	var lines reactor.Lines
	if cfg.Source != nil {
		lines = cfg.Source
	}
	s.reactor = reactor.New(lines, cfg.Bridge, reactor.Config{
		Tick:    cfg.Tick,
		Signals: cfg.Signals,
		Inbox:   cfg.Inbox,
	})
	s.snap = s.model.Snapshot()

	// Tasks that finished in an earlier session were already reported.
	for _, t := range cfg.Queue.List(taskqueue.Finished) {
		s.reported[t.ID] = true
	}
	return s
}

// Send queues an input item for the session.
func (s *Session) Send(ctx context.Context, item interface{}) error {
	return s.reactor.Send(ctx, item)
}

// Run processes events until the session finishes or ctx is done.
func (s *Session) Run(ctx context.Context) Result {
	defer s.reactor.Close()
	defer s.closeSource()

	s.refresh(false)
	for {
		ev, err := s.reactor.Wait(ctx)
		if err != nil {
			return s.finish(s.failure(ctx, err))
		}

		var res Result
		var done bool
		switch ev.Kind {
		case reactor.KindLine:
			res, done = s.handleLine(ev.Line)
		case reactor.KindSignal:
			res, done = s.handleSignal(ev)
		case reactor.KindInput:
			res, done = s.handleInput(ev.Input)
		case reactor.KindWakeup:
			res, done = s.handleWakeup(ev.Reasons)
		}
		if done {
			return s.finish(res)
		}
	}
}

func (s *Session) finish(res Result) Result {
	res.Model = s.model.Snapshot()
	s.log.Debug("session finished: %s (failure: %s)", res.Action, res.Fail)
	return res
}

func (s *Session) closeSource() {
	if s.cfg.Source == nil {
		return
	}
	if err := s.cfg.Source.Close(); err != nil {
		s.log.Warn("closing events source: %v", err)
	}
}

// failure maps a reactor error to a finish action.
func (s *Session) failure(ctx context.Context, err error) Result {
	if ctx.Err() != nil {
		return Result{Action: Terminate}
	}

	res := Result{Action: RestartDelayed, Err: err}
	switch errors.CodeOf(err) {
	case errors.ErrStreamIO:
		res.Fail = FailEventsIO
	case errors.ErrSource:
		res.Fail = FailEventsSource
	case errors.ErrOutOfMemory:
		res.Fail = FailOutOfMemory
	default:
		res.Fail = FailGeneric
	}
	s.cfg.Log.Alertf("%s", errors.Summary(err))
	return res
}

func (s *Session) handleLine(line string) (Result, bool) {
	ev, err := events.Parse(line)
	if err != nil {
		s.cfg.Log.Warnf("%s", errors.Summary(err))
		return Result{}, false
	}
	if !ev.EndOfInitialState && !ev.Actionable() {
		s.log.Debug("skipping %s %s", ev.Verb, ev.ObjectName)
		return Result{}, false
	}

	loaded := s.model.Initialized()
	if err := s.model.Apply(ev); err != nil {
		if errors.IsCode(err, errors.ErrOutOfMemory) {
			s.cfg.Log.Alertf("%s", errors.Summary(err))
			return Result{Action: RestartDelayed, Fail: FailOutOfMemory, Err: err}, true
		}
		s.cfg.Log.Warnf("%s", errors.Summary(err))
		return Result{}, false
	}

	if !loaded && s.model.Initialized() {
		s.log.Debug("initial state loaded: %d resources", s.model.Len())
		if s.cfg.Recovered {
			s.cfg.Log.Infof(RespawnMessage)
		}
		if s.cfg.Once {
			return Result{Action: Terminate}, true
		}
	}
	if s.model.Initialized() {
		s.refresh(false)
	}
	return Result{}, false
}

func (s *Session) handleSignal(ev reactor.Event) (Result, bool) {
	switch ev.Signal {
	case reactor.SignalExit:
		s.log.Debug("exit requested by %v", ev.OSSig)
		return Result{Action: Terminate}, true
	case reactor.SignalTimer, reactor.SignalResize:
		s.refresh(false)
	case reactor.SignalDebug:
		s.dump()
	default:
		s.log.Debug("ignoring %s signal %v", ev.Signal, ev.OSSig)
	}
	return Result{}, false
}

func (s *Session) handleInput(item interface{}) (Result, bool) {
	switch in := item.(type) {
	case Quit:
		return Result{Action: Terminate}, true
	case Reinitialize:
		s.cfg.Log.Infof("Reinitializing")
		return Result{Action: RestartImmediate}, true
	case Repaint:
		s.refresh(true)
	case RunAction:
		s.runAction(in)
	case TaskCommand:
		s.taskCommand(in)
	default:
		s.log.Debug("ignoring input %T", item)
	}
	return Result{}, false
}

func (s *Session) handleWakeup(reasons notify.Reason) (Result, bool) {
	if reasons.Has(notify.OutOfMemory) {
		s.cfg.Log.Alertf("Out of memory while starting a task")
		return Result{Action: RestartDelayed, Fail: FailOutOfMemory}, true
	}
	if reasons.Has(notify.QueueChanged) {
		s.reportFinished()
	}
	if reasons != 0 {
		s.refresh(false)
	}
	return Result{}, false
}

func (s *Session) runAction(in RunAction) {
	cmd, err := s.cfg.Catalog.Build(in.Action, in.Target)
	if err != nil {
		s.cfg.Log.Warnf("%s", errors.Summary(err))
		return
	}
	id, err := s.cfg.Queue.Enqueue(cmd, in.Activate)
	if err != nil {
		s.cfg.Log.Warnf("%s", errors.Summary(err))
		return
	}
	s.cfg.Log.Infof("Queued task %d: %s", id, cmd.Description)
}

func (s *Session) taskCommand(in TaskCommand) {
	q := s.cfg.Queue
	var err error
	switch in.Op {
	case OpSuspend:
		err = q.Suspend(in.ID)
	case OpMakePending:
		err = q.MakePending(in.ID)
	case OpTerminate:
		err = q.Terminate(in.ID, false)
	case OpKill:
		err = q.Terminate(in.ID, true)
	case OpRemove:
		err = q.Remove(in.ID)
	default:
		err = fmt.Errorf("unknown task operation %d", in.Op)
	}
	if err != nil {
		s.cfg.Log.Warnf("%s", errors.Summary(err))
	}
}

// reportFinished logs each task the first time it is seen finished.
func (s *Session) reportFinished() {
	live := make(map[uint64]bool, len(s.reported))
	for _, t := range s.cfg.Queue.List(taskqueue.Finished) {
		live[t.ID] = true
		if s.reported[t.ID] {
			continue
		}
		switch {
		case t.Cancelled:
			s.cfg.Log.Infof("Task %d cancelled: %s", t.ID, t.Description)
		case t.Success():
			s.cfg.Log.Infof("Task %d finished: %s", t.ID, t.Description)
		case t.ExitStatus == exec.ExitStatusFailed:
			s.cfg.Log.Alertf("Task %d failed: %s: %s", t.ID, t.Description, t.Error)
		default:
			s.cfg.Log.Warnf("Task %d failed: %s: %s", t.ID, t.Description, t.Error)
		}
	}
	s.reported = live
}

func (s *Session) refresh(repaint bool) {
	if s.model.ConsumeDirty() {
		s.snap = s.model.Snapshot()
	}
	s.cfg.Display.Show(Frame{
		Model:   s.snap,
		Tasks:   s.cfg.Queue.List(),
		Log:     s.cfg.Log.Entries(),
		Repaint: repaint,
	})
}

func (s *Session) dump() {
	counts := s.cfg.Queue.Counts()
	s.cfg.Log.Infof("%d resources, %d with problems, severity %s; tasks: %d pending, %d active, %d suspended, %d finished",
		s.model.Len(), s.model.ProblemCount(), s.model.Aggregate(),
		counts[taskqueue.Pending], counts[taskqueue.Active], counts[taskqueue.Suspended], counts[taskqueue.Finished])
}
