// Package taskqueue tracks administrative commands and runs them one at a
// time on a dedicated worker goroutine.
//
// Lifecycle:
//
//	Enqueue ──> PENDING ──worker──> ACTIVE ──exit──> FINISHED
//	             │   ^
//	     Suspend │   │ MakePending
//	             v   │
//	           SUSPENDED
//
// Terminate finishes a PENDING task without running it and signals the
// process of an ACTIVE one; the worker records the result once the process
// has exited. Remove deletes FINISHED and SUSPENDED tasks; on an ACTIVE task
// it terminates the process and deletes the task when it finishes.
//
// Pending tasks run strictly in enqueue order. Commands against the storage
// stack are serialized, so one resource's "down" never overlaps another's
// "adjust".
package taskqueue

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/rileyhilliard/drbdmon/internal/errors"
	"github.com/rileyhilliard/drbdmon/internal/exec"
	"github.com/rileyhilliard/drbdmon/internal/logger"
	"github.com/rileyhilliard/drbdmon/internal/notify"
)

type task struct {
	id               uint64
	cmd              Command
	state            State
	proc             *exec.Process
	cancelled        bool
	err              error
	removeOnFinished bool
	enqueued         time.Time
	started          time.Time
	ended            time.Time
	done             chan struct{}
}

// Queue is safe for concurrent use.
type Queue struct {
	cfg      Config
	notifier notify.Notifier
	log      logger.Logger

	mu      sync.Mutex
	tasks   map[uint64]*task
	pending []uint64 // ascending ids
	nextID  uint64

	work chan struct{}
}

// New creates a queue. notifier receives QueueChanged on every state change
// and OutOfMemory when a spawn fails for lack of resources.
func New(cfg Config, notifier notify.Notifier, log logger.Logger) *Queue {
	if cfg.Capacity <= 0 {
		cfg.Capacity = DefaultCapacity
	}
	if cfg.KillGrace <= 0 {
		cfg.KillGrace = DefaultKillGrace
	}
	if log == nil {
		log = logger.Noop()
	}
	return &Queue{
		cfg:      cfg,
		notifier: notifier,
		log:      log,
		tasks:    make(map[uint64]*task),
		nextID:   NoTask + 1,
		work:     make(chan struct{}, 1),
	}
}

func (q *Queue) changed(r notify.Reason) {
	if q.notifier != nil {
		q.notifier.Post(r)
	}
}

func (q *Queue) kick() {
	select {
	case q.work <- struct{}{}:
	default:
	}
}

func stateError(id uint64, op string, s State) error {
	return errors.New(errors.ErrTaskState,
		fmt.Sprintf("Can't %s task %d while it is %s", op, id, s), "")
}

func notFound(id uint64) error {
	return errors.New(errors.ErrNotFound, fmt.Sprintf("No task %d", id), "")
}

// Enqueue adds a task. It starts PENDING when activate is set, SUSPENDED
// otherwise.
func (q *Queue) Enqueue(cmd Command, activate bool) (uint64, error) {
	q.mu.Lock()
	if len(q.tasks) >= q.cfg.Capacity {
		q.mu.Unlock()
		return NoTask, errors.New(errors.ErrQueueFull,
			fmt.Sprintf("Task queue is full (%d tasks)", q.cfg.Capacity),
			"Remove finished tasks first")
	}

	t := &task{
		id:       q.nextID,
		cmd:      Command{Description: cmd.Description, Argv: append([]string(nil), cmd.Argv...)},
		state:    Suspended,
		proc:     exec.New(cmd.Argv),
		enqueued: time.Now(),
		done:     make(chan struct{}),
	}
	q.nextID++
	q.tasks[t.id] = t
	if activate {
		t.state = Pending
		q.pending = append(q.pending, t.id)
	}
	q.mu.Unlock()

	q.log.Debug("enqueued task %d: %s", t.id, t.proc.CommandLine())
	q.changed(notify.QueueChanged)
	if activate {
		q.kick()
	}
	return t.id, nil
}

// Suspend moves a PENDING task to SUSPENDED.
func (q *Queue) Suspend(id uint64) error {
	q.mu.Lock()
	t, ok := q.tasks[id]
	if !ok {
		q.mu.Unlock()
		return notFound(id)
	}
	if t.state != Pending {
		q.mu.Unlock()
		return stateError(id, "suspend", t.state)
	}
	q.removePending(id)
	t.state = Suspended
	q.mu.Unlock()

	q.changed(notify.QueueChanged)
	return nil
}

// MakePending moves a SUSPENDED task back to PENDING, in its original
// enqueue position.
func (q *Queue) MakePending(id uint64) error {
	q.mu.Lock()
	t, ok := q.tasks[id]
	if !ok {
		q.mu.Unlock()
		return notFound(id)
	}
	if t.state != Suspended {
		q.mu.Unlock()
		return stateError(id, "activate", t.state)
	}
	pos, _ := slices.BinarySearch(q.pending, id)
	q.pending = slices.Insert(q.pending, pos, id)
	t.state = Pending
	q.mu.Unlock()

	q.changed(notify.QueueChanged)
	q.kick()
	return nil
}

// Terminate stops a task. A PENDING task finishes without running. For an
// ACTIVE task the process is signalled (SIGKILL when force is set) and the
// task stays ACTIVE until the worker sees the process exit.
func (q *Queue) Terminate(id uint64, force bool) error {
	q.mu.Lock()
	t, ok := q.tasks[id]
	if !ok {
		q.mu.Unlock()
		return notFound(id)
	}
	switch t.state {
	case Pending:
		q.removePending(id)
		t.cancelled = true
		q.finishLocked(t)
		q.mu.Unlock()
		q.changed(notify.QueueChanged)
		return nil
	case Active:
		proc := t.proc
		q.mu.Unlock()
		return proc.Terminate(force)
	default:
		q.mu.Unlock()
		return stateError(id, "terminate", t.state)
	}
}

// Remove deletes a FINISHED or SUSPENDED task. An ACTIVE task is terminated
// first and deleted once it finished.
func (q *Queue) Remove(id uint64) error {
	q.mu.Lock()
	t, ok := q.tasks[id]
	if !ok {
		q.mu.Unlock()
		return notFound(id)
	}
	switch t.state {
	case Finished, Suspended:
		delete(q.tasks, id)
		if t.state == Suspended {
			t.cancelled = true
			t.ended = time.Now()
			close(t.done)
		}
		q.mu.Unlock()
		q.changed(notify.QueueChanged)
		return nil
	case Active:
		t.removeOnFinished = true
		proc := t.proc
		q.mu.Unlock()
		q.changed(notify.QueueChanged)
		return proc.Terminate(false)
	default:
		q.mu.Unlock()
		return stateError(id, "remove", t.state)
	}
}

// Get returns a snapshot of one task.
func (q *Queue) Get(id uint64) (Snapshot, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	t, ok := q.tasks[id]
	if !ok {
		return Snapshot{}, false
	}
	return t.snapshot(true), true
}

// List returns snapshots of all tasks in the given states, ordered by id.
// With no states, every task is returned. The snapshots carry output sizes
// but not the output itself; use Get for that.
func (q *Queue) List(states ...State) []Snapshot {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := make([]Snapshot, 0, len(q.tasks))
	for _, t := range q.tasks {
		if len(states) == 0 || slices.Contains(states, t.state) {
			out = append(out, t.snapshot(false))
		}
	}
	slices.SortFunc(out, func(a, b Snapshot) int {
		switch {
		case a.ID < b.ID:
			return -1
		case a.ID > b.ID:
			return 1
		}
		return 0
	})
	return out
}

// Counts returns the number of tasks per state.
func (q *Queue) Counts() map[State]int {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make(map[State]int, 4)
	for _, t := range q.tasks {
		out[t.state]++
	}
	return out
}

// Len returns the number of tracked tasks.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.tasks)
}

// Wait blocks until the task finished or was removed, and returns its last
// snapshot.
func (q *Queue) Wait(ctx context.Context, id uint64) (Snapshot, error) {
	q.mu.Lock()
	t, ok := q.tasks[id]
	q.mu.Unlock()
	if !ok {
		return Snapshot{}, notFound(id)
	}

	select {
	case <-t.done:
	case <-ctx.Done():
		return Snapshot{}, ctx.Err()
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	return t.snapshot(true), nil
}

// Run is the worker loop. It executes pending tasks one at a time until ctx
// is cancelled. A task still running at that point is terminated and
// recorded before Run returns.
func (q *Queue) Run(ctx context.Context) {
	q.log.Debug("worker started")
	defer q.log.Debug("worker stopped")

	for {
		for {
			if ctx.Err() != nil {
				return
			}
			t := q.next()
			if t == nil {
				break
			}
			q.execute(ctx, t)
		}

		select {
		case <-ctx.Done():
			return
		case <-q.work:
		}
	}
}

// next pops the oldest pending task and marks it ACTIVE.
func (q *Queue) next() *task {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.pending) == 0 {
		return nil
	}
	id := q.pending[0]
	q.pending = q.pending[1:]
	t := q.tasks[id]
	t.state = Active
	t.started = time.Now()
	return t
}

func (q *Queue) execute(ctx context.Context, t *task) {
	q.changed(notify.QueueChanged)

	stop := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
		case <-stop:
			return
		}
		_ = t.proc.Terminate(false)
		grace := time.NewTimer(q.cfg.KillGrace)
		defer grace.Stop()
		select {
		case <-grace.C:
			q.log.Warn("task %d ignored SIGTERM, killing", t.id)
			_ = t.proc.Terminate(true)
		case <-stop:
		}
	}()

	err := t.proc.Execute()
	close(stop)
	if err == nil {
		err = exec.Diagnose(t.proc)
	}

	reason := notify.QueueChanged
	if err != nil {
		q.log.Warn("task %d: %v", t.id, errors.Summary(err))
		if errors.IsCode(err, errors.ErrOutOfMemory) {
			reason |= notify.OutOfMemory
		}
	}

	q.mu.Lock()
	t.err = err
	q.finishLocked(t)
	q.mu.Unlock()

	q.log.Debug("task %d finished with status %d", t.id, t.proc.ExitStatus())
	q.changed(reason)
}

// finishLocked moves t to FINISHED and applies the discard policy.
func (q *Queue) finishLocked(t *task) {
	t.state = Finished
	t.ended = time.Now()
	close(t.done)

	discard := t.removeOnFinished || q.cfg.DiscardFinished
	if q.cfg.DiscardSucceeded && !t.cancelled && t.err == nil && t.proc.ExitStatus() == 0 {
		discard = true
	}
	if discard {
		delete(q.tasks, t.id)
	}
}

func (q *Queue) removePending(id uint64) {
	if pos, found := slices.BinarySearch(q.pending, id); found {
		q.pending = slices.Delete(q.pending, pos, pos+1)
	}
}

func (t *task) snapshot(withOutput bool) Snapshot {
	outDrop, errDrop := t.proc.Discarded()
	outLen, errLen := t.proc.Captured()
	s := Snapshot{
		ID:               t.id,
		Description:      t.cmd.Description,
		Argv:             append([]string(nil), t.cmd.Argv...),
		State:            t.state,
		ExitStatus:       t.proc.ExitStatus(),
		Cancelled:        t.cancelled,
		StdoutSize:       outLen,
		StderrSize:       errLen,
		StdoutDiscarded:  outDrop,
		StderrDiscarded:  errDrop,
		Enqueued:         t.enqueued,
		Started:          t.started,
		Ended:            t.ended,
		RemoveOnFinished: t.removeOnFinished,
	}
	if withOutput {
		s.Stdout = t.proc.Stdout()
		s.Stderr = t.proc.Stderr()
	}
	if t.err != nil {
		s.Error = errors.Summary(t.err)
	}
	return s
}
