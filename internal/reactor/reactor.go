// Package reactor is the single blocking wait point of a monitor session.
// Wait multiplexes status-stream lines, OS signals, operator input, timer
// ticks and worker notifications, returning one event per call.
package reactor

import (
	"context"
	"os"
	"os/signal"
	"time"

	"github.com/rileyhilliard/drbdmon/internal/errors"
	"github.com/rileyhilliard/drbdmon/internal/notify"
	"golang.org/x/sys/unix"
)

// Kind is the type of event Wait returned.
type Kind int

const (
	KindLine Kind = iota
	KindSignal
	KindInput
	KindWakeup
)

// String returns the string representation of the event kind.
func (k Kind) String() string {
	switch k {
	case KindLine:
		return "line"
	case KindSignal:
		return "signal"
	case KindInput:
		return "input"
	case KindWakeup:
		return "wakeup"
	default:
		return "unknown"
	}
}

// Signal is the class of an OS signal or timer tick.
type Signal int

const (
	SignalGeneric Signal = iota
	SignalExit
	SignalTimer
	SignalChild
	SignalResize
	SignalDebug
)

// String returns the string representation of the signal class.
func (s Signal) String() string {
	switch s {
	case SignalGeneric:
		return "generic"
	case SignalExit:
		return "exit"
	case SignalTimer:
		return "timer"
	case SignalChild:
		return "child"
	case SignalResize:
		return "resize"
	case SignalDebug:
		return "debug"
	default:
		return "unknown"
	}
}

// Classify maps an OS signal to its class.
func Classify(sig os.Signal) Signal {
	switch sig {
	case unix.SIGHUP, unix.SIGINT, unix.SIGTERM:
		return SignalExit
	case unix.SIGALRM:
		return SignalTimer
	case unix.SIGCHLD:
		return SignalChild
	case unix.SIGWINCH:
		return SignalResize
	case unix.SIGUSR1:
		return SignalDebug
	default:
		return SignalGeneric
	}
}

// DefaultSignals are the signals a reactor subscribes to.
var DefaultSignals = []os.Signal{
	unix.SIGHUP, unix.SIGINT, unix.SIGTERM,
	unix.SIGALRM, unix.SIGCHLD, unix.SIGWINCH,
	unix.SIGUSR1, unix.SIGUSR2,
}

// Event is one thing that happened.
type Event struct {
	Kind    Kind
	Line    string        // KindLine
	Signal  Signal        // KindSignal
	OSSig   os.Signal     // KindSignal, nil for timer ticks
	Input   interface{}   // KindInput
	Reasons notify.Reason // KindWakeup; may be empty
}

// Lines is the status stream as the reactor sees it.
type Lines interface {
	Lines() <-chan string
	Err() error
}

// Config holds reactor settings.
type Config struct {
	Tick    time.Duration    // Timer period; 0 disables the timer
	Signals []os.Signal      // nil subscribes to DefaultSignals
	Input   int              // Input channel buffer size
	Inbox   chan interface{} // Shared input channel; overrides Input
}

// DefaultConfig returns a Config with a one second timer.
func DefaultConfig() Config {
	return Config{
		Tick:  time.Second,
		Input: 16,
	}
}

// Reactor is owned by one goroutine, which calls Wait. Send and the
// bridge may be used from any goroutine.
type Reactor struct {
	src    Lines
	lines  <-chan string
	bridge *notify.Bridge
	input  chan interface{}
	sigs   chan os.Signal
	ticker *time.Ticker
	tick   <-chan time.Time
}

// New creates a reactor reading src and bridge. Signal delivery starts
// immediately; call Close to restore default signal handling.
func New(src Lines, bridge *notify.Bridge, cfg Config) *Reactor {
	if cfg.Signals == nil {
		cfg.Signals = DefaultSignals
	}
	if cfg.Input <= 0 {
		cfg.Input = DefaultConfig().Input
	}

	r := &Reactor{
		src:    src,
		bridge: bridge,
		input:  cfg.Inbox,
		sigs:   make(chan os.Signal, 8),
	}
	if r.input == nil {
		r.input = make(chan interface{}, cfg.Input)
	}
	if src != nil {
		r.lines = src.Lines()
	}
	if len(cfg.Signals) > 0 {
		signal.Notify(r.sigs, cfg.Signals...)
	}
	if cfg.Tick > 0 {
		r.ticker = time.NewTicker(cfg.Tick)
		r.tick = r.ticker.C
	}
	return r
}

// Close stops signal delivery and the timer.
func (r *Reactor) Close() {
	signal.Stop(r.sigs)
	if r.ticker != nil {
		r.ticker.Stop()
	}
}

// Send queues an operator input item. It blocks while the input buffer is
// full, until ctx is done.
func (r *Reactor) Send(ctx context.Context, item interface{}) error {
	select {
	case r.input <- item:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Bridge returns the notification bridge the reactor wakes on.
func (r *Reactor) Bridge() *notify.Bridge {
	return r.bridge
}

// Wait blocks until one event is available. It returns the source's
// terminal error once the line channel is closed, and ctx's error when ctx
// is done.
func (r *Reactor) Wait(ctx context.Context) (Event, error) {
	var wake <-chan struct{}
	if r.bridge != nil {
		wake = r.bridge.C()
	}

	select {
	case line, ok := <-r.lines:
		if !ok {
			r.lines = nil
			return Event{}, r.sourceError()
		}
		return Event{Kind: KindLine, Line: line}, nil
	case sig := <-r.sigs:
		return Event{Kind: KindSignal, Signal: Classify(sig), OSSig: sig}, nil
	case <-r.tick:
		return Event{Kind: KindSignal, Signal: SignalTimer}, nil
	case item := <-r.input:
		return Event{Kind: KindInput, Input: item}, nil
	case <-wake:
		return Event{Kind: KindWakeup, Reasons: r.bridge.Take()}, nil
	case <-ctx.Done():
		return Event{}, ctx.Err()
	}
}

func (r *Reactor) sourceError() error {
	if err := r.src.Err(); err != nil {
		return err
	}
	return errors.New(errors.ErrSource, "Events source closed", "")
}
