package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rileyhilliard/drbdmon/internal/config"
	"github.com/rileyhilliard/drbdmon/internal/display"
	"github.com/rileyhilliard/drbdmon/internal/drbdcmd"
	"github.com/rileyhilliard/drbdmon/internal/errors"
	"github.com/rileyhilliard/drbdmon/internal/logger"
	"github.com/rileyhilliard/drbdmon/internal/monitor"
	"github.com/rileyhilliard/drbdmon/internal/msglog"
	"github.com/rileyhilliard/drbdmon/internal/notify"
	"github.com/rileyhilliard/drbdmon/internal/source"
	"github.com/rileyhilliard/drbdmon/internal/taskqueue"
	"github.com/spf13/cobra"
)

var monitorPlain bool

// openSource builds the events source opener. Tests replace it.
var openSource = sourceOpener

// monitorCmd starts the live dashboard
var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Live dashboard of DRBD resources",
	Long: `Follow the status stream and show every resource with its volumes,
connections and peer volumes, colored by severity.

Keyboard shortcuts:
  q / Ctrl+C  Quit
  r / Ctrl+L  Repaint
  Ctrl+R      Reinitialize (restart the events source)
  Tab / 1-3   Switch page (resources, tasks, log)
  up/k        Select previous
  down/j      Select next
  a           Run an action on the selected resource
  Enter       Open task details
  s/p/t/K/x   Suspend, make pending, terminate, kill, remove a task
  ?           Show help

When stdout is not a terminal, or with --plain, state changes are printed
as plain lines instead.

Examples:
  drbdmon monitor
  drbdmon monitor --host node1
  drbdmon monitor --plain | tee drbd.log`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runMonitor(cmd)
	},
}

func init() {
	monitorCmd.Flags().BoolVar(&monitorPlain, "plain", false, "print plain lines even on a terminal")
	rootCmd.AddCommand(monitorCmd)
}

func runMonitor(cmd *cobra.Command) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	tui := !monitorPlain && display.IsTerminal(os.Stdin) && display.IsTerminal(os.Stdout)
	return monitorCommand(cmd.Context(), cfg, tui, cmd.OutOrStdout())
}

// monitorCommand runs sessions until the operator quits, ctx ends, or too
// many sessions fail in a row.
func monitorCommand(ctx context.Context, cfg *config.Config, tui bool, out io.Writer) error {
	bridge := notify.NewBridge()
	msgs := msglog.New(cfg.Log.Capacity, bridge)

	// The dashboard owns the terminal; diagnostics would corrupt it.
	lg := logger.NewEnvLogger("[drbdmon]")
	if tui {
		lg = logger.Noop()
	}

	queue := taskqueue.New(cfg.TaskQueueConfig(), bridge, lg)
	stopQueue := startQueue(ctx, queue)
	defer stopQueue()

	loop := &Loop{
		Open:       openSource(cfg, msgs, lg),
		Queue:      queue,
		Bridge:     bridge,
		Log:        msgs,
		Catalog:    cfg.Catalog(),
		Logger:     lg,
		Restart:    cfg.Restart,
		Tick:       cfg.Display.Refresh,
		MaxObjects: cfg.Model.MaxObjects,
	}

	if !tui {
		loop.Screen = display.NewPlain(out)
		_, err := loop.Run(ctx)
		return err
	}

	loop.Inbox = make(chan interface{}, 16)
	opts := display.Options{Host: cfg.Events.Host, Inbox: loop.Inbox, Tasks: queue}
	err := display.Run(ctx, opts, func(ctx context.Context, screen display.Screen) error {
		loop.Screen = screen
		_, err := loop.Run(ctx)
		return err
	})

	// The terminal is released; leave the message log behind.
	if msgs.HasEntries() {
		_, _ = msgs.WriteTo(out)
	}
	return err
}

// startQueue runs the queue worker until the returned stop function is
// called. stop waits for a running task to be terminated.
func startQueue(ctx context.Context, queue *taskqueue.Queue) func() {
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		queue.Run(ctx)
	}()
	return func() {
		cancel()
		<-done
	}
}

// sourceOpener returns a function opening the configured events source.
// Helper stderr and SSH config warnings go to the message log.
func sourceOpener(cfg *config.Config, msgs *msglog.Log, lg logger.Logger) func() (source.Source, error) {
	sc := cfg.SourceConfig()
	sc.Log = lg
	sc.Stderr = func(line string) {
		msgs.Warnf("events: %s", line)
	}
	sc.SSH.Warn = func(message string) {
		msgs.Warnf("ssh: %s", message)
	}
	return func() (source.Source, error) {
		return source.Open(sc)
	}
}

// Loop runs monitoring sessions back to back. Queue, Bridge, Log and
// Inbox are shared by every session.
type Loop struct {
	Open       func() (source.Source, error)
	Queue      *taskqueue.Queue
	Bridge     *notify.Bridge
	Log        *msglog.Log
	Catalog    *drbdcmd.Catalog
	Inbox      chan interface{}
	Screen     display.Screen
	Logger     logger.Logger
	Restart    config.RestartConfig
	Tick       time.Duration
	Signals    []os.Signal
	MaxObjects int
	Once       bool // Stop after the first initial state
}

// resetter is implemented by screens that track state across frames.
type resetter interface {
	Reset()
}

// Run returns the last session's result. It returns an error when
// Restart.MaxFailures sessions failed in a row.
func (l *Loop) Run(ctx context.Context) (monitor.Result, error) {
	l.defaults()

	failures := 0
	recovered := false
	for {
		res := l.session(ctx, recovered)

		switch res.Action {
		case monitor.Terminate:
			return res, nil
		case monitor.RestartImmediate:
			failures = 0
			recovered = false
			l.reset()
			continue
		}

		// Only consecutive failures count; a session that loaded the
		// initial state was working.
		if res.Model.Initialized {
			failures = 0
		}
		failures++
		recovered = true
		if l.Restart.MaxFailures > 0 && failures >= l.Restart.MaxFailures {
			return res, errors.WrapWithCode(res.Err, errors.ErrSource,
				fmt.Sprintf("Giving up after %d failed sessions (%s)", failures, res.Fail),
				"Check that the events command works on its own, e.g. 'drbdsetup events2 all'")
		}
		if !l.pause(ctx, res) {
			return monitor.Result{Action: monitor.Terminate, Model: res.Model}, nil
		}
		l.reset()
	}
}

func (l *Loop) defaults() {
	if l.Bridge == nil {
		l.Bridge = notify.NewBridge()
	}
	if l.Log == nil {
		l.Log = msglog.New(msglog.DefaultCapacity, l.Bridge)
	}
	if l.Queue == nil {
		l.Queue = taskqueue.New(taskqueue.DefaultConfig(), l.Bridge, l.Logger)
	}
	if l.Screen == nil {
		l.Screen = nopScreen{}
	}
	if l.Logger == nil {
		l.Logger = logger.Noop()
	}
}

func (l *Loop) session(ctx context.Context, recovered bool) monitor.Result {
	src, err := l.Open()
	if err != nil {
		l.Log.Alertf("Failed to start events source: %s", errors.Summary(err))
		return monitor.Result{Action: monitor.RestartDelayed, Fail: monitor.FailEventsSource, Err: err}
	}

	sess := monitor.New(monitor.Config{
		Source:     src,
		Queue:      l.Queue,
		Bridge:     l.Bridge,
		Log:        l.Log,
		Catalog:    l.Catalog,
		Display:    l.Screen,
		Logger:     l.Logger,
		Inbox:      l.Inbox,
		Tick:       l.Tick,
		Signals:    l.Signals,
		MaxObjects: l.MaxObjects,
		Recovered:  recovered,
		Once:       l.Once,
	})
	return sess.Run(ctx)
}

// pause shows the failed session's last state and waits out the restart
// delay. It reports false when the operator quit or ctx ended meanwhile.
func (l *Loop) pause(ctx context.Context, res monitor.Result) bool {
	l.Screen.Show(monitor.Frame{Model: res.Model, Tasks: l.Queue.List(), Log: l.Log.Entries()})
	l.Screen.Status(fmt.Sprintf("Session failed (%s), restarting in %s", res.Fail, l.Restart.Delay))
	defer l.Screen.Status("")

	timer := time.NewTimer(l.Restart.Delay)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return false
		case <-timer.C:
			return true
		case item := <-l.Inbox:
			switch item.(type) {
			case monitor.Quit:
				return false
			case monitor.Reinitialize:
				return true
			default:
				l.Logger.Debug("dropping %T while waiting to restart", item)
			}
		}
	}
}

func (l *Loop) reset() {
	if r, ok := l.Screen.(resetter); ok {
		r.Reset()
	}
}

type nopScreen struct{}

func (nopScreen) Show(monitor.Frame) {}
func (nopScreen) Status(string)      {}
