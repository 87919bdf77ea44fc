package source

import (
	stderrors "errors"
	"fmt"
	"os/exec"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/rileyhilliard/drbdmon/internal/errors"
	"golang.org/x/sys/unix"
)

// Local runs the helper as a child of this process.
type Local struct {
	stream
	cfg       Config
	cmd       *exec.Cmd
	stderr    *lineWriter
	closeOnce sync.Once
}

// StartLocal spawns the helper.
func StartLocal(cfg Config) (*Local, error) {
	cfg.normalize()
	argv := strings.Fields(cfg.Command)

	l := &Local{
		stream: newStream(),
		cfg:    cfg,
		stderr: &lineWriter{emit: cfg.Stderr},
	}
	l.cmd = exec.Command(argv[0], argv[1:]...)
	l.cmd.Stderr = l.stderr
	l.cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	l.cmd.WaitDelay = cfg.Grace

	stdout, err := l.cmd.StdoutPipe()
	if err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrSpawn, "Couldn't create events pipe", "")
	}
	if err := l.cmd.Start(); err != nil {
		code := errors.ErrSpawn
		if stderrors.Is(err, unix.ENOMEM) || stderrors.Is(err, unix.EAGAIN) {
			code = errors.ErrOutOfMemory
		}
		return nil, errors.WrapWithCode(err, code,
			fmt.Sprintf("Couldn't start events source %s", argv[0]),
			"Check events.command in the config and that drbd-utils is installed.")
	}
	cfg.Log.Debug("events source started: pid %d: %s", l.cmd.Process.Pid, cfg.Command)

	go l.pump(stdout, l.kill, l.wait)
	return l, nil
}

// Pid returns the helper's process id.
func (l *Local) Pid() int {
	return l.cmd.Process.Pid
}

func (l *Local) signal(sig unix.Signal) {
	if err := unix.Kill(-l.cmd.Process.Pid, sig); err != nil && !stderrors.Is(err, unix.ESRCH) {
		l.cfg.Log.Warn("signal %v to events source: %v", sig, err)
	}
}

func (l *Local) kill() { l.signal(unix.SIGKILL) }

func (l *Local) wait() error {
	err := l.cmd.Wait()
	l.stderr.Flush()
	l.cfg.Log.Debug("events source pid %d reaped: %v", l.cmd.Process.Pid, err)

	var exitErr *exec.ExitError
	switch {
	case err == nil, stderrors.Is(err, exec.ErrWaitDelay):
		return errors.New(errors.ErrSource, "Events source exited", "")
	case stderrors.As(err, &exitErr):
		if ws, ok := exitErr.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
			return errors.New(errors.ErrSource,
				fmt.Sprintf("Events source killed by signal %d", int(ws.Signal())), "")
		}
		return errors.New(errors.ErrSource,
			fmt.Sprintf("Events source exited with status %d", exitErr.ExitCode()), "")
	default:
		return errors.WrapWithCode(err, errors.ErrStreamIO, "Events source output failed", "")
	}
}

// Close terminates the helper's process group, escalating to SIGKILL after
// the grace period, and returns once the helper has been reaped.
func (l *Local) Close() error {
	l.closeOnce.Do(func() {
		close(l.stop)
		l.signal(unix.SIGTERM)
		select {
		case <-l.done:
			return
		case <-time.After(l.cfg.Grace):
		}
		l.cfg.Log.Debug("events source ignored SIGTERM, killing")
		l.kill()
		<-l.done
	})
	return nil
}
