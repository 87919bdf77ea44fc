// Package exec runs administrative child processes with bounded output
// capture and asynchronous termination.
package exec

import (
	stderrors "errors"
	"fmt"
	"os/exec"
	"strings"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/rileyhilliard/drbdmon/internal/errors"
	"golang.org/x/sys/unix"
)

// Exit status sentinels. Real exit codes are >= 0; a process killed by a
// signal reports 128 plus the signal number, like a shell.
const (
	ExitStatusNone   = -1 // not exited yet
	ExitStatusFailed = -2 // could not be started
)

// MaxCapture is the number of bytes kept per output stream.
const MaxCapture = 1 << 18

// pipeDrainDelay bounds how long Execute waits for output pipes held open by
// background children after the process itself exited.
const pipeDrainDelay = 5 * time.Second

// termination requests
const (
	termNone int32 = iota
	termGraceful
	termForced
)

// Process is one external command. Execute runs it to completion on the
// calling goroutine; every other method may be called concurrently from any
// goroutine.
type Process struct {
	argv       []string
	stdout     *capture
	stderr     *capture
	exitStatus atomic.Int32
	term       atomic.Int32
	started    atomic.Bool

	// pid is nonzero from start until the child has exited. It is cleared
	// before the child is reaped, and signals are sent with mu held, so a
	// kill never reaches a recycled process group.
	mu  sync.Mutex
	pid int
}

// New prepares a process for argv. argv[0] is the program.
func New(argv []string) *Process {
	p := &Process{
		argv:   append([]string(nil), argv...),
		stdout: newCapture(MaxCapture),
		stderr: newCapture(MaxCapture),
	}
	p.exitStatus.Store(ExitStatusNone)
	return p
}

// Argv returns the command line.
func (p *Process) Argv() []string {
	return append([]string(nil), p.argv...)
}

// CommandLine returns the command line as a single string for display.
func (p *Process) CommandLine() string {
	return strings.Join(p.argv, " ")
}

// ExitStatus returns the exit status or one of the sentinels.
func (p *Process) ExitStatus() int {
	return int(p.exitStatus.Load())
}

// Finished reports whether Execute has recorded a terminal status.
func (p *Process) Finished() bool {
	return p.ExitStatus() != ExitStatusNone
}

// Pid returns the process id while the process runs, else 0.
func (p *Process) Pid() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.pid
}

// Stdout returns the captured standard output.
func (p *Process) Stdout() []byte { return p.stdout.Bytes() }

// Stderr returns the captured standard error.
func (p *Process) Stderr() []byte { return p.stderr.Bytes() }

// Captured returns the number of kept bytes of stdout and stderr without
// copying them.
func (p *Process) Captured() (stdout, stderr int) {
	return p.stdout.Len(), p.stderr.Len()
}

// Discarded returns the number of output bytes dropped beyond the capture
// limit, for stdout and stderr.
func (p *Process) Discarded() (stdout, stderr int64) {
	return p.stdout.Discarded(), p.stderr.Discarded()
}

// Execute starts the process and waits for it to exit. Output beyond
// MaxCapture per stream is read and dropped so the child never blocks on a
// full pipe.
//
// A start failure records ExitStatusFailed and returns an ErrSpawn error, or
// ErrOutOfMemory when the kernel refused for lack of resources. A process
// that ran returns nil regardless of its exit code.
func (p *Process) Execute() error {
	if !p.started.CompareAndSwap(false, true) {
		return errors.New(errors.ErrExec, "Process was already executed", "")
	}
	if len(p.argv) == 0 {
		p.exitStatus.Store(ExitStatusFailed)
		return errors.New(errors.ErrSpawn, "Empty command line", "")
	}

	cmd := exec.Command(p.argv[0], p.argv[1:]...)
	cmd.Stdout = p.stdout
	cmd.Stderr = p.stderr
	// Own process group so termination also reaches helpers the command
	// forks, which would otherwise keep the output pipes open.
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.WaitDelay = pipeDrainDelay

	if err := cmd.Start(); err != nil {
		p.exitStatus.Store(ExitStatusFailed)
		return spawnError(p.argv[0], err)
	}
	pid := cmd.Process.Pid
	p.mu.Lock()
	p.pid = pid
	p.mu.Unlock()
	if req := p.term.Load(); req != termNone {
		_ = p.signal(req == termForced)
	}

	awaitExit(pid)
	p.mu.Lock()
	p.pid = 0
	p.mu.Unlock()

	status := exitStatusOf(cmd.Wait())
	p.exitStatus.Store(int32(status))
	return nil
}

// awaitExit blocks until the child has exited, leaving it unreaped so its
// pid and process group id stay reserved.
func awaitExit(pid int) {
	var info unix.Siginfo
	for {
		err := unix.Waitid(unix.P_PID, pid, &info, unix.WEXITED|unix.WNOWAIT, nil)
		if err != unix.EINTR {
			return
		}
	}
}

// Terminate requests termination with SIGTERM, or SIGKILL when force is set.
// It does not wait; the caller observes the result through ExitStatus. A
// request made before the process started is delivered as soon as it has.
func (p *Process) Terminate(force bool) error {
	req := termGraceful
	if force {
		req = termForced
	}
	p.term.Store(req)
	return p.signal(force)
}

func (p *Process) signal(force bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	pid := p.pid
	if pid == 0 {
		return nil
	}
	sig := unix.SIGTERM
	if force {
		sig = unix.SIGKILL
	}
	err := unix.Kill(-pid, sig)
	if err != nil && !stderrors.Is(err, unix.ESRCH) {
		return errors.WrapWithCode(err, errors.ErrExec,
			fmt.Sprintf("Couldn't signal process %d", pid), "")
	}
	return nil
}

func spawnError(program string, err error) error {
	if stderrors.Is(err, unix.ENOMEM) || stderrors.Is(err, unix.EAGAIN) {
		return errors.WrapWithCode(err, errors.ErrOutOfMemory,
			fmt.Sprintf("Out of resources starting %s", program), "")
	}
	return errors.WrapWithCode(err, errors.ErrSpawn,
		fmt.Sprintf("Couldn't start %s", program),
		"Make sure the command exists and is executable.")
}

func exitStatusOf(err error) int {
	if err == nil || stderrors.Is(err, exec.ErrWaitDelay) {
		return 0
	}
	var exitErr *exec.ExitError
	if stderrors.As(err, &exitErr) {
		if ws, ok := exitErr.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
			return 128 + int(ws.Signal())
		}
		return exitErr.ExitCode()
	}
	// Wait failed without an exit status; the output copy broke.
	return ExitStatusFailed
}
