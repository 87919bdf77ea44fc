// Package source supervises the helper process that produces the status
// stream, running it locally or on a storage node over SSH, and delivers
// its output one line at a time.
package source

import (
	"bufio"
	"bytes"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/rileyhilliard/drbdmon/internal/errors"
	"github.com/rileyhilliard/drbdmon/internal/logger"
	"github.com/rileyhilliard/drbdmon/pkg/sshutil"
)

// DefaultCommand is the helper that reports state changes.
const DefaultCommand = "/usr/sbin/drbdsetup events2 all"

// MaxLineLength is the longest accepted status line.
const MaxLineLength = 1 << 20

// DefaultGrace is how long Close waits after SIGTERM before SIGKILL.
const DefaultGrace = 2 * time.Second

// Source delivers status-stream lines.
type Source interface {
	// Lines is closed when the helper's output ended or Close was called.
	Lines() <-chan string
	// Err reports why Lines was closed. It is nil after Close.
	Err() error
	// Close stops the helper and waits until it is gone.
	Close() error
}

// Config describes the helper to run.
type Config struct {
	Command string // Command line, split on whitespace for local runs
	Host    string // Empty runs the helper locally
	SSH     sshutil.Options
	Grace   time.Duration
	// Stderr receives each line the helper writes to its standard error.
	Stderr func(line string)
	Log    logger.Logger
}

// DefaultConfig returns a Config for the local default helper.
func DefaultConfig() Config {
	return Config{
		Command: DefaultCommand,
		SSH:     sshutil.DefaultOptions(),
		Grace:   DefaultGrace,
	}
}

func (c *Config) normalize() {
	if strings.TrimSpace(c.Command) == "" {
		c.Command = DefaultCommand
	}
	if c.Grace <= 0 {
		c.Grace = DefaultGrace
	}
	if c.Stderr == nil {
		c.Stderr = func(string) {}
	}
	if c.Log == nil {
		c.Log = logger.Noop()
	}
}

// Open starts the helper described by cfg.
func Open(cfg Config) (Source, error) {
	if cfg.Host != "" {
		return StartRemote(cfg)
	}
	return StartLocal(cfg)
}

// stream is the reading half shared by the local and remote sources.
type stream struct {
	lines chan string
	stop  chan struct{}
	done  chan struct{}

	mu  sync.Mutex
	err error
}

func newStream() stream {
	return stream{
		lines: make(chan string, 64),
		stop:  make(chan struct{}),
		done:  make(chan struct{}),
	}
}

func (s *stream) Lines() <-chan string { return s.lines }

func (s *stream) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *stream) stopping() bool {
	select {
	case <-s.stop:
		return true
	default:
		return false
	}
}

// pump forwards complete lines from r until EOF, a read error, or stop.
// kill is called when reading fails while the helper may still run; wait
// reaps the helper and describes how it ended.
func (s *stream) pump(r io.Reader, kill func(), wait func() error) {
	defer close(s.done)
	defer close(s.lines)

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), MaxLineLength)

	var readErr error
	for scanner.Scan() {
		select {
		case s.lines <- scanner.Text():
		case <-s.stop:
			wait()
			return
		}
	}
	if err := scanner.Err(); err != nil && !s.stopping() {
		readErr = errors.WrapWithCode(err, errors.ErrStreamIO,
			"Reading the events stream failed", "")
		kill()
	}

	exitErr := wait()
	if s.stopping() {
		return
	}

	s.mu.Lock()
	switch {
	case readErr != nil:
		s.err = readErr
	case exitErr != nil:
		s.err = exitErr
	default:
		s.err = errors.New(errors.ErrSource, "Events source exited", "")
	}
	s.mu.Unlock()
}

// lineWriter splits written bytes into lines for a callback.
type lineWriter struct {
	mu      sync.Mutex
	partial []byte
	emit    func(string)
}

func (w *lineWriter) Write(b []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.partial = append(w.partial, b...)
	for {
		i := bytes.IndexByte(w.partial, '\n')
		if i < 0 {
			break
		}
		line := strings.TrimRight(string(w.partial[:i]), "\r")
		w.partial = w.partial[i+1:]
		if line != "" {
			w.emit(line)
		}
	}
	if len(w.partial) > MaxLineLength {
		w.emit(string(w.partial))
		w.partial = w.partial[:0]
	}
	return len(b), nil
}

// Flush emits a trailing line without newline.
func (w *lineWriter) Flush() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if len(w.partial) > 0 {
		w.emit(string(w.partial))
		w.partial = nil
	}
}
