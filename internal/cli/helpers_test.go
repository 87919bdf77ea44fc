package cli

import (
	"bytes"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rileyhilliard/drbdmon/internal/config"
	"github.com/rileyhilliard/drbdmon/internal/logger"
	"github.com/rileyhilliard/drbdmon/internal/monitor"
	"github.com/rileyhilliard/drbdmon/internal/msglog"
	"github.com/rileyhilliard/drbdmon/internal/source"
)

// initialState is a status stream describing one healthy and one
// degraded resource.
var initialState = []string{
	"exists resource name:r0 role:Primary",
	"exists device name:r0 volume:0 minor:0 disk:UpToDate client:no quorum:yes",
	"exists connection name:r0 peer-node-id:1 conn-name:nodeB connection:Connected role:Secondary",
	"exists resource name:r1 role:Secondary",
	"exists connection name:r1 peer-node-id:1 conn-name:nodeB connection:Connecting role:Unknown",
	"exists -",
}

var healthyState = []string{
	"exists resource name:r0 role:Primary",
	"exists device name:r0 volume:0 minor:0 disk:UpToDate client:no quorum:yes",
	"exists connection name:r0 peer-node-id:1 conn-name:nodeB connection:Connected role:Secondary",
	"exists -",
}

type fakeSource struct {
	ch chan string
}

// newFakeSource returns a source that delivers lines and then, if closed
// is set, ends the stream.
func newFakeSource(closed bool, lines ...string) *fakeSource {
	f := &fakeSource{ch: make(chan string, len(lines))}
	for _, l := range lines {
		f.ch <- l
	}
	if closed {
		close(f.ch)
	}
	return f
}

func (f *fakeSource) Lines() <-chan string { return f.ch }
func (f *fakeSource) Err() error           { return nil }
func (f *fakeSource) Close() error         { return nil }

// opener hands out sources in order. Once they run out it returns sources
// that end at once.
type opener struct {
	mu      sync.Mutex
	sources []source.Source
	errs    []error
	opened  int
}

func (o *opener) open() (source.Source, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	i := o.opened
	o.opened++
	if i < len(o.errs) && o.errs[i] != nil {
		return nil, o.errs[i]
	}
	if i < len(o.sources) {
		return o.sources[i], nil
	}
	return newFakeSource(true), nil
}

func (o *opener) count() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.opened
}

// recordingScreen keeps every frame and status line. onShow and onStatus
// run in the session's goroutine.
type recordingScreen struct {
	mu       sync.Mutex
	frames   []monitor.Frame
	statuses []string
	onShow   func(monitor.Frame)
	onStatus func(string)
	resets   int
}

func (s *recordingScreen) Show(fr monitor.Frame) {
	s.mu.Lock()
	s.frames = append(s.frames, fr)
	hook := s.onShow
	s.mu.Unlock()
	if hook != nil {
		hook(fr)
	}
}

func (s *recordingScreen) Status(text string) {
	s.mu.Lock()
	s.statuses = append(s.statuses, text)
	hook := s.onStatus
	s.mu.Unlock()
	if hook != nil {
		hook(text)
	}
}

func (s *recordingScreen) Reset() {
	s.mu.Lock()
	s.resets++
	s.mu.Unlock()
}

func (s *recordingScreen) statusLines() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.statuses...)
}

// syncBuffer is a bytes.Buffer safe for a writer and a polling reader.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// newTestLoop returns a loop with a short restart delay that does not
// install signal handlers.
func newTestLoop(o *opener, screen *recordingScreen) *Loop {
	return &Loop{
		Open:    o.open,
		Inbox:   make(chan interface{}, 8),
		Screen:  screen,
		Logger:  logger.NewBufferLogger(),
		Restart: config.RestartConfig{Delay: 10 * time.Millisecond},
		Signals: []os.Signal{},
	}
}

func logged(log *msglog.Log, level msglog.Level, substr string) bool {
	for _, e := range log.Entries() {
		if e.Level == level && strings.Contains(e.Text, substr) {
			return true
		}
	}
	return false
}

// stubSource makes the commands open the given sources for the duration
// of the test.
func stubSource(t *testing.T, o *opener) {
	t.Helper()
	saved := openSource
	openSource = func(*config.Config, *msglog.Log, logger.Logger) func() (source.Source, error) {
		return o.open
	}
	t.Cleanup(func() { openSource = saved })
}
