// Package msglog is the operator-facing message log: a bounded ring of
// leveled, timestamped entries that the display shows and that is printed
// when a session ends.
package msglog

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/rileyhilliard/drbdmon/internal/notify"
)

// Level is the importance of an entry.
type Level int

const (
	Info Level = iota
	Warn
	Alert
)

// String returns the level name.
func (l Level) String() string {
	switch l {
	case Info:
		return "INFO"
	case Warn:
		return "WARN"
	case Alert:
		return "ALERT"
	default:
		return "UNKNOWN"
	}
}

// DefaultCapacity is the number of entries kept when none is configured.
const DefaultCapacity = 100

// DateFormat is the timestamp layout of rendered entries.
const DateFormat = "2006-01-02T15:04:05Z"

// Entry is one log message.
type Entry struct {
	Level Level
	Time  time.Time
	Text  string
}

// String renders the entry with its UTC timestamp.
func (e Entry) String() string {
	return fmt.Sprintf("%s %-5s %s", e.Time.UTC().Format(DateFormat), e.Level, e.Text)
}

// Log is a fixed-capacity ring of entries. When full, the oldest entry is
// overwritten. It is safe for concurrent use.
type Log struct {
	mu       sync.Mutex
	entries  []Entry
	next     int
	full     bool
	notifier notify.Notifier
	now      func() time.Time
}

// New creates a log holding up to capacity entries. A capacity below 1 is
// raised to 1. notifier, if not nil, receives LogChanged on every append.
func New(capacity int, notifier notify.Notifier) *Log {
	if capacity < 1 {
		capacity = 1
	}
	return &Log{
		entries:  make([]Entry, capacity),
		notifier: notifier,
		now:      time.Now,
	}
}

// Add appends a formatted entry.
func (l *Log) Add(level Level, format string, args ...interface{}) {
	l.mu.Lock()
	l.entries[l.next] = Entry{Level: level, Time: l.now(), Text: fmt.Sprintf(format, args...)}
	l.next++
	if l.next == len(l.entries) {
		l.next = 0
		l.full = true
	}
	l.mu.Unlock()

	if l.notifier != nil {
		l.notifier.Post(notify.LogChanged)
	}
}

// Infof appends an INFO entry.
func (l *Log) Infof(format string, args ...interface{}) { l.Add(Info, format, args...) }

// Warnf appends a WARN entry.
func (l *Log) Warnf(format string, args ...interface{}) { l.Add(Warn, format, args...) }

// Alertf appends an ALERT entry.
func (l *Log) Alertf(format string, args ...interface{}) { l.Add(Alert, format, args...) }

// Entries returns the entries oldest first.
func (l *Log) Entries() []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.full {
		return append([]Entry(nil), l.entries[:l.next]...)
	}
	out := make([]Entry, 0, len(l.entries))
	out = append(out, l.entries[l.next:]...)
	return append(out, l.entries[:l.next]...)
}

// Len returns the number of stored entries.
func (l *Log) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.full {
		return len(l.entries)
	}
	return l.next
}

// HasEntries reports whether the log is not empty.
func (l *Log) HasEntries() bool {
	return l.Len() > 0
}

// Capacity returns the maximum number of entries.
func (l *Log) Capacity() int {
	return len(l.entries)
}

// Clear removes all entries.
func (l *Log) Clear() {
	l.mu.Lock()
	for i := range l.entries {
		l.entries[i] = Entry{}
	}
	l.next = 0
	l.full = false
	l.mu.Unlock()

	if l.notifier != nil {
		l.notifier.Post(notify.LogChanged)
	}
}

// WriteTo prints every entry on its own line.
func (l *Log) WriteTo(w io.Writer) (int64, error) {
	var total int64
	for _, e := range l.Entries() {
		n, err := fmt.Fprintln(w, e.String())
		total += int64(n)
		if err != nil {
			return total, err
		}
	}
	return total, nil
}
