// Package logger is the developer-facing diagnostic log of drbdmon
// components. Events meant for the operator go to the message log instead
// (package msglog), which the display renders.
package logger

import (
	"fmt"
	"log"
	"os"
	"strings"
	"sync"
)

// DebugEnv turns on Debug output when set to anything non-empty.
const DebugEnv = "DRBDMON_DEBUG"

// Logger takes printf-style messages at four levels.
type Logger interface {
	Debug(format string, args ...interface{})
	Info(format string, args ...interface{})
	Warn(format string, args ...interface{})
	Error(format string, args ...interface{})
}

// envLogger writes through the standard library's default logger, each line
// tagged with the component prefix and, above Info, the level.
type envLogger struct {
	prefix string
}

// NewEnvLogger returns a Logger for the component named by prefix, e.g.
// "[source]". Debug lines appear only when DRBDMON_DEBUG is set.
func NewEnvLogger(prefix string) Logger {
	return envLogger{prefix: prefix}
}

func (l envLogger) emit(tag, format string, args []interface{}) {
	var b strings.Builder
	b.WriteString(l.prefix)
	b.WriteByte(' ')
	if tag != "" {
		b.WriteString(tag + ": ")
	}
	fmt.Fprintf(&b, format, args...)
	log.Print(b.String())
}

func (l envLogger) Debug(format string, args ...interface{}) {
	if os.Getenv(DebugEnv) == "" {
		return
	}
	l.emit("", format, args)
}

func (l envLogger) Info(format string, args ...interface{})  { l.emit("", format, args) }
func (l envLogger) Warn(format string, args ...interface{})  { l.emit("WARN", format, args) }
func (l envLogger) Error(format string, args ...interface{}) { l.emit("ERROR", format, args) }

type noop struct{}

func (noop) Debug(string, ...interface{}) {}
func (noop) Info(string, ...interface{})  {}
func (noop) Warn(string, ...interface{})  {}
func (noop) Error(string, ...interface{}) {}

// Noop returns a Logger that drops everything.
func Noop() Logger { return noop{} }

// LogMessage is one line kept by a BufferLogger.
type LogMessage struct {
	Level   string
	Message string
}

// BufferLogger keeps messages in memory for tests. The task worker and the
// reactor log from their own goroutines, so it locks.
type BufferLogger struct {
	mu   sync.Mutex
	msgs []LogMessage
}

// NewBufferLogger returns an empty BufferLogger.
func NewBufferLogger() *BufferLogger {
	return &BufferLogger{}
}

func (b *BufferLogger) record(level, format string, args []interface{}) {
	msg := LogMessage{Level: level, Message: fmt.Sprintf(format, args...)}
	b.mu.Lock()
	b.msgs = append(b.msgs, msg)
	b.mu.Unlock()
}

func (b *BufferLogger) Debug(format string, args ...interface{}) { b.record("debug", format, args) }
func (b *BufferLogger) Info(format string, args ...interface{})  { b.record("info", format, args) }
func (b *BufferLogger) Warn(format string, args ...interface{})  { b.record("warn", format, args) }
func (b *BufferLogger) Error(format string, args ...interface{}) { b.record("error", format, args) }

// Messages returns what has been logged so far.
func (b *BufferLogger) Messages() []LogMessage {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]LogMessage(nil), b.msgs...)
}

// Contains reports whether a message at level includes substr.
func (b *BufferLogger) Contains(level, substr string) bool {
	for _, m := range b.Messages() {
		if m.Level == level && strings.Contains(m.Message, substr) {
			return true
		}
	}
	return false
}
