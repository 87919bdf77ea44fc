// Package notify carries notifications from worker goroutines to the
// reactor goroutine.
//
// A Bridge combines a set of pending reasons with a single-slot wakeup
// channel. Producers add reasons with Post, which never blocks; the reactor
// selects on C and calls Take to read and clear every pending reason at once.
// Because the wakeup token stays in the channel until the reactor receives
// it, a Post that happens before the reactor starts waiting is never lost.
package notify

import (
	"strings"
	"sync"
)

// Reason is a set of notification causes.
type Reason uint64

const (
	// QueueChanged means a task changed state.
	QueueChanged Reason = 1 << iota
	// LogChanged means a message log entry was appended.
	LogChanged
	// OutOfMemory means a worker hit resource exhaustion and the session
	// should restart.
	OutOfMemory Reason = 1 << 63
)

// Has reports whether all bits of r2 are set in r.
func (r Reason) Has(r2 Reason) bool {
	return r&r2 == r2
}

// String lists the set reasons.
func (r Reason) String() string {
	if r == 0 {
		return "none"
	}
	var parts []string
	if r.Has(QueueChanged) {
		parts = append(parts, "queue-changed")
	}
	if r.Has(LogChanged) {
		parts = append(parts, "log-changed")
	}
	if r.Has(OutOfMemory) {
		parts = append(parts, "out-of-memory")
	}
	return strings.Join(parts, "|")
}

// Notifier is what producers need from a Bridge.
type Notifier interface {
	Post(r Reason)
}

// Bridge is the notification channel into the reactor.
type Bridge struct {
	mu      sync.Mutex
	pending Reason
	wake    chan struct{}
}

// NewBridge creates an empty bridge.
func NewBridge() *Bridge {
	return &Bridge{wake: make(chan struct{}, 1)}
}

// Post adds r to the pending reasons and wakes the reactor. It never blocks.
func (b *Bridge) Post(r Reason) {
	b.mu.Lock()
	b.pending |= r
	b.mu.Unlock()
	b.Wakeup()
}

// Wakeup wakes the reactor without adding a reason.
func (b *Bridge) Wakeup() {
	select {
	case b.wake <- struct{}{}:
	default:
		// A wakeup is already pending.
	}
}

// C is the wakeup channel the reactor selects on.
func (b *Bridge) C() <-chan struct{} {
	return b.wake
}

// Take returns all pending reasons and clears them.
func (b *Bridge) Take() Reason {
	b.mu.Lock()
	defer b.mu.Unlock()
	r := b.pending
	b.pending = 0
	return r
}
