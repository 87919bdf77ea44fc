package display

import (
	"fmt"
	"io"
	"sync"

	"github.com/rileyhilliard/drbdmon/internal/monitor"
	"github.com/rileyhilliard/drbdmon/internal/msglog"
	"github.com/rileyhilliard/drbdmon/internal/severity"
)

// Plain writes frames as an event log for non-terminal output: new message
// log entries, and a line whenever a resource's worst severity changes.
type Plain struct {
	mu      sync.Mutex
	w       io.Writer
	last    msglog.Entry
	seen    bool
	levels  map[string]severity.Level
	loaded  bool
	started bool
}

// NewPlain creates a plain display writing to w.
func NewPlain(w io.Writer) *Plain {
	return &Plain{w: w, levels: make(map[string]severity.Level)}
}

// Show prints what changed since the previous frame.
func (p *Plain) Show(fr monitor.Frame) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.printLog(fr.Log)

	snap := fr.Model
	if !snap.Initialized {
		return
	}
	if !p.loaded {
		p.loaded = true
		fmt.Fprintf(p.w, "initial state: %d resources, %d with problems\n", len(snap.Resources), snap.Problems)
	}

	current := make(map[string]severity.Level, len(snap.Resources))
	for _, r := range snap.Resources {
		current[r.Name] = r.Aggregate
		prev, known := p.levels[r.Name]
		switch {
		case !known && p.started:
			fmt.Fprintf(p.w, "resource %s: created, %s\n", r.Name, r.Aggregate)
		case !known:
			fmt.Fprintf(p.w, "resource %s: %s\n", r.Name, r.Aggregate)
		case prev != r.Aggregate:
			fmt.Fprintf(p.w, "resource %s: %s -> %s\n", r.Name, prev, r.Aggregate)
		}
	}
	for name := range p.levels {
		if _, ok := current[name]; !ok {
			fmt.Fprintf(p.w, "resource %s: destroyed\n", name)
		}
	}
	p.levels = current
	p.started = true
}

// Status prints a status line.
func (p *Plain) Status(text string) {
	if text == "" {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintln(p.w, text)
}

// Reset forgets the resource state, so the next session's initial state is
// printed in full.
func (p *Plain) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.levels = make(map[string]severity.Level)
	p.loaded = false
	p.started = false
}

// printLog prints the entries after the last one printed. The log is a
// ring, so position is found by content.
func (p *Plain) printLog(entries []msglog.Entry) {
	start := 0
	if p.seen {
		for i := len(entries) - 1; i >= 0; i-- {
			if entries[i] == p.last {
				start = i + 1
				break
			}
		}
	}
	for _, e := range entries[start:] {
		fmt.Fprintln(p.w, e.String())
	}
	if len(entries) > 0 {
		p.last = entries[len(entries)-1]
		p.seen = true
	}
}
