package taskqueue

import (
	"time"
)

// State is the lifecycle state of a task.
type State int

const (
	Pending State = iota
	Active
	Suspended
	Finished
)

// String returns the string representation of the task state.
func (s State) String() string {
	switch s {
	case Pending:
		return "pending"
	case Active:
		return "active"
	case Suspended:
		return "suspended"
	case Finished:
		return "finished"
	default:
		return "unknown"
	}
}

// NoTask is never assigned as a task id.
const NoTask uint64 = 0

// DefaultCapacity is the maximum number of tracked tasks.
const DefaultCapacity = 1024

// DefaultKillGrace is how long a task may ignore SIGTERM at shutdown before
// its process group gets SIGKILL.
const DefaultKillGrace = 2 * time.Second

// Config holds queue settings.
type Config struct {
	Capacity         int           // Max tracked tasks in any state
	DiscardFinished  bool          // Drop every task as soon as it finishes
	DiscardSucceeded bool          // Drop tasks that finish with exit status 0
	KillGrace        time.Duration // SIGTERM to SIGKILL delay when Run stops
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Capacity:  DefaultCapacity,
		KillGrace: DefaultKillGrace,
	}
}

// Command is what a task runs.
type Command struct {
	Description string   // Human readable, e.g. "Start resource r0"
	Argv        []string // Program and arguments
}

// Snapshot is a copy of a task's state. Snapshots from List leave Stdout
// and Stderr nil; the sizes are always set.
type Snapshot struct {
	ID               uint64
	Description      string
	Argv             []string
	State            State
	ExitStatus       int
	Cancelled        bool // Terminated before it ran
	Error            string
	Stdout           []byte
	Stderr           []byte
	StdoutSize       int // Kept bytes of stdout
	StderrSize       int
	StdoutDiscarded  int64
	StderrDiscarded  int64
	Enqueued         time.Time
	Started          time.Time
	Ended            time.Time
	RemoveOnFinished bool
}

// Success returns true if the task finished with exit status 0.
func (s *Snapshot) Success() bool {
	return s.State == Finished && !s.Cancelled && s.ExitStatus == 0
}
