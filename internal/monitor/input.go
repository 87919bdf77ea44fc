package monitor

import "github.com/rileyhilliard/drbdmon/internal/drbdcmd"

// Input items the display sends to a session through the reactor.

// Quit ends the session and the program.
type Quit struct{}

// Repaint asks the display to redraw from scratch.
type Repaint struct{}

// Reinitialize restarts the session and resynchronizes from the stream.
type Reinitialize struct{}

// RunAction queues an administrative command.
type RunAction struct {
	Action   string
	Target   drbdcmd.Target
	Activate bool // Start PENDING instead of SUSPENDED
}

// TaskOp is an operation on an existing task.
type TaskOp int

const (
	OpSuspend TaskOp = iota
	OpMakePending
	OpTerminate
	OpKill
	OpRemove
)

// String returns the string representation of the task operation.
func (o TaskOp) String() string {
	switch o {
	case OpSuspend:
		return "suspend"
	case OpMakePending:
		return "make pending"
	case OpTerminate:
		return "terminate"
	case OpKill:
		return "kill"
	case OpRemove:
		return "remove"
	default:
		return "unknown"
	}
}

// TaskCommand applies Op to task ID.
type TaskCommand struct {
	Op TaskOp
	ID uint64
}
