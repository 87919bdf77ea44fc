// Package severity implements the four-level problem flag carried by every
// node of the resource hierarchy.
package severity

// Level orders problem states. Higher values are more severe.
type Level uint8

const (
	// Norm means neither the node nor any descendant has a problem.
	Norm Level = iota
	// Mark means the node itself is fine but a descendant has a problem.
	Mark
	// Warn means the node itself has a non-critical problem.
	Warn
	// Alert means the node itself has a critical problem.
	Alert
)

// String returns the display name of the level.
func (l Level) String() string {
	switch l {
	case Norm:
		return "NORM"
	case Mark:
		return "MARK"
	case Warn:
		return "WARN"
	case Alert:
		return "ALERT"
	default:
		return "UNKNOWN"
	}
}

// Max returns the more severe of two levels.
func Max(a, b Level) Level {
	if a > b {
		return a
	}
	return b
}

// Flags is the mutable severity state of one node.
//
// Raising is monotone within a recompute pass: SetMark never overrides
// WARN or ALERT, SetWarn never overrides ALERT. Only Clear lowers the level.
// The zero value is Norm; use New for the ALERT start state of a node that
// has not been evaluated yet.
type Flags struct {
	level Level
}

// New returns flags in the ALERT state. Nodes start pessimistic until their
// first recompute.
func New() Flags {
	return Flags{level: Alert}
}

// Level returns the current level.
func (f *Flags) Level() Level {
	return f.level
}

// SetMark raises the flag to MARK if it is NORM.
func (f *Flags) SetMark() {
	if f.level == Norm {
		f.level = Mark
	}
}

// SetWarn raises the flag to WARN unless it is ALERT.
func (f *Flags) SetWarn() {
	if f.level != Alert {
		f.level = Warn
	}
}

// SetAlert raises the flag to ALERT.
func (f *Flags) SetAlert() {
	f.level = Alert
}

// Raise applies the setter matching l. Raising to Norm is a no-op.
func (f *Flags) Raise(l Level) {
	switch l {
	case Mark:
		f.SetMark()
	case Warn:
		f.SetWarn()
	case Alert:
		f.SetAlert()
	}
}

// Clear resets the flag to NORM ahead of a recompute.
func (f *Flags) Clear() {
	f.level = Norm
}

// HasMark reports whether the flag is anything but NORM.
func (f *Flags) HasMark() bool {
	return f.level != Norm
}

// HasWarn reports whether the flag is WARN or ALERT.
func (f *Flags) HasWarn() bool {
	return f.level == Warn || f.level == Alert
}

// HasAlert reports whether the flag is ALERT.
func (f *Flags) HasAlert() bool {
	return f.level == Alert
}
