// Package events parses lines of the DRBD status stream
// (`drbdsetup events2 all`).
//
// A line has the form
//
//	<verb> <object> key:value key:value ...
//
// for example
//
//	exists connection name:r0 peer-node-id:1 conn-name:nodeB connection:Connected role:Secondary
//
// The special line "exists -" marks the end of the initial state dump. Fields
// may appear in any order and unknown fields are kept but never required, so
// newer producers that add fields keep working.
package events

import (
	"fmt"
	"strings"

	"github.com/rileyhilliard/drbdmon/internal/errors"
)

// Verb is the kind of change a line reports.
type Verb int

const (
	VerbUnknown Verb = iota
	VerbExists
	VerbCreate
	VerbChange
	VerbDestroy
	// VerbCall and VerbResponse report helper script invocations. They carry
	// no object state.
	VerbCall
	VerbResponse
)

var verbNames = map[string]Verb{
	"exists":   VerbExists,
	"create":   VerbCreate,
	"change":   VerbChange,
	"destroy":  VerbDestroy,
	"call":     VerbCall,
	"response": VerbResponse,
}

// String returns the verb as it appears in the stream.
func (v Verb) String() string {
	for name, verb := range verbNames {
		if verb == v {
			return name
		}
	}
	return "unknown"
}

// Object is the kind of object a line refers to.
type Object int

const (
	ObjectUnknown Object = iota
	ObjectResource
	ObjectConnection
	ObjectVolume
	ObjectPeerVolume
)

var objectNames = map[string]Object{
	"resource":    ObjectResource,
	"connection":  ObjectConnection,
	"device":      ObjectVolume,
	"volume":      ObjectVolume,
	"peer-device": ObjectPeerVolume,
	"peer-volume": ObjectPeerVolume,
}

// String returns the canonical stream name of the object type.
func (o Object) String() string {
	switch o {
	case ObjectResource:
		return "resource"
	case ObjectConnection:
		return "connection"
	case ObjectVolume:
		return "device"
	case ObjectPeerVolume:
		return "peer-device"
	default:
		return "unknown"
	}
}

// Event is one decoded status-stream line.
type Event struct {
	Verb   Verb
	Object Object
	// ObjectName is the raw object token, kept for log messages about
	// object types this package does not know (e.g. "path").
	ObjectName string
	Props      *PropertyMap
	// EndOfInitialState is set for the "exists -" separator line.
	EndOfInitialState bool
}

// Actionable reports whether the event describes a known object with a
// state-carrying verb.
func (e Event) Actionable() bool {
	switch e.Verb {
	case VerbExists, VerbCreate, VerbChange, VerbDestroy:
		return e.Object != ObjectUnknown
	default:
		return false
	}
}

// Parse decodes one line.
//
// An unknown verb is a protocol error. An unknown object type with a known
// verb is not: the event comes back with ObjectUnknown and the caller skips
// it. A field without a colon, with an empty key, or repeated on the same
// line is a protocol error.
func Parse(line string) (Event, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return Event{}, errors.New(errors.ErrProtocol, "Empty event line", "")
	}

	verb, ok := verbNames[fields[0]]
	if !ok {
		return Event{}, errors.New(errors.ErrProtocol,
			fmt.Sprintf("Unknown event verb %q", fields[0]), "")
	}
	if len(fields) < 2 {
		return Event{}, errors.New(errors.ErrProtocol,
			fmt.Sprintf("Event line %q has no object type", line), "")
	}

	ev := Event{
		Verb:       verb,
		ObjectName: fields[1],
		Props:      NewPropertyMap(len(fields) - 2),
	}

	if verb == VerbExists && fields[1] == "-" {
		ev.EndOfInitialState = true
		return ev, nil
	}
	ev.Object = objectNames[fields[1]]

	for _, tok := range fields[2:] {
		key, value, found := strings.Cut(tok, ":")
		if !found || key == "" {
			return Event{}, errors.New(errors.ErrProtocol,
				fmt.Sprintf("Malformed field %q", tok), "Fields must have the form key:value")
		}
		if err := ev.Props.Add(key, value); err != nil {
			return Event{}, err
		}
	}
	return ev, nil
}
