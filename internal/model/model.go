// Package model holds the live resource hierarchy reconstructed from the
// status stream and computes the severity of every node in it.
//
// The tree is
//
//	Resource ─┬─ Volume (local, keyed by volume number)
//	          └─ Connection (keyed by peer name) ── Volume (peer, keyed by volume number)
//
// Every mutation recomputes the touched node and each ancestor up to the
// resource, so after Apply returns the flags of the whole tree are current.
// A Model is owned by a single goroutine and is not safe for concurrent use;
// other goroutines read it through Snapshot.
package model

import (
	"fmt"

	"github.com/rileyhilliard/drbdmon/internal/errors"
	"github.com/rileyhilliard/drbdmon/internal/events"
	"github.com/rileyhilliard/drbdmon/internal/severity"
)

// Model is the resource hierarchy.
type Model struct {
	resources   *index[string, *Resource]
	objects     int
	maxObjects  int
	dirty       bool
	initialized bool
}

// New creates an empty model. maxObjects limits the number of nodes in the
// tree; 0 means no limit.
func New(maxObjects int) *Model {
	return &Model{
		resources:  newIndex[string, *Resource](),
		maxObjects: maxObjects,
	}
}

// Resource looks up a resource by name.
func (m *Model) Resource(name string) (*Resource, bool) {
	return m.resources.get(name)
}

// Resources returns all resources in name order.
func (m *Model) Resources() []*Resource {
	return m.resources.values()
}

// Len returns the number of resources.
func (m *Model) Len() int {
	return m.resources.len()
}

// Initialized reports whether the end of the initial state dump was seen.
func (m *Model) Initialized() bool {
	return m.initialized
}

// ProblemCount returns the number of resources that are not NORM.
func (m *Model) ProblemCount() int {
	n := 0
	m.resources.each(func(r *Resource) bool {
		if r.Level() != severity.Norm {
			n++
		}
		return true
	})
	return n
}

// Aggregate returns the most severe flag anywhere in the model.
func (m *Model) Aggregate() severity.Level {
	agg := severity.Norm
	m.resources.each(func(r *Resource) bool {
		agg = severity.Max(agg, r.Aggregate())
		return true
	})
	return agg
}

// ConsumeDirty reports whether the model changed since the last call and
// resets the flag.
func (m *Model) ConsumeDirty() bool {
	d := m.dirty
	m.dirty = false
	return d
}

// Apply applies one parsed stream line.
//
// Errors are either protocol violations (ErrProtocol, ErrDuplicate), which
// leave the model unchanged, references to objects that do not exist
// (ErrNotFound), or ErrOutOfMemory when the object limit is reached.
// Events for object types the model does not track are ignored.
func (m *Model) Apply(ev events.Event) error {
	if ev.EndOfInitialState {
		if m.initialized {
			return errors.New(errors.ErrProtocol, "Repeated end of initial state", "")
		}
		m.initialized = true
		m.dirty = true
		return nil
	}
	if !ev.Actionable() {
		return nil
	}
	if ev.Verb == events.VerbExists && m.initialized {
		return errors.New(errors.ErrProtocol,
			fmt.Sprintf("Initial state line for %s after end of initial state", ev.Object), "")
	}

	var err error
	switch ev.Object {
	case events.ObjectResource:
		err = m.applyResource(ev)
	case events.ObjectConnection:
		err = m.applyConnection(ev)
	case events.ObjectVolume:
		err = m.applyVolume(ev)
	case events.ObjectPeerVolume:
		err = m.applyPeerVolume(ev)
	}
	if err == nil {
		m.dirty = true
	}
	return err
}

func (m *Model) reserve(n int) error {
	if m.maxObjects > 0 && m.objects+n > m.maxObjects {
		return errors.New(errors.ErrOutOfMemory,
			fmt.Sprintf("Object limit of %d reached", m.maxObjects),
			"Raise model.max_objects in the configuration")
	}
	return nil
}

func creates(v events.Verb) bool {
	return v == events.VerbCreate || v == events.VerbExists
}

func (m *Model) applyResource(ev events.Event) error {
	name, err := ev.Props.Require("name")
	if err != nil {
		return err
	}
	rsc, found := m.resources.get(name)

	switch {
	case creates(ev.Verb):
		if found {
			return errors.New(errors.ErrDuplicate, fmt.Sprintf("Resource %s already exists", name), "")
		}
		if err := m.reserve(1); err != nil {
			return err
		}
		rsc = NewResource(name)
		if err := rsc.Update(ev.Props); err != nil {
			return err
		}
		rsc.ChildStateFlagsChanged()
		m.resources.insert(name, rsc)
		m.objects++
	case ev.Verb == events.VerbChange:
		if !found {
			return notFound("resource", name)
		}
		if err := rsc.Update(ev.Props); err != nil {
			return err
		}
		rsc.ChildStateFlagsChanged()
	case ev.Verb == events.VerbDestroy:
		if !found {
			return notFound("resource", name)
		}
		m.objects -= rsc.objectCount()
		m.resources.remove(name)
	}
	return nil
}

func (m *Model) applyConnection(ev events.Event) error {
	rsc, peer, err := m.connectionTarget(ev.Props)
	if err != nil {
		return err
	}
	conn, found := rsc.Connection(peer)

	switch {
	case creates(ev.Verb):
		if found {
			return errors.New(errors.ErrDuplicate,
				fmt.Sprintf("Connection %s:%s already exists", rsc.name, peer), "")
		}
		if err := m.reserve(1); err != nil {
			return err
		}
		conn = NewConnection(peer)
		if err := conn.Update(ev.Props); err != nil {
			return err
		}
		conn.ChildStateFlagsChanged()
		if err := rsc.AddConnection(conn); err != nil {
			return err
		}
		m.objects++
	case ev.Verb == events.VerbChange:
		if !found {
			return notFound("connection", rsc.name+":"+peer)
		}
		if err := conn.Update(ev.Props); err != nil {
			return err
		}
		conn.ChildStateFlagsChanged()
	case ev.Verb == events.VerbDestroy:
		if !found {
			return notFound("connection", rsc.name+":"+peer)
		}
		m.objects -= conn.objectCount()
		rsc.RemoveConnection(peer)
	}
	rsc.ChildStateFlagsChanged()
	return nil
}

func (m *Model) applyVolume(ev events.Event) error {
	name, err := ev.Props.Require("name")
	if err != nil {
		return err
	}
	number, err := volumeNumber(ev.Props)
	if err != nil {
		return err
	}
	rsc, ok := m.resources.get(name)
	if !ok {
		return notFound("resource", name)
	}
	vol, found := rsc.Volume(number)

	switch {
	case creates(ev.Verb):
		if found {
			return errors.New(errors.ErrDuplicate,
				fmt.Sprintf("Volume %s/%d already exists", name, number), "")
		}
		if err := m.reserve(1); err != nil {
			return err
		}
		vol = NewVolume(number)
		if err := vol.Update(ev.Props); err != nil {
			return err
		}
		vol.UpdateStateFlags(nil)
		if err := rsc.AddVolume(vol); err != nil {
			return err
		}
		m.objects++
	case ev.Verb == events.VerbChange:
		if !found {
			return notFound("volume", fmt.Sprintf("%s/%d", name, number))
		}
		if err := vol.Update(ev.Props); err != nil {
			return err
		}
		vol.UpdateStateFlags(nil)
	case ev.Verb == events.VerbDestroy:
		if !found {
			return notFound("volume", fmt.Sprintf("%s/%d", name, number))
		}
		rsc.RemoveVolume(number)
		m.objects--
	}
	rsc.ChildStateFlagsChanged()
	return nil
}

func (m *Model) applyPeerVolume(ev events.Event) error {
	rsc, peer, err := m.connectionTarget(ev.Props)
	if err != nil {
		return err
	}
	number, err := volumeNumber(ev.Props)
	if err != nil {
		return err
	}
	conn, ok := rsc.Connection(peer)
	if !ok {
		return notFound("connection", rsc.name+":"+peer)
	}
	vol, found := conn.Volume(number)
	id := fmt.Sprintf("%s:%s/%d", rsc.name, peer, number)

	switch {
	case creates(ev.Verb):
		if found {
			return errors.New(errors.ErrDuplicate, fmt.Sprintf("Peer volume %s already exists", id), "")
		}
		if err := m.reserve(1); err != nil {
			return err
		}
		vol = NewPeerVolume(number)
		if err := vol.Update(ev.Props); err != nil {
			return err
		}
		if err := conn.AddVolume(vol); err != nil {
			return err
		}
		m.objects++
	case ev.Verb == events.VerbChange:
		if !found {
			return notFound("peer volume", id)
		}
		if err := vol.Update(ev.Props); err != nil {
			return err
		}
	case ev.Verb == events.VerbDestroy:
		if !found {
			return notFound("peer volume", id)
		}
		conn.RemoveVolume(number)
		m.objects--
	}
	conn.ChildStateFlagsChanged()
	rsc.ChildStateFlagsChanged()
	return nil
}

// connectionTarget resolves the resource and peer name of a connection or
// peer volume line. Older producers name the peer "peer", events2 uses
// "conn-name".
func (m *Model) connectionTarget(p *events.PropertyMap) (*Resource, string, error) {
	name, err := p.Require("name")
	if err != nil {
		return nil, "", err
	}
	peer, err := p.Require("conn-name", "peer")
	if err != nil {
		return nil, "", err
	}
	rsc, ok := m.resources.get(name)
	if !ok {
		return nil, "", notFound("resource", name)
	}
	return rsc, peer, nil
}

func volumeNumber(p *events.PropertyMap) (uint16, error) {
	s, err := p.Require("volume")
	if err != nil {
		return 0, err
	}
	return events.ParseUint16("volume", s)
}

func notFound(kind, id string) error {
	return errors.New(errors.ErrNotFound, fmt.Sprintf("No %s %s", kind, id), "")
}
