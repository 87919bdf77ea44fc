package model

import (
	"fmt"

	"github.com/rileyhilliard/drbdmon/internal/errors"
	"github.com/rileyhilliard/drbdmon/internal/events"
	"github.com/rileyhilliard/drbdmon/internal/severity"
)

// Resource is a replicated storage unit. It exclusively owns its local
// volumes and its connections.
type Resource struct {
	name        string
	role        Role
	roleAlert   bool
	quorumAlert bool
	volumes     *index[uint16, *Volume]
	connections *index[string, *Connection]
	flags       severity.Flags
}

// NewResource creates an empty resource.
func NewResource(name string) *Resource {
	return &Resource{
		name:        name,
		volumes:     newIndex[uint16, *Volume](),
		connections: newIndex[string, *Connection](),
		flags:       severity.New(),
	}
}

func (r *Resource) Name() string          { return r.name }
func (r *Resource) Role() Role            { return r.role }
func (r *Resource) RoleAlert() bool       { return r.roleAlert }
func (r *Resource) QuorumAlert() bool     { return r.quorumAlert }
func (r *Resource) Level() severity.Level { return r.flags.Level() }

// Volume looks up a local volume.
func (r *Resource) Volume(number uint16) (*Volume, bool) {
	return r.volumes.get(number)
}

// Volumes returns the local volumes in volume number order.
func (r *Resource) Volumes() []*Volume {
	return r.volumes.values()
}

// Connection looks up the connection to peer.
func (r *Resource) Connection(peer string) (*Connection, bool) {
	return r.connections.get(peer)
}

// Connections returns the connections in peer name order.
func (r *Resource) Connections() []*Connection {
	return r.connections.values()
}

// AddVolume inserts a local volume. An existing entry with the same number
// is left untouched and a duplicate error is returned.
func (r *Resource) AddVolume(v *Volume) error {
	if !r.volumes.insert(v.number, v) {
		return errors.New(errors.ErrDuplicate,
			fmt.Sprintf("Volume %d already exists on resource %s", v.number, r.name), "")
	}
	return nil
}

// AddConnection inserts a connection. An existing entry for the same peer
// is left untouched and a duplicate error is returned.
func (r *Resource) AddConnection(c *Connection) error {
	if !r.connections.insert(c.peer, c) {
		return errors.New(errors.ErrDuplicate,
			fmt.Sprintf("Connection to %s already exists on resource %s", c.peer, r.name), "")
	}
	return nil
}

// RemoveVolume deletes a local volume.
func (r *Resource) RemoveVolume(number uint16) (*Volume, bool) {
	return r.volumes.remove(number)
}

// RemoveConnection deletes a connection together with its peer volumes.
func (r *Resource) RemoveConnection(peer string) (*Connection, bool) {
	return r.connections.remove(peer)
}

// Update applies the fields of one stream line.
func (r *Resource) Update(p *events.PropertyMap) error {
	if s, ok := p.Get("role"); ok {
		role, err := ParseRole(s)
		if err != nil {
			return err
		}
		r.role = role
	}
	return nil
}

// UpdateStateFlags recomputes the resource's own flag from its role.
func (r *Resource) UpdateStateFlags() severity.Level {
	r.flags.Clear()
	r.roleAlert = r.role == RoleUnknown
	if r.roleAlert {
		r.flags.SetAlert()
	}
	return r.flags.Level()
}

// ChildStateFlagsChanged recomputes the resource's flag from its own state
// and the current flags of its volumes and connections. A volume without
// quorum puts the resource itself into alert.
func (r *Resource) ChildStateFlagsChanged() severity.Level {
	r.UpdateStateFlags()
	r.quorumAlert = false
	r.volumes.each(func(v *Volume) bool {
		if v.Level() != severity.Norm {
			r.flags.SetMark()
		}
		if v.QuorumLost() {
			r.quorumAlert = true
		}
		return true
	})
	if r.quorumAlert {
		r.flags.SetAlert()
	}
	r.connections.each(func(c *Connection) bool {
		if c.Level() != severity.Norm {
			r.flags.SetMark()
		}
		return true
	})
	return r.flags.Level()
}

// Aggregate returns the most severe flag in the resource's subtree.
func (r *Resource) Aggregate() severity.Level {
	agg := r.flags.Level()
	r.volumes.each(func(v *Volume) bool {
		agg = severity.Max(agg, v.Level())
		return true
	})
	r.connections.each(func(c *Connection) bool {
		agg = severity.Max(agg, c.Aggregate())
		return true
	})
	return agg
}

func (r *Resource) objectCount() int {
	n := 1 + r.volumes.len()
	r.connections.each(func(c *Connection) bool {
		n += c.objectCount()
		return true
	})
	return n
}
