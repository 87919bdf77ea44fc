package model

import (
	"fmt"

	"github.com/rileyhilliard/drbdmon/internal/errors"
	"github.com/rileyhilliard/drbdmon/internal/events"
	"github.com/rileyhilliard/drbdmon/internal/severity"
)

// NoNodeID is reported by PeerNodeID when the stream did not carry one.
const NoNodeID = -1

// Connection is the replication link of a resource to one peer node.
type Connection struct {
	peer       string
	peerNodeID int
	state      ConnState
	peerRole   Role
	volumes    *index[uint16, *Volume]
	flags      severity.Flags
	// linkWarn is the link's own warn-or-worse state, without the mark
	// inherited from peer volumes.
	linkWarn bool
}

// NewConnection creates a connection to peer.
func NewConnection(peer string) *Connection {
	return &Connection{
		peer:       peer,
		peerNodeID: NoNodeID,
		volumes:    newIndex[uint16, *Volume](),
		flags:      severity.New(),
	}
}

func (c *Connection) Peer() string          { return c.peer }
func (c *Connection) PeerNodeID() int       { return c.peerNodeID }
func (c *Connection) State() ConnState      { return c.state }
func (c *Connection) PeerRole() Role        { return c.peerRole }
func (c *Connection) Level() severity.Level { return c.flags.Level() }

// Volume looks up a peer volume.
func (c *Connection) Volume(number uint16) (*Volume, bool) {
	return c.volumes.get(number)
}

// Volumes returns the peer volumes in volume number order.
func (c *Connection) Volumes() []*Volume {
	return c.volumes.values()
}

// AddVolume inserts a peer volume. An existing entry with the same number
// is left untouched and a duplicate error is returned.
func (c *Connection) AddVolume(v *Volume) error {
	if !c.volumes.insert(v.number, v) {
		return errors.New(errors.ErrDuplicate,
			fmt.Sprintf("Peer volume %d already exists on connection %s", v.number, c.peer), "")
	}
	return nil
}

// RemoveVolume deletes a peer volume.
func (c *Connection) RemoveVolume(number uint16) (*Volume, bool) {
	return c.volumes.remove(number)
}

// Update applies the fields of one stream line.
func (c *Connection) Update(p *events.PropertyMap) error {
	next := *c
	if s, ok := p.Get("peer-node-id"); ok {
		id, err := events.ParseUint8("peer-node-id", s)
		if err != nil {
			return err
		}
		next.peerNodeID = int(id)
	}
	if s, ok := p.Get("connection"); ok {
		st, err := ParseConnState(s)
		if err != nil {
			return err
		}
		next.state = st
	}
	if s, ok := p.First("role", "peer-role"); ok {
		r, err := ParseRole(s)
		if err != nil {
			return err
		}
		next.peerRole = r
	}
	*c = next
	return nil
}

// UpdateStateFlags recomputes the link's own flag.
func (c *Connection) UpdateStateFlags() severity.Level {
	c.flags.Clear()
	switch c.state {
	case ConnUnreported, ConnConnected:
	case ConnConnecting:
		c.flags.SetWarn()
	default:
		c.flags.SetAlert()
	}
	if c.peerRole == RoleUnknown {
		c.flags.SetAlert()
	}
	c.linkWarn = c.flags.HasWarn()
	return c.flags.Level()
}

// ChildStateFlagsChanged recomputes the link's own flag, re-evaluates every
// peer volume against it, and marks the connection if any peer volume has
// a problem.
func (c *Connection) ChildStateFlagsChanged() severity.Level {
	c.UpdateStateFlags()
	c.volumes.each(func(v *Volume) bool {
		if v.UpdateStateFlags(c) != severity.Norm {
			c.flags.SetMark()
		}
		return true
	})
	return c.flags.Level()
}

// Aggregate returns the most severe flag in the connection's subtree.
func (c *Connection) Aggregate() severity.Level {
	agg := c.flags.Level()
	c.volumes.each(func(v *Volume) bool {
		agg = severity.Max(agg, v.Level())
		return true
	})
	return agg
}

func (c *Connection) objectCount() int {
	return 1 + c.volumes.len()
}
