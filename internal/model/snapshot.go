package model

import "github.com/rileyhilliard/drbdmon/internal/severity"

// Snapshot is an immutable copy of the model for readers on other
// goroutines, like the display.
type Snapshot struct {
	Resources   []ResourceView
	Initialized bool
	Problems    int
}

// ResourceView is the copied state of one resource.
type ResourceView struct {
	Name        string
	Role        Role
	Level       severity.Level
	Aggregate   severity.Level
	RoleAlert   bool
	QuorumAlert bool
	Volumes     []VolumeView
	Connections []ConnectionView
}

// ConnectionView is the copied state of one connection.
type ConnectionView struct {
	Peer       string
	PeerNodeID int
	State      ConnState
	PeerRole   Role
	Level      severity.Level
	Aggregate  severity.Level
	Volumes    []VolumeView
}

// VolumeView is the copied state of one local or peer volume.
type VolumeView struct {
	Number      uint16
	Minor       int32
	Disk        DiskState
	Replication ReplState
	Client      Tristate
	Quorum      Tristate
	SyncPercent uint16
	Level       severity.Level
}

// Snapshot copies the model.
func (m *Model) Snapshot() Snapshot {
	snap := Snapshot{
		Resources:   make([]ResourceView, 0, m.resources.len()),
		Initialized: m.initialized,
		Problems:    m.ProblemCount(),
	}
	m.resources.each(func(r *Resource) bool {
		snap.Resources = append(snap.Resources, r.view())
		return true
	})
	return snap
}

// Aggregate is the worst severity of any resource.
func (s Snapshot) Aggregate() severity.Level {
	agg := severity.Norm
	for _, r := range s.Resources {
		agg = severity.Max(agg, r.Aggregate)
	}
	return agg
}

// Resource finds a resource view by name.
func (s Snapshot) Resource(name string) (ResourceView, bool) {
	for _, r := range s.Resources {
		if r.Name == name {
			return r, true
		}
	}
	return ResourceView{}, false
}

func (r *Resource) view() ResourceView {
	rv := ResourceView{
		Name:        r.name,
		Role:        r.role,
		Level:       r.flags.Level(),
		Aggregate:   r.Aggregate(),
		RoleAlert:   r.roleAlert,
		QuorumAlert: r.quorumAlert,
		Volumes:     volumeViews(r.volumes),
	}
	r.connections.each(func(c *Connection) bool {
		rv.Connections = append(rv.Connections, ConnectionView{
			Peer:       c.peer,
			PeerNodeID: c.peerNodeID,
			State:      c.state,
			PeerRole:   c.peerRole,
			Level:      c.flags.Level(),
			Aggregate:  c.Aggregate(),
			Volumes:    volumeViews(c.volumes),
		})
		return true
	})
	return rv
}

func volumeViews(ix *index[uint16, *Volume]) []VolumeView {
	out := make([]VolumeView, 0, ix.len())
	ix.each(func(v *Volume) bool {
		out = append(out, VolumeView{
			Number:      v.number,
			Minor:       v.minor,
			Disk:        v.disk,
			Replication: v.replication,
			Client:      v.client,
			Quorum:      v.quorum,
			SyncPercent: v.syncPercent,
			Level:       v.flags.Level(),
		})
		return true
	})
	return out
}
