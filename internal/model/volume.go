package model

import (
	"github.com/rileyhilliard/drbdmon/internal/events"
	"github.com/rileyhilliard/drbdmon/internal/severity"
)

// NoMinor is the minor number of a volume that has not reported one.
const NoMinor int32 = -1

// Volume is one block device of a resource (local) or of a connection's
// peer (peer volume). The same type serves both; peer-only fields stay at
// their zero value on local volumes and vice versa.
type Volume struct {
	number      uint16
	peer        bool
	minor       int32
	disk        DiskState
	replication ReplState
	client      Tristate
	quorum      Tristate
	syncPercent uint16
	flags       severity.Flags
}

// NewVolume creates a local volume.
func NewVolume(number uint16) *Volume {
	return &Volume{number: number, minor: NoMinor, syncPercent: events.PercentMax, flags: severity.New()}
}

// NewPeerVolume creates a peer volume.
func NewPeerVolume(number uint16) *Volume {
	v := NewVolume(number)
	v.peer = true
	return v
}

func (v *Volume) Number() uint16         { return v.number }
func (v *Volume) IsPeer() bool           { return v.peer }
func (v *Volume) Minor() int32           { return v.minor }
func (v *Volume) Disk() DiskState        { return v.disk }
func (v *Volume) Replication() ReplState { return v.replication }
func (v *Volume) Client() Tristate       { return v.client }
func (v *Volume) Quorum() Tristate       { return v.quorum }
func (v *Volume) Level() severity.Level  { return v.flags.Level() }
func (v *Volume) QuorumLost() bool       { return v.quorum == TriNo }

// SyncPercent returns resync progress in hundredths of a percent.
func (v *Volume) SyncPercent() uint16 { return v.syncPercent }

// Update applies the fields of one stream line. Nothing is changed if any
// field fails to decode.
func (v *Volume) Update(p *events.PropertyMap) error {
	next := *v

	if s, ok := p.Get("minor"); ok && !v.peer {
		m, err := events.ParseMinor("minor", s)
		if err != nil {
			return err
		}
		next.minor = m
	}

	diskKeys := []string{"disk"}
	clientKeys := []string{"client"}
	if v.peer {
		diskKeys = []string{"peer-disk", "disk"}
		clientKeys = []string{"peer-client", "client"}
	}
	if s, ok := p.First(diskKeys...); ok {
		d, err := ParseDiskState(s)
		if err != nil {
			return err
		}
		next.disk = d
	}
	if s, ok := p.First(clientKeys...); ok {
		c, err := ParseTristate(s)
		if err != nil {
			return err
		}
		next.client = c
	}
	if s, ok := p.Get("quorum"); ok && !v.peer {
		q, err := ParseTristate(s)
		if err != nil {
			return err
		}
		next.quorum = q
	}
	if s, ok := p.Get("replication"); ok {
		r, err := ParseReplState(s)
		if err != nil {
			return err
		}
		next.replication = r
	}
	if s, ok := p.Get("done"); ok {
		pct, err := events.ParsePercent("done", s)
		if err != nil {
			return err
		}
		next.syncPercent = pct
	}
	if next.replication == ReplEstablished {
		next.syncPercent = events.PercentMax
	}

	*v = next
	return nil
}

// UpdateStateFlags recomputes the volume's flag from its own fields. conn is
// the owning connection of a peer volume and nil for local volumes; problems a
// peer volume shares with a link that is already down are attributed to the
// connection, not repeated on the volume.
func (v *Volume) UpdateStateFlags(conn *Connection) severity.Level {
	v.flags.Clear()
	linkDown := conn != nil && conn.linkWarn

	switch v.disk {
	case DiskUnreported, DiskUpToDate:
	case DiskDiskless:
		if v.client != TriYes {
			v.flags.SetAlert()
		}
	case DiskDUnknown:
		if !v.peer || !linkDown {
			v.flags.SetAlert()
		}
	default:
		v.flags.SetAlert()
	}

	switch {
	case v.replication == ReplUnreported, v.replication == ReplEstablished:
	case v.replication == ReplOff, v.replication == ReplUnknown:
		if v.peer && !linkDown {
			v.flags.SetAlert()
		}
	case v.replication == ReplAhead, v.replication == ReplBehind:
		v.flags.SetAlert()
	case v.replication.Resyncing():
		v.flags.SetWarn()
	}

	if !v.peer && v.QuorumLost() {
		v.flags.SetAlert()
	}
	return v.flags.Level()
}
