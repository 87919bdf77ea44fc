package model

import (
	"fmt"

	"github.com/rileyhilliard/drbdmon/internal/errors"
)

// The zero value of every state type means "not reported yet". Unreported
// fields never raise severity.

// Role is the role of a resource or of a peer.
type Role uint8

const (
	RoleUnreported Role = iota
	RolePrimary
	RoleSecondary
	RoleUnknown
)

var roleLabels = []string{"", "Primary", "Secondary", "Unknown"}

func (r Role) String() string { return label(roleLabels, r) }

// ParseRole decodes a role field.
func ParseRole(s string) (Role, error) { return parseLabel[Role](s, roleLabels, "role") }

// ConnState is the state of a replication link.
type ConnState uint8

const (
	ConnUnreported ConnState = iota
	ConnStandAlone
	ConnDisconnecting
	ConnUnconnected
	ConnTimeout
	ConnBrokenPipe
	ConnNetworkFailure
	ConnProtocolError
	ConnConnecting
	ConnTearDown
	ConnConnected
	ConnUnknown
)

var connLabels = []string{
	"", "StandAlone", "Disconnecting", "Unconnected", "Timeout", "BrokenPipe",
	"NetworkFailure", "ProtocolError", "Connecting", "TearDown", "Connected", "Unknown",
}

func (c ConnState) String() string { return label(connLabels, c) }

// ParseConnState decodes a connection field.
func ParseConnState(s string) (ConnState, error) {
	return parseLabel[ConnState](s, connLabels, "connection state")
}

// DiskState is the state of a local or peer backing device.
type DiskState uint8

const (
	DiskUnreported DiskState = iota
	DiskDiskless
	DiskAttaching
	DiskDetaching
	DiskFailed
	DiskNegotiating
	DiskInconsistent
	DiskOutdated
	DiskDUnknown
	DiskConsistent
	DiskUpToDate
)

var diskLabels = []string{
	"", "Diskless", "Attaching", "Detaching", "Failed", "Negotiating",
	"Inconsistent", "Outdated", "DUnknown", "Consistent", "UpToDate",
}

func (d DiskState) String() string { return label(diskLabels, d) }

// ParseDiskState decodes a disk or peer-disk field.
func ParseDiskState(s string) (DiskState, error) {
	return parseLabel[DiskState](s, diskLabels, "disk state")
}

// ReplState is the replication state of a peer volume.
type ReplState uint8

const (
	ReplUnreported ReplState = iota
	ReplOff
	ReplEstablished
	ReplStartingSyncS
	ReplStartingSyncT
	ReplWFBitMapS
	ReplWFBitMapT
	ReplWFSyncUUID
	ReplSyncSource
	ReplSyncTarget
	ReplPausedSyncS
	ReplPausedSyncT
	ReplVerifyS
	ReplVerifyT
	ReplAhead
	ReplBehind
	ReplUnknown
)

var replLabels = []string{
	"", "Off", "Established", "StartingSyncS", "StartingSyncT", "WFBitMapS", "WFBitMapT",
	"WFSyncUUID", "SyncSource", "SyncTarget", "PausedSyncS", "PausedSyncT", "VerifyS",
	"VerifyT", "Ahead", "Behind", "Unknown",
}

func (r ReplState) String() string { return label(replLabels, r) }

// ParseReplState decodes a replication field.
func ParseReplState(s string) (ReplState, error) {
	return parseLabel[ReplState](s, replLabels, "replication state")
}

// Resyncing reports whether the state is part of a resync or verify run.
func (r ReplState) Resyncing() bool {
	switch r {
	case ReplStartingSyncS, ReplStartingSyncT, ReplWFBitMapS, ReplWFBitMapT, ReplWFSyncUUID,
		ReplSyncSource, ReplSyncTarget, ReplPausedSyncS, ReplPausedSyncT, ReplVerifyS, ReplVerifyT:
		return true
	default:
		return false
	}
}

// Tristate is a yes/no field that may also be reported as unknown.
type Tristate uint8

const (
	TriUnreported Tristate = iota
	TriYes
	TriNo
	TriUnknown
)

var triLabels = []string{"", "yes", "no", "unknown"}

func (t Tristate) String() string { return label(triLabels, t) }

// ParseTristate decodes a client or quorum field.
func ParseTristate(s string) (Tristate, error) {
	return parseLabel[Tristate](s, triLabels, "yes/no value")
}

func label[T ~uint8](labels []string, v T) string {
	if int(v) < len(labels) {
		if l := labels[v]; l != "" {
			return l
		}
		return "-"
	}
	return "?"
}

func parseLabel[T ~uint8](s string, labels []string, what string) (T, error) {
	for i := 1; i < len(labels); i++ {
		if labels[i] == s {
			return T(i), nil
		}
	}
	return 0, errors.New(errors.ErrProtocol, fmt.Sprintf("Invalid %s %q", what, s), "")
}
