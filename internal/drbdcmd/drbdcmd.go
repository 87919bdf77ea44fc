// Package drbdcmd builds the administrative command lines the operator can
// queue against resources, connections and volumes.
package drbdcmd

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/rileyhilliard/drbdmon/internal/errors"
	"github.com/rileyhilliard/drbdmon/internal/taskqueue"
)

// Default tool paths.
const (
	DefaultDrbdadm   = "/usr/sbin/drbdadm"
	DefaultDrbdsetup = "/usr/sbin/drbdsetup"
)

// All is the resource argument used when no resource is named.
const All = "all"

// NoVolume marks a target without a volume number.
const NoVolume = -1

// Target addresses a resource, optionally one of its connections and one
// of its volumes: RESOURCE[:PEER][/VOLUME]. The zero value addresses
// volume 0 of all resources; build targets with NewTarget or ParseTarget.
type Target struct {
	Resource string
	Peer     string
	Volume   int
}

// NewTarget addresses a whole resource, or all resources when resource
// is empty.
func NewTarget(resource string) Target {
	return Target{Resource: resource, Volume: NoVolume}
}

// ParseTarget parses RESOURCE[:PEER][/VOLUME]. An empty string addresses
// all resources.
func ParseTarget(s string) (Target, error) {
	t := NewTarget("")
	rest := s

	if slash := strings.LastIndexByte(rest, '/'); slash != -1 {
		n, err := strconv.ParseUint(rest[slash+1:], 10, 16)
		if err != nil {
			return Target{}, errors.New(errors.ErrConfig,
				fmt.Sprintf("Invalid volume number in '%s'", s),
				"Volumes are numbered 0 to 65535, e.g. r0/0")
		}
		t.Volume = int(n)
		rest = rest[:slash]
	}
	if colon := strings.IndexByte(rest, ':'); colon != -1 {
		t.Peer = rest[colon+1:]
		rest = rest[:colon]
		if t.Peer == "" {
			return Target{}, errors.New(errors.ErrConfig,
				fmt.Sprintf("Empty connection name in '%s'", s), "Use RESOURCE:PEER, e.g. r0:nodeB")
		}
	}
	t.Resource = rest
	if t.Resource == "" && (t.Peer != "" || t.Volume != NoVolume) {
		return Target{}, errors.New(errors.ErrConfig,
			fmt.Sprintf("Missing resource name in '%s'", s), "Use RESOURCE[:PEER][/VOLUME], e.g. r0:nodeB/0")
	}
	return t, nil
}

// String renders the target as a drbdadm argument.
func (t Target) String() string {
	var b strings.Builder
	if t.Resource == "" {
		b.WriteString(All)
	} else {
		b.WriteString(t.Resource)
	}
	if t.Peer != "" {
		b.WriteString(":")
		b.WriteString(t.Peer)
	}
	if t.Volume != NoVolume {
		b.WriteString("/")
		b.WriteString(strconv.Itoa(t.Volume))
	}
	return b.String()
}

func (t Target) describe() string {
	var b strings.Builder
	if t.Resource == "" {
		b.WriteString("all resources")
	} else {
		b.WriteString("resource " + t.Resource)
	}
	if t.Peer != "" {
		b.WriteString(", connection " + t.Peer)
	}
	if t.Volume != NoVolume {
		fmt.Fprintf(&b, ", volume %d", t.Volume)
	}
	return b.String()
}

// scope says which target parts an action accepts.
type scope uint8

const (
	peerOK scope = 1 << iota
	volumeOK
	volumeRequired
)

type tool int

const (
	drbdadm tool = iota
	drbdsetup
)

// Action is one entry of the catalog.
type Action struct {
	Name        string
	Summary     string // Description prefix, e.g. "Start"
	Destructive bool   // Requires confirmation
	tool        tool
	args        []string
	scope       scope
}

// AcceptsPeer reports whether the action can be narrowed to a connection.
func (a Action) AcceptsPeer() bool { return a.scope&peerOK != 0 }

// AcceptsVolume reports whether the action can be narrowed to a volume.
func (a Action) AcceptsVolume() bool { return a.scope&(volumeOK|volumeRequired) != 0 }

// RequiresVolume reports whether the action needs a volume number.
func (a Action) RequiresVolume() bool { return a.scope&volumeRequired != 0 }

var actions = map[string]Action{
	"start":             {Name: "start", Summary: "Start", args: []string{"up"}},
	"stop":              {Name: "stop", Summary: "Stop", Destructive: true, tool: drbdsetup, args: []string{"down"}},
	"adjust":            {Name: "adjust", Summary: "Adjust", args: []string{"adjust"}},
	"primary":           {Name: "primary", Summary: "Switch to primary", args: []string{"primary"}},
	"force-primary":     {Name: "force-primary", Summary: "Force switch to primary", Destructive: true, args: []string{"primary", "--force"}},
	"secondary":         {Name: "secondary", Summary: "Switch to secondary", args: []string{"secondary"}},
	"connect":           {Name: "connect", Summary: "Connect", args: []string{"connect"}, scope: peerOK},
	"disconnect":        {Name: "disconnect", Summary: "Disconnect", args: []string{"disconnect"}, scope: peerOK},
	"connect-discard":   {Name: "connect-discard", Summary: "Discard data, connect", Destructive: true, args: []string{"connect", "--discard-my-data"}, scope: peerOK},
	"attach":            {Name: "attach", Summary: "Attach disk", args: []string{"attach"}, scope: volumeRequired},
	"detach":            {Name: "detach", Summary: "Detach disk", args: []string{"detach"}, scope: volumeRequired},
	"verify":            {Name: "verify", Summary: "Start online verification", args: []string{"verify"}, scope: peerOK | volumeOK},
	"pause-sync":        {Name: "pause-sync", Summary: "Pause resync", args: []string{"pause-sync"}, scope: peerOK | volumeOK},
	"resume-sync":       {Name: "resume-sync", Summary: "Resume resync", args: []string{"resume-sync"}, scope: peerOK | volumeOK},
	"resize":            {Name: "resize", Summary: "Resize disk", args: []string{"resize"}, scope: volumeOK},
	"invalidate":        {Name: "invalidate", Summary: "Invalidate local data", Destructive: true, args: []string{"invalidate"}, scope: volumeOK},
	"invalidate-remote": {Name: "invalidate-remote", Summary: "Invalidate peer data", Destructive: true, args: []string{"invalidate-remote"}, scope: peerOK | volumeOK},
}

// Lookup returns the action called name.
func Lookup(name string) (Action, bool) {
	a, ok := actions[name]
	return a, ok
}

// Names returns every action name, sorted.
func Names() []string {
	names := make([]string, 0, len(actions))
	for name := range actions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Catalog turns actions into queueable commands.
type Catalog struct {
	Drbdadm   string
	Drbdsetup string
}

// New returns a catalog using the given tool paths; empty paths use the
// defaults.
func New(drbdadm, drbdsetup string) *Catalog {
	if drbdadm == "" {
		drbdadm = DefaultDrbdadm
	}
	if drbdsetup == "" {
		drbdsetup = DefaultDrbdsetup
	}
	return &Catalog{Drbdadm: drbdadm, Drbdsetup: drbdsetup}
}

// Build returns the command for action against t.
func (c *Catalog) Build(action string, t Target) (taskqueue.Command, error) {
	a, ok := actions[action]
	if !ok {
		return taskqueue.Command{}, errors.New(errors.ErrConfig,
			fmt.Sprintf("Unknown action '%s'", action),
			"Available actions: "+strings.Join(Names(), ", "))
	}
	if t.Peer != "" && !a.AcceptsPeer() {
		return taskqueue.Command{}, errors.New(errors.ErrConfig,
			fmt.Sprintf("'%s' applies to whole resources, not connections", action), "")
	}
	if t.Volume != NoVolume && !a.AcceptsVolume() {
		return taskqueue.Command{}, errors.New(errors.ErrConfig,
			fmt.Sprintf("'%s' does not take a volume number", action), "")
	}
	if t.Volume == NoVolume && a.RequiresVolume() {
		return taskqueue.Command{}, errors.New(errors.ErrConfig,
			fmt.Sprintf("'%s' needs a volume: RESOURCE/VOLUME", action), "")
	}

	program := c.Drbdadm
	if a.tool == drbdsetup {
		program = c.Drbdsetup
	}
	argv := make([]string, 0, len(a.args)+2)
	argv = append(argv, program)
	argv = append(argv, a.args...)
	argv = append(argv, t.String())

	return taskqueue.Command{
		Description: a.Summary + ", " + t.describe(),
		Argv:        argv,
	}, nil
}
