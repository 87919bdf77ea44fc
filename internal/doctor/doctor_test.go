package doctor

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rileyhilliard/drbdmon/internal/config"
	"github.com/rileyhilliard/drbdmon/internal/errors"
	"github.com/rileyhilliard/drbdmon/internal/source"
	"github.com/rileyhilliard/drbdmon/pkg/sshutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolate points the config search at empty directories.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "xdg"))
	return dir
}

func TestConfigFileCheck(t *testing.T) {
	t.Run("defaults warn and are fixable", func(t *testing.T) {
		dir := isolate(t)
		fixPath := filepath.Join(dir, "xdg", "drbdmon", "config.yaml")
		c := &ConfigFileCheck{FixPath: fixPath}

		result := c.Run(context.Background())
		assert.Equal(t, StatusWarn, result.Status)
		assert.True(t, result.Fixable)
		assert.Contains(t, result.Suggestion, "drbdmon config init")

		require.NoError(t, c.Fix())
		result = c.Run(context.Background())
		assert.Equal(t, StatusPass, result.Status)
		assert.Contains(t, result.Message, fixPath)
	})

	t.Run("explicit missing file fails", func(t *testing.T) {
		isolate(t)
		c := &ConfigFileCheck{ConfigPath: "/nonexistent/drbdmon.yaml"}
		result := c.Run(context.Background())
		assert.Equal(t, StatusFail, result.Status)
		assert.Contains(t, result.Message, "not found")
	})
}

func TestConfigValidCheck(t *testing.T) {
	dir := isolate(t)

	good := filepath.Join(dir, "good.yaml")
	require.NoError(t, os.WriteFile(good, []byte("events:\n  host: node1\n"), 0644))
	result := (&ConfigValidCheck{ConfigPath: good}).Run(context.Background())
	assert.Equal(t, StatusPass, result.Status)

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("queue:\n  capacity: 0\n"), 0644))
	result = (&ConfigValidCheck{ConfigPath: bad}).Run(context.Background())
	assert.Equal(t, StatusFail, result.Status)
	assert.Contains(t, result.Message, "queue.capacity")
}

func TestToolCheck(t *testing.T) {
	dir := t.TempDir()
	exe := filepath.Join(dir, "drbdadm")
	require.NoError(t, os.WriteFile(exe, []byte("#!/bin/sh\n"), 0755))
	plain := filepath.Join(dir, "drbdsetup")
	require.NoError(t, os.WriteFile(plain, []byte("#!/bin/sh\n"), 0644))

	tests := []struct {
		name    string
		command string
		status  CheckStatus
		message string
	}{
		{"executable", exe, StatusPass, "drbdadm: " + exe},
		{"with arguments", exe + " events2 all", StatusPass, exe},
		{"missing", filepath.Join(dir, "nope"), StatusFail, "not found"},
		{"not executable", plain, StatusFail, "is not executable"},
		{"empty", "  ", StatusFail, "no command configured"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &ToolCheck{Label: "drbdadm", Command: tt.command, Setting: "commands.drbdadm"}
			result := c.Run(context.Background())
			assert.Equal(t, tt.status, result.Status)
			assert.Contains(t, result.Message, tt.message)
		})
	}
}

func TestSSHAgentCheck(t *testing.T) {
	tests := []struct {
		name   string
		keys   func() (int, error)
		status CheckStatus
		want   string
	}{
		{"keys loaded", func() (int, error) { return 2, nil }, StatusPass, "2 keys loaded"},
		{"one key", func() (int, error) { return 1, nil }, StatusPass, "1 key loaded"},
		{"empty agent", func() (int, error) { return 0, nil }, StatusWarn, "no keys loaded"},
		{"no agent", func() (int, error) {
			return 0, errors.New(errors.ErrSSH, "SSH agent not running", "Start one")
		}, StatusWarn, "SSH agent not running"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := (&SSHAgentCheck{Keys: tt.keys}).Run(context.Background())
			assert.Equal(t, tt.status, result.Status)
			assert.Contains(t, result.Message, tt.want)
		})
	}
}

func TestSSHKeyPermissionsCheck(t *testing.T) {
	dir := t.TempDir()
	key := filepath.Join(dir, "id_ed25519")
	require.NoError(t, os.WriteFile(key, []byte("key"), 0644))
	c := &SSHKeyPermissionsCheck{KeyFiles: []string{key, filepath.Join(dir, "id_rsa")}}

	result := c.Run(context.Background())
	assert.Equal(t, StatusWarn, result.Status)
	assert.True(t, result.Fixable)
	assert.Contains(t, result.Message, "id_ed25519")

	require.NoError(t, c.Fix())
	info, err := os.Stat(key)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	result = c.Run(context.Background())
	assert.Equal(t, StatusPass, result.Status)
	assert.Contains(t, result.Message, "1 key")

	none := &SSHKeyPermissionsCheck{KeyFiles: []string{}}
	assert.Equal(t, StatusWarn, none.Run(context.Background()).Status)
}

func TestHostCheck(t *testing.T) {
	ok := &HostCheck{Host: "node1", Dial: func(string, sshutil.Options) (*sshutil.Client, error) {
		return nil, nil
	}}
	result := ok.Run(context.Background())
	assert.Equal(t, StatusPass, result.Status)
	assert.Contains(t, result.Message, "Connected to node1")

	refused := &HostCheck{Host: "node2", Dial: func(host string, _ sshutil.Options) (*sshutil.Client, error) {
		return nil, errors.New(errors.ErrSSH, "Can't reach '"+host+"'", "Check the host is up")
	}}
	result = refused.Run(context.Background())
	assert.Equal(t, StatusFail, result.Status)
	assert.Equal(t, "Can't reach 'node2'", result.Message)
	assert.Equal(t, "Check the host is up", result.Suggestion)
	assert.Equal(t, "host_node2", refused.Name())
}

type lineSource struct {
	ch  chan string
	err error
}

func newLineSource(closed bool, lines ...string) *lineSource {
	s := &lineSource{ch: make(chan string, len(lines))}
	for _, l := range lines {
		s.ch <- l
	}
	if closed {
		close(s.ch)
	}
	return s
}

func (s *lineSource) Lines() <-chan string { return s.ch }
func (s *lineSource) Err() error           { return s.err }
func (s *lineSource) Close() error         { return nil }

func eventsCheck(src source.Source, openErr error) *EventsCheck {
	return &EventsCheck{
		Config:  source.Config{Command: "drbdsetup events2 all"},
		Timeout: 100 * time.Millisecond,
		Open: func(source.Config) (source.Source, error) {
			if openErr != nil {
				return nil, openErr
			}
			return src, nil
		},
	}
}

func TestEventsCheck(t *testing.T) {
	tests := []struct {
		name   string
		src    source.Source
		err    error
		status CheckStatus
		want   string
	}{
		{
			name:   "initial state",
			src:    newLineSource(false, "exists resource name:r0 role:Primary", "exists -"),
			status: StatusPass,
			want:   "2 lines of initial state",
		},
		{
			name:   "unparsable lines",
			src:    newLineSource(false, "explode resource name:r0", "exists -"),
			status: StatusWarn,
			want:   "1 of 2 lines did not parse",
		},
		{
			name:   "helper exits",
			src:    newLineSource(true, "exists resource name:r0 role:Primary"),
			status: StatusFail,
			want:   "Events helper exited after 1 lines",
		},
		{
			name:   "no initial state",
			src:    newLineSource(false, "exists resource name:r0 role:Primary"),
			status: StatusFail,
			want:   "No complete initial state within 100ms",
		},
		{
			name:   "open fails",
			err:    errors.New(errors.ErrSpawn, "Failed to start drbdsetup", ""),
			status: StatusFail,
			want:   "Failed to start drbdsetup",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := eventsCheck(tt.src, tt.err).Run(context.Background())
			assert.Equal(t, tt.status, result.Status)
			assert.Contains(t, result.Message, tt.want)
		})
	}
}

func TestCollect(t *testing.T) {
	names := func(checks []Check) string {
		var out []string
		for _, c := range checks {
			out = append(out, c.Name())
		}
		return strings.Join(out, " ")
	}

	assert.Equal(t, "config_file config_valid", names(Collect(nil, Options{})))

	local := config.DefaultConfig()
	assert.Equal(t, "config_file config_valid tool_drbdadm tool_drbdsetup tool_events events_stream",
		names(Collect(local, Options{})))

	remote := config.DefaultConfig()
	remote.Events.Host = "node1"
	assert.Equal(t, "config_file config_valid tool_drbdadm tool_drbdsetup ssh_agent ssh_key_permissions host_node1",
		names(Collect(remote, Options{SkipEvents: true})))
}
