package config

import (
	"testing"
	"time"

	"github.com/rileyhilliard/drbdmon/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		message string
	}{
		{"defaults", func(*Config) {}, ""},
		{"future version", func(c *Config) { c.Version = CurrentConfigVersion + 1 }, "from the future"},
		{"empty events command", func(c *Config) { c.Events.Command = "  " }, "events.command is empty"},
		{"host with path", func(c *Config) { c.Events.Host = "node1/tmp" }, "isn't a valid SSH destination"},
		{"host with space", func(c *Config) { c.Events.Host = "node 1" }, "isn't a valid SSH destination"},
		{"host missing name", func(c *Config) { c.Events.Host = "admin@" }, "missing a user or host name"},
		{"host alias", func(c *Config) { c.Events.Host = "admin@node1:2222" }, ""},
		{"empty drbdadm", func(c *Config) { c.Commands.Drbdadm = "" }, "commands.drbdadm is empty"},
		{"empty drbdsetup", func(c *Config) { c.Commands.Drbdsetup = "" }, "commands.drbdsetup is empty"},
		{"zero queue", func(c *Config) { c.Queue.Capacity = 0 }, "queue.capacity must be at least 1"},
		{"zero log", func(c *Config) { c.Log.Capacity = 0 }, "log.capacity must be at least 1"},
		{"negative delay", func(c *Config) { c.Restart.Delay = -time.Second }, "restart.delay can't be negative"},
		{"zero delay", func(c *Config) { c.Restart.Delay = 0 }, ""},
		{"negative failures", func(c *Config) { c.Restart.MaxFailures = -1 }, "restart.max_failures can't be negative"},
		{"unlimited objects", func(c *Config) { c.Model.MaxObjects = 0 }, ""},
		{"negative objects", func(c *Config) { c.Model.MaxObjects = -1 }, "model.max_objects can't be negative"},
		{"negative refresh", func(c *Config) { c.Display.Refresh = -time.Second }, "display.refresh can't be negative"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(cfg)
			err := Validate(cfg)
			if tt.message == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, errors.IsCode(err, errors.ErrConfig))
			assert.Contains(t, err.Error(), tt.message)
		})
	}
}
