package config

import (
	"time"

	"github.com/rileyhilliard/drbdmon/internal/drbdcmd"
	"github.com/rileyhilliard/drbdmon/internal/msglog"
	"github.com/rileyhilliard/drbdmon/internal/source"
	"github.com/rileyhilliard/drbdmon/internal/taskqueue"
	"github.com/rileyhilliard/drbdmon/pkg/sshutil"
)

// CurrentConfigVersion is the schema version for the config file.
// Increment when making breaking changes to the config structure.
const CurrentConfigVersion = 1

// DefaultMaxObjects bounds the number of objects the state model tracks.
const DefaultMaxObjects = 65536

// Config represents the complete .drbdmon.yaml configuration file.
type Config struct {
	Version  int            `yaml:"version" mapstructure:"version"`
	Events   EventsConfig   `yaml:"events" mapstructure:"events"`
	Commands CommandsConfig `yaml:"commands" mapstructure:"commands"`
	Queue    QueueConfig    `yaml:"queue" mapstructure:"queue"`
	Log      LogConfig      `yaml:"log" mapstructure:"log"`
	Restart  RestartConfig  `yaml:"restart" mapstructure:"restart"`
	Model    ModelConfig    `yaml:"model" mapstructure:"model"`
	Display  DisplayConfig  `yaml:"display" mapstructure:"display"`

	// Path is the file the config was read from, empty for defaults.
	Path string `yaml:"-" mapstructure:"-"`
}

// EventsConfig selects the status-stream helper.
type EventsConfig struct {
	// Command is the helper command line.
	Command string `yaml:"command" mapstructure:"command"`

	// Host runs the helper over SSH. Can be: hostname, user@hostname,
	// or SSH config alias. Empty runs it locally.
	Host string `yaml:"host" mapstructure:"host"`

	// StrictHostKeyChecking verifies the remote host key against known_hosts.
	StrictHostKeyChecking bool `yaml:"strict_host_key_checking" mapstructure:"strict_host_key_checking"`
}

// CommandsConfig locates the administrative tools.
type CommandsConfig struct {
	Drbdadm   string `yaml:"drbdadm" mapstructure:"drbdadm"`
	Drbdsetup string `yaml:"drbdsetup" mapstructure:"drbdsetup"`
}

// QueueConfig controls the command task queue.
type QueueConfig struct {
	// Capacity is the maximum number of tracked tasks in any state.
	Capacity int `yaml:"capacity" mapstructure:"capacity"`

	// DiscardFinished drops every task as soon as it finishes.
	DiscardFinished bool `yaml:"discard_finished" mapstructure:"discard_finished"`

	// DiscardSucceeded drops tasks that exit with status 0.
	DiscardSucceeded bool `yaml:"discard_succeeded" mapstructure:"discard_succeeded"`
}

// LogConfig sizes the message log.
type LogConfig struct {
	Capacity int `yaml:"capacity" mapstructure:"capacity"`
}

// RestartConfig controls what happens when a monitoring session fails.
type RestartConfig struct {
	// Delay is the wait before a delayed restart.
	Delay time.Duration `yaml:"delay" mapstructure:"delay"`

	// MaxFailures gives up after this many consecutive failed sessions.
	// 0 retries forever.
	MaxFailures int `yaml:"max_failures" mapstructure:"max_failures"`
}

// ModelConfig bounds the state model.
type ModelConfig struct {
	MaxObjects int `yaml:"max_objects" mapstructure:"max_objects"`
}

// DisplayConfig controls terminal output.
type DisplayConfig struct {
	// Color enables colored output. Piped output is never colored.
	Color bool `yaml:"color" mapstructure:"color"`

	// Refresh is the timer period for redrawing relative times. 0 disables it.
	Refresh time.Duration `yaml:"refresh" mapstructure:"refresh"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Version: CurrentConfigVersion,
		Events: EventsConfig{
			Command:               source.DefaultCommand,
			StrictHostKeyChecking: true,
		},
		Commands: CommandsConfig{
			Drbdadm:   drbdcmd.DefaultDrbdadm,
			Drbdsetup: drbdcmd.DefaultDrbdsetup,
		},
		Queue: QueueConfig{
			Capacity: taskqueue.DefaultCapacity,
		},
		Log: LogConfig{
			Capacity: msglog.DefaultCapacity,
		},
		Restart: RestartConfig{
			Delay: 3 * time.Second,
		},
		Model: ModelConfig{
			MaxObjects: DefaultMaxObjects,
		},
		Display: DisplayConfig{
			Color:   true,
			Refresh: time.Second,
		},
	}
}

// SourceConfig returns the status-stream source settings.
func (c *Config) SourceConfig() source.Config {
	sc := source.DefaultConfig()
	sc.Command = c.Events.Command
	sc.Host = c.Events.Host
	sc.SSH = sshutil.DefaultOptions()
	sc.SSH.StrictHostKeyChecking = c.Events.StrictHostKeyChecking
	return sc
}

// TaskQueueConfig returns the task queue settings.
func (c *Config) TaskQueueConfig() taskqueue.Config {
	return taskqueue.Config{
		Capacity:         c.Queue.Capacity,
		DiscardFinished:  c.Queue.DiscardFinished,
		DiscardSucceeded: c.Queue.DiscardSucceeded,
	}
}

// Catalog returns the administrative command catalog for the configured tools.
func (c *Config) Catalog() *drbdcmd.Catalog {
	return drbdcmd.New(ExpandTilde(c.Commands.Drbdadm), ExpandTilde(c.Commands.Drbdsetup))
}
