package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/rileyhilliard/drbdmon/internal/errors"
	"github.com/spf13/viper"
)

const (
	// ConfigFileName is the per-directory config file name.
	ConfigFileName = ".drbdmon.yaml"
	// GlobalConfigDir is the directory for the user config, below
	// $XDG_CONFIG_HOME or ~/.config.
	GlobalConfigDir = "drbdmon"
	// GlobalConfigFile is the user config file name.
	GlobalConfigFile = "config.yaml"
	// EnvPrefix prefixes environment overrides, e.g. DRBDMON_QUEUE_CAPACITY.
	EnvPrefix = "DRBDMON"
)

// Load reads config from path, applies environment overrides and
// validates the result. An empty path loads the defaults.
func Load(path string) (*Config, error) {
	v := newViper()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			if os.IsNotExist(err) {
				return nil, errors.WrapWithCode(err, errors.ErrConfig,
					"Config file not found",
					"Run 'drbdmon config init' to create a config file, or specify one with --config")
			}
			return nil, errors.WrapWithCode(err, errors.ErrConfig,
				"Failed to read config file",
				"Check the file exists and is valid YAML")
		}
	}

	cfg := DefaultConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrConfig,
			"Invalid config format",
			"Check the YAML syntax in "+displayPath(path))
	}
	cfg.Path = path

	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Find locates the config file using the search order:
// 1. Explicit path (from --config flag)
// 2. .drbdmon.yaml in current directory
// 3. $XDG_CONFIG_HOME/drbdmon/config.yaml, or ~/.config/drbdmon/config.yaml
//
// Returns the path to the config file, or empty string if not found.
func Find(explicit string) (string, error) {
	if explicit != "" {
		explicit = ExpandTilde(explicit)
		if _, err := os.Stat(explicit); err != nil {
			if os.IsNotExist(err) {
				return "", errors.WrapWithCode(err, errors.ErrConfig,
					"Specified config file not found: "+explicit,
					"Check the path is correct")
			}
			return "", errors.WrapWithCode(err, errors.ErrConfig,
				"Cannot access config file: "+explicit,
				"Check file permissions")
		}
		return explicit, nil
	}

	cwd, err := os.Getwd()
	if err != nil {
		return "", errors.WrapWithCode(err, errors.ErrConfig,
			"Cannot determine current directory",
			"Check directory permissions")
	}
	localConfig := filepath.Join(cwd, ConfigFileName)
	if _, err := os.Stat(localConfig); err == nil {
		return localConfig, nil
	}

	if global := GlobalPath(); global != "" {
		if _, err := os.Stat(global); err == nil {
			return global, nil
		}
	}

	return "", nil
}

// LoadOrDefault finds the config file and loads it, or the defaults when
// there is none.
func LoadOrDefault(explicit string) (*Config, error) {
	path, err := Find(explicit)
	if err != nil {
		return nil, err
	}
	return Load(path)
}

// GlobalPath returns where the user config lives, whether or not it exists.
func GlobalPath() string {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, GlobalConfigDir, GlobalConfigFile)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", GlobalConfigDir, GlobalConfigFile)
}

// newViper returns a viper instance with every key defaulted, so that
// environment overrides apply even without a config file.
func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	d := DefaultConfig()
	v.SetDefault("version", d.Version)
	v.SetDefault("events.command", d.Events.Command)
	v.SetDefault("events.host", d.Events.Host)
	v.SetDefault("events.strict_host_key_checking", d.Events.StrictHostKeyChecking)
	v.SetDefault("commands.drbdadm", d.Commands.Drbdadm)
	v.SetDefault("commands.drbdsetup", d.Commands.Drbdsetup)
	v.SetDefault("queue.capacity", d.Queue.Capacity)
	v.SetDefault("queue.discard_finished", d.Queue.DiscardFinished)
	v.SetDefault("queue.discard_succeeded", d.Queue.DiscardSucceeded)
	v.SetDefault("log.capacity", d.Log.Capacity)
	v.SetDefault("restart.delay", d.Restart.Delay.String())
	v.SetDefault("restart.max_failures", d.Restart.MaxFailures)
	v.SetDefault("model.max_objects", d.Model.MaxObjects)
	v.SetDefault("display.color", d.Display.Color)
	v.SetDefault("display.refresh", d.Display.Refresh.String())
	return v
}

func displayPath(path string) string {
	if path == "" {
		return "the environment"
	}
	return path
}
