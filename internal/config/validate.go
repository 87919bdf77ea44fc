package config

import (
	"fmt"
	"strings"

	"github.com/rileyhilliard/drbdmon/internal/errors"
)

// Validate checks the config for errors and returns structured error messages.
func Validate(cfg *Config) error {
	if cfg.Version > CurrentConfigVersion {
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("This config is from the future (version %d, but drbdmon only knows up to %d)", cfg.Version, CurrentConfigVersion),
			"Upgrade drbdmon, or regenerate the file with 'drbdmon config init --force'.")
	}

	if strings.TrimSpace(cfg.Events.Command) == "" {
		return errors.New(errors.ErrConfig,
			"events.command is empty",
			"Set it to the status helper, e.g. '/usr/sbin/drbdsetup events2 all'.")
	}
	if err := validateHost(cfg.Events.Host); err != nil {
		return err
	}

	for field, path := range map[string]string{
		"commands.drbdadm":   cfg.Commands.Drbdadm,
		"commands.drbdsetup": cfg.Commands.Drbdsetup,
	} {
		if strings.TrimSpace(path) == "" {
			return errors.New(errors.ErrConfig,
				field+" is empty",
				"Point it at the tool, or remove the key to use the default.")
		}
	}

	if cfg.Queue.Capacity < 1 {
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("queue.capacity must be at least 1, got %d", cfg.Queue.Capacity),
			"Remove the key to use the default of 1024.")
	}
	if cfg.Log.Capacity < 1 {
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("log.capacity must be at least 1, got %d", cfg.Log.Capacity),
			"Remove the key to use the default of 100.")
	}
	if cfg.Restart.Delay < 0 {
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("restart.delay can't be negative, got %s", cfg.Restart.Delay),
			"Use a duration like '3s'.")
	}
	if cfg.Restart.MaxFailures < 0 {
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("restart.max_failures can't be negative, got %d", cfg.Restart.MaxFailures),
			"Use 0 to retry forever.")
	}
	if cfg.Model.MaxObjects < 0 {
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("model.max_objects can't be negative, got %d", cfg.Model.MaxObjects),
			"Use 0 for no limit.")
	}
	if cfg.Display.Refresh < 0 {
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("display.refresh can't be negative, got %s", cfg.Display.Refresh),
			"Use 0 to disable the refresh timer.")
	}

	return nil
}

// validateHost checks that the events host looks like an SSH destination.
func validateHost(host string) error {
	if host == "" {
		return nil
	}
	if strings.ContainsAny(host, " \t/") {
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("events.host '%s' isn't a valid SSH destination", host),
			"Use hostname, user@hostname, hostname:port or an SSH config alias.")
	}
	if strings.HasPrefix(host, "@") || strings.HasSuffix(host, "@") {
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("events.host '%s' is missing a user or host name", host),
			"Use user@hostname.")
	}
	return nil
}
