package doctor

import (
	"time"

	"github.com/rileyhilliard/drbdmon/internal/config"
)

// Options choose which checks Collect returns.
type Options struct {
	ConfigPath string // --config, or empty to search
	// SkipEvents leaves out starting the events helper.
	SkipEvents    bool
	EventsTimeout time.Duration
}

// Collect returns the checks for cfg. cfg may be nil when the config did
// not load; only the config checks run then.
func Collect(cfg *config.Config, opts Options) []Check {
	checks := []Check{
		&ConfigFileCheck{ConfigPath: opts.ConfigPath, FixPath: config.GlobalPath()},
		&ConfigValidCheck{ConfigPath: opts.ConfigPath},
	}
	if cfg == nil {
		return checks
	}

	catalog := cfg.Catalog()
	checks = append(checks,
		&ToolCheck{Label: "drbdadm", Command: catalog.Drbdadm, Setting: "commands.drbdadm"},
		&ToolCheck{Label: "drbdsetup", Command: catalog.Drbdsetup, Setting: "commands.drbdsetup"},
	)

	src := cfg.SourceConfig()
	if src.Host == "" {
		checks = append(checks, &ToolCheck{Label: "events", Command: src.Command, Setting: "events.command"})
	} else {
		checks = append(checks,
			&SSHAgentCheck{},
			&SSHKeyPermissionsCheck{},
			&HostCheck{Host: src.Host, Options: src.SSH},
		)
	}

	if !opts.SkipEvents {
		checks = append(checks, &EventsCheck{Config: src, Timeout: opts.EventsTimeout})
	}
	return checks
}
