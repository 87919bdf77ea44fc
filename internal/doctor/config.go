package doctor

import (
	"context"
	"fmt"

	"github.com/rileyhilliard/drbdmon/internal/config"
	"github.com/rileyhilliard/drbdmon/internal/errors"
)

// ConfigFileCheck reports which config file applies. Running on defaults
// is fine but worth a warning.
type ConfigFileCheck struct {
	ConfigPath string // Explicit path, or empty to search
	// FixPath is where Fix writes a default config.
	FixPath string
}

func (c *ConfigFileCheck) Name() string     { return "config_file" }
func (c *ConfigFileCheck) Category() string { return CategoryConfig }

func (c *ConfigFileCheck) Run(context.Context) CheckResult {
	path, err := config.Find(c.ConfigPath)
	if err != nil {
		return CheckResult{
			Name:       c.Name(),
			Status:     StatusFail,
			Message:    errors.Summary(err),
			Suggestion: "Check the --config path",
		}
	}
	if path == "" {
		return CheckResult{
			Name:       c.Name(),
			Status:     StatusWarn,
			Message:    "No config file, using defaults",
			Suggestion: "Create one with: drbdmon config init",
			Fixable:    c.FixPath != "",
		}
	}
	return CheckResult{
		Name:    c.Name(),
		Status:  StatusPass,
		Message: fmt.Sprintf("Config file: %s", path),
	}
}

func (c *ConfigFileCheck) Fix() error {
	if c.FixPath == "" {
		return nil
	}
	return config.Write(c.FixPath, config.DefaultConfig(), false)
}

// ConfigValidCheck loads the config the other commands would use.
type ConfigValidCheck struct {
	ConfigPath string
}

func (c *ConfigValidCheck) Name() string     { return "config_valid" }
func (c *ConfigValidCheck) Category() string { return CategoryConfig }

func (c *ConfigValidCheck) Run(context.Context) CheckResult {
	if _, err := config.LoadOrDefault(c.ConfigPath); err != nil {
		return CheckResult{
			Name:       c.Name(),
			Status:     StatusFail,
			Message:    errors.Summary(err),
			Suggestion: errors.SuggestionOf(err),
		}
	}
	return CheckResult{
		Name:    c.Name(),
		Status:  StatusPass,
		Message: "Configuration valid",
	}
}

func (c *ConfigValidCheck) Fix() error {
	return nil // Needs an edit by hand
}
