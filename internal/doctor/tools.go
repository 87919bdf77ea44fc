package doctor

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// ToolCheck verifies a local program exists and is executable.
type ToolCheck struct {
	Label   string // e.g. "drbdadm"
	Command string // Program path, optionally followed by arguments
	Setting string // Config key that names the program
}

func (c *ToolCheck) Name() string     { return "tool_" + c.Label }
func (c *ToolCheck) Category() string { return CategoryTools }

func (c *ToolCheck) Run(context.Context) CheckResult {
	fields := strings.Fields(c.Command)
	if len(fields) == 0 {
		return CheckResult{
			Name:       c.Name(),
			Status:     StatusFail,
			Message:    fmt.Sprintf("%s: no command configured", c.Label),
			Suggestion: fmt.Sprintf("Set %s in the config file", c.Setting),
		}
	}

	path, err := exec.LookPath(fields[0])
	if err != nil {
		if info, statErr := os.Stat(fields[0]); statErr == nil && !info.IsDir() {
			return CheckResult{
				Name:       c.Name(),
				Status:     StatusFail,
				Message:    fmt.Sprintf("%s: %s is not executable", c.Label, fields[0]),
				Suggestion: "Fix: chmod +x " + fields[0],
			}
		}
		return CheckResult{
			Name:       c.Name(),
			Status:     StatusFail,
			Message:    fmt.Sprintf("%s: %s not found", c.Label, fields[0]),
			Suggestion: fmt.Sprintf("Install drbd-utils, or point %s at the right program", c.Setting),
		}
	}

	return CheckResult{
		Name:    c.Name(),
		Status:  StatusPass,
		Message: fmt.Sprintf("%s: %s", c.Label, path),
	}
}

func (c *ToolCheck) Fix() error {
	return nil // Installing packages is up to the operator
}
