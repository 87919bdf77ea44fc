package doctor

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rileyhilliard/drbdmon/internal/errors"
	"github.com/rileyhilliard/drbdmon/pkg/sshutil"
)

// SSHAgentCheck reports whether an SSH agent holds keys. Key files work
// without one, so problems are warnings.
type SSHAgentCheck struct {
	// Keys counts the agent's keys. Defaults to sshutil.AgentKeys.
	Keys func() (int, error)
}

func (c *SSHAgentCheck) Name() string     { return "ssh_agent" }
func (c *SSHAgentCheck) Category() string { return CategorySSH }

func (c *SSHAgentCheck) Run(context.Context) CheckResult {
	keys := c.Keys
	if keys == nil {
		keys = sshutil.AgentKeys
	}
	n, err := keys()
	switch {
	case err != nil:
		return CheckResult{
			Name:       c.Name(),
			Status:     StatusWarn,
			Message:    errors.Summary(err),
			Suggestion: errors.SuggestionOf(err),
		}
	case n == 0:
		return CheckResult{
			Name:       c.Name(),
			Status:     StatusWarn,
			Message:    "SSH agent running but no keys loaded",
			Suggestion: "Add a key with: ssh-add",
		}
	}
	return CheckResult{
		Name:    c.Name(),
		Status:  StatusPass,
		Message: fmt.Sprintf("SSH agent running with %d key%s loaded", n, pluralize(n)),
	}
}

func (c *SSHAgentCheck) Fix() error {
	return nil // ssh-add needs the passphrase
}

// SSHKeyPermissionsCheck verifies private keys are not readable by others.
// OpenSSH and sshutil refuse such keys.
type SSHKeyPermissionsCheck struct {
	KeyFiles []string // Defaults to sshutil.DefaultKeyFiles()
}

func (c *SSHKeyPermissionsCheck) Name() string     { return "ssh_key_permissions" }
func (c *SSHKeyPermissionsCheck) Category() string { return CategorySSH }

func (c *SSHKeyPermissionsCheck) files() []string {
	if c.KeyFiles != nil {
		return c.KeyFiles
	}
	return sshutil.DefaultKeyFiles()
}

// insecure returns the existing keys with group or other permissions.
func (c *SSHKeyPermissionsCheck) insecure() (found int, bad []string) {
	for _, path := range c.files() {
		info, err := os.Stat(path)
		if err != nil {
			continue
		}
		found++
		if info.Mode().Perm()&0077 != 0 {
			bad = append(bad, path)
		}
	}
	return found, bad
}

func (c *SSHKeyPermissionsCheck) Run(context.Context) CheckResult {
	found, bad := c.insecure()
	switch {
	case found == 0:
		return CheckResult{
			Name:       c.Name(),
			Status:     StatusWarn,
			Message:    "No SSH key files found",
			Suggestion: "Generate a key with: ssh-keygen -t ed25519",
		}
	case len(bad) > 0:
		names := make([]string, len(bad))
		for i, path := range bad {
			names[i] = filepath.Base(path)
		}
		return CheckResult{
			Name:       c.Name(),
			Status:     StatusWarn,
			Message:    fmt.Sprintf("Insecure permissions on: %v", names),
			Suggestion: "Fix: chmod 600 ~/.ssh/<keyfile>",
			Fixable:    true,
		}
	}
	return CheckResult{
		Name:    c.Name(),
		Status:  StatusPass,
		Message: fmt.Sprintf("SSH key permissions OK (%d key%s)", found, pluralize(found)),
	}
}

func (c *SSHKeyPermissionsCheck) Fix() error {
	_, bad := c.insecure()
	for _, path := range bad {
		if err := os.Chmod(path, 0600); err != nil {
			return errors.WrapWithCode(err, errors.ErrSSH,
				"Failed to fix permissions on "+path, "")
		}
	}
	return nil
}

// HostCheck connects to the node that runs the events helper.
type HostCheck struct {
	Host    string
	Options sshutil.Options
	// Dial defaults to sshutil.Dial.
	Dial func(host string, opts sshutil.Options) (*sshutil.Client, error)
}

func (c *HostCheck) Name() string     { return "host_" + c.Host }
func (c *HostCheck) Category() string { return CategorySSH }

func (c *HostCheck) Run(context.Context) CheckResult {
	dial := c.Dial
	if dial == nil {
		dial = sshutil.Dial
	}

	start := time.Now()
	client, err := dial(c.Host, c.Options)
	if err != nil {
		return CheckResult{
			Name:       c.Name(),
			Status:     StatusFail,
			Message:    errors.Summary(err),
			Suggestion: errors.SuggestionOf(err),
		}
	}
	latency := time.Since(start)
	if client != nil {
		client.Close()
	}

	return CheckResult{
		Name:    c.Name(),
		Status:  StatusPass,
		Message: fmt.Sprintf("Connected to %s (%s)", c.Host, latency.Round(time.Millisecond)),
	}
}

func (c *HostCheck) Fix() error {
	return nil
}
