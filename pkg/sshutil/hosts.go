package sshutil

import (
	"bytes"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/kevinburke/ssh_config"
)

// HostEntry is a concrete Host block from ssh_config.
type HostEntry struct {
	Alias    string
	Hostname string
	User     string
	Port     string
}

// Description renders the entry for shell completion.
func (h HostEntry) Description() string {
	var parts []string
	if h.Hostname != "" && h.Hostname != h.Alias {
		parts = append(parts, h.Hostname)
	}
	if h.User != "" {
		parts = append(parts, "user: "+h.User)
	}
	if h.Port != "" && h.Port != "22" {
		parts = append(parts, "port: "+h.Port)
	}
	if len(parts) == 0 {
		return h.Alias
	}
	return strings.Join(parts, ", ")
}

// KnownHosts lists the aliases in ~/.ssh/config.
func KnownHosts() ([]HostEntry, error) {
	return ParseConfigFile(filepath.Join(homeDir(), ".ssh", "config"))
}

// ParseConfigFile returns every non-wildcard alias in the ssh_config at
// path, sorted by alias. A missing file yields no entries.
func ParseConfigFile(path string) ([]HostEntry, error) {
	content, _, err := readConfig(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	cfg, err := ssh_config.Decode(bytes.NewReader(content))
	if err != nil {
		return nil, err
	}

	var hosts []HostEntry
	seen := make(map[string]bool)
	for _, host := range cfg.Hosts {
		for _, pattern := range host.Patterns {
			alias := pattern.String()
			if strings.ContainsAny(alias, "*?!") || seen[alias] {
				continue
			}
			seen[alias] = true

			e := HostEntry{Alias: alias}
			e.Hostname, _ = cfg.Get(alias, "HostName")
			e.User, _ = cfg.Get(alias, "User")
			e.Port, _ = cfg.Get(alias, "Port")
			hosts = append(hosts, e)
		}
	}

	sort.Slice(hosts, func(i, j int) bool { return hosts[i].Alias < hosts[j].Alias })
	return hosts, nil
}
