package config

import (
	"os"
	"path/filepath"
	"strings"
)

// ExpandTilde resolves a leading "~" to the current user's home directory.
// "~user" forms are left alone, as is the path when $HOME cannot be found.
func ExpandTilde(path string) string {
	rest, ok := strings.CutPrefix(path, "~")
	if !ok || (rest != "" && rest[0] != '/') {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(rest, "/"))
}
