package exec

import (
	"fmt"
	"regexp"

	"github.com/rileyhilliard/drbdmon/internal/errors"
)

// commandNotFoundPatterns extract the missing program from the stderr of a
// wrapper script that failed with exit code 127.
var commandNotFoundPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)sh: \d+: (\S+): not found`),
	regexp.MustCompile(`(?i)/bin/sh: (\S+): not found`),
	regexp.MustCompile(`(?i)sh: (\S+): not found`),
	regexp.MustCompile(`(?i)env: (\S+): No such file or directory`),
	regexp.MustCompile(`(?i)(\S+): command not found`),
}

// IsCommandNotFound checks if the output of a finished command indicates a
// missing program. Returns the program name, if it could be extracted.
func IsCommandNotFound(stderr string, exitCode int) (string, bool) {
	if exitCode != 127 {
		return "", false
	}
	for _, pattern := range commandNotFoundPatterns {
		if matches := pattern.FindStringSubmatch(stderr); len(matches) > 1 {
			return matches[1], true
		}
	}
	return "", true
}

// Diagnose explains a finished process with a failing status, or returns
// nil when it succeeded.
func Diagnose(p *Process) error {
	status := p.ExitStatus()
	switch {
	case status == 0 || status == ExitStatusNone:
		return nil
	case status == ExitStatusFailed:
		return errors.New(errors.ErrSpawn,
			fmt.Sprintf("'%s' could not be started", p.CommandLine()),
			"Check the commands section of the configuration.")
	}

	if name, ok := IsCommandNotFound(string(p.Stderr()), status); ok {
		if name == "" && len(p.argv) > 0 {
			name = p.argv[0]
		}
		return errors.New(errors.ErrExec,
			fmt.Sprintf("'%s' not found", name),
			"Install drbd-utils or point commands.drbdadm at the right binary.")
	}
	if status > 128 {
		return errors.New(errors.ErrExec,
			fmt.Sprintf("'%s' was terminated by signal %d", p.CommandLine(), status-128), "")
	}
	return errors.New(errors.ErrExec,
		fmt.Sprintf("'%s' failed with exit code %d", p.CommandLine(), status), "")
}
