package display

import (
	"strings"

	"github.com/rileyhilliard/drbdmon/internal/msglog"
)

// renderLog renders message log entries, oldest first.
func renderLog(entries []msglog.Entry) string {
	if len(entries) == 0 {
		return MutedStyle.Render("No messages")
	}
	lines := make([]string, 0, len(entries))
	for _, e := range entries {
		lines = append(lines, renderEntry(e))
	}
	return strings.Join(lines, "\n")
}

func renderEntry(e msglog.Entry) string {
	return MutedStyle.Render(e.Time.UTC().Format(msglog.DateFormat)) + " " +
		LogLevelStyle(e.Level).Render(padRight(e.Level.String(), 5)) + " " +
		e.Text
}

func padRight(s string, n int) string {
	if len(s) >= n {
		return s
	}
	return s + strings.Repeat(" ", n-len(s))
}
