package doctor

import (
	"context"
	"fmt"
	"time"

	"github.com/rileyhilliard/drbdmon/internal/errors"
	"github.com/rileyhilliard/drbdmon/internal/events"
	"github.com/rileyhilliard/drbdmon/internal/source"
)

// DefaultEventsTimeout is how long EventsCheck waits for the first line.
const DefaultEventsTimeout = 10 * time.Second

// EventsCheck starts the events helper and reads until the end of the
// initial state.
type EventsCheck struct {
	Config  source.Config
	Timeout time.Duration
	// Open defaults to source.Open.
	Open func(source.Config) (source.Source, error)
}

func (c *EventsCheck) Name() string     { return "events_stream" }
func (c *EventsCheck) Category() string { return CategoryEvents }

func (c *EventsCheck) Run(ctx context.Context) CheckResult {
	open := c.Open
	if open == nil {
		open = source.Open
	}
	timeout := c.Timeout
	if timeout <= 0 {
		timeout = DefaultEventsTimeout
	}

	src, err := open(c.Config)
	if err != nil {
		return CheckResult{
			Name:       c.Name(),
			Status:     StatusFail,
			Message:    errors.Summary(err),
			Suggestion: errors.SuggestionOf(err),
		}
	}
	defer src.Close()

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	lines, invalid := 0, 0
	for {
		select {
		case <-ctx.Done():
			msg := fmt.Sprintf("No complete initial state within %s (%d lines read)", timeout, lines)
			return CheckResult{
				Name:       c.Name(),
				Status:     StatusFail,
				Message:    msg,
				Suggestion: fmt.Sprintf("Run '%s' by hand and check it prints 'exists -'", c.Config.Command),
			}

		case line, ok := <-src.Lines():
			if !ok {
				err := src.Err()
				if err == nil {
					err = errors.New(errors.ErrSource, "Events helper exited", "")
				}
				return CheckResult{
					Name:       c.Name(),
					Status:     StatusFail,
					Message:    fmt.Sprintf("%s after %d lines", errors.Summary(err), lines),
					Suggestion: fmt.Sprintf("Run '%s' by hand to see why", c.Config.Command),
				}
			}
			lines++
			ev, err := events.Parse(line)
			if err != nil {
				invalid++
				continue
			}
			if !ev.EndOfInitialState {
				continue
			}
			if invalid > 0 {
				return CheckResult{
					Name:       c.Name(),
					Status:     StatusWarn,
					Message:    fmt.Sprintf("Status stream works, but %d of %d lines did not parse", invalid, lines),
					Suggestion: "The DRBD version may be newer than drbdmon understands",
				}
			}
			return CheckResult{
				Name:    c.Name(),
				Status:  StatusPass,
				Message: fmt.Sprintf("Status stream works (%d lines of initial state)", lines),
			}
		}
	}
}

func (c *EventsCheck) Fix() error {
	return nil
}
