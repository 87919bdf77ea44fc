package display

import (
	"fmt"
	"strings"

	"github.com/rileyhilliard/drbdmon/internal/drbdcmd"
	"github.com/rileyhilliard/drbdmon/internal/errors"
	"github.com/rileyhilliard/drbdmon/internal/monitor"
)

// HoldFlag on the action line queues the task suspended.
const HoldFlag = "--hold"

// ParseActionLine turns "ACTION [RESOURCE[:PEER][/VOLUME]] [--hold]" into
// an input item. Without a target the action applies to resource, the one
// selected on the resources page.
func ParseActionLine(line, resource string) (monitor.RunAction, error) {
	var words []string
	hold := false
	for _, w := range strings.Fields(line) {
		if w == HoldFlag {
			hold = true
			continue
		}
		words = append(words, w)
	}

	if len(words) == 0 {
		return monitor.RunAction{}, errors.New(errors.ErrConfig, "No action given",
			"Available actions: "+strings.Join(drbdcmd.Names(), ", "))
	}
	if len(words) > 2 {
		return monitor.RunAction{}, errors.New(errors.ErrConfig,
			fmt.Sprintf("Too many arguments: %s", strings.Join(words[2:], " ")),
			"Use ACTION [RESOURCE[:PEER][/VOLUME]]")
	}
	if _, ok := drbdcmd.Lookup(words[0]); !ok {
		return monitor.RunAction{}, errors.New(errors.ErrConfig,
			fmt.Sprintf("Unknown action '%s'", words[0]),
			"Available actions: "+strings.Join(drbdcmd.Names(), ", "))
	}

	arg := resource
	if len(words) == 2 {
		arg = words[1]
	}
	target, err := drbdcmd.ParseTarget(arg)
	if err != nil {
		return monitor.RunAction{}, err
	}
	return monitor.RunAction{Action: words[0], Target: target, Activate: !hold}, nil
}
