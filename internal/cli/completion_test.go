package cli

import (
	"testing"

	"github.com/rileyhilliard/drbdmon/internal/drbdcmd"
	"github.com/rileyhilliard/drbdmon/pkg/sshutil"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
)

func TestHostCompletions(t *testing.T) {
	entries := []sshutil.HostEntry{
		{Alias: "node1", Hostname: "10.0.0.1", User: "root"},
		{Alias: "node2", Hostname: "10.0.0.2"},
		{Alias: "backup"},
	}

	got := hostCompletions(entries, "node")
	assert.Equal(t, []string{
		"node1\t" + entries[0].Description(),
		"node2\t" + entries[1].Description(),
	}, got)

	assert.Len(t, hostCompletions(entries, ""), 3)
	assert.Empty(t, hostCompletions(entries, "x"))
}

func TestActionCompletions(t *testing.T) {
	all := actionCompletions("")
	assert.Len(t, all, len(drbdcmd.Names()))

	got := actionCompletions("inval")
	assert.Equal(t, []string{
		"invalidate\tInvalidate local data (destructive)",
		"invalidate-remote\tInvalidate peer data (destructive)",
	}, got)

	assert.Equal(t, []string{"connect\tConnect", "connect-discard\tDiscard data, connect (destructive)"}, actionCompletions("connect"))
}

func TestCompleteActionsOnlyFirstArgument(t *testing.T) {
	got, directive := completeActions(execCmd, nil, "sta")
	assert.Equal(t, []string{"start\tStart"}, got)
	assert.Equal(t, cobra.ShellCompDirectiveNoFileComp, directive)

	got, _ = completeActions(execCmd, []string{"start"}, "r")
	assert.Empty(t, got)
}
