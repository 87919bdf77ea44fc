package cli

import (
	"os"
	"strings"

	"github.com/rileyhilliard/drbdmon/internal/drbdcmd"
	"github.com/rileyhilliard/drbdmon/internal/errors"
	"github.com/rileyhilliard/drbdmon/pkg/sshutil"
	"github.com/spf13/cobra"
)

// completionCmd generates shell completion scripts
var completionCmd = &cobra.Command{
	Use:   "completion [bash|zsh|fish|powershell]",
	Short: "Generate shell completion script",
	Long: `Generate shell completion scripts for drbdmon.

Examples:
  # Bash
  drbdmon completion bash > /etc/bash_completion.d/drbdmon

  # Zsh
  drbdmon completion zsh > "${fpath[1]}/_drbdmon"

  # Fish
  drbdmon completion fish > ~/.config/fish/completions/drbdmon.fish`,
	ValidArgs: []string{"bash", "zsh", "fish", "powershell"},
	Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	RunE: func(cmd *cobra.Command, args []string) error {
		root := cmd.Root()
		switch args[0] {
		case "bash":
			return root.GenBashCompletion(os.Stdout)
		case "zsh":
			return root.GenZshCompletion(os.Stdout)
		case "fish":
			return root.GenFishCompletion(os.Stdout, true)
		case "powershell":
			return root.GenPowerShellCompletion(os.Stdout)
		default:
			return errors.New(errors.ErrExec,
				"Unknown shell: "+args[0],
				"Supported shells: bash, zsh, fish, powershell")
		}
	},
}

func init() {
	rootCmd.AddCommand(completionCmd)
	// The default completion command would clash with ours.
	rootCmd.CompletionOptions.DisableDefaultCmd = true
}

// completeHosts offers the aliases from ~/.ssh/config for --host.
func completeHosts(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	entries, err := sshutil.KnownHosts()
	if err != nil {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	return hostCompletions(entries, toComplete), cobra.ShellCompDirectiveNoFileComp
}

func hostCompletions(entries []sshutil.HostEntry, prefix string) []string {
	var out []string
	for _, h := range entries {
		if strings.HasPrefix(h.Alias, prefix) {
			out = append(out, h.Alias+"\t"+h.Description())
		}
	}
	return out
}

// completeActions offers action names for the first exec argument.
func completeActions(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	if len(args) > 0 {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	return actionCompletions(toComplete), cobra.ShellCompDirectiveNoFileComp
}

func actionCompletions(prefix string) []string {
	var out []string
	for _, name := range drbdcmd.Names() {
		if !strings.HasPrefix(name, prefix) {
			continue
		}
		a, _ := drbdcmd.Lookup(name)
		desc := a.Summary
		if a.Destructive {
			desc += " (destructive)"
		}
		out = append(out, name+"\t"+desc)
	}
	return out
}
