package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/dustin/go-humanize"
	"github.com/rileyhilliard/drbdmon/internal/config"
	"github.com/rileyhilliard/drbdmon/internal/display"
	"github.com/rileyhilliard/drbdmon/internal/drbdcmd"
	"github.com/rileyhilliard/drbdmon/internal/errors"
	"github.com/rileyhilliard/drbdmon/internal/exec"
	"github.com/rileyhilliard/drbdmon/internal/logger"
	"github.com/rileyhilliard/drbdmon/internal/taskqueue"
	"github.com/rileyhilliard/drbdmon/internal/ui"
	"github.com/spf13/cobra"
)

// execOptions holds options for the exec command.
type execOptions struct {
	Yes     bool
	Spinner bool
}

var execYes bool

// confirmAction asks before running a destructive action. Tests replace it.
var confirmAction = confirmWithForm

// execCmd runs one administrative command
var execCmd = &cobra.Command{
	Use:   "exec ACTION [RESOURCE[:PEER][/VOLUME]]",
	Short: "Run one administrative command",
	Long: `Run a DRBD administrative command through the task queue, print its
output, and exit with its exit status.

Without a target the action applies to all resources. Destructive actions
(stop, force-primary, connect-discard, invalidate, invalidate-remote) ask
for confirmation unless --yes is given.

Examples:
  drbdmon exec start r0
  drbdmon exec connect r0:nodeB
  drbdmon exec verify r0:nodeB/0
  drbdmon exec invalidate r0/0 --yes`,
	Args:              cobra.RangeArgs(1, 2),
	ValidArgsFunction: completeActions,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		opts := execOptions{Yes: execYes, Spinner: display.IsTerminal(os.Stderr)}
		return execCommand(cmd.Context(), cfg, args, opts, cmd.OutOrStdout(), cmd.ErrOrStderr())
	},
}

func init() {
	execCmd.Flags().BoolVarP(&execYes, "yes", "y", false, "run destructive actions without asking")
	rootCmd.AddCommand(execCmd)
}

// execCommand builds the command for args, runs it and copies its output.
func execCommand(ctx context.Context, cfg *config.Config, args []string, opts execOptions, out, errOut io.Writer) error {
	action, ok := drbdcmd.Lookup(args[0])
	if !ok {
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("Unknown action '%s'", args[0]),
			"Available actions: "+strings.Join(drbdcmd.Names(), ", "))
	}
	target := drbdcmd.NewTarget("")
	if len(args) == 2 {
		t, err := drbdcmd.ParseTarget(args[1])
		if err != nil {
			return err
		}
		target = t
	}
	command, err := cfg.Catalog().Build(action.Name, target)
	if err != nil {
		return err
	}

	if action.Destructive && !opts.Yes {
		ok, err := confirmAction(fmt.Sprintf("%s %s?", action.Summary, target))
		if err != nil {
			return err
		}
		if !ok {
			fmt.Fprintln(out, "Cancelled.")
			return nil
		}
	}

	queue := taskqueue.New(cfg.TaskQueueConfig(), nil, logger.NewEnvLogger("[drbdmon]"))
	stopQueue := startQueue(ctx, queue)
	defer stopQueue()

	id, err := queue.Enqueue(command, true)
	if err != nil {
		return err
	}

	var spin *ui.Spinner
	if opts.Spinner {
		spin = ui.NewSpinner(command.Description, errOut)
		spin.Start()
	}

	snap, err := queue.Wait(ctx, id)
	if err != nil {
		if spin != nil {
			spin.Fail("interrupted")
		}
		return errors.WrapWithCode(err, errors.ErrExec,
			"Interrupted while running: "+command.Description,
			"The command was terminated")
	}
	if spin != nil {
		if snap.Success() {
			spin.Success()
		} else {
			spin.Fail(display.TaskResult(snap))
		}
	}

	writeOutput(out, snap.Stdout, snap.StdoutDiscarded)
	writeOutput(errOut, snap.Stderr, snap.StderrDiscarded)

	switch {
	case snap.ExitStatus == exec.ExitStatusFailed:
		return errors.New(errors.ErrSpawn,
			"Could not run "+strings.Join(snap.Argv, " "),
			snap.Error)
	case snap.Success():
		return nil
	}
	if snap.Error != "" {
		fmt.Fprintln(errOut, ui.MutedStyle().Render(snap.Error))
	}
	switch {
	case snap.ExitStatus > 0:
		return &ExitError{Code: snap.ExitStatus}
	default:
		return &ExitError{Code: 1}
	}
}

// writeOutput copies captured output, noting what did not fit.
func writeOutput(w io.Writer, data []byte, discarded int64) {
	if len(data) > 0 {
		_, _ = w.Write(data)
		if data[len(data)-1] != '\n' {
			fmt.Fprintln(w)
		}
	}
	if discarded > 0 {
		fmt.Fprintf(w, "[%s more discarded]\n", humanize.Bytes(uint64(discarded)))
	}
}

// confirmWithForm asks on the terminal. Without one it refuses.
func confirmWithForm(title string) (bool, error) {
	if !display.IsTerminal(os.Stdin) {
		return false, errors.New(errors.ErrConfig,
			"This action is destructive and needs confirmation",
			"Run it from a terminal, or pass --yes")
	}

	var confirmed bool
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(title).
				Description("This can discard data.").
				Affirmative("Run it").
				Negative("Cancel").
				Value(&confirmed),
		),
	)
	if err := form.Run(); err != nil {
		return false, errors.WrapWithCode(err, errors.ErrConfig,
			"Failed to get user input",
			"Pass --yes to skip the confirmation")
	}
	return confirmed, nil
}
