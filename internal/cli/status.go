package cli

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/rileyhilliard/drbdmon/internal/config"
	"github.com/rileyhilliard/drbdmon/internal/display"
	"github.com/rileyhilliard/drbdmon/internal/errors"
	"github.com/rileyhilliard/drbdmon/internal/logger"
	"github.com/rileyhilliard/drbdmon/internal/model"
	"github.com/rileyhilliard/drbdmon/internal/msglog"
	"github.com/rileyhilliard/drbdmon/internal/notify"
	"github.com/rileyhilliard/drbdmon/internal/taskqueue"
	"github.com/rileyhilliard/drbdmon/internal/ui"
	"github.com/spf13/cobra"
)

// statusOptions holds options for the status command.
type statusOptions struct {
	Table   bool
	Quiet   bool
	Timeout time.Duration
}

var statusOpts = statusOptions{Timeout: 30 * time.Second}

// statusCmd prints the current state once
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Print the state of every resource and exit",
	Long: `Load the initial state from the status stream, print it, and exit.

The exit status is 0 when every resource and everything below it is
NORM, 2 when anything has a problem, and 1 on errors.

Examples:
  drbdmon status
  drbdmon status --table
  drbdmon status --quiet && echo healthy`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		return statusCommand(cmd.Context(), cfg, statusOpts, cmd.OutOrStdout(), cmd.ErrOrStderr())
	},
}

func init() {
	statusCmd.Flags().BoolVar(&statusOpts.Table, "table", false, "print one row per resource")
	statusCmd.Flags().BoolVarP(&statusOpts.Quiet, "quiet", "q", false, "print nothing, only set the exit status")
	statusCmd.Flags().DurationVar(&statusOpts.Timeout, "timeout", statusOpts.Timeout, "how long to wait for the initial state")
	rootCmd.AddCommand(statusCmd)
}

// statusCommand runs one session that stops after the initial state.
func statusCommand(ctx context.Context, cfg *config.Config, opts statusOptions, out, errOut io.Writer) error {
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	bridge := notify.NewBridge()
	msgs := msglog.New(cfg.Log.Capacity, bridge)
	lg := logger.NewEnvLogger("[drbdmon]")
	loop := &Loop{
		Open:       openSource(cfg, msgs, lg),
		Queue:      taskqueue.New(cfg.TaskQueueConfig(), bridge, lg),
		Bridge:     bridge,
		Log:        msgs,
		Catalog:    cfg.Catalog(),
		Logger:     lg,
		Restart:    config.RestartConfig{MaxFailures: 1},
		MaxObjects: cfg.Model.MaxObjects,
		Once:       true,
	}
	res, err := loop.Run(ctx)

	// Parse warnings and source failures are worth seeing here.
	for _, e := range msgs.Entries() {
		if e.Level != msglog.Info {
			fmt.Fprintln(errOut, e.String())
		}
	}
	if err != nil {
		return err
	}
	if !res.Model.Initialized {
		if stderrors.Is(ctx.Err(), context.DeadlineExceeded) {
			return errors.New(errors.ErrSource,
				fmt.Sprintf("Timed out after %s waiting for the initial state", opts.Timeout),
				"Check that '"+cfg.Events.Command+"' prints state, or raise --timeout")
		}
		return errors.New(errors.ErrSource,
			"Interrupted before the initial state was loaded",
			"Run 'drbdmon status' again")
	}

	if !opts.Quiet {
		if opts.Table {
			fmt.Fprint(out, renderStatusTable(res.Model))
		} else {
			fmt.Fprint(out, renderStatusTree(res.Model))
		}
	}
	if res.Model.Problems > 0 {
		return &ExitError{Code: ExitProblems}
	}
	return nil
}

// renderStatusTree prints the resource hierarchy followed by a summary.
func renderStatusTree(snap model.Snapshot) string {
	if len(snap.Resources) == 0 {
		return "No resources configured\n"
	}
	lines, _ := display.RenderHierarchy(snap, -1)
	var b strings.Builder
	for _, line := range lines {
		b.WriteString(line)
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(statusSummary(snap))
	b.WriteString("\n")
	return b.String()
}

func statusSummary(snap model.Snapshot) string {
	level := snap.Aggregate()
	return fmt.Sprintf("%s %d resources, %d with problems",
		ui.SeveritySymbol(level), len(snap.Resources), snap.Problems)
}

// renderStatusTable prints one row per resource.
func renderStatusTable(snap model.Snapshot) string {
	if len(snap.Resources) == 0 {
		return "No resources configured\n"
	}

	columns := []ui.TableColumn{
		{Title: "Resource"},
		{Title: "Role"},
		{Title: "Severity"},
		{Title: "Volumes"},
		{Title: "Connections"},
	}
	rows := make([][]string, 0, len(snap.Resources))
	for _, r := range snap.Resources {
		conns := make([]string, 0, len(r.Connections))
		for _, c := range r.Connections {
			conns = append(conns, fmt.Sprintf("%s:%s", c.Peer, orDash(c.State.String())))
		}
		rows = append(rows, []string{
			r.Name,
			orDash(r.Role.String()),
			r.Aggregate.String(),
			fmt.Sprintf("%d", len(r.Volumes)),
			orDash(strings.Join(conns, " ")),
		})
	}
	return ui.RenderSimpleTable(columns, rows) + "\n" + statusSummary(snap) + "\n"
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
