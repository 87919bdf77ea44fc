package cli

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/rileyhilliard/drbdmon/internal/config"
	"github.com/rileyhilliard/drbdmon/internal/display"
	"github.com/spf13/cobra"
	"golang.org/x/sys/unix"
)

// Global flags
var (
	configFlag  string
	hostFlag    string
	noColorFlag bool
)

// ExitProblems is the status exit code when a resource has a problem.
const ExitProblems = 2

// ExitError ends the process with Code. Execute prints nothing for it;
// the command already reported why.
type ExitError struct {
	Code int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("exit status %d", e.Code)
}

var rootCmd = &cobra.Command{
	Use:   "drbdmon",
	Short: "Monitor and control DRBD resources",
	Long: `drbdmon follows the DRBD status stream and shows every resource, volume
and connection with a severity: NORM, MARK, WARN or ALERT.

Run without a command to open the live dashboard. When stdout is not a
terminal, drbdmon prints state changes as plain lines instead.

Examples:
  drbdmon
  drbdmon --host node1
  drbdmon status
  drbdmon exec connect r0:nodeB`,
	SilenceUsage:  true,
	SilenceErrors: true,
	Args:          cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runMonitor(cmd)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFlag, "config", "", "config file (default ./.drbdmon.yaml or ~/.config/drbdmon/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&hostFlag, "host", "", "read the status stream from this SSH host")
	rootCmd.PersistentFlags().BoolVar(&noColorFlag, "no-color", false, "disable colored output")
	_ = rootCmd.RegisterFlagCompletionFunc("host", completeHosts)
	rootCmd.Flags().BoolVar(&monitorPlain, "plain", false, "print plain lines even on a terminal")
}

// Execute runs the root command and exits the process.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, unix.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	os.Exit(exitCode(err, os.Stderr))
}

// exitCode reports err on w and maps it to a process exit code.
func exitCode(err error, w io.Writer) int {
	if err == nil {
		return 0
	}
	var exitErr *ExitError
	if stderrors.As(err, &exitErr) {
		return exitErr.Code
	}
	msg := err.Error()
	if !strings.HasSuffix(msg, "\n") {
		msg += "\n"
	}
	fmt.Fprint(w, msg)
	return 1
}

// loadConfig loads the config and applies the global flags.
func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadOrDefault(configFlag)
	if err != nil {
		return nil, err
	}
	if hostFlag != "" {
		cfg.Events.Host = hostFlag
		if err := config.Validate(cfg); err != nil {
			return nil, err
		}
	}
	display.SetColor(cfg.Display.Color && !noColorFlag)
	return cfg, nil
}
