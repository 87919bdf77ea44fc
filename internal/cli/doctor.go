package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/rileyhilliard/drbdmon/internal/doctor"
	"github.com/rileyhilliard/drbdmon/internal/ui"
	"github.com/spf13/cobra"
)

// doctorOptions holds options for the doctor command.
type doctorOptions struct {
	JSON     bool
	Fix      bool
	NoEvents bool
	Timeout  time.Duration
}

var doctorOpts = doctorOptions{Timeout: doctor.DefaultEventsTimeout}

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check the config, DRBD tools and status stream",
	Long: `Run diagnostic checks on everything drbdmon needs: the config file,
drbdadm and drbdsetup, SSH access when events.host is set, and the status
stream itself.

Exits with status 1 when a check fails.

Examples:
  drbdmon doctor
  drbdmon doctor --host node1
  drbdmon doctor --json`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return doctorCommand(cmd.Context(), doctorOpts, cmd.OutOrStdout())
	},
}

func init() {
	doctorCmd.Flags().BoolVar(&doctorOpts.JSON, "json", false, "output in JSON format")
	doctorCmd.Flags().BoolVar(&doctorOpts.Fix, "fix", false, "attempt automatic fixes where possible")
	doctorCmd.Flags().BoolVar(&doctorOpts.NoEvents, "no-events", false, "don't start the events helper")
	doctorCmd.Flags().DurationVar(&doctorOpts.Timeout, "timeout", doctorOpts.Timeout, "how long to wait for the initial state")
	rootCmd.AddCommand(doctorCmd)
}

// DoctorOutput represents the JSON output for doctor command.
type DoctorOutput struct {
	Categories []CategoryOutput `json:"categories"`
	Summary    SummaryOutput    `json:"summary"`
}

// CategoryOutput represents a category of check results.
type CategoryOutput struct {
	Name    string               `json:"name"`
	Results []doctor.CheckResult `json:"results"`
}

// SummaryOutput summarizes the check results.
type SummaryOutput struct {
	Pass     int  `json:"pass"`
	Warn     int  `json:"warn"`
	Fail     int  `json:"fail"`
	Fixable  int  `json:"fixable"`
	AllClear bool `json:"all_clear"`
}

// doctorCommand implements the doctor command logic.
func doctorCommand(ctx context.Context, opts doctorOptions, out io.Writer) error {
	// A config that doesn't load still gets its checks; the rest need it.
	cfg, _ := loadConfig()
	checks := doctor.Collect(cfg, doctor.Options{
		ConfigPath:    configFlag,
		SkipEvents:    opts.NoEvents,
		EventsTimeout: opts.Timeout,
	})
	return runDoctor(ctx, checks, opts, out)
}

func runDoctor(ctx context.Context, checks []doctor.Check, opts doctorOptions, out io.Writer) error {
	results := doctor.RunAll(ctx, checks)
	if opts.Fix {
		results = doctor.FixAll(ctx, checks, results)
	}

	var err error
	if opts.JSON {
		err = writeDoctorJSON(out, checks, results)
	} else {
		writeDoctorText(out, checks, results, !opts.Fix)
	}
	if err != nil {
		return err
	}
	if doctor.HasFailures(results) {
		return &ExitError{Code: 1}
	}
	return nil
}

// groupResults returns result indices per category, in report order.
func groupResults(checks []doctor.Check) ([]string, map[string][]int) {
	grouped := make(map[string][]int)
	for i, check := range checks {
		grouped[check.Category()] = append(grouped[check.Category()], i)
	}
	var order []string
	for _, cat := range doctor.CategoryOrder {
		if len(grouped[cat]) > 0 {
			order = append(order, cat)
		}
	}
	return order, grouped
}

func writeDoctorJSON(w io.Writer, checks []doctor.Check, results []doctor.CheckResult) error {
	order, grouped := groupResults(checks)
	output := DoctorOutput{Categories: make([]CategoryOutput, 0, len(order))}
	for _, cat := range order {
		co := CategoryOutput{Name: cat}
		for _, i := range grouped[cat] {
			co.Results = append(co.Results, results[i])
		}
		output.Categories = append(output.Categories, co)
	}

	counts := doctor.CountByStatus(results)
	output.Summary = SummaryOutput{
		Pass:     counts[doctor.StatusPass],
		Warn:     counts[doctor.StatusWarn],
		Fail:     counts[doctor.StatusFail],
		Fixable:  doctor.FixableCount(results),
		AllClear: !doctor.HasIssues(results),
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(output)
}

func writeDoctorText(w io.Writer, checks []doctor.Check, results []doctor.CheckResult, hintFix bool) {
	headerStyle := lipgloss.NewStyle().Bold(true)

	fmt.Fprintln(w)
	fmt.Fprintln(w, headerStyle.Render("drbdmon diagnostic report"))
	fmt.Fprintln(w)

	order, grouped := groupResults(checks)
	for _, cat := range order {
		fmt.Fprintln(w, headerStyle.Render(cat))
		for _, i := range grouped[cat] {
			writeCheckResult(w, results[i])
		}
		fmt.Fprintln(w)
	}

	fmt.Fprintln(w, strings.Repeat("━", 60))
	fmt.Fprintln(w)

	if !doctor.HasIssues(results) {
		fmt.Fprintf(w, "%s %s\n", ui.SuccessStyle().Render(ui.SymbolSuccess), doctor.Summary(results))
	} else {
		fmt.Fprintf(w, "%s %s\n", ui.ErrorStyle().Render(ui.SymbolFail), doctor.Summary(results))
		if hintFix && doctor.FixableCount(results) > 0 {
			fmt.Fprintln(w)
			fmt.Fprintf(w, "  Run with %s to attempt automatic fixes where possible.\n",
				ui.MutedStyle().Render("--fix"))
		}
	}
	fmt.Fprintln(w)
}

func writeCheckResult(w io.Writer, result doctor.CheckResult) {
	symbol, style := ui.SymbolComplete, ui.SuccessStyle()
	switch result.Status {
	case doctor.StatusWarn:
		style = ui.WarningStyle()
	case doctor.StatusFail:
		symbol, style = ui.SymbolFail, ui.ErrorStyle()
	}

	fmt.Fprintf(w, "  %s %s\n", style.Render(symbol), result.Message)
	if result.Suggestion != "" && result.Status != doctor.StatusPass {
		for _, line := range strings.Split(result.Suggestion, "\n") {
			fmt.Fprintf(w, "    %s\n", ui.MutedStyle().Render(line))
		}
	}
}
