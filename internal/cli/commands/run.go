package commands

import (
	"fmt"
	"strings"
	"time"

	"github.com/leapstack-labs/silverline/internal/cli/output"
	"github.com/leapstack-labs/silverline/internal/engine"
	"github.com/leapstack-labs/silverline/internal/quality"
	"github.com/spf13/cobra"
)

// RunOptions holds options for the run command.
type RunOptions struct {
	Select     string
	JSONOutput bool
}

// NewRunCommand creates the run command.
func NewRunCommand() *cobra.Command {
	opts := &RunOptions{}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the validation pipeline",
		Long: `Load every raw source, clean, deduplicate and validate it in dependency order,
then write Silver files, quarantine files and the quality report.

Use --select to run specific sources; the sources they reference are run too.
The command exits non-zero when a source fails, and when a source exceeds
max_quarantine_rate while strict_mode is enabled.`,
		Example: `  # Run every source
  silverline run

  # Run specific sources (and what they reference)
  silverline run --select transactions,reviews

  # Pin the reference time for a reproducible run
  silverline run --reference-time 2024-06-30

  # Print the report as JSON for CI/CD integration
  silverline run --json`,
		Aliases: []string{"validate"},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runRun(cmd, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.Select, "select", "s", "", "Comma-separated list of sources to run")
	cmd.Flags().BoolVar(&opts.JSONOutput, "json", false, "Print the quality report as JSON")

	return cmd
}

func runRun(cmd *cobra.Command, opts *RunOptions) error {
	cmdCtx, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	if err := cmdCtx.Cfg.ValidateDirectories(); err != nil {
		return err
	}

	r := cmdCtx.Renderer
	if opts.JSONOutput {
		r = output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), output.ModeJSON)
	}

	start := time.Now()
	result, err := cmdCtx.Engine.Run(cmd.Context(), engine.RunOptions{
		ReferenceTime: cmdCtx.ReferenceTime,
		Sources:       parseSelect(opts.Select),
	})
	if err != nil {
		return fmt.Errorf("run failed: %w", err)
	}

	if err := renderReport(r, result.Report); err != nil {
		return err
	}

	if r.Mode() != output.ModeJSON {
		for _, name := range result.Artifacts {
			r.StatusLine(name, "success", "")
		}
		r.Success(fmt.Sprintf("Processed %d sources in %s", len(result.Order), time.Since(start).Round(time.Millisecond)))
		if result.RunID != "" {
			cmdCtx.Logger.Debug("run recorded", "run_id", result.RunID)
		}
	}

	return runOutcome(result.Report, cmdCtx.Cfg.StrictMode)
}

// runOutcome turns report failures, and breaches in strict mode, into an error.
func runOutcome(report *quality.Report, strict bool) error {
	if report.HasFailures() {
		return fmt.Errorf("failed sources: %s", strings.Join(report.FailedSources, ", "))
	}
	if strict && len(report.Breaches) > 0 {
		msgs := make([]string, 0, len(report.Breaches))
		for _, b := range report.Breaches {
			msgs = append(msgs, b.String())
		}
		return fmt.Errorf("quality threshold exceeded (strict mode): %s", strings.Join(msgs, "; "))
	}
	return nil
}

// renderReport writes a quality report in the renderer's mode.
func renderReport(r *output.Renderer, report *quality.Report) error {
	switch r.Mode() {
	case output.ModeJSON:
		data, err := quality.JSON(report)
		if err != nil {
			return err
		}
		r.Printf("%s", data)
	case output.ModeMarkdown:
		r.Printf("%s", quality.Markdown(report))
	default:
		quality.Table(r.Writer(), report)
	}
	return nil
}

func parseSelect(s string) []string {
	var names []string
	for _, name := range strings.Split(s, ",") {
		if name = strings.TrimSpace(name); name != "" {
			names = append(names, name)
		}
	}
	return names
}
