package commands

import (
	"github.com/leapstack-labs/silverline/internal/quality"
	"github.com/spf13/cobra"
)

// NewReportCommand creates the report command.
func NewReportCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "report [run-id]",
		Short: "Show the quality report of a run",
		Long: `Re-render the quality report stored for a run. Without a run ID the most
recent run is used.`,
		Example: `  # Show the latest report
  silverline report

  # Show the report of a specific run as Markdown
  silverline report 2f0c9a4e-... -o markdown`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			runID := ""
			if len(args) > 0 {
				runID = args[0]
			}
			return runReport(cmd, runID)
		},
	}
}

func runReport(cmd *cobra.Command, runID string) error {
	cmdCtx := NewCommandContextWithoutEngine(cmd)

	store, err := openStateStore(cmdCtx.Cfg.StatePath, cmdCtx.Logger)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	if runID == "" {
		latest, err := store.GetLatestRun()
		if err != nil {
			return err
		}
		if latest == nil {
			return errNoHistory
		}
		runID = latest.ID
	} else if _, err := store.GetRun(runID); err != nil {
		return err
	}

	data, err := store.GetReport(runID)
	if err != nil {
		return err
	}
	report, err := quality.ParseJSON(data)
	if err != nil {
		return err
	}

	cmdCtx.Logger.Debug("rendering stored report", "run_id", runID)
	return renderReport(cmdCtx.Renderer, report)
}
