package commands

import (
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/leapstack-labs/silverline/internal/cli/output"
	"github.com/leapstack-labs/silverline/internal/state"
	"github.com/spf13/cobra"
)

// RunsOptions holds options for the runs command.
type RunsOptions struct {
	Limit int
}

// RunEntry is the JSON form of one stored run.
type RunEntry struct {
	ID            string     `json:"id"`
	Status        string     `json:"status"`
	ReferenceTime time.Time  `json:"reference_time"`
	StartedAt     time.Time  `json:"started_at"`
	CompletedAt   *time.Time `json:"completed_at,omitempty"`
	Error         string     `json:"error,omitempty"`
}

// NewRunsCommand creates the runs command.
func NewRunsCommand() *cobra.Command {
	opts := &RunsOptions{}

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List recent pipeline runs",
		Long: `Show the run history recorded in the state database, most recent first.`,
		Example: `  # Show the last 20 runs
  silverline runs

  # Show the last 5 runs as JSON
  silverline runs --limit 5 -o json`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runRuns(cmd, opts)
		},
	}

	cmd.Flags().IntVarP(&opts.Limit, "limit", "n", 20, "Maximum number of runs to show")

	return cmd
}

func runRuns(cmd *cobra.Command, opts *RunsOptions) error {
	cmdCtx := NewCommandContextWithoutEngine(cmd)

	store, err := openStateStore(cmdCtx.Cfg.StatePath, cmdCtx.Logger)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	runs, err := store.ListRuns(opts.Limit)
	if err != nil {
		return err
	}

	entries := make([]RunEntry, 0, len(runs))
	for _, run := range runs {
		entries = append(entries, toRunEntry(run))
	}

	r := cmdCtx.Renderer
	switch r.Mode() {
	case output.ModeJSON:
		return r.JSON(entries)
	case output.ModeMarkdown:
		r.Println("| Run | Status | Reference Time | Started | Duration | Error |")
		r.Println("|-----|--------|----------------|---------|----------|-------|")
		for _, e := range entries {
			r.Printf("| %s | %s | %s | %s | %s | %s |\n", e.ID, e.Status,
				e.ReferenceTime.Format(time.RFC3339), e.StartedAt.Format(time.RFC3339), duration(e), firstLine(e.Error))
		}
	default:
		t := table.NewWriter()
		t.SetOutputMirror(r.Writer())
		t.SetStyle(table.StyleLight)
		t.AppendHeader(table.Row{"Run", "Status", "Reference Time", "Started", "Duration", "Error"})
		for _, e := range entries {
			t.AppendRow(table.Row{e.ID, e.Status, e.ReferenceTime.Format(time.RFC3339),
				e.StartedAt.Local().Format("2006-01-02 15:04:05"), duration(e), firstLine(e.Error)})
		}
		t.Render()
	}
	return nil
}

func toRunEntry(run *state.Run) RunEntry {
	return RunEntry{
		ID:            run.ID,
		Status:        string(run.Status),
		ReferenceTime: run.ReferenceTime,
		StartedAt:     run.StartedAt,
		CompletedAt:   run.CompletedAt,
		Error:         run.Error,
	}
}

func duration(e RunEntry) string {
	if e.CompletedAt == nil {
		return "-"
	}
	return e.CompletedAt.Sub(e.StartedAt).Round(time.Millisecond).String()
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
