package commands

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/leapstack-labs/silverline/internal/artifact"
	"github.com/leapstack-labs/silverline/internal/cli/output"
	"github.com/leapstack-labs/silverline/internal/quarantine"
)

// NewQuarantineCommand creates the quarantine command.
func NewQuarantineCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "quarantine <source>",
		Short: "Show the quarantined records of a source",
		Long: `Read back the quarantine file written by the last run for a source and list
each rejected row with its errors.`,
		Example: `  # List rejected transactions
  silverline quarantine transactions

  # Output the raw entries as JSON
  silverline quarantine transactions -o json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuarantine(cmd, args[0])
		},
	}
}

func runQuarantine(cmd *cobra.Command, source string) error {
	cmdCtx := NewCommandContextWithoutEngine(cmd)

	store, err := artifact.Open(cmd.Context(), cmdCtx.Cfg.Output)
	if err != nil {
		return fmt.Errorf("failed to open output store: %w", err)
	}

	entries, err := quarantine.NewSink(store).Read(cmd.Context(), source)
	if errors.Is(err, artifact.ErrNotFound) {
		return fmt.Errorf("no quarantine file for source %q; run the pipeline first", source)
	}
	if err != nil {
		return err
	}

	cmdCtx.Logger.Debug("read quarantine", "source", source, "entries", len(entries),
		"location", store.Location(quarantine.FileName(source)))

	r := cmdCtx.Renderer
	switch r.Mode() {
	case output.ModeJSON:
		return r.JSON(entries)
	case output.ModeMarkdown:
		renderQuarantineMarkdown(r, source, entries)
	default:
		renderQuarantineTable(r, source, entries)
	}
	return nil
}

func describeErrors(entry quarantine.Entry) string {
	parts := make([]string, len(entry.Errors))
	for i, e := range entry.Errors {
		parts[i] = fmt.Sprintf("%s (%s): %s", e.Field, e.Kind, e.Message)
	}
	return strings.Join(parts, "; ")
}

func renderQuarantineTable(r *output.Renderer, source string, entries []quarantine.Entry) {
	if len(entries) == 0 {
		r.Success(fmt.Sprintf("No quarantined records for %s", source))
		return
	}
	t := table.NewWriter()
	t.SetOutputMirror(r.Writer())
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Row", "Errors"})
	for _, e := range entries {
		t.AppendRow(table.Row{e.RowIndex, describeErrors(e)})
	}
	t.Render()
	r.Printf("%d quarantined records\n", len(entries))
}

func renderQuarantineMarkdown(r *output.Renderer, source string, entries []quarantine.Entry) {
	r.Printf("# Quarantine: %s\n", source)
	r.Println("")
	if len(entries) == 0 {
		r.Println("No quarantined records.")
		return
	}
	r.Println("| Row | Record | Errors |")
	r.Println("|-----|--------|--------|")
	for _, e := range entries {
		var record bytes.Buffer
		if err := json.Compact(&record, e.Record); err != nil {
			record.Write(e.Record)
		}
		r.Printf("| %d | `%s` | %s |\n", e.RowIndex, record.String(), describeErrors(e))
	}
}
