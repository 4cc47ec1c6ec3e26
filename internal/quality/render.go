package quality

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/leapstack-labs/silverline/pkg/core"
)

// JSON encodes the report with two-space indentation and a trailing newline.
// Map keys are sorted by encoding/json, so equal reports encode identically.
func JSON(r *Report) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(r); err != nil {
		return nil, fmt.Errorf("failed to encode quality report: %w", err)
	}
	return buf.Bytes(), nil
}

// ParseJSON decodes a report produced by JSON.
func ParseJSON(data []byte) (*Report, error) {
	var r Report
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("failed to decode quality report: %w", err)
	}
	return &r, nil
}

// Markdown renders the report as a Markdown document.
func Markdown(r *Report) string {
	var b strings.Builder

	b.WriteString("# Data Quality Report\n\n")
	if r.ReferenceTime != "" {
		fmt.Fprintf(&b, "**Reference time:** %s\n\n", r.ReferenceTime)
	}

	b.WriteString("## Silver Layer (Cleaning & Validation)\n\n")
	b.WriteString(summaryTable(r).RenderMarkdown())
	b.WriteString("\n\n")

	b.WriteString("### Validation Error Breakdown\n\n")
	kinds := sortedKinds(r.ErrorHistogram)
	if len(kinds) == 0 {
		b.WriteString("No validation errors found.\n\n")
	} else {
		t := table.NewWriter()
		t.AppendHeader(table.Row{"Error Type", "Count"})
		for _, k := range kinds {
			t.AppendRow(table.Row{string(k), r.ErrorHistogram[k]})
		}
		b.WriteString(t.RenderMarkdown())
		b.WriteString("\n\n")
	}

	cleaned := table.NewWriter()
	cleaned.AppendHeader(table.Row{"Source", "Fields Cleaned"})
	rows := 0
	for _, s := range r.Sources {
		if len(s.FieldsCleaned) == 0 {
			continue
		}
		cleaned.AppendRow(table.Row{s.Source, strings.Join(sortedFields(s.FieldsCleaned), ", ")})
		rows++
	}
	if rows > 0 {
		b.WriteString("### Cleaning Rules Applied\n\n")
		b.WriteString(cleaned.RenderMarkdown())
		b.WriteString("\n\n")
	}

	if r.Totals.Nullified > 0 {
		b.WriteString("### Nullified Fields\n\n")
		t := table.NewWriter()
		t.AppendHeader(table.Row{"Source", "Field", "Count"})
		for _, s := range r.Sources {
			for _, f := range sortedFields(s.Nullified) {
				t.AppendRow(table.Row{s.Source, f, s.Nullified[f]})
			}
		}
		b.WriteString(t.RenderMarkdown())
		b.WriteString("\n\n")
	}

	if r.Totals.Orphaned > 0 {
		b.WriteString("### Referential Integrity Violations\n\n")
		t := table.NewWriter()
		t.AppendHeader(table.Row{"Source", "Orphaned Records"})
		for _, s := range r.Sources {
			if s.Orphaned > 0 {
				t.AppendRow(table.Row{s.Source, s.Orphaned})
			}
		}
		b.WriteString(t.RenderMarkdown())
		b.WriteString("\n\n")
	}

	if len(r.FailedSources) > 0 {
		b.WriteString("### Failed Sources\n\n")
		for _, s := range r.Sources {
			if s.Failed {
				fmt.Fprintf(&b, "- `%s`: %s\n", s.Source, s.Error)
			}
		}
		b.WriteString("\n")
	}

	if len(r.Breaches) > 0 {
		b.WriteString("### Threshold Breaches\n\n")
		for _, br := range r.Breaches {
			fmt.Fprintf(&b, "- %s\n", br)
		}
		b.WriteString("\n")
	}

	return b.String()
}

// Table writes the per-source summary as a terminal table.
func Table(w io.Writer, r *Report) {
	t := summaryTable(r)
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.Render()

	for _, s := range r.Sources {
		if s.Failed {
			_, _ = fmt.Fprintf(w, "FAILED %s: %s\n", s.Source, s.Error)
		}
	}
	for _, br := range r.Breaches {
		_, _ = fmt.Fprintf(w, "WARNING %s\n", br)
	}
}

func summaryTable(r *Report) table.Writer {
	t := table.NewWriter()
	t.AppendHeader(table.Row{"Source", "Total", "Valid", "Quarantined", "Deduped", "Orphaned", "Nullified", "Pass Rate", "Status"})
	for _, s := range r.Sources {
		status := "ok"
		if s.Failed {
			status = "failed"
		}
		t.AppendRow(table.Row{
			s.Source, s.Total, s.Valid, s.Quarantined, s.Deduplicated, s.Orphaned,
			s.NullifiedTotal(), percent(s.PassRate), status,
		})
	}
	t.AppendFooter(table.Row{
		"Total", r.Totals.Total, r.Totals.Valid, r.Totals.Quarantined, r.Totals.Deduplicated,
		r.Totals.Orphaned, r.Totals.Nullified, percent(r.Totals.PassRate), "",
	})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 2, Align: text.AlignRight},
		{Number: 3, Align: text.AlignRight},
		{Number: 4, Align: text.AlignRight},
		{Number: 5, Align: text.AlignRight},
		{Number: 6, Align: text.AlignRight},
		{Number: 7, Align: text.AlignRight},
		{Number: 8, Align: text.AlignRight},
	})
	return t
}

func percent(f float64) string {
	return fmt.Sprintf("%.1f%%", f*100)
}

// sortedKinds returns kinds with a non-zero count, most frequent first.
func sortedKinds(hist map[core.ErrorKind]int) []core.ErrorKind {
	var kinds []core.ErrorKind
	for k, n := range hist {
		if n > 0 {
			kinds = append(kinds, k)
		}
	}
	sort.Slice(kinds, func(i, j int) bool {
		if hist[kinds[i]] != hist[kinds[j]] {
			return hist[kinds[i]] > hist[kinds[j]]
		}
		return kinds[i] < kinds[j]
	})
	return kinds
}

func sortedFields(m map[string]int) []string {
	fields := make([]string, 0, len(m))
	for f := range m {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	return fields
}
