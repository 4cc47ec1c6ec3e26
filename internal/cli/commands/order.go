package commands

import (
	"fmt"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/leapstack-labs/silverline/internal/cli/output"
	"github.com/leapstack-labs/silverline/internal/registry"
	"github.com/spf13/cobra"
)

// OrderOutput is the JSON output of the order command.
type OrderOutput struct {
	Order        []OrderEntry `json:"order"`
	Levels       [][]string   `json:"levels"`
	Roots        []string     `json:"roots"`
	Leaves       []string     `json:"leaves"`
	Dependencies int          `json:"dependencies"`
}

// OrderEntry describes one source in processing order.
type OrderEntry struct {
	Position     int      `json:"position"`
	Source       string   `json:"source"`
	PrimaryKey   string   `json:"primary_key,omitempty"`
	References   []string `json:"references,omitempty"`
	ReferencedBy []string `json:"referenced_by,omitempty"`
}

// NewOrderCommand creates the order command.
func NewOrderCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "order",
		Short: "Show the source processing order",
		Long: `Display the order in which sources are processed and the dependency levels.

A source is always processed after every source it references. Among sources
that are ready at the same time, the one declared first comes first.

Output adapts to environment:
  - Terminal: table
  - Piped/Scripted: Markdown format`,
		Example: `  # Show the processing order
  silverline order

  # Output as JSON
  silverline order --output-format json`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runOrder(cmd)
		},
	}
}

func runOrder(cmd *cobra.Command) error {
	cmdCtx, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	out, err := buildOrderOutput(cmdCtx.Engine.Registry())
	if err != nil {
		return err
	}

	r := cmdCtx.Renderer
	switch r.Mode() {
	case output.ModeJSON:
		return r.JSON(out)
	case output.ModeMarkdown:
		renderOrderMarkdown(r, out)
	default:
		renderOrderTable(r, out)
	}
	return nil
}

func buildOrderOutput(reg *registry.SourceRegistry) (*OrderOutput, error) {
	defs, err := reg.Order()
	if err != nil {
		return nil, err
	}
	levels, err := reg.Levels()
	if err != nil {
		return nil, err
	}

	out := &OrderOutput{
		Levels:       levels,
		Roots:        reg.Roots(),
		Leaves:       reg.Leaves(),
		Dependencies: reg.EdgeCount(),
	}
	for i, def := range defs {
		out.Order = append(out.Order, OrderEntry{
			Position:     i + 1,
			Source:       def.Name,
			PrimaryKey:   def.PrimaryKey,
			References:   reg.References(def.Name),
			ReferencedBy: reg.ReferencedBy(def.Name),
		})
	}
	return out, nil
}

func renderOrderTable(r *output.Renderer, out *OrderOutput) {
	t := table.NewWriter()
	t.SetOutputMirror(r.Writer())
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"#", "Source", "Primary Key", "References"})
	for _, e := range out.Order {
		t.AppendRow(table.Row{e.Position, e.Source, e.PrimaryKey, strings.Join(e.References, ", ")})
	}
	t.Render()

	for i, level := range out.Levels {
		r.Printf("Level %d: %s\n", i, strings.Join(level, ", "))
	}
	r.Printf("%d sources, %d dependencies\n", len(out.Order), out.Dependencies)
}

func renderOrderMarkdown(r *output.Renderer, out *OrderOutput) {
	r.Println("# Processing Order")
	r.Println("")
	r.Println("| # | Source | Primary Key | References |")
	r.Println("|---|--------|-------------|------------|")
	for _, e := range out.Order {
		r.Printf("| %d | %s | %s | %s |\n", e.Position, e.Source, e.PrimaryKey, strings.Join(e.References, ", "))
	}
	r.Println("")
	r.Println("## Levels")
	r.Println("")
	for i, level := range out.Levels {
		r.Println(fmt.Sprintf("- Level %d: %s", i, strings.Join(level, ", ")))
	}
	r.Println("")
	r.Printf("Roots: %s\n", strings.Join(out.Roots, ", "))
	r.Printf("Leaves: %s\n", strings.Join(out.Leaves, ", "))
}
