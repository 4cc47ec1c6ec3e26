package adapter

import (
	"strconv"
	"strings"

	"github.com/leapstack-labs/silverline/pkg/core"
)

// Dialect captures the SQL differences between warehouses that matter when
// writing Silver tables.
type Dialect struct {
	Name          string
	DefaultSchema string
	// Types maps field types to column types; unknown types fall back to FieldString
	Types map[core.FieldType]string
	// Numbered placeholders ($1, $2) instead of question marks
	NumberedPlaceholders bool
	// BatchSize is the number of rows per INSERT statement
	BatchSize int
}

// Placeholder returns the bind parameter for the n-th (1-based) argument.
func (d *Dialect) Placeholder(n int) string {
	if d.NumberedPlaceholders {
		return "$" + strconv.Itoa(n)
	}
	return "?"
}

// QuoteIdent quotes an identifier with double quotes.
func (d *Dialect) QuoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// QualifiedName returns schema.table, quoted.
func (d *Dialect) QualifiedName(schema, table string) string {
	if schema == "" {
		schema = d.DefaultSchema
	}
	if schema == "" {
		return d.QuoteIdent(table)
	}
	return d.QuoteIdent(schema) + "." + d.QuoteIdent(table)
}

// ColumnType returns the column type for a field type.
func (d *Dialect) ColumnType(t core.FieldType) string {
	if ct, ok := d.Types[t]; ok {
		return ct
	}
	return d.Types[core.FieldString]
}

func (d *Dialect) batchSize() int {
	if d.BatchSize <= 0 {
		return 500
	}
	return d.BatchSize
}
