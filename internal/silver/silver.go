// Package silver writes validated records as Silver datasets.
//
// A dataset is written once per source and run, in one of the registered
// formats, through an artifact.Store. Rows are written in row-index order and
// columns in first-seen order, so the same records always produce the same
// bytes.
package silver

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/leapstack-labs/silverline/internal/artifact"
	"github.com/leapstack-labs/silverline/internal/loader"
	"github.com/leapstack-labs/silverline/pkg/core"
)

// Dir is the artifact directory holding Silver datasets.
const Dir = "silver"

// Format is a Silver output format.
type Format string

// Supported formats.
const (
	FormatCSV     Format = "csv"
	FormatJSONL   Format = "jsonl"
	FormatParquet Format = "parquet"
)

// Column is one output column. Type is the declared field type, or
// core.FieldString for undeclared fields.
type Column struct {
	Name string
	Type core.FieldType
}

// Encoder turns a dataset into file content.
type Encoder interface {
	Encode(columns []Column, records []*core.Record) ([]byte, error)
}

var (
	encodersMu sync.RWMutex
	encoders   = make(map[Format]Encoder)
)

// Register adds an encoder for a format. Called from init().
func Register(format Format, enc Encoder) {
	encodersMu.Lock()
	defer encodersMu.Unlock()
	encoders[format] = enc
}

// GetEncoder returns the encoder for a format.
func GetEncoder(format Format) (Encoder, bool) {
	encodersMu.RLock()
	defer encodersMu.RUnlock()
	enc, ok := encoders[format]
	return enc, ok
}

// Formats returns the registered format names, sorted.
func Formats() []string {
	encodersMu.RLock()
	defer encodersMu.RUnlock()
	names := make([]string, 0, len(encoders))
	for f := range encoders {
		names = append(names, string(f))
	}
	sort.Strings(names)
	return names
}

func init() {
	Register(FormatCSV, csvEncoder{})
	Register(FormatJSONL, jsonlEncoder{})
	Register(FormatParquet, parquetEncoder{})
}

// FileName returns the artifact name of a source's dataset.
func FileName(source string, format Format) string {
	return Dir + "/" + source + "." + string(format)
}

// Project prepares records for output. With ExtraIgnore, fields not declared
// in the source's rules are dropped, except the ingestion lineage columns.
// Records are returned sorted by row index; the input is not modified.
func Project(def *core.SourceDefinition, records []*core.Record) []*core.Record {
	out := make([]*core.Record, len(records))
	copy(out, records)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].RowIndex < out[j].RowIndex
	})

	if def.Extra != core.ExtraIgnore || def.Rules.IsNoop() {
		return out
	}

	for i, rec := range out {
		projected := core.NewRecord(rec.RowIndex)
		for _, k := range rec.Keys() {
			if _, declared := def.Rules.Field(k); declared || isLineage(k) {
				projected.Set(k, rec.Value(k))
			}
		}
		out[i] = projected
	}
	return out
}

func isLineage(field string) bool {
	return field == loader.SourceFileColumn || field == loader.LoadedAtColumn
}

// Columns lists the output columns of a dataset. Declared fields come first
// in declaration order, followed by any other field in first-seen order.
// Declared fields missing from every record are still emitted so the schema
// stays stable across runs.
func Columns(def *core.SourceDefinition, records []*core.Record) []Column {
	var cols []Column
	seen := make(map[string]bool)

	for _, f := range def.Rules.Fields() {
		if seen[f.Name] {
			continue
		}
		seen[f.Name] = true
		cols = append(cols, Column{Name: f.Name, Type: f.Type})
	}
	for _, rec := range records {
		for _, k := range rec.Keys() {
			if seen[k] {
				continue
			}
			seen[k] = true
			cols = append(cols, Column{Name: k, Type: core.FieldString})
		}
	}
	return cols
}

// Writer writes Silver datasets to an artifact store.
type Writer struct {
	store  artifact.Store
	format Format
	enc    Encoder
}

// NewWriter creates a writer for one format.
func NewWriter(store artifact.Store, format Format) (*Writer, error) {
	if format == "" {
		format = FormatCSV
	}
	format = Format(strings.ToLower(string(format)))
	enc, ok := GetEncoder(format)
	if !ok {
		return nil, fmt.Errorf("unsupported silver format %q (available: %s)", format, strings.Join(Formats(), ", "))
	}
	return &Writer{store: store, format: format, enc: enc}, nil
}

// Format returns the writer's output format.
func (w *Writer) Format() Format {
	return w.format
}

// Write encodes and stores the dataset of one source and returns the
// artifact name.
func (w *Writer) Write(ctx context.Context, def *core.SourceDefinition, records []*core.Record) (string, error) {
	rows := Project(def, records)
	data, err := w.enc.Encode(Columns(def, rows), rows)
	if err != nil {
		return "", fmt.Errorf("source %s: failed to encode %s: %w", def.Name, w.format, err)
	}

	name := FileName(def.Name, w.format)
	if err := w.store.Put(ctx, name, data); err != nil {
		return "", fmt.Errorf("source %s: %w", def.Name, err)
	}
	return name, nil
}
