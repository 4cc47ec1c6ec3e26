// Package quarantine encodes rejected records and their errors into a stable
// JSON audit file, one per source.
package quarantine

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/leapstack-labs/silverline/internal/artifact"
	"github.com/leapstack-labs/silverline/pkg/core"
)

// Dir is the artifact directory holding quarantine files.
const Dir = "quarantine"

// FileName returns the artifact name of a source's quarantine file.
func FileName(source string) string {
	return Dir + "/" + source + "_quarantine.json"
}

// Build encodes entries sorted by row index as an indented JSON array.
// Record fields keep their original order, so identical input always yields
// identical bytes. An empty input encodes as "[]".
func Build(entries []core.QuarantineEntry) ([]byte, error) {
	sorted := make([]core.QuarantineEntry, len(entries))
	copy(sorted, entries)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].RowIndex < sorted[j].RowIndex
	})

	for i := range sorted {
		if sorted[i].Errors == nil {
			sorted[i].Errors = []core.ValidationError{}
		}
		if sorted[i].Raw == nil {
			sorted[i].Raw = core.NewRecord(sorted[i].RowIndex)
		}
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(sorted); err != nil {
		return nil, fmt.Errorf("failed to encode quarantine: %w", err)
	}
	return buf.Bytes(), nil
}

// Sink writes quarantine files to an artifact store.
type Sink struct {
	store artifact.Store
}

// NewSink creates a sink over store.
func NewSink(store artifact.Store) *Sink {
	return &Sink{store: store}
}

// Write encodes and stores the quarantine of one source and returns the
// artifact name. A source without rejections still gets an empty file.
func (s *Sink) Write(ctx context.Context, source string, entries []core.QuarantineEntry) (string, error) {
	data, err := Build(entries)
	if err != nil {
		return "", fmt.Errorf("source %s: %w", source, err)
	}
	name := FileName(source)
	if err := s.store.Put(ctx, name, data); err != nil {
		return "", fmt.Errorf("source %s: %w", source, err)
	}
	return name, nil
}

// Read loads a quarantine file back into entries.
func (s *Sink) Read(ctx context.Context, source string) ([]Entry, error) {
	data, err := s.store.Get(ctx, FileName(source))
	if err != nil {
		return nil, err
	}
	var entries []Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("failed to decode quarantine for %s: %w", source, err)
	}
	return entries, nil
}

// Entry is a decoded quarantine entry. The raw record is kept as JSON so that
// field order survives.
type Entry struct {
	RowIndex int                    `json:"row_index"`
	Record   json.RawMessage        `json:"record"`
	Errors   []core.ValidationError `json:"errors"`
}
