package loader

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/leapstack-labs/silverline/pkg/core"
)

type csvReader struct{}

// Read parses a CSV file with a header row. Empty cells are null.
func (csvReader) Read(ctx context.Context, path string, _ ReadOptions) ([]*core.Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	return readCSV(ctx, f)
}

func readCSV(ctx context.Context, r io.Reader) ([]*core.Record, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.ReuseRecord = false

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	for i, h := range header {
		h = strings.TrimSpace(h)
		if i == 0 {
			h = strings.TrimPrefix(h, "\ufeff")
		}
		if h == "" {
			return nil, fmt.Errorf("column %d has an empty header", i+1)
		}
		header[i] = h
	}

	var records []*core.Record
	for row := 0; ; row++ {
		if row%1000 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}

		cells, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", row, err)
		}
		if len(cells) > len(header) {
			return nil, fmt.Errorf("row %d: %d cells for %d columns", row, len(cells), len(header))
		}

		rec := core.NewRecord(row)
		for i, col := range header {
			var v any
			if i < len(cells) && cells[i] != "" {
				v = cells[i]
			}
			rec.Set(col, v)
		}
		records = append(records, rec)
	}

	return records, nil
}
