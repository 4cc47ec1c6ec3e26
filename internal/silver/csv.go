package silver

import (
	"bytes"
	"encoding/csv"

	"github.com/leapstack-labs/silverline/pkg/core"
)

type csvEncoder struct{}

// Encode writes a header row and one row per record. Null is an empty cell.
func (csvEncoder) Encode(columns []Column, records []*core.Record) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	row := make([]string, len(columns))
	for i, c := range columns {
		row[i] = c.Name
	}
	if err := w.Write(row); err != nil {
		return nil, err
	}

	for _, rec := range records {
		for i, c := range columns {
			s, _ := core.FormatValue(rec.Value(c.Name))
			row[i] = s
		}
		if err := w.Write(row); err != nil {
			return nil, err
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
