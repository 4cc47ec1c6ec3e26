package silver

import (
	"bytes"

	"github.com/leapstack-labs/silverline/pkg/core"
)

type jsonlEncoder struct{}

// Encode writes one JSON object per line with keys in column order. Every
// column is present; absent fields are null.
func (jsonlEncoder) Encode(columns []Column, records []*core.Record) ([]byte, error) {
	var buf bytes.Buffer
	for _, rec := range records {
		line := core.NewRecord(rec.RowIndex)
		for _, c := range columns {
			line.Set(c.Name, rec.Value(c.Name))
		}
		data, err := line.MarshalJSON()
		if err != nil {
			return nil, err
		}
		buf.Write(data)
		buf.WriteByte('\n')
	}
	return buf.Bytes(), nil
}
