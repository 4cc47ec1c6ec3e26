package silver

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/xitongsys/parquet-go-source/writerfile"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/writer"

	"github.com/leapstack-labs/silverline/pkg/core"
)

type parquetEncoder struct{}

// Encode writes a single SNAPPY-compressed parquet file. Every column is
// OPTIONAL; integer, float and boolean fields get their physical type, the
// rest are UTF8 strings.
func (parquetEncoder) Encode(columns []Column, records []*core.Record) ([]byte, error) {
	buf := &bytes.Buffer{}
	pfw := writerfile.NewWriterFile(buf)

	pw, err := writer.NewJSONWriter(parquetSchema(columns), pfw, 4)
	if err != nil {
		return nil, fmt.Errorf("failed to create parquet writer: %w", err)
	}
	pw.CompressionType = parquet.CompressionCodec_SNAPPY

	for _, rec := range records {
		row := make(map[string]any, len(columns))
		for _, c := range columns {
			row[c.Name] = parquetValue(c.Type, rec.Value(c.Name))
		}
		data, err := json.Marshal(row)
		if err != nil {
			_ = pw.WriteStop()
			return nil, err
		}
		if err := pw.Write(string(data)); err != nil {
			_ = pw.WriteStop()
			return nil, fmt.Errorf("row %d: %w", rec.RowIndex, err)
		}
	}
	if err := pw.WriteStop(); err != nil {
		return nil, fmt.Errorf("failed to finish parquet file: %w", err)
	}
	_ = pfw.Close()
	return buf.Bytes(), nil
}

func parquetSchema(columns []Column) string {
	fields := make([]map[string]string, 0, len(columns))
	for _, c := range columns {
		fields = append(fields, map[string]string{
			"Tag": fmt.Sprintf("name=%s, %s, repetitiontype=OPTIONAL", c.Name, parquetType(c.Type)),
		})
	}
	out := map[string]any{
		"Tag":    "name=parquet_go_root, repetitiontype=REQUIRED",
		"Fields": fields,
	}
	b, _ := json.Marshal(out)
	return string(b)
}

func parquetType(t core.FieldType) string {
	switch t {
	case core.FieldInteger:
		return "type=INT64"
	case core.FieldFloat:
		return "type=DOUBLE"
	case core.FieldBoolean:
		return "type=BOOLEAN"
	default:
		return "type=BYTE_ARRAY, convertedtype=UTF8"
	}
}

// parquetValue converts a value to what the column type accepts. Values that
// do not fit the column become null.
func parquetValue(t core.FieldType, v any) any {
	if v == nil {
		return nil
	}
	switch t {
	case core.FieldInteger:
		switch n := v.(type) {
		case int64:
			return n
		case int:
			return int64(n)
		}
		s, _ := core.FormatValue(v)
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return nil
		}
		return n
	case core.FieldFloat:
		switch n := v.(type) {
		case float64:
			return n
		case int64:
			return float64(n)
		}
		s, _ := core.FormatValue(v)
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil
		}
		return f
	case core.FieldBoolean:
		if b, ok := v.(bool); ok {
			return b
		}
		s, _ := core.FormatValue(v)
		b, err := strconv.ParseBool(s)
		if err != nil {
			return nil
		}
		return b
	default:
		s, _ := core.FormatValue(v)
		return s
	}
}
