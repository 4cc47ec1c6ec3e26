package loader

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/writer"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestReadCSV(t *testing.T) {
	input := "\uFEFFvendor_id, vendor_name ,country\nVND-1,Acme,US\nVND-2,,\n\nVND-3,\"Big, Co\",DE\n"

	records, err := readCSV(context.Background(), strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, records, 3)

	assert.Equal(t, []string{"vendor_id", "vendor_name", "country"}, records[0].Keys())
	assert.Equal(t, 0, records[0].RowIndex)
	assert.Equal(t, "Acme", records[0].Value("vendor_name"))

	assert.Nil(t, records[1].Value("vendor_name"))
	assert.True(t, records[1].Has("country"))

	assert.Equal(t, 2, records[2].RowIndex)
	assert.Equal(t, "Big, Co", records[2].Value("vendor_name"))
}

func TestReadCSV_Errors(t *testing.T) {
	_, err := readCSV(context.Background(), strings.NewReader("a,,c\n1,2,3\n"))
	assert.ErrorContains(t, err, "empty header")

	_, err = readCSV(context.Background(), strings.NewReader("a,b\n1,2,3\n"))
	assert.ErrorContains(t, err, "3 cells for 2 columns")

	records, err := readCSV(context.Background(), strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestReadJSON(t *testing.T) {
	doc := `{
  "metadata": {"generated": "2026-01-01"},
  "customers": [
    {"customer_id": "CUS-1", "age": 31, "score": 4.5, "vip": true, "address": {"city": "Oslo", "zip": "0150"}, "tags": ["a", "b"]},
    {"customer_id": "CUS-2", "age": null, "address": {"city": "Rome", "geo": {"lat": 1}}}
  ]
}`

	for _, key := range []string{"customers", ""} {
		t.Run("data_key="+key, func(t *testing.T) {
			records, err := readJSON([]byte(doc), key)
			require.NoError(t, err)
			require.Len(t, records, 2)

			first := records[0]
			assert.Equal(t, []string{"customer_id", "age", "score", "vip", "address_city", "address_zip", "tags"}, first.Keys())
			assert.Equal(t, int64(31), first.Value("age"))
			assert.Equal(t, 4.5, first.Value("score"))
			assert.Equal(t, true, first.Value("vip"))
			assert.Equal(t, "0150", first.Value("address_zip"))
			assert.Equal(t, `["a","b"]`, first.Value("tags"))

			second := records[1]
			assert.Equal(t, 1, second.RowIndex)
			assert.Nil(t, second.Value("age"))
			assert.True(t, second.Has("age"))
			assert.Equal(t, `{"city":"Rome","geo":{"lat":1}}`, second.Value("address"))
		})
	}
}

func TestReadJSON_Shapes(t *testing.T) {
	records, err := readJSON([]byte(`[{"a":1},{"a":2}]`), "")
	require.NoError(t, err)
	assert.Len(t, records, 2)

	records, err = readJSON([]byte(`{"meta": 1}`), "")
	require.NoError(t, err)
	assert.Empty(t, records)

	_, err = readJSON([]byte(`{"rows": 1}`), "rows")
	assert.ErrorContains(t, err, "not an array")

	_, err = readJSON([]byte(`{}`), "rows")
	assert.ErrorContains(t, err, "not found")

	_, err = readJSON([]byte(`[1, 2]`), "")
	assert.ErrorContains(t, err, "record 0 is not an object")

	_, err = readJSON([]byte(`{"rows": [`), "")
	assert.Error(t, err)
}

func TestReadJSONL(t *testing.T) {
	input := `{"call_id": "C1", "duration_seconds": 120}

{"call_id": "C2", "meta": {"agent": "x"}}
`
	records, err := readJSONL(context.Background(), strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, int64(120), records[0].Value("duration_seconds"))
	assert.Equal(t, 1, records[1].RowIndex)
	assert.Equal(t, "x", records[1].Value("meta_agent"))

	_, err = readJSONL(context.Background(), strings.NewReader("{\"a\":1}\n[1]\n"))
	assert.ErrorContains(t, err, "line 2")
}

func TestDetectFormat(t *testing.T) {
	tests := map[string]Format{
		"a.csv":       FormatCSV,
		"a.JSON":      FormatJSON,
		"dir/a.jsonl": FormatJSONL,
		"a.ndjson":    FormatJSONL,
		"a.parquet":   FormatParquet,
	}
	for path, want := range tests {
		got, err := DetectFormat(path)
		require.NoError(t, err)
		assert.Equal(t, want, got, path)
	}
	_, err := DetectFormat("a.xlsx")
	assert.Error(t, err)
}

func TestFileLoader(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "vendors.csv", "vendor_id,vendor_name\nVND-1,Acme\n")
	writeFile(t, dir, "tickets.json", `{"tickets": [{"ticket_id": "T1"}]}`)

	loadedAt := time.Date(2026, 2, 1, 9, 30, 0, 0, time.UTC)
	l := NewFileLoader(Config{
		BaseDir: dir,
		Sources: map[string]SourceFile{
			"vendors":         {Path: "vendors.csv"},
			"support_tickets": {Path: "tickets.json", Format: FormatJSON, DataKey: "tickets"},
			"missing":         {Path: "nope.csv"},
			"weird":           {Path: "vendors.csv", Format: "xml"},
		},
		LoadedAt: loadedAt,
	})

	records, err := l.Load(context.Background(), "vendors")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, []string{"vendor_id", "vendor_name", SourceFileColumn, LoadedAtColumn}, records[0].Keys())
	assert.Equal(t, "vendors.csv", records[0].Value(SourceFileColumn))
	assert.Equal(t, "2026-02-01T09:30:00Z", records[0].Value(LoadedAtColumn))

	records, err = l.Load(context.Background(), "support_tickets")
	require.NoError(t, err)
	assert.Equal(t, "T1", records[0].Value("ticket_id"))

	_, err = l.Load(context.Background(), "missing")
	assert.ErrorContains(t, err, "source file not found")

	_, err = l.Load(context.Background(), "weird")
	assert.ErrorContains(t, err, `unsupported format "xml"`)

	_, err = l.Load(context.Background(), "ghost")
	assert.ErrorContains(t, err, "no input configured")

	assert.True(t, l.Has("vendors"))
	assert.False(t, l.Has("ghost"))
}

func TestFileLoader_NoMetadata(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "v.csv", "id\n1\n")
	l := NewFileLoader(Config{BaseDir: dir, Sources: map[string]SourceFile{"v": {Path: "v.csv"}}})

	records, err := l.Load(context.Background(), "v")
	require.NoError(t, err)
	assert.Equal(t, []string{"id"}, records[0].Keys())
}

func TestParquetReader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "products.parquet")

	fw, err := local.NewLocalFileWriter(path)
	require.NoError(t, err)
	schema := `{"Tag":"name=parquet_go_root, repetitiontype=REQUIRED","Fields":[
		{"Tag":"name=product_id, type=BYTE_ARRAY, convertedtype=UTF8, repetitiontype=OPTIONAL"},
		{"Tag":"name=price, type=DOUBLE, repetitiontype=OPTIONAL"},
		{"Tag":"name=stock, type=INT64, repetitiontype=OPTIONAL"},
		{"Tag":"name=_batch, type=BYTE_ARRAY, convertedtype=UTF8, repetitiontype=OPTIONAL"}
	]}`
	pw, err := writer.NewJSONWriter(schema, fw, 1)
	require.NoError(t, err)
	for _, row := range []map[string]any{
		{"product_id": "PRD-1", "price": 9.5, "stock": 3, "_batch": "b1"},
		{"product_id": "PRD-2", "price": nil, "stock": nil, "_batch": "b1"},
	} {
		data, err := json.Marshal(row)
		require.NoError(t, err)
		require.NoError(t, pw.Write(string(data)))
	}
	require.NoError(t, pw.WriteStop())
	require.NoError(t, fw.Close())

	records, err := parquetReader{}.Read(context.Background(), path, ReadOptions{})
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, []string{"product_id", "price", "stock", "_batch"}, records[0].Keys())
	assert.Equal(t, "PRD-1", records[0].Value("product_id"))
	assert.Equal(t, 9.5, records[0].Value("price"))
	assert.Equal(t, int64(3), records[0].Value("stock"))
	assert.Equal(t, "b1", records[0].Value("_batch"))
	assert.Equal(t, 1, records[1].RowIndex)
	assert.Nil(t, records[1].Value("price"))
}

func TestDecodeArray(t *testing.T) {
	records, err := DecodeArray(`[{"sku": "A-1", "qty": 2, "unit": {"price": 9.99}}, {"sku": "B-2"}]`)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, []string{"sku", "qty", "unit_price"}, records[0].Keys())
	assert.Equal(t, int64(2), records[0].Value("qty"))
	assert.Equal(t, 1, records[1].RowIndex)

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"object", `{"sku": "A"}`, "not a JSON array"},
		{"scalar item", `[1]`, "item 0 is not an object"},
		{"trailing data", `[] []`, "unexpected data"},
		{"broken", `[{"sku": }]`, "invalid character"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeArray(tt.in)
			assert.ErrorContains(t, err, tt.want)
		})
	}
}
