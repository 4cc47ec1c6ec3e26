package loader

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/common"
	"github.com/xitongsys/parquet-go/reader"
	"github.com/xitongsys/parquet-go/schema"

	"github.com/leapstack-labs/silverline/pkg/core"
)

// parquetBatchSize is the number of rows read per call.
const parquetBatchSize = 1000

type parquetReader struct{}

// Read loads every row of a Parquet file using the file's own schema.
// Column order follows the schema.
func (parquetReader) Read(ctx context.Context, path string, _ ReadOptions) ([]*core.Record, error) {
	fr, err := local.NewLocalFileReader(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = fr.Close() }()

	pr, err := reader.NewParquetReader(fr, nil, 4)
	if err != nil {
		return nil, fmt.Errorf("failed to open parquet reader: %w", err)
	}
	defer pr.ReadStop()

	names := columnNames(pr.SchemaHandler)
	total := int(pr.GetNumRows())
	records := make([]*core.Record, 0, total)

	for len(records) < total {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		n := parquetBatchSize
		if remaining := total - len(records); remaining < n {
			n = remaining
		}
		rows, err := pr.ReadByNumber(n)
		if err != nil {
			return nil, fmt.Errorf("failed to read rows: %w", err)
		}
		if len(rows) == 0 {
			break
		}

		for _, row := range rows {
			// rows are generated structs named after the exported field names
			data, err := json.Marshal(row)
			if err != nil {
				return nil, fmt.Errorf("row %d: %w", len(records), err)
			}
			v, err := decodeValue(newDecoder(bytes.NewReader(data)))
			if err != nil {
				return nil, fmt.Errorf("row %d: %w", len(records), err)
			}
			obj, ok := v.(*object)
			if !ok {
				return nil, fmt.Errorf("row %d: not an object", len(records))
			}
			records = append(records, flatten(len(records), renameColumns(obj, nil, names)))
		}
	}

	return records, nil
}

// columnNames maps the in-memory field path of every schema element (root
// excluded) to the column name stored in the file.
func columnNames(sh *schema.SchemaHandler) map[string]string {
	names := make(map[string]string, len(sh.InPathToExPath))
	for in, ex := range sh.InPathToExPath {
		inPath, exPath := common.StrToPath(in), common.StrToPath(ex)
		if len(inPath) < 2 || len(inPath) != len(exPath) {
			continue
		}
		names[common.PathToStr(inPath[1:])] = exPath[len(exPath)-1]
	}
	return names
}

// renameColumns rewrites object keys from field names back to column names,
// descending into nested groups.
func renameColumns(obj *object, prefix []string, names map[string]string) *object {
	out := &object{
		keys:   make([]string, 0, len(obj.keys)),
		values: make(map[string]any, len(obj.keys)),
	}
	for _, k := range obj.keys {
		path := append(append(make([]string, 0, len(prefix)+1), prefix...), k)
		name := k
		if ex, ok := names[common.PathToStr(path)]; ok {
			name = ex
		}
		v := obj.values[k]
		if child, ok := v.(*object); ok {
			v = renameColumns(child, path, names)
		}
		out.keys = append(out.keys, name)
		out.values[name] = v
	}
	return out
}
