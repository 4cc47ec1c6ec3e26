package loader

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/leapstack-labs/silverline/pkg/core"
)

type jsonReader struct{}

// Read parses a JSON document. Records come from the array under DataKey,
// the document itself when it is an array, or otherwise the first array
// value of the top-level object.
func (jsonReader) Read(_ context.Context, path string, opts ReadOptions) ([]*core.Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return readJSON(data, opts.DataKey)
}

func readJSON(data []byte, dataKey string) ([]*core.Record, error) {
	dec := newDecoder(bytes.NewReader(data))
	doc, err := decodeValue(dec)
	if err != nil {
		return nil, err
	}

	var items []any
	switch v := doc.(type) {
	case []any:
		if dataKey != "" {
			return nil, fmt.Errorf("data_key %q given but document is an array", dataKey)
		}
		items = v
	case *object:
		if dataKey != "" {
			raw, ok := v.get(dataKey)
			if !ok {
				return nil, fmt.Errorf("data_key %q not found", dataKey)
			}
			arr, ok := raw.([]any)
			if !ok {
				return nil, fmt.Errorf("data_key %q is not an array", dataKey)
			}
			items = arr
			break
		}
		for _, k := range v.keys {
			if arr, ok := v.values[k].([]any); ok {
				items = arr
				break
			}
		}
	default:
		return nil, errors.New("document is neither an array nor an object")
	}

	records := make([]*core.Record, 0, len(items))
	for i, item := range items {
		obj, ok := item.(*object)
		if !ok {
			return nil, fmt.Errorf("record %d is not an object", i)
		}
		records = append(records, flatten(i, obj))
	}
	return records, nil
}

// DecodeArray parses a JSON array of objects held in a field value into
// records, flattening nested objects the way input files are read. Row
// indexes are the positions in the array.
func DecodeArray(text string) ([]*core.Record, error) {
	dec := newDecoder(strings.NewReader(text))
	doc, err := decodeValue(dec)
	if err != nil {
		return nil, err
	}
	if dec.More() {
		return nil, errors.New("unexpected data after array")
	}
	items, ok := doc.([]any)
	if !ok {
		return nil, errors.New("value is not a JSON array")
	}

	records := make([]*core.Record, 0, len(items))
	for i, item := range items {
		obj, ok := item.(*object)
		if !ok {
			return nil, fmt.Errorf("item %d is not an object", i)
		}
		records = append(records, flatten(i, obj))
	}
	return records, nil
}

type jsonlReader struct{}

// Read parses one JSON object per line. Blank lines are skipped and do not
// consume a row index.
func (jsonlReader) Read(ctx context.Context, path string, _ ReadOptions) ([]*core.Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	return readJSONL(ctx, f)
}

func readJSONL(ctx context.Context, r io.Reader) ([]*core.Record, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 16*1024*1024)

	var records []*core.Record
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		if len(records)%1000 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}

		v, err := decodeValue(newDecoder(strings.NewReader(text)))
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		obj, ok := v.(*object)
		if !ok {
			return nil, fmt.Errorf("line %d: not an object", line)
		}
		records = append(records, flatten(len(records), obj))
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return records, nil
}

// flatten turns a decoded object into a record. Nested objects holding only
// scalars are inlined as parent_child fields; lists and deeper objects are
// kept as compact JSON text.
func flatten(row int, obj *object) *core.Record {
	rec := core.NewRecord(row)
	flattenInto(rec, "", obj)
	return rec
}

func flattenInto(rec *core.Record, prefix string, obj *object) {
	for _, k := range obj.keys {
		key := k
		if prefix != "" {
			key = prefix + "_" + k
		}

		switch v := obj.values[k].(type) {
		case *object:
			if v.simple() {
				flattenInto(rec, key, v)
			} else {
				rec.Set(key, compactJSON(v))
			}
		case []any:
			rec.Set(key, compactJSON(v))
		default:
			rec.Set(key, v)
		}
	}
}

// object is a JSON object that remembers key order.
type object struct {
	keys   []string
	values map[string]any
}

func (o *object) get(k string) (any, bool) {
	v, ok := o.values[k]
	return v, ok
}

// simple reports whether every value is a scalar.
func (o *object) simple() bool {
	for _, v := range o.values {
		switch v.(type) {
		case *object, []any:
			return false
		}
	}
	return true
}

// MarshalJSON writes keys in their original order.
func (o *object) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range o.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := marshalNoEscape(k)
		if err != nil {
			return nil, err
		}
		buf.Write(kb)
		buf.WriteByte(':')
		vb, err := marshalNoEscape(o.values[k])
		if err != nil {
			return nil, err
		}
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func marshalNoEscape(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

func compactJSON(v any) string {
	b, err := marshalNoEscape(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(b)
}

func newDecoder(r io.Reader) *json.Decoder {
	dec := json.NewDecoder(r)
	dec.UseNumber()
	return dec
}

// decodeValue reads one JSON value, keeping object key order. Numbers become
// int64 when integral and float64 otherwise.
func decodeValue(dec *json.Decoder) (any, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}

	switch t := tok.(type) {
	case json.Delim:
		switch t {
		case '{':
			obj := &object{values: make(map[string]any)}
			for dec.More() {
				keyTok, err := dec.Token()
				if err != nil {
					return nil, err
				}
				key, ok := keyTok.(string)
				if !ok {
					return nil, fmt.Errorf("unexpected object key %v", keyTok)
				}
				val, err := decodeValue(dec)
				if err != nil {
					return nil, err
				}
				if _, dup := obj.values[key]; !dup {
					obj.keys = append(obj.keys, key)
				}
				obj.values[key] = val
			}
			if _, err := dec.Token(); err != nil {
				return nil, err
			}
			return obj, nil
		case '[':
			arr := []any{}
			for dec.More() {
				val, err := decodeValue(dec)
				if err != nil {
					return nil, err
				}
				arr = append(arr, val)
			}
			if _, err := dec.Token(); err != nil {
				return nil, err
			}
			return arr, nil
		default:
			return nil, fmt.Errorf("unexpected delimiter %v", t)
		}
	case json.Number:
		return numberValue(t), nil
	default:
		return t, nil
	}
}

func numberValue(n json.Number) any {
	if i, err := strconv.ParseInt(n.String(), 10, 64); err == nil {
		return i
	}
	if f, err := n.Float64(); err == nil {
		return f
	}
	return n.String()
}
