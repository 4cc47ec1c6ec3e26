package core

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Record is an ordered mapping of field name to untyped value, tagged with
// the row index it had when it was first read from its source.
//
// A nil value is null. RowIndex never changes once assigned.
type Record struct {
	RowIndex int

	keys   []string
	values map[string]any
}

// NewRecord creates an empty record for the given row index.
func NewRecord(rowIndex int) *Record {
	return &Record{
		RowIndex: rowIndex,
		values:   make(map[string]any),
	}
}

// NewRecordFrom creates a record from parallel key and value slices.
func NewRecordFrom(rowIndex int, keys []string, values []any) *Record {
	r := NewRecord(rowIndex)
	for i, k := range keys {
		var v any
		if i < len(values) {
			v = values[i]
		}
		r.Set(k, v)
	}
	return r
}

// Get returns the value of a field and whether the field is present.
func (r *Record) Get(field string) (any, bool) {
	v, ok := r.values[field]
	return v, ok
}

// Value returns the value of a field, or nil if absent.
func (r *Record) Value(field string) any {
	return r.values[field]
}

// Has reports whether the field is present (it may still be null).
func (r *Record) Has(field string) bool {
	_, ok := r.values[field]
	return ok
}

// Set assigns a value. New fields are appended after existing ones.
func (r *Record) Set(field string, value any) {
	if r.values == nil {
		r.values = make(map[string]any)
	}
	if _, ok := r.values[field]; !ok {
		r.keys = append(r.keys, field)
	}
	r.values[field] = value
}

// Delete removes a field.
func (r *Record) Delete(field string) {
	if _, ok := r.values[field]; !ok {
		return
	}
	delete(r.values, field)
	for i, k := range r.keys {
		if k == field {
			r.keys = append(r.keys[:i:i], r.keys[i+1:]...)
			break
		}
	}
}

// Keys returns the field names in order.
func (r *Record) Keys() []string {
	out := make([]string, len(r.keys))
	copy(out, r.keys)
	return out
}

// Len returns the number of fields.
func (r *Record) Len() int {
	return len(r.keys)
}

// Clone returns a copy that shares no field storage with r.
// Values are copied shallowly; the pipeline only stores scalars and strings.
func (r *Record) Clone() *Record {
	c := &Record{
		RowIndex: r.RowIndex,
		keys:     make([]string, len(r.keys)),
		values:   make(map[string]any, len(r.values)),
	}
	copy(c.keys, r.keys)
	for k, v := range r.values {
		c.values[k] = v
	}
	return c
}

// Map returns the fields as a plain map.
func (r *Record) Map() map[string]any {
	m := make(map[string]any, len(r.values))
	for k, v := range r.values {
		m[k] = v
	}
	return m
}

// MarshalJSON encodes the record as a JSON object with fields in record order.
// The output itself leaves HTML characters alone; whether they end up escaped
// is decided by the caller's encoder (json.Marshal escapes them).
func (r *Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)

	buf.WriteByte('{')
	for i, k := range r.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := enc.Encode(k); err != nil {
			return nil, err
		}
		trimNewline(&buf)
		buf.WriteByte(':')
		if err := enc.Encode(r.values[k]); err != nil {
			return nil, fmt.Errorf("field %s: %w", k, err)
		}
		trimNewline(&buf)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// trimNewline drops the newline json.Encoder appends after each value.
func trimNewline(buf *bytes.Buffer) {
	if n := buf.Len(); n > 0 && buf.Bytes()[n-1] == '\n' {
		buf.Truncate(n - 1)
	}
}
