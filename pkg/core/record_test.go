package core

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecord_SetKeepsOrder(t *testing.T) {
	r := NewRecord(7)
	r.Set("b", 1)
	r.Set("a", 2)
	r.Set("b", 3)

	assert.Equal(t, []string{"b", "a"}, r.Keys())
	assert.Equal(t, 3, r.Value("b"))
	assert.Equal(t, 2, r.Len())
	assert.Equal(t, 7, r.RowIndex)

	r.Delete("b")
	r.Delete("missing")
	assert.Equal(t, []string{"a"}, r.Keys())
	assert.False(t, r.Has("b"))
}

func TestRecord_NullIsPresent(t *testing.T) {
	r := NewRecordFrom(0, []string{"x", "y"}, []any{nil})
	v, ok := r.Get("y")
	assert.True(t, ok)
	assert.Nil(t, v)
	assert.True(t, r.Has("x"))
	assert.False(t, r.Has("z"))
}

func TestRecord_Clone(t *testing.T) {
	r := NewRecordFrom(3, []string{"a"}, []any{"1"})
	c := r.Clone()
	c.Set("a", "2")
	c.Set("b", "3")

	assert.Equal(t, "1", r.Value("a"))
	assert.False(t, r.Has("b"))
	assert.Equal(t, 3, c.RowIndex)
	assert.Equal(t, map[string]any{"a": "2", "b": "3"}, c.Map())
}

func TestRecord_MarshalJSON(t *testing.T) {
	r := NewRecordFrom(0,
		[]string{"z", "a", "html", "n", "f", "null"},
		[]any{"last", true, "<b>&</b>", int64(5), 1.5, nil})

	data, err := r.MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, `{"z":"last","a":true,"html":"<b>&</b>","n":5,"f":1.5,"null":null}`, string(data))

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	require.NoError(t, enc.Encode(r))
	assert.Equal(t, string(data)+"\n", buf.String())

	escaped, err := json.Marshal(r)
	require.NoError(t, err)
	assert.Contains(t, string(escaped), `"html":"\u003cb\u003e\u0026\u003c/b\u003e"`)

	empty, err := json.Marshal(NewRecord(0))
	require.NoError(t, err)
	assert.Equal(t, `{}`, string(empty))
}

func TestFormatValue(t *testing.T) {
	tests := []struct {
		in     any
		want   string
		wantOK bool
	}{
		{nil, "", false},
		{"PRD-001", "PRD-001", true},
		{int64(7), "7", true},
		{7, "7", true},
		{7.0, "7", true},
		{7.25, "7.25", true},
		{true, "true", true},
		{json.Number("12"), "12", true},
		{[]byte("raw"), "raw", true},
	}

	for _, tt := range tests {
		got, ok := FormatValue(tt.in)
		assert.Equal(t, tt.want, got, "%#v", tt.in)
		assert.Equal(t, tt.wantOK, ok, "%#v", tt.in)
	}

	assert.True(t, IsBlank(nil))
	assert.True(t, IsBlank(" \t"))
	assert.False(t, IsBlank("x"))
	assert.False(t, IsBlank(0))
}
