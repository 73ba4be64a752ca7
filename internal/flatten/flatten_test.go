package flatten

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decode(t *testing.T, raw string) map[string]any {
	t.Helper()
	var obj map[string]any
	require.NoError(t, json.Unmarshal([]byte(raw), &obj))
	return obj
}

func TestFlattenScalarsUnchanged(t *testing.T) {
	obj := decode(t, `{"a": "x", "b": 2, "c": true, "d": null}`)
	flat := Flatten(obj)
	assert.Equal(t, obj, flat)
}

func TestFlattenNestedObject(t *testing.T) {
	obj := decode(t, `{"address": {"street": "Main", "geo": {"lat": 1.5}}}`)
	flat := Flatten(obj)
	assert.Equal(t, "Main", flat["address.street"])
	assert.Equal(t, 1.5, flat["address.geo.lat"])
	assert.Len(t, flat, 2)
}

func TestFlattenObjectArrayJoins(t *testing.T) {
	obj := decode(t, `{"items": [{"a": 1, "b": 2}, {"a": 3}]}`)
	flat := Flatten(obj)
	assert.Equal(t, "[1] 1; [2] 3", flat["items.a"])
	assert.Equal(t, "[1] 2", flat["items.b"])
}

func TestFlattenObjectArraySkipsNull(t *testing.T) {
	obj := decode(t, `{"items": [{"a": null}, {"a": "x"}]}`)
	flat := Flatten(obj)
	assert.Equal(t, "[2] x", flat["items.a"])
}

func TestFlattenPrimitiveArray(t *testing.T) {
	obj := decode(t, `{"tags": ["red", "blue"]}`)
	flat := Flatten(obj)
	assert.Equal(t, "red; blue", flat["tags"])
}

func TestFlattenEmptyArray(t *testing.T) {
	obj := decode(t, `{"tags": []}`)
	flat := Flatten(obj)
	assert.Equal(t, "", flat["tags"])
}

func TestFlattenEmptyObject(t *testing.T) {
	flat := Flatten(map[string]any{})
	assert.Empty(t, flat)
}

func TestExpandRowsFollowLongestArray(t *testing.T) {
	obj := decode(t, `{
		"total": 42.5,
		"items": [{"desc": "A", "price": 10}, {"desc": "B", "price": 32.5}, {"desc": "C"}],
		"notes": [{"text": "first"}]
	}`)
	rows := Expand(obj)
	require.Len(t, rows, 3)

	for _, row := range rows {
		assert.Equal(t, 42.5, row["total"])
	}
	assert.Equal(t, "A", rows[0]["items.desc"])
	assert.Equal(t, float64(10), rows[0]["items.price"])
	assert.Equal(t, "B", rows[1]["items.desc"])
	assert.Equal(t, 32.5, rows[1]["items.price"])
	assert.Equal(t, "C", rows[2]["items.desc"])
	_, present := rows[2]["items.price"]
	assert.False(t, present)

	assert.Equal(t, "first", rows[0]["notes.text"])
	_, present = rows[1]["notes.text"]
	assert.False(t, present)
}

func TestExpandNoArraysSingleRow(t *testing.T) {
	obj := decode(t, `{"a": "x", "nested": {"b": 1}}`)
	rows := Expand(obj)
	require.Len(t, rows, 1)
	assert.Equal(t, "x", rows[0]["a"])
	assert.Equal(t, float64(1), rows[0]["nested.b"])
}

func TestExpandPrimitiveArrayStaysJoined(t *testing.T) {
	obj := decode(t, `{"tags": ["red", "blue"], "items": [{"a": 1}]}`)
	rows := Expand(obj)
	require.Len(t, rows, 1)
	assert.Equal(t, "red; blue", rows[0]["tags"])
}

func TestColumnsFromData(t *testing.T) {
	a := decode(t, `{"b": 1, "a": 2}`)
	b := decode(t, `{"c": 3, "a": 4}`)
	cols := ColumnsFromData([]map[string]any{a, b})
	assert.Equal(t, []string{"a", "b", "c"}, cols)
}

func TestRender(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want string
	}{
		{"nil", nil, ""},
		{"string", "hello", "hello"},
		{"bool", true, "true"},
		{"integral float", float64(10), "10"},
		{"fractional float", 32.5, "32.5"},
		{"json number", json.Number("7.25"), "7.25"},
		{"int", 3, "3"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Render(tt.in))
		})
	}
}
