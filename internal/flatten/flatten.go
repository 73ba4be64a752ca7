// Package flatten turns one extracted-data object (arbitrary decoded JSON)
// into flat rows of dotted-path -> value pairs for tabular export.
//
// Two strategies exist. Join mode collapses each array-of-objects field into
// one "[1] a; [2] b" string cell per property and yields exactly one row per
// document (CSV, PDF). Row-expansion mode emits one row per element of the
// longest array-of-objects field, repeating scalar fields on every row
// (XLSX). Both are total over any value produced by a JSON decode.
package flatten

import (
	"encoding/json"
	"fmt"
	"maps"
	"sort"
	"strconv"
	"strings"
)

// Flatten is the join-mode strategy: one flat map per document.
// Scalars are stored as-is; nil survives until render time.
func Flatten(obj map[string]any) map[string]any {
	out := make(map[string]any, len(obj))
	flattenInto(out, obj, "")
	return out
}

func flattenInto(out map[string]any, obj map[string]any, prefix string) {
	for k, v := range obj {
		flattenValue(out, joinKey(prefix, k), v)
	}
}

func flattenValue(out map[string]any, path string, v any) {
	switch t := v.(type) {
	case map[string]any:
		flattenInto(out, t, path)
	case []any:
		if isObjectArray(t) {
			for _, prop := range unionProps(t) {
				out[path+"."+prop] = joinObjectArray(t, prop)
			}
			return
		}
		out[path] = joinPrimitives(t)
	default:
		out[path] = v
	}
}

// isObjectArray reports whether arr should be treated as an array of objects:
// non-empty with an object first element.
func isObjectArray(arr []any) bool {
	if len(arr) == 0 {
		return false
	}
	_, ok := arr[0].(map[string]any)
	return ok
}

// unionProps collects the union of property names across every element,
// tolerating heterogeneous shapes. Order is deterministic: sorted within each
// element, first-seen across elements.
func unionProps(arr []any) []string {
	seen := make(map[string]struct{})
	var props []string
	for _, el := range arr {
		obj, ok := el.(map[string]any)
		if !ok {
			continue
		}
		keys := make([]string, 0, len(obj))
		for k := range obj {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			if _, dup := seen[k]; !dup {
				seen[k] = struct{}{}
				props = append(props, k)
			}
		}
	}
	return props
}

// joinObjectArray renders one property across all elements as
// "[1] v1; [2] v2". Elements missing the property (or carrying null) are
// skipped, not blank-padded; indexes stay 1-based positions in the array.
func joinObjectArray(arr []any, prop string) string {
	parts := make([]string, 0, len(arr))
	for i, el := range arr {
		obj, ok := el.(map[string]any)
		if !ok {
			continue
		}
		v, present := obj[prop]
		if !present || v == nil {
			continue
		}
		parts = append(parts, fmt.Sprintf("[%d] %s", i+1, Render(v)))
	}
	return strings.Join(parts, "; ")
}

func joinPrimitives(arr []any) string {
	parts := make([]string, 0, len(arr))
	for _, v := range arr {
		parts = append(parts, Render(v))
	}
	return strings.Join(parts, "; ")
}

// Expand is the row-expansion strategy. The longest top-level
// array-of-objects field drives row cardinality; every other field is
// flattened once and repeated on each row. Shorter arrays leave their columns
// absent (blank at render) past their own length. With no array-of-objects
// fields the result is a single row.
func Expand(obj map[string]any) []map[string]any {
	base := make(map[string]any)
	type arrayField struct {
		key string
		arr []any
	}
	var arrays []arrayField
	for k, v := range obj {
		if a, ok := v.([]any); ok && isObjectArray(a) {
			arrays = append(arrays, arrayField{key: k, arr: a})
			continue
		}
		flattenValue(base, k, v)
	}
	if len(arrays) == 0 {
		return []map[string]any{base}
	}

	rowCount := 0
	for _, af := range arrays {
		if len(af.arr) > rowCount {
			rowCount = len(af.arr)
		}
	}
	rows := make([]map[string]any, 0, rowCount)
	for i := 0; i < rowCount; i++ {
		row := make(map[string]any, len(base)+len(arrays)*2)
		maps.Copy(row, base)
		for _, af := range arrays {
			if i >= len(af.arr) {
				continue
			}
			if elem, ok := af.arr[i].(map[string]any); ok {
				flattenInto(row, elem, af.key)
			}
		}
		rows = append(rows, row)
	}
	return rows
}

// ColumnsFromData derives a column order from observed data when no named
// schema exists: the union of flattened keys across the batch, sorted within
// each document and first-seen across documents.
func ColumnsFromData(objs []map[string]any) []string {
	seen := make(map[string]struct{})
	var cols []string
	for _, obj := range objs {
		flat := Flatten(obj)
		keys := make([]string, 0, len(flat))
		for k := range flat {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			if _, dup := seen[k]; !dup {
				seen[k] = struct{}{}
				cols = append(cols, k)
			}
		}
	}
	return cols
}

// Render converts one flattened cell value to its display string. Missing and
// null values become "", never the literal "null"; numbers render without a
// trailing ".0".
func Render(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case json.Number:
		return t.String()
	case int:
		return strconv.Itoa(t)
	default:
		return fmt.Sprint(t)
	}
}

func joinKey(prefix, key string) string {
	if prefix == "" {
		return key
	}
	return prefix + "." + key
}
