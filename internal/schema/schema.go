// Package schema holds the user-authored extraction schema: an ordered forest
// of typed fields describing what to pull out of a document. Edits are
// path-addressed and pure; mutations rebuild only the touched branch.
package schema

import (
	"regexp"

	"github.com/google/uuid"
)

// FieldType enumerates the supported field types.
type FieldType string

const (
	TypeString         FieldType = "STRING"
	TypeNumber         FieldType = "NUMBER"
	TypeBoolean        FieldType = "BOOLEAN"
	TypeArrayOfStrings FieldType = "ARRAY_OF_STRINGS"
	TypeObject         FieldType = "OBJECT"
	TypeArrayOfObjects FieldType = "ARRAY_OF_OBJECTS"
)

// Valid reports whether t is a known field type.
func (t FieldType) Valid() bool {
	switch t {
	case TypeString, TypeNumber, TypeBoolean, TypeArrayOfStrings, TypeObject, TypeArrayOfObjects:
		return true
	}
	return false
}

// HasChildren reports whether t carries a child field list.
func (t FieldType) HasChildren() bool {
	return t == TypeObject || t == TypeArrayOfObjects
}

// Field is one node of the schema tree. Err holds a field-level validation
// message; a non-empty Err blocks extraction but is never raised as an error.
type Field struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	Type     FieldType `json:"type"`
	Children []Field   `json:"children,omitempty"`
	Err      string    `json:"error,omitempty"`
}

// NewField returns a blank STRING field with a fresh ID.
func NewField() Field {
	return Field{ID: uuid.NewString(), Type: TypeString}
}

var nameRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// ValidateName returns an error message for an invalid field name, or ""
// when the name is acceptable.
func ValidateName(name string) string {
	if name == "" {
		return "field name cannot be empty"
	}
	if !nameRe.MatchString(name) {
		return "field name must start with a letter or underscore and contain only letters, digits, and underscores"
	}
	return ""
}

// Named returns a filtered copy of fields keeping only named nodes. Unnamed
// nodes are silently dropped, including inside OBJECT and ARRAY_OF_OBJECTS
// children. The relative order of survivors is preserved.
func Named(fields []Field) []Field {
	out := make([]Field, 0, len(fields))
	for _, f := range fields {
		if f.Name == "" {
			continue
		}
		if f.Type.HasChildren() {
			f.Children = Named(f.Children)
		}
		out = append(out, f)
	}
	return out
}

// Clone returns a deep copy of the forest. Results freeze the schema as it
// was at submission time, so later edits must not leak into history.
func Clone(fields []Field) []Field {
	if fields == nil {
		return nil
	}
	out := make([]Field, len(fields))
	for i, f := range fields {
		f.Children = Clone(f.Children)
		out[i] = f
	}
	return out
}

// Columns derives the ordered dotted-path column set for the forest.
// OBJECT children are prefixed with "parent."; an ARRAY_OF_OBJECTS field
// contributes its children prefixed with its own name (the array itself is
// not a column). The result is the column contract shared by the flattener
// and every export renderer.
func Columns(fields []Field) []string {
	var cols []string
	appendColumns(&cols, fields, "")
	return cols
}

func appendColumns(cols *[]string, fields []Field, prefix string) {
	for _, f := range fields {
		if f.Name == "" {
			continue
		}
		path := f.Name
		if prefix != "" {
			path = prefix + "." + f.Name
		}
		if f.Type.HasChildren() {
			appendColumns(cols, f.Children, path)
			continue
		}
		*cols = append(*cols, path)
	}
}
