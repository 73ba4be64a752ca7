// Package contract translates the schema model into the structured-output
// contract (a JSON-Schema subset built as a generic map) that constrains the
// document understanding service, and validates responses against it.
package contract

import (
	"github.com/docsift/docsift/internal/schema"
)

// Build maps an ordered field forest to an object-type descriptor with
// "properties" and "required" (every named field is required). Unnamed fields
// must already be filtered out by the caller; any that slip through are
// skipped. Build is pure and total for a well-formed forest.
func Build(fields []schema.Field) map[string]any {
	return objectDescriptor(fields)
}

func objectDescriptor(fields []schema.Field) map[string]any {
	props := map[string]any{}
	required := make([]string, 0, len(fields))
	for _, f := range fields {
		if f.Name == "" {
			continue
		}
		props[f.Name] = typeDescriptor(f)
		required = append(required, f.Name)
	}
	// A contract with zero properties is rejected by structured-output
	// backends; keep it non-empty with a placeholder string.
	if len(props) == 0 {
		props["value"] = map[string]any{"type": "string"}
		required = append(required, "value")
	}
	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties":           props,
		"required":             required,
	}
}

func typeDescriptor(f schema.Field) map[string]any {
	switch f.Type {
	case schema.TypeNumber:
		return map[string]any{"type": "number"}
	case schema.TypeBoolean:
		return map[string]any{"type": "boolean"}
	case schema.TypeArrayOfStrings:
		return map[string]any{
			"type":  "array",
			"items": map[string]any{"type": "string"},
		}
	case schema.TypeObject:
		return objectDescriptor(f.Children)
	case schema.TypeArrayOfObjects:
		return map[string]any{
			"type":  "array",
			"items": objectDescriptor(f.Children),
		}
	default:
		return map[string]any{"type": "string"}
	}
}
