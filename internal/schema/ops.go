package schema

import "fmt"

// Path addresses a node in the forest by child index at each depth.
// An empty path addresses the root list itself.
type Path []int

// Patch is a partial update applied to one field.
type Patch struct {
	Name *string
	Type *FieldType
	Err  *string
}

// AddField appends a blank field at the root (parent nil or empty) or as the
// last child of the node at parent. The returned forest shares untouched
// branches with the input.
func AddField(fields []Field, parent Path) ([]Field, Field, error) {
	blank := NewField()
	if len(parent) == 0 {
		out := make([]Field, 0, len(fields)+1)
		out = append(out, fields...)
		out = append(out, blank)
		return out, blank, nil
	}
	out, err := rebuild(fields, parent, func(f Field) (Field, error) {
		children := make([]Field, 0, len(f.Children)+1)
		children = append(children, f.Children...)
		children = append(children, blank)
		f.Children = children
		return f, nil
	})
	if err != nil {
		return nil, Field{}, err
	}
	return out, blank, nil
}

// UpdateField applies patch to the node at path. Switching the type into
// OBJECT or ARRAY_OF_OBJECTS seeds one blank child when none exist; switching
// away from those types discards children.
func UpdateField(fields []Field, path Path, patch Patch) ([]Field, error) {
	return rebuild(fields, path, func(f Field) (Field, error) {
		if patch.Name != nil {
			f.Name = *patch.Name
			f.Err = ValidateName(f.Name)
		}
		if patch.Err != nil {
			f.Err = *patch.Err
		}
		if patch.Type != nil && *patch.Type != f.Type {
			if !patch.Type.Valid() {
				return f, fmt.Errorf("unknown field type %q", *patch.Type)
			}
			f.Type = *patch.Type
			if f.Type.HasChildren() {
				if len(f.Children) == 0 {
					f.Children = []Field{NewField()}
				}
			} else {
				f.Children = nil
			}
		}
		return f, nil
	})
}

// RemoveField removes the node at path from its parent's child list (or the
// root list). Guarding against removing the last root field is a caller
// concern, not a model invariant.
func RemoveField(fields []Field, path Path) ([]Field, error) {
	if len(path) == 0 {
		return nil, fmt.Errorf("remove: empty path")
	}
	i := path[0]
	if i < 0 || i >= len(fields) {
		return nil, fmt.Errorf("remove: index %d out of range (len %d)", i, len(fields))
	}
	if len(path) == 1 {
		out := make([]Field, 0, len(fields)-1)
		out = append(out, fields[:i]...)
		out = append(out, fields[i+1:]...)
		return out, nil
	}
	return rebuildAt(fields, i, func(f Field) (Field, error) {
		children, err := RemoveField(f.Children, path[1:])
		if err != nil {
			return f, err
		}
		f.Children = children
		return f, nil
	})
}

// rebuild applies fn to the node at path and reconstructs its ancestors,
// leaving sibling branches shared with the input forest.
func rebuild(fields []Field, path Path, fn func(Field) (Field, error)) ([]Field, error) {
	if len(path) == 0 {
		return nil, fmt.Errorf("update: empty path")
	}
	i := path[0]
	if i < 0 || i >= len(fields) {
		return nil, fmt.Errorf("update: index %d out of range (len %d)", i, len(fields))
	}
	if len(path) == 1 {
		return rebuildAt(fields, i, fn)
	}
	return rebuildAt(fields, i, func(f Field) (Field, error) {
		children, err := rebuild(f.Children, path[1:], fn)
		if err != nil {
			return f, err
		}
		f.Children = children
		return f, nil
	})
}

func rebuildAt(fields []Field, i int, fn func(Field) (Field, error)) ([]Field, error) {
	updated, err := fn(fields[i])
	if err != nil {
		return nil, err
	}
	out := make([]Field, len(fields))
	copy(out, fields)
	out[i] = updated
	return out, nil
}
