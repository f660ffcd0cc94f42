package field

import (
	"fmt"
	"strings"
)

// Type is the indexing type of a field.
type Type string

// Field type constants.
const (
	// Tag is an exact-match field.
	Tag Type = "tag"
	// Numeric supports ranges and numeric sorting.
	Numeric Type = "numeric"
	// Text is tokenized for full-text matching.
	Text Type = "text"
)

// ParseType accepts a field type name in any case.
func ParseType(s string) (Type, error) {
	switch t := Type(strings.ToLower(strings.TrimSpace(s))); t {
	case Tag, Numeric, Text:
		return t, nil
	default:
		return "", fmt.Errorf("invalid field type %q", s)
	}
}

// Field is an immutable value object describing an indexed document field.
type Field struct {
	name      string
	fieldType Type
	path      string
	sortable  bool
}

// New validates and creates a Field.
// Name is the name queries use; path is where the value lives in the stored
// document and defaults to "$.<name>".
func New(name string, ft Type, path string, sortable bool) (Field, error) {
	if name == "" {
		return Field{}, fmt.Errorf("field name is required")
	}
	if len(name) > 128 {
		return Field{}, fmt.Errorf("field name %q too long (max 128)", name)
	}
	if strings.ContainsAny(name, " @{}()|\"") {
		return Field{}, fmt.Errorf("field name %q contains reserved characters", name)
	}
	if ft != Tag && ft != Numeric && ft != Text {
		return Field{}, fmt.Errorf("invalid field type %q for %q", ft, name)
	}
	if path == "" {
		path = "$." + name
	}
	return Field{name: name, fieldType: ft, path: path, sortable: sortable}, nil
}

// Reconstruct creates a Field without validation.
func Reconstruct(name string, ft Type) Field {
	return Field{name: name, fieldType: ft, path: "$." + name}
}

// Name returns the field name.
func (f Field) Name() string { return f.name }

// FieldType returns the field's indexing type.
func (f Field) FieldType() Type { return f.fieldType }

// Path returns the JSON path of the value in the stored document.
func (f Field) Path() string { return f.path }

// Sortable reports whether results can be ordered by this field.
func (f Field) Sortable() bool { return f.sortable }
