// Package index describes the searchable indexes exposed through the Elasticsearch API.
package index

import (
	"fmt"
	"regexp"

	"github.com/kailas-cloud/esgate/internal/domain/index/field"
)

var nameRegex = regexp.MustCompile(`^[a-z0-9][a-z0-9_.-]*$`)

// Storage is how documents of an index are stored.
type Storage string

const (
	// StorageJSON stores each document as a JSON value.
	StorageJSON Storage = "json"
	// StorageHash stores each document as a flat hash.
	StorageHash Storage = "hash"
)

// IsValid checks if the storage type is supported.
func (s Storage) IsValid() bool {
	return s == StorageJSON || s == StorageHash
}

// Index is a searchable index (immutable value object).
type Index struct {
	name    string
	storage Storage
	fields  []field.Field
}

func validateName(name string) error {
	if name == "" {
		return fmt.Errorf("index name is required")
	}
	if len(name) > 255 {
		return fmt.Errorf("index name too long (max 255)")
	}
	if !nameRegex.MatchString(name) {
		return fmt.Errorf("index name %q must be lowercase alphanumeric with '_', '-' and '.'", name)
	}
	return nil
}

func validateFields(fields []field.Field) error {
	if len(fields) == 0 {
		return fmt.Errorf("at least one field is required")
	}
	if len(fields) > 256 {
		return fmt.Errorf("too many fields (max 256)")
	}
	seen := make(map[string]bool, len(fields))
	for _, f := range fields {
		if seen[f.Name()] {
			return fmt.Errorf("duplicate field name: %s", f.Name())
		}
		seen[f.Name()] = true
	}
	return nil
}

// New validates and creates an Index. Storage defaults to JSON.
func New(name string, storage Storage, fields []field.Field) (Index, error) {
	if storage == "" {
		storage = StorageJSON
	}
	if !storage.IsValid() {
		return Index{}, fmt.Errorf("invalid storage type: %q", storage)
	}
	if err := validateName(name); err != nil {
		return Index{}, err
	}
	if err := validateFields(fields); err != nil {
		return Index{}, fmt.Errorf("index %s: %w", name, err)
	}
	return Index{name: name, storage: storage, fields: fields}, nil
}

// Reconstruct creates an Index without validation.
func Reconstruct(name string, storage Storage, fields []field.Field) Index {
	if storage == "" {
		storage = StorageJSON
	}
	return Index{name: name, storage: storage, fields: fields}
}

// Name returns the index name clients address.
func (i Index) Name() string { return i.name }

// Storage returns the document storage type.
func (i Index) Storage() Storage { return i.storage }

// Fields returns the indexed field definitions.
func (i Index) Fields() []field.Field { return i.fields }

// FieldByName looks up a field by name.
func (i Index) FieldByName(name string) (field.Field, bool) {
	for _, f := range i.fields {
		if f.Name() == name {
			return f, true
		}
	}
	return field.Field{}, false
}

// TextFields returns the names of all full-text fields.
func (i Index) TextFields() []string {
	var names []string
	for _, f := range i.fields {
		if f.FieldType() == field.Text {
			names = append(names, f.Name())
		}
	}
	return names
}
