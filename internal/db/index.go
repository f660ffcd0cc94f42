package db

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// StorageType is the key type an FT index covers.
type StorageType string

// Storage types accepted by FT.CREATE ON.
const (
	StorageHash StorageType = "HASH"
	StorageJSON StorageType = "JSON"
)

// IndexFieldType is the FT.CREATE SCHEMA keyword of a field.
type IndexFieldType string

// Field types esgate indexes with.
const (
	IndexFieldNumeric IndexFieldType = "NUMERIC"
	IndexFieldTag     IndexFieldType = "TAG"
	IndexFieldText    IndexFieldType = "TEXT"
)

func (t IndexFieldType) valid() bool {
	switch t {
	case IndexFieldNumeric, IndexFieldTag, IndexFieldText:
		return true
	}
	return false
}

// IndexField is one SCHEMA entry. Name is the hash field or JSON path;
// Alias is the name queries use.
type IndexField struct {
	Name         string
	Alias        string
	Type         IndexFieldType
	Sortable     bool
	IndexMissing bool // lets ismissing() match documents without the field
}

// QueryName is the name the field is addressed by in queries.
func (f IndexField) QueryName() string {
	if f.Alias != "" {
		return f.Alias
	}
	return f.Name
}

// IndexDefinition is the input of FT.CREATE.
type IndexDefinition struct {
	Name        string
	StorageType StorageType
	Prefixes    []string
	Fields      []IndexField
}

// Validate checks the definition before it is sent to the engine.
func (idx *IndexDefinition) Validate() error {
	if idx.Name == "" {
		return errors.New("index name is required")
	}
	if !IsValidIdentifier(idx.Name) {
		return fmt.Errorf("index name %q contains invalid characters", idx.Name)
	}
	switch idx.StorageType {
	case "", StorageHash, StorageJSON:
	default:
		return fmt.Errorf("unknown storage type %q", idx.StorageType)
	}
	if len(idx.Fields) == 0 {
		return errors.New("at least one field is required")
	}

	seen := make(map[string]struct{}, len(idx.Fields))
	for i, f := range idx.Fields {
		if f.Name == "" {
			return fmt.Errorf("field %d: name is required", i)
		}
		if !f.Type.valid() {
			return fmt.Errorf("field %s: unknown type %q", f.Name, f.Type)
		}
		key := f.QueryName()
		if _, dup := seen[key]; dup {
			return fmt.Errorf("duplicate field name: %s", key)
		}
		seen[key] = struct{}{}
	}
	return nil
}

// Args returns the FT.CREATE arguments following the command name.
// Storage defaults to HASH.
func (idx *IndexDefinition) Args() []string {
	storage := idx.StorageType
	if storage == "" {
		storage = StorageHash
	}
	args := []string{idx.Name, "ON", string(storage)}
	if len(idx.Prefixes) > 0 {
		args = append(args, "PREFIX", strconv.Itoa(len(idx.Prefixes)))
		args = append(args, idx.Prefixes...)
	}
	args = append(args, "SCHEMA")
	for _, f := range idx.Fields {
		args = append(args, f.Name)
		if f.Alias != "" {
			args = append(args, "AS", f.Alias)
		}
		args = append(args, string(f.Type))
		if f.IndexMissing {
			args = append(args, "INDEXMISSING")
		}
		if f.Sortable {
			args = append(args, "SORTABLE")
		}
	}
	return args
}

// String renders the full FT.CREATE command.
func (idx *IndexDefinition) String() string {
	return "FT.CREATE " + strings.Join(idx.Args(), " ")
}

// IsValidIdentifier reports whether s is non-empty and made of [a-zA-Z0-9_.:-].
func IsValidIdentifier(s string) bool {
	return s != "" && strings.IndexFunc(s, func(r rune) bool {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return false
		case r == '_', r == '.', r == ':', r == '-':
			return false
		}
		return true
	}) < 0
}
