package index

import (
	"fmt"

	"github.com/kailas-cloud/esgate/internal/db"
	domindex "github.com/kailas-cloud/esgate/internal/domain/index"
	"github.com/kailas-cloud/esgate/internal/domain/index/field"
)

var fieldTypes = map[field.Type]db.IndexFieldType{
	field.Tag:     db.IndexFieldTag,
	field.Text:    db.IndexFieldText,
	field.Numeric: db.IndexFieldNumeric,
}

// buildIndex turns a declared index into its FT definition.
// JSON indexes address values by path and expose them under the field name.
// Tag and text fields index missing values so exists queries work.
func buildIndex(n Naming, idx domindex.Index) (*db.IndexDefinition, error) {
	storage := db.StorageHash
	if idx.Storage() == domindex.StorageJSON {
		storage = db.StorageJSON
	}
	b := db.NewIndex(n.IndexName(idx.Name()), storage, n.DocPrefix(idx.Name()))

	for _, f := range idx.Fields() {
		ft, ok := fieldTypes[f.FieldType()]
		if !ok {
			return nil, fmt.Errorf("unknown field type: %s", f.FieldType())
		}

		if storage == db.StorageJSON {
			b.Field(ft, f.Path()).As(f.Name())
		} else {
			b.Field(ft, f.Name())
		}
		if ft != db.IndexFieldNumeric {
			b.IndexMissing()
		}
		if f.Sortable() {
			b.Sortable()
		}
	}

	return b.Build()
}
