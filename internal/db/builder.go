package db

// IndexBuilder assembles an index definition field by field.
// As, Sortable and IndexMissing modify the most recently added field.
type IndexBuilder struct {
	def IndexDefinition
}

// NewIndex starts a definition of an index over keys with the given prefixes.
func NewIndex(name string, storage StorageType, prefixes ...string) *IndexBuilder {
	return &IndexBuilder{def: IndexDefinition{
		Name:        name,
		StorageType: storage,
		Prefixes:    prefixes,
	}}
}

// Field appends a field addressed by hash field name or JSON path.
func (b *IndexBuilder) Field(t IndexFieldType, name string) *IndexBuilder {
	b.def.Fields = append(b.def.Fields, IndexField{Name: name, Type: t})
	return b
}

// As sets the query alias of the last field.
func (b *IndexBuilder) As(alias string) *IndexBuilder {
	if f := b.last(); f != nil {
		f.Alias = alias
	}
	return b
}

// Sortable marks the last field SORTABLE.
func (b *IndexBuilder) Sortable() *IndexBuilder {
	if f := b.last(); f != nil {
		f.Sortable = true
	}
	return b
}

// IndexMissing marks the last field INDEXMISSING.
func (b *IndexBuilder) IndexMissing() *IndexBuilder {
	if f := b.last(); f != nil {
		f.IndexMissing = true
	}
	return b
}

func (b *IndexBuilder) last() *IndexField {
	if len(b.def.Fields) == 0 {
		return nil
	}
	return &b.def.Fields[len(b.def.Fields)-1]
}

// Build validates and returns the definition.
func (b *IndexBuilder) Build() (*IndexDefinition, error) {
	def := b.def
	if err := def.Validate(); err != nil {
		return nil, err
	}
	return &def, nil
}

// MustBuild is Build for definitions known to be valid.
func (b *IndexBuilder) MustBuild() *IndexDefinition {
	def, err := b.Build()
	if err != nil {
		panic(err)
	}
	return def
}
