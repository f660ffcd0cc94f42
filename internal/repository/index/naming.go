package index

// Naming maps client-facing index names onto store keys.
type Naming struct {
	Prefix string
}

// IndexName is the FT index serving an index.
func (n Naming) IndexName(name string) string {
	return n.Prefix + name + ":idx"
}

// DocPrefix is the key prefix of documents belonging to an index.
func (n Naming) DocPrefix(name string) string {
	return n.Prefix + name + ":"
}
