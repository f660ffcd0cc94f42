package health

import "context"

// DBPinger checks database availability.
type DBPinger interface {
	Ping(ctx context.Context) error
}

// IndexChecker reports whether an FT index exists.
type IndexChecker interface {
	IndexExists(ctx context.Context, name string) (bool, error)
}

// Index pairs a declared index with the FT index serving it.
type Index struct {
	Name    string
	FTIndex string
}
