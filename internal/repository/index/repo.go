// Package index keeps the declared indexes present in the search store.
package index

import (
	"context"
	"errors"
	"fmt"

	"github.com/kailas-cloud/esgate/internal/db"
	domindex "github.com/kailas-cloud/esgate/internal/domain/index"
)

// store is the consumer interface for index management (ISP).
type store interface {
	CreateIndex(ctx context.Context, def *db.IndexDefinition) error
	DropIndex(ctx context.Context, name string) error
	IndexExists(ctx context.Context, name string) (bool, error)
}

// Repo creates FT indexes for declared indexes.
type Repo struct {
	store  store
	naming Naming
}

// New creates an index repository.
func New(s store, naming Naming) *Repo {
	return &Repo{store: s, naming: naming}
}

// Ensure creates the FT index unless it already exists. Existing indexes are
// left untouched even when their schema differs. Reports whether it was created.
func (r *Repo) Ensure(ctx context.Context, idx domindex.Index) (bool, error) {
	def, err := buildIndex(r.naming, idx)
	if err != nil {
		return false, fmt.Errorf("build index %s: %w", idx.Name(), err)
	}

	exists, err := r.store.IndexExists(ctx, def.Name)
	if err != nil {
		return false, fmt.Errorf("check index %s: %w", idx.Name(), err)
	}
	if exists {
		return false, nil
	}

	if err := r.store.CreateIndex(ctx, def); err != nil {
		// Lost a race with another instance.
		if errors.Is(err, db.ErrIndexExists) {
			return false, nil
		}
		return false, fmt.Errorf("create index %s: %w", idx.Name(), err)
	}
	return true, nil
}

// Recreate drops the FT index and builds it again from the declared schema.
// Documents stay in place and are re-indexed by the store.
func (r *Repo) Recreate(ctx context.Context, idx domindex.Index) error {
	name := r.naming.IndexName(idx.Name())
	if err := r.store.DropIndex(ctx, name); err != nil && !errors.Is(err, db.ErrIndexNotFound) {
		return fmt.Errorf("drop index %s: %w", idx.Name(), err)
	}
	if _, err := r.Ensure(ctx, idx); err != nil {
		return err
	}
	return nil
}
