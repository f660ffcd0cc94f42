package redis

import (
	"context"
	"fmt"

	"github.com/kailas-cloud/esgate/internal/db"
)

// CreateIndex runs FT.CREATE for def.
func (s *Store) CreateIndex(ctx context.Context, def *db.IndexDefinition) error {
	if err := def.Validate(); err != nil {
		return fmt.Errorf("invalid index definition: %w", err)
	}
	err := s.exec(ctx, db.OpCreateIndex, def.Args()...)
	if isRedisErr(err, "index already exists") {
		return db.ErrIndexExists
	}
	return wrap(db.OpCreateIndex, err)
}

// DropIndex runs FT.DROPINDEX without DD, so documents stay in place.
func (s *Store) DropIndex(ctx context.Context, name string) error {
	err := s.exec(ctx, db.OpDropIndex, name)
	if isUnknownIndex(err) {
		return db.ErrIndexNotFound
	}
	return wrap(db.OpDropIndex, err)
}

// IndexExists probes the index with FT.INFO.
func (s *Store) IndexExists(ctx context.Context, name string) (bool, error) {
	err := s.exec(ctx, db.OpIndexInfo, name)
	switch {
	case err == nil:
		return true, nil
	case isUnknownIndex(err):
		return false, nil
	default:
		return false, wrap(db.OpIndexInfo, err)
	}
}
