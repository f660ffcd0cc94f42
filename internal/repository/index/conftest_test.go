package index

import (
	"context"
	"testing"

	"github.com/kailas-cloud/esgate/internal/db"
	domindex "github.com/kailas-cloud/esgate/internal/domain/index"
	"github.com/kailas-cloud/esgate/internal/domain/index/field"
)

// mockStore implements the consumer interface for tests.
type mockStore struct {
	createIndexFn func(ctx context.Context, def *db.IndexDefinition) error
	dropIndexFn   func(ctx context.Context, name string) error
	indexExistsFn func(ctx context.Context, name string) (bool, error)
	created       []*db.IndexDefinition
	dropped       []string
}

func (m *mockStore) CreateIndex(ctx context.Context, def *db.IndexDefinition) error {
	m.created = append(m.created, def)
	if m.createIndexFn != nil {
		return m.createIndexFn(ctx, def)
	}
	return nil
}

func (m *mockStore) DropIndex(ctx context.Context, name string) error {
	m.dropped = append(m.dropped, name)
	if m.dropIndexFn != nil {
		return m.dropIndexFn(ctx, name)
	}
	return nil
}

func (m *mockStore) IndexExists(ctx context.Context, name string) (bool, error) {
	if m.indexExistsFn != nil {
		return m.indexExistsFn(ctx, name)
	}
	return false, nil
}

func newTestRepo(t *testing.T) (*Repo, *mockStore) {
	t.Helper()
	ms := &mockStore{}
	return New(ms, Naming{Prefix: "esgate:"}), ms
}

func testIndex(t *testing.T, storage domindex.Storage) domindex.Index {
	t.Helper()
	status, err := field.New("status", field.Numeric, "", true)
	if err != nil {
		t.Fatalf("field: %v", err)
	}
	idx, err := domindex.New("logs", storage, []field.Field{
		status,
		field.Reconstruct("level", field.Tag),
		field.Reconstruct("message", field.Text),
	})
	if err != nil {
		t.Fatalf("index: %v", err)
	}
	return idx
}
