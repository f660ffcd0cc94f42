package search

import (
	"context"
	"sync"
	"testing"

	"github.com/kailas-cloud/esgate/internal/db"
	domindex "github.com/kailas-cloud/esgate/internal/domain/index"
	"github.com/kailas-cloud/esgate/internal/domain/index/field"
	"github.com/kailas-cloud/esgate/internal/domain/search/queryast"
	"github.com/kailas-cloud/esgate/internal/domain/search/request"
	"github.com/kailas-cloud/esgate/internal/repository/index"
)

// mockStore implements the consumer interface for tests.
type mockStore struct {
	mu          sync.Mutex
	searchFn    func(ctx context.Context, q *db.SearchQuery) (*db.SearchResult, error)
	aggregateFn func(ctx context.Context, q *db.AggregateQuery) (*db.AggregateResult, error)
	aggregates  []db.AggregateQuery
}

func (m *mockStore) Search(ctx context.Context, q *db.SearchQuery) (*db.SearchResult, error) {
	if m.searchFn != nil {
		return m.searchFn(ctx, q)
	}
	return &db.SearchResult{}, nil
}

func (m *mockStore) Aggregate(ctx context.Context, q *db.AggregateQuery) (*db.AggregateResult, error) {
	m.mu.Lock()
	m.aggregates = append(m.aggregates, *q)
	m.mu.Unlock()
	if m.aggregateFn != nil {
		return m.aggregateFn(ctx, q)
	}
	return &db.AggregateResult{}, nil
}

func mustField(t *testing.T, name string, ft field.Type, sortable bool) field.Field {
	t.Helper()
	f, err := field.New(name, ft, "", sortable)
	if err != nil {
		t.Fatalf("field.New(%s): %v", name, err)
	}
	return f
}

// logsIndex declares status (numeric), level and service (tag) and message (text).
func logsIndex(t *testing.T) domindex.Index {
	t.Helper()
	idx, err := domindex.New("logs", domindex.StorageJSON, []field.Field{
		mustField(t, "status", field.Numeric, true),
		mustField(t, "level", field.Tag, false),
		mustField(t, "service", field.Tag, false),
		mustField(t, "message", field.Text, false),
	})
	if err != nil {
		t.Fatalf("index.New: %v", err)
	}
	return idx
}

func newTestRepo(t *testing.T, indexes ...domindex.Index) (*Repo, *mockStore) {
	t.Helper()
	ms := &mockStore{}
	if len(indexes) == 0 {
		indexes = []domindex.Index{logsIndex(t)}
	}
	return New(ms, index.Naming{Prefix: "esgate:"}, indexes), ms
}

func newRequest(t *testing.T, indexID string, q queryast.Query, size, from int) request.Request {
	t.Helper()
	ast, err := queryast.Marshal(q)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	req, err := request.New(indexID, ast, size, from)
	if err != nil {
		t.Fatalf("request.New: %v", err)
	}
	return req
}
