package chi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/kailas-cloud/esgate/internal/domain"
	"github.com/kailas-cloud/esgate/internal/domain/search/queryast"
	"github.com/kailas-cloud/esgate/internal/domain/search/request"
	"github.com/kailas-cloud/esgate/internal/domain/search/result"
	healthuc "github.com/kailas-cloud/esgate/internal/usecase/health"
	msearchuc "github.com/kailas-cloud/esgate/internal/usecase/msearch"
	searchuc "github.com/kailas-cloud/esgate/internal/usecase/search"
)

// --- Mocks ---

type fakeBackend struct {
	mu       sync.Mutex
	requests []request.Request
	fn       func(req request.Request) (result.Result, error)
}

func (b *fakeBackend) Search(_ context.Context, req request.Request) (result.Result, error) {
	b.mu.Lock()
	b.requests = append(b.requests, req)
	b.mu.Unlock()
	if b.fn != nil {
		return b.fn(req)
	}
	return result.New([]result.Hit{result.NewHit(`{"status":500}`)}, 1), nil
}

type fakePinger struct{ err error }

func (p fakePinger) Ping(context.Context) error { return p.err }

func newTestRouter(t *testing.T, backend *fakeBackend, pingErr error) http.Handler {
	t.Helper()
	srv := NewServer(
		searchuc.New(backend),
		msearchuc.New(backend, 2),
		healthuc.New(fakePinger{err: pingErr}, nil, nil),
		zap.NewNop(),
	)
	r := chi.NewRouter()
	srv.Routes(r)
	return r
}

func serve(t *testing.T, h http.Handler, method, target, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	var decoded map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &decoded); err != nil {
		t.Fatalf("decode response %q: %v", rr.Body.String(), err)
	}
	return rr, decoded
}

func errorType(t *testing.T, body map[string]any) (string, string) {
	t.Helper()
	cause, ok := body["error"].(map[string]any)
	if !ok {
		t.Fatalf("expected error object, got %v", body)
	}
	typ, _ := cause["type"].(string)
	reason, _ := cause["reason"].(string)
	return typ, reason
}

// --- Search ---

func TestSearch_FreeText(t *testing.T) {
	backend := &fakeBackend{}
	h := newTestRouter(t, backend, nil)

	rr, body := serve(t, h, http.MethodGet, "/_elastic/logs/_search?q=status:500", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rr.Code, rr.Body.String())
	}
	if ct := rr.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q", ct)
	}

	if len(backend.requests) != 1 {
		t.Fatalf("expected 1 backend call, got %d", len(backend.requests))
	}
	req := backend.requests[0]
	if req.IndexID() != "logs" || req.MaxHits() != 10 || req.StartOffset() != 0 {
		t.Errorf("request = (%s, %d, %d)", req.IndexID(), req.MaxHits(), req.StartOffset())
	}
	ast, err := queryast.Parse(req.QueryAST())
	if err != nil {
		t.Fatalf("parse ast: %v", err)
	}
	if ast.Type != queryast.TypeUserInput || ast.UserText != "status:500" || ast.Operator != queryast.OperatorOr {
		t.Errorf("ast = %+v", ast)
	}

	hits := body["hits"].(map[string]any)
	total := hits["total"].(map[string]any)
	if total["value"].(float64) != 1 || total["relation"] != "eq" {
		t.Errorf("hits.total = %v", total)
	}
	if body["timed_out"] != false {
		t.Errorf("timed_out = %v", body["timed_out"])
	}
}

func TestSearch_Body(t *testing.T) {
	backend := &fakeBackend{}
	h := newTestRouter(t, backend, nil)

	rr, _ := serve(t, h, http.MethodPost, "/_elastic/logs/_search",
		`{"query":{"term":{"status":404}},"size":5,"sort":[{"ts":"desc"}]}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rr.Code, rr.Body.String())
	}

	req := backend.requests[0]
	if req.MaxHits() != 5 {
		t.Errorf("MaxHits() = %d", req.MaxHits())
	}
	field, order, ok := req.SortBy()
	if !ok || field != "ts" || order != request.SortDesc {
		t.Errorf("SortBy() = %s, %v, %v", field, order, ok)
	}
}

func TestSearch_ClientErrors(t *testing.T) {
	tests := []struct {
		name     string
		method   string
		target   string
		body     string
		wantType string
	}{
		{"malformed body", http.MethodPost, "/_elastic/logs/_search", `{"query":`, "invalid_argument"},
		{"bad size", http.MethodGet, "/_elastic/logs/_search?size=ten", "", "invalid_argument"},
		{"unsupported clause", http.MethodPost, "/_elastic/logs/_search", `{"query":{"fuzzy":{"a":"b"}}}`, "invalid_query"},
		{"two sort fields", http.MethodGet, "/_elastic/logs/_search?sort=a,b", "", "invalid_argument"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			backend := &fakeBackend{}
			h := newTestRouter(t, backend, nil)

			rr, body := serve(t, h, tc.method, tc.target, tc.body)
			if rr.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, body = %s", rr.Code, rr.Body.String())
			}
			if body["status"].(float64) != http.StatusBadRequest {
				t.Errorf("body status = %v", body["status"])
			}
			if typ, _ := errorType(t, body); typ != tc.wantType {
				t.Errorf("type = %q, want %q", typ, tc.wantType)
			}
			if len(backend.requests) != 0 {
				t.Error("backend must not be called")
			}
		})
	}
}

func TestSearch_BackendError(t *testing.T) {
	backend := &fakeBackend{fn: func(request.Request) (result.Result, error) {
		return result.Result{}, domain.NewBackendError(http.StatusNotFound, "index_not_found_exception", "no such index [nope]")
	}}
	h := newTestRouter(t, backend, nil)

	rr, body := serve(t, h, http.MethodGet, "/_elastic/nope/_search", "")
	if rr.Code != http.StatusNotFound {
		t.Fatalf("status = %d", rr.Code)
	}
	typ, reason := errorType(t, body)
	if typ != "index_not_found_exception" || reason != "no such index [nope]" {
		t.Errorf("error = (%s, %s)", typ, reason)
	}
}

func TestSearch_InternalErrorIsOpaque(t *testing.T) {
	backend := &fakeBackend{fn: func(request.Request) (result.Result, error) {
		return result.Result{}, errors.New("dial tcp 10.0.0.1:6379: connection refused")
	}}
	h := newTestRouter(t, backend, nil)

	rr, body := serve(t, h, http.MethodGet, "/_elastic/logs/_search", "")
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", rr.Code)
	}
	if _, reason := errorType(t, body); reason != "internal error" {
		t.Errorf("reason = %q", reason)
	}
}

func TestSearch_BodyTooLarge(t *testing.T) {
	backend := &fakeBackend{}
	srv := NewServer(searchuc.New(backend), msearchuc.New(backend, 1),
		healthuc.New(fakePinger{}, nil, nil), zap.NewNop()).WithMaxBodyBytes(16)
	r := chi.NewRouter()
	srv.Routes(r)

	rr, _ := serve(t, r, http.MethodPost, "/_elastic/logs/_search", `{"query":{"match_all":{}}}`)
	if rr.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("status = %d", rr.Code)
	}
}

func TestSearchAll_NotSupported(t *testing.T) {
	for _, method := range []string{http.MethodGet, http.MethodPost} {
		h := newTestRouter(t, &fakeBackend{}, nil)

		rr, body := serve(t, h, method, "/_elastic/_search", "")
		if rr.Code != http.StatusNotImplemented {
			t.Fatalf("%s: status = %d", method, rr.Code)
		}
		if _, reason := errorType(t, body); reason != searchuc.NotSupportedMessage {
			t.Errorf("%s: reason = %q", method, reason)
		}
	}
}

// --- Multi-search ---

func TestMultiSearch(t *testing.T) {
	backend := &fakeBackend{fn: func(req request.Request) (result.Result, error) {
		if req.IndexID() == "missing" {
			return result.Result{}, domain.NewBackendError(http.StatusNotFound, "index_not_found_exception", "no such index [missing]")
		}
		return result.New(nil, 3), nil
	}}
	h := newTestRouter(t, backend, nil)

	payload := strings.Join([]string{
		`{"index":"logs"}`,
		`{"query":{"match_all":{}}}`,
		`{"index":"missing"}`,
		`{}`,
		`{"index":["logs"]}`,
		`{"size":0}`,
	}, "\n") + "\n"

	rr, body := serve(t, h, http.MethodPost, "/_elastic/_msearch?max_concurrent_searches=1", payload)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rr.Code, rr.Body.String())
	}

	responses := body["responses"].([]any)
	if len(responses) != 3 {
		t.Fatalf("expected 3 responses, got %d", len(responses))
	}
	wantStatus := []float64{200, 404, 200}
	for i, raw := range responses {
		item := raw.(map[string]any)
		if item["status"].(float64) != wantStatus[i] {
			t.Errorf("responses[%d].status = %v, want %v", i, item["status"], wantStatus[i])
		}
	}
	if _, ok := responses[1].(map[string]any)["error"]; !ok {
		t.Error("expected error record for the missing index")
	}
}

func TestMultiSearch_RejectsWholeBatch(t *testing.T) {
	tests := []struct {
		name   string
		target string
		body   string
	}{
		{"no index", "/_elastic/_msearch", "{}\n{}\n"},
		{"missing body", "/_elastic/_msearch", `{"index":"logs"}` + "\n"},
		{"zero concurrency", "/_elastic/_msearch?max_concurrent_searches=0", `{"index":"logs"}` + "\n{}\n"},
		{"bad concurrency", "/_elastic/_msearch?max_concurrent_searches=x", `{"index":"logs"}` + "\n{}\n"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			backend := &fakeBackend{}
			h := newTestRouter(t, backend, nil)

			rr, _ := serve(t, h, http.MethodPost, tc.target, tc.body)
			if rr.Code != http.StatusBadRequest {
				t.Errorf("status = %d, body = %s", rr.Code, rr.Body.String())
			}
			if len(backend.requests) != 0 {
				t.Error("backend must not be called")
			}
		})
	}
}

// --- Misc ---

func TestHealthCheck(t *testing.T) {
	rr, body := serve(t, newTestRouter(t, &fakeBackend{}, nil), http.MethodGet, "/health", "")
	if rr.Code != http.StatusOK || body["status"] != "ok" {
		t.Errorf("healthy: %d %v", rr.Code, body)
	}

	rr, body = serve(t, newTestRouter(t, &fakeBackend{}, errors.New("down")), http.MethodGet, "/health", "")
	if rr.Code != http.StatusServiceUnavailable || body["status"] != "error" {
		t.Errorf("unhealthy: %d %v", rr.Code, body)
	}
}

func TestRoutes_UnknownAndWrongMethod(t *testing.T) {
	h := newTestRouter(t, &fakeBackend{}, nil)

	rr, body := serve(t, h, http.MethodGet, "/_cat/indices", "")
	if rr.Code != http.StatusNotFound {
		t.Errorf("unknown route: %d", rr.Code)
	}
	if typ, _ := errorType(t, body); typ != "resource_not_found_exception" {
		t.Errorf("unknown route type = %q", typ)
	}

	rr, _ = serve(t, h, http.MethodPut, "/_elastic/logs/_search", "")
	if rr.Code != http.StatusMethodNotAllowed {
		t.Errorf("wrong method: %d", rr.Code)
	}
}
