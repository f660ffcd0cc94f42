package chi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/esgate/internal/domain"
	"github.com/kailas-cloud/esgate/internal/domain/elastic"
	logpkg "github.com/kailas-cloud/esgate/internal/logger"
	healthuc "github.com/kailas-cloud/esgate/internal/usecase/health"
	msearchuc "github.com/kailas-cloud/esgate/internal/usecase/msearch"
	searchuc "github.com/kailas-cloud/esgate/internal/usecase/search"
)

// DefaultMaxBodyBytes caps request bodies when no limit is configured.
const DefaultMaxBodyBytes = 10 << 20

// Server serves the Elasticsearch-compatible search endpoints.
type Server struct {
	search       *searchuc.Service
	msearch      *msearchuc.Service
	health       *healthuc.Service
	logger       *zap.Logger
	metrics      http.Handler
	maxBodyBytes int64
}

// NewServer creates an HTTP API server.
func NewServer(
	search *searchuc.Service,
	msearch *msearchuc.Service,
	health *healthuc.Service,
	logger *zap.Logger,
) *Server {
	return &Server{
		search:       search,
		msearch:      msearch,
		health:       health,
		logger:       logger,
		metrics:      promhttp.Handler(),
		maxBodyBytes: DefaultMaxBodyBytes,
	}
}

// WithMaxBodyBytes overrides the request body limit. Non-positive values keep the default.
func (s *Server) WithMaxBodyBytes(n int64) *Server {
	if n > 0 {
		s.maxBodyBytes = n
	}
	return s
}

// Routes mounts the API on r.
func (s *Server) Routes(r chi.Router) {
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		s.writeError(w, r, domain.NewBackendError(http.StatusNotFound, "resource_not_found_exception",
			fmt.Sprintf("no handler found for uri [%s] and method [%s]", r.URL.Path, r.Method)))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		s.writeError(w, r, domain.NewBackendError(http.StatusMethodNotAllowed, "method_not_allowed_exception",
			fmt.Sprintf("Incorrect HTTP method for uri [%s] and method [%s]", r.URL.Path, r.Method)))
	})

	r.Route("/_elastic", func(r chi.Router) {
		r.Get("/_search", s.SearchAll)
		r.Post("/_search", s.SearchAll)
		r.Post("/_msearch", s.MultiSearch)
		r.Get("/{index}/_search", s.Search)
		r.Post("/{index}/_search", s.Search)
	})
	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)
}

// SearchAll handles GET|POST /_elastic/_search.
func (s *Server) SearchAll(w http.ResponseWriter, r *http.Request) {
	params, err := searchParamsFromQuery(r.URL.Query())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeError(w, r, s.search.SearchAll(r.Context(), params))
}

// Search handles GET|POST /_elastic/{index}/_search.
func (s *Server) Search(w http.ResponseWriter, r *http.Request) {
	index := chi.URLParam(r, "index")

	params, err := searchParamsFromQuery(r.URL.Query())
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	raw, err := s.readBody(w, r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	body, err := elastic.DecodeSearchBody(raw)
	if err != nil {
		s.writeError(w, r, domain.InvalidArgument("Failed to parse request body: %v", err))
		return
	}

	resp, err := s.search.Search(r.Context(), index, params, body)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// MultiSearch handles POST /_elastic/_msearch.
func (s *Server) MultiSearch(w http.ResponseWriter, r *http.Request) {
	params, err := multiSearchParamsFromQuery(r.URL.Query())
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	raw, err := s.readBody(w, r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	resp, err := s.msearch.Search(r.Context(), params, raw)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

type healthResponse struct {
	Status healthuc.Status                 `json:"status"`
	Checks map[string]healthuc.CheckResult `json:"checks"`
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	status := http.StatusOK
	if report.Status != healthuc.Healthy {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, healthResponse{Status: report.Status, Checks: report.Checks})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	s.metrics.ServeHTTP(w, r)
}

func (s *Server) readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.maxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, domain.NewBackendError(http.StatusRequestEntityTooLarge, "content_too_long_exception",
				fmt.Sprintf("request body is larger than %d bytes", tooLarge.Limit))
		}
		return nil, domain.InvalidArgument("Failed to read request body: %v", err)
	}
	return raw, nil
}

// writeError renders err as an Elasticsearch error body. Server-side failures
// are logged with their cause; client errors only at debug level.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	resp := elastic.RenderError(err)

	logger := logpkg.FromContextOr(r.Context(), s.logger)
	if resp.Status >= http.StatusInternalServerError && resp.Status != http.StatusNotImplemented {
		logger.Error("Request failed", zap.Int("status", resp.Status), zap.Error(err))
	} else {
		logger.Debug("Request rejected", zap.Int("status", resp.Status), zap.String("type", resp.Error.Type), zap.Error(err))
	}

	writeJSON(w, resp.Status, resp)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
