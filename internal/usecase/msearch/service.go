// Package msearch runs newline-delimited multi-search batches.
package msearch

import (
	"context"

	"go.uber.org/zap"

	"github.com/kailas-cloud/esgate/internal/domain"
	"github.com/kailas-cloud/esgate/internal/domain/elastic"
	logpkg "github.com/kailas-cloud/esgate/internal/logger"
	"github.com/kailas-cloud/esgate/internal/metrics"
	"github.com/kailas-cloud/esgate/internal/usecase/search"
)

// DefaultMaxConcurrentSearches applies when the request does not set max_concurrent_searches.
const DefaultMaxConcurrentSearches = 10

// Service handles multi-search batches.
type Service struct {
	backend           search.Backend
	defaultConcurrent int
}

// New creates a multi-search service. A non-positive default falls back to
// DefaultMaxConcurrentSearches.
func New(backend search.Backend, defaultConcurrent int) *Service {
	if defaultConcurrent <= 0 {
		defaultConcurrent = DefaultMaxConcurrentSearches
	}
	return &Service{backend: backend, defaultConcurrent: defaultConcurrent}
}

// Search parses the batch, runs every record and renders the envelope in
// request order. A malformed batch fails as a whole; per-record backend
// failures become error records.
func (s *Service) Search(
	ctx context.Context, params elastic.MultiSearchQueryParams, raw []byte,
) (elastic.MultiSearchResponse, error) {
	limit := s.defaultConcurrent
	if params.MaxConcurrentSearches != nil {
		limit = *params.MaxConcurrentSearches
		if limit <= 0 {
			return elastic.MultiSearchResponse{}, domain.InvalidArgument(
				"max_concurrent_searches must be a positive integer. Got %d", limit)
		}
	}

	reqs, err := Parse(raw)
	if err != nil {
		return elastic.MultiSearchResponse{}, err
	}
	metrics.MultiSearchRecords.Observe(float64(len(reqs)))

	outcomes := Dispatch(ctx, s.backend, reqs, limit)

	failed := 0
	for _, o := range outcomes {
		if o.Err() != nil {
			failed++
			metrics.MultiSearchErrorsTotal.WithLabelValues(domain.AsError(o.Err()).TypeName()).Inc()
		}
	}
	logpkg.FromContext(ctx).Debug("Multi-search completed",
		zap.Int("records", len(reqs)),
		zap.Int("failed", failed),
		zap.Int("max_concurrent_searches", limit),
	)

	return elastic.RenderMultiSearch(outcomes), nil
}
