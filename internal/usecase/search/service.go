package search

import (
	"context"
	"fmt"
	"time"

	"github.com/kailas-cloud/esgate/internal/domain"
	"github.com/kailas-cloud/esgate/internal/domain/elastic"
)

// NotSupportedMessage is returned by the index-less search endpoint.
const NotSupportedMessage = "_elastic/_search is not supported yet. " +
	"Please try the index search endpoint (_elastic/{index}/search)"

// Service handles single-index searches.
type Service struct {
	backend Backend
	now     func() time.Time
}

// New creates a search service.
func New(backend Backend) *Service {
	return &Service{backend: backend, now: time.Now}
}

// Search translates the request, runs it once and renders the answer.
// took covers the backend call only.
func (s *Service) Search(
	ctx context.Context, indexID string, params elastic.SearchQueryParams, body elastic.SearchBody,
) (elastic.SearchResponse, error) {
	req, err := Translate(indexID, params, body)
	if err != nil {
		return elastic.SearchResponse{}, err
	}

	start := s.now()
	res, err := s.backend.Search(ctx, req)
	if err != nil {
		return elastic.SearchResponse{}, fmt.Errorf("search %s: %w", indexID, err)
	}
	took := s.now().Sub(start)

	return elastic.RenderSearch(res, took), nil
}

// SearchAll is the index-less search endpoint. It is not supported.
func (s *Service) SearchAll(_ context.Context, _ elastic.SearchQueryParams) error {
	return domain.NotSupported(NotSupportedMessage)
}
