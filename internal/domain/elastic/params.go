package elastic

import (
	"strings"

	"github.com/kailas-cloud/esgate/internal/domain"
	"github.com/kailas-cloud/esgate/internal/domain/search/queryast"
	"github.com/kailas-cloud/esgate/internal/domain/search/request"
)

// SearchQueryParams are the query-string parameters of a search request.
type SearchQueryParams struct {
	Q               *string
	DefaultOperator *queryast.Operator
	Size            *int
	From            *int
	// Sort holds raw "field[:asc|desc]" entries; each may be comma-separated.
	Sort []string
}

// SortFields parses the sort mini-syntax. An empty result means no sort was given.
func (p SearchQueryParams) SortFields() ([]SortField, error) {
	var fields []SortField
	for _, raw := range p.Sort {
		for _, part := range strings.Split(raw, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			f, err := parseSortToken(part)
			if err != nil {
				return nil, err
			}
			fields = append(fields, f)
		}
	}
	return fields, nil
}

func parseSortToken(token string) (SortField, error) {
	idx := strings.LastIndex(token, ":")
	if idx < 0 {
		return newSortField(token, nil), nil
	}
	name, dir := token[:idx], token[idx+1:]
	if name == "" {
		return SortField{}, domain.InvalidArgument("Invalid sort parameter %q: field name is empty", token)
	}
	order, err := parseSortOrder(dir)
	if err != nil {
		return SortField{}, domain.InvalidArgument("Invalid sort parameter %q: %v", token, err)
	}
	return newSortField(name, &order), nil
}

// MultiSearchQueryParams are the query-string parameters of a multi-search request.
type MultiSearchQueryParams struct {
	MaxConcurrentSearches *int
}

// DefaultSortOrder is ascending, except for the relevance score.
func DefaultSortOrder(field string) request.SortOrder {
	if field == "_score" {
		return request.SortDesc
	}
	return request.SortAsc
}
