package chi

import (
	"net/url"
	"strconv"

	"github.com/kailas-cloud/esgate/internal/domain"
	"github.com/kailas-cloud/esgate/internal/domain/elastic"
	"github.com/kailas-cloud/esgate/internal/domain/search/queryast"
)

// searchParamsFromQuery binds the query string of a search request.
// A present but blank q still takes precedence over the body.
func searchParamsFromQuery(v url.Values) (elastic.SearchQueryParams, error) {
	var p elastic.SearchQueryParams

	if v.Has("q") {
		q := v.Get("q")
		p.Q = &q
	}
	if raw := v.Get("default_operator"); raw != "" {
		op, err := queryast.ParseOperator(raw)
		if err != nil {
			return elastic.SearchQueryParams{}, domain.InvalidArgument(
				"Failed to parse parameter [default_operator] with value [%s]", raw)
		}
		p.DefaultOperator = &op
	}

	var err error
	if p.Size, err = intParam(v, "size"); err != nil {
		return elastic.SearchQueryParams{}, err
	}
	if p.From, err = intParam(v, "from"); err != nil {
		return elastic.SearchQueryParams{}, err
	}
	p.Sort = v["sort"]

	return p, nil
}

func multiSearchParamsFromQuery(v url.Values) (elastic.MultiSearchQueryParams, error) {
	n, err := intParam(v, "max_concurrent_searches")
	if err != nil {
		return elastic.MultiSearchQueryParams{}, err
	}
	return elastic.MultiSearchQueryParams{MaxConcurrentSearches: n}, nil
}

func intParam(v url.Values, name string) (*int, error) {
	raw := v.Get(name)
	if raw == "" {
		return nil, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return nil, domain.InvalidArgument("Failed to parse int parameter [%s] with value [%s]", name, raw)
	}
	return &n, nil
}
