package search

import (
	"encoding/json"
	"strings"

	"github.com/kailas-cloud/esgate/internal/domain"
	"github.com/kailas-cloud/esgate/internal/domain/elastic"
	"github.com/kailas-cloud/esgate/internal/domain/search/queryast"
	"github.com/kailas-cloud/esgate/internal/domain/search/request"
)

// Translate maps an Elasticsearch-style search onto the internal request.
//
// The q parameter always wins over body.query; without either the query matches
// everything. Query-string size/from/sort win over their body counterparts.
func Translate(
	indexID string, params elastic.SearchQueryParams, body elastic.SearchBody,
) (request.Request, error) {
	ast, err := translateQuery(params, body)
	if err != nil {
		return request.Request{}, err
	}
	serialized, err := queryast.Marshal(ast)
	if err != nil {
		return request.Request{}, domain.InvalidQuery("%v", err)
	}

	maxHits := request.DefaultMaxHits
	if params.Size != nil {
		maxHits = *params.Size
	} else if body.Size != nil {
		maxHits = *body.Size
	}
	startOffset := request.DefaultStartOffset
	if params.From != nil {
		startOffset = *params.From
	} else if body.From != nil {
		startOffset = *body.From
	}

	req, err := request.New(indexID, serialized, maxHits, startOffset)
	if err != nil {
		return request.Request{}, domain.InvalidArgument("%v", err)
	}

	if aggs := body.AggregationRequest(); len(aggs) > 0 {
		// Unserializable aggregations are dropped and the search runs without them.
		if b, err := json.Marshal(aggs); err == nil {
			req = req.WithAggregation(string(b))
		}
	}

	sortFields, err := params.SortFields()
	if err != nil {
		return request.Request{}, err
	}
	if len(sortFields) == 0 {
		sortFields = body.Sort
	}
	if len(sortFields) >= 2 {
		return request.Request{}, domain.InvalidArgument(
			"Only one sort field is supported at the moment. Got %v", sortFields)
	}
	if len(sortFields) == 1 {
		req = req.WithSort(sortFields[0].Field, sortFields[0].Order)
	}

	return req, nil
}

func translateQuery(params elastic.SearchQueryParams, body elastic.SearchBody) (queryast.Query, error) {
	if params.Q != nil {
		if strings.TrimSpace(*params.Q) == "" {
			return queryast.MatchAll(), nil
		}
		op := queryast.OperatorOr
		if params.DefaultOperator != nil {
			op = *params.DefaultOperator
		}
		return queryast.UserInput(*params.Q, op, nil), nil
	}
	if body.Query != nil {
		ast, err := body.Query.ToAST()
		if err != nil {
			return queryast.Query{}, domain.InvalidQuery("%v", err)
		}
		return ast, nil
	}
	return queryast.MatchAll(), nil
}
