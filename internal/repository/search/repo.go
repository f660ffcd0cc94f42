// Package search runs internal queries against the RediSearch store.
package search

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/kailas-cloud/esgate/internal/db"
	"github.com/kailas-cloud/esgate/internal/domain"
	domindex "github.com/kailas-cloud/esgate/internal/domain/index"
	"github.com/kailas-cloud/esgate/internal/domain/index/field"
	"github.com/kailas-cloud/esgate/internal/domain/search/queryast"
	"github.com/kailas-cloud/esgate/internal/domain/search/request"
	"github.com/kailas-cloud/esgate/internal/domain/search/result"
	"github.com/kailas-cloud/esgate/internal/repository/index"
)

// jsonRoot is the attribute FT.SEARCH returns the whole JSON document under.
const jsonRoot = "$"

// store is the consumer interface for search operations (ISP).
type store interface {
	Search(ctx context.Context, q *db.SearchQuery) (*db.SearchResult, error)
	Aggregate(ctx context.Context, q *db.AggregateQuery) (*db.AggregateResult, error)
}

// Repo serves internal queries from FT indexes.
// Indexes that are not declared are searched as JSON without a schema.
type Repo struct {
	store   store
	naming  index.Naming
	schemas map[string]domindex.Index
}

// New creates a search repository for the declared indexes.
func New(s store, naming index.Naming, indexes []domindex.Index) *Repo {
	schemas := make(map[string]domindex.Index, len(indexes))
	for _, idx := range indexes {
		schemas[idx.Name()] = idx
	}
	return &Repo{store: s, naming: naming, schemas: schemas}
}

func (r *Repo) schema(name string) domindex.Index {
	if idx, ok := r.schemas[name]; ok {
		return idx
	}
	return domindex.Reconstruct(name, domindex.StorageJSON, nil)
}

// Search runs one internal query and, when requested, its aggregations.
func (r *Repo) Search(ctx context.Context, req request.Request) (result.Result, error) {
	schema := r.schema(req.IndexID())

	ast, err := queryast.Parse(req.QueryAST())
	if err != nil {
		return result.Result{}, domain.InvalidQuery("%v", err)
	}
	c := &compiler{schema: schema}
	cq, err := c.compile(ast)
	if err != nil {
		return result.Result{}, domain.InvalidQuery("%v", err)
	}

	var aggs []aggregation
	if raw, ok := req.AggregationRequest(); ok {
		if aggs, err = parseAggregations(raw); err != nil {
			return result.Result{}, err
		}
	}

	if cq.none {
		res := result.New(nil, 0)
		if len(aggs) > 0 {
			payload, err := emptyAggregations(aggs)
			if err != nil {
				return result.Result{}, err
			}
			res = res.WithAggregation(payload)
		}
		return res, nil
	}

	q := &db.SearchQuery{
		IndexName: r.naming.IndexName(schema.Name()),
		Query:     cq.expr,
		Offset:    req.StartOffset(),
		Limit:     req.MaxHits(),
	}
	if schema.Storage() == domindex.StorageJSON {
		q.ReturnFields = []string{jsonRoot}
	}
	if f, order, ok := req.SortBy(); ok && f != "_score" && f != "_doc" {
		q.SortBy = f
		q.SortDesc = order == request.SortDesc
	}

	sr, err := r.store.Search(ctx, q)
	if err != nil {
		return result.Result{}, r.mapError(schema.Name(), err)
	}

	hits := make([]result.Hit, 0, len(sr.Entries))
	for _, e := range sr.Entries {
		doc, err := document(schema, e)
		if err != nil {
			return result.Result{}, domain.WrapBackendError(http.StatusInternalServerError,
				"search_phase_execution_exception", "failed to decode document", err)
		}
		hits = append(hits, result.NewHit(doc))
	}
	res := result.New(hits, uint64(sr.Total))

	if len(aggs) > 0 {
		payload, err := r.aggregate(ctx, schema, cq.expr, uint64(sr.Total), aggs)
		if err != nil {
			return result.Result{}, err
		}
		res = res.WithAggregation(payload)
	}
	return res, nil
}

func (r *Repo) mapError(indexName string, err error) error {
	if errors.Is(err, db.ErrIndexNotFound) {
		return domain.NewBackendError(http.StatusNotFound, "index_not_found_exception",
			fmt.Sprintf("no such index [%s]", indexName))
	}
	return domain.WrapBackendError(http.StatusInternalServerError,
		"search_phase_execution_exception", "all shards failed", err)
}

// document renders a stored entry as a JSON object. JSON documents are returned
// verbatim; hash documents are rebuilt with numeric fields as numbers.
func document(schema domindex.Index, e db.SearchEntry) (string, error) {
	if doc, ok := e.Fields[jsonRoot]; ok {
		return doc, nil
	}

	obj := make(map[string]any, len(e.Fields))
	for name, v := range e.Fields {
		if f, ok := schema.FieldByName(name); ok && f.FieldType() == field.Numeric {
			if n, err := strconv.ParseFloat(v, 64); err == nil {
				obj[name] = n
				continue
			}
		}
		obj[name] = v
	}
	b, err := json.Marshal(obj)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
