package search

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"

	"golang.org/x/sync/errgroup"

	"github.com/kailas-cloud/esgate/internal/db"
	"github.com/kailas-cloud/esgate/internal/domain"
	domindex "github.com/kailas-cloud/esgate/internal/domain/index"
	"github.com/kailas-cloud/esgate/internal/domain/index/field"
)

const defaultTermsSize = 10

// Aggregation types.
const (
	aggTerms       = "terms"
	aggAvg         = "avg"
	aggMin         = "min"
	aggMax         = "max"
	aggSum         = "sum"
	aggValueCount  = "value_count"
	aggCardinality = "cardinality"
)

// reducers maps metric aggregations to FT.AGGREGATE reducer functions.
var reducers = map[string]string{
	aggAvg:         "AVG",
	aggMin:         "MIN",
	aggMax:         "MAX",
	aggSum:         "SUM",
	aggValueCount:  "COUNT",
	aggCardinality: "COUNT_DISTINCT",
}

type aggregation struct {
	name  string
	kind  string
	field string
	size  int
}

// parseAggregations reads a serialized "aggs" object. Results are ordered by name.
func parseAggregations(raw string) ([]aggregation, error) {
	var named map[string]map[string]json.RawMessage
	if err := json.Unmarshal([]byte(raw), &named); err != nil {
		return nil, domain.InvalidQuery("Failed to parse aggregations: %v", err)
	}

	out := make([]aggregation, 0, len(named))
	for name, body := range named {
		agg, err := parseAggregation(name, body)
		if err != nil {
			return nil, err
		}
		out = append(out, agg)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].name < out[j].name })
	return out, nil
}

func parseAggregation(name string, body map[string]json.RawMessage) (aggregation, error) {
	agg := aggregation{name: name}
	for key, value := range body {
		switch key {
		case "meta":
			continue
		case "aggs", "aggregations":
			return aggregation{}, domain.NotSupported("Sub-aggregations are not supported. Got [%s]", name)
		}
		if agg.kind != "" {
			return aggregation{}, domain.InvalidQuery(
				"Found two aggregation type definitions in [%s]: [%s] and [%s]", name, agg.kind, key)
		}
		if key != aggTerms {
			if _, ok := reducers[key]; !ok {
				return aggregation{}, domain.NotSupported("Aggregation type [%s] is not supported. Got [%s]", key, name)
			}
		}

		var opts struct {
			Field string `json:"field"`
			Size  *int   `json:"size"`
		}
		if err := json.Unmarshal(value, &opts); err != nil {
			return aggregation{}, domain.InvalidQuery("Failed to parse aggregation [%s]: %v", name, err)
		}
		if opts.Field == "" {
			return aggregation{}, domain.InvalidQuery("Required [field] is missing in aggregation [%s]", name)
		}
		agg.kind, agg.field, agg.size = key, opts.Field, defaultTermsSize
		if opts.Size != nil {
			if *opts.Size < 1 {
				return aggregation{}, domain.InvalidQuery("[size] must be greater than 0. Found [%d] in [%s]", *opts.Size, name)
			}
			agg.size = *opts.Size
		}
	}
	if agg.kind == "" {
		return aggregation{}, domain.InvalidQuery("Missing definition for aggregation [%s]", name)
	}
	return agg, nil
}

// aggregate runs every aggregation over the matched documents and serializes
// them into one Elasticsearch "aggregations" object.
func (r *Repo) aggregate(
	ctx context.Context, schema domindex.Index, expr string, total uint64, aggs []aggregation,
) (string, error) {
	values := make([]any, len(aggs))
	c := &compiler{schema: schema}

	g, gctx := errgroup.WithContext(ctx)
	for i, agg := range aggs {
		g.Go(func() error {
			q := &db.AggregateQuery{
				IndexName: r.naming.IndexName(schema.Name()),
				Query:     expr,
			}
			if agg.kind == aggTerms {
				q.GroupBy = []string{agg.field}
				q.Reducers = []db.Reducer{{Func: "COUNT", As: "doc_count"}}
				q.SortBy, q.SortDesc, q.Limit = "doc_count", true, agg.size
			} else {
				q.Reducers = []db.Reducer{metricReducer(agg)}
				if agg.kind == aggValueCount {
					q.Query = withExists(expr, c.exists(agg.field).expr)
				}
			}

			res, err := r.store.Aggregate(gctx, q)
			if err != nil {
				return r.mapError(schema.Name(), err)
			}
			if agg.kind == aggTerms {
				values[i] = termsBuckets(schema, agg, res.Rows, total)
			} else {
				values[i] = metricValue(agg, res.Rows)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return "", err
	}
	return marshalAggregations(aggs, values)
}

func metricReducer(agg aggregation) db.Reducer {
	if agg.kind == aggValueCount {
		return db.Reducer{Func: "COUNT", As: "value"}
	}
	return db.Reducer{Func: reducers[agg.kind], Args: []string{"@" + agg.field}, As: "value"}
}

func withExists(expr, exists string) string {
	if expr == matchAll.expr {
		return exists
	}
	return wrap(expr) + " " + exists
}

type termsBucket struct {
	Key      any    `json:"key"`
	DocCount uint64 `json:"doc_count"`
}

type termsResult struct {
	DocCountErrorUpperBound uint64        `json:"doc_count_error_upper_bound"`
	SumOtherDocCount        uint64        `json:"sum_other_doc_count"`
	Buckets                 []termsBucket `json:"buckets"`
}

type metricResult struct {
	Value *float64 `json:"value"`
}

func termsBuckets(schema domindex.Index, agg aggregation, rows []map[string]string, total uint64) termsResult {
	numeric := false
	if f, ok := schema.FieldByName(agg.field); ok {
		numeric = f.FieldType() == field.Numeric
	}

	out := termsResult{Buckets: []termsBucket{}}
	var counted uint64
	for _, row := range rows {
		key, ok := row[agg.field]
		if !ok || key == "" {
			continue
		}
		n, err := strconv.ParseUint(row["doc_count"], 10, 64)
		if err != nil {
			continue
		}
		b := termsBucket{Key: key, DocCount: n}
		if numeric {
			if f, err := strconv.ParseFloat(key, 64); err == nil {
				b.Key = f
			}
		}
		out.Buckets = append(out.Buckets, b)
		counted += n
	}
	if total > counted {
		out.SumOtherDocCount = total - counted
	}
	return out
}

// metricValue reads the single reduced row. Counts default to 0, other
// metrics to null when no document has the field.
func metricValue(agg aggregation, rows []map[string]string) metricResult {
	var v *float64
	if len(rows) > 0 {
		if f, err := strconv.ParseFloat(rows[0]["value"], 64); err == nil && !math.IsNaN(f) && !math.IsInf(f, 0) {
			v = &f
		}
	}
	if v == nil && zeroWhenEmpty(agg.kind) {
		zero := 0.0
		v = &zero
	}
	return metricResult{Value: v}
}

func zeroWhenEmpty(kind string) bool {
	return kind == aggSum || kind == aggValueCount || kind == aggCardinality
}

// emptyAggregations renders aggregations over no documents.
func emptyAggregations(aggs []aggregation) (string, error) {
	values := make([]any, len(aggs))
	for i, agg := range aggs {
		if agg.kind == aggTerms {
			values[i] = termsResult{Buckets: []termsBucket{}}
		} else {
			values[i] = metricValue(agg, nil)
		}
	}
	return marshalAggregations(aggs, values)
}

func marshalAggregations(aggs []aggregation, values []any) (string, error) {
	out := make(map[string]any, len(aggs))
	for i, agg := range aggs {
		out[agg.name] = values[i]
	}
	b, err := json.Marshal(out)
	if err != nil {
		return "", fmt.Errorf("marshal aggregations: %w", err)
	}
	return string(b), nil
}
