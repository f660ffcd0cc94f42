package redis

import (
	"context"
	"fmt"
	"strconv"

	"github.com/redis/rueidis"

	"github.com/kailas-cloud/esgate/internal/db"
)

// Search runs a paginated query via FT.SEARCH.
func (s *Store) Search(ctx context.Context, q *db.SearchQuery) (*db.SearchResult, error) {
	if q.IndexName == "" {
		return nil, fmt.Errorf("index name is required")
	}
	if q.Query == "" {
		return nil, fmt.Errorf("query is required")
	}
	if q.Offset < 0 || q.Limit < 0 {
		return nil, fmt.Errorf("offset and limit must not be negative")
	}

	raw, err := s.command(ctx, db.OpSearch, buildSearchArgs(q)...).ToArray()
	if err != nil {
		if isUnknownIndex(err) {
			return nil, db.ErrIndexNotFound
		}
		return nil, wrap(db.OpSearch, err)
	}

	return parseSearchResult(raw)
}

// Aggregate runs a grouped reduction via FT.AGGREGATE.
func (s *Store) Aggregate(ctx context.Context, q *db.AggregateQuery) (*db.AggregateResult, error) {
	if q.IndexName == "" {
		return nil, fmt.Errorf("index name is required")
	}
	if q.Query == "" {
		return nil, fmt.Errorf("query is required")
	}
	if len(q.Reducers) == 0 {
		return nil, fmt.Errorf("at least one reducer is required")
	}

	raw, err := s.command(ctx, db.OpAggregate, buildAggregateArgs(q)...).ToArray()
	if err != nil {
		if isUnknownIndex(err) {
			return nil, db.ErrIndexNotFound
		}
		return nil, wrap(db.OpAggregate, err)
	}

	return parseAggregateResult(raw), nil
}

func buildSearchArgs(q *db.SearchQuery) []string {
	args := []string{q.IndexName, q.Query}

	if len(q.ReturnFields) > 0 {
		args = append(args, "RETURN", strconv.Itoa(len(q.ReturnFields)))
		args = append(args, q.ReturnFields...)
	}

	if q.SortBy != "" {
		args = append(args, "SORTBY", q.SortBy, direction(q.SortDesc))
	}

	return append(args,
		"LIMIT", strconv.Itoa(q.Offset), strconv.Itoa(q.Limit),
		"DIALECT", "2",
	)
}

func buildAggregateArgs(q *db.AggregateQuery) []string {
	args := []string{q.IndexName, q.Query}

	args = append(args, "GROUPBY", strconv.Itoa(len(q.GroupBy)))
	for _, f := range q.GroupBy {
		args = append(args, "@"+f)
	}

	for _, r := range q.Reducers {
		args = append(args, "REDUCE", r.Func, strconv.Itoa(len(r.Args)))
		args = append(args, r.Args...)
		if r.As != "" {
			args = append(args, "AS", r.As)
		}
	}

	if q.SortBy != "" {
		args = append(args, "SORTBY", "2", "@"+q.SortBy, direction(q.SortDesc))
	}
	if q.Limit > 0 {
		args = append(args, "LIMIT", "0", strconv.Itoa(q.Limit))
	}

	return append(args, "DIALECT", "2")
}

func direction(desc bool) string {
	if desc {
		return "DESC"
	}
	return "ASC"
}

// --- Result parsing ---

func parseSearchResult(raw []rueidis.RedisMessage) (*db.SearchResult, error) {
	if len(raw) == 0 {
		return &db.SearchResult{}, nil
	}

	total, err := raw[0].AsInt64()
	if err != nil {
		return nil, fmt.Errorf("parse total: %w", err)
	}
	if total == 0 {
		return &db.SearchResult{}, nil
	}

	entries := make([]db.SearchEntry, 0, (len(raw)-1)/2)
	// 2-stride: [total, key1, fields1, key2, fields2, ...]
	for i := 1; i+1 < len(raw); i += 2 {
		key, err := raw[i].ToString()
		if err != nil {
			continue
		}

		fields, err := raw[i+1].ToArray()
		if err != nil {
			continue
		}

		entries = append(entries, db.SearchEntry{
			Key:    key,
			Fields: parseFieldPairs(fields),
		})
	}

	return &db.SearchResult{Total: int(total), Entries: entries}, nil
}

// parseAggregateResult reads [count, row1, row2, ...] where each row is a flat pair list.
func parseAggregateResult(raw []rueidis.RedisMessage) *db.AggregateResult {
	res := &db.AggregateResult{}
	for i := 1; i < len(raw); i++ {
		fields, err := raw[i].ToArray()
		if err != nil {
			continue
		}
		res.Rows = append(res.Rows, parseFieldPairs(fields))
	}
	return res
}

func parseFieldPairs(fields []rueidis.RedisMessage) map[string]string {
	m := make(map[string]string, len(fields)/2)
	for j := 0; j+1 < len(fields); j += 2 {
		name, err := fields[j].ToString()
		if err != nil {
			continue
		}
		value, err := fields[j+1].ToString()
		if err != nil {
			continue
		}
		m[name] = value
	}
	return m
}
