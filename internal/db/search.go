package db

// SearchQuery is the input for FT.SEARCH.
type SearchQuery struct {
	IndexName string
	Query     string
	Offset    int
	Limit     int
	// SortBy is empty for relevance order.
	SortBy       string
	SortDesc     bool
	ReturnFields []string
}

// SearchResult is the output of a search operation.
type SearchResult struct {
	Total   int
	Entries []SearchEntry
}

// SearchEntry is a single document hit from a search.
type SearchEntry struct {
	Key    string
	Fields map[string]string
}

// Reducer is one REDUCE clause of FT.AGGREGATE.
type Reducer struct {
	Func string // COUNT, AVG, MIN, MAX, SUM, COUNT_DISTINCT
	Args []string
	As   string
}

// AggregateQuery is the input for FT.AGGREGATE.
type AggregateQuery struct {
	IndexName string
	Query     string
	// GroupBy holds field names without the "@" sigil. Empty groups all rows together.
	GroupBy  []string
	Reducers []Reducer
	// SortBy names a reducer alias or field; empty keeps engine order.
	SortBy   string
	SortDesc bool
	// Limit caps the returned rows; zero means no LIMIT clause.
	Limit int
}

// AggregateResult is the output of FT.AGGREGATE, one map per row.
type AggregateResult struct {
	Rows []map[string]string
}
