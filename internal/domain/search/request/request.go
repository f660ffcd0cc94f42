package request

import "fmt"

// Pagination defaults.
const (
	DefaultMaxHits     = 10
	DefaultStartOffset = 0
)

// SortOrder is the numeric sort direction understood by the backend.
type SortOrder int32

// Sort directions.
const (
	SortAsc  SortOrder = 0
	SortDesc SortOrder = 1
)

func (o SortOrder) String() string {
	if o == SortDesc {
		return "desc"
	}
	return "asc"
}

// Request is the canonical query the backend accepts. All request paths converge here.
type Request struct {
	indexID            string
	queryAST           string
	maxHits            int
	startOffset        int
	aggregationRequest *string
	sortByField        *string
	sortOrder          *SortOrder
}

// New creates a request for one index. queryAST is the serialized query tree.
func New(indexID, queryAST string, maxHits, startOffset int) (Request, error) {
	if indexID == "" {
		return Request{}, fmt.Errorf("index id is required")
	}
	if queryAST == "" {
		return Request{}, fmt.Errorf("query ast is required")
	}
	if maxHits < 0 {
		return Request{}, fmt.Errorf("size must be non-negative, got %d", maxHits)
	}
	if startOffset < 0 {
		return Request{}, fmt.Errorf("from must be non-negative, got %d", startOffset)
	}
	return Request{
		indexID:     indexID,
		queryAST:    queryAST,
		maxHits:     maxHits,
		startOffset: startOffset,
	}, nil
}

// WithAggregation attaches a serialized aggregation request.
func (r Request) WithAggregation(aggs string) Request {
	r.aggregationRequest = &aggs
	return r
}

// WithSort sets the single sort field.
func (r Request) WithSort(field string, order SortOrder) Request {
	r.sortByField = &field
	r.sortOrder = &order
	return r
}

// IndexID returns the target index.
func (r Request) IndexID() string { return r.indexID }

// QueryAST returns the serialized query tree.
func (r Request) QueryAST() string { return r.queryAST }

// MaxHits returns the page size.
func (r Request) MaxHits() int { return r.maxHits }

// StartOffset returns the result offset.
func (r Request) StartOffset() int { return r.startOffset }

// AggregationRequest returns the serialized aggregation request, if any.
func (r Request) AggregationRequest() (string, bool) {
	if r.aggregationRequest == nil {
		return "", false
	}
	return *r.aggregationRequest, true
}

// SortBy returns the sort field and direction, if any.
func (r Request) SortBy() (string, SortOrder, bool) {
	if r.sortByField == nil || r.sortOrder == nil {
		return "", SortAsc, false
	}
	return *r.sortByField, *r.sortOrder, true
}
