package elastic

import (
	"encoding/json"
	"net/http"
)

// TotalHitsRelation tells whether hits.total is exact or a lower bound.
type TotalHitsRelation string

// Total hits relations.
const (
	RelationEqual              TotalHitsRelation = "eq"
	RelationGreaterThanOrEqual TotalHitsRelation = "gte"
)

// SearchResponse is the body of a successful search.
type SearchResponse struct {
	Took         uint32          `json:"took"`
	TimedOut     bool            `json:"timed_out"`
	Shards       ShardStatistics `json:"_shards"`
	Hits         HitsMetadata    `json:"hits"`
	Aggregations json.RawMessage `json:"aggregations,omitempty"`
}

// ShardStatistics is reported for wire compatibility only.
type ShardStatistics struct {
	Total      uint32 `json:"total"`
	Successful uint32 `json:"successful"`
	Skipped    uint32 `json:"skipped"`
	Failed     uint32 `json:"failed"`
}

// HitsMetadata wraps the hit list.
type HitsMetadata struct {
	Total    *TotalHits `json:"total,omitempty"`
	MaxScore *float64   `json:"max_score"`
	Hits     []Hit      `json:"hits"`
}

// TotalHits is the total match count.
type TotalHits struct {
	Value    uint64            `json:"value"`
	Relation TotalHitsRelation `json:"relation"`
}

// Hit is one rendered document.
type Hit struct {
	Index  string          `json:"_index"`
	ID     string          `json:"_id"`
	Score  *float64        `json:"_score"`
	Source json.RawMessage `json:"_source"`
	Fields map[string]any  `json:"fields,omitempty"`
}

// ErrorCause describes a failure.
type ErrorCause struct {
	Type   string `json:"type"`
	Reason string `json:"reason"`
}

// ErrorResponse is the body of a failed request.
type ErrorResponse struct {
	Status int        `json:"status"`
	Error  ErrorCause `json:"error"`
}

// MultiSearchItem is one record outcome of a multi-search: a response or an error.
type MultiSearchItem struct {
	Status   int
	Response *SearchResponse
	Error    *ErrorCause
}

// MarshalJSON flattens the response next to its status, as the dialect expects.
func (i MultiSearchItem) MarshalJSON() ([]byte, error) {
	if i.Error != nil {
		return json.Marshal(ErrorResponse{Status: i.Status, Error: *i.Error})
	}
	resp := i.Response
	if resp == nil {
		resp = &SearchResponse{}
	}
	status := i.Status
	if status == 0 {
		status = http.StatusOK
	}
	return json.Marshal(struct {
		Status int `json:"status"`
		*SearchResponse
	}{Status: status, SearchResponse: resp})
}

// MultiSearchResponse is the body of a multi-search, one item per record in input order.
type MultiSearchResponse struct {
	Responses []MultiSearchItem `json:"responses"`
}
