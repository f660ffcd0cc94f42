package elastic

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// SearchBody is the JSON body of a search request.
// Unknown keys such as track_total_hits or _source are accepted and ignored.
type SearchBody struct {
	Query        *QueryDSL                  `json:"query,omitempty"`
	Aggs         map[string]json.RawMessage `json:"aggs,omitempty"`
	Aggregations map[string]json.RawMessage `json:"aggregations,omitempty"`
	Size         *int                       `json:"size,omitempty"`
	From         *int                       `json:"from,omitempty"`
	Sort         SortList                   `json:"sort,omitempty"`
}

// AggregationRequest returns the raw aggregation request; "aggs" wins over its "aggregations" alias.
func (b *SearchBody) AggregationRequest() map[string]json.RawMessage {
	if len(b.Aggs) > 0 {
		return b.Aggs
	}
	return b.Aggregations
}

// DecodeSearchBody parses a search body. An empty payload yields an empty body.
func DecodeSearchBody(data []byte) (SearchBody, error) {
	var body SearchBody
	if len(bytes.TrimSpace(data)) == 0 {
		return body, nil
	}
	if err := json.Unmarshal(data, &body); err != nil {
		return SearchBody{}, fmt.Errorf("decode search body: %w", err)
	}
	return body, nil
}
