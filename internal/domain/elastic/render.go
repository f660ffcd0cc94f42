package elastic

import (
	"bytes"
	"encoding/json"
	"net/http"
	"time"

	"github.com/kailas-cloud/esgate/internal/domain"
	"github.com/kailas-cloud/esgate/internal/domain/search/result"
)

var emptySource = json.RawMessage(`{}`)

// RenderSearch converts a backend result. took is reported in whole milliseconds.
func RenderSearch(res result.Result, took time.Duration) SearchResponse {
	hits := make([]Hit, 0, len(res.Hits()))
	for _, h := range res.Hits() {
		hits = append(hits, RenderHit(h))
	}
	return SearchResponse{
		Took:     uint32(took.Milliseconds()),
		TimedOut: false,
		Hits: HitsMetadata{
			Total: &TotalHits{Value: res.Total(), Relation: RelationEqual},
			Hits:  hits,
		},
		Aggregations: renderAggregations(res),
	}
}

// RenderHit exposes the raw document as _source, and as fields when it is an object.
// Only an invalid payload renders as an empty source.
func RenderHit(h result.Hit) Hit {
	raw := []byte(h.JSON())
	if !json.Valid(raw) {
		return Hit{Source: emptySource}
	}
	var fields map[string]any
	if err := json.Unmarshal(raw, &fields); err != nil {
		fields = nil
	}
	return Hit{
		Source: json.RawMessage(raw),
		Fields: fields,
	}
}

func renderAggregations(res result.Result) json.RawMessage {
	payload, ok := res.Aggregation()
	if !ok {
		return nil
	}
	trimmed := bytes.TrimSpace([]byte(payload))
	if len(trimmed) == 0 || !json.Valid(trimmed) {
		return nil
	}
	if bytes.Equal(trimmed, []byte("null")) || bytes.Equal(trimmed, []byte("{}")) {
		return nil
	}
	return json.RawMessage(trimmed)
}

// RenderError maps any error to its wire body. Unclassified errors never leak their message.
func RenderError(err error) ErrorResponse {
	e := domain.AsError(err)
	return ErrorResponse{
		Status: e.StatusCode(),
		Error:  ErrorCause{Type: e.TypeName(), Reason: e.Message},
	}
}

// RenderMultiSearch maps dispatch outcomes to records, keeping their order.
func RenderMultiSearch(outcomes []result.Outcome) MultiSearchResponse {
	items := make([]MultiSearchItem, len(outcomes))
	for i, o := range outcomes {
		if o.Err() != nil {
			rendered := RenderError(o.Err())
			items[i] = MultiSearchItem{Status: rendered.Status, Error: &rendered.Error}
			continue
		}
		resp := RenderSearch(o.Result(), o.Took())
		items[i] = MultiSearchItem{Status: http.StatusOK, Response: &resp}
	}
	return MultiSearchResponse{Responses: items}
}
