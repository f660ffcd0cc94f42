package result

import "time"

// Hit is one matched document as stored by the backend.
type Hit struct {
	json string
}

// NewHit wraps a raw document payload.
func NewHit(json string) Hit { return Hit{json: json} }

// JSON returns the raw document payload.
func (h Hit) JSON() string { return h.json }

// Result is the backend's answer to one query, hits in final ranked order.
type Result struct {
	hits        []Hit
	total       uint64
	aggregation *string
}

// New creates a search result.
func New(hits []Hit, total uint64) Result {
	return Result{hits: hits, total: total}
}

// WithAggregation attaches the serialized aggregation payload.
func (r Result) WithAggregation(payload string) Result {
	r.aggregation = &payload
	return r
}

// Hits returns the matched documents.
func (r Result) Hits() []Hit { return r.hits }

// Total returns the total match count.
func (r Result) Total() uint64 { return r.total }

// Aggregation returns the serialized aggregation payload, if any.
func (r Result) Aggregation() (string, bool) {
	if r.aggregation == nil {
		return "", false
	}
	return *r.aggregation, true
}

// Outcome is the result of one dispatched query: a result with its latency, or an error.
type Outcome struct {
	result Result
	took   time.Duration
	err    error
}

// Succeeded creates a successful outcome.
func Succeeded(r Result, took time.Duration) Outcome { return Outcome{result: r, took: took} }

// Failed creates a failed outcome.
func Failed(err error) Outcome { return Outcome{err: err} }

// Result returns the search result (zero on failure).
func (o Outcome) Result() Result { return o.result }

// Took returns the measured backend latency (zero on failure).
func (o Outcome) Took() time.Duration { return o.took }

// Err returns the failure, if any.
func (o Outcome) Err() error { return o.err }
