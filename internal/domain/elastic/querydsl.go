package elastic

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/kailas-cloud/esgate/internal/domain/search/queryast"
)

// QueryDSL is the raw "query" object of a search body. It is decoded lazily by ToAST
// so unsupported clauses surface as query errors rather than body errors.
type QueryDSL struct {
	raw json.RawMessage
}

// NewQueryDSL wraps a raw query object.
func NewQueryDSL(raw []byte) *QueryDSL {
	return &QueryDSL{raw: append(json.RawMessage(nil), raw...)}
}

// UnmarshalJSON implements json.Unmarshaler.
func (q *QueryDSL) UnmarshalJSON(data []byte) error {
	q.raw = append(q.raw[:0], data...)
	return nil
}

// MarshalJSON implements json.Marshaler.
func (q QueryDSL) MarshalJSON() ([]byte, error) {
	if len(q.raw) == 0 {
		return []byte("null"), nil
	}
	return q.raw, nil
}

// ToAST converts the query to the internal query tree.
func (q *QueryDSL) ToAST() (queryast.Query, error) {
	return convertClause(q.raw)
}

// metaKeys are clause options that do not affect matching.
var metaKeys = map[string]struct{}{"boost": {}, "_name": {}}

func convertClause(raw json.RawMessage) (queryast.Query, error) {
	entries, err := orderedObject(raw)
	if err != nil {
		return queryast.Query{}, fmt.Errorf("query clause must be an object: %w", err)
	}
	if len(entries) != 1 {
		return queryast.Query{}, fmt.Errorf("query clause must have exactly one key, got %d", len(entries))
	}
	name, body := entries[0].key, entries[0].value

	switch name {
	case "match_all":
		return queryast.MatchAll(), nil
	case "match_none":
		return queryast.MatchNone(), nil
	case "term":
		return convertTerm(body)
	case "terms":
		return convertTerms(body)
	case "match":
		return convertMatch(body)
	case "match_phrase":
		return convertMatchPhrase(body)
	case "query_string":
		return convertQueryString(body)
	case "range":
		return convertRange(body)
	case "exists":
		return convertExists(body)
	case "bool":
		return convertBool(body)
	default:
		return queryast.Query{}, fmt.Errorf("unsupported query clause %q", name)
	}
}

// fieldEntry returns the single field-keyed entry of a leaf clause such as
// {"status": ...}, ignoring meta options.
func fieldEntry(clause string, body json.RawMessage) (string, json.RawMessage, error) {
	entries, err := orderedObject(body)
	if err != nil {
		return "", nil, fmt.Errorf("%s: expected an object: %w", clause, err)
	}
	var found []objectEntry
	for _, e := range entries {
		if _, meta := metaKeys[e.key]; !meta {
			found = append(found, e)
		}
	}
	if len(found) != 1 {
		return "", nil, fmt.Errorf("%s: expected exactly one field, got %d", clause, len(found))
	}
	return found[0].key, found[0].value, nil
}

// literal renders a JSON scalar as the text the backend matches against.
func literal(v json.RawMessage) (string, error) {
	v = bytes.TrimSpace(v)
	if len(v) == 0 || bytes.Equal(v, []byte("null")) {
		return "", fmt.Errorf("value must not be null")
	}
	switch v[0] {
	case '"':
		var s string
		if err := json.Unmarshal(v, &s); err != nil {
			return "", err
		}
		return s, nil
	case '{', '[':
		return "", fmt.Errorf("value must be a scalar")
	default:
		return string(v), nil
	}
}

func isObject(v json.RawMessage) bool {
	v = bytes.TrimSpace(v)
	return len(v) > 0 && v[0] == '{'
}

func convertTerm(body json.RawMessage) (queryast.Query, error) {
	field, value, err := fieldEntry("term", body)
	if err != nil {
		return queryast.Query{}, err
	}
	if isObject(value) {
		var opts struct {
			Value json.RawMessage `json:"value"`
		}
		if err := json.Unmarshal(value, &opts); err != nil {
			return queryast.Query{}, fmt.Errorf("term on %q: %w", field, err)
		}
		value = opts.Value
	}
	lit, err := literal(value)
	if err != nil {
		return queryast.Query{}, fmt.Errorf("term on %q: %w", field, err)
	}
	return queryast.Term(field, lit), nil
}

func convertTerms(body json.RawMessage) (queryast.Query, error) {
	field, value, err := fieldEntry("terms", body)
	if err != nil {
		return queryast.Query{}, err
	}
	var raws []json.RawMessage
	if err := json.Unmarshal(value, &raws); err != nil {
		return queryast.Query{}, fmt.Errorf("terms on %q: expected an array: %w", field, err)
	}
	if len(raws) == 0 {
		return queryast.MatchNone(), nil
	}
	values := make([]string, 0, len(raws))
	for _, r := range raws {
		lit, err := literal(r)
		if err != nil {
			return queryast.Query{}, fmt.Errorf("terms on %q: %w", field, err)
		}
		values = append(values, lit)
	}
	return queryast.TermSet(field, values), nil
}

type matchOptions struct {
	Query    json.RawMessage `json:"query"`
	Operator string          `json:"operator"`
}

func readMatch(clause string, body json.RawMessage) (string, string, queryast.Operator, error) {
	field, value, err := fieldEntry(clause, body)
	if err != nil {
		return "", "", "", err
	}
	op := queryast.OperatorOr
	if isObject(value) {
		var opts matchOptions
		if err := json.Unmarshal(value, &opts); err != nil {
			return "", "", "", fmt.Errorf("%s on %q: %w", clause, field, err)
		}
		if opts.Operator != "" {
			if op, err = queryast.ParseOperator(opts.Operator); err != nil {
				return "", "", "", fmt.Errorf("%s on %q: %w", clause, field, err)
			}
		}
		value = opts.Query
	}
	text, err := literal(value)
	if err != nil {
		return "", "", "", fmt.Errorf("%s on %q: %w", clause, field, err)
	}
	return field, text, op, nil
}

func convertMatch(body json.RawMessage) (queryast.Query, error) {
	field, text, op, err := readMatch("match", body)
	if err != nil {
		return queryast.Query{}, err
	}
	return queryast.FullText(field, text, op), nil
}

func convertMatchPhrase(body json.RawMessage) (queryast.Query, error) {
	field, text, _, err := readMatch("match_phrase", body)
	if err != nil {
		return queryast.Query{}, err
	}
	return queryast.Phrase(field, text), nil
}

func convertQueryString(body json.RawMessage) (queryast.Query, error) {
	var opts struct {
		Query           string   `json:"query"`
		DefaultField    string   `json:"default_field"`
		Fields          []string `json:"fields"`
		DefaultOperator string   `json:"default_operator"`
	}
	if err := json.Unmarshal(body, &opts); err != nil {
		return queryast.Query{}, fmt.Errorf("query_string: %w", err)
	}
	if strings.TrimSpace(opts.Query) == "" {
		return queryast.Query{}, fmt.Errorf("query_string: query is required")
	}
	op := queryast.OperatorOr
	if opts.DefaultOperator != "" {
		var err error
		if op, err = queryast.ParseOperator(opts.DefaultOperator); err != nil {
			return queryast.Query{}, fmt.Errorf("query_string: %w", err)
		}
	}
	fields := opts.Fields
	if opts.DefaultField != "" && opts.DefaultField != "*" {
		fields = append([]string{opts.DefaultField}, fields...)
	}
	return queryast.UserInput(opts.Query, op, fields), nil
}

func convertRange(body json.RawMessage) (queryast.Query, error) {
	field, value, err := fieldEntry("range", body)
	if err != nil {
		return queryast.Query{}, err
	}
	var opts struct {
		GT  json.RawMessage `json:"gt"`
		GTE json.RawMessage `json:"gte"`
		LT  json.RawMessage `json:"lt"`
		LTE json.RawMessage `json:"lte"`
	}
	if err := json.Unmarshal(value, &opts); err != nil {
		return queryast.Query{}, fmt.Errorf("range on %q: %w", field, err)
	}
	lower, err := bound(opts.GT, opts.GTE)
	if err != nil {
		return queryast.Query{}, fmt.Errorf("range on %q: %w", field, err)
	}
	upper, err := bound(opts.LT, opts.LTE)
	if err != nil {
		return queryast.Query{}, fmt.Errorf("range on %q: %w", field, err)
	}
	if lower == nil && upper == nil {
		return queryast.Query{}, fmt.Errorf("range on %q: at least one of gt, gte, lt, lte is required", field)
	}
	return queryast.Range(field, lower, upper), nil
}

// bound picks the exclusive bound when both forms are given, matching the stricter filter.
func bound(exclusive, inclusive json.RawMessage) (*queryast.Bound, error) {
	if len(exclusive) > 0 {
		v, err := literal(exclusive)
		if err != nil {
			return nil, err
		}
		return &queryast.Bound{Value: v}, nil
	}
	if len(inclusive) > 0 {
		v, err := literal(inclusive)
		if err != nil {
			return nil, err
		}
		return &queryast.Bound{Value: v, Inclusive: true}, nil
	}
	return nil, nil
}

func convertExists(body json.RawMessage) (queryast.Query, error) {
	var opts struct {
		Field string `json:"field"`
	}
	if err := json.Unmarshal(body, &opts); err != nil {
		return queryast.Query{}, fmt.Errorf("exists: %w", err)
	}
	if opts.Field == "" {
		return queryast.Query{}, fmt.Errorf("exists: field is required")
	}
	return queryast.Exists(opts.Field), nil
}

func convertBool(body json.RawMessage) (queryast.Query, error) {
	var opts struct {
		Must    json.RawMessage `json:"must"`
		Should  json.RawMessage `json:"should"`
		MustNot json.RawMessage `json:"must_not"`
		Filter  json.RawMessage `json:"filter"`
	}
	if err := json.Unmarshal(body, &opts); err != nil {
		return queryast.Query{}, fmt.Errorf("bool: %w", err)
	}
	must, err := convertClauses("must", opts.Must)
	if err != nil {
		return queryast.Query{}, err
	}
	should, err := convertClauses("should", opts.Should)
	if err != nil {
		return queryast.Query{}, err
	}
	mustNot, err := convertClauses("must_not", opts.MustNot)
	if err != nil {
		return queryast.Query{}, err
	}
	filter, err := convertClauses("filter", opts.Filter)
	if err != nil {
		return queryast.Query{}, err
	}
	return queryast.Bool(must, should, mustNot, filter), nil
}

// convertClauses accepts a single clause object or an array of clauses.
func convertClauses(group string, raw json.RawMessage) ([]queryast.Query, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, nil
	}
	var items []json.RawMessage
	if raw[0] == '[' {
		if err := json.Unmarshal(raw, &items); err != nil {
			return nil, fmt.Errorf("bool.%s: %w", group, err)
		}
	} else {
		items = []json.RawMessage{raw}
	}
	out := make([]queryast.Query, 0, len(items))
	for _, item := range items {
		q, err := convertClause(item)
		if err != nil {
			return nil, fmt.Errorf("bool.%s: %w", group, err)
		}
		out = append(out, q)
	}
	return out, nil
}
