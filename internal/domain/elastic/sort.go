package elastic

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/kailas-cloud/esgate/internal/domain/search/request"
)

// SortField is one sort criterion.
type SortField struct {
	Field string
	Order request.SortOrder
}

func newSortField(name string, order *request.SortOrder) SortField {
	if order == nil {
		return SortField{Field: name, Order: DefaultSortOrder(name)}
	}
	return SortField{Field: name, Order: *order}
}

func (f SortField) String() string { return f.Field + ":" + f.Order.String() }

func parseSortOrder(s string) (request.SortOrder, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "asc":
		return request.SortAsc, nil
	case "desc":
		return request.SortDesc, nil
	default:
		return request.SortAsc, fmt.Errorf("unknown sort order %q, expected asc or desc", s)
	}
}

// SortList is the body "sort" value. It accepts a single criterion or an array of
// criteria, each written as "field", {"field": "desc"} or {"field": {"order": "desc"}}.
type SortList []SortField

// UnmarshalJSON implements json.Unmarshaler.
func (l *SortList) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*l = nil
		return nil
	}
	var items []json.RawMessage
	if len(data) > 0 && data[0] == '[' {
		if err := json.Unmarshal(data, &items); err != nil {
			return fmt.Errorf("sort: %w", err)
		}
	} else {
		items = []json.RawMessage{data}
	}

	out := make(SortList, 0, len(items))
	for _, item := range items {
		fields, err := parseSortItem(item)
		if err != nil {
			return err
		}
		out = append(out, fields...)
	}
	*l = out
	return nil
}

func parseSortItem(item json.RawMessage) ([]SortField, error) {
	var name string
	if err := json.Unmarshal(item, &name); err == nil {
		return []SortField{newSortField(name, nil)}, nil
	}

	entries, err := orderedObject(item)
	if err != nil {
		return nil, fmt.Errorf("sort: expected a field name or an object: %w", err)
	}
	fields := make([]SortField, 0, len(entries))
	for _, e := range entries {
		order, err := parseSortSpec(e.value)
		if err != nil {
			return nil, fmt.Errorf("sort on %q: %w", e.key, err)
		}
		fields = append(fields, newSortField(e.key, order))
	}
	return fields, nil
}

// parseSortSpec reads "desc" or {"order": "desc", ...}. Options other than order are ignored.
func parseSortSpec(spec json.RawMessage) (*request.SortOrder, error) {
	var dir string
	if err := json.Unmarshal(spec, &dir); err == nil {
		o, err := parseSortOrder(dir)
		if err != nil {
			return nil, err
		}
		return &o, nil
	}
	var opts struct {
		Order *string `json:"order"`
	}
	if err := json.Unmarshal(spec, &opts); err != nil {
		return nil, fmt.Errorf("invalid sort options: %w", err)
	}
	if opts.Order == nil {
		return nil, nil
	}
	o, err := parseSortOrder(*opts.Order)
	if err != nil {
		return nil, err
	}
	return &o, nil
}

type objectEntry struct {
	key   string
	value json.RawMessage
}

// orderedObject decodes a JSON object keeping key order.
func orderedObject(data []byte) ([]objectEntry, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, fmt.Errorf("expected object")
	}
	var entries []objectEntry
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("expected object key")
		}
		var value json.RawMessage
		if err := dec.Decode(&value); err != nil {
			return nil, err
		}
		entries = append(entries, objectEntry{key: key, value: value})
	}
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	return entries, nil
}
