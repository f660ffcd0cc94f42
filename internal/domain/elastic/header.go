package elastic

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// IndexList accepts "idx", "a,b" or ["a", "b"].
type IndexList []string

// UnmarshalJSON implements json.Unmarshaler.
func (l *IndexList) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*l = nil
		return nil
	}
	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		var out IndexList
		for _, part := range strings.Split(single, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
		*l = out
		return nil
	}
	var many []string
	if err := json.Unmarshal(data, &many); err != nil {
		return fmt.Errorf("index must be a string or a list of strings: %w", err)
	}
	*l = many
	return nil
}

// MultiSearchHeader is the header line of a multi-search record.
// Besides index, the controls are accepted for compatibility and have no effect.
type MultiSearchHeader struct {
	Index             IndexList       `json:"index"`
	AllowNoIndices    *bool           `json:"allow_no_indices,omitempty"`
	ExpandWildcards   json.RawMessage `json:"expand_wildcards,omitempty"`
	IgnoreUnavailable *bool           `json:"ignore_unavailable,omitempty"`
	Routing           json.RawMessage `json:"routing,omitempty"`
	Preference        string          `json:"preference,omitempty"`
	SearchType        string          `json:"search_type,omitempty"`
	RequestCache      *bool           `json:"request_cache,omitempty"`
}

// SearchQueryParams derives the per-record query parameters.
// Header controls never override body fields, so the result is always empty.
func (h MultiSearchHeader) SearchQueryParams() SearchQueryParams {
	return SearchQueryParams{}
}
