package msearch

import (
	"bytes"
	"encoding/json"
	"fmt"
	"unicode/utf8"

	"github.com/kailas-cloud/esgate/internal/domain"
	"github.com/kailas-cloud/esgate/internal/domain/elastic"
	"github.com/kailas-cloud/esgate/internal/domain/search/request"
	"github.com/kailas-cloud/esgate/internal/usecase/search"
)

// snippetLen bounds the offending line echoed back in parse errors.
const snippetLen = 20

// Parse splits a newline-delimited batch into translated requests.
// Records alternate header and body lines; blank lines are ignored.
// The first malformed record rejects the whole batch.
func Parse(raw []byte) ([]request.Request, error) {
	if !utf8.Valid(raw) {
		return nil, domain.InvalidQuery("Invalid UTF-8: %s", invalidUTF8Detail(raw))
	}

	lines := lineReader{data: raw}
	var reqs []request.Request

	for {
		line, ok := lines.next()
		if !ok {
			return reqs, nil
		}
		header, err := parseHeader(line)
		if err != nil {
			return nil, err
		}
		indexID, err := singleIndex(header)
		if err != nil {
			return nil, err
		}
		line, ok = lines.next()
		if !ok {
			return nil, domain.InvalidArgument("Expect request body after request header")
		}
		body, err := parseBody(line)
		if err != nil {
			return nil, err
		}

		req, err := search.Translate(indexID, header.SearchQueryParams(), body)
		if err != nil {
			return nil, err
		}
		reqs = append(reqs, req)
	}
}

// lineReader yields trimmed non-blank lines one at a time, sharing raw's backing array.
type lineReader struct {
	data []byte
	pos  int
}

func (r *lineReader) next() ([]byte, bool) {
	for r.pos < len(r.data) {
		rest := r.data[r.pos:]
		end := bytes.IndexByte(rest, '\n')
		if end < 0 {
			end = len(rest)
			r.pos = len(r.data)
		} else {
			r.pos += end + 1
		}
		if line := bytes.TrimSpace(rest[:end]); len(line) > 0 {
			return line, true
		}
	}
	return nil, false
}

func parseHeader(line []byte) (elastic.MultiSearchHeader, error) {
	var header elastic.MultiSearchHeader
	if err := json.Unmarshal(line, &header); err != nil {
		return elastic.MultiSearchHeader{}, domain.InvalidArgument(
			"Failed to parse request header `%s...`: %v", truncate(line), err)
	}
	return header, nil
}

func singleIndex(header elastic.MultiSearchHeader) (string, error) {
	switch len(header.Index) {
	case 0:
		return "", domain.InvalidArgument("`_msearch` must define one `index` in the request header. Got none.")
	case 1:
		return header.Index[0], nil
	default:
		return "", domain.InvalidArgument(
			"Searching only one index is supported for now. Got %q", []string(header.Index))
	}
}

func parseBody(line []byte) (elastic.SearchBody, error) {
	body, err := elastic.DecodeSearchBody(line)
	if err != nil {
		return elastic.SearchBody{}, domain.InvalidArgument(
			"Failed to parse request body `%s...`: %v", truncate(line), err)
	}
	return body, nil
}

// truncate keeps at most snippetLen runes.
func truncate(line []byte) string {
	s := string(line)
	n := 0
	for i := range s {
		if n == snippetLen {
			return s[:i]
		}
		n++
	}
	return s
}

func invalidUTF8Detail(raw []byte) string {
	offset := 0
	for offset < len(raw) {
		r, size := utf8.DecodeRune(raw[offset:])
		if r == utf8.RuneError && size <= 1 {
			break
		}
		offset += size
	}
	return fmt.Sprintf("invalid utf-8 sequence from index %d", offset)
}
