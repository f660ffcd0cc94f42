// Package queryast is the dialect-independent query tree accepted by the search backend.
package queryast

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Type tags a Query node.
type Type string

// Node types.
const (
	TypeMatchAll  Type = "match_all"
	TypeMatchNone Type = "match_none"
	TypeUserInput Type = "user_input"
	TypeTerm      Type = "term"
	TypeTermSet   Type = "term_set"
	TypeFullText  Type = "full_text"
	TypePhrase    Type = "phrase"
	TypeRange     Type = "range"
	TypeExists    Type = "exists"
	TypeBool      Type = "bool"
)

// Operator is the boolean operator joining terms of a text query.
type Operator string

// Boolean operators.
const (
	OperatorOr  Operator = "OR"
	OperatorAnd Operator = "AND"
)

// ParseOperator accepts "or"/"and" in any case.
func ParseOperator(s string) (Operator, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "OR":
		return OperatorOr, nil
	case "AND":
		return OperatorAnd, nil
	default:
		return "", fmt.Errorf("unknown boolean operator %q, expected AND or OR", s)
	}
}

// Bound is one end of a range. Value holds the literal as written.
type Bound struct {
	Value     string `json:"value"`
	Inclusive bool   `json:"inclusive"`
}

// Query is a node of the query tree. Only the fields relevant to Type are set.
type Query struct {
	Type Type `json:"type"`

	// user_input
	UserText      string   `json:"user_text,omitempty"`
	DefaultFields []string `json:"default_fields,omitempty"`

	// term, term_set, full_text, phrase, range, exists
	Field  string   `json:"field,omitempty"`
	Value  string   `json:"value,omitempty"`
	Values []string `json:"values,omitempty"`
	Text   string   `json:"text,omitempty"`

	// user_input, full_text
	Operator Operator `json:"operator,omitempty"`

	// range
	Lower *Bound `json:"lower_bound,omitempty"`
	Upper *Bound `json:"upper_bound,omitempty"`

	// bool
	Must    []Query `json:"must,omitempty"`
	Should  []Query `json:"should,omitempty"`
	MustNot []Query `json:"must_not,omitempty"`
	Filter  []Query `json:"filter,omitempty"`
}

// MatchAll matches every document.
func MatchAll() Query { return Query{Type: TypeMatchAll} }

// MatchNone matches no document.
func MatchNone() Query { return Query{Type: TypeMatchNone} }

// UserInput is free text parsed by the backend's default query parser.
func UserInput(text string, op Operator, defaultFields []string) Query {
	if op == "" {
		op = OperatorOr
	}
	return Query{Type: TypeUserInput, UserText: text, Operator: op, DefaultFields: defaultFields}
}

// Term matches an exact value.
func Term(field, value string) Query {
	return Query{Type: TypeTerm, Field: field, Value: value}
}

// TermSet matches any of the exact values.
func TermSet(field string, values []string) Query {
	return Query{Type: TypeTermSet, Field: field, Values: values}
}

// FullText matches analyzed text joined by op.
func FullText(field, text string, op Operator) Query {
	if op == "" {
		op = OperatorOr
	}
	return Query{Type: TypeFullText, Field: field, Text: text, Operator: op}
}

// Phrase matches an exact phrase.
func Phrase(field, text string) Query {
	return Query{Type: TypePhrase, Field: field, Text: text}
}

// Range matches values between optional bounds.
func Range(field string, lower, upper *Bound) Query {
	return Query{Type: TypeRange, Field: field, Lower: lower, Upper: upper}
}

// Exists matches documents with a value for field.
func Exists(field string) Query {
	return Query{Type: TypeExists, Field: field}
}

// Bool combines clauses. Filter behaves like Must.
func Bool(must, should, mustNot, filter []Query) Query {
	return Query{Type: TypeBool, Must: must, Should: should, MustNot: mustNot, Filter: filter}
}

// Validate checks the node and its children for required fields.
func (q *Query) Validate() error {
	switch q.Type {
	case TypeMatchAll, TypeMatchNone:
		return nil
	case TypeUserInput:
		if q.UserText == "" {
			return fmt.Errorf("user_input: text is required")
		}
	case TypeTerm:
		if q.Field == "" {
			return fmt.Errorf("term: field is required")
		}
	case TypeTermSet:
		if q.Field == "" || len(q.Values) == 0 {
			return fmt.Errorf("term_set: field and values are required")
		}
	case TypeFullText, TypePhrase:
		if q.Field == "" {
			return fmt.Errorf("%s: field is required", q.Type)
		}
	case TypeRange:
		if q.Field == "" {
			return fmt.Errorf("range: field is required")
		}
		if q.Lower == nil && q.Upper == nil {
			return fmt.Errorf("range on %q: at least one bound is required", q.Field)
		}
	case TypeExists:
		if q.Field == "" {
			return fmt.Errorf("exists: field is required")
		}
	case TypeBool:
		for _, group := range [][]Query{q.Must, q.Should, q.MustNot, q.Filter} {
			for i := range group {
				if err := group[i].Validate(); err != nil {
					return err
				}
			}
		}
	default:
		return fmt.Errorf("unknown query type %q", q.Type)
	}
	return nil
}

// Marshal serializes the tree.
func Marshal(q Query) (string, error) {
	if err := q.Validate(); err != nil {
		return "", err
	}
	b, err := json.Marshal(q)
	if err != nil {
		return "", fmt.Errorf("marshal query ast: %w", err)
	}
	return string(b), nil
}

// Parse decodes and validates a serialized tree.
func Parse(s string) (Query, error) {
	var q Query
	if err := json.Unmarshal([]byte(s), &q); err != nil {
		return Query{}, fmt.Errorf("parse query ast: %w", err)
	}
	if err := q.Validate(); err != nil {
		return Query{}, err
	}
	return q, nil
}
