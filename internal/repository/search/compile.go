package search

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	domindex "github.com/kailas-cloud/esgate/internal/domain/index"
	"github.com/kailas-cloud/esgate/internal/domain/index/field"
	"github.com/kailas-cloud/esgate/internal/domain/search/queryast"
)

// compiled is a query in RediSearch syntax. none marks a query that matches no
// document; the engine has no syntax for it, so callers skip the round trip.
type compiled struct {
	expr string
	none bool
}

var (
	matchAll  = compiled{expr: "*"}
	matchNone = compiled{none: true}
)

func (c compiled) all() bool { return !c.none && c.expr == "*" }

// compiler turns a query tree into RediSearch syntax for one index. Fields the
// schema does not declare are typed from their values: numbers are numeric,
// anything else is a tag (exact) or text (analyzed), depending on the clause.
type compiler struct {
	schema domindex.Index
}

func (c *compiler) compile(q queryast.Query) (compiled, error) {
	switch q.Type {
	case queryast.TypeMatchAll:
		return matchAll, nil
	case queryast.TypeMatchNone:
		return matchNone, nil
	case queryast.TypeUserInput:
		return c.userInput(q.UserText, q.Operator, q.DefaultFields)
	case queryast.TypeTerm:
		return c.term(q.Field, q.Value)
	case queryast.TypeTermSet:
		return c.termSet(q.Field, q.Values)
	case queryast.TypeFullText:
		return c.fullText(q.Field, q.Text, q.Operator)
	case queryast.TypePhrase:
		return c.phrase(q.Field, q.Text)
	case queryast.TypeRange:
		return c.rangeQuery(q.Field, q.Lower, q.Upper)
	case queryast.TypeExists:
		return c.exists(q.Field), nil
	case queryast.TypeBool:
		return c.boolQuery(q)
	default:
		return compiled{}, fmt.Errorf("unsupported query type %q", q.Type)
	}
}

func (c *compiler) kind(name, sample string, fallback field.Type) field.Type {
	if f, ok := c.schema.FieldByName(name); ok {
		return f.FieldType()
	}
	if looksNumeric(sample) {
		return field.Numeric
	}
	return fallback
}

func looksNumeric(s string) bool {
	if !strings.ContainsAny(s, "0123456789") {
		return false
	}
	_, err := number(s)
	return err == nil
}

func (c *compiler) term(name, value string) (compiled, error) {
	attr := "@" + escapeField(name)
	switch c.kind(name, value, field.Tag) {
	case field.Numeric:
		n, err := number(value)
		if err != nil {
			return compiled{}, fmt.Errorf("term on %q: %q is not a number", name, value)
		}
		return compiled{expr: fmt.Sprintf("%s:[%s %s]", attr, n, n)}, nil
	case field.Text:
		return compiled{expr: fmt.Sprintf(`%s:"%s"`, attr, escapeText(value))}, nil
	default:
		return compiled{expr: fmt.Sprintf("%s:{%s}", attr, escapeTag(value))}, nil
	}
}

func (c *compiler) termSet(name string, values []string) (compiled, error) {
	if len(values) == 0 {
		return matchNone, nil
	}
	attr := "@" + escapeField(name)
	parts := make([]string, 0, len(values))

	switch c.kind(name, values[0], field.Tag) {
	case field.Numeric:
		for _, v := range values {
			n, err := number(v)
			if err != nil {
				return compiled{}, fmt.Errorf("terms on %q: %q is not a number", name, v)
			}
			parts = append(parts, fmt.Sprintf("%s:[%s %s]", attr, n, n))
		}
		return compiled{expr: "(" + strings.Join(parts, " | ") + ")"}, nil
	case field.Text:
		for _, v := range values {
			parts = append(parts, `"`+escapeText(v)+`"`)
		}
		return compiled{expr: fmt.Sprintf("%s:(%s)", attr, strings.Join(parts, " | "))}, nil
	default:
		for _, v := range values {
			parts = append(parts, escapeTag(v))
		}
		return compiled{expr: fmt.Sprintf("%s:{%s}", attr, strings.Join(parts, " | "))}, nil
	}
}

// fullText analyzes text fields only; tag and numeric fields match the whole value.
func (c *compiler) fullText(name, text string, op queryast.Operator) (compiled, error) {
	if c.kind(name, "", field.Text) != field.Text {
		return c.term(name, text)
	}
	words := strings.Fields(text)
	if len(words) == 0 {
		return matchNone, nil
	}
	for i, w := range words {
		words[i] = escapeText(w)
	}
	return compiled{expr: fmt.Sprintf("@%s:(%s)", escapeField(name), strings.Join(words, separator(op)))}, nil
}

func (c *compiler) phrase(name, text string) (compiled, error) {
	if c.kind(name, "", field.Text) != field.Text {
		return c.term(name, text)
	}
	if strings.TrimSpace(text) == "" {
		return matchNone, nil
	}
	return compiled{expr: fmt.Sprintf(`@%s:"%s"`, escapeField(name), escapeText(text))}, nil
}

func (c *compiler) rangeQuery(name string, lower, upper *queryast.Bound) (compiled, error) {
	sample := ""
	if lower != nil {
		sample = lower.Value
	} else if upper != nil {
		sample = upper.Value
	}
	if k := c.kind(name, sample, field.Numeric); k != field.Numeric {
		return compiled{}, fmt.Errorf("range on %q: %s fields do not support ranges", name, k)
	}

	lo, err := rangeBound(name, lower, "-inf")
	if err != nil {
		return compiled{}, err
	}
	hi, err := rangeBound(name, upper, "+inf")
	if err != nil {
		return compiled{}, err
	}
	return compiled{expr: fmt.Sprintf("@%s:[%s %s]", escapeField(name), lo, hi)}, nil
}

func rangeBound(name string, b *queryast.Bound, open string) (string, error) {
	if b == nil {
		return open, nil
	}
	n, err := number(b.Value)
	if err != nil {
		return "", fmt.Errorf("range on %q: %q is not a number", name, b.Value)
	}
	if !b.Inclusive {
		return "(" + n, nil
	}
	return n, nil
}

func (c *compiler) exists(name string) compiled {
	attr := "@" + escapeField(name)
	if c.kind(name, "", field.Tag) == field.Numeric {
		return compiled{expr: attr + ":[-inf +inf]"}
	}
	return compiled{expr: "-ismissing(" + attr + ")"}
}

// boolQuery combines clauses. Filter behaves like must. Should clauses only
// restrict the result when there is no must or filter clause.
func (c *compiler) boolQuery(q queryast.Query) (compiled, error) {
	var parts []string

	required := append(append([]queryast.Query{}, q.Must...), q.Filter...)
	for _, sub := range required {
		cq, err := c.compile(sub)
		if err != nil {
			return compiled{}, err
		}
		if cq.none {
			return matchNone, nil
		}
		if !cq.all() {
			parts = append(parts, wrap(cq.expr))
		}
	}

	if len(required) == 0 && len(q.Should) > 0 {
		var alts []string
		anyAll := false
		for _, sub := range q.Should {
			cq, err := c.compile(sub)
			if err != nil {
				return compiled{}, err
			}
			switch {
			case cq.none:
			case cq.all():
				anyAll = true
			default:
				alts = append(alts, wrap(cq.expr))
			}
		}
		switch {
		case anyAll:
		case len(alts) == 0:
			return matchNone, nil
		case len(alts) == 1:
			parts = append(parts, alts[0])
		default:
			parts = append(parts, "("+strings.Join(alts, " | ")+")")
		}
	}

	for _, sub := range q.MustNot {
		cq, err := c.compile(sub)
		if err != nil {
			return compiled{}, err
		}
		if cq.none {
			continue
		}
		if cq.all() {
			return matchNone, nil
		}
		parts = append(parts, "-"+wrap(cq.expr))
	}

	if len(parts) == 0 {
		return matchAll, nil
	}
	return compiled{expr: strings.Join(parts, " ")}, nil
}

func separator(op queryast.Operator) string {
	if op == queryast.OperatorAnd {
		return " "
	}
	return " | "
}

// wrap parenthesizes compound expressions so they keep their meaning when combined.
func wrap(expr string) string {
	if !strings.ContainsAny(expr, " |") {
		return expr
	}
	if strings.HasPrefix(expr, "(") && strings.HasSuffix(expr, ")") && balanced(expr[1:len(expr)-1]) {
		return expr
	}
	return "(" + expr + ")"
}

func balanced(s string) bool {
	depth := 0
	escaped := false
	for _, r := range s {
		switch {
		case escaped:
			escaped = false
		case r == '\\':
			escaped = true
		case r == '(':
			depth++
		case r == ')':
			depth--
			if depth < 0 {
				return false
			}
		}
	}
	return depth == 0
}

// number normalizes a numeric literal for range syntax.
func number(s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", fmt.Errorf("empty number")
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return "", err
	}
	switch {
	case math.IsNaN(f):
		return "", fmt.Errorf("not a number")
	case math.IsInf(f, 1):
		return "+inf", nil
	case math.IsInf(f, -1):
		return "-inf", nil
	}
	return strconv.FormatFloat(f, 'f', -1, 64), nil
}
