package search

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/kailas-cloud/esgate/internal/domain/index/field"
	"github.com/kailas-cloud/esgate/internal/domain/search/queryast"
)

// occur is how a free-text clause takes part in the match.
type occur int

const (
	occurShould occur = iota
	occurMust
	occurMustNot
)

type userTerm struct {
	expr  string
	occur occur
}

// userInput compiles free text in a Lucene-like syntax:
//
//	word "a phrase" field:value field:"a phrase" field:* field:>=10
//	field:[1 TO 5] field:{1 TO *} +required -excluded NOT excluded prefix*
//
// Unmarked terms are required under AND and optional under OR. An explicit
// AND makes both of its neighbours required; an explicit OR makes both
// optional. Excluded terms always exclude. Optional terms only narrow the
// result when nothing is required. Bare terms search defaultFields, or every
// text field when none are given.
func (c *compiler) userInput(text string, op queryast.Operator, defaultFields []string) (compiled, error) {
	var (
		terms    []userTerm
		explicit queryast.Operator
		negate   bool
	)

	for _, tok := range splitUserInput(text) {
		switch tok {
		case "AND", "&&":
			explicit = queryast.OperatorAnd
			continue
		case "OR", "||":
			explicit = queryast.OperatorOr
			continue
		case "NOT":
			negate = true
			continue
		}
		required := false
		if len(tok) > 1 && (tok[0] == '-' || tok[0] == '!') {
			negate = true
			tok = tok[1:]
		} else if len(tok) > 1 && tok[0] == '+' {
			required = true
			tok = tok[1:]
		}

		expr, err := c.userClause(tok, defaultFields)
		if err != nil {
			return compiled{}, err
		}

		// The conjunction also rewrites the previous clause unless it is excluded.
		if n := len(terms); n > 0 && terms[n-1].occur != occurMustNot {
			switch {
			case explicit == queryast.OperatorAnd:
				terms[n-1].occur = occurMust
			case explicit == queryast.OperatorOr && op == queryast.OperatorAnd:
				terms[n-1].occur = occurShould
			}
		}

		t := userTerm{expr: expr, occur: occurShould}
		switch {
		case negate:
			t.occur = occurMustNot
		case required || explicit == queryast.OperatorAnd:
			t.occur = occurMust
		case op == queryast.OperatorAnd && explicit != queryast.OperatorOr:
			t.occur = occurMust
		}
		terms = append(terms, t)
		explicit, negate = "", false
	}

	return joinUserTerms(terms), nil
}

// joinUserTerms renders "required (optional | ...) -excluded".
func joinUserTerms(terms []userTerm) compiled {
	var must, should, mustNot []string
	for _, t := range terms {
		switch t.occur {
		case occurMust:
			must = append(must, t.expr)
		case occurMustNot:
			mustNot = append(mustNot, "-"+wrap(t.expr))
		default:
			should = append(should, t.expr)
		}
	}

	parts := must
	if len(must) == 0 && len(should) > 0 {
		alts := strings.Join(should, " | ")
		if len(should) > 1 && len(mustNot) > 0 {
			alts = "(" + alts + ")"
		}
		parts = append(parts, alts)
	}
	parts = append(parts, mustNot...)

	if len(parts) == 0 {
		return matchAll
	}
	return compiled{expr: strings.Join(parts, " ")}
}

func (c *compiler) userClause(tok string, defaultFields []string) (string, error) {
	name, value, ok := splitFieldValue(tok)
	if !ok {
		return bareTerm(tok, defaultFields), nil
	}

	var (
		cq  compiled
		err error
	)
	switch {
	case value == "*":
		cq = c.exists(name)
	case value[0] == '[' || value[0] == '{':
		cq, err = c.bracketRange(name, value)
	case strings.HasPrefix(value, ">") || strings.HasPrefix(value, "<"):
		cq, err = c.comparison(name, value)
	case isQuoted(value):
		cq, err = c.phrase(name, unquote(value))
	default:
		cq, err = c.fieldTerm(name, value)
	}
	if err != nil {
		return "", err
	}
	if cq.none {
		return "", fmt.Errorf("%s: empty value in %q", name, tok)
	}
	return cq.expr, nil
}

// fieldTerm matches a single unquoted value. Text fields analyze it and accept
// a trailing '*' as a prefix query.
func (c *compiler) fieldTerm(name, value string) (compiled, error) {
	if c.kind(name, value, field.Text) != field.Text {
		return c.term(name, value)
	}
	return compiled{expr: fmt.Sprintf("@%s:(%s)", escapeField(name), textWord(value))}, nil
}

func (c *compiler) bracketRange(name, value string) (compiled, error) {
	closing := value[len(value)-1]
	if len(value) < 2 || (closing != ']' && closing != '}') {
		return compiled{}, fmt.Errorf("range on %q: unterminated range %q", name, value)
	}
	parts := strings.Fields(value[1 : len(value)-1])
	if len(parts) != 3 || parts[1] != "TO" {
		return compiled{}, fmt.Errorf("range on %q: expected [lower TO upper], got %q", name, value)
	}

	var lower, upper *queryast.Bound
	if parts[0] != "*" {
		lower = &queryast.Bound{Value: parts[0], Inclusive: value[0] == '['}
	}
	if parts[2] != "*" {
		upper = &queryast.Bound{Value: parts[2], Inclusive: closing == ']'}
	}
	return c.rangeQuery(name, lower, upper)
}

func (c *compiler) comparison(name, value string) (compiled, error) {
	var (
		opLen     = 1
		inclusive = false
	)
	if strings.HasPrefix(value[1:], "=") {
		opLen, inclusive = 2, true
	}
	b := &queryast.Bound{Value: value[opLen:], Inclusive: inclusive}
	if value[0] == '>' {
		return c.rangeQuery(name, b, nil)
	}
	return c.rangeQuery(name, nil, b)
}

func bareTerm(tok string, defaultFields []string) string {
	var expr string
	if isQuoted(tok) {
		expr = `"` + escapeText(unquote(tok)) + `"`
	} else {
		expr = textWord(tok)
	}
	if len(defaultFields) == 0 {
		return expr
	}
	names := make([]string, len(defaultFields))
	for i, f := range defaultFields {
		names[i] = escapeField(f)
	}
	return fmt.Sprintf("@%s:(%s)", strings.Join(names, "|"), expr)
}

func textWord(w string) string {
	if len(w) > 1 && strings.HasSuffix(w, "*") && !strings.HasSuffix(w, `\*`) {
		return escapeText(w[:len(w)-1]) + "*"
	}
	return escapeText(w)
}

// splitUserInput splits on whitespace outside quotes and range brackets.
func splitUserInput(s string) []string {
	var (
		tokens  []string
		cur     strings.Builder
		inQuote bool
		depth   int
		escaped bool
	)
	flush := func() {
		if cur.Len() > 0 {
			tokens = append(tokens, cur.String())
			cur.Reset()
		}
	}

	for _, r := range s {
		switch {
		case escaped:
			escaped = false
		case r == '\\':
			escaped = true
		case r == '"' && depth == 0:
			inQuote = !inQuote
		case !inQuote && (r == '[' || r == '{'):
			depth++
		case !inQuote && (r == ']' || r == '}') && depth > 0:
			depth--
		case unicode.IsSpace(r) && !inQuote && depth == 0:
			flush()
			continue
		}
		cur.WriteRune(r)
	}
	flush()
	return tokens
}

// splitFieldValue splits "field:value" at the first unescaped colon outside quotes.
func splitFieldValue(tok string) (string, string, bool) {
	if tok == "" || tok[0] == '"' {
		return "", "", false
	}
	escaped := false
	for i, r := range tok {
		switch {
		case escaped:
			escaped = false
		case r == '\\':
			escaped = true
		case r == '"':
			return "", "", false
		case r == ':':
			if i == 0 || i == len(tok)-1 {
				return "", "", false
			}
			return strings.ReplaceAll(tok[:i], `\`, ""), tok[i+1:], true
		}
	}
	return "", "", false
}

func isQuoted(s string) bool {
	return len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"'
}

func unquote(s string) string {
	if isQuoted(s) {
		return s[1 : len(s)-1]
	}
	return s
}
