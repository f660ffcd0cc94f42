package search

import (
	"strings"
	"unicode"
)

// queryPunct is the punctuation RediSearch treats as syntax inside query text.
const queryPunct = `,.<>{}[]"':;!@$%^*()-+=~|/\`

// tagPunct adds the characters that split or end a tag value.
const tagPunct = queryPunct + "#& "

func escapeTag(s string) string { return escapeAny(s, tagPunct) }

func escapeText(s string) string { return escapeAny(s, queryPunct) }

// escapeField escapes every rune of an attribute name except letters, digits and '_'.
func escapeField(name string) string {
	return escapeFunc(name, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_'
	})
}

func escapeAny(s, set string) string {
	if !strings.ContainsAny(s, set) {
		return s
	}
	return escapeFunc(s, func(r rune) bool { return strings.ContainsRune(set, r) })
}

func escapeFunc(s string, needs func(rune) bool) string {
	var b strings.Builder
	b.Grow(len(s) + 4)
	for _, r := range s {
		if needs(r) {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
