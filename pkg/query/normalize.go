package query

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
)

var foldCaser = cases.Fold()

// Normalize prepares a raw search term for matching: Unicode case folding,
// control characters and newlines collapsed to single spaces, and surrounding
// whitespace trimmed. Empty input passes through unchanged. The function is
// total and idempotent.
func Normalize(term string) string {
	if term == "" {
		return term
	}
	folded := foldCaser.String(term)
	fields := strings.FieldsFunc(folded, func(r rune) bool {
		return unicode.IsSpace(r) || unicode.IsControl(r)
	})
	return strings.Join(fields, " ")
}
