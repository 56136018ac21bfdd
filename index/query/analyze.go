package query

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// analyze tokenizes literal query text the same way index's default field
// analyzer does: NFC-normalize, lowercase, split on runs of non-alphanumeric
// runes. It is duplicated here (rather than imported from index) because
// index imports query for the AST types it executes against; query must stay
// a leaf package.
func analyze(s string) []string {
	s = norm.NFC.String(s)
	s = strings.ToLower(s)
	return strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
