package index

import (
	"strings"
	"unicode"

	"github.com/kljensen/snowball"
	"golang.org/x/text/unicode/norm"
)

// analyze tokenizes s the way the default field analyzer does: Unicode NFC
// normalization, case folding, and splitting on non-letter/non-digit runes.
func analyze(s string) []string {
	s = norm.NFC.String(s)
	s = strings.ToLower(s)
	return strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// stemToken reduces a single already-lowercased token to its English
// Snowball stem, falling back to the token itself if stemming fails (short
// or non-alphabetic tokens such as "c" from "c++" pass through unchanged).
func stemToken(t string) string {
	stemmed, err := snowball.Stem(t, "english", true)
	if err != nil {
		return t
	}
	return stemmed
}

// analyzeStemmed is the stemmed-fallback analyzer used by snippet
// generation: try unstemmed first, retry with this only if no highlights
// would be produced.
func analyzeStemmed(s string) []string {
	toks := analyze(s)
	out := make([]string, len(toks))
	for i, t := range toks {
		out[i] = stemToken(t)
	}
	return out
}

// termFrequencies builds a term -> count map for one field's text, indexed
// under each token's stem rather than its surface form. Postings are keyed
// by stem so that a query for "runner" matches a document containing only
// "runners"; evalTerm and evalPhrase stem query terms with the same
// stemToken before the lookup.
func termFrequencies(text string) map[string]uint32 {
	freqs := make(map[string]uint32)
	for _, t := range analyze(text) {
		freqs[stemToken(t)]++
	}
	return freqs
}
