// Package matchkey derives the lookup identity used to pair offer and invoice items.
package matchkey

import (
	"sort"
	"strings"
	"unicode"

	"github.com/texttheater/golang-levenshtein/levenshtein"
)

// unitEdits weighs substitutions like insertions so the distance stays within max(len).
var unitEdits = levenshtein.Options{
	InsCost: 1,
	DelCost: 1,
	SubCost: 1,
	Matches: levenshtein.IdenticalRunes,
}

var stopwords = map[string]struct{}{
	// English
	"a": {}, "an": {}, "and": {}, "the": {}, "of": {}, "for": {}, "with": {},
	"to": {}, "in": {}, "on": {}, "by": {}, "or": {}, "per": {}, "incl": {},
	// German
	"der": {}, "die": {}, "das": {}, "und": {}, "mit": {}, "für": {}, "fuer": {},
	"von": {}, "zum": {}, "zur": {}, "ein": {}, "eine": {}, "inkl": {}, "aus": {},
}

// NormalizeCode uppercases a code and strips every separator and space.
func NormalizeCode(code string) string {
	var b strings.Builder
	b.Grow(len(code))
	for _, r := range strings.ToUpper(code) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Signature returns an order-insensitive form of a description.
func Signature(description string) string {
	fields := strings.FieldsFunc(strings.ToLower(description), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	tokens := fields[:0]
	for _, f := range fields {
		if _, skip := stopwords[f]; skip {
			continue
		}
		tokens = append(tokens, f)
	}

	sort.Strings(tokens)
	return strings.Join(tokens, " ")
}

// Similarity returns 1 - levenshtein(a, b) / max(len(a), len(b)) over runes.
// Two empty strings are fully similar.
func Similarity(a, b string) float64 {
	ra, rb := []rune(a), []rune(b)
	longest := max(len(ra), len(rb))
	if longest == 0 {
		return 1
	}

	distance := levenshtein.DistanceForStrings(ra, rb, unitEdits)
	return 1 - float64(distance)/float64(longest)
}
