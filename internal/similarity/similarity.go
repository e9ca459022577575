// Package similarity implements the string similarity used for fuzzy field
// agreement. The comparison is case and diacritic insensitive and is based
// on a normalized Levenshtein distance without prefix bonuses, so it is
// symmetric: Ratio(a, b) == Ratio(b, a).
package similarity

import (
	"strings"
	"unicode"

	"github.com/agext/levenshtein"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// params pins the distance: unit costs and no Jaro-Winkler style bonus
var params = levenshtein.NewParams().BonusScale(0)

// Fold lowercases s, strips combining marks and collapses whitespace
func Fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}
	return strings.Join(strings.Fields(strings.ToLower(folded)), " ")
}

// Ratio returns a similarity in [0,1] between a and b after folding.
// Two empty strings are identical; one empty string shares nothing.
func Ratio(a, b string) float64 {
	fa, fb := Fold(a), Fold(b)
	if fa == fb {
		return 1
	}
	if fa == "" || fb == "" {
		return 0
	}
	return levenshtein.Similarity(fa, fb, params)
}
