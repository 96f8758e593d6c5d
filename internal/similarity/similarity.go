// Package similarity provides the string comparison primitives used by the
// resolvers: normalized equality and a prefix-weighted Jaro-Winkler score.
package similarity

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// Threshold is the single match cutoff. A score must be strictly greater.
const Threshold = 0.9

const (
	prefixScale = 0.1
	// maxPrefix keeps prefixScale*prefix <= 1 so scores never exceed 1.
	maxPrefix = 10
)

// Normalize folds case, applies NFC, trims surrounding punctuation and
// whitespace, and collapses inner whitespace runs to a single space.
func Normalize(s string) string {
	s = cases.Fold().String(norm.NFC.String(s))
	s = strings.TrimFunc(s, func(r rune) bool {
		return unicode.IsSpace(r) || unicode.IsPunct(r)
	})
	return strings.Join(strings.Fields(s), " ")
}

// NormalizedEqual reports whether a and b are equal after Normalize.
func NormalizedEqual(a, b string) bool {
	return Normalize(a) == Normalize(b)
}

// FuzzyMatch returns a Jaro-Winkler similarity in [0,1] for the case-folded,
// trimmed inputs. The full common prefix (up to maxPrefix runes) is rewarded.
func FuzzyMatch(a, b string) float64 {
	ra := []rune(fold(a))
	rb := []rune(fold(b))

	if len(ra) == 0 && len(rb) == 0 {
		return 1.0
	}
	if len(ra) == 0 || len(rb) == 0 {
		return 0.0
	}

	j := jaro(ra, rb)

	prefix := 0
	for prefix < len(ra) && prefix < len(rb) && prefix < maxPrefix && ra[prefix] == rb[prefix] {
		prefix++
	}

	score := j + float64(prefix)*prefixScale*(1.0-j)
	if score > 1.0 {
		score = 1.0
	}
	return score
}

// Matches reports whether score clears Threshold. Exactly Threshold is not a match.
func Matches(score float64) bool {
	return score > Threshold
}

// Similar is shorthand for Matches(FuzzyMatch(a, b)).
func Similar(a, b string) bool {
	return Matches(FuzzyMatch(a, b))
}

func fold(s string) string {
	return strings.TrimSpace(cases.Fold().String(norm.NFC.String(s)))
}

// jaro computes the Jaro similarity of two non-empty rune slices.
func jaro(a, b []rune) float64 {
	window := max(len(a), len(b))/2 - 1
	if window < 0 {
		window = 0
	}

	aMatched := make([]bool, len(a))
	bMatched := make([]bool, len(b))

	matches := 0
	for i := range a {
		lo := max(0, i-window)
		hi := min(len(b), i+window+1)
		for k := lo; k < hi; k++ {
			if bMatched[k] || a[i] != b[k] {
				continue
			}
			aMatched[i] = true
			bMatched[k] = true
			matches++
			break
		}
	}

	if matches == 0 {
		return 0.0
	}

	transpositions := 0
	k := 0
	for i := range a {
		if !aMatched[i] {
			continue
		}
		for !bMatched[k] {
			k++
		}
		if a[i] != b[k] {
			transpositions++
		}
		k++
	}

	m := float64(matches)
	return (m/float64(len(a)) + m/float64(len(b)) + (m-float64(transpositions)/2)/m) / 3.0
}
