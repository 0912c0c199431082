// Package textsim provides the normalized string-similarity score shared by
// every text policy in Voxscreen.
//
// One metric, several thresholds: the stabilizer's agreement check, the
// duplicate suppressor, and the translators' echo guard all call [Score] but
// each carries its own independently configured threshold. Keeping the metric
// in one place guarantees the three policies stay comparable — a 0.85 in the
// stabilizer means the same thing as a 0.85 anywhere else.
package textsim

import (
	"strings"
	"unicode/utf8"

	"github.com/antzucaro/matchr"
)

// Score returns the similarity of a and b as a value in [0, 1], where 1 means
// identical and 0 means nothing in common. It is the complement of the
// Levenshtein edit distance normalized by the longer string's rune length.
//
// Two empty strings score 1; an empty string against a non-empty one scores 0.
func Score(a, b string) float64 {
	if a == b {
		return 1
	}

	longest := utf8.RuneCountInString(a)
	if n := utf8.RuneCountInString(b); n > longest {
		longest = n
	}
	if longest == 0 {
		return 1
	}

	dist := matchr.Levenshtein(a, b)
	return 1 - float64(dist)/float64(longest)
}

// ScoreFold is [Score] with both inputs lowercased first. Used where casing
// jitter from the recognizer should not count as a difference.
func ScoreFold(a, b string) float64 {
	return Score(strings.ToLower(a), strings.ToLower(b))
}
