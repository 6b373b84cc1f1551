package matcher

import (
	"strings"
	"unicode"

	"github.com/agnivade/levenshtein"
)

// DescriptionSimilarity returns a similarity ratio between two item
// descriptions in [0.0, 1.0]. Text is case-folded, punctuation is stripped
// and whitespace collapsed before comparison, so formatting differences do
// not penalize otherwise identical descriptions.
//
// If either normalized description is empty the similarity is 0.
func DescriptionSimilarity(a, b string) float64 {
	na := normalizeDescription(a)
	nb := normalizeDescription(b)

	if na == "" || nb == "" {
		return 0.0
	}
	if na == nb {
		return 1.0
	}

	distance := levenshtein.ComputeDistance(na, nb)
	maxLen := len([]rune(na))
	if l := len([]rune(nb)); l > maxLen {
		maxLen = l
	}

	return 1.0 - float64(distance)/float64(maxLen)
}

// normalizeDescription lowercases, replaces punctuation with spaces and
// collapses runs of whitespace into single spaces.
func normalizeDescription(s string) string {
	var b strings.Builder
	b.Grow(len(s))

	for _, r := range strings.ToLower(s) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		default:
			b.WriteRune(' ')
		}
	}

	return strings.Join(strings.Fields(b.String()), " ")
}
