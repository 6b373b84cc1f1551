package matcher

import (
	"testing"
)

func TestDescriptionSimilarity(t *testing.T) {
	tests := []struct {
		name   string
		a      string
		b      string
		expect float64
	}{
		{"identical", "Steel Rod 12mm", "Steel Rod 12mm", 1.0},
		{"case insensitive", "STEEL ROD 12MM", "steel rod 12mm", 1.0},
		{"punctuation ignored", "Steel-Rod, 12mm", "Steel Rod 12mm", 1.0},
		{"whitespace collapsed", "Steel   Rod  12mm", "Steel Rod 12mm", 1.0},
		{"both empty", "", "", 0.0},
		{"one empty", "Steel Rod", "", 0.0},
		{"punctuation only counts as empty", "---", "Steel Rod", 0.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DescriptionSimilarity(tt.a, tt.b); got != tt.expect {
				t.Errorf("expected similarity %f, got %f", tt.expect, got)
			}
		})
	}
}

func TestDescriptionSimilarityPartial(t *testing.T) {
	// One substitution in a 14 character normalized string
	got := DescriptionSimilarity("steel rod 12mm", "steel rod 13mm")
	if got <= 0.9 || got >= 1.0 {
		t.Errorf("expected similarity just below 1.0, got %f", got)
	}

	// Unrelated descriptions should score low
	got = DescriptionSimilarity("steel rod 12mm", "office chair")
	if got > 0.4 {
		t.Errorf("expected low similarity for unrelated text, got %f", got)
	}
}

func TestDescriptionSimilaritySymmetric(t *testing.T) {
	a, b := "copper wire 2.5 sq mm", "copper cable 2.5mm"
	if DescriptionSimilarity(a, b) != DescriptionSimilarity(b, a) {
		t.Error("expected similarity to be symmetric")
	}
}
