package textsim_test

import (
	"testing"

	"github.com/voxscreen/voxscreen/pkg/textsim"
)

func TestScore(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		a, b string
		min  float64
		max  float64
	}{
		{name: "identical", a: "hello world", b: "hello world", min: 1, max: 1},
		{name: "both empty", a: "", b: "", min: 1, max: 1},
		{name: "one empty", a: "hello", b: "", min: 0, max: 0},
		{name: "single edit", a: "hello world", b: "hello w0rld", min: 0.90, max: 0.95},
		{name: "disjoint", a: "abcdefgh", b: "zyxwvuts", min: 0, max: 0.1},
		{name: "unicode", a: "привет", b: "привет", min: 1, max: 1},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := textsim.Score(tt.a, tt.b)
			if got < tt.min || got > tt.max {
				t.Fatalf("Score(%q, %q) = %v, want in [%v, %v]", tt.a, tt.b, got, tt.min, tt.max)
			}
		})
	}
}

func TestScoreSymmetry(t *testing.T) {
	t.Parallel()

	a, b := "the quick brown fox", "the quick brown fix"
	if textsim.Score(a, b) != textsim.Score(b, a) {
		t.Fatalf("Score is not symmetric for %q / %q", a, b)
	}
}

func TestScoreFold(t *testing.T) {
	t.Parallel()

	if got := textsim.ScoreFold("Hello World", "hello world"); got != 1 {
		t.Fatalf("ScoreFold case-only variant = %v, want 1", got)
	}
	if got := textsim.ScoreFold("abc", "xyz"); got != 0 {
		t.Fatalf("ScoreFold disjoint = %v, want 0", got)
	}
}
