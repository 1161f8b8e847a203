package domain

import (
	"math"
	"testing"
)

const tolerance = 1e-9

func TestCosineSimilarity_Symmetric(t *testing.T) {
	a := []float32{0.3, -0.1, 0.7, 0.2}
	b := []float32{-0.5, 0.4, 0.1, 0.9}

	ab := CosineSimilarity(a, b)
	ba := CosineSimilarity(b, a)
	if math.Abs(ab-ba) > tolerance {
		t.Errorf("expected symmetry, got sim(a,b)=%v sim(b,a)=%v", ab, ba)
	}
}

func TestCosineSimilarity_SelfIsOne(t *testing.T) {
	a := []float32{0.3, -0.1, 0.7, 0.2}
	if got := CosineSimilarity(a, a); math.Abs(got-1) > 1e-6 {
		t.Errorf("expected sim(a,a)=1, got %v", got)
	}
}

func TestCosineSimilarity_ZeroNorm(t *testing.T) {
	zero := []float32{0, 0, 0}
	a := []float32{1, 2, 3}

	cases := []struct {
		name string
		x, y []float32
	}{
		{"zero-left", zero, a},
		{"zero-right", a, zero},
		{"zero-both", zero, zero},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := CosineSimilarity(tc.x, tc.y)
			if got != 0 {
				t.Errorf("expected 0, got %v", got)
			}
			if math.IsNaN(got) {
				t.Error("similarity must never be NaN")
			}
		})
	}
}

func TestCosineSimilarity_Orthogonal(t *testing.T) {
	a := []float32{1, 0}
	b := []float32{0, 1}
	if got := CosineSimilarity(a, b); math.Abs(got) > tolerance {
		t.Errorf("expected 0 for orthogonal vectors, got %v", got)
	}
}

func TestCosineSimilarity_Opposite(t *testing.T) {
	a := []float32{1, 2}
	b := []float32{-1, -2}
	if got := CosineSimilarity(a, b); math.Abs(got+1) > 1e-6 {
		t.Errorf("expected -1 for opposite vectors, got %v", got)
	}
}

func TestCosineSimilarity_MagnitudeInvariant(t *testing.T) {
	a := []float32{0.3, -0.1, 0.7}
	b := []float32{0.6, -0.2, 1.4} // 2a
	if got := CosineSimilarity(a, b); math.Abs(got-1) > 1e-6 {
		t.Errorf("expected 1 for scaled vector, got %v", got)
	}
}

func TestCosineSimilarity_LengthMismatch(t *testing.T) {
	if got := CosineSimilarity([]float32{1, 2}, []float32{1, 2, 3}); got != 0 {
		t.Errorf("expected 0 for length mismatch, got %v", got)
	}
}

func TestSimilarityScore_Range(t *testing.T) {
	cases := []struct {
		cosine float64
		want   float64
	}{
		{1, 1},
		{0, 0.5},
		{-1, 0},
		{0.5, 0.75},
	}
	for _, tc := range cases {
		if got := SimilarityScore(tc.cosine); math.Abs(got-tc.want) > tolerance {
			t.Errorf("SimilarityScore(%v) = %v, want %v", tc.cosine, got, tc.want)
		}
	}
}

func TestScoreFromDistance_AgreesWithSimilarityScore(t *testing.T) {
	// The native path converts distances; the fallback path converts cosines.
	// 1 - distance == cosine for the cosine metric, so both must agree.
	for _, cos := range []float64{-1, -0.5, 0, 0.3, 0.99, 1} {
		fromCos := SimilarityScore(cos)
		fromDist := ScoreFromDistance(1 - cos)
		if math.Abs(fromCos-fromDist) > tolerance {
			t.Errorf("cosine %v: score mismatch %v vs %v", cos, fromCos, fromDist)
		}
	}
}

func TestScoreFromDistance_Clamped(t *testing.T) {
	if got := ScoreFromDistance(2.5); got != 0 {
		t.Errorf("expected clamp to 0, got %v", got)
	}
	if got := ScoreFromDistance(-0.1); got != 1 {
		t.Errorf("expected clamp to 1, got %v", got)
	}
}
