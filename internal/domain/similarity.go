package domain

import "math"

// CosineSimilarity returns dot(a,b) / (||a||*||b||) in [-1, 1].
// A zero-norm operand yields 0, never NaN. Mismatched lengths also yield 0;
// the storage layer rejects such vectors before they get here.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		av := float64(a[i])
		bv := float64(b[i])
		dot += av * bv
		normA += av * av
		normB += bv * bv
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// SimilarityScore rescales a cosine similarity to [0, 1], clamped.
// This is the caller-visible score scale; it equals 1 - distance/2 for the
// cosine distance a native index reports, so both retrieval paths agree.
func SimilarityScore(cosine float64) float64 {
	return ScoreFromDistance(1 - cosine)
}

// ScoreFromDistance converts a cosine distance in [0, 2] to a score in [0, 1].
func ScoreFromDistance(distance float64) float64 {
	score := 1 - distance/2
	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}
