// Package vector provides similarity helpers for normalized vectors.
package vector

import "math"

// InnerProduct returns the inner product of two vectors (for normalized vectors equals cosine similarity).
func InnerProduct(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot float64
	for i := range a {
		dot += float64(a[i] * b[i])
	}
	return dot
}

// RescaleScore maps an inner-product similarity from [-1,1] to [0,1] via
// (score+1)/2, clipped. Callers must never mix raw and rescaled scores in one
// fusion pass.
func RescaleScore(score float64) float64 {
	return math.Max(0, math.Min(1, (score+1)/2))
}
