package utils

import "math"

// NormalizeL2 normalizes the slice in place to unit L2 norm.
// If the norm is zero, the slice is unchanged.
func NormalizeL2(x []float32) {
	var sum float32
	for _, v := range x {
		sum += v * v
	}
	if sum == 0 {
		return
	}
	norm := float32(1.0 / math.Sqrt(float64(sum)))
	for i := range x {
		x[i] *= norm
	}
}

// PadTo right-pads x with zeros up to dim and returns the result.
// If x is already at least dim long it is returned unchanged. Zero padding
// does not change the L2 norm, so a unit vector stays a unit vector.
func PadTo(x []float32, dim int) []float32 {
	if len(x) >= dim {
		return x
	}
	padded := make([]float32, dim)
	copy(padded, x)
	return padded
}

// Clamp01 clamps v to [0, 1].
func Clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}

// Mean returns the element-wise mean of the given vectors.
// All vectors must share the same dimension; returns nil for empty input.
func Mean(vectors [][]float32) []float32 {
	if len(vectors) == 0 {
		return nil
	}
	out := make([]float32, len(vectors[0]))
	for _, vec := range vectors {
		for i, v := range vec {
			out[i] += v
		}
	}
	n := float32(len(vectors))
	for i := range out {
		out[i] /= n
	}
	return out
}
