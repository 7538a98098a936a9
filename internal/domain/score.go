package domain

import "math"

// Clamp01 bounds v to [0, 1]. NaN maps to 0.
func Clamp01(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Max(0, math.Min(1, v))
}

// ScoreVector is an ordered tuple of preference scores in [0, 1].
type ScoreVector []float64

// ZeroVector returns a vector of n zeros.
func ZeroVector(n int) ScoreVector { return make(ScoreVector, n) }

// MeanVector averages vectors elementwise. Vectors shorter than width are
// treated as zero-padded. No vectors yields a zero vector of width.
func MeanVector(vectors []ScoreVector, width int) ScoreVector {
	out := ZeroVector(width)
	if len(vectors) == 0 {
		return out
	}
	for _, v := range vectors {
		for i := 0; i < width && i < len(v); i++ {
			out[i] += v[i]
		}
	}
	for i := range out {
		out[i] /= float64(len(vectors))
	}
	return out
}
