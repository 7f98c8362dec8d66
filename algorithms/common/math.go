package common

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Mean calculates the arithmetic mean of a slice using gonum
func Mean(data []float64) float64 {
	if len(data) == 0 {
		return 0.0
	}
	return stat.Mean(data, nil)
}

// AllFinite reports whether every value is neither NaN nor ±Inf.
func AllFinite(data []float64) bool {
	for _, v := range data {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// MeanVectors returns the element-wise mean of equally sized vectors,
// accumulated in slice order. It returns nil for an empty input.
func MeanVectors(vectors [][]float64) []float64 {
	if len(vectors) == 0 {
		return nil
	}

	acc := make([]float64, len(vectors[0]))
	for _, v := range vectors {
		floats.Add(acc, v)
	}
	floats.Scale(1/float64(len(vectors)), acc)
	return acc
}

// Clamp restricts value to [lo, hi]
func Clamp(value, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, value))
}
