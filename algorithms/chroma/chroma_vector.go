package chroma

import (
	"fmt"

	"github.com/RyanBlaney/melodraw/algorithms/common"
)

// Bins is the number of pitch classes in a chroma vector.
const Bins = 12

// Labels are the pitch-class names by chroma index.
var Labels = [Bins]string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}

// Vector is a 12-bin pitch-class energy profile, index 0 = C.
type Vector [Bins]float64

// FromSlice converts a raw feature result into a Vector. It fails unless the
// result has exactly 12 finite entries.
func FromSlice(values []float64) (Vector, error) {
	var v Vector
	if len(values) != Bins {
		return v, fmt.Errorf("chroma result has %d bins, want %d", len(values), Bins)
	}
	if !common.AllFinite(values) {
		return v, fmt.Errorf("chroma result has non-finite values")
	}
	copy(v[:], values)
	return v, nil
}

// Slice returns the vector as a fresh slice.
func (v Vector) Slice() []float64 {
	out := make([]float64, Bins)
	copy(out, v[:])
	return out
}

// Dominant returns the index of the strongest bin (first on ties).
func (v Vector) Dominant() int {
	best := 0
	for i := 1; i < Bins; i++ {
		if v[i] > v[best] {
			best = i
		}
	}
	return best
}

// IsZero reports whether every bin is zero.
func (v Vector) IsZero() bool {
	return v == Vector{}
}
