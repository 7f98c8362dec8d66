package tonal

import (
	"math"

	"github.com/RyanBlaney/melodraw/algorithms/chroma"
	"github.com/RyanBlaney/melodraw/algorithms/spectral"
)

// DefaultSpectrumWeight scales the spectrum contribution in Combine.
const DefaultSpectrumWeight = 0.5

// Profile is the composite 12-bin profile scored against scale templates.
type Profile [chroma.Bins]float64

// Combine adds weight*spectrum[i] to chroma[i] for i in 0..11. Spectrum bins
// are taken index for index: bins past 11 are ignored and missing bins count
// as zero. Non-finite chroma entries also count as zero.
func Combine(c chroma.Vector, s spectral.Snapshot, weight float64) Profile {
	var p Profile
	for i := range p {
		if !math.IsNaN(c[i]) && !math.IsInf(c[i], 0) {
			p[i] = c[i]
		}
		if i < len(s) {
			p[i] += weight * float64(s[i])
		}
	}
	return p
}
