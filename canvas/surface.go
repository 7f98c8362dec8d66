// Package canvas maps pointer input on a drawing surface to note events.
package canvas

import (
	"math"
)

// Surface is the drawing area's geometry.
type Surface struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// NoteAt maps x to a label, spreading labels evenly over the width.
// Positions outside the surface clamp to the first or last label.
func (s Surface) NoteAt(x float64, labels []string) (string, bool) {
	if len(labels) == 0 || s.Width <= 0 {
		return "", false
	}
	idx := int(math.Floor(x / s.Width * float64(len(labels))))
	idx = min(max(idx, 0), len(labels)-1)
	return labels[idx], true
}

// VolumeAt is 1 on the horizontal centre line, falling linearly to 0 at the
// top and bottom edges.
func (s Surface) VolumeAt(y float64) float64 {
	if s.Height <= 0 {
		return 0
	}
	half := s.Height / 2
	return math.Max(1-math.Abs(y-half)/half, 0)
}
