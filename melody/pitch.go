package melody

import (
	"fmt"
	"math"
	"strconv"
)

var pitchClasses = map[byte]int{'C': 0, 'D': 2, 'E': 4, 'F': 5, 'G': 7, 'A': 9, 'B': 11}

// Pitch is a parsed label such as C#4.
type Pitch struct {
	Class  int // 0 = C .. 11 = B
	Octave int
}

// ParsePitch parses labels like C4, F#3, Bb5 or C-1.
func ParsePitch(label string) (Pitch, error) {
	if len(label) < 2 {
		return Pitch{}, fmt.Errorf("%w: %q", ErrBadPitch, label)
	}

	class, ok := pitchClasses[label[0]]
	if !ok {
		return Pitch{}, fmt.Errorf("%w: %q", ErrBadPitch, label)
	}

	rest := label[1:]
	switch rest[0] {
	case '#':
		class++
		rest = rest[1:]
	case 'b':
		class--
		rest = rest[1:]
	}

	octave, err := strconv.Atoi(rest)
	if err != nil {
		return Pitch{}, fmt.Errorf("%w: %q", ErrBadPitch, label)
	}

	// B#3 is C4 and Cb4 is B3
	if class < 0 {
		class += 12
		octave--
	} else if class > 11 {
		class -= 12
		octave++
	}
	return Pitch{Class: class, Octave: octave}, nil
}

// MIDI returns the MIDI key number, C4 = 60.
func (p Pitch) MIDI() int {
	return (p.Octave+1)*12 + p.Class
}

// Frequency returns the equal-tempered frequency for the given A4 tuning.
func (p Pitch) Frequency(tuning float64) float64 {
	return tuning * math.Pow(2, float64(p.MIDI()-69)/12)
}
