// Package audio turns note triggers into calls on a sound-producing backend.
package audio

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/RyanBlaney/melodraw/melody"
)

// Kind selects how an instrument produces sound.
type Kind int

const (
	Oscillator Kind = iota
	Piano
)

func (k Kind) String() string {
	switch k {
	case Oscillator:
		return "oscillator"
	case Piano:
		return "piano"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// ParseKind maps a configuration string to a Kind.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "oscillator", "osc", "sine":
		return Oscillator, nil
	case "piano":
		return Piano, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownInstrument, s)
	}
}

// Instrument is a Kind plus the payload that Kind needs: frequencies for
// the oscillator, sample references for the piano.
type Instrument struct {
	Kind        Kind
	Frequencies map[string]float64
	Samples     map[string]string
}

// Instruments holds every instrument's lookup table.
type Instruments struct {
	Oscillator map[string]float64 `json:"oscillator"`
	Piano      map[string]string  `json:"piano"`
}

//go:embed data/instruments.json
var defaultInstruments []byte

// LoadInstruments decodes the instrument tables.
func LoadInstruments(r io.Reader) (*Instruments, error) {
	if r == nil {
		return nil, ErrMissingInstruments
	}
	var in Instruments
	if err := json.NewDecoder(r).Decode(&in); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMissingInstruments, err)
	}
	if len(in.Oscillator) == 0 && len(in.Piano) == 0 {
		return nil, fmt.Errorf("%w: no instrument tables", ErrMissingInstruments)
	}
	return &in, nil
}

// LoadInstrumentsFile reads the tables from disk.
func LoadInstrumentsFile(path string) (*Instruments, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMissingInstruments, err)
	}
	return LoadInstruments(bytes.NewReader(data))
}

// DefaultInstruments returns the embedded tables.
func DefaultInstruments() (*Instruments, error) {
	return LoadInstruments(bytes.NewReader(defaultInstruments))
}

// Instrument returns the instrument of the given kind.
func (in *Instruments) Instrument(kind Kind) Instrument {
	switch kind {
	case Oscillator:
		return Instrument{Kind: Oscillator, Frequencies: in.Oscillator}
	case Piano:
		return Instrument{Kind: Piano, Samples: in.Piano}
	default:
		return Instrument{Kind: kind}
	}
}

// Frequencies derives equal-tempered frequencies for labels such as C#4 or
// Bb3, relative to tuning (the frequency of A4).
func Frequencies(labels []string, tuning float64) (map[string]float64, error) {
	out := make(map[string]float64, len(labels))
	for _, l := range labels {
		p, err := melody.ParsePitch(l)
		if err != nil {
			return nil, err
		}
		out[l] = p.Frequency(tuning)
	}
	return out, nil
}
