// Package melody holds the note event model shared by drawing, playback,
// persistence and export.
package melody

import (
	"encoding/json"
	"slices"
	"time"
)

// DefaultNoteDuration is how long a scheduled or exported note sounds.
const DefaultNoteDuration = 500 * time.Millisecond

// NoteEvent is one timestamped note. Timestamps are epoch milliseconds and
// only matter relative to the first event of a melody.
type NoteEvent struct {
	Pitch       string
	TimestampMs int64
	Volume      float64
	X, Y        float64
	HasPosition bool
}

type noteJSON struct {
	Note      string   `json:"note"`
	Timestamp int64    `json:"timestamp"`
	Volume    *float64 `json:"volume,omitempty"`
	X         *float64 `json:"x,omitempty"`
	Y         *float64 `json:"y,omitempty"`
}

// MarshalJSON writes the persisted shape {note, timestamp, volume, x, y}.
func (n NoteEvent) MarshalJSON() ([]byte, error) {
	vol := n.Volume
	out := noteJSON{Note: n.Pitch, Timestamp: n.TimestampMs, Volume: &vol}
	if n.HasPosition {
		x, y := n.X, n.Y
		out.X, out.Y = &x, &y
	}
	return json.Marshal(out)
}

// UnmarshalJSON reads the persisted shape. A missing volume means 1.
func (n *NoteEvent) UnmarshalJSON(data []byte) error {
	var in noteJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}

	*n = NoteEvent{Pitch: in.Note, TimestampMs: in.Timestamp, Volume: 1}
	if in.Volume != nil {
		n.Volume = *in.Volume
	}
	if in.X != nil && in.Y != nil {
		n.X, n.Y, n.HasPosition = *in.X, *in.Y, true
	}
	return nil
}

// Melody is a sequence of note events in insertion order. It is never
// re-sorted.
type Melody []NoteEvent

// Clone returns an independent copy.
func (m Melody) Clone() Melody {
	if m == nil {
		return nil
	}
	return slices.Clone(m)
}

// Reference returns the first event's timestamp, which every delay is
// measured from.
func (m Melody) Reference() (int64, bool) {
	if len(m) == 0 {
		return 0, false
	}
	return m[0].TimestampMs, true
}

// Offset returns the delay of event i relative to the reference. The second
// value is false for events timestamped before the reference.
func (m Melody) Offset(i int) (time.Duration, bool) {
	ref, ok := m.Reference()
	if !ok || i < 0 || i >= len(m) {
		return 0, false
	}
	d := m[i].TimestampMs - ref
	if d < 0 {
		return 0, false
	}
	return time.Duration(d) * time.Millisecond, true
}

// Record is the persisted form of a saved melody.
type Record struct {
	ID         string `json:"id"`
	Title      string `json:"title"`
	Scale      string `json:"scale"`
	Instrument string `json:"instrument"`
	Notes      Melody `json:"notes"`
}
