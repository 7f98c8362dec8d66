package canvas

import (
	"slices"
	"sync"

	"github.com/RyanBlaney/melodraw/logging"
	"github.com/RyanBlaney/melodraw/melody"
	"github.com/RyanBlaney/melodraw/playback"
	"github.com/RyanBlaney/melodraw/scales"
)

// Recorder turns pointer gestures into a melody, sounding each note as it
// is drawn.
type Recorder struct {
	mu      sync.Mutex
	surface Surface
	clock   playback.Clock
	sink    playback.TriggerSink
	labels  []string
	notes   melody.Melody
	active  *melody.NoteEvent
	logger  logging.Logger
}

// NewRecorder creates a recorder with no scale selected. sink may be nil.
func NewRecorder(surface Surface, clock playback.Clock, sink playback.TriggerSink, logger logging.Logger) *Recorder {
	if clock == nil {
		clock = playback.RealClock()
	}
	return &Recorder{
		surface: surface,
		clock:   clock,
		sink:    sink,
		logger: logging.OrGlobal(logger).WithFields(logging.Fields{
			"component": "recorder",
		}),
	}
}

// SetLabels replaces the pitch labels notes are drawn from.
func (r *Recorder) SetLabels(labels []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.labels = slices.Clone(labels)
}

// Observe keeps the recorder's labels in sync with sel.
func (r *Recorder) Observe(sel *scales.Selection) (unsubscribe func()) {
	r.SetLabels(sel.Current().Labels)
	return sel.OnChange(func(c scales.Change) {
		r.SetLabels(c.Labels)
	})
}

// PointerDown records a note at (x, y) and starts it.
func (r *Recorder) PointerDown(x, y float64) (melody.NoteEvent, error) {
	r.mu.Lock()
	pitch, ok := r.surface.NoteAt(x, r.labels)
	if !ok {
		r.mu.Unlock()
		r.logger.Warn("Drawing rejected", logging.Fields{"function": "PointerDown", "reason": ErrNoScale.Error()})
		return melody.NoteEvent{}, ErrNoScale
	}

	n := melody.NoteEvent{
		Pitch:       pitch,
		TimestampMs: r.clock.Now().UnixMilli(),
		Volume:      r.surface.VolumeAt(y),
		X:           x,
		Y:           y,
		HasPosition: true,
	}
	r.notes = append(r.notes, n)
	r.active = &n
	r.mu.Unlock()

	r.trigger(n, playback.ActionStart)
	return n, nil
}

// PointerUp stops the active note, if any.
func (r *Recorder) PointerUp() {
	r.release()
}

// PointerLeave stops the active note when the pointer leaves mid-gesture.
func (r *Recorder) PointerLeave() {
	r.release()
}

func (r *Recorder) release() {
	r.mu.Lock()
	active := r.active
	r.active = nil
	r.mu.Unlock()

	if active != nil {
		r.trigger(*active, playback.ActionStop)
	}
}

func (r *Recorder) trigger(n melody.NoteEvent, action playback.Action) {
	if r.sink != nil {
		r.sink.Trigger(n.Pitch, n.Volume, action)
	}
}

// Melody returns a snapshot of the recorded notes.
func (r *Recorder) Melody() melody.Melody {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.notes.Clone()
}

// Load replaces the recorded notes, as when a saved melody is opened.
func (r *Recorder) Load(m melody.Melody) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notes = m.Clone()
	r.active = nil
}

// Clear discards every recorded note.
func (r *Recorder) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notes = nil
	r.active = nil
}
