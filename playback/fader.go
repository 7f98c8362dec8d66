package playback

import (
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/RyanBlaney/melodraw/logging"
	"github.com/RyanBlaney/melodraw/melody"
	"github.com/RyanBlaney/melodraw/scales"
)

// Surface is the 2D drawing target for fading markers.
type Surface interface {
	Clear()
	SetFillStyle(style string)
	DrawCircle(x, y, radius float64)
}

// FaderConfig controls marker geometry and the fade animation.
type FaderConfig struct {
	Width         float64       `json:"width"`
	Height        float64       `json:"height"`
	Radius        float64       `json:"radius"`
	FrameInterval time.Duration `json:"frame_interval"`
	Step          float64       `json:"step"`  // opacity lost per frame
	Floor         float64       `json:"floor"` // fading stops at or below this
	Grace         time.Duration `json:"grace"` // delay before the surface is cleared
}

// DefaultFaderConfig returns a 60fps fade from 1 to 0.1 in 0.05 steps on an
// 800x400 surface.
func DefaultFaderConfig() FaderConfig {
	return FaderConfig{
		Width:         800,
		Height:        400,
		Radius:        10,
		FrameInterval: 16 * time.Millisecond,
		Step:          0.05,
		Floor:         0.1,
		Grace:         200 * time.Millisecond,
	}
}

// Fader draws one fading marker per note of a melody, timed from the same
// reference as the Scheduler but on its own timers.
type Fader struct {
	mu         sync.Mutex
	clock      Clock
	surface    Surface
	config     FaderConfig
	labels     []string
	generation int
	timers     map[int]Timer
	nextTimer  int
	logger     logging.Logger
}

// NewFader creates a fader drawing onto surface.
func NewFader(clock Clock, surface Surface, config FaderConfig, logger logging.Logger) *Fader {
	if clock == nil {
		clock = RealClock()
	}
	def := DefaultFaderConfig()
	if config.Width <= 0 {
		config.Width = def.Width
	}
	if config.Height <= 0 {
		config.Height = def.Height
	}
	if config.Radius <= 0 {
		config.Radius = def.Radius
	}
	if config.FrameInterval <= 0 {
		config.FrameInterval = def.FrameInterval
	}
	if config.Step <= 0 {
		config.Step = def.Step
	}

	return &Fader{
		clock:   clock,
		surface: surface,
		config:  config,
		timers:  make(map[int]Timer),
		logger: logging.OrGlobal(logger).WithFields(logging.Fields{
			"component": "fader",
		}),
	}
}

// SetLabels replaces the ordered pitch labels used for positioning.
func (f *Fader) SetLabels(labels []string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.labels = slices.Clone(labels)
}

// Observe keeps the fader's labels in sync with sel.
func (f *Fader) Observe(sel *scales.Selection) (unsubscribe func()) {
	f.SetLabels(sel.Current().Labels)
	return sel.OnChange(func(c scales.Change) {
		f.SetLabels(c.Labels)
	})
}

// Position returns where a pitch is drawn: spread over the width by its
// index in the current labels, vertically centred. Unknown pitches, and any
// pitch when fewer than two labels are set, sit in the centre.
func (f *Fader) Position(pitch string) (x, y float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.positionLocked(pitch)
}

func (f *Fader) positionLocked(pitch string) (x, y float64) {
	y = f.config.Height / 2
	idx := slices.Index(f.labels, pitch)
	if idx < 0 || len(f.labels) < 2 {
		return f.config.Width / 2, y
	}
	return float64(idx) / float64(len(f.labels)-1) * f.config.Width, y
}

// Play schedules a marker for every note not timestamped before the first.
func (f *Fader) Play(m melody.Melody) {
	if len(m) == 0 {
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	gen := f.generation
	for i, n := range m {
		offset, ok := m.Offset(i)
		if !ok {
			continue
		}
		f.afterLocked(offset, gen, func() {
			x, y := f.positionLocked(n.Pitch)
			f.frameLocked(gen, x, y, 1)
		})
	}
}

// Cancel drops every pending marker frame and clear.
func (f *Fader) Cancel() {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.generation++
	for id, t := range f.timers {
		t.Stop()
		delete(f.timers, id)
	}
}

// Reset cancels pending markers and clears the surface.
func (f *Fader) Reset() {
	f.Cancel()
	if f.surface != nil {
		f.surface.Clear()
	}
}

func (f *Fader) frameLocked(gen int, x, y, opacity float64) {
	if f.surface != nil {
		f.surface.SetFillStyle(fmt.Sprintf("rgba(255, 0, 255, %g)", opacity))
		f.surface.DrawCircle(x, y, f.config.Radius)
	}

	if opacity > f.config.Floor {
		next := opacity - f.config.Step
		f.afterLocked(f.config.FrameInterval, gen, func() {
			f.frameLocked(gen, x, y, next)
		})
		return
	}

	f.afterLocked(f.config.Grace, gen, func() {
		if f.surface != nil {
			f.surface.Clear()
		}
	})
}

// afterLocked runs fn under the fader lock after d unless the generation
// moved on in between.
func (f *Fader) afterLocked(d time.Duration, gen int, fn func()) {
	f.nextTimer++
	id := f.nextTimer
	f.timers[id] = f.clock.AfterFunc(d, func() {
		f.mu.Lock()
		defer f.mu.Unlock()

		delete(f.timers, id)
		if f.generation != gen {
			return
		}
		fn()
	})
}
