// Package session ties key detection, scale selection, drawing, playback
// and persistence together for one user.
package session

import (
	"context"
	"fmt"
	"sync"

	"github.com/RyanBlaney/melodraw/algorithms/tonal"
	"github.com/RyanBlaney/melodraw/audio"
	"github.com/RyanBlaney/melodraw/canvas"
	"github.com/RyanBlaney/melodraw/logging"
	"github.com/RyanBlaney/melodraw/melody"
	"github.com/RyanBlaney/melodraw/metrics"
	"github.com/RyanBlaney/melodraw/playback"
	"github.com/RyanBlaney/melodraw/scales"
	"github.com/RyanBlaney/melodraw/store"
)

// Options are a session's collaborators. Catalog, Detector, Audio and
// Instruments are required; the rest have defaults.
type Options struct {
	Catalog     *scales.Catalog
	Detector    *tonal.KeyDetector
	Audio       *audio.ContextManager
	Instruments *audio.Instruments
	Instrument  audio.Kind
	Surface     playback.Surface
	Library     *store.Library
	Clock       playback.Clock
	Scheduler   playback.SchedulerConfig
	Fader       playback.FaderConfig
	Metrics     *metrics.Recorder
	Logger      logging.Logger
}

// Session owns the mutable state that would otherwise be global: the
// loaded buffer, the selected scale and the drawn melody.
type Session struct {
	mu          sync.Mutex
	buffer      *tonal.Buffer
	catalog     *scales.Catalog
	selection   *scales.Selection
	detector    *tonal.KeyDetector
	audio       *audio.ContextManager
	instruments *audio.Instruments
	player      *audio.Player
	scheduler   *playback.Scheduler
	fader       *playback.Fader
	recorder    *canvas.Recorder
	library     *store.Library
	logger      logging.Logger
}

// New wires a session.
func New(opts Options) (*Session, error) {
	if opts.Catalog == nil || opts.Detector == nil || opts.Audio == nil || opts.Instruments == nil {
		return nil, fmt.Errorf("session requires a catalog, detector, audio context and instruments")
	}
	logger := logging.OrGlobal(opts.Logger)
	if opts.Clock == nil {
		opts.Clock = playback.RealClock()
	}
	def := playback.DefaultFaderConfig()
	if opts.Fader.Width <= 0 || opts.Fader.Height <= 0 {
		opts.Fader.Width, opts.Fader.Height = def.Width, def.Height
	}
	if opts.Library == nil {
		opts.Library = store.NewLibrary(store.NewMemoryKV(), logger)
	}

	s := &Session{
		catalog:     opts.Catalog,
		selection:   scales.NewSelection(opts.Catalog),
		detector:    opts.Detector,
		audio:       opts.Audio,
		instruments: opts.Instruments,
		library:     opts.Library,
		logger:      logger.WithFields(logging.Fields{"component": "session"}),
	}

	s.player = audio.NewPlayer(opts.Audio, opts.Instruments.Instrument(opts.Instrument), logger)
	s.scheduler = playback.NewScheduler(opts.Clock, s.player, opts.Scheduler, opts.Metrics, logger)
	s.scheduler.SetTeardown(func() { _ = opts.Audio.Close() })
	s.fader = playback.NewFader(opts.Clock, opts.Surface, opts.Fader, logger)
	s.recorder = canvas.NewRecorder(canvas.Surface{Width: opts.Fader.Width, Height: opts.Fader.Height}, opts.Clock, s.player, logger)

	s.fader.Observe(s.selection)
	s.recorder.Observe(s.selection)
	return s, nil
}

// Recorder is the drawing input.
func (s *Session) Recorder() *canvas.Recorder { return s.recorder }

// Scheduler is the audio playback scheduler.
func (s *Session) Scheduler() *playback.Scheduler { return s.scheduler }

// Selection is the scale selection observers subscribe to.
func (s *Session) Selection() *scales.Selection { return s.selection }

// Library is where melodies are saved.
func (s *Session) Library() *store.Library { return s.library }

// LoadBuffer makes buf the input of DetectKey.
func (s *Session) LoadBuffer(buf *tonal.Buffer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.buffer = buf
}

// DetectKey analyses the loaded buffer and, when a key is found, selects it
// so drawing and playback use its labels. Without a buffer it does nothing
// and returns Unknown.
func (s *Session) DetectKey(ctx context.Context) (tonal.Result, error) {
	s.mu.Lock()
	buf := s.buffer
	s.mu.Unlock()

	if buf == nil {
		s.logger.Debug("No audio loaded, key detection skipped", logging.Fields{"function": "DetectKey"})
		return tonal.Result{Key: tonal.Unknown}, nil
	}

	res, err := s.detector.Detect(ctx, buf)
	if err != nil {
		return res, err
	}
	if res.Key != tonal.Unknown {
		s.selection.Select(res.Key)
	}
	return res, nil
}

// SelectScale makes name current. "chromatic" is accepted.
func (s *Session) SelectScale(name string) (scales.Change, error) {
	if !s.catalog.Has(name) {
		return scales.Change{}, fmt.Errorf("%w: %q", ErrUnknownScale, name)
	}
	return s.selection.Select(name), nil
}

// SetInstrument switches the instrument used for drawing and playback.
func (s *Session) SetInstrument(kind audio.Kind) {
	s.player.SetInstrument(s.instruments.Instrument(kind))
}

// Play schedules the drawn melody.
func (s *Session) Play() *playback.Run {
	return s.PlayMelody(s.recorder.Melody())
}

// PlayMelody schedules m for sound and its fading markers.
func (s *Session) PlayMelody(m melody.Melody) *playback.Run {
	run := s.scheduler.Play(m)
	s.fader.Play(m)
	return run
}

// Stop cancels playback and releases the audio context.
func (s *Session) Stop() {
	s.scheduler.Stop()
}

// Reset stops playback and discards the drawn melody and the markers.
func (s *Session) Reset() {
	s.scheduler.Reset()
	s.fader.Reset()
	s.recorder.Clear()
}

// Save stores the drawn melody with the current scale and instrument.
func (s *Session) Save(ctx context.Context, title string, overwrite bool) (melody.Record, error) {
	rec := melody.Record{
		Title:      title,
		Scale:      s.selection.Current().Name,
		Instrument: s.player.Instrument().Kind.String(),
		Notes:      s.recorder.Melody(),
	}
	return s.library.Save(ctx, rec, overwrite)
}

// Open loads a saved melody: its scale and instrument become current and
// its notes replace the drawing.
func (s *Session) Open(ctx context.Context, id string) (melody.Record, error) {
	rec, err := s.library.Load(ctx, id)
	if err != nil {
		return rec, err
	}
	s.Apply(rec)
	return rec, nil
}

// Apply makes a record's scale, instrument and notes current.
func (s *Session) Apply(rec melody.Record) {
	if rec.Scale != "" && s.catalog.Has(rec.Scale) {
		s.selection.Select(rec.Scale)
	}
	if rec.Instrument != "" {
		if kind, err := audio.ParseKind(rec.Instrument); err == nil {
			s.SetInstrument(kind)
		} else {
			s.logger.Warn("Record instrument ignored", logging.Fields{"instrument": rec.Instrument})
		}
	}
	s.recorder.Load(rec.Notes)
}
