package session_test

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/RyanBlaney/melodraw/algorithms/chroma"
	"github.com/RyanBlaney/melodraw/algorithms/spectral"
	"github.com/RyanBlaney/melodraw/algorithms/tonal"
	"github.com/RyanBlaney/melodraw/audio"
	"github.com/RyanBlaney/melodraw/canvas"
	"github.com/RyanBlaney/melodraw/logging"
	"github.com/RyanBlaney/melodraw/playback"
	"github.com/RyanBlaney/melodraw/scales"
	"github.com/RyanBlaney/melodraw/session"
	"github.com/RyanBlaney/melodraw/store"
	"github.com/smartystreets/goconvey/convey"
)

var quiet = &logging.NoOpLogger{}

type backend struct {
	events *[]string
}

func (b backend) StartTone(freq, gain float64) error {
	*b.events = append(*b.events, "tone")
	return nil
}
func (b backend) UpdateTone(freq, gain float64) error {
	*b.events = append(*b.events, "update")
	return nil
}
func (b backend) StopTone() error { *b.events = append(*b.events, "silence"); return nil }
func (b backend) PlaySample(ref string, gain float64) error {
	*b.events = append(*b.events, "sample")
	return nil
}
func (b backend) Close() error { *b.events = append(*b.events, "close"); return nil }

type surface struct{ circles, clears int }

func (s *surface) Clear()                          { s.clears++ }
func (s *surface) SetFillStyle(string)             {}
func (s *surface) DrawCircle(x, y, radius float64) { s.circles++ }

func tone(freqs []float64, rate, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		for _, f := range freqs {
			out[i] += math.Sin(2*math.Pi*f*float64(i)/float64(rate)) / float64(len(freqs))
		}
	}
	return out
}

type fixture struct {
	s       *session.Session
	clock   *playback.ManualClock
	events  *[]string
	surface *surface
}

func newFixture() fixture {
	cat, err := scales.Default()
	if err != nil {
		panic(err)
	}
	ecfg := chroma.DefaultExtractorConfig()
	ecfg.SegmentLength = 2048
	ecfg.SegmentCount = 8
	ext, _ := chroma.NewExtractor(ecfg, quiet)
	an, _ := spectral.NewAnalyser(spectral.DefaultAnalyserConfig(), quiet)
	det := tonal.NewKeyDetector(ext, an, tonal.NewKeyMatcher(cat, quiet), 0, nil, quiet)

	events := &[]string{}
	ctxm := audio.NewContextManager(func(ctx context.Context) (audio.Backend, error) {
		return backend{events: events}, nil
	}, nil, quiet)
	in, _ := audio.DefaultInstruments()

	clock := playback.NewManualClock(time.UnixMilli(10_000))
	surf := &surface{}
	s, err := session.New(session.Options{
		Catalog:     cat,
		Detector:    det,
		Audio:       ctxm,
		Instruments: in,
		Instrument:  audio.Oscillator,
		Surface:     surf,
		Library:     store.NewLibrary(store.NewMemoryKV(), quiet),
		Clock:       clock,
		Scheduler:   playback.DefaultSchedulerConfig(),
		Fader:       playback.DefaultFaderConfig(),
		Logger:      quiet,
	})
	if err != nil {
		panic(err)
	}
	return fixture{s: s, clock: clock, events: events, surface: surf}
}

func TestSessionKeyDetection(t *testing.T) {
	ctx := context.Background()

	convey.Convey("Given a new session", t, func() {
		f := newFixture()

		convey.Convey("Detecting without audio is a no-op", func() {
			res, err := f.s.DetectKey(ctx)
			convey.So(err, convey.ShouldBeNil)
			convey.So(res.Key, convey.ShouldEqual, tonal.Unknown)
			convey.So(f.s.Selection().Current().Name, convey.ShouldEqual, "")
		})

		convey.Convey("Drawing needs a scale", func() {
			_, err := f.s.Recorder().PointerDown(10, 10)
			convey.So(errors.Is(err, canvas.ErrNoScale), convey.ShouldBeTrue)
		})

		convey.Convey("A detected key becomes the drawing scale", func() {
			f.s.LoadBuffer(&tonal.Buffer{
				Samples:    tone([]float64{523.25, 587.33, 659.26, 698.46, 783.99, 880.0, 987.77}, 22050, 22050),
				SampleRate: 22050,
			})
			res, err := f.s.DetectKey(ctx)
			convey.So(err, convey.ShouldBeNil)
			convey.So(res.Key, convey.ShouldEqual, "C major")
			convey.So(f.s.Selection().Current().Name, convey.ShouldEqual, "C major")

			n, err := f.s.Recorder().PointerDown(0, 200)
			convey.So(err, convey.ShouldBeNil)
			convey.So(n.Pitch, convey.ShouldEqual, "C4")
		})

		convey.Convey("Unknown scales are rejected", func() {
			_, err := f.s.SelectScale("H major")
			convey.So(errors.Is(err, session.ErrUnknownScale), convey.ShouldBeTrue)
			change, err := f.s.SelectScale("chromatic")
			convey.So(err, convey.ShouldBeNil)
			convey.So(len(change.Labels), convey.ShouldEqual, 25)
		})
	})
}

func TestSessionPlayback(t *testing.T) {
	ctx := context.Background()

	convey.Convey("Given a drawn melody", t, func() {
		f := newFixture()
		_, err := f.s.SelectScale("A minor")
		convey.So(err, convey.ShouldBeNil)

		rec := f.s.Recorder()
		rec.PointerDown(100, 200)
		rec.PointerUp()
		f.clock.Advance(300 * time.Millisecond)
		rec.PointerDown(500, 200)
		rec.PointerUp()
		*f.events = nil

		convey.Convey("Play sounds and draws every note", func() {
			run := f.s.Play()
			f.clock.Advance(2 * time.Second)
			convey.So(*f.events, convey.ShouldResemble, []string{"tone", "silence", "tone", "silence"})
			convey.So(f.surface.circles, convey.ShouldBeGreaterThan, 2)
			convey.So(f.surface.clears, convey.ShouldBeGreaterThan, 0)
			<-run.Done()
		})

		convey.Convey("Stop silences and closes the audio context", func() {
			f.s.Play()
			f.clock.Advance(100 * time.Millisecond)
			f.s.Stop()
			f.clock.Advance(2 * time.Second)
			convey.So(*f.events, convey.ShouldResemble, []string{"tone", "silence", "close"})
		})

		convey.Convey("Reset discards the melody", func() {
			f.s.Play()
			f.clock.Advance(50 * time.Millisecond)
			f.s.Reset()
			convey.So(f.s.Recorder().Melody(), convey.ShouldBeEmpty)
			convey.So(f.s.Play(), convey.ShouldBeNil)
			convey.So(f.s.Scheduler().State(), convey.ShouldEqual, playback.Idle)
		})

		convey.Convey("Saving and reopening restores scale, instrument and notes", func() {
			f.s.SetInstrument(audio.Piano)
			saved, err := f.s.Save(ctx, "first tune", false)
			convey.So(err, convey.ShouldBeNil)
			convey.So(saved.Scale, convey.ShouldEqual, "A minor")
			convey.So(saved.Instrument, convey.ShouldEqual, "piano")
			convey.So(len(saved.Notes), convey.ShouldEqual, 2)

			_, err = f.s.Save(ctx, "first tune", false)
			convey.So(errors.Is(err, store.ErrTitleExists), convey.ShouldBeTrue)

			other := newFixture()
			other.s.Apply(saved)
			convey.So(other.s.Selection().Current().Name, convey.ShouldEqual, "A minor")
			convey.So(other.s.Recorder().Melody(), convey.ShouldResemble, saved.Notes)

			opened, err := f.s.Open(ctx, saved.ID)
			convey.So(err, convey.ShouldBeNil)
			convey.So(opened.Title, convey.ShouldEqual, "first tune")
		})
	})
}
