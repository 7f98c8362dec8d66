package playback_test

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/RyanBlaney/melodraw/logging"
	"github.com/RyanBlaney/melodraw/melody"
	"github.com/RyanBlaney/melodraw/playback"
	"github.com/RyanBlaney/melodraw/scales"
	"github.com/smartystreets/goconvey/convey"
)

var epoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

type trigger struct {
	At     time.Duration
	Pitch  string
	Volume float64
	Action playback.Action
}

type recordingSink struct {
	mu    sync.Mutex
	clock playback.Clock
	calls []trigger
}

func (r *recordingSink) Trigger(pitch string, volume float64, action playback.Action) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, trigger{r.clock.Now().Sub(epoch), pitch, volume, action})
}

func (r *recordingSink) Calls() []trigger {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]trigger(nil), r.calls...)
}

func newScheduler(config playback.SchedulerConfig) (*playback.Scheduler, *playback.ManualClock, *recordingSink) {
	clock := playback.NewManualClock(epoch)
	sink := &recordingSink{clock: clock}
	return playback.NewScheduler(clock, sink, config, nil, &logging.NoOpLogger{}), clock, sink
}

func isClosed(ch <-chan struct{}) bool {
	select {
	case <-ch:
		return true
	default:
		return false
	}
}

func TestSchedulerPlay(t *testing.T) {
	convey.Convey("Given an idle scheduler", t, func() {
		s, clock, sink := newScheduler(playback.DefaultSchedulerConfig())

		convey.Convey("Playing an empty melody does nothing", func() {
			convey.So(s.Play(nil), convey.ShouldBeNil)
			convey.So(s.Play(melody.Melody{}), convey.ShouldBeNil)
			clock.Advance(time.Second)
			convey.So(sink.Calls(), convey.ShouldBeEmpty)
			convey.So(s.State(), convey.ShouldEqual, playback.Idle)
		})

		convey.Convey("Two notes produce start and stop pairs in delay order", func() {
			run := s.Play(melody.Melody{
				{Pitch: "C4", TimestampMs: 0, Volume: 1},
				{Pitch: "E4", TimestampMs: 500, Volume: 0.5},
			})
			convey.So(run, convey.ShouldNotBeNil)
			convey.So(s.State(), convey.ShouldEqual, playback.Scheduled)
			convey.So(sink.Calls(), convey.ShouldBeEmpty)

			clock.Advance(2 * time.Second)
			convey.So(sink.Calls(), convey.ShouldResemble, []trigger{
				{0, "C4", 1, playback.ActionStart},
				{500 * time.Millisecond, "C4", 1, playback.ActionStop},
				{500 * time.Millisecond, "E4", 0.5, playback.ActionStart},
				{1000 * time.Millisecond, "E4", 0.5, playback.ActionStop},
			})

			convey.Convey("and the scheduler returns to idle", func() {
				convey.So(s.State(), convey.ShouldEqual, playback.Idle)
				convey.So(isClosed(run.Done()), convey.ShouldBeTrue)
			})
		})

		convey.Convey("Timestamps are relative to the first event", func() {
			s.Play(melody.Melody{{Pitch: "A4", TimestampMs: 1_700_000_000_000, Volume: 1}})
			clock.Advance(499 * time.Millisecond)
			convey.So(len(sink.Calls()), convey.ShouldEqual, 1)
			clock.Advance(time.Millisecond)
			convey.So(len(sink.Calls()), convey.ShouldEqual, 2)
		})

		convey.Convey("Events before the reference are skipped", func() {
			run := s.Play(melody.Melody{
				{Pitch: "C4", TimestampMs: 1000, Volume: 1},
				{Pitch: "E4", TimestampMs: 900, Volume: 1},
				{Pitch: "G4", TimestampMs: 1100, Volume: 1},
			})
			convey.So(run.Skipped(), convey.ShouldEqual, 1)

			clock.Advance(time.Minute)
			calls := sink.Calls()
			convey.So(len(calls), convey.ShouldEqual, 4)
			for _, c := range calls {
				convey.So(c.Pitch, convey.ShouldNotEqual, "E4")
				convey.So(c.At, convey.ShouldBeGreaterThanOrEqualTo, 0)
			}
		})

		convey.Convey("Overlapping notes are not truncated", func() {
			s.Play(melody.Melody{
				{Pitch: "C4", TimestampMs: 0, Volume: 1},
				{Pitch: "D4", TimestampMs: 100, Volume: 1},
			})
			clock.Advance(time.Second)
			convey.So(sink.Calls()[1], convey.ShouldResemble, trigger{100 * time.Millisecond, "D4", 1, playback.ActionStart})
			convey.So(sink.Calls()[2], convey.ShouldResemble, trigger{500 * time.Millisecond, "C4", 1, playback.ActionStop})
		})

		convey.Convey("The note duration is configurable", func() {
			s, clock, sink := newScheduler(playback.SchedulerConfig{NoteDuration: 50 * time.Millisecond})
			s.Play(melody.Melody{{Pitch: "C4", Volume: 1}})
			clock.Advance(time.Second)
			convey.So(sink.Calls()[1].At, convey.ShouldEqual, 50*time.Millisecond)
		})
	})
}

func TestSchedulerStop(t *testing.T) {
	convey.Convey("Given a run in progress", t, func() {
		s, clock, sink := newScheduler(playback.DefaultSchedulerConfig())

		var transitions []string
		s.OnTransition(func(from, to playback.State) {
			transitions = append(transitions, from.String()+">"+to.String())
		})
		teardowns := 0
		s.SetTeardown(func() { teardowns++ })

		run := s.Play(melody.Melody{
			{Pitch: "C4", TimestampMs: 0, Volume: 1},
			{Pitch: "E4", TimestampMs: 1000, Volume: 1},
		})
		clock.Advance(100 * time.Millisecond)
		convey.So(len(sink.Calls()), convey.ShouldEqual, 1)

		s.Stop()

		convey.Convey("The sounding note is silenced at once", func() {
			calls := sink.Calls()
			convey.So(len(calls), convey.ShouldEqual, 2)
			convey.So(calls[1], convey.ShouldResemble, trigger{100 * time.Millisecond, "C4", 1, playback.ActionStop})
		})

		convey.Convey("No start fires afterwards", func() {
			clock.Advance(time.Minute)
			for _, c := range sink.Calls() {
				convey.So(c.Pitch, convey.ShouldNotEqual, "E4")
			}
			convey.So(clock.Pending(), convey.ShouldEqual, 0)
		})

		convey.Convey("The run is cancelled and the audio context torn down", func() {
			convey.So(isClosed(run.Done()), convey.ShouldBeTrue)
			convey.So(teardowns, convey.ShouldEqual, 1)
			convey.So(s.State(), convey.ShouldEqual, playback.Idle)
			convey.So(transitions, convey.ShouldResemble, []string{
				"idle>scheduled", "scheduled>cancelled", "cancelled>idle",
			})
		})

		convey.Convey("Stopping again is harmless", func() {
			s.Stop()
			convey.So(len(sink.Calls()), convey.ShouldEqual, 2)
			convey.So(teardowns, convey.ShouldEqual, 2)
		})
	})

	convey.Convey("Stopping before anything started sends nothing", t, func() {
		s, clock, sink := newScheduler(playback.DefaultSchedulerConfig())
		s.Play(melody.Melody{{Pitch: "C4", TimestampMs: 0, Volume: 1}})
		s.Stop()
		clock.Advance(time.Second)
		convey.So(sink.Calls(), convey.ShouldBeEmpty)
	})
}

func TestSchedulerReentrancy(t *testing.T) {
	first := melody.Melody{{Pitch: "C4", TimestampMs: 0, Volume: 1}, {Pitch: "D4", TimestampMs: 300, Volume: 1}}
	second := melody.Melody{{Pitch: "G4", TimestampMs: 0, Volume: 1}}

	convey.Convey("With the overlap policy earlier runs keep playing", t, func() {
		s, clock, sink := newScheduler(playback.DefaultSchedulerConfig())
		a := s.Play(first)
		clock.Advance(100 * time.Millisecond)
		b := s.Play(second)
		clock.Advance(time.Second)

		convey.So(len(sink.Calls()), convey.ShouldEqual, 6)
		convey.So(isClosed(a.Done()), convey.ShouldBeTrue)
		convey.So(isClosed(b.Done()), convey.ShouldBeTrue)
		convey.So(s.State(), convey.ShouldEqual, playback.Idle)
	})

	convey.Convey("With the replace policy a new Play stops earlier runs", t, func() {
		s, clock, sink := newScheduler(playback.SchedulerConfig{Overlap: playback.OverlapReplace})
		a := s.Play(first)
		clock.Advance(100 * time.Millisecond)
		s.Play(second)
		convey.So(isClosed(a.Done()), convey.ShouldBeTrue)

		clock.Advance(time.Second)
		var pitches []string
		for _, c := range sink.Calls() {
			pitches = append(pitches, fmt.Sprintf("%s:%s", c.Pitch, c.Action))
		}
		convey.So(pitches, convey.ShouldResemble, []string{"C4:start", "C4:stop", "G4:start", "G4:stop"})
	})

	convey.Convey("Policies parse from config strings", t, func() {
		p, err := playback.ParseOverlapPolicy("")
		convey.So(err, convey.ShouldBeNil)
		convey.So(p, convey.ShouldEqual, playback.OverlapAllow)
		p, _ = playback.ParseOverlapPolicy("replace")
		convey.So(p, convey.ShouldEqual, playback.OverlapReplace)
		_, err = playback.ParseOverlapPolicy("queue")
		convey.So(err, convey.ShouldNotBeNil)
	})
}

func TestSchedulerReset(t *testing.T) {
	convey.Convey("Reset then Play matches a cold start", t, func() {
		m := melody.Melody{
			{Pitch: "C4", TimestampMs: 10, Volume: 1},
			{Pitch: "E4", TimestampMs: 210, Volume: 0.7},
		}

		cold, coldClock, coldSink := newScheduler(playback.DefaultSchedulerConfig())
		cold.Play(m)
		coldClock.Advance(time.Minute)

		warm, warmClock, warmSink := newScheduler(playback.DefaultSchedulerConfig())
		warm.Play(m)
		warmClock.Advance(300 * time.Millisecond)
		warm.Reset()
		convey.So(warm.State(), convey.ShouldEqual, playback.Idle)

		before := len(warmSink.Calls())
		offset := warmClock.Now().Sub(epoch)
		warm.Play(m)
		warmClock.Advance(time.Minute)

		var replayed []trigger
		for _, c := range warmSink.Calls()[before:] {
			c.At -= offset
			replayed = append(replayed, c)
		}
		convey.So(replayed, convey.ShouldResemble, coldSink.Calls())
	})
}

func TestSchedulerRealClock(t *testing.T) {
	convey.Convey("A melody completes on the real clock", t, func() {
		sink := &recordingSink{clock: playback.RealClock()}
		s := playback.NewScheduler(nil, sink, playback.SchedulerConfig{NoteDuration: 5 * time.Millisecond}, nil, nil)
		run := s.Play(melody.Melody{{Pitch: "C4", TimestampMs: 0, Volume: 1}, {Pitch: "D4", TimestampMs: 2, Volume: 1}})

		select {
		case <-run.Done():
		case <-time.After(2 * time.Second):
		}
		convey.So(isClosed(run.Done()), convey.ShouldBeTrue)
		convey.So(len(sink.Calls()), convey.ShouldEqual, 4)
		convey.So(s.State(), convey.ShouldEqual, playback.Idle)
	})
}

type surfaceOp struct {
	Op    string
	Style string
	X, Y  float64
}

type recordingSurface struct {
	ops   []surfaceOp
	style string
}

func (r *recordingSurface) Clear() { r.ops = append(r.ops, surfaceOp{Op: "clear"}) }

func (r *recordingSurface) SetFillStyle(style string) { r.style = style }

func (r *recordingSurface) DrawCircle(x, y, radius float64) {
	r.ops = append(r.ops, surfaceOp{Op: "circle", Style: r.style, X: x, Y: y})
}

func (r *recordingSurface) count(op string) int {
	n := 0
	for _, o := range r.ops {
		if o.Op == op {
			n++
		}
	}
	return n
}

func TestFader(t *testing.T) {
	convey.Convey("Given a fader on a 100x50 surface", t, func() {
		clock := playback.NewManualClock(epoch)
		surface := &recordingSurface{}
		cfg := playback.DefaultFaderConfig()
		cfg.Width, cfg.Height = 100, 50
		f := playback.NewFader(clock, surface, cfg, nil)
		f.SetLabels([]string{"C4", "D4", "E4", "F4", "G4"})

		convey.Convey("Pitches spread over the width", func() {
			x, y := f.Position("C4")
			convey.So(x, convey.ShouldEqual, 0.0)
			convey.So(y, convey.ShouldEqual, 25.0)
			x, _ = f.Position("E4")
			convey.So(x, convey.ShouldEqual, 50.0)
			x, _ = f.Position("G4")
			convey.So(x, convey.ShouldEqual, 100.0)
		})

		convey.Convey("Unknown pitches sit in the centre", func() {
			x, _ := f.Position("B7")
			convey.So(x, convey.ShouldEqual, 50.0)
			f.SetLabels([]string{"C4"})
			x, _ = f.Position("C4")
			convey.So(x, convey.ShouldEqual, 50.0)
		})

		convey.Convey("A marker fades out and the surface is cleared", func() {
			f.Play(melody.Melody{{Pitch: "D4", TimestampMs: 0}})
			convey.So(surface.ops, convey.ShouldBeEmpty)

			clock.Advance(0)
			convey.So(surface.ops[0], convey.ShouldResemble, surfaceOp{Op: "circle", Style: "rgba(255, 0, 255, 1)", X: 25, Y: 25})

			clock.Advance(time.Second)
			convey.So(surface.count("circle"), convey.ShouldBeBetweenOrEqual, 18, 20)
			convey.So(surface.count("clear"), convey.ShouldEqual, 1)
			convey.So(surface.ops[len(surface.ops)-1].Op, convey.ShouldEqual, "clear")
			convey.So(surface.ops[1].Style, convey.ShouldEqual, "rgba(255, 0, 255, 0.95)")
		})

		convey.Convey("Markers follow the melody's relative timing", func() {
			f.Play(melody.Melody{{Pitch: "C4", TimestampMs: 5000}, {Pitch: "G4", TimestampMs: 5300}, {Pitch: "E4", TimestampMs: 4000}})
			clock.Advance(299 * time.Millisecond)
			for _, o := range surface.ops {
				convey.So(o.X, convey.ShouldEqual, 0.0)
			}
			clock.Advance(time.Millisecond)
			last := surface.ops[len(surface.ops)-1]
			convey.So(last.X, convey.ShouldEqual, 100.0)

			clock.Advance(time.Minute)
			for _, o := range surface.ops {
				convey.So(o.X, convey.ShouldNotEqual, 50.0)
			}
		})

		convey.Convey("Reset drops pending markers and clears", func() {
			f.Play(melody.Melody{{Pitch: "C4", TimestampMs: 0}, {Pitch: "D4", TimestampMs: 100}})
			clock.Advance(50 * time.Millisecond)
			drawn := surface.count("circle")
			f.Reset()
			clock.Advance(time.Minute)
			convey.So(surface.count("circle"), convey.ShouldEqual, drawn)
			convey.So(surface.ops[len(surface.ops)-1].Op, convey.ShouldEqual, "clear")
			convey.So(clock.Pending(), convey.ShouldEqual, 0)
		})

		convey.Convey("Scale selection updates the labels", func() {
			cat, err := scales.Default()
			convey.So(err, convey.ShouldBeNil)
			sel := scales.NewSelection(cat)
			unsubscribe := f.Observe(sel)
			defer unsubscribe()

			change := sel.Select("C major")
			x, _ := f.Position(change.Labels[len(change.Labels)-1])
			convey.So(x, convey.ShouldEqual, 100.0)
		})
	})
}

func TestManualClock(t *testing.T) {
	convey.Convey("Callbacks run in due order and may schedule more", t, func() {
		clock := playback.NewManualClock(epoch)
		var order []string
		clock.AfterFunc(20*time.Millisecond, func() { order = append(order, "b") })
		clock.AfterFunc(10*time.Millisecond, func() {
			order = append(order, "a")
			clock.AfterFunc(5*time.Millisecond, func() { order = append(order, "a2") })
		})
		stopped := clock.AfterFunc(15*time.Millisecond, func() { order = append(order, "x") })
		convey.So(stopped.Stop(), convey.ShouldBeTrue)

		clock.Advance(30 * time.Millisecond)
		convey.So(order, convey.ShouldResemble, []string{"a", "a2", "b"})
		convey.So(clock.Now(), convey.ShouldEqual, epoch.Add(30*time.Millisecond))
		convey.So(stopped.Stop(), convey.ShouldBeFalse)
	})
}
