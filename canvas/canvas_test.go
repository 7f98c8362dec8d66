package canvas_test

import (
	"errors"
	"testing"
	"time"

	"github.com/RyanBlaney/melodraw/canvas"
	"github.com/RyanBlaney/melodraw/logging"
	"github.com/RyanBlaney/melodraw/playback"
	"github.com/RyanBlaney/melodraw/scales"
	"github.com/smartystreets/goconvey/convey"
)

type call struct {
	Pitch  string
	Volume float64
	Action playback.Action
}

type sink struct{ calls []call }

func (s *sink) Trigger(pitch string, volume float64, action playback.Action) {
	s.calls = append(s.calls, call{pitch, volume, action})
}

func TestSurface(t *testing.T) {
	convey.Convey("Given a 400x200 surface", t, func() {
		s := canvas.Surface{Width: 400, Height: 200}
		labels := []string{"C4", "D4", "E4", "F4"}

		convey.Convey("x maps to evenly sized label bands", func() {
			for x, want := range map[float64]string{0: "C4", 99: "C4", 100: "D4", 250: "E4", 399: "F4"} {
				got, ok := s.NoteAt(x, labels)
				convey.So(ok, convey.ShouldBeTrue)
				convey.So(got, convey.ShouldEqual, want)
			}
		})

		convey.Convey("Positions off the surface clamp", func() {
			got, _ := s.NoteAt(400, labels)
			convey.So(got, convey.ShouldEqual, "F4")
			got, _ = s.NoteAt(-3, labels)
			convey.So(got, convey.ShouldEqual, "C4")
			_, ok := s.NoteAt(10, nil)
			convey.So(ok, convey.ShouldBeFalse)
		})

		convey.Convey("Volume peaks on the centre line", func() {
			convey.So(s.VolumeAt(100), convey.ShouldEqual, 1.0)
			convey.So(s.VolumeAt(50), convey.ShouldEqual, 0.5)
			convey.So(s.VolumeAt(150), convey.ShouldEqual, 0.5)
			convey.So(s.VolumeAt(0), convey.ShouldEqual, 0.0)
			convey.So(s.VolumeAt(-20), convey.ShouldEqual, 0.0)
		})
	})
}

func TestRecorder(t *testing.T) {
	convey.Convey("Given a recorder", t, func() {
		clock := playback.NewManualClock(time.UnixMilli(1_000))
		out := &sink{}
		r := canvas.NewRecorder(canvas.Surface{Width: 400, Height: 200}, clock, out, &logging.NoOpLogger{})

		convey.Convey("Drawing without a scale fails", func() {
			_, err := r.PointerDown(10, 10)
			convey.So(errors.Is(err, canvas.ErrNoScale), convey.ShouldBeTrue)
			convey.So(err.Error(), convey.ShouldEqual, "scale required before drawing")
			convey.So(out.calls, convey.ShouldBeEmpty)
			convey.So(r.Melody(), convey.ShouldBeEmpty)
		})

		convey.Convey("With a selected scale", func() {
			cat, err := scales.Default()
			convey.So(err, convey.ShouldBeNil)
			sel := scales.NewSelection(cat)
			defer r.Observe(sel)()
			labels := sel.Select("A minor").Labels

			n, err := r.PointerDown(0, 100)
			convey.So(err, convey.ShouldBeNil)
			convey.So(n.Pitch, convey.ShouldEqual, labels[0])
			convey.So(n.TimestampMs, convey.ShouldEqual, 1_000)
			convey.So(n.Volume, convey.ShouldEqual, 1.0)
			convey.So(n.HasPosition, convey.ShouldBeTrue)

			convey.Convey("the note sounds until the pointer is released", func() {
				r.PointerUp()
				r.PointerUp()
				convey.So(out.calls, convey.ShouldResemble, []call{
					{labels[0], 1, playback.ActionStart},
					{labels[0], 1, playback.ActionStop},
				})
			})

			convey.Convey("leaving the surface also releases", func() {
				r.PointerLeave()
				convey.So(out.calls[len(out.calls)-1].Action, convey.ShouldEqual, playback.ActionStop)
			})

			convey.Convey("notes accumulate in drawing order", func() {
				r.PointerUp()
				clock.Advance(250 * time.Millisecond)
				r.PointerDown(399, 50)
				m := r.Melody()
				convey.So(len(m), convey.ShouldEqual, 2)
				convey.So(m[1].Pitch, convey.ShouldEqual, labels[len(labels)-1])
				convey.So(m[1].TimestampMs-m[0].TimestampMs, convey.ShouldEqual, 250)
				convey.So(m[1].Volume, convey.ShouldEqual, 0.5)

				m[0].Pitch = "changed"
				convey.So(r.Melody()[0].Pitch, convey.ShouldEqual, labels[0])
			})

			convey.Convey("Clear discards the melody", func() {
				r.Clear()
				convey.So(r.Melody(), convey.ShouldBeEmpty)
				r.PointerUp()
				convey.So(len(out.calls), convey.ShouldEqual, 1)
			})
		})
	})
}
