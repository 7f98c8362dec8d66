package chroma_test

import (
	"math"
	"testing"

	"github.com/RyanBlaney/melodraw/algorithms/chroma"
	"github.com/RyanBlaney/melodraw/logging"
	"github.com/smartystreets/goconvey/convey"
)

const sampleRate = 22050

func tone(freqs []float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		for _, f := range freqs {
			out[i] += math.Sin(2 * math.Pi * f * float64(i) / sampleRate)
		}
	}
	return out
}

func newExtractor(segments int) *chroma.Extractor {
	cfg := chroma.DefaultExtractorConfig()
	cfg.SegmentLength = 2048
	cfg.SegmentCount = segments
	cfg.Workers = 3
	e, err := chroma.NewExtractor(cfg, &logging.NoOpLogger{})
	if err != nil {
		panic(err)
	}
	return e
}

func TestExtractor(t *testing.T) {
	convey.Convey("Given an extractor with 16 segments of 2048 samples", t, func() {
		e := newExtractor(16)

		convey.Convey("Buffers shorter than a segment give the zero vector", func() {
			v := e.Extract(tone([]float64{440}, 2047), sampleRate)
			convey.So(v.IsZero(), convey.ShouldBeTrue)
			convey.So(len(v), convey.ShouldEqual, chroma.Bins)
			convey.So(e.Extract(nil, sampleRate).IsZero(), convey.ShouldBeTrue)
		})

		convey.Convey("An A440 tone is dominated by pitch class A", func() {
			v := e.Extract(tone([]float64{440}, sampleRate), sampleRate)
			convey.So(chroma.Labels[v.Dominant()], convey.ShouldEqual, "A")
			convey.So(v[9], convey.ShouldAlmostEqual, 1.0, 1e-9)
		})

		convey.Convey("A C major triad lights up C, E and G", func() {
			v := e.Extract(tone([]float64{261.63, 329.63, 392.0}, sampleRate), sampleRate)
			for _, pc := range []int{0, 4, 7} {
				convey.So(v[pc], convey.ShouldBeGreaterThan, v[1])
				convey.So(v[pc], convey.ShouldBeGreaterThan, v[6])
			}
		})

		convey.Convey("Silent windows are dropped, not averaged in", func() {
			buf := make([]float64, 4*sampleRate)
			copy(buf[2*sampleRate:], tone([]float64{440}, 2*sampleRate))
			res := e.Analyze(buf, sampleRate)
			convey.So(res.Dropped, convey.ShouldBeGreaterThan, 0)
			convey.So(res.Kept+res.Dropped, convey.ShouldEqual, 16)
			convey.So(res.Mean[9], convey.ShouldAlmostEqual, 1.0, 1e-9)
		})

		convey.Convey("An all-silent buffer gives the zero vector", func() {
			res := e.Analyze(make([]float64, sampleRate), sampleRate)
			convey.So(res.Kept, convey.ShouldEqual, 0)
			convey.So(res.Mean.IsZero(), convey.ShouldBeTrue)
		})

		convey.Convey("Extraction is reproducible", func() {
			buf := tone([]float64{293.66, 349.23}, sampleRate)
			convey.So(e.Extract(buf, sampleRate), convey.ShouldEqual, e.Extract(buf, sampleRate))
		})
	})

	convey.Convey("Invalid configs are rejected", t, func() {
		cfg := chroma.DefaultExtractorConfig()
		cfg.SegmentCount = 0
		_, err := chroma.NewExtractor(cfg, nil)
		convey.So(err, convey.ShouldNotBeNil)
	})
}

func TestFromSlice(t *testing.T) {
	convey.Convey("FromSlice only accepts 12 finite values", t, func() {
		_, err := chroma.FromSlice(make([]float64, 11))
		convey.So(err, convey.ShouldNotBeNil)

		bad := make([]float64, 12)
		bad[3] = math.NaN()
		_, err = chroma.FromSlice(bad)
		convey.So(err, convey.ShouldNotBeNil)

		v, err := chroma.FromSlice([]float64{0, 0, 0, 0, 0, 0, 0, 2, 0, 0, 0, 0})
		convey.So(err, convey.ShouldBeNil)
		convey.So(v.Dominant(), convey.ShouldEqual, 7)
	})
}
