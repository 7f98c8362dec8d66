package spectral

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/bits"
	"sync"

	"github.com/mjibson/go-dsp/window"

	"github.com/RyanBlaney/melodraw/logging"
)

// ErrNoFrame is returned by Capture when rendering stopped before a frame was
// produced.
var ErrNoFrame = errors.New("no analysis frame produced")

// Snapshot is one byte-scaled magnitude frame, index = frequency bin ascending.
type Snapshot []uint8

// AnalyserConfig mirrors the knobs of a real-time analyser node.
type AnalyserConfig struct {
	FFTSize               int     `json:"fft_size"`                // power of two
	SmoothingTimeConstant float64 `json:"smoothing_time_constant"` // 0..1, blend with previous frame
	MinDecibels           float64 `json:"min_decibels"`            // maps to byte 0
	MaxDecibels           float64 `json:"max_decibels"`            // maps to byte 255
	RenderQuantum         int     `json:"render_quantum"`          // samples pushed per render step
}

// DefaultAnalyserConfig returns the usual browser analyser defaults with a
// 2048-point transform.
func DefaultAnalyserConfig() AnalyserConfig {
	return AnalyserConfig{
		FFTSize:               2048,
		SmoothingTimeConstant: 0.8,
		MinDecibels:           -100,
		MaxDecibels:           -30,
		RenderQuantum:         128,
	}
}

func (c AnalyserConfig) validate() error {
	if c.FFTSize < 32 || bits.OnesCount(uint(c.FFTSize)) != 1 {
		return fmt.Errorf("fft size must be a power of two >= 32, got %d", c.FFTSize)
	}
	if c.SmoothingTimeConstant < 0 || c.SmoothingTimeConstant > 1 {
		return fmt.Errorf("smoothing time constant must be in [0,1], got %v", c.SmoothingTimeConstant)
	}
	if c.MaxDecibels <= c.MinDecibels {
		return fmt.Errorf("max decibels (%v) must exceed min decibels (%v)", c.MaxDecibels, c.MinDecibels)
	}
	if c.RenderQuantum <= 0 || c.RenderQuantum > c.FFTSize {
		return fmt.Errorf("render quantum must be in [1,%d], got %d", c.FFTSize, c.RenderQuantum)
	}
	return nil
}

// Analyser produces a single magnitude snapshot from a sample buffer the way
// a streaming analyser node does: the buffer is rendered quantum by quantum
// into a sliding time-domain window and the snapshot is taken from the first
// analysis frame that becomes available.
type Analyser struct {
	config AnalyserConfig
	fft    *FFT
	window []float64
	logger logging.Logger
}

// NewAnalyser validates config and builds an analyser.
func NewAnalyser(config AnalyserConfig, logger logging.Logger) (*Analyser, error) {
	if err := config.validate(); err != nil {
		return nil, err
	}

	return &Analyser{
		config: config,
		fft:    NewFFT(),
		window: window.Blackman(config.FFTSize),
		logger: logging.OrGlobal(logger).WithFields(logging.Fields{
			"component": "spectrum_analyser",
		}),
	}, nil
}

// BinCount is the snapshot length, half the FFT size.
func (a *Analyser) BinCount() int {
	return a.config.FFTSize / 2
}

// Sample starts rendering samples in the background and returns a channel
// that yields exactly one Snapshot, taken from the first full analysis frame.
// Buffers shorter than the FFT size are analysed zero-padded once rendering
// runs out. If ctx is cancelled first the channel is closed without a value.
func (a *Analyser) Sample(ctx context.Context, samples []float64) <-chan Snapshot {
	out := make(chan Snapshot, 1)
	var once sync.Once
	resolve := func(s Snapshot) {
		once.Do(func() {
			if s != nil {
				out <- s
			}
			close(out)
		})
	}

	go func() {
		n := a.config.FFTSize
		timeDomain := make([]float64, n)
		previous := make([]float64, n/2)
		filled := 0

		for offset := 0; ; offset += a.config.RenderQuantum {
			if err := ctx.Err(); err != nil {
				a.logger.Debug("Render cancelled before first frame", logging.Fields{"offset": offset})
				resolve(nil)
				return
			}

			end := min(offset+a.config.RenderQuantum, len(samples))
			if offset < end {
				quantum := samples[offset:end]
				// slide the window left and append the quantum
				copy(timeDomain, timeDomain[len(quantum):])
				copy(timeDomain[n-len(quantum):], quantum)
				filled += len(quantum)
			}

			if filled >= n || end >= len(samples) {
				resolve(a.frame(timeDomain, previous))
				return
			}
		}
	}()

	return out
}

// Capture blocks until the first snapshot is available.
func (a *Analyser) Capture(ctx context.Context, samples []float64) (Snapshot, error) {
	select {
	case s, ok := <-a.Sample(ctx, samples):
		if !ok {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			return nil, ErrNoFrame
		}
		return s, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// frame computes the byte frequency data for the current time-domain window.
// previous holds the smoothed magnitudes of the prior frame and is updated.
func (a *Analyser) frame(timeDomain, previous []float64) Snapshot {
	n := a.config.FFTSize
	windowed := make([]float64, n)
	for i := range n {
		windowed[i] = timeDomain[i] * a.window[i]
	}

	spectrum := a.fft.Compute(windowed)
	tau := a.config.SmoothingTimeConstant
	scale := 255.0 / (a.config.MaxDecibels - a.config.MinDecibels)

	out := make(Snapshot, n/2)
	for k := range n / 2 {
		mag := math.Hypot(real(spectrum[k]), imag(spectrum[k])) / float64(n)
		smoothed := tau*previous[k] + (1-tau)*mag
		previous[k] = smoothed

		if smoothed <= 0 {
			continue
		}
		db := 20 * math.Log10(smoothed)
		v := math.Floor(scale * (db - a.config.MinDecibels))
		out[k] = uint8(max(0, min(255, v)))
	}
	return out
}
