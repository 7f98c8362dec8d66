package chroma

import (
	"fmt"
	"math"
	"runtime"
	"sync"

	"github.com/RyanBlaney/melodraw/algorithms/common"
	"github.com/RyanBlaney/melodraw/algorithms/spectral"
	"github.com/RyanBlaney/melodraw/algorithms/windowing"
	"github.com/RyanBlaney/melodraw/logging"
)

// ExtractorConfig controls how a buffer is segmented for chroma analysis.
type ExtractorConfig struct {
	SegmentLength int     `json:"segment_length"` // samples per segment
	SegmentCount  int     `json:"segment_count"`  // segments spread over the buffer
	TuningFreq    float64 `json:"tuning_freq"`    // A4 reference in Hz
	MinFreq       float64 `json:"min_freq"`       // bins below this are ignored
	Workers       int     `json:"workers"`        // 0 = runtime.NumCPU()
}

// DefaultExtractorConfig returns 1000 segments of 4096 samples, A4=440Hz.
func DefaultExtractorConfig() ExtractorConfig {
	return ExtractorConfig{
		SegmentLength: 4096,
		SegmentCount:  1000,
		TuningFreq:    440.0,
		MinFreq:       20.0,
	}
}

// Extraction is the averaged chroma of a buffer plus window bookkeeping.
type Extraction struct {
	Mean    Vector `json:"mean"`
	Kept    int    `json:"kept"`
	Dropped int    `json:"dropped"`
}

// Extractor maps evenly spaced segments of a sample buffer to chroma vectors
// and averages the valid ones.
type Extractor struct {
	config ExtractorConfig
	window *windowing.Hann
	fft    *spectral.FFT
	logger logging.Logger
}

// NewExtractor validates config and builds an extractor.
func NewExtractor(config ExtractorConfig, logger logging.Logger) (*Extractor, error) {
	if config.SegmentLength <= 0 {
		return nil, fmt.Errorf("segment length must be positive, got %d", config.SegmentLength)
	}
	if config.SegmentCount <= 0 {
		return nil, fmt.Errorf("segment count must be positive, got %d", config.SegmentCount)
	}
	if config.TuningFreq <= 0 {
		config.TuningFreq = 440.0
	}
	if config.Workers <= 0 {
		config.Workers = runtime.NumCPU()
	}

	return &Extractor{
		config: config,
		window: windowing.NewHann(config.SegmentLength, false),
		fft:    spectral.NewFFT(),
		logger: logging.OrGlobal(logger).WithFields(logging.Fields{
			"component": "chroma_extractor",
		}),
	}, nil
}

// Extract returns the mean chroma vector of samples. Buffers shorter than one
// segment, and buffers where no segment yields a valid vector, give the zero
// vector.
func (e *Extractor) Extract(samples []float64, sampleRate int) Vector {
	return e.Analyze(samples, sampleRate).Mean
}

// Analyze is Extract with the kept/dropped window counts.
func (e *Extractor) Analyze(samples []float64, sampleRate int) Extraction {
	l, n := e.config.SegmentLength, e.config.SegmentCount
	if len(samples) < l || sampleRate <= 0 {
		return Extraction{}
	}

	results := make([][]float64, n)
	usable := len(samples) - l

	type job struct{ idx, start int }
	jobs := make(chan job, n)
	for i := range n {
		start := int(math.Floor(float64(i) / float64(n) * float64(usable)))
		jobs <- job{idx: i, start: start}
	}
	close(jobs)

	var wg sync.WaitGroup
	for range min(e.config.Workers, n) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobs {
				results[j.idx] = e.Frame(samples[j.start:j.start+l], sampleRate)
			}
		}()
	}
	wg.Wait()

	kept := make([][]float64, 0, n)
	for _, r := range results {
		if _, err := FromSlice(r); err != nil {
			continue
		}
		kept = append(kept, r)
	}

	out := Extraction{Kept: len(kept), Dropped: n - len(kept)}
	if len(kept) == 0 {
		e.logger.Debug("No valid chroma windows", logging.Fields{"segments": n})
		return out
	}

	copy(out.Mean[:], common.MeanVectors(kept))
	e.logger.Debug("Chroma extracted", logging.Fields{
		"kept":     out.Kept,
		"dropped":  out.Dropped,
		"dominant": Labels[out.Mean.Dominant()],
	})
	return out
}

// Frame computes the chroma of one segment: Hann window, magnitude spectrum,
// energy folded into pitch classes, scaled so the strongest class is 1.
// A silent segment has no strongest class and comes back as NaNs.
func (e *Extractor) Frame(segment []float64, sampleRate int) []float64 {
	windowed := e.window.Apply(segment)
	if windowed == nil {
		return nil
	}

	mags := e.fft.Magnitudes(windowed)
	out := make([]float64, Bins)
	for k := 1; k < len(mags); k++ {
		freq := spectral.BinFrequency(k, len(segment), sampleRate)
		if freq < e.config.MinFreq {
			continue
		}
		out[e.pitchClass(freq)] += mags[k] * mags[k]
	}

	peak := 0.0
	for _, v := range out {
		peak = math.Max(peak, v)
	}
	for i := range out {
		out[i] /= peak
	}
	return out
}

// pitchClass maps a frequency to its nearest equal-tempered pitch class.
func (e *Extractor) pitchClass(freq float64) int {
	midi := 69.0 + 12.0*math.Log2(freq/e.config.TuningFreq)
	pc := int(math.Round(midi)) % Bins
	if pc < 0 {
		pc += Bins
	}
	return pc
}
