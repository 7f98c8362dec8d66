package tonal

import (
	"context"
	"time"

	"github.com/RyanBlaney/melodraw/algorithms/chroma"
	"github.com/RyanBlaney/melodraw/algorithms/spectral"
	"github.com/RyanBlaney/melodraw/logging"
	"github.com/RyanBlaney/melodraw/metrics"
)

// Buffer is a decoded mono sample buffer.
type Buffer struct {
	Samples    []float64
	SampleRate int
}

// Result is the outcome of one key detection.
type Result struct {
	Key            string            `json:"key"`
	Score          float64           `json:"score"`
	Chroma         chroma.Vector     `json:"chroma"`
	Profile        Profile           `json:"profile"`
	Spectrum       spectral.Snapshot `json:"-"`
	KeptWindows    int               `json:"kept_windows"`
	DroppedWindows int               `json:"dropped_windows"`
}

// KeyDetector runs the full pipeline: chroma extraction and a spectrum
// snapshot in parallel, then combination and template matching.
type KeyDetector struct {
	extractor *chroma.Extractor
	analyser  *spectral.Analyser
	matcher   *KeyMatcher
	weight    float64
	metrics   *metrics.Recorder
	logger    logging.Logger
}

// NewKeyDetector wires the pipeline stages. rec may be nil.
func NewKeyDetector(extractor *chroma.Extractor, analyser *spectral.Analyser, matcher *KeyMatcher, spectrumWeight float64, rec *metrics.Recorder, logger logging.Logger) *KeyDetector {
	return &KeyDetector{
		extractor: extractor,
		analyser:  analyser,
		matcher:   matcher,
		weight:    spectrumWeight,
		metrics:   rec,
		logger: logging.OrGlobal(logger).WithFields(logging.Fields{
			"component": "key_detector",
		}),
	}
}

// Detect estimates the key of buf. A nil or empty buffer is not an error:
// the result is Unknown and nothing is analysed. A catalog without usable
// templates also yields Unknown; only context cancellation returns an error.
func (d *KeyDetector) Detect(ctx context.Context, buf *Buffer) (Result, error) {
	if buf == nil || len(buf.Samples) == 0 {
		return Result{Key: Unknown}, nil
	}

	logger := d.logger.WithContext(ctx).WithFields(logging.Fields{
		"function":    "Detect",
		"samples":     len(buf.Samples),
		"sample_rate": buf.SampleRate,
	})

	if err := d.matcher.Ready(); err != nil {
		logger.Error(err, "Scale templates unavailable, key detection degraded")
		return Result{Key: Unknown}, nil
	}

	start := time.Now()
	snapshots := d.analyser.Sample(ctx, buf.Samples)
	extraction := d.extractor.Analyze(buf.Samples, buf.SampleRate)

	var snapshot spectral.Snapshot
	select {
	case s, ok := <-snapshots:
		if !ok {
			if err := ctx.Err(); err != nil {
				return Result{Key: Unknown}, err
			}
			return Result{Key: Unknown}, spectral.ErrNoFrame
		}
		snapshot = s
	case <-ctx.Done():
		return Result{Key: Unknown}, ctx.Err()
	}

	profile := Combine(extraction.Mean, snapshot, d.weight)
	best, _ := d.matcher.Best(profile)
	took := time.Since(start)

	d.metrics.KeyDetected(best.Name, extraction.Dropped, took)
	logger.Info("Key detected", logging.Fields{
		"key":             best.Name,
		"score":           best.Score,
		"kept_windows":    extraction.Kept,
		"dropped_windows": extraction.Dropped,
		"took_ms":         took.Milliseconds(),
	})

	return Result{
		Key:            best.Name,
		Score:          best.Score,
		Chroma:         extraction.Mean,
		Profile:        profile,
		Spectrum:       snapshot,
		KeptWindows:    extraction.Kept,
		DroppedWindows: extraction.Dropped,
	}, nil
}
