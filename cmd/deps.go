package cmd

import (
	"fmt"

	"github.com/RyanBlaney/melodraw/algorithms/chroma"
	"github.com/RyanBlaney/melodraw/algorithms/spectral"
	"github.com/RyanBlaney/melodraw/algorithms/tonal"
	"github.com/RyanBlaney/melodraw/metrics"
	"github.com/RyanBlaney/melodraw/scales"
	"github.com/RyanBlaney/melodraw/transcode"
)

func newDetector(cat *scales.Catalog, rec *metrics.Recorder) (*tonal.KeyDetector, error) {
	extractor, err := chroma.NewExtractor(cfg.Extractor(), logger)
	if err != nil {
		return nil, fmt.Errorf("chroma extractor: %w", err)
	}
	analyser, err := spectral.NewAnalyser(cfg.Analyser(), logger)
	if err != nil {
		return nil, fmt.Errorf("spectrum analyser: %w", err)
	}
	return tonal.NewKeyDetector(extractor, analyser, tonal.NewKeyMatcher(cat, logger), cfg.SpectrumWeight, rec, logger), nil
}

func newDecoder() *transcode.Decoder {
	dc := transcode.DefaultDecoderConfig()
	dc.TargetSampleRate = cfg.SampleRate
	dc.FFmpegPath = cfg.FFmpegPath
	dc.FFprobePath = cfg.FFprobePath
	dc.Timeout = cfg.DecodeTimeout()
	return transcode.NewDecoder(dc, nil, logger)
}
