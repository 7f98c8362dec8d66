// Package config defines melodraw's configuration and how it is loaded.
package config

import (
	"fmt"
	"math/bits"
	"time"

	"github.com/RyanBlaney/melodraw/algorithms/chroma"
	"github.com/RyanBlaney/melodraw/algorithms/spectral"
	"github.com/RyanBlaney/melodraw/audio"
	"github.com/RyanBlaney/melodraw/logging"
	"github.com/RyanBlaney/melodraw/playback"
	"github.com/RyanBlaney/melodraw/scales"
)

// Config contains process configuration. Keys are flat so that every field
// maps to one MELODRAW_ environment variable.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr is the HTTP listen address of the serve command.
	Addr string `koanf:"addr"`

	// SampleRate is the rate audio files are decoded at.
	SampleRate int `koanf:"sample_rate"`

	// SegmentLength and SegmentCount shape chroma extraction.
	SegmentLength int `koanf:"segment_length"`
	SegmentCount  int `koanf:"segment_count"`

	// Workers bounds chroma extraction parallelism, 0 for one per CPU.
	Workers int `koanf:"workers"`

	// TuningFreq is the frequency of A4.
	TuningFreq float64 `koanf:"tuning_freq"`

	// FFTSize, Smoothing and the decibel range configure the spectrum snapshot.
	FFTSize     int     `koanf:"fft_size"`
	Smoothing   float64 `koanf:"smoothing"`
	MinDecibels float64 `koanf:"min_decibels"`
	MaxDecibels float64 `koanf:"max_decibels"`

	// SpectrumWeight scales the spectrum in the combined profile.
	SpectrumWeight float64 `koanf:"spectrum_weight"`

	// NoteDurationMS is how long each played note sounds.
	NoteDurationMS int `koanf:"note_duration_ms"`

	// Overlap is "overlap" or "replace".
	Overlap string `koanf:"overlap"`

	// Fade animation.
	FrameIntervalMS int     `koanf:"frame_interval_ms"`
	FadeStep        float64 `koanf:"fade_step"`
	FadeFloor       float64 `koanf:"fade_floor"`
	FadeGraceMS     int     `koanf:"fade_grace_ms"`

	// SurfaceWidth and SurfaceHeight are the drawing surface in pixels.
	SurfaceWidth  float64 `koanf:"surface_width"`
	SurfaceHeight float64 `koanf:"surface_height"`

	// Instrument is "oscillator" or "piano".
	Instrument string `koanf:"instrument"`

	// BPM is the tempo written to exported MIDI files.
	BPM float64 `koanf:"bpm"`

	// FFmpegPath, FFprobePath and DecodeTimeoutS configure audio decoding.
	FFmpegPath     string `koanf:"ffmpeg_path"`
	FFprobePath    string `koanf:"ffprobe_path"`
	DecodeTimeoutS int    `koanf:"decode_timeout_s"`

	// Optional data overrides; empty means the embedded defaults.
	ScaleTemplatesPath string `koanf:"scale_templates_path"`
	ScaleLabelsPath    string `koanf:"scale_labels_path"`
	InstrumentsPath    string `koanf:"instruments_path"`
}

// New returns a Config holding the defaults.
func New() *Config {
	ext := chroma.DefaultExtractorConfig()
	an := spectral.DefaultAnalyserConfig()
	fade := playback.DefaultFaderConfig()

	return &Config{
		LogLevel:        "info",
		Addr:            ":9080",
		SampleRate:      44100,
		SegmentLength:   ext.SegmentLength,
		SegmentCount:    ext.SegmentCount,
		TuningFreq:      ext.TuningFreq,
		FFTSize:         an.FFTSize,
		Smoothing:       an.SmoothingTimeConstant,
		MinDecibels:     an.MinDecibels,
		MaxDecibels:     an.MaxDecibels,
		SpectrumWeight:  0.5,
		NoteDurationMS:  500,
		Overlap:         string(playback.OverlapAllow),
		FrameIntervalMS: int(fade.FrameInterval / time.Millisecond),
		FadeStep:        fade.Step,
		FadeFloor:       fade.Floor,
		FadeGraceMS:     int(fade.Grace / time.Millisecond),
		SurfaceWidth:    fade.Width,
		SurfaceHeight:   fade.Height,
		Instrument:      "oscillator",
		BPM:             120,
		FFmpegPath:      "ffmpeg",
		FFprobePath:     "ffprobe",
		DecodeTimeoutS:  60,
	}
}

// Validate checks every field a component would reject.
func (c *Config) Validate() error {
	if c.Addr == "" {
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	}
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if c.SampleRate <= 0 {
		return fmt.Errorf("%w: sample_rate must be positive", ErrInvalidConfig)
	}
	if c.SegmentLength <= 0 || c.SegmentCount <= 0 {
		return fmt.Errorf("%w: segment_length and segment_count must be positive", ErrInvalidConfig)
	}
	if c.FFTSize < 32 || bits.OnesCount(uint(c.FFTSize)) != 1 {
		return fmt.Errorf("%w: fft_size must be a power of two >= 32, got %d", ErrInvalidConfig, c.FFTSize)
	}
	if c.Smoothing < 0 || c.Smoothing > 1 {
		return fmt.Errorf("%w: smoothing must be within [0, 1]", ErrInvalidConfig)
	}
	if c.MinDecibels >= c.MaxDecibels {
		return fmt.Errorf("%w: min_decibels must be below max_decibels", ErrInvalidConfig)
	}
	if c.NoteDurationMS <= 0 || c.FrameIntervalMS <= 0 {
		return fmt.Errorf("%w: note_duration_ms and frame_interval_ms must be positive", ErrInvalidConfig)
	}
	if c.FadeStep <= 0 {
		return fmt.Errorf("%w: fade_step must be positive", ErrInvalidConfig)
	}
	if _, err := playback.ParseOverlapPolicy(c.Overlap); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if _, err := audio.ParseKind(c.Instrument); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if c.SurfaceWidth <= 0 || c.SurfaceHeight <= 0 {
		return fmt.Errorf("%w: surface size must be positive", ErrInvalidConfig)
	}
	if c.BPM <= 0 {
		return fmt.Errorf("%w: bpm must be positive", ErrInvalidConfig)
	}
	if (c.ScaleTemplatesPath == "") != (c.ScaleLabelsPath == "") {
		return fmt.Errorf("%w: scale_templates_path and scale_labels_path must be set together", ErrInvalidConfig)
	}
	return nil
}

// Level returns the parsed log level.
func (c *Config) Level() logging.Level {
	l, err := logging.ParseLevel(c.LogLevel)
	if err != nil {
		return logging.InfoLevel
	}
	return l
}

// Extractor returns the chroma extraction settings.
func (c *Config) Extractor() chroma.ExtractorConfig {
	ext := chroma.DefaultExtractorConfig()
	ext.SegmentLength = c.SegmentLength
	ext.SegmentCount = c.SegmentCount
	ext.TuningFreq = c.TuningFreq
	ext.Workers = c.Workers
	return ext
}

// Analyser returns the spectrum snapshot settings.
func (c *Config) Analyser() spectral.AnalyserConfig {
	an := spectral.DefaultAnalyserConfig()
	an.FFTSize = c.FFTSize
	an.SmoothingTimeConstant = c.Smoothing
	an.MinDecibels = c.MinDecibels
	an.MaxDecibels = c.MaxDecibels
	an.RenderQuantum = min(an.RenderQuantum, c.FFTSize)
	return an
}

// Scheduler returns the playback settings.
func (c *Config) Scheduler() playback.SchedulerConfig {
	policy, _ := playback.ParseOverlapPolicy(c.Overlap)
	return playback.SchedulerConfig{
		NoteDuration: time.Duration(c.NoteDurationMS) * time.Millisecond,
		Overlap:      policy,
	}
}

// Fader returns the fade animation settings.
func (c *Config) Fader() playback.FaderConfig {
	f := playback.DefaultFaderConfig()
	f.Width = c.SurfaceWidth
	f.Height = c.SurfaceHeight
	f.FrameInterval = time.Duration(c.FrameIntervalMS) * time.Millisecond
	f.Step = c.FadeStep
	f.Floor = c.FadeFloor
	f.Grace = time.Duration(c.FadeGraceMS) * time.Millisecond
	return f
}

// InstrumentKind returns the parsed instrument.
func (c *Config) InstrumentKind() audio.Kind {
	k, err := audio.ParseKind(c.Instrument)
	if err != nil {
		return audio.Oscillator
	}
	return k
}

// DecodeTimeout returns the per-file decode limit.
func (c *Config) DecodeTimeout() time.Duration {
	return time.Duration(c.DecodeTimeoutS) * time.Second
}

// Catalog loads the scale catalog from the configured files, or the
// embedded one.
func (c *Config) Catalog() (*scales.Catalog, error) {
	if c.ScaleTemplatesPath == "" {
		return scales.Default()
	}
	return scales.LoadFiles(c.ScaleTemplatesPath, c.ScaleLabelsPath)
}

// Instruments loads the instrument tables from the configured file, or the
// embedded ones.
func (c *Config) Instruments() (*audio.Instruments, error) {
	if c.InstrumentsPath == "" {
		return audio.DefaultInstruments()
	}
	return audio.LoadInstrumentsFile(c.InstrumentsPath)
}
