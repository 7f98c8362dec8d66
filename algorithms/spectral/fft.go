package spectral

import (
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"
)

// FFT wraps mjibson/go-dsp for real-valued frames.
type FFT struct{}

// NewFFT creates a new FFT calculator
func NewFFT() *FFT {
	return &FFT{}
}

// Compute returns the complex spectrum of a real frame.
func (f *FFT) Compute(x []float64) []complex128 {
	if len(x) == 0 {
		return []complex128{}
	}

	// go-dsp handles non-power-of-2 sizes too
	return fft.FFTReal(x)
}

// Magnitudes returns |X[k]| for the non-negative frequency bins 0..N/2.
func (f *FFT) Magnitudes(x []float64) []float64 {
	spectrum := f.Compute(x)
	if len(spectrum) == 0 {
		return []float64{}
	}

	bins := len(spectrum)/2 + 1
	mags := make([]float64, bins)
	for i := range bins {
		mags[i] = cmplx.Abs(spectrum[i])
	}
	return mags
}

// BinFrequency returns the centre frequency in Hz of bin k for a frame of
// frameSize samples.
func BinFrequency(k, frameSize, sampleRate int) float64 {
	if frameSize <= 0 {
		return 0
	}
	return float64(k) * float64(sampleRate) / float64(frameSize)
}
