// SPDX-License-Identifier: MIT
/*
Package analysis turns raw mono samples into a BandVector: a fixed number of
logarithmically spaced loudness meters in the range 0..100.

Pipeline (per frame):
- Hann taper over the live frame, zero padding to the transform size
- Forward FFT (gonum) and magnitudes of the lower half spectrum
- Peak magnitude per band from an immutable BandTable
- dB conversion, per-band tilt, clamping, asymmetric smoothing

Real-Time Safety:
- All scratch state is owned by the Analyzer and pre-allocated
- Next and Analyze perform no allocations
*/
package analysis

import (
	"fmt"

	applog "specvis/internal/log"
)

// Defaults for the analysis stage.
const (
	DefaultFrameSize = 1024
	DefaultFFTSize   = 4096
	DefaultBands     = 16
	DefaultMinFreq   = 20.0
	DefaultMaxFreq   = 14000.0 // bands above this carry little information
)

// Config describes the analysis pipeline.
type Config struct {
	FrameSize int
	FFTSize   int
	Bands     int
	MinFreq   float64
	MaxFreq   float64
	Window    WindowFunc
	Levels    NormalizerConfig
}

// DefaultConfig returns the pipeline used by the visualizer.
func DefaultConfig() Config {
	return Config{
		FrameSize: DefaultFrameSize,
		FFTSize:   DefaultFFTSize,
		Bands:     DefaultBands,
		MinFreq:   DefaultMinFreq,
		MaxFreq:   DefaultMaxFreq,
		Window:    Hann,
		Levels: NormalizerConfig{
			FrameLen:  DefaultFrameSize,
			MinDB:     DefaultMinDB,
			MaxDB:     DefaultMaxDB,
			Tilt:      DefaultTilt,
			Smoothing: DefaultSmoothing,
			Epsilon:   DefaultEpsilon,
		},
	}
}

// FrameSource is the consumer side of a sample ring.
type FrameSource interface {
	Available() int
	Pull(dst []float32) int
	Discard(n int) int
}

// Analyzer owns one complete analysis pipeline.
type Analyzer struct {
	transformer *Transformer
	table       BandTable
	normalizer  *Normalizer

	frame  []float32
	peaks  []float64
	vector BandVector
}

// NewAnalyzer builds the pipeline for audio at sampleRate.
func NewAnalyzer(cfg Config, sampleRate float64) (*Analyzer, error) {
	transformer, err := NewTransformer(cfg.FrameSize, cfg.FFTSize, cfg.Window)
	if err != nil {
		return nil, fmt.Errorf("failed to create transformer: %w", err)
	}

	table, err := NewBandTable(sampleRate, transformer.FFTSize(), cfg.Bands, cfg.MinFreq, cfg.MaxFreq)
	if err != nil {
		return nil, fmt.Errorf("failed to build band table: %w", err)
	}

	levels := cfg.Levels
	levels.FrameLen = transformer.FrameLen()

	applog.Infof("Analysis: Initializing analyzer (Frame: %d, FFT: %d, Bands: %d, SampleRate: %.1f Hz, Window: %v)",
		transformer.FrameLen(), transformer.FFTSize(), cfg.Bands, sampleRate, cfg.Window)
	for i, b := range table.bands {
		applog.Debugf("Analysis: band %2d bins [%4d, %4d) width %3d, %8.1f - %8.1f Hz",
			i, b.Start, b.End, b.Width(), table.Frequency(b.Start), table.Frequency(b.End))
	}

	return &Analyzer{
		transformer: transformer,
		table:       table,
		normalizer:  NewNormalizer(cfg.Bands, levels),
		frame:       make([]float32, transformer.FrameLen()),
		peaks:       make([]float64, cfg.Bands),
		vector:      make(BandVector, cfg.Bands),
	}, nil
}

// Table returns the band table in use.
func (a *Analyzer) Table() BandTable { return a.table }

// FrameSize returns the number of samples consumed per frame.
func (a *Analyzer) FrameSize() int { return len(a.frame) }

// Next pulls the most recent full frame from src and analyses it. It
// returns false without consuming anything when less than a frame is
// buffered. When more than two frames are waiting, older samples are
// discarded so latency stays bounded. The returned vector is owned by the
// Analyzer and overwritten by the next successful call.
func (a *Analyzer) Next(src FrameSource) (BandVector, bool) {
	avail := src.Available()
	if avail < len(a.frame) {
		return nil, false
	}
	if avail > 2*len(a.frame) {
		src.Discard(avail - len(a.frame))
	}

	if n := src.Pull(a.frame); n < len(a.frame) {
		// Unreachable with a single consumer, kept as a guard.
		return nil, false
	}
	return a.Analyze(a.frame), true
}

// Analyze runs the pipeline on an explicit frame.
func (a *Analyzer) Analyze(frame []float32) BandVector {
	mags := a.transformer.Transform32(frame)
	a.table.Peaks(mags, a.peaks)
	a.normalizer.Normalize(a.peaks, a.vector)
	return a.vector
}

// Reset clears the smoothing history.
func (a *Analyzer) Reset() {
	a.normalizer.Reset()
}
