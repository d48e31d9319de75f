// SPDX-License-Identifier: MIT
package analysis

import "math"

// Level constants used when no explicit configuration is given. The dB
// window and tilt are empirical and not derived from anything.
const (
	DefaultMinDB     = -60.0
	DefaultMaxDB     = 0.0
	DefaultTilt      = 1.2 // dB added per band index
	DefaultSmoothing = 0.2 // weight of the new value while decaying
	DefaultEpsilon   = 1e-7

	// MaxLevel is the upper bound of every BandVector value.
	MaxLevel = 100
)

// BandVector holds one normalized loudness value in [0, MaxLevel] per band.
type BandVector []int

// NormalizerConfig holds the level mapping and ballistics constants.
type NormalizerConfig struct {
	FrameLen  int     // live samples per frame, used for amplitude scaling
	MinDB     float64 // level mapped to 0
	MaxDB     float64 // level mapped to MaxLevel
	Tilt      float64 // dB per band index
	Smoothing float64 // new-sample weight of the decay average, in (0, 1]
	Epsilon   float64 // floor added before the logarithm
}

// Normalizer converts band peaks into a BandVector and applies VU meter
// ballistics against the vector it produced last.
type Normalizer struct {
	cfg   NormalizerConfig
	scale float64
	prev  BandVector
}

// NewNormalizer creates a Normalizer for the given number of bands. An
// empty or inverted dB window, a Smoothing outside (0, 1] and a non-positive
// Epsilon take their defaults. Tilt is used as given, and a non-positive
// FrameLen is treated as 1.
func NewNormalizer(bands int, cfg NormalizerConfig) *Normalizer {
	if cfg.MaxDB <= cfg.MinDB {
		cfg.MinDB, cfg.MaxDB = DefaultMinDB, DefaultMaxDB
	}
	if cfg.Smoothing <= 0 || cfg.Smoothing > 1 {
		cfg.Smoothing = DefaultSmoothing
	}
	if cfg.Epsilon <= 0 {
		cfg.Epsilon = DefaultEpsilon
	}
	if cfg.FrameLen <= 0 {
		cfg.FrameLen = 1
	}

	return &Normalizer{
		cfg:   cfg,
		scale: 2.0 / float64(cfg.FrameLen),
		prev:  make(BandVector, bands),
	}
}

// Level maps the peak magnitude of band to [0, MaxLevel] without smoothing.
func (n *Normalizer) Level(peak float64, band int) int {
	scaled := peak * n.scale
	db := 20*math.Log10(scaled+n.cfg.Epsilon) + n.cfg.Tilt*float64(band)

	norm := (db - n.cfg.MinDB) / (n.cfg.MaxDB - n.cfg.MinDB)
	if norm < 0 {
		norm = 0
	} else if norm > 1 {
		norm = 1
	}
	return int(norm * MaxLevel)
}

// Smooth applies asymmetric ballistics: rising or flat values pass through,
// falling values are blended with the previous value.
func (n *Normalizer) Smooth(prev, next int) int {
	return smooth(prev, next, n.cfg.Smoothing)
}

func smooth(prev, next int, factor float64) int {
	if next >= prev {
		return next
	}
	return int(math.Round(factor*float64(next) + (1-factor)*float64(prev)))
}

// Normalize fills out with the smoothed levels of peaks and remembers the
// result for the next call. out and peaks must both hold one value per band.
func (n *Normalizer) Normalize(peaks []float64, out BandVector) {
	for i, p := range peaks {
		v := smooth(n.prev[i], n.Level(p, i), n.cfg.Smoothing)
		out[i] = v
		n.prev[i] = v
	}
}

// Reset forgets the previous vector so the next frame passes unsmoothed.
func (n *Normalizer) Reset() {
	for i := range n.prev {
		n.prev[i] = 0
	}
}
