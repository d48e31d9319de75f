// SPDX-License-Identifier: MIT
package analysis

import (
	"fmt"
	"math"
)

// Band is a half-open range [Start, End) of transform bins.
type Band struct {
	Start int
	End   int
}

// Width returns the number of bins in the band.
func (b Band) Width() int { return b.End - b.Start }

// BandTable maps band indices to transform bins. It is built once at
// startup and only read afterwards, so a single table may be shared.
type BandTable struct {
	bands      []Band
	sampleRate float64
	fftSize    int
}

// NewBandTable partitions [minFreq, maxFreq] into count logarithmically
// spaced bands. Band 0 starts at bin 1 so the DC bin is never used, each
// band starts where the previous one ended, and every band is at least one
// bin wide.
func NewBandTable(sampleRate float64, fftSize, count int, minFreq, maxFreq float64) (BandTable, error) {
	switch {
	case sampleRate <= 0:
		return BandTable{}, fmt.Errorf("sample rate must be positive, got %f", sampleRate)
	case fftSize < 2:
		return BandTable{}, fmt.Errorf("fft size must be at least 2, got %d", fftSize)
	case count <= 0:
		return BandTable{}, fmt.Errorf("band count must be positive, got %d", count)
	case minFreq <= 0 || maxFreq <= minFreq:
		return BandTable{}, fmt.Errorf("invalid frequency range %.1f..%.1f Hz", minFreq, maxFreq)
	}

	bands := make([]Band, count)
	start := 1
	for i := range bands {
		fEnd := minFreq * math.Pow(maxFreq/minFreq, float64(i+1)/float64(count))
		end := int(math.Round(fEnd / sampleRate * float64(fftSize)))
		if end <= start {
			end = start + 1
		}
		bands[i] = Band{Start: start, End: end}
		start = end
	}

	return BandTable{
		bands:      bands,
		sampleRate: sampleRate,
		fftSize:    fftSize,
	}, nil
}

// Len returns the number of bands.
func (t BandTable) Len() int { return len(t.bands) }

// Bands returns a copy of the band ranges.
func (t BandTable) Bands() []Band {
	out := make([]Band, len(t.bands))
	copy(out, t.bands)
	return out
}

// Band returns the range of band i.
func (t BandTable) Band(i int) Band { return t.bands[i] }

// Frequency returns the centre frequency in Hz of a transform bin.
func (t BandTable) Frequency(bin int) float64 {
	return float64(bin) * t.sampleRate / float64(t.fftSize)
}

// BandOf returns the band containing bin, or -1 if no band covers it.
func (t BandTable) BandOf(bin int) int {
	for i, b := range t.bands {
		if bin >= b.Start && bin < b.End {
			return i
		}
	}
	return -1
}

// Peaks writes the largest magnitude found in each band into dst, which
// must hold Len() values. Ranges reaching past the end of mags are clamped;
// a band left with no bins reads as 0.
func (t BandTable) Peaks(mags []float64, dst []float64) {
	for i, b := range t.bands {
		end := min(b.End, len(mags))
		peak := 0.0
		for bin := b.Start; bin < end; bin++ {
			if mags[bin] > peak {
				peak = mags[bin]
			}
		}
		dst[i] = peak
	}
}
