// SPDX-License-Identifier: MIT
package analysis

import (
	"errors"
	"fmt"
	"math/cmplx"

	"specvis/pkg/bitint"

	"gonum.org/v1/gonum/dsp/fourier"
)

// ErrFFTSize is returned when the transform size is not a power of two.
var ErrFFTSize = errors.New("fft size must be a power of 2")

// workspace holds the pre-allocated scratch buffers of one Transformer.
// Every buffer is fully overwritten before it is read.
type workspace struct {
	input     []float64    // windowed frame followed by zero padding
	fftOutput []complex128 // fftSize/2 + 1 coefficients of the real transform
	magnitude []float64    // fftSize/2 distinct magnitudes
	window    []float64    // coefficients over the live frame only
}

// Transformer tapers a frame, zero-pads it to the transform size and
// computes the magnitude spectrum. It is not safe for concurrent use; each
// analysis loop owns its own instance.
type Transformer struct {
	frameLen  int
	fftSize   int
	fft       *fourier.FFT
	workspace workspace
}

// NewTransformer creates a Transformer for frames of frameLen samples padded
// to fftSize points.
func NewTransformer(frameLen, fftSize int, w WindowFunc) (*Transformer, error) {
	if !bitint.IsPowerOfTwo(fftSize) {
		return nil, fmt.Errorf("%w, got %d", ErrFFTSize, fftSize)
	}
	if frameLen < 2 || frameLen > fftSize {
		return nil, fmt.Errorf("frame length must be in [2, %d], got %d", fftSize, frameLen)
	}

	return &Transformer{
		frameLen: frameLen,
		fftSize:  fftSize,
		fft:      fourier.NewFFT(fftSize),
		workspace: workspace{
			input:     make([]float64, fftSize),
			fftOutput: make([]complex128, fftSize/2+1),
			magnitude: make([]float64, fftSize/2),
			window:    windowCoefficients(frameLen, w),
		},
	}, nil
}

// FrameLen returns the number of live samples per frame.
func (t *Transformer) FrameLen() int { return t.frameLen }

// FFTSize returns the padded transform size.
func (t *Transformer) FFTSize() int { return t.fftSize }

// Transform returns the magnitudes of bins [0, fftSize/2) for frame. Only
// the first FrameLen samples are used; a shorter frame is treated as if
// padded with silence. The returned slice is reused by the next call.
func (t *Transformer) Transform(frame []float64) []float64 {
	ws := &t.workspace
	for i := range ws.input {
		if i < t.frameLen && i < len(frame) {
			ws.input[i] = frame[i] * ws.window[i]
		} else {
			ws.input[i] = 0
		}
	}
	return t.spectrum()
}

// Transform32 is Transform for float32 frames as delivered by the ring.
func (t *Transformer) Transform32(frame []float32) []float64 {
	ws := &t.workspace
	for i := range ws.input {
		if i < t.frameLen && i < len(frame) {
			ws.input[i] = float64(frame[i]) * ws.window[i]
		} else {
			ws.input[i] = 0
		}
	}
	return t.spectrum()
}

func (t *Transformer) spectrum() []float64 {
	ws := &t.workspace
	t.fft.Coefficients(ws.fftOutput, ws.input)

	// A real input is conjugate symmetric, only the lower half is distinct.
	for i := range ws.magnitude {
		ws.magnitude[i] = cmplx.Abs(ws.fftOutput[i])
	}
	return ws.magnitude
}
