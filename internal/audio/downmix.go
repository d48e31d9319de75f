// SPDX-License-Identifier: MIT
package audio

import "sync/atomic"

// DefaultChannels is assumed until the negotiated channel count is known.
const DefaultChannels = 2

// SampleSink accepts mono samples. Push reports false when the sample was
// dropped. *ring.Producer satisfies it.
type SampleSink interface {
	Push(s float32) bool
}

// Downmixer reduces interleaved frames to mono by keeping channel 0 of
// every frame. The channel count may be changed while a callback is running.
type Downmixer struct {
	channels atomic.Int32
}

// NewDownmixer returns a Downmixer assuming DefaultChannels.
func NewDownmixer() *Downmixer {
	d := &Downmixer{}
	d.channels.Store(DefaultChannels)
	return d
}

// SetChannels sets the interleave stride. Values below 1 are treated as 1.
func (d *Downmixer) SetChannels(n int) {
	d.channels.Store(int32(max(n, 1)))
}

// Channels returns the current interleave stride.
func (d *Downmixer) Channels() int {
	return int(d.channels.Load())
}

// Push sends channel 0 of every frame in the interleaved buffer to sink and
// returns how many samples were accepted and how many were dropped.
func (d *Downmixer) Push(interleaved []float32, sink SampleSink) (pushed, dropped int) {
	step := int(d.channels.Load())
	for i := 0; i < len(interleaved); i += step {
		if sink.Push(interleaved[i]) {
			pushed++
		} else {
			dropped++
		}
	}
	return pushed, dropped
}
