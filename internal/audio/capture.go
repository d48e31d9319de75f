// SPDX-License-Identifier: MIT
/*
Package audio captures system audio and feeds mono float32 samples into a
lock-free ring for the analysis loop.

Two sources are provided:
- Capture: a PortAudio input stream, optionally tapping the playback sink
- FileSource: a WAV file decoded with go-audio/wav, paced in real time

Thread Safety:
- The stream callback only down-mixes and pushes into the ring
- Counters are atomics so the analysis loop can read them at any time
- No allocation, locking or logging happens on the callback path
*/
package audio

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	applog "specvis/internal/log"
	"specvis/internal/ring"

	"github.com/gordonklaus/portaudio"
)

// Source is a running producer of mono samples.
type Source interface {
	SampleRate() float64
	Stats() Stats
	Close() error
}

// Stats are cumulative counters of a Source.
type Stats struct {
	Pushed     uint64 // samples accepted by the ring
	Dropped    uint64 // samples lost because the ring was full
	Overflows  uint64 // callbacks flagged with input overflow
	Underflows uint64 // callbacks flagged with input underflow
}

// Since returns the counter increments between prev and s.
func (s Stats) Since(prev Stats) Stats {
	return Stats{
		Pushed:     s.Pushed - prev.Pushed,
		Dropped:    s.Dropped - prev.Dropped,
		Overflows:  s.Overflows - prev.Overflows,
		Underflows: s.Underflows - prev.Underflows,
	}
}

// Healthy reports whether no samples or callbacks were lost.
func (s Stats) Healthy() bool {
	return s.Dropped == 0 && s.Overflows == 0 && s.Underflows == 0
}

// CaptureConfig selects and shapes the input stream. Zero values pick the
// device defaults.
type CaptureConfig struct {
	DeviceID        int
	SampleRate      float64
	Channels        int
	FramesPerBuffer int
	LowLatency      bool
}

// stream is the subset of *portaudio.Stream used by Capture.
type stream interface {
	Start() error
	Stop() error
	Close() error
	Info() *portaudio.StreamInfo
}

var openStreamFunc = func(p portaudio.StreamParameters, callback any) (stream, error) {
	return portaudio.OpenStream(p, callback)
}

// Capture is a running PortAudio input stream.
type Capture struct {
	stream     stream
	device     *portaudio.DeviceInfo
	producer   *ring.Producer
	downmix    *Downmixer
	sampleRate float64
	channels   int

	pushed     atomic.Uint64
	dropped    atomic.Uint64
	overflows  atomic.Uint64
	underflows atomic.Uint64

	closeOnce sync.Once
	closeErr  error
}

// OpenCapture negotiates the stream format, opens the input stream and
// starts it. Samples are written to p until Close.
func OpenCapture(cfg CaptureConfig, p *ring.Producer) (*Capture, error) {
	device, err := InputDevice(cfg.DeviceID)
	if err != nil {
		return nil, fmt.Errorf("failed to select input device: %w", err)
	}

	channels := cfg.Channels
	if channels <= 0 {
		channels = min(device.MaxInputChannels, DefaultChannels)
	}
	if channels > device.MaxInputChannels {
		return nil, fmt.Errorf("device '%s' supports %d input channels, requested %d",
			device.Name, device.MaxInputChannels, channels)
	}

	sampleRate := cfg.SampleRate
	if sampleRate <= 0 {
		sampleRate = device.DefaultSampleRate
	}

	latency := device.DefaultHighInputLatency
	if cfg.LowLatency {
		latency = device.DefaultLowInputLatency
	}

	c := &Capture{
		device:   device,
		producer: p,
		downmix:  NewDownmixer(),
		channels: channels,
	}
	c.downmix.SetChannels(channels)

	params := portaudio.StreamParameters{
		Input: portaudio.StreamDeviceParameters{
			Device:   device,
			Channels: channels,
			Latency:  latency,
		},
		FramesPerBuffer: cfg.FramesPerBuffer,
		SampleRate:      sampleRate,
	}

	s, err := openStreamFunc(params, c.process)
	if err != nil {
		return nil, fmt.Errorf("failed to open input stream on '%s': %w", device.Name, err)
	}
	if err := s.Start(); err != nil {
		err = fmt.Errorf("failed to start input stream on '%s': %w", device.Name, err)
		if closeErr := s.Close(); closeErr != nil {
			err = errors.Join(err, fmt.Errorf("failed to close input stream: %w", closeErr))
		}
		return nil, err
	}
	c.stream = s

	c.sampleRate = sampleRate
	if info := s.Info(); info != nil && info.SampleRate > 0 {
		c.sampleRate = info.SampleRate
	}

	applog.Infof("Audio: Capturing from '%s' (%d ch @ %.0f Hz, %d frames/buffer, latency %v)",
		device.Name, channels, c.sampleRate, cfg.FramesPerBuffer, latency.Round(time.Microsecond))
	return c, nil
}

// process is the stream callback. It runs on the audio thread.
func (c *Capture) process(in []float32, _ portaudio.StreamCallbackTimeInfo, flags portaudio.StreamCallbackFlags) {
	if flags&portaudio.InputOverflow != 0 {
		c.overflows.Add(1)
	}
	if flags&portaudio.InputUnderflow != 0 {
		c.underflows.Add(1)
	}

	pushed, dropped := c.downmix.Push(in, c.producer)
	c.pushed.Add(uint64(pushed))
	if dropped > 0 {
		c.dropped.Add(uint64(dropped))
	}
}

// SampleRate returns the negotiated sample rate in Hz.
func (c *Capture) SampleRate() float64 { return c.sampleRate }

// Channels returns the negotiated input channel count.
func (c *Capture) Channels() int { return c.channels }

// DeviceName returns the name of the capturing device.
func (c *Capture) DeviceName() string { return c.device.Name }

// Stats returns a snapshot of the capture counters.
func (c *Capture) Stats() Stats {
	return Stats{
		Pushed:     c.pushed.Load(),
		Dropped:    c.dropped.Load(),
		Overflows:  c.overflows.Load(),
		Underflows: c.underflows.Load(),
	}
}

// Close stops and closes the stream. Subsequent calls return the result of
// the first one.
func (c *Capture) Close() error {
	c.closeOnce.Do(func() {
		if err := c.stream.Stop(); err != nil {
			c.closeErr = fmt.Errorf("failed to stop input stream: %w", err)
		}
		if err := c.stream.Close(); err != nil && c.closeErr == nil {
			c.closeErr = fmt.Errorf("failed to close input stream: %w", err)
		}
		applog.Debugf("Audio: Capture closed (%+v)", c.Stats())
	})
	return c.closeErr
}
