// SPDX-License-Identifier: MIT
package audio

import (
	"errors"
	"strings"
	"testing"

	"specvis/internal/ring"

	"github.com/gordonklaus/portaudio"
)

type fakeStream struct {
	params   portaudio.StreamParameters
	callback func([]float32, portaudio.StreamCallbackTimeInfo, portaudio.StreamCallbackFlags)
	info     *portaudio.StreamInfo
	startErr error
	closeErr error
	started  bool
	stops    int
	closes   int
}

func (s *fakeStream) Start() error {
	s.started = s.startErr == nil
	return s.startErr
}
func (s *fakeStream) Stop() error                 { s.stops++; return nil }
func (s *fakeStream) Close() error                { s.closes++; return s.closeErr }
func (s *fakeStream) Info() *portaudio.StreamInfo { return s.info }

// fakeOpen installs a stream factory that records the negotiated parameters.
func fakeOpen(t *testing.T, fs *fakeStream) {
	t.Helper()
	orig := openStreamFunc
	t.Cleanup(func() { openStreamFunc = orig })

	openStreamFunc = func(p portaudio.StreamParameters, callback any) (stream, error) {
		fs.params = p
		cb, ok := callback.(func([]float32, portaudio.StreamCallbackTimeInfo, portaudio.StreamCallbackFlags))
		if !ok {
			t.Fatalf("unexpected callback type %T", callback)
		}
		fs.callback = cb
		return fs, nil
	}
}

func newTestProducer(t *testing.T, capacity int) (*ring.Producer, *ring.Consumer) {
	t.Helper()
	buf, err := ring.New(capacity)
	if err != nil {
		t.Fatalf("ring.New(%d) error: %v", capacity, err)
	}
	return buf.Split()
}

func TestOpenCaptureNegotiation(t *testing.T) {
	fakeHost(t, []*portaudio.DeviceInfo{testMic, testSpeakers, testHeadset}, testMic)

	tests := []struct {
		name         string
		cfg          CaptureConfig
		info         *portaudio.StreamInfo
		wantChannels int
		wantRate     float64
		wantLatency  float64 // ms
	}{
		{
			name:         "device defaults",
			cfg:          CaptureConfig{DeviceID: DefaultDeviceID, FramesPerBuffer: 512},
			wantChannels: 2,
			wantRate:     48000,
			wantLatency:  20,
		},
		{
			name:         "mono headset low latency",
			cfg:          CaptureConfig{DeviceID: 2, FramesPerBuffer: 256, LowLatency: true},
			wantChannels: 1,
			wantRate:     44100,
			wantLatency:  8,
		},
		{
			name:         "rate reported by stream",
			cfg:          CaptureConfig{DeviceID: 0, SampleRate: 44100, Channels: 1},
			info:         &portaudio.StreamInfo{SampleRate: 44056},
			wantChannels: 1,
			wantRate:     44056,
			wantLatency:  20,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs := &fakeStream{info: tt.info}
			fakeOpen(t, fs)
			p, _ := newTestProducer(t, 1024)

			c, err := OpenCapture(tt.cfg, p)
			if err != nil {
				t.Fatalf("OpenCapture error: %v", err)
			}
			defer c.Close()

			if !fs.started {
				t.Error("stream was not started")
			}
			if fs.params.Input.Channels != tt.wantChannels || c.Channels() != tt.wantChannels {
				t.Errorf("channels = %d (stream %d), want %d", c.Channels(), fs.params.Input.Channels, tt.wantChannels)
			}
			if c.SampleRate() != tt.wantRate {
				t.Errorf("SampleRate() = %v, want %v", c.SampleRate(), tt.wantRate)
			}
			if got := fs.params.Input.Latency.Seconds() * 1000; got != tt.wantLatency {
				t.Errorf("latency = %vms, want %vms", got, tt.wantLatency)
			}
			if fs.params.FramesPerBuffer != tt.cfg.FramesPerBuffer {
				t.Errorf("FramesPerBuffer = %d, want %d", fs.params.FramesPerBuffer, tt.cfg.FramesPerBuffer)
			}
			if fs.params.Output.Device != nil {
				t.Error("capture opened an output side")
			}
		})
	}
}

func TestOpenCaptureErrors(t *testing.T) {
	fakeHost(t, []*portaudio.DeviceInfo{testMic, testSpeakers}, testMic)

	t.Run("too many channels", func(t *testing.T) {
		fakeOpen(t, &fakeStream{})
		p, _ := newTestProducer(t, 1024)
		_, err := OpenCapture(CaptureConfig{DeviceID: 0, Channels: 8}, p)
		if err == nil || !strings.Contains(err.Error(), "requested 8") {
			t.Errorf("expected channel error, got %v", err)
		}
	})

	t.Run("output-only device", func(t *testing.T) {
		fakeOpen(t, &fakeStream{})
		p, _ := newTestProducer(t, 1024)
		_, err := OpenCapture(CaptureConfig{DeviceID: 1}, p)
		if err == nil || !strings.Contains(err.Error(), "does not support input") {
			t.Errorf("expected input error, got %v", err)
		}
	})

	t.Run("start failure closes stream", func(t *testing.T) {
		fs := &fakeStream{startErr: errors.New("device busy")}
		fakeOpen(t, fs)
		p, _ := newTestProducer(t, 1024)
		_, err := OpenCapture(CaptureConfig{DeviceID: 0}, p)
		if err == nil || !strings.Contains(err.Error(), "device busy") {
			t.Errorf("expected start error, got %v", err)
		}
		if fs.closes != 1 {
			t.Errorf("stream closed %d times, want 1", fs.closes)
		}
	})

	t.Run("start failure reports close error", func(t *testing.T) {
		fs := &fakeStream{startErr: errors.New("device busy"), closeErr: errors.New("host gone")}
		fakeOpen(t, fs)
		p, _ := newTestProducer(t, 1024)
		_, err := OpenCapture(CaptureConfig{DeviceID: 0}, p)
		if err == nil {
			t.Fatal("expected error")
		}
		for _, want := range []string{"device busy", "failed to close input stream: host gone"} {
			if !strings.Contains(err.Error(), want) {
				t.Errorf("error %q does not mention %q", err.Error(), want)
			}
		}
	})
}

func TestCaptureCallback(t *testing.T) {
	fakeHost(t, []*portaudio.DeviceInfo{testMic}, testMic)
	fs := &fakeStream{}
	fakeOpen(t, fs)
	p, c := newTestProducer(t, 8)

	capture, err := OpenCapture(CaptureConfig{DeviceID: 0, Channels: 2}, p)
	if err != nil {
		t.Fatalf("OpenCapture error: %v", err)
	}
	defer capture.Close()

	// Six stereo frames, left channel carries 1..6.
	in := []float32{1, -1, 2, -2, 3, -3, 4, -4, 5, -5, 6, -6}
	fs.callback(in, portaudio.StreamCallbackTimeInfo{}, 0)
	fs.callback(in, portaudio.StreamCallbackTimeInfo{}, portaudio.InputOverflow|portaudio.InputUnderflow)

	stats := capture.Stats()
	want := Stats{Pushed: 8, Dropped: 4, Overflows: 1, Underflows: 1}
	if stats != want {
		t.Errorf("Stats() = %+v, want %+v", stats, want)
	}
	if stats.Healthy() {
		t.Error("Healthy() = true with drops")
	}

	out := make([]float32, 8)
	if n := c.Pull(out); n != 8 {
		t.Fatalf("Pull = %d, want 8", n)
	}
	wantSamples := []float32{1, 2, 3, 4, 5, 6, 1, 2}
	for i := range wantSamples {
		if out[i] != wantSamples[i] {
			t.Errorf("sample %d = %v, want %v", i, out[i], wantSamples[i])
		}
	}
}

func TestCaptureCallbackAllocs(t *testing.T) {
	fakeHost(t, []*portaudio.DeviceInfo{testMic}, testMic)
	fs := &fakeStream{}
	fakeOpen(t, fs)
	p, c := newTestProducer(t, 4096)

	capture, err := OpenCapture(CaptureConfig{DeviceID: 0}, p)
	if err != nil {
		t.Fatalf("OpenCapture error: %v", err)
	}
	defer capture.Close()

	in := make([]float32, 1024)
	drain := make([]float32, 512)
	allocs := testing.AllocsPerRun(100, func() {
		capture.process(in, portaudio.StreamCallbackTimeInfo{}, 0)
		c.Pull(drain)
	})
	if allocs > 0 {
		t.Errorf("callback allocated %.1f times per run, want 0", allocs)
	}
}

func TestCaptureCloseIdempotent(t *testing.T) {
	fakeHost(t, []*portaudio.DeviceInfo{testMic}, testMic)
	fs := &fakeStream{}
	fakeOpen(t, fs)
	p, _ := newTestProducer(t, 1024)

	capture, err := OpenCapture(CaptureConfig{DeviceID: 0}, p)
	if err != nil {
		t.Fatalf("OpenCapture error: %v", err)
	}

	for range 3 {
		if err := capture.Close(); err != nil {
			t.Errorf("Close error: %v", err)
		}
	}
	if fs.stops != 1 || fs.closes != 1 {
		t.Errorf("stream stopped %d and closed %d times, want 1 and 1", fs.stops, fs.closes)
	}
}

func TestStatsSince(t *testing.T) {
	prev := Stats{Pushed: 100, Dropped: 2, Overflows: 1}
	now := Stats{Pushed: 150, Dropped: 2, Overflows: 3, Underflows: 1}

	got := now.Since(prev)
	want := Stats{Pushed: 50, Overflows: 2, Underflows: 1}
	if got != want {
		t.Errorf("Since() = %+v, want %+v", got, want)
	}
	if (Stats{Pushed: 10}).Healthy() != true {
		t.Error("Healthy() = false without losses")
	}
}
