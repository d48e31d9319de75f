// SPDX-License-Identifier: MIT
package audio

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"

	applog "specvis/internal/log"
	"specvis/internal/ring"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// ErrInvalidWAV is returned for files the WAV decoder cannot read.
var ErrInvalidWAV = errors.New("not a valid PCM WAV file")

const (
	defaultFileChunk = 512
	wavFormatFloat   = 3 // IEEE float data, not decoded as integers
)

// FileConfig controls how a FileSource feeds the ring.
type FileConfig struct {
	FramesPerBuffer int  // frames decoded per chunk
	Pace            bool // deliver chunks in real time
	Loop            bool // rewind at end of file instead of stopping
}

// FileSource plays a WAV file into the ring as if it were live input.
type FileSource struct {
	cfg      FileConfig
	file     *os.File
	decoder  *wav.Decoder
	producer *ring.Producer
	downmix  *Downmixer

	sampleRate float64
	channels   int
	bitDepth   int

	pcm     *goaudio.IntBuffer
	scratch []float32

	pushed  atomic.Uint64
	dropped atomic.Uint64

	cancel    context.CancelFunc
	done      chan struct{}
	started   atomic.Bool
	closeOnce sync.Once
	err       error
}

// OpenFile opens and validates a WAV file. Nothing is pushed until Start.
func OpenFile(path string, cfg FileConfig, p *ring.Producer) (*FileSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open input file: %w", err)
	}

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() || dec.WavAudioFormat == wavFormatFloat {
		f.Close()
		return nil, fmt.Errorf("%w: %s", ErrInvalidWAV, path)
	}
	if err := dec.FwdToPCM(); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to locate PCM data in %s: %w", path, err)
	}

	if cfg.FramesPerBuffer <= 0 {
		cfg.FramesPerBuffer = defaultFileChunk
	}
	channels := int(dec.NumChans)

	fs := &FileSource{
		cfg:        cfg,
		file:       f,
		decoder:    dec,
		producer:   p,
		downmix:    NewDownmixer(),
		sampleRate: float64(dec.SampleRate),
		channels:   channels,
		bitDepth:   int(dec.BitDepth),
		pcm: &goaudio.IntBuffer{
			Data:   make([]int, cfg.FramesPerBuffer*channels),
			Format: &goaudio.Format{NumChannels: channels, SampleRate: int(dec.SampleRate)},
		},
		scratch: make([]float32, cfg.FramesPerBuffer*channels),
		done:    make(chan struct{}),
	}
	fs.downmix.SetChannels(channels)

	applog.Infof("Audio: Opened '%s' (%d ch, %d bit @ %d Hz, pace=%t, loop=%t)",
		path, channels, fs.bitDepth, dec.SampleRate, cfg.Pace, cfg.Loop)
	return fs, nil
}

// Start launches the feeder goroutine. It stops at end of file (unless
// looping), on a decode error, when ctx is cancelled, or on Close. Start and
// Close must be called from the same goroutine.
func (fs *FileSource) Start(ctx context.Context) {
	if fs.started.Load() {
		return
	}
	ctx, fs.cancel = context.WithCancel(ctx)
	fs.started.Store(true)
	go fs.run(ctx)
}

func (fs *FileSource) run(ctx context.Context) {
	defer close(fs.done)

	var tick <-chan time.Time
	if fs.cfg.Pace {
		period := time.Duration(float64(time.Second) * float64(fs.cfg.FramesPerBuffer) / fs.sampleRate)
		ticker := time.NewTicker(period)
		defer ticker.Stop()
		tick = ticker.C
	}

	// read is set once the current pass has produced samples. A pass that
	// reaches the end without any means the file holds no audio.
	read := false
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		n, err := fs.decoder.PCMBuffer(fs.pcm)
		if err != nil {
			fs.err = fmt.Errorf("failed to decode PCM data: %w", err)
			applog.Errorf("Audio: %v", fs.err)
			return
		}
		if n == 0 {
			if !fs.cfg.Loop {
				applog.Debugf("Audio: End of input file")
				return
			}
			if !read {
				applog.Warnf("Audio: Input file has no audio data, not looping")
				return
			}
			if err := fs.decoder.Rewind(); err != nil {
				fs.err = err
				applog.Errorf("Audio: Failed to rewind input file: %v", err)
				return
			}
			read = false
			continue
		}

		read = true
		fs.push(fs.pcm.Data[:n])

		if tick != nil {
			select {
			case <-ctx.Done():
				return
			case <-tick:
			}
		}
	}
}

func (fs *FileSource) push(samples []int) {
	out := fs.scratch[:len(samples)]
	for i, v := range samples {
		out[i] = normalizeSample(v, fs.bitDepth)
	}
	pushed, dropped := fs.downmix.Push(out, fs.producer)
	fs.pushed.Add(uint64(pushed))
	fs.dropped.Add(uint64(dropped))
}

// normalizeSample maps a decoded PCM integer to [-1, 1). 8-bit WAV data is
// unsigned, every other depth is signed.
func normalizeSample(v, bitDepth int) float32 {
	if bitDepth == 8 {
		return float32(v-128) / 128
	}
	return float32(float64(v) / float64(int64(1)<<(bitDepth-1)))
}

// Done is closed when the feeder goroutine has exited.
func (fs *FileSource) Done() <-chan struct{} { return fs.done }

// Err returns the decode error that stopped the feeder, if any. Only valid
// after Done is closed.
func (fs *FileSource) Err() error { return fs.err }

// SampleRate returns the file's sample rate in Hz.
func (fs *FileSource) SampleRate() float64 { return fs.sampleRate }

// Channels returns the file's channel count.
func (fs *FileSource) Channels() int { return fs.channels }

// Stats returns a snapshot of the feeder counters.
func (fs *FileSource) Stats() Stats {
	return Stats{
		Pushed:  fs.pushed.Load(),
		Dropped: fs.dropped.Load(),
	}
}

// Close stops the feeder, waits for it and closes the file.
func (fs *FileSource) Close() error {
	var err error
	fs.closeOnce.Do(func() {
		if fs.started.Load() {
			fs.cancel()
			<-fs.done
		}
		if cerr := fs.file.Close(); cerr != nil {
			err = fmt.Errorf("failed to close input file: %w", cerr)
		}
	})
	return err
}
