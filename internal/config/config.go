// SPDX-License-Identifier: MIT
package config

import (
	"specvis/internal/analysis"
	"specvis/internal/ring"
)

// Defaults and limits for the visualizer configuration.
const (
	DefaultDeviceID        = MinDeviceID // system default input
	DefaultFramesPerBuffer = 512
	DefaultFPS             = 60
	DefaultLogLevel        = "info"

	MinDeviceID     = -1 // -1 represents system default device
	MinSampleRate   = 8000
	MaxSampleRate   = 192000
	MaxBufferFrames = 8192
	MaxFPS          = 240
)

// Commands that replace the visualizer with a one-off action.
const (
	CommandList    = "list"
	CommandDevices = "devices"
)

// Config represents the main application configuration, loaded from YAML and
// refined by environment variables and command line flags.
type Config struct {
	// Debug is a shorthand for log_level: debug.
	Debug    bool   `yaml:"debug"`
	LogLevel string `yaml:"log_level"`

	// LogFile receives log output while the UI owns the terminal.
	LogFile string `yaml:"log_file" validate:"omitempty,max=4096"`
	Command string `yaml:"command,omitempty" validate:"omitempty,oneof=list devices"`

	// TUIMode is set when an interactive command is running.
	TUIMode bool `yaml:"-"`

	// Plain prints vectors as text instead of drawing bars.
	Plain bool `yaml:"plain"`

	// Input is a WAV file to analyse instead of live capture.
	Input string `yaml:"input" validate:"omitempty,max=4096"`
	Loop  bool   `yaml:"loop"`
	FPS   int    `yaml:"fps" validate:"gte=1,lte=240"`

	Audio    AudioConfig    `yaml:"audio"`
	Analysis AnalysisConfig `yaml:"analysis"`
}

// AudioConfig holds capture settings. Zero values defer to the device.
type AudioConfig struct {
	// InputDevice is a PortAudio device index, -1 for the default input.
	InputDevice int `yaml:"input_device" validate:"gte=-1"`

	// SampleRate in Hz, 0 for the device default.
	SampleRate float64 `yaml:"sample_rate" validate:"omitempty,gte=8000,lte=192000"`

	// FramesPerBuffer per callback, 0 lets the host decide.
	FramesPerBuffer int  `yaml:"frames_per_buffer" validate:"gte=0,lte=8192"`
	LowLatency      bool `yaml:"low_latency"`

	// InputChannels of 0 picks min(device max, 2).
	InputChannels int `yaml:"input_channels" validate:"gte=0,lte=32"`

	// Monitor captures system playback through PipeWire.
	Monitor      bool `yaml:"monitor"`
	RingCapacity int  `yaml:"ring_capacity" validate:"gte=2,lte=1048576"`
}

// AnalysisConfig shapes the spectrum pipeline.
type AnalysisConfig struct {
	FrameSize int     `yaml:"frame_size" validate:"gte=2"`
	FFTSize   int     `yaml:"fft_size" validate:"gte=2,lte=65536"`
	Bands     int     `yaml:"bands" validate:"gte=1,lte=256"`
	MinFreq   float64 `yaml:"min_freq" validate:"gt=0"`
	MaxFreq   float64 `yaml:"max_freq" validate:"gt=0"`
	MinDB     float64 `yaml:"min_db"`
	MaxDB     float64 `yaml:"max_db"`
	Tilt      float64 `yaml:"tilt" validate:"gte=-12,lte=12"`
	Smoothing float64 `yaml:"smoothing" validate:"gt=0,lte=1"`
	Window    string  `yaml:"window"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		LogLevel: DefaultLogLevel,
		FPS:      DefaultFPS,
		Audio: AudioConfig{
			InputDevice:     DefaultDeviceID,
			FramesPerBuffer: DefaultFramesPerBuffer,
			RingCapacity:    ring.DefaultCapacity,
		},
		Analysis: AnalysisConfig{
			FrameSize: analysis.DefaultFrameSize,
			FFTSize:   analysis.DefaultFFTSize,
			Bands:     analysis.DefaultBands,
			MinFreq:   analysis.DefaultMinFreq,
			MaxFreq:   analysis.DefaultMaxFreq,
			MinDB:     analysis.DefaultMinDB,
			MaxDB:     analysis.DefaultMaxDB,
			Tilt:      analysis.DefaultTilt,
			Smoothing: analysis.DefaultSmoothing,
			Window:    analysis.Hann.String(),
		},
	}
}

// AnalyzerConfig converts the analysis section into the pipeline
// configuration. The window name must already have been validated.
func (c *Config) AnalyzerConfig() analysis.Config {
	window, _ := analysis.ParseWindowFunc(c.Analysis.Window)
	return analysis.Config{
		FrameSize: c.Analysis.FrameSize,
		FFTSize:   c.Analysis.FFTSize,
		Bands:     c.Analysis.Bands,
		MinFreq:   c.Analysis.MinFreq,
		MaxFreq:   c.Analysis.MaxFreq,
		Window:    window,
		Levels: analysis.NormalizerConfig{
			FrameLen:  c.Analysis.FrameSize,
			MinDB:     c.Analysis.MinDB,
			MaxDB:     c.Analysis.MaxDB,
			Tilt:      c.Analysis.Tilt,
			Smoothing: c.Analysis.Smoothing,
			Epsilon:   analysis.DefaultEpsilon,
		},
	}
}
