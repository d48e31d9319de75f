// SPDX-License-Identifier: MIT
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"
	"time"

	"specvis/cmd"
	"specvis/internal/analysis"
	"specvis/internal/audio"
	"specvis/internal/config"
	applog "specvis/internal/log"
	"specvis/internal/ring"
	"specvis/internal/tui"
	"specvis/pkg/build"
)

// main is the entry point for the spectrum visualizer.
// The program flow is divided into three distinct phases:
//
// 1. Startup Phase (Cold Path):
//   - Initialize build information
//   - Parse command line arguments and load configuration
//   - Configure logging
//   - Initialize PortAudio (with the monitor hint when requested)
//   - Execute one-off commands if requested
//   - Open the sample source and build the analyzer
//
// 2. Concurrent Phase (Hot Path):
//   - The source fills the ring buffer from its own thread
//   - The TUI (or plain loop) pulls frames and renders band levels
//
// 3. Shutdown Phase (Cold Path):
//   - Close the source
//   - Terminate PortAudio
func main() {
	// ==================== STARTUP PHASE (Cold Path) ====================

	// Initialize build information including version, commit hash, and build time.
	// Development builds run without ldflags.
	buildErr := build.Initialize()

	// Limit OS threads: one for the PortAudio callback, one for the UI.
	runtime.GOMAXPROCS(2)

	cfg, err := cmd.ParseArgs()
	if err != nil {
		applog.Fatalf("%v", err)
	}
	if cfg == nil {
		// help or version output
		return
	}

	logFile, err := configureLogging(cfg)
	if err != nil {
		applog.Fatalf("%v", err)
	}
	if logFile != nil {
		defer logFile.Close()
	}
	if buildErr != nil {
		applog.Warnf("Build: %v", strings.ReplaceAll(buildErr.Error(), "\n", ", "))
	}

	if err := audio.Initialize(cfg.Audio.Monitor); err != nil {
		applog.Fatalf("%v", err)
	}
	defer terminate()

	// Handle one-off commands that don't need a running source.
	switch cfg.Command {
	case config.CommandList:
		if err := audio.ListDevices(os.Stdout); err != nil {
			applog.Errorf("%v", err)
		}
		return

	case config.CommandDevices:
		sel, ok, err := tui.StartDeviceListUI()
		if err != nil {
			applog.Errorf("Device list: %v", err)
			return
		}
		if !ok {
			return
		}
		cfg.Audio.InputDevice = sel.Device.ID
		cfg.Audio.SampleRate = sel.SampleRate
		cfg.Input = ""
	}

	if err := run(cfg); err != nil {
		applog.Errorf("%v", err)
	}

	// ==================== SHUTDOWN PHASE (Cold Path) ====================
	// Deferred: PortAudio terminate, log file close.
}

func terminate() {
	if err := audio.Terminate(); err != nil {
		applog.Errorf("Audio: %v", err)
	}
}

// configureLogging applies the log level and, when a log file is set, sends
// output there. The returned file must be closed by the caller.
func configureLogging(cfg *config.Config) (*os.File, error) {
	level := cfg.LogLevel
	if cfg.Debug {
		level = applog.LevelDebug.String()
	}

	var (
		out  io.Writer
		file *os.File
	)
	if cfg.LogFile != "" {
		f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file: %w", err)
		}
		out, file = f, f
	}

	if err := applog.Configure(level, out); err != nil {
		if file != nil {
			file.Close()
		}
		return nil, err
	}
	return file, nil
}

// pipeline is everything the render loop needs.
type pipeline struct {
	source   audio.Source
	frames   *ring.Consumer
	analyzer *analysis.Analyzer
	done     <-chan struct{} // nil for live capture
	title    string
}

// openPipeline opens the configured source on a fresh ring and builds an
// analyzer for its sample rate. ctx bounds a file source's reader goroutine.
func openPipeline(ctx context.Context, cfg *config.Config) (*pipeline, error) {
	buf, err := ring.New(cfg.Audio.RingCapacity)
	if err != nil {
		return nil, err
	}
	producer, consumer := buf.Split()

	p := &pipeline{frames: consumer}
	if cfg.Input != "" {
		fs, err := audio.OpenFile(cfg.Input, audio.FileConfig{
			FramesPerBuffer: cfg.Audio.FramesPerBuffer,
			Pace:            true,
			Loop:            cfg.Loop,
		}, producer)
		if err != nil {
			return nil, err
		}
		fs.Start(ctx)
		p.source, p.done = fs, fs.Done()
		p.title = fmt.Sprintf("specvis • %s", cfg.Input)
	} else {
		capture, err := audio.OpenCapture(audio.CaptureConfig{
			DeviceID:        cfg.Audio.InputDevice,
			SampleRate:      cfg.Audio.SampleRate,
			Channels:        cfg.Audio.InputChannels,
			FramesPerBuffer: cfg.Audio.FramesPerBuffer,
			LowLatency:      cfg.Audio.LowLatency,
		}, producer)
		if err != nil {
			return nil, err
		}
		p.source = capture
		p.title = fmt.Sprintf("specvis • %s", capture.DeviceName())
	}

	p.analyzer, err = analysis.NewAnalyzer(cfg.AnalyzerConfig(), p.source.SampleRate())
	if err != nil {
		p.source.Close()
		return nil, err
	}
	return p, nil
}

func run(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	p, err := openPipeline(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := p.source.Close(); err != nil {
			applog.Errorf("Audio: failed to close source: %v", err)
		}
	}()

	// ==================== CONCURRENT PHASE (Hot Path) ====================

	if !cfg.TUIMode {
		return runPlain(ctx, p, cfg.FPS, os.Stdout)
	}

	// The alternate screen owns the terminal; logs go to the log file or nowhere.
	if cfg.LogFile == "" {
		applog.SetOutput(io.Discard)
		defer applog.SetOutput(os.Stderr)
	}

	model := tui.NewSpectrumModel(tui.SpectrumConfig{
		Analyzer: p.analyzer,
		Frames:   p.frames,
		Source:   p.source,
		Done:     p.done,
		FPS:      cfg.FPS,
		Title:    p.title,
	})
	return tui.Run(model)
}

// runPlain prints one line of band levels per analysed frame until ctx is
// cancelled or a finite source ends.
func runPlain(ctx context.Context, p *pipeline, fps int, w io.Writer) error {
	ticker := time.NewTicker(time.Second / time.Duration(fps))
	defer ticker.Stop()

	var (
		line       strings.Builder
		lastStats  audio.Stats
		lastReport = time.Now()
	)
	for {
		select {
		case <-ctx.Done():
			return nil

		case <-p.done:
			// Drain whatever the file left behind.
			for {
				vec, ok := p.analyzer.Next(p.frames)
				if !ok {
					return nil
				}
				if err := writeVector(w, &line, vec); err != nil {
					return err
				}
			}

		case now := <-ticker.C:
			if vec, ok := p.analyzer.Next(p.frames); ok {
				if err := writeVector(w, &line, vec); err != nil {
					return err
				}
			}

			if now.Sub(lastReport) >= time.Second {
				stats := p.source.Stats()
				if delta := stats.Since(lastStats); !delta.Healthy() {
					applog.Warnf("Audio: dropped %d samples, %d overflows, %d underflows",
						delta.Dropped, delta.Overflows, delta.Underflows)
				}
				lastStats, lastReport = stats, now
			}
		}
	}
}

func writeVector(w io.Writer, sb *strings.Builder, vec analysis.BandVector) error {
	sb.Reset()
	for i, level := range vec {
		if i > 0 {
			sb.WriteByte(' ')
		}
		fmt.Fprintf(sb, "%3d", level)
	}
	sb.WriteByte('\n')
	_, err := io.WriteString(w, sb.String())
	return err
}
