// SPDX-License-Identifier: MIT
package cmd

import (
	"fmt"
	"os"

	"specvis/internal/analysis"
	"specvis/internal/config"
	"specvis/pkg/build"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// flagValues collects raw flag input before it is merged into the loaded
// configuration. Only flags the user actually set override the file.
type flagValues struct {
	configPath      string
	deviceID        int
	channels        int
	sampleRate      float64
	framesPerBuffer int
	lowLatency      bool
	monitor         bool
	input           string
	loop            bool
	plain           bool
	fps             int
	window          string
	logLevel        string
	logFile         string
	verbose         bool
}

// ParseArgs parses os.Args into a validated configuration. A nil config
// with a nil error means cobra already handled the invocation (help or
// version) and there is nothing left to run.
func ParseArgs() (*config.Config, error) {
	return parseArgs(os.Args[1:])
}

func parseArgs(args []string) (*config.Config, error) {
	buildInfo := build.Get()
	defaults := config.Default()

	var (
		flags   flagValues
		options *config.Config
	)

	// resolve loads the config file, layers the changed flags on top and
	// validates the merged result once.
	resolve := func(c *cobra.Command, command string, tui bool) error {
		cfg, err := config.Load(flags.configPath)
		if err != nil {
			return err
		}
		flags.apply(c.Flags(), cfg)
		cfg.Command = command
		cfg.TUIMode = tui && !cfg.Plain

		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid configuration: %w", err)
		}
		options = cfg
		return nil
	}

	rootCmd := &cobra.Command{
		Use:           buildInfo.Name,
		Short:         "Real-time audio spectrum visualizer",
		Version:       buildInfo.Version,
		SilenceErrors: true,
		SilenceUsage:  true,
		Args:          cobra.NoArgs,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd:   true,
			DisableDescriptions: true,
			DisableNoDescFlag:   true,
			HiddenDefaultCmd:    true,
		},
		RunE: func(c *cobra.Command, args []string) error {
			return resolve(c, "", true)
		},
	}
	rootCmd.SetVersionTemplate(buildInfo.String() + "\n")

	// Display help message
	rootCmd.SetHelpCommand(&cobra.Command{Hidden: true})

	// List command
	rootCmd.AddCommand(&cobra.Command{
		Use:   config.CommandList,
		Short: "List available audio devices",
		Args:  cobra.NoArgs,
		RunE: func(c *cobra.Command, args []string) error {
			return resolve(c, config.CommandList, false)
		},
	})

	// Interactive device picker, starts the visualizer on the chosen device
	rootCmd.AddCommand(&cobra.Command{
		Use:   config.CommandDevices,
		Short: "Browse audio devices and start the visualizer on one",
		Args:  cobra.NoArgs,
		RunE: func(c *cobra.Command, args []string) error {
			return resolve(c, config.CommandDevices, true)
		},
	})

	pf := rootCmd.PersistentFlags()

	pf.StringVarP(&flags.configPath, "config", "f", "",
		"Path to a YAML configuration file (default: ./config.yaml, then the user config directory)")

	// Audio Device Configuration
	pf.IntVarP(&flags.deviceID, "device", "d", defaults.Audio.InputDevice,
		"Specify input device ID. Use 'list' command to see available devices.")
	pf.IntVarP(&flags.channels, "channels", "c", defaults.Audio.InputChannels,
		"Number of input channels to open (0 = device maximum, at most 2)")
	pf.Float64VarP(&flags.sampleRate, "sample-rate", "s", defaults.Audio.SampleRate,
		"Sample rate, measured in Hertz (Hz), 0 = device default")
	pf.IntVarP(&flags.framesPerBuffer, "frames-per-buffer", "b", defaults.Audio.FramesPerBuffer,
		"The number of frames per buffer (affects latency)")
	pf.BoolVarP(&flags.lowLatency, "low-latency", "l", defaults.Audio.LowLatency,
		"Use low latency mode for real-time processing")
	pf.BoolVarP(&flags.monitor, "monitor", "m", defaults.Audio.Monitor,
		"Capture system playback through the PipeWire monitor")

	// Source and Display
	pf.StringVarP(&flags.input, "input", "i", "",
		"Analyse a WAV file instead of a live device")
	pf.BoolVar(&flags.loop, "loop", false,
		"Restart the input file when it ends")
	pf.BoolVar(&flags.plain, "plain", false,
		"Print band levels as text instead of drawing bars")
	pf.IntVar(&flags.fps, "fps", defaults.FPS,
		fmt.Sprintf("Frames per second, 1..%d", config.MaxFPS))
	pf.StringVar(&flags.window, "window", defaults.Analysis.Window,
		fmt.Sprintf("Window function (%s, %s, %s, %s, %s, %s, %s)",
			analysis.Hann, analysis.Hamming, analysis.Blackman, analysis.BlackmanNuttall,
			analysis.BartlettHann, analysis.Lanczos, analysis.Nuttall))

	// Debug Configuration
	pf.StringVar(&flags.logLevel, "log-level", defaults.LogLevel,
		"Log level (debug, info, warn, error, fatal)")
	pf.StringVar(&flags.logFile, "log-file", "",
		"Write logs to this file (logs are discarded while the visualizer runs otherwise)")
	pf.BoolVarP(&flags.verbose, "verbose", "v", false,
		"Show verbose output")

	// Execute the CLI
	rootCmd.SetArgs(args)
	if err := rootCmd.Execute(); err != nil {
		return nil, err
	}
	return options, nil
}

// apply copies every flag the user set onto cfg.
func (f *flagValues) apply(fs *pflag.FlagSet, cfg *config.Config) {
	set := func(name string, fn func()) {
		if fs.Changed(name) {
			fn()
		}
	}

	set("device", func() { cfg.Audio.InputDevice = f.deviceID })
	set("channels", func() { cfg.Audio.InputChannels = f.channels })
	set("sample-rate", func() { cfg.Audio.SampleRate = f.sampleRate })
	set("frames-per-buffer", func() { cfg.Audio.FramesPerBuffer = f.framesPerBuffer })
	set("low-latency", func() { cfg.Audio.LowLatency = f.lowLatency })
	set("monitor", func() { cfg.Audio.Monitor = f.monitor })
	set("input", func() { cfg.Input = f.input })
	set("loop", func() { cfg.Loop = f.loop })
	set("plain", func() { cfg.Plain = f.plain })
	set("fps", func() { cfg.FPS = f.fps })
	set("window", func() { cfg.Analysis.Window = f.window })
	set("log-level", func() { cfg.LogLevel = f.logLevel })
	set("log-file", func() { cfg.LogFile = f.logFile })
	set("verbose", func() { cfg.Debug = f.verbose })
}
