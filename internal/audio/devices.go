// SPDX-License-Identifier: MIT
package audio

import (
	"errors"
	"fmt"
	"io"
	"os"

	applog "specvis/internal/log"

	"github.com/gordonklaus/portaudio"
)

// DefaultDeviceID selects the host's default input device.
const DefaultDeviceID = -1

// Environment hints read by the PipeWire ALSA bridge. With both set, the
// default "input" becomes a capture of the playback sink, i.e. whatever the
// machine is currently playing.
const (
	monitorNodeEnv  = "PIPEWIRE_NODE"
	monitorNodeHint = "{ stream.capture.sink=true }"
	monitorALSAEnv  = "PIPEWIRE_ALSA"
	monitorALSAHint = `{ node.name="specvis" stream.capture.sink=true }`
)

// ErrNoAudioDevice is returned when the host has no usable input device.
var ErrNoAudioDevice = errors.New("no audio input device available")

// PortAudio entry points, replaced in tests.
var (
	paInitialize       = portaudio.Initialize
	paTerminate        = portaudio.Terminate
	paDevicesFunc      = portaudio.Devices
	paDefaultInputFunc = portaudio.DefaultInputDevice
)

// Initialize sets up the PortAudio subsystem. With monitor set, the monitor
// hints are exported first so the default input taps system playback.
// Must be paired with Terminate.
func Initialize(monitor bool) error {
	if monitor {
		if err := setMonitorHints(); err != nil {
			return err
		}
		applog.Infof("Audio: Monitor mode enabled (%s, %s)", monitorNodeEnv, monitorALSAEnv)
	}

	if err := paInitialize(); err != nil {
		return fmt.Errorf("failed to initialize PortAudio: %w", err)
	}
	return nil
}

func setMonitorHints() error {
	if err := os.Setenv(monitorNodeEnv, monitorNodeHint); err != nil {
		return fmt.Errorf("failed to set %s: %w", monitorNodeEnv, err)
	}
	if err := os.Setenv(monitorALSAEnv, monitorALSAHint); err != nil {
		return fmt.Errorf("failed to set %s: %w", monitorALSAEnv, err)
	}
	return nil
}

// Terminate cleanly shuts down the PortAudio subsystem.
func Terminate() error {
	if err := paTerminate(); err != nil {
		return fmt.Errorf("failed to terminate PortAudio: %w", err)
	}
	return nil
}

// InputDevice retrieves the input device with the given ID. DefaultDeviceID
// returns the system default input device.
func InputDevice(deviceID int) (*portaudio.DeviceInfo, error) {
	devices, err := paDevices()
	if err != nil {
		return nil, err
	}

	if deviceID == DefaultDeviceID {
		device, err := paDefaultInputFunc()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrNoAudioDevice, err)
		}
		if device == nil || device.MaxInputChannels < 1 {
			return nil, ErrNoAudioDevice
		}
		return device, nil
	}

	if deviceID < 0 || deviceID >= len(devices) {
		return nil, fmt.Errorf("invalid device ID: %d", deviceID)
	}
	device := devices[deviceID]
	if device.MaxInputChannels < 1 {
		return nil, fmt.Errorf("device %d (%s) does not support input", deviceID, device.Name)
	}
	return device, nil
}

// HostDevices returns every device PortAudio reports, input or not.
func HostDevices() ([]Device, error) {
	infos, err := paDevices()
	if err != nil {
		return nil, err
	}

	var defaultName string
	if def, err := paDefaultInputFunc(); err == nil && def != nil {
		defaultName = def.Name
	}

	devices := make([]Device, len(infos))
	for i, info := range infos {
		devices[i] = newDevice(i, info)
		devices[i].DefaultInput = defaultName != "" && info.Name == defaultName
	}
	return devices, nil
}

// ListDevices writes a description of every available device to w.
func ListDevices(w io.Writer) error {
	devices, err := HostDevices()
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "\nAvailable Audio Devices\n\n")
	if len(devices) == 0 {
		fmt.Fprintln(w, "  (none)")
		return nil
	}

	for _, d := range devices {
		marker := ""
		if d.DefaultInput {
			marker = " [default input]"
		}
		fmt.Fprintf(w, "[%d] %s (%s)%s\n", d.ID, d.Name, d.Type(), marker)
		if d.HostAPI != "" {
			fmt.Fprintf(w, "    Host API: %s\n", d.HostAPI)
		}
		fmt.Fprintf(w, "    Input channels: %d, Output channels: %d\n", d.MaxInputChannels, d.MaxOutputChannels)
		fmt.Fprintf(w, "    Default sample rate: %.0f Hz\n", d.DefaultSampleRate)
		fmt.Fprintf(w, "    Latency: Low=%.2fms, High=%.2fms\n",
			d.LowInputLatency.Seconds()*1000,
			d.HighInputLatency.Seconds()*1000)
		fmt.Fprintln(w)
	}
	return nil
}

// paDevices returns all PortAudio devices, never a nil slice on success.
func paDevices() ([]*portaudio.DeviceInfo, error) {
	devices, err := paDevicesFunc()
	if err != nil {
		return nil, err
	}
	if devices == nil {
		devices = []*portaudio.DeviceInfo{}
	}
	return devices, nil
}
