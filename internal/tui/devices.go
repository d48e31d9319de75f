// SPDX-License-Identifier: MIT
package tui

import (
	"fmt"
	"strings"

	"specvis/internal/audio"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// ScreenType defines which screen is currently active
type ScreenType int

const (
	ListScreen ScreenType = iota
	ConfigScreen
)

var commonSampleRates = []float64{44100, 48000, 88200, 96000}

var (
	upKeys    = key.NewBinding(key.WithKeys("up", "k"))
	downKeys  = key.NewBinding(key.WithKeys("down", "j"))
	enterKeys = key.NewBinding(key.WithKeys("enter"))
	backKeys  = key.NewBinding(key.WithKeys("esc"))
	exitKeys  = key.NewBinding(key.WithKeys("q", "ctrl+c"))
)

// Selection is the device and rate picked in the device browser.
type Selection struct {
	Device     audio.Device
	SampleRate float64
}

// DeviceListModel lets the user pick a capture device and sample rate.
type DeviceListModel struct {
	devices       []audio.Device
	selectedIndex int
	viewport      viewport.Model
	ready         bool
	err           error
	notice        string
	activeScreen  ScreenType

	availableSampleRates []float64
	sampleRateIndex      int

	selection *Selection
}

type devicesMsg struct {
	devices []audio.Device
}

type errMsg struct {
	err error
}

// NewDeviceListModel creates a new device list model
func NewDeviceListModel() DeviceListModel {
	return DeviceListModel{activeScreen: ListScreen}
}

// Init loads the host devices. PortAudio must already be initialized.
func (m DeviceListModel) Init() tea.Cmd {
	return fetchDevices
}

func fetchDevices() tea.Msg {
	devices, err := audio.HostDevices()
	if err != nil {
		return errMsg{err}
	}
	return devicesMsg{devices}
}

// Selection returns the confirmed choice, if any.
func (m DeviceListModel) Selection() (Selection, bool) {
	if m.selection == nil {
		return Selection{}, false
	}
	return *m.selection, true
}

func (m DeviceListModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		if !m.ready {
			m.viewport = viewport.New(msg.Width, msg.Height-4)
			m.viewport.Style = lipgloss.NewStyle()
			m.ready = true
		} else {
			m.viewport.Width = msg.Width
			m.viewport.Height = msg.Height - 4
		}
		m.refresh()

	case devicesMsg:
		m.devices = msg.devices
		// Start on the default input when there is one.
		for i, d := range m.devices {
			if d.DefaultInput {
				m.selectedIndex = i
				break
			}
		}
		m.refresh()

	case errMsg:
		m.err = msg.err

	case tea.KeyMsg:
		if key.Matches(msg, exitKeys) {
			return m, tea.Quit
		}
		if m.err != nil {
			return m, tea.Quit
		}

		switch m.activeScreen {
		case ListScreen:
			if quit := m.updateList(msg); quit {
				return m, tea.Quit
			}
		case ConfigScreen:
			if quit := m.updateConfig(msg); quit {
				return m, tea.Quit
			}
		}
		m.refresh()
	}

	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m *DeviceListModel) updateList(msg tea.KeyMsg) bool {
	m.notice = ""
	switch {
	case key.Matches(msg, upKeys):
		if m.selectedIndex > 0 {
			m.selectedIndex--
		}

	case key.Matches(msg, downKeys):
		if m.selectedIndex < len(m.devices)-1 {
			m.selectedIndex++
		}

	case key.Matches(msg, enterKeys):
		if len(m.devices) == 0 {
			return false
		}
		device := m.devices[m.selectedIndex]
		if !device.CanCapture() {
			m.notice = fmt.Sprintf("%s has no input channels", device.Name)
			return false
		}

		m.activeScreen = ConfigScreen
		m.availableSampleRates = sampleRatesFor(device)
		m.sampleRateIndex = 0
		for i, rate := range m.availableSampleRates {
			if rate == device.DefaultSampleRate {
				m.sampleRateIndex = i
				break
			}
		}
	}
	return false
}

func (m *DeviceListModel) updateConfig(msg tea.KeyMsg) bool {
	switch {
	case key.Matches(msg, backKeys):
		m.activeScreen = ListScreen

	case key.Matches(msg, upKeys):
		if m.sampleRateIndex > 0 {
			m.sampleRateIndex--
		}

	case key.Matches(msg, downKeys):
		if m.sampleRateIndex < len(m.availableSampleRates)-1 {
			m.sampleRateIndex++
		}

	case key.Matches(msg, enterKeys):
		m.selection = &Selection{
			Device:     m.devices[m.selectedIndex],
			SampleRate: m.availableSampleRates[m.sampleRateIndex],
		}
		return true
	}
	return false
}

// sampleRatesFor lists the common rates plus the device default, sorted.
func sampleRatesFor(d audio.Device) []float64 {
	rates := make([]float64, 0, len(commonSampleRates)+1)
	inserted := d.DefaultSampleRate <= 0
	for _, r := range commonSampleRates {
		if !inserted && d.DefaultSampleRate <= r {
			if d.DefaultSampleRate < r {
				rates = append(rates, d.DefaultSampleRate)
			}
			inserted = true
		}
		rates = append(rates, r)
	}
	if !inserted {
		rates = append(rates, d.DefaultSampleRate)
	}
	return rates
}

func (m *DeviceListModel) refresh() {
	if !m.ready {
		return
	}
	if m.activeScreen == ConfigScreen {
		m.viewport.SetContent(m.renderDeviceConfig())
	} else {
		m.viewport.SetContent(m.renderDevices())
	}
}

// View renders the UI
func (m DeviceListModel) View() string {
	if !m.ready {
		return "Initializing..."
	}

	if m.err != nil {
		return fmt.Sprintf("Error: %v\n\nPress any key to exit.", m.err)
	}

	var title, help string
	if m.activeScreen == ListScreen {
		title = titleStyle.Render("Audio Device List")
		help = infoStyle.Render("↑/↓: Navigate • Enter: Configure • q: Quit")
	} else {
		title = titleStyle.Render("Device Configuration")
		help = infoStyle.Render("↑/↓: Change Value • Enter: Start • Esc: Back • q: Quit")
	}
	if m.notice != "" {
		help = warnStyle.Render(m.notice) + "\n" + help
	}

	return fmt.Sprintf("%s\n\n%s\n\n%s", title, m.viewport.View(), help)
}

// renderDevices formats the device list
func (m DeviceListModel) renderDevices() string {
	if len(m.devices) == 0 {
		return "No audio devices found."
	}

	var sb strings.Builder
	for i, device := range m.devices {
		marker := ""
		if device.DefaultInput {
			marker = " *"
		}
		deviceInfo := fmt.Sprintf("[%d] %s (%s)%s\n", device.ID, device.Name, device.Type(), marker)
		deviceInfo += fmt.Sprintf("    Input channels: %d, Output channels: %d\n",
			device.MaxInputChannels, device.MaxOutputChannels)
		deviceInfo += fmt.Sprintf("    Default sample rate: %.0f Hz\n", device.DefaultSampleRate)

		switch {
		case i == m.selectedIndex:
			deviceInfo = highlightStyle.Render(deviceInfo)
		case !device.CanCapture():
			deviceInfo = dimStyle.Render(deviceInfo)
		}

		sb.WriteString(deviceInfo)
		sb.WriteString("\n")
	}
	return sb.String()
}

// renderDeviceConfig formats the device configuration screen
func (m DeviceListModel) renderDeviceConfig() string {
	var sb strings.Builder
	device := m.devices[m.selectedIndex]

	fmt.Fprintf(&sb, "Configure Device: %s\n\n", device.Name)
	sb.WriteString("Sample Rate:\n")

	for i, rate := range m.availableSampleRates {
		pointer := " "
		if i == m.sampleRateIndex {
			pointer = "▶"
		}
		line := fmt.Sprintf("  %s %.0f Hz\n", pointer, rate)
		if i == m.sampleRateIndex {
			line = highlightStyle.Render(line)
		}
		sb.WriteString(line)
	}
	return sb.String()
}

// StartDeviceListUI runs the device browser and returns the user's choice.
// ok is false when the user quit without choosing.
func StartDeviceListUI() (sel Selection, ok bool, err error) {
	p := tea.NewProgram(NewDeviceListModel(), tea.WithAltScreen())
	final, err := p.Run()
	if err != nil {
		return Selection{}, false, err
	}
	sel, ok = final.(DeviceListModel).Selection()
	return sel, ok, nil
}
