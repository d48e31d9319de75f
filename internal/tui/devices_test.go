// SPDX-License-Identifier: MIT
package tui

import (
	"errors"
	"slices"
	"strings"
	"testing"

	"specvis/internal/audio"

	tea "github.com/charmbracelet/bubbletea"
)

var testDevices = []audio.Device{
	{ID: 0, Name: "USB Microphone", MaxInputChannels: 2, DefaultSampleRate: 48000, DefaultInput: true},
	{ID: 1, Name: "Speakers", MaxOutputChannels: 2, DefaultSampleRate: 44100},
	{ID: 2, Name: "Headset", MaxInputChannels: 1, MaxOutputChannels: 2, DefaultSampleRate: 44100},
}

func sendKeys(t *testing.T, m DeviceListModel, keys ...tea.KeyMsg) (DeviceListModel, tea.Cmd) {
	t.Helper()
	var cmd tea.Cmd
	for _, k := range keys {
		var next tea.Model
		next, cmd = m.Update(k)
		m = next.(DeviceListModel)
	}
	return m, cmd
}

func loadedModel(t *testing.T) DeviceListModel {
	t.Helper()
	var next tea.Model = NewDeviceListModel()
	next, _ = next.Update(tea.WindowSizeMsg{Width: 80, Height: 40})
	next, _ = next.Update(devicesMsg{devices: testDevices})
	return next.(DeviceListModel)
}

var (
	keyDown  = tea.KeyMsg{Type: tea.KeyDown}
	keyUp    = tea.KeyMsg{Type: tea.KeyUp}
	keyEnter = tea.KeyMsg{Type: tea.KeyEnter}
	keyEsc   = tea.KeyMsg{Type: tea.KeyEsc}
)

func TestDeviceListStartsOnDefaultInput(t *testing.T) {
	m := loadedModel(t)
	if m.selectedIndex != 0 {
		t.Errorf("selectedIndex = %d, want 0", m.selectedIndex)
	}
	view := m.View()
	for _, want := range []string{"Audio Device List", "USB Microphone", "Headset"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q", want)
		}
	}
}

func TestDeviceListSelectsDeviceAndRate(t *testing.T) {
	m := loadedModel(t)

	// Output-only devices cannot be configured.
	m, _ = sendKeys(t, m, keyDown, keyEnter)
	if m.activeScreen != ListScreen {
		t.Fatal("output-only device opened the configuration screen")
	}
	if !strings.Contains(m.View(), "Speakers has no input channels") {
		t.Error("missing notice for output-only device")
	}

	m, _ = sendKeys(t, m, keyDown, keyEnter)
	if m.activeScreen != ConfigScreen {
		t.Fatal("input device did not open the configuration screen")
	}
	if got := m.availableSampleRates[m.sampleRateIndex]; got != 44100 {
		t.Errorf("preselected rate = %.0f, want device default 44100", got)
	}

	m, cmd := sendKeys(t, m, keyDown, keyEnter)
	if cmd == nil {
		t.Fatal("confirming did not quit")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Fatal("confirming did not return tea.Quit")
	}

	sel, ok := m.Selection()
	if !ok {
		t.Fatal("no selection after confirming")
	}
	if sel.Device.Name != "Headset" || sel.SampleRate != 48000 {
		t.Errorf("selection = %s @ %.0f, want Headset @ 48000", sel.Device.Name, sel.SampleRate)
	}
}

func TestDeviceListBackAndQuit(t *testing.T) {
	m := loadedModel(t)

	m, _ = sendKeys(t, m, keyEnter, keyEsc)
	if m.activeScreen != ListScreen {
		t.Error("esc did not return to the list")
	}

	m, _ = sendKeys(t, m, keyUp)
	if m.selectedIndex != 0 {
		t.Errorf("selectedIndex = %d, want 0", m.selectedIndex)
	}

	m, cmd := sendKeys(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	if cmd == nil {
		t.Fatal("q did not quit")
	}
	if _, ok := m.Selection(); ok {
		t.Error("quitting produced a selection")
	}
}

func TestDeviceListError(t *testing.T) {
	var next tea.Model = NewDeviceListModel()
	next, _ = next.Update(tea.WindowSizeMsg{Width: 80, Height: 40})
	next, _ = next.Update(errMsg{errors.New("host unavailable")})

	if !strings.Contains(next.View(), "host unavailable") {
		t.Errorf("view does not show the error:\n%s", next.View())
	}
	_, cmd := next.Update(keyDown)
	if cmd == nil {
		t.Error("any key should quit after an error")
	}
}

func TestSampleRatesFor(t *testing.T) {
	tests := []struct {
		rate float64
		want []float64
	}{
		{0, []float64{44100, 48000, 88200, 96000}},
		{48000, []float64{44100, 48000, 88200, 96000}},
		{22050, []float64{22050, 44100, 48000, 88200, 96000}},
		{50000, []float64{44100, 48000, 50000, 88200, 96000}},
		{192000, []float64{44100, 48000, 88200, 96000, 192000}},
	}
	for _, tt := range tests {
		got := sampleRatesFor(audio.Device{DefaultSampleRate: tt.rate})
		if !slices.Equal(got, tt.want) {
			t.Errorf("sampleRatesFor(%.0f) = %v, want %v", tt.rate, got, tt.want)
		}
	}
}
