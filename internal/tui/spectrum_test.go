// SPDX-License-Identifier: MIT
package tui

import (
	"strings"
	"testing"
	"time"

	"specvis/internal/analysis"
	"specvis/internal/audio"
	"specvis/internal/ring"
	"specvis/pkg/utils"

	tea "github.com/charmbracelet/bubbletea"
)

const testSampleRate = 44100

type fakeSource struct {
	stats audio.Stats
}

func (f *fakeSource) SampleRate() float64 { return testSampleRate }
func (f *fakeSource) Stats() audio.Stats  { return f.stats }
func (f *fakeSource) Close() error        { return nil }

func newTestModel(t *testing.T) (SpectrumModel, *ring.Producer, *fakeSource) {
	t.Helper()
	a, err := analysis.NewAnalyzer(analysis.DefaultConfig(), testSampleRate)
	if err != nil {
		t.Fatalf("NewAnalyzer error: %v", err)
	}
	buf, err := ring.New(ring.DefaultCapacity)
	if err != nil {
		t.Fatalf("ring.New error: %v", err)
	}
	p, c := buf.Split()
	src := &fakeSource{}
	m := NewSpectrumModel(SpectrumConfig{
		Analyzer: a,
		Frames:   c,
		Source:   src,
		FPS:      60,
		Title:    "test",
	})
	return m, p, src
}

func push(p *ring.Producer, samples []float32) {
	for _, s := range samples {
		p.Push(s)
	}
}

func tick(t *testing.T, m SpectrumModel) SpectrumModel {
	t.Helper()
	next, cmd := m.Update(tickMsg(time.Now()))
	if cmd == nil {
		t.Fatal("tick did not schedule the next tick")
	}
	return next.(SpectrumModel)
}

func TestTierOf(t *testing.T) {
	tests := []struct {
		level int
		want  Tier
	}{
		{0, TierLow},
		{40, TierLow},
		{41, TierMid},
		{75, TierMid},
		{76, TierHigh},
		{100, TierHigh},
	}
	for _, tt := range tests {
		if got := TierOf(tt.level); got != tt.want {
			t.Errorf("TierOf(%d) = %v, want %v", tt.level, got, tt.want)
		}
	}
}

func TestSpectrumQuitKeys(t *testing.T) {
	m, _, _ := newTestModel(t)

	for _, msg := range []tea.KeyMsg{
		{Type: tea.KeyRunes, Runes: []rune("q")},
		{Type: tea.KeyCtrlC},
		{Type: tea.KeyEsc},
	} {
		_, cmd := m.Update(msg)
		if cmd == nil {
			t.Fatalf("%q: no command returned", msg.String())
		}
		if _, ok := cmd().(tea.QuitMsg); !ok {
			t.Errorf("%q: command is not tea.Quit", msg.String())
		}
	}

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("x")})
	if cmd != nil {
		t.Error("unbound key returned a command")
	}
}

func TestSpectrumTickAnalysesFrame(t *testing.T) {
	m, p, _ := newTestModel(t)
	push(p, utils.GenerateSineWave(analysis.DefaultFrameSize, testSampleRate, 1000, 0.5))

	m = tick(t, m)

	levels := m.Levels()
	if levels[9] != 97 || levels[8] != 5 {
		t.Errorf("levels = %v, want 97 in band 9 and 5 in band 8", levels)
	}
	if m.Frames() != 1 {
		t.Errorf("Frames() = %d, want 1", m.Frames())
	}
	if m.Caps()[9] != 97 {
		t.Errorf("cap = %.2f, want it to jump to 97", m.Caps()[9])
	}
}

func TestSpectrumTickWithoutFrameKeepsLevels(t *testing.T) {
	m, p, _ := newTestModel(t)
	push(p, utils.GenerateSineWave(analysis.DefaultFrameSize, testSampleRate, 1000, 0.5))
	m = tick(t, m)
	before := append([]int(nil), m.Levels()...)

	// Half a frame is not enough to analyse.
	push(p, make([]float32, analysis.DefaultFrameSize/2))
	m = tick(t, m)

	for i := range before {
		if m.Levels()[i] != before[i] {
			t.Fatalf("levels changed without a frame: %v -> %v", before, m.Levels())
		}
	}
	if m.Frames() != 1 {
		t.Errorf("Frames() = %d, want 1", m.Frames())
	}
}

func TestSpectrumCapsFallButStayAboveBars(t *testing.T) {
	m, p, _ := newTestModel(t)
	push(p, utils.GenerateSineWave(analysis.DefaultFrameSize, testSampleRate, 1000, 0.5))
	m = tick(t, m)

	silence := make([]float32, analysis.DefaultFrameSize)
	for range 10 {
		push(p, silence)
		m = tick(t, m)

		for i, level := range m.Levels() {
			if m.Caps()[i] < float64(level) {
				t.Fatalf("band %d cap %.2f below level %d", i, m.Caps()[i], level)
			}
		}
	}

	if m.Levels()[9] >= 97 {
		t.Errorf("level did not decay: %d", m.Levels()[9])
	}
	if m.Caps()[9] >= 97 {
		t.Errorf("cap did not fall: %.2f", m.Caps()[9])
	}
}

func TestSpectrumReportsDrops(t *testing.T) {
	m, _, src := newTestModel(t)
	src.stats = audio.Stats{Pushed: 1000, Dropped: 5, Overflows: 1}

	m = tick(t, m)

	view := m.View()
	if !strings.Contains(view, "dropped 5 samples") {
		t.Errorf("view does not report drops:\n%s", view)
	}

	// A healthy second clears the warning.
	m.lastReport = time.Time{}
	src.stats.Pushed += 1000
	m = tick(t, m)
	if strings.Contains(m.View(), "dropped") {
		t.Error("warning still shown after a healthy interval")
	}
}

func TestSpectrumView(t *testing.T) {
	m, _, _ := newTestModel(t)

	next, _ := m.Update(tea.WindowSizeMsg{Width: 80, Height: 30})
	m = next.(SpectrumModel)

	view := m.View()
	for _, want := range []string{"test", "press q to quit", "44100 Hz"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q", want)
		}
	}

	next, _ = m.Update(sourceDoneMsg{})
	if !strings.Contains(next.View(), "end of input") {
		t.Error("finished source not shown")
	}
}

func TestFormatFrequency(t *testing.T) {
	tests := []struct {
		hz   float64
		want string
	}{
		{20, "20"},
		{431.2, "431"},
		{999.4, "999"},
		{999.6, "1k"},
		{1500, "2k"},
		{12000, "12k"},
	}
	for _, tt := range tests {
		if got := formatFrequency(tt.hz); got != tt.want {
			t.Errorf("formatFrequency(%v) = %q, want %q", tt.hz, got, tt.want)
		}
	}
}
