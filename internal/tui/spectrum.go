// SPDX-License-Identifier: MIT
package tui

import (
	"fmt"
	"math"
	"strings"
	"time"

	"specvis/internal/analysis"
	"specvis/internal/audio"
	applog "specvis/internal/log"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/harmonica"
)

const (
	defaultBarRows = 16
	columnWidth    = 4
	statsInterval  = time.Second

	// Peak caps fall back onto the bars with a slightly underdamped spring.
	capFrequency = 4.0
	capDamping   = 0.8
)

var quitKeys = key.NewBinding(key.WithKeys("q", "esc", "ctrl+c"))

type tickMsg time.Time

type sourceDoneMsg struct{}

func tickCmd(fps int) tea.Cmd {
	return tea.Tick(time.Second/time.Duration(fps), func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// SpectrumConfig wires a SpectrumModel to a running pipeline.
type SpectrumConfig struct {
	Analyzer *analysis.Analyzer
	Frames   analysis.FrameSource
	Source   audio.Source
	Done     <-chan struct{} // closed when a finite source ends, may be nil
	FPS      int
	Title    string
}

// SpectrumModel draws the live band vector as coloured bars with falling
// peak caps. All analysis runs on the bubbletea update goroutine, which is
// the only consumer of the sample ring.
type SpectrumModel struct {
	cfg SpectrumConfig

	levels []int
	caps   []float64
	capVel []float64
	spring harmonica.Spring

	frames     uint64
	lastStats  audio.Stats
	lastReport time.Time
	warning    string
	ended      bool

	width  int
	height int
}

// NewSpectrumModel creates the visualizer model.
func NewSpectrumModel(cfg SpectrumConfig) SpectrumModel {
	if cfg.FPS <= 0 {
		cfg.FPS = 60
	}
	bands := cfg.Analyzer.Table().Len()
	return SpectrumModel{
		cfg:    cfg,
		levels: make([]int, bands),
		caps:   make([]float64, bands),
		capVel: make([]float64, bands),
		spring: harmonica.NewSpring(harmonica.FPS(cfg.FPS), capFrequency, capDamping),
	}
}

// Init starts the frame clock and, for finite sources, waits for their end.
func (m SpectrumModel) Init() tea.Cmd {
	cmds := []tea.Cmd{tickCmd(m.cfg.FPS)}
	if m.cfg.Done != nil {
		done := m.cfg.Done
		cmds = append(cmds, func() tea.Msg {
			<-done
			return sourceDoneMsg{}
		})
	}
	return tea.Batch(cmds...)
}

// Update handles keys, resizes and frame ticks.
func (m SpectrumModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height

	case tea.KeyMsg:
		if key.Matches(msg, quitKeys) {
			return m, tea.Quit
		}

	case tickMsg:
		m.step(time.Time(msg))
		return m, tickCmd(m.cfg.FPS)

	case sourceDoneMsg:
		m.ended = true
	}
	return m, nil
}

// step analyses at most one frame and advances the peak caps.
func (m *SpectrumModel) step(now time.Time) {
	if vec, ok := m.cfg.Analyzer.Next(m.cfg.Frames); ok {
		copy(m.levels, vec)
		m.frames++
	}

	for i, level := range m.levels {
		target := float64(level)
		if target >= m.caps[i] {
			m.caps[i], m.capVel[i] = target, 0
			continue
		}
		m.caps[i], m.capVel[i] = m.spring.Update(m.caps[i], m.capVel[i], target)
		m.caps[i] = max(m.caps[i], target)
	}

	if m.cfg.Source != nil && now.Sub(m.lastReport) >= statsInterval {
		m.reportStats(now)
	}
}

func (m *SpectrumModel) reportStats(now time.Time) {
	stats := m.cfg.Source.Stats()
	delta := stats.Since(m.lastStats)
	m.lastStats, m.lastReport = stats, now

	if delta.Healthy() {
		m.warning = ""
		return
	}
	m.warning = fmt.Sprintf("dropped %d samples, %d overflows, %d underflows in the last second",
		delta.Dropped, delta.Overflows, delta.Underflows)
	applog.Warnf("Audio: %s", m.warning)
}

// Levels returns the band levels currently on screen.
func (m SpectrumModel) Levels() []int { return m.levels }

// Caps returns the current peak cap positions.
func (m SpectrumModel) Caps() []float64 { return m.caps }

// Frames returns the number of frames analysed so far.
func (m SpectrumModel) Frames() uint64 { return m.frames }

func (m SpectrumModel) barRows() int {
	if m.height <= 0 {
		return defaultBarRows
	}
	return max(m.height-6, 4)
}

// View renders header, bars, band labels and footer.
func (m SpectrumModel) View() string {
	var sb strings.Builder

	title := m.cfg.Title
	if title == "" {
		title = "specvis"
	}
	sb.WriteString(titleStyle.Render(title))
	if m.ended {
		sb.WriteString(" " + dimStyle.Render("(end of input)"))
	}
	sb.WriteString("\n\n")

	rows := m.barRows()
	for r := rows; r >= 1; r-- {
		for i, level := range m.levels {
			filled := (level*rows + analysis.MaxLevel/2) / analysis.MaxLevel
			capRow := int(math.Round(m.caps[i] * float64(rows) / analysis.MaxLevel))
			switch {
			case r <= filled:
				sb.WriteString(TierOf(level).Style().Render(strings.Repeat("█", columnWidth-1)))
			case r == capRow:
				sb.WriteString(peakStyle.Render(strings.Repeat("▔", columnWidth-1)))
			default:
				sb.WriteString(strings.Repeat(" ", columnWidth-1))
			}
			sb.WriteByte(' ')
		}
		sb.WriteByte('\n')
	}

	table := m.cfg.Analyzer.Table()
	for i := range table.Len() {
		b := table.Band(i)
		label := formatFrequency(table.Frequency(b.Start))
		fmt.Fprintf(&sb, "%-*s", columnWidth, label)
	}
	sb.WriteString("\n\n")

	if m.warning != "" {
		sb.WriteString(warnStyle.Render(m.warning))
		sb.WriteByte('\n')
	}
	status := fmt.Sprintf("%.0f Hz • %d fps • %d frames", m.sampleRate(), m.cfg.FPS, m.frames)
	sb.WriteString(dimStyle.Render(status))
	sb.WriteString("  ")
	sb.WriteString(infoStyle.Render("press q to quit"))
	return sb.String()
}

func (m SpectrumModel) sampleRate() float64 {
	if m.cfg.Source == nil {
		return 0
	}
	return m.cfg.Source.SampleRate()
}

// formatFrequency renders a band edge in at most three characters.
func formatFrequency(hz float64) string {
	if hz < 999.5 {
		return fmt.Sprintf("%.0f", hz)
	}
	return fmt.Sprintf("%.0fk", hz/1000)
}

// Run starts a bubbletea program for model on the alternate screen and
// blocks until it exits.
func Run(model tea.Model) error {
	p := tea.NewProgram(model, tea.WithAltScreen())
	_, err := p.Run()
	return err
}
