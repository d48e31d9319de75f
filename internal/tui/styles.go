// SPDX-License-Identifier: MIT
package tui

import "github.com/charmbracelet/lipgloss"

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFDF5")).
			Background(lipgloss.Color("#25A065")).
			Padding(0, 1).
			Bold(true)

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFDF5"))

	highlightStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#25A065")).
			Bold(true)

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#767676"))

	warnStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFB000")).
			Bold(true)

	peakStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFDF5"))
)

// Tier groups levels into the three meter colours.
type Tier int

const (
	TierLow Tier = iota
	TierMid
	TierHigh
)

// Tier thresholds in level units.
const (
	highThreshold = 75
	midThreshold  = 40
)

var tierStyles = [...]lipgloss.Style{
	TierLow:  lipgloss.NewStyle().Foreground(lipgloss.Color("2")),
	TierMid:  lipgloss.NewStyle().Foreground(lipgloss.Color("3")),
	TierHigh: lipgloss.NewStyle().Foreground(lipgloss.Color("1")),
}

// TierOf returns the colour tier of a level: above 75 is high (red), above
// 40 is mid (yellow), anything else is low (green).
func TierOf(level int) Tier {
	switch {
	case level > highThreshold:
		return TierHigh
	case level > midThreshold:
		return TierMid
	default:
		return TierLow
	}
}

// Style returns the bar style of the tier.
func (t Tier) Style() lipgloss.Style {
	return tierStyles[t]
}

func (t Tier) String() string {
	switch t {
	case TierHigh:
		return "red"
	case TierMid:
		return "yellow"
	default:
		return "green"
	}
}
