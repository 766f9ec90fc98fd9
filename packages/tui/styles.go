package tui

import (
	"github.com/charmbracelet/lipgloss"
)

var (
	DimColor     = lipgloss.Color("#6c6c6c")
	TextColor    = lipgloss.Color("#e0e0e0")
	AccentColor  = lipgloss.Color("#7aa2f7")
	ErrorColor   = lipgloss.Color("#f7768e")
	SuccessColor = lipgloss.Color("#9ece6a")
	WarnColor    = lipgloss.Color("#e0af68")
)

var (
	ActiveTabStyle = lipgloss.NewStyle().
			Foreground(AccentColor).
			Bold(true).
			Padding(0, 1).
			Border(lipgloss.RoundedBorder(), true, true, false, true).
			BorderForeground(AccentColor)

	InactiveTabStyle = lipgloss.NewStyle().
				Foreground(DimColor).
				Padding(0, 1).
				Border(lipgloss.RoundedBorder(), true, true, false, true).
				BorderForeground(DimColor)

	MethodStyle = lipgloss.NewStyle().
			Foreground(AccentColor).
			Bold(true)

	LabelStyle = lipgloss.NewStyle().
			Foreground(DimColor)

	FocusedLabelStyle = lipgloss.NewStyle().
				Foreground(AccentColor).
				Bold(true)

	PanelStyle = lipgloss.NewStyle().
			Border(lipgloss.NormalBorder()).
			BorderForeground(DimColor)

	ErrorStyle = lipgloss.NewStyle().
			Foreground(ErrorColor)

	HelpStyle = lipgloss.NewStyle().
			Foreground(DimColor)
)

// statusStyle colors a response status like the console printer does.
func statusStyle(code uint16) lipgloss.Style {
	switch {
	case code >= 500:
		return lipgloss.NewStyle().Foreground(ErrorColor).Bold(true)
	case code >= 400:
		return lipgloss.NewStyle().Foreground(WarnColor).Bold(true)
	case code >= 300:
		return lipgloss.NewStyle().Foreground(AccentColor).Bold(true)
	default:
		return lipgloss.NewStyle().Foreground(SuccessColor).Bold(true)
	}
}
