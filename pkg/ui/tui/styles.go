package tui

import (
	"github.com/charmbracelet/lipgloss"
)

var (
	accentRed  = lipgloss.Color("#FF2442")
	softPink   = lipgloss.Color("#FF8FA3")
	leafGreen  = lipgloss.Color("#3DDC84")
	amber      = lipgloss.Color("#FFB020")
	dimWhite   = lipgloss.Color("#B0B0B0")
	faintGray  = lipgloss.Color("#5C5C5C")
	errorColor = lipgloss.Color("#FF0000")

	titleStyle = lipgloss.NewStyle().
			Foreground(accentRed).
			Bold(true).
			Padding(0, 1)

	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(softPink).
			Padding(0, 1)

	channelStyle = lipgloss.NewStyle().
			Foreground(dimWhite)

	fileStyle = lipgloss.NewStyle().
			Foreground(faintGray).
			Italic(true)

	successStyle = lipgloss.NewStyle().
			Foreground(leafGreen).
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(errorColor).
			Bold(true)

	pendingStyle = lipgloss.NewStyle().
			Foreground(amber)

	helpStyle = lipgloss.NewStyle().
			Foreground(faintGray)
)
