// Package ui holds the terminal side of autored: coloured console output,
// desktop notifications and the prompts of the interactive upload assistant.
package ui

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

// Banner printed by the CLI on interactive commands
const Banner = `
   ▄▀█ █ █ ▀█▀ █▀█ █▀█ █▀▀ █▀▄
   █▀█ █▄█  █  █▄█ █▀▄ ██▄ █▄▀   xiaohongshu autopilot
`

var (
	cyanStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
	yellowStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	redStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Bold(true)
	greenStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("2")).Bold(true)
	magentaStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("5"))
	dimStyle     = lipgloss.NewStyle().Faint(true)
	boxStyle     = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("5")).
			Padding(0, 1)
)

// Out is where the Print helpers write
var Out io.Writer = os.Stdout

var colorEnabled = isTerminal(os.Stdout)

func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// SetColor forces colour on or off
func SetColor(enabled bool) {
	colorEnabled = enabled
}

// IsInteractive reports whether stdin is a terminal a person can answer on
func IsInteractive() bool {
	return isTerminal(os.Stdin)
}

func paint(style lipgloss.Style) func(string) string {
	return func(text string) string {
		if !colorEnabled {
			return text
		}
		return style.Render(text)
	}
}

// Color functions for terminal output
var (
	Cyan    = paint(cyanStyle)
	Yellow  = paint(yellowStyle)
	Red     = paint(redStyle)
	Green   = paint(greenStyle)
	Magenta = paint(magentaStyle)
	Dim     = paint(dimStyle)
)

// Box frames text with a rounded border
func Box(text string) string {
	if !colorEnabled {
		return text
	}
	return boxStyle.Render(text)
}

// PrintBanner prints the banner
func PrintBanner() {
	fmt.Fprint(Out, Cyan(Banner))
}

// PrintError prints an error message in red
func PrintError(msg string, args ...interface{}) {
	if len(args) > 0 {
		fmt.Fprintln(Out, Red(msg+": "+fmt.Sprintf("%v", args[0])))
	} else {
		fmt.Fprintln(Out, Red(msg))
	}
}

// PrintSuccess prints a success message in green
func PrintSuccess(msg string) {
	fmt.Fprintln(Out, Green(msg))
}

// PrintInfo prints a label and value
func PrintInfo(label string, value string) {
	fmt.Fprintf(Out, "%s: %s\n", Cyan(label), Yellow(value))
}

// PrintWarning prints a warning message in yellow
func PrintWarning(msg string, args ...interface{}) {
	if len(args) > 0 {
		fmt.Fprintln(Out, Yellow(msg+": "+fmt.Sprintf("%v", args[0])))
	} else {
		fmt.Fprintln(Out, Yellow(msg))
	}
}

// PrintHighlight prints a highlighted message in magenta
func PrintHighlight(msg string) {
	fmt.Fprintln(Out, Magenta(msg))
}
