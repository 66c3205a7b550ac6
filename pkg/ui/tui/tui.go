package tui

import (
	"fmt"
	"io"

	tea "github.com/charmbracelet/bubbletea"
)

// TUI is the running dashboard. It satisfies the media download observer.
type TUI struct {
	program *tea.Program
	model   *Model
}

// NewTUI creates a dashboard drawing to out. onQuit runs when the user
// presses q, typically to cancel the downloads.
func NewTUI(out io.Writer, onQuit func()) *TUI {
	model := NewModel(onQuit)
	program := tea.NewProgram(model, tea.WithOutput(out))

	return &TUI{
		program: program,
		model:   model,
	}
}

// Start runs the dashboard until Finish is called or the user quits
func (t *TUI) Start() error {
	_, err := t.program.Run()
	return err
}

// Finish closes the dashboard once the last frame is drawn
func (t *TUI) Finish() {
	t.Send(FinishedMsg{})
}

// Send sends a message to the TUI
func (t *TUI) Send(msg tea.Msg) {
	if t.program != nil {
		t.program.Send(msg)
	}
}

// ChannelStarted reports a channel download start
func (t *TUI) ChannelStarted(channel string) {
	t.Send(ChannelStartMsg{URL: channel})
}

// ChannelProgress reports a yt-dlp progress line
func (t *TUI) ChannelProgress(channel string, percent float64, file string) {
	t.Send(ChannelProgressMsg{URL: channel, Percent: percent, File: file})
}

// ChannelFinished reports the end of a channel download
func (t *TUI) ChannelFinished(channel string, err error) {
	t.Send(ChannelDoneMsg{URL: channel, Error: err})
}

// Log sends a line to the event tail
func (t *TUI) Log(level, format string, args ...interface{}) {
	t.Send(LogMsg{Level: level, Message: fmt.Sprintf(format, args...)})
}

// Summary returns the final state of every channel
func (t *TUI) Summary() []ChannelItem {
	return t.model.Channels()
}
