package tui

import (
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
)

// ChannelStartMsg is sent when a channel download starts
type ChannelStartMsg struct {
	URL string
}

// ChannelProgressMsg is sent for every progress line
type ChannelProgressMsg struct {
	URL     string
	Percent float64
	File    string
}

// ChannelDoneMsg is sent when a channel download ends
type ChannelDoneMsg struct {
	URL   string
	Error error
}

// LogMsg adds a line to the event tail
type LogMsg struct {
	Level   string
	Message string
}

// FinishedMsg ends the dashboard
type FinishedMsg struct{}

var quitKeys = key.NewBinding(
	key.WithKeys("q", "ctrl+c"),
	key.WithHelp("q", "stop downloading"),
)

// Init starts the spinner
func (m *Model) Init() tea.Cmd {
	return m.spinner.Tick
}

// Update handles all messages and updates the model
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if key.Matches(msg, quitKeys) {
			m.AddLogMessage("WARN", "stopped by user")
			if m.onQuit != nil {
				m.onQuit()
			}
			return m, tea.Quit
		}
		return m, nil

	case tea.WindowSizeMsg:
		m.width = msg.Width
		if w := msg.Width - 20; w > 10 && w < 60 {
			m.bar.Width = w
		}
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case ChannelStartMsg:
		m.StartChannel(msg.URL)
		m.AddLogMessage("INFO", "downloading "+msg.URL)
		return m, nil

	case ChannelProgressMsg:
		m.UpdateProgress(msg.URL, msg.Percent, msg.File)
		return m, nil

	case ChannelDoneMsg:
		m.FinishChannel(msg.URL, msg.Error)
		if msg.Error != nil {
			m.AddLogMessage("ERROR", msg.URL+": "+msg.Error.Error())
		} else {
			m.AddLogMessage("SUCCESS", "finished "+msg.URL)
		}
		return m, nil

	case LogMsg:
		m.AddLogMessage(msg.Level, msg.Message)
		return m, nil

	case FinishedMsg:
		m.finished = true
		return m, tea.Quit
	}

	return m, nil
}
