// Package tui draws a live dashboard of channel downloads: one progress bar
// per channel with the file yt-dlp is fetching, and a tail of events.
package tui

import (
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/lipgloss"
)

// ChannelState is where one channel download stands
type ChannelState int

const (
	ChannelPending ChannelState = iota
	ChannelActive
	ChannelCompleted
	ChannelFailed
)

// ChannelItem is one channel being downloaded
type ChannelItem struct {
	URL       string
	File      string
	Percent   float64
	Files     int
	State     ChannelState
	StartTime time.Time
	Error     error
}

// LogMessage is one line of the event tail
type LogMessage struct {
	Time    time.Time
	Level   string
	Message string
	Color   lipgloss.Color
}

// Model is the dashboard state
type Model struct {
	spinner spinner.Model
	bar     progress.Model

	channels map[string]*ChannelItem
	order    []string

	logMessages    []LogMessage
	maxLogMessages int

	width    int
	finished bool
	onQuit   func()

	mu sync.RWMutex
}

// NewModel creates an empty dashboard. onQuit runs when the user quits.
func NewModel(onQuit func()) *Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = pendingStyle

	bar := progress.New(progress.WithGradient(string(softPink), string(accentRed)))
	bar.Width = 40

	return &Model{
		spinner:        s,
		bar:            bar,
		channels:       make(map[string]*ChannelItem),
		maxLogMessages: 8,
		onQuit:         onQuit,
	}
}

func (m *Model) channel(url string) *ChannelItem {
	c, ok := m.channels[url]
	if !ok {
		c = &ChannelItem{URL: url}
		m.channels[url] = c
		m.order = append(m.order, url)
	}
	return c
}

// StartChannel marks a channel as downloading
func (m *Model) StartChannel(url string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	c := m.channel(url)
	c.State = ChannelActive
	c.StartTime = time.Now()
}

// UpdateProgress records the current file and its percentage. A new file
// name counts as one more file for the channel.
func (m *Model) UpdateProgress(url string, percent float64, file string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	c := m.channel(url)
	if file != "" && file != c.File {
		c.File = file
		c.Files++
	}
	c.Percent = percent
}

// FinishChannel marks a channel as done, failed when err is not nil
func (m *Model) FinishChannel(url string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	c := m.channel(url)
	if err != nil {
		c.State = ChannelFailed
		c.Error = err
		return
	}
	c.State = ChannelCompleted
	c.Percent = 100
}

// AddLogMessage appends to the event tail
func (m *Model) AddLogMessage(level, message string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	color := dimWhite
	switch level {
	case "ERROR":
		color = errorColor
	case "WARN":
		color = amber
	case "SUCCESS":
		color = leafGreen
	}

	m.logMessages = append(m.logMessages, LogMessage{
		Time:    time.Now(),
		Level:   level,
		Message: message,
		Color:   color,
	})
	if len(m.logMessages) > m.maxLogMessages {
		m.logMessages = m.logMessages[len(m.logMessages)-m.maxLogMessages:]
	}
}

// Counts returns how many channels are in each state
func (m *Model) Counts() (active, completed, failed int) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, c := range m.channels {
		switch c.State {
		case ChannelActive:
			active++
		case ChannelCompleted:
			completed++
		case ChannelFailed:
			failed++
		}
	}
	return
}

// Channels returns the channels in the order they started
func (m *Model) Channels() []ChannelItem {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]ChannelItem, 0, len(m.order))
	for _, url := range m.order {
		out = append(out, *m.channels[url])
	}
	return out
}

func formatElapsed(d time.Duration) string {
	d = d.Round(time.Second)
	return fmt.Sprintf("%02d:%02d", int(d.Minutes()), int(d.Seconds())%60)
}
