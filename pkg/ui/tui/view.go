package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
)

// View renders the dashboard
func (m *Model) View() string {
	var sections []string
	sections = append(sections, titleStyle.Render("autored · channel downloads"))

	channels := m.Channels()
	if len(channels) == 0 {
		sections = append(sections, pendingStyle.Render(m.spinner.View()+" waiting for yt-dlp..."))
	}
	for _, c := range channels {
		sections = append(sections, m.renderChannel(c))
	}

	active, completed, failed := m.Counts()
	stats := fmt.Sprintf("%d active · %s · %s",
		active,
		successStyle.Render(fmt.Sprintf("%d done", completed)),
		errorStyle.Render(fmt.Sprintf("%d failed", failed)),
	)
	sections = append(sections, stats)
	sections = append(sections, panelStyle.Render(m.renderLog()))

	if !m.finished {
		sections = append(sections, helpStyle.Render(quitKeys.Help().Key+" "+quitKeys.Help().Desc))
	}
	return lipgloss.JoinVertical(lipgloss.Left, sections...) + "\n"
}

func (m *Model) renderChannel(c ChannelItem) string {
	var icon string
	switch c.State {
	case ChannelActive:
		icon = m.spinner.View()
	case ChannelCompleted:
		icon = successStyle.Render("✓")
	case ChannelFailed:
		icon = errorStyle.Render("✗")
	default:
		icon = pendingStyle.Render("·")
	}

	line := fmt.Sprintf("%s %s", icon, channelStyle.Render(c.URL))
	if c.State == ChannelActive && !c.StartTime.IsZero() {
		line += " " + fileStyle.Render(formatElapsed(time.Since(c.StartTime)))
	}

	bar := m.bar.ViewAs(c.Percent / 100)
	detail := fileStyle.Render(fmt.Sprintf("%d file(s)", c.Files))
	if c.File != "" {
		detail = fileStyle.Render(c.File)
	}
	return lipgloss.JoinVertical(lipgloss.Left, line, "  "+bar, "  "+detail)
}

func (m *Model) renderLog() string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if len(m.logMessages) == 0 {
		return helpStyle.Render("no events yet")
	}
	lines := make([]string, 0, len(m.logMessages))
	for _, msg := range m.logMessages {
		style := lipgloss.NewStyle().Foreground(msg.Color)
		lines = append(lines, fmt.Sprintf("%s %s",
			helpStyle.Render(msg.Time.Format("15:04:05")),
			style.Render(msg.Message)))
	}
	return strings.Join(lines, "\n")
}
