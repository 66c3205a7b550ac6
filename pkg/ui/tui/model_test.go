package tui

import (
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
)

func TestModel(t *testing.T) {
	model := NewModel(nil)

	model.StartChannel("https://example.com/@a")
	model.StartChannel("https://example.com/@b")

	active, _, _ := model.Counts()
	if active != 2 {
		t.Errorf("Expected 2 active channels, got %d", active)
	}

	model.UpdateProgress("https://example.com/@a", 0, "one.mp4")
	model.UpdateProgress("https://example.com/@a", 42.5, "one.mp4")
	model.UpdateProgress("https://example.com/@a", 10, "two.mp4")

	channels := model.Channels()
	if len(channels) != 2 || channels[0].URL != "https://example.com/@a" {
		t.Fatalf("Expected channels in start order, got %+v", channels)
	}
	if channels[0].Files != 2 {
		t.Errorf("Expected 2 files, got %d", channels[0].Files)
	}
	if channels[0].File != "two.mp4" || channels[0].Percent != 10 {
		t.Errorf("Expected two.mp4 at 10%%, got %s at %.1f%%", channels[0].File, channels[0].Percent)
	}

	model.FinishChannel("https://example.com/@a", nil)
	model.FinishChannel("https://example.com/@b", errors.New("exit status 1"))

	active, completed, failed := model.Counts()
	if active != 0 || completed != 1 || failed != 1 {
		t.Errorf("Expected 0/1/1, got %d/%d/%d", active, completed, failed)
	}
	if model.Channels()[0].Percent != 100 {
		t.Errorf("Expected completed channel at 100%%")
	}
}

func TestLogTail(t *testing.T) {
	model := NewModel(nil)
	for i := 0; i < 20; i++ {
		model.AddLogMessage("INFO", "line")
	}
	if len(model.logMessages) != model.maxLogMessages {
		t.Errorf("Expected %d log messages, got %d", model.maxLogMessages, len(model.logMessages))
	}
}

func TestUpdateMessages(t *testing.T) {
	model := NewModel(nil)

	model.Update(ChannelStartMsg{URL: "chan"})
	model.Update(ChannelProgressMsg{URL: "chan", Percent: 50, File: "x.mp4"})
	model.Update(ChannelDoneMsg{URL: "chan"})

	if got := model.Channels()[0].State; got != ChannelCompleted {
		t.Errorf("Expected completed, got %v", got)
	}

	_, cmd := model.Update(FinishedMsg{})
	if cmd == nil {
		t.Fatal("Expected a quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Errorf("Expected tea.QuitMsg")
	}
	if strings.Contains(model.View(), "stop downloading") {
		t.Errorf("Finished dashboard should not show the quit hint")
	}
}

func TestQuitKeyCallsOnQuit(t *testing.T) {
	quit := false
	model := NewModel(func() { quit = true })

	_, cmd := model.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	if !quit {
		t.Error("Expected onQuit to run")
	}
	if cmd == nil {
		t.Error("Expected a quit command")
	}

	other := NewModel(func() { t.Error("unexpected quit") })
	other.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("x")})
}

func TestViewShowsChannels(t *testing.T) {
	model := NewModel(nil)
	model.StartChannel("https://example.com/@a")
	model.UpdateProgress("https://example.com/@a", 30, "song.mp4")

	view := model.View()
	for _, want := range []string{"https://example.com/@a", "song.mp4", "1 active"} {
		if !strings.Contains(view, want) {
			t.Errorf("Expected view to contain %q", want)
		}
	}
}
