package cli

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/Paxxs/moledao-spider/internal/events"
	"github.com/Paxxs/moledao-spider/internal/model"

	tea "github.com/charmbracelet/bubbletea"
)

func TestWatchModelAppliesEvents(t *testing.T) {
	m := newWatchModel(nil)
	for _, ev := range []events.Event{
		events.StatusEvent(model.StatusRunning),
		events.ProgressEvent(2, 4),
		events.BatchEvent([]model.TickerItem{{ID: "1", Company: "Acme", Title: "Dev"}}),
		events.LogEvent(model.LogEntry{ID: "a", Level: model.LevelInfo, Message: "[Acme][Dev]-[Remote]"}),
	} {
		next, _ := m.Update(watchEventMsg{event: ev})
		m = next.(watchModel)
	}

	if m.status != model.StatusRunning {
		t.Fatalf("status mismatch: got %q", m.status)
	}
	if m.percent() != 0.5 {
		t.Fatalf("percent mismatch: got %v want 0.5", m.percent())
	}
	if len(m.ticker) != 1 || m.ticker[0].Company != "Acme" {
		t.Fatalf("ticker mismatch: got %+v", m.ticker)
	}
	view := m.View()
	if !strings.Contains(view, "2/4") || !strings.Contains(view, "[Acme][Dev]-[Remote]") {
		t.Fatalf("view missing progress or log line:\n%s", view)
	}
}

func TestWatchModelKeepsRecentLogs(t *testing.T) {
	m := newWatchModel(nil)
	for i := 0; i < watchLogLines+3; i++ {
		m = m.apply(events.LogEvent(model.LogEntry{Message: string(rune('a' + i))}))
	}
	if len(m.logs) != watchLogLines {
		t.Fatalf("log window mismatch: got %d want %d", len(m.logs), watchLogLines)
	}
	if m.logs[0].Message != "d" {
		t.Fatalf("oldest kept line mismatch: got %q want %q", m.logs[0].Message, "d")
	}
}

func TestWatchModelCancelKey(t *testing.T) {
	cancelled := 0
	m := newWatchModel(func() { cancelled++ })

	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'c'}})
	if cmd != nil {
		t.Fatal("cancel should not quit the view")
	}
	if cancelled != 1 {
		t.Fatalf("cancel count mismatch: got %d want 1", cancelled)
	}
	m = next.(watchModel)
	if m.quitting {
		t.Fatal("cancel should not mark quitting")
	}
}

func TestWatchModelQuitWaitsForRun(t *testing.T) {
	cancelled := 0
	m := newWatchModel(func() { cancelled++ })

	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}})
	if cmd != nil {
		t.Fatal("quit while running should wait for the run to end")
	}
	m = next.(watchModel)
	if !m.quitting || cancelled != 1 {
		t.Fatalf("expected quitting with cancel: quitting=%v cancelled=%d", m.quitting, cancelled)
	}

	_, cmd = m.Update(watchDoneMsg{})
	if cmd == nil {
		t.Fatal("expected quit once the run ended")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Fatal("expected tea.QuitMsg")
	}
}

func TestWatchModelStaysOpenAfterRun(t *testing.T) {
	m := newWatchModel(nil)
	next, cmd := m.Update(watchDoneMsg{})
	if cmd != nil {
		t.Fatal("finished run should keep the view open until q")
	}
	m = next.(watchModel)
	_, cmd = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}})
	if cmd == nil {
		t.Fatal("expected quit after run ended")
	}
}

func TestConsoleSinkPrintsLogsAndStatus(t *testing.T) {
	var buf bytes.Buffer
	sink := consoleSink{w: &buf}
	ctx := context.Background()
	sink.Emit(ctx, events.StatusEvent(model.StatusRunning))
	sink.Emit(ctx, events.LogEvent(model.LogEntry{Level: model.LevelInfo, Message: "[A][B]-[C]"}))
	sink.Emit(ctx, events.ProgressEvent(1, 1))
	sink.Emit(ctx, events.LogEvent(model.LogEntry{Level: model.LevelError, Message: "Scrape failed: boom"}))

	want := "status: running\n[A][B]-[C]\nerror: Scrape failed: boom\n"
	if buf.String() != want {
		t.Fatalf("console output mismatch:\ngot  %q\nwant %q", buf.String(), want)
	}
}
