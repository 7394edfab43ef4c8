package console

import (
	"context"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
)

type fakeDispatcher struct {
	calls []string
	reply string
}

func (f *fakeDispatcher) Dispatch(_ context.Context, handle, text string) string {
	f.calls = append(f.calls, handle+"|"+text)
	return f.reply
}

func typeText(m Model, s string) Model {
	for _, r := range s {
		updated, _ := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
		m = updated.(Model)
	}
	return m
}

func pressEnter(t *testing.T, m Model) (Model, tea.Cmd) {
	t.Helper()
	updated, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	return updated.(Model), cmd
}

func TestSubmitDispatchesAsConsole(t *testing.T) {
	d := &fakeDispatcher{reply: "🔐 Send your code"}
	m := New(context.Background(), d, "dev")

	m = typeText(m, "/start")
	m, cmd := pressEnter(t, m)

	if cmd == nil {
		t.Fatal("enter should produce a dispatch command")
	}
	if m.input.Value() != "" {
		t.Errorf("input should be cleared, got %q", m.input.Value())
	}
	if !m.pending {
		t.Error("model should wait for the reply")
	}

	msg := cmd()
	if len(d.calls) != 1 || d.calls[0] != "console|/start" {
		t.Fatalf("dispatch calls: got %v", d.calls)
	}

	updated, _ := m.Update(msg)
	m = updated.(Model)

	if m.pending {
		t.Error("reply should clear pending")
	}
	view := m.View()
	if !strings.Contains(view, "/start") || !strings.Contains(view, "Send your code") {
		t.Errorf("view missing transcript:\n%s", view)
	}
}

func TestEmptySubmitIgnored(t *testing.T) {
	d := &fakeDispatcher{}
	m := New(context.Background(), d, "dev")

	_, cmd := pressEnter(t, m)
	if cmd != nil {
		t.Fatal("empty input should not dispatch")
	}
}

func TestEmptyReplyNotShown(t *testing.T) {
	m := New(context.Background(), &fakeDispatcher{}, "dev")

	updated, _ := m.Update(replyMsg{})
	m = updated.(Model)
	if len(m.transcript) != 0 {
		t.Fatalf("transcript: got %v", m.transcript)
	}
}

func TestPushShowsReminder(t *testing.T) {
	m := New(context.Background(), &fakeDispatcher{}, "dev")

	updated, _ := m.Update(PushMsg{Text: "Today is Mom's birthday"})
	m = updated.(Model)

	if len(m.transcript) != 1 || m.transcript[0].from != fromSchedule {
		t.Fatalf("transcript: got %v", m.transcript)
	}
	if !strings.Contains(m.View(), "Mom's birthday") {
		t.Error("view should show pushed reminder")
	}
}

func TestQKeyReachesInput(t *testing.T) {
	m := New(context.Background(), &fakeDispatcher{}, "dev")

	updated, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}})
	m = updated.(Model)

	if m.input.Value() != "q" {
		t.Fatalf("input: got %q, want %q", m.input.Value(), "q")
	}
	if cmd != nil {
		if _, ok := cmd().(tea.QuitMsg); ok {
			t.Fatal("'q' must not quit the console")
		}
	}
}

func TestCtrlCQuits(t *testing.T) {
	m := New(context.Background(), &fakeDispatcher{}, "dev")

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	if cmd == nil {
		t.Fatal("ctrl+c should produce a quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Fatal("ctrl+c should produce QuitMsg")
	}
}

func TestTranscriptBounded(t *testing.T) {
	m := New(context.Background(), &fakeDispatcher{}, "dev")

	for range maxTranscript + 10 {
		updated, _ := m.Update(PushMsg{Text: "x"})
		m = updated.(Model)
	}
	if len(m.transcript) != maxTranscript {
		t.Fatalf("transcript len: got %d, want %d", len(m.transcript), maxTranscript)
	}
}

func TestViewFitsHeight(t *testing.T) {
	m := New(context.Background(), &fakeDispatcher{}, "dev")
	updated, _ := m.Update(tea.WindowSizeMsg{Width: 80, Height: 20})
	m = updated.(Model)

	for range 50 {
		updated, _ = m.Update(PushMsg{Text: "line"})
		m = updated.(Model)
	}

	if got := len(m.transcriptLines()); got <= 12 {
		t.Fatalf("expected long transcript, got %d lines", got)
	}
	if n := strings.Count(m.View(), "line"); n > 12 {
		t.Errorf("view should be trimmed to the window, got %d reminder lines", n)
	}
}
