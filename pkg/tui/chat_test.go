package tui

import (
	"context"
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/shhayash-work/copilot-qna/pkg/a2a"
)

func typeText(t *testing.T, m tea.Model, s string) tea.Model {
	t.Helper()
	for _, r := range s {
		m, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}
	return m
}

func TestModelAsk(t *testing.T) {
	var got string
	send := func(ctx context.Context, input string, progress func(a2a.ThinkingItem)) (Reply, error) {
		got = input
		progress(a2a.ThinkingItem{Text: "looking", Type: a2a.ThinkingStatus})
		return Reply{Role: RoleAgent, Text: "echo: " + input}, nil
	}

	var m tea.Model = NewModel("qna", send)
	m, _ = m.Update(tea.WindowSizeMsg{Width: 60, Height: 30})
	m = typeText(t, m, "hix")
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyBackspace})

	m, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if cmd == nil {
		t.Fatal("enter returned no command")
	}
	if !m.(Model).waiting {
		t.Error("model not waiting after submit")
	}

	// With no program attached, progress is dropped; feed it by hand.
	msg := cmd()
	m, _ = m.Update(thinkingMsg{item: a2a.ThinkingItem{Text: "looking"}})
	m, _ = m.Update(msg)

	if got != "hi" {
		t.Errorf("sent %q, want %q", got, "hi")
	}

	mm := m.(Model)
	if mm.waiting {
		t.Error("still waiting after response")
	}
	roles := make([]string, len(mm.messages))
	for i, msg := range mm.messages {
		roles[i] = msg.Role
	}
	if strings.Join(roles, ",") != "user,thinking,agent" {
		t.Errorf("roles = %v", roles)
	}

	view := mm.View()
	for _, want := range []string{"hi", "looking", "echo: hi"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q", want)
		}
	}
}

func TestModelIgnoresBlankAndBusyInput(t *testing.T) {
	calls := 0
	send := func(context.Context, string, func(a2a.ThinkingItem)) (Reply, error) {
		calls++
		return Reply{}, nil
	}

	var m tea.Model = NewModel("qna", send)
	m = typeText(t, m, "   ")
	if _, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter}); cmd != nil {
		t.Error("blank input submitted")
	}

	m = typeText(t, NewModel("qna", send), "one")
	m, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if cmd == nil {
		t.Fatal("first question not submitted")
	}
	m = typeText(t, m, "two")
	if _, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter}); cmd != nil {
		t.Error("second question submitted while waiting")
	}
	if calls != 0 {
		t.Errorf("send called %d times before the command ran", calls)
	}
}

func TestModelCtrlCCancelsInFlight(t *testing.T) {
	send := func(ctx context.Context, _ string, _ func(a2a.ThinkingItem)) (Reply, error) {
		<-ctx.Done()
		return Reply{}, ctx.Err()
	}

	var m tea.Model = NewModel("qna", send)
	m = typeText(t, m, "slow")
	m, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})

	m, quit := m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	if quit != nil {
		t.Fatal("ctrl+c quit while a question was in flight")
	}

	// The canceled context unblocks the send.
	m, _ = m.Update(cmd())
	mm := m.(Model)
	last := mm.messages[len(mm.messages)-1]
	if last.Role != RoleError || !strings.Contains(last.Content, context.Canceled.Error()) {
		t.Errorf("last message = %+v", last)
	}

	if _, quit := m.Update(tea.KeyMsg{Type: tea.KeyCtrlC}); quit == nil {
		t.Error("ctrl+c while idle did not quit")
	}
}

func TestModelReplies(t *testing.T) {
	var m tea.Model = NewModel("qna", nil)
	m, _ = m.Update(responseMsg{reply: Reply{Role: RoleInfo, Text: "streaming mode: on"}})
	m, _ = m.Update(responseMsg{err: errors.New("agent unreachable")})
	m, _ = m.Update(noticeMsg{text: "config reloaded"})

	mm := m.(Model)
	want := []Message{
		{Role: RoleInfo, Content: "streaming mode: on"},
		{Role: RoleError, Content: "agent unreachable"},
		{Role: RoleInfo, Content: "config reloaded"},
	}
	if len(mm.messages) != len(want) {
		t.Fatalf("messages = %+v", mm.messages)
	}
	for i := range want {
		if mm.messages[i] != want[i] {
			t.Errorf("messages[%d] = %+v, want %+v", i, mm.messages[i], want[i])
		}
	}
}

func TestModelQuitCommand(t *testing.T) {
	var m tea.Model = NewModel("qna", nil)
	m = typeText(t, m, "/quit")
	if _, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter}); cmd == nil {
		t.Error("/quit returned no command")
	}
}

func TestVisibleKeepsTail(t *testing.T) {
	m := NewModel("qna", nil)
	m.height = 10
	for i := 0; i < 20; i++ {
		m.messages = append(m.messages, Message{Role: RoleUser, Content: "q"})
	}
	got := m.visible()
	if len(got) == 0 || len(got) >= 20 {
		t.Errorf("visible() returned %d messages", len(got))
	}
	if &got[len(got)-1] != &m.messages[19] {
		t.Error("visible() does not end at the newest message")
	}
}
