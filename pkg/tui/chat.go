// Package tui is the full-screen chat front end. Thinking items are shown
// while the agent works; Ctrl+C stops the question in flight and a second
// Ctrl+C leaves.
package tui

import (
	"context"
	"strings"
	"sync"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/shhayash-work/copilot-qna/pkg/a2a"
)

var (
	userStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("39")).Bold(true)
	agentStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("212")).Bold(true)
	thinkingStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("244")).Italic(true)
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	inputStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	dimStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
)

const (
	RoleUser     = "user"
	RoleAgent    = "agent"
	RoleThinking = "thinking"
	RoleInfo     = "info"
	RoleError    = "error"
)

type Message struct {
	Role    string
	Content string
}

// Reply is what a SendFunc produces for one line of input. Role is RoleAgent
// for answers and RoleInfo for command feedback.
type Reply struct {
	Role string
	Text string
}

// SendFunc handles one line of input. progress may be called from another
// goroutine while the call is running.
type SendFunc func(ctx context.Context, input string, progress func(a2a.ThinkingItem)) (Reply, error)

type Model struct {
	title    string
	messages []Message
	input    string
	sendFn   SendFunc
	relay    *relay
	width    int
	height   int
	waiting  bool
	cancel   context.CancelFunc
}

// relay forwards messages produced outside Update into the running program.
type relay struct {
	mu sync.Mutex
	p  *tea.Program
}

func (r *relay) send(msg tea.Msg) {
	r.mu.Lock()
	p := r.p
	r.mu.Unlock()
	if p != nil {
		p.Send(msg)
	}
}

func NewModel(title string, sendFn SendFunc) Model {
	return Model{
		title:  title,
		sendFn: sendFn,
		relay:  &relay{},
	}
}

type responseMsg struct {
	reply Reply
	err   error
}

type thinkingMsg struct {
	item a2a.ThinkingItem
}

type noticeMsg struct {
	text string
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			if m.waiting && m.cancel != nil {
				m.cancel()
				m.cancel = nil
				m.messages = append(m.messages, Message{Role: RoleInfo, Content: "stopping..."})
				return m, nil
			}
			return m, tea.Quit
		case "esc":
			return m, tea.Quit
		case "enter":
			if m.waiting || strings.TrimSpace(m.input) == "" {
				return m, nil
			}
			return m.submitInput()
		case "backspace":
			if r := []rune(m.input); len(r) > 0 {
				m.input = string(r[:len(r)-1])
			}
		default:
			if msg.Type == tea.KeyRunes || msg.Type == tea.KeySpace {
				m.input += string(msg.Runes)
				if msg.Type == tea.KeySpace && len(msg.Runes) == 0 {
					m.input += " "
				}
			}
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case thinkingMsg:
		m.messages = append(m.messages, Message{Role: RoleThinking, Content: msg.item.Text})

	case noticeMsg:
		m.messages = append(m.messages, Message{Role: RoleInfo, Content: msg.text})

	case responseMsg:
		m.waiting = false
		if m.cancel != nil {
			m.cancel()
			m.cancel = nil
		}
		switch {
		case msg.err != nil:
			m.messages = append(m.messages, Message{Role: RoleError, Content: msg.err.Error()})
		case msg.reply.Role == RoleInfo:
			m.messages = append(m.messages, Message{Role: RoleInfo, Content: msg.reply.Text})
		default:
			m.messages = append(m.messages, Message{Role: RoleAgent, Content: msg.reply.Text})
		}
	}

	return m, nil
}

func (m Model) submitInput() (tea.Model, tea.Cmd) {
	text := strings.TrimSpace(m.input)
	if text == "/quit" || text == "/exit" {
		return m, tea.Quit
	}

	m.messages = append(m.messages, Message{Role: RoleUser, Content: text})
	m.input = ""
	m.waiting = true

	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel

	sendFn := m.sendFn
	relay := m.relay
	return m, func() tea.Msg {
		reply, err := sendFn(ctx, text, func(item a2a.ThinkingItem) {
			relay.send(thinkingMsg{item: item})
		})
		return responseMsg{reply: reply, err: err}
	}
}

func (m Model) View() string {
	if m.width == 0 {
		return "Loading..."
	}

	var b strings.Builder

	b.WriteString(dimStyle.Render(m.title + " (Ctrl+C stops a question, Esc quits)"))
	b.WriteString("\n")
	b.WriteString(dimStyle.Render(strings.Repeat("─", m.width)))
	b.WriteString("\n\n")

	for _, msg := range m.visible() {
		switch msg.Role {
		case RoleUser:
			b.WriteString(userStyle.Render("You: "))
			b.WriteString(msg.Content)
		case RoleAgent:
			b.WriteString(agentStyle.Render("Agent: "))
			b.WriteString(msg.Content)
		case RoleThinking:
			b.WriteString(thinkingStyle.Render("  · " + msg.Content))
		case RoleInfo:
			b.WriteString(dimStyle.Render(msg.Content))
		case RoleError:
			b.WriteString(errorStyle.Render("Error: "))
			b.WriteString(msg.Content)
		}
		if msg.Role == RoleThinking {
			b.WriteString("\n")
		} else {
			b.WriteString("\n\n")
		}
	}

	if m.waiting {
		b.WriteString(dimStyle.Render("Waiting for the agent..."))
		b.WriteString("\n\n")
	}

	b.WriteString(dimStyle.Render(strings.Repeat("─", m.width)))
	b.WriteString("\n")
	prompt := inputStyle.Render("> " + m.input)
	if !m.waiting {
		prompt += dimStyle.Render("█")
	}
	b.WriteString(prompt)

	return b.String()
}

// visible keeps the tail of the transcript that fits the window.
func (m Model) visible() []Message {
	if m.height <= 0 {
		return m.messages
	}
	budget := m.height - 6
	if budget < 1 {
		budget = 1
	}
	start := len(m.messages)
	lines := 0
	for start > 0 {
		msg := m.messages[start-1]
		n := strings.Count(msg.Content, "\n") + 1
		if msg.Role != RoleThinking {
			n++
		}
		if lines+n > budget && start < len(m.messages) {
			break
		}
		lines += n
		start--
	}
	return m.messages[start:]
}

type Chat struct {
	program *tea.Program
	relay   *relay
}

func New(title string, sendFn SendFunc) *Chat {
	model := NewModel(title, sendFn)
	p := tea.NewProgram(model, tea.WithAltScreen())
	model.relay.mu.Lock()
	model.relay.p = p
	model.relay.mu.Unlock()
	return &Chat{program: p, relay: model.relay}
}

// Notify shows text as an informational line. Safe from any goroutine.
func (c *Chat) Notify(text string) {
	c.relay.send(noticeMsg{text: text})
}

func (c *Chat) Run() error {
	_, err := c.program.Run()
	return err
}
