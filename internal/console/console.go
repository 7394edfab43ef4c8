// Package console implements a local Bubble Tea chat against the bot, acting
// as one more chat endpoint with the handle "console".
package console

import (
	"context"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/zarlcorp/core/pkg/zstyle"
)

// Handle is the session handle used by the console.
const Handle = "console"

const maxTranscript = 200

// Dispatcher answers one inbound message.
type Dispatcher interface {
	Dispatch(ctx context.Context, handle, text string) string
}

type speaker int

const (
	fromUser speaker = iota
	fromBot
	fromSchedule
)

type entry struct {
	from speaker
	text string
}

// replyMsg carries the bot's answer to a submitted line.
type replyMsg struct {
	text string
}

// PushMsg delivers a message the bot initiated, such as a scheduled
// reminder.
type PushMsg struct {
	Text string
}

// Model is the console Bubble Tea model.
type Model struct {
	ctx        context.Context
	dispatcher Dispatcher
	version    string

	input      textinput.Model
	transcript []entry
	pending    bool

	width  int
	height int
}

// New creates a console model. ctx bounds every dispatched command.
func New(ctx context.Context, d Dispatcher, version string) Model {
	ti := textinput.New()
	ti.Placeholder = "/start"
	ti.Prompt = "> "
	ti.Focus()
	ti.CharLimit = 256
	ti.Width = 60

	return Model{
		ctx:        ctx,
		dispatcher: d,
		version:    version,
		input:      ti,
		width:      80,
	}
}

func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.input.Width = max(msg.Width-6, 10)
		return m, nil

	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyEsc {
			return m, tea.Quit
		}
		if key.Matches(msg, zstyle.KeyEnter) {
			return m.submit()
		}

	case replyMsg:
		m.pending = false
		if msg.text != "" {
			m.append(fromBot, msg.text)
		}
		return m, nil

	case PushMsg:
		m.append(fromSchedule, msg.Text)
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) submit() (tea.Model, tea.Cmd) {
	text := strings.TrimSpace(m.input.Value())
	if text == "" || m.pending {
		return m, nil
	}

	m.input.SetValue("")
	m.append(fromUser, text)
	m.pending = true

	ctx, d := m.ctx, m.dispatcher
	return m, func() tea.Msg {
		return replyMsg{text: d.Dispatch(ctx, Handle, text)}
	}
}

func (m *Model) append(from speaker, text string) {
	m.transcript = append(m.transcript, entry{from: from, text: text})
	if len(m.transcript) > maxTranscript {
		m.transcript = m.transcript[len(m.transcript)-maxTranscript:]
	}
}

func (m Model) View() string {
	header := zstyle.RenderHeader("zbday", "console "+m.version, zstyle.ZburnAccent)
	sep := zstyle.RenderSeparator(m.width)
	footer := zstyle.RenderFooter([]zstyle.HelpPair{
		{Key: "enter", Desc: "send"},
		{Key: "esc", Desc: "quit"},
	})

	lines := m.transcriptLines()
	if m.height > 0 {
		// header, separator, input and footer take roughly eight rows
		if avail := m.height - 8; avail > 0 && len(lines) > avail {
			lines = lines[len(lines)-avail:]
		}
	}

	var b strings.Builder
	b.WriteString("\n" + header + "\n" + sep + "\n")
	if len(lines) == 0 {
		b.WriteString("  " + zstyle.MutedText.Render("type /start to sign in with a code") + "\n")
	}
	for _, l := range lines {
		b.WriteString(l + "\n")
	}
	if m.pending {
		b.WriteString("  " + zstyle.MutedText.Render("…") + "\n")
	}
	b.WriteString("\n  " + m.input.View() + "\n")
	b.WriteString(footer + "\n")
	return b.String()
}

func (m Model) transcriptLines() []string {
	indent := lipgloss.NewStyle().MarginLeft(2)
	wrap := lipgloss.NewStyle().Width(max(m.width-6, 20))

	var out []string
	for _, e := range m.transcript {
		var block string
		switch e.from {
		case fromUser:
			block = zstyle.Highlight.Render("> " + e.text)
		case fromBot:
			block = wrap.Render(e.text)
		case fromSchedule:
			block = zstyle.StatusWarn.Render("⏰ ") + wrap.Render(e.text)
		}
		out = append(out, strings.Split(indent.Render(block), "\n")...)
	}
	return out
}

// Run starts the console program. attach registers a delivery hook for
// bot-initiated messages and returns its detach func.
func Run(ctx context.Context, d Dispatcher, version string, attach func(handle string, fn func(string)) func()) error {
	p := tea.NewProgram(New(ctx, d, version), tea.WithContext(ctx))

	detach := attach(Handle, func(text string) {
		p.Send(PushMsg{Text: text})
	})
	defer detach()

	_, err := p.Run()
	if err != nil && ctx.Err() != nil {
		return nil
	}
	return err
}
