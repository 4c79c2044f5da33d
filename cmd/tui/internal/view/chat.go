package view

import (
	"context"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/khata/internal/workflow"
)

// The engine may call out to the language model.
const chatTimeout = 20 * time.Second

type Engine interface {
	Handle(ctx context.Context, userKey, text string) workflow.Response
	Confirm(ctx context.Context, userKey string, confirmed bool, actionID *uuid.UUID) workflow.Response
}

type chatState int

const (
	chatStateInput chatState = iota
	chatStateConfirm
)

type chatLine struct {
	fromUser bool
	text     string
}

type ChatModel struct {
	CommonModel
	engine Engine
	user   string

	state      chatState
	input      textinput.Model
	transcript []chatLine
	busy       bool

	form      *huh.Form
	confirmed *bool
	actionID  *uuid.UUID
}

func NewChatModel(engine Engine, user string) ChatModel {
	in := textinput.New()
	in.Placeholder = `e.g. "2 rice udhaar Asha" or "stock sugar"`
	in.CharLimit = 500
	in.Width = 60
	in.Focus()

	return ChatModel{
		engine: engine,
		user:   user,
		input:  in,
	}
}

func (m ChatModel) Title() string { return "Chat" }

func (m ChatModel) ShortHelp() string {
	if m.state == chatStateConfirm {
		return "←/→: choose | Enter: submit | Esc: type instead"
	}

	return "Enter: send | Esc: back"
}

func (m ChatModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m ChatModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case chatReplyMsg:
		m.busy = false
		m.transcript = append(m.transcript, chatLine{text: msg.resp.Reply})

		if !msg.resp.ShowButtons {
			m.actionID = nil
			return m, nil
		}

		return m.enterConfirm(msg.resp.ActionID)

	case tea.WindowSizeMsg:
		m.Width, m.Height = msg.Width, msg.Height
		m.input.Width = max(20, msg.Width-10)

		return m, nil
	}

	if m.state == chatStateConfirm {
		return m.updateConfirm(msg)
	}

	if keyMsg, ok := msg.(tea.KeyMsg); ok && !m.busy {
		switch keyMsg.Type {
		case tea.KeyEsc:
			return m, Back
		case tea.KeyEnter:
			text := strings.TrimSpace(m.input.Value())
			if text == "" {
				return m, nil
			}

			m.input.Reset()
			m.transcript = append(m.transcript, chatLine{fromUser: true, text: text})
			m.busy = true

			return m, m.sendCmd(text)
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)

	return m, cmd
}

func (m ChatModel) enterConfirm(actionID *uuid.UUID) (tea.Model, tea.Cmd) {
	m.actionID = actionID
	m.confirmed = new(bool)
	*m.confirmed = true

	m.form = huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title("Record this entry?").
				Affirmative("✅ Confirm").
				Negative("❌ Cancel").
				Value(m.confirmed),
		),
	).WithWidth(40).WithShowHelp(false)

	m.state = chatStateConfirm
	m.input.Blur()

	return m, m.form.Init()
}

func (m ChatModel) updateConfirm(msg tea.Msg) (tea.Model, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok && keyMsg.Type == tea.KeyEsc {
		m.state = chatStateInput
		m.form = nil
		m.input.Focus()

		return m, nil
	}

	form, cmd := m.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		m.form = f
	}

	if m.form.State != huh.StateCompleted {
		return m, cmd
	}

	label := "❌ Cancel"
	if *m.confirmed {
		label = "✅ Confirm"
	}

	m.transcript = append(m.transcript, chatLine{fromUser: true, text: label})
	m.state = chatStateInput
	m.form = nil
	m.busy = true
	m.input.Focus()

	return m, m.confirmCmd(*m.confirmed, m.actionID)
}

func (m ChatModel) View() string {
	var b strings.Builder

	for _, line := range m.visibleLines() {
		if line.fromUser {
			b.WriteString(accentStyle.Render("you › ") + line.text + "\n")
			continue
		}

		b.WriteString(lipgloss.NewStyle().PaddingLeft(2).Render(line.text) + "\n")
	}

	if m.busy {
		b.WriteString(faintStyle.Render("  …") + "\n")
	}

	b.WriteString("\n")

	if m.state == chatStateConfirm && m.form != nil {
		b.WriteString(panelStyle.Render(m.form.View()))
	} else {
		b.WriteString(m.input.View())
	}

	b.WriteString("\n\n" + faintStyle.Render(m.ShortHelp()))

	return lipgloss.NewStyle().Padding(1).Render(b.String())
}

// visibleLines keeps the transcript tail that fits the window.
func (m ChatModel) visibleLines() []chatLine {
	limit := 12
	if m.Height > 0 {
		limit = max(4, (m.Height-10)/2)
	}

	if len(m.transcript) <= limit {
		return m.transcript
	}

	return m.transcript[len(m.transcript)-limit:]
}

// Messages

type chatReplyMsg struct {
	resp workflow.Response
}

func (m ChatModel) sendCmd(text string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), chatTimeout)
		defer cancel()

		return chatReplyMsg{resp: m.engine.Handle(ctx, m.user, text)}
	}
}

func (m ChatModel) confirmCmd(confirmed bool, actionID *uuid.UUID) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), chatTimeout)
		defer cancel()

		return chatReplyMsg{resp: m.engine.Confirm(ctx, m.user, confirmed, actionID)}
	}
}
