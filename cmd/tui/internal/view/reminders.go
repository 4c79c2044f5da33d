package view

import (
	"fmt"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/MrJamesThe3rd/khata/internal/customer"
	"github.com/MrJamesThe3rd/khata/internal/reminder"
)

type RemindersModel struct {
	CommonModel
	reminders *reminder.Service
	customers *customer.Service

	table   table.Model
	rows    []*reminder.Reminder
	names   map[string]string
	loading bool
	err     error
	status  string
}

func NewRemindersModel(reminders *reminder.Service, customers *customer.Service) RemindersModel {
	return RemindersModel{
		reminders: reminders,
		customers: customers,
		table: newTable([]table.Column{
			{Title: "Customer", Width: 20},
			{Title: "Message", Width: 44},
			{Title: "Due", Width: 16},
		}),
		loading: true,
	}
}

func (m RemindersModel) Title() string { return "Reminders" }

func (m RemindersModel) ShortHelp() string {
	return "Esc: back | c: mark collected | r: refresh"
}

func (m RemindersModel) Init() tea.Cmd {
	return m.loadCmd()
}

func (m RemindersModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case loadRemindersMsg:
		m.loading = false
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}

		m.rows = msg.reminders
		m.names = msg.names
		m.refreshTable()

		return m, nil

	case completeResultMsg:
		if msg.err != nil {
			m.status = errorStyle.Render(fmt.Sprintf("Error: %v", msg.err))
		} else {
			m.status = successStyle.Render("Reminder closed.")
		}

		return m, m.loadCmd()

	case tea.KeyMsg:
		switch msg.String() {
		case "esc":
			return m, Back
		case "r":
			m.loading = true
			return m, m.loadCmd()
		case "c":
			return m, m.completeCmd()
		}

	case tea.WindowSizeMsg:
		m.table.SetHeight(max(5, msg.Height-10))
		return m, nil
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)

	return m, cmd
}

func (m RemindersModel) View() string {
	if m.loading {
		return lipgloss.NewStyle().Padding(2).Render("Loading reminders...")
	}

	if m.err != nil {
		return lipgloss.NewStyle().Padding(2).Render(errorStyle.Render(fmt.Sprintf("Error: %v", m.err)))
	}

	content := tableFrame(m.table)
	if len(m.rows) == 0 {
		content = "No pending reminders."
	}

	if m.status != "" {
		content = m.status + "\n" + content
	}

	return lipgloss.NewStyle().Padding(1).Render(content + "\n\n" + faintStyle.Render(m.ShortHelp()))
}

func (m *RemindersModel) refreshTable() {
	rows := make([]table.Row, 0, len(m.rows))

	for _, r := range m.rows {
		rows = append(rows, table.Row{
			m.names[r.CustomerID.String()],
			r.Message,
			humanize.Time(r.NextDue),
		})
	}

	m.table.SetRows(rows)
}

// Messages

type loadRemindersMsg struct {
	reminders []*reminder.Reminder
	names     map[string]string
	err       error
}

func (m RemindersModel) loadCmd() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := DbCtx()
		defer cancel()

		status := reminder.StatusPending

		rs, err := m.reminders.List(ctx, reminder.ListFilter{Status: &status})
		if err != nil {
			return loadRemindersMsg{err: err}
		}

		names := make(map[string]string, len(rs))

		for _, r := range rs {
			key := r.CustomerID.String()
			if _, ok := names[key]; ok {
				continue
			}

			names[key] = key[:8]
			if c, err := m.customers.Get(ctx, r.CustomerID); err == nil {
				names[key] = c.Name
			}
		}

		return loadRemindersMsg{reminders: rs, names: names}
	}
}

type completeResultMsg struct {
	err error
}

func (m RemindersModel) completeCmd() tea.Cmd {
	idx := m.table.Cursor()
	if idx < 0 || idx >= len(m.rows) {
		return nil
	}

	id := m.rows[idx].ID

	return func() tea.Msg {
		ctx, cancel := DbCtx()
		defer cancel()

		return completeResultMsg{err: m.reminders.Complete(ctx, id)}
	}
}
