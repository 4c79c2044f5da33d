package view

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/khata/internal/customer"
	"github.com/MrJamesThe3rd/khata/internal/export"
	"github.com/MrJamesThe3rd/khata/internal/ledger"
)

const exportTimeout = time.Minute

type customersState int

const (
	customersStateBrowse customersState = iota
	customersStatePath
	customersStateExporting
)

type CustomersModel struct {
	CommonModel
	customers *customer.Service
	ledger    *ledger.Service
	export    *export.Service

	state    customersState
	table    table.Model
	rows     []*customer.Customer
	balances map[uuid.UUID]ledger.Balance
	form     *huh.Form
	path     *string
	spinner  spinner.Model

	loading bool
	err     error
	status  string
}

func NewCustomersModel(customers *customer.Service, l *ledger.Service, exp *export.Service) CustomersModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = accentStyle

	return CustomersModel{
		customers: customers,
		ledger:    l,
		export:    exp,
		table: newTable([]table.Column{
			{Title: "Customer", Width: 24},
			{Title: "Phone", Width: 16},
			{Title: "Credit", Width: 12},
			{Title: "Paid", Width: 12},
			{Title: "Outstanding", Width: 12},
		}),
		spinner: s,
		loading: true,
	}
}

func (m CustomersModel) Title() string { return "Customers" }

func (m CustomersModel) ShortHelp() string {
	switch m.state {
	case customersStatePath:
		return "Enter: export | Esc: cancel"
	case customersStateExporting:
		return "Exporting..."
	}

	return "Esc: back | x: export statement | r: refresh"
}

func (m CustomersModel) Init() tea.Cmd {
	return m.loadCmd()
}

func (m CustomersModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case loadCustomersMsg:
		m.loading = false
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}

		m.rows = msg.customers
		m.balances = msg.balances
		m.refreshTable()

		return m, nil

	case statementResultMsg:
		m.state = customersStateBrowse
		m.table.Focus()

		if msg.err != nil {
			m.status = errorStyle.Render(fmt.Sprintf("Error: %v", msg.err))
		} else {
			m.status = successStyle.Render("Statement written to " + msg.path)
		}

		return m, nil

	case tea.WindowSizeMsg:
		m.table.SetHeight(max(5, msg.Height-10))
		return m, nil
	}

	switch m.state {
	case customersStatePath:
		return m.updatePath(msg)
	case customersStateExporting:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)

		return m, cmd
	}

	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		switch keyMsg.String() {
		case "esc":
			return m, Back
		case "r":
			m.loading = true
			return m, m.loadCmd()
		case "x":
			return m.enterPath()
		}
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)

	return m, cmd
}

func (m CustomersModel) enterPath() (tea.Model, tea.Cmd) {
	if m.table.Cursor() < 0 || m.table.Cursor() >= len(m.rows) {
		return m, nil
	}

	m.path = new(string)
	*m.path = "./statements"

	m.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Key("path").
				Title("Output Directory").
				Description("Directory will be created if it doesn't exist").
				Value(m.path),
		),
	).WithWidth(50).WithShowHelp(false)

	m.state = customersStatePath
	m.table.Blur()

	return m, m.form.Init()
}

func (m CustomersModel) updatePath(msg tea.Msg) (tea.Model, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok && keyMsg.Type == tea.KeyEsc {
		m.state = customersStateBrowse
		m.form = nil
		m.table.Focus()

		return m, nil
	}

	form, cmd := m.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		m.form = f
	}

	if m.form.State != huh.StateCompleted {
		return m, cmd
	}

	m.state = customersStateExporting
	m.status = ""

	return m, tea.Batch(m.spinner.Tick, m.statementCmd(m.rows[m.table.Cursor()].ID, *m.path))
}

func (m CustomersModel) View() string {
	if m.loading {
		return lipgloss.NewStyle().Padding(2).Render("Loading customers...")
	}

	if m.err != nil {
		return lipgloss.NewStyle().Padding(2).Render(errorStyle.Render(fmt.Sprintf("Error: %v", m.err)))
	}

	content := tableFrame(m.table)

	switch m.state {
	case customersStatePath:
		content = lipgloss.JoinHorizontal(lipgloss.Top, content, panelStyle.Width(54).Render(m.form.View()))
	case customersStateExporting:
		content += "\n" + m.spinner.View() + " Writing statement..."
	}

	if m.status != "" {
		content = m.status + "\n" + content
	}

	return lipgloss.NewStyle().Padding(1).Render(content + "\n\n" + faintStyle.Render(m.ShortHelp()))
}

func (m *CustomersModel) refreshTable() {
	rows := make([]table.Row, 0, len(m.rows))

	for _, c := range m.rows {
		phone := ""
		if c.Phone != nil {
			phone = *c.Phone
		}

		b := m.balances[c.ID]

		rows = append(rows, table.Row{
			c.Name,
			phone,
			FormatMoney(b.Credit),
			FormatMoney(b.Payments),
			FormatMoney(b.Outstanding()),
		})
	}

	m.table.SetRows(rows)
}

// Messages

type loadCustomersMsg struct {
	customers []*customer.Customer
	balances  map[uuid.UUID]ledger.Balance
	err       error
}

func (m CustomersModel) loadCmd() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := DbCtx()
		defer cancel()

		customers, err := m.customers.List(ctx)
		if err != nil {
			return loadCustomersMsg{err: err}
		}

		balances, err := m.ledger.Balances(ctx)

		return loadCustomersMsg{customers: customers, balances: balances, err: err}
	}
}

type statementResultMsg struct {
	path string
	err  error
}

func (m CustomersModel) statementCmd(customerID uuid.UUID, dir string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), exportTimeout)
		defer cancel()

		if err := os.MkdirAll(dir, 0o755); err != nil {
			return statementResultMsg{err: fmt.Errorf("creating output directory: %w", err)}
		}

		tmp, err := os.CreateTemp(dir, ".statement-*.xlsx")
		if err != nil {
			return statementResultMsg{err: err}
		}
		defer os.Remove(tmp.Name())

		c, err := m.export.Statement(ctx, customerID, tmp)
		if cerr := tmp.Close(); err == nil {
			err = cerr
		}

		if err != nil {
			return statementResultMsg{err: err}
		}

		path := filepath.Join(dir, m.export.Filename(c))
		if err := os.Rename(tmp.Name(), path); err != nil {
			return statementResultMsg{err: err}
		}

		return statementResultMsg{path: path}
	}
}
