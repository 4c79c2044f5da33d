package view

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/MrJamesThe3rd/khata/internal/inventory"
)

type stockState int

const (
	stockStateBrowse stockState = iota
	stockStateAdjust
)

type StockModel struct {
	CommonModel
	catalog *inventory.Service

	state   stockState
	table   table.Model
	items   []*inventory.Item
	lowOnly bool
	form    *huh.Form
	delta   *string

	loading bool
	err     error
	status  string
}

func NewStockModel(catalog *inventory.Service) StockModel {
	return StockModel{
		catalog: catalog,
		table: newTable([]table.Column{
			{Title: "Item", Width: 24},
			{Title: "Qty", Width: 8},
			{Title: "Unit", Width: 6},
			{Title: "Price", Width: 12},
			{Title: "Alert at", Width: 9},
			{Title: "", Width: 10},
		}),
		loading: true,
	}
}

func (m StockModel) Title() string { return "Stock" }

func (m StockModel) ShortHelp() string {
	if m.state == stockStateAdjust {
		return "Enter: apply | Esc: cancel"
	}

	return "Esc: back | a: adjust | l: low stock only | r: refresh"
}

func (m StockModel) Init() tea.Cmd {
	return m.loadCmd()
}

func (m StockModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case loadStockMsg:
		m.loading = false
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}

		m.items = msg.items
		m.refreshTable()

		return m, nil

	case adjustResultMsg:
		m.state = stockStateBrowse
		m.form = nil
		m.table.Focus()

		switch {
		case errors.Is(msg.err, inventory.ErrInsufficientStock):
			m.status = errorStyle.Render("Not enough stock for that adjustment.")
		case msg.err != nil:
			m.status = errorStyle.Render(fmt.Sprintf("Error: %v", msg.err))
		default:
			m.status = successStyle.Render(fmt.Sprintf("%s now at %d %s.", msg.item.Name, msg.item.Quantity, msg.item.Unit))
		}

		return m, m.loadCmd()

	case tea.WindowSizeMsg:
		m.table.SetHeight(max(5, msg.Height-10))
		return m, nil
	}

	if m.state == stockStateAdjust {
		return m.updateAdjust(msg)
	}

	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		switch keyMsg.String() {
		case "esc":
			return m, Back
		case "r":
			m.loading = true
			return m, m.loadCmd()
		case "l":
			m.lowOnly = !m.lowOnly
			m.loading = true

			return m, m.loadCmd()
		case "a":
			return m.enterAdjust()
		}
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)

	return m, cmd
}

func (m StockModel) enterAdjust() (tea.Model, tea.Cmd) {
	idx := m.table.Cursor()
	if idx < 0 || idx >= len(m.items) {
		return m, nil
	}

	m.delta = new(string)
	m.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Key("delta").
				Title("Adjust " + m.items[idx].Name).
				Description("Positive adds stock, negative removes it").
				Placeholder("-2").
				Value(m.delta).
				Validate(func(s string) error {
					n, err := strconv.Atoi(strings.TrimSpace(s))
					if err != nil || n == 0 {
						return errors.New("enter a non-zero whole number")
					}

					return nil
				}),
		),
	).WithWidth(45).WithShowHelp(false)

	m.state = stockStateAdjust
	m.table.Blur()

	return m, m.form.Init()
}

func (m StockModel) updateAdjust(msg tea.Msg) (tea.Model, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok && keyMsg.Type == tea.KeyEsc {
		m.state = stockStateBrowse
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

	return m, m.adjustCmd()
}

func (m StockModel) View() string {
	if m.loading {
		return lipgloss.NewStyle().Padding(2).Render("Loading stock...")
	}

	if m.err != nil {
		return lipgloss.NewStyle().Padding(2).Render(errorStyle.Render(fmt.Sprintf("Error: %v", m.err)))
	}

	filter := "all items"
	if m.lowOnly {
		filter = "low stock"
	}

	content := lipgloss.JoinVertical(lipgloss.Left,
		lipgloss.NewStyle().PaddingBottom(1).Render("Showing: "+accentStyle.Render(filter)),
		tableFrame(m.table),
	)

	if m.state == stockStateAdjust && m.form != nil {
		content = lipgloss.JoinHorizontal(lipgloss.Top, content, panelStyle.Width(48).Render(m.form.View()))
	}

	if m.status != "" {
		content = m.status + "\n" + content
	}

	return lipgloss.NewStyle().Padding(1).Render(content + "\n\n" + faintStyle.Render(m.ShortHelp()))
}

func (m *StockModel) refreshTable() {
	rows := make([]table.Row, 0, len(m.items))

	for _, it := range m.items {
		price := "-"
		if it.HasPrice() {
			price = FormatMoney(it.UnitPrice)
		}

		flag := ""
		if it.IsLow() {
			flag = "⚠ low"
		}

		rows = append(rows, table.Row{
			it.Name,
			strconv.Itoa(it.Quantity),
			it.Unit,
			price,
			strconv.Itoa(it.LowStockThreshold),
			flag,
		})
	}

	m.table.SetRows(rows)
}

// Messages

type loadStockMsg struct {
	items []*inventory.Item
	err   error
}

func (m StockModel) loadCmd() tea.Cmd {
	lowOnly := m.lowOnly

	return func() tea.Msg {
		ctx, cancel := DbCtx()
		defer cancel()

		list := m.catalog.List
		if lowOnly {
			list = m.catalog.LowStock
		}

		items, err := list(ctx)

		return loadStockMsg{items: items, err: err}
	}
}

type adjustResultMsg struct {
	item *inventory.Item
	err  error
}

func (m StockModel) adjustCmd() tea.Cmd {
	item := m.items[m.table.Cursor()]
	delta, _ := strconv.Atoi(strings.TrimSpace(*m.delta))

	return func() tea.Msg {
		ctx, cancel := DbCtx()
		defer cancel()

		updated, err := m.catalog.Adjust(ctx, item.ID, delta)

		return adjustResultMsg{item: updated, err: err}
	}
}
