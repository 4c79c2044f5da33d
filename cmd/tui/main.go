package main

import (
	"fmt"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/MrJamesThe3rd/khata/cmd/tui/internal/view"
	"github.com/MrJamesThe3rd/khata/internal/app"
	"github.com/MrJamesThe3rd/khata/internal/config"
	"github.com/MrJamesThe3rd/khata/internal/database"
	"github.com/MrJamesThe3rd/khata/internal/logging"
)

// tuiUser keys pending actions created from the terminal.
const tuiUser = "tui"

// defaultLogFile receives logs when the configured output is a terminal stream.
const defaultLogFile = "khata-tui.log"

type model struct {
	app  *app.App
	name string

	currentView View

	chatView      view.ChatModel
	stockView     view.StockModel
	customersView view.CustomersModel
	remindersView view.RemindersModel
	importView    view.ImportModel
}

type View int

const (
	ViewMenu      View = 0
	ViewChat      View = 1
	ViewStock     View = 2
	ViewCustomers View = 3
	ViewReminders View = 4
	ViewImport    View = 5
)

func initialModel(a *app.App, name string) model {
	return model{
		app:           a,
		name:          name,
		currentView:   ViewMenu,
		chatView:      view.NewChatModel(a.Engine, tuiUser),
		stockView:     view.NewStockModel(a.Catalog),
		customersView: view.NewCustomersModel(a.Customers, a.Ledger, a.Export),
		remindersView: view.NewRemindersModel(a.Reminders, a.Customers),
		importView:    view.NewImportModel(a.Importer),
	}
}

func (m model) Init() tea.Cmd {
	return nil
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}

		if m.currentView == ViewMenu {
			switch msg.String() {
			case "q":
				return m, tea.Quit
			case "1":
				m.currentView = ViewChat
				return m, m.chatView.Init()
			case "2":
				m.currentView = ViewStock
				m.stockView = view.NewStockModel(m.app.Catalog)

				return m, m.stockView.Init()
			case "3":
				m.currentView = ViewCustomers
				m.customersView = view.NewCustomersModel(m.app.Customers, m.app.Ledger, m.app.Export)

				return m, m.customersView.Init()
			case "4":
				m.currentView = ViewReminders
				m.remindersView = view.NewRemindersModel(m.app.Reminders, m.app.Customers)

				return m, m.remindersView.Init()
			case "5":
				m.currentView = ViewImport
				m.importView = view.NewImportModel(m.app.Importer)

				return m, m.importView.Init()
			}
		}
	case view.BackMsg:
		m.currentView = ViewMenu
		return m, nil
	}

	switch m.currentView {
	case ViewChat:
		var newModel tea.Model
		newModel, cmd = m.chatView.Update(msg)
		m.chatView = newModel.(view.ChatModel)
	case ViewStock:
		var newModel tea.Model
		newModel, cmd = m.stockView.Update(msg)
		m.stockView = newModel.(view.StockModel)
	case ViewCustomers:
		var newModel tea.Model
		newModel, cmd = m.customersView.Update(msg)
		m.customersView = newModel.(view.CustomersModel)
	case ViewReminders:
		var newModel tea.Model
		newModel, cmd = m.remindersView.Update(msg)
		m.remindersView = newModel.(view.RemindersModel)
	case ViewImport:
		var newModel tea.Model
		newModel, cmd = m.importView.Update(msg)
		m.importView = newModel.(view.ImportModel)
	}

	return m, cmd
}

func (m model) View() string {
	switch m.currentView {
	case ViewMenu:
		return lipgloss.NewStyle().Padding(2).Render(
			m.name + "\n\n" +
				"1. Chat\n" +
				"2. Stock\n" +
				"3. Customers\n" +
				"4. Reminders\n" +
				"5. Import Catalog\n\n" +
				"q. Quit",
		)
	case ViewChat:
		return m.chatView.View()
	case ViewStock:
		return m.stockView.View()
	case ViewCustomers:
		return m.customersView.View()
	case ViewReminders:
		return m.remindersView.View()
	case ViewImport:
		return m.importView.View()
	}

	return "Unknown View"
}

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to load config:", err)
		os.Exit(1)
	}

	output := cfg.Log.Output
	if o := strings.ToLower(output); o == "" || o == "stdout" || o == "stderr" {
		output = defaultLogFile
	}

	log, err := logging.New(logging.Config{Level: cfg.Log.Level, Format: "json", Output: output})
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to build logger:", err)
		os.Exit(1)
	}
	defer log.Sync()

	zap.ReplaceGlobals(log)

	if err := run(cfg, log); err != nil {
		log.Error("tui failed", zap.Error(err))
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, log *zap.Logger) error {
	if cfg.DB.AutoMigrate {
		if err := database.Migrate(cfg.DB.Driver, cfg.MigrationURL()); err != nil {
			return err
		}
	}

	db, err := database.New(cfg.DB.Driver, cfg.ConnectionString())
	if err != nil {
		return err
	}
	defer db.Close()

	services, err := app.New(cfg, db, log, nil)
	if err != nil {
		return err
	}

	p := tea.NewProgram(initialModel(services, cfg.App.Name+" TUI"), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("running tui: %w", err)
	}

	return nil
}
