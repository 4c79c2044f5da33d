// Package app assembles the services shared by the khata binaries.
package app

import (
	"database/sql"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/MrJamesThe3rd/khata/internal/config"
	"github.com/MrJamesThe3rd/khata/internal/customer"
	customerStore "github.com/MrJamesThe3rd/khata/internal/customer/store"
	"github.com/MrJamesThe3rd/khata/internal/export"
	"github.com/MrJamesThe3rd/khata/internal/importer"
	"github.com/MrJamesThe3rd/khata/internal/inventory"
	inventoryStore "github.com/MrJamesThe3rd/khata/internal/inventory/store"
	"github.com/MrJamesThe3rd/khata/internal/ledger"
	ledgerStore "github.com/MrJamesThe3rd/khata/internal/ledger/store"
	"github.com/MrJamesThe3rd/khata/internal/matching"
	matchingStore "github.com/MrJamesThe3rd/khata/internal/matching/store"
	"github.com/MrJamesThe3rd/khata/internal/nlu"
	"github.com/MrJamesThe3rd/khata/internal/pending"
	pendingStore "github.com/MrJamesThe3rd/khata/internal/pending/store"
	"github.com/MrJamesThe3rd/khata/internal/reminder"
	reminderStore "github.com/MrJamesThe3rd/khata/internal/reminder/store"
	"github.com/MrJamesThe3rd/khata/internal/workflow"
)

type App struct {
	Customers *customer.Service
	Catalog   *inventory.Service
	Ledger    *ledger.Service
	Reminders *reminder.Service
	Aliases   *matching.Service
	Pending   *pending.Service
	Importer  *importer.Service
	Export    *export.Service
	Engine    *workflow.Engine
}

// New wires every service over db. reg may be nil.
func New(cfg *config.Config, db *sql.DB, log *zap.Logger, reg prometheus.Registerer) (*App, error) {
	lexicon := workflow.DefaultLexicon()

	if cfg.Workflow.LexiconFile != "" {
		l, err := workflow.LoadLexicon(cfg.Workflow.LexiconFile)
		if err != nil {
			return nil, fmt.Errorf("loading lexicon: %w", err)
		}

		lexicon = l
	}

	a := &App{
		Customers: customer.NewService(customerStore.New(db, cfg.DB.Driver), cfg.App.PhoneRegion),
		Catalog:   inventory.NewService(inventoryStore.New(db), cfg.Workflow.LowStockThreshold),
		Ledger:    ledger.NewService(ledgerStore.New(db)),
		Reminders: reminder.NewService(reminderStore.New(db)),
		Aliases:   matching.NewService(matchingStore.New(db)),
		Pending:   pending.NewService(pendingStore.New(db, cfg.DB.Driver)),
	}

	a.Importer = importer.NewService(a.Catalog, log.Named("importer"))
	a.Export = export.NewService(a.Customers, a.Ledger)

	a.Engine = workflow.NewEngine(workflow.Config{
		Currency:    cfg.App.Currency,
		ReminderDue: cfg.ReminderDue(),
	}, workflow.Deps{
		Pending:   a.Pending,
		Customers: a.Customers,
		Catalog:   a.Catalog,
		Aliases:   a.Aliases,
		Ledger:    a.Ledger,
		Reminders: a.Reminders,
		Extractor: Extractor(cfg, log),
		Lexicon:   lexicon,
		Metrics:   workflow.NewMetrics(reg),
		Logger:    log.Named("workflow"),
	})

	return a, nil
}

// Extractor chains the LLM client, when an API key is configured, in front of
// the offline regex extractor.
func Extractor(cfg *config.Config, log *zap.Logger) nlu.Extractor {
	var chain []nlu.Extractor

	if cfg.NLU.APIKey != "" {
		chain = append(chain, nlu.NewClient(nlu.ClientConfig{
			BaseURL:   cfg.NLU.BaseURL,
			APIKey:    cfg.NLU.APIKey,
			Model:     cfg.NLU.Model,
			Timeout:   cfg.NLU.Timeout,
			RateLimit: cfg.NLU.RateLimit,
			Burst:     cfg.NLU.Burst,
		}))
	}

	chain = append(chain, nlu.NewRegexExtractor())

	return nlu.NewChain(log.Named("nlu"), chain...)
}
