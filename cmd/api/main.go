package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/MrJamesThe3rd/khata/internal/app"
	"github.com/MrJamesThe3rd/khata/internal/config"
	"github.com/MrJamesThe3rd/khata/internal/database"
	khataHttp "github.com/MrJamesThe3rd/khata/internal/http"
	chatHandler "github.com/MrJamesThe3rd/khata/internal/http/chat"
	customerHandler "github.com/MrJamesThe3rd/khata/internal/http/customer"
	exportHandler "github.com/MrJamesThe3rd/khata/internal/http/export"
	importHandler "github.com/MrJamesThe3rd/khata/internal/http/importcsv"
	inventoryHandler "github.com/MrJamesThe3rd/khata/internal/http/inventory"
	ledgerHandler "github.com/MrJamesThe3rd/khata/internal/http/ledger"
	matchingHandler "github.com/MrJamesThe3rd/khata/internal/http/matching"
	reminderHandler "github.com/MrJamesThe3rd/khata/internal/http/reminder"
	"github.com/MrJamesThe3rd/khata/internal/idempotency"
	"github.com/MrJamesThe3rd/khata/internal/logging"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to load config:", err)
		os.Exit(1)
	}

	log, err := logging.New(logging.Config{Level: cfg.Log.Level, Format: cfg.Log.Format, Output: cfg.Log.Output})
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to build logger:", err)
		os.Exit(1)
	}
	defer log.Sync()

	zap.ReplaceGlobals(log)

	if err := run(cfg, log); err != nil {
		log.Error("server failed", zap.Error(err))
		os.Exit(1)
	}
}

func run(cfg *config.Config, log *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

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

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	services, err := app.New(cfg, db, log, registry)
	if err != nil {
		return err
	}

	seen, closeSeen, err := dedupStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeSeen()

	var (
		chatH      = chatHandler.NewHandler(services.Engine, seen, cfg.Redis.DedupTTL, log.Named("chat"))
		inventoryH = inventoryHandler.NewHandler(services.Catalog, log)
		customerH  = customerHandler.NewHandler(services.Customers, services.Ledger, log)
		ledgerH    = ledgerHandler.NewHandler(services.Ledger, log)
		reminderH  = reminderHandler.NewHandler(services.Reminders, log)
		importH    = importHandler.NewHandler(services.Importer, log)
		matchingH  = matchingHandler.NewHandler(services.Aliases, log)
		exportH    = exportHandler.NewHandler(services.Export, log)
	)

	router := khataHttp.New(khataHttp.Options{
		CORSOrigins: cfg.App.CORSOrigins,
		JWTSecret:   cfg.Auth.JWTSecret,
		Metrics:     registry,
	}, khataHttp.Handlers{
		Chat:      chatH,
		Inventory: inventoryH,
		Customers: customerH,
		Ledger:    ledgerH,
		Reminders: reminderH,
		Import:    importH,
		Matching:  matchingH,
		Export:    exportH,
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.App.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.Server.Timeout,
		WriteTimeout:      cfg.Server.Timeout,
	}

	errCh := make(chan error, 1)

	go func() {
		log.Info("starting server", zap.String("addr", srv.Addr), zap.String("db", cfg.DB.Driver))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}

		return nil
	case <-ctx.Done():
	}

	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	return srv.Shutdown(shutdownCtx)
}

// dedupStore uses Redis when configured, so duplicates are caught across
// replicas, and an in-process store otherwise.
func dedupStore(ctx context.Context, cfg *config.Config, log *zap.Logger) (idempotency.Store, func(), error) {
	if cfg.Redis.Addr == "" {
		log.Info("message dedupe in memory")
		return idempotency.NewMemoryStore(), func() {}, nil
	}

	store, err := idempotency.Dial(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		return nil, nil, err
	}

	log.Info("message dedupe in redis", zap.String("addr", cfg.Redis.Addr))

	return store, func() {
		if err := store.Close(); err != nil {
			log.Warn("closing redis", zap.Error(err))
		}
	}, nil
}
