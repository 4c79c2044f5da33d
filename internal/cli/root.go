// Package cli implements khatactl, the shop's operations command line.
package cli

import (
	"database/sql"
	"fmt"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/MrJamesThe3rd/khata/internal/app"
	"github.com/MrJamesThe3rd/khata/internal/config"
	"github.com/MrJamesThe3rd/khata/internal/database"
	"github.com/MrJamesThe3rd/khata/internal/logging"
)

// RootOptions carries state shared by every subcommand.
type RootOptions struct {
	EnvFile string
	Verbose bool

	cfg *config.Config
	log *zap.Logger
}

func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:           "khatactl",
		Short:         "Operate a khata shop ledger",
		Long:          "Maintenance commands for the khata ledger: schema migrations, catalog imports, reminders and balances.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return opts.load()
		},
	}

	cmd.PersistentFlags().StringVar(&opts.EnvFile, "env-file", ".env", "dotenv file to load before reading the environment")
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "log at debug level")

	cmd.AddCommand(NewMigrateCommand(opts))
	cmd.AddCommand(NewImportCommand(opts))
	cmd.AddCommand(NewRemindersCommand(opts))
	cmd.AddCommand(NewBalanceCommand(opts))
	cmd.AddCommand(NewTokenCommand(opts))

	return cmd
}

func (o *RootOptions) load() error {
	// A missing dotenv file is not an error.
	_ = godotenv.Load(o.EnvFile)

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	level := "warn"
	if o.Verbose {
		level = "debug"
	}

	log, err := logging.New(logging.Config{Level: level, Format: "console", Output: "stderr"})
	if err != nil {
		return err
	}

	o.cfg = cfg
	o.log = log

	return nil
}

// open connects to the configured database and wires the services over it.
func (o *RootOptions) open() (*app.App, *sql.DB, error) {
	db, err := database.New(o.cfg.DB.Driver, o.cfg.ConnectionString())
	if err != nil {
		return nil, nil, err
	}

	a, err := app.New(o.cfg, db, o.log, nil)
	if err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("wiring services: %w", err)
	}

	return a, db, nil
}
