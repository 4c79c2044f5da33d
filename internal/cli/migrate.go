package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/MrJamesThe3rd/khata/internal/database"
)

func NewMigrateCommand(rootOpts *RootOptions) *cobra.Command {
	var showVersion bool

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending schema migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := rootOpts.cfg

			if !showVersion {
				if err := database.Migrate(cfg.DB.Driver, cfg.MigrationURL()); err != nil {
					return err
				}
			}

			version, dirty, err := database.Version(cfg.DB.Driver, cfg.MigrationURL())
			if err != nil {
				return fmt.Errorf("reading schema version: %w", err)
			}

			state := "clean"
			if dirty {
				state = "dirty"
			}

			fmt.Fprintf(cmd.OutOrStdout(), "schema version %d (%s)\n", version, state)

			return nil
		},
	}

	cmd.Flags().BoolVar(&showVersion, "version", false, "only print the applied schema version")

	return cmd
}
