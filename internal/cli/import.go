package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func NewImportCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "import-catalog <file>",
		Short: "Create or update catalog items from a CSV file",
		Long: `Reads a CSV with item and quantity columns, and optional price and
threshold columns, in any order. Title rows before the header are ignored.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("opening catalog: %w", err)
			}
			defer f.Close()

			a, db, err := rootOpts.open()
			if err != nil {
				return err
			}
			defer db.Close()

			report, err := a.Importer.Import(cmd.Context(), f)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "created %d, updated %d, skipped %d\n", report.Created, report.Updated, len(report.Skipped))

			for _, s := range report.Skipped {
				fmt.Fprintf(out, "  line %d: %v\n", s.Line, s.Err)
			}

			return nil
		},
	}
}
