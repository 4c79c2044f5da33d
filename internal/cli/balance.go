package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/MrJamesThe3rd/khata/internal/customer"
)

func NewBalanceCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "balance <customer>",
		Short: "Print a customer's outstanding credit",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, db, err := rootOpts.open()
			if err != nil {
				return err
			}
			defer db.Close()

			name := strings.Join(args, " ")

			c, err := a.Customers.Find(cmd.Context(), name)
			if errors.Is(err, customer.ErrNotFound) {
				return fmt.Errorf("no customer named %q", name)
			}

			if err != nil {
				return err
			}

			b, err := a.Ledger.Balance(cmd.Context(), c.ID)
			if err != nil {
				return err
			}

			cur := rootOpts.cfg.App.Currency

			fmt.Fprintf(cmd.OutOrStdout(), "%s: credit %s%s, paid %s%s, outstanding %s%s\n",
				c.Name,
				cur, b.Credit.StringFixed(2),
				cur, b.Payments.StringFixed(2),
				cur, b.Outstanding().StringFixed(2),
			)

			return nil
		},
	}
}
