package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

func NewRemindersCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reminders",
		Short: "Inspect payment reminders",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "due",
		Short: "List pending reminders whose due time has passed",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, db, err := rootOpts.open()
			if err != nil {
				return err
			}
			defer db.Close()

			due, err := a.Reminders.Due(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()

			if len(due) == 0 {
				fmt.Fprintln(out, "No reminders due.")
				return nil
			}

			w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "CUSTOMER\tMESSAGE\tDUE")

			for _, r := range due {
				name := r.CustomerID.String()
				if c, err := a.Customers.Get(cmd.Context(), r.CustomerID); err == nil {
					name = c.Name
				}

				fmt.Fprintf(w, "%s\t%s\t%s\n", name, r.Message, humanize.Time(r.NextDue))
			}

			return w.Flush()
		},
	})

	return cmd
}
