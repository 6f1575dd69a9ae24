package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"ContributionsETL/internal/app"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create missing warehouse tables",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withApp(cmd, func(ctx context.Context, a *app.Application) error {
			if err := a.Migrate(ctx); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "schema up to date")
			return nil
		})
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the resume checkpoint and this week's call usage",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withApp(cmd, func(ctx context.Context, a *app.Application) error {
			st, err := a.Status(ctx)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if st.HasCheckpoint {
				fmt.Fprintf(out, "checkpoint: %s\n", st.Checkpoint)
			} else {
				fmt.Fprintln(out, "checkpoint: none")
			}
			b := st.Budget
			fmt.Fprintf(out, "budget:     %d/%d calls used in %s\n", b.UsedBefore, b.Limit, b.Week)
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd, statusCmd)
}
