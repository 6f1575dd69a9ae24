package cli

import (
	"context"
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"ContributionsETL/internal/app"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Run one budget-bounded ingestion pass",
	Long: `Ingest resumes from the latest checkpoint, walks the partition catalog
until the weekly call budget runs out or every partition has been read,
and appends the next checkpoint. Call usage is persisted even when the
run fails.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withApp(cmd, func(ctx context.Context, a *app.Application) error {
			res, err := a.Ingest(ctx)
			if err != nil {
				a.Logger().Error("ingest failed", "run_id", res.RunID, "error", err)
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: next checkpoint %s, %d pages, %d rows, %d calls (%d left this week)\n",
				res.State, res.Checkpoint, res.PagesStaged, res.RowsStaged,
				res.Budget.CallsThisRun(), res.Budget.Remaining())
			return nil
		})
	},
}

var loadCmd = &cobra.Command{
	Use:   "load",
	Short: "Synchronize dimensions and materialize facts from staging",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withApp(cmd, func(ctx context.Context, a *app.Application) error {
			report, err := a.Load(ctx)
			if err != nil {
				return err
			}

			tables := make([]string, 0, len(report.Dimensions))
			for table := range report.Dimensions {
				tables = append(tables, table)
			}
			sort.Strings(tables)

			out := cmd.OutOrStdout()
			for _, table := range tables {
				fmt.Fprintf(out, "%-20s +%d\n", table, report.Dimensions[table])
			}
			fmt.Fprintf(out, "%-20s +%d\n", "fact_contribution", report.Facts)
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(ingestCmd, loadCmd)
}
