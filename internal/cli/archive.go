package cli

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"ContributionsETL/internal/app"
	"ContributionsETL/internal/domain"
)

var replayCmd = &cobra.Command{
	Use:   "replay <partition> [pages...]",
	Short: "Stage archived pages without calling the API",
	Long: `Replay re-stages raw pages kept in the archive. Without page numbers it
replays every page the archived page 0 reports, stopping at the first page
that was never archived.

Example:
  contribetl replay TX
  contribetl replay TX 3 4`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		pages, err := parsePages(args[1:])
		if err != nil {
			return err
		}
		return withApp(cmd, func(ctx context.Context, a *app.Application) error {
			n, err := a.Replay(ctx, domain.Partition(args[0]), pages)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "replayed %d pages of %s\n", n, args[0])
			return nil
		})
	},
}

var sqlCmd = &cobra.Command{
	Use:   "sql <partition> <page>",
	Short: "Print an archived page as a literal incubator INSERT",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		pages, err := parsePages(args[1:])
		if err != nil {
			return err
		}
		return withApp(cmd, func(ctx context.Context, a *app.Application) error {
			stmt, err := a.LegacySQL(ctx, domain.Partition(args[0]), pages[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), stmt)
			return nil
		})
	},
}

func parsePages(args []string) ([]int, error) {
	pages := make([]int, 0, len(args))
	for _, arg := range args {
		n, err := strconv.Atoi(arg)
		if err != nil || n < 0 {
			return nil, fmt.Errorf("invalid page number %q", arg)
		}
		pages = append(pages, n)
	}
	return pages, nil
}

func init() {
	rootCmd.AddCommand(replayCmd, sqlCmd)
}
