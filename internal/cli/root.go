// Package cli exposes the contributions ETL as cobra commands.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"ContributionsETL/internal/app"
	"ContributionsETL/internal/config"
)

var cfgFile string

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "contribetl",
	Short: "Resumable batch ingestion of campaign contribution aggregates",
	Long: `contribetl pulls paginated contribution aggregates per state from the
Follow the Money API, archives every raw page, stages it in the warehouse
incubator table and models staged rows into a star schema.

Each ingest run respects a weekly API call budget and records a checkpoint
so the next run resumes where this one stopped.`,
	SilenceErrors: true,
	SilenceUsage:  true,
}

// Execute runs the root command; SIGINT and SIGTERM cancel the running command.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, _ []string) {
		fmt.Fprintln(cmd.OutOrStdout(), "contribetl v0.3.0")
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "YAML config file (default: $CONTRIB_ETL_CONFIG)")
	rootCmd.AddCommand(versionCmd)
}

func loadConfig() config.Config {
	if cfgFile != "" {
		return config.LoadFile(cfgFile)
	}
	return config.Load()
}

// withApp builds the application for one command and closes it afterwards.
func withApp(cmd *cobra.Command, fn func(context.Context, *app.Application) error) (err error) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	a, err := app.New(ctx, loadConfig(), nil)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := a.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close warehouse: %w", cerr)
		}
	}()

	return fn(ctx, a)
}
