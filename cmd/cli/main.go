package main

import (
	"context"
	"fmt"
	"os"

	"datalens/domain/core"
	"datalens/internal"
	"datalens/internal/config"
	"datalens/internal/container"
	"datalens/internal/report"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "datalens-cli",
		Short:         "Dataset analysis from the command line",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(
		newOverviewCmd(),
		newPerformCmd(),
		newChartCmd(),
		newNotesCmd(),
		newDownloadCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// withContainer loads configuration, wires the dependencies and runs fn
func withContainer(ctx context.Context, fn func(c *container.Container) error) error {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := internal.NewLogger(internal.ParseLogLevel(cfg.Log.Level))

	c, err := container.New(cfg, logger)
	if err != nil {
		return err
	}
	if err := c.Init(ctx); err != nil {
		return err
	}
	defer c.Shutdown(ctx)
	return fn(c)
}

func newOverviewCmd() *cobra.Command {
	var clean, asJSON bool

	cmd := &cobra.Command{
		Use:   "overview [dataset-id]",
		Short: "Show a dataset's schema and statistics",
		Long: `Fetch the overview of a dataset: schema, row counts, missing values,
numeric statistics and categorical distributions.

Example: datalens-cli overview 42 --clean`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := core.ParseDatasetID(args[0])
			if err != nil {
				return err
			}
			return withContainer(cmd.Context(), func(c *container.Container) error {
				ov, err := c.Gateway.Overview(cmd.Context(), id, clean)
				if err != nil {
					return err
				}
				if asJSON {
					body, err := ov.MarshalJSON()
					if err != nil {
						return err
					}
					fmt.Fprintln(cmd.OutOrStdout(), string(body))
					return nil
				}
				fmt.Fprint(cmd.OutOrStdout(), report.Markdown(report.Input{Overview: ov}))
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&clean, "clean", false, "Fetch the cleaned dataset")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the raw details payload")
	return cmd
}

func newNotesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "notes [dataset-id] [text]",
		Short: "Print or replace the saved notes of a dataset",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := core.ParseDatasetID(args[0])
			if err != nil {
				return err
			}
			return withContainer(cmd.Context(), func(c *container.Container) error {
				if len(args) == 2 {
					return c.Store.SaveNotes(cmd.Context(), id, args[1])
				}
				notes, err := c.Store.LoadNotes(cmd.Context(), id)
				if err != nil && !core.IsNotFoundError(err) {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), notes)
				return nil
			})
		},
	}
	return cmd
}
