package main

import (
	"bytes"
	"context"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"datalens/domain/analysis"
	"datalens/domain/core"
	"datalens/internal/chart"
	"datalens/internal/container"
	"datalens/internal/devbackend"
	"datalens/internal/errors"
	"datalens/internal/execution"
	"datalens/internal/export"
	"datalens/internal/report"
	"datalens/internal/session"
	"datalens/ui/tui"

	"github.com/spf13/cobra"
)

type performOptions struct {
	operation    string
	column       string
	column1      string
	column2      string
	filterColumn string
	filterOp     string
	filterValue  string
	clean        bool
	html         bool
}

// buildConfig drives the configuration reducer the way the workspace form
// does, so the cascade rules apply to scripted runs too
func buildConfig(opts performOptions) (analysis.Config, error) {
	spec, ok := analysis.Lookup(analysis.Operation(opts.operation))
	if !ok {
		return analysis.Config{}, errors.InvalidInput("unknown operation: " + opts.operation)
	}
	filterOp, ok := analysis.ParseFilterOperator(opts.filterOp)
	if !ok {
		return analysis.Config{}, errors.InvalidInput("unknown filter operator: " + opts.filterOp)
	}

	store := analysis.NewStore(analysis.Config{})
	store.Dispatch(analysis.CalcTypeAction(spec.Category))
	store.Dispatch(analysis.OperationAction(spec.Name))
	if spec.Columns == 1 {
		col := opts.column
		if col == "" {
			col = opts.column1
		}
		store.Dispatch(analysis.ColumnAction(analysis.StripTypeHint(col)))
	} else {
		store.Dispatch(analysis.Column1Action(analysis.StripTypeHint(opts.column1)))
		store.Dispatch(analysis.Column2Action(analysis.StripTypeHint(opts.column2)))
	}
	store.Dispatch(analysis.FilterColumnAction(analysis.StripTypeHint(opts.filterColumn)))
	store.Dispatch(analysis.FilterOperatorAction(filterOp))
	store.Dispatch(analysis.FilterValueAction(opts.filterValue))
	return store.Dispatch(analysis.CleanAction(opts.clean)), nil
}

func newPerformCmd() *cobra.Command {
	var opts performOptions

	cmd := &cobra.Command{
		Use:   "perform [dataset-id]",
		Short: "Run one statistical operation on a dataset",
		Long: `Run an operation on the backend and print the result.

Operations: mean, median, mode (one column); t_test, chi_square, anova,
pearson, spearman (two columns). Column names may carry a " (type)" hint.

Example: datalens-cli perform 42 --op t_test --column1 age --column2 stay --filter-column ward --filter-op = --filter-value B`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := core.ParseDatasetID(args[0])
			if err != nil {
				return err
			}
			cfg, err := buildConfig(opts)
			if err != nil {
				return err
			}
			return withContainer(cmd.Context(), func(c *container.Container) error {
				return runPerform(cmd, c, id, cfg, opts)
			})
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.operation, "op", "", "Operation to run")
	f.StringVar(&opts.column, "column", "", "Column for single-column operations")
	f.StringVar(&opts.column1, "column1", "", "First column")
	f.StringVar(&opts.column2, "column2", "", "Second column")
	f.StringVar(&opts.filterColumn, "filter-column", "", "Restrict rows by this column")
	f.StringVar(&opts.filterOp, "filter-op", "", "Filter comparison: = != > >= < <=")
	f.StringVar(&opts.filterValue, "filter-value", "", "Filter value")
	f.BoolVar(&opts.clean, "clean", false, "Run on the cleaned dataset")
	f.BoolVar(&opts.html, "html", false, "Also write an HTML report to the export directory")
	_ = cmd.MarkFlagRequired("op")
	return cmd
}

func runPerform(cmd *cobra.Command, c *container.Container, id core.DatasetID, cfg analysis.Config, opts performOptions) error {
	ctx := cmd.Context()
	exec := execution.NewExecutor(c.Gateway, nil, c.Logger)
	st, err := exec.Submit(ctx, id, cfg, opts.filterValue)
	if err != nil {
		return fmt.Errorf("%s", errors.UserMessage(err))
	}

	in := report.Input{Request: st.Request, Result: st.Result, Generated: time.Now()}
	fmt.Fprint(cmd.OutOrStdout(), report.Markdown(in))
	if !opts.html {
		return nil
	}

	ov, err := c.Gateway.Overview(ctx, id, cfg.Clean)
	if err != nil {
		c.Logger.Warn("report without overview: %v", err)
	} else {
		in.Overview = ov
	}
	if notes, err := c.Store.LoadNotes(ctx, id); err == nil {
		in.Notes = notes
	}
	path, err := c.Exports.Put(ctx, export.ReportKey(id, string(cfg.Operation), in.Generated), report.HTML(in))
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), "report written to", path)
	return nil
}

func newChartCmd() *cobra.Command {
	var column, kind string
	var clean, ascii bool

	cmd := &cobra.Command{
		Use:   "chart [dataset-id]",
		Short: "Chart a categorical column as bars or a donut",
		Long: `Render a categorical distribution. By default the first categorical
column is drawn as a PNG in the export directory; --ascii prints it instead.

Example: datalens-cli chart 42 --column ward --type pie`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := core.ParseDatasetID(args[0])
			if err != nil {
				return err
			}
			return withContainer(cmd.Context(), func(c *container.Container) error {
				return runChart(cmd, c, id, column, chart.Kind(kind), clean, ascii)
			})
		},
	}

	cmd.Flags().StringVar(&column, "column", "", "Categorical column (default: first)")
	cmd.Flags().StringVar(&kind, "type", string(chart.Bar), "Chart type: bar or pie")
	cmd.Flags().BoolVar(&clean, "clean", false, "Chart the cleaned dataset")
	cmd.Flags().BoolVar(&ascii, "ascii", false, "Print to the terminal instead of writing a PNG")
	return cmd
}

func runChart(cmd *cobra.Command, c *container.Container, id core.DatasetID, column string, kind chart.Kind, clean, ascii bool) error {
	ctx := cmd.Context()
	ctrl := session.NewController(id, c.Gateway, nil, analysis.NewStore(analysis.Config{Clean: clean}), c.Logger)
	if _, err := ctrl.Load(ctx); err != nil {
		return fmt.Errorf("%s", errors.UserMessage(err))
	}
	if column != "" {
		if _, err := ctrl.SetActiveCategory(column); err != nil {
			return err
		}
	}
	if _, err := ctrl.SetChartType(kind); err != nil {
		return err
	}
	d, kind, ok := ctrl.ActiveDistribution()
	if !ok {
		return errors.NotFound("categorical column")
	}

	if ascii {
		g := tui.NewGridSurface(80, 18)
		chart.Render(g, d, kind)
		fmt.Fprintln(cmd.OutOrStdout(), g.Plain())
		return nil
	}

	var buf bytes.Buffer
	if err := chart.RenderPNG(&buf, d, kind, c.Config.UI.ChartWidth, c.Config.UI.ChartHeight); err != nil {
		return err
	}
	path, err := c.Exports.Put(ctx, export.ChartKey(id, d.Column, string(kind)), buf.Bytes())
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), "chart written to", path)
	return nil
}

func newDownloadCmd() *cobra.Command {
	var columns []string
	var clean bool
	var keyHex string

	cmd := &cobra.Command{
		Use:   "download [dataset-id]",
		Short: "Save the encrypted export of a dataset",
		Long: `Download the selected columns (default: all) into the export directory.
With --key (hex) the export is decrypted and saved as CSV.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := core.ParseDatasetID(args[0])
			if err != nil {
				return err
			}
			return withContainer(cmd.Context(), func(c *container.Container) error {
				return runDownload(cmd.Context(), cmd, c, id, columns, clean, keyHex)
			})
		},
	}

	cmd.Flags().StringSliceVar(&columns, "columns", nil, "Columns to export")
	cmd.Flags().BoolVar(&clean, "clean", false, "Export the cleaned dataset")
	cmd.Flags().StringVar(&keyHex, "key", "", "Hex AES key to decrypt the export with")
	return cmd
}

func runDownload(ctx context.Context, cmd *cobra.Command, c *container.Container, id core.DatasetID, columns []string, clean bool, keyHex string) error {
	for i, col := range columns {
		columns[i] = analysis.StripTypeHint(strings.TrimSpace(col))
	}
	data, err := c.Gateway.Download(ctx, id, columns, clean)
	if err != nil {
		return err
	}

	key := export.DownloadKey(id, clean)
	if keyHex != "" {
		secret, err := hex.DecodeString(keyHex)
		if err != nil {
			return errors.InvalidInput("key must be hex encoded")
		}
		if data, err = devbackend.Decrypt(secret, data); err != nil {
			return err
		}
		key = strings.TrimSuffix(key, ".bin") + ".csv"
	}

	path, err := c.Exports.Put(ctx, key, data)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), "export written to", path)
	return nil
}
