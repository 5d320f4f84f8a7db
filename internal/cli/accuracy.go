package cli

import (
	"fmt"
	"io"
	"math"
	"strconv"

	"github.com/forecastkit/magi/accuracy"
	"github.com/forecastkit/magi/plot"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
	"github.com/spf13/cobra"
)

func newAccuracyCommand(a *app) *cobra.Command {
	var (
		actualPath    string
		predictedPath string
		output        string
		format        string
		plotPath      string
	)

	cmd := &cobra.Command{
		Use:   "accuracy",
		Short: "Score predicted series against actual series",
		Long: `Score the predicted csv table against the actual csv table. Both must hold the
same columns; they are read on the index of the actual table. The table is scored as a
whole unless --separate is set, which scores every column on its own.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			actual, err := a.readTable(cmd, actualPath)
			if err != nil {
				return err
			}
			predicted, err := a.readTable(cmd, predictedPath)
			if err != nil {
				return err
			}
			opt, err := a.cfg.AccuracyOptions(a.logger)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			report, err := accuracy.Evaluate(ctx, accuracy.Tables{Actual: actual, Predicted: predicted}, opt)
			if err != nil {
				return err
			}

			if plotPath != "" {
				chart, err := plot.Accuracy("Accuracy", report)
				if err != nil {
					return err
				}
				if err := writeTo(cmd, plotPath, func(w io.Writer) error { return plot.Render(w, chart) }); err != nil {
					return err
				}
			}

			switch format {
			case "table":
				return writeTo(cmd, output, func(w io.Writer) error { return renderReport(w, report) })
			case "json":
				return writeTo(cmd, output, func(w io.Writer) error { return writeJSON(w, report) })
			}
			return fmt.Errorf("%q, %w", format, ErrUnknownFormat)
		},
	}
	cmd.Flags().StringVar(&actualPath, "actual", "", "csv table of actual values")
	cmd.Flags().StringVar(&predictedPath, "predicted", "", "csv table of predicted values")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output path, stdout when empty")
	cmd.Flags().StringVarP(&format, "format", "f", "table", "output format, table or json")
	cmd.Flags().StringVar(&plotPath, "plot", "", "write an html chart to this path")
	cmd.Flags().Bool("separate", false, "score every column on its own")
	cmd.Flags().Float64("mape-offset", accuracy.DefaultMAPEOffset, "added to actual values in the MAPE denominator")
	_ = a.v.BindPFlag("accuracy.separate_series", cmd.Flags().Lookup("separate"))
	_ = a.v.BindPFlag("accuracy.mape_offset", cmd.Flags().Lookup("mape-offset"))
	return cmd
}

// renderReport prints one row per metric and one value column per scored column
func renderReport(w io.Writer, report *accuracy.Report) error {
	header := []string{"metric", "value"}
	var rows [][]string
	if report.Table != nil {
		header = append([]string{"metric"}, report.Table.Columns...)
		for i, row := range report.Table.Rows() {
			rows = append(rows, append([]string{accuracy.Names[i]}, formatRow(row)...))
		}
	} else {
		for i, v := range report.Metrics.Values() {
			rows = append(rows, []string{accuracy.Names[i], formatValue(v)})
		}
	}

	table := tablewriter.NewTable(w,
		tablewriter.WithConfig(tablewriter.Config{
			Row: tw.CellConfig{
				Formatting: tw.CellFormatting{
					AutoWrap: tw.WrapNone,
				},
				Alignment: tw.CellAlignment{
					Global: tw.AlignRight,
				},
			},
			Header: tw.CellConfig{
				// column names are shown exactly as in the input
				Formatting: tw.CellFormatting{
					AutoFormat: tw.Off,
				},
				Alignment: tw.CellAlignment{
					Global: tw.AlignLeft,
				},
			},
		}),
	)
	table.Header(header)
	if err := table.Bulk(rows); err != nil {
		return err
	}
	return table.Render()
}

func formatRow(row []float64) []string {
	res := make([]string, 0, len(row))
	for _, v := range row {
		res = append(res, formatValue(v))
	}
	return res
}

func formatValue(v float64) string {
	if math.IsNaN(v) {
		return "NaN"
	}
	return strconv.FormatFloat(v, 'f', 6, 64)
}
