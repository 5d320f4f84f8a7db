package cli

import (
	"fmt"

	"github.com/forecastkit/magi"
	"github.com/forecastkit/magi/timedataset"
	"github.com/spf13/cobra"
)

// selectionFlags picks the series kept from every result
type selectionFlags struct {
	name string

	actualPred bool
	pred       bool
	fit        bool
	residuals  bool
}

func (s *selectionFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&s.name, "select", magi.SelectFullFit.String(),
		"series kept from every result: full_fit, full_actuals, predicted, fitted or residuals")
	cmd.Flags().BoolVar(&s.actualPred, "actual-pred", false, "keep the observations followed by the forecast")
	cmd.Flags().BoolVar(&s.pred, "pred", false, "keep the forecast only")
	cmd.Flags().BoolVar(&s.fit, "fit", false, "keep the fitted values only")
	cmd.Flags().BoolVar(&s.residuals, "residuals", false, "keep the residuals only")
	cmd.MarkFlagsMutuallyExclusive("select", "actual-pred")
	cmd.MarkFlagsMutuallyExclusive("select", "pred")
	cmd.MarkFlagsMutuallyExclusive("select", "fit")
	cmd.MarkFlagsMutuallyExclusive("select", "residuals")
}

func (s *selectionFlags) selection() (magi.Selection, error) {
	if s.actualPred || s.pred || s.fit || s.residuals {
		return magi.SelectionFromFlags(true, s.actualPred, s.pred, s.fit, s.residuals)
	}
	return magi.ParseSelection(s.name)
}

// runFlags are shared by forecast and decompose
type runFlags struct {
	outputFlags
	selectionFlags

	series string
}

func (r *runFlags) register(cmd *cobra.Command) {
	r.outputFlags.register(cmd, true)
	r.selectionFlags.register(cmd)
	cmd.Flags().StringVar(&r.series, "series", "", "forecast only this column and keep the whole result")
}

// forecaster builds a Forecaster over the input table or the column picked with --series
func (a *app) forecaster(cmd *cobra.Command, flags *runFlags, decomposition bool) (*magi.Forecaster, error) {
	tbl, err := a.readTable(cmd, flags.input)
	if err != nil {
		return nil, err
	}
	opt, err := a.cfg.ForecastOptions(a.logger)
	if err != nil {
		return nil, err
	}

	var data magi.Data = magi.TableData{Table: tbl}
	if flags.series != "" {
		col, err := tbl.Column(flags.series)
		if err != nil {
			return nil, err
		}
		data = magi.SeriesData{Series: col}
	}

	if decomposition {
		d, err := a.decomposer()
		if err != nil {
			return nil, err
		}
		return magi.New(data, nil, d, opt)
	}
	return magi.New(data, a.engine(), nil, opt)
}

// writeTableResult logs isolated failures and writes the joined table
func (a *app) writeTableResult(cmd *cobra.Command, flags *runFlags, res *magi.TableResult, title string) error {
	for _, failure := range res.Failures {
		a.logger.Warn("column failed", "column", failure.Column, "error", failure.Err)
	}
	if res.Table == nil || res.Table.NumColumns() == 0 {
		return fmt.Errorf("every column failed, %w", timedataset.ErrNoTrainingData)
	}
	return flags.writeTable(cmd, res.Table, title)
}

func newForecastCommand(a *app) *cobra.Command {
	flags := &runFlags{}
	cmd := &cobra.Command{
		Use:   "forecast SPEC",
		Short: "Forecast every series with a model specification",
		Long: `Forecast every column of the input table with a model specification such as
"auto.arima(rdata)", "thetaf", "snaive" or "ets(rdata, model = 'ZZZ')". Columns run
concurrently and the selected series of each result are joined on their time index.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sel, err := flags.selection()
			if err != nil {
				return err
			}
			f, err := a.forecaster(cmd, flags, false)
			if err != nil {
				return err
			}
			defer f.Close()

			ctx := cmd.Context()
			spec := args[0]
			if flags.series != "" {
				res, err := f.Forecast(ctx, spec)
				if err != nil {
					return err
				}
				a.logger.Info("forecast complete", "series", flags.series, "method", res.Method, "horizon", res.Horizon())
				return flags.writeResult(cmd, res, sel)
			}

			res, err := f.ForecastTable(ctx, spec, sel)
			if err != nil {
				return err
			}
			a.logger.Info("forecast complete", "columns", res.Table.NumColumns(), "failed", len(res.Failures))
			return a.writeTableResult(cmd, flags, res, "Forecast "+spec)
		},
	}
	flags.register(cmd)
	return cmd
}

func newDecomposeCommand(a *app) *cobra.Command {
	flags := &runFlags{}
	cmd := &cobra.Command{
		Use:   "decompose",
		Short: "Forecast every series with a trend and seasonality decomposition",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sel, err := flags.selection()
			if err != nil {
				return err
			}
			f, err := a.forecaster(cmd, flags, true)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			if flags.series != "" {
				res, err := f.Decompose(ctx)
				if err != nil {
					return err
				}
				return flags.writeResult(cmd, res, sel)
			}

			res, err := f.DecomposeTable(ctx, sel)
			if err != nil {
				return err
			}
			return a.writeTableResult(cmd, flags, res, "Decomposition")
		},
	}
	flags.register(cmd)
	return cmd
}
