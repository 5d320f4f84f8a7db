package cli

import (
	"github.com/forecastkit/magi"
	"github.com/spf13/cobra"
)

func newCleanCommand(a *app) *cobra.Command {
	flags := &outputFlags{}
	var keepMissing bool

	cmd := &cobra.Command{
		Use:   "clean",
		Short: "Replace outliers and missing values in every series",
		Long: `Replace the outliers of every column with values from a robust seasonal
decomposition and interpolate missing values unless --keep-missing is set. Any failing
column fails the whole command.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			tbl, err := a.readTable(cmd, flags.input)
			if err != nil {
				return err
			}
			opt, err := a.cfg.ForecastOptions(a.logger)
			if err != nil {
				return err
			}
			f, err := magi.NewFromTable(tbl, a.engine(), nil, opt)
			if err != nil {
				return err
			}
			defer f.Close()

			ctx := cmd.Context()
			cleaned, err := f.Clean(ctx, !keepMissing)
			if err != nil {
				return err
			}
			a.logger.Info("clean complete", "columns", cleaned.Table().NumColumns())
			return flags.writeTable(cmd, cleaned.Table(), "Cleaned")
		},
	}
	flags.register(cmd, true)
	cmd.Flags().BoolVar(&keepMissing, "keep-missing", false, "leave missing values in place")
	return cmd
}
