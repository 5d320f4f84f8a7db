package cli

import (
	"time"

	"github.com/forecastkit/magi/timedataset"
	"github.com/spf13/cobra"
)

func newGenerateCommand(a *app) *cobra.Command {
	flags := &outputFlags{}
	opt := timedataset.NewDefaultTableOptions()
	var (
		end  string
		freq string
	)

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate a table of random integer valued series",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			endTime, err := time.Parse(time.DateOnly, end)
			if err != nil {
				return err
			}
			f, err := timedataset.ParseFrequency(freq)
			if err != nil {
				return err
			}
			genOpt := *opt
			genOpt.End = endTime
			genOpt.Frequency = f

			tbl, err := timedataset.GenerateTable(&genOpt)
			if err != nil {
				return err
			}
			a.logger.Debug("generated table", "columns", tbl.NumColumns(), "rows", genOpt.NumRows, "seed", genOpt.Seed)
			return flags.writeTable(cmd, tbl, "Generated")
		},
	}
	flags.register(cmd, false)
	cmd.Flags().IntVar(&opt.NumColumns, "columns", opt.NumColumns, "number of series")
	cmd.Flags().IntVar(&opt.NumRows, "rows", opt.NumRows, "number of observations per series")
	cmd.Flags().IntVar(&opt.Min, "min", opt.Min, "smallest value")
	cmd.Flags().IntVar(&opt.Max, "max", opt.Max, "upper bound of the values")
	cmd.Flags().Uint64Var(&opt.Seed, "seed", opt.Seed, "random seed")
	cmd.Flags().StringVar(&end, "end", opt.End.Format(time.DateOnly), "last timestamp")
	cmd.Flags().StringVar(&freq, "freq", string(opt.Frequency), "frequency of the generated index")
	return cmd
}
