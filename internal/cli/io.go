package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/forecastkit/magi"
	"github.com/forecastkit/magi/plot"
	"github.com/forecastkit/magi/timedataset"
	"github.com/goccy/go-json"
	"github.com/spf13/cobra"
)

var (
	ErrNoInput       = errors.New("no input file given")
	ErrUnknownFormat = errors.New("unknown output format")
)

// outputFlags are shared by the commands writing series or tables
type outputFlags struct {
	input  string
	output string
	format string
	plot   string
}

func (o *outputFlags) register(cmd *cobra.Command, input bool) {
	if input {
		cmd.Flags().StringVarP(&o.input, "input", "i", "", "csv input with a time column followed by one column per series, - for stdin")
	}
	cmd.Flags().StringVarP(&o.output, "output", "o", "", "output path, stdout when empty")
	cmd.Flags().StringVarP(&o.format, "format", "f", "csv", "output format, csv or json")
	cmd.Flags().StringVar(&o.plot, "plot", "", "write an html chart to this path")
}

// readTable reads a csv table from path and logs the time range it covers
func (a *app) readTable(cmd *cobra.Command, path string) (*timedataset.Table, error) {
	if path == "" {
		return nil, ErrNoInput
	}
	var r io.Reader = cmd.InOrStdin()
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		r = f
	}
	tbl, err := timedataset.ReadCSV(r)
	if err != nil {
		return nil, fmt.Errorf("reading %s, %w", path, err)
	}
	index := timedataset.TimeSlice(tbl.Index())
	a.logger.Info("read table",
		"path", path,
		"columns", tbl.NumColumns(),
		"rows", len(index),
		"start", index.StartTime().Format(time.RFC3339),
		"end", index.EndTime().Format(time.RFC3339),
	)
	return tbl, nil
}

// writeTo runs write against the output file or stdout
func writeTo(cmd *cobra.Command, path string, write func(w io.Writer) error) error {
	if path == "" {
		return write(cmd.OutOrStdout())
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// writeResult writes a single series result. CSV holds the selected series.
func (o *outputFlags) writeResult(cmd *cobra.Command, res *magi.Result, sel magi.Selection) error {
	if o.plot != "" {
		if err := writeTo(cmd, o.plot, func(w io.Writer) error { return plot.ForecastPage(w, res) }); err != nil {
			return err
		}
	}
	switch o.format {
	case "json":
		return writeTo(cmd, o.output, func(w io.Writer) error { return writeJSON(w, res) })
	case "csv":
		series, err := res.Select(sel)
		if err != nil {
			return err
		}
		name := series.Name
		if name == "" {
			name = "y"
		}
		tbl := timedataset.NewTable()
		if err := tbl.Add(name, series.Copy()); err != nil {
			return err
		}
		return writeTo(cmd, o.output, func(w io.Writer) error { return timedataset.WriteCSV(w, tbl) })
	}
	return fmt.Errorf("%q, %w", o.format, ErrUnknownFormat)
}

// writeTable writes a table on its outer joined index
func (o *outputFlags) writeTable(cmd *cobra.Command, tbl *timedataset.Table, title string) error {
	if o.plot != "" {
		chart, err := plot.Table(title, tbl)
		if err != nil {
			return err
		}
		if err := writeTo(cmd, o.plot, func(w io.Writer) error { return plot.Render(w, chart) }); err != nil {
			return err
		}
	}
	switch o.format {
	case "json":
		return writeTo(cmd, o.output, func(w io.Writer) error { return writeJSON(w, tbl) })
	case "csv":
		return writeTo(cmd, o.output, func(w io.Writer) error { return timedataset.WriteCSV(w, tbl) })
	}
	return fmt.Errorf("%q, %w", o.format, ErrUnknownFormat)
}
