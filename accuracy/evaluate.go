package accuracy

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/forecastkit/magi"
	"github.com/forecastkit/magi/errs"
	"github.com/forecastkit/magi/timedataset"
	"golang.org/x/sync/errgroup"
)

var (
	ErrNilOperand      = errors.New("nil operand")
	ErrColumnMismatch  = errors.New("tables have different columns")
	ErrUnsupportedType = errors.New("unsupported input type")
	ErrNegativeWorkers = errors.New("negative number of workers")
)

// Options configures the scoring
type Options struct {
	// MAPEOffset is added to every actual value in the MAPE denominator to avoid dividing by
	// zero. It biases MAPE for actual values close to zero.
	MAPEOffset float64

	// SeparateSeries scores each column of a table on its own instead of the flattened table
	SeparateSeries bool

	// Workers bounds the number of columns scored at once. Zero scores every column
	// concurrently.
	Workers int

	Logger *slog.Logger
}

// NewDefaultOptions scores tables as a whole with an MAPE offset of 1
func NewDefaultOptions() *Options {
	return &Options{
		MAPEOffset: DefaultMAPEOffset,
		Logger:     slog.Default(),
	}
}

// Validate returns a copy of the options with a logger set. Nil options return the defaults.
func (o *Options) Validate() (*Options, error) {
	if o == nil {
		return NewDefaultOptions(), nil
	}
	if o.Workers < 0 {
		return nil, fmt.Errorf("got %d, %w: %w", o.Workers, errs.ErrConfiguration, ErrNegativeWorkers)
	}
	res := *o
	if res.Logger == nil {
		res.Logger = slog.Default()
	}
	return &res, nil
}

// Input is an actual/predicted pair: a Record, Arrays, Series or Tables
type Input interface {
	input()
}

// Record scores the fitted values of a forecast against the observations it was fit on
type Record struct {
	Result *magi.Result
}

// Arrays scores two equal length arrays
type Arrays struct {
	Actual    []float64
	Predicted []float64
}

// Series scores the values of two series position by position
type Series struct {
	Actual    *timedataset.TimeDataset
	Predicted *timedataset.TimeDataset
}

// Tables scores two tables with the same columns. Both are read on the index of Actual.
type Tables struct {
	Actual    *timedataset.Table
	Predicted *timedataset.Table
}

func (Record) input() {}
func (Arrays) input() {}
func (Series) input() {}
func (Tables) input() {}

// Report is the outcome of Evaluate. Metrics is set for a single pair or a flattened table,
// Table when tables are scored per column.
type Report struct {
	Metrics *Metrics      `json:"metrics,omitempty"`
	Table   *MetricsTable `json:"table,omitempty"`
}

// Evaluate scores the input pair
func Evaluate(ctx context.Context, in Input, opt *Options) (*Report, error) {
	opt, err := opt.Validate()
	if err != nil {
		return nil, err
	}

	var actual, predicted []float64
	switch v := in.(type) {
	case Record:
		if v.Result == nil || v.Result.X == nil || v.Result.Fitted == nil {
			return nil, fmt.Errorf("record, %w: %w", errs.ErrTypeMismatch, ErrNilOperand)
		}
		actual, predicted = v.Result.X.Y, v.Result.Fitted.Y
	case Arrays:
		if v.Actual == nil || v.Predicted == nil {
			return nil, fmt.Errorf("arrays, %w: %w", errs.ErrTypeMismatch, ErrNilOperand)
		}
		actual, predicted = v.Actual, v.Predicted
	case Series:
		if v.Actual == nil || v.Predicted == nil {
			return nil, fmt.Errorf("series, %w: %w", errs.ErrTypeMismatch, ErrNilOperand)
		}
		actual, predicted = v.Actual.Y, v.Predicted.Y
	case Tables:
		return evaluateTables(ctx, v, opt)
	default:
		return nil, fmt.Errorf("%T, %w: %w", in, errs.ErrTypeMismatch, ErrUnsupportedType)
	}

	m, err := Compute(actual, predicted, opt)
	if err != nil {
		return nil, err
	}
	return &Report{Metrics: m}, nil
}

func evaluateTables(ctx context.Context, in Tables, opt *Options) (*Report, error) {
	if in.Actual == nil || in.Predicted == nil {
		return nil, fmt.Errorf("tables, %w: %w", errs.ErrTypeMismatch, ErrNilOperand)
	}
	names := in.Actual.Names()
	if err := sameColumns(names, in.Predicted.Names()); err != nil {
		return nil, err
	}
	index := in.Actual.Index()

	if !opt.SeparateSeries {
		actual, err := flatten(in.Actual, names, index)
		if err != nil {
			return nil, err
		}
		predicted, err := flatten(in.Predicted, names, index)
		if err != nil {
			return nil, err
		}
		m, err := Compute(actual, predicted, opt)
		if err != nil {
			return nil, err
		}
		return &Report{Metrics: m}, nil
	}

	opt.Logger.Debug("scoring columns separately", "columns", len(names), "rows", len(index))
	metrics := make([]Metrics, len(names))
	g, gctx := errgroup.WithContext(ctx)
	if opt.Workers > 0 {
		g.SetLimit(opt.Workers)
	}
	for i, name := range names {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			actual, err := in.Actual.Aligned(name, index)
			if err != nil {
				return err
			}
			predicted, err := in.Predicted.Aligned(name, index)
			if err != nil {
				return err
			}
			m, err := Compute(actual, predicted, opt)
			if err != nil {
				return &errs.ColumnError{Column: name, Err: err}
			}
			metrics[i] = *m
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &Report{Table: &MetricsTable{Columns: names, Metrics: metrics}}, nil
}

func sameColumns(actual, predicted []string) error {
	if len(actual) != len(predicted) {
		return fmt.Errorf(
			"%d actual and %d predicted columns, %w: %w",
			len(actual), len(predicted), errs.ErrTypeMismatch, ErrColumnMismatch,
		)
	}
	set := make(map[string]struct{}, len(predicted))
	for _, name := range predicted {
		set[name] = struct{}{}
	}
	for _, name := range actual {
		if _, exists := set[name]; !exists {
			return fmt.Errorf("column %q, %w: %w", name, errs.ErrTypeMismatch, ErrColumnMismatch)
		}
	}
	return nil
}

// flatten reads the table row by row on index
func flatten(tbl *timedataset.Table, names []string, index []time.Time) ([]float64, error) {
	cols := make([][]float64, 0, len(names))
	for _, name := range names {
		col, err := tbl.Aligned(name, index)
		if err != nil {
			return nil, err
		}
		cols = append(cols, col)
	}
	res := make([]float64, 0, len(index)*len(names))
	for i := range index {
		for _, col := range cols {
			res = append(res, col[i])
		}
	}
	return res, nil
}

// MetricsTable holds per column metrics. Rows are the metrics of Names, columns keep the
// order of the scored table.
type MetricsTable struct {
	Columns []string  `json:"columns"`
	Metrics []Metrics `json:"metrics"`
}

// Column returns the metrics of a single column
func (t *MetricsTable) Column(name string) (*Metrics, error) {
	for i, col := range t.Columns {
		if col == name {
			m := t.Metrics[i]
			return &m, nil
		}
	}
	return nil, fmt.Errorf("column %q, %w", name, timedataset.ErrUnknownColumn)
}

// Row returns the values of a metric across columns
func (t *MetricsTable) Row(metric string) ([]float64, error) {
	res := make([]float64, 0, len(t.Columns))
	for i := range t.Metrics {
		v, err := t.Metrics[i].Get(metric)
		if err != nil {
			return nil, err
		}
		res = append(res, v)
	}
	return res, nil
}

// Rows returns one row per metric of Names
func (t *MetricsTable) Rows() [][]float64 {
	res := make([][]float64, 0, len(Names))
	for _, name := range Names {
		row, _ := t.Row(name)
		res = append(res, row)
	}
	return res
}
