// Package magi forecasts a single labelled time series or every column of a table of series
// with interchangeable engines. A model specification string selects the model of the
// classical engine; the decomposition engine fits trend, seasonality and holiday effects.
// Engine outputs are indexed back onto time and returned as canonical Result records, or
// joined into a table in the order of the input columns.
package magi

import (
	"context"
	"errors"
	"fmt"

	"github.com/forecastkit/magi/backend"
	"github.com/forecastkit/magi/errs"
	"github.com/forecastkit/magi/timedataset"
)

var (
	ErrNoData    = errors.New("no series or table to forecast")
	ErrNotSeries = errors.New("held data is not a single series")
	ErrNotTable  = errors.New("held data is not a table")
)

// Data is the working data of a Forecaster, either a SeriesData or a TableData
type Data interface {
	isData()
}

// SeriesData holds a single series
type SeriesData struct {
	Series *timedataset.TimeDataset
}

// TableData holds a table of independent series
type TableData struct {
	Table *timedataset.Table
}

func (SeriesData) isData() {}
func (TableData) isData()  {}

// Forecaster holds the working data, the forecasting defaults and the engine sessions. Methods
// never modify the held data; Clean returns a new Forecaster.
type Forecaster struct {
	opt *Options

	data       Data
	engine     backend.Engine
	decomposer Decomposer
}

// New creates a Forecaster over a copy of data. Either engine may be nil when the
// corresponding methods are not used. Nil options use the defaults.
func New(data Data, engine backend.Engine, decomposer Decomposer, opt *Options) (*Forecaster, error) {
	opt, err := opt.Validate()
	if err != nil {
		return nil, err
	}

	f := &Forecaster{
		opt:        opt,
		engine:     engine,
		decomposer: decomposer,
	}
	switch d := data.(type) {
	case SeriesData:
		if d.Series == nil {
			return nil, fmt.Errorf("%w: %w", errs.ErrConfiguration, ErrNoData)
		}
		f.data = SeriesData{Series: d.Series.Copy()}
	case TableData:
		if d.Table == nil {
			return nil, fmt.Errorf("%w: %w", errs.ErrConfiguration, ErrNoData)
		}
		f.data = TableData{Table: d.Table.Copy()}
	default:
		return nil, fmt.Errorf("%w: %w", errs.ErrConfiguration, ErrNoData)
	}

	if f.opt.Frequency == "" {
		freq, err := f.inferFrequency()
		if err != nil {
			return nil, fmt.Errorf("unable to infer frequency, %w: %w", errs.ErrConfiguration, err)
		}
		f.opt.Frequency = freq
		f.opt.Logger.Debug("inferred frequency", "frequency", freq)
	}
	return f, nil
}

// NewFromSeries is New over a single series
func NewFromSeries(series *timedataset.TimeDataset, engine backend.Engine, decomposer Decomposer, opt *Options) (*Forecaster, error) {
	return New(SeriesData{Series: series}, engine, decomposer, opt)
}

// NewFromTable is New over a table of series
func NewFromTable(tbl *timedataset.Table, engine backend.Engine, decomposer Decomposer, opt *Options) (*Forecaster, error) {
	return New(TableData{Table: tbl}, engine, decomposer, opt)
}

func (f *Forecaster) inferFrequency() (timedataset.Frequency, error) {
	switch d := f.data.(type) {
	case SeriesData:
		return timedataset.InferFrequency(d.Series.T)
	case TableData:
		return timedataset.InferFrequency(d.Table.Index())
	}
	return "", ErrNoData
}

// Options returns a copy of the resolved options
func (f *Forecaster) Options() Options {
	if f == nil {
		return *NewDefaultOptions()
	}
	return *f.opt
}

// Frequency returns the frequency the held data is forecast at
func (f *Forecaster) Frequency() timedataset.Frequency {
	if f == nil {
		return ""
	}
	return f.opt.Frequency
}

// Series returns a copy of the held series, or nil when the Forecaster holds a table
func (f *Forecaster) Series() *timedataset.TimeDataset {
	if f == nil {
		return nil
	}
	if d, ok := f.data.(SeriesData); ok {
		return d.Series.Copy()
	}
	return nil
}

// Table returns a copy of the held table, or nil when the Forecaster holds a single series
func (f *Forecaster) Table() *timedataset.Table {
	if f == nil {
		return nil
	}
	if d, ok := f.data.(TableData); ok {
		return d.Table.Copy()
	}
	return nil
}

func (f *Forecaster) series() (*timedataset.TimeDataset, error) {
	if f == nil {
		return nil, ErrNoData
	}
	d, ok := f.data.(SeriesData)
	if !ok {
		return nil, fmt.Errorf("%w: %w", errs.ErrConfiguration, ErrNotSeries)
	}
	return d.Series, nil
}

func (f *Forecaster) table() (*timedataset.Table, error) {
	if f == nil {
		return nil, ErrNoData
	}
	d, ok := f.data.(TableData)
	if !ok {
		return nil, fmt.Errorf("%w: %w", errs.ErrConfiguration, ErrNotTable)
	}
	return d.Table, nil
}

// Forecast forecasts the held series with the model specification spec
func (f *Forecaster) Forecast(ctx context.Context, spec string) (*Result, error) {
	series, err := f.series()
	if err != nil {
		return nil, err
	}
	f.opt.Logger.Debug("forecasting series",
		"series", series.Name,
		"model", spec,
		"horizon", f.opt.Horizon,
	)
	return ForecastOne(ctx, f.engine, series, spec, f.opt.Horizon, f.opt.Frequency, f.opt.Level)
}

// ForecastTable forecasts every column of the held table with the model specification spec
// and joins the selected series of each result into a table
func (f *Forecaster) ForecastTable(ctx context.Context, spec string, sel Selection) (*TableResult, error) {
	tbl, err := f.table()
	if err != nil {
		return nil, err
	}
	f.opt.Logger.Debug("forecasting table",
		"columns", tbl.NumColumns(),
		"model", spec,
		"selection", sel.String(),
		"policy", f.opt.Policy.String(),
	)
	task := func(ctx context.Context, name string, series *timedataset.TimeDataset) (*timedataset.TimeDataset, error) {
		res, err := ForecastOne(ctx, f.engine, series, spec, f.opt.Horizon, f.opt.Frequency, f.opt.Level)
		if err != nil {
			return nil, &errs.ColumnError{Column: name, Spec: spec, Err: err}
		}
		return res.Select(sel)
	}
	return FanOut(ctx, tbl, task, f.opt)
}

// Decompose forecasts the held series with the decomposition engine
func (f *Forecaster) Decompose(ctx context.Context) (*Result, error) {
	series, err := f.series()
	if err != nil {
		return nil, err
	}
	return DecomposeOne(ctx, f.decomposer, series, f.opt.Horizon, f.opt.Frequency)
}

// DecomposeTable forecasts every column of the held table with the decomposition engine
func (f *Forecaster) DecomposeTable(ctx context.Context, sel Selection) (*TableResult, error) {
	tbl, err := f.table()
	if err != nil {
		return nil, err
	}
	task := func(ctx context.Context, name string, series *timedataset.TimeDataset) (*timedataset.TimeDataset, error) {
		res, err := DecomposeOne(ctx, f.decomposer, series, f.opt.Horizon, f.opt.Frequency)
		if err != nil {
			return nil, &errs.ColumnError{Column: name, Spec: MethodDecompose, Err: err}
		}
		return res.Select(sel)
	}
	return FanOut(ctx, tbl, task, f.opt)
}

// Clean replaces outliers in the held data and, when replaceMissing is set, interpolates
// missing values. The cleaned data is returned in a new Forecaster sharing the options and
// engines. A table is cleaned column by column and any failing column fails the whole clean.
func (f *Forecaster) Clean(ctx context.Context, replaceMissing bool) (*Forecaster, error) {
	if f == nil {
		return nil, ErrNoData
	}
	next := &Forecaster{
		opt:        f.opt,
		engine:     f.engine,
		decomposer: f.decomposer,
	}

	switch d := f.data.(type) {
	case SeriesData:
		cleaned, err := CleanOne(ctx, f.engine, d.Series, f.opt.Frequency, replaceMissing)
		if err != nil {
			return nil, err
		}
		next.data = SeriesData{Series: cleaned}
	case TableData:
		opt := *f.opt
		opt.Policy = FailFast
		task := func(ctx context.Context, name string, series *timedataset.TimeDataset) (*timedataset.TimeDataset, error) {
			return CleanOne(ctx, f.engine, series, f.opt.Frequency, replaceMissing)
		}
		res, err := FanOut(ctx, d.Table, task, &opt)
		if err != nil {
			return nil, err
		}
		next.data = TableData{Table: res.Table}
	default:
		return nil, ErrNoData
	}
	return next, nil
}

// Close releases the engine session
func (f *Forecaster) Close() error {
	if f == nil || f.engine == nil {
		return nil
	}
	return f.engine.Close()
}
