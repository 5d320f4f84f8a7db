// Package plot renders forecasts, tables and accuracy reports as echarts html pages
package plot

import (
	"errors"
	"io"
	"math"
	"time"

	"github.com/forecastkit/magi"
	"github.com/forecastkit/magi/accuracy"
	"github.com/forecastkit/magi/timedataset"
	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
)

var (
	ErrNoResult  = errors.New("no forecast result to plot")
	ErrNoTable   = errors.New("no table to plot")
	ErrNoReport  = errors.New("no accuracy report to plot")
	ErrNoCharts  = errors.New("no charts to render")
	ErrSeriesLen = errors.New("series name and values have different lengths")
)

// lineData maps missing values to null so echarts draws a gap
func lineData(y []float64) []opts.LineData {
	res := make([]opts.LineData, 0, len(y))
	for _, v := range y {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			res = append(res, opts.LineData{Value: nil})
			continue
		}
		res = append(res, opts.LineData{Value: v})
	}
	return res
}

// padded places y at the end of a series of length n, leaving the head missing
func padded(n int, y []float64) []float64 {
	res := make([]float64, n)
	for i := range res {
		res[i] = math.NaN()
	}
	copy(res[max(n-len(y), 0):], y)
	return res
}

// LineTSeries generates an echart multi-line chart. Every slice of y must have the same length
// as t; missing values are drawn as gaps.
func LineTSeries(title string, seriesName []string, t []time.Time, y [][]float64) (*charts.Line, error) {
	if len(seriesName) != len(y) {
		return nil, ErrSeriesLen
	}
	for _, vals := range y {
		if len(vals) != len(t) {
			return nil, timedataset.ErrDatasetLenMismatch
		}
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithTitleOpts(
			opts.Title{
				Title: title,
			},
		),
		charts.WithTooltipOpts(opts.Tooltip{Trigger: "axis"}),
	)
	line.SetXAxis(t)
	for i, name := range seriesName {
		line.AddSeries(name, lineData(y[i]))
	}
	return line, nil
}

// Forecast plots the observations against the fit and forecast with the prediction interval
// over the forecast periods
func Forecast(title string, res *magi.Result) (*charts.Line, error) {
	if res == nil || res.FullActuals == nil || res.FullFit == nil {
		return nil, ErrNoResult
	}
	n := res.FullActuals.Len()
	observed := padded(n, nil)
	if res.X != nil {
		copy(observed, res.X.Y)
	}
	return LineTSeries(
		title,
		[]string{"Actual", "Forecast", "Upper", "Lower"},
		res.FullActuals.T,
		[][]float64{
			observed,
			res.FullFit.Y,
			padded(n, res.Upper),
			padded(n, res.Lower),
		},
	)
}

// Components plots the trend, seasonality and event parts of a decomposition. It returns nil
// when the result has no components.
func Components(title string, res *magi.Result) (*charts.Line, error) {
	if res == nil {
		return nil, ErrNoResult
	}
	c := res.Components
	if c == nil || c.Trend == nil {
		return nil, nil
	}
	names := []string{"Trend"}
	y := [][]float64{c.Trend.Y}
	if c.Seasonality != nil {
		names = append(names, "Seasonality")
		y = append(y, c.Seasonality.Y)
	}
	if c.Event != nil {
		names = append(names, "Event")
		y = append(y, c.Event.Y)
	}
	return LineTSeries(title, names, c.Trend.T, y)
}

// Residuals plots the in-sample residuals
func Residuals(title string, res *magi.Result) (*charts.Line, error) {
	if res == nil || res.Residuals == nil {
		return nil, ErrNoResult
	}
	return LineTSeries(title, []string{"Residual"}, res.Residuals.T, [][]float64{res.Residuals.Y})
}

// Table plots every column of a table on its index
func Table(title string, tbl *timedataset.Table) (*charts.Line, error) {
	if tbl == nil || tbl.NumColumns() == 0 {
		return nil, ErrNoTable
	}
	index := tbl.Index()
	names := tbl.Names()
	y := make([][]float64, 0, len(names))
	for _, name := range names {
		col, err := tbl.Aligned(name, index)
		if err != nil {
			return nil, err
		}
		y = append(y, col)
	}
	return LineTSeries(title, names, index, y)
}

// Accuracy plots the reported metrics as bars, one series per scored column
func Accuracy(title string, report *accuracy.Report) (*charts.Bar, error) {
	if report == nil || (report.Metrics == nil && report.Table == nil) {
		return nil, ErrNoReport
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithTitleOpts(
			opts.Title{
				Title: title,
			},
		),
	)
	bar.SetXAxis(accuracy.Names)

	if report.Metrics != nil {
		bar.AddSeries("all", barData(report.Metrics))
		return bar, nil
	}
	for i, col := range report.Table.Columns {
		bar.AddSeries(col, barData(&report.Table.Metrics[i]))
	}
	return bar, nil
}

func barData(m *accuracy.Metrics) []opts.BarData {
	vals := m.Values()
	res := make([]opts.BarData, 0, len(vals))
	for _, v := range vals {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			res = append(res, opts.BarData{Value: nil})
			continue
		}
		res = append(res, opts.BarData{Value: v})
	}
	return res
}

// ForecastPage renders the forecast, its components when present and its residuals to w
func ForecastPage(w io.Writer, res *magi.Result) error {
	fit, err := Forecast("Forecast Fit", res)
	if err != nil {
		return err
	}
	chartList := []components.Charter{fit}

	comp, err := Components("Forecast Components", res)
	if err != nil {
		return err
	}
	if comp != nil {
		chartList = append(chartList, comp)
	}

	if res.Residuals != nil {
		resid, err := Residuals("Forecast Residual", res)
		if err != nil {
			return err
		}
		chartList = append(chartList, resid)
	}
	return Render(w, chartList...)
}

// Render writes the charts to w as a single html page
func Render(w io.Writer, chartList ...components.Charter) error {
	if len(chartList) == 0 {
		return ErrNoCharts
	}
	page := components.NewPage()
	page.AddCharts(chartList...)
	return page.Render(w)
}
