package magi

import (
	"errors"

	"github.com/forecastkit/magi/errs"
	"github.com/forecastkit/magi/timedataset"
)

var ErrNoResult = errors.New("no result or uninitialized")

// Result is the canonical record of a single series forecast. Fitted and Residuals share the
// index of X; Predicted continues one period after the last observation.
type Result struct {
	Spec   string `json:"spec,omitempty"`
	Model  any    `json:"model,omitempty"`
	Method string `json:"method"`

	Predicted *timedataset.TimeDataset `json:"predicted"`
	Lower     []float64                `json:"lower"`
	Upper     []float64                `json:"upper"`
	Level     int                      `json:"level"`

	X         *timedataset.TimeDataset `json:"x"`
	Residuals *timedataset.TimeDataset `json:"residuals"`
	Fitted    *timedataset.TimeDataset `json:"fitted"`

	FullFit     *timedataset.TimeDataset `json:"full_fit"`
	FullActuals *timedataset.TimeDataset `json:"full_actuals"`

	// Components is only set by the decomposition engine
	Components *Components `json:"components,omitempty"`
}

// Components holds the additive parts of a decomposition over the full fit index
type Components struct {
	Trend       *timedataset.TimeDataset `json:"trend"`
	Seasonality *timedataset.TimeDataset `json:"seasonality"`
	Event       *timedataset.TimeDataset `json:"event"`
}

// Horizon returns the number of forecast periods
func (r *Result) Horizon() int {
	if r == nil {
		return 0
	}
	return r.Predicted.Len()
}

// TableResult is the outcome of a table run. Columns keep the order of the input table; the
// index of Table is the union of every column index.
type TableResult struct {
	Table *timedataset.Table `json:"table"`

	// Failures lists the columns left out of Table, in column order. Only populated with the
	// Isolate policy.
	Failures []*errs.ColumnError `json:"-"`
}

// Failed returns the names of the columns that failed
func (t *TableResult) Failed() []string {
	if t == nil {
		return nil
	}
	names := make([]string, 0, len(t.Failures))
	for _, f := range t.Failures {
		names = append(names, f.Column)
	}
	return names
}
