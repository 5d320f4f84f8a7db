// Package accuracy scores predicted values against actual values. Inputs may be a forecast
// result, two arrays, two series or two tables; tables can be scored as a whole or column by
// column.
package accuracy

import (
	"errors"
	"fmt"
	"math"

	"github.com/forecastkit/magi/errs"
	"github.com/goccy/go-json"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// DefaultMAPEOffset is added to every actual value in the MAPE denominator
const DefaultMAPEOffset = 1.0

var (
	ErrLenMismatch   = errors.New("predicted and actual have different lengths")
	ErrNoValues      = errors.New("no values to score")
	ErrUnknownMetric = errors.New("unknown metric name")
	ErrInvalidPeriod = errors.New("period must be positive and shorter than the in-sample data")
)

// Names lists the reported metrics in report order
var Names = []string{"MAPE", "SMAPE", "ME", "MAE", "MSE", "RMSE", "ThielsU", "ACF1"}

// Metrics holds the scores of one predicted/actual pair. SSE is computed alongside the
// reported metrics but is not part of Names.
type Metrics struct {
	MAPE    float64 `json:"MAPE"`    // mean absolute percentage error, in percent
	SMAPE   float64 `json:"SMAPE"`   // symmetric mean absolute percentage error, in percent
	ME      float64 `json:"ME"`      // mean error
	MAE     float64 `json:"MAE"`     // mean absolute error
	MSE     float64 `json:"MSE"`     // mean squared error
	RMSE    float64 `json:"RMSE"`    // root mean squared error
	ThielsU float64 `json:"ThielsU"` // Theil's U statistic
	ACF1    float64 `json:"ACF1"`    // lag 1 autocorrelation of the errors
	SSE     float64 `json:"SSE"`     // sum of squared errors
}

// Get returns the metric called name
func (m *Metrics) Get(name string) (float64, error) {
	switch name {
	case "MAPE":
		return m.MAPE, nil
	case "SMAPE":
		return m.SMAPE, nil
	case "ME":
		return m.ME, nil
	case "MAE":
		return m.MAE, nil
	case "MSE":
		return m.MSE, nil
	case "RMSE":
		return m.RMSE, nil
	case "ThielsU":
		return m.ThielsU, nil
	case "ACF1":
		return m.ACF1, nil
	case "SSE":
		return m.SSE, nil
	}
	return 0, fmt.Errorf("%q, %w", name, ErrUnknownMetric)
}

// Values returns the reported metrics in the order of Names
func (m *Metrics) Values() []float64 {
	return []float64{m.MAPE, m.SMAPE, m.ME, m.MAE, m.MSE, m.RMSE, m.ThielsU, m.ACF1}
}

// Map returns the reported metrics keyed by name
func (m *Metrics) Map() map[string]float64 {
	res := make(map[string]float64, len(Names))
	for i, v := range m.Values() {
		res[Names[i]] = v
	}
	return res
}

// MarshalJSON encodes undefined metrics such as ACF1 of a constant error as null
func (m Metrics) MarshalJSON() ([]byte, error) {
	out := make(map[string]*float64, len(Names)+1)
	for _, name := range append(Names, "SSE") {
		v, _ := m.Get(name)
		if math.IsNaN(v) || math.IsInf(v, 0) {
			out[name] = nil
			continue
		}
		out[name] = &v
	}
	return json.Marshal(out)
}

// Compute scores predicted against actual. Missing values in either operand count as 0.
func Compute(actual, predicted []float64, opt *Options) (*Metrics, error) {
	opt, err := opt.Validate()
	if err != nil {
		return nil, err
	}
	if len(actual) != len(predicted) {
		return nil, fmt.Errorf(
			"actual has length %d, predicted has length %d, %w: %w",
			len(actual), len(predicted), errs.ErrTypeMismatch, ErrLenMismatch,
		)
	}
	if len(actual) == 0 {
		return nil, fmt.Errorf("%w: %w", errs.ErrTypeMismatch, ErrNoValues)
	}

	a := fillNaN(actual)
	p := fillNaN(predicted)
	n := float64(len(a))

	e := make([]float64, len(a))
	floats.SubTo(e, a, p)

	var absErr, pctErr, symErr float64
	for i := range e {
		absErr += math.Abs(e[i])
		pctErr += math.Abs(e[i] / (a[i] + opt.MAPEOffset))
		if denom := math.Abs(a[i]) + math.Abs(p[i]); denom != 0 {
			symErr += 2 * math.Abs(e[i]) / denom
		}
	}
	sse := floats.Dot(e, e)

	return &Metrics{
		MAPE:    pctErr / n * 100,
		SMAPE:   symErr / n * 100,
		ME:      stat.Mean(e, nil),
		MAE:     absErr / n,
		MSE:     sse / n,
		RMSE:    math.Sqrt(sse / n),
		ThielsU: math.Sqrt(sse / floats.Dot(a, a)),
		ACF1:    acf1(e),
		SSE:     sse,
	}, nil
}

// acf1 is the lag 1 autocovariance of e normalised by its variance. A constant error series
// yields NaN.
func acf1(e []float64) float64 {
	m := stat.Mean(e, nil)
	var num, den float64
	for i := range e {
		d := e[i] - m
		den += d * d
		if i > 0 {
			num += d * (e[i-1] - m)
		}
	}
	if den == 0 {
		return math.NaN()
	}
	return num / den
}

// MASE scales the mean absolute error of predicted against actual by the in-sample mean
// absolute error of the seasonal naive forecast with the given period
func MASE(insample, actual, predicted []float64, period int) (float64, error) {
	if len(actual) != len(predicted) {
		return 0, fmt.Errorf("%w: %w", errs.ErrTypeMismatch, ErrLenMismatch)
	}
	if len(actual) == 0 {
		return 0, fmt.Errorf("%w: %w", errs.ErrTypeMismatch, ErrNoValues)
	}
	if period <= 0 || period >= len(insample) {
		return 0, fmt.Errorf("period %d with %d in-sample values, %w: %w", period, len(insample), errs.ErrConfiguration, ErrInvalidPeriod)
	}

	var naive float64
	for i := period; i < len(insample); i++ {
		naive += math.Abs(insample[i] - insample[i-period])
	}
	naive /= float64(len(insample) - period)

	var mae float64
	for i := range actual {
		mae += math.Abs(actual[i] - predicted[i])
	}
	mae /= float64(len(actual))
	return mae / naive, nil
}

func fillNaN(y []float64) []float64 {
	res := make([]float64, len(y))
	for i, v := range y {
		if math.IsNaN(v) {
			continue
		}
		res[i] = v
	}
	return res
}
