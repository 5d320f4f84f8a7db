package native

import (
	"fmt"
	"math"

	"github.com/forecastkit/magi/dispatch"
	"github.com/forecastkit/magi/stats"
	"github.com/sartorproj/goarima/sarima"
	"github.com/sartorproj/goarima/timeseries"
)

// sarimaConfidence is the interval level requested from the seasonal model, its half width is
// turned back into a standard error
const sarimaConfidence = 0.95

// fitSarima estimates a multiplicative seasonal arima, order=c(p,d,q) and
// seasonal=c(P,D,Q), defaulting to the airline model on seasonal data
func fitSarima(in Input, args dispatch.Args) (Fit, error) {
	m := max(in.Period, 1)
	order := []int{0, 1, 1}
	seasonal := []int{0, 1, 1}
	if m < 2 {
		seasonal = []int{0, 0, 0}
	}
	var err error
	if args.Has("order") {
		if order, err = args.Ints("order"); err != nil {
			return nil, err
		}
	}
	if args.Has("seasonal") {
		if seasonal, err = args.Ints("seasonal"); err != nil {
			return nil, err
		}
	}
	if len(order) != 3 || len(seasonal) != 3 {
		return nil, fmt.Errorf("order %v seasonal %v, %w", order, seasonal, ErrUnsupportedOrder)
	}
	for _, v := range append(append([]int(nil), order...), seasonal...) {
		if v < 0 {
			return nil, fmt.Errorf("order %v seasonal %v, %w", order, seasonal, ErrUnsupportedOrder)
		}
	}
	if m < 2 && (seasonal[0] > 0 || seasonal[1] > 0 || seasonal[2] > 0) {
		return nil, fmt.Errorf("seasonal %v on a period of %d, %w", seasonal, m, ErrUnsupportedOrder)
	}

	y := in.Values
	model := sarima.New(order[0], order[1], order[2], seasonal[0], seasonal[1], seasonal[2], m)
	if err := model.Fit(timeseries.New(append([]float64(nil), y...))); err != nil {
		return nil, fmt.Errorf("%s, %w: %w", sarimaMethod(order, seasonal, m), ErrInsufficientData, err)
	}

	offset := order[1] + seasonal[1]*m
	resid := model.Residuals()
	fitted := make([]float64, len(y))
	for t := range y {
		if t < offset || t-offset >= len(resid) {
			fitted[t] = math.NaN()
			continue
		}
		fitted[t] = y[t] - resid[t-offset]
	}

	params := map[string]float64{"intercept": model.Intercept}
	for i, c := range model.ARCoeffs {
		params[fmt.Sprintf("ar%d", i+1)] = c
	}
	for i, c := range model.MACoeffs {
		params[fmt.Sprintf("ma%d", i+1)] = c
	}
	for i, c := range model.SARCoeffs {
		params[fmt.Sprintf("sar%d", i+1)] = c
	}
	for i, c := range model.SMACoeffs {
		params[fmt.Sprintf("sma%d", i+1)] = c
	}

	z, err := stats.ZScore(100 * sarimaConfidence)
	if err != nil {
		return nil, err
	}
	return &Model{
		Name:      "sarima",
		Params:    params,
		method:    sarimaMethod(order, seasonal, m),
		fitted:    fitted,
		sigma:     math.Sqrt(model.Variance),
		sse:       sumSquares(y, fitted),
		numParams: order[0] + order[2] + seasonal[0] + seasonal[2] + 1,
		forecast: func(h int) ([]float64, []float64) {
			mean, lower, upper, err := model.PredictWithInterval(h, sarimaConfidence)
			if err != nil {
				return nil, nil
			}
			se := make([]float64, h)
			for i := range se {
				se[i] = (upper[i] - lower[i]) / (2 * z)
			}
			return mean, se
		},
	}, nil
}

func sarimaMethod(order, seasonal []int, m int) string {
	method := fmt.Sprintf("ARIMA(%d,%d,%d)", order[0], order[1], order[2])
	if seasonal[0]+seasonal[1]+seasonal[2] > 0 {
		method += fmt.Sprintf("(%d,%d,%d)[%d]", seasonal[0], seasonal[1], seasonal[2], m)
	}
	return method
}
