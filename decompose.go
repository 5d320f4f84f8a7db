package magi

import (
	"context"
	"fmt"
	"time"

	"github.com/forecastkit/magi/decompose"
	"github.com/forecastkit/magi/errs"
	"github.com/forecastkit/magi/timedataset"
)

// MethodDecompose is the method name reported by decomposition results
const MethodDecompose = "prophet"

// Decomposer fits a trend and seasonality model on a series and predicts over its history
// followed by horizon periods. *decompose.Engine implements it.
type Decomposer interface {
	Decompose(ctx context.Context, t []time.Time, y []float64, horizon int, freq timedataset.Frequency) (*decompose.Prediction, error)
}

// DecomposeOne forecasts a single series with the decomposition engine. The history part of
// the prediction becomes the fitted values and the rest the point forecast.
func DecomposeOne(
	ctx context.Context,
	d Decomposer,
	series *timedataset.TimeDataset,
	horizon int,
	freq timedataset.Frequency,
) (*Result, error) {
	name := seriesName(series)
	if d == nil {
		return nil, fmt.Errorf("series %q, %w: %w", name, errs.ErrConfiguration, ErrNoDecomposer)
	}
	if horizon <= 0 {
		return nil, fmt.Errorf("series %q, horizon %d, %w: %w", name, horizon, errs.ErrConfiguration, ErrNonPositiveHorizon)
	}
	window, err := series.Window()
	if err != nil {
		return nil, fmt.Errorf("unable to extract series %q, %w", name, err)
	}

	pred, err := d.Decompose(ctx, window.T, window.Values(), horizon, freq)
	if err != nil {
		return nil, fmt.Errorf("unable to decompose series %q, %w", name, errs.Backend(MethodDecompose, err))
	}
	res, err := assembleDecomposition(window, pred, horizon)
	if err != nil {
		return nil, fmt.Errorf("unable to assemble decomposition of series %q, %w", name, err)
	}
	return res, nil
}

func assembleDecomposition(window *timedataset.TimeDataset, pred *decompose.Prediction, horizon int) (*Result, error) {
	if pred == nil {
		return nil, fmt.Errorf("nil prediction, %w: %w", errs.ErrBackendExecution, ErrShape)
	}
	n := window.Len()
	total := n + horizon
	lengths := map[string]int{
		"time":        len(pred.T),
		"yhat":        len(pred.YHat),
		"yhat_lower":  len(pred.YHatLower),
		"yhat_upper":  len(pred.YHatUpper),
		"trend":       len(pred.Components.Trend),
		"seasonality": len(pred.Components.Seasonality),
		"event":       len(pred.Components.Event),
	}
	for label, got := range lengths {
		if got != total {
			return nil, fmt.Errorf(
				"%s has length %d, expected %d, %w: %w",
				label, got, total, errs.ErrBackendExecution, ErrShape,
			)
		}
	}
	if pred.History != n {
		return nil, fmt.Errorf(
			"history of %d points, expected %d, %w: %w",
			pred.History, n, errs.ErrBackendExecution, ErrShape,
		)
	}

	dataset := func(t []time.Time, y []float64) (*timedataset.TimeDataset, error) {
		return timedataset.NewNamedDataset(window.Name, t, y)
	}
	fullFit, err := dataset(pred.T, pred.YHat)
	if err != nil {
		return nil, err
	}
	fitted, err := dataset(pred.T[:n], pred.YHat[:n])
	if err != nil {
		return nil, err
	}
	predicted, err := dataset(pred.T[n:], pred.YHat[n:])
	if err != nil {
		return nil, err
	}
	resid := make([]float64, n)
	for i := range resid {
		resid[i] = window.Y[i] - pred.YHat[i]
	}
	residuals, err := dataset(pred.T[:n], resid)
	if err != nil {
		return nil, err
	}
	fullActuals, err := window.Concat(predicted)
	if err != nil {
		return nil, fmt.Errorf("unable to join actual and predicted values, %w", err)
	}

	comp := &Components{}
	if comp.Trend, err = dataset(pred.T, pred.Components.Trend); err != nil {
		return nil, err
	}
	if comp.Seasonality, err = dataset(pred.T, pred.Components.Seasonality); err != nil {
		return nil, err
	}
	if comp.Event, err = dataset(pred.T, pred.Components.Event); err != nil {
		return nil, err
	}

	lower := make([]float64, horizon)
	upper := make([]float64, horizon)
	copy(lower, pred.YHatLower[n:])
	copy(upper, pred.YHatUpper[n:])

	return &Result{
		Spec:        MethodDecompose,
		Model:       pred.Model,
		Method:      MethodDecompose,
		Predicted:   predicted,
		Lower:       lower,
		Upper:       upper,
		Level:       int(pred.Level),
		X:           window,
		Residuals:   residuals,
		Fitted:      fitted,
		FullFit:     fullFit,
		FullActuals: fullActuals,
		Components:  comp,
	}, nil
}
