package magi

import (
	"context"
	"errors"
	"fmt"

	"github.com/forecastkit/magi/backend"
	"github.com/forecastkit/magi/dispatch"
	"github.com/forecastkit/magi/errs"
	"github.com/forecastkit/magi/timedataset"
)

var (
	ErrNoEngine     = errors.New("no engine session")
	ErrShape        = errors.New("engine output has an unexpected shape")
	ErrNoLevel      = errors.New("engine returned no confidence level")
	ErrNoDecomposer = errors.New("no decomposition engine")
)

// ForecastOne forecasts a single series with the model specification spec. The series is
// trimmed to its first and last observation, handed to the engine as a periodic array, and the
// raw output is indexed back onto time: fitted values and residuals from the first observed
// timestamp, the point forecast from one period after the last.
func ForecastOne(
	ctx context.Context,
	engine backend.Engine,
	series *timedataset.TimeDataset,
	spec string,
	horizon int,
	freq timedataset.Frequency,
	level float64,
) (*Result, error) {
	name := seriesName(series)
	if engine == nil {
		return nil, fmt.Errorf("series %q, %w: %w", name, errs.ErrConfiguration, ErrNoEngine)
	}

	call, err := dispatch.NewCall(spec, horizon, level)
	if err != nil {
		return nil, fmt.Errorf("series %q, %w", name, err)
	}
	period, err := freq.Period()
	if err != nil {
		return nil, fmt.Errorf("series %q, %w", name, err)
	}
	window, err := series.Window()
	if err != nil {
		return nil, fmt.Errorf("unable to extract series %q, %w", name, err)
	}

	raw, err := engine.Forecast(ctx, call, backend.Periodic{Values: window.Values(), Period: period})
	if err != nil {
		return nil, fmt.Errorf("unable to forecast series %q, %w", name, errs.Backend(spec, err))
	}
	res, err := assemble(window, call, raw, freq)
	if err != nil {
		return nil, fmt.Errorf("unable to assemble forecast of series %q with model %q, %w", name, spec, err)
	}
	return res, nil
}

func assemble(window *timedataset.TimeDataset, call dispatch.Call, raw *backend.Raw, freq timedataset.Frequency) (*Result, error) {
	if raw == nil {
		return nil, fmt.Errorf("nil output, %w: %w", errs.ErrBackendExecution, ErrShape)
	}
	n := window.Len()
	mean := backend.Flatten(raw.Mean)
	lower := backend.Flatten(raw.Lower)
	upper := backend.Flatten(raw.Upper)

	shapes := []struct {
		name string
		got  int
		want int
	}{
		{"mean", len(mean), call.Horizon},
		{"lower", len(lower), call.Horizon},
		{"upper", len(upper), call.Horizon},
		{"x", len(raw.X), n},
		{"fitted", len(raw.Fitted), n},
		{"residuals", len(raw.Residuals), n},
	}
	for _, s := range shapes {
		if s.got != s.want {
			return nil, fmt.Errorf(
				"%s has length %d, expected %d, %w: %w",
				s.name, s.got, s.want, errs.ErrBackendExecution, ErrShape,
			)
		}
	}
	if len(raw.Level) == 0 {
		return nil, fmt.Errorf("%w: %w", errs.ErrBackendExecution, ErrNoLevel)
	}

	first := window.T[0]
	last := window.T[n-1]
	predicted, err := timedataset.Reindex(window.Name, last, mean, freq, timedataset.ModeContinuation)
	if err != nil {
		return nil, err
	}
	fitted, err := timedataset.Reindex(window.Name, first, raw.Fitted, freq, timedataset.ModeAlignment)
	if err != nil {
		return nil, err
	}
	residuals, err := timedataset.Reindex(window.Name, first, raw.Residuals, freq, timedataset.ModeAlignment)
	if err != nil {
		return nil, err
	}
	fullFit, err := fitted.Concat(predicted)
	if err != nil {
		return nil, fmt.Errorf("unable to join fitted and predicted values, %w", err)
	}
	fullActuals, err := window.Concat(predicted)
	if err != nil {
		return nil, fmt.Errorf("unable to join actual and predicted values, %w", err)
	}

	return &Result{
		Spec:        call.Spec.Raw,
		Model:       raw.Model,
		Method:      raw.Method,
		Predicted:   predicted,
		Lower:       lower,
		Upper:       upper,
		Level:       int(raw.Level[0]),
		X:           window,
		Residuals:   residuals,
		Fitted:      fitted,
		FullFit:     fullFit,
		FullActuals: fullActuals,
	}, nil
}

// CleanOne replaces outliers in a single series and, when replaceMissing is set, interpolates
// its missing values. The cleaned series covers the trimmed window of the input.
func CleanOne(
	ctx context.Context,
	engine backend.Engine,
	series *timedataset.TimeDataset,
	freq timedataset.Frequency,
	replaceMissing bool,
) (*timedataset.TimeDataset, error) {
	name := seriesName(series)
	if engine == nil {
		return nil, fmt.Errorf("series %q, %w: %w", name, errs.ErrConfiguration, ErrNoEngine)
	}
	period, err := freq.Period()
	if err != nil {
		return nil, fmt.Errorf("series %q, %w", name, err)
	}
	window, err := series.Window()
	if err != nil {
		return nil, fmt.Errorf("unable to extract series %q, %w", name, err)
	}

	cleaned, err := engine.Clean(ctx, backend.Periodic{Values: window.Values(), Period: period}, replaceMissing)
	if err != nil {
		return nil, fmt.Errorf("unable to clean series %q, %w", name, errs.Backend("tsclean", err))
	}
	if len(cleaned) != window.Len() {
		return nil, fmt.Errorf(
			"series %q cleaned to length %d, expected %d, %w: %w",
			name, len(cleaned), window.Len(), errs.ErrBackendExecution, ErrShape,
		)
	}
	return timedataset.Reindex(window.Name, window.T[0], cleaned, freq, timedataset.ModeAlignment)
}

func seriesName(series *timedataset.TimeDataset) string {
	if series == nil {
		return ""
	}
	return series.Name
}
