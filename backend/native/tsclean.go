package native

import (
	"context"
	"fmt"
	"math"

	"github.com/forecastkit/magi/backend"
	"github.com/forecastkit/magi/errs"
	"github.com/forecastkit/magi/stats"
	"gonum.org/v1/gonum/floats"
)

const (
	smoothWindow       = 5
	remainderTolerance = 1e-9
)

// Clean replaces outliers by linear interpolation. Outliers are remainders of a seasonal and
// trend decomposition lying beyond OutlierFactor interquartile ranges of the quartiles. Missing
// values are interpolated only when replaceMissing is set.
func (e *Engine) Clean(ctx context.Context, data backend.Periodic, replaceMissing bool) ([]float64, error) {
	if e.closed.Load() {
		return nil, fmt.Errorf("%w: %w", errs.ErrBackendExecution, ErrClosed)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	res, err := tsclean(data.Values, max(data.Period, 1), replaceMissing, e.opt.OutlierFactor)
	if err != nil {
		return nil, fmt.Errorf("unable to clean series, %w: %w", errs.ErrBackendExecution, err)
	}
	return res, nil
}

func tsclean(y []float64, m int, replaceMissing bool, factor float64) ([]float64, error) {
	var missing []int
	for i, v := range y {
		if math.IsNaN(v) {
			missing = append(missing, i)
		}
	}
	filled, err := stats.Interpolate(y)
	if err != nil {
		return nil, err
	}

	var remainder []float64
	if c, ok := classical(filled, m); ok {
		remainder = c.remainder
	} else {
		smooth := runningMedian(filled, smoothWindow)
		remainder = make([]float64, len(filled))
		for i := range filled {
			remainder[i] = filled[i] - smooth[i]
		}
	}
	// missing points carry no information about the remainder distribution
	for _, i := range missing {
		remainder[i] = math.NaN()
	}

	// remainders within rounding of an exact decomposition are never outliers
	tol := remainderTolerance * floats.Norm(filled, math.Inf(1))
	var outliers []int
	for _, i := range stats.DetectOutliers(remainder, 0.25, 0.75, factor) {
		if math.Abs(remainder[i]) > tol {
			outliers = append(outliers, i)
		}
	}

	cleaned := filled
	if len(outliers) > 0 {
		cleaned = make([]float64, len(filled))
		copy(cleaned, filled)
		for _, i := range outliers {
			cleaned[i] = math.NaN()
		}
		if cleaned, err = stats.Interpolate(cleaned); err != nil {
			return nil, err
		}
	}

	if !replaceMissing {
		for _, i := range missing {
			cleaned[i] = math.NaN()
		}
	}
	return cleaned, nil
}
