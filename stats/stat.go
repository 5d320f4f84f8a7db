// Package stats holds the small statistical helpers shared by the engines: outlier detection,
// quantiles, gap interpolation and normal interval widths.
package stats

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

var (
	ErrNoObservations = errors.New("no non-missing observations")
	ErrInvalidLevel   = errors.New("confidence level must be within (0, 100)")
)

// DetectOutliers returns the indices of values outside the percentile range widened by
// tukeyFactor times the inner range. NaN values are ignored.
func DetectOutliers(y []float64, lowerPerc, upperPerc, tukeyFactor float64) []int {
	lowerPerc = math.Max(lowerPerc, 0.0)
	upperPerc = math.Min(upperPerc, 1.0)
	tukeyFactor = math.Max(tukeyFactor, 0.0)

	yCopy := dropNaN(y)
	if len(yCopy) == 0 {
		return nil
	}
	sort.Float64s(yCopy)

	lower := Quantile(yCopy, lowerPerc)
	upper := Quantile(yCopy, upperPerc)
	innerRange := upper - lower
	lower -= innerRange * tukeyFactor
	upper += innerRange * tukeyFactor

	var outlierIdx []int
	for i := 0; i < len(y); i++ {
		if math.IsNaN(y[i]) {
			continue
		}
		if y[i] > upper || y[i] < lower {
			outlierIdx = append(outlierIdx, i)
		}
	}
	return outlierIdx
}

// Quantile returns the p-quantile of sorted values using linear interpolation between order
// statistics.
func Quantile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return math.NaN()
	}
	return stat.Quantile(p, stat.LinInterp, sorted, nil)
}

// Interpolate fills NaN gaps by linear interpolation between the nearest observed neighbours.
// Leading and trailing gaps take the nearest observed value.
func Interpolate(y []float64) ([]float64, error) {
	res := make([]float64, len(y))
	copy(res, y)

	var observed []int
	for i, v := range res {
		if !math.IsNaN(v) {
			observed = append(observed, i)
		}
	}
	if len(observed) == 0 {
		return nil, ErrNoObservations
	}

	for i := 0; i < observed[0]; i++ {
		res[i] = res[observed[0]]
	}
	last := observed[len(observed)-1]
	for i := last + 1; i < len(res); i++ {
		res[i] = res[last]
	}
	for k := 1; k < len(observed); k++ {
		left, right := observed[k-1], observed[k]
		if right-left < 2 {
			continue
		}
		step := (res[right] - res[left]) / float64(right-left)
		for i := left + 1; i < right; i++ {
			res[i] = res[left] + step*float64(i-left)
		}
	}
	return res, nil
}

// ZScore returns the two-sided normal quantile for a confidence level given in percent,
// e.g. 1.28 for 80.
func ZScore(level float64) (float64, error) {
	if level <= 0 || level >= 100 {
		return 0, fmt.Errorf("got %.2f, %w", level, ErrInvalidLevel)
	}
	return distuv.UnitNormal.Quantile(0.5 + level/200.0), nil
}

// StdDev returns the sample standard deviation of the non-missing values
func StdDev(y []float64) float64 {
	vals := dropNaN(y)
	if len(vals) < 2 {
		return 0
	}
	return stat.StdDev(vals, nil)
}

func dropNaN(y []float64) []float64 {
	res := make([]float64, 0, len(y))
	for _, v := range y {
		if math.IsNaN(v) {
			continue
		}
		res = append(res, v)
	}
	return res
}
