package timedataset

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/forecastkit/magi/errs"
)

var (
	ErrNoTrainingData     = errors.New("no training data")
	ErrNonMontonic        = errors.New("time feature is not monotonic")
	ErrDatasetLenMismatch = errors.New("time feature has a different length than observations")
)

// TimeDataset represents a time series storing a slice of time points and values.
// Both must be of the same length. Missing observations are stored as NaN.
type TimeDataset struct {
	Name string
	T    []time.Time
	Y    []float64
}

// NewUnivariateDataset returns an instance of a TimeDataset given a time and value slice.
// Both slices are copied so later changes by the caller are not observed.
func NewUnivariateDataset(t []time.Time, y []float64) (*TimeDataset, error) {
	if len(y) == 0 {
		return nil, ErrNoTrainingData
	}
	if len(t) != len(y) {
		return nil, fmt.Errorf(
			"time feature has length of %d, but values has a length of %d, %w",
			len(t), len(y), ErrDatasetLenMismatch,
		)
	}

	var lastT time.Time
	for i := 0; i < len(t); i++ {
		currT := t[i]
		if i > 0 && !currT.After(lastT) {
			return nil, fmt.Errorf("non-monotonic at %d, %w", i, ErrNonMontonic)
		}
		lastT = currT
	}

	tSeries := make([]time.Time, len(t))
	ySeries := make([]float64, len(t))
	copy(tSeries, t)
	copy(ySeries, y)
	td := &TimeDataset{
		T: tSeries,
		Y: ySeries,
	}

	return td, nil
}

// NewNamedDataset is NewUnivariateDataset with a series label attached.
func NewNamedDataset(name string, t []time.Time, y []float64) (*TimeDataset, error) {
	td, err := NewUnivariateDataset(t, y)
	if err != nil {
		return nil, fmt.Errorf("series %q: %w", name, err)
	}
	td.Name = name
	return td, nil
}

func (td *TimeDataset) Copy() *TimeDataset {
	if td == nil {
		return nil
	}
	tSeries := make([]time.Time, len(td.T))
	ySeries := make([]float64, len(td.Y))
	copy(tSeries, td.T)
	copy(ySeries, td.Y)
	return &TimeDataset{
		Name: td.Name,
		T:    tSeries,
		Y:    ySeries,
	}
}

// Len returns the number of observations including missing ones
func (td *TimeDataset) Len() int {
	if td == nil {
		return 0
	}
	return len(td.Y)
}

// Window returns the contiguous sub-series from the first to the last non-missing observation,
// inclusive. Missing values inside the window are kept as NaN.
func (td *TimeDataset) Window() (*TimeDataset, error) {
	if td == nil || len(td.Y) == 0 {
		return nil, errs.ErrEmptySeries
	}
	if len(td.T) != len(td.Y) {
		return nil, fmt.Errorf(
			"time feature has length of %d, but values has a length of %d, %w",
			len(td.T), len(td.Y), ErrDatasetLenMismatch,
		)
	}

	start := -1
	for i, v := range td.Y {
		if !math.IsNaN(v) {
			start = i
			break
		}
	}
	if start < 0 {
		if td.Name != "" {
			return nil, fmt.Errorf("series %q: %w", td.Name, errs.ErrEmptySeries)
		}
		return nil, errs.ErrEmptySeries
	}

	end := start
	for i := len(td.Y) - 1; i >= start; i-- {
		if !math.IsNaN(td.Y[i]) {
			end = i
			break
		}
	}

	tSeries := make([]time.Time, end-start+1)
	ySeries := make([]float64, end-start+1)
	copy(tSeries, td.T[start:end+1])
	copy(ySeries, td.Y[start:end+1])
	return &TimeDataset{
		Name: td.Name,
		T:    tSeries,
		Y:    ySeries,
	}, nil
}

// DropNan returns a copy of the dataset without missing observations
func (td *TimeDataset) DropNan() *TimeDataset {
	if td == nil {
		return nil
	}
	res := &TimeDataset{
		Name: td.Name,
		T:    make([]time.Time, 0, len(td.T)),
		Y:    make([]float64, 0, len(td.Y)),
	}
	for i := 0; i < len(td.Y); i++ {
		if math.IsNaN(td.Y[i]) {
			continue
		}
		res.T = append(res.T, td.T[i])
		res.Y = append(res.Y, td.Y[i])
	}
	return res
}

// Concat appends the observations of next after td. The first timestamp of next must come
// after the last timestamp of td so the result stays strictly increasing.
func (td *TimeDataset) Concat(next *TimeDataset) (*TimeDataset, error) {
	if td == nil || next == nil {
		return nil, ErrNoTrainingData
	}
	if len(td.T) > 0 && len(next.T) > 0 && !next.T[0].After(td.T[len(td.T)-1]) {
		return nil, fmt.Errorf(
			"%s does not come after %s, %w",
			next.T[0], td.T[len(td.T)-1], ErrNonMontonic,
		)
	}
	res := &TimeDataset{
		Name: td.Name,
		T:    make([]time.Time, 0, len(td.T)+len(next.T)),
		Y:    make([]float64, 0, len(td.Y)+len(next.Y)),
	}
	res.T = append(res.T, td.T...)
	res.T = append(res.T, next.T...)
	res.Y = append(res.Y, td.Y...)
	res.Y = append(res.Y, next.Y...)
	return res, nil
}

// Values returns a copy of the observations
func (td *TimeDataset) Values() []float64 {
	if td == nil {
		return nil
	}
	y := make([]float64, len(td.Y))
	copy(y, td.Y)
	return y
}
