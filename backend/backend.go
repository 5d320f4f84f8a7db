// Package backend defines the contract between the orchestration layer and the numeric
// forecasting engines. Engines receive a periodic array and a typed call and hand back raw
// arrays; indexing them by time is left to the caller.
package backend

import (
	"context"

	"github.com/forecastkit/magi/dispatch"
	"gonum.org/v1/gonum/mat"
)

// Engine is an acquired engine session. A session is created once, shared read only by
// concurrent tasks and released with Close.
type Engine interface {
	// Forecast evaluates the call against the series
	Forecast(ctx context.Context, call dispatch.Call, data Periodic) (*Raw, error)

	// Clean replaces outliers in the series and, when replaceMissing is set, interpolates
	// missing values. The result has the same length as the input.
	Clean(ctx context.Context, data Periodic, replaceMissing bool) ([]float64, error)

	Close() error
}

// Periodic is a trimmed series together with its seasonal period
type Periodic struct {
	Values []float64
	Period int
}

// Len returns the number of observations
func (p Periodic) Len() int {
	return len(p.Values)
}

// Raw is the unindexed output of a forecast call. Mean, Lower and Upper may come back as a
// vector or as a nested matrix depending on the model family; use Flatten before indexing.
type Raw struct {
	Model     any
	Method    string
	Mean      mat.Matrix
	Lower     mat.Matrix
	Upper     mat.Matrix
	Level     []float64
	X         []float64
	Residuals []float64
	Fitted    []float64
}

// Vector wraps values as a column vector. Empty input returns a nil matrix.
func Vector(values []float64) mat.Matrix {
	if len(values) == 0 {
		return nil
	}
	v := make([]float64, len(values))
	copy(v, values)
	return mat.NewVecDense(len(v), v)
}

// Nested wraps values as a single row matrix, the doubly nested shape some model families
// return their point forecast in.
func Nested(values []float64) mat.Matrix {
	if len(values) == 0 {
		return nil
	}
	v := make([]float64, len(values))
	copy(v, values)
	return mat.NewDense(1, len(v), v)
}

// Flatten returns the elements of m in row major order regardless of its rank
func Flatten(m mat.Matrix) []float64 {
	if m == nil {
		return nil
	}
	r, c := m.Dims()
	res := make([]float64, 0, r*c)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			res = append(res, m.At(i, j))
		}
	}
	return res
}
