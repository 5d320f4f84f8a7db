// Package native is an in-process classical forecasting engine. It implements the
// backend.Engine contract with a registry of forecasting functions (meanf, naive, thetaf, ...)
// and fit models (ses, holt, ets, arima, auto.arima, sarima), plus the tsclean outlier routine.
package native

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync/atomic"

	"github.com/forecastkit/magi/backend"
	"github.com/forecastkit/magi/dispatch"
	"github.com/forecastkit/magi/errs"
	"github.com/forecastkit/magi/stats"
	"gonum.org/v1/gonum/mat"
)

const (
	DefaultMaxP          = 3
	DefaultMaxQ          = 3
	DefaultMaxD          = 2
	DefaultOutlierFactor = 3.0
)

var (
	ErrClosed           = errors.New("engine session is closed")
	ErrUnknownFunction  = errors.New("could not find function")
	ErrInsufficientData = errors.New("not enough observations for model")
	ErrShape            = errors.New("model returned inconsistent shapes")
)

// Options configures an engine session
type Options struct {
	// MaxP, MaxQ and MaxD bound the auto.arima order search
	MaxP int
	MaxQ int
	MaxD int

	// OutlierFactor is the multiple of the interquartile range beyond which tsclean treats a
	// remainder as an outlier
	OutlierFactor float64

	Logger *slog.Logger
}

// NewDefaultOptions returns the default engine options
func NewDefaultOptions() *Options {
	return &Options{
		MaxP:          DefaultMaxP,
		MaxQ:          DefaultMaxQ,
		MaxD:          DefaultMaxD,
		OutlierFactor: DefaultOutlierFactor,
		Logger:        slog.Default(),
	}
}

// Engine is an acquired native engine session. It is safe for concurrent use.
type Engine struct {
	opt    *Options
	closed atomic.Bool
}

// New acquires an engine session. Nil options use the defaults.
func New(opt *Options) *Engine {
	if opt == nil {
		opt = NewDefaultOptions()
	}
	if opt.Logger == nil {
		opt.Logger = slog.Default()
	}
	return &Engine{opt: opt}
}

// Forecast fits the called model on the series and extrapolates it over the call horizon
func (e *Engine) Forecast(ctx context.Context, call dispatch.Call, data backend.Periodic) (*backend.Raw, error) {
	if e.closed.Load() {
		return nil, fmt.Errorf("%w: %w", errs.ErrBackendExecution, ErrClosed)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	fitter, exists := Lookup(call.Kind, call.Name())
	if !exists {
		return nil, fmt.Errorf("%w: %w %q", errs.ErrBackendExecution, ErrUnknownFunction, call.Name())
	}

	y, err := stats.Interpolate(data.Values)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errs.ErrBackendExecution, err)
	}

	fit, err := fitter(e.input(backend.Periodic{Values: y, Period: max(data.Period, 1)}), call.Spec.Extra())
	if err != nil {
		return nil, fmt.Errorf("unable to fit %s, %w: %w", call.Name(), errs.ErrBackendExecution, err)
	}

	raw, err := assemble(fit, data.Values, call.Horizon, call.Levels)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errs.ErrBackendExecution, err)
	}
	e.opt.Logger.Debug("fitted model", "expr", call.Expr(), "method", raw.Method, "n", len(data.Values))
	return raw, nil
}

// Close releases the session. Calls after Close fail.
func (e *Engine) Close() error {
	e.closed.Store(true)
	return nil
}

// Input is the data handed to a Fitter together with the engine options
type Input struct {
	backend.Periodic
	opt *Options
}

// Options returns the options of the session running the fit
func (in Input) Options() *Options {
	if in.opt == nil {
		return NewDefaultOptions()
	}
	return in.opt
}

func (e *Engine) input(p backend.Periodic) Input {
	return Input{Periodic: p, opt: e.opt}
}

// Fit is a fitted model able to extrapolate
type Fit interface {
	Method() string

	// Fitted returns the one step ahead in-sample estimates, NaN where undefined
	Fitted() []float64

	// Forecast returns the point forecast and its standard error for each step
	Forecast(h int) (mean, se []float64)
}

// nested is implemented by fits whose point forecast comes back doubly nested
type nested interface {
	NestedMean() bool
}

func assemble(fit Fit, x []float64, h int, levels []float64) (*backend.Raw, error) {
	mean, se := fit.Forecast(h)
	if len(mean) != h || len(se) != h {
		return nil, fmt.Errorf("forecast of %d steps returned %d means and %d errors, %w", h, len(mean), len(se), ErrShape)
	}
	fitted := fit.Fitted()
	if len(fitted) != len(x) {
		return nil, fmt.Errorf("%d fitted values for %d observations, %w", len(fitted), len(x), ErrShape)
	}

	lower := mat.NewDense(h, len(levels), nil)
	upper := mat.NewDense(h, len(levels), nil)
	for j, level := range levels {
		z, err := stats.ZScore(level)
		if err != nil {
			return nil, err
		}
		for i := 0; i < h; i++ {
			lower.Set(i, j, mean[i]-z*se[i])
			upper.Set(i, j, mean[i]+z*se[i])
		}
	}

	residuals := make([]float64, len(x))
	for i := range x {
		residuals[i] = x[i] - fitted[i]
	}

	meanM := backend.Vector(mean)
	if n, ok := fit.(nested); ok && n.NestedMean() {
		meanM = backend.Nested(mean)
	}

	xCopy := make([]float64, len(x))
	copy(xCopy, x)
	lvls := make([]float64, len(levels))
	copy(lvls, levels)

	return &backend.Raw{
		Model:     fit,
		Method:    fit.Method(),
		Mean:      meanM,
		Lower:     lower,
		Upper:     upper,
		Level:     lvls,
		X:         xCopy,
		Residuals: residuals,
		Fitted:    fitted,
	}, nil
}

// sigma returns the residual standard deviation with k estimated parameters
func sigma(y, fitted []float64, k int) float64 {
	var sse float64
	var m int
	for i := range y {
		if math.IsNaN(fitted[i]) || math.IsNaN(y[i]) {
			continue
		}
		e := y[i] - fitted[i]
		sse += e * e
		m++
	}
	if m == 0 {
		return 0
	}
	dof := m - k
	if dof <= 0 {
		dof = m
	}
	return math.Sqrt(sse / float64(dof))
}

func constant(n int, v float64) []float64 {
	res := make([]float64, n)
	for i := range res {
		res[i] = v
	}
	return res
}
