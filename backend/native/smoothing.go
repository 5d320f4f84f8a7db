package native

import (
	"fmt"
	"math"

	"github.com/forecastkit/magi/dispatch"
	"gonum.org/v1/gonum/stat"
)

// smoothing parameters are chosen from a grid minimising the one step ahead squared error
var (
	sesGrid  = grid(0.01, 0.99, 0.01)
	holtGrid = grid(0.05, 0.95, 0.05)
	hwGrid   = grid(0.1, 0.9, 0.1)
)

func grid(lo, hi, step float64) []float64 {
	var res []float64
	for v := lo; v <= hi+step/2; v += step {
		res = append(res, math.Round(v*1e6)/1e6)
	}
	return res
}

// candidates returns the override when the argument is present, otherwise the search grid
func candidates(args dispatch.Args, key string, search []float64) ([]float64, error) {
	if !args.Has(key) {
		return search, nil
	}
	v, err := args.Float(key, 0)
	if err != nil {
		return nil, err
	}
	if v <= 0 || v >= 1 {
		return nil, fmt.Errorf("%s=%.3f must be within (0, 1), %w", key, v, dispatch.ErrInvalidArg)
	}
	return []float64{v}, nil
}

type sesState struct {
	fitted []float64
	level  float64
	sse    float64
}

func sesFilter(y []float64, alpha float64) *sesState {
	st := &sesState{fitted: make([]float64, len(y)), level: y[0]}
	for i, v := range y {
		st.fitted[i] = st.level
		e := v - st.level
		st.sse += e * e
		st.level += alpha * e
	}
	return st
}

func optimizeSES(y []float64) (float64, *sesState) {
	return searchSES(y, sesGrid)
}

func searchSES(y []float64, alphas []float64) (float64, *sesState) {
	var (
		best      *sesState
		bestAlpha float64
	)
	for _, a := range alphas {
		st := sesFilter(y, a)
		if best == nil || st.sse < best.sse {
			best, bestAlpha = st, a
		}
	}
	return bestAlpha, best
}

func fitSES(in Input, args dispatch.Args) (Fit, error) {
	y := in.Values
	if len(y) < 2 {
		return nil, ErrInsufficientData
	}
	alphas, err := candidates(args, "alpha", sesGrid)
	if err != nil {
		return nil, err
	}
	alpha, st := searchSES(y, alphas)
	s := sigma(y, st.fitted, 2)
	level := st.level

	return &Model{
		Name:      "ses",
		Params:    map[string]float64{"alpha": alpha, "l": level},
		method:    "Simple exponential smoothing",
		fitted:    st.fitted,
		sigma:     s,
		sse:       st.sse,
		numParams: 2,
		forecast: func(h int) ([]float64, []float64) {
			se := make([]float64, h)
			for i := range se {
				se[i] = s * math.Sqrt(1+alpha*alpha*float64(i))
			}
			return constant(h, level), se
		},
	}, nil
}

type holtState struct {
	fitted []float64
	level  float64
	trend  float64
	sse    float64
}

func holtFilter(y []float64, alpha, beta float64) *holtState {
	b := y[1] - y[0]
	st := &holtState{fitted: make([]float64, len(y)), level: y[0] - b, trend: b}
	for i, v := range y {
		yhat := st.level + st.trend
		st.fitted[i] = yhat
		e := v - yhat
		st.sse += e * e
		level := alpha*v + (1-alpha)*yhat
		st.trend = beta*(level-st.level) + (1-beta)*st.trend
		st.level = level
	}
	return st
}

func fitHolt(in Input, args dispatch.Args) (Fit, error) {
	return holt(in.Values, args)
}

func holt(y []float64, args dispatch.Args) (*Model, error) {
	if len(y) < 3 {
		return nil, ErrInsufficientData
	}
	alphas, err := candidates(args, "alpha", holtGrid)
	if err != nil {
		return nil, err
	}
	betas, err := candidates(args, "beta", holtGrid)
	if err != nil {
		return nil, err
	}

	var (
		best                *holtState
		bestAlpha, bestBeta float64
	)
	for _, a := range alphas {
		for _, b := range betas {
			st := holtFilter(y, a, b)
			if best == nil || st.sse < best.sse {
				best, bestAlpha, bestBeta = st, a, b
			}
		}
	}
	s := sigma(y, best.fitted, 4)
	level, trend := best.level, best.trend
	alpha, beta := bestAlpha, bestBeta

	return &Model{
		Name:      "holt",
		Params:    map[string]float64{"alpha": alpha, "beta": beta, "l": level, "b": trend},
		method:    "Holt's method",
		fitted:    best.fitted,
		sigma:     s,
		sse:       best.sse,
		numParams: 4,
		forecast: func(h int) ([]float64, []float64) {
			mean := make([]float64, h)
			se := make([]float64, h)
			var acc float64
			for i := 0; i < h; i++ {
				mean[i] = level + float64(i+1)*trend
				if i > 0 {
					c := alpha * (1 + float64(i)*beta)
					acc += c * c
				}
				se[i] = s * math.Sqrt(1+acc)
			}
			return mean, se
		},
	}, nil
}

type hwState struct {
	fitted   []float64
	level    float64
	trend    float64
	seasonal []float64
	sse      float64
}

func hwFilter(y []float64, m int, alpha, beta, gamma float64) *hwState {
	l0 := stat.Mean(y[:m], nil)
	b0 := (stat.Mean(y[m:2*m], nil) - l0) / float64(m)
	st := &hwState{
		fitted:   make([]float64, len(y)),
		level:    l0,
		trend:    b0,
		seasonal: make([]float64, m),
	}
	for k := 0; k < m; k++ {
		st.seasonal[k] = y[k] - l0
	}
	for i, v := range y {
		k := i % m
		yhat := st.level + st.trend + st.seasonal[k]
		st.fitted[i] = yhat
		e := v - yhat
		st.sse += e * e
		level := alpha*(v-st.seasonal[k]) + (1-alpha)*(st.level+st.trend)
		st.trend = beta*(level-st.level) + (1-beta)*st.trend
		st.seasonal[k] = gamma*(v-level) + (1-gamma)*st.seasonal[k]
		st.level = level
	}
	return st
}

func fitHoltWinters(in Input, args dispatch.Args) (Fit, error) {
	return holtWinters(in.Values, max(in.Period, 1), args)
}

func holtWinters(y []float64, m int, args dispatch.Args) (*Model, error) {
	if m < 2 || len(y) < 2*m {
		return nil, fmt.Errorf("additive seasonality with period %d needs %d observations, got %d, %w", m, 2*m, len(y), ErrInsufficientData)
	}
	alphas, err := candidates(args, "alpha", hwGrid)
	if err != nil {
		return nil, err
	}
	betas, err := candidates(args, "beta", hwGrid)
	if err != nil {
		return nil, err
	}
	gammas, err := candidates(args, "gamma", hwGrid)
	if err != nil {
		return nil, err
	}

	var (
		best                           *hwState
		bestAlpha, bestBeta, bestGamma float64
	)
	for _, a := range alphas {
		for _, b := range betas {
			for _, g := range gammas {
				st := hwFilter(y, m, a, b, g)
				if best == nil || st.sse < best.sse {
					best, bestAlpha, bestBeta, bestGamma = st, a, b, g
				}
			}
		}
	}

	n := len(y)
	numParams := 5 + m - 1
	s := sigma(y, best.fitted, numParams)
	level, trend, seasonal := best.level, best.trend, best.seasonal
	alpha, beta, gamma := bestAlpha, bestBeta, bestGamma

	return &Model{
		Name:      "hw",
		Params:    map[string]float64{"alpha": alpha, "beta": beta, "gamma": gamma, "l": level, "b": trend},
		method:    "Holt-Winters' additive method",
		fitted:    best.fitted,
		sigma:     s,
		sse:       best.sse,
		numParams: numParams,
		forecast: func(h int) ([]float64, []float64) {
			mean := make([]float64, h)
			se := make([]float64, h)
			var acc float64
			for i := 0; i < h; i++ {
				mean[i] = level + float64(i+1)*trend + seasonal[(n+i)%m]
				if i > 0 {
					c := alpha * (1 + float64(i)*beta)
					if i%m == 0 {
						c += gamma
					}
					acc += c * c
				}
				se[i] = s * math.Sqrt(1+acc)
			}
			return mean, se
		},
	}, nil
}

// fitETS picks the additive error exponential smoothing model with the lowest AIC among
// simple, trended and, when two seasons are available, seasonal variants.
func fitETS(in Input, args dispatch.Args) (Fit, error) {
	labels := map[string]string{
		"ses":  "ETS(A,N,N)",
		"holt": "ETS(A,A,N)",
		"hw":   "ETS(A,A,A)",
	}

	var best *Model
	consider := func(fit Fit, err error) {
		if err != nil {
			return
		}
		m := fit.(*Model)
		if best == nil || m.AIC() < best.AIC() {
			best = m
		}
	}
	consider(fitSES(in, args))
	consider(fitHolt(in, args))
	if m := max(in.Period, 1); m > 1 && len(in.Values) >= 2*m {
		consider(fitHoltWinters(in, args))
	}
	if best == nil {
		return nil, ErrInsufficientData
	}

	res := *best
	res.Name = "ets"
	res.method = labels[best.Name]
	return &res, nil
}
