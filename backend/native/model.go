package native

import (
	"math"
)

// Model is the fitted model handle returned as the raw model of a forecast
type Model struct {
	// Name is the registered function or model that produced the fit
	Name string

	// Params holds the estimated parameters keyed by their conventional names
	Params map[string]float64

	method     string
	fitted     []float64
	sigma      float64
	sse        float64
	numParams  int
	nestedMean bool
	forecast   func(h int) (mean, se []float64)
}

func (m *Model) Method() string {
	if m == nil {
		return ""
	}
	return m.method
}

func (m *Model) Fitted() []float64 {
	if m == nil {
		return nil
	}
	res := make([]float64, len(m.fitted))
	copy(res, m.fitted)
	return res
}

func (m *Model) Forecast(h int) ([]float64, []float64) {
	if m == nil || m.forecast == nil || h <= 0 {
		return nil, nil
	}
	return m.forecast(h)
}

func (m *Model) NestedMean() bool {
	return m != nil && m.nestedMean
}

// Sigma returns the residual standard deviation
func (m *Model) Sigma() float64 {
	if m == nil {
		return math.NaN()
	}
	return m.sigma
}

// AIC returns a least squares Akaike information criterion of the fit
func (m *Model) AIC() float64 {
	if m == nil {
		return math.Inf(1)
	}
	var n int
	for _, v := range m.fitted {
		if !math.IsNaN(v) {
			n++
		}
	}
	if n == 0 || m.sse <= 0 {
		return math.Inf(-1)
	}
	return float64(n)*math.Log(m.sse/float64(n)) + 2*float64(m.numParams+1)
}

func sumSquares(y, fitted []float64) float64 {
	var sse float64
	for i := range y {
		if math.IsNaN(fitted[i]) {
			continue
		}
		e := y[i] - fitted[i]
		sse += e * e
	}
	return sse
}
