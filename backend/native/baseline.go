package native

import (
	"fmt"
	"math"

	"github.com/forecastkit/magi/dispatch"
	"gonum.org/v1/gonum/stat"
)

func fitMean(in Input, _ dispatch.Args) (Fit, error) {
	y := in.Values
	n := len(y)
	if n == 0 {
		return nil, ErrInsufficientData
	}
	mu := stat.Mean(y, nil)
	fitted := constant(n, mu)
	s := sigma(y, fitted, 1)
	return &Model{
		Name:      "meanf",
		Params:    map[string]float64{"mu": mu},
		method:    "Mean",
		fitted:    fitted,
		sigma:     s,
		sse:       sumSquares(y, fitted),
		numParams: 1,
		forecast: func(h int) ([]float64, []float64) {
			return constant(h, mu), constant(h, s*math.Sqrt(1+1/float64(n)))
		},
	}, nil
}

func fitNaive(in Input, _ dispatch.Args) (Fit, error) {
	return randomWalk(in.Values, "naive", "Naive method", false)
}

func fitRandomWalk(in Input, args dispatch.Args) (Fit, error) {
	drift, err := args.Bool("drift", false)
	if err != nil {
		return nil, err
	}
	method := "Random walk"
	if drift {
		method = "Random walk with drift"
	}
	return randomWalk(in.Values, "rwf", method, drift)
}

func randomWalk(y []float64, name, method string, drift bool) (*Model, error) {
	n := len(y)
	if n == 0 || (drift && n < 2) {
		return nil, ErrInsufficientData
	}

	var b float64
	k := 0
	if drift {
		b = (y[n-1] - y[0]) / float64(n-1)
		k = 1
	}
	fitted := make([]float64, n)
	fitted[0] = math.NaN()
	for i := 1; i < n; i++ {
		fitted[i] = y[i-1] + b
	}
	s := sigma(y, fitted, k)
	last := y[n-1]

	return &Model{
		Name:      name,
		Params:    map[string]float64{"drift": b},
		method:    method,
		fitted:    fitted,
		sigma:     s,
		sse:       sumSquares(y, fitted),
		numParams: k,
		forecast: func(h int) ([]float64, []float64) {
			mean := make([]float64, h)
			se := make([]float64, h)
			for i := 0; i < h; i++ {
				step := float64(i + 1)
				mean[i] = last + b*step
				if drift {
					se[i] = s * math.Sqrt(step*(1+step/float64(n-1)))
				} else {
					se[i] = s * math.Sqrt(step)
				}
			}
			return mean, se
		},
	}, nil
}

func fitSeasonalNaive(in Input, _ dispatch.Args) (Fit, error) {
	y := in.Values
	n := len(y)
	m := max(in.Period, 1)
	if n < m || n == 0 {
		return nil, fmt.Errorf("seasonal naive with period %d on %d observations, %w", m, n, ErrInsufficientData)
	}

	fitted := make([]float64, n)
	for i := range fitted {
		if i < m {
			fitted[i] = math.NaN()
			continue
		}
		fitted[i] = y[i-m]
	}
	s := sigma(y, fitted, 0)
	lastSeason := make([]float64, m)
	copy(lastSeason, y[n-m:])

	return &Model{
		Name:   "snaive",
		Params: map[string]float64{"period": float64(m)},
		method: "Seasonal naive method",
		fitted: fitted,
		sigma:  s,
		sse:    sumSquares(y, fitted),
		forecast: func(h int) ([]float64, []float64) {
			mean := make([]float64, h)
			se := make([]float64, h)
			for i := 0; i < h; i++ {
				mean[i] = lastSeason[i%m]
				se[i] = s * math.Sqrt(float64(i/m+1))
			}
			return mean, se
		},
	}, nil
}

// fitTheta is simple exponential smoothing with drift equal to half the slope of the linear
// trend, applied to the seasonally adjusted series when two full seasons are available.
func fitTheta(in Input, _ dispatch.Args) (Fit, error) {
	n := len(in.Values)
	if n < 2 {
		return nil, ErrInsufficientData
	}
	m := max(in.Period, 1)

	y := make([]float64, n)
	copy(y, in.Values)
	var seasonal []float64
	if c, ok := classical(y, m); ok {
		seasonal = c.index
		for i := range y {
			y[i] -= c.seasonal[i]
		}
	}

	alpha, ses := optimizeSES(y)
	t := make([]float64, n)
	for i := range t {
		t[i] = float64(i)
	}
	_, slope := stat.LinearRegression(t, y, nil, false)
	drift := slope / 2

	fitted := ses.fitted
	for i := range fitted {
		if seasonal != nil {
			fitted[i] += seasonal[i%m]
		}
	}
	s := sigma(in.Values, fitted, 2)
	level := ses.level
	adj := (1 - math.Pow(1-alpha, float64(n))) / alpha

	return &Model{
		Name:      "thetaf",
		Params:    map[string]float64{"alpha": alpha, "drift": drift},
		method:    "Theta",
		fitted:    fitted,
		sigma:     s,
		sse:       sumSquares(in.Values, fitted),
		numParams: 2,
		forecast: func(h int) ([]float64, []float64) {
			mean := make([]float64, h)
			se := make([]float64, h)
			for i := 0; i < h; i++ {
				mean[i] = level + drift*(float64(i)+adj)
				if seasonal != nil {
					mean[i] += seasonal[(n+i)%m]
				}
				se[i] = s * math.Sqrt(1+alpha*alpha*float64(i))
			}
			return mean, se
		},
	}, nil
}

// fitSpline extrapolates the linear limit of a smoothing spline. Its point forecast comes back
// as a single row matrix.
func fitSpline(in Input, _ dispatch.Args) (Fit, error) {
	y := in.Values
	n := len(y)
	if n < 3 {
		return nil, ErrInsufficientData
	}
	t := make([]float64, n)
	for i := range t {
		t[i] = float64(i)
	}
	a, b := stat.LinearRegression(t, y, nil, false)
	fitted := make([]float64, n)
	for i := range fitted {
		fitted[i] = a + b*t[i]
	}
	s := sigma(y, fitted, 2)
	tMean := stat.Mean(t, nil)
	var sxx float64
	for _, v := range t {
		sxx += (v - tMean) * (v - tMean)
	}

	return &Model{
		Name:       "splinef",
		Params:     map[string]float64{"intercept": a, "slope": b},
		method:     "Linear smoothing spline",
		fitted:     fitted,
		sigma:      s,
		sse:        sumSquares(y, fitted),
		numParams:  2,
		nestedMean: true,
		forecast: func(h int) ([]float64, []float64) {
			mean := make([]float64, h)
			se := make([]float64, h)
			for i := 0; i < h; i++ {
				tf := float64(n + i)
				mean[i] = a + b*tf
				se[i] = s * math.Sqrt(1+1/float64(n)+(tf-tMean)*(tf-tMean)/sxx)
			}
			return mean, se
		},
	}, nil
}
