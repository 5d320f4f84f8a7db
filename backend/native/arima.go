package native

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/forecastkit/magi/dispatch"
	"gonum.org/v1/gonum/optimize"
	"gonum.org/v1/gonum/stat"
)

var ErrUnsupportedOrder = errors.New("unsupported arima order")

// cssEvaluations bounds the objective evaluations per estimated parameter
const cssEvaluations = 300

type arimaOrder struct {
	p, d, q int

	// seasonal differencing order and period
	sd, period int

	mean bool
}

func (o arimaOrder) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "ARIMA(%d,%d,%d)", o.p, o.d, o.q)
	if o.sd > 0 {
		fmt.Fprintf(&sb, "(0,%d,0)[%d]", o.sd, o.period)
	}
	if o.mean {
		sb.WriteString(" with non-zero mean")
	}
	return sb.String()
}

func (o arimaOrder) numParams() int {
	k := o.p + o.q
	if o.mean {
		k++
	}
	return k
}

// diffPoly returns the coefficients of (1-B)^d (1-B^m)^D with the zero lag first
func diffPoly(d, sd, m int) []float64 {
	poly := []float64{1}
	for i := 0; i < d; i++ {
		poly = polyMul(poly, []float64{1, -1})
	}
	if sd > 0 && m > 1 {
		seasonal := make([]float64, m+1)
		seasonal[0], seasonal[m] = 1, -1
		for i := 0; i < sd; i++ {
			poly = polyMul(poly, seasonal)
		}
	}
	return poly
}

func polyMul(a, b []float64) []float64 {
	res := make([]float64, len(a)+len(b)-1)
	for i, x := range a {
		for j, y := range b {
			res[i+j] += x * y
		}
	}
	return res
}

func applyDiff(y, poly []float64) []float64 {
	offset := len(poly) - 1
	if len(y) <= offset {
		return nil
	}
	w := make([]float64, len(y)-offset)
	for t := offset; t < len(y); t++ {
		var v float64
		for k, c := range poly {
			v += c * y[t-k]
		}
		w[t-offset] = v
	}
	return w
}

// cssResiduals runs the conditional sum of squares recursion. params holds the ar
// coefficients, then the ma coefficients, then the mean when included.
func cssResiduals(w []float64, o arimaOrder, params []float64) []float64 {
	phi := params[:o.p]
	theta := params[o.p : o.p+o.q]
	var mu float64
	if o.mean {
		mu = params[o.p+o.q]
	}
	e := make([]float64, len(w))
	for t := o.p; t < len(w); t++ {
		pred := mu
		for i, c := range phi {
			pred += c * (w[t-1-i] - mu)
		}
		for j, c := range theta {
			if t-1-j >= 0 {
				pred += c * e[t-1-j]
			}
		}
		e[t] = w[t] - pred
	}
	return e
}

func estimateArima(y []float64, o arimaOrder) (*Model, error) {
	poly := diffPoly(o.d, o.sd, o.period)
	w := applyDiff(y, poly)
	k := o.numParams()
	if len(w) < o.p+o.q+3 {
		return nil, fmt.Errorf("%s on %d differenced observations, %w", o, len(w), ErrInsufficientData)
	}

	params := make([]float64, k)
	if o.mean {
		params[k-1] = stat.Mean(w, nil)
	}
	if k > 0 {
		objective := func(x []float64) float64 {
			if !admissible(x[:o.p]) || !admissible(x[o.p:o.p+o.q]) {
				return math.MaxFloat64
			}
			var css float64
			for _, e := range cssResiduals(w, o, x) {
				css += e * e
			}
			if math.IsNaN(css) || math.IsInf(css, 0) {
				return math.MaxFloat64
			}
			return css
		}
		settings := &optimize.Settings{
			MajorIterations: cssEvaluations * k,
			FuncEvaluations: cssEvaluations * (k + 1),
		}
		res, err := optimize.Minimize(optimize.Problem{Func: objective}, params, settings, &optimize.NelderMead{})
		if res == nil {
			return nil, fmt.Errorf("unable to estimate %s, %w", o, err)
		}
		params = res.X
	}

	e := cssResiduals(w, o, params)
	var css float64
	for _, v := range e {
		css += v * v
	}
	terms := len(w) - o.p
	dof := terms - k
	if dof <= 0 {
		dof = terms
	}
	s := math.Sqrt(css / float64(dof))

	offset := len(poly) - 1
	fitted := make([]float64, len(y))
	for t := range y {
		if t < offset {
			fitted[t] = y[t]
			continue
		}
		fitted[t] = y[t] - e[t-offset]
	}

	named := make(map[string]float64, k)
	for i := 0; i < o.p; i++ {
		named[fmt.Sprintf("ar%d", i+1)] = params[i]
	}
	for j := 0; j < o.q; j++ {
		named[fmt.Sprintf("ma%d", j+1)] = params[o.p+j]
	}
	if o.mean {
		named["mean"] = params[k-1]
	}

	psi := psiWeights(params[:o.p], params[o.p:o.p+o.q], poly)
	history := append([]float64(nil), y...)
	wHist := append([]float64(nil), w...)
	eHist := append([]float64(nil), e...)

	return &Model{
		Name:      "arima",
		Params:    named,
		method:    o.String(),
		fitted:    fitted,
		sigma:     s,
		sse:       css,
		numParams: k,
		forecast: func(h int) ([]float64, []float64) {
			return arimaForecast(history, wHist, eHist, o, params, poly, h), arimaErrors(psi, s, h)
		},
	}, nil
}

// admissible keeps the ar and ma polynomials inside the stationary and invertible region
func admissible(coef []float64) bool {
	var sum float64
	for _, c := range coef {
		sum += math.Abs(c)
	}
	return sum < 1
}

func arimaForecast(y, w, e []float64, o arimaOrder, params, poly []float64, h int) []float64 {
	phi := params[:o.p]
	theta := params[o.p : o.p+o.q]
	var mu float64
	if o.mean {
		mu = params[o.p+o.q]
	}

	w = append([]float64(nil), w...)
	e = append([]float64(nil), e...)
	x := append([]float64(nil), y...)
	mean := make([]float64, h)
	for i := 0; i < h; i++ {
		t := len(w)
		pred := mu
		for j, c := range phi {
			if t-1-j >= 0 {
				pred += c * (w[t-1-j] - mu)
			}
		}
		for j, c := range theta {
			if t-1-j >= 0 {
				pred += c * e[t-1-j]
			}
		}
		w = append(w, pred)
		e = append(e, 0)

		// undo the differencing: x_t = w_t - sum_{k>=1} poly_k x_{t-k}
		next := pred
		n := len(x)
		for k := 1; k < len(poly); k++ {
			next -= poly[k] * x[n-k]
		}
		x = append(x, next)
		mean[i] = next
	}
	return mean
}

// psiWeights expands the moving average representation of the differenced model
func psiWeights(phi, theta, poly []float64) func(j int) float64 {
	ar := make([]float64, len(phi)+1)
	ar[0] = 1
	for i, c := range phi {
		ar[i+1] = -c
	}
	full := polyMul(ar, poly)
	star := make([]float64, len(full))
	for i := 1; i < len(full); i++ {
		star[i] = -full[i]
	}

	var cache []float64
	return func(j int) float64 {
		for len(cache) <= j {
			k := len(cache)
			if k == 0 {
				cache = append(cache, 1)
				continue
			}
			var v float64
			if k <= len(theta) {
				v = theta[k-1]
			}
			for i := 1; i < len(star) && i <= k; i++ {
				v += star[i] * cache[k-i]
			}
			cache = append(cache, v)
		}
		return cache[j]
	}
}

func arimaErrors(psi func(int) float64, s float64, h int) []float64 {
	se := make([]float64, h)
	var acc float64
	for i := 0; i < h; i++ {
		p := psi(i)
		acc += p * p
		se[i] = s * math.Sqrt(acc)
	}
	return se
}

func fitArima(in Input, args dispatch.Args) (Fit, error) {
	order := []int{0, 0, 0}
	if args.Has("order") {
		var err error
		order, err = args.Ints("order")
		if err != nil {
			return nil, err
		}
	}
	if len(order) != 3 || order[0] < 0 || order[1] < 0 || order[2] < 0 {
		return nil, fmt.Errorf("order %v, %w", order, ErrUnsupportedOrder)
	}

	o := arimaOrder{p: order[0], d: order[1], q: order[2], period: max(in.Period, 1)}
	if args.Has("seasonal") {
		seasonal, err := args.Ints("seasonal")
		if err != nil {
			return nil, err
		}
		if len(seasonal) != 3 || seasonal[0] != 0 || seasonal[2] != 0 || seasonal[1] < 0 {
			return nil, fmt.Errorf("seasonal %v, only seasonal differencing is supported, %w", seasonal, ErrUnsupportedOrder)
		}
		o.sd = seasonal[1]
	}

	mean, err := args.Bool("include.mean", o.d == 0 && o.sd == 0)
	if err != nil {
		return nil, err
	}
	o.mean = mean

	return estimateArima(in.Values, o)
}

// chooseDifferencing increases the differencing order while it keeps reducing the variance
func chooseDifferencing(y []float64, maxD int) int {
	cur := stat.Variance(y, nil)
	d := 0
	for d < maxD {
		next := applyDiff(y, diffPoly(d+1, 0, 1))
		if len(next) < 3 {
			break
		}
		v := stat.Variance(next, nil)
		if v >= cur {
			break
		}
		cur = v
		d++
	}
	return d
}

// acf returns the sample autocorrelation at lag, zero when undefined
func acf(y []float64, lag int) float64 {
	n := len(y)
	if lag <= 0 || lag >= n {
		return 0
	}
	mu := stat.Mean(y, nil)
	var num, den float64
	for i, v := range y {
		den += (v - mu) * (v - mu)
		if i >= lag {
			num += (v - mu) * (y[i-lag] - mu)
		}
	}
	if den == 0 {
		return 0
	}
	return num / den
}

// chooseSeasonalDifferencing differences once at the seasonal lag when the first differences
// keep a strong autocorrelation there
func chooseSeasonalDifferencing(y []float64, m int) int {
	if m < 2 || len(y) < 2*m+3 {
		return 0
	}
	if math.Abs(acf(applyDiff(y, diffPoly(1, 0, 1)), m)) > 0.5 {
		return 1
	}
	return 0
}

// stepwiseSearch starts from a few small orders and then walks to neighbouring orders while
// the information criterion keeps improving
func stepwiseSearch(y []float64, base arimaOrder, maxP, maxQ int) *Model {
	type pq struct{ p, q int }

	visited := make(map[pq]bool)
	var best *Model
	var bestOrder pq
	try := func(c pq) bool {
		if c.p < 0 || c.q < 0 || c.p > maxP || c.q > maxQ || visited[c] {
			return false
		}
		visited[c] = true
		o := base
		o.p, o.q = c.p, c.q
		fit, err := estimateArima(y, o)
		if err != nil {
			return false
		}
		if best == nil || fit.AIC() < best.AIC() {
			best, bestOrder = fit, c
			return true
		}
		return false
	}

	for _, c := range []pq{{0, 0}, {1, 0}, {0, 1}, {1, 1}, {2, 2}} {
		try(c)
	}
	for improved := best != nil; improved; {
		improved = false
		cur := bestOrder
		for _, c := range []pq{
			{cur.p + 1, cur.q}, {cur.p - 1, cur.q},
			{cur.p, cur.q + 1}, {cur.p, cur.q - 1},
			{cur.p + 1, cur.q + 1}, {cur.p - 1, cur.q - 1},
		} {
			if try(c) {
				improved = true
			}
		}
	}
	return best
}

func fitAutoArima(in Input, args dispatch.Args) (Fit, error) {
	opt := in.Options()
	m := max(in.Period, 1)

	stationary, err := args.Bool("stationary", false)
	if err != nil {
		return nil, err
	}
	sd := 0
	switch {
	case stationary:
	case args.Has("D"):
		if sd, err = args.Int("D", 0); err != nil {
			return nil, err
		}
	default:
		sd = chooseSeasonalDifferencing(in.Values, m)
	}
	if m < 2 || len(in.Values) < 2*m+3 {
		sd = 0
	}

	d := 0
	switch {
	case args.Has("d"):
		if d, err = args.Int("d", 0); err != nil {
			return nil, err
		}
	case !stationary:
		d = chooseDifferencing(applyDiff(in.Values, diffPoly(0, sd, m)), opt.MaxD)
	}

	maxP, err := args.Int("max.p", opt.MaxP)
	if err != nil {
		return nil, err
	}
	maxQ, err := args.Int("max.q", opt.MaxQ)
	if err != nil {
		return nil, err
	}

	base := arimaOrder{d: d, sd: sd, period: m, mean: d == 0 && sd == 0}
	best := stepwiseSearch(in.Values, base, maxP, maxQ)
	if best == nil {
		return nil, fmt.Errorf("no candidate order could be estimated, %w", ErrInsufficientData)
	}
	best.Name = "auto.arima"
	return best, nil
}
