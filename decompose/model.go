// Package decompose is an additive trend and seasonality forecasting engine. A series is
// modelled as a piecewise linear trend with automatic changepoints, Fourier seasonalities and
// holiday indicators, fitted with a weighted lasso so changepoints only enter when supported
// by the data.
package decompose

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/forecastkit/magi/errs"
	"github.com/forecastkit/magi/stats"
	"github.com/forecastkit/magi/timedataset"
	"github.com/rickar/cal/v2"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

var (
	ErrUninitializedModel = errors.New("uninitialized model")
	ErrInsufficientData   = errors.New("insufficient training data after removing NaNs")
)

const minTrainingPoints = 3

// Components are the additive parts of a prediction
type Components struct {
	Trend       []float64 `json:"trend"`
	Seasonality []float64 `json:"seasonality"`
	Event       []float64 `json:"event"`
}

// Prediction is the model output on the training history followed by the forecast horizon
type Prediction struct {
	T          []time.Time `json:"time"`
	YHat       []float64   `json:"yhat"`
	YHatLower  []float64   `json:"yhat_lower"`
	YHatUpper  []float64   `json:"yhat_upper"`
	Components Components  `json:"components"`
	Level      float64     `json:"level"`

	// History is the number of leading rows that belong to the training data
	History int `json:"history"`

	Model *Model `json:"-"`
}

// Model is a fitted decomposition
type Model struct {
	opt  *Options
	freq timedataset.Frequency

	start  time.Time
	end    time.Time
	yScale float64

	changepoints  []time.Time
	seasonalities []seasonality
	holidays      []*cal.Holiday

	labels []string
	kinds  []featureKind
	coef   []float64

	sigma     float64
	residuals []float64
}

// Fit trains a model on the non-missing observations of the series
func Fit(t []time.Time, y []float64, freq timedataset.Frequency, opt *Options) (*Model, error) {
	opt, err := opt.Validate()
	if err != nil {
		return nil, err
	}
	if err := freq.Validate(); err != nil {
		return nil, err
	}
	ds, err := timedataset.NewUnivariateDataset(t, y)
	if err != nil {
		return nil, err
	}
	train := ds.DropNan()
	if train.Len() < minTrainingPoints {
		return nil, fmt.Errorf("got %d observations, %w", train.Len(), ErrInsufficientData)
	}

	m := &Model{
		opt:      opt,
		freq:     freq,
		start:    train.T[0],
		end:      train.T[train.Len()-1],
		holidays: opt.Holidays,
	}

	m.yScale = floats.Max(absAll(train.Y))
	if m.yScale == 0 {
		m.yScale = 1
	}
	ys := make([]float64, train.Len())
	floats.ScaleTo(ys, 1/m.yScale, train.Y)

	m.changepoints = autoChangepoints(train.T, opt.NumChangepoints, opt.ChangepointRange)
	m.seasonalities = seasonalities(m.end.Sub(m.start), freq, opt)

	cols := m.design(train.T)
	cols = m.pruneEvents(cols)

	noise := noiseScale(ys)
	penalty := make([]float64, len(cols))
	colData := make([][]float64, len(cols))
	for j, c := range cols {
		colData[j] = c.data
		m.labels = append(m.labels, c.label)
		m.kinds = append(m.kinds, c.kind)
		switch {
		case strings.HasPrefix(c.label, "chpt_"):
			penalty[j] = noise / opt.ChangepointPriorScale
		case c.kind == featureSeasonality:
			penalty[j] = noise / opt.SeasonalityPriorScale
		case c.kind == featureEvent:
			penalty[j] = noise / opt.HolidaysPriorScale
		}
	}
	m.coef = coordinateDescent(colData, ys, penalty, opt.Iterations, opt.Tolerance)

	fitted := m.infer(cols, nil)
	m.residuals = make([]float64, ds.Len())
	fullFit, _, err := m.predictScaled(ds.T)
	if err != nil {
		return nil, err
	}
	for i := range ds.Y {
		m.residuals[i] = ds.Y[i] - fullFit[i]
	}
	resid := make([]float64, len(fitted))
	for i := range fitted {
		resid[i] = train.Y[i] - fitted[i]*m.yScale
	}
	m.sigma = stats.StdDev(resid)

	opt.Logger.Debug("fitted decomposition",
		"observations", train.Len(),
		"changepoints", len(m.changepoints),
		"seasonalities", len(m.seasonalities),
		"sigma", m.sigma,
	)
	return m, nil
}

// pruneEvents drops holidays that never occur in the training data
func (m *Model) pruneEvents(cols []column) []column {
	res := cols[:0]
	var kept []*cal.Holiday
	holIdx := 0
	for _, c := range cols {
		if c.kind != featureEvent {
			res = append(res, c)
			continue
		}
		hol := m.holidays[holIdx]
		holIdx++
		if floats.Sum(c.data) == 0 {
			m.opt.Logger.Warn("not modelling holiday outside of training data", "name", hol.Name)
			continue
		}
		kept = append(kept, hol)
		res = append(res, c)
	}
	m.holidays = kept
	return res
}

// noiseScale estimates the observation noise variance of the scaled series from first
// differences
func noiseScale(y []float64) float64 {
	if len(y) < 3 {
		return 1e-6
	}
	diff := make([]float64, len(y)-1)
	for i := 1; i < len(y); i++ {
		diff[i-1] = y[i] - y[i-1]
	}
	s := stat.StdDev(diff, nil) / math.Sqrt2
	return math.Max(s*s, 1e-6)
}

func absAll(y []float64) []float64 {
	res := make([]float64, len(y))
	for i, v := range y {
		res[i] = math.Abs(v)
	}
	return res
}

// infer sums the weighted columns, restricted to the given kinds when set
func (m *Model) infer(cols []column, kinds map[featureKind]bool) []float64 {
	if len(cols) == 0 {
		return nil
	}
	res := make([]float64, len(cols[0].data))
	for j, c := range cols {
		if kinds != nil && !kinds[c.kind] {
			continue
		}
		floats.AddScaled(res, m.coef[j], c.data)
	}
	return res
}

func (m *Model) predictScaled(t []time.Time) ([]float64, Components, error) {
	if m == nil {
		return nil, Components{}, ErrUninitializedModel
	}
	cols := m.design(t)
	if len(cols) != len(m.coef) {
		return nil, Components{}, fmt.Errorf("design has %d features, model has %d", len(cols), len(m.coef))
	}
	scale := func(v []float64) []float64 {
		floats.Scale(m.yScale, v)
		return v
	}
	comp := Components{
		Trend:       scale(m.infer(cols, map[featureKind]bool{featureTrend: true})),
		Seasonality: scale(m.infer(cols, map[featureKind]bool{featureSeasonality: true})),
		Event:       scale(m.infer(cols, map[featureKind]bool{featureEvent: true})),
	}
	yhat := make([]float64, len(t))
	floats.Add(yhat, comp.Trend)
	floats.Add(yhat, comp.Seasonality)
	floats.Add(yhat, comp.Event)
	return yhat, comp, nil
}

// Predict returns the prediction and bounds for times in increasing order
func (m *Model) Predict(t []time.Time) (*Prediction, error) {
	if m == nil {
		return nil, ErrUninitializedModel
	}
	if !sort.SliceIsSorted(t, func(i, j int) bool { return t[i].Before(t[j]) }) {
		return nil, timedataset.ErrNonMontonic
	}
	yhat, comp, err := m.predictScaled(t)
	if err != nil {
		return nil, err
	}
	z, err := stats.ZScore(m.opt.Level)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errs.ErrConfiguration, err)
	}

	lower := make([]float64, len(yhat))
	upper := make([]float64, len(yhat))
	for i, v := range yhat {
		lower[i] = v - z*m.sigma
		upper[i] = v + z*m.sigma
	}

	history := 0
	for _, tPnt := range t {
		if tPnt.After(m.end) {
			break
		}
		history++
	}

	return &Prediction{
		T:          append([]time.Time(nil), t...),
		YHat:       yhat,
		YHatLower:  lower,
		YHatUpper:  upper,
		Components: comp,
		Level:      m.opt.Level,
		History:    history,
		Model:      m,
	}, nil
}

// Coefficients returns the fitted weights keyed by feature label on the scale of the data
func (m *Model) Coefficients() map[string]float64 {
	if m == nil {
		return nil
	}
	res := make(map[string]float64, len(m.coef))
	for i, label := range m.labels {
		res[label] = m.coef[i] * m.yScale
	}
	return res
}

// Changepoints returns the candidate changepoint times
func (m *Model) Changepoints() []time.Time {
	if m == nil {
		return nil
	}
	return append([]time.Time(nil), m.changepoints...)
}

// ActiveChangepoints returns the changepoints that kept a non-zero weight
func (m *Model) ActiveChangepoints() []time.Time {
	if m == nil {
		return nil
	}
	var res []time.Time
	for j, cp := range m.changepoints {
		idx := 2 + j
		if idx < len(m.coef) && m.coef[idx] != 0 {
			res = append(res, cp)
		}
	}
	return res
}

// Sigma returns the standard deviation of the training residuals
func (m *Model) Sigma() float64 {
	if m == nil {
		return math.NaN()
	}
	return m.sigma
}

// Residuals returns the difference between the training data and the fit. Missing
// observations stay NaN.
func (m *Model) Residuals() []float64 {
	if m == nil {
		return nil
	}
	return append([]float64(nil), m.residuals...)
}

// ModelEq returns a string representation of the model linear equation in the format of
// y ~ b + m1x1 + m2x2 + ...
func (m *Model) ModelEq() string {
	if m == nil {
		return ""
	}
	var sb strings.Builder
	sb.WriteString("y ~ ")
	fmt.Fprintf(&sb, "%.2f", m.coef[0]*m.yScale)
	for i := 1; i < len(m.coef); i++ {
		w := m.coef[i] * m.yScale
		if w == 0 {
			continue
		}
		fmt.Fprintf(&sb, "+%.2f*%s", w, m.labels[i])
	}
	return sb.String()
}

// Engine runs the decomposition for series handed over by the orchestrator
type Engine struct {
	opt *Options
}

// New creates an engine. Nil options use the defaults.
func New(opt *Options) (*Engine, error) {
	opt, err := opt.Validate()
	if err != nil {
		return nil, err
	}
	return &Engine{opt: opt}, nil
}

// Options returns the engine options
func (e *Engine) Options() *Options {
	if e == nil {
		return NewDefaultOptions()
	}
	return e.opt
}

// Decompose fits the series and predicts over its history followed by horizon periods
func (e *Engine) Decompose(ctx context.Context, t []time.Time, y []float64, horizon int, freq timedataset.Frequency) (*Prediction, error) {
	if e == nil {
		return nil, ErrUninitializedModel
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if horizon <= 0 {
		return nil, fmt.Errorf("horizon %d must be positive, %w", horizon, errs.ErrConfiguration)
	}

	m, err := Fit(t, y, freq, e.opt)
	if err != nil {
		return nil, fmt.Errorf("unable to fit decomposition, %w", err)
	}
	future, err := timedataset.Index(t[len(t)-1], horizon, freq, timedataset.ModeContinuation)
	if err != nil {
		return nil, err
	}
	all := make([]time.Time, 0, len(t)+horizon)
	all = append(all, t...)
	all = append(all, future...)
	return m.Predict(all)
}
