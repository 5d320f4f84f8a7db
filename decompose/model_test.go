package decompose

import (
	"context"
	"math"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/forecastkit/magi/errs"
	"github.com/forecastkit/magi/timedataset"
	"github.com/rickar/cal/v2"
	"github.com/rickar/cal/v2/us"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats"
)

func monthlySeries(t *testing.T, n, extra int) ([]time.Time, []float64, []float64) {
	t.Helper()
	end := time.Date(2021, 12, 1, 0, 0, 0, 0, time.UTC)
	times, err := timedataset.GenerateT(n, end, timedataset.Monthly)
	require.NoError(t, err)

	truth := timedataset.GenerateTrendY(n+extra, 100, 0.5).Add(timedataset.GenerateWaveY(n+extra, 10, 12, 0))
	rng := rand.New(rand.NewPCG(3, 4))
	y := make([]float64, n)
	copy(y, truth[:n])
	floats.Add(y, timedataset.GenerateNoise(n, 1, rng))
	return times, y, truth[n:]
}

func TestOptionsValidate(t *testing.T) {
	opt, err := (*Options)(nil).Validate()
	require.NoError(t, err)
	assert.Equal(t, DefaultChangepointPriorScale, opt.ChangepointPriorScale)
	assert.Equal(t, DefaultLevel, opt.Level)

	testData := map[string]struct {
		modify func(o *Options)
		err    error
	}{
		"prior scale":   {modify: func(o *Options) { o.ChangepointPriorScale = 0 }, err: ErrNonPositivePriorScale},
		"range":         {modify: func(o *Options) { o.ChangepointRange = 1.5 }, err: ErrChangepointRange},
		"changepoints":  {modify: func(o *Options) { o.NumChangepoints = -1 }, err: ErrNegativeChangepoints},
		"orders":        {modify: func(o *Options) { o.WeeklyOrders = -1 }, err: ErrNegativeOrders},
		"level":         {modify: func(o *Options) { o.Level = 0 }, err: ErrLevel},
		"fills solvers": {modify: func(o *Options) { o.Iterations = 0; o.Tolerance = 0; o.Logger = nil }},
	}
	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			opt := NewDefaultOptions()
			td.modify(opt)
			res, err := opt.Validate()
			if td.err != nil {
				require.ErrorIs(t, err, td.err)
				assert.ErrorIs(t, err, errs.ErrConfiguration)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, DefaultIterations, res.Iterations)
			assert.Equal(t, DefaultTolerance, res.Tolerance)
			assert.NotNil(t, res.Logger)
		})
	}
}

func TestSeasonalities(t *testing.T) {
	opt := NewDefaultOptions()
	year := 365 * 24 * time.Hour

	res := seasonalities(4*year, timedataset.Monthly, opt)
	require.Len(t, res, 1)
	assert.Equal(t, "yearly", res[0].name)
	assert.Equal(t, 5, res[0].order)

	res = seasonalities(year, timedataset.Monthly, opt)
	assert.Empty(t, res)

	res = seasonalities(30*24*time.Hour, timedataset.Hourly, opt)
	require.Len(t, res, 2)
	assert.Equal(t, "weekly", res[0].name)
	assert.Equal(t, "daily", res[1].name)
	assert.Equal(t, 4, res[1].order)

	res = seasonalities(10*year, timedataset.Annual, opt)
	assert.Empty(t, res)
}

func TestAutoChangepoints(t *testing.T) {
	times, _, _ := monthlySeries(t, 48, 0)
	cps := autoChangepoints(times, 25, 0.8)
	require.Len(t, cps, 25)
	assert.True(t, cps[0].After(times[0]))
	assert.False(t, cps[len(cps)-1].After(times[37]))

	assert.Empty(t, autoChangepoints(times[:2], 25, 0.8))
}

func TestCoordinateDescentOLS(t *testing.T) {
	// y = 2 + 3x with no penalty recovers the coefficients
	x := []float64{0, 1, 2, 3, 4}
	ones := []float64{1, 1, 1, 1, 1}
	y := []float64{2, 5, 8, 11, 14}
	beta := coordinateDescent([][]float64{ones, x}, y, []float64{0, 0}, 10000, 1e-12)
	assert.InDelta(t, 2, beta[0], 1e-6)
	assert.InDelta(t, 3, beta[1], 1e-6)

	// a large penalty zeroes the slope
	beta = coordinateDescent([][]float64{ones, x}, y, []float64{0, 1e6}, 10000, 1e-12)
	assert.Equal(t, 0.0, beta[1])
	assert.InDelta(t, 8, beta[0], 1e-6)
}

func TestDecompose(t *testing.T) {
	times, y, truth := monthlySeries(t, 48, 12)

	e, err := New(nil)
	require.NoError(t, err)
	pred, err := e.Decompose(context.Background(), times, y, 12, timedataset.Monthly)
	require.NoError(t, err)

	require.Len(t, pred.T, 60)
	require.Len(t, pred.YHat, 60)
	assert.Equal(t, 48, pred.History)
	assert.Equal(t, 80.0, pred.Level)
	assert.Equal(t, time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC), pred.T[48])

	for i := range pred.YHat {
		assert.LessOrEqual(t, pred.YHatLower[i], pred.YHat[i])
		assert.GreaterOrEqual(t, pred.YHatUpper[i], pred.YHat[i])
		sum := pred.Components.Trend[i] + pred.Components.Seasonality[i] + pred.Components.Event[i]
		assert.InDelta(t, pred.YHat[i], sum, 1e-9)
	}

	assert.Less(t, pred.Model.Sigma(), 3.0)
	var mae float64
	for i, v := range truth {
		mae += math.Abs(pred.YHat[48+i] - v)
	}
	mae /= float64(len(truth))
	assert.Less(t, mae, 8.0)

	coef := pred.Model.Coefficients()
	assert.Contains(t, coef, "intercept")
	assert.Contains(t, coef, "seas_yearly_01_sin")
	assert.NotEmpty(t, pred.Model.ModelEq())
	assert.Len(t, pred.Model.Residuals(), 48)
	assert.LessOrEqual(t, len(pred.Model.ActiveChangepoints()), len(pred.Model.Changepoints()))
}

func TestDecomposeMissingValues(t *testing.T) {
	times, y, _ := monthlySeries(t, 36, 0)
	y[5] = math.NaN()

	m, err := Fit(times, y, timedataset.Monthly, nil)
	require.NoError(t, err)
	res := m.Residuals()
	assert.True(t, math.IsNaN(res[5]))
	assert.False(t, math.IsNaN(res[6]))
}

func TestDecomposeHoliday(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	n := 731
	times := make([]time.Time, n)
	y := make([]float64, n)
	rng := rand.New(rand.NewPCG(5, 6))
	for i := range times {
		times[i] = start.AddDate(0, 0, i)
		y[i] = 10 + rng.NormFloat64()*0.1
		if times[i].Month() == time.December && times[i].Day() == 25 {
			y[i] += 50
		}
	}

	opt := NewDefaultOptions()
	opt.Holidays = []*cal.Holiday{us.ChristmasDay, us.ThanksgivingDay}
	m, err := Fit(times[:330], y[:330], timedataset.Daily, opt)
	require.NoError(t, err)
	assert.NotContains(t, m.Coefficients(), "event_Christmas_Day")
	assert.NotContains(t, m.Coefficients(), "event_Thanksgiving_Day")

	m, err = Fit(times, y, timedataset.Daily, opt)
	require.NoError(t, err)
	coef := m.Coefficients()
	require.Contains(t, coef, "event_Christmas_Day")
	assert.Greater(t, coef["event_Christmas_Day"], 20.0)

	future, err := timedataset.Index(times[n-1], 400, timedataset.Daily, timedataset.ModeContinuation)
	require.NoError(t, err)
	pred, err := m.Predict(future)
	require.NoError(t, err)
	for i, tPnt := range future {
		if tPnt.Month() == time.December && tPnt.Day() == 25 {
			assert.Greater(t, pred.Components.Event[i], 20.0)
		}
	}
	assert.Equal(t, 0, pred.History)
}

func TestDecomposeErrors(t *testing.T) {
	e, err := New(nil)
	require.NoError(t, err)

	times, y, _ := monthlySeries(t, 24, 0)
	_, err = e.Decompose(context.Background(), times, y, 0, timedataset.Monthly)
	assert.ErrorIs(t, err, errs.ErrConfiguration)

	_, err = e.Decompose(context.Background(), times[:2], y[:2], 6, timedataset.Monthly)
	assert.ErrorIs(t, err, ErrInsufficientData)

	_, err = e.Decompose(context.Background(), times, y, 6, timedataset.Frequency("weekly"))
	assert.ErrorIs(t, err, errs.ErrConfiguration)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = e.Decompose(ctx, times, y, 6, timedataset.Monthly)
	assert.ErrorIs(t, err, context.Canceled)

	bad := NewDefaultOptions()
	bad.Level = 120
	_, err = New(bad)
	assert.ErrorIs(t, err, errs.ErrConfiguration)

	var m *Model
	_, err = m.Predict(times)
	assert.ErrorIs(t, err, ErrUninitializedModel)
}
