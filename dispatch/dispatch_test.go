package dispatch

import (
	"testing"

	"github.com/forecastkit/magi/errs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCall(t *testing.T) {
	testData := map[string]struct {
		spec     string
		horizon  int
		level    float64
		expected Kind
		expr     string
		err      error
	}{
		"direct forecast": {
			spec:     "thetaf",
			horizon:  18,
			level:    80,
			expected: KindDirect,
			expr:     "thetaf(rdata,h=18,level=c(80))",
		},
		"direct forecast with args": {
			spec:     "rwf(drift=TRUE)",
			horizon:  6,
			level:    95,
			expected: KindDirect,
			expr:     "rwf(rdata,h=6,level=c(95),drift=TRUE)",
		},
		"naive baseline": {
			spec:     "naive",
			horizon:  6,
			level:    80,
			expected: KindBaseline,
			expr:     "naive(rdata,h=6,level=c(80))",
		},
		"seasonal naive baseline": {
			spec:     " snaive ",
			horizon:  1,
			level:    80,
			expected: KindBaseline,
			expr:     "snaive(rdata,h=1,level=c(80))",
		},
		"naive with parens is a fit expression": {
			spec:     "naive(rdata)",
			horizon:  3,
			level:    80,
			expected: KindFitForecast,
			expr:     "forecast(naive(rdata),h=3,level=c(80))",
		},
		"fit then forecast": {
			spec:     "auto.arima(rdata)",
			horizon:  18,
			level:    80,
			expected: KindFitForecast,
			expr:     "forecast(auto.arima(rdata),h=18,level=c(80))",
		},
		"fit with keyword args": {
			spec:     "auto.arima(rdata,D=1,stationary=TRUE)",
			horizon:  18,
			level:    80,
			expected: KindFitForecast,
			expr:     "forecast(auto.arima(rdata,D=1,stationary=TRUE),h=18,level=c(80))",
		},
		"empty": {
			spec:    "",
			horizon: 6,
			level:   80,
			err:     ErrEmptySpec,
		},
		"blank": {
			spec:    "   ",
			horizon: 6,
			level:   80,
			err:     ErrEmptySpec,
		},
		"unbalanced": {
			spec:    "arima(rdata,order=c(1,1,0)",
			horizon: 6,
			level:   80,
			err:     ErrUnbalanced,
		},
		"trailing text": {
			spec:    "ets(rdata) + 1",
			horizon: 6,
			level:   80,
			err:     ErrUnbalanced,
		},
		"invalid name": {
			spec:    "1ets(rdata)",
			horizon: 6,
			level:   80,
			err:     ErrInvalidName,
		},
		"zero horizon": {
			spec:    "thetaf",
			horizon: 0,
			level:   80,
			err:     ErrInvalidHorizon,
		},
		"level out of range": {
			spec:    "thetaf",
			horizon: 6,
			level:   100,
			err:     ErrInvalidLevel,
		},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			call, err := NewCall(td.spec, td.horizon, td.level)
			if td.err != nil {
				require.ErrorIs(t, err, td.err)
				assert.ErrorIs(t, err, errs.ErrConfiguration)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, td.expected, call.Kind)
			assert.Equal(t, td.expr, call.Expr())
			assert.Equal(t, td.horizon, call.Horizon)
			assert.Equal(t, td.level, call.Level())
			assert.Equal(t, Outputs, call.Outputs())
		})
	}
}

func TestClassifyDeterministic(t *testing.T) {
	for _, spec := range []string{"thetaf", "naive", "auto.arima(rdata)", "splinef"} {
		first, err := NewCall(spec, 6, 80)
		require.NoError(t, err)
		for i := 0; i < 10; i++ {
			next, err := NewCall(spec, 6, 80)
			require.NoError(t, err)
			assert.Equal(t, first.Kind, next.Kind)
		}
	}
}

func TestParseArgs(t *testing.T) {
	spec, err := Parse("arima(rdata, order=c(2,1,0), include.mean=FALSE, lambda=0.5, method=\"CSS\")")
	require.NoError(t, err)
	assert.Equal(t, "arima", spec.Name)
	assert.Equal(t, []string{"rdata"}, spec.Args.Positional())

	order, err := spec.Args.Ints("order")
	require.NoError(t, err)
	assert.Equal(t, []int{2, 1, 0}, order)

	mean, err := spec.Args.Bool("include.mean", true)
	require.NoError(t, err)
	assert.False(t, mean)

	lambda, err := spec.Args.Float("lambda", 1)
	require.NoError(t, err)
	assert.Equal(t, 0.5, lambda)

	d, err := spec.Args.Int("d", 3)
	require.NoError(t, err)
	assert.Equal(t, 3, d)

	_, err = spec.Args.Int("method", 0)
	assert.ErrorIs(t, err, ErrInvalidArg)

	_, err = spec.Args.Ints("seasonal")
	assert.ErrorIs(t, err, ErrMissingArg)

	assert.Len(t, spec.Extra(), 4)
}

func TestParseComparisonIsPositional(t *testing.T) {
	spec, err := Parse("ets(rdata, damped==TRUE)")
	require.NoError(t, err)
	assert.Equal(t, []string{"rdata", "damped==TRUE"}, spec.Args.Positional())
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "direct", KindDirect.String())
	assert.Equal(t, "baseline", KindBaseline.String())
	assert.Equal(t, "fit-forecast", KindFitForecast.String())
	assert.Equal(t, "Kind(7)", Kind(7).String())
}
