package decompose

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/forecastkit/magi/errs"
	"github.com/rickar/cal/v2"
)

const (
	DefaultChangepointPriorScale = 0.35
	DefaultNumChangepoints       = 25
	DefaultChangepointRange      = 0.8
	DefaultSeasonalityPriorScale = 10.0
	DefaultHolidaysPriorScale    = 10.0
	DefaultYearlyOrders          = 10
	DefaultWeeklyOrders          = 3
	DefaultDailyOrders           = 4
	DefaultLevel                 = 80.0
	DefaultIterations            = 5000
	DefaultTolerance             = 1e-6
)

var (
	ErrNonPositivePriorScale = errors.New("prior scale must be positive")
	ErrChangepointRange      = errors.New("changepoint range must be within (0, 1]")
	ErrNegativeChangepoints  = errors.New("negative number of changepoints")
	ErrNegativeOrders        = errors.New("negative fourier orders")
	ErrLevel                 = errors.New("confidence level must be within (0, 100)")
)

// Options configures the trend and seasonality decomposition
type Options struct {
	// ChangepointPriorScale controls the flexibility of the trend. Larger values let more
	// changepoints through the lasso penalty.
	ChangepointPriorScale float64

	// NumChangepoints is the number of candidate changepoints placed uniformly over the first
	// ChangepointRange share of the training data
	NumChangepoints  int
	ChangepointRange float64

	SeasonalityPriorScale float64
	HolidaysPriorScale    float64

	// Fourier orders per seasonality. A seasonality is only modelled when the training data
	// spans two cycles and the series is sampled at least twice per cycle. Zero disables it.
	YearlyOrders int
	WeeklyOrders int
	DailyOrders  int

	// Holidays are modelled as one indicator feature per holiday spanning the observed day
	// widened by HolidayBefore and HolidayAfter
	Holidays      []*cal.Holiday
	HolidayBefore time.Duration
	HolidayAfter  time.Duration

	// Level is the confidence level in percent of the prediction bounds
	Level float64

	Iterations int
	Tolerance  float64

	Logger *slog.Logger
}

// NewDefaultOptions returns the default decomposition options
func NewDefaultOptions() *Options {
	return &Options{
		ChangepointPriorScale: DefaultChangepointPriorScale,
		NumChangepoints:       DefaultNumChangepoints,
		ChangepointRange:      DefaultChangepointRange,
		SeasonalityPriorScale: DefaultSeasonalityPriorScale,
		HolidaysPriorScale:    DefaultHolidaysPriorScale,
		YearlyOrders:          DefaultYearlyOrders,
		WeeklyOrders:          DefaultWeeklyOrders,
		DailyOrders:           DefaultDailyOrders,
		Level:                 DefaultLevel,
		Iterations:            DefaultIterations,
		Tolerance:             DefaultTolerance,
		Logger:                slog.Default(),
	}
}

// Validate checks the options and fills unset solver settings. Nil options return the
// defaults.
func (o *Options) Validate() (*Options, error) {
	if o == nil {
		return NewDefaultOptions(), nil
	}
	res := *o
	if res.ChangepointPriorScale <= 0 || res.SeasonalityPriorScale <= 0 || res.HolidaysPriorScale <= 0 {
		return nil, fmt.Errorf("%w: %w", errs.ErrConfiguration, ErrNonPositivePriorScale)
	}
	if res.ChangepointRange <= 0 || res.ChangepointRange > 1 {
		return nil, fmt.Errorf("got %.2f, %w: %w", res.ChangepointRange, errs.ErrConfiguration, ErrChangepointRange)
	}
	if res.NumChangepoints < 0 {
		return nil, fmt.Errorf("%w: %w", errs.ErrConfiguration, ErrNegativeChangepoints)
	}
	if res.YearlyOrders < 0 || res.WeeklyOrders < 0 || res.DailyOrders < 0 {
		return nil, fmt.Errorf("%w: %w", errs.ErrConfiguration, ErrNegativeOrders)
	}
	if res.Level <= 0 || res.Level >= 100 {
		return nil, fmt.Errorf("got %.2f, %w: %w", res.Level, errs.ErrConfiguration, ErrLevel)
	}
	if res.Iterations <= 0 {
		res.Iterations = DefaultIterations
	}
	if res.Tolerance <= 0 {
		res.Tolerance = DefaultTolerance
	}
	if res.Logger == nil {
		res.Logger = slog.Default()
	}
	return &res, nil
}
