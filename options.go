package magi

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/forecastkit/magi/errs"
	"github.com/forecastkit/magi/timedataset"
)

const (
	DefaultHorizon = 18
	DefaultLevel   = 80.0
)

var (
	ErrNonPositiveHorizon = errors.New("horizon must be positive")
	ErrInvalidLevel       = errors.New("confidence level must be within (0, 100)")
	ErrNegativeWorkers    = errors.New("negative number of workers")
	ErrUnknownPolicy      = errors.New("unknown failure policy")
)

// FailurePolicy decides what a table run does when a single column fails
type FailurePolicy int

const (
	// FailFast cancels the remaining columns and returns the first failure
	FailFast FailurePolicy = iota

	// Isolate leaves failed columns out of the table and reports them alongside it
	Isolate
)

func (p FailurePolicy) String() string {
	switch p {
	case FailFast:
		return "failfast"
	case Isolate:
		return "isolate"
	}
	return fmt.Sprintf("FailurePolicy(%d)", int(p))
}

// ParsePolicy maps a policy name to its FailurePolicy
func ParsePolicy(s string) (FailurePolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "failfast", "fail-fast":
		return FailFast, nil
	case "isolate":
		return Isolate, nil
	}
	return 0, fmt.Errorf("%q, %w: %w", s, errs.ErrConfiguration, ErrUnknownPolicy)
}

// Options configures a Forecaster and the table runs it starts
type Options struct {
	// Horizon is the number of periods to forecast past the last observation
	Horizon int

	// Frequency of the held data. Left empty it is inferred from the timestamps.
	Frequency timedataset.Frequency

	// Level is the confidence level of the prediction intervals in percent
	Level float64

	// Workers bounds the number of columns processed at once. Zero runs every column
	// concurrently.
	Workers int

	Policy FailurePolicy
	Logger *slog.Logger
}

// NewDefaultOptions forecasts 18 monthly periods at 80% confidence and fails fast on table runs
func NewDefaultOptions() *Options {
	return &Options{
		Horizon:   DefaultHorizon,
		Frequency: timedataset.Monthly,
		Level:     DefaultLevel,
		Policy:    FailFast,
		Logger:    slog.Default(),
	}
}

// Validate checks the options and returns a copy with a logger set. Nil options return the
// defaults.
func (o *Options) Validate() (*Options, error) {
	if o == nil {
		return NewDefaultOptions(), nil
	}
	res := *o
	if res.Horizon <= 0 {
		return nil, fmt.Errorf("got %d, %w: %w", res.Horizon, errs.ErrConfiguration, ErrNonPositiveHorizon)
	}
	if res.Level <= 0 || res.Level >= 100 {
		return nil, fmt.Errorf("got %.2f, %w: %w", res.Level, errs.ErrConfiguration, ErrInvalidLevel)
	}
	if res.Frequency != "" {
		if err := res.Frequency.Validate(); err != nil {
			return nil, err
		}
	}
	if res.Workers < 0 {
		return nil, fmt.Errorf("got %d, %w: %w", res.Workers, errs.ErrConfiguration, ErrNegativeWorkers)
	}
	if res.Policy != FailFast && res.Policy != Isolate {
		return nil, fmt.Errorf("%s, %w: %w", res.Policy, errs.ErrConfiguration, ErrUnknownPolicy)
	}
	if res.Logger == nil {
		res.Logger = slog.Default()
	}
	return &res, nil
}
