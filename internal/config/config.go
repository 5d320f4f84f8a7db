// Package config loads the magi command line configuration from a yaml file, MAGI_ prefixed
// environment variables and flag overrides.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/forecastkit/magi"
	"github.com/forecastkit/magi/accuracy"
	"github.com/forecastkit/magi/backend/native"
	"github.com/forecastkit/magi/decompose"
	"github.com/forecastkit/magi/errs"
	"github.com/forecastkit/magi/timedataset"
	"github.com/rickar/cal/v2"
	"github.com/rickar/cal/v2/us"
	"github.com/spf13/viper"
)

var (
	ErrUnknownHoliday   = errors.New("unknown holiday")
	ErrInvalidLogLevel  = errors.New("invalid logging level")
	ErrInvalidLogFormat = errors.New("invalid logging format")
)

// holidays are the calendar entries that can be named in decompose.holidays
var holidays = map[string]*cal.Holiday{
	"new_year":         us.NewYear,
	"mlk_day":          us.MlkDay,
	"presidents_day":   us.PresidentsDay,
	"memorial_day":     us.MemorialDay,
	"independence_day": us.IndependenceDay,
	"labor_day":        us.LaborDay,
	"columbus_day":     us.ColumbusDay,
	"veterans_day":     us.VeteransDay,
	"thanksgiving_day": us.ThanksgivingDay,
	"christmas_day":    us.ChristmasDay,
}

// Config is the complete magi configuration
type Config struct {
	Forecast  ForecastConfig  `mapstructure:"forecast"`
	Engine    EngineConfig    `mapstructure:"engine"`
	Decompose DecomposeConfig `mapstructure:"decompose"`
	Accuracy  AccuracyConfig  `mapstructure:"accuracy"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// ForecastConfig holds the Forecaster defaults
type ForecastConfig struct {
	Horizon   int     `mapstructure:"horizon"`
	Frequency string  `mapstructure:"frequency"`
	Level     float64 `mapstructure:"level"`
	Workers   int     `mapstructure:"workers"`
	Policy    string  `mapstructure:"policy"`
}

// EngineConfig configures the classical engine session
type EngineConfig struct {
	MaxP          int     `mapstructure:"max_p"`
	MaxQ          int     `mapstructure:"max_q"`
	MaxD          int     `mapstructure:"max_d"`
	OutlierFactor float64 `mapstructure:"outlier_factor"`

	// Serialize runs at most one engine call at a time
	Serialize bool `mapstructure:"serialize"`
}

// DecomposeConfig configures the decomposition engine
type DecomposeConfig struct {
	ChangepointPriorScale float64       `mapstructure:"changepoint_prior_scale"`
	NumChangepoints       int           `mapstructure:"num_changepoints"`
	YearlyOrders          int           `mapstructure:"yearly_orders"`
	WeeklyOrders          int           `mapstructure:"weekly_orders"`
	DailyOrders           int           `mapstructure:"daily_orders"`
	Holidays              []string      `mapstructure:"holidays"`
	HolidayBefore         time.Duration `mapstructure:"holiday_before"`
	HolidayAfter          time.Duration `mapstructure:"holiday_after"`
}

// AccuracyConfig configures the metric engine
type AccuracyConfig struct {
	MAPEOffset     float64 `mapstructure:"mape_offset"`
	SeparateSeries bool    `mapstructure:"separate_series"`
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads the configuration file, when given or found as .magi.yaml, and the environment
// into v. Flags bound to v before Load take precedence over both.
func Load(v *viper.Viper, cfgFile string) (*Config, error) {
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName(".magi")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/magi")
	}

	v.SetEnvPrefix("MAGI")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("forecast.horizon", magi.DefaultHorizon)
	v.SetDefault("forecast.frequency", "")
	v.SetDefault("forecast.level", magi.DefaultLevel)
	v.SetDefault("forecast.workers", 0)
	v.SetDefault("forecast.policy", magi.FailFast.String())

	v.SetDefault("engine.max_p", native.DefaultMaxP)
	v.SetDefault("engine.max_q", native.DefaultMaxQ)
	v.SetDefault("engine.max_d", native.DefaultMaxD)
	v.SetDefault("engine.outlier_factor", native.DefaultOutlierFactor)
	v.SetDefault("engine.serialize", false)

	v.SetDefault("decompose.changepoint_prior_scale", decompose.DefaultChangepointPriorScale)
	v.SetDefault("decompose.num_changepoints", decompose.DefaultNumChangepoints)
	v.SetDefault("decompose.yearly_orders", decompose.DefaultYearlyOrders)
	v.SetDefault("decompose.weekly_orders", decompose.DefaultWeeklyOrders)
	v.SetDefault("decompose.daily_orders", decompose.DefaultDailyOrders)
	v.SetDefault("decompose.holidays", []string{})
	v.SetDefault("decompose.holiday_before", 0)
	v.SetDefault("decompose.holiday_after", 0)

	v.SetDefault("accuracy.mape_offset", accuracy.DefaultMAPEOffset)
	v.SetDefault("accuracy.separate_series", false)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
}

// Validate checks every section by building the library options from it
func (c *Config) Validate() error {
	if _, err := c.ForecastOptions(nil); err != nil {
		return err
	}
	if _, err := c.DecomposeOptions(nil); err != nil {
		return err
	}
	if _, err := c.AccuracyOptions(nil); err != nil {
		return err
	}
	if _, err := c.LogLevel(); err != nil {
		return err
	}
	switch c.Logging.Format {
	case "text", "json":
	default:
		return fmt.Errorf("%q, %w: %w", c.Logging.Format, errs.ErrConfiguration, ErrInvalidLogFormat)
	}
	return nil
}

// LogLevel maps the configured level name to its slog level
func (c *Config) LogLevel() (slog.Level, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(c.Logging.Level)); err != nil {
		return 0, fmt.Errorf("%q, %w: %w", c.Logging.Level, errs.ErrConfiguration, ErrInvalidLogLevel)
	}
	return lvl, nil
}

// ForecastOptions builds the Forecaster options
func (c *Config) ForecastOptions(logger *slog.Logger) (*magi.Options, error) {
	policy, err := magi.ParsePolicy(c.Forecast.Policy)
	if err != nil {
		return nil, err
	}
	var freq timedataset.Frequency
	if c.Forecast.Frequency != "" {
		if freq, err = timedataset.ParseFrequency(c.Forecast.Frequency); err != nil {
			return nil, err
		}
	}
	opt := &magi.Options{
		Horizon:   c.Forecast.Horizon,
		Frequency: freq,
		Level:     c.Forecast.Level,
		Workers:   c.Forecast.Workers,
		Policy:    policy,
		Logger:    logger,
	}
	return opt.Validate()
}

// EngineOptions builds the classical engine options
func (c *Config) EngineOptions(logger *slog.Logger) *native.Options {
	opt := native.NewDefaultOptions()
	opt.MaxP = c.Engine.MaxP
	opt.MaxQ = c.Engine.MaxQ
	opt.MaxD = c.Engine.MaxD
	opt.OutlierFactor = c.Engine.OutlierFactor
	if logger != nil {
		opt.Logger = logger
	}
	return opt
}

// DecomposeOptions builds the decomposition options. The prediction bounds use the forecast
// level.
func (c *Config) DecomposeOptions(logger *slog.Logger) (*decompose.Options, error) {
	opt := decompose.NewDefaultOptions()
	opt.ChangepointPriorScale = c.Decompose.ChangepointPriorScale
	opt.NumChangepoints = c.Decompose.NumChangepoints
	opt.YearlyOrders = c.Decompose.YearlyOrders
	opt.WeeklyOrders = c.Decompose.WeeklyOrders
	opt.DailyOrders = c.Decompose.DailyOrders
	opt.HolidayBefore = c.Decompose.HolidayBefore
	opt.HolidayAfter = c.Decompose.HolidayAfter
	opt.Level = c.Forecast.Level
	if logger != nil {
		opt.Logger = logger
	}
	for _, name := range c.Decompose.Holidays {
		hol, exists := holidays[strings.ToLower(strings.TrimSpace(name))]
		if !exists {
			return nil, fmt.Errorf("%q, %w: %w", name, errs.ErrConfiguration, ErrUnknownHoliday)
		}
		opt.Holidays = append(opt.Holidays, hol)
	}
	return opt.Validate()
}

// AccuracyOptions builds the metric engine options
func (c *Config) AccuracyOptions(logger *slog.Logger) (*accuracy.Options, error) {
	opt := &accuracy.Options{
		MAPEOffset:     c.Accuracy.MAPEOffset,
		SeparateSeries: c.Accuracy.SeparateSeries,
		Workers:        c.Forecast.Workers,
		Logger:         logger,
	}
	return opt.Validate()
}
