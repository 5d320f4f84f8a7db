// Package cli contains the magi commands
package cli

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/forecastkit/magi/backend"
	"github.com/forecastkit/magi/backend/native"
	"github.com/forecastkit/magi/decompose"
	"github.com/forecastkit/magi/internal/config"
	"github.com/pkg/profile"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// app is the state shared by the commands of one invocation
type app struct {
	v *viper.Viper

	cfgFile     string
	verbose     bool
	profileMode string
	profileDir  string

	cfg      *config.Config
	logger   *slog.Logger
	registry *prometheus.Registry
	metrics  *backend.Metrics
	profiler interface{ Stop() }
}

// NewRootCommand builds the magi command tree. Logs go to stderr and results to stdout unless
// a command is given an output path.
func NewRootCommand(stdout, stderr io.Writer) *cobra.Command {
	a := &app{v: viper.New()}

	root := &cobra.Command{
		Use:   "magi",
		Short: "Parallel univariate forecasting",
		Long: `magi forecasts every column of a csv table of time series independently with a
classical model specification or a trend and seasonality decomposition.

Example usage:
  magi forecast "auto.arima(rdata)" -i sales.csv     # forecast every column
  magi forecast thetaf -i sales.csv --series store1  # forecast a single column
  magi decompose -i sales.csv --select predicted     # decomposition forecast
  magi clean -i sales.csv                            # replace outliers and missing values
  magi accuracy --actual a.csv --predicted p.csv     # score a forecast
  magi generate --columns 5 --rows 24                # synthetic table`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init(stderr)
		},
	}
	root.SetOut(stdout)
	root.SetErr(stderr)

	root.PersistentFlags().StringVar(&a.cfgFile, "config", "", "config file (default is .magi.yaml)")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "verbose output")
	root.PersistentFlags().StringVar(&a.profileMode, "profile", "", "write a cpu or mem profile")
	root.PersistentFlags().StringVar(&a.profileDir, "profile-path", ".", "directory of the profile output")

	root.PersistentFlags().Int("horizon", 0, "number of periods to forecast")
	root.PersistentFlags().String("frequency", "", "series frequency, inferred when empty")
	root.PersistentFlags().Float64("level", 0, "confidence level of the prediction intervals")
	root.PersistentFlags().Int("workers", 0, "columns processed at once, 0 for all")
	root.PersistentFlags().String("policy", "", "table failure policy, failfast or isolate")
	for key, flag := range map[string]string{
		"forecast.horizon":   "horizon",
		"forecast.frequency": "frequency",
		"forecast.level":     "level",
		"forecast.workers":   "workers",
		"forecast.policy":    "policy",
	} {
		_ = a.v.BindPFlag(key, root.PersistentFlags().Lookup(flag))
	}

	root.AddCommand(
		newForecastCommand(a),
		newDecomposeCommand(a),
		newCleanCommand(a),
		newAccuracyCommand(a),
		newGenerateCommand(a),
	)
	// post run hooks are skipped on failure, finish must still flush the profile
	for _, cmd := range root.Commands() {
		run := cmd.RunE
		cmd.RunE = func(cmd *cobra.Command, args []string) error {
			defer a.finish()
			return run(cmd, args)
		}
	}
	return root
}

// init loads the configuration and sets up logging, metrics and profiling
func (a *app) init(stderr io.Writer) error {
	cfg, err := config.Load(a.v, a.cfgFile)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	a.cfg = cfg

	lvl, err := cfg.LogLevel()
	if err != nil {
		return err
	}
	if a.verbose {
		lvl = slog.LevelDebug
	}
	handlerOpts := &slog.HandlerOptions{Level: lvl}
	var handler slog.Handler = slog.NewTextHandler(stderr, handlerOpts)
	if cfg.Logging.Format == "json" {
		handler = slog.NewJSONHandler(stderr, handlerOpts)
	}
	a.logger = slog.New(handler)

	a.registry = prometheus.NewRegistry()
	a.metrics = backend.NewMetrics(a.registry)

	switch a.profileMode {
	case "":
	case "cpu":
		a.profiler = profile.Start(profile.CPUProfile, profile.ProfilePath(a.profileDir), profile.NoShutdownHook, profile.Quiet)
	case "mem":
		a.profiler = profile.Start(profile.MemProfile, profile.ProfilePath(a.profileDir), profile.NoShutdownHook, profile.Quiet)
	default:
		return fmt.Errorf("unknown profile mode %q, must be cpu or mem", a.profileMode)
	}

	a.logger.Debug("configuration loaded",
		"horizon", cfg.Forecast.Horizon,
		"frequency", cfg.Forecast.Frequency,
		"level", cfg.Forecast.Level,
		"policy", cfg.Forecast.Policy,
	)
	return nil
}

// finish stops the profiler and logs the engine call counts
func (a *app) finish() {
	if a.profiler != nil {
		a.profiler.Stop()
		a.profiler = nil
	}
	if a.registry == nil {
		return
	}
	families, err := a.registry.Gather()
	if err != nil {
		a.logger.Warn("unable to gather engine metrics", "error", err)
		return
	}
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			if m.GetCounter() == nil {
				continue
			}
			attrs := []any{"metric", mf.GetName(), "value", m.GetCounter().GetValue()}
			for _, label := range m.GetLabel() {
				attrs = append(attrs, label.GetName(), label.GetValue())
			}
			a.logger.Debug("engine calls", attrs...)
		}
	}
}

// engine acquires the classical engine session
func (a *app) engine() backend.Engine {
	var engine backend.Engine = native.New(a.cfg.EngineOptions(a.logger))
	if a.cfg.Engine.Serialize {
		engine = backend.Serialize(engine)
	}
	return backend.Instrument(engine, a.metrics)
}

func (a *app) decomposer() (*decompose.Engine, error) {
	opt, err := a.cfg.DecomposeOptions(a.logger)
	if err != nil {
		return nil, err
	}
	return decompose.New(opt)
}
