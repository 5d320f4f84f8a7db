package backend

import (
	"context"
	"time"

	"github.com/forecastkit/magi/dispatch"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const metricsNamespace = "magi"

// Metrics are the collectors recorded by an instrumented engine
type Metrics struct {
	Calls    *prometheus.CounterVec
	Duration *prometheus.HistogramVec
}

// NewMetrics creates the engine collectors and registers them with reg. A nil registerer
// leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Calls: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: "engine",
				Name:      "calls_total",
				Help:      "Total number of engine calls",
			},
			[]string{"operation", "kind", "status"},
		),
		Duration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Subsystem: "engine",
				Name:      "call_duration_seconds",
				Help:      "Duration of engine calls in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"operation", "kind"},
		),
	}
}

func (m *Metrics) record(operation, kind string, start time.Time, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.Calls.WithLabelValues(operation, kind, status).Inc()
	m.Duration.WithLabelValues(operation, kind).Observe(time.Since(start).Seconds())
}

type instrumented struct {
	engine  Engine
	metrics *Metrics
}

// Instrument wraps an engine so every call is counted and timed
func Instrument(engine Engine, metrics *Metrics) Engine {
	if engine == nil || metrics == nil {
		return engine
	}
	return &instrumented{engine: engine, metrics: metrics}
}

func (i *instrumented) Forecast(ctx context.Context, call dispatch.Call, data Periodic) (*Raw, error) {
	start := time.Now()
	raw, err := i.engine.Forecast(ctx, call, data)
	i.metrics.record("forecast", call.Kind.String(), start, err)
	return raw, err
}

func (i *instrumented) Clean(ctx context.Context, data Periodic, replaceMissing bool) ([]float64, error) {
	start := time.Now()
	res, err := i.engine.Clean(ctx, data, replaceMissing)
	i.metrics.record("clean", "tsclean", start, err)
	return res, err
}

func (i *instrumented) Close() error {
	return i.engine.Close()
}
