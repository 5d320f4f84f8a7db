package native

import (
	"sort"
	"sync"

	"github.com/forecastkit/magi/dispatch"
)

// Fitter fits a model on the input. Args holds the specification arguments other than the
// data reference.
type Fitter func(in Input, args dispatch.Args) (Fit, error)

type entry struct {
	fitter Fitter
	direct bool
}

var (
	registryMu sync.RWMutex
	registry   = make(map[string]entry)
)

// RegisterDirect adds a forecasting function callable as fn(data, h, level)
func RegisterDirect(name string, fitter Fitter) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[name] = entry{fitter: fitter, direct: true}
}

// Register adds a fit model usable in a fit expression
func Register(name string, fitter Fitter) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[name] = entry{fitter: fitter}
}

// Lookup returns the fitter for a call shape. Direct and baseline calls only resolve
// forecasting functions; fit expressions resolve both since forecasting an already
// forecast object returns it unchanged.
func Lookup(kind dispatch.Kind, name string) (Fitter, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	e, exists := registry[name]
	if !exists {
		return nil, false
	}
	if kind != dispatch.KindFitForecast && !e.direct {
		return nil, false
	}
	return e.fitter, true
}

// Names lists the registered functions and models in sorted order
func Names() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func init() {
	RegisterDirect("meanf", fitMean)
	RegisterDirect("naive", fitNaive)
	RegisterDirect("snaive", fitSeasonalNaive)
	RegisterDirect("rwf", fitRandomWalk)
	RegisterDirect("thetaf", fitTheta)
	RegisterDirect("splinef", fitSpline)

	Register("ses", fitSES)
	Register("holt", fitHolt)
	Register("hw", fitHoltWinters)
	Register("ets", fitETS)
	Register("arima", fitArima)
	Register("Arima", fitArima)
	Register("auto.arima", fitAutoArima)
	Register("sarima", fitSarima)
}
