package backend

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/forecastkit/magi/dispatch"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

var errEngine = errors.New("engine failure")

type stubEngine struct {
	inFlight    atomic.Int32
	maxInFlight atomic.Int32
	fail        bool
	closed      bool
}

func (s *stubEngine) enter() {
	n := s.inFlight.Add(1)
	for {
		cur := s.maxInFlight.Load()
		if n <= cur || s.maxInFlight.CompareAndSwap(cur, n) {
			break
		}
	}
	time.Sleep(time.Millisecond)
	s.inFlight.Add(-1)
}

func (s *stubEngine) Forecast(ctx context.Context, call dispatch.Call, data Periodic) (*Raw, error) {
	s.enter()
	if s.fail {
		return nil, errEngine
	}
	return &Raw{Method: call.Name(), Mean: Vector(make([]float64, call.Horizon))}, nil
}

func (s *stubEngine) Clean(ctx context.Context, data Periodic, replaceMissing bool) ([]float64, error) {
	s.enter()
	if s.fail {
		return nil, errEngine
	}
	return data.Values, nil
}

func (s *stubEngine) Close() error {
	s.closed = true
	return nil
}

func TestFlatten(t *testing.T) {
	testData := map[string]struct {
		m        mat.Matrix
		expected []float64
	}{
		"nil": {
			m:        nil,
			expected: nil,
		},
		"vector": {
			m:        Vector([]float64{1, 2, 3}),
			expected: []float64{1, 2, 3},
		},
		"nested": {
			m:        Nested([]float64{1, 2, 3}),
			expected: []float64{1, 2, 3},
		},
		"bounds matrix": {
			m:        mat.NewDense(2, 2, []float64{1, 2, 3, 4}),
			expected: []float64{1, 2, 3, 4},
		},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, td.expected, Flatten(td.m))
		})
	}
}

func TestVectorCopies(t *testing.T) {
	src := []float64{1, 2}
	v := Vector(src)
	src[0] = 10
	assert.Equal(t, []float64{1, 2}, Flatten(v))
	assert.Nil(t, Vector(nil))
	assert.Nil(t, Nested(nil))
}

func TestSerialize(t *testing.T) {
	stub := &stubEngine{}
	engine := Serialize(stub)
	assert.Same(t, engine, Serialize(engine))

	call, err := dispatch.NewCall("thetaf", 3, 80)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, err := engine.Forecast(context.Background(), call, Periodic{Values: []float64{1, 2}, Period: 1})
			assert.NoError(t, err)
		}()
		go func() {
			defer wg.Done()
			_, err := engine.Clean(context.Background(), Periodic{Values: []float64{1, 2}, Period: 1}, true)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), stub.maxInFlight.Load())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = engine.Forecast(ctx, call, Periodic{})
	assert.ErrorIs(t, err, context.Canceled)

	require.NoError(t, engine.Close())
	assert.True(t, stub.closed)
	assert.Nil(t, Serialize(nil))
}

func TestInstrument(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewMetrics(reg)

	stub := &stubEngine{}
	engine := Instrument(stub, metrics)

	call, err := dispatch.NewCall("auto.arima(rdata)", 3, 80)
	require.NoError(t, err)

	_, err = engine.Forecast(context.Background(), call, Periodic{Values: []float64{1}, Period: 1})
	require.NoError(t, err)
	_, err = engine.Clean(context.Background(), Periodic{Values: []float64{1}, Period: 1}, false)
	require.NoError(t, err)

	stub.fail = true
	_, err = engine.Forecast(context.Background(), call, Periodic{Values: []float64{1}, Period: 1})
	require.ErrorIs(t, err, errEngine)

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.Calls.WithLabelValues("forecast", "fit-forecast", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.Calls.WithLabelValues("forecast", "fit-forecast", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.Calls.WithLabelValues("clean", "tsclean", "ok")))
	assert.Equal(t, 3, testutil.CollectAndCount(metrics.Calls))

	assert.Same(t, stub, Instrument(stub, nil))
}
