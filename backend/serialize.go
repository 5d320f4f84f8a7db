package backend

import (
	"context"
	"sync"

	"github.com/forecastkit/magi/dispatch"
)

type serialized struct {
	mu     sync.Mutex
	engine Engine
}

// Serialize wraps an engine that is not safe for concurrent use so that at most one call is
// in flight at a time.
func Serialize(engine Engine) Engine {
	if engine == nil {
		return nil
	}
	if _, ok := engine.(*serialized); ok {
		return engine
	}
	return &serialized{engine: engine}
}

func (s *serialized) Forecast(ctx context.Context, call dispatch.Call, data Periodic) (*Raw, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.engine.Forecast(ctx, call, data)
}

func (s *serialized) Clean(ctx context.Context, data Periodic, replaceMissing bool) ([]float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.engine.Clean(ctx, data, replaceMissing)
}

func (s *serialized) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.engine.Close()
}
