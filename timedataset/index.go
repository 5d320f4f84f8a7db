package timedataset

import (
	"fmt"
	"time"

	"github.com/forecastkit/magi/errs"
)

// IndexMode decides where a reconstructed index starts relative to its anchor
type IndexMode int

const (
	// ModeAlignment starts the index at the anchor. Used for fitted values, residuals, and
	// cleaned series anchored at the first observed timestamp.
	ModeAlignment IndexMode = iota

	// ModeContinuation starts the index one period after the anchor. Used for point forecasts
	// anchored at the last observed timestamp.
	ModeContinuation
)

func (m IndexMode) String() string {
	switch m {
	case ModeAlignment:
		return "alignment"
	case ModeContinuation:
		return "continuation"
	default:
		return fmt.Sprintf("IndexMode(%d)", int(m))
	}
}

// Index produces n strictly increasing timestamps spaced one period of freq apart.
func Index(anchor time.Time, n int, freq Frequency, mode IndexMode) ([]time.Time, error) {
	if err := freq.Validate(); err != nil {
		return nil, err
	}
	if n < 0 {
		return nil, fmt.Errorf("negative index length %d, %w", n, errs.ErrConfiguration)
	}

	var offset int
	switch mode {
	case ModeAlignment:
	case ModeContinuation:
		offset = 1
	default:
		return nil, fmt.Errorf("unknown index mode %s, %w", mode, errs.ErrConfiguration)
	}

	t := make([]time.Time, 0, n)
	for i := 0; i < n; i++ {
		// always step from the anchor so clamped month days do not drift
		next, err := freq.Add(anchor, offset+i)
		if err != nil {
			return nil, err
		}
		t = append(t, next)
	}
	return t, nil
}

// Reindex returns a dataset with values y relabelled by a reconstructed index
func Reindex(name string, anchor time.Time, y []float64, freq Frequency, mode IndexMode) (*TimeDataset, error) {
	t, err := Index(anchor, len(y), freq, mode)
	if err != nil {
		return nil, err
	}
	ySeries := make([]float64, len(y))
	copy(ySeries, y)
	return &TimeDataset{
		Name: name,
		T:    t,
		Y:    ySeries,
	}, nil
}
