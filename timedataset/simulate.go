package timedataset

import (
	"fmt"
	"math"
	"math/rand/v2"
	"time"

	"gonum.org/v1/gonum/floats"
)

// GenerateT returns n timestamps spaced one period of freq apart, ending at end.
func GenerateT(n int, end time.Time, freq Frequency) ([]time.Time, error) {
	start, err := freq.Add(end, -(n - 1))
	if err != nil {
		return nil, err
	}
	return Index(start, n, freq, ModeAlignment)
}

type Series []float64

func (s Series) Add(src Series) Series {
	floats.Add(s, src)
	return s
}

// SetNaN blanks out the observations in [start, end)
func (s Series) SetNaN(start, end int) Series {
	for i := max(start, 0); i < end && i < len(s); i++ {
		s[i] = math.NaN()
	}
	return s
}

func GenerateConstY(n int, val float64) Series {
	y := make([]float64, 0, n)
	for i := 0; i < n; i++ {
		y = append(y, val)
	}
	return Series(y)
}

// GenerateTrendY returns a straight line starting at intercept increasing by slope per point
func GenerateTrendY(n int, intercept, slope float64) Series {
	y := make([]float64, 0, n)
	for i := 0; i < n; i++ {
		y = append(y, intercept+slope*float64(i))
	}
	return Series(y)
}

// GenerateWaveY returns a sine wave with the given amplitude repeating every period points
func GenerateWaveY(n int, amp float64, period int, phase float64) Series {
	y := make([]float64, 0, n)
	for i := 0; i < n; i++ {
		y = append(y, amp*math.Sin(2.0*math.Pi*float64(i)/float64(period)+phase))
	}
	return Series(y)
}

// GenerateNoise returns gaussian noise with the given standard deviation
func GenerateNoise(n int, scale float64, rng *rand.Rand) Series {
	y := make([]float64, 0, n)
	for i := 0; i < n; i++ {
		y = append(y, rng.NormFloat64()*scale)
	}
	return Series(y)
}

// TableOptions configures GenerateTable
type TableOptions struct {
	NumColumns int
	NumRows    int
	Min        int
	Max        int
	End        time.Time
	Frequency  Frequency
	Seed       uint64
}

// NewDefaultTableOptions mirrors five monthly columns of two years of integers in [0, 10000)
func NewDefaultTableOptions() *TableOptions {
	return &TableOptions{
		NumColumns: 5,
		NumRows:    24,
		Min:        0,
		Max:        10000,
		End:        time.Date(2018, 4, 1, 0, 0, 0, 0, time.UTC),
		Frequency:  Monthly,
		Seed:       1,
	}
}

// GenerateTable builds a table of uniformly random integer valued columns named ts0, ts1, ...
func GenerateTable(opt *TableOptions) (*Table, error) {
	if opt == nil {
		opt = NewDefaultTableOptions()
	}
	if opt.Max <= opt.Min {
		return nil, fmt.Errorf("max %d must be larger than min %d, %w", opt.Max, opt.Min, ErrNoTrainingData)
	}
	t, err := GenerateT(opt.NumRows, opt.End, opt.Frequency)
	if err != nil {
		return nil, err
	}

	rng := rand.New(rand.NewPCG(opt.Seed, opt.Seed+1))
	names := make([]string, 0, opt.NumColumns)
	values := make([][]float64, 0, opt.NumColumns)
	for i := 0; i < opt.NumColumns; i++ {
		names = append(names, fmt.Sprintf("ts%d", i))
		col := make([]float64, 0, opt.NumRows)
		for j := 0; j < opt.NumRows; j++ {
			col = append(col, float64(opt.Min+rng.IntN(opt.Max-opt.Min)))
		}
		values = append(values, col)
	}
	return NewTableFromColumns(t, names, values)
}
