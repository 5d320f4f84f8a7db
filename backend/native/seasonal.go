package native

import (
	"sort"
)

type components struct {
	trend     []float64
	seasonal  []float64
	remainder []float64
	index     []float64
}

// classical runs an additive moving average decomposition. It needs a period of at least two
// and two full seasons of data.
func classical(y []float64, m int) (*components, bool) {
	n := len(y)
	if m < 2 || n < 2*m {
		return nil, false
	}

	trend := make([]float64, n)
	defined := make([]bool, n)
	half := m / 2
	for i := half; i < n-half; i++ {
		var sum float64
		if m%2 == 1 {
			for j := i - half; j <= i+half; j++ {
				sum += y[j]
			}
			trend[i] = sum / float64(m)
		} else {
			sum = 0.5*y[i-half] + 0.5*y[i+half]
			for j := i - half + 1; j < i+half; j++ {
				sum += y[j]
			}
			trend[i] = sum / float64(m)
		}
		defined[i] = true
	}
	// the moving average is undefined over the outer half seasons, extend it along the slope
	// of the first and last defined season
	first, last := half, n-half-1
	head := (trend[first+m-1] - trend[first]) / float64(m-1)
	tail := (trend[last] - trend[last-m+1]) / float64(m-1)
	for i := 0; i < first; i++ {
		trend[i] = trend[first] - head*float64(first-i)
	}
	for i := last + 1; i < n; i++ {
		trend[i] = trend[last] + tail*float64(i-last)
	}

	index := make([]float64, m)
	counts := make([]int, m)
	for i := range y {
		if !defined[i] {
			continue
		}
		index[i%m] += y[i] - trend[i]
		counts[i%m]++
	}
	var center float64
	for k := range index {
		if counts[k] > 0 {
			index[k] /= float64(counts[k])
		}
		center += index[k]
	}
	center /= float64(m)
	for k := range index {
		index[k] -= center
	}

	res := &components{
		trend:     trend,
		seasonal:  make([]float64, n),
		remainder: make([]float64, n),
		index:     index,
	}
	for i := range y {
		res.seasonal[i] = index[i%m]
		res.remainder[i] = y[i] - trend[i] - res.seasonal[i]
	}
	return res, true
}

// runningMedian smooths y with a centered median of the given odd window. Near the edges the
// window shrinks symmetrically so it stays centered on the point.
func runningMedian(y []float64, window int) []float64 {
	half := window / 2
	res := make([]float64, len(y))
	buf := make([]float64, 0, window)
	for i := range y {
		w := min(half, i, len(y)-1-i)
		lo, hi := i-w, i+w
		buf = append(buf[:0], y[lo:hi+1]...)
		sort.Float64s(buf)
		mid := len(buf) / 2
		if len(buf)%2 == 1 {
			res[i] = buf[mid]
		} else {
			res[i] = 0.5 * (buf[mid-1] + buf[mid])
		}
	}
	return res
}
