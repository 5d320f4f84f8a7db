package timedataset

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/forecastkit/magi/errs"
)

var ErrCannotInferFreq = errors.New("cannot infer frequency with less than 2 time points")

type TimeSlice []time.Time

func (t TimeSlice) StartTime() time.Time {
	var startTime time.Time
	if len(t) < 1 {
		return startTime
	}
	return t[0]
}

func (t TimeSlice) EndTime() time.Time {
	var lastTime time.Time
	if len(t) < 1 {
		return lastTime
	}

	lastTime = t[len(t)-1]
	return lastTime
}

// EstimateFreq returns the most common spacing between consecutive time points. Ties go to
// the smaller spacing.
func (t TimeSlice) EstimateFreq() (time.Duration, error) {
	if len(t) < 2 {
		return 0, ErrCannotInferFreq
	}

	frequencies := make(map[time.Duration]int)
	for i := 1; i < len(t); i++ {
		delta := t[i].Sub(t[i-1])
		frequencies[delta] += 1
	}

	var maxCnt int
	maxDelta := time.Duration(math.MaxInt64)

	for delta, cnt := range frequencies {
		if cnt > maxCnt || (cnt == maxCnt && delta < maxDelta) {
			maxCnt = cnt
			maxDelta = delta
		}
	}
	return maxDelta, nil
}

// Frequency maps the estimated spacing onto a supported unit. Calendar spacings are matched
// within their natural range (28-31 days for a month, 365-366 days for a year, ...) and a day
// tolerates an hour of daylight saving shift.
func (t TimeSlice) Frequency() (Frequency, error) {
	delta, err := t.EstimateFreq()
	if err != nil {
		return "", err
	}

	day := 24 * time.Hour
	switch {
	case delta == time.Hour:
		return Hourly, nil
	case delta >= 23*time.Hour && delta <= 25*time.Hour:
		return Daily, nil
	case delta >= 28*day && delta <= 31*day+time.Hour:
		return Monthly, nil
	case delta >= 89*day && delta <= 92*day+time.Hour:
		return Quarterly, nil
	case delta >= 365*day && delta <= 366*day+time.Hour:
		return Annual, nil
	}
	return "", fmt.Errorf("no frequency unit matches a spacing of %s, %w", delta, errs.ErrConfiguration)
}

// InferFrequency is a convenience around TimeSlice.Frequency
func InferFrequency(t []time.Time) (Frequency, error) {
	return TimeSlice(t).Frequency()
}
