package decompose

import (
	"fmt"
	"math"
	"time"

	"github.com/forecastkit/magi/timedataset"
)

type featureKind int

const (
	featureTrend featureKind = iota
	featureSeasonality
	featureEvent
)

type column struct {
	label string
	kind  featureKind
	data  []float64
}

type seasonality struct {
	name   string
	period float64 // days
	order  int
}

const secondsPerDay = 86400.0

// stepDays returns the approximate spacing of a frequency in days
func stepDays(freq timedataset.Frequency) float64 {
	switch freq {
	case timedataset.Hourly:
		return 1.0 / 24.0
	case timedataset.Daily:
		return 1
	case timedataset.Monthly:
		return 365.25 / 12
	case timedataset.Quarterly:
		return 365.25 / 4
	case timedataset.Annual:
		return 365.25
	}
	return 1
}

// seasonalities returns the Fourier seasonalities the training span and sampling support.
// Orders are capped below the Nyquist limit of the sampling so sin/cos pairs stay identifiable.
func seasonalities(span time.Duration, freq timedataset.Frequency, opt *Options) []seasonality {
	days := span.Hours() / 24
	step := stepDays(freq)
	candidates := []seasonality{
		{name: "yearly", period: 365.25, order: opt.YearlyOrders},
		{name: "weekly", period: 7, order: opt.WeeklyOrders},
		{name: "daily", period: 1, order: opt.DailyOrders},
	}

	var res []seasonality
	for _, s := range candidates {
		if s.order == 0 || days < 2*s.period {
			continue
		}
		pointsPerCycle := s.period / step
		maxOrder := int((pointsPerCycle - 1) / 2)
		if maxOrder < 1 {
			continue
		}
		s.order = min(s.order, maxOrder)
		res = append(res, s)
	}
	return res
}

// autoChangepoints places up to num changepoints at observation times uniformly over the first
// share of the data
func autoChangepoints(t []time.Time, num int, share float64) []time.Time {
	histSize := int(math.Floor(float64(len(t)) * share))
	num = min(num, histSize-1)
	if num <= 0 {
		return nil
	}
	res := make([]time.Time, 0, num)
	for i := 1; i <= num; i++ {
		idx := int(math.Round(float64(i) * float64(histSize-1) / float64(num)))
		res = append(res, t[idx])
	}
	return res
}

func (m *Model) scaleTime(t time.Time) float64 {
	return t.Sub(m.start).Seconds() / m.end.Sub(m.start).Seconds()
}

// design builds the feature columns for t. The intercept is the first column.
func (m *Model) design(t []time.Time) []column {
	n := len(t)
	ts := make([]float64, n)
	days := make([]float64, n)
	for i, tPnt := range t {
		ts[i] = m.scaleTime(tPnt)
		days[i] = float64(tPnt.Unix()) / secondsPerDay
	}

	ones := make([]float64, n)
	for i := range ones {
		ones[i] = 1
	}
	cols := []column{
		{label: "intercept", kind: featureTrend, data: ones},
		{label: "growth", kind: featureTrend, data: ts},
	}

	for j, cp := range m.changepoints {
		cpScaled := m.scaleTime(cp)
		data := make([]float64, n)
		for i, v := range ts {
			data[i] = math.Max(0, v-cpScaled)
		}
		cols = append(cols, column{label: fmt.Sprintf("chpt_auto_%02d", j), kind: featureTrend, data: data})
	}

	for _, s := range m.seasonalities {
		for k := 1; k <= s.order; k++ {
			omega := 2.0 * math.Pi * float64(k) / s.period
			sinFeat := make([]float64, n)
			cosFeat := make([]float64, n)
			for i, d := range days {
				sinFeat[i] = math.Sin(omega * d)
				cosFeat[i] = math.Cos(omega * d)
			}
			cols = append(cols,
				column{label: fmt.Sprintf("seas_%s_%02d_sin", s.name, k), kind: featureSeasonality, data: sinFeat},
				column{label: fmt.Sprintf("seas_%s_%02d_cos", s.name, k), kind: featureSeasonality, data: cosFeat},
			)
		}
	}

	if len(m.holidays) > 0 && n > 0 {
		for _, hol := range m.holidays {
			events := Holiday(hol, t[0], t[n-1], m.opt.HolidayBefore, m.opt.HolidayAfter)
			data := make([]float64, n)
			for i, tPnt := range t {
				for _, ev := range events {
					if ev.Contains(tPnt) {
						data[i] = 1
						break
					}
				}
			}
			cols = append(cols, column{label: holidayLabel(hol), kind: featureEvent, data: data})
		}
	}
	return cols
}
