package timedataset

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/forecastkit/magi/errs"
)

// Frequency is the periodicity of a series. Each unit maps to the number of observations per
// seasonal cycle handed to engines and to the date offset used to rebuild indices.
type Frequency string

const (
	Monthly   Frequency = "monthly"
	Annual    Frequency = "annual"
	Daily     Frequency = "daily"
	Quarterly Frequency = "quarterly"
	Hourly    Frequency = "hourly"
)

type frequencyInfo struct {
	period int
	code   string
	months int
	days   int
	hours  int
}

var frequencies = map[Frequency]frequencyInfo{
	Monthly:   {period: 12, code: "MS", months: 1},
	Annual:    {period: 1, code: "YS", months: 12},
	Daily:     {period: 365, code: "D", days: 1},
	Quarterly: {period: 4, code: "QS", months: 3},
	Hourly:    {period: 8760, code: "H", hours: 1},
}

// Frequencies lists every supported unit
func Frequencies() []Frequency {
	return []Frequency{Monthly, Annual, Daily, Quarterly, Hourly}
}

func (f Frequency) info() (frequencyInfo, error) {
	info, exists := frequencies[f]
	if !exists {
		return frequencyInfo{}, fmt.Errorf("unmapped frequency %q, %w", string(f), errs.ErrConfiguration)
	}
	return info, nil
}

// Validate returns a configuration error for an unmapped unit
func (f Frequency) Validate() error {
	_, err := f.info()
	return err
}

// Period returns the number of observations per seasonal cycle, e.g. 12 for monthly.
func (f Frequency) Period() (int, error) {
	info, err := f.info()
	if err != nil {
		return 0, err
	}
	return info.period, nil
}

// Code returns the date offset code of the unit, e.g. MS for month start.
func (f Frequency) Code() (string, error) {
	info, err := f.info()
	if err != nil {
		return "", err
	}
	return info.code, nil
}

func (f Frequency) String() string {
	return string(f)
}

// Add moves t by k periods. Calendar units keep the day of month of t, clamped to the length
// of the target month, so stepping from Jan 31 yields Feb 28/29 then Mar 31.
func (f Frequency) Add(t time.Time, k int) (time.Time, error) {
	info, err := f.info()
	if err != nil {
		return time.Time{}, err
	}
	switch {
	case info.months > 0:
		return addMonths(t, info.months*k), nil
	case info.days > 0:
		return t.AddDate(0, 0, info.days*k), nil
	default:
		return t.Add(time.Duration(info.hours*k) * time.Hour), nil
	}
}

func addMonths(t time.Time, months int) time.Time {
	y, m, d := t.Date()
	hh, mm, ss := t.Clock()

	total := int(m) - 1 + months
	years := total / 12
	rem := total % 12
	if rem < 0 {
		rem += 12
		years--
	}
	ny := y + years
	nm := time.Month(rem + 1)
	if last := daysIn(ny, nm); d > last {
		d = last
	}
	return time.Date(ny, nm, d, hh, mm, ss, t.Nanosecond(), t.Location())
}

func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// ParseFrequency accepts a unit name, its offset code, or its period as a string.
func ParseFrequency(s string) (Frequency, error) {
	norm := strings.ToLower(strings.TrimSpace(s))
	if _, exists := frequencies[Frequency(norm)]; exists {
		return Frequency(norm), nil
	}
	for f, info := range frequencies {
		if strings.EqualFold(info.code, norm) {
			return f, nil
		}
	}
	if p, err := strconv.Atoi(norm); err == nil {
		return FrequencyFromPeriod(p)
	}
	return "", fmt.Errorf("unmapped frequency %q, %w", s, errs.ErrConfiguration)
}

// FrequencyFromPeriod maps an engine periodicity (12, 1, 365, 4, 8760) back to its unit.
func FrequencyFromPeriod(period int) (Frequency, error) {
	for f, info := range frequencies {
		if info.period == period {
			return f, nil
		}
	}
	return "", fmt.Errorf("unmapped frequency period %d, %w", period, errs.ErrConfiguration)
}
