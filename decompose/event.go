package decompose

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rickar/cal/v2"
)

var (
	ErrStartAfterEnd = errors.New("event start time is after end time")
	ErrUnsetTime     = errors.New("unset event start or end time")
	ErrNoEventName   = errors.New("no event name")
)

// Event is a time span modelled separately from trend and seasonality
type Event struct {
	Name  string    `json:"name"`
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

func NewEvent(name string, start, end time.Time) Event {
	return Event{
		Name:  name,
		Start: start,
		End:   end,
	}
}

func (e Event) Valid() error {
	if e.Start.IsZero() || e.End.IsZero() {
		return ErrUnsetTime
	}
	if e.Start.After(e.End) {
		return ErrStartAfterEnd
	}
	if e.Name == "" {
		return ErrNoEventName
	}
	return nil
}

// Contains reports whether t falls within [Start, End)
func (e Event) Contains(t time.Time) bool {
	return !t.Before(e.Start) && t.Before(e.End)
}

// Holiday returns one event per year for every observed occurrence of the holiday between
// start and end. The observed day is interpreted in the location of start.
func Holiday(hol *cal.Holiday, start, end time.Time, durBefore, durAfter time.Duration) []Event {
	loc := start.Location()

	var events []Event
	for year := start.Year(); year <= end.Year(); year++ {
		_, observed := hol.Calc(year)
		if observed.IsZero() {
			continue
		}
		day := time.Date(observed.Year(), observed.Month(), observed.Day(), 0, 0, 0, 0, loc)
		if day.Before(start.Add(-durAfter-24*time.Hour)) || day.After(end.Add(durBefore)) {
			continue
		}
		events = append(events, Event{
			Name:  strings.ReplaceAll(fmt.Sprintf("%s_%d", hol.Name, year), " ", "_"),
			Start: day.Add(-durBefore),
			End:   day.Add(24 * time.Hour).Add(durAfter),
		})
	}
	return events
}

func holidayLabel(hol *cal.Holiday) string {
	return "event_" + strings.ReplaceAll(hol.Name, " ", "_")
}
