package decompose

import (
	"testing"
	"time"

	"github.com/rickar/cal/v2"
	"github.com/rickar/cal/v2/us"
	"github.com/stretchr/testify/assert"
)

func TestHoliday(t *testing.T) {
	pst := time.FixedZone("UTC-8", -8*60*60)
	testData := map[string]struct {
		hol       *cal.Holiday
		start     time.Time
		end       time.Time
		durBefore time.Duration
		durAfter  time.Duration
		expected  []Event
	}{
		"simple": {
			hol:   us.ChristmasDay,
			start: time.Date(2024, 12, 8, 1, 0, 0, 0, time.UTC),
			end:   time.Date(2026, 12, 8, 1, 0, 0, 0, time.UTC),
			expected: []Event{
				{
					"Christmas_Day_2024",
					time.Date(2024, 12, 25, 0, 0, 0, 0, time.UTC),
					time.Date(2024, 12, 26, 0, 0, 0, 0, time.UTC),
				},
				{
					"Christmas_Day_2025",
					time.Date(2025, 12, 25, 0, 0, 0, 0, time.UTC),
					time.Date(2025, 12, 26, 0, 0, 0, 0, time.UTC),
				},
			},
		},
		"non utc tz": {
			hol:   us.ChristmasDay,
			start: time.Date(2024, 12, 8, 1, 0, 0, 0, pst),
			end:   time.Date(2026, 12, 8, 1, 0, 0, 0, pst),
			expected: []Event{
				{
					"Christmas_Day_2024",
					time.Date(2024, 12, 25, 0, 0, 0, 0, pst),
					time.Date(2024, 12, 26, 0, 0, 0, 0, pst),
				},
				{
					"Christmas_Day_2025",
					time.Date(2025, 12, 25, 0, 0, 0, 0, pst),
					time.Date(2025, 12, 26, 0, 0, 0, 0, pst),
				},
			},
		},
		"with buffer": {
			hol:       us.ChristmasDay,
			start:     time.Date(2024, 12, 8, 1, 0, 0, 0, time.UTC),
			end:       time.Date(2026, 12, 8, 1, 0, 0, 0, time.UTC),
			durBefore: 24 * time.Hour,
			durAfter:  2 * 24 * time.Hour,
			expected: []Event{
				{
					"Christmas_Day_2024",
					time.Date(2024, 12, 24, 0, 0, 0, 0, time.UTC),
					time.Date(2024, 12, 28, 0, 0, 0, 0, time.UTC),
				},
				{
					"Christmas_Day_2025",
					time.Date(2025, 12, 24, 0, 0, 0, 0, time.UTC),
					time.Date(2025, 12, 28, 0, 0, 0, 0, time.UTC),
				},
			},
		},
		"out of range": {
			hol:      us.ChristmasDay,
			start:    time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
			end:      time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
			expected: nil,
		},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			res := Holiday(td.hol, td.start, td.end, td.durBefore, td.durAfter)
			assert.Equal(t, td.expected, res)
		})
	}
}

func TestEventValid(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	end := start.Add(time.Hour)

	assert.NoError(t, NewEvent("launch", start, end).Valid())
	assert.ErrorIs(t, NewEvent("launch", time.Time{}, end).Valid(), ErrUnsetTime)
	assert.ErrorIs(t, NewEvent("launch", end, start).Valid(), ErrStartAfterEnd)
	assert.ErrorIs(t, NewEvent("", start, end).Valid(), ErrNoEventName)

	ev := NewEvent("launch", start, end)
	assert.True(t, ev.Contains(start))
	assert.False(t, ev.Contains(end))
}
