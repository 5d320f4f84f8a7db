package timedataset

import (
	"testing"
	"time"

	"github.com/forecastkit/magi/errs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFrequencyMapping(t *testing.T) {
	testData := map[Frequency]struct {
		period int
		code   string
	}{
		Monthly:   {12, "MS"},
		Annual:    {1, "YS"},
		Daily:     {365, "D"},
		Quarterly: {4, "QS"},
		Hourly:    {8760, "H"},
	}

	require.Len(t, Frequencies(), len(testData))
	for _, freq := range Frequencies() {
		t.Run(freq.String(), func(t *testing.T) {
			expected, exists := testData[freq]
			require.True(t, exists)

			period, err := freq.Period()
			require.NoError(t, err)
			assert.Equal(t, expected.period, period)

			code, err := freq.Code()
			require.NoError(t, err)
			assert.Equal(t, expected.code, code)

			fromPeriod, err := FrequencyFromPeriod(period)
			require.NoError(t, err)
			assert.Equal(t, freq, fromPeriod)
		})
	}
}

func TestUnmappedFrequency(t *testing.T) {
	freq := Frequency("weekly")
	assert.ErrorIs(t, freq.Validate(), errs.ErrConfiguration)

	_, err := freq.Period()
	assert.ErrorIs(t, err, errs.ErrConfiguration)

	_, err = freq.Code()
	assert.ErrorIs(t, err, errs.ErrConfiguration)

	_, err = freq.Add(time.Now(), 1)
	assert.ErrorIs(t, err, errs.ErrConfiguration)

	_, err = FrequencyFromPeriod(52)
	assert.ErrorIs(t, err, errs.ErrConfiguration)
}

func TestParseFrequency(t *testing.T) {
	testData := map[string]struct {
		input    string
		expected Frequency
		err      error
	}{
		"name":           {input: "monthly", expected: Monthly},
		"mixed case":     {input: " Quarterly ", expected: Quarterly},
		"code":           {input: "MS", expected: Monthly},
		"lowercase code": {input: "d", expected: Daily},
		"period":         {input: "8760", expected: Hourly},
		"annual period":  {input: "1", expected: Annual},
		"unknown":        {input: "fortnightly", err: errs.ErrConfiguration},
		"unknown period": {input: "7", err: errs.ErrConfiguration},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			freq, err := ParseFrequency(td.input)
			if td.err != nil {
				assert.ErrorIs(t, err, td.err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, td.expected, freq)
		})
	}
}

func TestFrequencyAdd(t *testing.T) {
	testData := map[string]struct {
		freq     Frequency
		start    time.Time
		k        int
		expected time.Time
	}{
		"monthly": {
			freq:     Monthly,
			start:    time.Date(2018, 1, 1, 0, 0, 0, 0, time.UTC),
			k:        1,
			expected: time.Date(2018, 2, 1, 0, 0, 0, 0, time.UTC),
		},
		"monthly clamps to end of february": {
			freq:     Monthly,
			start:    time.Date(2018, 1, 31, 0, 0, 0, 0, time.UTC),
			k:        1,
			expected: time.Date(2018, 2, 28, 0, 0, 0, 0, time.UTC),
		},
		"monthly leap year": {
			freq:     Monthly,
			start:    time.Date(2020, 1, 31, 0, 0, 0, 0, time.UTC),
			k:        1,
			expected: time.Date(2020, 2, 29, 0, 0, 0, 0, time.UTC),
		},
		"monthly backwards across year": {
			freq:     Monthly,
			start:    time.Date(2018, 2, 1, 0, 0, 0, 0, time.UTC),
			k:        -3,
			expected: time.Date(2017, 11, 1, 0, 0, 0, 0, time.UTC),
		},
		"quarterly": {
			freq:     Quarterly,
			start:    time.Date(2018, 10, 1, 0, 0, 0, 0, time.UTC),
			k:        2,
			expected: time.Date(2019, 4, 1, 0, 0, 0, 0, time.UTC),
		},
		"annual from leap day": {
			freq:     Annual,
			start:    time.Date(2020, 2, 29, 0, 0, 0, 0, time.UTC),
			k:        1,
			expected: time.Date(2021, 2, 28, 0, 0, 0, 0, time.UTC),
		},
		"daily": {
			freq:     Daily,
			start:    time.Date(2018, 12, 31, 0, 0, 0, 0, time.UTC),
			k:        1,
			expected: time.Date(2019, 1, 1, 0, 0, 0, 0, time.UTC),
		},
		"hourly": {
			freq:     Hourly,
			start:    time.Date(2018, 12, 31, 23, 0, 0, 0, time.UTC),
			k:        2,
			expected: time.Date(2019, 1, 1, 1, 0, 0, 0, time.UTC),
		},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			res, err := td.freq.Add(td.start, td.k)
			require.NoError(t, err)
			assert.Equal(t, td.expected, res)
		})
	}
}
