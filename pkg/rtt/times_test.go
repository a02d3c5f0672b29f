package rtt

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseWTTTime(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "plain", input: "1234", expected: "12:34:00"},
		{name: "half minute", input: "1234½", expected: "12:34:30"},
		{name: "leading zero", input: "0305", expected: "03:05:00"},
		{name: "surrounding whitespace", input: " 0305 ", expected: "03:05:00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			parsed := ParseWTTTime(tt.input)
			require.NotNil(t, parsed)
			assert.Equal(t, tt.expected, parsed.Format("15:04:05"))
		})
	}
}

func TestParseWTTTimeRejectsGarbage(t *testing.T) {
	for _, input := range []string{"", "pass", "25631", "12:34", "abcd"} {
		assert.Nil(t, ParseWTTTime(input), "input %q", input)
	}
}

func timeOfDay(hour int, minute int) *time.Time {
	value := time.Date(0, 1, 1, hour, minute, 0, 0, time.UTC)
	return &value
}

func TestNormalizeCallTimesJoinsRunDate(t *testing.T) {
	runDate := time.Date(2025, 8, 20, 0, 0, 0, 0, time.UTC)
	calls := []Call{
		{Location: "London Paddington", Departure: timeOfDay(3, 5)},
		{Location: "Reading", Arrival: timeOfDay(3, 40)},
	}

	NormalizeCallTimes(calls, runDate)

	assert.Equal(t, time.Date(2025, 8, 20, 3, 5, 0, 0, time.UTC), *calls[0].Departure)
	assert.Equal(t, time.Date(2025, 8, 20, 3, 40, 0, 0, time.UTC), *calls[1].Arrival)
}

func TestNormalizeCallTimesRollsPastMidnight(t *testing.T) {
	runDate := time.Date(2025, 8, 20, 0, 0, 0, 0, time.UTC)
	calls := []Call{
		{Location: "London Paddington", Departure: timeOfDay(23, 30)},
		{Location: "Reading", Arrival: timeOfDay(0, 10), Departure: timeOfDay(0, 12)},
		{Location: "Oxford", Arrival: timeOfDay(0, 45)},
	}

	NormalizeCallTimes(calls, runDate)

	assert.Equal(t, time.Date(2025, 8, 20, 23, 30, 0, 0, time.UTC), *calls[0].Departure)
	assert.Equal(t, time.Date(2025, 8, 21, 0, 10, 0, 0, time.UTC), *calls[1].Arrival)
	assert.Equal(t, time.Date(2025, 8, 21, 0, 45, 0, 0, time.UTC), *calls[2].Arrival)
}
