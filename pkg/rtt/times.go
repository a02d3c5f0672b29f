package rtt

import (
	"strings"
	"time"

	"github.com/traingraph/traingraph/pkg/util"
)

// ParseWTTTime parses a working timetable time of day in HHMM form. A
// trailing half symbol marks a half-minute, so "1234½" is 12:34:30. Returns
// nil for empty or unparsable text.
func ParseWTTTime(text string) *time.Time {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	halfMinute := false
	if strings.HasSuffix(text, "½") {
		halfMinute = true
		text = strings.TrimSuffix(text, "½")
	}

	parsed, err := time.Parse("1504", text)
	if err != nil {
		return nil
	}

	if halfMinute {
		parsed = parsed.Add(30 * time.Second)
	}

	return &parsed
}

// NormalizeCallTimes joins every call time onto the run date and handles
// services that cross midnight: any time earlier than the first departure
// belongs to the next day.
func NormalizeCallTimes(calls []Call, runDate time.Time) {
	var firstDeparture *time.Time
	for index := range calls {
		if calls[index].Departure != nil {
			firstDeparture = calls[index].Departure
			break
		}
		if calls[index].Arrival != nil {
			firstDeparture = calls[index].Arrival
			break
		}
	}
	if firstDeparture == nil {
		return
	}

	reference := util.AddTimeToDate(runDate, *firstDeparture)

	for index := range calls {
		for _, field := range []**time.Time{&calls[index].Arrival, &calls[index].Departure} {
			if *field == nil {
				continue
			}

			dated := util.AddTimeToDate(runDate, **field)
			if dated.Before(reference) {
				dated = dated.AddDate(0, 0, 1)
			}

			*field = &dated
		}
	}
}
