package rtt

import (
	"fmt"
	"time"

	"github.com/traingraph/traingraph/pkg/cache"
	"github.com/traingraph/traingraph/pkg/util"
)

const BaseURL = "https://www.realtimetrains.co.uk"

const detailedSearchFormat = "%s/search/detailed/gb-nr:%s/%s/%s-%s"

// ListingRequest identifies one detailed search page - all the services
// calling at a location within a window on a date.
type ListingRequest struct {
	Location string
	Date     string // YYYY-MM-DD
	Start    string // HHMM
	End      string // HHMM
}

func (request ListingRequest) URL() string {
	return fmt.Sprintf(detailedSearchFormat, BaseURL, request.Location, request.Date, request.Start, request.End)
}

func (request ListingRequest) Fingerprint() string {
	return cache.ListingFingerprint(request.Location, request.Date, request.Start, request.End)
}

// GenerateListingRequests builds the detailed search requests for a set of
// location codes. The margin extends the start of the window only. If the
// extended start falls before midnight the request is split into a
// previous-day segment covering [start, 23:59] and a current-day segment
// covering [00:00, end].
func GenerateListingRequests(locations []string, date time.Time, windowStart time.Time, windowEnd time.Time, marginHours int) []ListingRequest {
	start := util.AddTimeToDate(date, windowStart).Add(-time.Duration(marginHours) * time.Hour)
	end := util.AddTimeToDate(date, windowEnd)

	dayStart := util.AddTimeToDate(date, time.Time{})

	var requests []ListingRequest
	for _, location := range locations {
		if start.Before(dayStart) {
			requests = append(requests,
				ListingRequest{
					Location: location,
					Date:     date.AddDate(0, 0, -1).Format("2006-01-02"),
					Start:    start.Format("1504"),
					End:      "2359",
				},
				ListingRequest{
					Location: location,
					Date:     date.Format("2006-01-02"),
					Start:    "0000",
					End:      end.Format("1504"),
				},
			)
		} else {
			requests = append(requests, ListingRequest{
				Location: location,
				Date:     date.Format("2006-01-02"),
				Start:    start.Format("1504"),
				End:      end.Format("1504"),
			})
		}
	}

	return requests
}
