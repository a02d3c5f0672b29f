package timetable

import (
	"time"
)

type Origin string

const (
	OriginRemote Origin = "Remote"
	OriginCustom Origin = "Custom"
)

type Direction string

const (
	DirectionUp      Direction = "Up"
	DirectionDown    Direction = "Down"
	DirectionUnknown Direction = "Unknown"
)

// StopEvent is a single calling or passing point of a service, with times
// already joined to the run date.
type StopEvent struct {
	Location  string
	Arrival   *time.Time
	Departure *time.Time

	Platform  string
	Cancelled bool

	Origin Origin
}

// ReconciledPoint is the atomic plottable unit - a stop time joined against a
// route distance.
type ReconciledPoint struct {
	Distance float64
	Time     time.Time
	TrackID  string
}

type ServiceTrack struct {
	Identifier string
	Operator   string
	Origin     Origin
	Direction  Direction

	Stops  []StopEvent
	Points []ReconciledPoint
}

// DistinctDistances returns the number of unique distances the track has been
// reconciled onto. A track needs at least two to describe any movement.
func (track *ServiceTrack) DistinctDistances() int {
	seen := map[float64]bool{}
	for _, point := range track.Points {
		seen[point.Distance] = true
	}

	return len(seen)
}

// StartTime is the time of the first reconciled point, used for ordering
// tracks in the final result.
func (track *ServiceTrack) StartTime() time.Time {
	if len(track.Points) == 0 {
		return time.Time{}
	}

	return track.Points[0].Time
}

type TimetableResult struct {
	Tracks []*ServiceTrack
	Route  *RouteTable

	WindowStart time.Time
	WindowEnd   time.Time

	Diagnostics []Diagnostic
}
