package merger

import (
	"sort"
	"strings"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	"github.com/rs/zerolog/log"
	"github.com/traingraph/traingraph/pkg/timetable"
	"github.com/traingraph/traingraph/pkg/util"
	"golang.org/x/exp/slices"
)

// Merge combines reconciled remote and custom tracks into one ordered
// timetable. Reconciliation and gap handling have already happened upstream -
// this stage only derives directions, filters and orders.
func Merge(remoteTracks []*timetable.ServiceTrack, customTracks []*timetable.ServiceTrack, route *timetable.RouteTable, policy Policy) (*timetable.TimetableResult, error) {
	if err := policy.Validate(); err != nil {
		return nil, err
	}

	result := &timetable.TimetableResult{
		Route:       route,
		WindowStart: policy.WindowStart,
		WindowEnd:   policy.WindowEnd,
	}

	alwaysInclude := make([]string, len(policy.AlwaysInclude))
	for index, identifier := range policy.AlwaysInclude {
		alwaysInclude[index] = strings.ToUpper(identifier)
	}

	var candidates []*timetable.ServiceTrack
	candidates = append(candidates, remoteTracks...)
	candidates = append(candidates, customTracks...)

	forced := map[string]bool{}

	for _, track := range candidates {
		track.Direction = TrackDirection(track, route.Reversed)
	}

	util.InPlaceFilter(&candidates, func(track *timetable.ServiceTrack) bool {
		if track.DistinctDistances() < 2 {
			result.Diagnostics = append(result.Diagnostics, timetable.Diagnostic{
				Type:   timetable.DiagnosticDiscardedTrack,
				Track:  track.Identifier,
				Detail: "fewer than two locations on route",
			})
			return false
		}

		if !visibleInWindow(track, policy) {
			result.Diagnostics = append(result.Diagnostics, timetable.Diagnostic{
				Type:   timetable.DiagnosticDiscardedTrack,
				Track:  track.Identifier,
				Detail: "no stops within the requested window",
			})
			return false
		}

		if slices.Contains(alwaysInclude, strings.ToUpper(track.Identifier)) {
			forced[track.Identifier] = true
			return true
		}

		if slices.Contains(policy.IgnoreOperators, track.Operator) {
			return false
		}

		if policy.Direction != "" && track.Direction != policy.Direction {
			return false
		}

		// The filter expression only ever sees remote services - custom
		// schedules are user authored and carry no operator.
		if track.Origin == timetable.OriginRemote && policy.Filter != nil && !evaluateFilter(policy.Filter, track) {
			return false
		}

		return true
	})

	sort.SliceStable(candidates, func(a, b int) bool {
		startA := candidates[a].StartTime()
		startB := candidates[b].StartTime()
		if startA.Equal(startB) {
			return candidates[a].Identifier < candidates[b].Identifier
		}
		return startA.Before(startB)
	})

	// The limit caps remote services only. Custom schedules and forced
	// tracks are always plotted.
	kept := 0
	for _, track := range candidates {
		if !forced[track.Identifier] && track.Origin == timetable.OriginRemote {
			if policy.Limit > 0 && kept >= policy.Limit {
				continue
			}
			kept += 1
		}

		result.Tracks = append(result.Tracks, track)
	}

	return result, nil
}

// TrackDirection derives up or down from the net movement along the distance
// axis. On a reversed route growing distances head up; otherwise shrinking
// distances do. A track with no net movement is Unknown.
func TrackDirection(track *timetable.ServiceTrack, reversed bool) timetable.Direction {
	if len(track.Points) < 2 {
		return timetable.DirectionUnknown
	}

	net := track.Points[len(track.Points)-1].Distance - track.Points[0].Distance
	if net == 0 {
		return timetable.DirectionUnknown
	}

	towardsOrigin := net < 0
	if reversed {
		towardsOrigin = !towardsOrigin
	}

	if towardsOrigin {
		return timetable.DirectionUp
	}
	return timetable.DirectionDown
}

func visibleInWindow(track *timetable.ServiceTrack, policy Policy) bool {
	for _, point := range track.Points {
		if !point.Time.Before(policy.WindowStart) && !point.Time.After(policy.WindowEnd) {
			return true
		}
	}

	return false
}

func evaluateFilter(program *vm.Program, track *timetable.ServiceTrack) bool {
	output, err := expr.Run(program, FilterEnv{
		Headcode:  track.Identifier,
		Operator:  track.Operator,
		Direction: string(track.Direction),
	})
	if err != nil {
		log.Warn().Err(err).Str("track", track.Identifier).Msg("Filter expression failed, keeping track")
		return true
	}

	keep, _ := output.(bool)
	return keep
}
