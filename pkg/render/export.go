package render

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/traingraph/traingraph/pkg/timetable"
)

type exportPoint struct {
	Distance float64
	Time     time.Time
}

type exportTrack struct {
	Identifier string
	Operator   string `json:",omitempty"`
	Origin     timetable.Origin
	Direction  timetable.Direction

	Points []exportPoint
}

type exportDocument struct {
	WindowStart time.Time
	WindowEnd   time.Time

	Tracks      []exportTrack
	Diagnostics []timetable.Diagnostic `json:",omitempty"`
}

// ExportJSON serialises the timetable for downstream tooling.
func ExportJSON(result *timetable.TimetableResult) ([]byte, error) {
	document := exportDocument{
		WindowStart: result.WindowStart,
		WindowEnd:   result.WindowEnd,
		Diagnostics: result.Diagnostics,
	}

	for _, track := range result.Tracks {
		exported := exportTrack{
			Identifier: track.Identifier,
			Operator:   track.Operator,
			Origin:     track.Origin,
			Direction:  track.Direction,
		}
		for _, point := range track.Points {
			exported.Points = append(exported.Points, exportPoint{
				Distance: point.Distance,
				Time:     point.Time,
			})
		}

		document.Tracks = append(document.Tracks, exported)
	}

	return json.MarshalIndent(document, "", "  ")
}

// FileBase builds the descriptive output file name:
// route_date_window_direction plus any custom schedule identifiers.
func FileBase(routeCSV string, date string, startTime string, endTime string, direction string, customIdentifiers []string) string {
	routeName := strings.TrimSuffix(filepath.Base(routeCSV), filepath.Ext(routeCSV))

	window := fmt.Sprintf("%s-%s",
		strings.ReplaceAll(startTime, ":", ""),
		strings.ReplaceAll(endTime, ":", ""))

	directionTag := direction
	if directionTag == "" {
		directionTag = "all"
	}

	base := fmt.Sprintf("%s_%s_%s_%s", routeName, date, window, directionTag)
	if len(customIdentifiers) > 0 {
		base = base + "_" + strings.Join(customIdentifiers, "_")
	}

	return base
}
