package reconciler

import (
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"

	"github.com/gocarina/gocsv"
	"github.com/rs/zerolog/log"
	"github.com/traingraph/traingraph/pkg/timetable"
)

type routeTableRow struct {
	Location string  `csv:"Location"`
	Distance float64 `csv:"Distance (mi)"`
}

var qualifierRegex = regexp.MustCompile(`\[([^\]]*)\]`)

// LoadRouteTable reads a route geometry CSV mapping locations to distances
// from the route origin. A bracketed token in a location marks a principal
// station and registers the token as its location code. When reverse is set
// distances are negated so the route plots top-down.
func LoadRouteTable(path string, reverse bool) (*timetable.RouteTable, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var rows []routeTableRow
	if err := gocsv.UnmarshalFile(file, &rows); err != nil {
		return nil, fmt.Errorf("failed to parse route csv %s: %w", path, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("route csv %s contains no locations", path)
	}

	table := &timetable.RouteTable{
		Reversed: reverse,
	}

	seenLabels := map[string]bool{}
	seenCodes := map[string]bool{}
	previousDistance := 0.0

	for index, row := range rows {
		if index > 0 && row.Distance <= previousDistance {
			return nil, fmt.Errorf("route csv %s: distance %.3f at row %d does not increase along the route", path, row.Distance, index+2)
		}
		previousDistance = row.Distance

		location := &timetable.RouteLocation{
			DisplayLabel: strings.TrimSpace(row.Location),
			Distance:     row.Distance,
		}
		if reverse {
			location.Distance = -location.Distance
		}

		if match := qualifierRegex.FindStringSubmatch(location.DisplayLabel); match != nil {
			location.Code = strings.TrimSpace(match[1])
			location.Principal = true
		}
		location.Label = strings.TrimSpace(qualifierRegex.ReplaceAllString(location.DisplayLabel, ""))

		if seenLabels[location.Label] {
			return nil, fmt.Errorf("route csv %s: duplicate location %q", path, location.Label)
		}
		seenLabels[location.Label] = true

		if location.Code != "" {
			if seenCodes[location.Code] {
				return nil, fmt.Errorf("route csv %s: duplicate location code %q", path, location.Code)
			}
			seenCodes[location.Code] = true
		}

		table.Locations = append(table.Locations, location)
	}

	sort.SliceStable(table.Locations, func(a, b int) bool {
		return table.Locations[a].Distance < table.Locations[b].Distance
	})

	log.Debug().Str("path", path).Int("locations", len(table.Locations)).Bool("reversed", reverse).Msg("Loaded route table")

	return table, nil
}
