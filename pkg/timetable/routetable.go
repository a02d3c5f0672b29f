package timetable

// RouteLocation is one row of the user supplied route geometry. DisplayLabel
// keeps the original text including any [CODE] qualifier, Label has the
// qualifier stripped for matching against timetable data.
type RouteLocation struct {
	Code         string
	Label        string
	DisplayLabel string
	Principal    bool

	Distance float64
}

// RouteTable is the ordered location -> distance mapping for a route. It is
// built once from the route CSV and never modified afterwards.
type RouteTable struct {
	Locations []*RouteLocation
	Reversed  bool
}

func (table *RouteTable) DistanceBounds() (float64, float64) {
	if len(table.Locations) == 0 {
		return 0, 0
	}

	min := table.Locations[0].Distance
	max := table.Locations[0].Distance
	for _, location := range table.Locations {
		if location.Distance < min {
			min = location.Distance
		}
		if location.Distance > max {
			max = location.Distance
		}
	}

	return min, max
}
