package render

import (
	"fmt"
	"html"
	"io"
	"time"

	"github.com/traingraph/traingraph/pkg/timetable"
)

const (
	canvasWidth  = 1600
	canvasHeight = 1000

	marginLeft   = 190.0
	marginRight  = 40.0
	marginTop    = 70.0
	marginBottom = 70.0

	principalColour = "#3838C8"
	minorColour     = "#4F4F4F"
)

var customPalette = []string{"#ff0000", "#ffaa00", "#00ff00", "#00aaff", "#aa00ff"}

// SVGOptions carries rendering choices the config layer owns - operator
// colours and the diagram title.
type SVGOptions struct {
	Title           string
	OperatorColours map[string]string
}

type scale struct {
	windowStart time.Time
	windowEnd   time.Time

	minDistance float64
	maxDistance float64
}

func (s scale) x(at time.Time) float64 {
	span := s.windowEnd.Sub(s.windowStart).Seconds()
	fraction := at.Sub(s.windowStart).Seconds() / span

	return marginLeft + fraction*(canvasWidth-marginLeft-marginRight)
}

func (s scale) y(distance float64) float64 {
	span := s.maxDistance - s.minDistance
	if span == 0 {
		span = 1
	}
	fraction := (distance - s.minDistance) / span

	return marginTop + fraction*(canvasHeight-marginTop-marginBottom)
}

// WriteSVG renders the assembled timetable as a distance-time diagram. The
// result is read-only here - rendering is purely a consumer of the pipeline.
func WriteSVG(result *timetable.TimetableResult, options SVGOptions, writer io.Writer) error {
	minDistance, maxDistance := result.Route.DistanceBounds()
	diagram := scale{
		windowStart: result.WindowStart,
		windowEnd:   result.WindowEnd,
		minDistance: minDistance,
		maxDistance: maxDistance,
	}

	fmt.Fprintf(writer, `<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">`+"\n",
		canvasWidth, canvasHeight, canvasWidth, canvasHeight)
	fmt.Fprintf(writer, `<rect width="%d" height="%d" fill="white"/>`+"\n", canvasWidth, canvasHeight)

	fmt.Fprintf(writer, `<clipPath id="plot"><rect x="%.1f" y="%.1f" width="%.1f" height="%.1f"/></clipPath>`+"\n",
		marginLeft, marginTop, canvasWidth-marginLeft-marginRight, canvasHeight-marginTop-marginBottom)

	if options.Title != "" {
		fmt.Fprintf(writer, `<text x="%d" y="40" font-size="22" font-weight="bold" text-anchor="middle">%s</text>`+"\n",
			canvasWidth/2, html.EscapeString(options.Title))
	}

	writeDistanceBackground(writer, result.Route, diagram)
	writeTimeAxis(writer, diagram)

	customIndex := 0
	for _, track := range result.Tracks {
		colour := trackColour(track, options.OperatorColours, &customIndex)
		writeTrack(writer, track, diagram, colour)
	}

	fmt.Fprint(writer, "</svg>\n")

	return nil
}

// writeDistanceBackground draws a faint horizontal line per route location.
// Principal stations get a stronger line and a label on the left axis.
func writeDistanceBackground(writer io.Writer, route *timetable.RouteTable, diagram scale) {
	for _, location := range route.Locations {
		y := diagram.y(location.Distance)

		colour := minorColour
		opacity := 0.2
		if location.Principal {
			colour = principalColour
			opacity = 0.4
		}

		fmt.Fprintf(writer, `<line x1="%.1f" y1="%.1f" x2="%.1f" y2="%.1f" stroke="%s" stroke-opacity="%.1f" stroke-dasharray="6,4"/>`+"\n",
			marginLeft, y, canvasWidth-marginRight, y, colour, opacity)

		if location.Principal {
			fmt.Fprintf(writer, `<text x="%.1f" y="%.1f" font-size="13" fill="%s" text-anchor="end" dominant-baseline="middle">%s</text>`+"\n",
				marginLeft-8, y, principalColour, html.EscapeString(location.DisplayLabel))
		}
	}
}

func writeTimeAxis(writer io.Writer, diagram scale) {
	tick := diagram.windowStart.Truncate(time.Hour)
	if tick.Before(diagram.windowStart) {
		tick = tick.Add(time.Hour)
	}

	for !tick.After(diagram.windowEnd) {
		x := diagram.x(tick)

		fmt.Fprintf(writer, `<line x1="%.1f" y1="%.1f" x2="%.1f" y2="%.1f" stroke="#cccccc" stroke-opacity="0.5"/>`+"\n",
			x, marginTop, x, canvasHeight-marginBottom)
		fmt.Fprintf(writer, `<text x="%.1f" y="%.1f" font-size="13" text-anchor="middle">%s</text>`+"\n",
			x, canvasHeight-marginBottom+24, tick.Format("15:04"))

		tick = tick.Add(time.Hour)
	}
}

func writeTrack(writer io.Writer, track *timetable.ServiceTrack, diagram scale, colour string) {
	width := 1.0
	markerRadius := 2.0
	if track.Origin == timetable.OriginCustom {
		width = 2.0
		markerRadius = 3.0
	}

	fmt.Fprintf(writer, `<g clip-path="url(#plot)" stroke="%s" fill="%s">`+"\n", colour, colour)

	fmt.Fprintf(writer, `<polyline fill="none" stroke-width="%.1f" points="`, width)
	for _, point := range track.Points {
		fmt.Fprintf(writer, "%.1f,%.1f ", diagram.x(point.Time), diagram.y(point.Distance))
	}
	fmt.Fprint(writer, `"/>`+"\n")

	for _, point := range track.Points {
		fmt.Fprintf(writer, `<circle cx="%.1f" cy="%.1f" r="%.1f"/>`+"\n",
			diagram.x(point.Time), diagram.y(point.Distance), markerRadius)
	}

	if label, ok := lastVisiblePoint(track, diagram); ok {
		fmt.Fprintf(writer, `<text x="%.1f" y="%.1f" font-size="12" font-weight="bold" text-anchor="end">%s</text>`+"\n",
			diagram.x(label.Time), diagram.y(label.Distance)-5, html.EscapeString(track.Identifier))
	}

	fmt.Fprint(writer, "</g>\n")
}

// lastVisiblePoint picks the latest point inside the window so the headcode
// label sits at the end of the drawn line.
func lastVisiblePoint(track *timetable.ServiceTrack, diagram scale) (timetable.ReconciledPoint, bool) {
	for index := len(track.Points) - 1; index >= 0; index-- {
		point := track.Points[index]
		if !point.Time.Before(diagram.windowStart) && !point.Time.After(diagram.windowEnd) {
			return point, true
		}
	}

	return timetable.ReconciledPoint{}, false
}

func trackColour(track *timetable.ServiceTrack, operatorColours map[string]string, customIndex *int) string {
	if track.Origin == timetable.OriginCustom {
		colour := customPalette[*customIndex%len(customPalette)]
		*customIndex += 1
		return colour
	}

	if colour, known := operatorColours[track.Operator]; known {
		return colour
	}
	if colour, known := operatorColours["Other"]; known {
		return colour
	}

	return minorColour
}
