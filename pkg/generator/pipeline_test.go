package generator

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/traingraph/traingraph/pkg/cache"
	"github.com/traingraph/traingraph/pkg/config"
	"github.com/traingraph/traingraph/pkg/timetable"
)

const testRouteCSV = `Location,Distance (mi)
London Paddington [PAD],0.0
Acton West,4.2
Southall,9.1
Reading [RDG],36.0
`

func listingDocument(servicePaths ...string) []byte {
	document := "<html><body>"
	for _, servicePath := range servicePaths {
		document += fmt.Sprintf(`<a class="service" href="%s">service</a>`, servicePath)
	}
	document += "</body></html>"

	return []byte(document)
}

func serviceDocument(headcode string, operator string, rows string) []byte {
	return []byte(fmt.Sprintf(`<html>
<head><title>somewhere to somewhere | %s somewhere to somewhere | Realtime Trains</title></head>
<body>
<div class="header"><div class="toc h3"><div>%s</div></div></div>
<small>Ran on 20th August 2025</small>
%s
</body>
</html>`, headcode, operator, rows))
}

func callRow(location string, arrival string, departure string) string {
	return fmt.Sprintf(`<div class="location call">
  <a class="name">%s</a>
  <div class="wtt"><div class="arr">%s</div><div class="dep">%s</div></div>
</div>`, location, arrival, departure)
}

// seededPipeline builds a pipeline whose cache already holds every page the
// run needs, so no network request ever happens.
func seededPipeline(t *testing.T, runConfig *config.RunConfig) (*Pipeline, *cache.MemoryStore) {
	t.Helper()

	directory := t.TempDir()
	routePath := filepath.Join(directory, "route.csv")
	require.NoError(t, os.WriteFile(routePath, []byte(testRouteCSV), 0644))
	runConfig.RouteCSV = routePath
	runConfig.ApplyDefaults()

	store := cache.NewMemoryStore()
	pipeline, err := NewPipeline(runConfig, store)
	require.NoError(t, err)

	return pipeline, store
}

func TestPipelineRun(t *testing.T) {
	runConfig := &config.RunConfig{
		Date:      "2025-08-20",
		StartTime: "03:00",
		EndTime:   "06:00",
		Locations: []string{"PAD"},
	}

	pipeline, store := seededPipeline(t, runConfig)

	downPath := "/service/gb-nr:C10001/2025-08-20/detailed"
	upPath := "/service/gb-nr:C10002/2025-08-20/detailed"

	// The same service appearing twice in the listing must only be fetched
	// and emitted once.
	require.NoError(t, store.Put(
		cache.ListingFingerprint("PAD", "2025-08-20", "0300", "0600"),
		listingDocument(downPath, upPath, downPath),
	))

	require.NoError(t, store.Put(cache.ServiceFingerprint(downPath), serviceDocument("1A23", "Great Western Railway",
		callRow("London Paddington [PAD]", "", "0305")+
			callRow("Acton West (ACTONW)", "pass", "0311½")+
			callRow("Slough", "0320", "0321")+
			callRow("Reading", "0340", ""))))

	require.NoError(t, store.Put(cache.ServiceFingerprint(upPath), serviceDocument("1C01", "Elizabeth Line",
		callRow("Reading [RDG]", "", "0320")+
			callRow("Southall", "0344", "0345")+
			callRow("London Paddington", "0355", ""))))

	result, err := pipeline.Run(context.Background())
	require.NoError(t, err)

	require.Len(t, result.Tracks, 2)

	down := result.Tracks[0]
	assert.Equal(t, "1A23", down.Identifier)
	assert.Equal(t, "Great Western Railway", down.Operator)
	assert.Equal(t, timetable.DirectionDown, down.Direction)
	assert.Equal(t, timetable.OriginRemote, down.Origin)

	// Paddington and Acton West resolve despite their qualifiers; Slough is
	// not on the route so only three stops produce points (Slough's arrival
	// and departure are dropped, Reading has no departure).
	require.Len(t, down.Points, 3)
	assert.Equal(t, 0.0, down.Points[0].Distance)
	assert.Equal(t, "03:05:00", down.Points[0].Time.Format("15:04:05"))
	assert.Equal(t, 4.2, down.Points[1].Distance)
	assert.Equal(t, 36.0, down.Points[2].Distance)
	assert.Equal(t, "2025-08-20", down.Points[0].Time.Format("2006-01-02"), "times are joined onto the run date")

	up := result.Tracks[1]
	assert.Equal(t, "1C01", up.Identifier)
	assert.Equal(t, timetable.DirectionUp, up.Direction)

	assert.Equal(t, 1, timetable.CountDiagnostics(result.Diagnostics, timetable.DiagnosticReconciliationGap))
}

func TestPipelineRunIncludesCustomSchedules(t *testing.T) {
	directory := t.TempDir()
	schedulePath := filepath.Join(directory, "5z99.csv")
	require.NoError(t, os.WriteFile(schedulePath, []byte(`Location,Arr,Dep
London Paddington [PAD],,03:40:00
Southall,03:52:00,03:53:00
Reading [RDG],04:15:00,
`), 0644))

	runConfig := &config.RunConfig{
		Date:            "2025-08-20",
		StartTime:       "03:00",
		EndTime:         "06:00",
		Locations:       []string{"PAD"},
		CustomSchedules: []string{schedulePath},
	}

	pipeline, store := seededPipeline(t, runConfig)

	require.NoError(t, store.Put(
		cache.ListingFingerprint("PAD", "2025-08-20", "0300", "0600"),
		listingDocument(),
	))

	result, err := pipeline.Run(context.Background())
	require.NoError(t, err)

	require.Len(t, result.Tracks, 1)
	track := result.Tracks[0]
	assert.Equal(t, "5Z99", track.Identifier)
	assert.Equal(t, timetable.OriginCustom, track.Origin)
	assert.Equal(t, timetable.DirectionDown, track.Direction)
	require.Len(t, track.Points, 4)
	assert.Equal(t, "03:40:00", track.Points[0].Time.Format("15:04:05"))
	assert.Equal(t, 36.0, track.Points[3].Distance)
}

func TestPipelineRunSkipsBusReplacements(t *testing.T) {
	runConfig := &config.RunConfig{
		Date:      "2025-08-20",
		StartTime: "03:00",
		EndTime:   "06:00",
		Locations: []string{"PAD"},
	}

	pipeline, store := seededPipeline(t, runConfig)

	busPath := "/service/gb-nr:C10003/2025-08-20/detailed"
	require.NoError(t, store.Put(
		cache.ListingFingerprint("PAD", "2025-08-20", "0300", "0600"),
		listingDocument(busPath),
	))

	busDocument := serviceDocument("2B10", "Great Western Railway",
		`<span class="glyphicons-bus"></span>`+
			callRow("London Paddington [PAD]", "", "0400")+
			callRow("Reading", "0500", ""))
	require.NoError(t, store.Put(cache.ServiceFingerprint(busPath), busDocument))

	result, err := pipeline.Run(context.Background())
	require.NoError(t, err)

	assert.Empty(t, result.Tracks)
}

func TestPipelineRunRejectsUnparsableWindow(t *testing.T) {
	runConfig := &config.RunConfig{
		Date:      "2025-08-20",
		StartTime: "7am",
		EndTime:   "06:00",
		Locations: []string{"PAD"},
	}

	pipeline, _ := seededPipeline(t, runConfig)

	_, err := pipeline.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid start time")
}

func TestPipelineRunMissingRouteTable(t *testing.T) {
	runConfig := &config.RunConfig{
		RouteCSV:  "does-not-exist.csv",
		Date:      "2025-08-20",
		StartTime: "03:00",
		EndTime:   "06:00",
		Locations: []string{"PAD"},
	}
	runConfig.ApplyDefaults()

	_, err := NewPipeline(runConfig, cache.NewMemoryStore())
	assert.Error(t, err)
}
