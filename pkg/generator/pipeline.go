package generator

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sourcegraph/conc/pool"
	"github.com/traingraph/traingraph/pkg/cache"
	"github.com/traingraph/traingraph/pkg/config"
	"github.com/traingraph/traingraph/pkg/customsched"
	"github.com/traingraph/traingraph/pkg/merger"
	"github.com/traingraph/traingraph/pkg/reconciler"
	"github.com/traingraph/traingraph/pkg/rtt"
	"github.com/traingraph/traingraph/pkg/timetable"
	"github.com/traingraph/traingraph/pkg/util"
)

const detailFetchWorkers = 4

// Pipeline wires the fetcher, parsers, reconciler and merger together for one
// run. All dependencies are injected so tests can run against a seeded
// in-memory cache store.
type Pipeline struct {
	Config     *config.RunConfig
	Fetcher    *rtt.Fetcher
	Reconciler *reconciler.Reconciler
	Route      *timetable.RouteTable
}

func NewPipeline(runConfig *config.RunConfig, store cache.Store) (*Pipeline, error) {
	route, err := reconciler.LoadRouteTable(runConfig.RouteCSV, runConfig.ReverseRoute)
	if err != nil {
		return nil, err
	}

	fetcher := rtt.NewFetcher(store)
	fetcher.Refresh = runConfig.Refresh

	return &Pipeline{
		Config:     runConfig,
		Fetcher:    fetcher,
		Reconciler: reconciler.New(route),
		Route:      route,
	}, nil
}

// Run executes the whole acquisition and reconciliation pipeline. A failed
// listing fetch or a cancellation fails the run; per-service problems only
// produce diagnostics.
func (pipeline *Pipeline) Run(ctx context.Context) (*timetable.TimetableResult, error) {
	policy, err := pipeline.Config.Policy()
	if err != nil {
		return nil, err
	}

	servicePaths, err := pipeline.collectServicePaths(ctx)
	if err != nil {
		return nil, err
	}

	log.Info().Int("services", len(servicePaths)).Msg("Fetching service details")

	remoteTracks, diagnostics, err := pipeline.fetchRemoteTracks(ctx, servicePaths)
	if err != nil {
		return nil, err
	}

	customTracks, customDiagnostics, err := pipeline.loadCustomTracks()
	if err != nil {
		return nil, err
	}
	diagnostics = append(diagnostics, customDiagnostics...)

	result, err := merger.Merge(remoteTracks, customTracks, pipeline.Route, policy)
	if err != nil {
		return nil, err
	}
	result.Diagnostics = append(diagnostics, result.Diagnostics...)

	log.Info().
		Int("tracks", len(result.Tracks)).
		Int("skippedrows", timetable.CountDiagnostics(result.Diagnostics, timetable.DiagnosticSkippedRow)).
		Int("gaps", timetable.CountDiagnostics(result.Diagnostics, timetable.DiagnosticReconciliationGap)).
		Int("failedfetches", timetable.CountDiagnostics(result.Diagnostics, timetable.DiagnosticFailedFetch)).
		Msg("Timetable assembled")

	return result, nil
}

// collectServicePaths fetches every listing page and returns the deduplicated
// service detail paths in listing order.
func (pipeline *Pipeline) collectServicePaths(ctx context.Context) ([]string, error) {
	startTime, err := time.Parse("15:04", pipeline.Config.StartTime)
	if err != nil {
		return nil, fmt.Errorf("invalid start time %q: %w", pipeline.Config.StartTime, err)
	}
	endTime, err := time.Parse("15:04", pipeline.Config.EndTime)
	if err != nil {
		return nil, fmt.Errorf("invalid end time %q: %w", pipeline.Config.EndTime, err)
	}

	requests := rtt.GenerateListingRequests(
		pipeline.Config.Locations,
		pipeline.Config.RunDate(),
		startTime,
		endTime,
		pipeline.Config.MarginHours,
	)

	var servicePaths []string
	for _, request := range requests {
		paths, err := pipeline.Fetcher.FetchListing(ctx, request)
		if err != nil {
			return nil, err
		}

		servicePaths = append(servicePaths, paths...)
	}

	return util.RemoveDuplicateStrings(servicePaths, nil), nil
}

type serviceResult struct {
	track       *timetable.ServiceTrack
	diagnostics []timetable.Diagnostic
}

// fetchRemoteTracks fetches and parses service details concurrently. Results
// land in a slice indexed by listing position so concurrency never affects
// output ordering.
func (pipeline *Pipeline) fetchRemoteTracks(ctx context.Context, servicePaths []string) ([]*timetable.ServiceTrack, []timetable.Diagnostic, error) {
	results := make([]serviceResult, len(servicePaths))

	workers := pool.New().WithMaxGoroutines(detailFetchWorkers).WithContext(ctx).WithCancelOnError()

	for index, servicePath := range servicePaths {
		workers.Go(func(ctx context.Context) error {
			document, err := pipeline.Fetcher.FetchServiceDocument(ctx, servicePath)
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}

				log.Error().Err(err).Str("service", servicePath).Msg("Failed to fetch service detail")
				results[index].diagnostics = append(results[index].diagnostics, timetable.Diagnostic{
					Type:   timetable.DiagnosticFailedFetch,
					Track:  servicePath,
					Detail: err.Error(),
				})
				return nil
			}

			results[index] = pipeline.buildRemoteTrack(document, servicePath)
			return nil
		})
	}

	if err := workers.Wait(); err != nil {
		return nil, nil, err
	}

	var tracks []*timetable.ServiceTrack
	var diagnostics []timetable.Diagnostic
	for _, result := range results {
		diagnostics = append(diagnostics, result.diagnostics...)
		if result.track != nil {
			tracks = append(tracks, result.track)
		}
	}

	return tracks, diagnostics, nil
}

func (pipeline *Pipeline) buildRemoteTrack(document []byte, servicePath string) serviceResult {
	detail, diagnostics, err := rtt.ParseService(document, time.Now())
	if err != nil {
		return serviceResult{
			diagnostics: []timetable.Diagnostic{{
				Type:   timetable.DiagnosticSkippedRow,
				Track:  servicePath,
				Detail: err.Error(),
			}},
		}
	}

	if detail.IsBus {
		log.Debug().Str("headcode", detail.Headcode).Msg("Skipping bus replacement service")
		return serviceResult{diagnostics: diagnostics}
	}

	rtt.NormalizeCallTimes(detail.Calls, detail.RunDate)

	track := &timetable.ServiceTrack{
		Identifier: detail.Headcode,
		Operator:   detail.Operator,
		Origin:     timetable.OriginRemote,
		Direction:  timetable.DirectionUnknown,
	}
	for _, call := range detail.Calls {
		track.Stops = append(track.Stops, timetable.StopEvent{
			Location:  call.Location,
			Arrival:   call.Arrival,
			Departure: call.Departure,
			Platform:  call.Platform,
			Cancelled: call.Cancelled,
			Origin:    timetable.OriginRemote,
		})
	}

	diagnostics = append(diagnostics, pipeline.reconcileTrack(track)...)

	return serviceResult{track: track, diagnostics: diagnostics}
}

func (pipeline *Pipeline) loadCustomTracks() ([]*timetable.ServiceTrack, []timetable.Diagnostic, error) {
	var tracks []*timetable.ServiceTrack
	var diagnostics []timetable.Diagnostic

	for _, schedulePath := range pipeline.Config.CustomSchedules {
		resolved, err := config.ResolveFile(schedulePath, "custom_schedules", "csv")
		if err != nil {
			return nil, nil, err
		}

		track, err := customsched.Load(resolved, pipeline.Config.RunDate())
		if err != nil {
			return nil, nil, err
		}

		diagnostics = append(diagnostics, pipeline.reconcileTrack(track)...)
		tracks = append(tracks, track)
	}

	return tracks, diagnostics, nil
}

// reconcileTrack joins each stop onto the distance axis. Unresolvable labels
// become gap diagnostics and their stops are left out of the point sequence;
// the track itself survives.
func (pipeline *Pipeline) reconcileTrack(track *timetable.ServiceTrack) []timetable.Diagnostic {
	var diagnostics []timetable.Diagnostic

	for _, stop := range track.Stops {
		distance, matchedBy, ok := pipeline.Reconciler.Resolve(stop.Location)
		if !ok {
			diagnostics = append(diagnostics, timetable.Diagnostic{
				Type:     timetable.DiagnosticReconciliationGap,
				Track:    track.Identifier,
				Location: stop.Location,
				Detail:   "location not on route",
			})
			continue
		}

		log.Trace().Str("location", stop.Location).Str("matcher", matchedBy).Float64("distance", distance).Msg("Resolved location")

		for _, stopTime := range []*time.Time{stop.Arrival, stop.Departure} {
			if stopTime == nil {
				continue
			}

			track.Points = append(track.Points, timetable.ReconciledPoint{
				Distance: distance,
				Time:     *stopTime,
				TrackID:  track.Identifier,
			})
		}
	}

	return diagnostics
}
