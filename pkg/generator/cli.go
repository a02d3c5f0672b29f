package generator

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/traingraph/traingraph/pkg/cache"
	"github.com/traingraph/traingraph/pkg/config"
	"github.com/traingraph/traingraph/pkg/merger"
	"github.com/traingraph/traingraph/pkg/render"
	"github.com/traingraph/traingraph/pkg/timetable"
	"github.com/urfave/cli/v2"
)

func RegisterCLI() *cli.Command {
	return &cli.Command{
		Name:  "generate",
		Usage: "Build a distance-time diagram for a route and window",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "preset", Aliases: []string{"p"}, Usage: "Name or path of a preset YAML file"},
			&cli.StringFlag{Name: "route", Usage: "CSV mapping Location to Distance (mi)"},
			&cli.StringFlag{Name: "date", Usage: "Date in YYYY-MM-DD format"},
			&cli.StringFlag{Name: "start", Usage: "Window start (HH:MM)"},
			&cli.StringFlag{Name: "end", Usage: "Window end (HH:MM)"},
			&cli.StringSliceFlag{Name: "location", Aliases: []string{"l"}, Usage: "GB-NR location code to query (repeatable)"},
			&cli.IntFlag{Name: "margin-hours", Aliases: []string{"m"}, Usage: "Hours to extend the window start by"},
			&cli.StringSliceFlag{Name: "custom-schedule", Aliases: []string{"s"}, Usage: "Path to a custom schedule CSV (repeatable)"},
			&cli.StringFlag{Name: "direction", Aliases: []string{"d"}, Usage: "Filter by direction (up or down)"},
			&cli.IntFlag{Name: "limit", Aliases: []string{"n"}, Usage: "Maximum number of remote services to keep"},
			&cli.StringSliceFlag{Name: "always-include", Aliases: []string{"a"}, Usage: "Headcode that bypasses filtering (repeatable)"},
			&cli.StringFlag{Name: "filter", Usage: "Service filter expression, eg Operator == \"Great Western Railway\""},
			&cli.BoolFlag{Name: "reverse-route", Usage: "Plot distances reversed (negative miles)"},
			&cli.BoolFlag{Name: "refresh", Usage: "Bypass cache reads for this run"},
			&cli.StringFlag{Name: "output-dir", Usage: "Directory for generated files"},
			&cli.StringFlag{Name: "cache-dir", Usage: "Directory for the fetch cache"},
			&cli.BoolFlag{Name: "no-json", Usage: "Skip the JSON export"},
		},
		Action: generateAction,
	}
}

func generateAction(c *cli.Context) error {
	runConfig, err := assembleConfig(c)
	if err != nil {
		return err
	}

	if err := runConfig.Validate(); err != nil {
		return err
	}

	store, err := cache.NewFileStore(runConfig.CacheDir)
	if err != nil {
		return err
	}

	pipeline, err := NewPipeline(runConfig, store)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	result, err := pipeline.Run(ctx)
	if err != nil {
		return err
	}

	return writeOutputs(runConfig, result, !c.Bool("no-json"))
}

// assembleConfig builds the run configuration from a preset file, CLI flags,
// or both - explicitly set flags override preset values.
func assembleConfig(c *cli.Context) (*config.RunConfig, error) {
	runConfig := &config.RunConfig{}

	if presetName := c.String("preset"); presetName != "" {
		presetPath, err := config.ResolveFile(presetName, "presets", "yml", "yaml")
		if err != nil {
			return nil, err
		}

		runConfig, err = config.LoadPreset(presetPath)
		if err != nil {
			return nil, err
		}

		log.Info().Str("preset", presetPath).Msg("Loaded preset")
	}

	setString := func(flag string, target *string) {
		if c.IsSet(flag) {
			*target = c.String(flag)
		}
	}

	setString("route", &runConfig.RouteCSV)
	setString("date", &runConfig.Date)
	setString("start", &runConfig.StartTime)
	setString("end", &runConfig.EndTime)
	setString("direction", &runConfig.Direction)
	setString("filter", &runConfig.Filter)
	setString("output-dir", &runConfig.OutputDir)
	setString("cache-dir", &runConfig.CacheDir)

	if c.IsSet("location") {
		runConfig.Locations = c.StringSlice("location")
	}
	if c.IsSet("custom-schedule") {
		runConfig.CustomSchedules = c.StringSlice("custom-schedule")
	}
	if c.IsSet("always-include") {
		runConfig.AlwaysInclude = c.StringSlice("always-include")
	}
	if c.IsSet("margin-hours") {
		runConfig.MarginHours = c.Int("margin-hours")
	}
	if c.IsSet("limit") {
		if c.Int("limit") <= 0 {
			return nil, &merger.PolicyError{Detail: fmt.Sprintf("limit must be positive, got %d", c.Int("limit"))}
		}
		runConfig.Limit = c.Int("limit")
	}
	if c.IsSet("reverse-route") {
		runConfig.ReverseRoute = c.Bool("reverse-route")
	}
	if c.IsSet("refresh") {
		runConfig.Refresh = c.Bool("refresh")
	}

	runConfig.ApplyDefaults()

	return runConfig, nil
}

func writeOutputs(runConfig *config.RunConfig, result *timetable.TimetableResult, withJSON bool) error {
	if len(result.Tracks) == 0 {
		log.Warn().Msg("No services to plot - nothing to save")
		return nil
	}

	if err := os.MkdirAll(runConfig.OutputDir, 0755); err != nil {
		return err
	}

	var customIdentifiers []string
	for _, track := range result.Tracks {
		if track.Origin == timetable.OriginCustom {
			customIdentifiers = append(customIdentifiers, track.Identifier)
		}
	}

	fileBase := render.FileBase(runConfig.RouteCSV, runConfig.Date, runConfig.StartTime, runConfig.EndTime, runConfig.Direction, customIdentifiers)

	svgPath := filepath.Join(runConfig.OutputDir, fileBase+".svg")
	svgFile, err := os.Create(svgPath)
	if err != nil {
		return err
	}
	defer svgFile.Close()

	options := render.SVGOptions{
		Title:           diagramTitle(runConfig, customIdentifiers),
		OperatorColours: runConfig.OperatorColours,
	}
	if err := render.WriteSVG(result, options, svgFile); err != nil {
		return err
	}
	log.Info().Str("path", svgPath).Msg("Saved diagram")

	if withJSON {
		document, err := render.ExportJSON(result)
		if err != nil {
			return err
		}

		jsonPath := filepath.Join(runConfig.OutputDir, fileBase+".json")
		if err := os.WriteFile(jsonPath, document, 0644); err != nil {
			return err
		}
		log.Info().Str("path", jsonPath).Msg("Saved timetable export")
	}

	return nil
}

func diagramTitle(runConfig *config.RunConfig, customIdentifiers []string) string {
	routeName := filepath.Base(runConfig.RouteCSV)
	routeName = routeName[:len(routeName)-len(filepath.Ext(routeName))]

	title := fmt.Sprintf("%s | %s | %s-%s", routeName, runConfig.Date, runConfig.StartTime, runConfig.EndTime)
	if len(customIdentifiers) > 0 {
		title = fmt.Sprintf("%s | Services: %s", title, strings.Join(customIdentifiers, ", "))
	}

	return title
}
