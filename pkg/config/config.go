package config

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/traingraph/traingraph/pkg/merger"
	"github.com/traingraph/traingraph/pkg/timetable"
	"github.com/traingraph/traingraph/pkg/util"
)

// RunConfig is the validated configuration for one diagram run, assembled
// from a preset file and CLI flag overrides.
type RunConfig struct {
	RouteCSV  string `yaml:"route_csv" validate:"required"`
	Date      string `yaml:"date" validate:"required,datetime=2006-01-02"`
	StartTime string `yaml:"start_time" validate:"required,datetime=15:04"`
	EndTime   string `yaml:"end_time" validate:"required,datetime=15:04"`

	Locations   []string `yaml:"locations" validate:"required,min=1"`
	MarginHours int      `yaml:"margin_hours" validate:"gte=0"`

	Direction     string   `yaml:"direction" validate:"omitempty,oneof=up down"`
	Limit         int      `yaml:"limit"`
	AlwaysInclude []string `yaml:"always_include"`
	Filter        string   `yaml:"filter"`
	ReverseRoute  bool     `yaml:"reverse_route"`

	CustomSchedules []string `yaml:"custom_schedules"`

	CacheDir  string `yaml:"cache_dir"`
	OutputDir string `yaml:"output_dir"`
	Refresh   bool   `yaml:"refresh"`

	IgnoreOperators []string          `yaml:"ignore_operators"`
	OperatorColours map[string]string `yaml:"operator_colours"`
}

var defaultOperatorColours = map[string]string{
	"Great Western Railway": "#0b4d3b",
	"Elizabeth Line":        "#694ED6",
	"Heathrow Express":      "#5e5e5e",
	"CrossCountry":          "#aa007f",
	"South Western Railway": "#00557f",
	"Other":                 "#8B4513",
}

func (config *RunConfig) ApplyDefaults() {
	if config.CacheDir == "" {
		config.CacheDir = "cache"
	}
	if config.OutputDir == "" {
		config.OutputDir = "outputs"
	}
	if config.IgnoreOperators == nil {
		config.IgnoreOperators = []string{"RA1"}
	}

	if config.OperatorColours == nil {
		config.OperatorColours = map[string]string{}
	}
	for operator, colour := range defaultOperatorColours {
		if _, overridden := config.OperatorColours[operator]; !overridden {
			config.OperatorColours[operator] = colour
		}
	}
}

// Validate fails fast, before any fetch, on structurally invalid
// configuration.
func (config *RunConfig) Validate() error {
	if err := validator.New().Struct(config); err != nil {
		return &merger.PolicyError{Detail: err.Error()}
	}

	if config.Limit < 0 {
		return &merger.PolicyError{Detail: fmt.Sprintf("limit must be positive, got %d", config.Limit)}
	}

	start, end := config.Window()
	if !end.After(start) {
		return &merger.PolicyError{Detail: fmt.Sprintf("window end %s must be after start %s", config.EndTime, config.StartTime)}
	}

	if config.Filter != "" {
		if _, err := merger.CompileFilter(config.Filter); err != nil {
			return err
		}
	}

	return nil
}

func (config *RunConfig) RunDate() time.Time {
	date, _ := time.Parse("2006-01-02", config.Date)
	return date
}

// Window returns the requested window joined onto the run date, without the
// fetch margin.
func (config *RunConfig) Window() (time.Time, time.Time) {
	start, _ := time.Parse("15:04", config.StartTime)
	end, _ := time.Parse("15:04", config.EndTime)

	return util.AddTimeToDate(config.RunDate(), start), util.AddTimeToDate(config.RunDate(), end)
}

// Policy builds the merge policy, compiling the filter expression once.
func (config *RunConfig) Policy() (merger.Policy, error) {
	start, end := config.Window()

	policy := merger.Policy{
		Limit:           config.Limit,
		AlwaysInclude:   config.AlwaysInclude,
		IgnoreOperators: config.IgnoreOperators,
		WindowStart:     start,
		WindowEnd:       end,
	}

	switch config.Direction {
	case "up":
		policy.Direction = timetable.DirectionUp
	case "down":
		policy.Direction = timetable.DirectionDown
	}

	if config.Filter != "" {
		program, err := merger.CompileFilter(config.Filter)
		if err != nil {
			return merger.Policy{}, err
		}
		policy.Filter = program
	}

	return policy, nil
}
