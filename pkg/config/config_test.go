package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/traingraph/traingraph/pkg/merger"
	"github.com/traingraph/traingraph/pkg/timetable"
)

func validConfig() *RunConfig {
	config := &RunConfig{
		RouteCSV:  "routes/gwml.csv",
		Date:      "2025-08-20",
		StartTime: "07:00",
		EndTime:   "10:00",
		Locations: []string{"PAD"},
	}
	config.ApplyDefaults()

	return config
}

func TestApplyDefaults(t *testing.T) {
	config := &RunConfig{}
	config.ApplyDefaults()

	assert.Equal(t, "cache", config.CacheDir)
	assert.Equal(t, "outputs", config.OutputDir)
	assert.Equal(t, []string{"RA1"}, config.IgnoreOperators)
	assert.Equal(t, "#0b4d3b", config.OperatorColours["Great Western Railway"])
	assert.Equal(t, "#8B4513", config.OperatorColours["Other"])
}

func TestApplyDefaultsKeepsOverrides(t *testing.T) {
	config := &RunConfig{
		CacheDir:        "/tmp/elsewhere",
		IgnoreOperators: []string{},
		OperatorColours: map[string]string{"Great Western Railway": "#ff0000"},
	}
	config.ApplyDefaults()

	assert.Equal(t, "/tmp/elsewhere", config.CacheDir)
	assert.Empty(t, config.IgnoreOperators)
	assert.Equal(t, "#ff0000", config.OperatorColours["Great Western Railway"])
	assert.Equal(t, "#694ED6", config.OperatorColours["Elizabeth Line"])
}

func TestValidate(t *testing.T) {
	assert.NoError(t, validConfig().Validate())

	var policyError *merger.PolicyError

	missingRoute := validConfig()
	missingRoute.RouteCSV = ""
	assert.ErrorAs(t, missingRoute.Validate(), &policyError)

	badDate := validConfig()
	badDate.Date = "20/08/2025"
	assert.ErrorAs(t, badDate.Validate(), &policyError)

	badDirection := validConfig()
	badDirection.Direction = "sideways"
	assert.ErrorAs(t, badDirection.Validate(), &policyError)

	noLocations := validConfig()
	noLocations.Locations = nil
	assert.ErrorAs(t, noLocations.Validate(), &policyError)

	negativeLimit := validConfig()
	negativeLimit.Limit = -3
	assert.ErrorAs(t, negativeLimit.Validate(), &policyError)

	backwardsWindow := validConfig()
	backwardsWindow.StartTime = "10:00"
	backwardsWindow.EndTime = "07:00"
	assert.ErrorAs(t, backwardsWindow.Validate(), &policyError)

	badFilter := validConfig()
	badFilter.Filter = "Operator =="
	assert.ErrorAs(t, badFilter.Validate(), &policyError)
}

func TestWindow(t *testing.T) {
	config := validConfig()

	start, end := config.Window()
	assert.Equal(t, time.Date(2025, 8, 20, 7, 0, 0, 0, time.UTC), start)
	assert.Equal(t, time.Date(2025, 8, 20, 10, 0, 0, 0, time.UTC), end)
}

func TestPolicy(t *testing.T) {
	config := validConfig()
	config.Direction = "up"
	config.Limit = 5
	config.Filter = `Operator != "RA1"`

	policy, err := config.Policy()
	require.NoError(t, err)

	assert.Equal(t, timetable.DirectionUp, policy.Direction)
	assert.Equal(t, 5, policy.Limit)
	assert.NotNil(t, policy.Filter)
	assert.NoError(t, policy.Validate())
}

func TestLoadPreset(t *testing.T) {
	directory := t.TempDir()
	path := filepath.Join(directory, "gwml.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
route_csv: routes/gwml.csv
date: "2025-08-20"
start_time: "07:00"
end_time: "10:00"
locations: [PAD, RDG]
direction: up
limit: 20
operator_colours:
  Great Western Railway: "#123456"
`), 0644))

	config, err := LoadPreset(path)
	require.NoError(t, err)

	assert.Equal(t, "routes/gwml.csv", config.RouteCSV)
	assert.Equal(t, []string{"PAD", "RDG"}, config.Locations)
	assert.Equal(t, "up", config.Direction)
	assert.Equal(t, 20, config.Limit)
	assert.Equal(t, "#123456", config.OperatorColours["Great Western Railway"])
	assert.Equal(t, "cache", config.CacheDir, "defaults are applied on load")
	assert.NoError(t, config.Validate())
}

func TestLoadPresetRejectsBadYAML(t *testing.T) {
	directory := t.TempDir()
	path := filepath.Join(directory, "broken.yaml")
	require.NoError(t, os.WriteFile(path, []byte("route_csv: [unclosed"), 0644))

	_, err := LoadPreset(path)
	assert.Error(t, err)
}

func TestResolveFile(t *testing.T) {
	directory := t.TempDir()
	presetPath := filepath.Join(directory, "gwml.yaml")
	require.NoError(t, os.WriteFile(presetPath, []byte("{}"), 0644))

	// As given.
	resolved, err := ResolveFile(presetPath, "presets", "yaml")
	require.NoError(t, err)
	assert.Equal(t, presetPath, resolved)

	// Bare name against the conventional directory, extension added.
	resolved, err = ResolveFile("gwml", directory, "yaml")
	require.NoError(t, err)
	assert.Equal(t, presetPath, resolved)

	// Name with extension against the conventional directory.
	resolved, err = ResolveFile("gwml.yaml", directory, "yaml")
	require.NoError(t, err)
	assert.Equal(t, presetPath, resolved)

	_, err = ResolveFile("missing", directory, "yaml")
	assert.Error(t, err)
}
