package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// ResolveFile resolves a name or path against a conventional directory,
// trying the path as given, then dir/name with each extension, then the
// name's own parent with each extension.
func ResolveFile(name string, directory string, extensions ...string) (string, error) {
	if _, err := os.Stat(name); err == nil {
		return name, nil
	}

	base := filepath.Base(name)
	for _, extension := range extensions {
		withExtension := base
		if !strings.HasSuffix(strings.ToLower(base), "."+extension) {
			withExtension = base + "." + extension
		}

		candidate := filepath.Join(directory, withExtension)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}

		if parent := filepath.Dir(name); parent != "." {
			candidate = filepath.Join(parent, withExtension)
			if _, err := os.Stat(candidate); err == nil {
				return candidate, nil
			}
		}
	}

	return "", fmt.Errorf("no file found for %q in %q or as given path", name, directory)
}

// LoadPreset reads a YAML preset file into a RunConfig. Defaults are applied
// but validation is left to the caller, which may still override fields from
// CLI flags.
func LoadPreset(path string) (*RunConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	runConfig := &RunConfig{}
	if err := yaml.Unmarshal(data, runConfig); err != nil {
		return nil, fmt.Errorf("invalid preset %s: %w", path, err)
	}

	runConfig.ApplyDefaults()

	return runConfig, nil
}
