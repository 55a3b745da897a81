package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the default project file name.
const DefaultConfigFile = ".assetship.yaml"

// ErrConfigNotFound is returned when the project file does not exist.
var ErrConfigNotFound = errors.New("configuration file not found")

// LoadConfigFile loads the project description from a YAML file.
// Relative paths inside the file resolve against the file's directory.
// Environment overrides are applied after decoding.
func LoadConfigFile(path string) (*File, error) {
	data, err := os.ReadFile(path) //nolint:gosec // User-provided config path is intentional
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrConfigNotFound
		}
		return nil, err
	}

	var cf File
	if err := yaml.Unmarshal(data, &cf); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	if err := ApplyEnv(&cf); err != nil {
		return nil, err
	}

	cf.applyDefaults()
	cf.SetBaseDir(filepath.Dir(path))

	return &cf, nil
}

// FindConfigFile searches for the project file in the following order:
// 1. If configPath is specified, use it directly
// 2. Look for .assetship.yaml in the current directory
// 3. Look for .assetship.yaml in the XDG config directory
//
// Returns the path to the file if found, or empty string if not found.
func FindConfigFile(configPath string) string {
	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}
		return ""
	}

	cwd, err := os.Getwd()
	if err == nil {
		cwdConfig := filepath.Join(cwd, DefaultConfigFile)
		if _, err := os.Stat(cwdConfig); err == nil {
			return cwdConfig
		}
	}

	xdgConfig := filepath.Join(XDGConfigDir(), DefaultConfigFile)
	if _, err := os.Stat(xdgConfig); err == nil {
		return xdgConfig
	}

	return ""
}
