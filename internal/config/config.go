// Package config provides the project configuration shared by the CLI and
// any other tool that reads mercury.yaml.
package config

import (
	"os"
	"path/filepath"

	"github.com/leapstack-labs/mercury/pkg/normalize"
	"github.com/leapstack-labs/mercury/pkg/threshold"
)

// ConfigFileName is the name of the config file.
const ConfigFileName = "mercury.yaml"

// ConfigFileNameAlt is the alternate name of the config file.
const ConfigFileNameAlt = "mercury.yml"

// Default configuration values.
const (
	DefaultHistoryPath = ".mercury/history.db"
	DefaultOutput      = "auto" // TTY=text, non-TTY=markdown
	DefaultMinSeverity = "notice"
	DefaultSampleSize  = 3
)

// ProjectConfig holds the settings a project keeps in mercury.yaml.
type ProjectConfig struct {
	// Thresholds is the application settings layer of threshold resolution.
	Thresholds    threshold.Layer   `koanf:"thresholds"`
	Normalize     normalize.Options `koanf:"normalize"`
	HistoryPath   string            `koanf:"history_path"`
	RecordHistory bool              `koanf:"record_history"`
	MinSeverity   string            `koanf:"min_severity"`
	SampleSize    int               `koanf:"sample_size"`
}

// DefaultValues returns the flat key defaults for a koanf confmap provider.
// Thresholds are absent on purpose: threshold defaults are their own layer.
func DefaultValues() map[string]any {
	return map[string]any{
		"history_path":                  DefaultHistoryPath,
		"record_history":                false,
		"min_severity":                  DefaultMinSeverity,
		"sample_size":                   DefaultSampleSize,
		"normalize.collapse_whitespace": false,
		"normalize.param_markers":       false,
	}
}

// FindConfigFile finds the config file in the given directory.
// Returns empty string if not found.
func FindConfigFile(dir string) string {
	for _, name := range []string{ConfigFileName, ConfigFileNameAlt} {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// FindProjectRoot walks up from the given directory to find a directory
// containing mercury.yaml or mercury.yml.
// Returns empty string if not found.
func FindProjectRoot(startDir string) string {
	dir := startDir
	for {
		if FindConfigFile(dir) != "" {
			return dir
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached filesystem root
			return ""
		}
		dir = parent
	}
}
