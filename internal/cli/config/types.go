// Package config provides configuration management for the mercury CLI.
//
// This package extends the shared project configuration from internal/config
// with CLI-specific fields such as the output mode and verbosity.
package config

import (
	intconfig "github.com/leapstack-labs/mercury/internal/config"
)

// ProjectConfig is an alias for the shared project configuration.
// This allows CLI code to use config.ProjectConfig without importing internal/config.
type ProjectConfig = intconfig.ProjectConfig

// Config holds all CLI configuration options.
type Config struct {
	ProjectConfig `koanf:",squash"`

	Verbose      bool   `koanf:"verbose"`
	OutputFormat string `koanf:"output"`

	// NoSummary disables the multi-file summary. It comes from no_summary
	// (MERCURY_NO_SUMMARY or --no-summary) and accepts 1/true/yes/on.
	NoSummary bool `koanf:"-"`

	ProjectRoot string `koanf:"-"`
	ConfigFile  string `koanf:"-"`
}

// Default configuration values - uses shared defaults from internal/config
const (
	DefaultHistoryPath = intconfig.DefaultHistoryPath
	DefaultOutput      = intconfig.DefaultOutput
	DefaultMinSeverity = intconfig.DefaultMinSeverity
)

// Output modes accepted by the output key.
var validOutputs = []string{"auto", "text", "markdown", "json", "yaml"}

// ValidOutputs returns the accepted values of the output key.
func ValidOutputs() []string {
	out := make([]string, len(validOutputs))
	copy(out, validOutputs)
	return out
}
