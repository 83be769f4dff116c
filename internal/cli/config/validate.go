package config

import (
	"fmt"
	"slices"
	"strings"

	"github.com/leapstack-labs/mercury/pkg/core"
)

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if !slices.Contains(validOutputs, c.OutputFormat) {
		return fmt.Errorf("invalid output %q (expected one of %s)", c.OutputFormat, strings.Join(validOutputs, ", "))
	}
	if _, ok := core.ParseSeverity(c.MinSeverity); !ok {
		return fmt.Errorf("invalid min_severity %q (expected none, notice, warning or failure)", c.MinSeverity)
	}
	if c.SampleSize < 0 {
		return fmt.Errorf("sample_size must not be negative, got %d", c.SampleSize)
	}
	return nil
}

// MinimumSeverity returns the parsed min_severity, defaulting to notice.
func (c *Config) MinimumSeverity() core.Severity {
	s, _ := core.ParseSeverity(c.MinSeverity)
	return s
}

// isTruthy reports whether an environment-style flag value is set.
func isTruthy(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}
