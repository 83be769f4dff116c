package threshold

import (
	"errors"
	"fmt"
)

// ErrConfiguration is matched by every threshold configuration error.
var ErrConfiguration = errors.New("invalid threshold configuration")

// ConfigError describes a threshold that cannot be resolved or parsed.
type ConfigError struct {
	Name   Name
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("threshold %q: %s", e.Name, e.Reason)
}

// Unwrap allows errors.Is(err, ErrConfiguration).
func (e *ConfigError) Unwrap() error {
	return ErrConfiguration
}
