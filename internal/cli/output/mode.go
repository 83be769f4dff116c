// Package output provides output rendering for the mercury CLI.
//
// Output adapts to the environment: styled text on a terminal, markdown when
// piped, and JSON or YAML when asked for explicitly.
package output

import "fmt"

// Mode selects how command output is rendered.
type Mode string

// Output modes.
const (
	ModeAuto     Mode = "auto"     // text on a TTY, markdown otherwise
	ModeText     Mode = "text"     // styled text
	ModeMarkdown Mode = "markdown" // agent and script friendly
	ModeJSON     Mode = "json"
	ModeYAML     Mode = "yaml"
)

// Modes lists all modes in display order.
func Modes() []Mode {
	return []Mode{ModeAuto, ModeText, ModeMarkdown, ModeJSON, ModeYAML}
}

// ParseMode validates s as a Mode. An empty string is ModeAuto.
func ParseMode(s string) (Mode, error) {
	if s == "" {
		return ModeAuto, nil
	}
	for _, m := range Modes() {
		if string(m) == s {
			return m, nil
		}
	}
	return "", fmt.Errorf("unknown output mode %q", s)
}

// Structured reports whether the mode emits machine-readable documents.
func (m Mode) Structured() bool {
	return m == ModeJSON || m == ModeYAML
}
