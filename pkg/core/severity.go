package core

import "strings"

// =============================================================================
// Severity
// =============================================================================

// Severity indicates how close a repeated query pattern is to its threshold.
// Values are ordered: a larger value is more severe.
type Severity int

// Severity levels for detected patterns.
const (
	// SeverityNone means the pattern is not worth reporting.
	SeverityNone Severity = iota
	// SeverityNotice is informational: the pattern repeats, but well below the threshold.
	SeverityNotice
	// SeverityWarning means the pattern is approaching the threshold.
	SeverityWarning
	// SeverityFailure means the pattern reached the threshold.
	SeverityFailure
)

// String returns the string representation of the severity.
func (s Severity) String() string {
	switch s {
	case SeverityNone:
		return "none"
	case SeverityNotice:
		return "notice"
	case SeverityWarning:
		return "warning"
	case SeverityFailure:
		return "failure"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s Severity) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// ParseSeverity converts a string to a Severity value.
// Returns the severity and true if valid, or SeverityNotice and false if invalid.
func ParseSeverity(s string) (Severity, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "none":
		return SeverityNone, true
	case "notice", "info":
		return SeverityNotice, true
	case "warning", "warn":
		return SeverityWarning, true
	case "failure", "fail", "error":
		return SeverityFailure, true
	default:
		return SeverityNotice, false
	}
}
