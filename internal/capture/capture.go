// Package capture reads recorded query captures from disk.
//
// A capture holds the statements of one monitored block plus optional
// metadata: a name, a location, the measured response time and file-level
// threshold values. Supported formats are JSON (a record array or a document
// object), JSON lines, YAML, application logs with "[sql]:" lines, and plain
// SQL scripts.
package capture

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/leapstack-labs/mercury/pkg/core"
	"github.com/leapstack-labs/mercury/pkg/threshold"
)

// Format is a capture file format.
type Format string

// Supported formats.
const (
	FormatJSON  Format = "json"
	FormatJSONL Format = "jsonl"
	FormatYAML  Format = "yaml"
	FormatLog   Format = "log"
	FormatSQL   Format = "sql"
)

// ErrUnknownFormat is returned when a format cannot be determined.
var ErrUnknownFormat = errors.New("unknown capture format")

var extensions = map[string]Format{
	".json":   FormatJSON,
	".jsonl":  FormatJSONL,
	".ndjson": FormatJSONL,
	".yaml":   FormatYAML,
	".yml":    FormatYAML,
	".log":    FormatLog,
	".txt":    FormatLog,
	".sql":    FormatSQL,
}

// Extensions returns the file extensions recognised by DetectFormat.
func Extensions() []string {
	out := make([]string, 0, len(extensions))
	for ext := range extensions {
		out = append(out, ext)
	}
	return out
}

// DetectFormat picks the format from the file extension.
func DetectFormat(path string) (Format, error) {
	if f, ok := extensions[strings.ToLower(filepath.Ext(path))]; ok {
		return f, nil
	}
	return "", fmt.Errorf("%w: %s", ErrUnknownFormat, path)
}

// ParseFormat validates a format name given by the user.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatJSON, FormatJSONL, FormatYAML, FormatLog, FormatSQL:
		return f, nil
	case "ndjson":
		return FormatJSONL, nil
	case "yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
	}
}

// File is one parsed capture.
type File struct {
	Path     string
	Name     string
	Location string
	Format   Format
	Queries  []core.Query

	// ResponseTime is the measured wall time when the capture recorded one.
	ResponseTime    time.Duration
	HasResponseTime bool

	// Thresholds is the file-level layer; nil when the capture sets none.
	Thresholds threshold.Layer
}

// Elapsed is the block's response time: the recorded value when present,
// otherwise the sum of statement durations.
func (f *File) Elapsed() time.Duration {
	if f.HasResponseTime {
		return f.ResponseTime
	}
	return core.TotalDuration(f.Queries)
}

// ParseError locates a problem inside a capture.
type ParseError struct {
	Name string
	Line int
	Err  error
}

func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("%s:%d: %v", e.Name, e.Line, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Name, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// Load reads and parses the capture at path, detecting its format from the
// extension. The block name defaults to the file name without extension.
func Load(path string) (*File, error) {
	format, err := DetectFormat(path)
	if err != nil {
		return nil, err
	}
	return LoadAs(path, format)
}

// LoadAs is Load with an explicit format.
func LoadAs(path string, format Format) (*File, error) {
	f, err := os.Open(path) //nolint:gosec // capture paths come from the user
	if err != nil {
		return nil, fmt.Errorf("failed to open capture: %w", err)
	}
	defer func() { _ = f.Close() }()

	base := filepath.Base(path)
	file, err := Parse(strings.TrimSuffix(base, filepath.Ext(base)), format, f)
	if err != nil {
		return nil, err
	}
	file.Path = path
	if file.Location == "" {
		file.Location = path
	}
	return file, nil
}
