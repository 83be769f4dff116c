// Package threshold resolves the effective performance limits for a monitored
// block from layered configuration sources.
//
// Four layers are consulted per threshold name, highest precedence first:
// inline overrides at the call site, file-level values shipped with the
// captured block, application settings, and built-in defaults. Resolution is a
// pure reduction; no layer is modified.
package threshold

import (
	"encoding/json"
	"math"
	"strconv"
)

// Name identifies a threshold.
type Name string

// Known thresholds.
const (
	// ResponseTimeMS is the maximum wall time of the block in milliseconds.
	ResponseTimeMS Name = "response_time_ms"
	// QueryCount is the maximum number of statements the block may execute.
	QueryCount Name = "query_count"
	// NPlusOne is the group size at which a repeated pattern fails.
	NPlusOne Name = "n_plus_one_threshold"
)

var names = []Name{ResponseTimeMS, QueryCount, NPlusOne}

// Names returns every required threshold name in display order.
func Names() []Name {
	out := make([]Name, len(names))
	copy(out, names)
	return out
}

// Valid reports whether n is a known threshold.
func (n Name) Valid() bool {
	for _, known := range names {
		if n == known {
			return true
		}
	}
	return false
}

// Disabled is the sentinel for a threshold that never trips.
var Disabled = math.Inf(1)

// IsDisabled reports whether v is the Disabled sentinel.
func IsDisabled(v float64) bool {
	return math.IsInf(v, 1)
}

// FormatValue renders a threshold value for display.
func FormatValue(v float64) string {
	if IsDisabled(v) {
		return "off"
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// Layer is a partial set of threshold values. A missing key means the layer
// does not specify that threshold.
type Layer map[Name]float64

// Clone returns a copy of the layer.
func (l Layer) Clone() Layer {
	if l == nil {
		return nil
	}
	out := make(Layer, len(l))
	for k, v := range l {
		out[k] = v
	}
	return out
}

// Defaults returns the built-in fallback layer. It is complete: every name in
// Names has a value.
func Defaults() Layer {
	return Layer{
		ResponseTimeMS: 100,
		QueryCount:     10,
		NPlusOne:       10,
	}
}

// Source identifies the layer an effective value came from.
type Source int

// Layers in increasing precedence.
const (
	SourceDefaults Source = iota
	SourceSettings
	SourceFile
	SourceInline
)

// String returns the string representation of the source.
func (s Source) String() string {
	switch s {
	case SourceDefaults:
		return "defaults"
	case SourceSettings:
		return "settings"
	case SourceFile:
		return "file"
	case SourceInline:
		return "inline"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s Source) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Set is the resolved, immutable threshold set for one monitored block.
type Set struct {
	values  map[Name]float64
	sources map[Name]Source
}

// Get returns the effective value for n, or 0 for an unknown name.
func (s Set) Get(n Name) float64 {
	return s.values[n]
}

// Source returns which layer supplied n.
func (s Set) Source(n Name) Source {
	return s.sources[n]
}

// Disabled reports whether n is switched off.
func (s Set) Disabled(n Name) bool {
	v, ok := s.values[n]
	return ok && IsDisabled(v)
}

// UsedDefaults reports whether every value came from the defaults layer,
// meaning no custom configuration was found.
func (s Set) UsedDefaults() bool {
	if len(s.sources) == 0 {
		return false
	}
	for _, src := range s.sources {
		if src != SourceDefaults {
			return false
		}
	}
	return true
}

// IsZero reports whether the set was never resolved.
func (s Set) IsZero() bool {
	return len(s.values) == 0
}

// Layer returns the effective values as a new layer.
func (s Set) Layer() Layer {
	return Layer(s.values).Clone()
}

// Entry is one resolved threshold with its origin.
type Entry struct {
	Name   Name    `json:"name" yaml:"name"`
	Value  float64 `json:"-" yaml:"-"`
	Source Source  `json:"source" yaml:"source"`
}

// Entries lists resolved thresholds in display order.
func (s Set) Entries() []Entry {
	out := make([]Entry, 0, len(names))
	for _, n := range names {
		if v, ok := s.values[n]; ok {
			out = append(out, Entry{Name: n, Value: v, Source: s.sources[n]})
		}
	}
	return out
}

// MarshalJSON encodes the set as an object of name to value. Disabled values
// are encoded as the string "off" since JSON has no infinity.
func (s Set) MarshalJSON() ([]byte, error) {
	out := make(map[Name]any, len(s.values))
	for n, v := range s.values {
		if IsDisabled(v) {
			out[n] = "off"
		} else {
			out[n] = v
		}
	}
	return json.Marshal(out)
}
