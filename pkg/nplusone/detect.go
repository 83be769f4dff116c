package nplusone

import (
	"slices"
	"time"

	"github.com/leapstack-labs/mercury/pkg/core"
	"github.com/leapstack-labs/mercury/pkg/normalize"
)

// Detection defaults.
const (
	DefaultMinRepeats = 3
	DefaultSampleSize = 3
)

// Options controls Detect.
type Options struct {
	// Normalizer builds group keys; nil uses normalize.Normalize.
	Normalizer *normalize.Normalizer
	// MinRepeats is the smallest group reported; 0 means DefaultMinRepeats.
	MinRepeats int
	// SampleSize is how many raw statements are kept per finding; 0 means DefaultSampleSize.
	SampleSize int
}

func (o Options) withDefaults() Options {
	if o.MinRepeats <= 0 {
		o.MinRepeats = DefaultMinRepeats
	}
	if o.SampleSize <= 0 {
		o.SampleSize = DefaultSampleSize
	}
	return o
}

// Finding is a repeated pattern worth reporting.
type Finding struct {
	Pattern  string        `json:"pattern"`
	Count    int           `json:"count"`
	Severity core.Severity `json:"severity"`
	Samples  []string      `json:"samples"`
	Duration time.Duration `json:"duration,omitempty"`
}

// Detect groups queries and returns patterns repeated at least MinRepeats
// times, classified against threshold and sorted worst first. Findings with
// equal counts keep first-seen order. Severity may be SeverityNone when the
// pattern repeats but sits below the notice band.
func Detect(queries []core.Query, threshold float64, opts Options) []Finding {
	opts = opts.withDefaults()

	norm := normalize.Normalize
	if opts.Normalizer != nil {
		norm = opts.Normalizer.Normalize
	}

	var findings []Finding
	for _, g := range GroupQueriesFunc(norm, queries) {
		if g.Count() < opts.MinRepeats {
			continue
		}
		findings = append(findings, Finding{
			Pattern:  g.Pattern,
			Count:    g.Count(),
			Severity: Classify(g.Count(), threshold),
			Samples:  g.Samples(opts.SampleSize),
			Duration: g.Duration(),
		})
	}

	slices.SortStableFunc(findings, func(a, b Finding) int {
		return b.Count - a.Count
	})
	return findings
}

// FilterBySeverity keeps findings at or above minimum.
func FilterBySeverity(findings []Finding, minimum core.Severity) []Finding {
	var out []Finding
	for _, f := range findings {
		if f.Severity >= minimum {
			out = append(out, f)
		}
	}
	return out
}

// Worst returns the highest severity among findings.
func Worst(findings []Finding) core.Severity {
	worst := core.SeverityNone
	for _, f := range findings {
		if f.Severity > worst {
			worst = f.Severity
		}
	}
	return worst
}
