package monitor

import (
	"time"

	"github.com/leapstack-labs/mercury/pkg/core"
	"github.com/leapstack-labs/mercury/pkg/threshold"
)

// Export is the serialisable view of a Result.
type Export struct {
	Name           string          `json:"name,omitempty" yaml:"name,omitempty"`
	Location       string          `json:"location,omitempty" yaml:"location,omitempty"`
	ResponseTimeMS float64         `json:"response_time_ms" yaml:"response_time_ms"`
	QueryCount     int             `json:"query_count" yaml:"query_count"`
	Passed         bool            `json:"passed" yaml:"passed"`
	Severity       core.Severity   `json:"severity" yaml:"severity"`
	Queries        []ExportQuery   `json:"queries" yaml:"queries"`
	Patterns       []ExportPattern `json:"n_plus_one_patterns" yaml:"n_plus_one_patterns"`
	Thresholds     threshold.Set   `json:"thresholds" yaml:"-"`
	UsedDefaults   bool            `json:"used_defaults" yaml:"used_defaults"`
	Failures       []Issue         `json:"failures" yaml:"failures"`
	Warnings       []Issue         `json:"warnings" yaml:"warnings"`
}

// ExportQuery is one captured statement.
type ExportQuery struct {
	SQL    string  `json:"sql" yaml:"sql"`
	TimeMS float64 `json:"time_ms" yaml:"time_ms"`
}

// ExportPattern is one N+1 finding.
type ExportPattern struct {
	NormalizedQuery string        `json:"normalized_query" yaml:"normalized_query"`
	Count           int           `json:"count" yaml:"count"`
	Severity        core.Severity `json:"severity" yaml:"severity"`
	SampleQueries   []string      `json:"sample_queries" yaml:"sample_queries"`
}

// Export converts the result for JSON output. Slices are never nil.
func (r *Result) Export() Export {
	out := Export{
		Name:           r.Name,
		Location:       r.Location,
		ResponseTimeMS: r.ResponseTimeMS(),
		QueryCount:     r.QueryCount,
		Passed:         r.Passed(),
		Severity:       r.Severity(),
		Queries:        make([]ExportQuery, 0, len(r.Queries)),
		Patterns:       make([]ExportPattern, 0, len(r.Findings)),
		Thresholds:     r.Thresholds,
		UsedDefaults:   r.UsedDefaults,
		Failures:       append([]Issue{}, r.Failures...),
		Warnings:       append([]Issue{}, r.Warnings...),
	}
	for _, q := range r.Queries {
		out.Queries = append(out.Queries, ExportQuery{
			SQL:    q.SQL,
			TimeMS: float64(q.Duration) / float64(time.Millisecond),
		})
	}
	for _, f := range r.Findings {
		out.Patterns = append(out.Patterns, ExportPattern{
			NormalizedQuery: f.Pattern,
			Count:           f.Count,
			Severity:        f.Severity,
			SampleQueries:   append([]string{}, f.Samples...),
		})
	}
	return out
}
