package monitor

import (
	"fmt"
	"time"

	"github.com/leapstack-labs/mercury/pkg/core"
	"github.com/leapstack-labs/mercury/pkg/nplusone"
	"github.com/leapstack-labs/mercury/pkg/threshold"
)

// Check names the threshold check that raised an Issue.
type Check string

// Checks.
const (
	CheckResponseTime Check = "response_time"
	CheckQueryCount   Check = "query_count"
	CheckNPlusOne     Check = "n_plus_one"
	CheckConfig       Check = "config"
)

// Issue is one failure, warning or notice raised by Evaluate.
type Issue struct {
	Check    Check         `json:"check"`
	Severity core.Severity `json:"severity"`
	Message  string        `json:"message"`
	// Pattern is set for N+1 issues.
	Pattern string `json:"pattern,omitempty"`
}

func (i Issue) String() string {
	return i.Message
}

// Result is the outcome of one monitored block.
type Result struct {
	Name         string
	Location     string
	ResponseTime time.Duration
	QueryCount   int
	Queries      []core.Query
	Findings     []nplusone.Finding
	Thresholds   threshold.Set
	UsedDefaults bool

	// Failures make the block fail; Warnings hold warnings and notices.
	Failures []Issue
	Warnings []Issue
}

// Passed reports whether no threshold failed.
func (r *Result) Passed() bool {
	return len(r.Failures) == 0
}

// ResponseTimeMS returns the response time in milliseconds.
func (r *Result) ResponseTimeMS() float64 {
	return float64(r.ResponseTime) / float64(time.Millisecond)
}

// ExceededResponseTime reports whether the response time is above its threshold.
func (r *Result) ExceededResponseTime() bool {
	limit := r.Thresholds.Get(threshold.ResponseTimeMS)
	return !r.Thresholds.IsZero() && !threshold.IsDisabled(limit) && r.ResponseTimeMS() > limit
}

// ExceededQueryCount reports whether the query count is above its threshold.
func (r *Result) ExceededQueryCount() bool {
	limit := r.Thresholds.Get(threshold.QueryCount)
	return !r.Thresholds.IsZero() && !threshold.IsDisabled(limit) && float64(r.QueryCount) > limit
}

// HasNPlusOne reports whether any repeated pattern was detected.
func (r *Result) HasNPlusOne() bool {
	return len(r.Findings) > 0
}

// Severity is the worst severity across all issues.
func (r *Result) Severity() core.Severity {
	worst := core.SeverityNone
	for _, list := range [][]Issue{r.Failures, r.Warnings} {
		for _, i := range list {
			if i.Severity > worst {
				worst = i.Severity
			}
		}
	}
	return worst
}

func (r *Result) String() string {
	return fmt.Sprintf("Result(time=%.2fms, queries=%d, n+1_patterns=%d, failures=%d)",
		r.ResponseTimeMS(), r.QueryCount, len(r.Findings), len(r.Failures))
}

// ThresholdError is returned by Run when a block fails its thresholds.
// Its message is the full report.
type ThresholdError struct {
	Result *Result
}

func (e *ThresholdError) Error() string {
	return e.Result.Report()
}
