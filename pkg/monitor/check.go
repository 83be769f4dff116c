package monitor

import (
	"fmt"
	"strings"

	"github.com/leapstack-labs/mercury/pkg/core"
	"github.com/leapstack-labs/mercury/pkg/nplusone"
	"github.com/leapstack-labs/mercury/pkg/threshold"
)

const (
	patternWidth = 80
	sampleWidth  = 70
	maxExamples  = 3
)

// Evaluate checks res against its thresholds and repopulates Failures and
// Warnings. Finding severities are reclassified against the current
// n_plus_one_threshold. Disabled thresholds are skipped.
func Evaluate(res *Result) {
	res.Failures = nil
	res.Warnings = nil

	set := res.Thresholds
	if set.IsZero() {
		set = threshold.MustResolve(nil, nil, nil, threshold.Defaults())
		res.Thresholds = set
	}

	if res.UsedDefaults {
		res.Warnings = append(res.Warnings, Issue{
			Check:    CheckConfig,
			Severity: core.SeverityWarning,
			Message: "No threshold configuration found. Using defaults. " +
				"Configure thresholds in mercury.yaml or the capture file to remove this warning.",
		})
	}

	if res.ExceededResponseTime() {
		limit := set.Get(threshold.ResponseTimeMS)
		res.Failures = append(res.Failures, Issue{
			Check:    CheckResponseTime,
			Severity: core.SeverityFailure,
			Message: fmt.Sprintf("Response time %.2fms exceeded threshold %sms (+%.2fms over)",
				res.ResponseTimeMS(), threshold.FormatValue(limit), res.ResponseTimeMS()-limit),
		})
	}

	if res.ExceededQueryCount() {
		limit := set.Get(threshold.QueryCount)
		res.Failures = append(res.Failures, Issue{
			Check:    CheckQueryCount,
			Severity: core.SeverityFailure,
			Message: fmt.Sprintf("Query count %d exceeded threshold %s (+%s extra queries)",
				res.QueryCount, threshold.FormatValue(limit), threshold.FormatValue(float64(res.QueryCount)-limit)),
		})
	}

	n1 := set.Get(threshold.NPlusOne)
	for i := range res.Findings {
		f := &res.Findings[i]
		f.Severity = nplusone.Classify(f.Count, n1)

		issue := Issue{Check: CheckNPlusOne, Severity: f.Severity, Pattern: f.Pattern}
		switch f.Severity {
		case core.SeverityFailure:
			issue.Message = failureMessage(f, n1)
			res.Failures = append(res.Failures, issue)
		case core.SeverityWarning:
			issue.Message = fmt.Sprintf("N+1 warning: %d similar queries detected (approaching threshold: %s)\n"+
				"   Pattern: %s\n"+
				"   Consider loading the related rows with a join or one batched IN query",
				f.Count, threshold.FormatValue(n1), Truncate(f.Pattern, patternWidth))
			res.Warnings = append(res.Warnings, issue)
		case core.SeverityNotice:
			issue.Message = fmt.Sprintf("N+1 notice: %d similar queries\n   Pattern: %s",
				f.Count, Truncate(f.Pattern, patternWidth))
			res.Warnings = append(res.Warnings, issue)
		}
	}
}

func failureMessage(f *nplusone.Finding, n1 float64) string {
	var b strings.Builder
	fmt.Fprintf(&b, "N+1 pattern detected: %d similar queries (threshold: %s)\n", f.Count, threshold.FormatValue(n1))
	fmt.Fprintf(&b, "   Pattern: %s\n", Truncate(f.Pattern, patternWidth))
	b.WriteString("   Examples:")
	for i, s := range f.Samples {
		if i == maxExamples {
			break
		}
		fmt.Fprintf(&b, "\n      -> %s", Truncate(s, sampleWidth))
	}
	return b.String()
}
