package monitor

import (
	"fmt"
	"io"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/leapstack-labs/mercury/pkg/core"
	"github.com/leapstack-labs/mercury/pkg/threshold"
)

const ruleWidth = 60

// Explain writes the plain-text report to w.
func (r *Result) Explain(w io.Writer) error {
	_, err := io.WriteString(w, r.Report())
	return err
}

// Report renders the plain-text report: metrics, N+1 patterns with samples,
// warnings, failures and the configuration source.
func (r *Result) Report() string {
	var b strings.Builder
	rule := strings.Repeat("=", ruleWidth)

	b.WriteString("\n" + rule + "\n")
	b.WriteString("MERCURY PERFORMANCE REPORT\n")
	b.WriteString(rule + "\n")

	if r.Name != "" || r.Location != "" {
		b.WriteString("\n")
		if r.Name != "" {
			fmt.Fprintf(&b, "Block: %s\n", r.Name)
		}
		if r.Location != "" {
			fmt.Fprintf(&b, "Location: %s\n", r.Location)
		}
	}

	b.WriteString("\nMETRICS:\n")
	fmt.Fprintf(&b, "   Response time: %s (threshold: %s)\n",
		FormatDuration(r.ResponseTime), FormatLimitMS(r.Thresholds.Get(threshold.ResponseTimeMS)))
	fmt.Fprintf(&b, "   Query count:   %d (threshold: %s)\n",
		r.QueryCount, threshold.FormatValue(r.Thresholds.Get(threshold.QueryCount)))

	if len(r.Findings) > 0 {
		b.WriteString("\nN+1 PATTERNS DETECTED:\n")
		for _, f := range r.Findings {
			fmt.Fprintf(&b, "   %s [%dx] %s\n", SeverityLabel(f.Severity), f.Count, Truncate(f.Pattern, sampleWidth))
			for i, s := range f.Samples {
				if i == maxExamples {
					break
				}
				fmt.Fprintf(&b, "        -> %s\n", Truncate(s, 65))
			}
		}
	} else {
		b.WriteString("\nNo N+1 patterns detected\n")
	}

	writeIssues(&b, "WARNINGS", r.Warnings)
	writeIssues(&b, "FAILURES", r.Failures)

	if r.UsedDefaults {
		b.WriteString("\nUsing default thresholds (no config found)\n")
	}

	b.WriteString("\n" + rule + "\n")
	return b.String()
}

func writeIssues(b *strings.Builder, title string, issues []Issue) {
	if len(issues) == 0 {
		return
	}
	fmt.Fprintf(b, "\n%s:\n", title)
	for _, i := range issues {
		for _, line := range strings.Split(i.Message, "\n") {
			fmt.Fprintf(b, "   %s\n", line)
		}
	}
}

// SeverityLabel is the short tag shown next to a pattern.
func SeverityLabel(s core.Severity) string {
	switch s {
	case core.SeverityFailure:
		return "FAIL"
	case core.SeverityWarning:
		return "WARN"
	case core.SeverityNotice:
		return "INFO"
	default:
		return "----"
	}
}

// FormatDuration renders d in µs below a millisecond, ms below a second and
// seconds above, with two decimals.
func FormatDuration(d time.Duration) string {
	ms := float64(d) / float64(time.Millisecond)
	switch {
	case ms < 1:
		return fmt.Sprintf("%.2fµs", ms*1000)
	case ms < 1000:
		return fmt.Sprintf("%.2fms", ms)
	default:
		return fmt.Sprintf("%.2fs", ms/1000)
	}
}

// FormatLimitMS renders a millisecond threshold like FormatDuration, or "off"
// when it is disabled.
func FormatLimitMS(ms float64) string {
	if threshold.IsDisabled(ms) {
		return "off"
	}
	return FormatDuration(time.Duration(ms * float64(time.Millisecond)))
}

// Truncate shortens s to at most n runes, ending in "..." when cut. A
// negative n is treated as zero.
func Truncate(s string, n int) string {
	n = max(n, 0)
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	if n <= 3 {
		return string([]rune(s)[:n])
	}
	return string([]rune(s)[:n-3]) + "..."
}
