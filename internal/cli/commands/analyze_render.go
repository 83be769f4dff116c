package commands

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/leapstack-labs/mercury/internal/cli/output"
	"github.com/leapstack-labs/mercury/pkg/core"
	"github.com/leapstack-labs/mercury/pkg/monitor"
	"github.com/leapstack-labs/mercury/pkg/nplusone"
	"github.com/leapstack-labs/mercury/pkg/summary"
	"github.com/leapstack-labs/mercury/pkg/threshold"
)

// AnalyzeOutput is the JSON/YAML document written by analyze.
type AnalyzeOutput struct {
	Results []monitor.Export `json:"results" yaml:"results"`
	Summary *SummaryOutput   `json:"summary,omitempty" yaml:"summary,omitempty"`
}

// SummaryOutput is the serialisable multi-capture summary.
type SummaryOutput struct {
	Total                int          `json:"total" yaml:"total"`
	Passed               int          `json:"passed" yaml:"passed"`
	Failed               int          `json:"failed" yaml:"failed"`
	PassRate             float64      `json:"pass_rate" yaml:"pass_rate"`
	WithNPlusOne         int          `json:"with_n_plus_one" yaml:"with_n_plus_one"`
	ResponseTimeExceeded int          `json:"response_time_exceeded" yaml:"response_time_exceeded"`
	QueryCountExceeded   int          `json:"query_count_exceeded" yaml:"query_count_exceeded"`
	MeanResponseTimeMS   float64      `json:"mean_response_time_ms" yaml:"mean_response_time_ms"`
	MedianResponseTimeMS float64      `json:"median_response_time_ms" yaml:"median_response_time_ms"`
	MeanQueryCount       float64      `json:"mean_query_count" yaml:"mean_query_count"`
	MedianQueryCount     float64      `json:"median_query_count" yaml:"median_query_count"`
	Slowest              []SlowOutput `json:"slowest" yaml:"slowest"`
}

// SlowOutput is one entry of the slowest list.
type SlowOutput struct {
	Name           string  `json:"name" yaml:"name"`
	ResponseTimeMS float64 `json:"response_time_ms" yaml:"response_time_ms"`
	QueryCount     int     `json:"query_count" yaml:"query_count"`
	NPlusOne       bool    `json:"n_plus_one" yaml:"n_plus_one"`
}

func millis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}

func newSummaryOutput(rep *summary.Report) *SummaryOutput {
	if rep == nil {
		return nil
	}
	out := &SummaryOutput{
		Total:                rep.Total,
		Passed:               rep.Passed,
		Failed:               rep.Failed,
		PassRate:             rep.PassRate(),
		WithNPlusOne:         rep.WithNPlusOne,
		ResponseTimeExceeded: rep.ResponseTimeExceeded,
		QueryCountExceeded:   rep.QueryCountExceeded,
		MeanResponseTimeMS:   millis(rep.MeanResponseTime),
		MedianResponseTimeMS: millis(rep.MedianResponseTime),
		MeanQueryCount:       rep.MeanQueryCount,
		MedianQueryCount:     rep.MedianQueryCount,
		Slowest:              make([]SlowOutput, 0, len(rep.Slowest)),
	}
	for _, s := range rep.Slowest {
		out.Slowest = append(out.Slowest, SlowOutput{
			Name:           s.Name,
			ResponseTimeMS: millis(s.ResponseTime),
			QueryCount:     s.QueryCount,
			NPlusOne:       s.NPlusOne,
		})
	}
	return out
}

// visible returns a copy of res showing only findings and non-failure issues
// at or above minimum. Failures are always kept.
func visible(res *monitor.Result, minimum core.Severity) *monitor.Result {
	view := *res
	view.Findings = nplusone.FilterBySeverity(res.Findings, minimum)
	view.Warnings = nil
	for _, issue := range res.Warnings {
		if issue.Severity >= minimum {
			view.Warnings = append(view.Warnings, issue)
		}
	}
	return &view
}

// render writes results and the optional summary in the effective mode.
func (a *analyzer) render(results []*monitor.Result) error {
	r := a.cmdCtx.Renderer
	minimum := a.cmdCtx.Cfg.MinimumSeverity()

	views := make([]*monitor.Result, len(results))
	for i, res := range results {
		views[i] = visible(res, minimum)
	}
	rep := a.summarize(results)

	switch r.EffectiveMode() {
	case output.ModeJSON, output.ModeYAML:
		doc := AnalyzeOutput{
			Results: make([]monitor.Export, 0, len(views)),
			Summary: newSummaryOutput(rep),
		}
		for _, v := range views {
			doc.Results = append(doc.Results, v.Export())
		}
		return r.Document(doc)
	case output.ModeMarkdown:
		for _, v := range views {
			analyzeMarkdown(r, v)
		}
		if rep != nil {
			summaryMarkdown(r, rep)
		}
	default:
		for _, v := range views {
			if err := analyzeText(r, v); err != nil {
				return err
			}
		}
		if rep != nil {
			summaryText(r, rep)
		}
	}
	return nil
}

// statusWord is PASS or FAIL.
func statusWord(res *monitor.Result) string {
	if res.Passed() {
		return "PASS"
	}
	return "FAIL"
}

// analyzeText writes the styled status line followed by the plain report.
func analyzeText(r *output.Renderer, res *monitor.Result) error {
	styles := r.Styles()
	status := styles.StatusPassed.Render(statusWord(res))
	if !res.Passed() {
		status = styles.StatusFailed.Render(statusWord(res))
	}

	r.Printf("%s %s %s\n", status, styles.Bold.Render(res.Name),
		styles.Muted.Render(fmt.Sprintf("(%d queries, %s)", res.QueryCount, monitor.FormatDuration(res.ResponseTime))))
	return res.Explain(r.Writer())
}

// analyzeMarkdown writes one capture as a markdown section.
func analyzeMarkdown(r *output.Renderer, res *monitor.Result) {
	r.Println(output.FormatHeader(2, fmt.Sprintf("%s: %s", res.Name, statusWord(res))))
	r.Println("")
	if res.Location != "" {
		r.Println(output.FormatKeyValue("Location", res.Location))
	}
	r.Println(output.FormatKeyValue("Response time", fmt.Sprintf("%s (threshold: %s)",
		monitor.FormatDuration(res.ResponseTime), responseLimitText(res.Thresholds))))
	r.Println(output.FormatKeyValue("Query count", fmt.Sprintf("%d (threshold: %s)",
		res.QueryCount, thresholdText(res.Thresholds, threshold.QueryCount))))
	r.Println(output.FormatKeyValue("N+1 threshold", thresholdText(res.Thresholds, threshold.NPlusOne)))
	r.Println("")

	if len(res.Findings) > 0 {
		r.Println(output.FormatHeader(3, "N+1 patterns"))
		r.Println("")
		rows := make([][]string, 0, len(res.Findings))
		for _, f := range res.Findings {
			rows = append(rows, []string{
				monitor.SeverityLabel(f.Severity),
				strconv.Itoa(f.Count),
				"`" + monitor.Truncate(f.Pattern, 80) + "`",
			})
		}
		r.Table([]string{"Severity", "Count", "Pattern"}, rows)
	}

	issuesMarkdown(r, "Failures", res.Failures)
	issuesMarkdown(r, "Warnings", res.Warnings)
}

func issuesMarkdown(r *output.Renderer, title string, issues []monitor.Issue) {
	if len(issues) == 0 {
		return
	}
	r.Println(output.FormatHeader(3, title))
	r.Println("")
	for _, issue := range issues {
		first, _, _ := strings.Cut(issue.Message, "\n")
		r.Printf("- %s\n", first)
	}
	r.Println("")
}

// thresholdText renders a resolved threshold with its source layer.
func thresholdText(set threshold.Set, n threshold.Name) string {
	return fmt.Sprintf("%s, %s", threshold.FormatValue(set.Get(n)), set.Source(n))
}

// responseLimitText renders the response time threshold with its unit and source.
func responseLimitText(set threshold.Set) string {
	return fmt.Sprintf("%s, %s", monitor.FormatLimitMS(set.Get(threshold.ResponseTimeMS)), set.Source(threshold.ResponseTimeMS))
}

// summaryRows are the label/value pairs shared by the text and markdown summaries.
func summaryRows(rep *summary.Report) [][2]string {
	return [][2]string{
		{"Total", strconv.Itoa(rep.Total)},
		{"Passed", fmt.Sprintf("%d (%.1f%%)", rep.Passed, rep.PassRate())},
		{"Failed", strconv.Itoa(rep.Failed)},
		{"With N+1 patterns", strconv.Itoa(rep.WithNPlusOne)},
		{"Response time exceeded", strconv.Itoa(rep.ResponseTimeExceeded)},
		{"Query count exceeded", strconv.Itoa(rep.QueryCountExceeded)},
		{"Response time (mean/median)", monitor.FormatDuration(rep.MeanResponseTime) + " / " + monitor.FormatDuration(rep.MedianResponseTime)},
		{"Query count (mean/median)", fmt.Sprintf("%.1f / %.1f", rep.MeanQueryCount, rep.MedianQueryCount)},
	}
}

func slowestRows(rep *summary.Report) [][]string {
	rows := make([][]string, 0, len(rep.Slowest))
	for _, s := range rep.Slowest {
		n1 := ""
		if s.NPlusOne {
			n1 = "yes"
		}
		rows = append(rows, []string{s.Name, monitor.FormatDuration(s.ResponseTime), strconv.Itoa(s.QueryCount), n1})
	}
	return rows
}

var slowestHeader = []string{"Capture", "Response time", "Queries", "N+1"}

func summaryText(r *output.Renderer, rep *summary.Report) {
	styles := r.Styles()
	r.Println("")
	r.Header(1, "Summary")
	for _, row := range summaryRows(rep) {
		r.Printf("  %-28s %s\n", styles.Muted.Render(row[0]+":"), row[1])
	}
	if len(rep.Slowest) > 0 {
		r.Println("")
		r.Println(styles.Header2.Render("Slowest"))
		r.Table(slowestHeader, slowestRows(rep))
	}
}

func summaryMarkdown(r *output.Renderer, rep *summary.Report) {
	r.Println(output.FormatHeader(2, "Summary"))
	r.Println("")
	for _, row := range summaryRows(rep) {
		r.Println(output.FormatKeyValue(row[0], row[1]))
	}
	r.Println("")
	if len(rep.Slowest) > 0 {
		r.Println(output.FormatHeader(3, "Slowest"))
		r.Println("")
		r.Table(slowestHeader, slowestRows(rep))
	}
}
