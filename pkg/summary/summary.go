// Package summary aggregates the results of many monitored blocks into one
// end-of-run report.
package summary

import (
	"slices"
	"sync"
	"time"

	"github.com/leapstack-labs/mercury/pkg/monitor"
)

// SlowestLimit is how many entries Report.Slowest holds.
const SlowestLimit = 5

// Tracker collects results. The zero value is ready to use and safe for
// concurrent use.
type Tracker struct {
	mu      sync.Mutex
	entries []entry
}

type entry struct {
	name   string
	result *monitor.Result
}

// Add records a result under name. An empty name falls back to the result's
// own name. nil results are ignored.
func (t *Tracker) Add(name string, res *monitor.Result) {
	if res == nil {
		return
	}
	if name == "" {
		name = res.Name
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries = append(t.entries, entry{name: name, result: res})
}

// Len returns the number of recorded results.
func (t *Tracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}

// Report is the aggregate over all recorded results.
type Report struct {
	Total  int `json:"total"`
	Passed int `json:"passed"`
	Failed int `json:"failed"`

	Slowest []Slow `json:"slowest"`

	WithNPlusOne         int `json:"with_n_plus_one"`
	ResponseTimeExceeded int `json:"response_time_exceeded"`
	QueryCountExceeded   int `json:"query_count_exceeded"`

	MeanResponseTime   time.Duration `json:"mean_response_time"`
	MedianResponseTime time.Duration `json:"median_response_time"`
	MeanQueryCount     float64       `json:"mean_query_count"`
	MedianQueryCount   float64       `json:"median_query_count"`
}

// Slow is one entry of the slowest list.
type Slow struct {
	Name         string        `json:"name"`
	ResponseTime time.Duration `json:"response_time"`
	QueryCount   int           `json:"query_count"`
	NPlusOne     bool          `json:"n_plus_one"`
}

// PassRate is the share of passed results in percent, 0 when empty.
func (r Report) PassRate() float64 {
	if r.Total == 0 {
		return 0
	}
	return float64(r.Passed) / float64(r.Total) * 100
}

// HasIssues reports whether any issue counter is non-zero.
func (r Report) HasIssues() bool {
	return r.WithNPlusOne > 0 || r.ResponseTimeExceeded > 0 || r.QueryCountExceeded > 0
}

// Report computes the aggregate. An empty tracker yields a zero Report.
func (t *Tracker) Report() Report {
	t.mu.Lock()
	entries := slices.Clone(t.entries)
	t.mu.Unlock()

	var r Report
	if len(entries) == 0 {
		return r
	}

	r.Total = len(entries)
	times := make([]float64, 0, len(entries))
	counts := make([]float64, 0, len(entries))

	for _, e := range entries {
		res := e.result
		if res.Passed() {
			r.Passed++
		}
		if res.HasNPlusOne() {
			r.WithNPlusOne++
		}
		if res.ExceededResponseTime() {
			r.ResponseTimeExceeded++
		}
		if res.ExceededQueryCount() {
			r.QueryCountExceeded++
		}
		times = append(times, float64(res.ResponseTime))
		counts = append(counts, float64(res.QueryCount))
	}
	r.Failed = r.Total - r.Passed

	byTime := slices.Clone(entries)
	slices.SortStableFunc(byTime, func(a, b entry) int {
		switch {
		case a.result.ResponseTime > b.result.ResponseTime:
			return -1
		case a.result.ResponseTime < b.result.ResponseTime:
			return 1
		default:
			return 0
		}
	})
	for _, e := range byTime[:min(SlowestLimit, len(byTime))] {
		r.Slowest = append(r.Slowest, Slow{
			Name:         e.name,
			ResponseTime: e.result.ResponseTime,
			QueryCount:   e.result.QueryCount,
			NPlusOne:     e.result.HasNPlusOne(),
		})
	}

	r.MeanResponseTime = time.Duration(mean(times))
	r.MedianResponseTime = time.Duration(median(times))
	r.MeanQueryCount = mean(counts)
	r.MedianQueryCount = median(counts)
	return r
}

func mean(xs []float64) float64 {
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

func median(xs []float64) float64 {
	s := slices.Clone(xs)
	slices.Sort(s)
	mid := len(s) / 2
	if len(s)%2 == 1 {
		return s[mid]
	}
	return (s[mid-1] + s[mid]) / 2
}
