package monitor

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/leapstack-labs/mercury/pkg/core"
	"github.com/leapstack-labs/mercury/pkg/nplusone"
	"github.com/leapstack-labs/mercury/pkg/threshold"
)

// Options configures a monitored block.
type Options struct {
	// Name identifies the block in reports, e.g. "TestUsers.List".
	Name string
	// Location is an optional file:line pointer to the block.
	Location string
	// Thresholds are the resolved limits. A zero Set resolves to threshold.Defaults().
	Thresholds threshold.Set
	// Detect tunes N+1 detection.
	Detect nplusone.Options
	// Logger receives debug output; nil discards.
	Logger *slog.Logger
	// Clock overrides time.Now, for tests.
	Clock func() time.Time
}

// Monitor records the statements of one monitored block.
// Record is safe for concurrent use.
type Monitor struct {
	opts   Options
	logger *slog.Logger
	start  time.Time

	mu      sync.Mutex
	queries []core.Query
	result  *Result
}

// Start begins a monitored block; the timer starts immediately.
func Start(opts Options) *Monitor {
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.Thresholds.IsZero() {
		opts.Thresholds = threshold.MustResolve(nil, nil, nil, threshold.Defaults())
	}

	m := &Monitor{
		opts:   opts,
		logger: opts.Logger.With(slog.String("block", opts.Name)),
	}
	m.start = m.now()
	m.logger.Debug("monitor started")
	return m
}

func (m *Monitor) now() time.Time {
	return m.opts.Clock()
}

// Record appends a statement executed inside the block. Index is assigned in
// call order. Statements recorded after Stop are ignored.
func (m *Monitor) Record(sql string, d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.result != nil {
		m.logger.Debug("statement recorded after stop, ignoring", slog.String("sql", sql))
		return
	}
	m.queries = append(m.queries, core.Query{SQL: sql, Index: len(m.queries), Duration: d})
}

// Queries returns a copy of the statements recorded so far.
func (m *Monitor) Queries() []core.Query {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]core.Query, len(m.queries))
	copy(out, m.queries)
	return out
}

// Stop ends the block, runs detection and the threshold check. Calling Stop
// again returns the same Result.
func (m *Monitor) Stop() *Result {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.result != nil {
		return m.result
	}

	m.result = Analyze(Input{
		Name:         m.opts.Name,
		Location:     m.opts.Location,
		ResponseTime: m.now().Sub(m.start),
		Queries:      m.queries,
		Thresholds:   m.opts.Thresholds,
		Detect:       m.opts.Detect,
	})

	m.logger.Debug("monitor stopped",
		slog.Duration("elapsed", m.result.ResponseTime),
		slog.Int("queries", m.result.QueryCount),
		slog.Int("patterns", len(m.result.Findings)),
		slog.Int("failures", len(m.result.Failures)))
	return m.result
}

// Run executes fn as a monitored block. It returns fn's error when fn fails,
// otherwise a *ThresholdError when any threshold failed. The Result is
// returned in every case.
func Run(ctx context.Context, opts Options, fn func(ctx context.Context, m *Monitor) error) (*Result, error) {
	m := Start(opts)
	err := fn(ctx, m)
	res := m.Stop()
	if err != nil {
		return res, err
	}
	if !res.Passed() {
		return res, &ThresholdError{Result: res}
	}
	return res, nil
}

// Input is a captured block ready for analysis.
type Input struct {
	Name         string
	Location     string
	ResponseTime time.Duration
	Queries      []core.Query
	Thresholds   threshold.Set
	Detect       nplusone.Options
}

// Analyze builds a Result from an already captured block. It is what Stop
// uses, exported for offline captures.
func Analyze(in Input) *Result {
	set := in.Thresholds
	if set.IsZero() {
		set = threshold.MustResolve(nil, nil, nil, threshold.Defaults())
	}

	queries := make([]core.Query, len(in.Queries))
	copy(queries, in.Queries)

	res := &Result{
		Name:         in.Name,
		Location:     in.Location,
		ResponseTime: in.ResponseTime,
		QueryCount:   len(queries),
		Queries:      queries,
		Findings:     nplusone.Detect(queries, set.Get(threshold.NPlusOne), in.Detect),
		Thresholds:   set,
		UsedDefaults: set.UsedDefaults(),
	}
	Evaluate(res)
	return res
}
