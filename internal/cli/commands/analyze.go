package commands

import (
	"context"
	"errors"
	"fmt"

	"github.com/leapstack-labs/mercury/internal/capture"
	"github.com/leapstack-labs/mercury/pkg/monitor"
	"github.com/leapstack-labs/mercury/pkg/summary"
	"github.com/leapstack-labs/mercury/pkg/threshold"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

// ErrThresholdsExceeded is returned by analyze when at least one capture fails.
var ErrThresholdsExceeded = errors.New("performance thresholds exceeded")

// AnalyzeOptions holds options for the analyze command.
type AnalyzeOptions struct {
	InputFormat string
	Watch       bool
	Jobs        int
}

// NewAnalyzeCommand creates the analyze command.
func NewAnalyzeCommand() *cobra.Command {
	opts := &AnalyzeOptions{}

	cmd := &cobra.Command{
		Use:   "analyze <capture>...",
		Short: "Check captured queries for N+1 patterns and threshold violations",
		Long: `Analyze one or more capture files. Each capture is a list of executed SQL
statements with their durations, as JSON, JSON lines, YAML, a .sql script or
an application log with [sql]: lines.

For every capture mercury resolves its thresholds, groups the statements by
normalized pattern and reports response time, query count and N+1 checks.
When more than one capture is analyzed a summary follows the reports.

The command exits non-zero when any capture exceeds a threshold.`,
		Example: `  # Analyze a capture written by a test run
  mercury analyze captures/users_list.json

  # Tighten the N+1 threshold for this run only
  mercury analyze --n-plus-one-threshold 5 captures/*.json

  # Record the results and keep re-analyzing on change
  mercury analyze --record --watch captures/orders.sql

  # Only show warnings and failures, as JSON
  mercury analyze --min-severity warning -o json captures/*.jsonl`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAnalyze(cmd, args, opts)
		},
	}

	addThresholdFlags(cmd)
	cmd.Flags().StringVar(&opts.InputFormat, "input-format", "", "Capture format (json|jsonl|yaml|sql|log); detected from the extension by default")
	cmd.Flags().BoolVarP(&opts.Watch, "watch", "w", false, "Re-analyze captures when they change")
	cmd.Flags().IntVarP(&opts.Jobs, "jobs", "j", 4, "Number of captures analyzed concurrently")
	cmd.Flags().Bool("record", false, "Record results in the history database")
	cmd.Flags().String("min-severity", "", "Lowest pattern severity to display (notice|warning|failure)")
	cmd.Flags().Int("samples", 0, "Sample statements kept per pattern")
	cmd.Flags().Bool("collapse-whitespace", false, "Fold whitespace when normalizing")
	cmd.Flags().Bool("param-markers", false, "Treat driver parameter markers as placeholders")
	cmd.Flags().Bool("no-summary", false, "Do not print the multi-capture summary")

	_ = cmd.RegisterFlagCompletionFunc("input-format", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{"json", "jsonl", "yaml", "sql", "log"}, cobra.ShellCompDirectiveNoFileComp
	})
	_ = cmd.RegisterFlagCompletionFunc("min-severity", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{"notice", "warning", "failure"}, cobra.ShellCompDirectiveNoFileComp
	})

	return cmd
}

func runAnalyze(cmd *cobra.Command, paths []string, opts *AnalyzeOptions) error {
	cmdCtx := NewCommandContext(cmd)

	inline, err := inlineLayer(cmd.Flags())
	if err != nil {
		return err
	}

	var format capture.Format
	if opts.InputFormat != "" {
		if format, err = capture.ParseFormat(opts.InputFormat); err != nil {
			return err
		}
	}

	a := &analyzer{cmdCtx: cmdCtx, inline: inline, format: format}
	ctx := cmd.Context()

	results, err := a.analyzeAll(ctx, paths, opts.Jobs)
	if err != nil {
		return err
	}
	if err := a.render(results); err != nil {
		return err
	}
	if err := a.record(ctx, results); err != nil {
		return err
	}

	if opts.Watch {
		return a.watch(ctx, paths)
	}

	var failed int
	for _, res := range results {
		if !res.Passed() {
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%w: %d of %d captures failed", ErrThresholdsExceeded, failed, len(results))
	}
	return nil
}

// analyzer turns capture files into rendered results.
type analyzer struct {
	cmdCtx *CommandContext
	inline threshold.Layer
	format capture.Format
}

// analyzeFile loads one capture, resolves its thresholds and analyzes it.
func (a *analyzer) analyzeFile(path string) (*monitor.Result, error) {
	var (
		f   *capture.File
		err error
	)
	if a.format != "" {
		f, err = capture.LoadAs(path, a.format)
	} else {
		f, err = capture.Load(path)
	}
	if err != nil {
		return nil, err
	}

	set, err := threshold.Resolve(a.inline, f.Thresholds, a.cmdCtx.Cfg.Thresholds, threshold.Defaults())
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	res := monitor.Analyze(monitor.Input{
		Name:         f.Name,
		Location:     f.Location,
		ResponseTime: f.Elapsed(),
		Queries:      f.Queries,
		Thresholds:   set,
		Detect:       a.cmdCtx.DetectOptions(),
	})

	a.cmdCtx.Logger.Debug("analyzed capture",
		"path", path,
		"format", f.Format,
		"queries", res.QueryCount,
		"patterns", len(res.Findings),
		"passed", res.Passed(),
	)
	return res, nil
}

// analyzeAll analyzes paths concurrently, keeping argument order.
func (a *analyzer) analyzeAll(ctx context.Context, paths []string, jobs int) ([]*monitor.Result, error) {
	if jobs < 1 {
		jobs = 1
	}

	results := make([]*monitor.Result, len(paths))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(jobs)

	for i, path := range paths {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			res, err := a.analyzeFile(path)
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// summarize builds the multi-capture summary, nil when it is not shown.
func (a *analyzer) summarize(results []*monitor.Result) *summary.Report {
	if len(results) < 2 || a.cmdCtx.Cfg.NoSummary {
		return nil
	}
	var tracker summary.Tracker
	for _, res := range results {
		tracker.Add(res.Name, res)
	}
	rep := tracker.Report()
	return &rep
}

// record stores results in the history database when recording is enabled.
func (a *analyzer) record(ctx context.Context, results []*monitor.Result) error {
	if !a.cmdCtx.Cfg.RecordHistory {
		return nil
	}

	store, err := a.cmdCtx.OpenHistory()
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	for _, res := range results {
		run, err := store.RecordResult(ctx, res)
		if err != nil {
			return fmt.Errorf("failed to record %s: %w", res.Name, err)
		}
		a.cmdCtx.Logger.Debug("recorded run", "id", run.ID, "name", run.Name)
	}

	if !a.cmdCtx.Renderer.EffectiveMode().Structured() {
		a.cmdCtx.Renderer.Muted(fmt.Sprintf("Recorded %d run(s) to %s", len(results), store.Path()))
	}
	return nil
}
