package commands

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/leapstack-labs/mercury/internal/cli/output"
	"github.com/leapstack-labs/mercury/internal/state"
	"github.com/leapstack-labs/mercury/pkg/core"
	"github.com/leapstack-labs/mercury/pkg/monitor"
	"github.com/spf13/cobra"
)

// RunOutput is one recorded run in JSON/YAML output.
type RunOutput struct {
	ID             string          `json:"id" yaml:"id"`
	Name           string          `json:"name" yaml:"name"`
	Location       string          `json:"location,omitempty" yaml:"location,omitempty"`
	RecordedAt     time.Time       `json:"recorded_at" yaml:"recorded_at"`
	ResponseTimeMS float64         `json:"response_time_ms" yaml:"response_time_ms"`
	QueryCount     int             `json:"query_count" yaml:"query_count"`
	Passed         bool            `json:"passed" yaml:"passed"`
	FailureCount   int             `json:"failure_count" yaml:"failure_count"`
	WarningCount   int             `json:"warning_count" yaml:"warning_count"`
	PatternCount   int             `json:"pattern_count" yaml:"pattern_count"`
	UsedDefaults   bool            `json:"used_defaults" yaml:"used_defaults"`
	Patterns       []PatternOutput `json:"patterns,omitempty" yaml:"patterns,omitempty"`
}

// PatternOutput is one pattern of a recorded run.
type PatternOutput struct {
	Pattern  string        `json:"pattern" yaml:"pattern"`
	Count    int           `json:"count" yaml:"count"`
	Severity core.Severity `json:"severity" yaml:"severity"`
	Sample   string        `json:"sample,omitempty" yaml:"sample,omitempty"`
}

// PatternStatOutput is one pattern aggregated across runs.
type PatternStatOutput struct {
	Pattern       string        `json:"pattern" yaml:"pattern"`
	Runs          int           `json:"runs" yaml:"runs"`
	TotalCount    int           `json:"total_count" yaml:"total_count"`
	MaxCount      int           `json:"max_count" yaml:"max_count"`
	LastSeenAt    time.Time     `json:"last_seen_at" yaml:"last_seen_at"`
	WorstSeverity core.Severity `json:"worst_severity" yaml:"worst_severity"`
}

func newRunOutput(run *core.Run) RunOutput {
	return RunOutput{
		ID:             run.ID,
		Name:           run.Name,
		Location:       run.Location,
		RecordedAt:     run.RecordedAt,
		ResponseTimeMS: millis(run.ResponseTime),
		QueryCount:     run.QueryCount,
		Passed:         run.Passed,
		FailureCount:   run.FailureCount,
		WarningCount:   run.WarningCount,
		PatternCount:   run.PatternCount,
		UsedDefaults:   run.UsedDefaults,
	}
}

func newPatternOutput(p *core.RunPattern) PatternOutput {
	return PatternOutput{Pattern: p.Pattern, Count: p.Count, Severity: p.Severity, Sample: p.Sample}
}

func newPatternStatOutput(st *core.PatternStat) PatternStatOutput {
	return PatternStatOutput{
		Pattern:       st.Pattern,
		Runs:          st.Runs,
		TotalCount:    st.TotalCount,
		MaxCount:      st.MaxCount,
		LastSeenAt:    st.LastSeenAt,
		WorstSeverity: st.WorstStatus,
	}
}

// NewHistoryCommand creates the history command and its subcommands.
func NewHistoryCommand() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded analysis runs",
		Long: `List the runs recorded with analyze --record, newest first.

The history database defaults to .mercury/history.db in the project root and
can be changed with history_path in mercury.yaml or --history.`,
		Example: `  # The last 20 runs
  mercury history

  # Every run as JSON
  mercury history --limit 0 -o json

  # Patterns seen most often across runs
  mercury history patterns`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runHistoryList(cmd, limit)
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of runs (0 for all)")

	cmd.AddCommand(newHistoryShowCommand())
	cmd.AddCommand(newHistoryPatternsCommand())

	return cmd
}

func newHistoryShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show <run-id>",
		Short: "Show one recorded run with its patterns",
		Long:  `Show one recorded run. The ID may be shortened to any unique prefix.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistoryShow(cmd, args[0])
		},
	}
}

func newHistoryPatternsCommand() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "patterns",
		Short: "Show the patterns seen most often across recorded runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runHistoryPatterns(cmd, limit)
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of patterns (0 for all)")

	return cmd
}

// openExistingHistory opens the history store, returning nil when nothing
// has been recorded yet.
func openExistingHistory(cmdCtx *CommandContext) (*state.SQLiteStore, error) {
	if _, err := os.Stat(cmdCtx.Cfg.HistoryPath); errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	return cmdCtx.OpenHistory()
}

func noHistory(r *output.Renderer, path string) error {
	if r.EffectiveMode().Structured() {
		return r.Document([]any{})
	}
	r.Muted(fmt.Sprintf("No history recorded yet (%s). Run analyze with --record.", path))
	return nil
}

func runHistoryList(cmd *cobra.Command, limit int) error {
	cmdCtx := NewCommandContext(cmd)
	r := cmdCtx.Renderer

	store, err := openExistingHistory(cmdCtx)
	if err != nil {
		return err
	}
	if store == nil {
		return noHistory(r, cmdCtx.Cfg.HistoryPath)
	}
	defer func() { _ = store.Close() }()

	runs, err := store.ListRuns(cmd.Context(), limit)
	if err != nil {
		return err
	}

	if r.EffectiveMode().Structured() {
		out := make([]RunOutput, 0, len(runs))
		for _, run := range runs {
			out = append(out, newRunOutput(run))
		}
		return r.Document(out)
	}

	if len(runs) == 0 {
		return noHistory(r, cmdCtx.Cfg.HistoryPath)
	}

	r.Header(1, fmt.Sprintf("Runs (%d shown)", len(runs)))
	rows := make([][]string, 0, len(runs))
	for _, run := range runs {
		rows = append(rows, []string{
			shortID(run.ID),
			run.RecordedAt.Local().Format(time.DateTime),
			run.Name,
			passFail(run.Passed),
			monitor.FormatDuration(run.ResponseTime),
			strconv.Itoa(run.QueryCount),
			strconv.Itoa(run.PatternCount),
		})
	}
	r.Table([]string{"ID", "Recorded", "Name", "Status", "Response time", "Queries", "Patterns"}, rows)
	return nil
}

func runHistoryShow(cmd *cobra.Command, id string) error {
	cmdCtx := NewCommandContext(cmd)
	r := cmdCtx.Renderer

	store, err := openExistingHistory(cmdCtx)
	if err != nil {
		return err
	}
	if store == nil {
		return fmt.Errorf("run %s: %w", id, state.ErrRunNotFound)
	}
	defer func() { _ = store.Close() }()

	run, err := store.FindRun(cmd.Context(), id)
	if err != nil {
		return err
	}
	patterns, err := store.RunPatterns(cmd.Context(), run.ID)
	if err != nil {
		return err
	}

	out := newRunOutput(run)
	for _, p := range patterns {
		out.Patterns = append(out.Patterns, newPatternOutput(p))
	}

	if r.EffectiveMode().Structured() {
		return r.Document(out)
	}

	r.Header(1, fmt.Sprintf("%s: %s", run.Name, passFail(run.Passed)))

	for _, kv := range [][2]string{
		{"ID", run.ID},
		{"Recorded", run.RecordedAt.Local().Format(time.DateTime)},
		{"Location", run.Location},
		{"Response time", monitor.FormatDuration(run.ResponseTime)},
		{"Queries", strconv.Itoa(run.QueryCount)},
		{"Failures", strconv.Itoa(run.FailureCount)},
		{"Warnings", strconv.Itoa(run.WarningCount)},
	} {
		if kv[1] == "" {
			continue
		}
		r.Println(output.FormatKeyValue(kv[0], kv[1]))
	}
	r.Println("")

	if len(patterns) > 0 {
		rows := make([][]string, 0, len(patterns))
		for _, p := range patterns {
			rows = append(rows, []string{monitor.SeverityLabel(p.Severity), strconv.Itoa(p.Count), monitor.Truncate(p.Pattern, 80)})
		}
		r.Table([]string{"Severity", "Count", "Pattern"}, rows)
	}
	return nil
}

func runHistoryPatterns(cmd *cobra.Command, limit int) error {
	cmdCtx := NewCommandContext(cmd)
	r := cmdCtx.Renderer

	store, err := openExistingHistory(cmdCtx)
	if err != nil {
		return err
	}
	if store == nil {
		return noHistory(r, cmdCtx.Cfg.HistoryPath)
	}
	defer func() { _ = store.Close() }()

	stats, err := store.TopPatterns(cmd.Context(), limit)
	if err != nil {
		return err
	}

	if r.EffectiveMode().Structured() {
		out := make([]PatternStatOutput, 0, len(stats))
		for _, st := range stats {
			out = append(out, newPatternStatOutput(st))
		}
		return r.Document(out)
	}

	if len(stats) == 0 {
		r.Muted("No repeated patterns recorded.")
		return nil
	}

	r.Header(1, "Recurring patterns")
	rows := make([][]string, 0, len(stats))
	for _, st := range stats {
		rows = append(rows, []string{
			strconv.Itoa(st.Runs),
			strconv.Itoa(st.TotalCount),
			strconv.Itoa(st.MaxCount),
			monitor.SeverityLabel(st.WorstStatus),
			monitor.Truncate(st.Pattern, 80),
		})
	}
	r.Table([]string{"Runs", "Total", "Max", "Worst", "Pattern"}, rows)
	return nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func passFail(passed bool) string {
	if passed {
		return "PASS"
	}
	return "FAIL"
}
