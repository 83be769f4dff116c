package state

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/leapstack-labs/mercury/pkg/core"
	"github.com/leapstack-labs/mercury/pkg/monitor"
)

// FromResult converts an analysis result into a run and its patterns.
func FromResult(res *monitor.Result) (*core.Run, []core.RunPattern, error) {
	thresholds, err := json.Marshal(res.Thresholds)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to encode thresholds: %w", err)
	}

	run := &core.Run{
		Name:           res.Name,
		Location:       res.Location,
		ResponseTime:   res.ResponseTime,
		QueryCount:     res.QueryCount,
		Passed:         res.Passed(),
		FailureCount:   len(res.Failures),
		WarningCount:   len(res.Warnings),
		UsedDefaults:   res.UsedDefaults,
		ThresholdsJSON: string(thresholds),
	}

	patterns := make([]core.RunPattern, 0, len(res.Findings))
	for _, f := range res.Findings {
		p := core.RunPattern{Pattern: f.Pattern, Count: f.Count, Severity: f.Severity}
		if len(f.Samples) > 0 {
			p.Sample = f.Samples[0]
		}
		patterns = append(patterns, p)
	}
	return run, patterns, nil
}

// RecordResult stores an analysis result and returns the persisted run.
func (s *SQLiteStore) RecordResult(ctx context.Context, res *monitor.Result) (*core.Run, error) {
	run, patterns, err := FromResult(res)
	if err != nil {
		return nil, err
	}
	if err := s.RecordRun(ctx, run, patterns); err != nil {
		return nil, err
	}
	return run, nil
}
