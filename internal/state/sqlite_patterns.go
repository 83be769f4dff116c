package state

import (
	"context"
	"fmt"
	"time"

	"github.com/leapstack-labs/mercury/pkg/core"
)

// RunPatterns returns the patterns recorded for a run, largest first.
func (s *SQLiteStore) RunPatterns(ctx context.Context, runID string) ([]*core.RunPattern, error) {
	if s.db == nil {
		return nil, errNotOpened
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT run_id, pattern, count, severity, sample FROM run_patterns
		 WHERE run_id = ? ORDER BY count DESC, pattern`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query patterns: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var patterns []*core.RunPattern
	for rows.Next() {
		p := &core.RunPattern{}
		var severity int
		if err := rows.Scan(&p.RunID, &p.Pattern, &p.Count, &severity, &p.Sample); err != nil {
			return nil, fmt.Errorf("failed to scan pattern: %w", err)
		}
		p.Severity = core.Severity(severity)
		patterns = append(patterns, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating patterns: %w", err)
	}
	return patterns, nil
}

// TopPatterns aggregates patterns across all runs, ordered by the number of
// runs they appear in and then by total statement count.
func (s *SQLiteStore) TopPatterns(ctx context.Context, limit int) ([]*core.PatternStat, error) {
	if s.db == nil {
		return nil, errNotOpened
	}
	if limit <= 0 {
		limit = -1
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT p.pattern,
		       COUNT(DISTINCT p.run_id) AS runs,
		       SUM(p.count)             AS total,
		       MAX(p.count)             AS max_count,
		       MAX(r.recorded_at)       AS last_seen,
		       MAX(p.severity)          AS worst
		FROM run_patterns p
		JOIN runs r ON r.id = p.run_id
		GROUP BY p.pattern
		ORDER BY runs DESC, total DESC, p.pattern
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query top patterns: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var stats []*core.PatternStat
	for rows.Next() {
		st := &core.PatternStat{}
		var lastSeen int64
		var worst int
		if err := rows.Scan(&st.Pattern, &st.Runs, &st.TotalCount, &st.MaxCount, &lastSeen, &worst); err != nil {
			return nil, fmt.Errorf("failed to scan pattern stat: %w", err)
		}
		st.LastSeenAt = time.UnixMilli(lastSeen).UTC()
		st.WorstStatus = core.Severity(worst)
		stats = append(stats, st)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating pattern stats: %w", err)
	}
	return stats, nil
}
