package state

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/leapstack-labs/mercury/pkg/core"
)

const runColumns = `id, name, location, recorded_at, response_time_ns, query_count, passed,
	failure_count, warning_count, pattern_count, used_defaults, thresholds`

// RecordRun stores a run and its patterns in one transaction. An empty ID is
// generated and a zero RecordedAt is set to now; both are written back to run.
func (s *SQLiteStore) RecordRun(ctx context.Context, run *core.Run, patterns []core.RunPattern) error {
	if s.db == nil {
		return errNotOpened
	}

	if run.ID == "" {
		run.ID = generateID()
	}
	if run.RecordedAt.IsZero() {
		run.RecordedAt = time.Now().UTC()
	}
	if run.ThresholdsJSON == "" {
		run.ThresholdsJSON = "{}"
	}
	run.PatternCount = len(patterns)

	s.logger.Debug("recording run",
		slog.String("id", run.ID),
		slog.String("name", run.Name),
		slog.Int("patterns", len(patterns)))

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO runs (`+runColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Name, run.Location, run.RecordedAt.UnixMilli(), int64(run.ResponseTime),
		run.QueryCount, run.Passed, run.FailureCount, run.WarningCount, run.PatternCount,
		run.UsedDefaults, run.ThresholdsJSON,
	)
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}

	for _, p := range patterns {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO run_patterns (run_id, pattern, count, severity, sample) VALUES (?, ?, ?, ?, ?)`,
			run.ID, p.Pattern, p.Count, int(p.Severity), p.Sample,
		)
		if err != nil {
			return fmt.Errorf("failed to insert pattern: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit run: %w", err)
	}
	return nil
}

// GetRun retrieves a run by ID.
func (s *SQLiteStore) GetRun(ctx context.Context, id string) (*core.Run, error) {
	if s.db == nil {
		return nil, errNotOpened
	}

	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	return run, nil
}

// FindRun resolves a run by its full ID or a unique ID prefix.
func (s *SQLiteStore) FindRun(ctx context.Context, ref string) (*core.Run, error) {
	run, err := s.GetRun(ctx, ref)
	if err == nil || !errors.Is(err, ErrRunNotFound) || ref == "" {
		return run, err
	}

	rows, err := s.db.QueryContext(ctx, `SELECT id FROM runs WHERE substr(id, 1, ?) = ? LIMIT 2`, len(ref), ref)
	if err != nil {
		return nil, fmt.Errorf("failed to find run: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan run id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating run ids: %w", err)
	}

	switch len(ids) {
	case 0:
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, ref)
	case 1:
		return s.GetRun(ctx, ids[0])
	default:
		return nil, fmt.Errorf("%w: %s", ErrAmbiguousRun, ref)
	}
}

// ListRuns retrieves the most recent runs, newest first. A limit of zero or
// less returns every run.
func (s *SQLiteStore) ListRuns(ctx context.Context, limit int) ([]*core.Run, error) {
	if s.db == nil {
		return nil, errNotOpened
	}
	if limit <= 0 {
		limit = -1
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+runColumns+` FROM runs ORDER BY recorded_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var runs []*core.Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating runs: %w", err)
	}
	return runs, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (*core.Run, error) {
	run := &core.Run{}
	var recordedAt, responseTime int64

	err := row.Scan(
		&run.ID, &run.Name, &run.Location, &recordedAt, &responseTime, &run.QueryCount, &run.Passed,
		&run.FailureCount, &run.WarningCount, &run.PatternCount, &run.UsedDefaults, &run.ThresholdsJSON,
	)
	if err != nil {
		return nil, err
	}

	run.RecordedAt = time.UnixMilli(recordedAt).UTC()
	run.ResponseTime = time.Duration(responseTime)
	return run, nil
}
