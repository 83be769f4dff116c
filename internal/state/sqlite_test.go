package state

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/mercury/internal/testutil"
	"github.com/leapstack-labs/mercury/pkg/core"
	"github.com/leapstack-labs/mercury/pkg/monitor"
	"github.com/leapstack-labs/mercury/pkg/threshold"
)

func setupTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store := NewSQLiteStore(testutil.NewTestLogger(t))
	require.NoError(t, store.Open(MemoryPath))
	require.NoError(t, store.Migrate())
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestSQLiteStore_OpenClose(t *testing.T) {
	store := NewSQLiteStore(nil)
	require.NoError(t, store.Open(MemoryPath))
	assert.Equal(t, MemoryPath, store.Path())
	require.NoError(t, store.Close())

	// closing an unopened store is a no-op
	assert.NoError(t, NewSQLiteStore(nil).Close())
}

func TestSQLiteStore_NotOpened(t *testing.T) {
	ctx := context.Background()
	store := NewSQLiteStore(nil)

	assert.ErrorIs(t, store.Migrate(), errNotOpened)
	assert.ErrorIs(t, store.RecordRun(ctx, &core.Run{}, nil), errNotOpened)
	_, err := store.GetRun(ctx, "x")
	assert.ErrorIs(t, err, errNotOpened)
	_, err = store.ListRuns(ctx, 1)
	assert.ErrorIs(t, err, errNotOpened)
	_, err = store.RunPatterns(ctx, "x")
	assert.ErrorIs(t, err, errNotOpened)
	_, err = store.TopPatterns(ctx, 1)
	assert.ErrorIs(t, err, errNotOpened)
}

func TestSQLiteStore_Migrate(t *testing.T) {
	store := setupTestStore(t)

	version, err := store.MigrationVersion()
	require.NoError(t, err)
	assert.Equal(t, int64(1), version)

	// running again is a no-op
	require.NoError(t, store.Migrate())

	for _, table := range []string{"runs", "run_patterns"} {
		rows, err := store.db.Query("SELECT 1 FROM " + table + " LIMIT 1")
		require.NoError(t, err, "table %s", table)
		_ = rows.Close()
	}
}

func TestSQLiteStore_FileDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	ctx := context.Background()

	store := NewSQLiteStore(nil)
	require.NoError(t, store.Open(path))
	require.NoError(t, store.Migrate())
	require.NoError(t, store.RecordRun(ctx, &core.Run{Name: "persisted"}, nil))
	require.NoError(t, store.Close())

	reopened := NewSQLiteStore(nil)
	require.NoError(t, reopened.Open(path))
	defer func() { _ = reopened.Close() }()

	runs, err := reopened.ListRuns(ctx, 0)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "persisted", runs[0].Name)
}

func TestSQLiteStore_RecordAndGetRun(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	recorded := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	run := &core.Run{
		Name:         "UserList",
		Location:     "captures/users.json",
		RecordedAt:   recorded,
		ResponseTime: 87500 * time.Microsecond,
		QueryCount:   14,
		Passed:       false,
		FailureCount: 2,
		WarningCount: 1,
		UsedDefaults: true,
	}
	patterns := []core.RunPattern{
		{Pattern: "SELECT * FROM profiles WHERE user_id = ?", Count: 12, Severity: core.SeverityFailure, Sample: "SELECT * FROM profiles WHERE user_id = 1"},
		{Pattern: "SELECT * FROM teams WHERE id = ?", Count: 3, Severity: core.SeverityNone},
	}

	require.NoError(t, store.RecordRun(ctx, run, patterns))
	require.NotEmpty(t, run.ID)
	assert.Equal(t, 2, run.PatternCount)

	got, err := store.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, run.Name, got.Name)
	assert.Equal(t, run.Location, got.Location)
	assert.Equal(t, recorded, got.RecordedAt)
	assert.Equal(t, run.ResponseTime, got.ResponseTime)
	assert.Equal(t, 14, got.QueryCount)
	assert.False(t, got.Passed)
	assert.Equal(t, 2, got.FailureCount)
	assert.Equal(t, 1, got.WarningCount)
	assert.Equal(t, 2, got.PatternCount)
	assert.True(t, got.UsedDefaults)
	assert.Equal(t, "{}", got.ThresholdsJSON)

	stored, err := store.RunPatterns(ctx, run.ID)
	require.NoError(t, err)
	require.Len(t, stored, 2)
	assert.Equal(t, patterns[0].Pattern, stored[0].Pattern)
	assert.Equal(t, core.SeverityFailure, stored[0].Severity)
	assert.Equal(t, patterns[0].Sample, stored[0].Sample)
	assert.Equal(t, run.ID, stored[1].RunID)
}

func TestSQLiteStore_GetRunNotFound(t *testing.T) {
	store := setupTestStore(t)
	_, err := store.GetRun(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrRunNotFound)
}

func TestSQLiteStore_RecordRunRollsBack(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	dup := core.RunPattern{Pattern: "SELECT ?", Count: 3}
	err := store.RecordRun(ctx, &core.Run{Name: "broken"}, []core.RunPattern{dup, dup})
	require.Error(t, err)

	runs, err := store.ListRuns(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, runs)
}

func TestSQLiteStore_ListRuns(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		run := &core.Run{Name: fmt.Sprintf("run-%d", i), RecordedAt: base.Add(time.Duration(i) * time.Hour)}
		require.NoError(t, store.RecordRun(ctx, run, nil))
	}

	tests := []struct {
		name  string
		limit int
		want  []string
	}{
		{"limited", 2, []string{"run-4", "run-3"}},
		{"all", 0, []string{"run-4", "run-3", "run-2", "run-1", "run-0"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runs, err := store.ListRuns(ctx, tt.limit)
			require.NoError(t, err)
			var names []string
			for _, r := range runs {
				names = append(names, r.Name)
			}
			assert.Equal(t, tt.want, names)
		})
	}
}

func TestSQLiteStore_TopPatterns(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	record := func(i int, patterns ...core.RunPattern) {
		run := &core.Run{Name: fmt.Sprintf("run-%d", i), RecordedAt: base.Add(time.Duration(i) * time.Minute)}
		require.NoError(t, store.RecordRun(ctx, run, patterns))
	}

	users := "SELECT * FROM users WHERE id = ?"
	teams := "SELECT * FROM teams WHERE id = ?"
	record(0, core.RunPattern{Pattern: users, Count: 4, Severity: core.SeverityNone})
	record(1, core.RunPattern{Pattern: users, Count: 12, Severity: core.SeverityFailure},
		core.RunPattern{Pattern: teams, Count: 30, Severity: core.SeverityFailure})
	record(2, core.RunPattern{Pattern: users, Count: 5, Severity: core.SeverityNotice})

	stats, err := store.TopPatterns(ctx, 10)
	require.NoError(t, err)
	require.Len(t, stats, 2)

	assert.Equal(t, users, stats[0].Pattern)
	assert.Equal(t, 3, stats[0].Runs)
	assert.Equal(t, 21, stats[0].TotalCount)
	assert.Equal(t, 12, stats[0].MaxCount)
	assert.Equal(t, base.Add(2*time.Minute), stats[0].LastSeenAt)
	assert.Equal(t, core.SeverityFailure, stats[0].WorstStatus)

	assert.Equal(t, teams, stats[1].Pattern)
	assert.Equal(t, 1, stats[1].Runs)

	limited, err := store.TopPatterns(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestSQLiteStore_RecordResult(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	res := monitor.Analyze(monitor.Input{
		Name:         "checkout",
		ResponseTime: 20 * time.Millisecond,
		Queries: core.Queries(
			"SELECT * FROM carts WHERE id = 1",
			"SELECT * FROM carts WHERE id = 2",
			"SELECT * FROM carts WHERE id = 3",
		),
		Thresholds: threshold.MustResolve(threshold.Layer{threshold.NPlusOne: 3}, nil, nil, threshold.Defaults()),
	})

	run, err := store.RecordResult(ctx, res)
	require.NoError(t, err)
	assert.False(t, run.Passed)
	assert.Equal(t, 1, run.FailureCount)
	assert.JSONEq(t, `{"response_time_ms":100,"query_count":10,"n_plus_one_threshold":3}`, run.ThresholdsJSON)

	patterns, err := store.RunPatterns(ctx, run.ID)
	require.NoError(t, err)
	require.Len(t, patterns, 1)
	assert.Equal(t, "SELECT * FROM carts WHERE id = ?", patterns[0].Pattern)
	assert.Equal(t, "SELECT * FROM carts WHERE id = 1", patterns[0].Sample)
	assert.Equal(t, core.SeverityFailure, patterns[0].Severity)
}

func TestSQLiteStore_FindRun(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	for _, id := range []string{"abc12345-0001", "abc12345-0002", "def67890-0001"} {
		require.NoError(t, store.RecordRun(ctx, &core.Run{ID: id, Name: id}, nil))
	}

	tests := []struct {
		name    string
		ref     string
		wantID  string
		wantErr error
	}{
		{name: "exact id", ref: "abc12345-0002", wantID: "abc12345-0002"},
		{name: "unique prefix", ref: "def", wantID: "def67890-0001"},
		{name: "ambiguous prefix", ref: "abc12345", wantErr: ErrAmbiguousRun},
		{name: "no match", ref: "zzz", wantErr: ErrRunNotFound},
		{name: "empty", ref: "", wantErr: ErrRunNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			run, err := store.FindRun(ctx, tt.ref)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantID, run.ID)
		})
	}
}

func TestSQLiteStore_LogsRecordedRuns(t *testing.T) {
	logger, rec := testutil.NewRecordingLogger()
	store := NewSQLiteStore(logger)
	require.NoError(t, store.Open(MemoryPath))
	require.NoError(t, store.Migrate())
	t.Cleanup(func() { _ = store.Close() })

	run := &core.Run{Name: "logged"}
	require.NoError(t, store.RecordRun(context.Background(), run, nil))

	assert.Contains(t, rec.Messages(), "recording run")
	id, ok := rec.Attr("recording run", "id")
	require.True(t, ok)
	assert.Equal(t, run.ID, id.String())
}
