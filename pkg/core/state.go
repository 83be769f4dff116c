package core

import (
	"context"
	"time"
)

// Store defines the interface for the analysis history store.
type Store interface {
	Open(path string) error
	Close() error
	Migrate() error

	// Run operations
	RecordRun(ctx context.Context, run *Run, patterns []RunPattern) error
	GetRun(ctx context.Context, id string) (*Run, error)
	ListRuns(ctx context.Context, limit int) ([]*Run, error)

	// Pattern operations
	RunPatterns(ctx context.Context, runID string) ([]*RunPattern, error)
	TopPatterns(ctx context.Context, limit int) ([]*PatternStat, error)
}

// Run is one persisted monitored block.
type Run struct {
	ID             string        `json:"id"`
	Name           string        `json:"name"`
	Location       string        `json:"location,omitempty"`
	RecordedAt     time.Time     `json:"recorded_at"`
	ResponseTime   time.Duration `json:"response_time"`
	QueryCount     int           `json:"query_count"`
	Passed         bool          `json:"passed"`
	FailureCount   int           `json:"failure_count"`
	WarningCount   int           `json:"warning_count"`
	PatternCount   int           `json:"pattern_count"`
	UsedDefaults   bool          `json:"used_defaults"`
	ThresholdsJSON string        `json:"-"`
}

// RunPattern is a repeated query pattern detected in a run.
type RunPattern struct {
	RunID    string   `json:"run_id"`
	Pattern  string   `json:"pattern"`
	Count    int      `json:"count"`
	Severity Severity `json:"severity"`
	Sample   string   `json:"sample,omitempty"`
}

// PatternStat aggregates one pattern across all recorded runs.
type PatternStat struct {
	Pattern     string    `json:"pattern"`
	Runs        int       `json:"runs"`
	TotalCount  int       `json:"total_count"`
	MaxCount    int       `json:"max_count"`
	LastSeenAt  time.Time `json:"last_seen_at"`
	WorstStatus Severity  `json:"worst_severity"`
}
