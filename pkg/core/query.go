package core

import "time"

// Query is a single captured database statement.
// Records are created by a capture source and never modified afterwards.
type Query struct {
	// SQL is the raw statement text as executed.
	SQL string `json:"sql"`
	// Index is the 0-based execution order within the monitored block.
	Index int `json:"index"`
	// Duration is the execution time, zero when the source did not report one.
	Duration time.Duration `json:"duration,omitempty"`
}

// Queries builds records from raw statements, numbering them in order.
func Queries(statements ...string) []Query {
	qs := make([]Query, len(statements))
	for i, s := range statements {
		qs[i] = Query{SQL: s, Index: i}
	}
	return qs
}

// TotalDuration sums the durations of the given records.
func TotalDuration(queries []Query) time.Duration {
	var total time.Duration
	for _, q := range queries {
		total += q.Duration
	}
	return total
}
