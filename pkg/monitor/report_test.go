package monitor

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/mercury/pkg/core"
	"github.com/leapstack-labs/mercury/pkg/threshold"
)

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want string
	}{
		{500 * time.Microsecond, "500.00µs"},
		{0, "0.00µs"},
		{time.Millisecond, "1.00ms"},
		{123450 * time.Microsecond, "123.45ms"},
		{2500 * time.Millisecond, "2.50s"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatDuration(tt.in))
	}
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "SELECT 1", Truncate("SELECT 1", 20))
	assert.Equal(t, "SELECT 1", Truncate("SELECT 1", 8))
	assert.Equal(t, "SELECT * F...", Truncate("SELECT * FROM users", 13))
	assert.Len(t, Truncate(strings.Repeat("x", 200), 70), 70)
	assert.Equal(t, "ab", Truncate("abcdef", 2))
	assert.Equal(t, "", Truncate("abcdef", 0))
	assert.Equal(t, "", Truncate("abcdef", -5))
	assert.Equal(t, "", Truncate("", -1))
}

func TestFormatLimitMS(t *testing.T) {
	assert.Equal(t, "100.00ms", FormatLimitMS(100))
	assert.Equal(t, "1.50s", FormatLimitMS(1500))
	assert.Equal(t, "off", FormatLimitMS(threshold.Disabled))
}

func TestResult_Explain(t *testing.T) {
	res := Analyze(Input{
		Name:         "UserList",
		Location:     "captures/users.json:1",
		ResponseTime: 42 * time.Millisecond,
		Queries:      core.Queries(userLookups(12)...),
		Thresholds:   configured(nil),
	})

	var buf bytes.Buffer
	require.NoError(t, res.Explain(&buf))
	out := buf.String()

	assert.Contains(t, out, "MERCURY PERFORMANCE REPORT")
	assert.Contains(t, out, "Block: UserList")
	assert.Contains(t, out, "Location: captures/users.json:1")
	assert.Contains(t, out, "Response time: 42.00ms (threshold: 100.00ms)")
	assert.Contains(t, out, "Query count:   12 (threshold: 10)")
	assert.Contains(t, out, "N+1 PATTERNS DETECTED:")
	assert.Contains(t, out, "FAIL [12x] SELECT * FROM users WHERE id = ?")
	assert.Contains(t, out, "FAILURES:")
	assert.NotContains(t, out, "WARNINGS:")
	assert.NotContains(t, out, "Using default thresholds")
}

func TestResult_ExplainClean(t *testing.T) {
	res := Analyze(Input{
		Queries:    core.Queries("SELECT 1"),
		Thresholds: threshold.MustResolve(threshold.Layer{threshold.ResponseTimeMS: threshold.Disabled}, nil, nil, threshold.Defaults()),
	})

	out := res.Report()
	assert.Contains(t, out, "No N+1 patterns detected")
	assert.Contains(t, out, "(threshold: off)")
	assert.NotContains(t, out, "Block:")
	assert.NotContains(t, out, "FAILURES:")
}

func TestResult_ExplainDefaults(t *testing.T) {
	res := Analyze(Input{})
	out := res.Report()
	assert.Contains(t, out, "WARNINGS:")
	assert.Contains(t, out, "Using default thresholds (no config found)")
}

func TestResult_String(t *testing.T) {
	res := &Result{ResponseTime: 123450 * time.Microsecond, QueryCount: 10, Failures: []Issue{{Message: "x"}}}
	s := res.String()
	assert.Contains(t, s, "123.45ms")
	assert.Contains(t, s, "queries=10")
	assert.Contains(t, s, "failures=1")
}

func TestResult_Export(t *testing.T) {
	queries := core.Queries(userLookups(3)...)
	queries[0].Duration = 2 * time.Millisecond

	res := Analyze(Input{
		Name:         "Export",
		ResponseTime: 5 * time.Millisecond,
		Queries:      queries,
		Thresholds:   configured(threshold.Layer{threshold.NPlusOne: 3}),
	})

	exp := res.Export()
	assert.Equal(t, 5.0, exp.ResponseTimeMS)
	assert.Equal(t, 3, exp.QueryCount)
	assert.False(t, exp.Passed)
	require.Len(t, exp.Queries, 3)
	assert.Equal(t, 2.0, exp.Queries[0].TimeMS)
	require.Len(t, exp.Patterns, 1)
	assert.Equal(t, 3, exp.Patterns[0].Count)
	assert.Len(t, exp.Patterns[0].SampleQueries, 3)

	data, err := json.Marshal(exp)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "failure", decoded["severity"])
	assert.Equal(t, 3.0, decoded["thresholds"].(map[string]any)["n_plus_one_threshold"])
	assert.NotNil(t, decoded["warnings"])
}
