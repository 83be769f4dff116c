package commands

import (
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/mercury/internal/cli/testutil"
	"github.com/leapstack-labs/mercury/pkg/threshold"
)

// analyzeDoc mirrors the analyze JSON document for decoding in tests.
type analyzeDoc struct {
	Results []struct {
		Name       string `json:"name"`
		Location   string `json:"location"`
		QueryCount int    `json:"query_count"`
		Passed     bool   `json:"passed"`
		Severity   string `json:"severity"`
		Patterns   []struct {
			NormalizedQuery string   `json:"normalized_query"`
			Count           int      `json:"count"`
			Severity        string   `json:"severity"`
			SampleQueries   []string `json:"sample_queries"`
		} `json:"n_plus_one_patterns"`
		Thresholds   map[string]any `json:"thresholds"`
		UsedDefaults bool           `json:"used_defaults"`
		Failures     []issueDoc     `json:"failures"`
		Warnings     []issueDoc     `json:"warnings"`
	} `json:"results"`
	Summary *struct {
		Total        int `json:"total"`
		Passed       int `json:"passed"`
		Failed       int `json:"failed"`
		WithNPlusOne int `json:"with_n_plus_one"`
	} `json:"summary"`
}

type issueDoc struct {
	Check    string `json:"check"`
	Severity string `json:"severity"`
	Message  string `json:"message"`
}

func checks(issues []issueDoc) []string {
	out := make([]string, 0, len(issues))
	for _, i := range issues {
		out = append(out, i.Check)
	}
	return out
}

func decodeAnalyze(t *testing.T, stdout string) analyzeDoc {
	t.Helper()
	var doc analyzeDoc
	require.NoError(t, json.Unmarshal([]byte(stdout), &doc), "output: %s", stdout)
	return doc
}

var (
	cleanPath    = filepath.Join("captures", testutil.CleanCapture)
	nPlusOnePath = filepath.Join("captures", testutil.NPlusOneCapture)
)

func TestAnalyze_JSONWithDefaults(t *testing.T) {
	dir := testutil.SetupTestProject(t, "")

	stdout, _, err := run(t, dir, NewAnalyzeCommand(), "analyze", "-o", "json", cleanPath, nPlusOnePath)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrThresholdsExceeded), "unexpected error: %v", err)
	assert.Contains(t, err.Error(), "1 of 2 captures failed")

	doc := decodeAnalyze(t, stdout)
	require.Len(t, doc.Results, 2)

	clean := doc.Results[0]
	assert.Equal(t, "HomePage.test_render", clean.Name)
	assert.True(t, clean.Passed)
	assert.True(t, clean.UsedDefaults)
	assert.Empty(t, clean.Patterns)
	assert.Equal(t, []string{"config"}, checks(clean.Warnings))

	n1 := doc.Results[1]
	assert.Equal(t, "UserList.test_list", n1.Name)
	assert.Equal(t, "tests/test_users.py:42", n1.Location)
	assert.False(t, n1.Passed)
	assert.Equal(t, "failure", n1.Severity)
	assert.Equal(t, testutil.NPlusOneStatements+1, n1.QueryCount)
	require.Len(t, n1.Patterns, 1)
	assert.Equal(t, testutil.NPlusOneStatements, n1.Patterns[0].Count)
	assert.Equal(t, "failure", n1.Patterns[0].Severity)
	assert.Contains(t, n1.Patterns[0].NormalizedQuery, "profiles")
	assert.Len(t, n1.Patterns[0].SampleQueries, 3)
	assert.ElementsMatch(t, []string{"query_count", "n_plus_one"}, checks(n1.Failures))

	require.NotNil(t, doc.Summary)
	assert.Equal(t, 2, doc.Summary.Total)
	assert.Equal(t, 1, doc.Summary.Passed)
	assert.Equal(t, 1, doc.Summary.Failed)
	assert.Equal(t, 1, doc.Summary.WithNPlusOne)
}

func TestAnalyze_InlineThresholds(t *testing.T) {
	dir := testutil.SetupTestProject(t, "")

	stdout, _, err := run(t, dir, NewAnalyzeCommand(), "analyze", "-o", "json",
		"--n-plus-one-threshold", "off", "--query-count", "50", nPlusOnePath)
	require.NoError(t, err)

	doc := decodeAnalyze(t, stdout)
	require.Len(t, doc.Results, 1)
	res := doc.Results[0]
	assert.True(t, res.Passed)
	assert.False(t, res.UsedDefaults)
	assert.Equal(t, "off", res.Thresholds["n_plus_one_threshold"])
	assert.Equal(t, float64(50), res.Thresholds["query_count"])
	assert.Empty(t, res.Failures)
	assert.Nil(t, doc.Summary, "single capture has no summary")
}

func TestAnalyze_SettingsThresholds(t *testing.T) {
	dir := testutil.SetupTestProject(t, `thresholds:
  n_plus_one_threshold: 20
  query_count: 50
`)

	stdout, _, err := run(t, dir, NewAnalyzeCommand(), "analyze", "-o", "json", nPlusOnePath)
	require.NoError(t, err)

	res := decodeAnalyze(t, stdout).Results[0]
	assert.True(t, res.Passed)
	assert.Equal(t, "notice", res.Severity)
	require.Len(t, res.Patterns, 1)
	assert.Equal(t, "notice", res.Patterns[0].Severity)
	assert.Equal(t, []string{"n_plus_one"}, checks(res.Warnings))
}

func TestAnalyze_MinSeverity(t *testing.T) {
	dir := testutil.SetupTestProject(t, "")

	stdout, _, err := run(t, dir, NewAnalyzeCommand(), "analyze", "-o", "json", "--min-severity", "failure", cleanPath)
	require.NoError(t, err)

	res := decodeAnalyze(t, stdout).Results[0]
	assert.Empty(t, res.Warnings, "warnings below failure are hidden")
	assert.True(t, res.UsedDefaults)
}

func TestAnalyze_Summary(t *testing.T) {
	tests := []struct {
		name        string
		args        []string
		env         string
		wantSummary bool
	}{
		{name: "shown for several captures", wantSummary: true},
		{name: "disabled by flag", args: []string{"--no-summary"}},
		{name: "disabled by environment", env: "1"},
		{name: "environment false", env: "false", wantSummary: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.env != "" {
				t.Setenv("MERCURY_NO_SUMMARY", tt.env)
			}
			dir := testutil.SetupTestProject(t, "")

			args := append([]string{"analyze", "-o", "json", "--n-plus-one-threshold", "off", "--query-count", "off"}, tt.args...)
			args = append(args, cleanPath, nPlusOnePath)
			stdout, _, err := run(t, dir, NewAnalyzeCommand(), args...)
			require.NoError(t, err)

			doc := decodeAnalyze(t, stdout)
			assert.Len(t, doc.Results, 2)
			assert.Equal(t, tt.wantSummary, doc.Summary != nil)
		})
	}
}

func TestAnalyze_Markdown(t *testing.T) {
	dir := testutil.SetupTestProject(t, "")

	stdout, _, err := run(t, dir, NewAnalyzeCommand(), "analyze", "-o", "markdown", cleanPath, nPlusOnePath)
	require.ErrorIs(t, err, ErrThresholdsExceeded)

	testutil.AssertNoANSI(t, stdout)
	testutil.AssertValidMarkdown(t, stdout)
	assert.Contains(t, stdout, "## HomePage.test_render: PASS")
	assert.Contains(t, stdout, "## UserList.test_list: FAIL")
	assert.Contains(t, stdout, "- **Location:** tests/test_users.py:42")
	assert.Contains(t, stdout, "(threshold: 100.00ms, defaults)")
	assert.Contains(t, stdout, "- **Query count:** 13 (threshold: 10, defaults)")
	assert.Contains(t, stdout, "### N+1 patterns")
	assert.Contains(t, stdout, "### Failures")
	assert.Contains(t, stdout, "## Summary")
}

func TestAnalyze_AutoIsMarkdownWhenPiped(t *testing.T) {
	dir := testutil.SetupTestProject(t, "")

	stdout, _, err := run(t, dir, NewAnalyzeCommand(), "analyze", cleanPath)
	require.NoError(t, err)
	assert.Contains(t, stdout, "## HomePage.test_render: PASS")
}

func TestAnalyze_Text(t *testing.T) {
	dir := testutil.SetupTestProject(t, "")

	stdout, _, err := run(t, dir, NewAnalyzeCommand(), "analyze", "-o", "text", nPlusOnePath)
	require.ErrorIs(t, err, ErrThresholdsExceeded)

	testutil.AssertNoANSI(t, stdout)
	assert.Contains(t, stdout, "FAIL UserList.test_list")
	assert.Contains(t, stdout, "13 queries")
}

func TestAnalyze_YAML(t *testing.T) {
	dir := testutil.SetupTestProject(t, "")

	stdout, _, err := run(t, dir, NewAnalyzeCommand(), "analyze", "-o", "yaml", cleanPath)
	require.NoError(t, err)
	assert.Contains(t, stdout, "results:")
	assert.Contains(t, stdout, "name: HomePage.test_render")
	assert.Contains(t, stdout, "passed: true")
}

func TestAnalyze_InputFormat(t *testing.T) {
	dir := testutil.SetupTestProject(t, "")
	testutil.WriteFile(t, filepath.Join(dir, "captures", "statements.txt"),
		"SELECT * FROM users;\nSELECT * FROM teams WHERE id = 1;\n")

	stdout, _, err := run(t, dir, NewAnalyzeCommand(), "analyze", "-o", "json", "--input-format", "sql",
		filepath.Join("captures", "statements.txt"))
	require.NoError(t, err)

	res := decodeAnalyze(t, stdout).Results[0]
	assert.Equal(t, 2, res.QueryCount)
}

func TestAnalyze_Errors(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{name: "missing capture", args: []string{"captures/missing.json"}, wantErr: "missing.json"},
		{name: "bad inline threshold", args: []string{"--query-count", "many", cleanPath}, wantErr: "query_count"},
		{name: "bad input format", args: []string{"--input-format", "xml", cleanPath}, wantErr: "xml"},
		{name: "bad min severity", args: []string{"--min-severity", "loud", cleanPath}, wantErr: "min_severity"},
		{name: "no arguments", args: nil, wantErr: "requires at least 1 arg"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := testutil.SetupTestProject(t, "")
			_, _, err := run(t, dir, NewAnalyzeCommand(), append([]string{"analyze", "-o", "json"}, tt.args...)...)
			require.Error(t, err)
			assert.False(t, errors.Is(err, ErrThresholdsExceeded))
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestResponseLimitText(t *testing.T) {
	tests := []struct {
		name   string
		inline threshold.Layer
		want   string
	}{
		{name: "defaults", want: "100.00ms, defaults"},
		{name: "inline seconds", inline: threshold.Layer{threshold.ResponseTimeMS: 2500}, want: "2.50s, inline"},
		{name: "disabled", inline: threshold.Layer{threshold.ResponseTimeMS: threshold.Disabled}, want: "off, inline"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			set, err := threshold.Resolve(tt.inline, nil, nil, threshold.Defaults())
			require.NoError(t, err)
			assert.Equal(t, tt.want, responseLimitText(set))
		})
	}
}

func TestVisible(t *testing.T) {
	dir := testutil.SetupTestProject(t, "")

	stdout, _, err := run(t, dir, NewAnalyzeCommand(), "analyze", "-o", "json", "--min-severity", "warning", cleanPath)
	require.NoError(t, err)

	res := decodeAnalyze(t, stdout).Results[0]
	assert.Equal(t, []string{"config"}, checks(res.Warnings), "warning-level issues stay visible")
}
