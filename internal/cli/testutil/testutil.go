// Package testutil provides test utilities for CLI testing.
package testutil

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/leapstack-labs/mercury/internal/cli/output"
	"github.com/spf13/cobra"
)

// Capture file names written by SetupTestProject.
const (
	CleanCapture    = "clean.json"
	NPlusOneCapture = "n_plus_one.json"
)

// NPlusOneStatements is how many repeated lookups NPlusOneCapture holds.
const NPlusOneStatements = 12

// SetupTestProject creates a temporary project with a mercury.yaml and two
// captures: one clean and one with a failing N+1 pattern. An empty config
// skips mercury.yaml.
func SetupTestProject(t *testing.T, config string) string {
	t.Helper()

	tmpDir := t.TempDir()
	capturesDir := filepath.Join(tmpDir, "captures")
	if err := os.MkdirAll(capturesDir, 0755); err != nil {
		t.Fatalf("failed to create directory %s: %v", capturesDir, err)
	}

	if config != "" {
		WriteFile(t, filepath.Join(tmpDir, "mercury.yaml"), config)
	}

	clean := `{
  "name": "HomePage.test_render",
  "response_time_ms": 12.5,
  "queries": [
    {"sql": "SELECT * FROM settings", "time": 0.001},
    {"sql": "SELECT * FROM users WHERE id = 7", "time": 0.002}
  ]
}`
	WriteFile(t, filepath.Join(capturesDir, CleanCapture), clean)

	var queries []string
	queries = append(queries, `    {"sql": "SELECT * FROM users LIMIT 20", "time": 0.004}`)
	for i := 1; i <= NPlusOneStatements; i++ {
		queries = append(queries, fmt.Sprintf(`    {"sql": "SELECT * FROM profiles WHERE user_id = %d", "time": 0.001}`, i))
	}
	nPlusOne := `{
  "name": "UserList.test_list",
  "location": "tests/test_users.py:42",
  "response_time_ms": 40,
  "queries": [
` + strings.Join(queries, ",\n") + `
  ]
}`
	WriteFile(t, filepath.Join(capturesDir, NPlusOneCapture), nPlusOne)

	return tmpDir
}

// WriteFile writes content to path or fails the test.
func WriteFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to create %s: %v", path, err)
	}
}

// Execute runs root with args, capturing stdout and stderr.
func Execute(t *testing.T, root *cobra.Command, args ...string) (stdout, stderr string, err error) {
	t.Helper()

	out := &bytes.Buffer{}
	errOut := &bytes.Buffer{}
	root.SetOut(out)
	root.SetErr(errOut)
	root.SetIn(strings.NewReader(""))
	root.SetArgs(args)

	err = root.Execute()
	return out.String(), errOut.String(), err
}

// TestRenderer wraps a Renderer for testing with captured output buffers.
type TestRenderer struct {
	*output.Renderer
	Out    *bytes.Buffer
	ErrOut *bytes.Buffer
}

// NewTestRenderer creates a new test renderer with the specified mode and TTY state.
// Output is captured in buffers for inspection.
func NewTestRenderer(mode output.Mode, isTTY bool) *TestRenderer {
	out := &bytes.Buffer{}
	errOut := &bytes.Buffer{}
	return &TestRenderer{
		Renderer: output.NewRendererWithTTY(out, errOut, isTTY, mode),
		Out:      out,
		ErrOut:   errOut,
	}
}

// Output returns the combined stdout output as a string.
func (tr *TestRenderer) Output() string {
	return tr.Out.String()
}

// ErrorOutput returns the stderr output as a string.
func (tr *TestRenderer) ErrorOutput() string {
	return tr.ErrOut.String()
}

// ansiPattern matches ANSI escape codes.
var ansiPattern = regexp.MustCompile(`\x1b\[[0-9;]*[a-zA-Z]`)

// AssertNoANSI checks that a string contains no ANSI escape codes.
func AssertNoANSI(t *testing.T, s string) {
	t.Helper()
	if ansiPattern.MatchString(s) {
		t.Errorf("string contains ANSI escape codes: %q", s)
	}
}

// AssertValidMarkdown performs basic markdown validation.
// It checks for unclosed code fences and basic structure.
func AssertValidMarkdown(t *testing.T, md string) {
	t.Helper()

	// Check for balanced code fences
	fenceCount := strings.Count(md, "```")
	if fenceCount%2 != 0 {
		t.Errorf("unbalanced code fences in markdown: found %d occurrences", fenceCount)
	}

	// Check that headers have content
	lines := strings.Split(md, "\n")
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "#") && strings.TrimLeft(trimmed, "# ") == "" {
			t.Errorf("empty header at line %d: %q", i+1, line)
		}
	}
}
