package commands

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/mercury/internal/cli/testutil"
)

// thresholdsDoc mirrors ThresholdsOutput for decoding.
type thresholdsDoc struct {
	Capture      string `json:"capture"`
	ConfigFile   string `json:"config_file"`
	UsedDefaults bool   `json:"used_defaults"`
	Thresholds   []struct {
		Name   string `json:"name"`
		Value  any    `json:"value"`
		Source string `json:"source"`
	} `json:"thresholds"`
}

// bySource flattens the document into name -> "value/source".
func (d thresholdsDoc) bySource() map[string]string {
	out := make(map[string]string, len(d.Thresholds))
	for _, th := range d.Thresholds {
		value := th.Value
		if f, ok := value.(float64); ok {
			value = int(f)
		}
		out[th.Name] = formatAny(value) + "/" + th.Source
	}
	return out
}

func formatAny(v any) string {
	b, _ := json.Marshal(v)
	return string(b)
}

func TestThresholds_Defaults(t *testing.T) {
	dir := t.TempDir()

	stdout, _, err := run(t, dir, NewThresholdsCommand(), "thresholds", "-o", "json")
	require.NoError(t, err)

	var doc thresholdsDoc
	require.NoError(t, json.Unmarshal([]byte(stdout), &doc))
	assert.True(t, doc.UsedDefaults)
	assert.Empty(t, doc.ConfigFile)
	assert.Equal(t, map[string]string{
		"response_time_ms":     "100/defaults",
		"query_count":          "10/defaults",
		"n_plus_one_threshold": "10/defaults",
	}, doc.bySource())
}

func TestThresholds_Layers(t *testing.T) {
	dir := testutil.SetupTestProject(t, `thresholds:
  response_time_ms: 250
  query_count: 30
`)
	testutil.WriteFile(t, filepath.Join(dir, "captures", "limited.json"), `{
  "name": "limited",
  "thresholds": {"query_count": 20, "n_plus_one_threshold": "off"},
  "queries": [{"sql": "SELECT 1", "time": 0.001}]
}`)

	stdout, _, err := run(t, dir, NewThresholdsCommand(), "thresholds", "-o", "json",
		"--response-time-ms", "50", filepath.Join("captures", "limited.json"))
	require.NoError(t, err)

	var doc thresholdsDoc
	require.NoError(t, json.Unmarshal([]byte(stdout), &doc))
	assert.False(t, doc.UsedDefaults)
	assert.Equal(t, filepath.Join("captures", "limited.json"), doc.Capture)
	assert.Equal(t, filepath.Join(dir, "mercury.yaml"), doc.ConfigFile)
	assert.Equal(t, map[string]string{
		"response_time_ms":     "50/inline",
		"query_count":          "20/file",
		"n_plus_one_threshold": `"off"/file`,
	}, doc.bySource())
}

func TestThresholds_EnvSettings(t *testing.T) {
	t.Setenv("MERCURY_THRESHOLDS_QUERY_COUNT", "15")
	dir := t.TempDir()

	stdout, _, err := run(t, dir, NewThresholdsCommand(), "thresholds", "-o", "json")
	require.NoError(t, err)

	var doc thresholdsDoc
	require.NoError(t, json.Unmarshal([]byte(stdout), &doc))
	assert.Equal(t, "15/settings", doc.bySource()["query_count"])
	assert.False(t, doc.UsedDefaults)
}

func TestThresholds_Markdown(t *testing.T) {
	dir := t.TempDir()

	stdout, _, err := run(t, dir, NewThresholdsCommand(), "thresholds", "-o", "markdown", "--n-plus-one-threshold", "off")
	require.NoError(t, err)

	testutil.AssertValidMarkdown(t, stdout)
	assert.Contains(t, stdout, "# Thresholds\n")
	assert.Regexp(t, `\| *n_plus_one_threshold *\| *off *\| *inline *\|`, stdout)
	assert.NotContains(t, stdout, "Using defaults")
}

func TestThresholds_InvalidFlag(t *testing.T) {
	dir := t.TempDir()

	_, _, err := run(t, dir, NewThresholdsCommand(), "thresholds", "--query-count=-3")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "query_count")
}
