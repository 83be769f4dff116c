package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/mercury/pkg/threshold"
)

func TestFindProjectRoot(t *testing.T) {
	root := t.TempDir()
	nested := filepath.Join(root, "a", "b", "c")
	require.NoError(t, os.MkdirAll(nested, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, ConfigFileNameAlt), []byte("{}\n"), 0o600))

	assert.Equal(t, root, FindProjectRoot(nested))
	assert.Equal(t, filepath.Join(root, ConfigFileNameAlt), FindConfigFile(root))
	assert.Empty(t, FindConfigFile(nested))
}

func TestFindConfigFile_PrefersYAML(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ConfigFileName), []byte("{}\n"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ConfigFileNameAlt), []byte("{}\n"), 0o600))
	assert.Equal(t, filepath.Join(dir, ConfigFileName), FindConfigFile(dir))
}

func TestUnmarshal_ProjectConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ConfigFileName)
	content := `
thresholds:
  response_time_ms: 250
  query_count: "15"
  n_plus_one_threshold: off
normalize:
  collapse_whitespace: true
history_path: data/history.db
record_history: true
min_severity: warning
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	k := koanf.New(".")
	require.NoError(t, k.Load(confmap.Provider(DefaultValues(), "."), nil))
	require.NoError(t, k.Load(file.Provider(path), yaml.Parser()))

	var cfg ProjectConfig
	require.NoError(t, Unmarshal(k, "", &cfg))

	assert.Equal(t, 250.0, cfg.Thresholds[threshold.ResponseTimeMS])
	assert.Equal(t, 15.0, cfg.Thresholds[threshold.QueryCount])
	assert.True(t, threshold.IsDisabled(cfg.Thresholds[threshold.NPlusOne]))
	assert.True(t, cfg.Normalize.CollapseWhitespace)
	assert.False(t, cfg.Normalize.ParamMarkers)
	assert.Equal(t, "data/history.db", cfg.HistoryPath)
	assert.True(t, cfg.RecordHistory)
	assert.Equal(t, "warning", cfg.MinSeverity)
	assert.Equal(t, DefaultSampleSize, cfg.SampleSize)
}

func TestUnmarshal_Defaults(t *testing.T) {
	k := koanf.New(".")
	require.NoError(t, k.Load(confmap.Provider(DefaultValues(), "."), nil))

	var cfg ProjectConfig
	require.NoError(t, Unmarshal(k, "", &cfg))
	assert.Nil(t, cfg.Thresholds)
	assert.Equal(t, DefaultHistoryPath, cfg.HistoryPath)
	assert.Equal(t, DefaultMinSeverity, cfg.MinSeverity)
}

func TestUnmarshal_InvalidThresholds(t *testing.T) {
	tests := []struct {
		name   string
		values map[string]any
		errMsg string
	}{
		{"unknown name", map[string]any{"thresholds.latency": 5}, "unknown threshold"},
		{"negative", map[string]any{"thresholds.query_count": -1}, "negative"},
		{"not a mapping", map[string]any{"thresholds": "fast"}, "expected a mapping"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			k := koanf.New(".")
			require.NoError(t, k.Load(confmap.Provider(tt.values, "."), nil))

			var cfg ProjectConfig
			err := Unmarshal(k, "", &cfg)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}
