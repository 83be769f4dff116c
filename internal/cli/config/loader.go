package config

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	intconfig "github.com/leapstack-labs/mercury/internal/config"
	"github.com/spf13/pflag"
)

// loggerKey is used to store logger in context.
// This key is shared with root.go via both using the same type.
type loggerKey struct{}

// EnvPrefix is the prefix of environment variables read by the CLI.
const EnvPrefix = "MERCURY_"

// Package-level koanf instance and config file tracking
var (
	k              = koanf.New(".")
	configFileUsed string
	currentConfig  *Config // Stores the loaded config for access by commands
)

// flagKeys maps flag names whose config key is not the snake_case of the flag.
var flagKeys = map[string]string{
	"samples":             "sample_size",
	"record":              "record_history",
	"history":             "history_path",
	"collapse-whitespace": "normalize.collapse_whitespace",
	"param-markers":       "normalize.param_markers",
}

// inlineFlags are threshold flags. They form the inline layer of threshold
// resolution and never enter the settings tree.
var inlineFlags = map[string]bool{
	"response-time-ms":     true,
	"query-count":          true,
	"n-plus-one-threshold": true,
}

// sectionPrefixes turn flattened env keys back into nested config keys.
var sectionPrefixes = []string{"thresholds", "normalize"}

// envKey transforms MERCURY_THRESHOLDS_QUERY_COUNT into thresholds.query_count.
func envKey(s string) string {
	key := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	for _, section := range sectionPrefixes {
		if rest, ok := strings.CutPrefix(key, section+"_"); ok {
			return section + "." + rest
		}
	}
	return key
}

// flagKey maps a flag to its config key. An empty key skips the flag.
func flagKey(name string) string {
	if inlineFlags[name] {
		return ""
	}
	if key, ok := flagKeys[name]; ok {
		return key
	}
	return strings.ReplaceAll(name, "-", "_")
}

// resolvePathRelativeTo resolves a path relative to baseDir if it's not absolute.
// Returns the path unchanged if it's empty or already absolute.
func resolvePathRelativeTo(path, baseDir string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(baseDir, path)
}

// projectRootFor returns the directory relative paths in the config resolve
// against: the explicit config file's directory, the directory holding the
// discovered config file, or the working directory.
func projectRootFor(cfgFile, cwd string) (root, found string) {
	if cfgFile != "" {
		if abs, err := filepath.Abs(cfgFile); err == nil {
			return filepath.Dir(abs), cfgFile
		}
		return filepath.Dir(cfgFile), cfgFile
	}
	if root := intconfig.FindProjectRoot(cwd); root != "" {
		return root, intconfig.FindConfigFile(root)
	}
	return cwd, ""
}

// ResetConfig resets the koanf instance. Used for testing.
func ResetConfig() {
	k = koanf.New(".")
	configFileUsed = ""
	currentConfig = nil
}

// LoadConfig loads configuration from file, environment variables, and flags.
// Precedence (highest to lowest): flags > env vars > config file > defaults
//
// Threshold flags are not read here; commands resolve them as the inline layer.
func LoadConfig(cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	// Reset koanf for fresh load
	k = koanf.New(".")

	cwd, err := os.Getwd()
	if err != nil {
		cwd = "."
	}
	projectRoot, found := projectRootFor(cfgFile, cwd)

	// 1. Load defaults
	defaults := intconfig.DefaultValues()
	defaults["output"] = DefaultOutput
	defaults["verbose"] = false
	defaults["no_summary"] = false
	if err := k.Load(confmap.Provider(defaults, "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// 2. Load config file
	configFileUsed = found
	if configFileUsed != "" {
		if err := k.Load(file.Provider(configFileUsed), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", configFileUsed, err)
		}
	}

	// 3. Load environment variables (MERCURY_ prefix)
	// Transform: MERCURY_THRESHOLDS_QUERY_COUNT -> thresholds.query_count
	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	// 4. Load flags (highest priority - overrides env vars and config file)
	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, interface{}) {
			// Only load flags that were explicitly set
			if !f.Changed {
				return "", nil
			}
			key := flagKey(f.Name)
			if key == "" {
				return "", nil
			}
			return key, posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	// 5. Unmarshal into Config struct
	var cfg Config
	if err := intconfig.Unmarshal(k, "", &cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	cfg.NoSummary = isTruthy(k.String("no_summary"))
	cfg.ProjectRoot = projectRoot
	cfg.ConfigFile = configFileUsed

	// A --history flag is relative to the working directory, everything else
	// to the project root.
	if flags != nil && flags.Changed("history") {
		cfg.HistoryPath = resolvePathRelativeTo(cfg.HistoryPath, cwd)
	} else {
		cfg.HistoryPath = resolvePathRelativeTo(cfg.HistoryPath, projectRoot)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	// Store config for access by commands
	currentConfig = &cfg

	return &cfg, nil
}

// GetConfigFileUsed returns the path to the config file being used, if any.
func GetConfigFileUsed() string {
	return configFileUsed
}

// GetCurrentConfig returns the currently loaded configuration.
// This is available after LoadConfig is called.
func GetCurrentConfig() *Config {
	return currentConfig
}

// LoggerKey returns the context key used for storing the logger.
// This allows the commands package to retrieve the logger from context
// without creating an import cycle with the cli package.
func LoggerKey() interface{} {
	return loggerKey{}
}

// GetLogger retrieves the logger from the command context.
func GetLogger(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok {
		return l
	}
	// Return discard logger as safe fallback
	return slog.New(slog.DiscardHandler)
}
