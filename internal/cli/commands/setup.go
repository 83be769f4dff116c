package commands

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/leapstack-labs/mercury/internal/cli/config"
	"github.com/leapstack-labs/mercury/internal/cli/output"
	intconfig "github.com/leapstack-labs/mercury/internal/config"
	"github.com/leapstack-labs/mercury/internal/state"
	"github.com/leapstack-labs/mercury/pkg/normalize"
	"github.com/leapstack-labs/mercury/pkg/nplusone"
	"github.com/spf13/cobra"
)

// CommandContext holds common dependencies for CLI commands.
type CommandContext struct {
	Cfg      *config.Config
	Logger   *slog.Logger
	Renderer *output.Renderer
}

// NewCommandContext creates a CommandContext with config, logger and renderer.
func NewCommandContext(cmd *cobra.Command) *CommandContext {
	cfg := getConfig()
	logger := config.GetLogger(cmd.Context())
	mode := output.Mode(cfg.OutputFormat)
	r := output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), mode)

	return &CommandContext{
		Cfg:      cfg,
		Logger:   logger,
		Renderer: r,
	}
}

// DetectOptions builds N+1 detection options from the configuration.
func (c *CommandContext) DetectOptions() nplusone.Options {
	return nplusone.Options{
		Normalizer: normalize.New(c.Cfg.Normalize),
		SampleSize: c.Cfg.SampleSize,
	}
}

// OpenHistory opens and migrates the history store, creating its directory.
// The caller closes the store.
func (c *CommandContext) OpenHistory() (*state.SQLiteStore, error) {
	path := c.Cfg.HistoryPath
	if path != state.MemoryPath {
		if dir := filepath.Dir(path); dir != "." && dir != "" {
			if err := os.MkdirAll(dir, 0750); err != nil {
				return nil, fmt.Errorf("failed to create history directory: %w", err)
			}
		}
	}

	store := state.NewSQLiteStore(c.Logger)
	if err := store.Open(path); err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}
	if err := store.Migrate(); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to migrate history database: %w", err)
	}
	return store, nil
}

// Helper functions shared across commands

// getConfig returns the current configuration.
// It uses config.GetCurrentConfig() if available, otherwise falls back to defaults.
func getConfig() *config.Config {
	if cfg := config.GetCurrentConfig(); cfg != nil {
		return cfg
	}

	return &config.Config{
		ProjectConfig: intconfig.ProjectConfig{
			HistoryPath: intconfig.DefaultHistoryPath,
			MinSeverity: intconfig.DefaultMinSeverity,
			SampleSize:  intconfig.DefaultSampleSize,
		},
		OutputFormat: config.DefaultOutput,
	}
}
