// Package commands implements the querytables subcommands.
package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/leapstack-labs/querytables/internal/cli/config"
	"github.com/leapstack-labs/querytables/internal/cli/output"
	sharedcfg "github.com/leapstack-labs/querytables/internal/config"
	"github.com/leapstack-labs/querytables/internal/introspect"
	"github.com/leapstack-labs/querytables/internal/state"
	"github.com/leapstack-labs/querytables/pkg/adapter"
	"github.com/spf13/cobra"
)

// CommandContext holds common dependencies for CLI commands.
type CommandContext struct {
	Cfg      *config.Config
	Logger   *slog.Logger
	Renderer *output.Renderer
}

// NewCommandContext builds the context for cmd from the loaded config.
func NewCommandContext(cmd *cobra.Command) *CommandContext {
	cfg := getConfig()
	return &CommandContext{
		Cfg:      cfg,
		Logger:   config.GetLogger(cmd.Context()),
		Renderer: output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), output.Mode(cfg.OutputFormat)),
	}
}

// getConfig returns the loaded configuration, or defaults when commands
// run without the root command (as in tests).
func getConfig() *config.Config {
	if cfg := config.GetCurrentConfig(); cfg != nil {
		return cfg
	}
	cfg := &config.Config{
		StatePath:    config.DefaultStateFile,
		OutputFormat: config.DefaultOutput,
		Target:       &config.TargetConfig{},
	}
	sharedcfg.ApplyTargetDefaults(cfg.Target)
	sharedcfg.ApplyIntrospectDefaults(&cfg.Introspect)
	return cfg
}

// openTarget connects to the configured target. Tests replace it.
var openTarget = func(ctx context.Context, target *config.TargetConfig, logger *slog.Logger) (adapter.Adapter, error) {
	if err := target.Validate(); err != nil {
		return nil, fmt.Errorf("invalid target configuration: %w", err)
	}

	cfg := target.AdapterConfig()
	a, err := adapter.NewAdapter(cfg, logger)
	if err != nil {
		return nil, err
	}
	if err := a.Connect(ctx, cfg); err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", target.Database, err)
	}
	return a, nil
}

// ConnectTarget opens the target database. Callers must Close it.
func (c *CommandContext) ConnectTarget(ctx context.Context) (adapter.Adapter, error) {
	return openTarget(ctx, c.Cfg.Target, c.Logger)
}

// NewIntrospector creates an introspector over db using the configured
// introspection settings.
func (c *CommandContext) NewIntrospector(db introspect.Querier) (*introspect.Introspector, error) {
	return introspect.New(db, c.Cfg.Introspect.IntrospectOptions(), c.Logger)
}

// OpenIndex opens and migrates the invalidation index. Callers must Close
// it.
func (c *CommandContext) OpenIndex(ctx context.Context) (*state.SQLiteStore, error) {
	path := c.Cfg.StatePath
	if path != ":memory:" {
		if dir := filepath.Dir(path); dir != "." && dir != "" {
			if err := os.MkdirAll(dir, 0o750); err != nil {
				return nil, fmt.Errorf("failed to create state directory: %w", err)
			}
		}
	}

	store := state.NewSQLiteStore(c.Logger)
	if err := store.Open(path); err != nil {
		return nil, err
	}
	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, err
	}
	return store, nil
}
