package commands

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/leapstack-labs/silverline/internal/artifact"
	"github.com/leapstack-labs/silverline/internal/cli/config"
	"github.com/leapstack-labs/silverline/internal/cli/output"
	intconfig "github.com/leapstack-labs/silverline/internal/config"
	"github.com/leapstack-labs/silverline/internal/engine"
	"github.com/leapstack-labs/silverline/internal/loader"
	"github.com/leapstack-labs/silverline/internal/silver"
	"github.com/spf13/cobra"
)

// CommandContext holds common dependencies for CLI commands.
type CommandContext struct {
	Cfg           *config.Config
	Logger        *slog.Logger
	Project       *intconfig.Project
	Engine        *engine.Engine
	Renderer      *output.Renderer
	ReferenceTime time.Time
}

// NewCommandContext creates a CommandContext with a ready engine.
// Returns the context and a cleanup function that must be called (typically via defer).
func NewCommandContext(cmd *cobra.Command) (*CommandContext, func(), error) {
	cfg := getConfig()
	logger := config.GetLogger(cmd.Context())

	ref, err := cfg.ParseReferenceTime(time.Now)
	if err != nil {
		return nil, nil, err
	}

	project, err := buildProject(cfg)
	if err != nil {
		return nil, nil, err
	}

	eng, err := createEngine(cmd, cfg, project, ref, logger)
	if err != nil {
		return nil, nil, err
	}

	cleanup := func() {
		if err := eng.Close(); err != nil {
			logger.Warn("failed to close engine", "error", err)
		}
	}

	return &CommandContext{
		Cfg:           cfg,
		Logger:        logger,
		Project:       project,
		Engine:        eng,
		Renderer:      newRenderer(cmd, cfg),
		ReferenceTime: ref,
	}, cleanup, nil
}

// NewCommandContextWithoutEngine creates a CommandContext without an engine.
// Useful for commands that only read run history or write files.
func NewCommandContextWithoutEngine(cmd *cobra.Command) *CommandContext {
	cfg := getConfig()
	return &CommandContext{
		Cfg:      cfg,
		Logger:   config.GetLogger(cmd.Context()),
		Renderer: newRenderer(cmd, cfg),
	}
}

// getConfig returns the current configuration, or the defaults when no
// configuration was loaded (commands run outside the root command).
func getConfig() *config.Config {
	if cfg := config.GetCurrentConfig(); cfg != nil {
		return cfg
	}
	return &config.Config{
		InputDir:          config.DefaultInputDir,
		StatePath:         config.DefaultStateFile,
		Workers:           config.DefaultWorkers,
		MaxQuarantineRate: config.DefaultMaxQuarantineRate,
		SilverFormat:      config.DefaultSilverFormat,
		Output:            artifact.Config{Type: "local", Path: config.DefaultOutputDir},
		OutputFormat:      config.DefaultOutput,
	}
}

func newRenderer(cmd *cobra.Command, cfg *config.Config) *output.Renderer {
	return output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), output.Mode(cfg.OutputFormat))
}

// buildProject compiles the source definitions of the loaded project.
func buildProject(cfg *config.Config) (*intconfig.Project, error) {
	if cfg.Definitions == nil || len(cfg.Definitions.Sources) == 0 {
		return nil, errors.New("no sources defined\nHint: run 'silverline init' to create a project")
	}
	project, err := cfg.Definitions.Build()
	if err != nil {
		return nil, fmt.Errorf("invalid project definition: %w", err)
	}
	return project, nil
}

func createEngine(cmd *cobra.Command, cfg *config.Config, project *intconfig.Project, ref time.Time, logger *slog.Logger) (*engine.Engine, error) {
	// Ensure state directory exists
	if cfg.StatePath != "" {
		stateDir := filepath.Dir(cfg.StatePath)
		if stateDir != "." && stateDir != "" {
			if err := os.MkdirAll(stateDir, 0750); err != nil {
				return nil, fmt.Errorf("failed to create state directory: %w", err)
			}
		}
	}

	store, err := artifact.Open(cmd.Context(), cfg.Output)
	if err != nil {
		return nil, fmt.Errorf("failed to open output store: %w", err)
	}

	engineCfg := engineConfig(cfg, project, ref, logger)
	engineCfg.Artifacts = store
	engineCfg.StatePath = cfg.StatePath

	return engine.New(engineCfg)
}

// engineConfig builds the engine configuration without outputs or run history.
func engineConfig(cfg *config.Config, project *intconfig.Project, ref time.Time, logger *slog.Logger) engine.Config {
	engineCfg := engine.Config{
		Sources:    project.Sources,
		CleanRules: project.CleanRules,
		Policies:   project.Policies,
		Explosions: project.Explosions,
		Loader: loader.NewFileLoader(loader.Config{
			BaseDir:  cfg.InputDir,
			Sources:  project.Inputs,
			LoadedAt: ref,
		}),
		SilverFormat:      silver.Format(strings.ToLower(cfg.SilverFormat)),
		Workers:           cfg.Workers,
		ChunkSize:         cfg.ChunkSize,
		MaxQuarantineRate: cfg.MaxQuarantineRate,
		Logger:            logger,
	}
	if cfg.Warehouse != nil {
		engineCfg.Warehouse = cfg.Warehouse.AdapterConfig()
	}
	return engineCfg
}
