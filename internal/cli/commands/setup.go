package commands

import (
	"io"
	"log/slog"

	"github.com/leapstack-labs/b2genn/internal/cli/config"
	"github.com/leapstack-labs/b2genn/internal/cli/output"
	"github.com/leapstack-labs/b2genn/internal/device"
	"github.com/leapstack-labs/b2genn/internal/engine"
	"github.com/spf13/cobra"
)

// CommandContext holds common dependencies for CLI commands.
type CommandContext struct {
	Cfg      *config.Config
	Logger   *slog.Logger
	Engine   *engine.Engine
	Renderer *output.Renderer
}

// NewCommandRunner returns the toolchain runner for a command. Tests replace
// it to avoid running GeNN.
var NewCommandRunner = func(stdout, stderr io.Writer) device.CommandRunner {
	return device.ExecRunner{Stdout: stdout, Stderr: stderr}
}

// NewCommandContext creates a CommandContext with engine and renderer.
// Returns the context and a cleanup function that must be called (typically via defer).
func NewCommandContext(cmd *cobra.Command) (*CommandContext, func(), error) {
	cmdCtx := NewCommandContextWithoutEngine(cmd)
	if err := cmdCtx.Cfg.Validate(); err != nil {
		return nil, nil, err
	}

	eng, err := engine.New(engine.Config{
		Project:  cmdCtx.Cfg.Project(),
		Commands: NewCommandRunner(cmd.ErrOrStderr(), cmd.ErrOrStderr()),
		Logger:   cmdCtx.Logger,
	})
	if err != nil {
		return nil, nil, err
	}
	cmdCtx.Engine = eng

	cleanup := func() {
		_ = eng.Close()
	}
	return cmdCtx, cleanup, nil
}

// NewCommandContextWithoutEngine creates a CommandContext without an engine.
// Useful for commands that don't build.
func NewCommandContextWithoutEngine(cmd *cobra.Command) *CommandContext {
	cfg := getConfig()
	return &CommandContext{
		Cfg:      cfg,
		Logger:   config.GetLogger(cmd.Context()),
		Renderer: output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), output.Mode(cfg.Output)),
	}
}

// getConfig returns the current configuration, or the defaults when the root
// command has not loaded one.
func getConfig() *config.Config {
	if cfg := config.GetCurrentConfig(); cfg != nil {
		return cfg
	}
	cfg, err := config.LoadConfig("", nil)
	if err != nil {
		return &config.Config{
			ProjectDir: config.DefaultProjectDir,
			StatePath:  config.DefaultStateFile,
			Compile:    true,
			Run:        true,
			UseGPU:     true,
			Output:     config.DefaultOutput,
		}
	}
	return cfg
}
