// Package engine runs the b2genn build pipeline: load a network description,
// replay it and an optional setup script onto a fresh Device, emit the GeNN
// project and record the build in the state store.
package engine

import (
	"fmt"
	"log/slog"

	"github.com/leapstack-labs/b2genn/internal/config"
	"github.com/leapstack-labs/b2genn/internal/device"
	"github.com/leapstack-labs/b2genn/internal/state"
)

// Engine orchestrates builds of one project configuration.
type Engine struct {
	logger   *slog.Logger
	cfg      config.ProjectConfig
	commands device.CommandRunner

	// store is nil when build history is disabled
	store state.Store
}

// Config holds engine configuration.
type Config struct {
	// Project is the project configuration
	Project config.ProjectConfig
	// Commands runs the GeNN toolchain (optional, uses os/exec if nil)
	Commands device.CommandRunner
	// Logger is the structured logger (optional, uses discard if nil)
	Logger *slog.Logger
}

// New creates an engine and opens the state store when a state path is set.
func New(cfg Config) (*Engine, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	project := cfg.Project
	project.ApplyDefaults()
	logger.Debug("initializing engine", "network", project.Network, "project_dir", project.ProjectDir)

	e := &Engine{
		logger:   logger,
		cfg:      project,
		commands: cfg.Commands,
	}

	if project.StatePath != "" {
		store := state.NewSQLiteStore(logger)
		if err := store.Open(project.StatePath); err != nil {
			return nil, fmt.Errorf("failed to open state store: %w", err)
		}
		if err := store.Migrate(); err != nil {
			_ = store.Close()
			return nil, fmt.Errorf("failed to initialize state schema: %w", err)
		}
		e.store = store
	}

	return e, nil
}

// Close releases the state store.
func (e *Engine) Close() error {
	e.logger.Debug("closing engine")
	if e.store != nil {
		return e.store.Close()
	}
	return nil
}

// Store returns the state store, or nil when history is disabled.
func (e *Engine) Store() state.Store {
	return e.store
}

// Config returns the effective project configuration.
func (e *Engine) Config() config.ProjectConfig {
	return e.cfg
}

// WatchedFiles returns the input files a rebuild depends on.
func (e *Engine) WatchedFiles() []string {
	files := []string{e.cfg.Network}
	if e.cfg.Setup != "" {
		files = append(files, e.cfg.Setup)
	}
	return files
}
