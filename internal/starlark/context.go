package starlark

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/leapstack-labs/b2genn/internal/device"
	"github.com/leapstack-labs/b2genn/internal/network"
	"go.starlark.net/starlark"
	"go.starlark.net/syntax"
)

// Config configures a setup script run.
type Config struct {
	Device *device.Device
	// Model is the prepared network (optional; fill, set_values and network
	// are unavailable without it).
	Model *network.Model
	// Logger receives print output (optional, uses discard if nil)
	Logger *slog.Logger
}

// RunSetup executes the setup script at path against dev and model. Script
// print output and diagnostics go to logger.
func RunSetup(ctx context.Context, path string, dev *device.Device, model *network.Model, logger *slog.Logger) error {
	return Run(ctx, path, Config{Device: dev, Model: model, Logger: logger})
}

// Run reads and executes the setup script at path.
func Run(ctx context.Context, path string, cfg Config) error {
	src, err := os.ReadFile(path) //nolint:gosec // path comes from configuration
	if err != nil {
		return fmt.Errorf("failed to read setup script: %w", err)
	}
	return Exec(ctx, path, src, cfg)
}

// Exec executes setup script source. filename is used in error messages.
func Exec(ctx context.Context, filename string, src []byte, cfg Config) error {
	if cfg.Device == nil {
		return fmt.Errorf("setup script %s: no device", filename)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	thread, stop := newThread(ctx, filename, logger)
	defer stop()

	before := cfg.Device.Queue().Len()
	_, err := starlark.ExecFile(thread, filename, src, Predeclared(cfg.Device, cfg.Model)) //nolint:staticcheck // SA1019: will migrate to ExecFileOptions later
	if err != nil {
		return newScriptError(filename, err)
	}
	logger.Debug("ran setup script", "script", filename, "actions", cfg.Device.Queue().Len()-before)
	return nil
}

// ScriptError reports a failed setup script.
type ScriptError struct {
	File    string
	Line    int
	Message string
	Err     error
}

func (e *ScriptError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("%s:%d: %s", e.File, e.Line, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.File, e.Message)
}

func (e *ScriptError) Unwrap() error {
	return e.Err
}

func newScriptError(file string, err error) *ScriptError {
	se := &ScriptError{File: file, Message: err.Error(), Err: err}

	var evalErr *starlark.EvalError
	var synErr syntax.Error
	switch {
	case errors.As(err, &evalErr):
		se.Message = evalErr.Msg
		// innermost frame with a source position; builtins have none
		for i := range evalErr.CallStack {
			if pos := evalErr.CallStack.At(i).Pos; pos.Line > 0 {
				se.Line = int(pos.Line)
				break
			}
		}
	case errors.As(err, &synErr):
		se.Message = synErr.Msg
		se.Line = int(synErr.Pos.Line)
	}
	return se
}
