package device

import (
	"context"
	"fmt"
	"io"
	"os/exec"
	"strings"
)

// Default toolchain commands.
const (
	DefaultBuildModel = "buildmodel"
	DefaultMake       = "make"
	DefaultRunner     = "bin/linux/release/runner"
)

// Toolchain names the external commands used to compile and run a project.
type Toolchain struct {
	// BuildModel generates the GeNN code for a model definition.
	BuildModel string
	// Make compiles the generated project.
	Make string
	// Runner is the compiled simulation, relative to the project directory.
	Runner string
}

func (t Toolchain) withDefaults() Toolchain {
	if t.BuildModel == "" {
		t.BuildModel = DefaultBuildModel
	}
	if t.Make == "" {
		t.Make = DefaultMake
	}
	if t.Runner == "" {
		t.Runner = DefaultRunner
	}
	return t
}

// CommandRunner runs one external command in dir.
type CommandRunner interface {
	Run(ctx context.Context, dir, name string, args ...string) error
}

// ExecRunner runs commands with os/exec, streaming their output.
type ExecRunner struct {
	Stdout io.Writer
	Stderr io.Writer
}

// Run implements CommandRunner.
func (r ExecRunner) Run(ctx context.Context, dir, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec // toolchain commands come from configuration
	cmd.Dir = dir
	cmd.Stdout = r.Stdout
	cmd.Stderr = r.Stderr
	return cmd.Run()
}

// ToolchainError reports a failed external command.
type ToolchainError struct {
	Command []string
	Err     error
}

func (e *ToolchainError) Error() string {
	return fmt.Sprintf("toolchain command %q failed: %v", strings.Join(e.Command, " "), e.Err)
}

func (e *ToolchainError) Unwrap() error {
	return e.Err
}

func (d *Device) runTool(ctx context.Context, dir, name string, args ...string) error {
	command := append([]string{name}, args...)
	d.logger.Info("running toolchain command", "command", strings.Join(command, " "), "dir", dir)
	if err := d.commands.Run(ctx, dir, name, args...); err != nil {
		return &ToolchainError{Command: command, Err: err}
	}
	return nil
}
