// Package config provides the shared project configuration types for b2genn.
// It is decoupled from CLI concerns so the build pipeline and tests can load a
// project configuration without cobra.
package config

import (
	"fmt"

	"github.com/leapstack-labs/b2genn/internal/device"
)

// ToolchainConfig names the external GeNN commands.
type ToolchainConfig struct {
	BuildModel string `koanf:"buildmodel"`
	Make       string `koanf:"make"`
	Runner     string `koanf:"runner"`
}

// ToDevice converts the configuration to a device toolchain.
func (t ToolchainConfig) ToDevice() device.Toolchain {
	return device.Toolchain{
		BuildModel: t.BuildModel,
		Make:       t.Make,
		Runner:     t.Runner,
	}
}

// ProjectConfig holds the settings of one generated project.
type ProjectConfig struct {
	// ProjectDir is where the GeNN project is emitted.
	ProjectDir string `koanf:"project_dir"`
	// Network is the network description file.
	Network string `koanf:"network"`
	// Setup is an optional Starlark setup script.
	Setup string `koanf:"setup"`

	Compile bool `koanf:"compile"`
	Run     bool `koanf:"run"`
	UseGPU  bool `koanf:"use_gpu"`

	// Duration overrides the run duration of the network file (seconds, 0 = unset).
	Duration float64 `koanf:"duration"`

	// StatePath is the build history database; empty disables it.
	StatePath string `koanf:"state_path"`

	Toolchain ToolchainConfig `koanf:"toolchain"`
}

// ApplyDefaults fills empty fields with their defaults.
func (c *ProjectConfig) ApplyDefaults() {
	ApplyDefaults(c)
}

// Validate checks the configuration for a build.
func (c *ProjectConfig) Validate() error {
	if c.Network == "" {
		return fmt.Errorf("network is required")
	}
	if c.Duration < 0 {
		return fmt.Errorf("duration must not be negative, got %g", c.Duration)
	}
	return nil
}
