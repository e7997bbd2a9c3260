package config

import "github.com/leapstack-labs/b2genn/internal/device"

// Default configuration values.
const (
	DefaultProjectDir = device.DefaultProjectDir
	DefaultStatePath  = ".b2genn/state.db"
	DefaultLogLevel   = "info"
)

// ApplyDefaults applies default values to a ProjectConfig. The boolean
// switches are left alone: their defaults come from the loader.
func ApplyDefaults(c *ProjectConfig) {
	if c == nil {
		return
	}
	if c.ProjectDir == "" {
		c.ProjectDir = DefaultProjectDir
	}
	if c.Toolchain.BuildModel == "" {
		c.Toolchain.BuildModel = device.DefaultBuildModel
	}
	if c.Toolchain.Make == "" {
		c.Toolchain.Make = device.DefaultMake
	}
	if c.Toolchain.Runner == "" {
		c.Toolchain.Runner = device.DefaultRunner
	}
}

// Defaults returns the default key/value map used as the lowest config layer.
func Defaults() map[string]any {
	return map[string]any{
		"project_dir":          DefaultProjectDir,
		"compile":              true,
		"run":                  true,
		"use_gpu":              true,
		"state_path":           DefaultStatePath,
		"verbose":              false,
		"log_level":            DefaultLogLevel,
		"toolchain.buildmodel": device.DefaultBuildModel,
		"toolchain.make":       device.DefaultMake,
		"toolchain.runner":     device.DefaultRunner,
	}
}
