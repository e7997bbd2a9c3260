// Package config provides configuration management for the b2genn CLI.
//
// It layers the shared project configuration from internal/config with
// CLI-only settings (logging, output format) and loads everything through
// koanf: defaults, b2genn.yaml, B2GENN_* environment variables, then flags.
package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	sharedcfg "github.com/leapstack-labs/b2genn/internal/config"
)

// ToolchainConfig is an alias for the shared toolchain configuration.
type ToolchainConfig = sharedcfg.ToolchainConfig

// Config holds all CLI configuration options.
type Config struct {
	ProjectDir string          `koanf:"project_dir"`
	Network    string          `koanf:"network"`
	Setup      string          `koanf:"setup"`
	Compile    bool            `koanf:"compile"`
	Run        bool            `koanf:"run"`
	UseGPU     bool            `koanf:"use_gpu"`
	Duration   float64         `koanf:"duration"`
	StatePath  string          `koanf:"state_path"`
	Verbose    bool            `koanf:"verbose"`
	LogLevel   string          `koanf:"log_level"`
	Output     string          `koanf:"output"`
	Toolchain  ToolchainConfig `koanf:"toolchain"`

	// Debounce is the quiet period of watch before rebuilding, e.g. "250ms".
	Debounce time.Duration `koanf:"debounce"`

	// ProjectRoot is the directory relative paths were resolved against.
	ProjectRoot string `koanf:"-"`
}

// Default configuration values - uses shared defaults from internal/config
const (
	DefaultProjectDir = sharedcfg.DefaultProjectDir
	DefaultStateFile  = sharedcfg.DefaultStatePath
	DefaultLogLevel   = sharedcfg.DefaultLogLevel
	DefaultOutput     = "auto" // Auto-detect: TTY=text, non-TTY=markdown
	DefaultDebounce   = "100ms"
)

// Project returns the build-relevant part of the configuration.
func (c *Config) Project() sharedcfg.ProjectConfig {
	return sharedcfg.ProjectConfig{
		ProjectDir: c.ProjectDir,
		Network:    c.Network,
		Setup:      c.Setup,
		Compile:    c.Compile,
		Run:        c.Run,
		UseGPU:     c.UseGPU,
		Duration:   c.Duration,
		StatePath:  c.StatePath,
		Toolchain:  c.Toolchain,
	}
}

// Validate checks if the configuration is valid for a build.
func (c *Config) Validate() error {
	p := c.Project()
	if err := p.Validate(); err != nil {
		return err
	}
	if _, err := ParseLogLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

// ParseLogLevel parses a log level name (debug, info, warn, error).
// An empty name is info.
func ParseLogLevel(s string) (slog.Level, error) {
	if s == "" {
		return slog.LevelInfo, nil
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(s))); err != nil {
		return 0, fmt.Errorf("invalid log level %q: expected debug, info, warn or error", s)
	}
	return level, nil
}
