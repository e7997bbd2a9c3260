package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// ConfigFileName is the name of the config file.
const ConfigFileName = "b2genn.yaml"

// ConfigFileNameAlt is the alternate name of the config file.
const ConfigFileNameAlt = "b2genn.yml"

// LoadFromDir loads a ProjectConfig from the given directory.
// It looks for b2genn.yaml or b2genn.yml in the directory.
// Returns nil, nil if no config file is found (not an error condition).
// Relative paths are resolved against dir.
func LoadFromDir(dir string) (*ProjectConfig, error) {
	configPath := FindConfigFile(dir)
	if configPath == "" {
		return nil, nil
	}

	k := koanf.New(".")
	if err := k.Load(confmap.Provider(Defaults(), "."), nil); err != nil {
		return nil, err
	}
	if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("error reading config file %s: %w", configPath, err)
	}

	var cfg ProjectConfig
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, err
	}
	cfg.ApplyDefaults()
	cfg.ResolvePaths(dir)
	return &cfg, nil
}

// ResolvePaths makes the file paths of c absolute against baseDir.
func (c *ProjectConfig) ResolvePaths(baseDir string) {
	c.ProjectDir = ResolvePath(c.ProjectDir, baseDir)
	c.Network = ResolvePath(c.Network, baseDir)
	c.Setup = ResolvePath(c.Setup, baseDir)
	c.StatePath = ResolvePath(c.StatePath, baseDir)
}

// ResolvePath resolves path relative to baseDir if it is not absolute.
// Returns the path unchanged if it is empty or already absolute.
func ResolvePath(path, baseDir string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(baseDir, path)
}

// FindConfigFile returns the config file in dir, or "" if there is none.
func FindConfigFile(dir string) string {
	for _, name := range []string{ConfigFileName, ConfigFileNameAlt} {
		p := filepath.Join(dir, name)
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// FindProjectRoot walks up from the given directory to find a directory
// containing b2genn.yaml or b2genn.yml.
// Returns empty string if not found.
func FindProjectRoot(startDir string) string {
	dir := startDir
	for {
		if FindConfigFile(dir) != "" {
			return dir
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}
