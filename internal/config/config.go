// Package config loads embr.toml, the CLI's optional project configuration
// file, mirroring chazu-maggie's manifest.Load shape (a struct tagged for
// github.com/BurntSushi/toml, read from the project directory, defaulted
// when absent).
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config is embr.toml's top-level shape.
type Config struct {
	Import ImportConfig `toml:"import"`
	VM     VMConfig     `toml:"vm"`
	Log    LogConfig    `toml:"log"`

	// Dir is the directory containing embr.toml (set at load time).
	Dir string `toml:"-"`
}

// ImportConfig configures how `import "name";` resolves source files.
type ImportConfig struct {
	BaseDir string `toml:"base-dir"`
}

// VMConfig configures default VM limits.
type VMConfig struct {
	InstructionLimit int  `toml:"instruction-limit"`
	MaxFrames        int  `toml:"max-frames"`
	Trace            bool `toml:"trace"`
}

// LogConfig configures cmd/embr's logrus output.
type LogConfig struct {
	Level string `toml:"level"`
}

// Default returns the configuration used when no embr.toml is present.
func Default() *Config {
	return &Config{
		Import: ImportConfig{BaseDir: "."},
		VM:     VMConfig{InstructionLimit: 0, MaxFrames: 256},
		Log:    LogConfig{Level: "info"},
	}
}

// Load reads embr.toml from dir, falling back to Default() if the file
// does not exist.
func Load(dir string) (*Config, error) {
	path := filepath.Join(dir, "embr.toml")
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg := Default()
			cfg.Dir = dir
			return cfg, nil
		}
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	cfg := Default()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}
	cfg.Dir = dir
	return cfg, nil
}
