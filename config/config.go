// Package config handles pexkit.toml tool configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/BurntSushi/toml"

	"github.com/chazu/pexkit/disasm"
)

// FileName is the configuration file FindAndLoad looks for.
const FileName = "pexkit.toml"

// Config represents a pexkit.toml file.
type Config struct {
	Disassembly Disassembly       `toml:"disassembly"`
	Decode      Decode            `toml:"decode"`
	Catalog     Catalog           `toml:"catalog"`
	Rename      map[string]string `toml:"rename"`

	// Path is the file the configuration was read from, empty for defaults.
	Path string `toml:"-"`
}

// Disassembly configures listing output.
type Disassembly struct {
	Level string `toml:"level"`
}

// Decode configures batch decoding.
type Decode struct {
	Workers int `toml:"workers"`
}

// Catalog configures the script catalog.
type Catalog struct {
	Path string `toml:"path"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	c := &Config{}
	c.fill()
	return c
}

// Load parses the TOML file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	var c Config
	if err := toml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}
	if _, err := disasm.ParseLevel(c.Disassembly.Level); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if c.Decode.Workers < 0 {
		return nil, fmt.Errorf("%s: decode workers must not be negative", path)
	}

	c.Path = path
	c.fill()
	return &c, nil
}

// FindAndLoad walks up from startDir to find a pexkit.toml file and loads
// it. Without one it returns Default().
func FindAndLoad(startDir string) (*Config, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, err
	}

	for {
		path := filepath.Join(dir, FileName)
		if _, err := os.Stat(path); err == nil {
			return Load(path)
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return Default(), nil
		}
		dir = parent
	}
}

func (c *Config) fill() {
	if c.Disassembly.Level == "" {
		c.Disassembly.Level = disasm.Structured.String()
	}
	if c.Decode.Workers == 0 {
		c.Decode.Workers = runtime.NumCPU()
	}
	if c.Rename == nil {
		c.Rename = map[string]string{}
	}
}

// Level returns the configured disassembly level.
func (c *Config) Level() disasm.Level {
	l, err := disasm.ParseLevel(c.Disassembly.Level)
	if err != nil {
		return disasm.Structured
	}
	return l
}

// CatalogPath returns the catalog path, resolved against the directory of
// the configuration file when relative.
func (c *Config) CatalogPath() string {
	p := c.Catalog.Path
	if p == "" || filepath.IsAbs(p) || c.Path == "" {
		return p
	}
	return filepath.Join(filepath.Dir(c.Path), p)
}
