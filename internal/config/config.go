// Package config loads the engine configuration file. Everything has a
// default; a missing file is not an error, so the zero-configuration path
// just works.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Defaults applied where the file is silent.
const (
	DefaultBootstrapModule = "Prelude"
	DefaultSourceExt       = ".hs"
)

// Config is the engine configuration.
type Config struct {
	// BootstrapModule is implicitly imported, unqualified, by every
	// file-backed module ahead of its declared imports.
	BootstrapModule string `yaml:"bootstrap_module"`

	// SourceExt is appended when translating dotted module names to file
	// paths for modules outside any project.
	SourceExt string `yaml:"source_extension"`

	// RecordAmbiguities makes the resolver record imports matching more
	// than one candidate module. Resolution results are unaffected.
	RecordAmbiguities bool `yaml:"record_ambiguities"`
}

// Default returns a Config with all defaults applied.
func Default() *Config {
	return &Config{
		BootstrapModule: DefaultBootstrapModule,
		SourceExt:       DefaultSourceExt,
	}
}

// Load reads a YAML config file and fills defaults for absent keys.
// An empty path returns Default().
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if cfg.BootstrapModule == "" {
		cfg.BootstrapModule = DefaultBootstrapModule
	}
	if cfg.SourceExt == "" {
		cfg.SourceExt = DefaultSourceExt
	}
	return cfg, nil
}
