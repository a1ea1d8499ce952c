// Package config loads the bridge's YAML configuration.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/Masterminds/semver/v3"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/wippyai/numbridge/engine"
	"github.com/wippyai/numbridge/errors"
)

// MinVersion is the oldest language version the engine can emulate.
const MinVersion = "0.3.0"

// Config is the top-level configuration file.
type Config struct {
	Engine  EngineConfig  `yaml:"engine"`
	Loader  LoaderConfig  `yaml:"loader"`
	Log     LogConfig     `yaml:"log"`
	Runtime RuntimeConfig `yaml:"runtime"`
}

// EngineConfig configures the reference engine.
type EngineConfig struct {
	// Version is reported by VERSION and selects the diagnostic style.
	Version string `yaml:"version"`

	// LoadPath lists the directories searched by include, using and Import.
	LoadPath []string `yaml:"load_path"`

	// Seed makes rand deterministic when non-zero.
	Seed uint64 `yaml:"seed,omitempty"`
}

// LoaderConfig configures source lookup.
type LoaderConfig struct {
	// Extension is tried for paths given without one.
	Extension string `yaml:"extension"`
}

// LogConfig configures the zap logger shared by all packages.
type LogConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

// RuntimeConfig configures the bridge.
type RuntimeConfig struct {
	// Cleanup releases references whose proxies were dropped without
	// Release.
	Cleanup bool `yaml:"cleanup"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Engine: EngineConfig{
			Version:  engine.DefaultVersion,
			LoadPath: []string{"."},
		},
		Loader: LoaderConfig{Extension: ".jl"},
		Log:    LogConfig{Level: "info"},
	}
}

// Load reads and parses a configuration file. Missing fields keep their
// defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseConfig, errors.KindInvalidInput, err,
			fmt.Sprintf("reading config %s", path))
	}
	return Parse(data, path)
}

// Parse parses configuration content. path is used only in messages.
func Parse(data []byte, path string) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errors.Wrap(errors.PhaseConfig, errors.KindInvalidInput, err,
			fmt.Sprintf("parsing %s", path))
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration for semantic errors.
func (c *Config) Validate() error {
	v, err := semver.NewVersion(c.Engine.Version)
	if err != nil {
		return errors.New(errors.PhaseConfig, errors.KindInvalidInput).
			Path("engine", "version").
			Value(c.Engine.Version).
			Cause(err).
			Detail("invalid version %q", c.Engine.Version).
			Build()
	}
	if v.LessThan(semver.MustParse(MinVersion)) {
		return errors.New(errors.PhaseConfig, errors.KindUnsupported).
			Path("engine", "version").
			Value(c.Engine.Version).
			Detail("version %s is older than %s", v, MinVersion).
			Build()
	}
	if c.Loader.Extension != "" && !strings.HasPrefix(c.Loader.Extension, ".") {
		return errors.New(errors.PhaseConfig, errors.KindInvalidInput).
			Path("loader", "extension").
			Detail("extension %q must start with a dot", c.Loader.Extension).
			Build()
	}
	if _, err := zap.ParseAtomicLevel(c.Log.Level); err != nil {
		return errors.New(errors.PhaseConfig, errors.KindInvalidInput).
			Path("log", "level").
			Cause(err).
			Detail("unknown log level %q", c.Log.Level).
			Build()
	}
	return nil
}

// BuildLogger creates the zap logger described by the log section.
func (c *Config) BuildLogger() (*zap.Logger, error) {
	level, err := zap.ParseAtomicLevel(c.Log.Level)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseConfig, errors.KindInvalidInput, err, "log level")
	}
	zc := zap.NewProductionConfig()
	if c.Log.Development {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = level
	zc.OutputPaths = []string{"stderr"}
	zc.ErrorOutputPaths = []string{"stderr"}
	return zc.Build()
}

// EngineOptions returns the engine options for this configuration.
func (c *Config) EngineOptions() []engine.Option {
	opts := []engine.Option{engine.WithVersion(c.Engine.Version)}
	if c.Engine.Seed != 0 {
		opts = append(opts, engine.WithSeed(c.Engine.Seed))
	}
	return opts
}
