package config

import (
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap/zapcore"

	"github.com/wippyai/numbridge/engine"
	"github.com/wippyai/numbridge/errors"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if cfg.Engine.Version != engine.DefaultVersion {
		t.Errorf("version = %q", cfg.Engine.Version)
	}
	if cfg.Loader.Extension != ".jl" {
		t.Errorf("extension = %q", cfg.Loader.Extension)
	}
}

func TestParse(t *testing.T) {
	yaml := `
engine:
  version: 0.3.11
  load_path: [lib, test]
  seed: 7
loader:
  extension: .jl
log:
  level: debug
  development: true
runtime:
  cleanup: true
`
	cfg, err := Parse([]byte(yaml), "bridge.yaml")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.Engine.Version != "0.3.11" || cfg.Engine.Seed != 7 {
		t.Errorf("engine = %+v", cfg.Engine)
	}
	if len(cfg.Engine.LoadPath) != 2 || cfg.Engine.LoadPath[1] != "test" {
		t.Errorf("load_path = %v", cfg.Engine.LoadPath)
	}
	if !cfg.Log.Development || cfg.Log.Level != "debug" || !cfg.Runtime.Cleanup {
		t.Errorf("config = %+v", cfg)
	}
	if got := len(cfg.EngineOptions()); got != 2 {
		t.Errorf("EngineOptions = %d options", got)
	}

	e, err := engine.New(cfg.EngineOptions()...)
	if err != nil {
		t.Fatalf("engine.New: %v", err)
	}
	if e.Version().String() != "0.3.11" {
		t.Errorf("engine version = %s", e.Version())
	}
}

func TestParsePartialKeepsDefaults(t *testing.T) {
	cfg, err := Parse([]byte("log:\n  level: warn\n"), "bridge.yaml")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.Engine.Version != engine.DefaultVersion || cfg.Loader.Extension != ".jl" {
		t.Errorf("defaults lost: %+v", cfg)
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		kind errors.Kind
	}{
		{"syntax", "engine: [", errors.KindInvalidInput},
		{"bad version", "engine:\n  version: banana\n", errors.KindInvalidInput},
		{"old version", "engine:\n  version: 0.2.0\n", errors.KindUnsupported},
		{"extension", "loader:\n  extension: jl\n", errors.KindInvalidInput},
		{"level", "log:\n  level: loud\n", errors.KindInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml), "bridge.yaml")
			if !errors.HasKind(err, tt.kind) {
				t.Errorf("Parse = %v, want kind %s", err, tt.kind)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bridge.yaml")
	if err := os.WriteFile(path, []byte("engine:\n  version: 0.4.2\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Engine.Version != "0.4.2" {
		t.Errorf("version = %q", cfg.Engine.Version)
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); !errors.HasKind(err, errors.KindInvalidInput) {
		t.Errorf("Load missing = %v", err)
	}
}

func TestBuildLogger(t *testing.T) {
	for _, dev := range []bool{false, true} {
		cfg := Default()
		cfg.Log.Development = dev
		cfg.Log.Level = "error"
		l, err := cfg.BuildLogger()
		if err != nil {
			t.Fatalf("BuildLogger(dev=%v): %v", dev, err)
		}
		if l.Core().Enabled(zapcore.DebugLevel) {
			t.Errorf("debug enabled at error level (dev=%v)", dev)
		}
		_ = l.Sync()
	}
}
