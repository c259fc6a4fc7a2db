package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfig_HasExpectedDefaults(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Runtime.DefaultStrictControllers || cfg.Runtime.DefaultStrictSegments {
		t.Fatalf("expected non-strict defaults, got %+v", cfg.Runtime)
	}
	if cfg.Metrics.Enabled {
		t.Fatalf("expected metrics disabled by default")
	}
	if cfg.LineageMirror.Enabled {
		t.Fatalf("expected lineage mirror disabled by default")
	}
}

func TestLoadFromFile_OverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	body := `{"runtime":{"default_strict_segments":true},"metrics":{"enabled":true,"namespace":"myapp"}}`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cfg, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile: %v", err)
	}
	if !cfg.Runtime.DefaultStrictSegments {
		t.Errorf("expected strict segments to be overridden to true")
	}
	if cfg.Runtime.DefaultStrictControllers {
		t.Errorf("expected strict controllers to keep its default of false")
	}
	if !cfg.Metrics.Enabled || cfg.Metrics.Namespace != "myapp" {
		t.Errorf("expected metrics overrides to apply, got %+v", cfg.Metrics)
	}
}

func TestLoadFromFile_MissingFileErrors(t *testing.T) {
	if _, err := LoadFromFile("/nonexistent/path/config.json"); err == nil {
		t.Fatalf("expected an error for a missing config file")
	}
}

func TestLoadFromEnv_AppliesOverrides(t *testing.T) {
	t.Setenv("CTXGUARD_STRICT_CONTROLLERS", "true")
	t.Setenv("CTXGUARD_LOG_LEVEL", "debug")
	t.Setenv("CTXGUARD_METRICS_NAMESPACE", "envns")

	cfg := DefaultConfig()
	LoadFromEnv(cfg)

	if !cfg.Runtime.DefaultStrictControllers {
		t.Errorf("expected env override for strict controllers")
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("expected env override for log level, got %q", cfg.Logging.Level)
	}
	if cfg.Metrics.Namespace != "envns" {
		t.Errorf("expected env override for metrics namespace, got %q", cfg.Metrics.Namespace)
	}
}

func TestParseBool_AcceptsCommonSpellings(t *testing.T) {
	cases := map[string]bool{
		"true": true, "TRUE": true, "1": true, "yes": true,
		"false": false, "0": false, "no": false, "": false,
	}
	for in, want := range cases {
		if got := parseBool(in); got != want {
			t.Errorf("parseBool(%q) = %v, want %v", in, got, want)
		}
	}
}
