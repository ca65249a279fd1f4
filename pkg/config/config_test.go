package config

import (
    "os"
    "path/filepath"
    "testing"
)

const minimalYAML = `
environment: test
backend:
  type: clickhouse
classifier:
  thresholds_path: config/regime_thresholds.json
  default_series: us_core
`

func writeConfig(t *testing.T, body string) string {
    t.Helper()
    path := filepath.Join(t.TempDir(), "config.yaml")
    if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
        t.Fatalf("write config: %v", err)
    }
    return path
}

func TestLoadMinimal(t *testing.T) {
    c, err := Load(writeConfig(t, minimalYAML))
    if err != nil {
        t.Fatalf("load: %v", err)
    }
    if c.Backend.Type != "clickhouse" {
        t.Fatalf("unexpected backend %q", c.Backend.Type)
    }
    if c.Classifier.DefaultSeries != "us_core" {
        t.Fatalf("unexpected default series %q", c.Classifier.DefaultSeries)
    }
}

func TestLoadRejectsUnknownBackend(t *testing.T) {
    body := `
environment: test
backend:
  type: postgres
classifier:
  thresholds_path: x.json
  default_series: us_core
`
    if _, err := Load(writeConfig(t, body)); err == nil {
        t.Fatalf("expected error for unknown backend")
    }
}

func TestLoadRequiresThresholdsPath(t *testing.T) {
    body := `
environment: test
backend:
  type: kafka
classifier:
  default_series: us_core
`
    if _, err := Load(writeConfig(t, body)); err == nil {
        t.Fatalf("expected error for missing thresholds path")
    }
}

func TestLoadWithEnvOverrides(t *testing.T) {
    t.Setenv("BACKEND", "kafka")
    t.Setenv("REGIME_THRESHOLDS", "/etc/regimepull/thresholds.json")
    c, err := LoadWithEnv(writeConfig(t, minimalYAML))
    if err != nil {
        t.Fatalf("load: %v", err)
    }
    if c.Backend.Type != "kafka" {
        t.Fatalf("env override lost: %q", c.Backend.Type)
    }
    if c.Classifier.ThresholdsPath != "/etc/regimepull/thresholds.json" {
        t.Fatalf("thresholds override lost: %q", c.Classifier.ThresholdsPath)
    }
}
