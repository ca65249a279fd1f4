package regime

import (
	"os"
	"path/filepath"
	"testing"
)

func writeThresholds(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "regime_thresholds.json")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write thresholds: %v", err)
	}
	return path
}

func TestLoadThresholdsDefaultsForMissingKeys(t *testing.T) {
	path := writeThresholds(t, `{"hysteresis": {"confirm_ticks": 3}}`)
	th, err := LoadThresholds(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if th.Hysteresis.ConfirmTicks != 3 {
		t.Fatalf("explicit key lost: %d", th.Hysteresis.ConfirmTicks)
	}
	if th.Hysteresis.ProbEnter != 0.60 || th.Hysteresis.ProbExit != 0.40 {
		t.Fatalf("hysteresis defaults not applied: %+v", th.Hysteresis)
	}
	if th.Mapping.A != 1.0 || th.Mapping.ClampMin != 0.01 || th.Mapping.ClampMax != 0.99 {
		t.Fatalf("mapping defaults not applied: %+v", th.Mapping)
	}
	if th.Fallback.Regime != "normal" || th.Fallback.Probability != 0.0 {
		t.Fatalf("fallback defaults not applied: %+v", th.Fallback)
	}
}

func TestLoadThresholdsMissingFileIsFatal(t *testing.T) {
	if _, err := LoadThresholds(filepath.Join(t.TempDir(), "nope.json")); err == nil {
		t.Fatalf("expected error for absent thresholds file")
	}
}

func TestLoadThresholdsMalformedIsFatal(t *testing.T) {
	path := writeThresholds(t, `{"hysteresis":`)
	if _, err := LoadThresholds(path); err == nil {
		t.Fatalf("expected error for malformed thresholds file")
	}
}

func TestLoadThresholdsRejectsInvertedHysteresis(t *testing.T) {
	path := writeThresholds(t, `{"hysteresis": {"prob_enter": 0.3, "prob_exit": 0.7}}`)
	if _, err := LoadThresholds(path); err == nil {
		t.Fatalf("expected error for prob_exit above prob_enter")
	}
}

func TestLoadThresholdsRejectsUnknownFallbackRegime(t *testing.T) {
	path := writeThresholds(t, `{"fallback": {"default_regime": "sideways"}}`)
	if _, err := LoadThresholds(path); err == nil {
		t.Fatalf("expected error for unknown fallback regime")
	}
}
