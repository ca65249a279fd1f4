package regime

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// Thresholds mirrors the regime_thresholds.json layout. Individual missing
// keys fall back to documented defaults; a missing or malformed file is
// fatal before any classification happens.
type Thresholds struct {
	Mapping struct {
		A        float64 `json:"a" default:"1.0"`
		B        float64 `json:"b" default:"0.0"`
		ClampMin float64 `json:"clamp_min" default:"0.01" validate:"gte=0"`
		ClampMax float64 `json:"clamp_max" default:"0.99" validate:"lte=1"`
	} `json:"probability_mapping"`
	Hysteresis struct {
		ProbEnter    float64 `json:"prob_enter" default:"0.60" validate:"gt=0,lt=1"`
		ProbExit     float64 `json:"prob_exit" default:"0.40" validate:"gt=0,lt=1"`
		ConfirmTicks int     `json:"confirm_ticks" default:"2" validate:"gte=1"`
	} `json:"hysteresis"`
	Fallback struct {
		Regime      string  `json:"default_regime" default:"normal" validate:"oneof=normal high_vol"`
		Probability float64 `json:"default_probability" default:"0.0"`
	} `json:"fallback"`
}

// DefaultThresholds returns a Thresholds with every key at its default.
func DefaultThresholds() Thresholds {
	var t Thresholds
	_ = defaults.Set(&t)
	return t
}

// LoadThresholds reads and validates a thresholds JSON file.
func LoadThresholds(path string) (Thresholds, error) {
	var t Thresholds
	b, err := os.ReadFile(path)
	if err != nil {
		return t, fmt.Errorf("read thresholds: %w", err)
	}
	if err := json.Unmarshal(b, &t); err != nil {
		return t, fmt.Errorf("parse thresholds: %w", err)
	}
	if err := defaults.Set(&t); err != nil {
		return t, fmt.Errorf("apply threshold defaults: %w", err)
	}
	if err := t.Validate(); err != nil {
		return t, fmt.Errorf("validate thresholds: %w", err)
	}
	return t, nil
}

// Validate checks structural validity of the thresholds.
func (t Thresholds) Validate() error {
	if err := validate.Struct(t); err != nil {
		return err
	}
	if t.Hysteresis.ProbExit >= t.Hysteresis.ProbEnter {
		return fmt.Errorf("prob_exit (%g) must be below prob_enter (%g)", t.Hysteresis.ProbExit, t.Hysteresis.ProbEnter)
	}
	if t.Mapping.ClampMin >= t.Mapping.ClampMax {
		return fmt.Errorf("clamp_min (%g) must be below clamp_max (%g)", t.Mapping.ClampMin, t.Mapping.ClampMax)
	}
	return nil
}
