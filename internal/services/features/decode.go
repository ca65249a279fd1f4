package features

import (
	"encoding/json"
	"strconv"
)

// Coerce normalizes a decoded JSON feature map into numeric features.
// Values that cannot be read as numbers are dropped from the map: for
// optional features that silently ignores them, for required ones the
// classifier's missing-data fallback takes over downstream. NaN and
// infinities survive coercion; the probability mapper filters those.
func Coerce(raw map[string]any) map[string]float64 {
	out := make(map[string]float64, len(raw))
	for k, v := range raw {
		switch x := v.(type) {
		case float64:
			out[k] = x
		case float32:
			out[k] = float64(x)
		case int:
			out[k] = float64(x)
		case int64:
			out[k] = float64(x)
		case json.Number:
			if f, err := x.Float64(); err == nil {
				out[k] = f
			}
		case string:
			if f, err := strconv.ParseFloat(x, 64); err == nil {
				out[k] = f
			}
		}
	}
	return out
}
