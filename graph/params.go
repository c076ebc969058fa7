package graph

import "math"

// Params carries effect parameters by name, numeric and string valued.
// Missing or non-finite entries fall back to the reader's default, so a
// partially filled set configures the rest from effect defaults.
type Params struct {
	Num map[string]float64 `json:"num,omitempty"`
	Str map[string]string  `json:"str,omitempty"`
}

// GetNum extracts a numeric parameter, returning def if missing or invalid.
func (p Params) GetNum(key string, def float64) float64 {
	if p.Num == nil {
		return def
	}

	v, ok := p.Num[key]
	if !ok || math.IsNaN(v) || math.IsInf(v, 0) {
		return def
	}
	return v
}

// GetStr extracts a string parameter, returning def if missing or empty.
func (p Params) GetStr(key, def string) string {
	if p.Str == nil {
		return def
	}

	v, ok := p.Str[key]
	if !ok || v == "" {
		return def
	}
	return v
}

// NumParams builds a numeric-only parameter set.
func NumParams(kv map[string]float64) Params {
	return Params{Num: kv}
}
