package bonus

import (
	"math"
	"strconv"
	"strings"
)

// NormalizeGrade maps a raw grade to 0..100 where 100 is always best.
// Explicit definitions win; unparseable grades normalize to 0.
func NormalizeGrade(gs GradingSystem, raw string) float64 {
	raw = strings.TrimSpace(raw)
	if def, ok := gs.definition(raw); ok {
		return def.Normalized100
	}

	v, ok := parseNumber(raw)
	if !ok {
		return 0
	}

	if gs.ScaleType == ScalePercentage {
		return clamp(v, 0, 100)
	}

	lo, hi := gs.MinValue, gs.MaxValue
	if lo == hi {
		return 0
	}
	if lo > hi {
		lo, hi = hi, lo
	}
	n := (clamp(v, lo, hi) - lo) / (hi - lo) * 100
	if !gs.BestIsHighest {
		n = 100 - n
	}
	return clamp(n, 0, 100)
}

// DeriveTier returns the explicit tier for a raw grade, or TierBelow.
func DeriveTier(gs GradingSystem, raw string) Tier {
	if def, ok := gs.definition(strings.TrimSpace(raw)); ok && def.QualityTier != "" {
		return def.QualityTier
	}
	return TierBelow
}

// parseNumber accepts "85", "85%", "2,5" and "2.5".
func parseNumber(s string) (float64, bool) {
	s = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "%"))
	s = strings.Replace(s, ",", ".", 1)
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}
