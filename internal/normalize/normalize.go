// Package normalize implements the Normalizer (spec §4.3, component C3):
// given raw metrics and an age, it produces per-metric percentiles and
// z-scores against an age-matched normative record.
package normalize

import (
	"fmt"
	"math"

	"github.com/ageqc/qcpipeline/internal/normative"
	"github.com/ageqc/qcpipeline/internal/qctypes"
)

// extremeZ is the |z| threshold above which a metric's normalization is
// discarded as unit-error noise rather than reported (spec §4.3).
const extremeZ = 50

// suspectZ is the lower |z| threshold that still produces a
// verify-your-units recommendation but keeps the normalized value.
const suspectZ = 10

// Normalize computes percentiles and z-scores for every raw metric that
// has both a value and a loaded normative record for the subject's age
// group. Returns ⊥ (nil, nil, false) if age is unset or classifies into
// no configured age group — per spec, this is not an error, just "no
// normalization possible". Per-metric failures never abort the call;
// they are returned as flags in the second result.
func Normalize(raw qctypes.Metrics, age *float64, ageGroups []qctypes.AgeGroup, store *normative.Store) (*qctypes.NormalizedMetrics, []string, bool) {
	if age == nil {
		return nil, nil, false
	}
	group, ok := normative.Classify(*age, ageGroups)
	if !ok {
		return nil, nil, false
	}

	result := qctypes.NewNormalizedMetrics(group.Name, store.Name())

	var flags []string
	for _, m := range qctypes.AllMetrics() {
		v, ok := raw.Get(m)
		if !ok {
			continue
		}
		rec, ok := store.GetNormative(m, group.Name)
		if !ok {
			continue
		}

		z := zScore(v, rec)
		if math.Abs(z) > extremeZ {
			flags = append(flags, fmt.Sprintf("%s: value extreme; verify unit", m))
			continue
		}
		if math.Abs(z) > suspectZ {
			flags = append(flags, fmt.Sprintf("%s: unusually large deviation; verify unit", m))
		}
		if rec.SD == 0 {
			flags = append(flags, fmt.Sprintf("%s: age group has zero variance; z-score defaulted to 0", m))
		}

		result.ZScores[m] = z
		result.Percentiles[m] = percentile(v, rec, z)
	}

	return result, flags, true
}

func zScore(v float64, rec qctypes.NormativeRecord) float64 {
	if rec.SD == 0 {
		return 0
	}
	return (v - rec.Mean) / rec.SD
}

// hasAnchors reports whether rec carries a usable percentile-anchor
// table. A record loaded with every anchor equal to zero is treated as
// "anchors absent", since P5..P95 are all non-negative QC metric ranges
// and a true all-zero distribution also has zero sd (handled above).
func hasAnchors(rec qctypes.NormativeRecord) bool {
	return !(rec.P5 == 0 && rec.P25 == 0 && rec.P50 == 0 && rec.P75 == 0 && rec.P95 == 0)
}

// percentile computes v's percentile against rec, via piecewise-linear
// interpolation over the five anchors when present, else falling back
// to a normal-CDF approximation from z (spec §4.3).
func percentile(v float64, rec qctypes.NormativeRecord, z float64) float64 {
	if !hasAnchors(rec) {
		return clamp(100 * normalCDF(z))
	}

	type anchor struct {
		value, pct float64
	}
	anchors := [5]anchor{
		{rec.P5, 5}, {rec.P25, 25}, {rec.P50, 50}, {rec.P75, 75}, {rec.P95, 95},
	}

	if v <= anchors[0].value {
		return 5
	}
	if v >= anchors[4].value {
		return 95
	}
	for i := 0; i < len(anchors)-1; i++ {
		lo, hi := anchors[i], anchors[i+1]
		if v >= lo.value && v <= hi.value {
			if hi.value == lo.value {
				return clamp(lo.pct)
			}
			frac := (v - lo.value) / (hi.value - lo.value)
			return clamp(lo.pct + frac*(hi.pct-lo.pct))
		}
	}
	return clamp(100 * normalCDF(z))
}

func clamp(p float64) float64 {
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}

// normalCDF approximates the standard normal CDF via the error function.
func normalCDF(z float64) float64 {
	return 0.5 * (1 + math.Erf(z/math.Sqrt2))
}
