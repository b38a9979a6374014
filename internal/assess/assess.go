// Package assess implements the Quality Assessor (spec §4.5, component
// C5): a pure function from raw metrics (plus optional normalization)
// to a QualityAssessment. No I/O, no randomness, no wall-clock reads —
// identical inputs always produce a byte-identical result (spec §8).
package assess

import (
	"fmt"
	"math"

	"github.com/ageqc/qcpipeline/internal/normative"
	"github.com/ageqc/qcpipeline/internal/qctypes"
)

// warningRatioThreshold is the fraction of warning verdicts that forces
// an overall "warning" call even when composite ≥ 70 (spec §4.5).
const warningRatioThreshold = 0.20

// compositeWarningFloor is the composite score below which overall is
// "warning" regardless of the per-metric warning ratio.
const compositeWarningFloor = 70.0

var concreteScore = map[qctypes.Verdict]float64{
	qctypes.Pass:      1.0,
	qctypes.Warning:   0.6,
	qctypes.Fail:      0.0,
	qctypes.Uncertain: 0.5,
}

// failReasons gives a handful of metrics a domain-specific recommendation
// string when they fail; metrics without an entry fall back to a generic
// templated message.
var failReasons = map[qctypes.Metric]string{
	qctypes.SNR:    "signal-to-noise below age-matched floor",
	qctypes.CNR:    "contrast-to-noise below age-matched floor",
	qctypes.FDMean: "motion (mean framewise displacement) above age-matched ceiling",
	qctypes.FDPerc: "fraction of high-motion frames above age-matched ceiling",
	qctypes.EFC:    "entropy focus criterion above age-matched ceiling",
}

var warnReasons = map[qctypes.Metric]string{
	qctypes.SNR:    "signal-to-noise in warning band",
	qctypes.CNR:    "contrast-to-noise in warning band",
	qctypes.FDMean: "motion (mean framewise displacement) in warning band",
	qctypes.FDPerc: "fraction of high-motion frames in warning band",
	qctypes.EFC:    "entropy focus criterion in warning band",
}

// Assess computes the QualityAssessment for one subject's raw metrics.
// ageGroup is the subject's already-classified age group name (empty if
// unclassifiable, in which case every metric resolves to no threshold
// and the assessment is entirely uncertain). normalized may be nil.
func Assess(raw qctypes.Metrics, ageGroup string, store *normative.Store, study *qctypes.StudyConfiguration, normalized *qctypes.NormalizedMetrics) qctypes.QualityAssessment {
	a := qctypes.NewQualityAssessment()

	for _, m := range qctypes.AllMetrics() {
		v, ok := raw.Get(m)
		if !ok {
			continue
		}

		th, hasThreshold := resolveThreshold(store, study, m, ageGroup)
		if !hasThreshold {
			a.PerMetric[m] = qctypes.Uncertain
			a.AddFlag(fmt.Sprintf("%s: uncertain verdict, no threshold configured for age group %q", m, ageGroup))
			continue
		}

		verdict, violation := classify(v, th)
		a.PerMetric[m] = verdict
		if violation != nil {
			a.Violations[m] = *violation
		}

		switch verdict {
		case qctypes.Fail:
			a.Recommendations = append(a.Recommendations, recommendation(failReasons, m, "fail"))
		case qctypes.Warning:
			a.Recommendations = append(a.Recommendations, recommendation(warnReasons, m, "warning"))
		}
	}

	var hasConcrete bool
	a.Composite, hasConcrete = composite(a.PerMetric)
	a.Overall = overall(a.PerMetric, a.Composite, hasConcrete)
	a.Confidence = confidence(a.PerMetric, normalized)

	return a
}

// resolveThreshold is the same precedence rule as internal/threshold,
// inlined here to avoid a dependency on internal/qctypes.StudyConfiguration
// iteration happening twice in the hot path; kept behaviorally identical
// to threshold.Resolve.
func resolveThreshold(store *normative.Store, study *qctypes.StudyConfiguration, metric qctypes.Metric, ageGroup string) (qctypes.Threshold, bool) {
	if study != nil {
		for _, t := range study.CustomThresholds {
			if t.Metric == metric && t.AgeGroup == ageGroup {
				return t, true
			}
		}
	}
	if store == nil {
		return qctypes.Threshold{}, false
	}
	return store.GetThreshold(metric, ageGroup)
}

func classify(v float64, th qctypes.Threshold) (qctypes.Verdict, *qctypes.Violation) {
	switch th.Direction {
	case qctypes.HigherBetter:
		switch {
		case v >= th.Warn:
			return qctypes.Pass, nil
		case v >= th.Fail:
			return qctypes.Warning, &qctypes.Violation{Value: v, CrossedThreshold: th.Warn, Severity: qctypes.Warning}
		default:
			return qctypes.Fail, &qctypes.Violation{Value: v, CrossedThreshold: th.Fail, Severity: qctypes.Fail}
		}
	case qctypes.LowerBetter:
		switch {
		case v <= th.Warn:
			return qctypes.Pass, nil
		case v <= th.Fail:
			return qctypes.Warning, &qctypes.Violation{Value: v, CrossedThreshold: th.Warn, Severity: qctypes.Warning}
		default:
			return qctypes.Fail, &qctypes.Violation{Value: v, CrossedThreshold: th.Fail, Severity: qctypes.Fail}
		}
	default:
		return qctypes.Uncertain, nil
	}
}

func recommendation(reasons map[qctypes.Metric]string, m qctypes.Metric, severity string) string {
	if r, ok := reasons[m]; ok {
		return r
	}
	return fmt.Sprintf("%s: %s", m, severity)
}

// composite implements the §4.5 weighted-score formula with w_m = 1.
// Iterates PerMetric in a fixed metric order so floating-point summation
// order — and therefore the result — is identical across runs regardless
// of map iteration order.
func composite(perMetric map[qctypes.Metric]qctypes.Verdict) (float64, bool) {
	hasConcrete := false
	var sumScore, sumWeight float64
	for _, m := range qctypes.AllMetrics() {
		v, ok := perMetric[m]
		if !ok {
			continue
		}
		if v != qctypes.Uncertain {
			hasConcrete = true
		}
		sumScore += concreteScore[v]
		sumWeight++
	}
	if !hasConcrete || sumWeight == 0 {
		return 50, false
	}
	return 100 * sumScore / sumWeight, true
}

// overall applies the §4.5 ordered rules. hasConcrete distinguishes a
// genuine composite < 70 (computed from real pass/warning/fail verdicts)
// from the flat default composite of 50 assigned when every metric is
// uncertain: without this distinction the "composite < 70" rule would
// always fire first and the "all uncertain ⇒ uncertain" rule could never
// be reached, since the no-concrete-verdict case always composites to
// exactly 50. When hasConcrete is false every present metric is
// uncertain by construction, so the answer is uncertain outright.
func overall(perMetric map[qctypes.Metric]qctypes.Verdict, composite float64, hasConcrete bool) qctypes.Verdict {
	if len(perMetric) == 0 || !hasConcrete {
		return qctypes.Uncertain
	}

	var total, warnings int
	for _, v := range perMetric {
		total++
		if v == qctypes.Fail {
			return qctypes.Fail
		}
		if v == qctypes.Warning {
			warnings++
		}
	}

	if float64(warnings)/float64(total) >= warningRatioThreshold || composite < compositeWarningFloor {
		return qctypes.Warning
	}
	return qctypes.Pass
}

func confidence(perMetric map[qctypes.Metric]qctypes.Verdict, normalized *qctypes.NormalizedMetrics) float64 {
	if len(perMetric) == 0 {
		return 0
	}
	var concrete int
	for _, v := range perMetric {
		if v != qctypes.Uncertain {
			concrete++
		}
	}
	base := float64(concrete) / float64(len(perMetric))

	if normalized == nil || len(normalized.ZScores) == 0 {
		return base
	}
	maxAbsZ := 0.0
	for _, z := range normalized.ZScores {
		if az := math.Abs(z); az > maxAbsZ {
			maxAbsZ = az
		}
	}
	attenuation := 1 - math.Min(1, maxAbsZ/10)
	return base * attenuation
}
