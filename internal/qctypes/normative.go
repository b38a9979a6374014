package qctypes

import "fmt"

// NormativeRecord is the reference-population summary for one
// (age_group, metric) pair.
type NormativeRecord struct {
	AgeGroup   string
	Metric     Metric
	Mean       float64
	SD         float64
	P5, P25, P50, P75, P95 float64
	SampleSize int
}

// Threshold is the warn/fail policy for one (metric, age_group) pair.
type Threshold struct {
	Metric    Metric
	AgeGroup  string
	Warn      float64
	Fail      float64
	Direction Direction
}

// Validate enforces the direction/order invariant from spec §3:
// higher_better requires warn > fail, lower_better requires warn < fail.
func (t Threshold) Validate() error {
	switch t.Direction {
	case HigherBetter:
		if !(t.Warn > t.Fail) {
			return fmt.Errorf("threshold for %s/%s: higher_better requires warn (%g) > fail (%g)", t.Metric, t.AgeGroup, t.Warn, t.Fail)
		}
	case LowerBetter:
		if !(t.Warn < t.Fail) {
			return fmt.Errorf("threshold for %s/%s: lower_better requires warn (%g) < fail (%g)", t.Metric, t.AgeGroup, t.Warn, t.Fail)
		}
	default:
		return fmt.Errorf("threshold for %s/%s: unknown direction %q", t.Metric, t.AgeGroup, t.Direction)
	}
	return nil
}

// NormalizedMetrics holds the percentile/z-score pair for every metric
// that could be normalized for one row. Maps are appropriate here (unlike
// Metrics) because the output is inherently sparse and is never on the
// per-row hot allocation path the way the raw metric bag is.
type NormalizedMetrics struct {
	AgeGroup    string
	DatasetName string
	Percentiles map[Metric]float64
	ZScores     map[Metric]float64
}

func NewNormalizedMetrics(ageGroup, dataset string) *NormalizedMetrics {
	return &NormalizedMetrics{
		AgeGroup:    ageGroup,
		DatasetName: dataset,
		Percentiles: make(map[Metric]float64),
		ZScores:     make(map[Metric]float64),
	}
}
