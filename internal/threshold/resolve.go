// Package threshold implements the Threshold Resolver (spec §4.4,
// component C4): study-custom overrides take precedence over the
// Normative Store's default policy.
package threshold

import (
	"github.com/ageqc/qcpipeline/internal/normative"
	"github.com/ageqc/qcpipeline/internal/qctypes"
)

// Resolve returns study's custom threshold for (metric, ageGroup) if one
// is configured, else the store's default, else ⊥ (false). study may be
// nil, meaning "no study context". Consumers must treat a false result
// as "no policy; metric verdict is uncertain" (spec §4.4).
func Resolve(store *normative.Store, study *qctypes.StudyConfiguration, metric qctypes.Metric, ageGroup string) (qctypes.Threshold, bool) {
	if study != nil {
		for _, t := range study.CustomThresholds {
			if t.Metric == metric && t.AgeGroup == ageGroup {
				return t, true
			}
		}
	}
	return store.GetThreshold(metric, ageGroup)
}
