// Package normative implements the read-mostly normative-data lookup
// (spec §4.1, component C1) and the age classifier (component C2).
//
// The store is built once at process start from a YAML dataset file and
// is never mutated afterward; study-specific overrides are supplied by
// the caller (internal/study) and resolved by internal/threshold without
// ever touching the Store's internal maps, keeping the hot read path
// lock-free (spec §5: "accessed without locking after initial load").
package normative

import (
	"fmt"

	"github.com/ageqc/qcpipeline/internal/qctypes"
)

type key struct {
	ageGroup string
	metric   qctypes.Metric
}

// Store is the immutable, loaded-once normative dataset.
type Store struct {
	name       string
	ageGroups  []qctypes.AgeGroup
	normative  map[key]qctypes.NormativeRecord
	thresholds map[key]qctypes.Threshold
}

// Dataset is the on-disk (YAML) shape for a normative dataset.
type Dataset struct {
	Name       string               `yaml:"name"`
	AgeGroups  []qctypes.AgeGroup   `yaml:"age_groups"`
	Normative  []NormativeEntry     `yaml:"normative_data"`
	Thresholds []ThresholdEntry     `yaml:"thresholds"`
}

// NormativeEntry is one row of the normative_data table in dataset YAML.
type NormativeEntry struct {
	AgeGroup   string  `yaml:"age_group"`
	Metric     string  `yaml:"metric"`
	Mean       float64 `yaml:"mean"`
	SD         float64 `yaml:"sd"`
	P5         float64 `yaml:"p5"`
	P25        float64 `yaml:"p25"`
	P50        float64 `yaml:"p50"`
	P75        float64 `yaml:"p75"`
	P95        float64 `yaml:"p95"`
	SampleSize int     `yaml:"sample_size"`
}

// ThresholdEntry is one row of the thresholds table in dataset YAML.
type ThresholdEntry struct {
	AgeGroup  string  `yaml:"age_group"`
	Metric    string  `yaml:"metric"`
	Warn      float64 `yaml:"warn"`
	Fail      float64 `yaml:"fail"`
	Direction string  `yaml:"direction"`
}

// NewStore builds a Store from a parsed Dataset, validating every
// invariant in spec §3 before returning.
func NewStore(ds Dataset) (*Store, error) {
	if err := qctypes.ValidateAgeGroups(ds.AgeGroups); err != nil {
		return nil, fmt.Errorf("invalid age groups in dataset %q: %w", ds.Name, err)
	}

	s := &Store{
		name:       ds.Name,
		ageGroups:  qctypes.SortAgeGroups(ds.AgeGroups),
		normative:  make(map[key]qctypes.NormativeRecord, len(ds.Normative)),
		thresholds: make(map[key]qctypes.Threshold, len(ds.Thresholds)),
	}

	for _, e := range ds.Normative {
		m, ok := qctypes.ParseMetric(e.Metric)
		if !ok {
			return nil, fmt.Errorf("normative entry for age group %q: unknown metric %q", e.AgeGroup, e.Metric)
		}
		if e.SD <= 0 {
			return nil, fmt.Errorf("normative entry %s/%s: sd must be > 0, got %g", e.AgeGroup, e.Metric, e.SD)
		}
		if e.SampleSize <= 0 {
			return nil, fmt.Errorf("normative entry %s/%s: sample_size must be > 0", e.AgeGroup, e.Metric)
		}
		if !(e.P5 <= e.P25 && e.P25 <= e.P50 && e.P50 <= e.P75 && e.P75 <= e.P95) {
			return nil, fmt.Errorf("normative entry %s/%s: percentile anchors must be non-decreasing", e.AgeGroup, e.Metric)
		}
		rec := qctypes.NormativeRecord{
			AgeGroup: e.AgeGroup, Metric: m, Mean: e.Mean, SD: e.SD,
			P5: e.P5, P25: e.P25, P50: e.P50, P75: e.P75, P95: e.P95,
			SampleSize: e.SampleSize,
		}
		s.normative[key{e.AgeGroup, m}] = rec
	}

	for _, e := range ds.Thresholds {
		m, ok := qctypes.ParseMetric(e.Metric)
		if !ok {
			return nil, fmt.Errorf("threshold entry for age group %q: unknown metric %q", e.AgeGroup, e.Metric)
		}
		th := qctypes.Threshold{
			Metric: m, AgeGroup: e.AgeGroup, Warn: e.Warn, Fail: e.Fail,
			Direction: qctypes.Direction(e.Direction),
		}
		if err := th.Validate(); err != nil {
			return nil, err
		}
		s.thresholds[key{e.AgeGroup, m}] = th
	}

	return s, nil
}

// Name returns the normative dataset's name.
func (s *Store) Name() string { return s.name }

// GetAgeGroups returns the default age-group table, ordered by MinAge.
func (s *Store) GetAgeGroups() []qctypes.AgeGroup {
	out := make([]qctypes.AgeGroup, len(s.ageGroups))
	copy(out, s.ageGroups)
	return out
}

// GetNormative returns the normative record for (metric, ageGroup), or
// ⊥ (false) if none is loaded.
func (s *Store) GetNormative(metric qctypes.Metric, ageGroup string) (qctypes.NormativeRecord, bool) {
	rec, ok := s.normative[key{ageGroup, metric}]
	return rec, ok
}

// GetThreshold returns the default threshold for (metric, ageGroup), or
// ⊥ (false) if none is loaded.
func (s *Store) GetThreshold(metric qctypes.Metric, ageGroup string) (qctypes.Threshold, bool) {
	th, ok := s.thresholds[key{ageGroup, metric}]
	return th, ok
}

// EffectiveAgeGroups returns custom (study-overridden) age groups if
// non-empty, else the store's default table, both ordered by MinAge
// ascending (spec §4.1).
func (s *Store) EffectiveAgeGroups(custom []qctypes.AgeGroup) []qctypes.AgeGroup {
	if len(custom) > 0 {
		return qctypes.SortAgeGroups(custom)
	}
	return s.GetAgeGroups()
}

// Statistics returns every loaded normative record for one age group,
// keyed by metric, grounded on the original get_age_group_statistics
// helper. The PDF export does not call it; it reads records through
// GetNormative.
func (s *Store) Statistics(ageGroup string) map[qctypes.Metric]qctypes.NormativeRecord {
	out := make(map[qctypes.Metric]qctypes.NormativeRecord)
	for k, rec := range s.normative {
		if k.ageGroup == ageGroup {
			out[k.metric] = rec
		}
	}
	return out
}
