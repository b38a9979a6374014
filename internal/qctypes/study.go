package qctypes

import (
	"errors"
	"time"
)

// StudyConfiguration is a named study's overrides over the default
// normative dataset (spec §3, §4.11).
type StudyConfiguration struct {
	StudyName         string `validate:"required"`
	NormativeDataset  string
	CustomAgeGroups   []AgeGroup
	CustomThresholds  []Threshold
	ExclusionCriteria []string
	CreatedBy         string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// Validate enforces the §3 invariants for a study configuration:
// non-overlapping custom age groups and well-formed custom thresholds.
// Uniqueness of StudyName is enforced by the store, not here.
func (s StudyConfiguration) Validate() error {
	if s.StudyName == "" {
		return errStudyNameRequired
	}
	if len(s.CustomAgeGroups) > 0 {
		if err := ValidateAgeGroups(s.CustomAgeGroups); err != nil {
			return err
		}
	}
	for _, t := range s.CustomThresholds {
		if err := t.Validate(); err != nil {
			return err
		}
	}
	return nil
}

var errStudyNameRequired = errors.New("study_name is required")
