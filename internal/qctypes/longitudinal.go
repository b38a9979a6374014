package qctypes

import "fmt"

// Timepoint is one processed scan session belonging to a
// LongitudinalSubject (spec §3).
type Timepoint struct {
	TimepointID      string
	Session          string
	DaysFromBaseline float64
	AgeAtScan        *float64
	Processed        ProcessedSubject
}

// LongitudinalSubject tracks every timepoint recorded for one subject.
type LongitudinalSubject struct {
	SubjectID    string
	BaselineAge  *float64
	Sex          Sex
	Study        string
	Timepoints   []Timepoint // ordered by DaysFromBaseline ascending
}

// Validate enforces the §3 invariants: every timepoint belongs to this
// subject, and timepoint IDs / sessions are unique within the subject.
func (s LongitudinalSubject) Validate() error {
	seenIDs := make(map[string]bool, len(s.Timepoints))
	seenSessions := make(map[string]bool, len(s.Timepoints))
	for _, tp := range s.Timepoints {
		if tp.Processed.SubjectInfo.SubjectID != s.SubjectID {
			return fmt.Errorf("timepoint %s belongs to subject %s, not %s", tp.TimepointID, tp.Processed.SubjectInfo.SubjectID, s.SubjectID)
		}
		if tp.TimepointID != "" {
			if seenIDs[tp.TimepointID] {
				return fmt.Errorf("duplicate timepoint id %q for subject %s", tp.TimepointID, s.SubjectID)
			}
			seenIDs[tp.TimepointID] = true
		}
		if tp.Session != "" {
			if seenSessions[tp.Session] {
				return fmt.Errorf("duplicate session %q for subject %s", tp.Session, s.SubjectID)
			}
			seenSessions[tp.Session] = true
		}
	}
	return nil
}

// TrendDirection classifies how a metric is moving over time (spec §4.9).
type TrendDirection string

const (
	TrendImproving TrendDirection = "improving"
	TrendDeclining TrendDirection = "declining"
	TrendStable    TrendDirection = "stable"
	TrendVariable  TrendDirection = "variable"
)

// TrendPoint is one (value, time) observation feeding a Trend.
type TrendPoint struct {
	TimepointID      string
	Value            float64
	DaysFromBaseline float64
	AgeAtScan        *float64
}

// AgeGroupChange records one age-group crossing in chronological order.
type AgeGroupChange struct {
	FromAgeGroup string
	ToAgeGroup   string
	AtTimepoint  string
}

// QualityStatusChange records a change in overall verdict between
// consecutive timepoints.
type QualityStatusChange struct {
	FromVerdict Verdict
	ToVerdict   Verdict
	AtTimepoint string
}

// Trend is the per-metric linear fit across a subject's timepoints
// (spec §3, §4.9).
type Trend struct {
	SubjectID            string
	Metric               Metric
	Direction            TrendDirection
	Slope                *float64
	RSquared             *float64
	PValue               *float64
	ValuesOverTime       []TrendPoint
	AgeGroupChanges      []AgeGroupChange
	QualityStatusChanges []QualityStatusChange
}

// LongitudinalSummary aggregates trend direction and verdict outcomes
// across every subject tracked under one study (spec §4.9's
// study_summary operation).
type LongitudinalSummary struct {
	Study              string
	SubjectCount       int
	TimepointCount     int
	DirectionCounts    map[Metric]map[TrendDirection]int
	OverallVerdictDist map[Verdict]int
}

func NewLongitudinalSummary(study string) LongitudinalSummary {
	return LongitudinalSummary{
		Study:              study,
		DirectionCounts:    make(map[Metric]map[TrendDirection]int),
		OverallVerdictDist: make(map[Verdict]int),
	}
}
