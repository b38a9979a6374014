package qctypes

import "time"

// ProcessingVersion identifies the assessment rule-set version stamped on
// every ProcessedSubject, so exports can be traced back to the logic that
// produced them.
const ProcessingVersion = "qcpipeline-1"

// ProcessedSubject is one fully processed row (spec §3).
type ProcessedSubject struct {
	SubjectInfo         SubjectInfo
	RawMetrics          Metrics
	NormalizedMetrics   *NormalizedMetrics
	Assessment          QualityAssessment
	ProcessingTimestamp time.Time
	ProcessingVersion   string
	RowIndex            int
}

// ProcessingError is a row-level failure recorded by the orchestrator
// without aborting the batch (spec §4.7, §7).
type ProcessingError struct {
	RowIndex int
	Code     string
	Message  string
	Field    string
}

func (e ProcessingError) Error() string {
	if e.Field != "" {
		return e.Code + ": " + e.Field + ": " + e.Message
	}
	return e.Code + ": " + e.Message
}
