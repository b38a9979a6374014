package qctypes

import (
	"regexp"
	"time"
)

// Sex is the subject's recorded sex category.
type Sex string

const (
	SexMale    Sex = "M"
	SexFemale  Sex = "F"
	SexOther   Sex = "O"
	SexUnknown Sex = "U"
)

// ScanType is the acquired MRI sequence.
type ScanType string

const (
	ScanT1w  ScanType = "T1w"
	ScanT2w  ScanType = "T2w"
	ScanBOLD ScanType = "BOLD"
	ScanDWI  ScanType = "DWI"
	ScanFLAIR ScanType = "FLAIR"
)

// SubjectInfo is the demographic/session envelope around one row's
// Metrics (spec §3).
type SubjectInfo struct {
	SubjectID       string `validate:"required,max=50"`
	Age             *float64
	Sex             Sex
	Session         string
	ScanType        ScanType
	AcquisitionDate *time.Time
	Site            string
	Scanner         string
}

var subjectIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,50}$`)

var piiPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\d{3}-\d{2}-\d{4}`),             // SSN
	regexp.MustCompile(`\d{2}[/-]\d{2}[/-]\d{4}`),       // date
	regexp.MustCompile(`\d{3}[-.\s]?\d{3}[-.\s]?\d{4}`), // phone
	regexp.MustCompile(`[^\s@]+@[^\s@]+\.[^\s@]+`),      // email
}

// RejectSubjectID reports whether subjectID fails the required token shape
// or contains one of the PII-shaped patterns called out in spec §3.
func RejectSubjectID(subjectID string) bool {
	if !subjectIDPattern.MatchString(subjectID) {
		return true
	}
	for _, p := range piiPatterns {
		if p.MatchString(subjectID) {
			return true
		}
	}
	return false
}

// ValidAge reports whether age falls in the acceptable subject range.
func ValidAge(age float64) bool {
	return age >= 0.1 && age <= 110
}
