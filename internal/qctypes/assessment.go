package qctypes

// Verdict is a per-metric or overall quality call.
type Verdict string

const (
	Pass      Verdict = "pass"
	Warning   Verdict = "warning"
	Fail      Verdict = "fail"
	Uncertain Verdict = "uncertain"
)

// Violation records why a metric crossed a threshold.
type Violation struct {
	Value            float64
	CrossedThreshold float64
	Severity         Verdict
}

// QualityAssessment is the output of the assessor (spec §3, §4.5). Flags
// is an insertion-ordered, deduplicated set: a slice rather than a map so
// repeated runs on identical input produce byte-identical output (the
// assessor must be a pure, deterministic function per spec §4.5/§8).
type QualityAssessment struct {
	Overall         Verdict
	PerMetric       map[Metric]Verdict
	Composite       float64
	Confidence      float64
	Recommendations []string
	Flags           []string
	Violations      map[Metric]Violation
}

func NewQualityAssessment() QualityAssessment {
	return QualityAssessment{
		PerMetric:  make(map[Metric]Verdict),
		Violations: make(map[Metric]Violation),
	}
}

// AddFlag appends flag if it is not already present.
func (a *QualityAssessment) AddFlag(flag string) {
	for _, f := range a.Flags {
		if f == flag {
			return
		}
	}
	a.Flags = append(a.Flags, flag)
}
