// Package longitudinal implements subject-level tracking across scan
// sessions and per-metric OLS trend analysis (C9).
package longitudinal

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/ageqc/qcpipeline/internal/normative"
	"github.com/ageqc/qcpipeline/internal/qctypes"
	"github.com/ageqc/qcpipeline/internal/storage"
)

// significanceLevel is the p-value cutoff for "improving"/"declining"
// classification (spec §4.9).
const significanceLevel = 0.05

// Engine tracks longitudinal subjects and computes trends against one
// normative store's age-group table.
type Engine struct {
	store storage.Store
	norm  *normative.Store
	cfg   StabilityConfig
}

// StabilityConfig carries the per-metric epsilons that gate the
// "stable" trend classification, independent of p-value (spec §4.9).
type StabilityConfig struct {
	SlopeEpsilon map[qctypes.Metric]float64
	SigmaEpsilon map[qctypes.Metric]float64
}

func New(store storage.Store, norm *normative.Store, cfg StabilityConfig) *Engine {
	return &Engine{store: store, norm: norm, cfg: cfg}
}

// AddTimepoint records one processed scan session for a subject,
// replacing any existing row for the same (subject_id, session) per the
// spec §5 idempotence invariant.
func (e *Engine) AddTimepoint(processed qctypes.ProcessedSubject, session string, daysFromBaseline float64, study string) error {
	subjectID := processed.SubjectInfo.SubjectID
	if subjectID == "" {
		return fmt.Errorf("adding timepoint: subject_id is required")
	}

	existing, ok, err := e.store.LoadSubject(subjectID)
	if err != nil {
		return fmt.Errorf("loading existing subject %s: %w", subjectID, err)
	}

	baselineAge := processed.SubjectInfo.Age
	if ok && existing.BaselineAge != nil && daysFromBaseline != 0 {
		baselineAge = existing.BaselineAge
	}

	subject := qctypes.LongitudinalSubject{
		SubjectID:   subjectID,
		BaselineAge: baselineAge,
		Sex:         processed.SubjectInfo.Sex,
		Study:       study,
	}

	tp := qctypes.Timepoint{
		TimepointID:      fmt.Sprintf("%s-%s", subjectID, session),
		Session:          session,
		DaysFromBaseline: daysFromBaseline,
		AgeAtScan:        processed.SubjectInfo.Age,
		Processed:        processed,
	}

	return e.store.SaveTimepoint(subject, tp)
}

// GetSubject returns the full longitudinal record for one subject.
func (e *Engine) GetSubject(subjectID string) (qctypes.LongitudinalSubject, bool, error) {
	return e.store.LoadSubject(subjectID)
}

// ComputeTrend fits an OLS trend for one metric across a subject's
// timepoints. Returns ok=false if fewer than two timepoints carry a
// value for the metric.
func (e *Engine) ComputeTrend(subjectID string, metric qctypes.Metric) (qctypes.Trend, bool, error) {
	subject, ok, err := e.store.LoadSubject(subjectID)
	if err != nil {
		return qctypes.Trend{}, false, err
	}
	if !ok {
		return qctypes.Trend{}, false, nil
	}

	points := valuesOverTime(subject, metric)
	if len(points) < 2 {
		return qctypes.Trend{}, false, nil
	}

	x := make([]float64, len(points))
	y := make([]float64, len(points))
	for i, p := range points {
		x[i] = p.DaysFromBaseline
		y[i] = p.Value
	}

	slope, intercept, r2, pValue := fitOLS(x, y)
	sigma := stat.StdDev(y, nil)

	direction := classifyDirection(metric, slope, pValue, sigma, e.cfg)

	trend := qctypes.Trend{
		SubjectID:            subjectID,
		Metric:               metric,
		Direction:            direction,
		Slope:                &slope,
		RSquared:             &r2,
		PValue:               &pValue,
		ValuesOverTime:       points,
		AgeGroupChanges:      e.ageGroupChanges(subject),
		QualityStatusChanges: qualityStatusChanges(subject),
	}
	return trend, true, nil
}

// ComputeAllTrends computes a Trend for every metric with at least two
// observed values across the subject's timepoints.
func (e *Engine) ComputeAllTrends(subjectID string) ([]qctypes.Trend, error) {
	subject, ok, err := e.store.LoadSubject(subjectID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}

	var trends []qctypes.Trend
	for _, m := range qctypes.AllMetrics() {
		if len(valuesOverTime(subject, m)) < 2 {
			continue
		}
		t, ok, err := e.ComputeTrend(subjectID, m)
		if err != nil {
			return nil, err
		}
		if ok {
			trends = append(trends, t)
		}
	}
	return trends, nil
}

// StudySummary aggregates trend directions and overall verdicts across
// every subject recorded under study.
func (e *Engine) StudySummary(study string) (qctypes.LongitudinalSummary, error) {
	subjects, err := e.store.ListSubjects(study)
	if err != nil {
		return qctypes.LongitudinalSummary{}, err
	}

	summary := qctypes.NewLongitudinalSummary(study)
	summary.SubjectCount = len(subjects)

	for _, subj := range subjects {
		summary.TimepointCount += len(subj.Timepoints)
		for _, tp := range subj.Timepoints {
			summary.OverallVerdictDist[tp.Processed.Assessment.Overall]++
		}

		trends, err := e.ComputeAllTrends(subj.SubjectID)
		if err != nil {
			return qctypes.LongitudinalSummary{}, err
		}
		for _, t := range trends {
			if summary.DirectionCounts[t.Metric] == nil {
				summary.DirectionCounts[t.Metric] = make(map[qctypes.TrendDirection]int)
			}
			summary.DirectionCounts[t.Metric][t.Direction]++
		}
	}
	return summary, nil
}

// AgeGroupTransitions returns every age-group crossing recorded for a
// subject, in chronological order.
func (e *Engine) AgeGroupTransitions(subjectID string) ([]qctypes.AgeGroupChange, error) {
	subject, ok, err := e.store.LoadSubject(subjectID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	return e.ageGroupChanges(subject), nil
}

func (e *Engine) ageGroupChanges(subject qctypes.LongitudinalSubject) []qctypes.AgeGroupChange {
	groups := e.norm.GetAgeGroups()
	var changes []qctypes.AgeGroupChange
	var lastGroup string
	var haveLast bool

	for _, tp := range subject.Timepoints {
		if tp.AgeAtScan == nil {
			continue
		}
		ag, ok := normative.Classify(*tp.AgeAtScan, groups)
		if !ok {
			continue
		}
		if haveLast && ag.Name != lastGroup {
			changes = append(changes, qctypes.AgeGroupChange{
				FromAgeGroup: lastGroup,
				ToAgeGroup:   ag.Name,
				AtTimepoint:  tp.TimepointID,
			})
		}
		lastGroup = ag.Name
		haveLast = true
	}
	return changes
}

func qualityStatusChanges(subject qctypes.LongitudinalSubject) []qctypes.QualityStatusChange {
	var changes []qctypes.QualityStatusChange
	var last qctypes.Verdict
	var haveLast bool

	for _, tp := range subject.Timepoints {
		v := tp.Processed.Assessment.Overall
		if haveLast && v != last {
			changes = append(changes, qctypes.QualityStatusChange{
				FromVerdict: last,
				ToVerdict:   v,
				AtTimepoint: tp.TimepointID,
			})
		}
		last = v
		haveLast = true
	}
	return changes
}

func valuesOverTime(subject qctypes.LongitudinalSubject, metric qctypes.Metric) []qctypes.TrendPoint {
	points := make([]qctypes.TrendPoint, 0, len(subject.Timepoints))
	for _, tp := range subject.Timepoints {
		v, ok := tp.Processed.RawMetrics.Get(metric)
		if !ok {
			continue
		}
		points = append(points, qctypes.TrendPoint{
			TimepointID:      tp.TimepointID,
			Value:            v,
			DaysFromBaseline: tp.DaysFromBaseline,
			AgeAtScan:        tp.AgeAtScan,
		})
	}
	sort.Slice(points, func(i, j int) bool { return points[i].DaysFromBaseline < points[j].DaysFromBaseline })
	return points
}

// fitOLS returns slope, intercept, R², and the two-sided p-value for
// the null hypothesis slope=0, via a classical t-test on the OLS slope
// standard error.
func fitOLS(x, y []float64) (slope, intercept, rSquared, pValue float64) {
	intercept, slope = stat.LinearRegression(x, y, nil, false)
	rSquared = stat.RSquared(x, y, nil, intercept, slope)

	n := len(x)
	xbar := stat.Mean(x, nil)
	var sxx, rss float64
	for i := range x {
		sxx += (x[i] - xbar) * (x[i] - xbar)
		resid := y[i] - (intercept + slope*x[i])
		rss += resid * resid
	}

	df := float64(n - 2)
	if df <= 0 || sxx == 0 {
		if slope != 0 {
			return slope, intercept, rSquared, 0
		}
		return slope, intercept, rSquared, 1
	}

	sigma2 := rss / df
	seBeta := math.Sqrt(sigma2 / sxx)
	if seBeta == 0 {
		if slope != 0 {
			return slope, intercept, rSquared, 0
		}
		return slope, intercept, rSquared, 1
	}

	t := slope / seBeta
	dist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: df}
	pValue = 2 * (1 - dist.CDF(math.Abs(t)))
	return slope, intercept, rSquared, pValue
}

func classifyDirection(metric qctypes.Metric, slope, pValue, sigma float64, cfg StabilityConfig) qctypes.TrendDirection {
	slopeEps := cfg.SlopeEpsilon[metric]
	sigmaEps := cfg.SigmaEpsilon[metric]

	if math.Abs(slope) < slopeEps && sigma < sigmaEps {
		return qctypes.TrendStable
	}

	higherBetter := metric.Descriptor().Direction == qctypes.HigherBetter

	if pValue < significanceLevel {
		switch {
		case higherBetter && slope > 0, !higherBetter && slope < 0:
			return qctypes.TrendImproving
		case higherBetter && slope < 0, !higherBetter && slope > 0:
			return qctypes.TrendDeclining
		}
	}
	return qctypes.TrendVariable
}
