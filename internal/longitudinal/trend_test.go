package longitudinal

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ageqc/qcpipeline/internal/normative"
	"github.com/ageqc/qcpipeline/internal/qctypes"
	"github.com/ageqc/qcpipeline/internal/storage"
)

func testNormStore(t *testing.T) *normative.Store {
	t.Helper()
	s, err := normative.NewStore(normative.Dataset{Name: "test", AgeGroups: qctypes.DefaultAgeGroups()})
	require.NoError(t, err)
	return s
}

func openStore(t *testing.T) storage.Store {
	t.Helper()
	s, err := storage.Open(t.TempDir() + "/longitudinal.db")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func defaultStability() StabilityConfig {
	return StabilityConfig{
		SlopeEpsilon: map[qctypes.Metric]float64{qctypes.SNR: 0.001},
		SigmaEpsilon: map[qctypes.Metric]float64{qctypes.SNR: 0.01},
	}
}

func v(f float64) *float64 { return &f }

func processedWithSNR(subjectID string, snr float64, age float64) qctypes.ProcessedSubject {
	return qctypes.ProcessedSubject{
		SubjectInfo: qctypes.SubjectInfo{SubjectID: subjectID, Age: v(age)},
		RawMetrics:  qctypes.Metrics{SNR: v(snr)},
		Assessment:  qctypes.NewQualityAssessment(),
	}
}

// TestComputeTrendS5MatchesScenario reproduces spec scenario S5: three
// timepoints at days 0, 180, 365 with snr = {12, 13, 14}, expecting
// slope ~= 0.00547/day, R^2 = 1.0, direction improving.
func TestComputeTrendS5MatchesScenario(t *testing.T) {
	store := openStore(t)
	e := New(store, testNormStore(t), defaultStability())

	require.NoError(t, e.AddTimepoint(processedWithSNR("sub-010", 12, 25), "ses-01", 0, "study-x"))
	require.NoError(t, e.AddTimepoint(processedWithSNR("sub-010", 13, 25), "ses-02", 180, "study-x"))
	require.NoError(t, e.AddTimepoint(processedWithSNR("sub-010", 14, 25), "ses-03", 365, "study-x"))

	trend, ok, err := e.ComputeTrend("sub-010", qctypes.SNR)
	require.NoError(t, err)
	require.True(t, ok)
	require.NotNil(t, trend.Slope)
	assert.InDelta(t, 0.00547, *trend.Slope, 0.0002)
	require.NotNil(t, trend.RSquared)
	assert.InDelta(t, 1.0, *trend.RSquared, 0.01)
	assert.Equal(t, qctypes.TrendImproving, trend.Direction)
}

func TestComputeTrendRequiresAtLeastTwoPoints(t *testing.T) {
	store := openStore(t)
	e := New(store, testNormStore(t), defaultStability())
	require.NoError(t, e.AddTimepoint(processedWithSNR("sub-011", 12, 25), "ses-01", 0, ""))

	_, ok, err := e.ComputeTrend("sub-011", qctypes.SNR)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestAddTimepointReplacesSameSession(t *testing.T) {
	store := openStore(t)
	e := New(store, testNormStore(t), defaultStability())

	require.NoError(t, e.AddTimepoint(processedWithSNR("sub-012", 12, 25), "ses-01", 0, ""))
	require.NoError(t, e.AddTimepoint(processedWithSNR("sub-012", 99, 25), "ses-01", 0, ""))

	subj, ok, err := e.GetSubject("sub-012")
	require.NoError(t, err)
	require.True(t, ok)
	require.Len(t, subj.Timepoints, 1)
	val, _ := subj.Timepoints[0].Processed.RawMetrics.Get(qctypes.SNR)
	assert.Equal(t, 99.0, val)
}

// TestAgeGroupTransitionsS6MatchesScenario reproduces spec scenario S6:
// ages 17.9 then 18.1 cross adolescent -> young_adult.
func TestAgeGroupTransitionsS6MatchesScenario(t *testing.T) {
	store := openStore(t)
	e := New(store, testNormStore(t), defaultStability())

	require.NoError(t, e.AddTimepoint(processedWithSNR("sub-020", 12, 17.9), "ses-01", 0, ""))
	require.NoError(t, e.AddTimepoint(processedWithSNR("sub-020", 12, 18.1), "ses-02", 30, ""))

	changes, err := e.AgeGroupTransitions("sub-020")
	require.NoError(t, err)
	require.Len(t, changes, 1)
	assert.Equal(t, "adolescent", changes[0].FromAgeGroup)
	assert.Equal(t, "young_adult", changes[0].ToAgeGroup)
}

func TestStudySummaryAggregatesAcrossSubjects(t *testing.T) {
	store := openStore(t)
	e := New(store, testNormStore(t), defaultStability())

	require.NoError(t, e.AddTimepoint(processedWithSNR("sub-030", 12, 25), "ses-01", 0, "study-a"))
	require.NoError(t, e.AddTimepoint(processedWithSNR("sub-031", 12, 25), "ses-01", 0, "study-a"))

	summary, err := e.StudySummary("study-a")
	require.NoError(t, err)
	assert.Equal(t, 2, summary.SubjectCount)
	assert.Equal(t, 2, summary.TimepointCount)
}
