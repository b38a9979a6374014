package threshold

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ageqc/qcpipeline/internal/normative"
	"github.com/ageqc/qcpipeline/internal/qctypes"
)

func testStore(t *testing.T) *normative.Store {
	t.Helper()
	s, err := normative.NewStore(normative.Dataset{
		Name:      "test",
		AgeGroups: qctypes.DefaultAgeGroups(),
		Thresholds: []normative.ThresholdEntry{
			{AgeGroup: "young_adult", Metric: "snr", Warn: 12, Fail: 10, Direction: "higher_better"},
		},
	})
	require.NoError(t, err)
	return s
}

func TestResolveDefaultWhenNoStudy(t *testing.T) {
	store := testStore(t)
	th, ok := Resolve(store, nil, qctypes.SNR, "young_adult")
	require.True(t, ok)
	assert.Equal(t, 12.0, th.Warn)
}

func TestResolveStudyOverrideWins(t *testing.T) {
	store := testStore(t)
	study := &qctypes.StudyConfiguration{
		StudyName: "s1",
		CustomThresholds: []qctypes.Threshold{
			{Metric: qctypes.SNR, AgeGroup: "young_adult", Warn: 14, Fail: 11, Direction: qctypes.HigherBetter},
		},
	}
	th, ok := Resolve(store, study, qctypes.SNR, "young_adult")
	require.True(t, ok)
	assert.Equal(t, 14.0, th.Warn)
}

func TestResolveFallsThroughToDefaultWhenStudyHasNoOverrideForMetric(t *testing.T) {
	store := testStore(t)
	study := &qctypes.StudyConfiguration{StudyName: "s1"}
	th, ok := Resolve(store, study, qctypes.SNR, "young_adult")
	require.True(t, ok)
	assert.Equal(t, 12.0, th.Warn)
}

func TestResolveUncertainWhenNoPolicy(t *testing.T) {
	store := testStore(t)
	_, ok := Resolve(store, nil, qctypes.CNR, "young_adult")
	assert.False(t, ok)
}
