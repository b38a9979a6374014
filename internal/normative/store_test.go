package normative

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ageqc/qcpipeline/internal/qctypes"
)

func testDataset() Dataset {
	return Dataset{
		Name:      "test-dataset",
		AgeGroups: qctypes.DefaultAgeGroups(),
		Normative: []NormativeEntry{
			{AgeGroup: "young_adult", Metric: "snr", Mean: 15, SD: 2, P5: 11, P25: 13.5, P50: 15, P75: 16.5, P95: 19, SampleSize: 500},
		},
		Thresholds: []ThresholdEntry{
			{AgeGroup: "young_adult", Metric: "snr", Warn: 12, Fail: 10, Direction: "higher_better"},
		},
	}
}

func TestNewStoreValid(t *testing.T) {
	s, err := NewStore(testDataset())
	require.NoError(t, err)
	assert.Equal(t, "test-dataset", s.Name())

	rec, ok := s.GetNormative(qctypes.SNR, "young_adult")
	require.True(t, ok)
	assert.Equal(t, 15.0, rec.Mean)

	_, ok = s.GetNormative(qctypes.CNR, "young_adult")
	assert.False(t, ok)
}

func TestNewStoreRejectsBadPercentiles(t *testing.T) {
	ds := testDataset()
	ds.Normative[0].P75 = 10 // below P50
	_, err := NewStore(ds)
	assert.Error(t, err)
}

func TestNewStoreRejectsUnknownMetric(t *testing.T) {
	ds := testDataset()
	ds.Normative[0].Metric = "bogus"
	_, err := NewStore(ds)
	assert.Error(t, err)
}

func TestNewStoreRejectsBadThreshold(t *testing.T) {
	ds := testDataset()
	ds.Thresholds[0].Warn = 8 // warn < fail while higher_better
	_, err := NewStore(ds)
	assert.Error(t, err)
}

func TestEffectiveAgeGroups(t *testing.T) {
	s, err := NewStore(testDataset())
	require.NoError(t, err)

	assert.Equal(t, s.GetAgeGroups(), s.EffectiveAgeGroups(nil))

	custom := []qctypes.AgeGroup{{Name: "all", MinAge: 0, MaxAge: 120}}
	assert.Equal(t, custom, s.EffectiveAgeGroups(custom))
}

func TestStatistics(t *testing.T) {
	s, err := NewStore(testDataset())
	require.NoError(t, err)

	stats := s.Statistics("young_adult")
	require.Contains(t, stats, qctypes.SNR)
	assert.Empty(t, s.Statistics("elderly"))
}
