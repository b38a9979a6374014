package qctypes

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func f(v float64) *float64 { return &v }

func TestMetricsGetSetRoundTrip(t *testing.T) {
	var m Metrics
	m.Set(SNR, 15.5)
	v, ok := m.Get(SNR)
	require.True(t, ok)
	assert.Equal(t, 15.5, v)

	_, ok = m.Get(CNR)
	assert.False(t, ok)
}

func TestMetricsValidateRangeViolation(t *testing.T) {
	m := Metrics{SNR: f(-1)}
	errs := m.Validate()
	require.Len(t, errs, 1)
	assert.Equal(t, "snr", errs[0].Field)
}

func TestMetricsValidateFWHMConsistency(t *testing.T) {
	ok := Metrics{FWHMX: f(2.0), FWHMY: f(2.0), FWHMZ: f(2.0), FWHMAvg: f(2.0)}
	assert.Empty(t, ok.Validate())

	bad := Metrics{FWHMX: f(2.0), FWHMY: f(2.0), FWHMZ: f(2.0), FWHMAvg: f(4.0)}
	errs := bad.Validate()
	require.Len(t, errs, 1)
	assert.Equal(t, "fwhm_avg", errs[0].Field)
}

func TestMetricsValidateFDConsistency(t *testing.T) {
	bad := Metrics{FDNum: f(0), FDPerc: f(5)}
	errs := bad.Validate()
	require.Len(t, errs, 1)
	assert.Equal(t, "fd_perc", errs[0].Field)

	good := Metrics{FDNum: f(0), FDPerc: f(0)}
	assert.Empty(t, good.Validate())
}

func TestParseMetric(t *testing.T) {
	m, ok := ParseMetric("snr")
	require.True(t, ok)
	assert.Equal(t, SNR, m)

	_, ok = ParseMetric("not_a_metric")
	assert.False(t, ok)
}

func TestRejectSubjectID(t *testing.T) {
	cases := map[string]bool{
		"sub-001":      false,
		"123-45-6789":  true, // SSN-shaped
		"01/02/2020":   true,
		"a@b.com":      true,
		"sub 001":      true, // space not allowed by the token pattern
		"x":            false,
	}
	for id, wantReject := range cases {
		assert.Equal(t, wantReject, RejectSubjectID(id), "subject id %q", id)
	}
}

func TestValidateAgeGroupsOverlap(t *testing.T) {
	assert.NoError(t, ValidateAgeGroups(DefaultAgeGroups()))

	overlapping := []AgeGroup{
		{Name: "a", MinAge: 0, MaxAge: 10},
		{Name: "b", MinAge: 9, MaxAge: 20},
	}
	assert.Error(t, ValidateAgeGroups(overlapping))
}

func TestThresholdValidate(t *testing.T) {
	good := Threshold{Metric: SNR, AgeGroup: "young_adult", Warn: 10, Fail: 8, Direction: HigherBetter}
	assert.NoError(t, good.Validate())

	bad := Threshold{Metric: SNR, AgeGroup: "young_adult", Warn: 8, Fail: 10, Direction: HigherBetter}
	assert.Error(t, bad.Validate())
}
