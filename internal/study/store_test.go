package study

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ageqc/qcpipeline/internal/qctypes"
	"github.com/ageqc/qcpipeline/internal/storage"
)

func openBacking(t *testing.T) storage.Store {
	t.Helper()
	s, err := storage.Open(t.TempDir() + "/study.db")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestCreateRejectsDuplicateStudyName(t *testing.T) {
	s := New(openBacking(t))
	require.NoError(t, s.Create(qctypes.StudyConfiguration{StudyName: "adni"}))

	err := s.Create(qctypes.StudyConfiguration{StudyName: "adni"})
	assert.Error(t, err)
}

func TestCreateRejectsOverlappingAgeGroups(t *testing.T) {
	s := New(openBacking(t))
	err := s.Create(qctypes.StudyConfiguration{
		StudyName: "bad-groups",
		CustomAgeGroups: []qctypes.AgeGroup{
			{Name: "a", MinAge: 0, MaxAge: 20},
			{Name: "b", MinAge: 10, MaxAge: 30},
		},
	})
	assert.Error(t, err)
}

func TestCreateRejectsMalformedThreshold(t *testing.T) {
	s := New(openBacking(t))
	err := s.Create(qctypes.StudyConfiguration{
		StudyName: "bad-threshold",
		CustomThresholds: []qctypes.Threshold{
			{Metric: qctypes.SNR, AgeGroup: "young_adult", Direction: qctypes.HigherBetter, Warn: 5, Fail: 10},
		},
	})
	assert.Error(t, err)
}

func TestUpdatePreservesCreatedAt(t *testing.T) {
	s := New(openBacking(t))
	require.NoError(t, s.Create(qctypes.StudyConfiguration{StudyName: "adni"}))

	created, _, err := s.Get("adni")
	require.NoError(t, err)

	require.NoError(t, s.Update(qctypes.StudyConfiguration{StudyName: "adni", NormativeDataset: "v2"}))
	updated, ok, err := s.Get("adni")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, created.CreatedAt.Unix(), updated.CreatedAt.Unix())
	assert.Equal(t, "v2", updated.NormativeDataset)
}

func TestUpdateRejectsUnknownStudy(t *testing.T) {
	s := New(openBacking(t))
	err := s.Update(qctypes.StudyConfiguration{StudyName: "ghost"})
	assert.Error(t, err)
}

func TestDeleteRemovesStudy(t *testing.T) {
	s := New(openBacking(t))
	require.NoError(t, s.Create(qctypes.StudyConfiguration{StudyName: "adni"}))
	require.NoError(t, s.Delete("adni"))

	_, ok, err := s.Get("adni")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestListReturnsAllStudies(t *testing.T) {
	s := New(openBacking(t))
	require.NoError(t, s.Create(qctypes.StudyConfiguration{StudyName: "adni"}))
	require.NoError(t, s.Create(qctypes.StudyConfiguration{StudyName: "ppmi"}))

	all, err := s.List()
	require.NoError(t, err)
	assert.Len(t, all, 2)
}
