package storage

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ageqc/qcpipeline/internal/qctypes"
)

func openTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	path := filepath.Join(t.TempDir(), "qcpipeline.db")
	s, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSaveAndLoadBatchRoundtrips(t *testing.T) {
	s := openTestStore(t)

	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	batch := qctypes.BatchState{
		BatchID:   "batch-1",
		Status:    qctypes.BatchProcessing,
		Progress:  qctypes.Progress{Completed: 3, Failed: 1, Total: 10, Percent: 40},
		Errors:    []qctypes.ProcessingError{{RowIndex: 2, Code: "parse_error", Message: "bad age", Field: "age"}},
		CreatedAt: now,
		StartedAt: &now,
	}

	require.NoError(t, s.SaveBatch(batch))

	loaded, ok, err := s.LoadBatch("batch-1")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, qctypes.BatchProcessing, loaded.Status)
	require.Equal(t, 3, loaded.Progress.Completed)
	require.Equal(t, 1, loaded.Progress.Failed)
	require.Len(t, loaded.Errors, 1)
	require.Equal(t, "age", loaded.Errors[0].Field)
	require.NotNil(t, loaded.StartedAt)
	require.Nil(t, loaded.CompletedAt)
}

func TestSaveBatchUpsertsOnRepeatedSave(t *testing.T) {
	s := openTestStore(t)

	batch := qctypes.BatchState{BatchID: "batch-1", Status: qctypes.BatchPending, CreatedAt: time.Now()}
	require.NoError(t, s.SaveBatch(batch))

	batch.Status = qctypes.BatchCompleted
	completed := time.Now()
	batch.CompletedAt = &completed
	require.NoError(t, s.SaveBatch(batch))

	loaded, ok, err := s.LoadBatch("batch-1")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, qctypes.BatchCompleted, loaded.Status)
	require.NotNil(t, loaded.CompletedAt)
}

func TestLoadBatchMissingReturnsFalse(t *testing.T) {
	s := openTestStore(t)
	_, ok, err := s.LoadBatch("does-not-exist")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestSaveAndLoadStudyRoundtrips(t *testing.T) {
	s := openTestStore(t)

	cfg := qctypes.StudyConfiguration{
		StudyName:        "adni-pilot",
		NormativeDataset: "default",
		CustomAgeGroups:  []qctypes.AgeGroup{{Name: "teen", MinAge: 13, MaxAge: 19}},
		CustomThresholds: []qctypes.Threshold{
			{Metric: qctypes.SNR, AgeGroup: "teen", Direction: qctypes.HigherBetter, Warn: 12, Fail: 10},
		},
		ExclusionCriteria: []string{"motion_artifact"},
		CreatedBy:         "researcher",
		CreatedAt:         time.Now(),
		UpdatedAt:         time.Now(),
	}

	require.NoError(t, s.SaveStudy(cfg))

	loaded, ok, err := s.LoadStudy("adni-pilot")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "default", loaded.NormativeDataset)
	require.Len(t, loaded.CustomAgeGroups, 1)
	require.Equal(t, "teen", loaded.CustomAgeGroups[0].Name)
	require.Len(t, loaded.CustomThresholds, 1)
	require.Equal(t, []string{"motion_artifact"}, loaded.ExclusionCriteria)
}

func TestListStudiesReturnsAllSorted(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.SaveStudy(qctypes.StudyConfiguration{StudyName: "zeta", CreatedAt: time.Now(), UpdatedAt: time.Now()}))
	require.NoError(t, s.SaveStudy(qctypes.StudyConfiguration{StudyName: "alpha", CreatedAt: time.Now(), UpdatedAt: time.Now()}))

	all, err := s.ListStudies()
	require.NoError(t, err)
	require.Len(t, all, 2)
	require.Equal(t, "alpha", all[0].StudyName)
	require.Equal(t, "zeta", all[1].StudyName)
}

func TestDeleteStudyRemovesIt(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.SaveStudy(qctypes.StudyConfiguration{StudyName: "temp", CreatedAt: time.Now(), UpdatedAt: time.Now()}))
	require.NoError(t, s.DeleteStudy("temp"))

	_, ok, err := s.LoadStudy("temp")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestSaveTimepointReplacesSameSubjectSession(t *testing.T) {
	s := openTestStore(t)

	baseline := 8.5
	subject := qctypes.LongitudinalSubject{SubjectID: "sub-01", BaselineAge: &baseline, Sex: qctypes.SexFemale, Study: "adni-pilot"}

	tp1 := qctypes.Timepoint{
		TimepointID:      "tp-1",
		Session:          "ses-01",
		DaysFromBaseline: 0,
		Processed: qctypes.ProcessedSubject{
			SubjectInfo: qctypes.SubjectInfo{SubjectID: "sub-01"},
			Assessment:  qctypes.QualityAssessment{Overall: qctypes.Pass, Composite: 90},
		},
	}
	require.NoError(t, s.SaveTimepoint(subject, tp1))

	// Replace the same (subject, session) with a revised assessment.
	tp1Revised := tp1
	tp1Revised.Processed.Assessment.Composite = 55
	tp1Revised.Processed.Assessment.Overall = qctypes.Warning
	require.NoError(t, s.SaveTimepoint(subject, tp1Revised))

	loaded, ok, err := s.LoadSubject("sub-01")
	require.NoError(t, err)
	require.True(t, ok)
	require.Len(t, loaded.Timepoints, 1)
	require.Equal(t, qctypes.Warning, loaded.Timepoints[0].Processed.Assessment.Overall)
	require.InDelta(t, 55, loaded.Timepoints[0].Processed.Assessment.Composite, 0.001)
	require.NotNil(t, loaded.BaselineAge)
	require.InDelta(t, 8.5, *loaded.BaselineAge, 0.001)
}

func TestLoadSubjectOrdersTimepointsByDaysFromBaseline(t *testing.T) {
	s := openTestStore(t)
	subject := qctypes.LongitudinalSubject{SubjectID: "sub-02", Study: "adni-pilot"}

	for _, tp := range []qctypes.Timepoint{
		{TimepointID: "tp-3", Session: "ses-03", DaysFromBaseline: 400, Processed: qctypes.ProcessedSubject{SubjectInfo: qctypes.SubjectInfo{SubjectID: "sub-02"}}},
		{TimepointID: "tp-1", Session: "ses-01", DaysFromBaseline: 0, Processed: qctypes.ProcessedSubject{SubjectInfo: qctypes.SubjectInfo{SubjectID: "sub-02"}}},
		{TimepointID: "tp-2", Session: "ses-02", DaysFromBaseline: 200, Processed: qctypes.ProcessedSubject{SubjectInfo: qctypes.SubjectInfo{SubjectID: "sub-02"}}},
	} {
		require.NoError(t, s.SaveTimepoint(subject, tp))
	}

	loaded, ok, err := s.LoadSubject("sub-02")
	require.NoError(t, err)
	require.True(t, ok)
	require.Len(t, loaded.Timepoints, 3)
	require.Equal(t, "tp-1", loaded.Timepoints[0].TimepointID)
	require.Equal(t, "tp-2", loaded.Timepoints[1].TimepointID)
	require.Equal(t, "tp-3", loaded.Timepoints[2].TimepointID)
}

func TestLoadSubjectMissingReturnsFalse(t *testing.T) {
	s := openTestStore(t)
	_, ok, err := s.LoadSubject("nobody")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestListSubjectsFiltersByStudy(t *testing.T) {
	s := openTestStore(t)

	require.NoError(t, s.SaveTimepoint(
		qctypes.LongitudinalSubject{SubjectID: "sub-a", Study: "study-x"},
		qctypes.Timepoint{TimepointID: "t1", Session: "ses-01", Processed: qctypes.ProcessedSubject{SubjectInfo: qctypes.SubjectInfo{SubjectID: "sub-a"}}},
	))
	require.NoError(t, s.SaveTimepoint(
		qctypes.LongitudinalSubject{SubjectID: "sub-b", Study: "study-y"},
		qctypes.Timepoint{TimepointID: "t2", Session: "ses-01", Processed: qctypes.ProcessedSubject{SubjectInfo: qctypes.SubjectInfo{SubjectID: "sub-b"}}},
	))

	subjectsX, err := s.ListSubjects("study-x")
	require.NoError(t, err)
	require.Len(t, subjectsX, 1)
	require.Equal(t, "sub-a", subjectsX[0].SubjectID)

	all, err := s.ListSubjects("")
	require.NoError(t, err)
	require.Len(t, all, 2)
}

func TestReopeningStorePersistsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "qcpipeline.db")

	s1, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s1.SaveBatch(qctypes.BatchState{BatchID: "persisted", Status: qctypes.BatchCompleted, CreatedAt: time.Now()}))
	require.NoError(t, s1.Close())

	s2, err := Open(path)
	require.NoError(t, err)
	defer s2.Close()

	loaded, ok, err := s2.LoadBatch("persisted")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, qctypes.BatchCompleted, loaded.Status)
}
