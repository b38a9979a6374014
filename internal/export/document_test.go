package export

import (
	"bytes"
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
		Normative: []normative.NormativeEntry{
			{AgeGroup: "young_adult", Metric: "snr", Mean: 12, SD: 2, P5: 8, P25: 10.5, P50: 12, P75: 13.5, P95: 16, SampleSize: 100},
		},
	})
	require.NoError(t, err)
	return s
}

func TestBuildDocumentAggregatesVerdictsAndSubjects(t *testing.T) {
	subjects := []qctypes.ProcessedSubject{sampleSubject()}
	doc := BuildDocument("Test Report", subjects, testStore(t))

	assert.Equal(t, "Test Report", doc.Title)
	assert.Equal(t, 1, doc.Summary.SubjectCount)
	assert.Equal(t, 1, doc.Summary.VerdictCounts[qctypes.Pass])
	require.Len(t, doc.SubjectRows, 1)
	assert.Equal(t, "sub-001", doc.SubjectRows[0].SubjectID)
	require.NotEmpty(t, doc.GroupDistributions)
	assert.Equal(t, "young_adult", doc.GroupDistributions[0].AgeGroup)
}

func TestBuildDocumentHistogramBucketsMetricValue(t *testing.T) {
	doc := BuildDocument("t", []qctypes.ProcessedSubject{sampleSubject()}, testStore(t))

	var snrHist MetricHistogram
	for _, h := range doc.MetricHistograms {
		if h.Metric == qctypes.SNR {
			snrHist = h
		}
	}
	total := 0
	for _, b := range snrHist.Buckets {
		total += b.Count
	}
	assert.Equal(t, 1, total)
}

func TestBuildDocumentIsDeterministic(t *testing.T) {
	subjects := []qctypes.ProcessedSubject{sampleSubject()}
	store := testStore(t)

	doc1 := BuildDocument("t", subjects, store)
	doc2 := BuildDocument("t", subjects, store)
	assert.Equal(t, doc1, doc2)
}

func TestFPDFRendererProducesNonEmptyOutput(t *testing.T) {
	doc := BuildDocument("Report", []qctypes.ProcessedSubject{sampleSubject()}, testStore(t))

	var buf bytes.Buffer
	err := FPDFRenderer{}.Render(doc, &buf)
	require.NoError(t, err)
	assert.Greater(t, buf.Len(), 0)
	assert.Equal(t, "%PDF", buf.String()[:4])
}
