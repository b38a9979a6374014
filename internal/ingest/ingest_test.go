package ingest

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ageqc/qcpipeline/internal/qctypes"
)

func TestParseHappyPath(t *testing.T) {
	csvData := "subject_id,age,snr,cnr\nsub-001,25,15.0,3.5\nsub-002,30,12.0,4.0\n"
	header, rows, err := Parse(strings.NewReader(csvData), Options{})
	require.NoError(t, err)
	assert.Equal(t, []string{"subject_id", "age", "snr", "cnr"}, header)
	assert.Len(t, rows, 2)
}

func TestParseTolerates_BOM(t *testing.T) {
	csvData := "\xef\xbb\xbfsubject_id,age\nsub-001,25\n"
	header, _, err := Parse(strings.NewReader(csvData), Options{})
	require.NoError(t, err)
	assert.Equal(t, "subject_id", header[0])
}

func TestParseSizeCeiling(t *testing.T) {
	csvData := "subject_id,age\nsub-001,25\nsub-002,30\n"
	_, _, err := Parse(strings.NewReader(csvData), Options{MaxBytes: 10})
	assert.Error(t, err)
}

func TestValidateSchemaRequiresSubjectID(t *testing.T) {
	errs := ValidateSchema([]string{"age", "snr"})
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Reason, "subject identifier")
}

func TestValidateSchemaAcceptsBidsName(t *testing.T) {
	errs := ValidateSchema([]string{"bids_name", "snr", "fd_mean"})
	assert.Empty(t, errs)
}

func TestValidateSchemaFlagsUnknownColumn(t *testing.T) {
	errs := ValidateSchema([]string{"subject_id", "bogus_column"})
	require.Len(t, errs, 1)
	assert.Equal(t, "bogus_column", errs[0].Column)
}

func TestToSubjectHappyPath(t *testing.T) {
	header := []string{"subject_id", "age", "sex", "snr"}
	row := []string{"sub-001", "25", "M", "15.0"}

	info, metrics, err := ToSubject(row, header)
	require.NoError(t, err)
	assert.Equal(t, "sub-001", info.SubjectID)
	require.NotNil(t, info.Age)
	assert.Equal(t, 25.0, *info.Age)
	snr, ok := metrics.Get(qctypes.SNR)
	require.True(t, ok)
	assert.Equal(t, 15.0, snr)
}

func TestToSubjectRejectsPIIShapedID(t *testing.T) {
	header := []string{"subject_id"}
	row := []string{"123-45-6789"}
	_, _, err := ToSubject(row, header)
	assert.Error(t, err)
}

func TestToSubjectRejectsOutOfRangeMetric(t *testing.T) {
	header := []string{"subject_id", "snr"}
	row := []string{"sub-001", "-5"}
	_, _, err := ToSubject(row, header)
	assert.Error(t, err)
}

func TestToSubjectMissingSubjectIDIsError(t *testing.T) {
	header := []string{"age"}
	row := []string{"25"}
	_, _, err := ToSubject(row, header)
	assert.Error(t, err)
}

func TestToSubjectEmptyNumericCellIsBottom(t *testing.T) {
	header := []string{"subject_id", "snr"}
	row := []string{"sub-001", ""}
	_, metrics, err := ToSubject(row, header)
	require.NoError(t, err)
	_, ok := metrics.Get(qctypes.SNR)
	assert.False(t, ok)
}
