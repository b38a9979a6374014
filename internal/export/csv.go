// Package export implements the CSV and PDF rendering paths of the
// Export Engine (C10): a deterministic column-ordered CSV writer and a
// Renderer-backed PDF document builder.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/ageqc/qcpipeline/internal/qctypes"
)

// ColumnFilter toggles whole column blocks (spec §4.10).
type ColumnFilter struct {
	IncludeRaw        bool
	IncludeNormalized bool
	IncludeAssessment bool
}

// WriteCSV emits subjects in row order, with the deterministic column
// order `subject_id, session, scan_type, age, age_group, [raw metrics],
// [percentile_*], [z_*], overall, composite, confidence, flags,
// recommendations` per spec §4.10. Missing values serialize as an empty
// cell.
func WriteCSV(w io.Writer, subjects []qctypes.ProcessedSubject, filter ColumnFilter) error {
	cw := csv.NewWriter(w)
	cw.UseCRLF = false

	header := buildHeader(filter)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("writing csv header: %w", err)
	}

	for _, s := range subjects {
		row := buildRow(s, filter)
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("writing csv row: %w", err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flushing csv: %w", err)
	}
	return nil
}

func buildHeader(filter ColumnFilter) []string {
	header := []string{"subject_id", "session", "scan_type", "age", "age_group"}

	if filter.IncludeRaw {
		for _, m := range qctypes.AllMetrics() {
			header = append(header, m.Descriptor().Name)
		}
	}
	if filter.IncludeNormalized {
		for _, m := range qctypes.AllMetrics() {
			header = append(header, "percentile_"+m.Descriptor().Name)
		}
		for _, m := range qctypes.AllMetrics() {
			header = append(header, "z_"+m.Descriptor().Name)
		}
	}
	if filter.IncludeAssessment {
		header = append(header, "overall", "composite", "confidence", "flags", "recommendations")
	}
	return header
}

func buildRow(s qctypes.ProcessedSubject, filter ColumnFilter) []string {
	info := s.SubjectInfo
	row := []string{
		info.SubjectID,
		info.Session,
		string(info.ScanType),
		floatCell(info.Age),
		"",
	}
	if s.NormalizedMetrics != nil {
		row[4] = s.NormalizedMetrics.AgeGroup
	}

	if filter.IncludeRaw {
		for _, m := range qctypes.AllMetrics() {
			v, ok := s.RawMetrics.Get(m)
			row = append(row, optionalFloatCell(v, ok))
		}
	}
	if filter.IncludeNormalized {
		for _, m := range qctypes.AllMetrics() {
			row = append(row, percentileCell(s.NormalizedMetrics, m))
		}
		for _, m := range qctypes.AllMetrics() {
			row = append(row, zScoreCell(s.NormalizedMetrics, m))
		}
	}
	if filter.IncludeAssessment {
		row = append(row,
			string(s.Assessment.Overall),
			strconv.FormatFloat(s.Assessment.Composite, 'f', -1, 64),
			strconv.FormatFloat(s.Assessment.Confidence, 'f', -1, 64),
			joinSemicolon(s.Assessment.Flags),
			joinSemicolon(s.Assessment.Recommendations),
		)
	}
	return row
}

func floatCell(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

func optionalFloatCell(v float64, ok bool) string {
	if !ok {
		return ""
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func percentileCell(nm *qctypes.NormalizedMetrics, m qctypes.Metric) string {
	if nm == nil {
		return ""
	}
	v, ok := nm.Percentiles[m]
	return optionalFloatCell(v, ok)
}

func zScoreCell(nm *qctypes.NormalizedMetrics, m qctypes.Metric) string {
	if nm == nil {
		return ""
	}
	v, ok := nm.ZScores[m]
	return optionalFloatCell(v, ok)
}

func joinSemicolon(items []string) string {
	out := ""
	for i, s := range items {
		if i > 0 {
			out += ";"
		}
		out += s
	}
	return out
}
