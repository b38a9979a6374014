package export

import (
	"fmt"
	"io"

	"github.com/go-pdf/fpdf"
)

// Renderer turns a structured Document into a byte stream. The core
// never renders directly against fpdf; FPDFRenderer is the only
// concrete implementation, kept narrow so a test double can stand in
// without pulling in PDF rendering (spec §6).
type Renderer interface {
	Render(doc Document, w io.Writer) error
}

// FPDFRenderer renders a Document with go-pdf/fpdf. Deterministic given
// a deterministic Document (spec §4.10: "deterministic given identical
// inputs and a deterministic renderer").
type FPDFRenderer struct{}

func (FPDFRenderer) Render(doc Document, w io.Writer) error {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetTitle(doc.Title, true)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(0, 10, doc.Title, "", 1, "L", false, 0, "")
	pdf.Ln(4)

	renderSummary(pdf, doc.Summary)
	renderGroupDistributions(pdf, doc.GroupDistributions)
	renderHistograms(pdf, doc.MetricHistograms)
	renderSubjectTable(pdf, doc.SubjectRows)

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("rendering pdf: %w", err)
	}
	return nil
}

func renderSummary(pdf *fpdf.Fpdf, s Summary) {
	pdf.SetFont("Helvetica", "B", 12)
	pdf.CellFormat(0, 8, "Study Summary", "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	pdf.CellFormat(0, 6, fmt.Sprintf("Subjects: %d", s.SubjectCount), "", 1, "L", false, 0, "")
	for _, verdict := range []string{"pass", "warning", "fail", "uncertain"} {
		count := 0
		for v, n := range s.VerdictCounts {
			if string(v) == verdict {
				count = n
			}
		}
		pdf.CellFormat(0, 6, fmt.Sprintf("  %s: %d", verdict, count), "", 1, "L", false, 0, "")
	}
	pdf.Ln(4)
}

func renderGroupDistributions(pdf *fpdf.Fpdf, rows []GroupDistribution) {
	if len(rows) == 0 {
		return
	}
	pdf.SetFont("Helvetica", "B", 12)
	pdf.CellFormat(0, 8, "Per-Group Distributions", "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 9)
	for _, r := range rows {
		pdf.CellFormat(0, 5, fmt.Sprintf("%s / %s: mean=%.3f sd=%.3f n=%d", r.AgeGroup, r.Metric.Descriptor().Name, r.Mean, r.SD, r.SampleSize), "", 1, "L", false, 0, "")
	}
	pdf.Ln(4)
}

func renderHistograms(pdf *fpdf.Fpdf, hists []MetricHistogram) {
	pdf.SetFont("Helvetica", "B", 12)
	pdf.CellFormat(0, 8, "Per-Metric Histograms", "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 9)
	for _, h := range hists {
		total := 0
		for _, b := range h.Buckets {
			total += b.Count
		}
		if total == 0 {
			continue
		}
		pdf.CellFormat(0, 5, h.Metric.Descriptor().Name+":", "", 1, "L", false, 0, "")
		for _, b := range h.Buckets {
			pdf.CellFormat(0, 4, fmt.Sprintf("  %s: %d", b.RangeLabel, b.Count), "", 1, "L", false, 0, "")
		}
	}
	pdf.Ln(4)
}

func renderSubjectTable(pdf *fpdf.Fpdf, rows []SubjectRow) {
	pdf.SetFont("Helvetica", "B", 12)
	pdf.CellFormat(0, 8, "Subjects", "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 9)
	for _, r := range rows {
		pdf.CellFormat(0, 5, fmt.Sprintf("%s [%s] age_group=%s overall=%s composite=%.1f", r.SubjectID, r.Session, r.AgeGroup, r.Overall, r.Composite), "", 1, "L", false, 0, "")
	}
}
