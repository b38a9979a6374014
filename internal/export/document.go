package export

import (
	"sort"
	"strconv"

	"github.com/ageqc/qcpipeline/internal/normative"
	"github.com/ageqc/qcpipeline/internal/qctypes"
)

// Document is the structured PDF document model called out in spec
// §4.10/§6: a title, a study summary, per-group distributions, per-
// metric histograms, and a per-subject table. Renderer implementations
// never see ProcessedSubject directly, keeping the PDF backend
// replaceable without touching assessment logic.
type Document struct {
	Title              string
	Summary            Summary
	GroupDistributions []GroupDistribution
	MetricHistograms   []MetricHistogram
	SubjectRows        []SubjectRow
}

// Summary is the document's top-of-report aggregate.
type Summary struct {
	SubjectCount  int
	VerdictCounts map[qctypes.Verdict]int
}

// GroupDistribution is one (age_group, metric) normative reference row.
type GroupDistribution struct {
	AgeGroup   string
	Metric     qctypes.Metric
	Mean       float64
	SD         float64
	SampleSize int
}

// HistogramBucket is one bin of a per-metric value histogram.
type HistogramBucket struct {
	RangeLabel string
	Count      int
}

// MetricHistogram bins the batch's observed values for one metric into
// a fixed number of equal-width buckets across the metric's sane range.
type MetricHistogram struct {
	Metric  qctypes.Metric
	Buckets []HistogramBucket
}

// SubjectRow is one line of the per-subject table.
type SubjectRow struct {
	SubjectID string
	Session   string
	AgeGroup  string
	Overall   qctypes.Verdict
	Composite float64
}

const histogramBuckets = 10

// BuildDocument assembles a Document from a batch's processed subjects
// and the normative store whose age groups define the distribution
// section. Deterministic: iterates qctypes.AllMetrics() and sorted age
// groups, never map order, so two runs on identical input produce the
// same document.
func BuildDocument(title string, subjects []qctypes.ProcessedSubject, norm *normative.Store) Document {
	doc := Document{Title: title}

	doc.Summary = Summary{
		SubjectCount:  len(subjects),
		VerdictCounts: make(map[qctypes.Verdict]int),
	}
	for _, s := range subjects {
		doc.Summary.VerdictCounts[s.Assessment.Overall]++
	}

	for _, ag := range qctypes.SortAgeGroups(norm.GetAgeGroups()) {
		for _, m := range qctypes.AllMetrics() {
			rec, ok := norm.GetNormative(m, ag.Name)
			if !ok {
				continue
			}
			doc.GroupDistributions = append(doc.GroupDistributions, GroupDistribution{
				AgeGroup:   ag.Name,
				Metric:     m,
				Mean:       rec.Mean,
				SD:         rec.SD,
				SampleSize: rec.SampleSize,
			})
		}
	}

	for _, m := range qctypes.AllMetrics() {
		doc.MetricHistograms = append(doc.MetricHistograms, buildHistogram(m, subjects))
	}

	for _, s := range subjects {
		ageGroup := ""
		if s.NormalizedMetrics != nil {
			ageGroup = s.NormalizedMetrics.AgeGroup
		}
		doc.SubjectRows = append(doc.SubjectRows, SubjectRow{
			SubjectID: s.SubjectInfo.SubjectID,
			Session:   s.SubjectInfo.Session,
			AgeGroup:  ageGroup,
			Overall:   s.Assessment.Overall,
			Composite: s.Assessment.Composite,
		})
	}
	sort.SliceStable(doc.SubjectRows, func(i, j int) bool {
		return doc.SubjectRows[i].SubjectID < doc.SubjectRows[j].SubjectID
	})

	return doc
}

func buildHistogram(m qctypes.Metric, subjects []qctypes.ProcessedSubject) MetricHistogram {
	d := m.Descriptor()
	width := (d.Max - d.Min) / histogramBuckets
	counts := make([]int, histogramBuckets)

	for _, s := range subjects {
		v, ok := s.RawMetrics.Get(m)
		if !ok || width <= 0 {
			continue
		}
		idx := int((v - d.Min) / width)
		if idx < 0 {
			idx = 0
		}
		if idx >= histogramBuckets {
			idx = histogramBuckets - 1
		}
		counts[idx]++
	}

	buckets := make([]HistogramBucket, histogramBuckets)
	for i := range buckets {
		lo := d.Min + float64(i)*width
		hi := lo + width
		buckets[i] = HistogramBucket{RangeLabel: bucketLabel(lo, hi), Count: counts[i]}
	}
	return MetricHistogram{Metric: m, Buckets: buckets}
}

func bucketLabel(lo, hi float64) string {
	return formatFloat(lo) + "-" + formatFloat(hi)
}

// formatFloat is a compact, fixed-precision label for histogram bucket
// edges; these are for human review, not round-tripped.
func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', 2, 64)
}
