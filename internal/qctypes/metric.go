// Package qctypes holds the core data model shared by every pipeline
// component: metrics, subject info, normative records, thresholds,
// assessments, batches, studies, and longitudinal subjects.
package qctypes

import "fmt"

// Metric identifies one entry in the closed MRIQC metric vocabulary.
// Modeled as a dense enum (rather than a string map) so the hot ingest/
// normalize/assess path never allocates a map per row.
type Metric int

const (
	SNR Metric = iota
	CNR
	FBER
	EFC
	FWHMAvg
	FWHMX
	FWHMY
	FWHMZ
	QI1
	QI2
	CJV
	WM2Max
	DVARS
	FDMean
	FDNum
	FDPerc
	GCOR
	GSRX
	GSRY
	OutlierFraction
	numMetrics
)

// Direction says whether a higher or lower raw value is the better one.
type Direction string

const (
	HigherBetter Direction = "higher_better"
	LowerBetter  Direction = "lower_better"
)

// MetricDescriptor is the static metadata for one metric: its column
// name, sanity range, and verdict direction.
type MetricDescriptor struct {
	Name      string
	Min       float64
	Max       float64
	Direction Direction
	IsInteger bool
}

var descriptors = [numMetrics]MetricDescriptor{
	SNR:             {Name: "snr", Min: 0, Max: 1000, Direction: HigherBetter},
	CNR:             {Name: "cnr", Min: 0, Max: 100, Direction: HigherBetter},
	FBER:            {Name: "fber", Min: 0, Max: 100000, Direction: HigherBetter},
	EFC:             {Name: "efc", Min: 0, Max: 1, Direction: LowerBetter},
	FWHMAvg:         {Name: "fwhm_avg", Min: 0, Max: 20, Direction: LowerBetter},
	FWHMX:           {Name: "fwhm_x", Min: 0, Max: 20, Direction: LowerBetter},
	FWHMY:           {Name: "fwhm_y", Min: 0, Max: 20, Direction: LowerBetter},
	FWHMZ:           {Name: "fwhm_z", Min: 0, Max: 20, Direction: LowerBetter},
	QI1:             {Name: "qi1", Min: 0, Max: 1, Direction: LowerBetter},
	QI2:             {Name: "qi2", Min: 0, Max: 1, Direction: LowerBetter},
	CJV:             {Name: "cjv", Min: 0, Max: 10, Direction: LowerBetter},
	WM2Max:          {Name: "wm2max", Min: 0, Max: 1, Direction: HigherBetter},
	DVARS:           {Name: "dvars", Min: 0, Max: 1000, Direction: LowerBetter},
	FDMean:          {Name: "fd_mean", Min: 0, Max: 10, Direction: LowerBetter},
	FDNum:           {Name: "fd_num", Min: 0, Max: 1e9, Direction: LowerBetter, IsInteger: true},
	FDPerc:          {Name: "fd_perc", Min: 0, Max: 100, Direction: LowerBetter},
	GCOR:            {Name: "gcor", Min: -1, Max: 1, Direction: LowerBetter},
	GSRX:            {Name: "gsr_x", Min: -1e9, Max: 1e9, Direction: LowerBetter},
	GSRY:            {Name: "gsr_y", Min: -1e9, Max: 1e9, Direction: LowerBetter},
	OutlierFraction: {Name: "outlier_fraction", Min: 0, Max: 1, Direction: LowerBetter},
}

// Descriptor returns the static metadata for m.
func (m Metric) Descriptor() MetricDescriptor {
	return descriptors[m]
}

// String returns the column/vocabulary name of m.
func (m Metric) String() string {
	if m < 0 || m >= numMetrics {
		return fmt.Sprintf("metric(%d)", int(m))
	}
	return descriptors[m].Name
}

var byName = func() map[string]Metric {
	out := make(map[string]Metric, numMetrics)
	for i := Metric(0); i < numMetrics; i++ {
		out[descriptors[i].Name] = i
	}
	return out
}()

// ParseMetric resolves a vocabulary column name to its Metric. Used by
// ingest schema validation, normative dataset loading and the CLI, never
// on the per-row hot path.
func ParseMetric(name string) (Metric, bool) {
	m, ok := byName[name]
	return m, ok
}

// AllMetrics returns the vocabulary in declaration order, the same order
// used for CSV export column layout (spec §4.10).
func AllMetrics() []Metric {
	out := make([]Metric, numMetrics)
	for i := range out {
		out[i] = Metric(i)
	}
	return out
}
