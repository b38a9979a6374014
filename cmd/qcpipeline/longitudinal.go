package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ageqc/qcpipeline/internal/longitudinal"
	"github.com/ageqc/qcpipeline/internal/qctypes"
)

var longitudinalCmd = &cobra.Command{
	Use:   "longitudinal",
	Short: "Query longitudinal trends for a subject or study",
}

var trendMetric string

var longitudinalTrendCmd = &cobra.Command{
	Use:   "trend [subject-id]",
	Short: "Compute the OLS trend for one subject, or all metrics if --metric is omitted",
	Args:  cobra.ExactArgs(1),
	RunE:  runLongitudinalTrend,
}

var longitudinalSummaryCmd = &cobra.Command{
	Use:   "summary [study]",
	Short: "Aggregate trend directions and verdict distribution across a study",
	Args:  cobra.ExactArgs(1),
	RunE:  runLongitudinalSummary,
}

func init() {
	longitudinalTrendCmd.Flags().StringVar(&trendMetric, "metric", "", "single metric name (default: all metrics)")
	longitudinalCmd.AddCommand(longitudinalTrendCmd, longitudinalSummaryCmd)
}

func newEngine() (*longitudinal.Engine, func(), error) {
	store, err := openStore()
	if err != nil {
		return nil, nil, err
	}
	norm, err := loadNormativeStore()
	if err != nil {
		store.Close()
		return nil, nil, err
	}
	cfg, err := loadConfig()
	if err != nil {
		store.Close()
		return nil, nil, err
	}
	eng := longitudinal.New(store, norm, longitudinal.StabilityConfig{
		SlopeEpsilon: cfg.StableSlopeEpsilon,
		SigmaEpsilon: cfg.StableSigmaEpsilon,
	})
	return eng, func() { store.Close() }, nil
}

func runLongitudinalTrend(cmd *cobra.Command, args []string) error {
	eng, closeFn, err := newEngine()
	if err != nil {
		return err
	}
	defer closeFn()

	subjectID := args[0]

	if trendMetric != "" {
		m, ok := qctypes.ParseMetric(trendMetric)
		if !ok {
			return fmt.Errorf("unknown metric %q", trendMetric)
		}
		trend, found, err := eng.ComputeTrend(subjectID, m)
		if err != nil {
			return err
		}
		if !found {
			warnf("no trend available for %s/%s (need at least two timepoints)", subjectID, trendMetric)
			return nil
		}
		printTrend(trend)
		return nil
	}

	trends, err := eng.ComputeAllTrends(subjectID)
	if err != nil {
		return err
	}
	if len(trends) == 0 {
		warnf("no trends available for %s", subjectID)
		return nil
	}
	for _, t := range trends {
		printTrend(t)
	}
	return nil
}

func printTrend(t qctypes.Trend) {
	infof("%s: slope=%s r2=%s p=%s direction=%s", t.Metric, floatOrDash(t.Slope), floatOrDash(t.RSquared), floatOrDash(t.PValue), t.Direction)
}

func floatOrDash(v *float64) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("%.6f", *v)
}

func runLongitudinalSummary(cmd *cobra.Command, args []string) error {
	eng, closeFn, err := newEngine()
	if err != nil {
		return err
	}
	defer closeFn()

	summary, err := eng.StudySummary(args[0])
	if err != nil {
		return err
	}

	successf("study %s: %d subjects, %d timepoints", summary.Study, summary.SubjectCount, summary.TimepointCount)
	for verdict, count := range summary.OverallVerdictDist {
		infof("  verdict %s: %d", verdict, count)
	}
	return nil
}
