package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ageqc/qcpipeline/internal/batch"
	"github.com/ageqc/qcpipeline/internal/events"
	"github.com/ageqc/qcpipeline/internal/ingest"
	"github.com/ageqc/qcpipeline/internal/qctypes"
)

var (
	batchStudyName          string
	batchApplyNormalization bool
	batchApplyAssessment    bool
)

var batchCmd = &cobra.Command{
	Use:   "batch [file]",
	Short: "Run a batch QC assessment over a CSV report",
	Args:  cobra.ExactArgs(1),
	RunE:  runBatch,
}

func init() {
	batchCmd.Flags().StringVar(&batchStudyName, "study", "", "study configuration name to apply (optional)")
	batchCmd.Flags().BoolVar(&batchApplyNormalization, "normalize", true, "compute age-normalized percentiles/z-scores")
	batchCmd.Flags().BoolVar(&batchApplyAssessment, "assess", true, "compute per-subject quality assessments")
}

func runBatch(cmd *cobra.Command, args []string) error {
	f, err := os.Open(args[0])
	if err != nil {
		return err
	}
	defer f.Close()

	header, rows, err := ingest.Parse(f, ingest.Options{})
	if err != nil {
		return err
	}

	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	norm, err := loadNormativeStore()
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	var study *qctypes.StudyConfiguration
	if batchStudyName != "" {
		s, ok, err := store.LoadStudy(batchStudyName)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("study %q not found", batchStudyName)
		}
		study = &s
	}

	bus := events.New()
	sub, ch := bus.Subscribe(events.DashboardTopic)
	defer bus.Unsubscribe(events.DashboardTopic, sub)

	go func() {
		for ev := range ch {
			switch ev.Type {
			case events.TypeBatchProgress:
				infof("progress: %v", ev.Data)
				logger.Debug("batch progress", zap.Any("data", ev.Data))
			case events.TypeProcessingError:
				warnf("row error: %v", ev.Data)
				logger.Warn("row processing error", zap.Any("data", ev.Data))
			}
		}
	}()

	orch := batch.New(norm, bus, store, cfg)

	ctx := context.Background()
	if cfg.BatchTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.BatchTimeout)
		defer cancel()
	}

	batchID := uuid.NewString()
	start := time.Now()
	logger.Info("batch starting", zap.String("batch_id", batchID), zap.String("file", args[0]), zap.Int("rows", len(rows)))
	state, _, err := orch.Run(ctx, batchID, header, rows, batch.Config{
		ApplyNormalization: batchApplyNormalization,
		ApplyAssessment:    batchApplyAssessment,
		Study:              study,
	})
	if err != nil {
		logger.Error("batch run failed", zap.String("batch_id", batchID), zap.Error(err))
		return err
	}

	switch state.Status {
	case qctypes.BatchCompleted:
		successf("batch %s completed in %s: %d/%d rows processed", batchID, time.Since(start), state.Progress.Completed, state.Progress.Total)
		logger.Info("batch completed", zap.String("batch_id", batchID), zap.Duration("elapsed", time.Since(start)), zap.Int("completed", state.Progress.Completed), zap.Int("total", state.Progress.Total))
	case qctypes.BatchFailed:
		warnf("batch %s failed: %d/%d rows failed", batchID, state.Progress.Failed, state.Progress.Total)
		logger.Warn("batch failed", zap.String("batch_id", batchID), zap.Int("failed", state.Progress.Failed), zap.Int("total", state.Progress.Total))
	case qctypes.BatchCancelled:
		warnf("batch %s cancelled: %d/%d rows processed before cancellation", batchID, state.Progress.Completed, state.Progress.Total)
		logger.Warn("batch cancelled", zap.String("batch_id", batchID), zap.Int("completed", state.Progress.Completed), zap.Int("total", state.Progress.Total))
	}

	return nil
}
