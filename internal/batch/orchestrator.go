// Package batch implements the concurrent worker-pool pipeline (C7):
// rows flow through ingest validation, optional normalization, and
// optional assessment, with progress and lifecycle events fanned out
// through the Event Bus and batch state optionally persisted.
package batch

import (
	"context"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ageqc/qcpipeline/internal/assess"
	"github.com/ageqc/qcpipeline/internal/config"
	"github.com/ageqc/qcpipeline/internal/events"
	"github.com/ageqc/qcpipeline/internal/ingest"
	"github.com/ageqc/qcpipeline/internal/normalize"
	"github.com/ageqc/qcpipeline/internal/normative"
	"github.com/ageqc/qcpipeline/internal/qctypes"
	"github.com/ageqc/qcpipeline/internal/storage"
)

// Config is the per-batch processing configuration (spec §4.7's
// BatchConfig).
type Config struct {
	ApplyNormalization bool
	ApplyAssessment    bool
	// Study carries custom age groups / thresholds to apply on top of
	// the Normative Store's defaults. Nil means no study overrides.
	Study *qctypes.StudyConfiguration
}

// Orchestrator runs batches of rows through the pipeline against one
// Normative Store, publishing lifecycle/progress events and optionally
// persisting batch state.
type Orchestrator struct {
	norm  *normative.Store
	bus   *events.Bus
	store storage.Store // nil disables persistence
	cfg   config.Config
}

// New builds an Orchestrator. store may be nil to skip persistence.
func New(norm *normative.Store, bus *events.Bus, store storage.Store, cfg config.Config) *Orchestrator {
	return &Orchestrator{norm: norm, bus: bus, store: store, cfg: cfg}
}

// rowResult is the outcome of processing one input row, written into a
// pre-sized slice at its row index so result order matches input order
// regardless of completion order (spec §4.7: "collected in submission
// order using row index").
type rowResult struct {
	subject *qctypes.ProcessedSubject
	errRow  *qctypes.ProcessingError
}

// Run processes header/rows to completion and returns the final batch
// state plus the processed subjects in row order (failed or unprocessed
// rows leave a zero-value entry). Cancelling ctx — directly or via a deadline — transitions
// the batch to cancelled; in-flight rows are allowed to finish.
func (o *Orchestrator) Run(ctx context.Context, batchID string, header []string, rows [][]string, bcfg Config) (qctypes.BatchState, []qctypes.ProcessedSubject, error) {
	total := len(rows)
	state := qctypes.BatchState{
		BatchID:   batchID,
		Status:    qctypes.BatchPending,
		Progress:  qctypes.Progress{Total: total},
		CreatedAt: time.Now(),
	}
	o.persist(state)

	runCtx := ctx
	var cancel context.CancelFunc
	if o.cfg.BatchTimeout > 0 {
		runCtx, cancel = context.WithTimeout(ctx, o.cfg.BatchTimeout)
	} else {
		runCtx, cancel = context.WithCancel(ctx)
	}
	defer cancel()

	started := time.Now()
	state.Status = qctypes.BatchProcessing
	state.StartedAt = &started
	o.persist(state)
	o.bus.PublishBatchEvent(batchID, events.Event{Type: events.TypeBatchStarted, BatchID: batchID, Data: map[string]any{"total": total}})

	results := make([]rowResult, total)
	var completed, failed int64

	ageGroups := o.norm.EffectiveAgeGroups(studyAgeGroups(bcfg.Study))

	type job struct {
		index int
		row   []string
	}
	jobs := make(chan job, total)
	for i, r := range rows {
		jobs <- job{index: i, row: r}
	}
	close(jobs)

	progressInterval := o.cfg.ProgressEventIntervalRows
	if progressInterval <= 0 {
		progressInterval = 1
	}

	emitProgress := func() {
		c := atomic.LoadInt64(&completed)
		f := atomic.LoadInt64(&failed)
		percent := 0.0
		if total > 0 {
			percent = 100 * float64(c+f) / float64(total)
		}
		o.bus.PublishBatchEvent(batchID, events.Event{
			Type:    events.TypeBatchProgress,
			BatchID: batchID,
			Data: map[string]any{
				"completed": c,
				"failed":    f,
				"total":     total,
				"percent":   percent,
			},
		})
	}

	poolSize := o.cfg.WorkerPoolSize
	if poolSize <= 0 {
		poolSize = 1
	}

	eg, egCtx := errgroup.WithContext(runCtx)
	for w := 0; w < poolSize; w++ {
		eg.Go(func() error {
			for j := range jobs {
				if egCtx.Err() != nil {
					// Cooperative cancellation: do not start new rows,
					// this worker just drains the remaining jobs until
					// the closed channel is exhausted, then exits.
					continue
				}
				o.processRow(egCtx, j.index, header, j.row, bcfg, ageGroups, &results[j.index])

				if results[j.index].errRow != nil {
					atomic.AddInt64(&failed, 1)
					o.bus.PublishBatchEvent(batchID, events.Event{
						Type:    events.TypeProcessingError,
						BatchID: batchID,
						Data:    results[j.index].errRow,
					})
				} else {
					atomic.AddInt64(&completed, 1)
					o.bus.PublishBatchEvent(batchID, events.Event{
						Type:    events.TypeSubjectProcessed,
						BatchID: batchID,
						Data: map[string]any{
							"subject_id": results[j.index].subject.SubjectInfo.SubjectID,
							"row_index":  j.index,
							"verdict":    results[j.index].subject.Assessment.Overall,
						},
					})
				}

				done := atomic.LoadInt64(&completed) + atomic.LoadInt64(&failed)
				if done%int64(progressInterval) == 0 || int(done) == total {
					emitProgress()
				}
			}
			return nil
		})
	}
	eg.Wait()

	finalCompleted := atomic.LoadInt64(&completed)
	finalFailed := atomic.LoadInt64(&failed)
	cancelled := runCtx.Err() != nil && (finalCompleted+finalFailed) < int64(total)

	state.Progress = qctypes.Progress{
		Completed: int(finalCompleted),
		Failed:    int(finalFailed),
		Total:     total,
		Percent:   progressPercent(finalCompleted, finalFailed, total),
	}

	switch {
	case cancelled:
		state.Status = qctypes.BatchCancelled
	case total > 0 && int(finalFailed) == total:
		state.Status = qctypes.BatchFailed
	default:
		state.Status = qctypes.BatchCompleted
	}
	completedAt := time.Now()
	state.CompletedAt = &completedAt

	var errs []qctypes.ProcessingError
	subjects := make([]qctypes.ProcessedSubject, total)
	for i, r := range results {
		if r.errRow != nil {
			errs = append(errs, *r.errRow)
			continue
		}
		if r.subject != nil {
			subjects[i] = *r.subject
		}
	}
	state.Errors = errs
	o.persist(state)

	terminalType := events.TypeBatchCompleted
	switch state.Status {
	case qctypes.BatchFailed:
		terminalType = events.TypeBatchFailed
	case qctypes.BatchCancelled:
		terminalType = events.TypeBatchCancelled
	}
	o.bus.PublishBatchEvent(batchID, events.Event{
		Type:    terminalType,
		BatchID: batchID,
		Data: map[string]any{
			"completed":  finalCompleted,
			"failed":     finalFailed,
			"elapsed_ms": time.Since(started).Milliseconds(),
		},
	})

	return state, subjects, nil
}

func (o *Orchestrator) processRow(ctx context.Context, index int, header []string, row []string, bcfg Config, ageGroups []qctypes.AgeGroup, out *rowResult) {
	info, metrics, err := ingest.ToSubject(row, header)
	if err != nil {
		out.errRow = &qctypes.ProcessingError{RowIndex: index, Code: "validation/row", Message: err.Error()}
		return
	}

	var normalized *qctypes.NormalizedMetrics
	var ageGroupName string
	if info.Age != nil {
		if ag, ok := normative.Classify(*info.Age, ageGroups); ok {
			ageGroupName = ag.Name
		}
	}

	if bcfg.ApplyNormalization {
		nm, _, _ := normalize.Normalize(metrics, info.Age, ageGroups, o.norm)
		normalized = nm
	}

	subject := qctypes.ProcessedSubject{
		SubjectInfo:         info,
		RawMetrics:          metrics,
		NormalizedMetrics:   normalized,
		ProcessingTimestamp: time.Now(),
		ProcessingVersion:   qctypes.ProcessingVersion,
		RowIndex:            index,
	}

	if bcfg.ApplyAssessment {
		subject.Assessment = assess.Assess(metrics, ageGroupName, o.norm, bcfg.Study, normalized)
	} else {
		subject.Assessment = qctypes.NewQualityAssessment()
	}

	out.subject = &subject
}

func (o *Orchestrator) persist(state qctypes.BatchState) {
	if o.store == nil {
		return
	}
	// Persistence failures do not abort processing (spec §7 only names
	// orchestration/cancelled and orchestration/timeout as orchestrator
	// error kinds); a write failure here is swallowed deliberately.
	_ = o.store.SaveBatch(state.Snapshot())
}

func progressPercent(completed, failed int64, total int) float64 {
	if total == 0 {
		return 100
	}
	return 100 * float64(completed+failed) / float64(total)
}

func studyAgeGroups(study *qctypes.StudyConfiguration) []qctypes.AgeGroup {
	if study == nil {
		return nil
	}
	return study.CustomAgeGroups
}
