package qctypes

import "time"

// BatchStatus is the lifecycle state of a batch (spec §3).
type BatchStatus string

const (
	BatchPending    BatchStatus = "pending"
	BatchProcessing BatchStatus = "processing"
	BatchCompleted  BatchStatus = "completed"
	BatchFailed     BatchStatus = "failed"
	BatchCancelled  BatchStatus = "cancelled"
)

// IsTerminal reports whether s is a terminal status.
func (s BatchStatus) IsTerminal() bool {
	switch s {
	case BatchCompleted, BatchFailed, BatchCancelled:
		return true
	default:
		return false
	}
}

// Progress is the monotonic row counter set for a batch.
type Progress struct {
	Completed int
	Failed    int
	Total     int
	Percent   float64
}

// BatchState is the full lifecycle record for one batch run (spec §3).
type BatchState struct {
	BatchID     string
	Status      BatchStatus
	Progress    Progress
	Errors      []ProcessingError
	CreatedAt   time.Time
	StartedAt   *time.Time
	CompletedAt *time.Time
}

// Snapshot returns a value copy safe to hand to an external reader
// without exposing the orchestrator's internal slices to mutation.
func (b BatchState) Snapshot() BatchState {
	out := b
	out.Errors = append([]ProcessingError(nil), b.Errors...)
	return out
}
