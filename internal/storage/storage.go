// Package storage implements the persistence layer backing the Batch
// Orchestrator (C7), Study Config Store (C11), and Longitudinal Engine
// (C9): BatchState, StudyConfiguration, and LongitudinalSubject records.
package storage

import (
	"github.com/ageqc/qcpipeline/internal/qctypes"
)

// Store is the persistence contract every component above it depends
// on through this interface rather than a concrete database type.
type Store interface {
	SaveBatch(state qctypes.BatchState) error
	LoadBatch(batchID string) (qctypes.BatchState, bool, error)

	SaveStudy(cfg qctypes.StudyConfiguration) error
	LoadStudy(name string) (qctypes.StudyConfiguration, bool, error)
	ListStudies() ([]qctypes.StudyConfiguration, error)
	DeleteStudy(name string) error

	SaveTimepoint(subject qctypes.LongitudinalSubject, tp qctypes.Timepoint) error
	LoadSubject(subjectID string) (qctypes.LongitudinalSubject, bool, error)
	ListSubjects(study string) ([]qctypes.LongitudinalSubject, error)

	Close() error
}
