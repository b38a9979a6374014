// Package study implements the Study Config Store (C11): CRUD over
// named StudyConfiguration records with the §3 invariants enforced
// server-side before any write reaches persistence.
package study

import (
	"fmt"
	"time"

	"github.com/ageqc/qcpipeline/internal/qctypes"
	"github.com/ageqc/qcpipeline/internal/storage"
)

// Store wraps a storage.Store with the validation the raw persistence
// layer does not perform: uniqueness of study_name on create, and the
// §3 age-group/threshold invariants on every write.
type Store struct {
	backing storage.Store
}

func New(backing storage.Store) *Store {
	return &Store{backing: backing}
}

// Create inserts a new study configuration. Fails if a study with the
// same name already exists (spec §3: "unique by study_name").
func (s *Store) Create(cfg qctypes.StudyConfiguration) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("creating study %s: %w", cfg.StudyName, err)
	}
	if _, exists, err := s.backing.LoadStudy(cfg.StudyName); err != nil {
		return err
	} else if exists {
		return fmt.Errorf("creating study %s: a study with this name already exists", cfg.StudyName)
	}

	now := time.Now()
	cfg.CreatedAt = now
	cfg.UpdatedAt = now
	return s.backing.SaveStudy(cfg)
}

// Update replaces an existing study's configuration. Fails if the study
// does not exist.
func (s *Store) Update(cfg qctypes.StudyConfiguration) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("updating study %s: %w", cfg.StudyName, err)
	}
	existing, exists, err := s.backing.LoadStudy(cfg.StudyName)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("updating study %s: not found", cfg.StudyName)
	}

	cfg.CreatedAt = existing.CreatedAt
	cfg.UpdatedAt = time.Now()
	return s.backing.SaveStudy(cfg)
}

// Delete removes a study configuration. Per spec §3, deletion cascades
// to its custom age groups and thresholds — both are embedded fields on
// the StudyConfiguration record itself, so removing the row is the full
// cascade; there is no separate child table to clean up.
func (s *Store) Delete(name string) error {
	return s.backing.DeleteStudy(name)
}

// Get returns one study's configuration.
func (s *Store) Get(name string) (qctypes.StudyConfiguration, bool, error) {
	return s.backing.LoadStudy(name)
}

// List returns every study configuration.
func (s *Store) List() ([]qctypes.StudyConfiguration, error) {
	return s.backing.ListStudies()
}
