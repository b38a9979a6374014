package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/ageqc/qcpipeline/internal/qctypes"
)

// SQLiteStore persists batch, study, and longitudinal state to a single
// SQLite file, grounded on the teacher pack's northstar.Store idiom:
// database/sql + a blank-imported cgo driver, JSON-serialized nested
// fields, and a mutex guarding every access.
type SQLiteStore struct {
	db     *sql.DB
	dbPath string
	mu     sync.RWMutex
}

// Open creates or opens a qcpipeline SQLite store at path.
func Open(path string) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating storage directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening sqlite store: %w", err)
	}

	s := &SQLiteStore{db: db, dbPath: path}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing schema: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) Close() error { return s.db.Close() }

func (s *SQLiteStore) initSchema() error {
	const schema = `
	CREATE TABLE IF NOT EXISTS batches (
		batch_id TEXT PRIMARY KEY,
		status TEXT NOT NULL,
		completed INTEGER NOT NULL,
		failed INTEGER NOT NULL,
		total INTEGER NOT NULL,
		percent REAL NOT NULL,
		errors_json TEXT,
		created_at DATETIME NOT NULL,
		started_at DATETIME,
		completed_at DATETIME
	);

	CREATE TABLE IF NOT EXISTS studies (
		study_name TEXT PRIMARY KEY,
		normative_dataset TEXT,
		custom_age_groups_json TEXT,
		custom_thresholds_json TEXT,
		exclusion_criteria_json TEXT,
		created_by TEXT,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS timepoints (
		subject_id TEXT NOT NULL,
		session TEXT NOT NULL,
		timepoint_id TEXT NOT NULL,
		days_from_baseline REAL NOT NULL,
		age_at_scan REAL,
		baseline_age REAL,
		sex TEXT,
		study TEXT,
		processed_json TEXT NOT NULL,
		PRIMARY KEY (subject_id, session)
	);
	CREATE INDEX IF NOT EXISTS idx_timepoints_subject ON timepoints(subject_id);
	CREATE INDEX IF NOT EXISTS idx_timepoints_study ON timepoints(study);
	`
	_, err := s.db.Exec(schema)
	return err
}

// --- batches ---

func (s *SQLiteStore) SaveBatch(b qctypes.BatchState) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	errorsJSON, err := json.Marshal(b.Errors)
	if err != nil {
		return fmt.Errorf("marshaling batch errors: %w", err)
	}

	_, err = s.db.Exec(`
		INSERT INTO batches (batch_id, status, completed, failed, total, percent, errors_json, created_at, started_at, completed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(batch_id) DO UPDATE SET
			status = excluded.status,
			completed = excluded.completed,
			failed = excluded.failed,
			total = excluded.total,
			percent = excluded.percent,
			errors_json = excluded.errors_json,
			started_at = excluded.started_at,
			completed_at = excluded.completed_at
	`, b.BatchID, string(b.Status), b.Progress.Completed, b.Progress.Failed, b.Progress.Total, b.Progress.Percent,
		string(errorsJSON), b.CreatedAt, nullTime(b.StartedAt), nullTime(b.CompletedAt))
	if err != nil {
		return fmt.Errorf("saving batch %s: %w", b.BatchID, err)
	}
	return nil
}

func (s *SQLiteStore) LoadBatch(batchID string) (qctypes.BatchState, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var b qctypes.BatchState
	var status string
	var errorsJSON sql.NullString
	var startedAt, completedAt sql.NullTime

	err := s.db.QueryRow(`
		SELECT batch_id, status, completed, failed, total, percent, errors_json, created_at, started_at, completed_at
		FROM batches WHERE batch_id = ?
	`, batchID).Scan(&b.BatchID, &status, &b.Progress.Completed, &b.Progress.Failed, &b.Progress.Total,
		&b.Progress.Percent, &errorsJSON, &b.CreatedAt, &startedAt, &completedAt)
	if err == sql.ErrNoRows {
		return qctypes.BatchState{}, false, nil
	}
	if err != nil {
		return qctypes.BatchState{}, false, fmt.Errorf("loading batch %s: %w", batchID, err)
	}

	b.Status = qctypes.BatchStatus(status)
	if errorsJSON.Valid && errorsJSON.String != "" {
		if err := json.Unmarshal([]byte(errorsJSON.String), &b.Errors); err != nil {
			return qctypes.BatchState{}, false, fmt.Errorf("unmarshaling batch errors: %w", err)
		}
	}
	if startedAt.Valid {
		t := startedAt.Time
		b.StartedAt = &t
	}
	if completedAt.Valid {
		t := completedAt.Time
		b.CompletedAt = &t
	}
	return b, true, nil
}

// --- studies ---

func (s *SQLiteStore) SaveStudy(cfg qctypes.StudyConfiguration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ageGroupsJSON, err := json.Marshal(cfg.CustomAgeGroups)
	if err != nil {
		return err
	}
	thresholdsJSON, err := json.Marshal(cfg.CustomThresholds)
	if err != nil {
		return err
	}
	exclusionJSON, err := json.Marshal(cfg.ExclusionCriteria)
	if err != nil {
		return err
	}

	_, err = s.db.Exec(`
		INSERT INTO studies (study_name, normative_dataset, custom_age_groups_json, custom_thresholds_json, exclusion_criteria_json, created_by, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(study_name) DO UPDATE SET
			normative_dataset = excluded.normative_dataset,
			custom_age_groups_json = excluded.custom_age_groups_json,
			custom_thresholds_json = excluded.custom_thresholds_json,
			exclusion_criteria_json = excluded.exclusion_criteria_json,
			updated_at = excluded.updated_at
	`, cfg.StudyName, cfg.NormativeDataset, string(ageGroupsJSON), string(thresholdsJSON), string(exclusionJSON),
		cfg.CreatedBy, cfg.CreatedAt, cfg.UpdatedAt)
	if err != nil {
		return fmt.Errorf("saving study %s: %w", cfg.StudyName, err)
	}
	return nil
}

func (s *SQLiteStore) LoadStudy(name string) (qctypes.StudyConfiguration, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loadStudyLocked(name)
}

func (s *SQLiteStore) loadStudyLocked(name string) (qctypes.StudyConfiguration, bool, error) {
	var cfg qctypes.StudyConfiguration
	var ageGroupsJSON, thresholdsJSON, exclusionJSON sql.NullString

	err := s.db.QueryRow(`
		SELECT study_name, normative_dataset, custom_age_groups_json, custom_thresholds_json, exclusion_criteria_json, created_by, created_at, updated_at
		FROM studies WHERE study_name = ?
	`, name).Scan(&cfg.StudyName, &cfg.NormativeDataset, &ageGroupsJSON, &thresholdsJSON, &exclusionJSON,
		&cfg.CreatedBy, &cfg.CreatedAt, &cfg.UpdatedAt)
	if err == sql.ErrNoRows {
		return qctypes.StudyConfiguration{}, false, nil
	}
	if err != nil {
		return qctypes.StudyConfiguration{}, false, fmt.Errorf("loading study %s: %w", name, err)
	}

	if ageGroupsJSON.Valid {
		json.Unmarshal([]byte(ageGroupsJSON.String), &cfg.CustomAgeGroups)
	}
	if thresholdsJSON.Valid {
		json.Unmarshal([]byte(thresholdsJSON.String), &cfg.CustomThresholds)
	}
	if exclusionJSON.Valid {
		json.Unmarshal([]byte(exclusionJSON.String), &cfg.ExclusionCriteria)
	}
	return cfg, true, nil
}

func (s *SQLiteStore) ListStudies() ([]qctypes.StudyConfiguration, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(`SELECT study_name FROM studies ORDER BY study_name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, err
		}
		names = append(names, n)
	}

	out := make([]qctypes.StudyConfiguration, 0, len(names))
	for _, n := range names {
		cfg, ok, err := s.loadStudyLocked(n)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, cfg)
		}
	}
	return out, nil
}

func (s *SQLiteStore) DeleteStudy(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.Exec(`DELETE FROM studies WHERE study_name = ?`, name)
	return err
}

// --- longitudinal timepoints ---

// SaveTimepoint persists one timepoint for subject, replacing any
// existing row for the same (subject_id, session) per the spec §5
// at-most-once/idempotence rule.
func (s *SQLiteStore) SaveTimepoint(subject qctypes.LongitudinalSubject, tp qctypes.Timepoint) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	processedJSON, err := json.Marshal(tp.Processed)
	if err != nil {
		return fmt.Errorf("marshaling processed subject: %w", err)
	}

	_, err = s.db.Exec(`
		INSERT INTO timepoints (subject_id, session, timepoint_id, days_from_baseline, age_at_scan, baseline_age, sex, study, processed_json)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(subject_id, session) DO UPDATE SET
			timepoint_id = excluded.timepoint_id,
			days_from_baseline = excluded.days_from_baseline,
			age_at_scan = excluded.age_at_scan,
			baseline_age = excluded.baseline_age,
			sex = excluded.sex,
			study = excluded.study,
			processed_json = excluded.processed_json
	`, subject.SubjectID, tp.Session, tp.TimepointID, tp.DaysFromBaseline, nullFloat(tp.AgeAtScan),
		nullFloat(subject.BaselineAge), string(subject.Sex), subject.Study, string(processedJSON))
	if err != nil {
		return fmt.Errorf("saving timepoint for %s: %w", subject.SubjectID, err)
	}
	return nil
}

func (s *SQLiteStore) LoadSubject(subjectID string) (qctypes.LongitudinalSubject, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loadSubjectLocked(subjectID)
}

func (s *SQLiteStore) loadSubjectLocked(subjectID string) (qctypes.LongitudinalSubject, bool, error) {
	rows, err := s.db.Query(`
		SELECT session, timepoint_id, days_from_baseline, age_at_scan, baseline_age, sex, study, processed_json
		FROM timepoints WHERE subject_id = ? ORDER BY days_from_baseline ASC
	`, subjectID)
	if err != nil {
		return qctypes.LongitudinalSubject{}, false, err
	}
	defer rows.Close()

	subject := qctypes.LongitudinalSubject{SubjectID: subjectID}
	found := false
	for rows.Next() {
		found = true
		var tp qctypes.Timepoint
		var ageAtScan, baselineAge sql.NullFloat64
		var sex, study, processedJSON string

		if err := rows.Scan(&tp.Session, &tp.TimepointID, &tp.DaysFromBaseline, &ageAtScan, &baselineAge, &sex, &study, &processedJSON); err != nil {
			return qctypes.LongitudinalSubject{}, false, err
		}
		if ageAtScan.Valid {
			v := ageAtScan.Float64
			tp.AgeAtScan = &v
		}
		if baselineAge.Valid {
			v := baselineAge.Float64
			subject.BaselineAge = &v
		}
		subject.Sex = qctypes.Sex(sex)
		subject.Study = study
		if err := json.Unmarshal([]byte(processedJSON), &tp.Processed); err != nil {
			return qctypes.LongitudinalSubject{}, false, fmt.Errorf("unmarshaling processed subject: %w", err)
		}
		subject.Timepoints = append(subject.Timepoints, tp)
	}
	if !found {
		return qctypes.LongitudinalSubject{}, false, nil
	}
	return subject, true, nil
}

func (s *SQLiteStore) ListSubjects(study string) ([]qctypes.LongitudinalSubject, error) {
	s.mu.RLock()
	query := `SELECT DISTINCT subject_id FROM timepoints`
	args := []any{}
	if study != "" {
		query += ` WHERE study = ?`
		args = append(args, study)
	}
	rows, err := s.db.Query(query, args...)
	s.mu.RUnlock()
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}

	out := make([]qctypes.LongitudinalSubject, 0, len(ids))
	for _, id := range ids {
		subj, ok, err := s.LoadSubject(id)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, subj)
		}
	}
	return out, nil
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return *t
}

func nullFloat(f *float64) any {
	if f == nil {
		return nil
	}
	return *f
}
