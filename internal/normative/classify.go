package normative

import (
	"sync"

	"github.com/ageqc/qcpipeline/internal/qctypes"
)

// Classify finds the age group containing age, scanning groups in
// MinAge order. Age groups are inclusive on both ends (spec §4.2).
// Returns ⊥ (false) if age falls in a gap between groups or outside
// every group's range.
func Classify(age float64, groups []qctypes.AgeGroup) (qctypes.AgeGroup, bool) {
	for _, g := range groups {
		if age >= g.MinAge && age <= g.MaxAge {
			return g, true
		}
	}
	return qctypes.AgeGroup{}, false
}

// Classifier wraps Classify with a per-age cache whose entries are
// stamped with the table version, so entries cached before SetAgeGroups
// installs a different table are ignored. Reads take the read lock.
type Classifier struct {
	mu      sync.RWMutex
	groups  []qctypes.AgeGroup
	version uint64
	cache   map[float64]cacheEntry
}

type cacheEntry struct {
	version uint64
	group   qctypes.AgeGroup
	ok      bool
}

// NewClassifier builds a Classifier over the given age-group table.
func NewClassifier(groups []qctypes.AgeGroup) *Classifier {
	return &Classifier{
		groups: qctypes.SortAgeGroups(groups),
		cache:  make(map[float64]cacheEntry),
	}
}

// SetAgeGroups installs a new age-group table, invalidating the cache.
func (c *Classifier) SetAgeGroups(groups []qctypes.AgeGroup) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.groups = qctypes.SortAgeGroups(groups)
	c.version++
	c.cache = make(map[float64]cacheEntry)
}

// Classify returns the age group containing age, using the cache when
// the age-group table has not changed since the entry was populated.
func (c *Classifier) Classify(age float64) (qctypes.AgeGroup, bool) {
	c.mu.RLock()
	if e, found := c.cache[age]; found && e.version == c.version {
		c.mu.RUnlock()
		return e.group, e.ok
	}
	groups, version := c.groups, c.version
	c.mu.RUnlock()

	group, ok := Classify(age, groups)

	c.mu.Lock()
	if c.version == version {
		c.cache[age] = cacheEntry{version: version, group: group, ok: ok}
	}
	c.mu.Unlock()

	return group, ok
}

// AgeCoverageReport summarizes which ages in a dataset fall outside
// every configured age group (SPEC_FULL §6, supplemented feature
// grounded on the original's validate_age_coverage).
type AgeCoverageReport struct {
	TotalAges     int
	UncoveredAges []float64
}

// Uncovered reports whether any age fell in a gap.
func (r AgeCoverageReport) Uncovered() bool { return len(r.UncoveredAges) > 0 }

// ValidateAgeCoverage classifies every age against groups and reports
// which ones land in a gap, so a study's custom age-group table can be
// checked against the ages actually present in an input file before a
// batch run.
func ValidateAgeCoverage(ages []float64, groups []qctypes.AgeGroup) AgeCoverageReport {
	report := AgeCoverageReport{TotalAges: len(ages)}
	sorted := qctypes.SortAgeGroups(groups)
	for _, age := range ages {
		if _, ok := Classify(age, sorted); !ok {
			report.UncoveredAges = append(report.UncoveredAges, age)
		}
	}
	return report
}
