package qctypes

import (
	"fmt"
	"sort"
)

// AgeGroup is a named, inclusive age interval used to key normative
// statistics and thresholds.
type AgeGroup struct {
	Name        string
	MinAge      float64
	MaxAge      float64
	Description string
}

// DefaultAgeGroups is the built-in age-group table (spec §3).
func DefaultAgeGroups() []AgeGroup {
	return []AgeGroup{
		{Name: "pediatric", MinAge: 6, MaxAge: 12, Description: "Pediatric (6-12 years)"},
		{Name: "adolescent", MinAge: 13, MaxAge: 17, Description: "Adolescent (13-17 years)"},
		{Name: "young_adult", MinAge: 18, MaxAge: 35, Description: "Young adult (18-35 years)"},
		{Name: "middle_age", MinAge: 36, MaxAge: 65, Description: "Middle age (36-65 years)"},
		{Name: "elderly", MinAge: 66, MaxAge: 100, Description: "Elderly (66-100 years)"},
	}
}

// ValidateAgeGroups checks the non-overlap invariant: sorted by MinAge,
// each group's MinAge < MaxAge and no two groups' ranges intersect.
func ValidateAgeGroups(groups []AgeGroup) error {
	sorted := make([]AgeGroup, len(groups))
	copy(sorted, groups)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].MinAge < sorted[j].MinAge })

	for i, g := range sorted {
		if g.MinAge >= g.MaxAge {
			return fmt.Errorf("age group %q has min_age %g >= max_age %g", g.Name, g.MinAge, g.MaxAge)
		}
		if i > 0 && g.MinAge <= sorted[i-1].MaxAge {
			return fmt.Errorf("age group %q overlaps with %q", g.Name, sorted[i-1].Name)
		}
	}
	return nil
}

// SortAgeGroups returns groups ordered by MinAge ascending (spec §4.1).
func SortAgeGroups(groups []AgeGroup) []AgeGroup {
	out := make([]AgeGroup, len(groups))
	copy(out, groups)
	sort.Slice(out, func(i, j int) bool { return out[i].MinAge < out[j].MinAge })
	return out
}
