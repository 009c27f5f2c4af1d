package types

import (
	"errors"
	"fmt"
	"time"
)

// Kind classifies a fragment by the part of the profile it came from.
// Kind is assigned when the fragment is created and never changes;
// re-classifying content means creating a new fragment.
type Kind string

const (
	KindExperience  Kind = "experience"
	KindProject     Kind = "project"
	KindSkill       Kind = "skill"
	KindEducation   Kind = "education"
	KindAchievement Kind = "achievement"
	KindNarrative   Kind = "narrative"
)

// AllKinds lists every valid fragment kind.
var AllKinds = []Kind{
	KindExperience,
	KindProject,
	KindSkill,
	KindEducation,
	KindAchievement,
	KindNarrative,
}

// Valid reports whether k is a known fragment kind. The empty kind is
// not valid on a fragment; it is only meaningful as an unrestricted
// filter on a query.
func (k Kind) Valid() bool {
	switch k {
	case KindExperience, KindProject, KindSkill, KindEducation, KindAchievement, KindNarrative:
		return true
	default:
		return false
	}
}

// Importance is an author-assigned ordering of how central a fragment
// is to the profile.
type Importance string

const (
	ImportanceLow      Importance = "low"
	ImportanceMedium   Importance = "medium"
	ImportanceHigh     Importance = "high"
	ImportanceCritical Importance = "critical"
)

// Score maps importance onto a fixed [0,1] scale used by the fuser.
// Unknown values score as low rather than failing; importance is a
// ranking hint, not a validity gate.
func (i Importance) Score() float64 {
	switch i {
	case ImportanceCritical:
		return 1.0
	case ImportanceHigh:
		return 0.75
	case ImportanceMedium:
		return 0.5
	default:
		return 0.25
	}
}

// Valid reports whether i is a known importance level.
func (i Importance) Valid() bool {
	switch i {
	case ImportanceLow, ImportanceMedium, ImportanceHigh, ImportanceCritical:
		return true
	default:
		return false
	}
}

// Fragment is a unit of retrievable knowledge about the profile owner:
// a job, a project, a skill cluster, a degree. Fragments are created by
// the ingestion job; the retrieval pipeline is read-only over them.
type Fragment struct {
	// ID is stable and externally referenceable. It is the join key
	// between the relational store and the vector index.
	ID string

	Kind  Kind
	Title string
	Body  string

	// Tags are free-form labels used for keyword matching.
	Tags []string

	Importance Importance

	// RelevanceWeight is an author-assigned prior in [0,1].
	RelevanceWeight float64

	// DateRange is free text ("2021 - 2023"). Used for tie-breaking and
	// display only, never parsed for time filtering.
	DateRange string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Validate checks the fragment invariants that the store enforces on write.
func (f *Fragment) Validate() error {
	if f.ID == "" {
		return errors.New("fragment ID is required")
	}
	if !f.Kind.Valid() {
		return fmt.Errorf("invalid fragment kind %q", f.Kind)
	}
	if f.Title == "" && f.Body == "" {
		return errors.New("fragment must have a title or a body")
	}
	if !f.Importance.Valid() {
		return fmt.Errorf("invalid importance %q", f.Importance)
	}
	if f.RelevanceWeight < 0 || f.RelevanceWeight > 1 {
		return fmt.Errorf("relevance weight %v outside [0,1]", f.RelevanceWeight)
	}
	return nil
}

// HasTag reports whether the fragment carries the given tag,
// compared case-insensitively by the caller's convention (tags are
// stored as written by the author).
func (f *Fragment) HasTag(tag string) bool {
	for _, t := range f.Tags {
		if t == tag {
			return true
		}
	}
	return false
}
