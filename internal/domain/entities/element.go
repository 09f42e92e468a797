// Package entities contains core domain data structures.
package entities

import (
	"strings"
	"time"
)

// ElementKind represents the category of a narrative element.
type ElementKind string

const (
	KindPlotBlock ElementKind = "plot_block"
	KindCondition ElementKind = "condition"
	KindTag       ElementKind = "tag"
)

// IsValid reports whether the kind is one of the built-in element kinds.
func (k ElementKind) IsValid() bool {
	switch k {
	case KindPlotBlock, KindCondition, KindTag:
		return true
	}
	return false
}

// Element represents a single narrative element: a plot block, a story
// condition, or a tag. All three kinds share the same relationship
// fields; detectors treat them uniformly and branch on Kind only where
// behavior differs (hierarchy traversal applies to plot blocks).
//
// Relationship lists hold element ids. Ids are not required to resolve:
// a dangling reference is an absent neighbor, never a failure.
type Element struct {
	ID                 string      `json:"id"`
	FandomID           string      `json:"fandom_id"`
	Kind               ElementKind `json:"kind"`
	Name               string      `json:"name"`
	Category           string      `json:"category,omitempty"`
	Description        string      `json:"description,omitempty"`
	Requires           []string    `json:"requires,omitempty"`
	Enhances           []string    `json:"enhances,omitempty"`
	ConflictsWith      []string    `json:"conflicts_with,omitempty"`
	ExcludesCategories []string    `json:"excludes_categories,omitempty"`
	MaxInstances       *int        `json:"max_instances,omitempty"`
	ParentID           string      `json:"parent_id,omitempty"`
	Children           []string    `json:"children,omitempty"`
	Embedding          []float32   `json:"embedding,omitempty"`
	CreatedAt          time.Time   `json:"created_at"`
	UpdatedAt          time.Time   `json:"updated_at"`
}

// NormalizeName converts a name to lowercase for case-insensitive matching.
func NormalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
