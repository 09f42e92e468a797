// Package parsers provides parsers for importing elements and rules
// from external files.
package parsers

import (
	"io"
	"path/filepath"
	"strings"
)

// RawElement represents an element parsed from an external source
// before validation. Relationship lists hold element ids; none of them
// are checked for existence at parse time.
type RawElement struct {
	ID                 string   `json:"id,omitempty"`
	Name               string   `json:"name"`
	Kind               string   `json:"kind"`
	Category           string   `json:"category,omitempty"`
	Description        string   `json:"description,omitempty"`
	Requires           []string `json:"requires,omitempty"`
	Enhances           []string `json:"enhances,omitempty"`
	ConflictsWith      []string `json:"conflicts_with,omitempty"`
	ExcludesCategories []string `json:"excludes_categories,omitempty"`
	MaxInstances       *int     `json:"max_instances,omitempty"` // Pointer to distinguish 0 from unset
	ParentID           string   `json:"parent_id,omitempty"`
	LineNum            int      `json:"-"` // Line number in source file (set by parser)
}

// RawCondition mirrors a rule condition before validation.
type RawCondition struct {
	Type     string `json:"type"`
	Target   string `json:"target,omitempty"`
	Operator string `json:"operator,omitempty"`
	Count    int    `json:"count,omitempty"`
	Logical  string `json:"logical_operator,omitempty"`
}

// RawAction mirrors a rule action before validation.
type RawAction struct {
	Type             string   `json:"type"`
	Severity         string   `json:"severity,omitempty"`
	Message          string   `json:"message,omitempty"`
	Confidence       float64  `json:"confidence,omitempty"`
	TargetTags       []string `json:"target_tags,omitempty"`
	TargetPlotBlocks []string `json:"target_plot_blocks,omitempty"`
}

// RawRule represents a validation rule parsed from an external source
// before validation. Rules import from JSON only.
type RawRule struct {
	ID         string         `json:"id,omitempty"`
	Name       string         `json:"name"`
	Priority   *int           `json:"priority,omitempty"`  // Pointer to distinguish 0 from unset
	IsActive   *bool          `json:"is_active,omitempty"` // Pointer to distinguish false from unset
	DependsOn  []string       `json:"depends_on,omitempty"`
	Conditions []RawCondition `json:"conditions"`
	Actions    []RawAction    `json:"actions"`
	LineNum    int            `json:"-"` // Entry number in source file (set by parser)
}

// Parser defines the interface for parsing elements from various formats.
type Parser interface {
	Parse(r io.Reader) ([]RawElement, error)
}

// ForFormat returns the appropriate element parser for the given format.
// Supported formats: "json", "csv".
func ForFormat(format string) Parser {
	switch strings.ToLower(format) {
	case "json":
		return &JSONParser{}
	case "csv":
		return &CSVParser{}
	default:
		return nil
	}
}

// ForFile returns the appropriate element parser based on file extension.
func ForFile(filename string) Parser {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".json":
		return &JSONParser{}
	case ".csv":
		return &CSVParser{}
	default:
		return nil
	}
}
