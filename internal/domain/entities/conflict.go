package entities

// ConflictKind identifies which policy produced a conflict.
type ConflictKind string

const (
	ConflictDirectExclusion   ConflictKind = "direct_exclusion"
	ConflictCategoryExclusion ConflictKind = "category_exclusion"
	ConflictInstanceLimit     ConflictKind = "instance_limit"
	ConflictCondition         ConflictKind = "condition_conflict"
)

// Conflict is one detected incompatibility within a selection.
type Conflict struct {
	Type     ConflictKind `json:"type"`
	SourceID string       `json:"source_id"`
	TargetID string       `json:"target_id"`
	Message  string       `json:"message"`
	Severity Severity     `json:"severity"`
}

// ResolutionSuggestion proposes a way to clear one conflict.
type ResolutionSuggestion struct {
	Action    string   `json:"action"`
	TargetIDs []string `json:"target_ids"`
	Impact    string   `json:"impact"`
	Reason    string   `json:"reason"`
}

// ConflictReport is the full output of conflict detection.
type ConflictReport struct {
	HasConflicts bool                   `json:"has_conflicts"`
	Conflicts    []Conflict             `json:"conflicts"`
	Suggestions  []ResolutionSuggestion `json:"resolution_suggestions"`
}
