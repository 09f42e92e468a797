package entities

// RuleError is a blocking diagnostic produced by rule evaluation.
// RuleID is "system" when the engine itself failed rather than a rule.
type RuleError struct {
	RuleID   string   `json:"ruleId"`
	Message  string   `json:"message"`
	Severity Severity `json:"severity"`
}

// RuleWarning is a non-blocking diagnostic the user may dismiss.
type RuleWarning struct {
	RuleID    string `json:"ruleId"`
	Message   string `json:"message"`
	CanIgnore bool   `json:"canIgnore"`
}

// RuleSuggestion is advisory output weighted by a confidence in [0,1].
type RuleSuggestion struct {
	RuleID     string  `json:"ruleId"`
	Message    string  `json:"message"`
	Confidence float64 `json:"confidence"`
}

// ConditionTrace records the outcome of one condition evaluation.
type ConditionTrace struct {
	Type            ConditionType `json:"type"`
	Target          string        `json:"target,omitempty"`
	Passed          bool          `json:"passed"`
	ExecutionTimeMS float64       `json:"executionTime"`
}

// AppliedRule records how one rule fared during a validation pass.
type AppliedRule struct {
	RuleID          string           `json:"ruleId"`
	RuleName        string           `json:"ruleName"`
	Matched         bool             `json:"matched"`
	Conditions      []ConditionTrace `json:"conditionResults"`
	ActionsApplied  int              `json:"actionsApplied"`
	ExecutionTimeMS float64          `json:"executionTime"`
}

// ValidationResult aggregates everything one validation pass produced.
// Field names are a stable contract for downstream consumers; durations
// are reported in milliseconds.
type ValidationResult struct {
	IsValid         bool             `json:"isValid"`
	Errors          []RuleError      `json:"errors"`
	Warnings        []RuleWarning    `json:"warnings"`
	Suggestions     []RuleSuggestion `json:"suggestions"`
	RulesEvaluated  int              `json:"rulesEvaluated"`
	AppliedRules    []AppliedRule    `json:"appliedRules"`
	ExecutionTimeMS float64          `json:"executionTime"`
}
