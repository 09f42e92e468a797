package entities

import (
	"fmt"
	"time"
)

// ConditionType identifies what a rule condition inspects.
type ConditionType string

const (
	ConditionTagPresent       ConditionType = "tag_present"
	ConditionTagAbsent        ConditionType = "tag_absent"
	ConditionPlotBlockPresent ConditionType = "plot_block_present"
	ConditionTagCount         ConditionType = "tag_count"
	ConditionCustom           ConditionType = "custom"
)

// ConditionOperator compares a measured value against RuleCondition.Count.
type ConditionOperator string

const (
	OperatorEquals      ConditionOperator = "equals"
	OperatorGreaterThan ConditionOperator = "greater_than"
	OperatorLessThan    ConditionOperator = "less_than"
)

// LogicalOperator joins a condition to the one before it in the list.
type LogicalOperator string

const (
	LogicalAnd LogicalOperator = "and"
	LogicalOr  LogicalOperator = "or"
)

// ActionType identifies what a rule action does once conditions hold.
type ActionType string

const (
	ActionError      ActionType = "error"
	ActionWarning    ActionType = "warning"
	ActionSuggestion ActionType = "suggestion"
	ActionAutoAdd    ActionType = "auto_add"
	ActionAutoRemove ActionType = "auto_remove"
)

// Severity grades diagnostics produced by validation. Critical is
// reserved for failures of the engine itself rather than rule outcomes.
type Severity string

const (
	SeverityCritical   Severity = "critical"
	SeverityError      Severity = "error"
	SeverityWarning    Severity = "warning"
	SeveritySuggestion Severity = "suggestion"
)

// RuleCondition is one predicate in a rule's condition list. The set of
// condition types is closed: unknown types are rejected when rules
// load, never skipped silently during evaluation.
//
// Target carries an element id for the presence types and the evaluator
// name for custom conditions. Operator and Count apply to tag_count
// only. Logical joins this condition to the previous one; it is ignored
// on the first condition.
type RuleCondition struct {
	Type     ConditionType     `json:"type"`
	Target   string            `json:"target,omitempty"`
	Operator ConditionOperator `json:"operator,omitempty"`
	Count    int               `json:"count,omitempty"`
	Logical  LogicalOperator   `json:"logical_operator,omitempty"`
}

// Validate checks the condition's shape against its type.
func (c RuleCondition) Validate() error {
	switch c.Type {
	case ConditionTagPresent, ConditionTagAbsent, ConditionPlotBlockPresent:
		if c.Target == "" {
			return fmt.Errorf("condition %s: target is required", c.Type)
		}
	case ConditionTagCount:
		switch c.Operator {
		case OperatorEquals, OperatorGreaterThan, OperatorLessThan:
		default:
			return fmt.Errorf("condition tag_count: unknown operator %q", c.Operator)
		}
		if c.Count < 0 {
			return fmt.Errorf("condition tag_count: count must not be negative")
		}
	case ConditionCustom:
		if c.Target == "" {
			return fmt.Errorf("condition custom: target names the evaluator and is required")
		}
	default:
		return fmt.Errorf("unknown condition type %q", c.Type)
	}
	switch c.Logical {
	case "", LogicalAnd, LogicalOr:
	default:
		return fmt.Errorf("unknown logical operator %q", c.Logical)
	}
	return nil
}

// RuleAction is one effect in a rule's action list. The auto_add and
// auto_remove types are accepted and traced but not applied back to the
// selection; they are reserved for a future mutation pipeline.
// Confidence weights suggestion actions and is ignored elsewhere.
type RuleAction struct {
	Type             ActionType `json:"type"`
	Severity         Severity   `json:"severity,omitempty"`
	Message          string     `json:"message"`
	Confidence       float64    `json:"confidence,omitempty"`
	TargetTags       []string   `json:"target_tags,omitempty"`
	TargetPlotBlocks []string   `json:"target_plot_blocks,omitempty"`
}

// Validate checks the action's shape against its type.
func (a RuleAction) Validate() error {
	if a.Confidence < 0 || a.Confidence > 1 {
		return fmt.Errorf("action %s: confidence %v outside 0-1", a.Type, a.Confidence)
	}
	switch a.Type {
	case ActionError, ActionWarning, ActionSuggestion:
		if a.Message == "" {
			return fmt.Errorf("action %s: message is required", a.Type)
		}
	case ActionAutoAdd, ActionAutoRemove:
		if len(a.TargetTags) == 0 && len(a.TargetPlotBlocks) == 0 {
			return fmt.Errorf("action %s: at least one target is required", a.Type)
		}
	default:
		return fmt.Errorf("unknown action type %q", a.Type)
	}
	return nil
}

// ValidationRule is a declarative constraint evaluated against a
// selection. Rules are immutable once loaded into an engine. Evaluation
// order is priority descending (0-100) with id ascending as tiebreak.
//
// DependsOn lists rule ids this rule builds on. The engine only uses it
// for circular-dependency detection at load time; ordering extensions
// may use it later.
type ValidationRule struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	FandomID   string          `json:"fandom_id"`
	Priority   int             `json:"priority"`
	IsActive   bool            `json:"is_active"`
	DependsOn  []string        `json:"depends_on,omitempty"`
	Conditions []RuleCondition `json:"conditions"`
	Actions    []RuleAction    `json:"actions"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

// Validate checks the rule's structure ahead of loading. It does not
// resolve element references; a dangling target is an evaluation
// concern, not a structural one.
func (r ValidationRule) Validate() error {
	if r.ID == "" {
		return fmt.Errorf("rule id is required")
	}
	if r.FandomID == "" {
		return fmt.Errorf("rule %s: fandom id is required", r.ID)
	}
	if r.Priority < 0 || r.Priority > 100 {
		return fmt.Errorf("rule %s: priority %d outside 0-100", r.ID, r.Priority)
	}
	for i, c := range r.Conditions {
		if err := c.Validate(); err != nil {
			return fmt.Errorf("rule %s: condition %d: %w", r.ID, i, err)
		}
	}
	for i, a := range r.Actions {
		if err := a.Validate(); err != nil {
			return fmt.Errorf("rule %s: action %d: %w", r.ID, i, err)
		}
	}
	return nil
}
