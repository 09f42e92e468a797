package entities

import "time"

// RuleChangeType indicates why a rule was changed.
type RuleChangeType string

const (
	RuleChangeCreation RuleChangeType = "creation"
	RuleChangeUpdate   RuleChangeType = "update"
	RuleChangeDeletion RuleChangeType = "deletion"
)

// RuleVersion represents a historical snapshot of a validation rule.
type RuleVersion struct {
	ID         string         `json:"id"`
	RuleID     string         `json:"rule_id"`
	Version    int            `json:"version"`
	ChangeType RuleChangeType `json:"change_type"`
	Data       ValidationRule `json:"data"`
	Reason     string         `json:"reason"`
	CreatedAt  time.Time      `json:"created_at"`
}
