package entities

import "time"

// RuleTemplate is a reusable rule skeleton. The embedded rule's name,
// messages, and targets may carry {{key}} placeholders; expansion
// resolves them into a plain ValidationRule before the rule ever
// reaches an engine.
type RuleTemplate struct {
	ID           string         `json:"id"`
	Name         string         `json:"name"`
	FandomID     string         `json:"fandom_id"`
	Description  string         `json:"description,omitempty"`
	Placeholders []string       `json:"placeholders"`
	Rule         ValidationRule `json:"rule"`
	CreatedAt    time.Time      `json:"created_at"`
}
