package entities

import "time"

// Category labels a group of related plot blocks within a fandom.
// Element.ExcludesCategories references categories by name; registering
// them up front lets imports flag typos before they reach a detector.
type Category struct {
	Name        string    `json:"name"`
	FandomID    string    `json:"fandom_id"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}
