package ports

import (
	"context"

	"github.com/ersonp/canon-core/internal/domain/entities"
)

// RelationalDB defines the interface for relational database operations.
// This interface handles data that requires durable storage and exact
// queries - elements, rules, versions, categories, and the audit log -
// complementing VectorDB for similarity search.
type RelationalDB interface {
	// EnsureSchema creates the database schema if it doesn't exist.
	EnsureSchema(ctx context.Context) error

	// Close closes the database connection.
	Close() error

	// Element operations

	// SaveElement saves or updates an element.
	SaveElement(ctx context.Context, el *entities.Element) error

	// FindElementByID finds an element by its ID.
	FindElementByID(ctx context.Context, elementID string) (*entities.Element, error)

	// FindElementByName finds an element by its normalized name (case-insensitive).
	FindElementByName(ctx context.Context, fandomID, name string) (*entities.Element, error)

	// ListElements lists elements for a fandom with pagination.
	// An empty kind matches all kinds.
	ListElements(ctx context.Context, fandomID string, kind entities.ElementKind, limit, offset int) ([]*entities.Element, error)

	// SearchElements searches elements by name pattern.
	SearchElements(ctx context.Context, fandomID, query string, limit int) ([]*entities.Element, error)

	// DeleteElement deletes an element by ID.
	DeleteElement(ctx context.Context, elementID string) error

	// CountElements returns the number of elements for a fandom.
	// An empty kind matches all kinds.
	CountElements(ctx context.Context, fandomID string, kind entities.ElementKind) (int, error)

	// Rule operations

	// SaveRule saves or updates a validation rule.
	SaveRule(ctx context.Context, rule *entities.ValidationRule) error

	// FindRuleByID finds a rule by its ID.
	FindRuleByID(ctx context.Context, ruleID string) (*entities.ValidationRule, error)

	// ListRules lists rules for a fandom. With activeOnly set, inactive
	// rules are filtered out.
	ListRules(ctx context.Context, fandomID string, activeOnly bool) ([]entities.ValidationRule, error)

	// DeleteRule deletes a rule by ID.
	DeleteRule(ctx context.Context, ruleID string) error

	// CountRules returns the number of rules for a fandom.
	CountRules(ctx context.Context, fandomID string) (int, error)

	// Rule version operations

	// SaveRuleVersion saves a new rule version snapshot.
	SaveRuleVersion(ctx context.Context, version *entities.RuleVersion) error

	// FindVersionsByRule finds all versions of a rule, ordered by version descending.
	FindVersionsByRule(ctx context.Context, ruleID string) ([]entities.RuleVersion, error)

	// FindLatestRuleVersion finds the most recent version of a rule.
	FindLatestRuleVersion(ctx context.Context, ruleID string) (*entities.RuleVersion, error)

	// CountRuleVersions counts how many versions a rule has.
	CountRuleVersions(ctx context.Context, ruleID string) (int, error)

	// Category operations

	// SaveCategory saves or updates a category.
	SaveCategory(ctx context.Context, category *entities.Category) error

	// FindCategory finds a category by name within a fandom.
	FindCategory(ctx context.Context, fandomID, name string) (*entities.Category, error)

	// ListCategories lists all categories for a fandom.
	ListCategories(ctx context.Context, fandomID string) ([]entities.Category, error)

	// DeleteCategory deletes a category by name within a fandom.
	DeleteCategory(ctx context.Context, fandomID, name string) error

	// Rule template operations

	// SaveTemplate saves or updates a rule template.
	SaveTemplate(ctx context.Context, tpl *entities.RuleTemplate) error

	// FindTemplateByID finds a rule template by its ID.
	FindTemplateByID(ctx context.Context, templateID string) (*entities.RuleTemplate, error)

	// ListTemplates lists all rule templates for a fandom.
	ListTemplates(ctx context.Context, fandomID string) ([]entities.RuleTemplate, error)

	// DeleteTemplate deletes a rule template by ID.
	DeleteTemplate(ctx context.Context, templateID string) error

	// Audit operations

	// LogAction logs an action to the audit log. Either of elementID and
	// ruleID may be empty when the action has no such subject.
	LogAction(ctx context.Context, action, elementID, ruleID string, details map[string]any) error

	// FindAuditLogByElement finds audit entries for a specific element.
	FindAuditLogByElement(ctx context.Context, elementID string) ([]entities.AuditEntry, error)

	// FindAuditLogByRule finds audit entries for a specific rule.
	FindAuditLogByRule(ctx context.Context, ruleID string) ([]entities.AuditEntry, error)

	// FindAuditLogByAction finds audit entries by action type.
	FindAuditLogByAction(ctx context.Context, action string, limit int) ([]entities.AuditEntry, error)
}
