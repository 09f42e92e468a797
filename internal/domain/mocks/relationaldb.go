package mocks

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/ersonp/canon-core/internal/domain/entities"
)

// RelationalDB is an in-memory mock implementation of ports.RelationalDB.
type RelationalDB struct {
	Elements   map[string]*entities.Element
	Rules      map[string]*entities.ValidationRule
	Versions   map[string][]entities.RuleVersion // keyed by rule id
	Categories map[string]*entities.Category     // keyed by fandomID + "/" + name
	Templates  map[string]*entities.RuleTemplate
	AuditLog   []entities.AuditEntry
	Err        error

	// Call tracking
	SaveElementCallCount     int
	SaveRuleCallCount        int
	SaveRuleVersionCallCount int
	LogActionCallCount       int
	DeleteRuleCallCount      int
}

// NewRelationalDB creates a new mock RelationalDB.
func NewRelationalDB() *RelationalDB {
	return &RelationalDB{
		Elements:   make(map[string]*entities.Element),
		Rules:      make(map[string]*entities.ValidationRule),
		Versions:   make(map[string][]entities.RuleVersion),
		Categories: make(map[string]*entities.Category),
		Templates:  make(map[string]*entities.RuleTemplate),
	}
}

// EnsureSchema creates the database schema if it doesn't exist.
func (m *RelationalDB) EnsureSchema(_ context.Context) error {
	return m.Err
}

// Close closes the database connection.
func (m *RelationalDB) Close() error {
	return nil
}

// Element methods.

// SaveElement saves or updates an element.
func (m *RelationalDB) SaveElement(_ context.Context, el *entities.Element) error {
	m.SaveElementCallCount++
	if m.Err != nil {
		return m.Err
	}
	m.Elements[el.ID] = el
	return nil
}

// FindElementByID finds an element by its ID.
func (m *RelationalDB) FindElementByID(_ context.Context, elementID string) (*entities.Element, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Elements[elementID], nil
}

// FindElementByName finds an element by its normalized name.
func (m *RelationalDB) FindElementByName(_ context.Context, fandomID, name string) (*entities.Element, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	want := entities.NormalizeName(name)
	for _, el := range m.Elements {
		if el.FandomID == fandomID && entities.NormalizeName(el.Name) == want {
			return el, nil
		}
	}
	return nil, nil
}

// ListElements lists elements for a fandom with pagination.
func (m *RelationalDB) ListElements(_ context.Context, fandomID string, kind entities.ElementKind, limit, offset int) ([]*entities.Element, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	matched := m.elementsFor(fandomID, kind)
	if offset >= len(matched) {
		return nil, nil
	}
	matched = matched[offset:]
	if limit > 0 && limit < len(matched) {
		matched = matched[:limit]
	}
	return matched, nil
}

// SearchElements searches elements by name substring.
func (m *RelationalDB) SearchElements(_ context.Context, fandomID, query string, limit int) ([]*entities.Element, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	want := entities.NormalizeName(query)
	var result []*entities.Element
	for _, el := range m.elementsFor(fandomID, "") {
		if strings.Contains(entities.NormalizeName(el.Name), want) {
			result = append(result, el)
			if limit > 0 && len(result) >= limit {
				break
			}
		}
	}
	return result, nil
}

// DeleteElement deletes an element by ID.
func (m *RelationalDB) DeleteElement(_ context.Context, elementID string) error {
	if m.Err != nil {
		return m.Err
	}
	delete(m.Elements, elementID)
	return nil
}

// CountElements returns the number of elements for a fandom.
func (m *RelationalDB) CountElements(_ context.Context, fandomID string, kind entities.ElementKind) (int, error) {
	if m.Err != nil {
		return 0, m.Err
	}
	return len(m.elementsFor(fandomID, kind)), nil
}

// elementsFor returns fandom elements sorted by ID for deterministic
// test results.
func (m *RelationalDB) elementsFor(fandomID string, kind entities.ElementKind) []*entities.Element {
	var result []*entities.Element
	for _, el := range m.Elements {
		if el.FandomID != fandomID {
			continue
		}
		if kind != "" && el.Kind != kind {
			continue
		}
		result = append(result, el)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].ID < result[j].ID
	})
	return result
}

// Rule methods.

// SaveRule saves or updates a validation rule.
func (m *RelationalDB) SaveRule(_ context.Context, rule *entities.ValidationRule) error {
	m.SaveRuleCallCount++
	if m.Err != nil {
		return m.Err
	}
	m.Rules[rule.ID] = rule
	return nil
}

// FindRuleByID finds a rule by its ID.
func (m *RelationalDB) FindRuleByID(_ context.Context, ruleID string) (*entities.ValidationRule, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Rules[ruleID], nil
}

// ListRules lists rules for a fandom.
func (m *RelationalDB) ListRules(_ context.Context, fandomID string, activeOnly bool) ([]entities.ValidationRule, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	var result []entities.ValidationRule
	for _, r := range m.Rules {
		if r.FandomID != fandomID {
			continue
		}
		if activeOnly && !r.IsActive {
			continue
		}
		result = append(result, *r)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].ID < result[j].ID
	})
	return result, nil
}

// DeleteRule deletes a rule by ID.
func (m *RelationalDB) DeleteRule(_ context.Context, ruleID string) error {
	m.DeleteRuleCallCount++
	if m.Err != nil {
		return m.Err
	}
	delete(m.Rules, ruleID)
	return nil
}

// CountRules returns the number of rules for a fandom.
func (m *RelationalDB) CountRules(_ context.Context, fandomID string) (int, error) {
	if m.Err != nil {
		return 0, m.Err
	}
	count := 0
	for _, r := range m.Rules {
		if r.FandomID == fandomID {
			count++
		}
	}
	return count, nil
}

// Rule version methods.

// SaveRuleVersion saves a new rule version snapshot.
func (m *RelationalDB) SaveRuleVersion(_ context.Context, version *entities.RuleVersion) error {
	m.SaveRuleVersionCallCount++
	if m.Err != nil {
		return m.Err
	}
	m.Versions[version.RuleID] = append(m.Versions[version.RuleID], *version)
	return nil
}

// FindVersionsByRule finds all versions of a rule, newest first.
func (m *RelationalDB) FindVersionsByRule(_ context.Context, ruleID string) ([]entities.RuleVersion, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	versions := append([]entities.RuleVersion(nil), m.Versions[ruleID]...)
	sort.Slice(versions, func(i, j int) bool {
		return versions[i].Version > versions[j].Version
	})
	return versions, nil
}

// FindLatestRuleVersion finds the most recent version of a rule.
func (m *RelationalDB) FindLatestRuleVersion(ctx context.Context, ruleID string) (*entities.RuleVersion, error) {
	versions, err := m.FindVersionsByRule(ctx, ruleID)
	if err != nil {
		return nil, err
	}
	if len(versions) == 0 {
		return nil, nil
	}
	return &versions[0], nil
}

// CountRuleVersions counts how many versions a rule has.
func (m *RelationalDB) CountRuleVersions(_ context.Context, ruleID string) (int, error) {
	if m.Err != nil {
		return 0, m.Err
	}
	return len(m.Versions[ruleID]), nil
}

// Category methods.

// SaveCategory saves or updates a category.
func (m *RelationalDB) SaveCategory(_ context.Context, category *entities.Category) error {
	if m.Err != nil {
		return m.Err
	}
	m.Categories[category.FandomID+"/"+category.Name] = category
	return nil
}

// FindCategory finds a category by name within a fandom.
func (m *RelationalDB) FindCategory(_ context.Context, fandomID, name string) (*entities.Category, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Categories[fandomID+"/"+name], nil
}

// ListCategories lists all categories for a fandom.
func (m *RelationalDB) ListCategories(_ context.Context, fandomID string) ([]entities.Category, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	var result []entities.Category
	for _, c := range m.Categories {
		if c.FandomID == fandomID {
			result = append(result, *c)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Name < result[j].Name
	})
	return result, nil
}

// DeleteCategory deletes a category by name within a fandom.
func (m *RelationalDB) DeleteCategory(_ context.Context, fandomID, name string) error {
	if m.Err != nil {
		return m.Err
	}
	delete(m.Categories, fandomID+"/"+name)
	return nil
}

// Template methods.

// SaveTemplate saves or updates a rule template.
func (m *RelationalDB) SaveTemplate(_ context.Context, tpl *entities.RuleTemplate) error {
	if m.Err != nil {
		return m.Err
	}
	m.Templates[tpl.ID] = tpl
	return nil
}

// FindTemplateByID finds a rule template by its ID.
func (m *RelationalDB) FindTemplateByID(_ context.Context, templateID string) (*entities.RuleTemplate, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Templates[templateID], nil
}

// ListTemplates lists all rule templates for a fandom.
func (m *RelationalDB) ListTemplates(_ context.Context, fandomID string) ([]entities.RuleTemplate, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	var result []entities.RuleTemplate
	for _, t := range m.Templates {
		if t.FandomID == fandomID {
			result = append(result, *t)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].ID < result[j].ID
	})
	return result, nil
}

// DeleteTemplate deletes a rule template by ID.
func (m *RelationalDB) DeleteTemplate(_ context.Context, templateID string) error {
	if m.Err != nil {
		return m.Err
	}
	delete(m.Templates, templateID)
	return nil
}

// Audit methods.

// LogAction appends an entry to the audit log.
func (m *RelationalDB) LogAction(_ context.Context, action, elementID, ruleID string, details map[string]any) error {
	m.LogActionCallCount++
	if m.Err != nil {
		return m.Err
	}
	m.AuditLog = append(m.AuditLog, entities.AuditEntry{
		ID:        int64(len(m.AuditLog) + 1),
		Action:    action,
		ElementID: elementID,
		RuleID:    ruleID,
		Details:   details,
		CreatedAt: time.Now(),
	})
	return nil
}

// FindAuditLogByElement finds audit entries for a specific element.
func (m *RelationalDB) FindAuditLogByElement(_ context.Context, elementID string) ([]entities.AuditEntry, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	var result []entities.AuditEntry
	for _, e := range m.AuditLog {
		if e.ElementID == elementID {
			result = append(result, e)
		}
	}
	return result, nil
}

// FindAuditLogByRule finds audit entries for a specific rule.
func (m *RelationalDB) FindAuditLogByRule(_ context.Context, ruleID string) ([]entities.AuditEntry, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	var result []entities.AuditEntry
	for _, e := range m.AuditLog {
		if e.RuleID == ruleID {
			result = append(result, e)
		}
	}
	return result, nil
}

// FindAuditLogByAction finds audit entries by action type.
func (m *RelationalDB) FindAuditLogByAction(_ context.Context, action string, limit int) ([]entities.AuditEntry, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	var result []entities.AuditEntry
	for _, e := range m.AuditLog {
		if e.Action == action {
			result = append(result, e)
			if limit > 0 && len(result) >= limit {
				break
			}
		}
	}
	return result, nil
}
