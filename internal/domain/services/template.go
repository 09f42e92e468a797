package services

import (
	"fmt"
	"regexp"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/ersonp/canon-core/internal/domain/entities"
)

// placeholderRegex matches {{key}} markers in template text.
var placeholderRegex = regexp.MustCompile(`\{\{([a-zA-Z0-9_]+)\}\}`)

// TemplateService expands rule templates into concrete validation
// rules. Expansion is plain text substitution and runs strictly before
// a rule reaches an engine; the engine never sees a placeholder.
type TemplateService struct{}

// NewTemplateService creates a new TemplateService.
func NewTemplateService() *TemplateService {
	return &TemplateService{}
}

// Expand resolves every placeholder in the template's rule using the
// given values and returns the finished rule. Keys not declared by the
// template and placeholders left unresolved are both errors, as is a
// rule that is structurally invalid after expansion.
func (s *TemplateService) Expand(tpl entities.RuleTemplate, values map[string]string) (entities.ValidationRule, error) {
	declared := make(map[string]bool, len(tpl.Placeholders))
	for _, p := range tpl.Placeholders {
		declared[p] = true
	}
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if !declared[k] {
			return entities.ValidationRule{}, fmt.Errorf("expanding template %s: unknown placeholder key %q", tpl.ID, k)
		}
	}

	apply := func(text string) string {
		return placeholderRegex.ReplaceAllStringFunc(text, func(m string) string {
			key := placeholderRegex.FindStringSubmatch(m)[1]
			if v, ok := values[key]; ok {
				return v
			}
			return m
		})
	}

	rule := tpl.Rule
	rule.Name = apply(rule.Name)
	rule.Conditions = append([]entities.RuleCondition(nil), tpl.Rule.Conditions...)
	for i := range rule.Conditions {
		rule.Conditions[i].Target = apply(rule.Conditions[i].Target)
	}
	rule.Actions = append([]entities.RuleAction(nil), tpl.Rule.Actions...)
	for i := range rule.Actions {
		rule.Actions[i].Message = apply(rule.Actions[i].Message)
		rule.Actions[i].TargetTags = applyEach(apply, rule.Actions[i].TargetTags)
		rule.Actions[i].TargetPlotBlocks = applyEach(apply, rule.Actions[i].TargetPlotBlocks)
	}

	if rule.FandomID == "" {
		rule.FandomID = tpl.FandomID
	}
	if rule.ID == "" {
		rule.ID = uuid.NewString()
	}
	now := time.Now()
	if rule.CreatedAt.IsZero() {
		rule.CreatedAt = now
	}
	rule.UpdatedAt = now

	if left := firstUnresolved(rule); left != "" {
		return entities.ValidationRule{}, fmt.Errorf("expanding template %s: unresolved placeholder %s", tpl.ID, left)
	}
	if err := rule.Validate(); err != nil {
		return entities.ValidationRule{}, fmt.Errorf("expanding template %s: %w", tpl.ID, err)
	}
	return rule, nil
}

func applyEach(apply func(string) string, values []string) []string {
	if values == nil {
		return nil
	}
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = apply(v)
	}
	return out
}

// firstUnresolved returns the first placeholder still present in the
// rule's text fields, or an empty string.
func firstUnresolved(rule entities.ValidationRule) string {
	if m := placeholderRegex.FindString(rule.Name); m != "" {
		return m
	}
	for _, c := range rule.Conditions {
		if m := placeholderRegex.FindString(c.Target); m != "" {
			return m
		}
	}
	for _, a := range rule.Actions {
		if m := placeholderRegex.FindString(a.Message); m != "" {
			return m
		}
		for _, t := range a.TargetTags {
			if m := placeholderRegex.FindString(t); m != "" {
				return m
			}
		}
		for _, t := range a.TargetPlotBlocks {
			if m := placeholderRegex.FindString(t); m != "" {
				return m
			}
		}
	}
	return ""
}
