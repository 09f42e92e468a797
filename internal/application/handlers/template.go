package handlers

import (
	"context"
	"fmt"

	"github.com/ersonp/canon-core/internal/domain/entities"
	"github.com/ersonp/canon-core/internal/domain/ports"
	"github.com/ersonp/canon-core/internal/domain/services"
)

// TemplateHandler handles rule template operations.
type TemplateHandler struct {
	relationalDB ports.RelationalDB
	templates    *services.TemplateService
	rules        *services.RuleService
}

// NewTemplateHandler creates a new TemplateHandler.
func NewTemplateHandler(relationalDB ports.RelationalDB, rules *services.RuleService) *TemplateHandler {
	return &TemplateHandler{
		relationalDB: relationalDB,
		templates:    services.NewTemplateService(),
		rules:        rules,
	}
}

// HandleList returns all templates for a fandom.
func (h *TemplateHandler) HandleList(ctx context.Context, fandomID string) ([]entities.RuleTemplate, error) {
	return h.relationalDB.ListTemplates(ctx, fandomID)
}

// HandleShow returns one template by id.
func (h *TemplateHandler) HandleShow(ctx context.Context, templateID string) (*entities.RuleTemplate, error) {
	return h.relationalDB.FindTemplateByID(ctx, templateID)
}

// HandleSave persists a template.
func (h *TemplateHandler) HandleSave(ctx context.Context, tpl *entities.RuleTemplate) error {
	return h.relationalDB.SaveTemplate(ctx, tpl)
}

// HandleDelete removes a template.
func (h *TemplateHandler) HandleDelete(ctx context.Context, templateID string) error {
	return h.relationalDB.DeleteTemplate(ctx, templateID)
}

// HandleExpand resolves a template's placeholders into a concrete rule
// and saves it through the rule service.
func (h *TemplateHandler) HandleExpand(ctx context.Context, templateID string, values map[string]string) (*entities.ValidationRule, error) {
	tpl, err := h.relationalDB.FindTemplateByID(ctx, templateID)
	if err != nil {
		return nil, err
	}
	if tpl == nil {
		return nil, fmt.Errorf("template not found: %s", templateID)
	}

	rule, err := h.templates.Expand(*tpl, values)
	if err != nil {
		return nil, fmt.Errorf("expanding template: %w", err)
	}

	if err := h.rules.Save(ctx, &rule, fmt.Sprintf("expanded from template %s", tpl.Name)); err != nil {
		return nil, fmt.Errorf("saving expanded rule: %w", err)
	}

	return &rule, nil
}
