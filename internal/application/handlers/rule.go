package handlers

import (
	"context"
	"fmt"

	"github.com/ersonp/canon-core/internal/domain/entities"
	"github.com/ersonp/canon-core/internal/domain/services"
)

// RuleHandler handles validation rule management.
type RuleHandler struct {
	service *services.RuleService
}

// NewRuleHandler creates a new RuleHandler.
func NewRuleHandler(service *services.RuleService) *RuleHandler {
	return &RuleHandler{
		service: service,
	}
}

// HandleList returns rules for a fandom, optionally active only.
func (h *RuleHandler) HandleList(ctx context.Context, fandomID string, activeOnly bool) ([]entities.ValidationRule, error) {
	return h.service.List(ctx, fandomID, activeOnly)
}

// HandleShow returns one rule by id.
func (h *RuleHandler) HandleShow(ctx context.Context, ruleID string) (*entities.ValidationRule, error) {
	return h.service.FindByID(ctx, ruleID)
}

// HandleSave validates and persists a rule, writing a version snapshot.
func (h *RuleHandler) HandleSave(ctx context.Context, rule *entities.ValidationRule, reason string) error {
	return h.service.Save(ctx, rule, reason)
}

// HandleDelete removes a rule, snapshotting it first.
func (h *RuleHandler) HandleDelete(ctx context.Context, ruleID, reason string) error {
	return h.service.Delete(ctx, ruleID, reason)
}

// HandleHistory returns a rule's version history, newest first.
func (h *RuleHandler) HandleHistory(ctx context.Context, ruleID string) ([]entities.RuleVersion, error) {
	return h.service.History(ctx, ruleID)
}

// HandleSetActive flips a rule's active flag through the normal save
// path so the change is versioned.
func (h *RuleHandler) HandleSetActive(ctx context.Context, ruleID string, active bool) error {
	rule, err := h.service.FindByID(ctx, ruleID)
	if err != nil {
		return err
	}
	if rule == nil {
		return fmt.Errorf("rule not found: %s", ruleID)
	}
	if rule.IsActive == active {
		return nil
	}

	rule.IsActive = active
	reason := "deactivated"
	if active {
		reason = "activated"
	}
	return h.service.Save(ctx, rule, reason)
}
