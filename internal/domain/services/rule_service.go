package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ersonp/canon-core/internal/domain/entities"
	"github.com/ersonp/canon-core/internal/domain/ports"
)

// RuleService manages validation rule persistence. Every save and
// delete writes a RuleVersion snapshot and an audit row, so the full
// history of a rule is reconstructable.
type RuleService struct {
	relationalDB ports.RelationalDB
}

// NewRuleService creates a new RuleService.
func NewRuleService(relationalDB ports.RelationalDB) *RuleService {
	return &RuleService{
		relationalDB: relationalDB,
	}
}

// Save stores a rule and records a version snapshot. The reason is
// kept with the snapshot for the audit trail.
func (s *RuleService) Save(ctx context.Context, rule *entities.ValidationRule, reason string) error {
	if err := rule.Validate(); err != nil {
		return fmt.Errorf("validating rule: %w", err)
	}

	existing, err := s.relationalDB.FindRuleByID(ctx, rule.ID)
	if err != nil {
		return fmt.Errorf("checking rule: %w", err)
	}

	changeType := entities.RuleChangeCreation
	if existing != nil {
		changeType = entities.RuleChangeUpdate
		rule.CreatedAt = existing.CreatedAt
	}
	if rule.CreatedAt.IsZero() {
		rule.CreatedAt = time.Now()
	}
	rule.UpdatedAt = time.Now()

	if err := s.relationalDB.SaveRule(ctx, rule); err != nil {
		return fmt.Errorf("saving rule: %w", err)
	}

	if err := s.snapshot(ctx, rule, changeType, reason); err != nil {
		return err
	}

	details := map[string]any{"name": rule.Name, "change": string(changeType)}
	if err := s.relationalDB.LogAction(ctx, "rule_save", "", rule.ID, details); err != nil {
		return fmt.Errorf("logging rule save: %w", err)
	}

	return nil
}

// Delete removes a rule, recording a deletion snapshot first so the
// rule's final state survives the delete.
func (s *RuleService) Delete(ctx context.Context, ruleID, reason string) error {
	existing, err := s.relationalDB.FindRuleByID(ctx, ruleID)
	if err != nil {
		return fmt.Errorf("checking rule: %w", err)
	}
	if existing == nil {
		return fmt.Errorf("rule not found: %s", ruleID)
	}

	if err := s.snapshot(ctx, existing, entities.RuleChangeDeletion, reason); err != nil {
		return err
	}

	if err := s.relationalDB.DeleteRule(ctx, ruleID); err != nil {
		return fmt.Errorf("deleting rule: %w", err)
	}

	details := map[string]any{"name": existing.Name}
	if err := s.relationalDB.LogAction(ctx, "rule_delete", "", ruleID, details); err != nil {
		return fmt.Errorf("logging rule delete: %w", err)
	}

	return nil
}

// FindByID finds a rule by its ID.
func (s *RuleService) FindByID(ctx context.Context, ruleID string) (*entities.ValidationRule, error) {
	return s.relationalDB.FindRuleByID(ctx, ruleID)
}

// List lists rules for a fandom.
func (s *RuleService) List(ctx context.Context, fandomID string, activeOnly bool) ([]entities.ValidationRule, error) {
	return s.relationalDB.ListRules(ctx, fandomID, activeOnly)
}

// History returns a rule's version snapshots, newest first.
func (s *RuleService) History(ctx context.Context, ruleID string) ([]entities.RuleVersion, error) {
	return s.relationalDB.FindVersionsByRule(ctx, ruleID)
}

// snapshot writes the next RuleVersion for a rule.
func (s *RuleService) snapshot(ctx context.Context, rule *entities.ValidationRule, changeType entities.RuleChangeType, reason string) error {
	count, err := s.relationalDB.CountRuleVersions(ctx, rule.ID)
	if err != nil {
		return fmt.Errorf("counting rule versions: %w", err)
	}

	version := &entities.RuleVersion{
		ID:         uuid.New().String(),
		RuleID:     rule.ID,
		Version:    count + 1,
		ChangeType: changeType,
		Data:       *rule,
		Reason:     reason,
		CreatedAt:  time.Now(),
	}

	if err := s.relationalDB.SaveRuleVersion(ctx, version); err != nil {
		return fmt.Errorf("saving rule version: %w", err)
	}

	return nil
}
