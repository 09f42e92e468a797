package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ersonp/canon-core/internal/domain/entities"
	"github.com/ersonp/canon-core/internal/domain/ports"
	"github.com/ersonp/canon-core/internal/infrastructure/parsers"
)

// ConflictStrategy defines how to handle existing records during import.
type ConflictStrategy string

const (
	// ConflictSkip skips records that already exist (by ID).
	ConflictSkip ConflictStrategy = "skip"
	// ConflictOverwrite overwrites existing records with new data.
	ConflictOverwrite ConflictStrategy = "overwrite"
)

// ImportOptions controls import behavior.
type ImportOptions struct {
	DryRun     bool             // Validate without saving
	OnConflict ConflictStrategy // How to handle existing records
}

// ImportError represents an error for a specific record during import.
type ImportError struct {
	Line    int    // Line number (1-indexed, 0 if unknown)
	Field   string // Which field has the error
	Value   string // The invalid value
	Message string // Human-readable error message
}

func (e ImportError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("line %d: %s", e.Line, e.Message)
	}
	return e.Message
}

// ImportResult contains the result of an import operation.
type ImportResult struct {
	Imported int
	Skipped  int
	Errors   []ImportError
}

// ImportService validates and imports elements and rules from external
// sources into a fandom.
type ImportService struct {
	relationalDB ports.RelationalDB
	vectorDB     ports.VectorDB
	embedder     ports.Embedder
	categories   *CategoryService
	fandomID     string
}

// NewImportService creates a new import service scoped to a fandom.
func NewImportService(relationalDB ports.RelationalDB, vectorDB ports.VectorDB, embedder ports.Embedder, categories *CategoryService, fandomID string) *ImportService {
	return &ImportService{
		relationalDB: relationalDB,
		vectorDB:     vectorDB,
		embedder:     embedder,
		categories:   categories,
		fandomID:     fandomID,
	}
}

// ImportElements validates and imports raw elements.
func (s *ImportService) ImportElements(ctx context.Context, rawElements []parsers.RawElement, opts ImportOptions) (*ImportResult, error) {
	result := &ImportResult{}

	validElements, validationErrors := s.validateElements(ctx, rawElements)
	result.Errors = validationErrors

	if len(validElements) == 0 {
		return result, nil
	}

	elements := s.convertElements(validElements)

	if err := s.generateEmbeddings(ctx, elements); err != nil {
		return nil, fmt.Errorf("generating embeddings: %w", err)
	}

	if opts.DryRun {
		result.Imported = len(elements)
		return result, nil
	}

	imported, skipped, err := s.saveElements(ctx, elements, opts.OnConflict)
	if err != nil {
		return nil, fmt.Errorf("saving elements: %w", err)
	}

	result.Imported = imported
	result.Skipped = skipped

	return result, nil
}

// validateElements validates raw elements and returns valid ones with
// any per-line errors.
func (s *ImportService) validateElements(ctx context.Context, rawElements []parsers.RawElement) ([]parsers.RawElement, []ImportError) {
	valid := make([]parsers.RawElement, 0, len(rawElements))
	var errors []ImportError

	for i := range rawElements {
		raw := &rawElements[i]
		lineNum := raw.LineNum
		if lineNum == 0 {
			lineNum = i + 1
		}

		if err := s.validateRawElement(ctx, raw, lineNum); err != nil {
			errors = append(errors, *err)
			continue
		}

		valid = append(valid, *raw)
	}

	return valid, errors
}

// validateRawElement validates a single raw element.
func (s *ImportService) validateRawElement(ctx context.Context, raw *parsers.RawElement, lineNum int) *ImportError {
	if raw.Name == "" {
		return &ImportError{Line: lineNum, Field: "name", Message: "missing required field: name"}
	}
	if raw.Kind == "" {
		return &ImportError{Line: lineNum, Field: "kind", Message: "missing required field: kind"}
	}

	kind := entities.ElementKind(raw.Kind)
	if !kind.IsValid() {
		return &ImportError{
			Line:    lineNum,
			Field:   "kind",
			Value:   raw.Kind,
			Message: fmt.Sprintf("invalid kind %q (valid: plot_block, condition, tag)", raw.Kind),
		}
	}

	if raw.MaxInstances != nil && *raw.MaxInstances < 1 {
		return &ImportError{
			Line:    lineNum,
			Field:   "max_instances",
			Value:   fmt.Sprintf("%d", *raw.MaxInstances),
			Message: "max_instances must be at least 1",
		}
	}

	// Excluded categories must name registered categories; dangling
	// element ids are tolerated but category typos never reach a detector.
	for _, cat := range raw.ExcludesCategories {
		if !s.categories.IsValid(ctx, cat) {
			return &ImportError{
				Line:    lineNum,
				Field:   "excludes_categories",
				Value:   cat,
				Message: fmt.Sprintf("unknown category %q (register it with 'canon categories add')", cat),
			}
		}
	}

	return nil
}

// convertElements converts raw elements to domain entities.
func (s *ImportService) convertElements(rawElements []parsers.RawElement) []entities.Element {
	elements := make([]entities.Element, 0, len(rawElements))
	now := time.Now()

	for i := range rawElements {
		raw := &rawElements[i]
		id := raw.ID
		if id == "" {
			id = uuid.New().String()
		}

		elements = append(elements, entities.Element{
			ID:                 id,
			FandomID:           s.fandomID,
			Kind:               entities.ElementKind(raw.Kind),
			Name:               raw.Name,
			Category:           raw.Category,
			Description:        raw.Description,
			Requires:           raw.Requires,
			Enhances:           raw.Enhances,
			ConflictsWith:      raw.ConflictsWith,
			ExcludesCategories: raw.ExcludesCategories,
			MaxInstances:       raw.MaxInstances,
			ParentID:           raw.ParentID,
			CreatedAt:          now,
			UpdatedAt:          now,
		})
	}

	return elements
}

// generateEmbeddings generates embeddings for all elements in one batch.
func (s *ImportService) generateEmbeddings(ctx context.Context, elements []entities.Element) error {
	texts := make([]string, len(elements))
	for i := range elements {
		texts[i] = elementToText(&elements[i])
	}

	embeddings, err := s.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return err
	}

	for i := range elements {
		elements[i].Embedding = embeddings[i]
	}

	return nil
}

// elementToText builds the text an element is embedded from.
func elementToText(el *entities.Element) string {
	if el.Description == "" {
		return el.Name
	}
	return el.Name + ": " + el.Description
}

// saveElements saves elements with conflict handling. Every saved
// element lands in the relational store and the similarity index.
func (s *ImportService) saveElements(ctx context.Context, elements []entities.Element, onConflict ConflictStrategy) (imported, skipped int, err error) {
	toSave := elements

	if onConflict == ConflictSkip {
		toSave, skipped, err = s.filterExisting(ctx, elements)
		if err != nil {
			return 0, 0, err
		}
		if len(toSave) == 0 {
			return 0, skipped, nil
		}
	}

	for i := range toSave {
		if err := s.relationalDB.SaveElement(ctx, &toSave[i]); err != nil {
			return 0, 0, fmt.Errorf("saving element %s: %w", toSave[i].ID, err)
		}
	}

	if err := s.vectorDB.SaveBatch(ctx, toSave); err != nil {
		return 0, 0, fmt.Errorf("indexing elements: %w", err)
	}

	return len(toSave), skipped, nil
}

// filterExisting drops elements whose IDs already exist in the index.
func (s *ImportService) filterExisting(ctx context.Context, elements []entities.Element) ([]entities.Element, int, error) {
	ids := make([]string, len(elements))
	for i := range elements {
		ids[i] = elements[i].ID
	}

	exists, err := s.vectorDB.ExistsByIDs(ctx, ids)
	if err != nil {
		return nil, 0, fmt.Errorf("checking existing elements: %w", err)
	}

	toSave := make([]entities.Element, 0, len(elements))
	skipped := 0
	for i := range elements {
		if exists[elements[i].ID] {
			skipped++
			continue
		}
		toSave = append(toSave, elements[i])
	}

	return toSave, skipped, nil
}

// ImportRules validates and imports raw rules. Each imported rule is
// versioned and audited like a manual save.
func (s *ImportService) ImportRules(ctx context.Context, rawRules []parsers.RawRule, rules *RuleService, opts ImportOptions) (*ImportResult, error) {
	result := &ImportResult{}

	for i := range rawRules {
		raw := &rawRules[i]
		lineNum := raw.LineNum
		if lineNum == 0 {
			lineNum = i + 1
		}

		rule, importErr := s.convertRule(raw, lineNum)
		if importErr != nil {
			result.Errors = append(result.Errors, *importErr)
			continue
		}

		if opts.DryRun {
			result.Imported++
			continue
		}

		if opts.OnConflict == ConflictSkip {
			existing, err := s.relationalDB.FindRuleByID(ctx, rule.ID)
			if err != nil {
				return nil, fmt.Errorf("checking rule %s: %w", rule.ID, err)
			}
			if existing != nil {
				result.Skipped++
				continue
			}
		}

		if err := rules.Save(ctx, rule, "imported"); err != nil {
			return nil, fmt.Errorf("saving rule %s: %w", rule.ID, err)
		}
		result.Imported++
	}

	return result, nil
}

// convertRule converts and validates a raw rule.
func (s *ImportService) convertRule(raw *parsers.RawRule, lineNum int) (*entities.ValidationRule, *ImportError) {
	if raw.Name == "" {
		return nil, &ImportError{Line: lineNum, Field: "name", Message: "missing required field: name"}
	}

	id := raw.ID
	if id == "" {
		id = uuid.New().String()
	}

	priority := 50
	if raw.Priority != nil {
		priority = *raw.Priority
	}

	active := true
	if raw.IsActive != nil {
		active = *raw.IsActive
	}

	now := time.Now()
	rule := &entities.ValidationRule{
		ID:        id,
		Name:      raw.Name,
		FandomID:  s.fandomID,
		Priority:  priority,
		IsActive:  active,
		DependsOn: raw.DependsOn,
		CreatedAt: now,
		UpdatedAt: now,
	}

	for _, c := range raw.Conditions {
		rule.Conditions = append(rule.Conditions, entities.RuleCondition{
			Type:     entities.ConditionType(c.Type),
			Target:   c.Target,
			Operator: entities.ConditionOperator(c.Operator),
			Count:    c.Count,
			Logical:  entities.LogicalOperator(c.Logical),
		})
	}
	for _, a := range raw.Actions {
		rule.Actions = append(rule.Actions, entities.RuleAction{
			Type:             entities.ActionType(a.Type),
			Severity:         entities.Severity(a.Severity),
			Message:          a.Message,
			Confidence:       a.Confidence,
			TargetTags:       a.TargetTags,
			TargetPlotBlocks: a.TargetPlotBlocks,
		})
	}

	if err := rule.Validate(); err != nil {
		return nil, &ImportError{Line: lineNum, Field: "rule", Value: rule.ID, Message: err.Error()}
	}

	return rule, nil
}
