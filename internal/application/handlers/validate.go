// Package handlers contains application use case handlers.
package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/ersonp/canon-core/internal/domain/entities"
	"github.com/ersonp/canon-core/internal/domain/services"
	"github.com/ersonp/canon-core/internal/observe"
)

// SelectionInput names the elements a user has picked. Entries may be
// element ids or names; names resolve case-insensitively against the
// fandom universe.
type SelectionInput struct {
	Tags       []string `json:"tags,omitempty"`
	PlotBlocks []string `json:"plot_blocks,omitempty"`
	Conditions []string `json:"conditions,omitempty"`
}

// ValidationReport aggregates the three detector outputs for one
// selection.
type ValidationReport struct {
	FandomID  string                    `json:"fandom_id"`
	Valid     bool                      `json:"valid"`
	Cycles    entities.CycleReport      `json:"cycles"`
	Conflicts entities.ConflictReport   `json:"conflicts"`
	Rules     *entities.ValidationResult `json:"rules"`
}

// ValidateHandler hydrates a selection from storage and runs it through
// the cycle detector, the conflict detector, and the rule engine. The
// detectors themselves never touch storage; all loading happens here.
type ValidateHandler struct {
	elements   *services.ElementService
	rules      *services.RuleService
	cycles     *services.CycleDetector
	conflicts  *services.ConflictDetector
	engineOpts services.RuleEngineOptions
	metrics    *observe.Metrics
}

// NewValidateHandler creates a new ValidateHandler.
func NewValidateHandler(
	elements *services.ElementService,
	rules *services.RuleService,
	engineOpts services.RuleEngineOptions,
	metrics *observe.Metrics,
) *ValidateHandler {
	return &ValidateHandler{
		elements:   elements,
		rules:      rules,
		cycles:     services.NewCycleDetector(),
		conflicts:  services.NewConflictDetector(),
		engineOpts: engineOpts,
		metrics:    metrics,
	}
}

// Handle validates a selection against a fandom's universe and rules.
func (h *ValidateHandler) Handle(ctx context.Context, fandomID string, input SelectionInput) (*ValidationReport, error) {
	universe, err := h.elements.Universe(ctx, fandomID)
	if err != nil {
		return nil, fmt.Errorf("loading fandom elements: %w", err)
	}

	tags, err := resolveRefs(input.Tags, universe.Tags)
	if err != nil {
		return nil, err
	}
	blocks, err := resolveRefs(input.PlotBlocks, universe.PlotBlocks)
	if err != nil {
		return nil, err
	}
	conditions, err := resolveRefs(input.Conditions, universe.Conditions)
	if err != nil {
		return nil, err
	}

	report := &ValidationReport{FandomID: fandomID}

	start := time.Now()
	report.Cycles = h.cycles.Detect(entities.ElementSet{
		PlotBlocks: blocks,
		Conditions: conditions,
		Tags:       tags,
	})
	h.metrics.CycleDetectionDuration.Record(ctx, time.Since(start).Seconds())
	h.metrics.CyclesFound.Add(ctx, int64(len(report.Cycles.CircularChains)))

	start = time.Now()
	report.Conflicts = h.conflicts.Detect(entities.Selection{
		PlotBlocks:    blocks,
		Conditions:    conditions,
		AllPlotBlocks: universe.PlotBlocks,
		AllConditions: universe.Conditions,
	})
	h.metrics.ConflictDetectionDuration.Record(ctx, time.Since(start).Seconds())
	for _, c := range report.Conflicts.Conflicts {
		h.metrics.RecordConflict(ctx, string(c.Type))
	}

	ruleSet, err := h.rules.List(ctx, fandomID, true)
	if err != nil {
		return nil, fmt.Errorf("loading rules: %w", err)
	}

	engine := services.NewRuleEngine(h.engineOpts)
	if err := engine.LoadRules(ruleSet); err != nil {
		return nil, fmt.Errorf("loading rules into engine: %w", err)
	}

	start = time.Now()
	report.Rules = engine.Validate(ctx, entities.RuleContext{
		FandomID:           fandomID,
		SelectedTags:       elementIDs(tags),
		SelectedPlotBlocks: elementIDs(blocks),
	})
	h.metrics.RuleEvaluationDuration.Record(ctx, time.Since(start).Seconds())
	h.metrics.ValidateDuration.Record(ctx, report.Rules.ExecutionTimeMS/1000)
	for _, applied := range report.Rules.AppliedRules {
		status := "skipped"
		if applied.Matched {
			status = "matched"
		}
		h.metrics.RecordRuleEvaluation(ctx, fandomID, status)
	}
	for _, e := range report.Rules.Errors {
		if e.RuleID == services.SystemRuleID && strings.Contains(e.Message, "timed out") {
			h.metrics.EngineTimeouts.Add(ctx, 1)
		}
	}

	report.Valid = report.Rules.IsValid &&
		!report.Cycles.HasCircularReferences &&
		!report.Conflicts.HasConflicts

	return report, nil
}

// HandleFile reads a selection file (JSON) and validates it. Used by
// the watch mode, which re-runs this on every file change.
func (h *ValidateHandler) HandleFile(ctx context.Context, fandomID, filePath string) (*ValidationReport, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("reading selection file: %w", err)
	}

	var input SelectionInput
	if err := json.Unmarshal(data, &input); err != nil {
		return nil, fmt.Errorf("parsing selection file: %w", err)
	}

	return h.Handle(ctx, fandomID, input)
}

// resolveRefs maps ids-or-names to full elements from one kind's slice
// of the universe. An unresolved reference is an error: validating a
// selection the fandom doesn't contain would silently pass every check.
func resolveRefs(refs []string, universe []entities.Element) ([]entities.Element, error) {
	if len(refs) == 0 {
		return nil, nil
	}

	byID := make(map[string]entities.Element, len(universe))
	byName := make(map[string]entities.Element, len(universe))
	for _, el := range universe {
		byID[el.ID] = el
		byName[entities.NormalizeName(el.Name)] = el
	}

	resolved := make([]entities.Element, 0, len(refs))
	for _, ref := range refs {
		if el, ok := byID[ref]; ok {
			resolved = append(resolved, el)
			continue
		}
		if el, ok := byName[entities.NormalizeName(ref)]; ok {
			resolved = append(resolved, el)
			continue
		}
		return nil, fmt.Errorf("unknown element: %q", ref)
	}
	return resolved, nil
}

func elementIDs(els []entities.Element) []string {
	ids := make([]string, 0, len(els))
	for _, el := range els {
		ids = append(ids, el.ID)
	}
	return ids
}
