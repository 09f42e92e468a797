package services

import (
	"fmt"

	"github.com/ersonp/canon-core/internal/domain/entities"
)

// ConflictDetector checks a selection for incompatible element
// combinations. Five policies run in a fixed order so output is
// deterministic; each is independent and appends zero or more
// conflicts. A shared pair set keeps an unordered pair from being
// reported twice, whichever policy or direction finds it first.
//
// Like the cycle detector it is stateless and never fails: malformed
// input (dangling ids, empty selections) degrades to "no conflicts".
type ConflictDetector struct{}

// NewConflictDetector creates a new ConflictDetector.
func NewConflictDetector() *ConflictDetector {
	return &ConflictDetector{}
}

// Detect evaluates all conflict policies against the selection and
// attaches one resolution suggestion per conflict.
func (d *ConflictDetector) Detect(sel entities.Selection) entities.ConflictReport {
	report := entities.ConflictReport{
		Conflicts:   []entities.Conflict{},
		Suggestions: []entities.ResolutionSuggestion{},
	}

	idx := newSelectionIndex(sel)

	d.checkDirectExclusions(sel, idx, &report)
	d.checkConditionExclusions(sel, idx, &report)
	d.checkCategoryExclusions(sel, idx, &report)
	d.checkInstanceLimits(sel, idx, &report)
	d.checkMissingRequirements(sel, idx, &report)

	report.HasConflicts = len(report.Conflicts) > 0
	for _, c := range report.Conflicts {
		report.Suggestions = append(report.Suggestions, suggestionFor(c))
	}
	return report
}

// selectionIndex holds the lookups the policies share: what is
// selected, what exists in the universe, and display names.
type selectionIndex struct {
	selected     map[string]bool
	selectedCond map[string]bool
	names        map[string]string
	seenPairs    map[string]bool
}

func newSelectionIndex(sel entities.Selection) *selectionIndex {
	idx := &selectionIndex{
		selected:     make(map[string]bool),
		selectedCond: make(map[string]bool),
		names:        make(map[string]string),
		seenPairs:    make(map[string]bool),
	}
	for _, b := range sel.PlotBlocks {
		idx.selected[b.ID] = true
	}
	for _, c := range sel.Conditions {
		idx.selected[c.ID] = true
		idx.selectedCond[c.ID] = true
	}
	for _, group := range [][]entities.Element{sel.AllPlotBlocks, sel.AllConditions, sel.PlotBlocks, sel.Conditions} {
		for _, el := range group {
			idx.names[el.ID] = el.Name
		}
	}
	return idx
}

// name resolves an id for diagnostics, falling back to the id itself
// for dangling references.
func (x *selectionIndex) name(id string) string {
	if n, ok := x.names[id]; ok {
		return n
	}
	return id
}

// markPair records an unordered pair, reporting whether it was new.
func (x *selectionIndex) markPair(a, b string) bool {
	key := a + "|" + b
	if b < a {
		key = b + "|" + a
	}
	if x.seenPairs[key] {
		return false
	}
	x.seenPairs[key] = true
	return true
}

// checkDirectExclusions flags a selected element whose conflicts_with
// entry names any other selected element. The exclusion is symmetric
// even though it is stored one-directionally, so the condition side is
// walked too: a condition can store the exclusion against a plot
// block. Condition-to-condition pairs stay with the next policy.
func (d *ConflictDetector) checkDirectExclusions(sel entities.Selection, idx *selectionIndex, report *entities.ConflictReport) {
	for _, block := range sel.PlotBlocks {
		for _, other := range block.ConflictsWith {
			if !idx.selected[other] || !idx.markPair(block.ID, other) {
				continue
			}
			report.Conflicts = append(report.Conflicts, entities.Conflict{
				Type:     entities.ConflictDirectExclusion,
				SourceID: block.ID,
				TargetID: other,
				Message:  fmt.Sprintf("%s conflicts with %s", block.Name, idx.name(other)),
				Severity: entities.SeverityError,
			})
		}
	}

	for _, cond := range sel.Conditions {
		for _, other := range cond.ConflictsWith {
			if !idx.selected[other] || idx.selectedCond[other] || !idx.markPair(cond.ID, other) {
				continue
			}
			report.Conflicts = append(report.Conflicts, entities.Conflict{
				Type:     entities.ConflictDirectExclusion,
				SourceID: cond.ID,
				TargetID: other,
				Message:  fmt.Sprintf("%s conflicts with %s", cond.Name, idx.name(other)),
				Severity: entities.SeverityError,
			})
		}
	}
}

// checkConditionExclusions is the condition-to-condition variant of
// direct exclusion.
func (d *ConflictDetector) checkConditionExclusions(sel entities.Selection, idx *selectionIndex, report *entities.ConflictReport) {
	for _, cond := range sel.Conditions {
		for _, other := range cond.ConflictsWith {
			if !idx.selectedCond[other] || !idx.markPair(cond.ID, other) {
				continue
			}
			report.Conflicts = append(report.Conflicts, entities.Conflict{
				Type:     entities.ConflictCondition,
				SourceID: cond.ID,
				TargetID: other,
				Message:  fmt.Sprintf("%s conflicts with %s", cond.Name, idx.name(other)),
				Severity: entities.SeverityError,
			})
		}
	}
}

// checkCategoryExclusions flags a selected plot block that excludes a
// category containing other selected blocks.
func (d *ConflictDetector) checkCategoryExclusions(sel entities.Selection, idx *selectionIndex, report *entities.ConflictReport) {
	byCategory := make(map[string][]entities.Element)
	for _, block := range sel.PlotBlocks {
		if block.Category == "" {
			continue
		}
		byCategory[block.Category] = append(byCategory[block.Category], block)
	}

	for _, block := range sel.PlotBlocks {
		for _, excluded := range block.ExcludesCategories {
			for _, member := range byCategory[excluded] {
				if member.ID == block.ID || !idx.markPair(block.ID, member.ID) {
					continue
				}
				report.Conflicts = append(report.Conflicts, entities.Conflict{
					Type:     entities.ConflictCategoryExclusion,
					SourceID: block.ID,
					TargetID: member.ID,
					Message:  fmt.Sprintf("%s excludes category %s, which contains %s", block.Name, excluded, member.Name),
					Severity: entities.SeverityError,
				})
			}
		}
	}
}

// checkInstanceLimits flags same-named plot blocks selected more often
// than their declared max_instances allows.
func (d *ConflictDetector) checkInstanceLimits(sel entities.Selection, idx *selectionIndex, report *entities.ConflictReport) {
	byName := make(map[string][]entities.Element)
	var order []string
	for _, block := range sel.PlotBlocks {
		key := entities.NormalizeName(block.Name)
		if _, ok := byName[key]; !ok {
			order = append(order, key)
		}
		byName[key] = append(byName[key], block)
	}

	for _, key := range order {
		group := byName[key]

		limit := -1
		for _, block := range group {
			if block.MaxInstances != nil {
				limit = *block.MaxInstances
				break
			}
		}
		if limit < 0 || len(group) <= limit {
			continue
		}

		for i := limit; i < len(group); i++ {
			if group[i].ID != group[0].ID && !idx.markPair(group[0].ID, group[i].ID) {
				continue
			}
			report.Conflicts = append(report.Conflicts, entities.Conflict{
				Type:     entities.ConflictInstanceLimit,
				SourceID: group[0].ID,
				TargetID: group[i].ID,
				Message:  fmt.Sprintf("%s allows at most %d instance(s); %d selected", group[0].Name, limit, len(group)),
				Severity: entities.SeverityError,
			})
		}
	}
}

// checkMissingRequirements flags selected elements whose requires entry
// is not part of the selection. The policy is suppressed when earlier
// policies already found conflicts for a multi-block selection, and
// always applied when exactly one plot block is selected. That
// asymmetry is a deliberate noise-control heuristic, not an accident:
// when a harder conflict already explains the problem there is no point
// burying it under missing-prerequisite records.
func (d *ConflictDetector) checkMissingRequirements(sel entities.Selection, idx *selectionIndex, report *entities.ConflictReport) {
	if len(report.Conflicts) > 0 && len(sel.PlotBlocks) != 1 {
		return
	}

	check := func(src entities.Element) {
		for _, req := range src.Requires {
			if idx.selected[req] || !idx.markPair(src.ID, req) {
				continue
			}
			report.Conflicts = append(report.Conflicts, entities.Conflict{
				Type:     entities.ConflictCondition,
				SourceID: src.ID,
				TargetID: req,
				Message:  fmt.Sprintf("%s requires %s, which is not selected", src.Name, idx.name(req)),
				Severity: entities.SeverityError,
			})
		}
	}

	for _, block := range sel.PlotBlocks {
		check(block)
	}
	for _, cond := range sel.Conditions {
		check(cond)
	}
}

// suggestionFor builds the resolution record for one conflict.
func suggestionFor(c entities.Conflict) entities.ResolutionSuggestion {
	if c.Type == entities.ConflictCategoryExclusion {
		return entities.ResolutionSuggestion{
			Action:    "remove_element",
			TargetIDs: []string{c.TargetID},
			Impact:    "medium",
			Reason:    "removing the excluded element clears the category conflict",
		}
	}
	return entities.ResolutionSuggestion{
		Action:    "remove_conflicting_element",
		TargetIDs: []string{c.TargetID},
		Impact:    "low",
		Reason:    fmt.Sprintf("remove %s to resolve the %s conflict", c.TargetID, c.Type),
	}
}
