// Package services contains domain business logic.
package services

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ersonp/canon-core/internal/domain/entities"
)

// SystemRuleID tags diagnostics produced by the engine itself rather
// than by a loaded rule.
const SystemRuleID = "system"

const (
	// DefaultMaxExecutionTime bounds one validation pass.
	DefaultMaxExecutionTime = time.Second
	// DefaultSuggestionConfidence is used when a suggestion action does
	// not declare its own confidence.
	DefaultSuggestionConfidence = 0.5
	// maxParallelRules bounds worker fan-out when parallel evaluation
	// is enabled.
	maxParallelRules = 8
)

// CustomEvaluator implements a custom rule condition. The condition's
// target selects the evaluator by name; an unregistered name makes the
// condition evaluate to false.
type CustomEvaluator func(rctx entities.RuleContext, cond entities.RuleCondition) bool

// RuleEngineOptions configures a RuleEngine at construction.
type RuleEngineOptions struct {
	// MaxExecutionTime is the wall-clock budget for one Validate call.
	MaxExecutionTime time.Duration
	// StrictMode halts a pass at the first rule producing an error
	// action, and makes LoadRules fail on circular rule dependencies.
	StrictMode bool
	// CircularDependencyDetection checks the rule dependency graph
	// during LoadRules.
	CircularDependencyDetection bool
	// ParallelExecution evaluates rules concurrently. It only takes
	// effect with StrictMode off, since the strict halt needs ordered
	// evaluation.
	ParallelExecution bool
}

// DefaultRuleEngineOptions returns the standard configuration: a one
// second budget, strict mode on, dependency detection on, parallel
// evaluation off.
func DefaultRuleEngineOptions() RuleEngineOptions {
	return RuleEngineOptions{
		MaxExecutionTime:            DefaultMaxExecutionTime,
		StrictMode:                  true,
		CircularDependencyDetection: true,
		ParallelExecution:           false,
	}
}

// RuleEngine evaluates declarative validation rules against a
// selection context. An engine is caller-owned: construct one per
// fandom or per request pipeline, load rules into it, and call
// Validate as often as needed. Rules are immutable once loaded; a
// reload replaces the whole set under a coarse lock, so concurrent
// Validate calls against one loaded set are safe.
type RuleEngine struct {
	opts RuleEngineOptions

	mu         sync.RWMutex
	rules      []entities.ValidationRule
	rulesByID  map[string]entities.ValidationRule
	evaluators map[string]CustomEvaluator
}

// NewRuleEngine creates a RuleEngine with the given options. A zero or
// negative budget falls back to DefaultMaxExecutionTime.
func NewRuleEngine(opts RuleEngineOptions) *RuleEngine {
	if opts.MaxExecutionTime <= 0 {
		opts.MaxExecutionTime = DefaultMaxExecutionTime
	}
	return &RuleEngine{
		opts:       opts,
		rulesByID:  make(map[string]entities.ValidationRule),
		evaluators: make(map[string]CustomEvaluator),
	}
}

// RegisterEvaluator installs a named evaluator for custom conditions.
func (e *RuleEngine) RegisterEvaluator(name string, eval CustomEvaluator) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.evaluators[name] = eval
}

// LoadRules replaces the loaded rule set. Every rule is structurally
// validated and indexed by id; loading fails fast on the first invalid
// rule since this is a configuration step. With circular dependency
// detection on, a cycle among rule dependencies is an error in strict
// mode and is tolerated otherwise. Rules keep their insertion order;
// priority ordering is applied at evaluation time.
func (e *RuleEngine) LoadRules(rules []entities.ValidationRule) error {
	byID := make(map[string]entities.ValidationRule, len(rules))
	for _, rule := range rules {
		if err := rule.Validate(); err != nil {
			return fmt.Errorf("loading rules: %w", err)
		}
		if _, ok := byID[rule.ID]; ok {
			return fmt.Errorf("loading rules: duplicate rule id %s", rule.ID)
		}
		byID[rule.ID] = rule
	}

	if e.opts.CircularDependencyDetection && e.opts.StrictMode {
		if cycle := findRuleCycle(rules); cycle != nil {
			return fmt.Errorf("loading rules: circular rule dependency: %s", strings.Join(cycle, " -> "))
		}
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.rules = append([]entities.ValidationRule(nil), rules...)
	e.rulesByID = byID
	return nil
}

// Clear empties the loaded rule set.
func (e *RuleEngine) Clear() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.rules = nil
	e.rulesByID = make(map[string]entities.ValidationRule)
}

// Rule returns a loaded rule by id.
func (e *RuleEngine) Rule(id string) (entities.ValidationRule, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	rule, ok := e.rulesByID[id]
	return rule, ok
}

// RuleCount returns the number of loaded rules.
func (e *RuleEngine) RuleCount() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.rules)
}

// stopReason says why an evaluation pass ended early.
type stopReason int

const (
	stopNone stopReason = iota
	stopDeadline
	stopCanceled
)

// Validate evaluates the loaded rules against the context and returns
// the aggregated result. It never fails outright: engine faults
// (timeout, cancellation, a panicking rule) surface inside the result
// as critical errors tagged with SystemRuleID.
//
// Rules are selected by fandom id and active flag, then evaluated in
// priority order, highest first, ids breaking ties. The wall-clock
// budget and the caller's context are checked between rules; on expiry
// the partial results are discarded and a single critical error is
// returned in their place.
func (e *RuleEngine) Validate(ctx context.Context, rctx entities.RuleContext) *entities.ValidationResult {
	start := time.Now()
	deadline := start.Add(e.opts.MaxExecutionTime)

	e.mu.RLock()
	rules := make([]entities.ValidationRule, 0, len(e.rules))
	for _, r := range e.rules {
		if r.FandomID == rctx.FandomID && r.IsActive {
			rules = append(rules, r)
		}
	}
	e.mu.RUnlock()

	sort.SliceStable(rules, func(i, j int) bool {
		if rules[i].Priority != rules[j].Priority {
			return rules[i].Priority > rules[j].Priority
		}
		return rules[i].ID < rules[j].ID
	})

	result := &entities.ValidationResult{
		IsValid:      true,
		Errors:       []entities.RuleError{},
		Warnings:     []entities.RuleWarning{},
		Suggestions:  []entities.RuleSuggestion{},
		AppliedRules: []entities.AppliedRule{},
	}

	ec := newEvalContext(rctx)

	var reason stopReason
	if e.opts.ParallelExecution && !e.opts.StrictMode {
		reason = e.runParallel(ctx, ec, rules, deadline, result)
	} else {
		reason = e.runSequential(ctx, ec, rules, deadline, result)
	}

	if reason != stopNone {
		msg := fmt.Sprintf("validation timed out after %s; partial results discarded", e.opts.MaxExecutionTime)
		if reason == stopCanceled {
			msg = fmt.Sprintf("validation canceled: %v", ctx.Err())
		}
		return &entities.ValidationResult{
			IsValid: false,
			Errors: []entities.RuleError{{
				RuleID:   SystemRuleID,
				Message:  msg,
				Severity: entities.SeverityCritical,
			}},
			Warnings:        []entities.RuleWarning{},
			Suggestions:     []entities.RuleSuggestion{},
			RulesEvaluated:  result.RulesEvaluated,
			AppliedRules:    []entities.AppliedRule{},
			ExecutionTimeMS: msSince(start),
		}
	}

	result.IsValid = len(result.Errors) == 0
	result.ExecutionTimeMS = msSince(start)
	return result
}

// evalContext carries one pass's lookups. Tag and block sets are built
// once so condition checks stay O(1) however many rules run.
type evalContext struct {
	rctx   entities.RuleContext
	tags   map[string]bool
	blocks map[string]bool
}

func newEvalContext(rctx entities.RuleContext) *evalContext {
	ec := &evalContext{
		rctx:   rctx,
		tags:   make(map[string]bool, len(rctx.SelectedTags)),
		blocks: make(map[string]bool, len(rctx.SelectedPlotBlocks)),
	}
	for _, t := range rctx.SelectedTags {
		ec.tags[t] = true
	}
	for _, b := range rctx.SelectedPlotBlocks {
		ec.blocks[b] = true
	}
	return ec
}

func (e *RuleEngine) runSequential(ctx context.Context, ec *evalContext, rules []entities.ValidationRule, deadline time.Time, result *entities.ValidationResult) stopReason {
	for _, rule := range rules {
		if ctx.Err() != nil {
			return stopCanceled
		}
		if !time.Now().Before(deadline) {
			return stopDeadline
		}

		out := e.evaluateRule(ec, rule)
		result.RulesEvaluated++
		result.AppliedRules = append(result.AppliedRules, out.trace)
		result.Errors = append(result.Errors, out.errors...)
		result.Warnings = append(result.Warnings, out.warnings...)
		result.Suggestions = append(result.Suggestions, out.suggestions...)

		if e.opts.StrictMode && out.haltStrict {
			break
		}
	}
	return stopNone
}

// runParallel fans rules out over a bounded worker group. Outcomes land
// in slots indexed by the rule's evaluation position, so aggregation
// order matches the sequential path and output stays deterministic.
func (e *RuleEngine) runParallel(ctx context.Context, ec *evalContext, rules []entities.ValidationRule, deadline time.Time, result *entities.ValidationResult) stopReason {
	dctx, cancel := context.WithDeadline(ctx, deadline)
	defer cancel()

	outcomes := make([]*ruleOutcome, len(rules))
	g, gctx := errgroup.WithContext(dctx)
	g.SetLimit(maxParallelRules)
	for i := range rules {
		g.Go(func() error {
			if gctx.Err() != nil {
				return nil
			}
			out := e.evaluateRule(ec, rules[i])
			outcomes[i] = &out
			return nil
		})
	}
	_ = g.Wait() // workers report through their slots, never as errors

	completed := true
	for _, out := range outcomes {
		if out == nil {
			completed = false
			continue
		}
		result.RulesEvaluated++
		result.AppliedRules = append(result.AppliedRules, out.trace)
		result.Errors = append(result.Errors, out.errors...)
		result.Warnings = append(result.Warnings, out.warnings...)
		result.Suggestions = append(result.Suggestions, out.suggestions...)
	}

	// a pass that finished every rule is complete even if the deadline
	// lapsed while the last worker was reporting
	if completed {
		return stopNone
	}
	if ctx.Err() != nil {
		return stopCanceled
	}
	return stopDeadline
}

// ruleOutcome is the isolated product of evaluating one rule.
type ruleOutcome struct {
	trace       entities.AppliedRule
	errors      []entities.RuleError
	warnings    []entities.RuleWarning
	suggestions []entities.RuleSuggestion
	haltStrict  bool
}

// evaluateRule runs one rule in isolation. A panic inside a rule (a
// misbehaving custom evaluator, typically) becomes a critical error
// tagged with the rule's id; one bad rule must not abort the batch.
func (e *RuleEngine) evaluateRule(ec *evalContext, rule entities.ValidationRule) (out ruleOutcome) {
	start := time.Now()
	out.trace = entities.AppliedRule{
		RuleID:     rule.ID,
		RuleName:   rule.Name,
		Conditions: []entities.ConditionTrace{},
	}
	defer func() {
		if r := recover(); r != nil {
			out = ruleOutcome{
				trace: entities.AppliedRule{
					RuleID:     rule.ID,
					RuleName:   rule.Name,
					Conditions: []entities.ConditionTrace{},
				},
				errors: []entities.RuleError{{
					RuleID:   rule.ID,
					Message:  fmt.Sprintf("rule %s failed during evaluation: %v", rule.ID, r),
					Severity: entities.SeverityCritical,
				}},
			}
		}
		out.trace.ExecutionTimeMS = msSince(start)
	}()

	matched := e.evaluateConditions(ec, rule.Conditions, &out.trace)
	out.trace.Matched = matched
	if !matched {
		return out
	}

	for _, action := range rule.Actions {
		switch action.Type {
		case entities.ActionError:
			sev := action.Severity
			if sev == "" {
				sev = entities.SeverityError
			}
			out.errors = append(out.errors, entities.RuleError{
				RuleID:   rule.ID,
				Message:  action.Message,
				Severity: sev,
			})
			out.haltStrict = true
		case entities.ActionWarning:
			out.warnings = append(out.warnings, entities.RuleWarning{
				RuleID:    rule.ID,
				Message:   action.Message,
				CanIgnore: true,
			})
		case entities.ActionSuggestion:
			conf := action.Confidence
			if conf == 0 {
				conf = DefaultSuggestionConfidence
			}
			out.suggestions = append(out.suggestions, entities.RuleSuggestion{
				RuleID:     rule.ID,
				Message:    action.Message,
				Confidence: conf,
			})
		case entities.ActionAutoAdd, entities.ActionAutoRemove:
			// counted in the trace but not applied; selection mutation
			// is reserved
		}
		out.trace.ActionsApplied++
	}
	return out
}

// evaluateConditions folds the condition list left to right. A
// condition joined by AND is skipped once the verdict is already
// false; a condition joined by OR is still evaluated and can rescue
// the rule. Skipped conditions do not appear in the trace.
func (e *RuleEngine) evaluateConditions(ec *evalContext, conds []entities.RuleCondition, trace *entities.AppliedRule) bool {
	passed := true
	for i, cond := range conds {
		joinOr := i > 0 && cond.Logical == entities.LogicalOr
		if joinOr && passed {
			continue
		}
		if !joinOr && i > 0 && !passed {
			continue
		}

		condStart := time.Now()
		ok := e.evaluateCondition(ec, cond)
		trace.Conditions = append(trace.Conditions, entities.ConditionTrace{
			Type:            cond.Type,
			Target:          cond.Target,
			Passed:          ok,
			ExecutionTimeMS: msSince(condStart),
		})

		if joinOr {
			passed = passed || ok
		} else {
			passed = passed && ok
		}
	}
	return passed
}

func (e *RuleEngine) evaluateCondition(ec *evalContext, cond entities.RuleCondition) bool {
	switch cond.Type {
	case entities.ConditionTagPresent:
		return ec.tags[cond.Target]
	case entities.ConditionTagAbsent:
		return !ec.tags[cond.Target]
	case entities.ConditionPlotBlockPresent:
		return ec.blocks[cond.Target]
	case entities.ConditionTagCount:
		n := len(ec.rctx.SelectedTags)
		switch cond.Operator {
		case entities.OperatorEquals:
			return n == cond.Count
		case entities.OperatorGreaterThan:
			return n > cond.Count
		case entities.OperatorLessThan:
			return n < cond.Count
		}
		return false
	case entities.ConditionCustom:
		e.mu.RLock()
		eval := e.evaluators[cond.Target]
		e.mu.RUnlock()
		if eval == nil {
			// unimplemented custom conditions conservatively fail
			return false
		}
		return eval(ec.rctx, cond)
	}
	return false
}

// findRuleCycle looks for a cycle in the DependsOn graph and returns
// the first one found as an id path, or nil. Dependencies naming
// unknown rules are skipped like any dangling reference.
func findRuleCycle(rules []entities.ValidationRule) []string {
	known := make(map[string]bool, len(rules))
	adj := make(map[string][]string, len(rules))
	ids := make([]string, 0, len(rules))
	for _, r := range rules {
		known[r.ID] = true
		ids = append(ids, r.ID)
	}
	sort.Strings(ids)
	for _, r := range rules {
		deps := append([]string(nil), r.DependsOn...)
		sort.Strings(deps)
		adj[r.ID] = deps
	}

	visited := make(map[string]bool, len(ids))
	onStack := make(map[string]bool)
	var path []string
	var cycle []string

	var visit func(id string) bool
	visit = func(id string) bool {
		visited[id] = true
		onStack[id] = true
		path = append(path, id)

		for _, dep := range adj[id] {
			if !known[dep] {
				continue
			}
			if onStack[dep] {
				start := 0
				for i, p := range path {
					if p == dep {
						start = i
						break
					}
				}
				cycle = append([]string(nil), path[start:]...)
				return true
			}
			if !visited[dep] && visit(dep) {
				return true
			}
		}

		onStack[id] = false
		path = path[:len(path)-1]
		return false
	}

	for _, id := range ids {
		if !visited[id] && visit(id) {
			return cycle
		}
	}
	return nil
}

func msSince(start time.Time) float64 {
	return float64(time.Since(start)) / float64(time.Millisecond)
}
