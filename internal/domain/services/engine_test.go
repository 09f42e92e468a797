package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ersonp/canon-core/internal/domain/entities"
)

const testFandom = "test-fandom"

func makeRule(id string, priority int, conditions []entities.RuleCondition, actions []entities.RuleAction) entities.ValidationRule {
	return entities.ValidationRule{
		ID:         id,
		Name:       "Rule " + id,
		FandomID:   testFandom,
		Priority:   priority,
		IsActive:   true,
		Conditions: conditions,
		Actions:    actions,
	}
}

func warnRule(id string, priority int, tag string) entities.ValidationRule {
	return makeRule(id, priority,
		[]entities.RuleCondition{{Type: entities.ConditionTagPresent, Target: tag}},
		[]entities.RuleAction{{Type: entities.ActionWarning, Message: "warned by " + id}},
	)
}

func TestRuleEngine_LoadRules_InvalidRule(t *testing.T) {
	engine := NewRuleEngine(DefaultRuleEngineOptions())

	rule := makeRule("r1", 200, nil, nil)

	err := engine.LoadRules([]entities.ValidationRule{rule})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "priority")
	assert.Equal(t, 0, engine.RuleCount(), "failed load leaves the engine untouched")
}

func TestRuleEngine_LoadRules_DuplicateID(t *testing.T) {
	engine := NewRuleEngine(DefaultRuleEngineOptions())

	err := engine.LoadRules([]entities.ValidationRule{
		warnRule("r1", 10, "angst"),
		warnRule("r1", 20, "fluff"),
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate rule id")
}

func TestRuleEngine_LoadRules_ReplacesPriorSet(t *testing.T) {
	engine := NewRuleEngine(DefaultRuleEngineOptions())

	require.NoError(t, engine.LoadRules([]entities.ValidationRule{warnRule("r1", 10, "angst")}))
	require.NoError(t, engine.LoadRules([]entities.ValidationRule{warnRule("r2", 10, "fluff")}))

	assert.Equal(t, 1, engine.RuleCount())
	_, ok := engine.Rule("r1")
	assert.False(t, ok)
	_, ok = engine.Rule("r2")
	assert.True(t, ok)
}

func TestRuleEngine_LoadRules_CircularDependencyStrict(t *testing.T) {
	engine := NewRuleEngine(DefaultRuleEngineOptions())

	r1 := warnRule("r1", 10, "angst")
	r1.DependsOn = []string{"r2"}
	r2 := warnRule("r2", 10, "fluff")
	r2.DependsOn = []string{"r1"}

	err := engine.LoadRules([]entities.ValidationRule{r1, r2})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "circular rule dependency")
}

func TestRuleEngine_LoadRules_CircularDependencyTolerant(t *testing.T) {
	opts := DefaultRuleEngineOptions()
	opts.StrictMode = false
	engine := NewRuleEngine(opts)

	r1 := warnRule("r1", 10, "angst")
	r1.DependsOn = []string{"r2"}
	r2 := warnRule("r2", 10, "fluff")
	r2.DependsOn = []string{"r1"}

	require.NoError(t, engine.LoadRules([]entities.ValidationRule{r1, r2}))
	assert.Equal(t, 2, engine.RuleCount())
}

func TestRuleEngine_LoadRules_DanglingDependency(t *testing.T) {
	engine := NewRuleEngine(DefaultRuleEngineOptions())

	r1 := warnRule("r1", 10, "angst")
	r1.DependsOn = []string{"never-loaded"}

	require.NoError(t, engine.LoadRules([]entities.ValidationRule{r1}))
}

func TestRuleEngine_Clear(t *testing.T) {
	engine := NewRuleEngine(DefaultRuleEngineOptions())
	require.NoError(t, engine.LoadRules([]entities.ValidationRule{warnRule("r1", 10, "angst")}))

	engine.Clear()

	assert.Equal(t, 0, engine.RuleCount())
}

func TestRuleEngine_Validate_EmptyRuleSet(t *testing.T) {
	engine := NewRuleEngine(DefaultRuleEngineOptions())

	result := engine.Validate(context.Background(), entities.RuleContext{FandomID: testFandom})

	assert.True(t, result.IsValid)
	assert.Equal(t, 0, result.RulesEvaluated)
	assert.Empty(t, result.Errors)
}

func TestRuleEngine_Validate_PriorityOrder(t *testing.T) {
	engine := NewRuleEngine(DefaultRuleEngineOptions())
	require.NoError(t, engine.LoadRules([]entities.ValidationRule{
		warnRule("b-low", 10, "angst"),
		warnRule("z-high", 90, "angst"),
		warnRule("a-low", 10, "angst"),
	}))

	result := engine.Validate(context.Background(), entities.RuleContext{
		FandomID:     testFandom,
		SelectedTags: []string{"angst"},
	})

	require.Len(t, result.AppliedRules, 3)
	assert.Equal(t, "z-high", result.AppliedRules[0].RuleID)
	assert.Equal(t, "a-low", result.AppliedRules[1].RuleID, "id ascending breaks priority ties")
	assert.Equal(t, "b-low", result.AppliedRules[2].RuleID)
}

func TestRuleEngine_Validate_FiltersFandomAndActive(t *testing.T) {
	engine := NewRuleEngine(DefaultRuleEngineOptions())

	other := warnRule("other", 50, "angst")
	other.FandomID = "other-fandom"
	inactive := warnRule("inactive", 50, "angst")
	inactive.IsActive = false

	require.NoError(t, engine.LoadRules([]entities.ValidationRule{
		warnRule("mine", 50, "angst"),
		other,
		inactive,
	}))

	result := engine.Validate(context.Background(), entities.RuleContext{
		FandomID:     testFandom,
		SelectedTags: []string{"angst"},
	})

	assert.Equal(t, 1, result.RulesEvaluated)
	require.Len(t, result.AppliedRules, 1)
	assert.Equal(t, "mine", result.AppliedRules[0].RuleID)
}

func TestRuleEngine_Validate_ConditionTypes(t *testing.T) {
	tests := []struct {
		name      string
		condition entities.RuleCondition
		rctx      entities.RuleContext
		matched   bool
	}{
		{
			name:      "tag_present hit",
			condition: entities.RuleCondition{Type: entities.ConditionTagPresent, Target: "angst"},
			rctx:      entities.RuleContext{FandomID: testFandom, SelectedTags: []string{"angst"}},
			matched:   true,
		},
		{
			name:      "tag_present miss",
			condition: entities.RuleCondition{Type: entities.ConditionTagPresent, Target: "angst"},
			rctx:      entities.RuleContext{FandomID: testFandom, SelectedTags: []string{"fluff"}},
			matched:   false,
		},
		{
			name:      "tag_absent",
			condition: entities.RuleCondition{Type: entities.ConditionTagAbsent, Target: "angst"},
			rctx:      entities.RuleContext{FandomID: testFandom, SelectedTags: []string{"fluff"}},
			matched:   true,
		},
		{
			name:      "plot_block_present",
			condition: entities.RuleCondition{Type: entities.ConditionPlotBlockPresent, Target: "time-turner"},
			rctx:      entities.RuleContext{FandomID: testFandom, SelectedPlotBlocks: []string{"time-turner"}},
			matched:   true,
		},
		{
			name:      "tag_count equals",
			condition: entities.RuleCondition{Type: entities.ConditionTagCount, Operator: entities.OperatorEquals, Count: 2},
			rctx:      entities.RuleContext{FandomID: testFandom, SelectedTags: []string{"a", "b"}},
			matched:   true,
		},
		{
			name:      "tag_count greater_than",
			condition: entities.RuleCondition{Type: entities.ConditionTagCount, Operator: entities.OperatorGreaterThan, Count: 1},
			rctx:      entities.RuleContext{FandomID: testFandom, SelectedTags: []string{"a", "b"}},
			matched:   true,
		},
		{
			name:      "tag_count less_than miss",
			condition: entities.RuleCondition{Type: entities.ConditionTagCount, Operator: entities.OperatorLessThan, Count: 2},
			rctx:      entities.RuleContext{FandomID: testFandom, SelectedTags: []string{"a", "b"}},
			matched:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine := NewRuleEngine(DefaultRuleEngineOptions())
			rule := makeRule("r1", 50,
				[]entities.RuleCondition{tt.condition},
				[]entities.RuleAction{{Type: entities.ActionWarning, Message: "matched"}},
			)
			require.NoError(t, engine.LoadRules([]entities.ValidationRule{rule}))

			result := engine.Validate(context.Background(), tt.rctx)

			require.Len(t, result.AppliedRules, 1)
			assert.Equal(t, tt.matched, result.AppliedRules[0].Matched)
		})
	}
}

func TestRuleEngine_Validate_OrRescuesRule(t *testing.T) {
	engine := NewRuleEngine(DefaultRuleEngineOptions())
	rule := makeRule("r1", 50,
		[]entities.RuleCondition{
			{Type: entities.ConditionTagPresent, Target: "missing"},
			{Type: entities.ConditionTagPresent, Target: "angst", Logical: entities.LogicalOr},
		},
		[]entities.RuleAction{{Type: entities.ActionWarning, Message: "matched"}},
	)
	require.NoError(t, engine.LoadRules([]entities.ValidationRule{rule}))

	result := engine.Validate(context.Background(), entities.RuleContext{
		FandomID:     testFandom,
		SelectedTags: []string{"angst"},
	})

	require.Len(t, result.AppliedRules, 1)
	assert.True(t, result.AppliedRules[0].Matched)
	assert.Len(t, result.Warnings, 1)
}

func TestRuleEngine_Validate_AndShortCircuits(t *testing.T) {
	engine := NewRuleEngine(DefaultRuleEngineOptions())
	rule := makeRule("r1", 50,
		[]entities.RuleCondition{
			{Type: entities.ConditionTagPresent, Target: "missing"},
			{Type: entities.ConditionTagPresent, Target: "angst", Logical: entities.LogicalAnd},
		},
		[]entities.RuleAction{{Type: entities.ActionWarning, Message: "matched"}},
	)
	require.NoError(t, engine.LoadRules([]entities.ValidationRule{rule}))

	result := engine.Validate(context.Background(), entities.RuleContext{
		FandomID:     testFandom,
		SelectedTags: []string{"angst"},
	})

	require.Len(t, result.AppliedRules, 1)
	trace := result.AppliedRules[0]
	assert.False(t, trace.Matched)
	assert.Len(t, trace.Conditions, 1, "skipped conditions stay out of the trace")
}

func TestRuleEngine_Validate_ActionSeverities(t *testing.T) {
	engine := NewRuleEngine(DefaultRuleEngineOptions())
	rule := makeRule("r1", 50,
		[]entities.RuleCondition{{Type: entities.ConditionTagPresent, Target: "angst"}},
		[]entities.RuleAction{
			{Type: entities.ActionError, Message: "bad combo"},
			{Type: entities.ActionWarning, Message: "be careful"},
			{Type: entities.ActionSuggestion, Message: "try fluff"},
		},
	)
	require.NoError(t, engine.LoadRules([]entities.ValidationRule{rule}))

	result := engine.Validate(context.Background(), entities.RuleContext{
		FandomID:     testFandom,
		SelectedTags: []string{"angst"},
	})

	assert.False(t, result.IsValid)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, entities.SeverityError, result.Errors[0].Severity, "unset action severity defaults to error")
	require.Len(t, result.Warnings, 1)
	assert.True(t, result.Warnings[0].CanIgnore)
	require.Len(t, result.Suggestions, 1)
	assert.Equal(t, DefaultSuggestionConfidence, result.Suggestions[0].Confidence)
	assert.Equal(t, 3, result.AppliedRules[0].ActionsApplied)
}

func TestRuleEngine_Validate_StrictModeHaltsOnError(t *testing.T) {
	engine := NewRuleEngine(DefaultRuleEngineOptions())
	errRule := makeRule("high", 90,
		[]entities.RuleCondition{{Type: entities.ConditionTagPresent, Target: "angst"}},
		[]entities.RuleAction{{Type: entities.ActionError, Message: "stop"}},
	)
	require.NoError(t, engine.LoadRules([]entities.ValidationRule{
		errRule,
		warnRule("low", 10, "angst"),
	}))

	result := engine.Validate(context.Background(), entities.RuleContext{
		FandomID:     testFandom,
		SelectedTags: []string{"angst"},
	})

	assert.False(t, result.IsValid)
	assert.Equal(t, 1, result.RulesEvaluated, "strict mode halts after the first error")
	assert.Empty(t, result.Warnings)
}

func TestRuleEngine_Validate_NonStrictContinuesPastError(t *testing.T) {
	opts := DefaultRuleEngineOptions()
	opts.StrictMode = false
	engine := NewRuleEngine(opts)

	errRule := makeRule("high", 90,
		[]entities.RuleCondition{{Type: entities.ConditionTagPresent, Target: "angst"}},
		[]entities.RuleAction{{Type: entities.ActionError, Message: "stop"}},
	)
	require.NoError(t, engine.LoadRules([]entities.ValidationRule{
		errRule,
		warnRule("low", 10, "angst"),
	}))

	result := engine.Validate(context.Background(), entities.RuleContext{
		FandomID:     testFandom,
		SelectedTags: []string{"angst"},
	})

	assert.False(t, result.IsValid)
	assert.Equal(t, 2, result.RulesEvaluated)
	assert.Len(t, result.Warnings, 1)
}

func TestRuleEngine_Validate_CustomEvaluator(t *testing.T) {
	engine := NewRuleEngine(DefaultRuleEngineOptions())
	rule := makeRule("r1", 50,
		[]entities.RuleCondition{{Type: entities.ConditionCustom, Target: "min-tags"}},
		[]entities.RuleAction{{Type: entities.ActionWarning, Message: "matched"}},
	)
	require.NoError(t, engine.LoadRules([]entities.ValidationRule{rule}))

	rctx := entities.RuleContext{FandomID: testFandom, SelectedTags: []string{"a", "b"}}

	// Unregistered evaluators conservatively fail.
	result := engine.Validate(context.Background(), rctx)
	assert.False(t, result.AppliedRules[0].Matched)

	engine.RegisterEvaluator("min-tags", func(rctx entities.RuleContext, _ entities.RuleCondition) bool {
		return len(rctx.SelectedTags) >= 2
	})

	result = engine.Validate(context.Background(), rctx)
	assert.True(t, result.AppliedRules[0].Matched)
}

func TestRuleEngine_Validate_PanickingRuleIsolated(t *testing.T) {
	opts := DefaultRuleEngineOptions()
	opts.StrictMode = false
	engine := NewRuleEngine(opts)

	panicRule := makeRule("boom", 90,
		[]entities.RuleCondition{{Type: entities.ConditionCustom, Target: "explode"}},
		[]entities.RuleAction{{Type: entities.ActionWarning, Message: "never reached"}},
	)
	require.NoError(t, engine.LoadRules([]entities.ValidationRule{
		panicRule,
		warnRule("steady", 10, "angst"),
	}))
	engine.RegisterEvaluator("explode", func(entities.RuleContext, entities.RuleCondition) bool {
		panic("evaluator bug")
	})

	result := engine.Validate(context.Background(), entities.RuleContext{
		FandomID:     testFandom,
		SelectedTags: []string{"angst"},
	})

	assert.False(t, result.IsValid)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, "boom", result.Errors[0].RuleID)
	assert.Equal(t, entities.SeverityCritical, result.Errors[0].Severity)
	assert.Len(t, result.Warnings, 1, "the batch survives one bad rule")
}

func TestRuleEngine_Validate_Timeout(t *testing.T) {
	opts := DefaultRuleEngineOptions()
	opts.MaxExecutionTime = time.Nanosecond
	engine := NewRuleEngine(opts)
	require.NoError(t, engine.LoadRules([]entities.ValidationRule{warnRule("r1", 50, "angst")}))

	result := engine.Validate(context.Background(), entities.RuleContext{
		FandomID:     testFandom,
		SelectedTags: []string{"angst"},
	})

	assert.False(t, result.IsValid)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, SystemRuleID, result.Errors[0].RuleID)
	assert.Equal(t, entities.SeverityCritical, result.Errors[0].Severity)
	assert.Contains(t, result.Errors[0].Message, "timed out")
	assert.Empty(t, result.Warnings, "partial results are discarded")
	assert.Empty(t, result.AppliedRules)
}

func TestRuleEngine_Validate_CanceledContext(t *testing.T) {
	engine := NewRuleEngine(DefaultRuleEngineOptions())
	require.NoError(t, engine.LoadRules([]entities.ValidationRule{warnRule("r1", 50, "angst")}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result := engine.Validate(ctx, entities.RuleContext{
		FandomID:     testFandom,
		SelectedTags: []string{"angst"},
	})

	assert.False(t, result.IsValid)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, SystemRuleID, result.Errors[0].RuleID)
	assert.Contains(t, result.Errors[0].Message, "canceled")
}

func TestRuleEngine_Validate_ParallelMatchesSequential(t *testing.T) {
	rules := []entities.ValidationRule{
		warnRule("a", 30, "angst"),
		warnRule("b", 70, "angst"),
		warnRule("c", 50, "angst"),
		makeRule("d", 90,
			[]entities.RuleCondition{{Type: entities.ConditionTagPresent, Target: "angst"}},
			[]entities.RuleAction{{Type: entities.ActionError, Message: "bad"}},
		),
	}
	rctx := entities.RuleContext{FandomID: testFandom, SelectedTags: []string{"angst"}}

	seqOpts := DefaultRuleEngineOptions()
	seqOpts.StrictMode = false
	sequential := NewRuleEngine(seqOpts)
	require.NoError(t, sequential.LoadRules(rules))

	parOpts := DefaultRuleEngineOptions()
	parOpts.StrictMode = false
	parOpts.ParallelExecution = true
	parallel := NewRuleEngine(parOpts)
	require.NoError(t, parallel.LoadRules(rules))

	seqResult := sequential.Validate(context.Background(), rctx)
	parResult := parallel.Validate(context.Background(), rctx)

	assert.Equal(t, seqResult.IsValid, parResult.IsValid)
	assert.Equal(t, seqResult.RulesEvaluated, parResult.RulesEvaluated)

	seqOrder := make([]string, len(seqResult.AppliedRules))
	parOrder := make([]string, len(parResult.AppliedRules))
	for i := range seqResult.AppliedRules {
		seqOrder[i] = seqResult.AppliedRules[i].RuleID
		parOrder[i] = parResult.AppliedRules[i].RuleID
	}
	assert.Equal(t, seqOrder, parOrder, "parallel aggregation preserves priority order")
}

func TestRuleEngine_Validate_ConcurrentValidations(t *testing.T) {
	engine := NewRuleEngine(DefaultRuleEngineOptions())
	require.NoError(t, engine.LoadRules([]entities.ValidationRule{warnRule("r1", 50, "angst")}))

	rctx := entities.RuleContext{FandomID: testFandom, SelectedTags: []string{"angst"}}

	done := make(chan *entities.ValidationResult, 8)
	for i := 0; i < 8; i++ {
		go func() {
			done <- engine.Validate(context.Background(), rctx)
		}()
	}
	for i := 0; i < 8; i++ {
		result := <-done
		assert.True(t, result.IsValid)
		assert.Equal(t, 1, result.RulesEvaluated)
	}
}
