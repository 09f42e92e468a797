package handlers

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ersonp/canon-core/internal/domain/entities"
	"github.com/ersonp/canon-core/internal/domain/mocks"
	"github.com/ersonp/canon-core/internal/domain/services"
)

func templateFixture(t *testing.T) (*TemplateHandler, *mocks.RelationalDB) {
	t.Helper()
	db := mocks.NewRelationalDB()
	return NewTemplateHandler(db, services.NewRuleService(db)), db
}

func exclusionTemplate() *entities.RuleTemplate {
	return &entities.RuleTemplate{
		ID:           "tpl-exclusion",
		Name:         "Tag exclusion",
		FandomID:     testFandom,
		Placeholders: []string{"tag"},
		Rule: entities.ValidationRule{
			Name:     "{{tag}} exclusion",
			FandomID: testFandom,
			Priority: 50,
			IsActive: true,
			Conditions: []entities.RuleCondition{
				{Type: entities.ConditionTagPresent, Target: "{{tag}}"},
			},
			Actions: []entities.RuleAction{
				{Type: entities.ActionWarning, Message: "{{tag}} is restricted"},
			},
		},
	}
}

func TestTemplateHandler_Expand(t *testing.T) {
	handler, db := templateFixture(t)
	ctx := context.Background()

	require.NoError(t, handler.HandleSave(ctx, exclusionTemplate()))

	rule, err := handler.HandleExpand(ctx, "tpl-exclusion", map[string]string{"tag": "angst"})
	require.NoError(t, err)

	assert.Equal(t, "angst exclusion", rule.Name)
	assert.Equal(t, "angst", rule.Conditions[0].Target)

	// The expanded rule was persisted and versioned.
	require.Contains(t, db.Rules, rule.ID)
	assert.Equal(t, 1, db.SaveRuleVersionCallCount)
}

func TestTemplateHandler_Expand_Unknown(t *testing.T) {
	handler, _ := templateFixture(t)

	_, err := handler.HandleExpand(context.Background(), "no-such-template", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "template not found")
}

func TestTemplateHandler_Expand_BadValues(t *testing.T) {
	handler, _ := templateFixture(t)
	ctx := context.Background()

	require.NoError(t, handler.HandleSave(ctx, exclusionTemplate()))

	t.Run("missing placeholder value", func(t *testing.T) {
		_, err := handler.HandleExpand(ctx, "tpl-exclusion", map[string]string{})
		require.Error(t, err)
	})

	t.Run("undeclared key", func(t *testing.T) {
		_, err := handler.HandleExpand(ctx, "tpl-exclusion", map[string]string{
			"tag":   "angst",
			"other": "x",
		})
		require.Error(t, err)
	})
}

func TestTemplateHandler_CRUD(t *testing.T) {
	handler, _ := templateFixture(t)
	ctx := context.Background()

	require.NoError(t, handler.HandleSave(ctx, exclusionTemplate()))

	templates, err := handler.HandleList(ctx, testFandom)
	require.NoError(t, err)
	assert.Len(t, templates, 1)

	tpl, err := handler.HandleShow(ctx, "tpl-exclusion")
	require.NoError(t, err)
	require.NotNil(t, tpl)
	assert.Equal(t, "Tag exclusion", tpl.Name)

	require.NoError(t, handler.HandleDelete(ctx, "tpl-exclusion"))
	tpl, err = handler.HandleShow(ctx, "tpl-exclusion")
	require.NoError(t, err)
	assert.Nil(t, tpl)
}
