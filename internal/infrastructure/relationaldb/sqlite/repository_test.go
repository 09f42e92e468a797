package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/ersonp/canon-core/internal/domain/entities"
	"github.com/ersonp/canon-core/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestRepo creates an in-memory SQLite repository for testing.
func setupTestRepo(t *testing.T) *Repository {
	t.Helper()
	repo, err := NewRepository(config.SQLiteConfig{Path: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })

	err = repo.EnsureSchema(context.Background())
	require.NoError(t, err)

	return repo
}

func testElement(id, name string) *entities.Element {
	return &entities.Element{
		ID:        id,
		FandomID:  "test-fandom",
		Kind:      entities.KindPlotBlock,
		Name:      name,
		Category:  "timeline",
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
}

func testRule(id, name string, priority int) *entities.ValidationRule {
	return &entities.ValidationRule{
		ID:       id,
		Name:     name,
		FandomID: "test-fandom",
		Priority: priority,
		IsActive: true,
		Conditions: []entities.RuleCondition{
			{Type: entities.ConditionTagPresent, Target: "tag-angst"},
		},
		Actions: []entities.RuleAction{
			{Type: entities.ActionWarning, Severity: entities.SeverityWarning, Message: "heavy themes"},
		},
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
}

func TestNewRepository(t *testing.T) {
	t.Run("success with memory database", func(t *testing.T) {
		repo, err := NewRepository(config.SQLiteConfig{Path: ":memory:"})
		require.NoError(t, err)
		defer repo.Close()
		assert.NotNil(t, repo)
	})

	t.Run("success with file database", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "canon.db")
		repo, err := NewRepository(config.SQLiteConfig{Path: path})
		require.NoError(t, err)
		defer repo.Close()
		assert.Equal(t, path, repo.Path())
	})

	t.Run("error with empty path", func(t *testing.T) {
		_, err := NewRepository(config.SQLiteConfig{Path: ""})
		require.Error(t, err)
	})
}

func TestRepository_EnsureSchema(t *testing.T) {
	repo := setupTestRepo(t)

	// Verify tables exist
	tables := []string{"elements", "rules", "rule_versions", "categories", "rule_templates", "audit_log"}
	for _, table := range tables {
		var count int
		err := repo.db.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?`, table).Scan(&count)
		require.NoError(t, err)
		assert.Equal(t, 1, count, "table %s should exist", table)
	}
}

func TestRepository_EnsureSchema_Idempotent(t *testing.T) {
	repo := setupTestRepo(t)

	// Should not error when called again
	err := repo.EnsureSchema(context.Background())
	require.NoError(t, err)
}

func TestRepository_Elements(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()

	t.Run("save and find by id", func(t *testing.T) {
		el := testElement("el-1", "Time Turner")
		el.Description = "A device for traveling back in time"
		el.Requires = []string{"el-third-year"}
		el.ConflictsWith = []string{"el-fixed-timeline"}
		maxInstances := 2
		el.MaxInstances = &maxInstances

		err := repo.SaveElement(ctx, el)
		require.NoError(t, err)

		found, err := repo.FindElementByID(ctx, "el-1")
		require.NoError(t, err)
		require.NotNil(t, found)
		assert.Equal(t, "Time Turner", found.Name)
		assert.Equal(t, entities.KindPlotBlock, found.Kind)
		assert.Equal(t, []string{"el-third-year"}, found.Requires)
		assert.Equal(t, []string{"el-fixed-timeline"}, found.ConflictsWith)
		require.NotNil(t, found.MaxInstances)
		assert.Equal(t, 2, *found.MaxInstances)
	})

	t.Run("find by name is case-insensitive", func(t *testing.T) {
		found, err := repo.FindElementByName(ctx, "test-fandom", "TIME turner")
		require.NoError(t, err)
		require.NotNil(t, found)
		assert.Equal(t, "el-1", found.ID)
	})

	t.Run("find nonexistent returns nil", func(t *testing.T) {
		found, err := repo.FindElementByID(ctx, "nonexistent")
		require.NoError(t, err)
		assert.Nil(t, found)
	})

	t.Run("upsert updates in place", func(t *testing.T) {
		el := testElement("el-1", "Time Turner")
		el.Description = "Rewritten description"
		err := repo.SaveElement(ctx, el)
		require.NoError(t, err)

		found, err := repo.FindElementByID(ctx, "el-1")
		require.NoError(t, err)
		assert.Equal(t, "Rewritten description", found.Description)

		count, err := repo.CountElements(ctx, "test-fandom", "")
		require.NoError(t, err)
		assert.Equal(t, 1, count)
	})

	t.Run("list filters by kind", func(t *testing.T) {
		tag := testElement("el-tag", "Angst")
		tag.Kind = entities.KindTag
		require.NoError(t, repo.SaveElement(ctx, tag))

		blocks, err := repo.ListElements(ctx, "test-fandom", entities.KindPlotBlock, 0, 0)
		require.NoError(t, err)
		require.Len(t, blocks, 1)
		assert.Equal(t, "el-1", blocks[0].ID)

		all, err := repo.ListElements(ctx, "test-fandom", "", 0, 0)
		require.NoError(t, err)
		assert.Len(t, all, 2)
	})

	t.Run("list with pagination", func(t *testing.T) {
		page, err := repo.ListElements(ctx, "test-fandom", "", 1, 1)
		require.NoError(t, err)
		require.Len(t, page, 1)
		// Ordered by name, so the second page is Time Turner
		assert.Equal(t, "el-1", page[0].ID)
	})

	t.Run("list excludes other fandoms", func(t *testing.T) {
		other := testElement("el-other", "Lightsaber")
		other.FandomID = "other-fandom"
		require.NoError(t, repo.SaveElement(ctx, other))

		found, err := repo.ListElements(ctx, "test-fandom", "", 0, 0)
		require.NoError(t, err)
		assert.Len(t, found, 2)
	})

	t.Run("search by name pattern", func(t *testing.T) {
		found, err := repo.SearchElements(ctx, "test-fandom", "turner", 10)
		require.NoError(t, err)
		require.Len(t, found, 1)
		assert.Equal(t, "el-1", found[0].ID)
	})

	t.Run("count by kind", func(t *testing.T) {
		count, err := repo.CountElements(ctx, "test-fandom", entities.KindTag)
		require.NoError(t, err)
		assert.Equal(t, 1, count)
	})

	t.Run("delete", func(t *testing.T) {
		err := repo.DeleteElement(ctx, "el-tag")
		require.NoError(t, err)

		found, err := repo.FindElementByID(ctx, "el-tag")
		require.NoError(t, err)
		assert.Nil(t, found)
	})

	t.Run("delete nonexistent", func(t *testing.T) {
		err := repo.DeleteElement(ctx, "nonexistent")
		require.Error(t, err)
	})
}

func TestRepository_Rules(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()

	t.Run("save and find", func(t *testing.T) {
		rule := testRule("rule-1", "Angst warning", 80)
		rule.DependsOn = []string{"rule-base"}

		err := repo.SaveRule(ctx, rule)
		require.NoError(t, err)

		found, err := repo.FindRuleByID(ctx, "rule-1")
		require.NoError(t, err)
		require.NotNil(t, found)
		assert.Equal(t, "Angst warning", found.Name)
		assert.Equal(t, 80, found.Priority)
		assert.Equal(t, []string{"rule-base"}, found.DependsOn)
		require.Len(t, found.Conditions, 1)
		assert.Equal(t, entities.ConditionTagPresent, found.Conditions[0].Type)
		require.Len(t, found.Actions, 1)
		assert.Equal(t, entities.ActionWarning, found.Actions[0].Type)
	})

	t.Run("find nonexistent returns nil", func(t *testing.T) {
		found, err := repo.FindRuleByID(ctx, "nonexistent")
		require.NoError(t, err)
		assert.Nil(t, found)
	})

	t.Run("list ordered by priority", func(t *testing.T) {
		low := testRule("rule-low", "Low priority", 10)
		require.NoError(t, repo.SaveRule(ctx, low))

		rules, err := repo.ListRules(ctx, "test-fandom", false)
		require.NoError(t, err)
		require.Len(t, rules, 2)
		assert.Equal(t, "rule-1", rules[0].ID)
		assert.Equal(t, "rule-low", rules[1].ID)
	})

	t.Run("list active only", func(t *testing.T) {
		inactive := testRule("rule-inactive", "Disabled", 50)
		inactive.IsActive = false
		require.NoError(t, repo.SaveRule(ctx, inactive))

		rules, err := repo.ListRules(ctx, "test-fandom", true)
		require.NoError(t, err)
		assert.Len(t, rules, 2)
		for _, rule := range rules {
			assert.True(t, rule.IsActive)
		}
	})

	t.Run("upsert updates priority", func(t *testing.T) {
		rule := testRule("rule-1", "Angst warning", 95)
		err := repo.SaveRule(ctx, rule)
		require.NoError(t, err)

		found, err := repo.FindRuleByID(ctx, "rule-1")
		require.NoError(t, err)
		assert.Equal(t, 95, found.Priority)

		count, err := repo.CountRules(ctx, "test-fandom")
		require.NoError(t, err)
		assert.Equal(t, 3, count)
	})

	t.Run("delete", func(t *testing.T) {
		err := repo.DeleteRule(ctx, "rule-inactive")
		require.NoError(t, err)

		found, err := repo.FindRuleByID(ctx, "rule-inactive")
		require.NoError(t, err)
		assert.Nil(t, found)
	})

	t.Run("delete nonexistent", func(t *testing.T) {
		err := repo.DeleteRule(ctx, "nonexistent")
		require.Error(t, err)
	})
}

func TestRepository_RuleVersions(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()

	rule := testRule("rule-1", "Angst warning", 80)

	t.Run("save and find versions", func(t *testing.T) {
		v1 := &entities.RuleVersion{
			ID:         "v1",
			RuleID:     "rule-1",
			Version:    1,
			ChangeType: entities.RuleChangeCreation,
			Data:       *rule,
			Reason:     "Initial",
			CreatedAt:  time.Now(),
		}

		err := repo.SaveRuleVersion(ctx, v1)
		require.NoError(t, err)

		versions, err := repo.FindVersionsByRule(ctx, "rule-1")
		require.NoError(t, err)
		require.Len(t, versions, 1)
		assert.Equal(t, 1, versions[0].Version)
		assert.Equal(t, entities.RuleChangeCreation, versions[0].ChangeType)
	})

	t.Run("find latest version", func(t *testing.T) {
		rule.Priority = 95
		v2 := &entities.RuleVersion{
			ID:         "v2",
			RuleID:     "rule-1",
			Version:    2,
			ChangeType: entities.RuleChangeUpdate,
			Data:       *rule,
			Reason:     "Raised priority",
			CreatedAt:  time.Now(),
		}

		err := repo.SaveRuleVersion(ctx, v2)
		require.NoError(t, err)

		latest, err := repo.FindLatestRuleVersion(ctx, "rule-1")
		require.NoError(t, err)
		require.NotNil(t, latest)
		assert.Equal(t, 2, latest.Version)
		assert.Equal(t, 95, latest.Data.Priority)
	})

	t.Run("versions ordered newest first", func(t *testing.T) {
		versions, err := repo.FindVersionsByRule(ctx, "rule-1")
		require.NoError(t, err)
		require.Len(t, versions, 2)
		assert.Equal(t, 2, versions[0].Version)
		assert.Equal(t, 1, versions[1].Version)
	})

	t.Run("count versions", func(t *testing.T) {
		count, err := repo.CountRuleVersions(ctx, "rule-1")
		require.NoError(t, err)
		assert.Equal(t, 2, count)
	})

	t.Run("find latest for nonexistent rule", func(t *testing.T) {
		latest, err := repo.FindLatestRuleVersion(ctx, "nonexistent")
		require.NoError(t, err)
		assert.Nil(t, latest)
	})
}

func TestRepository_Categories(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()

	t.Run("save and find", func(t *testing.T) {
		c := &entities.Category{
			Name:        "timeline",
			FandomID:    "test-fandom",
			Description: "Time travel and alternate history",
			CreatedAt:   time.Now(),
		}

		err := repo.SaveCategory(ctx, c)
		require.NoError(t, err)

		found, err := repo.FindCategory(ctx, "test-fandom", "timeline")
		require.NoError(t, err)
		require.NotNil(t, found)
		assert.Equal(t, "timeline", found.Name)
	})

	t.Run("same name in another fandom", func(t *testing.T) {
		c := &entities.Category{
			Name:      "timeline",
			FandomID:  "other-fandom",
			CreatedAt: time.Now(),
		}
		err := repo.SaveCategory(ctx, c)
		require.NoError(t, err)

		names, err := repo.ListCategories(ctx, "test-fandom")
		require.NoError(t, err)
		assert.Len(t, names, 1)
	})

	t.Run("update existing", func(t *testing.T) {
		c := &entities.Category{
			Name:        "timeline",
			FandomID:    "test-fandom",
			Description: "Updated description",
			CreatedAt:   time.Now(),
		}

		err := repo.SaveCategory(ctx, c)
		require.NoError(t, err)

		found, err := repo.FindCategory(ctx, "test-fandom", "timeline")
		require.NoError(t, err)
		assert.Equal(t, "Updated description", found.Description)
	})

	t.Run("delete", func(t *testing.T) {
		err := repo.DeleteCategory(ctx, "test-fandom", "timeline")
		require.NoError(t, err)

		found, err := repo.FindCategory(ctx, "test-fandom", "timeline")
		require.NoError(t, err)
		assert.Nil(t, found)
	})

	t.Run("delete nonexistent", func(t *testing.T) {
		err := repo.DeleteCategory(ctx, "test-fandom", "nonexistent")
		require.Error(t, err)
	})
}

func TestRepository_Templates(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()

	t.Run("save and find", func(t *testing.T) {
		tpl := &entities.RuleTemplate{
			ID:           "tpl-1",
			Name:         "Exclusion template",
			FandomID:     "test-fandom",
			Description:  "Warns when {{first}} and {{second}} are combined",
			Placeholders: []string{"first", "second"},
			Rule: entities.ValidationRule{
				ID:       "tpl-rule",
				Name:     "{{first}} excludes {{second}}",
				FandomID: "test-fandom",
				Priority: 50,
				IsActive: true,
				Conditions: []entities.RuleCondition{
					{Type: entities.ConditionTagPresent, Target: "{{first}}"},
				},
				Actions: []entities.RuleAction{
					{Type: entities.ActionWarning, Message: "{{first}} conflicts with {{second}}"},
				},
			},
			CreatedAt: time.Now(),
		}

		err := repo.SaveTemplate(ctx, tpl)
		require.NoError(t, err)

		found, err := repo.FindTemplateByID(ctx, "tpl-1")
		require.NoError(t, err)
		require.NotNil(t, found)
		assert.Equal(t, []string{"first", "second"}, found.Placeholders)
		assert.Equal(t, "{{first}} excludes {{second}}", found.Rule.Name)
	})

	t.Run("list", func(t *testing.T) {
		templates, err := repo.ListTemplates(ctx, "test-fandom")
		require.NoError(t, err)
		assert.Len(t, templates, 1)
	})

	t.Run("find nonexistent returns nil", func(t *testing.T) {
		found, err := repo.FindTemplateByID(ctx, "nonexistent")
		require.NoError(t, err)
		assert.Nil(t, found)
	})

	t.Run("delete", func(t *testing.T) {
		err := repo.DeleteTemplate(ctx, "tpl-1")
		require.NoError(t, err)

		found, err := repo.FindTemplateByID(ctx, "tpl-1")
		require.NoError(t, err)
		assert.Nil(t, found)
	})

	t.Run("delete nonexistent", func(t *testing.T) {
		err := repo.DeleteTemplate(ctx, "nonexistent")
		require.Error(t, err)
	})
}

func TestRepository_AuditLog(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()

	t.Run("log action with details", func(t *testing.T) {
		err := repo.LogAction(ctx, "import", "el-1", "", map[string]any{
			"source": "elements.json",
			"count":  5,
		})
		require.NoError(t, err)
	})

	t.Run("log action for rule", func(t *testing.T) {
		err := repo.LogAction(ctx, "rule_save", "", "rule-1", map[string]any{
			"change": "creation",
		})
		require.NoError(t, err)
	})

	t.Run("log action without details", func(t *testing.T) {
		err := repo.LogAction(ctx, "validate", "", "", nil)
		require.NoError(t, err)
	})

	t.Run("find by element", func(t *testing.T) {
		entries, err := repo.FindAuditLogByElement(ctx, "el-1")
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, "import", entries[0].Action)
		assert.Equal(t, "elements.json", entries[0].Details["source"])
	})

	t.Run("find by rule", func(t *testing.T) {
		entries, err := repo.FindAuditLogByRule(ctx, "rule-1")
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, "rule_save", entries[0].Action)
	})

	t.Run("find by action", func(t *testing.T) {
		entries, err := repo.FindAuditLogByAction(ctx, "validate", 10)
		require.NoError(t, err)
		assert.Len(t, entries, 1)
	})

	t.Run("find by action with limit", func(t *testing.T) {
		for i := 0; i < 5; i++ {
			err := repo.LogAction(ctx, "bulk", "", "", nil)
			require.NoError(t, err)
		}

		entries, err := repo.FindAuditLogByAction(ctx, "bulk", 3)
		require.NoError(t, err)
		assert.Len(t, entries, 3)
	})
}
