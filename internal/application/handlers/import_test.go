package handlers

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ersonp/canon-core/internal/domain/mocks"
	"github.com/ersonp/canon-core/internal/domain/services"
)

// importFixture wires an ImportHandler against in-memory mocks.
func importFixture(t *testing.T) (*ImportHandler, *mocks.RelationalDB, *mocks.VectorDB) {
	t.Helper()

	db := mocks.NewRelationalDB()
	vectorDB := &mocks.VectorDB{}
	emb := &mocks.Embedder{EmbeddingResult: []float32{0.1, 0.2}}

	categories := services.NewCategoryService(db, testFandom)
	require.NoError(t, categories.LoadDefaults(context.Background()))

	importService := services.NewImportService(db, vectorDB, emb, categories, testFandom)
	ruleService := services.NewRuleService(db)

	return NewImportHandler(importService, ruleService), db, vectorDB
}

func writeTempFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestImportHandler_Elements_JSON(t *testing.T) {
	handler, db, vectorDB := importFixture(t)

	path := writeTempFile(t, "elements.json", `[
		{"id": "block-a", "name": "Goblet Heist", "kind": "plot_block"},
		{"id": "tag-angst", "name": "Angst", "kind": "tag"}
	]`)

	result, err := handler.HandleElements(context.Background(), path, ImportOptions{})
	require.NoError(t, err)

	assert.Equal(t, 2, result.Imported)
	assert.Empty(t, result.Errors)
	assert.Len(t, db.Elements, 2)
	assert.Equal(t, 1, vectorDB.SaveBatchCallCount)
}

func TestImportHandler_Elements_CSV(t *testing.T) {
	handler, db, _ := importFixture(t)

	path := writeTempFile(t, "elements.csv",
		"id,name,kind,requires\nblock-a,Goblet Heist,plot_block,\nblock-b,Dragon Duel,plot_block,block-a\n")

	result, err := handler.HandleElements(context.Background(), path, ImportOptions{})
	require.NoError(t, err)

	assert.Equal(t, 2, result.Imported)
	require.Contains(t, db.Elements, "block-b")
	assert.Equal(t, []string{"block-a"}, db.Elements["block-b"].Requires)
}

func TestImportHandler_Elements_ExplicitFormat(t *testing.T) {
	handler, _, _ := importFixture(t)

	// JSON content in a file without a telling extension.
	path := writeTempFile(t, "elements.txt", `[{"name": "Angst", "kind": "tag"}]`)

	result, err := handler.HandleElements(context.Background(), path, ImportOptions{Format: "json"})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Imported)
}

func TestImportHandler_Elements_UnsupportedFormat(t *testing.T) {
	handler, _, _ := importFixture(t)

	path := writeTempFile(t, "elements.txt", "whatever")

	_, err := handler.HandleElements(context.Background(), path, ImportOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported format")
}

func TestImportHandler_Elements_MissingFile(t *testing.T) {
	handler, _, _ := importFixture(t)

	_, err := handler.HandleElements(context.Background(), "/nonexistent/elements.json", ImportOptions{})
	require.Error(t, err)
}

func TestImportHandler_Elements_DryRun(t *testing.T) {
	handler, db, vectorDB := importFixture(t)

	path := writeTempFile(t, "elements.json", `[{"name": "Angst", "kind": "tag"}]`)

	result, err := handler.HandleElements(context.Background(), path, ImportOptions{DryRun: true})
	require.NoError(t, err)

	assert.Equal(t, 1, result.Imported)
	assert.Empty(t, db.Elements)
	assert.Equal(t, 0, vectorDB.SaveBatchCallCount)
}

func TestImportHandler_Elements_PerLineErrors(t *testing.T) {
	handler, _, _ := importFixture(t)

	path := writeTempFile(t, "elements.json", `[
		{"name": "Angst", "kind": "tag"},
		{"name": "", "kind": "tag"},
		{"name": "Mystery", "kind": "chapter"}
	]`)

	result, err := handler.HandleElements(context.Background(), path, ImportOptions{})
	require.NoError(t, err)

	assert.Equal(t, 1, result.Imported)
	require.Len(t, result.Errors, 2)
	assert.Equal(t, 2, result.Errors[0].Line)
	assert.Equal(t, 3, result.Errors[1].Line)
}

func TestImportHandler_Rules(t *testing.T) {
	handler, db, _ := importFixture(t)

	path := writeTempFile(t, "rules.json", `[
		{
			"id": "rule-angst",
			"name": "Angst warning",
			"priority": 80,
			"conditions": [{"type": "tag_present", "target": "tag-angst"}],
			"actions": [{"type": "warning", "message": "heavy themes"}]
		}
	]`)

	result, err := handler.HandleRules(context.Background(), path, ImportOptions{})
	require.NoError(t, err)

	assert.Equal(t, 1, result.Imported)
	require.Contains(t, db.Rules, "rule-angst")
	assert.Equal(t, 80, db.Rules["rule-angst"].Priority)
	// Imported rules get a version snapshot like any other save.
	assert.Equal(t, 1, db.SaveRuleVersionCallCount)
}

func TestImportHandler_Rules_InvalidJSON(t *testing.T) {
	handler, _, _ := importFixture(t)

	path := writeTempFile(t, "rules.json", `{not json`)

	_, err := handler.HandleRules(context.Background(), path, ImportOptions{})
	require.Error(t, err)
}

func TestImportHandler_Rules_Empty(t *testing.T) {
	handler, _, _ := importFixture(t)

	path := writeTempFile(t, "rules.json", `[]`)

	result, err := handler.HandleRules(context.Background(), path, ImportOptions{})
	require.NoError(t, err)
	assert.Equal(t, 0, result.Imported)
}
