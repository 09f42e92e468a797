package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/ersonp/canon-core/internal/application/handlers"
	"github.com/ersonp/canon-core/internal/domain/ports"
	"github.com/ersonp/canon-core/internal/domain/services"
	"github.com/ersonp/canon-core/internal/infrastructure/config"
	embedder "github.com/ersonp/canon-core/internal/infrastructure/embedder/openai"
	"github.com/ersonp/canon-core/internal/infrastructure/relationaldb/sqlite"
	"github.com/ersonp/canon-core/internal/infrastructure/vectordb/qdrant"
	"github.com/ersonp/canon-core/internal/observe"
)

// Deps holds high-level dependencies for commands.
// Only handlers are exposed - services and repositories are internal.
type Deps struct {
	Config          *config.Config
	Fandoms         *config.FandomsConfig
	FandomID        string
	ElementHandler  *handlers.ElementHandler
	CategoryHandler *handlers.CategoryHandler
	RuleHandler     *handlers.RuleHandler
	TemplateHandler *handlers.TemplateHandler
	ImportHandler   *handlers.ImportHandler
	ValidateHandler *handlers.ValidateHandler
	SuggestHandler  *handlers.SuggestHandler
}

// internalDeps holds all dependencies including low-level components.
// Used internally by helper functions.
type internalDeps struct {
	Deps
	repo            *qdrant.Repository
	relationalDB    *sqlite.Repository
	embedder        *embedder.Embedder
	elementService  *services.ElementService
	categoryService *services.CategoryService
}

// withDeps loads config and builds dependencies, then calls the provided function.
// It handles cleanup automatically.
func withDeps(fn func(*Deps) error) error {
	return withInternalDeps(func(d *internalDeps) error {
		return fn(&d.Deps)
	})
}

// withInternalDeps provides access to all dependencies including low-level components.
// Used by commands that need direct repository or service access.
func withInternalDeps(fn func(*internalDeps) error) error {
	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("getting current directory: %w", err)
	}

	cfg, err := config.Load(cwd)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	fandoms, err := config.LoadFandoms(cwd)
	if err != nil {
		return fmt.Errorf("loading fandoms: %w", err)
	}

	if globalFandom == "" {
		return errors.New("fandom is required (use --fandom flag)")
	}

	collection, err := fandoms.GetCollection(globalFandom)
	if err != nil {
		return err
	}

	qdrantCfg := cfg.Qdrant
	qdrantCfg.Collection = collection

	repo, err := qdrant.NewRepository(qdrantCfg)
	if err != nil {
		return fmt.Errorf("creating qdrant repository: %w", err)
	}
	defer repo.Close()

	sqlitePath := config.SQLitePathForFandom(cwd, globalFandom)
	relationalDB, err := sqlite.NewRepository(config.SQLiteConfig{Path: sqlitePath})
	if err != nil {
		return fmt.Errorf("creating sqlite repository: %w", err)
	}
	defer relationalDB.Close()

	ctx := context.Background()
	if err := relationalDB.EnsureSchema(ctx); err != nil {
		return fmt.Errorf("ensuring sqlite schema: %w", err)
	}

	fandomID := config.SanitizeFandomName(globalFandom)

	// Seed built-in categories on first use of a fandom database.
	categoryService := services.NewCategoryService(relationalDB, fandomID)
	if err := categoryService.LoadDefaults(ctx); err != nil {
		return fmt.Errorf("seeding categories: %w", err)
	}

	emb, err := embedder.NewEmbedder(cfg.Embedder)
	if err != nil {
		return fmt.Errorf("creating embedder: %w", err)
	}

	elementService := services.NewElementService(relationalDB, repo)
	ruleService := services.NewRuleService(relationalDB)
	importService := services.NewImportService(relationalDB, repo, emb, categoryService, fandomID)
	suggestService := services.NewSuggestService(emb, repo)

	deps := &internalDeps{
		Deps: Deps{
			Config:          cfg,
			Fandoms:         fandoms,
			FandomID:        fandomID,
			ElementHandler:  handlers.NewElementHandler(elementService),
			CategoryHandler: handlers.NewCategoryHandler(categoryService),
			RuleHandler:     handlers.NewRuleHandler(ruleService),
			TemplateHandler: handlers.NewTemplateHandler(relationalDB, ruleService),
			ImportHandler:   handlers.NewImportHandler(importService, ruleService),
			ValidateHandler: handlers.NewValidateHandler(elementService, ruleService, engineOptions(cfg.Engine), observe.DefaultMetrics()),
			SuggestHandler:  handlers.NewSuggestHandler(suggestService),
		},
		repo:            repo,
		relationalDB:    relationalDB,
		embedder:        emb,
		elementService:  elementService,
		categoryService: categoryService,
	}

	return fn(deps)
}

// withRelationalDB provides direct relational database access.
//
//nolint:unused // Will be used by future commands (audit log inspection)
func withRelationalDB(fn func(ports.RelationalDB) error) error {
	return withInternalDeps(func(d *internalDeps) error {
		return fn(d.relationalDB)
	})
}

// engineOptions layers file-level engine tuning over the built-in
// defaults. Unset pointer booleans keep their default values.
func engineOptions(cfg config.EngineConfig) services.RuleEngineOptions {
	opts := services.DefaultRuleEngineOptions()
	if cfg.MaxExecutionTimeMS > 0 {
		opts.MaxExecutionTime = time.Duration(cfg.MaxExecutionTimeMS) * time.Millisecond
	}
	if cfg.StrictMode != nil {
		opts.StrictMode = *cfg.StrictMode
	}
	if cfg.CircularDependencyDetection != nil {
		opts.CircularDependencyDetection = *cfg.CircularDependencyDetection
	}
	if cfg.ParallelExecution {
		opts.ParallelExecution = true
	}
	return opts
}
