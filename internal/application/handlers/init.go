package handlers

import (
	"context"
	"fmt"

	"github.com/ersonp/canon-core/internal/domain/ports"
	"github.com/ersonp/canon-core/internal/infrastructure/config"
	embedder "github.com/ersonp/canon-core/internal/infrastructure/embedder/openai"
)

// InitHandler handles workspace initialization.
type InitHandler struct {
	collectionManager ports.CollectionManager
}

// NewInitHandler creates a new init handler. The collection manager may
// be nil when Qdrant is unreachable; initialization then only writes
// config.
func NewInitHandler(collectionManager ports.CollectionManager) *InitHandler {
	return &InitHandler{
		collectionManager: collectionManager,
	}
}

// InitResult contains the result of initialization.
type InitResult struct {
	ConfigPath     string
	FandomName     string
	CollectionName string
}

// Handle initializes a canon workspace with its first fandom.
func (h *InitHandler) Handle(ctx context.Context, basePath, fandomName, description string) (*InitResult, error) {
	if config.Exists(basePath) {
		return nil, fmt.Errorf("canon already initialized in %s", basePath)
	}

	if err := config.WriteDefault(basePath); err != nil {
		return nil, fmt.Errorf("writing default config: %w", err)
	}

	collection := config.GenerateCollectionName(fandomName)

	fandoms, err := config.LoadFandoms(basePath)
	if err != nil {
		return nil, fmt.Errorf("loading fandoms: %w", err)
	}
	fandoms.Add(fandomName, config.FandomEntry{
		Collection:  collection,
		Description: description,
	})
	if err := fandoms.Save(basePath); err != nil {
		return nil, fmt.Errorf("saving fandoms: %w", err)
	}

	if h.collectionManager != nil {
		if err := h.collectionManager.EnsureCollection(ctx, embedder.VectorSize); err != nil {
			return nil, fmt.Errorf("creating collection: %w", err)
		}
	}

	return &InitResult{
		ConfigPath:     config.ConfigFilePath(basePath),
		FandomName:     fandomName,
		CollectionName: collection,
	}, nil
}
