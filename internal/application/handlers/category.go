package handlers

import (
	"context"

	"github.com/ersonp/canon-core/internal/domain/entities"
	"github.com/ersonp/canon-core/internal/domain/services"
)

// CategoryHandler handles category registry operations.
type CategoryHandler struct {
	service *services.CategoryService
}

// NewCategoryHandler creates a new CategoryHandler.
func NewCategoryHandler(service *services.CategoryService) *CategoryHandler {
	return &CategoryHandler{
		service: service,
	}
}

// HandleList returns all registered categories.
func (h *CategoryHandler) HandleList(ctx context.Context) ([]entities.Category, error) {
	return h.service.List(ctx)
}

// HandleAdd registers a new category.
func (h *CategoryHandler) HandleAdd(ctx context.Context, name, description string) error {
	return h.service.Add(ctx, name, description)
}

// HandleRemove deletes a non-default category.
func (h *CategoryHandler) HandleRemove(ctx context.Context, name string) error {
	return h.service.Remove(ctx, name)
}

// HandleDescribe returns details about a specific category, or nil when
// it is not registered.
func (h *CategoryHandler) HandleDescribe(ctx context.Context, name string) (*entities.Category, error) {
	return h.service.Get(ctx, name)
}
