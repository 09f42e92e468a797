package handlers

import (
	"context"

	"github.com/ersonp/canon-core/internal/domain/entities"
	"github.com/ersonp/canon-core/internal/domain/services"
)

// ElementHandler handles element operations at the application layer.
type ElementHandler struct {
	elementService *services.ElementService
}

// NewElementHandler creates a new ElementHandler.
func NewElementHandler(elementService *services.ElementService) *ElementHandler {
	return &ElementHandler{
		elementService: elementService,
	}
}

// ElementListResult contains the result of listing elements.
type ElementListResult struct {
	Elements []*entities.Element `json:"elements"`
	Total    int                 `json:"total"`
}

// HandleList returns elements for a fandom with pagination, optionally
// filtered by kind.
func (h *ElementHandler) HandleList(ctx context.Context, fandomID string, kind entities.ElementKind, limit, offset int) (*ElementListResult, error) {
	elementsList, err := h.elementService.List(ctx, fandomID, kind, limit, offset)
	if err != nil {
		return nil, err
	}

	count, err := h.elementService.Count(ctx, fandomID, kind)
	if err != nil {
		return nil, err
	}

	return &ElementListResult{
		Elements: elementsList,
		Total:    count,
	}, nil
}

// HandleSearch searches elements by name pattern.
func (h *ElementHandler) HandleSearch(ctx context.Context, fandomID, query string, limit int) (*ElementListResult, error) {
	elementsList, err := h.elementService.Search(ctx, fandomID, query, limit)
	if err != nil {
		return nil, err
	}

	return &ElementListResult{
		Elements: elementsList,
		Total:    len(elementsList),
	}, nil
}

// HandleShow returns one element by id, falling back to a
// case-insensitive name lookup.
func (h *ElementHandler) HandleShow(ctx context.Context, fandomID, ref string) (*entities.Element, error) {
	el, err := h.elementService.FindByID(ctx, ref)
	if err != nil {
		return nil, err
	}
	if el != nil {
		return el, nil
	}
	return h.elementService.FindByName(ctx, fandomID, ref)
}

// HandleDelete removes an element from both stores.
func (h *ElementHandler) HandleDelete(ctx context.Context, elementID string) error {
	return h.elementService.Delete(ctx, elementID)
}

// HandleCount returns the number of elements in a fandom.
func (h *ElementHandler) HandleCount(ctx context.Context, fandomID string, kind entities.ElementKind) (int, error) {
	return h.elementService.Count(ctx, fandomID, kind)
}
