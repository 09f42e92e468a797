package handlers

import (
	"context"
	"fmt"

	"github.com/ersonp/canon-core/internal/domain/entities"
	"github.com/ersonp/canon-core/internal/domain/services"
)

// SuggestHandler handles similarity-based element suggestions.
type SuggestHandler struct {
	service *services.SuggestService
}

// NewSuggestHandler creates a new SuggestHandler.
func NewSuggestHandler(service *services.SuggestService) *SuggestHandler {
	return &SuggestHandler{
		service: service,
	}
}

// SuggestResult contains the result of a suggestion query.
type SuggestResult struct {
	Query    string             `json:"query"`
	Elements []entities.Element `json:"elements"`
}

// HandleSimilar finds elements similar to free text, optionally
// restricted to one kind.
func (h *SuggestHandler) HandleSimilar(ctx context.Context, text string, kind entities.ElementKind, limit int) (*SuggestResult, error) {
	var (
		elements []entities.Element
		err      error
	)
	if kind == "" {
		elements, err = h.service.Similar(ctx, text, limit)
	} else {
		elements, err = h.service.SimilarByKind(ctx, text, kind, limit)
	}
	if err != nil {
		return nil, fmt.Errorf("searching similar elements: %w", err)
	}

	return &SuggestResult{
		Query:    text,
		Elements: elements,
	}, nil
}

// HandleAlternatives finds same-kind swap candidates for an element, so
// a conflicting pick can be replaced instead of dropped.
func (h *SuggestHandler) HandleAlternatives(ctx context.Context, elementID string, limit int) (*SuggestResult, error) {
	elements, err := h.service.Alternatives(ctx, elementID, limit)
	if err != nil {
		return nil, fmt.Errorf("searching alternatives: %w", err)
	}

	return &SuggestResult{
		Query:    elementID,
		Elements: elements,
	}, nil
}
