package services

import (
	"context"
	"fmt"

	"github.com/ersonp/canon-core/internal/domain/entities"
	"github.com/ersonp/canon-core/internal/domain/ports"
)

// DefaultSuggestLimit is the default number of similar elements returned.
const DefaultSuggestLimit = 5

// SuggestService finds elements similar to a given one via the
// embedding index. Conflict resolutions name an element to remove;
// similar elements let the user swap it for a compatible alternative
// instead of dropping the idea entirely.
type SuggestService struct {
	embedder ports.Embedder
	vectorDB ports.VectorDB
}

// NewSuggestService creates a new suggest service.
func NewSuggestService(embedder ports.Embedder, vectorDB ports.VectorDB) *SuggestService {
	return &SuggestService{
		embedder: embedder,
		vectorDB: vectorDB,
	}
}

// Similar finds elements semantically similar to free-form text.
func (s *SuggestService) Similar(ctx context.Context, text string, limit int) ([]entities.Element, error) {
	if limit <= 0 {
		limit = DefaultSuggestLimit
	}

	embedding, err := s.embedder.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("generating query embedding: %w", err)
	}

	elements, err := s.vectorDB.Search(ctx, embedding, limit)
	if err != nil {
		return nil, fmt.Errorf("searching elements: %w", err)
	}

	return elements, nil
}

// SimilarByKind finds similar elements restricted to one kind.
func (s *SuggestService) SimilarByKind(ctx context.Context, text string, kind entities.ElementKind, limit int) ([]entities.Element, error) {
	if limit <= 0 {
		limit = DefaultSuggestLimit
	}

	embedding, err := s.embedder.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("generating query embedding: %w", err)
	}

	elements, err := s.vectorDB.SearchByKind(ctx, embedding, kind, limit)
	if err != nil {
		return nil, fmt.Errorf("searching elements by kind: %w", err)
	}

	return elements, nil
}

// Alternatives finds replacements for an indexed element, using its
// stored embedding and excluding the element itself from the results.
func (s *SuggestService) Alternatives(ctx context.Context, elementID string, limit int) ([]entities.Element, error) {
	if limit <= 0 {
		limit = DefaultSuggestLimit
	}

	el, err := s.vectorDB.FindByID(ctx, elementID)
	if err != nil {
		return nil, fmt.Errorf("loading element %s: %w", elementID, err)
	}
	if len(el.Embedding) == 0 {
		return nil, fmt.Errorf("element %s has no embedding", elementID)
	}

	// Fetch one extra result: the element is its own nearest neighbor.
	candidates, err := s.vectorDB.SearchByKind(ctx, el.Embedding, el.Kind, limit+1)
	if err != nil {
		return nil, fmt.Errorf("searching alternatives: %w", err)
	}

	result := make([]entities.Element, 0, limit)
	for _, c := range candidates {
		if c.ID == elementID {
			continue
		}
		result = append(result, c)
		if len(result) >= limit {
			break
		}
	}

	return result, nil
}
