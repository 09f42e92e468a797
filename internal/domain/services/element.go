package services

import (
	"context"
	"fmt"

	"github.com/ersonp/canon-core/internal/domain/entities"
	"github.com/ersonp/canon-core/internal/domain/ports"
)

// ElementService manages element CRUD against the relational store and
// keeps the similarity index in step with it.
type ElementService struct {
	relationalDB ports.RelationalDB
	vectorDB     ports.VectorDB
}

// NewElementService creates a new ElementService.
func NewElementService(relationalDB ports.RelationalDB, vectorDB ports.VectorDB) *ElementService {
	return &ElementService{
		relationalDB: relationalDB,
		vectorDB:     vectorDB,
	}
}

// Save stores an element. When the element carries an embedding it is
// mirrored to the similarity index.
func (s *ElementService) Save(ctx context.Context, el *entities.Element) error {
	if el.ID == "" {
		return fmt.Errorf("element id is required")
	}
	if !el.Kind.IsValid() {
		return fmt.Errorf("invalid element kind %q", el.Kind)
	}

	if err := s.relationalDB.SaveElement(ctx, el); err != nil {
		return fmt.Errorf("saving element: %w", err)
	}

	if len(el.Embedding) > 0 {
		if err := s.vectorDB.Save(ctx, *el); err != nil {
			return fmt.Errorf("indexing element: %w", err)
		}
	}

	return nil
}

// FindByID finds an element by its ID.
func (s *ElementService) FindByID(ctx context.Context, elementID string) (*entities.Element, error) {
	return s.relationalDB.FindElementByID(ctx, elementID)
}

// FindByName finds an element by its name (case-insensitive).
func (s *ElementService) FindByName(ctx context.Context, fandomID, name string) (*entities.Element, error) {
	return s.relationalDB.FindElementByName(ctx, fandomID, name)
}

// List returns elements for a fandom with pagination. An empty kind
// matches all kinds.
func (s *ElementService) List(ctx context.Context, fandomID string, kind entities.ElementKind, limit, offset int) ([]*entities.Element, error) {
	return s.relationalDB.ListElements(ctx, fandomID, kind, limit, offset)
}

// Search searches elements by name pattern.
func (s *ElementService) Search(ctx context.Context, fandomID, query string, limit int) ([]*entities.Element, error) {
	return s.relationalDB.SearchElements(ctx, fandomID, query, limit)
}

// Delete removes an element from the store and the similarity index.
func (s *ElementService) Delete(ctx context.Context, elementID string) error {
	if err := s.relationalDB.DeleteElement(ctx, elementID); err != nil {
		return fmt.Errorf("deleting element: %w", err)
	}

	if err := s.vectorDB.Delete(ctx, elementID); err != nil {
		return fmt.Errorf("removing element from index: %w", err)
	}

	return nil
}

// Count returns the number of elements for a fandom. An empty kind
// matches all kinds.
func (s *ElementService) Count(ctx context.Context, fandomID string, kind entities.ElementKind) (int, error) {
	return s.relationalDB.CountElements(ctx, fandomID, kind)
}

// Universe loads every element of a fandom grouped by kind, the shape
// the cycle detector consumes.
func (s *ElementService) Universe(ctx context.Context, fandomID string) (*entities.ElementSet, error) {
	set := &entities.ElementSet{}

	kinds := []struct {
		kind entities.ElementKind
		dest *[]entities.Element
	}{
		{entities.KindPlotBlock, &set.PlotBlocks},
		{entities.KindCondition, &set.Conditions},
		{entities.KindTag, &set.Tags},
	}

	for _, k := range kinds {
		elements, err := s.relationalDB.ListElements(ctx, fandomID, k.kind, 0, 0)
		if err != nil {
			return nil, fmt.Errorf("loading %s elements: %w", k.kind, err)
		}
		for _, el := range elements {
			*k.dest = append(*k.dest, *el)
		}
	}

	return set, nil
}
