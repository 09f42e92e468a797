package ports

import (
	"context"

	"github.com/ersonp/canon-core/internal/domain/entities"
)

// VectorDB defines the interface for vector database operations.
type VectorDB interface {
	// Save stores an element with its embedding.
	Save(ctx context.Context, el entities.Element) error

	// SaveBatch stores multiple elements.
	SaveBatch(ctx context.Context, els []entities.Element) error

	// FindByID retrieves an element by its ID.
	FindByID(ctx context.Context, id string) (entities.Element, error)

	// ExistsByIDs checks which of the given IDs exist in the index.
	ExistsByIDs(ctx context.Context, ids []string) (map[string]bool, error)

	// Search performs a similarity search and returns the closest elements.
	Search(ctx context.Context, embedding []float32, limit int) ([]entities.Element, error)

	// SearchByKind performs a similarity search filtered by element kind.
	SearchByKind(ctx context.Context, embedding []float32, kind entities.ElementKind, limit int) ([]entities.Element, error)

	// Delete removes an element by its ID.
	Delete(ctx context.Context, id string) error
}
