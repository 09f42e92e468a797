// Package ports defines interfaces for external service communication.
package ports

import "context"

// CollectionManager handles the lifecycle of a fandom's similarity
// index collection. It is separate from VectorDB because not all
// implementations support collection management, and it keeps VectorDB
// focused on data operations (CRUD).
type CollectionManager interface {
	// EnsureCollection creates the collection if it doesn't exist.
	EnsureCollection(ctx context.Context, vectorSize uint64) error

	// DeleteCollection removes the collection and all its data.
	DeleteCollection(ctx context.Context) error
}
