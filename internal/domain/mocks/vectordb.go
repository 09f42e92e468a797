package mocks

import (
	"context"
	"fmt"

	"github.com/ersonp/canon-core/internal/domain/entities"
)

// VectorDB is a mock implementation of ports.VectorDB.
type VectorDB struct {
	Elements []entities.Element
	Err      error

	// Collection errors (separate from Err for fine-grained control)
	EnsureCollectionErr error
	DeleteCollectionErr error

	// Call tracking
	SaveBatchCallCount        int
	SaveBatchLastElements     []entities.Element
	SearchCallCount           int
	SearchLastLimit           int
	ExistsByIDsCallCount      int
	EnsureCollectionCallCount int
	DeleteCollectionCallCount int
}

// EnsureCollection creates the collection if it doesn't exist.
func (m *VectorDB) EnsureCollection(_ context.Context, _ uint64) error {
	m.EnsureCollectionCallCount++
	return m.EnsureCollectionErr
}

// DeleteCollection removes the collection and all its data.
func (m *VectorDB) DeleteCollection(_ context.Context) error {
	m.DeleteCollectionCallCount++
	return m.DeleteCollectionErr
}

// Save stores a single element.
func (m *VectorDB) Save(_ context.Context, el entities.Element) error {
	if m.Err != nil {
		return m.Err
	}
	m.Elements = append(m.Elements, el)
	return nil
}

// SaveBatch stores multiple elements.
func (m *VectorDB) SaveBatch(_ context.Context, els []entities.Element) error {
	m.SaveBatchCallCount++
	m.SaveBatchLastElements = els
	if m.Err != nil {
		return m.Err
	}
	m.Elements = append(m.Elements, els...)
	return nil
}

// FindByID retrieves an element by ID.
func (m *VectorDB) FindByID(_ context.Context, id string) (entities.Element, error) {
	if m.Err != nil {
		return entities.Element{}, m.Err
	}
	for i := range m.Elements {
		if m.Elements[i].ID == id {
			return m.Elements[i], nil
		}
	}
	return entities.Element{}, fmt.Errorf("element not found: %s", id)
}

// ExistsByIDs checks which of the given IDs exist in the index.
func (m *VectorDB) ExistsByIDs(_ context.Context, ids []string) (map[string]bool, error) {
	m.ExistsByIDsCallCount++
	if m.Err != nil {
		return nil, m.Err
	}
	known := make(map[string]bool, len(m.Elements))
	for i := range m.Elements {
		known[m.Elements[i].ID] = true
	}
	result := make(map[string]bool, len(ids))
	for _, id := range ids {
		result[id] = known[id]
	}
	return result, nil
}

// Search returns the stored elements up to limit, in insertion order.
func (m *VectorDB) Search(_ context.Context, _ []float32, limit int) ([]entities.Element, error) {
	m.SearchCallCount++
	m.SearchLastLimit = limit
	if m.Err != nil {
		return nil, m.Err
	}
	if limit > 0 && limit < len(m.Elements) {
		return m.Elements[:limit], nil
	}
	return m.Elements, nil
}

// SearchByKind returns stored elements of the given kind up to limit.
func (m *VectorDB) SearchByKind(_ context.Context, _ []float32, kind entities.ElementKind, limit int) ([]entities.Element, error) {
	m.SearchCallCount++
	m.SearchLastLimit = limit
	if m.Err != nil {
		return nil, m.Err
	}
	var result []entities.Element
	for i := range m.Elements {
		if m.Elements[i].Kind == kind {
			result = append(result, m.Elements[i])
			if limit > 0 && len(result) >= limit {
				break
			}
		}
	}
	return result, nil
}

// Delete removes an element by its ID.
func (m *VectorDB) Delete(_ context.Context, id string) error {
	if m.Err != nil {
		return m.Err
	}
	for i := range m.Elements {
		if m.Elements[i].ID == id {
			m.Elements = append(m.Elements[:i], m.Elements[i+1:]...)
			return nil
		}
	}
	return nil
}
