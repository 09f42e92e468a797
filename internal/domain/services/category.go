package services

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/ersonp/canon-core/internal/domain/entities"
	"github.com/ersonp/canon-core/internal/domain/ports"
)

// validCategoryNameRegex allows alphanumeric and underscores only.
var validCategoryNameRegex = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

// CategoryService manages the category registry for a fandom.
// ExcludesCategories references categories by name, so imports consult
// IsValid to flag typos before elements reach a detector.
type CategoryService struct {
	relationalDB ports.RelationalDB
	fandomID     string
	cache        map[string]*entities.Category
	sortedNames  []string // cached sorted names, populated with cache
	cacheMu      sync.RWMutex
}

// NewCategoryService creates a new CategoryService scoped to a fandom.
func NewCategoryService(relationalDB ports.RelationalDB, fandomID string) *CategoryService {
	return &CategoryService{
		relationalDB: relationalDB,
		fandomID:     fandomID,
		cache:        make(map[string]*entities.Category),
	}
}

// LoadDefaults seeds the built-in categories into the database.
// Lists once then inserts missing, avoiding a Find call per default.
func (s *CategoryService) LoadDefaults(ctx context.Context) error {
	existing, err := s.relationalDB.ListCategories(ctx, s.fandomID)
	if err != nil {
		return fmt.Errorf("listing categories: %w", err)
	}

	existingSet := make(map[string]bool, len(existing))
	for _, c := range existing {
		existingSet[c.Name] = true
	}

	for _, c := range entities.DefaultCategories {
		if !existingSet[c.Name] {
			cCopy := c
			cCopy.FandomID = s.fandomID
			if err := s.relationalDB.SaveCategory(ctx, &cCopy); err != nil {
				return fmt.Errorf("seeding category %s: %w", c.Name, err)
			}
		}
	}
	s.invalidateCache()
	return nil
}

// List returns all categories for the fandom.
func (s *CategoryService) List(ctx context.Context) ([]entities.Category, error) {
	return s.relationalDB.ListCategories(ctx, s.fandomID)
}

// Get returns a specific category by name, or nil if not found.
func (s *CategoryService) Get(ctx context.Context, name string) (*entities.Category, error) {
	return s.relationalDB.FindCategory(ctx, s.fandomID, name)
}

// Add creates a new custom category.
func (s *CategoryService) Add(ctx context.Context, name, description string) error {
	name = strings.ToLower(strings.TrimSpace(name))

	if !validCategoryNameRegex.MatchString(name) {
		return errors.New("invalid category name: must be lowercase alphanumeric with underscores, starting with a letter")
	}

	existing, err := s.relationalDB.FindCategory(ctx, s.fandomID, name)
	if err != nil {
		return fmt.Errorf("checking category: %w", err)
	}
	if existing != nil {
		return fmt.Errorf("category '%s' already exists", name)
	}

	category := &entities.Category{
		Name:        name,
		FandomID:    s.fandomID,
		Description: description,
	}
	if err := s.relationalDB.SaveCategory(ctx, category); err != nil {
		return fmt.Errorf("saving category: %w", err)
	}

	s.invalidateCache()
	return nil
}

// Remove deletes a custom category.
func (s *CategoryService) Remove(ctx context.Context, name string) error {
	if entities.IsDefaultCategory(name) {
		return fmt.Errorf("cannot remove default category '%s'", name)
	}

	existing, err := s.relationalDB.FindCategory(ctx, s.fandomID, name)
	if err != nil {
		return fmt.Errorf("checking category: %w", err)
	}
	if existing == nil {
		return fmt.Errorf("category '%s' not found", name)
	}

	if err := s.relationalDB.DeleteCategory(ctx, s.fandomID, name); err != nil {
		return fmt.Errorf("deleting category: %w", err)
	}

	s.invalidateCache()
	return nil
}

// IsValid checks if a category name is registered.
func (s *CategoryService) IsValid(ctx context.Context, name string) bool {
	// Fast path: check cache with read lock
	s.cacheMu.RLock()
	if len(s.cache) > 0 {
		_, ok := s.cache[name]
		s.cacheMu.RUnlock()
		return ok
	}
	s.cacheMu.RUnlock()

	// Slow path: need to populate cache
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()

	// Double-check: another goroutine may have populated the cache
	if len(s.cache) > 0 {
		_, ok := s.cache[name]
		return ok
	}

	categories, err := s.relationalDB.ListCategories(ctx, s.fandomID)
	if err != nil {
		return false
	}

	s.populateCacheFromCategories(categories)
	_, ok := s.cache[name]
	return ok
}

// ValidNames returns all registered category names, sorted.
// The returned slice is shared and must not be modified by callers.
func (s *CategoryService) ValidNames(ctx context.Context) ([]string, error) {
	// Fast path: check cache with read lock
	s.cacheMu.RLock()
	if len(s.cache) > 0 {
		names := s.sortedNames
		s.cacheMu.RUnlock()
		return names, nil
	}
	s.cacheMu.RUnlock()

	// Slow path: need to populate cache
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()

	if len(s.cache) > 0 {
		return s.sortedNames, nil
	}

	categories, err := s.relationalDB.ListCategories(ctx, s.fandomID)
	if err != nil {
		return nil, err
	}

	s.populateCacheFromCategories(categories)
	return s.sortedNames, nil
}

// populateCacheFromCategories fills the cache and sortedNames.
// Caller must hold cacheMu write lock.
func (s *CategoryService) populateCacheFromCategories(categories []entities.Category) {
	s.cache = make(map[string]*entities.Category, len(categories))
	s.sortedNames = make([]string, len(categories))
	for i := range categories {
		s.cache[categories[i].Name] = &categories[i]
		s.sortedNames[i] = categories[i].Name
	}
	sort.Strings(s.sortedNames)
}

// invalidateCache clears the cache after a mutation.
func (s *CategoryService) invalidateCache() {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	s.cache = make(map[string]*entities.Category)
	s.sortedNames = nil
}
