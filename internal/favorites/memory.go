// Package favorites persists the user's pinned repositories as an ordered set.
package favorites

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/waabox/sekideck/internal/domain"
)

// DefaultSet is the name of the favorites set used by the applications.
const DefaultSet = "seki:favorites:v1"

// normalize validates an entry and returns its canonical "org/name" form.
func normalize(fullName string) (string, error) {
	repo, err := domain.ParseFullName(fullName)
	if err != nil {
		return "", fmt.Errorf("favorite: %w", err)
	}
	return repo.FullName(), nil
}

// MemoryStore is an in-process FavoritesStore.
type MemoryStore struct {
	mu    sync.Mutex
	items []string
}

// Ensure MemoryStore implements FavoritesStore.
var _ domain.FavoritesStore = (*MemoryStore)(nil)

// NewMemoryStore creates a store seeded with initial, deduplicated in order.
// Invalid seeds are skipped.
func NewMemoryStore(initial ...string) *MemoryStore {
	s := &MemoryStore{items: []string{}}
	for _, name := range initial {
		if n, err := normalize(name); err == nil && !slices.Contains(s.items, n) {
			s.items = append(s.items, n)
		}
	}
	return s
}

func (s *MemoryStore) List(_ context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.items), nil
}

func (s *MemoryStore) Add(_ context.Context, fullName string) error {
	n, err := normalize(fullName)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if !slices.Contains(s.items, n) {
		s.items = append(s.items, n)
	}
	return nil
}

func (s *MemoryStore) Remove(_ context.Context, fullName string) error {
	n, err := normalize(fullName)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = slices.DeleteFunc(s.items, func(item string) bool { return item == n })
	return nil
}

func (s *MemoryStore) Toggle(_ context.Context, fullName string) (bool, error) {
	n, err := normalize(fullName)
	if err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := slices.Index(s.items, n); i >= 0 {
		s.items = slices.Delete(s.items, i, i+1)
		return false, nil
	}
	s.items = append(s.items, n)
	return true, nil
}

func (s *MemoryStore) Contains(_ context.Context, fullName string) (bool, error) {
	n, err := normalize(fullName)
	if err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Contains(s.items, n), nil
}
