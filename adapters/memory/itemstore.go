package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/artpar/accrue/domain/item"
	"github.com/artpar/accrue/ports"
)

// ItemStore is an in-memory implementation of ports.ItemStore.
type ItemStore struct {
	mu    sync.RWMutex
	items []item.Item
}

// NewItemStore creates a new in-memory item store.
func NewItemStore() *ItemStore {
	return &ItemStore{}
}

// Get retrieves an item by ID.
func (s *ItemStore) Get(ctx context.Context, id string) (item.Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, it := range s.items {
		if it.ID == id {
			return it, nil
		}
	}
	return item.Item{}, ports.ErrNotFound
}

// List returns items newest first.
func (s *ItemStore) List(ctx context.Context, limit, offset int) ([]item.Item, error) {
	s.mu.RLock()
	sorted := make([]item.Item, len(s.items))
	// Reverse insertion order breaks ties between equal timestamps.
	for i, it := range s.items {
		sorted[len(s.items)-1-i] = it
	}
	s.mu.RUnlock()

	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].CreatedAt.After(sorted[j].CreatedAt)
	})
	return page(sorted, limit, offset), nil
}

// Count returns the total number of items.
func (s *ItemStore) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items), nil
}

// Create stores a new item.
func (s *ItemStore) Create(ctx context.Context, it item.Item) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = append(s.items, it)
	return nil
}

// page slices out [offset, offset+limit).
func page[T any](all []T, limit, offset int) []T {
	if offset >= len(all) {
		return nil
	}
	end := len(all)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return all[offset:end]
}

var _ ports.ItemStore = (*ItemStore)(nil)
