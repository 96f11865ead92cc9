package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/artpar/accrue/domain/usage"
	"github.com/artpar/accrue/ports"
)

// UseStore is an in-memory implementation of ports.UseStore.
type UseStore struct {
	mu   sync.RWMutex
	uses []usage.Use
}

// NewUseStore creates a new in-memory use store.
func NewUseStore() *UseStore {
	return &UseStore{uses: make([]usage.Use, 0)}
}

// byItem returns the item's uses oldest first. Ties keep insertion order.
func (s *UseStore) byItem(itemID string) []usage.Use {
	s.mu.RLock()
	var out []usage.Use
	for _, u := range s.uses {
		if u.ItemID == itemID {
			out = append(out, u)
		}
	}
	s.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// ListByItem returns an item's uses newest first.
func (s *UseStore) ListByItem(ctx context.Context, itemID string, limit, offset int) ([]usage.Use, error) {
	asc := s.byItem(itemID)
	desc := make([]usage.Use, len(asc))
	for i, u := range asc {
		desc[len(asc)-1-i] = u
	}
	return page(desc, limit, offset), nil
}

// CountByItem returns the number of uses recorded for an item.
func (s *UseStore) CountByItem(ctx context.Context, itemID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for _, u := range s.uses {
		if u.ItemID == itemID {
			n++
		}
	}
	return n, nil
}

// ListRange returns uses with from <= CreatedAt <= to, oldest first.
func (s *UseStore) ListRange(ctx context.Context, itemID string, from, to *time.Time) ([]usage.Use, error) {
	var out []usage.Use
	for _, u := range s.byItem(itemID) {
		if from != nil && u.CreatedAt.Before(*from) {
			continue
		}
		if to != nil && u.CreatedAt.After(*to) {
			continue
		}
		out = append(out, u)
	}
	return out, nil
}

// First returns the oldest use of an item.
func (s *UseStore) First(ctx context.Context, itemID string) (usage.Use, error) {
	uses := s.byItem(itemID)
	if len(uses) == 0 {
		return usage.Use{}, ports.ErrNotFound
	}
	return uses[0], nil
}

// Get retrieves a use by ID.
func (s *UseStore) Get(ctx context.Context, id string) (usage.Use, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.uses {
		if u.ID == id {
			return u, nil
		}
	}
	return usage.Use{}, ports.ErrNotFound
}

// Create stores a new use.
func (s *UseStore) Create(ctx context.Context, u usage.Use) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.uses = append(s.uses, u)
	return nil
}

// Update changes the timestamp of a use.
func (s *UseStore) Update(ctx context.Context, id string, createdAt time.Time) (usage.Use, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, u := range s.uses {
		if u.ID == id {
			s.uses[i].CreatedAt = createdAt
			return s.uses[i], nil
		}
	}
	return usage.Use{}, ports.ErrNotFound
}

// Delete removes a use and returns what was removed.
func (s *UseStore) Delete(ctx context.Context, id string) (usage.Use, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, u := range s.uses {
		if u.ID == id {
			s.uses = append(s.uses[:i], s.uses[i+1:]...)
			return u, nil
		}
	}
	return usage.Use{}, ports.ErrNotFound
}

var _ ports.UseStore = (*UseStore)(nil)
