package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/artpar/accrue/domain/rate"
	"github.com/artpar/accrue/ports"
)

// RateStore is an in-memory implementation of ports.RateStore.
type RateStore struct {
	mu    sync.RWMutex
	rates map[string]rate.Rate
}

// NewRateStore creates a new in-memory rate store.
func NewRateStore() *RateStore {
	return &RateStore{rates: make(map[string]rate.Rate)}
}

// ListByItem returns an item's rates ordered by From ascending.
func (s *RateStore) ListByItem(ctx context.Context, itemID string) ([]rate.Rate, error) {
	s.mu.RLock()
	var out []rate.Rate
	for _, r := range s.rates {
		if r.ItemID == itemID {
			out = append(out, r)
		}
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].From.Equal(out[j].From) {
			return out[i].ID < out[j].ID
		}
		return out[i].From.Before(out[j].From)
	})
	return out, nil
}

// Get retrieves a rate by ID.
func (s *RateStore) Get(ctx context.Context, id string) (rate.Rate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.rates[id]
	if !ok {
		return rate.Rate{}, ports.ErrNotFound
	}
	return r, nil
}

// Create stores a new rate.
func (s *RateStore) Create(ctx context.Context, r rate.Rate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rates[r.ID] = r
	return nil
}

// Update replaces value, unit and interval of an existing rate.
func (s *RateStore) Update(ctx context.Context, r rate.Rate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.rates[r.ID]
	if !ok {
		return ports.ErrNotFound
	}
	existing.Value = r.Value
	existing.Unit = r.Unit
	existing.From = r.From
	existing.To = r.To
	s.rates[r.ID] = existing
	return nil
}

// Delete removes a rate and returns what was removed.
func (s *RateStore) Delete(ctx context.Context, id string) (rate.Rate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.rates[id]
	if !ok {
		return rate.Rate{}, ports.ErrNotFound
	}
	delete(s.rates, id)
	return r, nil
}

var _ ports.RateStore = (*RateStore)(nil)
