// Package memory provides in-memory implementations of storage ports.
// Used by tests and by `accrue serve` when no database path is configured.
package memory

import "github.com/artpar/accrue/ports"

// Store bundles in-memory stores behind ports.Store.
type Store struct {
	items *ItemStore
	rates *RateStore
	uses  *UseStore
}

// NewStore creates empty item, rate and use stores.
func NewStore() *Store {
	return &Store{
		items: NewItemStore(),
		rates: NewRateStore(),
		uses:  NewUseStore(),
	}
}

func (s *Store) Items() ports.ItemStore { return s.items }
func (s *Store) Rates() ports.RateStore { return s.rates }
func (s *Store) Uses() ports.UseStore   { return s.uses }

var _ ports.Store = (*Store)(nil)
