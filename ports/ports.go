// Package ports defines interfaces (contracts) between layers.
// These interfaces enable dependency injection and testability.
// Implementations live in adapters/.
package ports

import (
	"context"
	"errors"
	"time"

	"github.com/artpar/accrue/domain/item"
	"github.com/artpar/accrue/domain/rate"
	"github.com/artpar/accrue/domain/usage"
)

// ErrNotFound is returned by stores when a row does not exist.
var ErrNotFound = errors.New("not found")

// -----------------------------------------------------------------------------
// Infrastructure Ports
// -----------------------------------------------------------------------------

// Clock abstracts time for testability.
type Clock interface {
	Now() time.Time
}

// IDGenerator generates unique identifiers.
type IDGenerator interface {
	New() string
}

// Cache is an expiring key/value map with prefix invalidation.
type Cache interface {
	Get(key string) (any, bool)
	Set(key string, value any, ttl time.Duration)
	Invalidate(key string)
	InvalidatePrefix(prefix string)
}

// ItemState is the snapshot pushed to subscribers after an item changes.
type ItemState struct {
	ItemID            string    `json:"itemId"`
	Name              string    `json:"name"`
	Accumulated       int64     `json:"accumulated"`
	CurrentRatePerSec *float64  `json:"currentRatePerSec"`
	UsageCount        int       `json:"usageCount"`
	At                time.Time `json:"at"`
}

// StatePublisher pushes item state to an external bus.
type StatePublisher interface {
	PublishItemState(ctx context.Context, s ItemState) error
	Close()
}

// -----------------------------------------------------------------------------
// Data Store Ports
// -----------------------------------------------------------------------------

// ItemStore persists items.
type ItemStore interface {
	// Get retrieves an item by ID.
	Get(ctx context.Context, id string) (item.Item, error)

	// List returns items newest first.
	List(ctx context.Context, limit, offset int) ([]item.Item, error)

	// Count returns the total number of items.
	Count(ctx context.Context) (int, error)

	// Create stores a new item.
	Create(ctx context.Context, it item.Item) error
}

// RateStore persists rate intervals.
type RateStore interface {
	// ListByItem returns an item's rates ordered by From ascending.
	ListByItem(ctx context.Context, itemID string) ([]rate.Rate, error)

	// Get retrieves a rate by ID.
	Get(ctx context.Context, id string) (rate.Rate, error)

	// Create stores a new rate.
	Create(ctx context.Context, r rate.Rate) error

	// Update replaces value, unit and interval of an existing rate.
	Update(ctx context.Context, r rate.Rate) error

	// Delete removes a rate and returns what was removed.
	Delete(ctx context.Context, id string) (rate.Rate, error)
}

// UseStore persists use events.
type UseStore interface {
	// ListByItem returns an item's uses newest first.
	ListByItem(ctx context.Context, itemID string, limit, offset int) ([]usage.Use, error)

	// CountByItem returns the number of uses recorded for an item.
	CountByItem(ctx context.Context, itemID string) (int, error)

	// ListRange returns uses with from <= CreatedAt <= to, oldest first.
	// A nil bound is open.
	ListRange(ctx context.Context, itemID string, from, to *time.Time) ([]usage.Use, error)

	// First returns the oldest use of an item, or ErrNotFound.
	First(ctx context.Context, itemID string) (usage.Use, error)

	// Get retrieves a use by ID.
	Get(ctx context.Context, id string) (usage.Use, error)

	// Create stores a new use.
	Create(ctx context.Context, u usage.Use) error

	// Update changes the timestamp of a use.
	Update(ctx context.Context, id string, createdAt time.Time) (usage.Use, error)

	// Delete removes a use and returns what was removed.
	Delete(ctx context.Context, id string) (usage.Use, error)
}

// Store groups the stores the tracker needs.
type Store interface {
	Items() ItemStore
	Rates() RateStore
	Uses() UseStore
}
