package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/artpar/accrue/adapters/metrics"
	"github.com/artpar/accrue/domain/item"
	"github.com/artpar/accrue/domain/rate"
	"github.com/artpar/accrue/domain/usage"
	"github.com/artpar/accrue/ports"
)

// ItemPrefix is the key prefix of everything cached for one item.
func ItemPrefix(itemID string) string {
	return "item:" + itemID + ":"
}

// ListPrefix is the key prefix of cached item listings.
const ListPrefix = "items:"

// noUse marks a cached "item has no uses" answer from UseStore.First.
type noUse struct{}

// Store is a cache-aside decorator over a ports.Store.
// Reads consult the cache first; every write invalidates the owning item's
// keys and the item listings. Callers see the same results with or without it.
type Store struct {
	inner   ports.Store
	cache   ports.Cache
	ttl     time.Duration
	metrics *metrics.Collector

	items *itemStore
	rates *rateStore
	uses  *useStore
}

// NewStore wraps inner. A nil collector disables hit/miss metrics.
func NewStore(inner ports.Store, c ports.Cache, ttl time.Duration, m *metrics.Collector) *Store {
	s := &Store{inner: inner, cache: c, ttl: ttl, metrics: m}
	s.items = &itemStore{s: s, inner: inner.Items()}
	s.rates = &rateStore{s: s, inner: inner.Rates()}
	s.uses = &useStore{s: s, inner: inner.Uses()}
	return s
}

func (s *Store) Items() ports.ItemStore { return s.items }
func (s *Store) Rates() ports.RateStore { return s.rates }
func (s *Store) Uses() ports.UseStore   { return s.uses }

// InvalidateItem drops every cached read for itemID and the listings.
func (s *Store) InvalidateItem(itemID string) {
	s.cache.InvalidatePrefix(ItemPrefix(itemID))
	s.cache.InvalidatePrefix(ListPrefix)
	if s.metrics != nil {
		s.metrics.CacheInvalidations.Inc()
	}
}

func (s *Store) lookup(kind, key string) (any, bool) {
	v, ok := s.cache.Get(key)
	if s.metrics != nil {
		if ok {
			s.metrics.CacheHits.WithLabelValues(kind).Inc()
		} else {
			s.metrics.CacheMisses.WithLabelValues(kind).Inc()
		}
	}
	return v, ok
}

func (s *Store) store(key string, v any) {
	s.cache.Set(key, v, s.ttl)
}

var _ ports.Store = (*Store)(nil)

// -----------------------------------------------------------------------------
// Items
// -----------------------------------------------------------------------------

type itemStore struct {
	s     *Store
	inner ports.ItemStore
}

func (c *itemStore) Get(ctx context.Context, id string) (item.Item, error) {
	key := ItemPrefix(id) + "item"
	if v, ok := c.s.lookup("item", key); ok {
		return v.(item.Item), nil
	}
	it, err := c.inner.Get(ctx, id)
	if err != nil {
		return it, err
	}
	c.s.store(key, it)
	return it, nil
}

func (c *itemStore) List(ctx context.Context, limit, offset int) ([]item.Item, error) {
	key := fmt.Sprintf("%slist:%d:%d", ListPrefix, limit, offset)
	if v, ok := c.s.lookup("items", key); ok {
		return append([]item.Item(nil), v.([]item.Item)...), nil
	}
	items, err := c.inner.List(ctx, limit, offset)
	if err != nil {
		return nil, err
	}
	c.s.store(key, append([]item.Item(nil), items...))
	return items, nil
}

func (c *itemStore) Count(ctx context.Context) (int, error) {
	key := ListPrefix + "count"
	if v, ok := c.s.lookup("items", key); ok {
		return v.(int), nil
	}
	n, err := c.inner.Count(ctx)
	if err != nil {
		return 0, err
	}
	c.s.store(key, n)
	return n, nil
}

func (c *itemStore) Create(ctx context.Context, it item.Item) error {
	if err := c.inner.Create(ctx, it); err != nil {
		return err
	}
	c.s.InvalidateItem(it.ID)
	return nil
}

// -----------------------------------------------------------------------------
// Rates
// -----------------------------------------------------------------------------

type rateStore struct {
	s     *Store
	inner ports.RateStore
}

func (c *rateStore) ListByItem(ctx context.Context, itemID string) ([]rate.Rate, error) {
	key := ItemPrefix(itemID) + "rates"
	if v, ok := c.s.lookup("rates", key); ok {
		return append([]rate.Rate(nil), v.([]rate.Rate)...), nil
	}
	rates, err := c.inner.ListByItem(ctx, itemID)
	if err != nil {
		return nil, err
	}
	c.s.store(key, append([]rate.Rate(nil), rates...))
	return rates, nil
}

func (c *rateStore) Get(ctx context.Context, id string) (rate.Rate, error) {
	return c.inner.Get(ctx, id)
}

func (c *rateStore) Create(ctx context.Context, r rate.Rate) error {
	if err := c.inner.Create(ctx, r); err != nil {
		return err
	}
	c.s.InvalidateItem(r.ItemID)
	return nil
}

func (c *rateStore) Update(ctx context.Context, r rate.Rate) error {
	itemID := r.ItemID
	if itemID == "" {
		existing, err := c.inner.Get(ctx, r.ID)
		if err != nil {
			return err
		}
		itemID = existing.ItemID
	}
	if err := c.inner.Update(ctx, r); err != nil {
		return err
	}
	c.s.InvalidateItem(itemID)
	return nil
}

func (c *rateStore) Delete(ctx context.Context, id string) (rate.Rate, error) {
	r, err := c.inner.Delete(ctx, id)
	if err != nil {
		return r, err
	}
	c.s.InvalidateItem(r.ItemID)
	return r, nil
}

// -----------------------------------------------------------------------------
// Uses
// -----------------------------------------------------------------------------

type useStore struct {
	s     *Store
	inner ports.UseStore
}

func (c *useStore) ListByItem(ctx context.Context, itemID string, limit, offset int) ([]usage.Use, error) {
	key := fmt.Sprintf("%suses:%d:%d", ItemPrefix(itemID), limit, offset)
	if v, ok := c.s.lookup("uses", key); ok {
		return append([]usage.Use(nil), v.([]usage.Use)...), nil
	}
	uses, err := c.inner.ListByItem(ctx, itemID, limit, offset)
	if err != nil {
		return nil, err
	}
	c.s.store(key, append([]usage.Use(nil), uses...))
	return uses, nil
}

func (c *useStore) CountByItem(ctx context.Context, itemID string) (int, error) {
	key := ItemPrefix(itemID) + "usecount"
	if v, ok := c.s.lookup("usecount", key); ok {
		return v.(int), nil
	}
	n, err := c.inner.CountByItem(ctx, itemID)
	if err != nil {
		return 0, err
	}
	c.s.store(key, n)
	return n, nil
}

func (c *useStore) ListRange(ctx context.Context, itemID string, from, to *time.Time) ([]usage.Use, error) {
	key := ItemPrefix(itemID) + "range:" + boundKey(from) + ":" + boundKey(to)
	if v, ok := c.s.lookup("range", key); ok {
		return append([]usage.Use(nil), v.([]usage.Use)...), nil
	}
	uses, err := c.inner.ListRange(ctx, itemID, from, to)
	if err != nil {
		return nil, err
	}
	c.s.store(key, append([]usage.Use(nil), uses...))
	return uses, nil
}

func (c *useStore) First(ctx context.Context, itemID string) (usage.Use, error) {
	key := ItemPrefix(itemID) + "first"
	if v, ok := c.s.lookup("first", key); ok {
		if _, none := v.(noUse); none {
			return usage.Use{}, ports.ErrNotFound
		}
		return v.(usage.Use), nil
	}
	u, err := c.inner.First(ctx, itemID)
	switch {
	case errors.Is(err, ports.ErrNotFound):
		c.s.store(key, noUse{})
		return u, err
	case err != nil:
		return u, err
	}
	c.s.store(key, u)
	return u, nil
}

func (c *useStore) Get(ctx context.Context, id string) (usage.Use, error) {
	return c.inner.Get(ctx, id)
}

func (c *useStore) Create(ctx context.Context, u usage.Use) error {
	if err := c.inner.Create(ctx, u); err != nil {
		return err
	}
	c.s.InvalidateItem(u.ItemID)
	return nil
}

func (c *useStore) Update(ctx context.Context, id string, createdAt time.Time) (usage.Use, error) {
	u, err := c.inner.Update(ctx, id, createdAt)
	if err != nil {
		return u, err
	}
	c.s.InvalidateItem(u.ItemID)
	return u, nil
}

func (c *useStore) Delete(ctx context.Context, id string) (usage.Use, error) {
	u, err := c.inner.Delete(ctx, id)
	if err != nil {
		return u, err
	}
	c.s.InvalidateItem(u.ItemID)
	return u, nil
}

func boundKey(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.UTC().Format(time.RFC3339Nano)
}
