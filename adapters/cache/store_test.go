package cache_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/artpar/accrue/adapters/cache"
	"github.com/artpar/accrue/adapters/clock"
	"github.com/artpar/accrue/adapters/memory"
	"github.com/artpar/accrue/adapters/metrics"
	"github.com/artpar/accrue/domain/item"
	"github.com/artpar/accrue/domain/rate"
	"github.com/artpar/accrue/domain/usage"
	"github.com/artpar/accrue/ports"
)

// countingRates counts ListByItem calls that reach the backing store.
type countingRates struct {
	ports.RateStore
	lists int
}

func (c *countingRates) ListByItem(ctx context.Context, itemID string) ([]rate.Rate, error) {
	c.lists++
	return c.RateStore.ListByItem(ctx, itemID)
}

type countingStore struct {
	*memory.Store
	rates *countingRates
}

func (s *countingStore) Rates() ports.RateStore { return s.rates }

func newCountingStore() *countingStore {
	m := memory.NewStore()
	return &countingStore{Store: m, rates: &countingRates{RateStore: m.Rates()}}
}

func TestStore_CachesReadsAndInvalidatesOnWrite(t *testing.T) {
	ctx := context.Background()
	inner := newCountingStore()
	s := cache.NewStore(inner, cache.NewMemory(clock.NewFake(base), time.Minute), 0, nil)

	require.NoError(t, s.Items().Create(ctx, item.Item{ID: "i1", Name: "tea", CreatedAt: base}))
	require.NoError(t, s.Rates().Create(ctx, rate.Rate{ID: "r1", ItemID: "i1", Value: 1, Unit: rate.Day, From: base}))

	for i := 0; i < 3; i++ {
		rates, err := s.Rates().ListByItem(ctx, "i1")
		require.NoError(t, err)
		assert.Len(t, rates, 1)
	}
	assert.Equal(t, 1, inner.rates.lists, "repeated reads should hit the cache")

	_, err := s.Rates().Delete(ctx, "r1")
	require.NoError(t, err)

	rates, err := s.Rates().ListByItem(ctx, "i1")
	require.NoError(t, err)
	assert.Empty(t, rates)
	assert.Equal(t, 2, inner.rates.lists, "delete must invalidate the item's rates")
}

func TestStore_UseWritesInvalidateCounts(t *testing.T) {
	ctx := context.Background()
	s := cache.NewStore(memory.NewStore(), cache.NewMemory(clock.NewFake(base), time.Minute), 0, nil)
	require.NoError(t, s.Items().Create(ctx, item.Item{ID: "i1", Name: "tea", CreatedAt: base}))

	_, err := s.Uses().First(ctx, "i1")
	assert.True(t, errors.Is(err, ports.ErrNotFound))

	n, err := s.Uses().CountByItem(ctx, "i1")
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	require.NoError(t, s.Uses().Create(ctx, usage.Use{ID: "u1", ItemID: "i1", CreatedAt: base}))

	n, err = s.Uses().CountByItem(ctx, "i1")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	first, err := s.Uses().First(ctx, "i1")
	require.NoError(t, err)
	assert.Equal(t, "u1", first.ID)

	_, err = s.Uses().Update(ctx, "u1", base.Add(time.Hour))
	require.NoError(t, err)
	first, err = s.Uses().First(ctx, "i1")
	require.NoError(t, err)
	assert.True(t, first.CreatedAt.Equal(base.Add(time.Hour)))
}

func TestStore_ItemListInvalidatedByCreate(t *testing.T) {
	ctx := context.Background()
	s := cache.NewStore(memory.NewStore(), cache.NewMemory(clock.NewFake(base), time.Minute), 0, nil)

	n, err := s.Items().Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	require.NoError(t, s.Items().Create(ctx, item.Item{ID: "i1", Name: "tea", CreatedAt: base}))

	n, err = s.Items().Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	list, err := s.Items().List(ctx, 10, 0)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestStore_ExpiresAfterTTL(t *testing.T) {
	ctx := context.Background()
	clk := clock.NewFake(base)
	inner := newCountingStore()
	s := cache.NewStore(inner, cache.NewMemory(clk, time.Minute), 0, nil)

	_, _ = s.Rates().ListByItem(ctx, "i1")
	clk.Advance(2 * time.Minute)
	_, _ = s.Rates().ListByItem(ctx, "i1")

	assert.Equal(t, 2, inner.rates.lists)
}

func TestStore_Metrics(t *testing.T) {
	ctx := context.Background()
	m := metrics.NewWithRegistry(prometheus.NewRegistry())
	s := cache.NewStore(memory.NewStore(), cache.NewMemory(clock.NewFake(base), time.Minute), 0, m)

	_, _ = s.Rates().ListByItem(ctx, "i1")
	_, _ = s.Rates().ListByItem(ctx, "i1")
	require.NoError(t, s.Rates().Create(ctx, rate.Rate{ID: "r", ItemID: "i1", Unit: rate.Day, From: base}))

	reg := prometheus.NewRegistry()
	require.NoError(t, reg.Register(m.CacheHits))
	families, err := reg.Gather()
	require.NoError(t, err)
	require.Len(t, families, 1)
	assert.Equal(t, float64(1), families[0].GetMetric()[0].GetCounter().GetValue())
}
