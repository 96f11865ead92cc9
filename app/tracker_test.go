package app_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/artpar/accrue/adapters/cache"
	"github.com/artpar/accrue/adapters/clock"
	"github.com/artpar/accrue/adapters/idgen"
	"github.com/artpar/accrue/adapters/memory"
	"github.com/artpar/accrue/app"
	"github.com/artpar/accrue/domain/rate"
	"github.com/artpar/accrue/ports"
)

var now = time.Date(2024, 6, 15, 13, 0, 0, 0, time.UTC)

type recordingPublisher struct {
	mu     sync.Mutex
	states []ports.ItemState
}

func (p *recordingPublisher) PublishItemState(_ context.Context, s ports.ItemState) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.states = append(p.states, s)
	return nil
}

func (p *recordingPublisher) Close() {}

// stalledPublisher blocks until its context ends, like a broker that never acks.
type stalledPublisher struct {
	hadDeadline bool
}

func (p *stalledPublisher) PublishItemState(ctx context.Context, _ ports.ItemState) error {
	_, p.hadDeadline = ctx.Deadline()
	<-ctx.Done()
	return ctx.Err()
}

func (p *stalledPublisher) Close() {}

type fixture struct {
	tracker *app.Tracker
	clock   *clock.Fake
	pub     *recordingPublisher
}

func newFixture(t *testing.T, store ports.Store) fixture {
	t.Helper()
	clk := clock.NewFake(now)
	pub := &recordingPublisher{}
	tr := app.NewTracker(store, clk, idgen.NewSequential("id-"), zerolog.Nop(), app.TrackerConfig{Publisher: pub})
	return fixture{tracker: tr, clock: clk, pub: pub}
}

func stores(t *testing.T) map[string]ports.Store {
	return map[string]ports.Store{
		"memory": memory.NewStore(),
		"cached": cache.NewStore(memory.NewStore(), cache.NewMemory(clock.NewFake(now), time.Minute), 0, nil),
	}
}

func ptr(t time.Time) *time.Time { return &t }

func TestGetItem_Missing(t *testing.T) {
	f := newFixture(t, memory.NewStore())

	view, err := f.tracker.GetItem(context.Background(), "nope")
	require.NoError(t, err)
	assert.Nil(t, view)

	stats, err := f.tracker.Stats(context.Background(), "nope", nil, nil)
	require.NoError(t, err)
	assert.Nil(t, stats)
}

func TestTracker_TenDaysAtOnePerDay(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			f := newFixture(t, store)

			it, err := f.tracker.CreateItem(ctx, "  coffee ", "beans")
			require.NoError(t, err)
			assert.Equal(t, "coffee", it.Name)

			from := now.AddDate(0, 0, -10).Add(-time.Hour)
			_, err = f.tracker.SaveRate(ctx, app.RateInput{ItemID: it.ID, Value: 1, Unit: rate.Day, From: from})
			require.NoError(t, err)

			view, err := f.tracker.GetItem(ctx, it.ID)
			require.NoError(t, err)
			require.NotNil(t, view)

			assert.EqualValues(t, 10, view.Accumulated)
			require.NotNil(t, view.CurrentRatePerSec)
			assert.Equal(t, 1.0/86400, *view.CurrentRatePerSec)
			require.NotNil(t, view.NextInSec)
			assert.InDelta(t, 23*3600, *view.NextInSec, 1e-6)
			assert.Nil(t, view.FirstUsageDate)
			assert.Len(t, view.Rates, 1)

			// The countdown shrinks as time passes.
			f.clock.Advance(time.Hour)
			later, err := f.tracker.GetItem(ctx, it.ID)
			require.NoError(t, err)
			assert.InDelta(t, 22*3600, *later.NextInSec, 1e-6)
		})
	}
}

func TestTracker_RateRoundTripRestoresBalance(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			f := newFixture(t, store)

			it, err := f.tracker.CreateItem(ctx, "tea", "")
			require.NoError(t, err)
			_, err = f.tracker.SaveRate(ctx, app.RateInput{
				ItemID: it.ID, Value: 2, Unit: rate.Day,
				From: now.AddDate(0, 0, -30), To: ptr(now.AddDate(0, 0, -20)),
			})
			require.NoError(t, err)

			before, err := f.tracker.GetItem(ctx, it.ID)
			require.NoError(t, err)
			assert.EqualValues(t, 20, before.Accumulated)

			r, err := f.tracker.SaveRate(ctx, app.RateInput{ItemID: it.ID, Value: 5, Unit: rate.Hour, From: now.AddDate(0, 0, -5)})
			require.NoError(t, err)

			during, err := f.tracker.GetItem(ctx, it.ID)
			require.NoError(t, err)
			assert.Greater(t, during.Accumulated, before.Accumulated)

			got, err := f.tracker.GetRate(ctx, r.ID)
			require.NoError(t, err)
			assert.Equal(t, r, got)

			_, err = f.tracker.DeleteRate(ctx, r.ID)
			require.NoError(t, err)
			_, err = f.tracker.GetRate(ctx, r.ID)
			assert.ErrorIs(t, err, ports.ErrNotFound)

			after, err := f.tracker.GetItem(ctx, it.ID)
			require.NoError(t, err)
			assert.Equal(t, before.Accumulated, after.Accumulated)
			assert.Equal(t, before.CurrentRatePerSec, after.CurrentRatePerSec)
		})
	}
}

func TestSaveRate_Conflicts(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, memory.NewStore())
	it, err := f.tracker.CreateItem(ctx, "tea", "")
	require.NoError(t, err)

	jan := func(d int) time.Time { return time.Date(2024, 1, d, 0, 0, 0, 0, time.UTC) }

	a, err := f.tracker.SaveRate(ctx, app.RateInput{ItemID: it.ID, Value: 1, Unit: rate.Day, From: jan(1), To: ptr(jan(10))})
	require.NoError(t, err)

	_, err = f.tracker.SaveRate(ctx, app.RateInput{ItemID: it.ID, Value: 1, Unit: rate.Day, From: jan(5), To: ptr(jan(15))})
	var conflict *rate.ConflictError
	require.True(t, errors.As(err, &conflict))
	assert.Equal(t, rate.ReasonOverlap, conflict.Reason)

	open, err := f.tracker.SaveRate(ctx, app.RateInput{ItemID: it.ID, Value: 1, Unit: rate.Day, From: jan(11)})
	require.NoError(t, err)

	_, err = f.tracker.SaveRate(ctx, app.RateInput{ItemID: it.ID, Value: 1, Unit: rate.Day, From: jan(20)})
	require.True(t, errors.As(err, &conflict))
	assert.Equal(t, rate.ReasonOpenEndedExists, conflict.Reason)

	// Updating a rate is checked against the others only.
	moved, err := f.tracker.SaveRate(ctx, app.RateInput{ID: open.ID, Value: 3, Unit: rate.Week, From: jan(12)})
	require.NoError(t, err)
	assert.Equal(t, it.ID, moved.ItemID)

	_, err = f.tracker.SaveRate(ctx, app.RateInput{ID: a.ID, Value: 1, Unit: rate.Day, From: jan(1), To: ptr(jan(12))})
	assert.ErrorIs(t, err, rate.ErrConflict)

	rates, err := f.tracker.ListRates(ctx, it.ID)
	require.NoError(t, err)
	require.Len(t, rates, 2)
	assert.Equal(t, open.ID, rates[0].ID, "newest first")
	assert.Equal(t, 3.0, rates[0].Value)
	assert.True(t, rates[1].To.Equal(jan(10)), "rejected update must not be written")
}

func TestSaveRate_Validation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, memory.NewStore())
	it, err := f.tracker.CreateItem(ctx, "tea", "")
	require.NoError(t, err)

	tests := []struct {
		name  string
		in    app.RateInput
		field string
	}{
		{"unknown unit", app.RateInput{ItemID: it.ID, Value: 1, Unit: "Eon", From: now}, "unit"},
		{"missing from", app.RateInput{ItemID: it.ID, Value: 1, Unit: rate.Day}, "from"},
		{"to before from", app.RateInput{ItemID: it.ID, Value: 1, Unit: rate.Day, From: now, To: ptr(now.Add(-time.Hour))}, "to"},
		{"missing item id", app.RateInput{Value: 1, Unit: rate.Day, From: now}, "itemId"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.tracker.SaveRate(ctx, tt.in)
			var verr *app.ValidationError
			require.True(t, errors.As(err, &verr), "got %v", err)
			assert.Equal(t, tt.field, verr.Field)
		})
	}

	_, err = f.tracker.SaveRate(ctx, app.RateInput{ItemID: "ghost", Value: 1, Unit: rate.Day, From: now})
	assert.ErrorIs(t, err, ports.ErrNotFound)

	_, err = f.tracker.SaveRate(ctx, app.RateInput{ID: "ghost", Value: 1, Unit: rate.Day, From: now})
	assert.ErrorIs(t, err, ports.ErrNotFound)

	_, err = f.tracker.DeleteRate(ctx, "ghost")
	assert.ErrorIs(t, err, ports.ErrNotFound)

	rates, err := f.tracker.ListRates(ctx, it.ID)
	require.NoError(t, err)
	assert.Empty(t, rates)
}

func TestCreateItem_RequiresName(t *testing.T) {
	f := newFixture(t, memory.NewStore())

	_, err := f.tracker.CreateItem(context.Background(), "   ", "x")
	var verr *app.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "name", verr.Field)
}

func TestListItems_Paging(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, memory.NewStore())

	for _, name := range []string{"a", "b", "c"} {
		_, err := f.tracker.CreateItem(ctx, name, "")
		require.NoError(t, err)
		f.clock.Advance(time.Minute)
	}

	page, err := f.tracker.ListItems(ctx, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, 3, page.Total)
	require.Len(t, page.Items, 2)
	assert.Equal(t, "c", page.Items[0].Name)
	assert.Equal(t, "b", page.Items[1].Name)

	page, err = f.tracker.ListItems(ctx, 2, 2)
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "a", page.Items[0].Name)

	page, err = f.tracker.ListItems(ctx, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, page.Page)
	assert.Equal(t, app.DefaultItemPageSize, page.PageSize)

	_, err = f.tracker.ListItems(ctx, 1, 101)
	var verr *app.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "pageSize", verr.Field)

	_, err = f.tracker.ListItems(ctx, -1, 10)
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "page", verr.Field)
}

func TestUses_LifecycleAndStats(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			f := newFixture(t, store)
			it, err := f.tracker.CreateItem(ctx, "walk", "")
			require.NoError(t, err)

			// Two uses on consecutive days, none today.
			u1, err := f.tracker.RecordUse(ctx, it.ID, ptr(now.AddDate(0, 0, -3)))
			require.NoError(t, err)
			u2, err := f.tracker.RecordUse(ctx, it.ID, ptr(now.AddDate(0, 0, -2)))
			require.NoError(t, err)

			stats, err := f.tracker.Stats(ctx, it.ID, nil, nil)
			require.NoError(t, err)
			require.NotNil(t, stats)
			assert.Equal(t, 0, stats.StreakDays)
			assert.Equal(t, 2, stats.LongestStreakDays)
			assert.Equal(t, 2, stats.TotalUsage)
			assert.Len(t, stats.Daily, 4)

			page, err := f.tracker.ListUses(ctx, it.ID, 1, 0)
			require.NoError(t, err)
			assert.Equal(t, 2, page.Total)
			assert.Equal(t, app.DefaultUsePageSize, page.PageSize)
			require.Len(t, page.Uses, 2)
			assert.Equal(t, u2.ID, page.Uses[0].ID)

			// Moving a use to today starts a streak.
			_, err = f.tracker.UpdateUse(ctx, u1.ID, now)
			require.NoError(t, err)
			_, err = f.tracker.RecordUse(ctx, it.ID, nil)
			require.NoError(t, err)

			view, err := f.tracker.GetItem(ctx, it.ID)
			require.NoError(t, err)
			assert.Equal(t, 3, view.UsageCount)
			require.NotNil(t, view.FirstUsageDate)
			assert.True(t, view.FirstUsageDate.Equal(u2.CreatedAt))

			from := now.AddDate(0, 0, -1)
			stats, err = f.tracker.Stats(ctx, it.ID, &from, &now)
			require.NoError(t, err)
			assert.Equal(t, 2, stats.TotalUsage)
			assert.Len(t, stats.Daily, 2)
			assert.Equal(t, 1, stats.StreakDays)

			_, err = f.tracker.DeleteUse(ctx, u2.ID)
			require.NoError(t, err)
			_, err = f.tracker.DeleteUse(ctx, u2.ID)
			assert.ErrorIs(t, err, ports.ErrNotFound)

			_, err = f.tracker.RecordUse(ctx, "ghost", nil)
			assert.ErrorIs(t, err, ports.ErrNotFound)
			_, err = f.tracker.ListUses(ctx, "ghost", 1, 10)
			assert.ErrorIs(t, err, ports.ErrNotFound)
		})
	}
}

func TestStats_RejectsInvertedRange(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, memory.NewStore())
	it, err := f.tracker.CreateItem(ctx, "tea", "")
	require.NoError(t, err)

	from, to := now, now.AddDate(0, 0, -1)
	_, err = f.tracker.Stats(ctx, it.ID, &from, &to)
	var verr *app.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "to", verr.Field)
}

func TestTracker_PublishesStateAfterWrites(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, memory.NewStore())

	it, err := f.tracker.CreateItem(ctx, "tea", "")
	require.NoError(t, err)
	_, err = f.tracker.RecordUse(ctx, it.ID, nil)
	require.NoError(t, err)

	f.pub.mu.Lock()
	defer f.pub.mu.Unlock()
	require.Len(t, f.pub.states, 2)
	last := f.pub.states[1]
	assert.Equal(t, it.ID, last.ItemID)
	assert.Equal(t, 1, last.UsageCount)
	assert.True(t, last.At.Equal(now))
}

func TestTracker_Location(t *testing.T) {
	f := newFixture(t, memory.NewStore())
	assert.Equal(t, time.UTC, f.tracker.Location())

	loc := time.FixedZone("UTC+10", 10*3600)
	f.tracker.SetLocation(loc)
	assert.Equal(t, loc, f.tracker.Location())

	f.tracker.SetLocation(nil)
	assert.Equal(t, time.UTC, f.tracker.Location())
}

func TestRecordUse_StalledPublisherDoesNotBlock(t *testing.T) {
	store := memory.NewStore()
	pub := &stalledPublisher{}
	tr := app.NewTracker(store, clock.NewFake(now), idgen.NewSequential("id-"), zerolog.Nop(), app.TrackerConfig{
		Publisher:      pub,
		PublishTimeout: 50 * time.Millisecond,
	})
	ctx := context.Background()

	it, err := tr.CreateItem(ctx, "tea", "")
	require.NoError(t, err)

	start := time.Now()
	u, err := tr.RecordUse(ctx, it.ID, nil)
	require.NoError(t, err)
	assert.Less(t, time.Since(start), 2*time.Second)
	assert.True(t, pub.hadDeadline, "publisher should get a bounded context")

	page, err := tr.ListUses(ctx, it.ID, 1, 10)
	require.NoError(t, err)
	require.Len(t, page.Uses, 1)
	assert.Equal(t, u.ID, page.Uses[0].ID)
}

func TestRecordUse_PublishesAfterRequestCancelled(t *testing.T) {
	f := newFixture(t, memory.NewStore())
	it, err := f.tracker.CreateItem(context.Background(), "tea", "")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	// The store ignores cancellation, so the write lands; the publish must not
	// inherit the cancelled request.
	_, err = f.tracker.RecordUse(ctx, it.ID, nil)
	require.NoError(t, err)

	f.pub.mu.Lock()
	defer f.pub.mu.Unlock()
	require.NotEmpty(t, f.pub.states)
	assert.Equal(t, 1, f.pub.states[len(f.pub.states)-1].UsageCount)
}
