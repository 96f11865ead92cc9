// Package app provides application services that orchestrate domain logic.
package app

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/artpar/accrue/adapters/metrics"
	"github.com/artpar/accrue/domain/accrual"
	"github.com/artpar/accrue/domain/item"
	"github.com/artpar/accrue/domain/rate"
	"github.com/artpar/accrue/domain/usage"
	"github.com/artpar/accrue/ports"
)

// Paging defaults.
const (
	DefaultItemPageSize = 12
	DefaultUsePageSize  = 10
	MaxPageSize         = 100
)

// ItemView is an item with its derived balance.
type ItemView struct {
	item.Item
	Accumulated       int64
	NextInSec         *float64
	CurrentRatePerSec *float64
	UsageCount        int
	FirstUsageDate    *time.Time  // GetItem only
	Rates             []rate.Rate // GetItem only, newest From first
}

// ItemPage is one page of item views, newest first.
type ItemPage struct {
	Items    []ItemView
	Total    int
	Page     int
	PageSize int
}

// UsePage is one page of uses, newest first.
type UsePage struct {
	Uses     []usage.Use
	Total    int
	Page     int
	PageSize int
}

// RateInput creates a rate when ID is empty and updates rate ID otherwise.
type RateInput struct {
	ID     string
	ItemID string
	Value  float64
	Unit   rate.Unit
	From   time.Time
	To     *time.Time
}

// DefaultPublishTimeout bounds how long a write waits on the state publisher.
const DefaultPublishTimeout = 5 * time.Second

// TrackerConfig contains configuration for Tracker.
type TrackerConfig struct {
	Location       *time.Location       // day boundaries; UTC if nil
	Publisher      ports.StatePublisher // optional
	PublishTimeout time.Duration        // DefaultPublishTimeout if zero
	Metrics        *metrics.Collector   // optional
}

// Tracker reads and writes items, rates and uses and derives balances and
// analytics through the accrual engine.
type Tracker struct {
	store     ports.Store
	clock     ports.Clock
	ids       ports.IDGenerator
	publisher ports.StatePublisher
	pubWait   time.Duration
	metrics   *metrics.Collector
	logger    zerolog.Logger
	loc       atomic.Pointer[time.Location]
}

// NewTracker creates a new tracker service.
func NewTracker(
	store ports.Store,
	clock ports.Clock,
	ids ports.IDGenerator,
	logger zerolog.Logger,
	cfg TrackerConfig,
) *Tracker {
	t := &Tracker{
		store:     store,
		clock:     clock,
		ids:       ids,
		publisher: cfg.Publisher,
		pubWait:   cfg.PublishTimeout,
		metrics:   cfg.Metrics,
		logger:    logger.With().Str("service", "tracker").Logger(),
	}
	if t.pubWait <= 0 {
		t.pubWait = DefaultPublishTimeout
	}
	t.SetLocation(cfg.Location)
	return t
}

// SetLocation changes the location used for calendar-day boundaries.
func (t *Tracker) SetLocation(loc *time.Location) {
	if loc == nil {
		loc = time.UTC
	}
	t.loc.Store(loc)
}

// Location returns the location used for calendar-day boundaries.
func (t *Tracker) Location() *time.Location {
	return t.loc.Load()
}

// -----------------------------------------------------------------------------
// Items
// -----------------------------------------------------------------------------

// GetItem returns the item with its balance, rates, use count and first use.
// A missing item yields a nil view and a nil error.
func (t *Tracker) GetItem(ctx context.Context, id string) (*ItemView, error) {
	var (
		it    item.Item
		rates []rate.Rate
		count int
		first *time.Time
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		it, err = t.store.Items().Get(gctx, id)
		return err
	})
	g.Go(func() (err error) {
		rates, err = t.store.Rates().ListByItem(gctx, id)
		return err
	})
	g.Go(func() (err error) {
		count, err = t.store.Uses().CountByItem(gctx, id)
		return err
	})
	g.Go(func() error {
		u, err := t.store.Uses().First(gctx, id)
		if errors.Is(err, ports.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		first = &u.CreatedAt
		return nil
	})

	if err := g.Wait(); err != nil {
		if errors.Is(err, ports.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get item %s: %w", id, err)
	}

	view := t.view(it, rates, count)
	view.FirstUsageDate = first
	view.Rates = newestFirst(rates)
	return &view, nil
}

// ListItems returns one page of items, newest first, with derived balances.
func (t *Tracker) ListItems(ctx context.Context, page, pageSize int) (ItemPage, error) {
	page, pageSize, err := normalizePage(page, pageSize, DefaultItemPageSize)
	if err != nil {
		return ItemPage{}, err
	}

	var (
		items []item.Item
		total int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		items, err = t.store.Items().List(gctx, pageSize, (page-1)*pageSize)
		return err
	})
	g.Go(func() (err error) {
		total, err = t.store.Items().Count(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return ItemPage{}, fmt.Errorf("list items: %w", err)
	}

	views := make([]ItemView, 0, len(items))
	for _, it := range items {
		rates, err := t.store.Rates().ListByItem(ctx, it.ID)
		if err != nil {
			return ItemPage{}, fmt.Errorf("list rates of %s: %w", it.ID, err)
		}
		count, err := t.store.Uses().CountByItem(ctx, it.ID)
		if err != nil {
			return ItemPage{}, fmt.Errorf("count uses of %s: %w", it.ID, err)
		}
		views = append(views, t.view(it, rates, count))
	}

	return ItemPage{Items: views, Total: total, Page: page, PageSize: pageSize}, nil
}

// CreateItem creates a new item.
func (t *Tracker) CreateItem(ctx context.Context, name, description string) (item.Item, error) {
	it := item.New(t.ids.New(), name, description, t.clock.Now())
	if err := item.Validate(it); err != nil {
		return item.Item{}, validationFor(err)
	}
	if err := t.store.Items().Create(ctx, it); err != nil {
		return item.Item{}, fmt.Errorf("create item: %w", err)
	}

	if t.metrics != nil {
		t.metrics.ItemsCreated.Inc()
	}
	t.logger.Info().Str("item_id", it.ID).Str("name", it.Name).Msg("item created")
	t.publish(ctx, it.ID)
	return it, nil
}

// Stats builds the analytics for an item over [from, to].
// Both bounds are optional. A missing item yields nil and a nil error.
func (t *Tracker) Stats(ctx context.Context, itemID string, from, to *time.Time) (*accrual.Stats, error) {
	if from != nil && to != nil && to.Before(*from) {
		return nil, invalid("to", "must not be before from")
	}
	loc := t.Location()

	if _, err := t.store.Items().Get(ctx, itemID); err != nil {
		if errors.Is(err, ports.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get item %s: %w", itemID, err)
	}

	var upper *time.Time
	if to != nil {
		end := usage.EndOfDay(*to, loc)
		upper = &end
	}

	var (
		rates []rate.Rate
		uses  []usage.Use
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		rates, err = t.store.Rates().ListByItem(gctx, itemID)
		return err
	})
	g.Go(func() (err error) {
		uses, err = t.store.Uses().ListRange(gctx, itemID, from, upper)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("stats for %s: %w", itemID, err)
	}

	start := time.Now()
	stats := accrual.BuildStats(accrual.StatsInput{
		Rates:    rates,
		Uses:     uses,
		From:     from,
		To:       to,
		Now:      t.clock.Now(),
		Location: loc,
	})
	t.observe("stats", start)
	return &stats, nil
}

// -----------------------------------------------------------------------------
// Rates
// -----------------------------------------------------------------------------

// ListRates returns an item's rates, newest From first.
func (t *Tracker) ListRates(ctx context.Context, itemID string) ([]rate.Rate, error) {
	if err := t.requireItem(ctx, itemID); err != nil {
		return nil, err
	}
	rates, err := t.store.Rates().ListByItem(ctx, itemID)
	if err != nil {
		return nil, fmt.Errorf("list rates: %w", err)
	}
	return newestFirst(rates), nil
}

// GetRate returns a single rate.
func (t *Tracker) GetRate(ctx context.Context, id string) (rate.Rate, error) {
	r, err := t.store.Rates().Get(ctx, id)
	if err != nil {
		if errors.Is(err, ports.ErrNotFound) {
			return rate.Rate{}, err
		}
		return rate.Rate{}, fmt.Errorf("get rate %s: %w", id, err)
	}
	return r, nil
}

// SaveRate creates or updates a rate after validating it and checking it
// against the item's other rates.
func (t *Tracker) SaveRate(ctx context.Context, in RateInput) (rate.Rate, error) {
	r := rate.Rate{
		ID:        in.ID,
		ItemID:    in.ItemID,
		Value:     in.Value,
		Unit:      in.Unit,
		From:      in.From,
		To:        in.To,
		CreatedAt: t.clock.Now(),
	}

	update := in.ID != ""
	if update {
		existing, err := t.store.Rates().Get(ctx, in.ID)
		if err != nil {
			return rate.Rate{}, err
		}
		if in.ItemID != "" && in.ItemID != existing.ItemID {
			return rate.Rate{}, invalid("itemId", "rate %s belongs to another item", in.ID)
		}
		r.ItemID = existing.ItemID
		r.CreatedAt = existing.CreatedAt
	} else {
		if in.ItemID == "" {
			return rate.Rate{}, invalid("itemId", "is required")
		}
		if err := t.requireItem(ctx, in.ItemID); err != nil {
			return rate.Rate{}, err
		}
		r.ID = t.ids.New()
	}

	if err := rate.Validate(r); err != nil {
		return rate.Rate{}, validationFor(err)
	}

	existing, err := t.store.Rates().ListByItem(ctx, r.ItemID)
	if err != nil {
		return rate.Rate{}, fmt.Errorf("list rates: %w", err)
	}
	if err := rate.CheckOverlap(r.Span(), existing, in.ID); err != nil {
		var conflict *rate.ConflictError
		if errors.As(err, &conflict) {
			if t.metrics != nil {
				t.metrics.RateConflicts.WithLabelValues(conflictLabel(conflict)).Inc()
			}
			t.logger.Debug().
				Str("item_id", r.ItemID).
				Str("conflicting_rate", conflict.RateID).
				Str("reason", conflict.Reason).
				Msg("rate rejected")
		}
		return rate.Rate{}, err
	}

	op := "create"
	if update {
		op = "update"
		err = t.store.Rates().Update(ctx, r)
	} else {
		err = t.store.Rates().Create(ctx, r)
	}
	if err != nil {
		return rate.Rate{}, fmt.Errorf("%s rate: %w", op, err)
	}

	if t.metrics != nil {
		t.metrics.RatesSaved.WithLabelValues(op).Inc()
	}
	t.logger.Info().
		Str("item_id", r.ItemID).
		Str("rate_id", r.ID).
		Str("op", op).
		Float64("value", r.Value).
		Str("unit", r.Unit.String()).
		Msg("rate saved")
	t.publish(ctx, r.ItemID)
	return r, nil
}

// DeleteRate removes a rate.
func (t *Tracker) DeleteRate(ctx context.Context, id string) (rate.Rate, error) {
	r, err := t.store.Rates().Delete(ctx, id)
	if err != nil {
		if errors.Is(err, ports.ErrNotFound) {
			return rate.Rate{}, err
		}
		return rate.Rate{}, fmt.Errorf("delete rate: %w", err)
	}
	t.logger.Info().Str("item_id", r.ItemID).Str("rate_id", r.ID).Msg("rate deleted")
	t.publish(ctx, r.ItemID)
	return r, nil
}

// -----------------------------------------------------------------------------
// Uses
// -----------------------------------------------------------------------------

// ListUses returns one page of an item's uses, newest first.
func (t *Tracker) ListUses(ctx context.Context, itemID string, page, pageSize int) (UsePage, error) {
	page, pageSize, err := normalizePage(page, pageSize, DefaultUsePageSize)
	if err != nil {
		return UsePage{}, err
	}
	if err := t.requireItem(ctx, itemID); err != nil {
		return UsePage{}, err
	}

	var (
		uses  []usage.Use
		total int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		uses, err = t.store.Uses().ListByItem(gctx, itemID, pageSize, (page-1)*pageSize)
		return err
	})
	g.Go(func() (err error) {
		total, err = t.store.Uses().CountByItem(gctx, itemID)
		return err
	})
	if err := g.Wait(); err != nil {
		return UsePage{}, fmt.Errorf("list uses: %w", err)
	}
	if uses == nil {
		uses = []usage.Use{}
	}
	return UsePage{Uses: uses, Total: total, Page: page, PageSize: pageSize}, nil
}

// RecordUse records one use of an item at the given instant, or now.
func (t *Tracker) RecordUse(ctx context.Context, itemID string, at *time.Time) (usage.Use, error) {
	if err := t.requireItem(ctx, itemID); err != nil {
		return usage.Use{}, err
	}

	when := t.clock.Now()
	if at != nil {
		if at.IsZero() {
			return usage.Use{}, invalid("createdAt", "must be a valid time")
		}
		when = *at
	}

	u := usage.New(t.ids.New(), itemID, when)
	if err := t.store.Uses().Create(ctx, u); err != nil {
		return usage.Use{}, fmt.Errorf("record use: %w", err)
	}

	if t.metrics != nil {
		t.metrics.UsesRecorded.Inc()
	}
	t.logger.Info().Str("item_id", itemID).Str("use_id", u.ID).Time("at", when).Msg("use recorded")
	t.publish(ctx, itemID)
	return u, nil
}

// UpdateUse changes the timestamp of a use.
func (t *Tracker) UpdateUse(ctx context.Context, id string, createdAt time.Time) (usage.Use, error) {
	if createdAt.IsZero() {
		return usage.Use{}, invalid("createdAt", "is required")
	}
	u, err := t.store.Uses().Update(ctx, id, createdAt)
	if err != nil {
		if errors.Is(err, ports.ErrNotFound) {
			return usage.Use{}, err
		}
		return usage.Use{}, fmt.Errorf("update use: %w", err)
	}
	t.logger.Info().Str("item_id", u.ItemID).Str("use_id", u.ID).Msg("use updated")
	t.publish(ctx, u.ItemID)
	return u, nil
}

// DeleteUse removes a use.
func (t *Tracker) DeleteUse(ctx context.Context, id string) (usage.Use, error) {
	u, err := t.store.Uses().Delete(ctx, id)
	if err != nil {
		if errors.Is(err, ports.ErrNotFound) {
			return usage.Use{}, err
		}
		return usage.Use{}, fmt.Errorf("delete use: %w", err)
	}
	t.logger.Info().Str("item_id", u.ItemID).Str("use_id", u.ID).Msg("use deleted")
	t.publish(ctx, u.ItemID)
	return u, nil
}

// -----------------------------------------------------------------------------
// Helpers
// -----------------------------------------------------------------------------

func (t *Tracker) view(it item.Item, rates []rate.Rate, count int) ItemView {
	start := time.Now()
	acc := accrual.Compute(rates, t.clock.Now(), t.Location())
	t.observe("accumulate", start)

	return ItemView{
		Item:              it,
		Accumulated:       acc.Total,
		NextInSec:         acc.SecondsUntilNext,
		CurrentRatePerSec: acc.CurrentRatePerSecond,
		UsageCount:        count,
	}
}

func (t *Tracker) requireItem(ctx context.Context, itemID string) error {
	if _, err := t.store.Items().Get(ctx, itemID); err != nil {
		if errors.Is(err, ports.ErrNotFound) {
			return err
		}
		return fmt.Errorf("get item %s: %w", itemID, err)
	}
	return nil
}

// publish pushes the item's new state. Failures are logged, never returned.
// The write is already stored, so the publish runs on its own short deadline
// and outlives a cancelled request.
func (t *Tracker) publish(ctx context.Context, itemID string) {
	if t.publisher == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), t.pubWait)
	defer cancel()

	view, err := t.GetItem(ctx, itemID)
	if err != nil || view == nil {
		return
	}

	err = t.publisher.PublishItemState(ctx, ports.ItemState{
		ItemID:            view.ID,
		Name:              view.Name,
		Accumulated:       view.Accumulated,
		CurrentRatePerSec: view.CurrentRatePerSec,
		UsageCount:        view.UsageCount,
		At:                t.clock.Now(),
	})
	if err != nil {
		if t.metrics != nil {
			t.metrics.PublishErrors.Inc()
		}
		t.logger.Warn().Err(err).Str("item_id", itemID).Msg("failed to publish item state")
	}
}

func (t *Tracker) observe(op string, start time.Time) {
	if t.metrics != nil {
		t.metrics.EngineDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	}
}

func normalizePage(page, pageSize, def int) (int, int, error) {
	if page == 0 {
		page = 1
	}
	if pageSize == 0 {
		pageSize = def
	}
	if page < 1 {
		return 0, 0, invalid("page", "must be at least 1")
	}
	if pageSize < 1 || pageSize > MaxPageSize {
		return 0, 0, invalid("pageSize", "must be between 1 and %d", MaxPageSize)
	}
	return page, pageSize, nil
}

// newestFirst returns rates reversed from the store's From-ascending order.
func newestFirst(rates []rate.Rate) []rate.Rate {
	out := make([]rate.Rate, len(rates))
	for i, r := range rates {
		out[len(rates)-1-i] = r
	}
	return out
}

func conflictLabel(c *rate.ConflictError) string {
	if c.Reason == rate.ReasonOpenEndedExists {
		return "open_ended"
	}
	return "overlap"
}
