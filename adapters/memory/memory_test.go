package memory_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/artpar/accrue/adapters/memory"
	"github.com/artpar/accrue/domain/item"
	"github.com/artpar/accrue/domain/rate"
	"github.com/artpar/accrue/domain/usage"
	"github.com/artpar/accrue/ports"
)

var base = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// ItemStore tests

func TestItemStore_ListNewestFirst(t *testing.T) {
	store := memory.NewItemStore()
	ctx := context.Background()

	store.Create(ctx, item.Item{ID: "a", CreatedAt: base})
	store.Create(ctx, item.Item{ID: "b", CreatedAt: base})
	store.Create(ctx, item.Item{ID: "c", CreatedAt: base.Add(time.Hour)})

	got, _ := store.List(ctx, 10, 0)
	want := []string{"c", "b", "a"}
	if len(got) != len(want) {
		t.Fatalf("len = %d, want %d", len(got), len(want))
	}
	for i, id := range want {
		if got[i].ID != id {
			t.Errorf("got[%d] = %s, want %s", i, got[i].ID, id)
		}
	}

	second, _ := store.List(ctx, 2, 2)
	if len(second) != 1 || second[0].ID != "a" {
		t.Errorf("page 2 = %+v", second)
	}
	if past, _ := store.List(ctx, 2, 10); len(past) != 0 {
		t.Errorf("offset past end = %+v", past)
	}

	if n, _ := store.Count(ctx); n != 3 {
		t.Errorf("Count = %d, want 3", n)
	}
	if _, err := store.Get(ctx, "zzz"); !errors.Is(err, ports.ErrNotFound) {
		t.Errorf("Get missing = %v", err)
	}
}

// RateStore tests

func TestRateStore_Lifecycle(t *testing.T) {
	store := memory.NewRateStore()
	ctx := context.Background()

	store.Create(ctx, rate.Rate{ID: "late", ItemID: "i", Value: 1, Unit: rate.Day, From: base.Add(time.Hour)})
	store.Create(ctx, rate.Rate{ID: "early", ItemID: "i", Value: 1, Unit: rate.Day, From: base})
	store.Create(ctx, rate.Rate{ID: "other", ItemID: "j", Value: 1, Unit: rate.Day, From: base})

	rates, _ := store.ListByItem(ctx, "i")
	if len(rates) != 2 || rates[0].ID != "early" || rates[1].ID != "late" {
		t.Fatalf("ListByItem = %+v", rates)
	}

	if err := store.Update(ctx, rate.Rate{ID: "late", ItemID: "ignored", Value: 9, Unit: rate.Week, From: base}); err != nil {
		t.Fatalf("Update: %v", err)
	}
	got, _ := store.Get(ctx, "late")
	if got.Value != 9 || got.Unit != rate.Week || got.ItemID != "i" {
		t.Errorf("after update = %+v", got)
	}

	if _, err := store.Delete(ctx, "late"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := store.Delete(ctx, "late"); !errors.Is(err, ports.ErrNotFound) {
		t.Errorf("second Delete = %v", err)
	}
	if err := store.Update(ctx, rate.Rate{ID: "late"}); !errors.Is(err, ports.ErrNotFound) {
		t.Errorf("Update missing = %v", err)
	}
}

// UseStore tests

func TestUseStore_Queries(t *testing.T) {
	store := memory.NewUseStore()
	ctx := context.Background()

	for i, at := range []time.Duration{3 * time.Hour, time.Hour, 2 * time.Hour} {
		store.Create(ctx, usage.Use{ID: string(rune('a' + i)), ItemID: "i", CreatedAt: base.Add(at)})
	}
	store.Create(ctx, usage.Use{ID: "x", ItemID: "other", CreatedAt: base})

	list, _ := store.ListByItem(ctx, "i", 10, 0)
	if len(list) != 3 || list[0].ID != "a" || list[2].ID != "b" {
		t.Errorf("ListByItem = %+v", list)
	}

	first, err := store.First(ctx, "i")
	if err != nil || first.ID != "b" {
		t.Errorf("First = %+v, %v", first, err)
	}

	from, to := base.Add(90*time.Minute), base.Add(3*time.Hour)
	ranged, _ := store.ListRange(ctx, "i", &from, &to)
	if len(ranged) != 2 || ranged[0].ID != "c" || ranged[1].ID != "a" {
		t.Errorf("ListRange = %+v", ranged)
	}

	if n, _ := store.CountByItem(ctx, "i"); n != 3 {
		t.Errorf("CountByItem = %d", n)
	}

	u, err := store.Update(ctx, "b", base.Add(10*time.Hour))
	if err != nil || !u.CreatedAt.Equal(base.Add(10*time.Hour)) {
		t.Errorf("Update = %+v, %v", u, err)
	}

	if _, err := store.Delete(ctx, "b"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := store.Get(ctx, "b"); !errors.Is(err, ports.ErrNotFound) {
		t.Errorf("Get deleted = %v", err)
	}
	if _, err := store.First(ctx, "nobody"); !errors.Is(err, ports.ErrNotFound) {
		t.Errorf("First empty = %v", err)
	}
}

func TestStore_Aggregates(t *testing.T) {
	var s ports.Store = memory.NewStore()
	if s.Items() == nil || s.Rates() == nil || s.Uses() == nil {
		t.Fatal("store accessors must not be nil")
	}
}
